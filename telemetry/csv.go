package telemetry

import (
	"encoding/csv"
	"github.com/jd3nn1s/scrdriver"
	"github.com/pkg/errors"
	"io"
	"os"
)

// CSV appends one row per tick after a header row.
type CSV struct {
	w      *csv.Writer
	closer io.Closer
}

func NewCSVFile(fileName string) (*CSV, error) {
	file, err := os.OpenFile(fileName, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open telemetry log %s", fileName)
	}
	c, err := NewCSV(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	c.closer = file
	return c, nil
}

func NewCSV(w io.Writer) (*CSV, error) {
	c := &CSV{
		w: csv.NewWriter(w),
	}
	if err := c.w.Write(scrdriver.TelemetryColumns); err != nil {
		return nil, errors.Wrap(err, "unable to write telemetry header")
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return nil, errors.Wrap(err, "unable to write telemetry header")
	}
	return c, nil
}

func (c *CSV) Record(r *scrdriver.TelemetryRecord) error {
	if err := c.w.Write(r.Strings()); err != nil {
		return errors.Wrap(err, "unable to write telemetry row")
	}
	return nil
}

func (c *CSV) Close() error {
	c.w.Flush()
	err := c.w.Error()
	if c.closer != nil {
		if closeErr := c.closer.Close(); err == nil {
			err = closeErr
		}
	}
	return errors.Wrap(err, "unable to close telemetry log")
}
