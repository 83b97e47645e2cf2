package telemetry

import (
	"fmt"
	"github.com/jd3nn1s/scrdriver"
	"io"
)

// Printer writes each record to w on its own line.
type Printer struct {
	w io.Writer
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) Record(r *scrdriver.TelemetryRecord) error {
	// raw terminals need the carriage return
	_, err := fmt.Fprintf(p.w, "%+v\r\n", *r)
	return err
}

func (p *Printer) Close() error {
	return nil
}
