package telemetry

import (
	"github.com/jd3nn1s/scrdriver"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Multi fans records out to several sinks. A failing sink does not stop the
// others from receiving the record.
type Multi []scrdriver.TelemetrySink

func (m Multi) Record(r *scrdriver.TelemetryRecord) error {
	var firstErr error
	for _, s := range m {
		if err := s.Record(r); err != nil {
			if firstErr == nil {
				firstErr = err
				continue
			}
			log.WithField("err", err).Warn("unable to record telemetry")
		}
	}
	return firstErr
}

// Close closes every sink and returns the first error.
func (m Multi) Close() error {
	var firstErr error
	for _, s := range m {
		if err := s.Close(); err != nil {
			if firstErr == nil {
				firstErr = errors.Wrap(err, "unable to close telemetry sink")
				continue
			}
			log.WithField("err", err).Warn("unable to close telemetry sink")
		}
	}
	return firstErr
}
