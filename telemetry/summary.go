package telemetry

import (
	"github.com/jd3nn1s/scrdriver"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary keeps per-tick speed, rpm and lateral offset and logs session
// statistics when closed.
type Summary struct {
	speed    []float64
	rpm      []float64
	trackPos []float64
	shifts   int
	lastGear int

	distRaced float64
}

type SessionStats struct {
	Ticks         int
	MeanSpeed     float64
	MaxSpeed      float64
	SpeedStdDev   float64
	MaxRPM        float64
	MeanAbsOffset float64
	GearChanges   int
	DistRaced     float64
}

func NewSummary() *Summary {
	return &Summary{}
}

func (s *Summary) Record(r *scrdriver.TelemetryRecord) error {
	if len(s.speed) > 0 && r.Gear != s.lastGear {
		s.shifts++
	}
	s.lastGear = r.Gear
	s.speed = append(s.speed, r.SpeedX)
	s.rpm = append(s.rpm, r.RPM)
	s.trackPos = append(s.trackPos, r.TrackPos)
	s.distRaced = r.DistRaced
	return nil
}

func (s *Summary) Stats() SessionStats {
	if len(s.speed) == 0 {
		return SessionStats{}
	}
	offsets := make([]float64, len(s.trackPos))
	for i, v := range s.trackPos {
		if v < 0 {
			v = -v
		}
		offsets[i] = v
	}
	mean, std := stat.MeanStdDev(s.speed, nil)
	return SessionStats{
		Ticks:         len(s.speed),
		MeanSpeed:     mean,
		MaxSpeed:      floats.Max(s.speed),
		SpeedStdDev:   std,
		MaxRPM:        floats.Max(s.rpm),
		MeanAbsOffset: stat.Mean(offsets, nil),
		GearChanges:   s.shifts,
		DistRaced:     s.distRaced,
	}
}

func (s *Summary) Close() error {
	stats := s.Stats()
	log.WithFields(log.Fields{
		"ticks":         stats.Ticks,
		"meanSpeed":     stats.MeanSpeed,
		"maxSpeed":      stats.MaxSpeed,
		"speedStdDev":   stats.SpeedStdDev,
		"maxRPM":        stats.MaxRPM,
		"meanAbsOffset": stats.MeanAbsOffset,
		"gearChanges":   stats.GearChanges,
		"distRaced":     stats.DistRaced,
	}).Info("session summary")
	return nil
}
