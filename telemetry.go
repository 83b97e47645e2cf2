package scrdriver

import (
	"github.com/jd3nn1s/scrdriver/scrmsg"
	"strconv"
	"strings"
)

// TelemetryColumns is the column order of a flattened TelemetryRecord.
var TelemetryColumns = []string{
	"time", "speedX", "speedY", "speedZ", "trackPos",
	"angle", "gear", "rpm", "acceleration", "brake", "steer",
	"distFromStart", "distRaced", "racePos", "track",
	"wheelSpinVel", "z",
}

type TelemetryRecord struct {
	Time     float64
	SpeedX   float64
	SpeedY   float64
	SpeedZ   float64
	TrackPos float64
	Angle    float64
	Gear     int
	RPM      float64

	Acceleration float64
	Brake        float64
	Steer        float64

	DistFromStart float64
	DistRaced     float64
	RacePos       int
	Track         []float64
	WheelSpinVel  []float64
	Z             float64
}

// NewTelemetryRecord combines this tick's sensors with the command sent on the
// previous tick.
func NewTelemetryRecord(state *CarState, control CarControl) *TelemetryRecord {
	return &TelemetryRecord{
		Time:          state.CurLapTime,
		SpeedX:        state.SpeedX,
		SpeedY:        state.SpeedY,
		SpeedZ:        state.SpeedZ,
		TrackPos:      state.TrackPos,
		Angle:         state.Angle,
		Gear:          state.Gear,
		RPM:           state.RPM,
		Acceleration:  control.Accel,
		Brake:         control.Brake,
		Steer:         control.Steer,
		DistFromStart: state.DistFromStart,
		DistRaced:     state.DistRaced,
		RacePos:       state.RacePos,
		Track:         state.Track(),
		WheelSpinVel:  state.WheelSpinVel(),
		Z:             state.Z,
	}
}

// Strings flattens the record in TelemetryColumns order. Sequences are space
// separated within a single field.
func (r *TelemetryRecord) Strings() []string {
	return []string{
		formatFloat(r.Time),
		formatFloat(r.SpeedX),
		formatFloat(r.SpeedY),
		formatFloat(r.SpeedZ),
		formatFloat(r.TrackPos),
		formatFloat(r.Angle),
		strconv.Itoa(r.Gear),
		formatFloat(r.RPM),
		formatFloat(r.Acceleration),
		formatFloat(r.Brake),
		formatFloat(r.Steer),
		formatFloat(r.DistFromStart),
		formatFloat(r.DistRaced),
		strconv.Itoa(r.RacePos),
		FormatSequence(r.Track),
		FormatSequence(r.WheelSpinVel),
		formatFloat(r.Z),
	}
}

func FormatSequence(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatFloat(v)
	}
	return strings.Join(parts, " ")
}

func formatFloat(v float64) string {
	return scrmsg.FormatValue(v)
}
