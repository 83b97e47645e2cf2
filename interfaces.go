package scrdriver

import (
	"strings"
)

// Intent is the set of driver inputs held during a tick.
type Intent uint8

const (
	IntentAccelerate Intent = 1 << iota
	IntentBrake
	IntentSteerLeft
	IntentSteerRight

	IntentNone Intent = 0
)

func (i Intent) Has(flag Intent) bool {
	return i&flag != 0
}

func (i Intent) String() string {
	if i == IntentNone {
		return "none"
	}
	var parts []string
	for _, f := range []struct {
		flag Intent
		name string
	}{
		{IntentAccelerate, "accelerate"},
		{IntentBrake, "brake"},
		{IntentSteerLeft, "left"},
		{IntentSteerRight, "right"},
	} {
		if i.Has(f.flag) {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "+")
}

type InputSource interface {
	PollIntent() Intent
}

type TelemetrySink interface {
	Record(*TelemetryRecord) error
	Close() error
}
