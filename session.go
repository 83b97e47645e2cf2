package scrdriver

import (
	"fmt"
	"github.com/pkg/errors"
	"strings"
)

type SessionState int

const (
	StateUninitialized SessionState = iota
	StateInitialized
	StateRunning
	StateRestarting
	StateShuttingDown
	StateTerminated
)

func (s SessionState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateRestarting:
		return "restarting"
	case StateShuttingDown:
		return "shutting down"
	case StateTerminated:
		return "terminated"
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// Mode selects which policy produces throttle and steering.
type Mode int

const (
	// ModeManual follows the input source intent.
	ModeManual Mode = iota
	// ModeAutonomous uses the steering law and the speed regulator.
	ModeAutonomous
)

func (m Mode) String() string {
	switch m {
	case ModeManual:
		return "manual"
	case ModeAutonomous:
		return "autonomous"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "manual", "":
		return ModeManual, nil
	case "autonomous", "auto":
		return ModeAutonomous, nil
	}
	return 0, errors.Errorf("unknown driver mode %q", s)
}

// Stage is the race stage announced by the server.
type Stage int

const (
	StageWarmUp Stage = iota
	StageQualifying
	StageRace
	StageUnknown
)

func (s Stage) String() string {
	switch s {
	case StageWarmUp:
		return "warmup"
	case StageQualifying:
		return "qualifying"
	case StageRace:
		return "race"
	}
	return "unknown"
}

func ParseStage(s string) Stage {
	switch strings.ToLower(s) {
	case "warmup", "warm_up", "0":
		return StageWarmUp
	case "qualifying", "1":
		return StageQualifying
	case "race", "2":
		return StageRace
	}
	return StageUnknown
}
