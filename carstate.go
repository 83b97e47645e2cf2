package scrdriver

import (
	"fmt"
	"github.com/jd3nn1s/scrdriver/scrmsg"
	"math"
	"sort"
	"strings"
)

// keys the control policy cannot run without
var requiredKeys = []string{"angle", "trackPos", "rpm", "gear", "speedX"}

type MissingFieldError struct {
	Keys []string
}

func (e *MissingFieldError) Error() string {
	return "sensor message missing " + strings.Join(e.Keys, ", ")
}

// InvalidFieldError reports a required sensor that is NaN or infinite.
type InvalidFieldError struct {
	Key   string
	Value float64
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("sensor %s is not finite: %v", e.Key, e.Value)
}

// CarState is the decoded sensor snapshot of a single tick.
type CarState struct {
	CurLapTime    float64
	LastLapTime   float64
	DistFromStart float64
	DistRaced     float64
	RacePos       int

	SpeedX   float64
	SpeedY   float64
	SpeedZ   float64
	TrackPos float64
	Angle    float64
	Gear     int
	RPM      float64
	Z        float64

	Damage float64
	Fuel   float64

	track        []float64
	wheelSpinVel []float64
	opponents    []float64
	focus        []float64
	extra        map[string][]float64
}

var knownKeys = map[string]struct{}{
	"curLapTime": {}, "lastLapTime": {}, "distFromStart": {}, "distRaced": {},
	"racePos": {}, "speedX": {}, "speedY": {}, "speedZ": {}, "trackPos": {},
	"angle": {}, "gear": {}, "rpm": {}, "z": {}, "damage": {}, "fuel": {},
	"track": {}, "wheelSpinVel": {}, "opponents": {}, "focus": {},
}

func NewCarState(msg scrmsg.Message) (*CarState, error) {
	var missing []string
	for _, key := range requiredKeys {
		if _, ok := msg.Float(key); !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingFieldError{Keys: missing}
	}
	for _, key := range requiredKeys {
		if v, _ := msg.Float(key); math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &InvalidFieldError{Key: key, Value: v}
		}
	}

	f := func(key string) float64 {
		v, _ := msg.Float(key)
		return v
	}
	i := func(key string) int {
		return int(math.Round(f(key)))
	}
	seq := func(key string) []float64 {
		v, ok := msg.Get(key)
		if !ok {
			return nil
		}
		return append([]float64(nil), v...)
	}

	state := &CarState{
		CurLapTime:    f("curLapTime"),
		LastLapTime:   f("lastLapTime"),
		DistFromStart: f("distFromStart"),
		DistRaced:     f("distRaced"),
		RacePos:       i("racePos"),
		SpeedX:        f("speedX"),
		SpeedY:        f("speedY"),
		SpeedZ:        f("speedZ"),
		TrackPos:      f("trackPos"),
		Angle:         f("angle"),
		Gear:          i("gear"),
		RPM:           f("rpm"),
		Z:             f("z"),
		Damage:        f("damage"),
		Fuel:          f("fuel"),
		track:         seq("track"),
		wheelSpinVel:  seq("wheelSpinVel"),
		opponents:     seq("opponents"),
		focus:         seq("focus"),
	}
	for _, e := range msg {
		if _, ok := knownKeys[e.Key]; ok {
			continue
		}
		if state.extra == nil {
			state.extra = map[string][]float64{}
		}
		state.extra[e.Key] = seq(e.Key)
	}
	return state, nil
}

func (s *CarState) Track() []float64 {
	return append([]float64(nil), s.track...)
}

func (s *CarState) WheelSpinVel() []float64 {
	return append([]float64(nil), s.wheelSpinVel...)
}

func (s *CarState) Opponents() []float64 {
	return append([]float64(nil), s.opponents...)
}

func (s *CarState) Focus() []float64 {
	return append([]float64(nil), s.focus...)
}

// Extra returns the values of a key this version of the driver does not know.
func (s *CarState) Extra(key string) ([]float64, bool) {
	v, ok := s.extra[key]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), v...), true
}

func (s *CarState) ExtraKeys() []string {
	keys := make([]string, 0, len(s.extra))
	for k := range s.extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
