package scrdriver

import (
	"github.com/jd3nn1s/scrdriver/scrmsg"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	ErrAlreadyInitialized = errors.New("driver already initialized")
	ErrShutdown           = errors.New("driver is shut down")
)

// RangefinderAngles are the track sensor directions in degrees, left to right.
var RangefinderAngles = rangefinderAngles()

func rangefinderAngles() []float64 {
	angles := make([]float64, 19)
	for i := 0; i < 5; i++ {
		angles[i] = float64(-90 + i*15)
		angles[18-i] = float64(90 - i*15)
	}
	for i := 5; i < 9; i++ {
		angles[i] = float64(-20 + (i-5)*5)
		angles[18-i] = float64(20 - (i-5)*5)
	}
	return angles
}

type DriverConfig struct {
	Mode      Mode
	Stage     Stage
	SteerLock float64
	MaxSpeed  float64

	// values applied for held intents in manual mode
	ManualThrottle float64
	ManualSteer    float64
	ManualBrake    float64
}

func DefaultDriverConfig() DriverConfig {
	return DriverConfig{
		Mode:           ModeManual,
		Stage:          StageUnknown,
		SteerLock:      DefaultSteerLock,
		MaxSpeed:       100,
		ManualThrottle: 0.6,
		ManualSteer:    DefaultSteerLock,
	}
}

// Driver turns sensor messages into control messages, one tick at a time.
// It is not safe for concurrent use.
type Driver struct {
	cfg   DriverConfig
	input InputSource
	sink  TelemetrySink

	state SessionState

	control    CarControl
	hasControl bool

	prevRPM    float64
	hasPrevRPM bool
}

func NewDriver(cfg DriverConfig, input InputSource, sink TelemetrySink) *Driver {
	if cfg.SteerLock == 0 {
		cfg.SteerLock = DefaultSteerLock
	}
	return &Driver{
		cfg:     cfg,
		input:   input,
		sink:    sink,
		control: SafeControl(),
	}
}

func (d *Driver) State() SessionState {
	return d.state
}

func (d *Driver) Stage() Stage {
	return d.cfg.Stage
}

// PreviousRPM returns the engine speed seen on the last successful tick.
func (d *Driver) PreviousRPM() (float64, bool) {
	return d.prevRPM, d.hasPrevRPM
}

// Control returns the last command sent.
func (d *Driver) Control() CarControl {
	return d.control
}

// Init returns the handshake message announcing the rangefinder angles.
func (d *Driver) Init() (string, error) {
	switch d.state {
	case StateUninitialized, StateRestarting:
	case StateShuttingDown, StateTerminated:
		return "", ErrShutdown
	default:
		return "", ErrAlreadyInitialized
	}
	s, err := scrmsg.Encode(scrmsg.Message{{Key: "init", Values: RangefinderAngles}})
	if err != nil {
		return "", err
	}
	d.state = StateInitialized
	log.WithField("stage", d.cfg.Stage).
		WithField("mode", d.cfg.Mode).
		Info("driver initialized")
	return s, nil
}

// Drive handles one sensor message and returns the control message to send.
// When the sensor message cannot be used the previous command is returned
// along with the error.
func (d *Driver) Drive(raw string) (string, error) {
	switch d.state {
	case StateShuttingDown, StateTerminated:
		return "", ErrShutdown
	case StateUninitialized:
		log.Warn("driving before init handshake")
	}
	d.state = StateRunning

	state, err := d.parse(raw)
	if err != nil {
		return d.fallback(err)
	}

	if d.sink != nil {
		if err := d.sink.Record(NewTelemetryRecord(state, d.control)); err != nil {
			log.WithField("err", err).Warn("unable to record telemetry")
		}
	}

	control := d.decide(state)
	d.prevRPM = state.RPM
	d.hasPrevRPM = true

	msg, err := control.Encode()
	if err != nil {
		return "", errors.Wrap(err, "unable to encode control")
	}
	d.control = control
	d.hasControl = true

	log.WithFields(log.Fields{
		"accel": control.Accel,
		"steer": control.Steer,
		"gear":  control.Gear,
		"rpm":   state.RPM,
		"speed": state.SpeedX,
	}).Debug("tick")
	return msg, nil
}

func (d *Driver) parse(raw string) (*CarState, error) {
	msg, err := scrmsg.Decode(raw)
	if err != nil {
		return nil, errors.Wrap(err, "unable to decode sensors")
	}
	state, err := NewCarState(msg)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read sensors")
	}
	return state, nil
}

func (d *Driver) fallback(cause error) (string, error) {
	control := SafeControl()
	if d.hasControl {
		control = d.control
	}
	msg, err := control.Encode()
	if err != nil {
		return "", errors.Wrap(err, "unable to encode fallback control")
	}
	return msg, cause
}

func (d *Driver) decide(state *CarState) CarControl {
	control := CarControl{}

	switch d.cfg.Mode {
	case ModeAutonomous:
		control.Accel = Accelerate(d.control.Accel, state.SpeedX, d.cfg.MaxSpeed)
		control.Steer = Steer(state.Angle, state.TrackPos, d.cfg.SteerLock)
	default:
		intent := IntentNone
		if d.input != nil {
			intent = d.input.PollIntent()
		}
		d.applyIntent(&control, intent)
	}

	control.Gear = ShiftGear(state.Gear, state.RPM)
	control.Clamp()
	return control
}

func (d *Driver) applyIntent(control *CarControl, intent Intent) {
	if intent.Has(IntentAccelerate) {
		control.Accel = d.cfg.ManualThrottle
	} else if intent.Has(IntentBrake) {
		control.Accel = 0
		control.Brake = d.cfg.ManualBrake
	}

	if intent.Has(IntentSteerLeft) {
		control.Steer = d.cfg.ManualSteer
	} else if intent.Has(IntentSteerRight) {
		control.Steer = -d.cfg.ManualSteer
	}
}

// OnRestart forgets the engine history; the session stays open.
func (d *Driver) OnRestart() {
	if d.state == StateShuttingDown || d.state == StateTerminated {
		return
	}
	d.prevRPM = 0
	d.hasPrevRPM = false
	d.state = StateRestarting
	log.Info("driver restarting")
}

// OnShutdown closes the telemetry sink. It is safe to call more than once.
func (d *Driver) OnShutdown() error {
	if d.state == StateShuttingDown || d.state == StateTerminated {
		return nil
	}
	d.state = StateShuttingDown
	var err error
	if d.sink != nil {
		err = errors.Wrap(d.sink.Close(), "unable to close telemetry sink")
	}
	d.state = StateTerminated
	log.Info("driver shut down")
	return err
}
