package scrdriver

import (
	"github.com/jd3nn1s/scrdriver/scrmsg"
	"math"
)

const (
	TopGear     = 6
	ReverseGear = -1
)

// CarControl holds the actuator values sent back to the server each tick.
type CarControl struct {
	Accel  float64
	Brake  float64
	Steer  float64
	Gear   int
	Clutch float64
	Focus  int
	Meta   int
}

// SafeControl is sent when no valid command exists yet.
func SafeControl() CarControl {
	return CarControl{
		Gear:  1,
		Brake: 1,
	}
}

func (c *CarControl) Clamp() {
	c.Accel = clamp(c.Accel, 0, 1)
	c.Brake = clamp(c.Brake, 0, 1)
	c.Steer = clamp(c.Steer, -1, 1)
	c.Clutch = clamp(c.Clutch, 0, 1)
	if c.Gear > TopGear {
		c.Gear = TopGear
	} else if c.Gear < ReverseGear {
		c.Gear = ReverseGear
	}
	if c.Gear == 0 {
		c.Gear = 1
	}
}

func (c CarControl) Message() scrmsg.Message {
	return scrmsg.Message{
		{Key: "accel", Values: []float64{c.Accel}},
		{Key: "brake", Values: []float64{c.Brake}},
		{Key: "gear", Values: []float64{float64(c.Gear)}},
		{Key: "steer", Values: []float64{c.Steer}},
		{Key: "clutch", Values: []float64{c.Clutch}},
		{Key: "focus", Values: []float64{float64(c.Focus)}},
		{Key: "meta", Values: []float64{float64(c.Meta)}},
	}
}

func (c CarControl) Encode() (string, error) {
	return scrmsg.Encode(c.Message())
}

// clamp maps NaN to zero, or to the nearest bound when zero is out of range.
func clamp(v, min, max float64) float64 {
	if math.IsNaN(v) {
		v = 0
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
