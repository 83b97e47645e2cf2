package scrdriver

import (
	"github.com/stretchr/testify/assert"
	"math"
	"testing"
)

func TestSteer(t *testing.T) {
	assert.Equal(t, 0.0, Steer(0, 0, DefaultSteerLock))
	assert.InDelta(t, 0.1/DefaultSteerLock, Steer(0.1, 0, DefaultSteerLock), 1e-12)
	// left of centre steers right
	assert.InDelta(t, -0.5*TrackPosWeight/DefaultSteerLock, Steer(0, 0.5, DefaultSteerLock), 1e-12)
}

func TestSteerClamp(t *testing.T) {
	for _, angle := range []float64{-math.Pi, -1, -0.1, 0, 0.1, 1, math.Pi} {
		for _, trackPos := range []float64{-100, -1, 0, 1, 100} {
			s := Steer(angle, trackPos, DefaultSteerLock)
			assert.True(t, s >= -1 && s <= 1, "steer %v out of range for angle=%v trackPos=%v", s, angle, trackPos)
		}
	}
	assert.Equal(t, 1.0, Steer(math.Pi, -100, DefaultSteerLock))
	assert.Equal(t, -1.0, Steer(-math.Pi, 100, DefaultSteerLock))
}

func TestShiftGear(t *testing.T) {
	assert.Equal(t, 4, ShiftGear(3, 7500))
	assert.Equal(t, 2, ShiftGear(3, 2000))
	assert.Equal(t, 1, ShiftGear(1, 1000))
	assert.Equal(t, TopGear, ShiftGear(TopGear, 9000))
	// band edges do not shift
	assert.Equal(t, 3, ShiftGear(3, UpshiftRPM))
	assert.Equal(t, 3, ShiftGear(3, DownshiftRPM))
}

func TestShiftGearNeverNeutral(t *testing.T) {
	assert.Equal(t, 1, ShiftGear(0, 5000))
	assert.Equal(t, 1, ShiftGear(0, 8000))
	for gear := 1; gear <= TopGear; gear++ {
		for rpm := 0.0; rpm <= 10000; rpm += 250 {
			g := ShiftGear(gear, rpm)
			assert.True(t, g >= 1 && g <= TopGear, "gear %d out of range from gear=%d rpm=%v", g, gear, rpm)
		}
	}
}

func TestShiftGearHysteresisBand(t *testing.T) {
	for gear := 1; gear <= TopGear; gear++ {
		assert.Equal(t, gear, ShiftGear(gear, 5000))
	}
}

func TestShiftGearReverse(t *testing.T) {
	assert.Equal(t, -1, ShiftGear(-1, 1000))
	assert.Equal(t, 1, ShiftGear(-1, 8000), "upshift out of reverse skips neutral")
}

func TestAccelerate(t *testing.T) {
	assert.InDelta(t, 0.6, Accelerate(0.5, 50, 100), 1e-12)
	assert.Equal(t, 1.0, Accelerate(0.95, 50, 100))
	assert.InDelta(t, 0.45, Accelerate(0.5, 100, 100), 1e-12)
	assert.Equal(t, 0.1, Accelerate(0.12, 150, 100))
	assert.Equal(t, 0.1, Accelerate(0, 150, 100))
}

func TestAccelerateBounds(t *testing.T) {
	for current := 0.0; current < 1; current += 0.05 {
		up := Accelerate(current, 10, 100)
		assert.True(t, up > current && up <= math.Min(current+0.1, 1)+1e-12,
			"ramp up from %v gave %v", current, up)
	}
	for current := 0.15; current <= 1; current += 0.05 {
		down := Accelerate(current, 120, 100)
		assert.True(t, down >= math.Max(current-0.05, 0.1)-1e-12 && down < current,
			"ramp down from %v gave %v", current, down)
	}
}

func TestSteerNonFinite(t *testing.T) {
	nan := math.NaN()
	inf := math.Inf(1)
	for _, in := range [][3]float64{
		{nan, 0, DefaultSteerLock},
		{0, nan, DefaultSteerLock},
		{inf, 0, DefaultSteerLock},
		{-inf, 0, DefaultSteerLock},
		{0, inf, DefaultSteerLock},
		{0, -inf, DefaultSteerLock},
		{0.1, 0, nan},
	} {
		s := Steer(in[0], in[1], in[2])
		assert.True(t, s >= -1 && s <= 1, "steer %v out of range for %v", s, in)
	}
	assert.Equal(t, 0.0, Steer(nan, 0, DefaultSteerLock))
	assert.Equal(t, 1.0, Steer(inf, 0, DefaultSteerLock))
}
