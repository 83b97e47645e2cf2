package scrdriver

const (
	// DefaultSteerLock is the maximum wheel angle in radians (45 degrees).
	DefaultSteerLock = 0.785398

	// TrackPosWeight damps the lateral offset term of the steering law.
	TrackPosWeight = 0.2

	UpshiftRPM   = 7000
	DownshiftRPM = 2500

	accelStep     = 0.1
	decelStep     = 0.05
	minCoastAccel = 0.1
)

// Steer turns heading and lateral offset into a steering command in [-1, 1].
func Steer(angle, trackPos, steerLock float64) float64 {
	return clamp((angle-trackPos*TrackPosWeight)/steerLock, -1, 1)
}

// ShiftGear applies the upshift/downshift band. No shift happens between
// DownshiftRPM and UpshiftRPM inclusive.
func ShiftGear(gear int, rpm float64) int {
	if rpm > UpshiftRPM && gear < TopGear {
		gear++
	} else if rpm < DownshiftRPM && gear > 1 {
		gear--
	}
	if gear == 0 {
		gear = 1
	}
	return gear
}

// Accelerate ramps throttle towards maxSpeed. Throttle is never fully
// released once the car is at speed.
func Accelerate(current, speedX, maxSpeed float64) float64 {
	var accel float64
	if speedX < maxSpeed {
		accel = current + accelStep
		if accel > 1 {
			accel = 1
		}
	} else {
		accel = current - decelStep
		if accel < minCoastAccel {
			accel = minCoastAccel
		}
	}
	return clamp(accel, 0, 1)
}
