package simclient

import (
	"context"
	"github.com/jd3nn1s/scrdriver/scrmsg"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"net"
	"strings"
	"time"
)

// FakeServer stands in for the race server. It accepts one client, sends
// synthetic sensor messages and feeds the returned gear and throttle back
// into the next message.
type FakeServer struct {
	// ticks per episode, zero means unlimited
	Ticks int
	// episodes before the session is shut down
	Episodes int
	Interval time.Duration

	Received []string
}

type fakeCar struct {
	lapTime  float64
	dist     float64
	speed    float64
	rpm      float64
	gear     int
	angle    float64
	trackPos float64
	down     bool
}

func (car *fakeCar) message() scrmsg.Message {
	track := make([]float64, 19)
	for i := range track {
		track[i] = 200
	}
	return scrmsg.Message{
		{Key: "angle", Values: []float64{car.angle}},
		{Key: "curLapTime", Values: []float64{car.lapTime}},
		{Key: "damage", Values: []float64{0}},
		{Key: "distFromStart", Values: []float64{car.dist}},
		{Key: "distRaced", Values: []float64{car.dist}},
		{Key: "fuel", Values: []float64{94}},
		{Key: "gear", Values: []float64{float64(car.gear)}},
		{Key: "lastLapTime", Values: []float64{0}},
		{Key: "racePos", Values: []float64{1}},
		{Key: "rpm", Values: []float64{car.rpm}},
		{Key: "speedX", Values: []float64{car.speed}},
		{Key: "speedY", Values: []float64{0}},
		{Key: "speedZ", Values: []float64{0}},
		{Key: "track", Values: track},
		{Key: "trackPos", Values: []float64{car.trackPos}},
		{Key: "wheelSpinVel", Values: []float64{car.speed, car.speed, car.speed, car.speed}},
		{Key: "z", Values: []float64{0.345}},
	}
}

func (car *fakeCar) step(reply scrmsg.Message) {
	car.lapTime += 0.02
	if g, ok := reply.Float("gear"); ok {
		car.gear = int(g)
	}
	accel, _ := reply.Float("accel")
	car.speed += accel*2 - 0.5
	if car.speed < 0 {
		car.speed = 0
	}
	car.dist += car.speed * 0.02 / 3.6

	if car.down {
		car.rpm -= 250
	} else {
		car.rpm += 250
	}
	if car.rpm >= 8000 {
		car.down = true
	} else if car.rpm <= 1000 {
		car.down = false
	}

	car.angle = 0.05 * float64(int(car.lapTime*10)%5-2)
	car.trackPos = -car.angle
}

func (s *FakeServer) Serve(ctx context.Context, pc net.PacketConn) error {
	go func() {
		<-ctx.Done()
		pc.Close()
	}()

	buf := make([]byte, maxDatagramSize)
	read := func() (string, net.Addr, error) {
		n, addr, err := pc.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return "", nil, ctx.Err()
			}
			return "", nil, errors.Wrap(err, "fake server read")
		}
		msg := string(buf[:n])
		s.Received = append(s.Received, msg)
		return msg, addr, nil
	}
	write := func(addr net.Addr, msg string) error {
		_, err := pc.WriteTo([]byte(msg), addr)
		return errors.Wrap(err, "fake server write")
	}

	for episode := 1; ; episode++ {
		var addr net.Addr
		for {
			msg, from, err := read()
			if err != nil {
				return err
			}
			if strings.Contains(msg, "(init") {
				addr = from
				break
			}
		}
		if err := write(addr, msgIdentified); err != nil {
			return err
		}
		log.WithField("client", addr).Info("fake server: client identified")

		car := &fakeCar{rpm: 1000, gear: 1}
		for tick := 0; s.Ticks == 0 || tick < s.Ticks; tick++ {
			if s.Interval > 0 {
				time.Sleep(s.Interval)
			}
			sensors, err := scrmsg.Encode(car.message())
			if err != nil {
				return err
			}
			if err := write(addr, sensors); err != nil {
				return err
			}
			reply, _, err := read()
			if err != nil {
				return err
			}
			msg, err := scrmsg.Decode(reply)
			if err != nil {
				log.WithField("err", err).Warn("fake server: bad reply")
				continue
			}
			if meta, _ := msg.Float("meta"); meta == 1 {
				break
			}
			car.step(msg)
		}

		if s.Episodes > 0 && episode >= s.Episodes {
			return write(addr, msgShutdown)
		}
		if err := write(addr, msgRestart); err != nil {
			return err
		}
	}
}
