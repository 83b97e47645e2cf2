package telemetry

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"github.com/BurntSushi/toml"
	"github.com/jd3nn1s/scrdriver"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"io"
	"net"
	"sync"
	"time"
)

type Header struct {
	Type uint8
}

const (
	TypeTelemetry = 1
	TypeTiming    = 2
)

const (
	trackSensors = 19
	wheels       = 4
)

// Packet is the fixed size little endian layout sent to the dashboard.
type Packet struct {
	Time     float32
	SpeedX   float32
	SpeedY   float32
	SpeedZ   float32
	TrackPos float32
	Angle    float32
	Gear     int8
	RacePos  uint8
	RPM      float32

	Accel float32
	Brake float32
	Steer float32

	DistFromStart float32
	DistRaced     float32
	Track         [trackSensors]float32
	WheelSpinVel  [wheels]float32
	Z             float32
}

var maxPacketSize = binary.Size(Header{}) + binary.Size(Packet{})

type UDPConfig struct {
	Server string
	Port   int
	// minimum time between packets, in milliseconds
	Interval int
}

// UDPForwarder sends records to a remote dashboard without holding up the
// tick. Records arriving faster than the interval are dropped.
type UDPForwarder struct {
	Config *UDPConfig

	conn    net.Conn
	fwdChan chan *Packet
	once    sync.Once
}

func NewUDPForwarderFromReader(configReader io.Reader) (*UDPForwarder, error) {
	config := UDPConfig{}
	if _, err := toml.NewDecoder(configReader).Decode(&config); err != nil {
		return nil, errors.Wrapf(err, "unable to load udp forwarder configuration")
	}
	return NewUDPForwarder(config)
}

func NewUDPForwarder(config UDPConfig) (*UDPForwarder, error) {
	if config.Interval <= 0 {
		config.Interval = 100
	}
	udp := &UDPForwarder{
		Config:  &config,
		fwdChan: make(chan *Packet, 1),
	}
	if err := udp.connect(); err != nil {
		return nil, err
	}
	return udp, nil
}

func (udp *UDPForwarder) Close() error {
	var err error
	udp.once.Do(func() {
		err = udp.conn.Close()
	})
	return err
}

func (udp *UDPForwarder) Record(r *scrdriver.TelemetryRecord) error {
	select {
	case udp.fwdChan <- NewPacket(r):
	default:
		// if channel is full, skip
	}
	return nil
}

func (udp *UDPForwarder) Start(ctx context.Context) error {
	limiter := time.NewTicker(time.Duration(udp.Config.Interval) * time.Millisecond)
	defer limiter.Stop()
	for {
		select {
		case <-limiter.C:
		case <-ctx.Done():
			return ctx.Err()
		}
		select {
		case p := <-udp.fwdChan:
			if err := udp.forward(p); err != nil {
				log.Error("unable to forward telemetry to server ", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func NewPacket(r *scrdriver.TelemetryRecord) *Packet {
	p := &Packet{
		Time:          float32(r.Time),
		SpeedX:        float32(r.SpeedX),
		SpeedY:        float32(r.SpeedY),
		SpeedZ:        float32(r.SpeedZ),
		TrackPos:      float32(r.TrackPos),
		Angle:         float32(r.Angle),
		Gear:          int8(r.Gear),
		RacePos:       uint8(r.RacePos),
		RPM:           float32(r.RPM),
		Accel:         float32(r.Acceleration),
		Brake:         float32(r.Brake),
		Steer:         float32(r.Steer),
		DistFromStart: float32(r.DistFromStart),
		DistRaced:     float32(r.DistRaced),
		Z:             float32(r.Z),
	}
	for i := 0; i < len(r.Track) && i < trackSensors; i++ {
		p.Track[i] = float32(r.Track[i])
	}
	for i := 0; i < len(r.WheelSpinVel) && i < wheels; i++ {
		p.WheelSpinVel[i] = float32(r.WheelSpinVel[i])
	}
	return p
}

func (udp *UDPForwarder) forward(p *Packet) error {
	buf := bytes.NewBuffer(make([]byte, 0, maxPacketSize))
	hdr := Header{
		Type: TypeTelemetry,
	}
	if err := binary.Write(buf, binary.LittleEndian, &hdr); err != nil {
		return errors.Wrap(err, "unable to write udp packet header")
	}
	if err := binary.Write(buf, binary.LittleEndian, p); err != nil {
		return errors.Wrap(err, "unable to write telemetry udp packet")
	}
	_, err := udp.conn.Write(buf.Bytes())
	return err
}

func (udp *UDPForwarder) connect() error {
	writeBufSize := maxPacketSize * 2

	conn, err := net.Dial("udp", fmt.Sprintf("%s:%d",
		udp.Config.Server,
		udp.Config.Port))
	if err != nil {
		return errors.Wrap(err, "unable to dial telemetry server")
	}
	udpConn := conn.(*net.UDPConn)
	if err = udpConn.SetWriteBuffer(writeBufSize); err != nil {
		conn.Close()
		return errors.Wrapf(err, "unable to set OS write buffer to %v", writeBufSize)
	}

	udp.conn = conn
	return nil
}
