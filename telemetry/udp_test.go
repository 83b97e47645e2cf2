package telemetry

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"github.com/jd3nn1s/scrdriver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net"
	"testing"
	"time"
)

func testRecord() *scrdriver.TelemetryRecord {
	track := make([]float64, 19)
	for i := range track {
		track[i] = float64(i + 1)
	}
	return &scrdriver.TelemetryRecord{
		Time:          1,
		SpeedX:        2,
		SpeedY:        3,
		SpeedZ:        4,
		TrackPos:      0.5,
		Angle:         0.25,
		Gear:          3,
		RPM:           5000,
		Acceleration:  0.6,
		Brake:         0,
		Steer:         -0.5,
		DistFromStart: 10,
		DistRaced:     11,
		RacePos:       2,
		Track:         track,
		WheelSpinVel:  []float64{20, 21, 22, 23},
		Z:             0.375,
	}
}

func TestUDPForwarder(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()
	udpAddr := pc.LocalAddr().(*net.UDPAddr)
	config := fmt.Sprintf(`
Server = "127.0.0.1"
Port = %d
Interval = 10
`, udpAddr.Port)

	recvData := struct {
		data []byte
		len  int
	}{}

	dataChan := make(chan struct{}, 1)
	go func() {
		buffer := make([]byte, 1024)
		assert.NoError(t, pc.SetReadDeadline(time.Now().Add(time.Second*3)))
		n, _, err := pc.ReadFrom(buffer)
		assert.NoError(t, err)
		recvData.data = buffer
		recvData.len = n
		dataChan <- struct{}{}
	}()

	udp, err := NewUDPForwarderFromReader(bytes.NewBufferString(config))
	require.NoError(t, err)
	defer udp.Close()
	assert.Equal(t, 10, udp.Config.Interval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = udp.Start(ctx)
	}()

	assert.NoError(t, udp.Record(testRecord()))

	<-dataChan
	assert.Equal(t, maxPacketSize, recvData.len)

	hdr := Header{}
	recvPacket := Packet{}
	rdr := bytes.NewReader(recvData.data)
	assert.NoError(t, binary.Read(rdr, binary.LittleEndian, &hdr))
	assert.NoError(t, binary.Read(rdr, binary.LittleEndian, &recvPacket))
	assert.Equal(t, uint8(TypeTelemetry), hdr.Type)
	assert.Equal(t, NewPacket(testRecord()), &recvPacket)
	assert.Equal(t, int8(3), recvPacket.Gear)
	assert.Equal(t, float32(19), recvPacket.Track[18])
	assert.Equal(t, float32(23), recvPacket.WheelSpinVel[3])
}

func TestUDPForwarderDropsWhenBusy(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	udp, err := NewUDPForwarder(UDPConfig{
		Server: "127.0.0.1",
		Port:   pc.LocalAddr().(*net.UDPAddr).Port,
	})
	require.NoError(t, err)
	assert.Equal(t, 100, udp.Config.Interval)

	// not started, so only the first record is queued
	assert.NoError(t, udp.Record(testRecord()))
	assert.NoError(t, udp.Record(testRecord()))
	assert.Len(t, udp.fwdChan, 1)

	assert.NoError(t, udp.Close())
	assert.NoError(t, udp.Close())
}

func TestNewPacketShortSequences(t *testing.T) {
	p := NewPacket(&scrdriver.TelemetryRecord{
		Track: []float64{1, 2},
	})
	assert.Equal(t, float32(2), p.Track[1])
	assert.Equal(t, float32(0), p.Track[2])
	assert.Equal(t, [wheels]float32{}, p.WheelSpinVel)
}

func TestNewUDPForwarderBadConfig(t *testing.T) {
	_, err := NewUDPForwarderFromReader(bytes.NewBufferString("Port = \"not a number\""))
	assert.Error(t, err)
}
