package simclient

import (
	"context"
	"github.com/jd3nn1s/scrdriver"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu      sync.Mutex
	records []*scrdriver.TelemetryRecord
	closed  int
}

func (s *recordingSink) Record(r *scrdriver.TelemetryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

type driverStub struct {
	initCalls     int
	driveCalls    int
	restartCalls  int
	shutdownCalls int
	reply         string
	driveErr      error
}

func (d *driverStub) Init() (string, error) {
	d.initCalls++
	return "(init 0)", nil
}

func (d *driverStub) Drive(string) (string, error) {
	d.driveCalls++
	return d.reply, d.driveErr
}

func (d *driverStub) OnRestart() {
	d.restartCalls++
}

func (d *driverStub) OnShutdown() error {
	d.shutdownCalls++
	return nil
}

func startFakeServer(t *testing.T, server *FakeServer) (Config, func() error) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Serve(ctx, pc)
	}()

	config := DefaultConfig()
	config.Host = "127.0.0.1"
	config.Port = pc.LocalAddr().(*net.UDPAddr).Port
	config.TimeoutMS = 200
	return config, func() error {
		cancel()
		return <-errChan
	}
}

func runClient(t *testing.T, client *Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return client.Run(ctx)
}

func TestClientSession(t *testing.T) {
	server := &FakeServer{Ticks: 5, Episodes: 2}
	config, stop := startFakeServer(t, server)

	sink := &recordingSink{}
	driver := scrdriver.NewDriver(scrdriver.DefaultDriverConfig(), nil, sink)
	client := NewClient(config, driver)

	assert.NoError(t, runClient(t, client))
	assert.NoError(t, stop())

	assert.Equal(t, scrdriver.StateTerminated, driver.State())
	assert.Len(t, sink.records, 10)
	assert.Equal(t, 1, sink.closed)

	inits := 0
	for _, msg := range server.Received {
		if strings.HasPrefix(msg, "SCR(init -90 -75") {
			inits++
		}
	}
	assert.Equal(t, 2, inits, "client identifies once per episode")
}

func TestClientAutonomousShiftsGear(t *testing.T) {
	server := &FakeServer{Ticks: 40, Episodes: 1}
	config, stop := startFakeServer(t, server)

	cfg := scrdriver.DefaultDriverConfig()
	cfg.Mode = scrdriver.ModeAutonomous
	sink := &recordingSink{}
	driver := scrdriver.NewDriver(cfg, nil, sink)

	assert.NoError(t, runClient(t, NewClient(config, driver)))
	assert.NoError(t, stop())

	maxGear := 0
	for _, r := range sink.records {
		if r.Gear > maxGear {
			maxGear = r.Gear
		}
		assert.NotEqual(t, 0, r.Gear)
	}
	// rpm ramps past the upshift threshold
	assert.True(t, maxGear > 1, "expected an upshift, max gear %d", maxGear)
}

func TestClientMaxSteps(t *testing.T) {
	server := &FakeServer{Ticks: 100, Episodes: 1}
	config, stop := startFakeServer(t, server)
	config.MaxSteps = 3

	driver := &driverStub{reply: "(accel 1)"}
	assert.NoError(t, runClient(t, NewClient(config, driver)))
	assert.NoError(t, stop())

	assert.Equal(t, 2, driver.driveCalls)
	assert.Contains(t, server.Received, restartRequest)
	assert.Equal(t, 1, driver.shutdownCalls)
}

func TestClientMaxEpisodes(t *testing.T) {
	server := &FakeServer{Ticks: 2}
	config, stop := startFakeServer(t, server)
	config.MaxEpisodes = 2

	driver := &driverStub{reply: "(accel 1)"}
	assert.NoError(t, runClient(t, NewClient(config, driver)))
	assert.Equal(t, context.Canceled, stop())

	assert.Equal(t, 2, driver.initCalls)
	assert.Equal(t, 2, driver.restartCalls)
	assert.Equal(t, 4, driver.driveCalls)
	assert.Equal(t, 1, driver.shutdownCalls)
}

func TestClientRecoversFromDriverError(t *testing.T) {
	server := &FakeServer{Ticks: 3, Episodes: 1}
	config, stop := startFakeServer(t, server)

	driver := &driverStub{reply: "(accel 0)", driveErr: errors.New("bad sensors")}
	assert.NoError(t, runClient(t, NewClient(config, driver)))
	assert.NoError(t, stop())
	assert.Equal(t, 3, driver.driveCalls)
}

func TestClientFatalDriverError(t *testing.T) {
	server := &FakeServer{Ticks: 3, Episodes: 1}
	config, stop := startFakeServer(t, server)
	defer stop()

	driver := &driverStub{driveErr: errors.New("cannot encode")}
	err := runClient(t, NewClient(config, driver))
	assert.Error(t, err)
	assert.Equal(t, 1, driver.driveCalls)
	assert.Equal(t, 1, driver.shutdownCalls)
}

func TestClientCancelledWhileIdentifying(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	config := DefaultConfig()
	config.Host = "127.0.0.1"
	config.Port = pc.LocalAddr().(*net.UDPAddr).Port
	config.TimeoutMS = 20

	driver := &driverStub{}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err = NewClient(config, driver).Run(ctx)
	assert.Equal(t, context.DeadlineExceeded, err)
	assert.Equal(t, 1, driver.shutdownCalls)
}

func TestClientShutsDownDriverWhenDialFails(t *testing.T) {
	config := DefaultConfig()
	config.Host = "127.0.0.1"
	// rejected by the resolver before any packet is sent
	config.Port = -1

	driver := &driverStub{}
	err := runClient(t, NewClient(config, driver))
	assert.Error(t, err)
	assert.Equal(t, 0, driver.initCalls)
	assert.Equal(t, 1, driver.shutdownCalls)
}
