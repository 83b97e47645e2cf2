package input

import (
	"bufio"
	"context"
	"github.com/jd3nn1s/scrdriver"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"
	"io"
	"sync"
)

// to allow testing
var serialOpen = func(portName string, baudRate int) (io.ReadCloser, error) {
	return serial.Open(portName, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
}

// Serial reads held keys from a pedal or button box. The device sends one
// line per change listing the held keys, e.g. "wa", or an empty line when
// nothing is held.
type Serial struct {
	PortName string
	BaudRate int

	mu     sync.Mutex
	port   io.ReadCloser
	intent scrdriver.Intent
}

func NewSerial(portName string, baudRate int) *Serial {
	if baudRate <= 0 {
		baudRate = 9600
	}
	return &Serial{
		PortName: portName,
		BaudRate: baudRate,
	}
}

func (s *Serial) Name() string {
	return "serial input"
}

func (s *Serial) Open() error {
	port, err := serialOpen(s.PortName, s.BaudRate)
	if err != nil {
		return errors.Wrapf(err, "unable to open %s", s.PortName)
	}
	s.mu.Lock()
	s.port = port
	s.mu.Unlock()
	log.WithField("port", s.PortName).Info("serial input opened")
	return nil
}

// Close releases the port. Held inputs are dropped so a lost device never
// leaves the throttle applied.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intent = scrdriver.IntentNone
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

func (s *Serial) Start(ctx context.Context) error {
	s.mu.Lock()
	port := s.port
	s.mu.Unlock()
	if port == nil {
		return errors.New("serial port not open")
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			if err := s.Close(); err != nil {
				log.WithField("err", err).Warn("unable to close serial port after context")
			}
		case <-done:
		}
	}()

	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		intent := ParseKeys(scanner.Text())
		s.mu.Lock()
		s.intent = intent
		s.mu.Unlock()
		log.WithField("intent", intent).Debug("serial input")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "unable to read serial port")
	}
	return errors.New("serial port closed")
}

func (s *Serial) PollIntent() scrdriver.Intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intent
}

// Run keeps the device connected until ctx is done.
func (s *Serial) Run(ctx context.Context) error {
	return scrdriver.Retry(ctx, s)
}
