package simclient

import (
	"context"
	"fmt"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"net"
	"strings"
	"time"
)

const (
	msgIdentified = "***identified***"
	msgShutdown   = "***shutdown***"
	msgRestart    = "***restart***"

	// sent instead of a command to ask the server for a restart
	restartRequest = "(meta 1)"

	maxDatagramSize = 1000
)

type Config struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
	ID   string `toml:"id"`
	// zero means unlimited
	MaxEpisodes int `toml:"max_episodes"`
	MaxSteps    int `toml:"max_steps"`
	TimeoutMS   int `toml:"timeout_ms"`
}

func DefaultConfig() Config {
	return Config{
		Host:      "localhost",
		Port:      3001,
		ID:        "SCR",
		TimeoutMS: 1000,
	}
}

func (c Config) timeout() time.Duration {
	if c.TimeoutMS <= 0 {
		return time.Second
	}
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// Driver is the control side of a session.
type Driver interface {
	Init() (string, error)
	Drive(string) (string, error)
	OnRestart()
	OnShutdown() error
}

type Client struct {
	Config *Config

	conn   net.Conn
	driver Driver
	buf    []byte
}

func NewClient(config Config, driver Driver) *Client {
	return &Client{
		Config: &config,
		driver: driver,
		buf:    make([]byte, maxDatagramSize),
	}
}

func (c *Client) connect() error {
	conn, err := net.Dial("udp", fmt.Sprintf("%s:%d",
		c.Config.Host,
		c.Config.Port))
	if err != nil {
		return errors.Wrap(err, "unable to dial race server")
	}
	c.conn = conn
	return nil
}

// Run drives episodes until the server shuts the session down, the episode
// limit is reached or ctx is done. The driver is always shut down on return.
func (c *Client) Run(ctx context.Context) (err error) {
	defer func() {
		if shutdownErr := c.driver.OnShutdown(); shutdownErr != nil {
			log.WithField("err", shutdownErr).Error("unable to shut down driver")
			if err == nil {
				err = shutdownErr
			}
		}
	}()
	if err = c.connect(); err != nil {
		return err
	}
	defer func() {
		if closeErr := c.conn.Close(); closeErr != nil {
			log.WithField("err", closeErr).Warn("unable to close race server connection")
		}
	}()

	for episode := 1; ; episode++ {
		if err = c.identify(ctx); err != nil {
			return err
		}
		log.WithField("episode", episode).Info("episode started")

		var shutdown bool
		shutdown, err = c.runEpisode(ctx)
		if err != nil {
			return err
		}
		if shutdown {
			log.Info("server shut down the session")
			return nil
		}
		if c.Config.MaxEpisodes > 0 && episode >= c.Config.MaxEpisodes {
			log.WithField("episodes", episode).Info("episode limit reached")
			return nil
		}
	}
}

func (c *Client) identify(ctx context.Context) error {
	initMsg, err := c.driver.Init()
	if err != nil {
		return errors.Wrap(err, "unable to build init message")
	}
	hello := c.Config.ID + initMsg

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.WithField("server", c.conn.RemoteAddr()).Debug("sending id to server")
		msg, err := c.sendAndReceive(hello)
		if err != nil {
			if !isTimeout(err) {
				// nothing listening yet, the send or read is refused immediately
				log.WithField("err", err).Debug("race server not reachable")
				sleep(ctx, c.Config.timeout())
			}
			continue
		}
		if strings.Contains(msg, msgIdentified) {
			log.WithField("id", c.Config.ID).Info("identified by server")
			return nil
		}
	}
}

func (c *Client) runEpisode(ctx context.Context) (shutdown bool, err error) {
	step := 0
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		msg, err := c.receive()
		if isTimeout(err) {
			log.Warn("no sensor message from server")
			continue
		}
		if err != nil {
			return false, err
		}

		switch {
		case strings.Contains(msg, msgShutdown):
			return true, nil
		case strings.Contains(msg, msgRestart):
			c.driver.OnRestart()
			return false, nil
		case strings.Contains(msg, msgIdentified):
			continue
		}

		step++
		reply := restartRequest
		if c.Config.MaxSteps <= 0 || step != c.Config.MaxSteps {
			reply, err = c.drive(msg)
			if err != nil {
				return false, err
			}
		} else {
			log.WithField("steps", step).Info("step limit reached, requesting restart")
		}
		if err := c.send(reply); err != nil {
			return false, err
		}
	}
}

func (c *Client) drive(msg string) (string, error) {
	reply, err := c.driver.Drive(msg)
	if err == nil {
		return reply, nil
	}
	if reply == "" {
		return "", errors.Wrap(err, "driver failed")
	}
	log.WithField("err", err).Warn("skipping tick, resending previous command")
	return reply, nil
}

func (c *Client) sendAndReceive(msg string) (string, error) {
	if err := c.send(msg); err != nil {
		return "", err
	}
	return c.receive()
}

func (c *Client) send(msg string) error {
	if _, err := c.conn.Write([]byte(msg)); err != nil {
		return errors.Wrap(err, "unable to send to race server")
	}
	return nil
}

func (c *Client) receive() (string, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.Config.timeout())); err != nil {
		return "", errors.Wrap(err, "unable to set read deadline")
	}
	n, err := c.conn.Read(c.buf)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(c.buf[:n]), "\x00"), nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
