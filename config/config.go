package config

import (
	"github.com/BurntSushi/toml"
	"github.com/jd3nn1s/scrdriver"
	"github.com/jd3nn1s/scrdriver/simclient"
	"github.com/jd3nn1s/scrdriver/telemetry"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"io"
	"math"
	"os"
	"time"
)

const (
	InputKeyboard = "keyboard"
	InputSerial   = "serial"
	InputNone     = "none"
)

type Config struct {
	LogLevel string `toml:"log_level"`

	Client    simclient.Config `toml:"client"`
	Driver    Driver           `toml:"driver"`
	Telemetry Telemetry        `toml:"telemetry"`
	Input     Input            `toml:"input"`
}

type Driver struct {
	Mode           string  `toml:"mode"`
	Stage          string  `toml:"stage"`
	SteerLock      float64 `toml:"steer_lock"`
	MaxSpeed       float64 `toml:"max_speed"`
	ManualThrottle float64 `toml:"manual_throttle"`
	ManualSteer    float64 `toml:"manual_steer"`
	ManualBrake    float64 `toml:"manual_brake"`
}

type Telemetry struct {
	// empty disables the sink
	CSV     string `toml:"csv"`
	SQLite  string `toml:"sqlite"`
	Summary bool   `toml:"summary"`

	UDP *telemetry.UDPConfig `toml:"udp"`
}

type Input struct {
	Source     string `toml:"source"`
	SerialPort string `toml:"serial_port"`
	BaudRate   int    `toml:"baud_rate"`
	HoldMS     int    `toml:"hold_ms"`
}

func Default() Config {
	driver := scrdriver.DefaultDriverConfig()
	return Config{
		LogLevel: "info",
		Client:   simclient.DefaultConfig(),
		Driver: Driver{
			Mode:           driver.Mode.String(),
			Stage:          driver.Stage.String(),
			SteerLock:      driver.SteerLock,
			MaxSpeed:       driver.MaxSpeed,
			ManualThrottle: driver.ManualThrottle,
			ManualSteer:    driver.ManualSteer,
			ManualBrake:    driver.ManualBrake,
		},
		Telemetry: Telemetry{
			CSV: "telemetry_log.csv",
		},
		Input: Input{
			Source:   InputKeyboard,
			BaudRate: 9600,
		},
	}
}

// Load reads the configuration file. A missing file yields the defaults.
func Load(fileName string) (*Config, error) {
	f, err := os.Open(fileName)
	if os.IsNotExist(err) {
		log.WithField("file", fileName).Info("no configuration file, using defaults")
		config := Default()
		return &config, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open configuration %s", fileName)
	}
	defer f.Close()
	return LoadFromReader(f)
}

func LoadFromReader(r io.Reader) (*Config, error) {
	config := Default()
	if _, err := toml.NewDecoder(r).Decode(&config); err != nil {
		return nil, errors.Wrap(err, "unable to load configuration")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "invalid log_level")
	}
	if c.Client.Port <= 0 || c.Client.Port > 65535 {
		return errors.Errorf("invalid client port %d", c.Client.Port)
	}
	if c.Client.MaxEpisodes < 0 || c.Client.MaxSteps < 0 {
		return errors.New("max_episodes and max_steps cannot be negative")
	}
	if _, err := c.DriverConfig(); err != nil {
		return err
	}
	switch c.Input.Source {
	case InputKeyboard, InputNone:
	case InputSerial:
		if c.Input.SerialPort == "" {
			return errors.New("serial input needs serial_port")
		}
	default:
		return errors.Errorf("unknown input source %q", c.Input.Source)
	}
	if c.Telemetry.UDP != nil && c.Telemetry.UDP.Server == "" {
		return errors.New("udp telemetry needs a server")
	}
	return nil
}

func (c *Config) Level() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

func (c *Config) DriverConfig() (scrdriver.DriverConfig, error) {
	mode, err := scrdriver.ParseMode(c.Driver.Mode)
	if err != nil {
		return scrdriver.DriverConfig{}, err
	}
	stage := scrdriver.ParseStage(c.Driver.Stage)
	if !finite(c.Driver.SteerLock) || c.Driver.SteerLock <= 0 {
		return scrdriver.DriverConfig{}, errors.Errorf("steer_lock must be positive, got %v", c.Driver.SteerLock)
	}
	for name, v := range map[string]float64{
		"max_speed":       c.Driver.MaxSpeed,
		"manual_throttle": c.Driver.ManualThrottle,
		"manual_steer":    c.Driver.ManualSteer,
		"manual_brake":    c.Driver.ManualBrake,
	} {
		if !finite(v) {
			return scrdriver.DriverConfig{}, errors.Errorf("%s must be a finite number, got %v", name, v)
		}
	}
	return scrdriver.DriverConfig{
		Mode:           mode,
		Stage:          stage,
		SteerLock:      c.Driver.SteerLock,
		MaxSpeed:       c.Driver.MaxSpeed,
		ManualThrottle: c.Driver.ManualThrottle,
		ManualSteer:    c.Driver.ManualSteer,
		ManualBrake:    c.Driver.ManualBrake,
	}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (c *Config) Hold() time.Duration {
	return time.Duration(c.Input.HoldMS) * time.Millisecond
}
