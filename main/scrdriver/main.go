package main

import (
	"context"
	"flag"
	"github.com/jd3nn1s/scrdriver"
	"github.com/jd3nn1s/scrdriver/config"
	"github.com/jd3nn1s/scrdriver/input"
	"github.com/jd3nn1s/scrdriver/simclient"
	"github.com/jd3nn1s/scrdriver/telemetry"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"
)

var configFile = flag.String("config", "scrdriver.toml", "configuration file")
var testMode = flag.Bool("testmode", false, "drive against a built-in fake race server")
var printTelemetry = flag.Bool("print-telemetry", false, "print telemetry to stdout")
var mode = flag.String("mode", "", "override the driver mode, manual or autonomous")

func main() {
	log.SetLevel(log.InfoLevel)
	flag.Parse()

	if err := run(); err != nil {
		log.Fatal("driver stopped: ", err)
	}
}

func run() error {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return err
	}
	if *mode != "" {
		cfg.Driver.Mode = *mode
	}
	log.SetLevel(cfg.Level())

	driverCfg, err := cfg.DriverConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *testMode {
		addr, err := startFakeServer(ctx)
		if err != nil {
			return err
		}
		cfg.Client.Host = addr.IP.String()
		cfg.Client.Port = addr.Port
	}

	sink, err := newSink(ctx, cfg)
	if err != nil {
		return err
	}

	source, restore := newInput(ctx, cancel, cfg)
	defer restore()

	driver := scrdriver.NewDriver(driverCfg, source, sink)
	client := simclient.NewClient(cfg.Client, driver)
	err = client.Run(ctx)
	if err != nil && ctx.Err() != nil {
		log.Info("stopped")
		return nil
	}
	return err
}

func startFakeServer(ctx context.Context) (*net.UDPAddr, error) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		return nil, errors.Wrap(err, "unable to start test mode server")
	}
	server := &simclient.FakeServer{
		Interval: 20 * time.Millisecond,
	}
	go func() {
		if err := server.Serve(ctx, pc); err != nil && ctx.Err() == nil {
			log.WithField("err", err).Error("test mode server stopped")
		}
	}()
	log.WithField("addr", pc.LocalAddr()).Info("test mode enabled")
	return pc.LocalAddr().(*net.UDPAddr), nil
}

func newSink(ctx context.Context, cfg *config.Config) (scrdriver.TelemetrySink, error) {
	sinks := telemetry.Multi{}
	fail := func(err error) (scrdriver.TelemetrySink, error) {
		sinks.Close()
		return nil, err
	}

	if cfg.Telemetry.CSV != "" {
		c, err := telemetry.NewCSVFile(cfg.Telemetry.CSV)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, c)
	}
	if cfg.Telemetry.SQLite != "" {
		s, err := telemetry.NewSQLite(cfg.Telemetry.SQLite)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}
	if cfg.Telemetry.UDP != nil {
		fwder, err := telemetry.NewUDPForwarder(*cfg.Telemetry.UDP)
		if err != nil {
			return fail(err)
		}
		go fwder.Start(ctx)
		sinks = append(sinks, fwder)
	}
	if cfg.Telemetry.Summary {
		sinks = append(sinks, telemetry.NewSummary())
	}
	if *printTelemetry {
		sinks = append(sinks, telemetry.NewPrinter(os.Stdout))
	}
	return sinks, nil
}

func newInput(ctx context.Context, cancel context.CancelFunc, cfg *config.Config) (scrdriver.InputSource, func()) {
	switch cfg.Input.Source {
	case config.InputSerial:
		s := input.NewSerial(cfg.Input.SerialPort, cfg.Input.BaudRate)
		go s.Run(ctx)
		return s, func() {}
	case config.InputKeyboard:
		restore, err := input.RawTerminal(int(os.Stdin.Fd()))
		if err != nil {
			log.WithField("err", err).Warn("keyboard input unavailable")
			return input.Fixed(scrdriver.IntentNone), func() {}
		}
		formatter := log.StandardLogger().Formatter
		log.SetFormatter(&input.RawFormatter{Formatter: formatter})
		kb := input.NewKeyboard(cfg.Hold())
		go func() {
			if err := kb.Run(ctx, os.Stdin); err != nil && ctx.Err() == nil {
				log.WithField("err", err).Info("keyboard closed")
				cancel()
			}
		}()
		log.Info("keyboard input: w accelerate, s brake, a left, d right, ctrl-c to quit")
		return kb, func() {
			log.SetFormatter(formatter)
			restore()
		}
	}
	return input.Fixed(scrdriver.IntentNone), func() {}
}
