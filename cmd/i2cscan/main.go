package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dikkadev/prettyslog"

	"i2c-scan/bus"
	"i2c-scan/config"
	"i2c-scan/mcp2221"
	"i2c-scan/multiplexer"
	"i2c-scan/protocol"
	"i2c-scan/scanner"
	"i2c-scan/simbus"
)

type transport interface {
	bus.Transport
	io.Closer
}

type simTransport struct {
	*simbus.Bus
}

func (simTransport) Close() error { return nil }

func openTransport(cfg config.Config) (transport, error) {
	switch cfg.Transport {
	case config.TransportSim:
		sim := simbus.New()
		for _, a := range cfg.Sim.Devices {
			sim.Attach(bus.Address(a))
		}
		for _, a := range cfg.Sim.Failing {
			sim.Fail(bus.Address(a))
		}
		return simTransport{sim}, nil
	case config.TransportMCP2221:
		return mcp2221.Open(cfg.HIDIndex)
	case config.TransportI2CDev:
		return openI2CDev(cfg.Device, cfg.BusKHz)
	}
	return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
}

func main() {
	logger := slog.New(prettyslog.NewPrettyslogHandler("i2cscan",
		prettyslog.WithLevel(slog.LevelDebug),
		prettyslog.WithWriter(os.Stderr),
	))
	slog.SetDefault(logger)

	configFile := flag.String("config", "config.yaml", "Path to the config file")
	transportName := flag.String("transport", "", "Bus transport: i2cdev, mcp2221 or sim")
	device := flag.String("device", "", "i2c-dev device path (e.g., /dev/i2c-1)")
	interval := flag.Duration("interval", 0, "Pause between sweeps")
	banner := flag.String("banner", "", "Text printed once before the first sweep")
	once := flag.Bool("once", false, "Run a single sweep and exit")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Error("error loading config file", "err", err)
			os.Exit(1)
		}
		slog.Warn("config file not found, using defaults", "path", *configFile)
	}

	if *transportName != "" {
		cfg.Transport = *transportName
	}
	if *device != "" {
		cfg.Device = *device
	}
	if *interval > 0 {
		cfg.Interval = *interval
	}
	if *banner != "" {
		cfg.Banner = *banner
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	t, err := openTransport(cfg)
	if err != nil {
		slog.Error("failed to open bus", "transport", cfg.Transport, "err", err)
		os.Exit(1)
	}
	defer t.Close()
	slog.Info("bus opened", "transport", cfg.Transport, "device", cfg.Device)

	opts := []scanner.Option{
		scanner.WithRange(cfg.Range()),
		scanner.WithInterval(cfg.Interval),
		scanner.WithBanner(cfg.Banner),
		scanner.WithReport(func(r scanner.Report) {
			report := protocol.Report{Channel: r.Channel, Found: r.Table.Found()}
			slog.Debug("sweep complete", "channel", r.Channel, "found", len(report.Found), "devices", report.String())
		}),
	}
	if cfg.Mux != nil {
		mux := multiplexer.NewMultiplexer(t, bus.Address(cfg.Mux.Address))
		opts = append(opts, scanner.WithMultiplexer(mux, cfg.Mux.Channels...))
		slog.Info("multiplexer enabled", "address", fmt.Sprintf("0x%02X", uint8(mux.Address())), "channels", cfg.Mux.Channels)
	}
	s := scanner.New(t, os.Stdout, opts...)

	if *once {
		if err := s.Sweep(); err != nil {
			slog.Error("sweep failed", "err", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("scanner is running. press Ctrl+C to exit", "interval", s.Interval())
	err = s.Run(ctx)
	if errors.Is(err, context.Canceled) {
		slog.Info("interrupt signal received. scanner stopped")
		return
	}
	slog.Error("scanner stopped", "err", err)
	os.Exit(1)
}
