package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dikkadev/prettyslog"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"i2c-scan/config"
	"i2c-scan/monitor"
)

const retryPeriod = 2 * time.Second

// findPort returns the first USB serial port with the given vendor ID.
func findPort(vid string) (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("listing serial ports: %w", err)
	}
	for _, p := range ports {
		if p.IsUSB && strings.EqualFold(p.VID, vid) {
			return p.Name, nil
		}
	}
	return "", fmt.Errorf("no USB serial port with VID %s", vid)
}

func resolvePort(cfg config.Config) (string, error) {
	if cfg.PortName != "" {
		return cfg.PortName, nil
	}
	return findPort(cfg.PortVID)
}

// follow opens the port and feeds it to m until the port fails or ctx is done.
func follow(ctx context.Context, m *monitor.Monitor, name string, baud int) error {
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return fmt.Errorf("opening %s: %w", name, err)
	}
	slog.Info("serial port opened", "port", name, "baudRate", baud)

	stop := context.AfterFunc(ctx, func() { port.Close() })
	defer stop()
	defer port.Close()

	err = m.Run(ctx, port)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		err = errors.New("port closed")
	}
	return err
}

func main() {
	logger := slog.New(prettyslog.NewPrettyslogHandler("scanmon",
		prettyslog.WithLevel(slog.LevelDebug),
		prettyslog.WithWriter(os.Stderr),
	))
	slog.SetDefault(logger)

	configFile := flag.String("config", "config.yaml", "Path to the config file")
	portName := flag.String("port", "", "Serial port name (e.g., /dev/ttyACM0 or COM3)")
	baudRate := flag.Int("baud", 0, "Serial baud rate")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Error("error loading config file", "err", err)
			os.Exit(1)
		}
		slog.Warn("config file not found, using defaults", "path", *configFile)
	}
	if *portName != "" {
		cfg.PortName = *portName
	}
	if *baudRate > 0 {
		cfg.BaudRate = *baudRate
	}

	if cfg.PortName == "" && cfg.PortVID == "" {
		slog.Error("no serial port specified. use the -port flag or set portName/portVID in the config file")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	m := monitor.New(logger, os.Stdout)

	slog.Info("monitor is running. press Ctrl+C to exit")
	for {
		name, err := resolvePort(cfg)
		if err == nil {
			err = follow(ctx, m, name, cfg.BaudRate)
		}
		if ctx.Err() != nil {
			slog.Info("interrupt signal received. monitor stopped")
			return
		}
		slog.Warn("serial port unavailable, retrying", "err", err, "in", retryPeriod)

		select {
		case <-time.After(retryPeriod):
		case <-ctx.Done():
			slog.Info("interrupt signal received. monitor stopped")
			return
		}
	}
}
