package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"i2c-scan/bus"
	"i2c-scan/multiplexer"
	"i2c-scan/table"
)

const (
	TransportI2CDev  = "i2cdev"
	TransportMCP2221 = "mcp2221"
	TransportSim     = "sim"
)

type MuxConfig struct {
	Address  uint8   `yaml:"address"`
	Channels []uint8 `yaml:"channels"`
}

type SimConfig struct {
	Devices []uint8 `yaml:"devices"`
	Failing []uint8 `yaml:"failing"`
}

type Config struct {
	Transport string `yaml:"transport"`
	Device    string `yaml:"device"`
	BusKHz    int    `yaml:"busKHz"`
	HIDIndex  int    `yaml:"hidIndex"`

	PortName string `yaml:"portName"`
	PortVID  string `yaml:"portVID"`
	BaudRate int    `yaml:"baudRate"`

	Interval   time.Duration `yaml:"interval"`
	AddressMin uint8         `yaml:"addressMin"`
	AddressMax uint8         `yaml:"addressMax"`
	Banner     string        `yaml:"banner"`

	Mux *MuxConfig `yaml:"mux"`
	Sim SimConfig  `yaml:"sim"`
}

func Default() Config {
	return Config{
		Transport:  TransportI2CDev,
		Device:     "/dev/i2c-1",
		BaudRate:   115200,
		Interval:   10 * time.Second,
		AddressMin: uint8(table.DefaultRange.Min),
		AddressMax: uint8(table.DefaultRange.Max),
	}
}

// Load reads a yaml file over the defaults. A missing file yields the
// defaults and an error wrapping os.ErrNotExist.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parsing config file: %w", err)
	}
	if cfg.Mux != nil {
		if cfg.Mux.Address == 0 {
			cfg.Mux.Address = uint8(multiplexer.DefaultAddress)
		}
		if len(cfg.Mux.Channels) == 0 {
			cfg.Mux.Channels = multiplexer.AllChannels()
		}
	}
	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

func (c Config) Range() table.Range {
	return table.Range{Min: bus.Address(c.AddressMin), Max: bus.Address(c.AddressMax)}
}

func (c Config) Validate() error {
	var errs []error

	switch c.Transport {
	case TransportI2CDev, TransportMCP2221, TransportSim:
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q", c.Transport))
	}
	if err := c.Range().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be positive, got %s", c.Interval))
	}
	if c.BusKHz < 0 {
		errs = append(errs, fmt.Errorf("bus speed must not be negative, got %d kHz", c.BusKHz))
	}
	if c.BaudRate <= 0 {
		errs = append(errs, fmt.Errorf("baud rate must be positive, got %d", c.BaudRate))
	}
	if c.Mux != nil {
		if c.Mux.Address > uint8(bus.MaxAddress) {
			errs = append(errs, fmt.Errorf("mux address 0x%02X is not a 7-bit address", c.Mux.Address))
		}
		for _, ch := range c.Mux.Channels {
			if ch >= multiplexer.Channels {
				errs = append(errs, fmt.Errorf("mux channel %d out of range", ch))
			}
		}
	}
	for _, a := range append(append([]uint8{}, c.Sim.Devices...), c.Sim.Failing...) {
		if a > uint8(bus.MaxAddress) {
			errs = append(errs, fmt.Errorf("sim address 0x%02X is not a 7-bit address", a))
		}
	}

	return errors.Join(errs...)
}
