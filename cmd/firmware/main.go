//go:build tinygo

package main

import (
	"context"
	"machine"
	"time"

	"i2c-scan/multiplexer"
	"i2c-scan/scanner"
	screenlib "i2c-scan/screen"
)

// Set with -ldflags "-X main.version=... -X main.withScreen=1 -X main.muxChannels=01234".
var (
	appName     = "I2C Scanner"
	version     = ""
	withScreen  = ""
	muxChannels = ""
)

// machineBus sends probes as one 0x00 byte; not every TinyGo I2C driver
// accepts an empty write.
type machineBus struct {
	i2c *machine.I2C
}

func (b machineBus) Tx(addr uint16, w, r []byte) error {
	if len(w) == 0 && len(r) == 0 {
		w = []byte{0x00}
	}
	return b.i2c.Tx(addr, w, r)
}

func main() {
	time.Sleep(time.Second * 2)

	// Led off
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	led.Low()

	i2c := machine.I2C0
	err := i2c.Configure(machine.I2CConfig{
		SDA: machine.GPIO0,
		SCL: machine.GPIO1,
	})
	if err != nil {
		println("Failed to configure I2C bus")
		return
	}

	banner := appName
	if version != "" {
		banner += "\n" + version
	}
	opts := []scanner.Option{scanner.WithBanner(banner)}

	if withScreen != "" {
		screen := screenlib.NewScreen(i2c)
		opts = append(opts, scanner.WithReport(screen.Show))
	}

	if muxChannels != "" {
		var channels []uint8
		for _, c := range muxChannels {
			if c >= '0' && c < '0'+multiplexer.Channels {
				channels = append(channels, uint8(c-'0'))
			}
		}
		// no digits means every channel
		mux := multiplexer.NewMultiplexer(machineBus{i2c}, multiplexer.DefaultAddress)
		opts = append(opts, scanner.WithMultiplexer(mux, channels...))
	}

	s := scanner.New(machineBus{i2c}, machine.Serial, opts...)
	for {
		if err := s.Run(context.Background()); err != nil {
			println("scanner stopped:", err.Error())
		}
		time.Sleep(s.Interval())
	}
}
