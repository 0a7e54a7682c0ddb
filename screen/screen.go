//go:build tinygo

package screen

import (
	"image/color"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/sh1106"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/freemono"

	"i2c-scan/scanner"
)

const ADDR = 0x3C

const (
	lineHeight = 20
	baseline   = 14
)

var onColor = color.RGBA{255, 255, 255, 255}

// Screen mirrors the latest sweep on an SH1106 OLED sitting on the scanned
// bus.
type Screen struct {
	display sh1106.Device
}

func NewScreen(bus drivers.I2C) *Screen {
	s := &Screen{
		display: sh1106.NewI2C(bus),
	}
	s.display.Configure(sh1106.Config{
		Width:    128,
		Height:   64,
		VccState: sh1106.SWITCHCAPVCC,
		Address:  ADDR,
	})
	s.Clear()
	return s
}

func (s *Screen) Clear() {
	s.display.ClearBuffer()
	s.display.Display()
}

// Show draws a report. It is meant to be passed to scanner.WithReport.
func (s *Screen) Show(r scanner.Report) {
	s.display.ClearBuffer()
	for i, line := range Lines(r.Channel, r.Table.Found()) {
		tinyfont.WriteLine(&s.display, &freemono.Regular9pt7b, 0, int16(baseline+i*lineHeight), line, onColor)
	}
	s.display.Display()
}
