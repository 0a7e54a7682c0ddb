//go:build linux

// Package i2cdev drives a Linux i2c-dev bus (/dev/i2c-N) through periph.io.
package i2cdev

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sys/unix"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"i2c-scan/bus"
)

// largest message the kernel accepts, from <linux/i2c-dev.h>
const maxMsgSize = 8192

type Bus struct {
	dev i2c.Bus
}

// Open loads the host drivers and opens the named bus. name is either a
// periph bus name ("1", "I2C1") or a device path ("/dev/i2c-1"). A positive
// khz sets the bus clock.
func Open(name string, khz int) (*Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("loading host drivers: %w", err)
	}
	dev, err := i2creg.Open(busName(name))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	if khz > 0 {
		if err := dev.SetSpeed(physic.Frequency(khz) * physic.KiloHertz); err != nil {
			dev.Close()
			return nil, fmt.Errorf("setting %s to %d kHz: %w", name, khz, err)
		}
	}
	return New(dev), nil
}

func New(dev i2c.Bus) *Bus {
	return &Bus{dev: dev}
}

func busName(name string) string {
	return strings.TrimPrefix(name, "/dev/i2c-")
}

func (b *Bus) Close() error {
	if c, ok := b.dev.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Tx runs w then r as one combined transaction with a repeated start. The
// sysfs driver drops a transaction with neither w nor r without touching the
// bus, so that case goes out as a single 0x00 byte.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	a := bus.Address(addr)
	if addr > uint16(bus.MaxAddress) {
		return &bus.StatusError{Addr: a, Status: bus.StatusOther, Err: fmt.Errorf("address 0x%X is not 7-bit", addr)}
	}
	if len(w) > maxMsgSize || len(r) > maxMsgSize {
		return &bus.StatusError{Addr: a, Status: bus.StatusDataTooLong}
	}

	wrote := len(w) > 0
	if !wrote && len(r) == 0 {
		w = []byte{0x00}
	}
	if err := b.dev.Tx(addr, w, r); err != nil {
		return &bus.StatusError{Addr: a, Status: errnoStatus(err, wrote), Err: err}
	}
	return nil
}

// periph reports ioctl failures as text, "sysfs-i2c: remote I/O error".
var knownErrnos = []unix.Errno{unix.ENXIO, unix.EREMOTEIO, unix.EMSGSIZE}

func driverErrno(err error) unix.Errno {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return errno
	}
	msg := err.Error()
	for _, e := range knownErrnos {
		if strings.Contains(msg, e.Error()) {
			return e
		}
	}
	return 0
}

// errnoStatus maps the errno conventions of Linux bus drivers
// (Documentation/i2c/fault-codes.rst) onto transaction status codes.
func errnoStatus(err error, wrote bool) bus.Status {
	switch driverErrno(err) {
	case unix.ENXIO:
		return bus.StatusNackAddress
	case unix.EREMOTEIO:
		// some adapters can't tell an address NACK from a data NACK
		if wrote {
			return bus.StatusNackData
		}
		return bus.StatusNackAddress
	case unix.EMSGSIZE:
		return bus.StatusDataTooLong
	default:
		return bus.StatusOther
	}
}
