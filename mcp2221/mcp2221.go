// Package mcp2221 talks I2C through a Microchip MCP2221A USB-HID bridge.
//
// Every command and response is a 64-byte HID report. Datasheet:
// http://ww1.microchip.com/downloads/en/devicedoc/20005565b.pdf
package mcp2221

import (
	"errors"
	"fmt"
	"time"

	"github.com/karalabe/usb"

	"i2c-scan/bus"
)

const (
	VID = 0x04D8
	PID = 0x00DD

	reportSize = 64
	chunkSize  = 60
	maxLength  = 0xFFFF
)

const (
	cmdStatus          byte = 0x10
	cmdI2CWrite        byte = 0x90
	cmdI2CWriteNoStop  byte = 0x94
	cmdI2CRead         byte = 0x91
	cmdI2CReadRepStart byte = 0x93
	cmdI2CReadGetData  byte = 0x40
	cancelTransfer     byte = 0x10
	readDataError      byte = 0x7F
)

const (
	defaultRetries    = 50
	defaultRetryPause = 300 * time.Microsecond
)

// I2C engine states reported in byte 8 of the status response.
const (
	stateIdle            byte = 0x00
	stateStartTimeout    byte = 0x12
	stateRepStartTimeout byte = 0x17
	stateAddrTimeout     byte = 0x23
	stateAddrNACK        byte = 0x25
	stateWriteTimeout    byte = 0x44
	stateWritingNoStop   byte = 0x45
	stateReadTimeout     byte = 0x52
	stateStopTimeout     byte = 0x62
	stateReadError       byte = 0x7F
)

var (
	ErrNoDevice   = errors.New("no MCP2221A attached")
	ErrBadReply   = errors.New("unexpected reply")
	ErrTooManyTry = errors.New("too many retries")
)

// HID is the report pipe to the chip. usb.Device satisfies it.
type HID interface {
	Write(b []byte) (int, error)
	Read(b []byte) (int, error)
	Close() error
}

type Bridge struct {
	dev     HID
	retries int
	pause   time.Duration
}

// Open claims the index-th attached MCP2221A.
func Open(index int) (*Bridge, error) {
	infos, err := usb.EnumerateHid(VID, PID)
	if err != nil {
		return nil, fmt.Errorf("enumerating HID devices: %w", err)
	}
	if index < 0 || index >= len(infos) {
		return nil, fmt.Errorf("%w at index %d (found %d)", ErrNoDevice, index, len(infos))
	}
	dev, err := infos[index].Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", infos[index].Path, err)
	}
	return New(dev), nil
}

func New(dev HID) *Bridge {
	return &Bridge{
		dev:     dev,
		retries: defaultRetries,
		pause:   defaultRetryPause,
	}
}

func (b *Bridge) Close() error {
	return b.dev.Close()
}

// Tx writes w then reads r with a repeated start in between. The chip
// cannot put a zero-length write on the bus, so a probe (no w, no r) is sent
// as a single 0x00 byte.
func (b *Bridge) Tx(addr uint16, w, r []byte) error {
	a := bus.Address(addr)
	if addr > uint16(bus.MaxAddress) {
		return &bus.StatusError{Addr: a, Status: bus.StatusOther, Err: fmt.Errorf("address 0x%X is not 7-bit", addr)}
	}
	if len(w) > maxLength || len(r) > maxLength {
		return &bus.StatusError{Addr: a, Status: bus.StatusDataTooLong}
	}
	if len(w) == 0 && len(r) == 0 {
		w = []byte{0x00}
	}

	if len(w) > 0 {
		cmd := cmdI2CWrite
		if len(r) > 0 {
			cmd = cmdI2CWriteNoStop
		}
		if err := b.write(cmd, a, w); err != nil {
			return err
		}
	}
	if len(r) > 0 {
		cmd := cmdI2CRead
		if len(w) > 0 {
			cmd = cmdI2CReadRepStart
		}
		return b.read(cmd, a, r)
	}
	return nil
}

func (b *Bridge) send(cmd byte, msg []byte) ([]byte, error) {
	msg[0] = cmd
	if _, err := b.dev.Write(msg); err != nil {
		return nil, fmt.Errorf("write [cmd=0x%02X]: %w", cmd, err)
	}
	rsp := make([]byte, reportSize)
	n, err := b.dev.Read(rsp)
	if err != nil {
		return nil, fmt.Errorf("read [cmd=0x%02X]: %w", cmd, err)
	}
	if n < reportSize || rsp[0] != cmd {
		return nil, fmt.Errorf("read [cmd=0x%02X]: %w", cmd, ErrBadReply)
	}
	return rsp, nil
}

func (b *Bridge) state() (byte, error) {
	rsp, err := b.send(cmdStatus, make([]byte, reportSize))
	if err != nil {
		return 0, err
	}
	return rsp[8], nil
}

// cancel aborts whatever transfer the engine is still stuck in.
func (b *Bridge) cancel() error {
	msg := make([]byte, reportSize)
	msg[2] = cancelTransfer
	if _, err := b.send(cmdStatus, msg); err != nil {
		return err
	}
	time.Sleep(b.pause)
	return nil
}

func (b *Bridge) write(cmd byte, a bus.Address, w []byte) error {
	st, err := b.state()
	if err != nil {
		return transportError(a, err)
	}
	if st != stateIdle {
		if err := b.cancel(); err != nil {
			return transportError(a, err)
		}
	}

	for pos := 0; pos < len(w); {
		n := len(w) - pos
		if n > chunkSize {
			n = chunkSize
		}
		msg := make([]byte, reportSize)
		msg[1] = byte(len(w))
		msg[2] = byte(len(w) >> 8)
		msg[3] = byte(a) << 1
		copy(msg[4:], w[pos:pos+n])

		if err := b.sendRetry(cmd, a, msg); err != nil {
			return err
		}
		pos += n
	}
	return b.wait(a, cmd == cmdI2CWriteNoStop)
}

// sendRetry repeats cmd while the engine reports busy.
func (b *Bridge) sendRetry(cmd byte, a bus.Address, msg []byte) error {
	for try := 0; try < b.retries; try++ {
		rsp, err := b.send(cmd, msg)
		if err != nil {
			return transportError(a, err)
		}
		if rsp[1] == 0 {
			return nil
		}
		if err := stateError(a, rsp[2]); err != nil {
			return err
		}
		time.Sleep(b.pause)
	}
	return transportError(a, ErrTooManyTry)
}

// wait polls the engine until the transfer is done or failed.
func (b *Bridge) wait(a bus.Address, noStop bool) error {
	for try := 0; try < b.retries; try++ {
		st, err := b.state()
		if err != nil {
			return transportError(a, err)
		}
		if st == stateIdle || (noStop && st == stateWritingNoStop) {
			return nil
		}
		if err := stateError(a, st); err != nil {
			return err
		}
		time.Sleep(b.pause)
	}
	return transportError(a, ErrTooManyTry)
}

func (b *Bridge) read(cmd byte, a bus.Address, r []byte) error {
	msg := make([]byte, reportSize)
	msg[1] = byte(len(r))
	msg[2] = byte(len(r) >> 8)
	msg[3] = byte(a)<<1 | 1
	if err := b.sendRetry(cmd, a, msg); err != nil {
		return err
	}

	for got, try := 0, 0; got < len(r); try++ {
		if try >= b.retries {
			return transportError(a, ErrTooManyTry)
		}
		rsp, err := b.send(cmdI2CReadGetData, make([]byte, reportSize))
		if err != nil {
			return transportError(a, err)
		}
		if rsp[1] != 0 {
			// the engine has given up on the transfer, ask it why
			st, err := b.state()
			if err != nil {
				return transportError(a, err)
			}
			if err := stateError(a, st); err != nil {
				return err
			}
			time.Sleep(b.pause)
			continue
		}
		n := int(rsp[3])
		if n == int(readDataError) {
			return &bus.StatusError{Addr: a, Status: bus.StatusOther, Err: ErrBadReply}
		}
		if n > chunkSize {
			n = chunkSize
		}
		got += copy(r[got:], rsp[4:4+n])
	}
	return nil
}

func stateError(a bus.Address, st byte) error {
	switch st {
	case stateAddrNACK:
		return &bus.StatusError{Addr: a, Status: bus.StatusNackAddress}
	case stateStartTimeout, stateRepStartTimeout, stateAddrTimeout,
		stateWriteTimeout, stateReadTimeout, stateStopTimeout:
		return &bus.StatusError{Addr: a, Status: bus.StatusOther, Err: fmt.Errorf("engine timeout (state 0x%02X)", st)}
	case stateReadError:
		return &bus.StatusError{Addr: a, Status: bus.StatusOther, Err: fmt.Errorf("engine read error")}
	}
	return nil
}

func transportError(a bus.Address, err error) error {
	return &bus.StatusError{Addr: a, Status: bus.StatusOther, Err: err}
}
