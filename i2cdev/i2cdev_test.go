//go:build linux

package i2cdev

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
	"periph.io/x/conn/v3/physic"

	"i2c-scan/bus"
)

type op struct {
	addr uint16
	w    []byte
	r    int
}

// fakeDriver stands in for a periph sysfs bus.
type fakeDriver struct {
	ops    []op
	err    error
	speed  physic.Frequency
	closed bool
}

func (f *fakeDriver) String() string { return "I2C9" }

func (f *fakeDriver) SetSpeed(s physic.Frequency) error {
	f.speed = s
	return nil
}

func (f *fakeDriver) Tx(addr uint16, w, r []byte) error {
	f.ops = append(f.ops, op{addr: addr, w: append([]byte(nil), w...), r: len(r)})
	if f.err != nil {
		return f.err
	}
	for i := range r {
		r[i] = 0xA0 + byte(i)
	}
	return nil
}

func (f *fakeDriver) Close() error {
	f.closed = true
	return nil
}

func TestErrnoStatus(t *testing.T) {
	assert.Equal(t, bus.StatusNackAddress, errnoStatus(unix.ENXIO, false))
	assert.Equal(t, bus.StatusNackAddress, errnoStatus(unix.EREMOTEIO, false))
	assert.Equal(t, bus.StatusNackData, errnoStatus(unix.EREMOTEIO, true))
	assert.Equal(t, bus.StatusDataTooLong, errnoStatus(unix.EMSGSIZE, true))
	assert.Equal(t, bus.StatusOther, errnoStatus(unix.ETIMEDOUT, false))
	assert.Equal(t, bus.StatusOther, errnoStatus(unix.EAGAIN, false))
}

func TestErrnoStatusFromDriverText(t *testing.T) {
	assert.Equal(t, bus.StatusNackAddress, errnoStatus(fmt.Errorf("sysfs-i2c: %v", unix.ENXIO), false))
	assert.Equal(t, bus.StatusNackData, errnoStatus(fmt.Errorf("sysfs-i2c: %v", unix.EREMOTEIO), true))
	assert.Equal(t, bus.StatusNackAddress, errnoStatus(fmt.Errorf("sysfs-i2c: %w", unix.EREMOTEIO), false))
	assert.Equal(t, bus.StatusOther, errnoStatus(errors.New("sysfs-i2c: invalid address"), false))
}

func TestEmptyTransactionWritesOneByte(t *testing.T) {
	drv := &fakeDriver{}
	b := New(drv)

	require.NoError(t, b.Tx(0x3C, nil, nil))
	require.Len(t, drv.ops, 1)
	assert.Equal(t, uint16(0x3C), drv.ops[0].addr)
	assert.Equal(t, []byte{0x00}, drv.ops[0].w)
	assert.Equal(t, bus.Acknowledged, bus.NewProber(b).Probe(0x3C))
}

func TestEmptyTransactionNack(t *testing.T) {
	drv := &fakeDriver{err: fmt.Errorf("sysfs-i2c: %v", unix.EREMOTEIO)}
	b := New(drv)

	err := b.Tx(0x50, nil, nil)
	assert.Equal(t, bus.StatusNackAddress, bus.Classify(err))
	assert.Equal(t, bus.NotAcknowledged, bus.NewProber(b).Probe(0x50))
}

func TestWriteThenRead(t *testing.T) {
	drv := &fakeDriver{}
	b := New(drv)

	buf := make([]byte, 2)
	require.NoError(t, b.Tx(0x68, []byte{0x75}, buf))
	assert.Equal(t, []byte{0xA0, 0xA1}, buf)
	assert.Equal(t, []op{{addr: 0x68, w: []byte{0x75}, r: 2}}, drv.ops)
}

func TestTxRejectsBadRequests(t *testing.T) {
	drv := &fakeDriver{}
	b := New(drv)

	err := b.Tx(0x80, nil, nil)
	assert.Equal(t, bus.StatusOther, bus.Classify(err))

	err = b.Tx(0x20, make([]byte, maxMsgSize+1), nil)
	assert.Equal(t, bus.StatusDataTooLong, bus.Classify(err))
	assert.Empty(t, drv.ops)
}

func TestBusName(t *testing.T) {
	assert.Equal(t, "1", busName("/dev/i2c-1"))
	assert.Equal(t, "I2C1", busName("I2C1"))
	assert.Equal(t, "", busName(""))
}

func TestClose(t *testing.T) {
	drv := &fakeDriver{}
	require.NoError(t, New(drv).Close())
	assert.True(t, drv.closed)
}

func TestOpenMissingBus(t *testing.T) {
	_, err := Open("/dev/i2c-250", 0)
	assert.Error(t, err)
}
