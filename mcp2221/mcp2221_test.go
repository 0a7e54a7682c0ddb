package mcp2221

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"i2c-scan/bus"
)

// fakeChip answers reports the way an MCP2221A with a few devices behind it
// would.
type fakeChip struct {
	devices  map[byte]bool
	state    byte
	readLeft int
	busyOnce bool
	failIO   bool
	sent     [][]byte
	reply    []byte
	closed   bool
}

func newFakeChip(devices ...byte) *fakeChip {
	f := &fakeChip{devices: make(map[byte]bool)}
	for _, d := range devices {
		f.devices[d] = true
	}
	return f
}

func (f *fakeChip) Write(b []byte) (int, error) {
	if f.failIO {
		return 0, errors.New("usb gone")
	}
	msg := append([]byte(nil), b...)
	f.sent = append(f.sent, msg)

	rsp := make([]byte, reportSize)
	rsp[0] = msg[0]
	switch msg[0] {
	case cmdStatus:
		if msg[2] == cancelTransfer {
			f.state = stateIdle
			rsp[2] = cancelTransfer
		}
		rsp[8] = f.state
	case cmdI2CWrite, cmdI2CWriteNoStop:
		if f.busyOnce {
			f.busyOnce = false
			rsp[1] = 0x01
			break
		}
		switch {
		case !f.devices[msg[3]>>1]:
			f.state = stateAddrNACK
		case msg[0] == cmdI2CWriteNoStop:
			f.state = stateWritingNoStop
		default:
			f.state = stateIdle
		}
	case cmdI2CRead, cmdI2CReadRepStart:
		if !f.devices[msg[3]>>1] {
			f.state = stateAddrNACK
			break
		}
		f.state = stateIdle
		f.readLeft = int(msg[1]) | int(msg[2])<<8
	case cmdI2CReadGetData:
		if f.state == stateAddrNACK {
			rsp[1] = 0x41
			break
		}
		n := f.readLeft
		if n > chunkSize {
			n = chunkSize
		}
		rsp[3] = byte(n)
		for i := 0; i < n; i++ {
			rsp[4+i] = 0xA0 + byte(i)
		}
		f.readLeft -= n
	}
	f.reply = rsp
	return len(b), nil
}

func (f *fakeChip) Read(b []byte) (int, error) {
	return copy(b, f.reply), nil
}

func (f *fakeChip) Close() error {
	f.closed = true
	return nil
}

func (f *fakeChip) commands() []byte {
	var cmds []byte
	for _, m := range f.sent {
		cmds = append(cmds, m[0])
	}
	return cmds
}

func newBridge(chip *fakeChip) *Bridge {
	b := New(chip)
	b.pause = 0
	return b
}

func TestProbePresent(t *testing.T) {
	chip := newFakeChip(0x3C)
	b := newBridge(chip)

	require.NoError(t, b.Tx(0x3C, nil, nil))
	assert.Equal(t, []byte{cmdStatus, cmdI2CWrite, cmdStatus}, chip.commands())

	write := chip.sent[1]
	assert.Equal(t, byte(1), write[1])
	assert.Equal(t, byte(0x3C<<1), write[3])
	assert.Equal(t, byte(0x00), write[4])
}

func TestProbeAbsentThenCancel(t *testing.T) {
	chip := newFakeChip(0x3C)
	b := newBridge(chip)

	err := b.Tx(0x3D, nil, nil)
	assert.Equal(t, bus.StatusNackAddress, bus.Classify(err))
	assert.Equal(t, bus.NotAcknowledged, bus.NewProber(b).Probe(0x3D))

	chip.sent = nil
	require.NoError(t, b.Tx(0x3C, nil, nil))
	require.GreaterOrEqual(t, len(chip.sent), 2)
	assert.Equal(t, cmdStatus, chip.sent[1][0])
	assert.Equal(t, cancelTransfer, chip.sent[1][2])
}

func TestWriteThenRead(t *testing.T) {
	chip := newFakeChip(0x68)
	b := newBridge(chip)

	buf := make([]byte, 3)
	require.NoError(t, b.Tx(0x68, []byte{0x75}, buf))
	assert.Equal(t, []byte{0xA0, 0xA1, 0xA2}, buf)
	assert.Contains(t, chip.commands(), cmdI2CWriteNoStop)
	assert.Contains(t, chip.commands(), cmdI2CReadRepStart)
}

func TestReadAbsent(t *testing.T) {
	chip := newFakeChip()
	b := newBridge(chip)

	err := b.Tx(0x50, nil, make([]byte, 2))
	assert.Equal(t, bus.StatusNackAddress, bus.Classify(err))
}

func TestBusyRetry(t *testing.T) {
	chip := newFakeChip(0x20)
	chip.busyOnce = true
	b := newBridge(chip)

	require.NoError(t, b.Tx(0x20, []byte{1, 2}, nil))
}

func TestLongWriteIsChunked(t *testing.T) {
	chip := newFakeChip(0x50)
	b := newBridge(chip)

	require.NoError(t, b.Tx(0x50, make([]byte, 130), nil))
	writes := 0
	for _, m := range chip.sent {
		if m[0] == cmdI2CWrite {
			writes++
			assert.Equal(t, byte(130), m[1])
		}
	}
	assert.Equal(t, 3, writes)
}

func TestRejects(t *testing.T) {
	b := newBridge(newFakeChip())

	assert.Equal(t, bus.StatusOther, bus.Classify(b.Tx(0x80, nil, nil)))
	assert.Equal(t, bus.StatusDataTooLong, bus.Classify(b.Tx(0x10, make([]byte, maxLength+1), nil)))
}

func TestUSBFailure(t *testing.T) {
	chip := newFakeChip(0x3C)
	chip.failIO = true
	b := newBridge(chip)

	assert.Equal(t, bus.TransportError, bus.NewProber(b).Probe(0x3C))
	require.NoError(t, b.Close())
	assert.True(t, chip.closed)
}
