package multiplexer

import (
	"fmt"

	"i2c-scan/bus"
)

const (
	DefaultAddress bus.Address = 0x70
	Channels                   = 8
)

// AllChannels lists every downstream channel in ascending order.
func AllChannels() []uint8 {
	chs := make([]uint8, Channels)
	for i := range chs {
		chs[i] = uint8(i)
	}
	return chs
}

// TCA9548A multiplexer
type Multiplexer struct {
	bus     bus.Transport
	addr    bus.Address
	Channel int
}

func NewMultiplexer(t bus.Transport, addr bus.Address) *Multiplexer {
	return &Multiplexer{
		bus:     t,
		addr:    addr,
		Channel: -1,
	}
}

func (m *Multiplexer) Address() bus.Address {
	return m.addr
}

// Select connects downstream channel 0..7 to the bus and disconnects the rest.
func (m *Multiplexer) Select(channel uint8) error {
	if channel >= Channels {
		return fmt.Errorf("mux channel %d out of range [0, %d]", channel, Channels-1)
	}
	if err := m.bus.Tx(uint16(m.addr), []byte{1 << channel}, nil); err != nil {
		m.Channel = -1
		return fmt.Errorf("select mux channel %d: %w", channel, err)
	}
	m.Channel = int(channel)
	return nil
}

// Disable disconnects all downstream channels.
func (m *Multiplexer) Disable() error {
	m.Channel = -1
	return m.bus.Tx(uint16(m.addr), []byte{0x00}, nil)
}
