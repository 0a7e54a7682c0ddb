// Package simbus is an in-memory bus with a fixed set of devices. It records
// every transaction so callers can check what was put on the wire.
package simbus

import (
	"errors"

	"i2c-scan/bus"
)

var ErrArbitrationLost = errors.New("arbitration lost")

type Transaction struct {
	Addr  uint16
	Write []byte
	Read  int
}

type Bus struct {
	devices map[bus.Address]bool
	failing map[bus.Address]bool
	failAll bool
	log     []Transaction
}

func New(devices ...bus.Address) *Bus {
	b := &Bus{
		devices: make(map[bus.Address]bool),
		failing: make(map[bus.Address]bool),
	}
	for _, d := range devices {
		b.devices[d] = true
	}
	return b
}

// Attach adds devices to the bus.
func (b *Bus) Attach(addrs ...bus.Address) {
	for _, a := range addrs {
		b.devices[a] = true
	}
}

// Detach removes devices from the bus.
func (b *Bus) Detach(addrs ...bus.Address) {
	for _, a := range addrs {
		delete(b.devices, a)
	}
}

// Fail makes every transaction to addrs end in a bus error.
func (b *Bus) Fail(addrs ...bus.Address) {
	for _, a := range addrs {
		b.failing[a] = true
	}
}

// FailAll simulates a stuck bus.
func (b *Bus) FailAll() {
	b.failAll = true
}

func (b *Bus) Tx(addr uint16, w, r []byte) error {
	b.log = append(b.log, Transaction{
		Addr:  addr,
		Write: append([]byte(nil), w...),
		Read:  len(r),
	})

	if addr > uint16(bus.MaxAddress) {
		return &bus.StatusError{Addr: bus.Address(addr), Status: bus.StatusOther}
	}
	a := bus.Address(addr)
	if b.failAll || b.failing[a] {
		return &bus.StatusError{Addr: a, Status: bus.StatusOther, Err: ErrArbitrationLost}
	}
	if !b.devices[a] {
		return &bus.StatusError{Addr: a, Status: bus.StatusNackAddress}
	}
	for i := range r {
		r[i] = 0
	}
	return nil
}

// Transactions returns the transactions issued so far, oldest first.
func (b *Bus) Transactions() []Transaction {
	return append([]Transaction(nil), b.log...)
}

// Probed lists the addresses of all transactions issued so far, in order.
func (b *Bus) Probed() []bus.Address {
	out := make([]bus.Address, 0, len(b.log))
	for _, t := range b.log {
		out = append(out, bus.Address(t.Addr))
	}
	return out
}

