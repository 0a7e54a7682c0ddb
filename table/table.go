// Package table lays out a bus scan as the usual 16-column grid: a header
// line " 0x00" .. " 0x0F" and eight rows labelled 0x00 .. 0x70. Every cell is
// CellWidth characters wide. Reserved addresses are blank, addresses that did
// not acknowledge are " ....", devices show their own address.
package table

import (
	"fmt"
	"io"
	"strings"

	"i2c-scan/bus"
)

const (
	Rows      = 8
	Columns   = 16
	CellWidth = 5

	cornerText     = "    "
	reservedText   = "     "
	noResponseText = " ...."
)

// Range is the inclusive span of addresses that may be probed.
type Range struct {
	Min bus.Address
	Max bus.Address
}

var DefaultRange = Range{Min: bus.FirstUsable, Max: bus.LastUsable}

func (r Range) Contains(a bus.Address) bool {
	return a >= r.Min && a <= r.Max
}

func (r Range) Validate() error {
	if r.Max > bus.MaxAddress {
		return fmt.Errorf("address range max 0x%02X exceeds 0x%02X", uint8(r.Max), uint8(bus.MaxAddress))
	}
	if r.Min > r.Max {
		return fmt.Errorf("address range min 0x%02X above max 0x%02X", uint8(r.Min), uint8(r.Max))
	}
	return nil
}

type Cell uint8

const (
	CellReserved Cell = iota
	CellNoResponse
	CellFound
)

// Prober is what a sweep needs from the bus. *bus.Prober satisfies it.
type Prober interface {
	Probe(addr bus.Address) bus.Outcome
}

// Table is the result of one sweep over all 128 addresses.
type Table struct {
	cells [Rows * Columns]Cell
}

// Sweep probes every address of rng in ascending order. Addresses outside
// rng are never put on the bus.
func Sweep(p Prober, rng Range) Table {
	var t Table
	for a := bus.MinAddress; a <= bus.MaxAddress; a++ {
		t.cells[a] = probeCell(p, rng, a)
	}
	return t
}

func probeCell(p Prober, rng Range, a bus.Address) Cell {
	if !rng.Contains(a) {
		return CellReserved
	}
	if p.Probe(a) == bus.Acknowledged {
		return CellFound
	}
	// NACK and transport errors look the same on the console.
	return CellNoResponse
}

func (t *Table) Cell(a bus.Address) Cell {
	return t.cells[a&0x7F]
}

// Found lists the acknowledged addresses in ascending order.
func (t Table) Found() []bus.Address {
	var found []bus.Address
	for a, c := range t.cells {
		if c == CellFound {
			found = append(found, bus.Address(a))
		}
	}
	return found
}

// Header returns the column label line.
func Header() string {
	var sb strings.Builder
	sb.Grow(len(cornerText) + Columns*CellWidth)
	sb.WriteString(cornerText)
	for c := 0; c < Columns; c++ {
		sb.WriteByte(' ')
		h := ByteToHex(byte(c))
		sb.Write(h[:])
	}
	return sb.String()
}

// Row returns data row r (0..7) including its "0xR0" label.
func (t Table) Row(r int) string {
	var sb strings.Builder
	sb.Grow(len(cornerText) + Columns*CellWidth)
	label := ByteToHex(byte(r * Columns))
	sb.Write(label[:])
	for c := 0; c < Columns; c++ {
		a := bus.Address(r*Columns + c)
		writeCell(&sb, a, t.cells[a])
	}
	return sb.String()
}

func writeCell(sb *strings.Builder, a bus.Address, c Cell) {
	switch c {
	case CellFound:
		sb.WriteByte(' ')
		h := ByteToHex(byte(a))
		sb.Write(h[:])
	case CellNoResponse:
		sb.WriteString(noResponseText)
	default:
		sb.WriteString(reservedText)
	}
}

// WriteTo writes the header and the eight data rows, one per line.
func (t Table) WriteTo(w io.Writer) (int64, error) {
	var total int64
	n, err := io.WriteString(w, Header()+"\n")
	total += int64(n)
	if err != nil {
		return total, err
	}
	for r := 0; r < Rows; r++ {
		n, err := io.WriteString(w, t.Row(r)+"\n")
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (t Table) String() string {
	var sb strings.Builder
	t.WriteTo(&sb)
	return sb.String()
}
