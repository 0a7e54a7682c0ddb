// Package protocol reads back the scan tables a board prints on its console.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"i2c-scan/bus"
	"i2c-scan/table"
)

const (
	ScanLine      = "Scanning ..."
	channelPrefix = "Channel "
	labelWidth    = 4
)

var ErrNotRow = errors.New("not a table row")

type Report struct {
	Channel int
	Found   []bus.Address
}

func (r Report) String() string {
	var sb strings.Builder
	if r.Channel >= 0 {
		sb.WriteString("ch" + strconv.Itoa(r.Channel) + ":")
	}
	if len(r.Found) == 0 {
		sb.WriteString(" none")
	}
	for _, a := range r.Found {
		sb.WriteByte(' ')
		sb.WriteString(table.ByteToHex(byte(a)).String())
	}
	return strings.TrimSpace(sb.String())
}

// ParseRow decodes one data row. It returns the row's base address and the
// addresses printed in it. Trailing blanks may be missing.
func ParseRow(line string) (bus.Address, []bus.Address, error) {
	line = strings.TrimRight(line, "\r\n")
	if len(line) < labelWidth {
		return 0, nil, ErrNotRow
	}
	base, err := table.ParseHex(line[:labelWidth])
	if err != nil || base&0x0F != 0 || base > byte(bus.MaxAddress) {
		return 0, nil, ErrNotRow
	}

	cells := line[labelWidth:]
	if len(cells) > table.Columns*table.CellWidth {
		return 0, nil, ErrNotRow
	}

	var found []bus.Address
	for col := 0; col*table.CellWidth < len(cells); col++ {
		end := (col + 1) * table.CellWidth
		if end > len(cells) {
			end = len(cells)
		}
		cell := strings.TrimSpace(cells[col*table.CellWidth : end])
		switch {
		case cell == "", cell == "....":
		case len(cell) == 4:
			a, err := table.ParseHex(cell)
			if err != nil {
				return 0, nil, fmt.Errorf("row 0x%02X column %d: %w", base, col, err)
			}
			if a != base+byte(col) {
				return 0, nil, fmt.Errorf("row 0x%02X column %d holds 0x%02X", base, col, a)
			}
			found = append(found, bus.Address(a))
		default:
			return 0, nil, ErrNotRow
		}
	}
	return bus.Address(base), found, nil
}

func isHeader(line string) bool {
	return strings.HasPrefix(line, "    ") && strings.TrimSpace(line) == strings.TrimSpace(table.Header())
}

// Decoder follows console output line by line.
type Decoder struct {
	channel int
	nextRow int
	found   []bus.Address
}

func NewDecoder() *Decoder {
	return &Decoder{
		channel: -1,
		nextRow: -1,
	}
}

// Feed consumes one console line. When the line completes a table the
// decoded report is returned with ok set.
func (d *Decoder) Feed(line string) (report Report, ok bool) {
	line = strings.TrimRight(line, "\r\n")

	switch {
	case strings.TrimSpace(line) == ScanLine:
		d.channel = -1
		d.nextRow = -1
		return Report{}, false
	case strings.HasPrefix(line, channelPrefix):
		if ch, err := strconv.Atoi(strings.TrimSpace(line[len(channelPrefix):])); err == nil {
			d.channel = ch
		}
		d.nextRow = -1
		return Report{}, false
	case isHeader(line):
		d.nextRow = 0
		d.found = nil
		return Report{}, false
	}

	if d.nextRow < 0 {
		return Report{}, false
	}

	base, found, err := ParseRow(line)
	if err != nil || int(base) != d.nextRow*table.Columns {
		// garbage in the middle of a table, wait for the next header
		d.nextRow = -1
		return Report{}, false
	}
	d.found = append(d.found, found...)
	d.nextRow++

	if d.nextRow < table.Rows {
		return Report{}, false
	}
	d.nextRow = -1
	return Report{Channel: d.channel, Found: d.found}, true
}
