package screen

import (
	"strconv"

	"i2c-scan/bus"
	"i2c-scan/table"
)

const (
	MaxLines     = 3
	perLine      = 2
	maxAddresses = (MaxLines - 1) * perLine
)

// Lines lays out a sweep result for the 128x64 panel: a title, then the
// found addresses two per line. Addresses that don't fit are counted on the
// last line.
func Lines(channel int, found []bus.Address) []string {
	title := strconv.Itoa(len(found)) + " found"
	if channel >= 0 {
		title = "ch" + strconv.Itoa(channel) + " " + strconv.Itoa(len(found)) + " dev"
	}
	lines := []string{title}
	if len(found) == 0 {
		return append(lines, "no devices")
	}

	shown := found
	if len(found) > maxAddresses {
		shown = found[:maxAddresses-1]
	}
	for i := 0; i < len(shown); i += perLine {
		line := table.ByteToHex(byte(shown[i])).String()
		if i+1 < len(shown) {
			line += " " + table.ByteToHex(byte(shown[i+1])).String()
		}
		lines = append(lines, line)
	}
	if len(shown) < len(found) {
		lines[len(lines)-1] += " +" + strconv.Itoa(len(found)-len(shown))
	}
	return lines
}
