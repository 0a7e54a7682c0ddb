package protocol

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"i2c-scan/bus"
	"i2c-scan/multiplexer"
	"i2c-scan/scanner"
	"i2c-scan/simbus"
	"i2c-scan/table"
)

func feedAll(d *Decoder, text string) []Report {
	var reports []Report
	for _, line := range strings.Split(text, "\n") {
		if r, ok := d.Feed(line); ok {
			reports = append(reports, r)
		}
	}
	return reports
}

func TestDecodeMatchesFound(t *testing.T) {
	devices := []bus.Address{0x08, 0x1D, 0x3C, 0x68, 0x77}
	tbl := table.Sweep(bus.NewProber(simbus.New(devices...)), table.DefaultRange)

	reports := feedAll(NewDecoder(), "\nScanning ...\n"+tbl.String())
	require.Len(t, reports, 1)
	assert.Equal(t, -1, reports[0].Channel)
	assert.Equal(t, tbl.Found(), reports[0].Found)
}

func TestDecodeScannerOutputWithChannels(t *testing.T) {
	sim := simbus.New(multiplexer.DefaultAddress, 0x29)
	var out bytes.Buffer
	s := scanner.New(sim, &out, scanner.WithMultiplexer(multiplexer.NewMultiplexer(sim, multiplexer.DefaultAddress), 4, 5))
	require.NoError(t, s.Sweep())
	require.NoError(t, s.Sweep())

	text := strings.ReplaceAll(out.String(), "\n", "\r\n")
	reports := feedAll(NewDecoder(), text)
	require.Len(t, reports, 4)
	for i, r := range reports {
		assert.Equal(t, 4+i%2, r.Channel)
		assert.Equal(t, []bus.Address{0x29, 0x70}, r.Found)
	}
}

func TestDecodeEmptyBus(t *testing.T) {
	tbl := table.Sweep(bus.NewProber(simbus.New()), table.DefaultRange)
	reports := feedAll(NewDecoder(), tbl.String())
	require.Len(t, reports, 1)
	assert.Empty(t, reports[0].Found)
	assert.Equal(t, "none", reports[0].String())
}

func TestDecodeDropsBrokenTable(t *testing.T) {
	tbl := table.Sweep(bus.NewProber(simbus.New(0x3C)), table.DefaultRange)
	lines := strings.Split(tbl.String(), "\n")
	broken := append(append([]string{}, lines[:4]...), "reset!")
	broken = append(broken, lines[4:]...)

	d := NewDecoder()
	assert.Empty(t, feedAll(d, strings.Join(broken, "\n")))
	assert.Len(t, feedAll(d, tbl.String()), 1)
}

func TestParseRow(t *testing.T) {
	tbl := table.Sweep(bus.NewProber(simbus.New(0x3C, 0x3F)), table.DefaultRange)

	base, found, err := ParseRow(tbl.Row(3))
	require.NoError(t, err)
	assert.Equal(t, bus.Address(0x30), base)
	assert.Equal(t, []bus.Address{0x3C, 0x3F}, found)

	base, found, err = ParseRow(strings.TrimRight(tbl.Row(7), " "))
	require.NoError(t, err)
	assert.Equal(t, bus.Address(0x70), base)
	assert.Empty(t, found)
}

func TestParseRowRejects(t *testing.T) {
	for _, line := range []string{"", "Scanning ...", table.Header(), "0x31 ....", "0x30 0x3C"} {
		_, _, err := ParseRow(line)
		assert.Error(t, err, "%q", line)
	}
}

func TestReportString(t *testing.T) {
	assert.Equal(t, "0x3C 0x68", Report{Channel: -1, Found: []bus.Address{0x3C, 0x68}}.String())
	assert.Equal(t, "ch2: 0x40", Report{Channel: 2, Found: []bus.Address{0x40}}.String())
}
