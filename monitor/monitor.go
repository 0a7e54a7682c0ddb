// Package monitor follows a board's scan output on a serial console and logs
// devices that show up or disappear between sweeps.
package monitor

import (
	"bufio"
	"context"
	"io"
	"log/slog"

	"i2c-scan/bus"
	"i2c-scan/protocol"
	"i2c-scan/table"
)

type Monitor struct {
	logger *slog.Logger
	echo   io.Writer
	dec    *protocol.Decoder
	last   map[int][]bus.Address

	// OnReport, if set, is called for every decoded table.
	OnReport func(protocol.Report)
}

func New(logger *slog.Logger, echo io.Writer) *Monitor {
	if echo == nil {
		echo = io.Discard
	}
	return &Monitor{
		logger: logger,
		echo:   echo,
		dec:    protocol.NewDecoder(),
		last:   make(map[int][]bus.Address),
	}
}

// Run reads r until EOF, a read error or ctx is done. ctx is checked between
// lines; close r to unblock a pending read.
func (m *Monitor) Run(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := sc.Text()
		if _, err := io.WriteString(m.echo, line+"\n"); err != nil {
			return err
		}
		if report, ok := m.dec.Feed(line); ok {
			m.handle(report)
		}
	}
	return sc.Err()
}

func (m *Monitor) handle(report protocol.Report) {
	prev, seen := m.last[report.Channel]
	m.last[report.Channel] = report.Found

	if !seen {
		m.logger.Info("first sweep decoded", "channel", report.Channel, "found", len(report.Found), "devices", report.String())
	} else {
		for _, a := range diff(report.Found, prev) {
			m.logger.Info("device appeared", "channel", report.Channel, "address", table.ByteToHex(byte(a)).String())
		}
		for _, a := range diff(prev, report.Found) {
			m.logger.Warn("device gone", "channel", report.Channel, "address", table.ByteToHex(byte(a)).String())
		}
	}

	if m.OnReport != nil {
		m.OnReport(report)
	}
}

// Current returns the devices of the latest sweep on channel (-1 without mux).
func (m *Monitor) Current(channel int) []bus.Address {
	return m.last[channel]
}

// diff returns the addresses in a that are missing from b.
func diff(a, b []bus.Address) []bus.Address {
	in := make(map[bus.Address]bool, len(b))
	for _, x := range b {
		in[x] = true
	}
	var out []bus.Address
	for _, x := range a {
		if !in[x] {
			out = append(out, x)
		}
	}
	return out
}
