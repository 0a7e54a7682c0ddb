// Package scanner repeats a bus sweep forever, printing one table per sweep.
package scanner

import (
	"context"
	"io"
	"strconv"
	"time"

	"i2c-scan/bus"
	"i2c-scan/multiplexer"
	"i2c-scan/table"
)

const DefaultInterval = 10 * time.Second

// Report is handed to the report callback after each table is printed.
// Channel is -1 when no multiplexer is in use.
type Report struct {
	Channel int
	Table   table.Table
}

type SleepFunc func(ctx context.Context, d time.Duration) error

type Option func(*Scanner)

func WithRange(r table.Range) Option {
	return func(s *Scanner) { s.rng = r }
}

func WithInterval(d time.Duration) Option {
	return func(s *Scanner) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithBanner sets text printed once before the first sweep.
func WithBanner(banner string) Option {
	return func(s *Scanner) { s.banner = banner }
}

// WithMultiplexer sweeps each of the given channels behind mux in turn, or
// all of them when none are given.
func WithMultiplexer(mux *multiplexer.Multiplexer, channels ...uint8) Option {
	return func(s *Scanner) {
		if len(channels) == 0 {
			channels = multiplexer.AllChannels()
		}
		s.mux = mux
		s.channels = channels
	}
}

func WithReport(fn func(Report)) Option {
	return func(s *Scanner) { s.report = fn }
}

func WithSleep(fn SleepFunc) Option {
	return func(s *Scanner) { s.sleep = fn }
}

type Scanner struct {
	renderer *table.Renderer
	out      io.Writer

	rng      table.Range
	interval time.Duration
	banner   string
	mux      *multiplexer.Multiplexer
	channels []uint8
	report   func(Report)
	sleep    SleepFunc
}

func New(t bus.Transport, out io.Writer, opts ...Option) *Scanner {
	s := &Scanner{
		out:      out,
		rng:      table.DefaultRange,
		interval: DefaultInterval,
		sleep:    sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.renderer = table.NewRenderer(bus.NewProber(t), s.rng)
	return s
}

func (s *Scanner) Interval() time.Duration {
	return s.interval
}

// Sweep prints one complete scan. Probe failures are part of the table; the
// returned error is a console write error or nothing.
func (s *Scanner) Sweep() error {
	if _, err := io.WriteString(s.out, "\nScanning ...\n"); err != nil {
		return err
	}

	if s.mux == nil {
		return s.sweepChannel(-1)
	}
	// A stuck mux is reported by the next Select.
	defer func() { _ = s.mux.Disable() }()

	for _, ch := range s.channels {
		if _, err := io.WriteString(s.out, "Channel "+strconv.Itoa(int(ch))+"\n"); err != nil {
			return err
		}
		if err := s.mux.Select(ch); err != nil {
			if _, err := io.WriteString(s.out, "select failed: "+err.Error()+"\n"); err != nil {
				return err
			}
			continue
		}
		if err := s.sweepChannel(int(ch)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scanner) sweepChannel(ch int) error {
	t, err := s.renderer.Render(s.out)
	if err != nil {
		return err
	}
	if s.report != nil {
		s.report(Report{Channel: ch, Table: t})
	}
	return nil
}

// Run prints the banner and then sweeps every interval until ctx is done.
// ctx is only looked at between sweeps, so a table is never cut short.
func (s *Scanner) Run(ctx context.Context) error {
	if s.banner != "" {
		if _, err := io.WriteString(s.out, "\n"+s.banner+"\n\n"); err != nil {
			return err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Sweep(); err != nil {
			return err
		}
		if err := s.sleep(ctx, s.interval); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
