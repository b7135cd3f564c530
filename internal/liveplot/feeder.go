package liveplot

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/banshee-data/lidar-tools/internal/imu"
	"github.com/banshee-data/lidar-tools/internal/monitoring"
	"github.com/banshee-data/lidar-tools/internal/timeutil"
)

// DefaultBatchSize is the number of lines consumed between snapshots.
const DefaultBatchSize = 50

// Feeder is the producer side of the plotter: it parses input lines into a
// Window and publishes a Snapshot after every batch.
type Feeder struct {
	window    *imu.Window
	batchSize int
	echo      io.Writer
	clock     timeutil.Clock

	lines  uint64
	seq    uint64
	latest atomic.Pointer[Snapshot]
}

// FeederOption configures a Feeder.
type FeederOption func(*Feeder)

// WithEcho copies every consumed line, newline terminated, to w.
func WithEcho(w io.Writer) FeederOption {
	return func(f *Feeder) { f.echo = w }
}

// WithBatchSize overrides DefaultBatchSize. Non-positive values are ignored.
func WithBatchSize(n int) FeederOption {
	return func(f *Feeder) {
		if n > 0 {
			f.batchSize = n
		}
	}
}

// WithClock sets the clock used to stamp snapshots.
func WithClock(c timeutil.Clock) FeederOption {
	return func(f *Feeder) { f.clock = c }
}

// NewFeeder creates a Feeder over w and publishes the initial (zero-filled)
// snapshot so the first redraw has something to show.
func NewFeeder(w *imu.Window, opts ...FeederOption) *Feeder {
	f := &Feeder{
		window:    w,
		batchSize: DefaultBatchSize,
		clock:     timeutil.RealClock{},
	}
	for _, o := range opts {
		o(f)
	}
	f.publish()
	return f
}

// Latest returns the most recently published snapshot.
func (f *Feeder) Latest() *Snapshot {
	return f.latest.Load()
}

func (f *Feeder) publish() {
	f.seq++
	f.latest.Store(&Snapshot{
		Seq:   f.seq,
		Lines: f.lines,
		Rows:  f.window.Snapshot(),
		Taken: f.clock.Now(),
	})
}

// Run consumes lines until the channel is closed or ctx is cancelled. A line
// that does not parse as a sample stops the feeder with an error; the
// partial batch consumed before it is still published.
func (f *Feeder) Run(ctx context.Context, lines <-chan string) error {
	pending := 0
	flush := func() {
		if pending > 0 {
			f.publish()
			pending = 0
		}
	}
	defer flush()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				monitoring.Logf("input closed after %d lines", f.lines)
				return nil
			}
			if f.echo != nil {
				if _, err := io.WriteString(f.echo, line+"\n"); err != nil {
					return fmt.Errorf("echo line: %w", err)
				}
			}

			s, err := imu.ParseSample(line)
			if err != nil {
				return fmt.Errorf("line %d %q: %w", f.lines+1, line, err)
			}
			f.window.Push(s)
			f.lines++
			pending++

			if pending >= f.batchSize {
				flush()
			}
		}
	}
}
