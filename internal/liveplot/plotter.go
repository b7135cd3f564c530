package liveplot

import (
	"context"
	"time"

	"github.com/banshee-data/lidar-tools/internal/monitoring"
	"github.com/banshee-data/lidar-tools/internal/timeutil"
)

// DefaultInterval is the redraw period.
const DefaultInterval = 200 * time.Millisecond

// Renderer draws a snapshot somewhere.
type Renderer interface {
	Render(*Snapshot) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(*Snapshot) error

func (f RendererFunc) Render(s *Snapshot) error { return f(s) }

// SnapshotSource yields the latest published snapshot; nil before the first.
type SnapshotSource interface {
	Latest() *Snapshot
}

// Plotter is the consumer side: on every tick it redraws the latest snapshot
// if it changed since the previous redraw.
type Plotter struct {
	source    SnapshotSource
	renderers []Renderer
	interval  time.Duration
	clock     timeutil.Clock

	drawnSeq uint64
	drawn    bool
}

// NewPlotter creates a Plotter. A non-positive interval selects
// DefaultInterval; a nil clock selects the real clock.
func NewPlotter(source SnapshotSource, interval time.Duration, clock timeutil.Clock, renderers ...Renderer) *Plotter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Plotter{
		source:    source,
		renderers: renderers,
		interval:  interval,
		clock:     clock,
	}
}

// Run redraws on every tick until ctx is cancelled.
func (p *Plotter) Run(ctx context.Context) error {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			p.Redraw()
		}
	}
}

// Redraw renders the latest snapshot unless it was already drawn. It reports
// whether anything was rendered. Renderer errors are logged, not returned,
// so one failing output does not stop the others.
func (p *Plotter) Redraw() bool {
	snap := p.source.Latest()
	if snap == nil || (p.drawn && snap.Seq == p.drawnSeq) {
		return false
	}
	for _, r := range p.renderers {
		if err := r.Render(snap); err != nil {
			monitoring.Logf("render snapshot %d: %v", snap.Seq, err)
		}
	}
	p.drawnSeq = snap.Seq
	p.drawn = true
	return true
}
