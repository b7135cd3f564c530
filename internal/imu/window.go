package imu

import (
	"sync"

	"gonum.org/v1/gonum/floats"
)

// Window is a bounded FIFO of samples. It starts zero-filled to its capacity
// and evicts the oldest sample for every push beyond it, so Len never exceeds
// Cap and the contents are always the most recent samples in arrival order.
type Window struct {
	mu   sync.Mutex
	rows []Sample
	cap  int
}

// NewWindow creates a window of the given capacity filled with zero samples.
// A non-positive capacity is treated as 1.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = 1
	}
	return &Window{
		rows: make([]Sample, capacity, 2*capacity),
		cap:  capacity,
	}
}

// Push appends s, evicting the oldest sample when the window is full.
func (w *Window) Push(s Sample) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.rows) >= w.cap {
		if len(w.rows) == cap(w.rows) {
			// front slack used up: move to a fresh backing array
			fresh := make([]Sample, w.cap-1, 2*w.cap)
			copy(fresh, w.rows[len(w.rows)-w.cap+1:])
			w.rows = fresh
		} else {
			w.rows = w.rows[len(w.rows)-w.cap+1:]
		}
	}
	w.rows = append(w.rows, s)
}

// Len returns the number of samples held.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.rows)
}

// Cap returns the configured capacity.
func (w *Window) Cap() int {
	return w.cap
}

// Last returns the most recent sample.
func (w *Window) Last() Sample {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows[len(w.rows)-1]
}

// Snapshot returns a copy of the samples, oldest first.
func (w *Window) Snapshot() []Sample {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Sample, len(w.rows))
	copy(out, w.rows)
	return out
}

// Series extracts field i of every sample in rows.
func Series(rows []Sample, i int) []float64 {
	out := make([]float64, len(rows))
	for j, r := range rows {
		out[j] = r[i]
	}
	return out
}

// Range returns the minimum and maximum over the three axes of group g.
// An empty rows slice yields (0, 0).
func Range(rows []Sample, g Group) (lo, hi float64) {
	if len(rows) == 0 {
		return 0, 0
	}
	base := int(g) * 3
	lo, hi = rows[0][base], rows[0][base]
	for i := base; i < base+3; i++ {
		s := Series(rows, i)
		lo = min(lo, floats.Min(s))
		hi = max(hi, floats.Max(s))
	}
	return lo, hi
}
