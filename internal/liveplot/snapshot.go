// Package liveplot turns a stream of IMU sample lines into a live two-panel
// chart. A Feeder consumes lines into a bounded window and publishes a
// snapshot per batch; a Plotter redraws the latest snapshot on a fixed
// interval through one or more Renderers.
package liveplot

import (
	"time"

	"github.com/banshee-data/lidar-tools/internal/imu"
)

// Snapshot is an immutable copy of the window taken at a batch boundary.
type Snapshot struct {
	Seq   uint64       // increments with every published snapshot
	Lines uint64       // input lines consumed so far
	Rows  []imu.Sample // oldest first
	Taken time.Time
}

// Last returns the newest row, or a zero sample for an empty snapshot.
func (s *Snapshot) Last() imu.Sample {
	if len(s.Rows) == 0 {
		return imu.Sample{}
	}
	return s.Rows[len(s.Rows)-1]
}

// LastValues holds the final X/Y/Z of each group, the values shown in the
// chart labels.
type LastValues struct {
	Accel [3]float64 `json:"accel"`
	Gyro  [3]float64 `json:"gyro"`
}

// WindowView is the JSON form of a snapshot served over HTTP and websocket.
type WindowView struct {
	Seq   uint64       `json:"seq"`
	Lines uint64       `json:"lines"`
	Taken time.Time    `json:"taken"`
	Accel [][3]float64 `json:"accel"`
	Gyro  [][3]float64 `json:"gyro"`
	Last  LastValues   `json:"last"`
}

// View converts s to its JSON form.
func (s *Snapshot) View() WindowView {
	v := WindowView{
		Seq:   s.Seq,
		Lines: s.Lines,
		Taken: s.Taken,
		Accel: make([][3]float64, len(s.Rows)),
		Gyro:  make([][3]float64, len(s.Rows)),
	}
	for i, r := range s.Rows {
		v.Accel[i] = r.Accel()
		v.Gyro[i] = r.Gyro()
	}
	last := s.Last()
	v.Last = LastValues{Accel: last.Accel(), Gyro: last.Gyro()}
	return v
}
