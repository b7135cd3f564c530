package liveplot

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/banshee-data/lidar-tools/internal/imu"
)

// Default Y range of both panels.
const (
	DefaultYMin = -300.0
	DefaultYMax = 300.0
)

// YRange is the vertical extent of the panels. Auto fits each panel to the
// samples it shows, ignoring Min and Max.
type YRange struct {
	Min, Max float64
	Auto     bool
}

// DefaultYRange is the fixed range used when nothing else is configured.
var DefaultYRange = YRange{Min: DefaultYMin, Max: DefaultYMax}

// For returns the extent of group g's panel. An automatic range is padded by
// 5% and falls back to the fixed range for empty or non-finite data.
func (y YRange) For(rows []imu.Sample, g imu.Group) (lo, hi float64) {
	if !y.Auto {
		return y.Min, y.Max
	}
	lo, hi = imu.Range(rows, g)
	if len(rows) == 0 || math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return y.Min, y.Max
	}
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = 1
	}
	return lo - pad, hi + pad
}

// AxisColors are the line colours of the X, Y and Z series.
var AxisColors = [3]color.RGBA{
	{R: 0xCC, A: 0xFF},
	{G: 0xCC, A: 0xFF},
	{B: 0xCC, A: 0xFF},
}

// AxisHex is AxisColors in CSS form, used by the web charts.
var AxisHex = [3]string{"#C00", "#0C0", "#00C"}

// groupTitles are the panel titles, indexed by imu.Group.
var groupTitles = [2]string{"Accelerometer", "Gyroscope"}

// PNGRenderer draws a snapshot as two stacked panels and writes it to Path.
type PNGRenderer struct {
	Path   string
	Width  vg.Length
	Height vg.Length
	Y      YRange
}

// NewPNGRenderer returns a renderer writing to path with the default size
// and Y range.
func NewPNGRenderer(path string) *PNGRenderer {
	return &PNGRenderer{
		Path:   path,
		Width:  10 * vg.Inch,
		Height: 8 * vg.Inch,
		Y:      DefaultYRange,
	}
}

// Render implements Renderer.
func (r *PNGRenderer) Render(s *Snapshot) error {
	plots := make([][]*plot.Plot, len(imu.Groups))
	for i, g := range imu.Groups {
		p, err := r.panel(s.Rows, g)
		if err != nil {
			return fmt.Errorf("build %s panel: %w", g, err)
		}
		plots[i] = []*plot.Plot{p}
	}

	img := vgimg.New(r.Width, r.Height)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: len(plots),
		Cols: 1,
		PadY: vg.Points(8),
		PadX: vg.Points(4),
	}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}

	return writeAtomic(r.Path, func(f *os.File) error {
		_, err := vgimg.PngCanvas{Canvas: img}.WriteTo(f)
		return err
	})
}

func (r *PNGRenderer) panel(rows []imu.Sample, g imu.Group) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = groupTitles[g]
	n := len(rows)

	p.X.Min = 0
	// leave room right of the last sample for the value labels
	p.X.Max = float64(n) * 1.12
	p.X.Tick.Marker = plot.ConstantTicks(sampleTicks(n))
	yMin, yMax := r.Y.For(rows, g)
	p.Y.Min = yMin
	p.Y.Max = yMax

	last := imu.Sample{}
	if n > 0 {
		last = rows[n-1]
	}

	labels := plotter.XYLabels{
		XYs:    make(plotter.XYs, 3),
		Labels: make([]string, 3),
	}
	for axis := 0; axis < 3; axis++ {
		field := int(g)*3 + axis
		pts := make(plotter.XYs, n)
		for i, v := range imu.Series(rows, field) {
			pts[i] = plotter.XY{X: float64(i), Y: v}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.Color = AxisColors[axis]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(imu.Axes[axis], line)

		v := last[field]
		labels.XYs[axis] = plotter.XY{X: float64(n) * 1.01, Y: clamp(v, yMin, yMax)}
		labels.Labels[axis] = imu.Axes[axis] + ": " + strconv.FormatFloat(v, 'g', -1, 64)
	}

	lbl, err := plotter.NewLabels(labels)
	if err != nil {
		return nil, err
	}
	for axis := range lbl.TextStyle {
		lbl.TextStyle[axis].Color = AxisColors[axis]
	}
	p.Add(lbl)

	p.Legend.Top = false
	p.Legend.Left = true
	p.Legend.XOffs = 10
	p.Legend.YOffs = 10
	return p, nil
}

// sampleTicks marks every 20th sample index in [0, n).
func sampleTicks(n int) []plot.Tick {
	var ticks []plot.Tick
	for i := 0; i < n; i += 20 {
		ticks = append(ticks, plot.Tick{Value: float64(i), Label: strconv.Itoa(i)})
	}
	return ticks
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

// writeAtomic writes path through a temp file in the same directory so
// readers never observe a partial image.
func writeAtomic(path string, write func(*os.File) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}
