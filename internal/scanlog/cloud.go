package scanlog

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// ErrNoReadings is returned by PlotCloud when no reading has a finite
// position.
var ErrNoReadings = errors.New("no readings to plot")

// PlotCloud saves an XY scatter of the readings to path. The image format
// follows the file extension (png, svg, pdf, ...). Readings whose position
// is NaN or infinite are left out.
func PlotCloud(readings []Reading, path string) error {
	pts := cloudPoints(readings)
	if len(pts) == 0 {
		return ErrNoReadings
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Sweep (%d readings)", len(pts))
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"
	p.Add(plotter.NewGrid())

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("build scatter: %w", err)
	}
	scatter.GlyphStyle.Color = color.RGBA{B: 0xCC, A: 0xFF}
	scatter.GlyphStyle.Radius = vg.Points(1.5)
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(scatter)

	// the sensor sits at the origin
	origin, err := plotter.NewScatter(plotter.XYs{{}})
	if err != nil {
		return fmt.Errorf("build origin: %w", err)
	}
	origin.GlyphStyle.Color = color.RGBA{R: 0xCC, A: 0xFF}
	origin.GlyphStyle.Shape = draw.CrossGlyph{}
	p.Add(origin)

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}

func cloudPoints(readings []Reading) plotter.XYs {
	pts := make(plotter.XYs, 0, len(readings))
	for _, r := range readings {
		x, y := r.Cartesian()
		if !finite(x) || !finite(y) {
			continue
		}
		pts = append(pts, plotter.XY{X: x, Y: y})
	}
	return pts
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
