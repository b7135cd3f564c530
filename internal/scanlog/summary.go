package scanlog

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes a set of readings.
type Summary struct {
	Count          int
	AngleMin       float64
	AngleMax       float64
	DistanceMean   float64
	DistanceStdDev float64
	SignalMean     float64
}

// Summarize computes a Summary. All fields are zero for no readings and the
// standard deviation is zero for a single reading.
func Summarize(readings []Reading) Summary {
	n := len(readings)
	if n == 0 {
		return Summary{}
	}

	angles := make([]float64, n)
	distances := make([]float64, n)
	signals := make([]float64, n)
	for i, r := range readings {
		angles[i] = r.Angle
		distances[i] = r.Distance
		signals[i] = r.Signal
	}

	s := Summary{
		Count:        n,
		AngleMin:     floats.Min(angles),
		AngleMax:     floats.Max(angles),
		DistanceMean: stat.Mean(distances, nil),
		SignalMean:   stat.Mean(signals, nil),
	}
	if n > 1 {
		s.DistanceStdDev = stat.StdDev(distances, nil)
	}
	return s
}

func (s Summary) String() string {
	if s.Count == 0 {
		return "0 readings"
	}
	return fmt.Sprintf("%d readings, angle %s..%s deg, distance mean %.3f (sd %.3f), signal mean %.3f",
		s.Count, FormatValue(s.AngleMin), FormatValue(s.AngleMax),
		s.DistanceMean, s.DistanceStdDev, s.SignalMean)
}

// Cartesian projects r into the sweep plane, with 0 degrees along +X.
func (r Reading) Cartesian() (x, y float64) {
	theta := r.Angle * math.Pi / 180
	return r.Distance * math.Cos(theta), r.Distance * math.Sin(theta)
}
