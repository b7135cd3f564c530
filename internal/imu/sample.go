// Package imu holds the accelerometer/gyroscope sample type read by the live
// plotter and the bounded window the samples are charted from.
package imu

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Fields is the number of values in one input line.
const Fields = 6

// Group selects one of the two three-axis sensor groups in a Sample.
type Group int

const (
	Accel Group = iota
	Gyro
)

// Groups lists the sensor groups in panel order.
var Groups = []Group{Accel, Gyro}

func (g Group) String() string {
	switch g {
	case Accel:
		return "Accelerometer"
	case Gyro:
		return "Gyroscope"
	default:
		return fmt.Sprintf("Group(%d)", int(g))
	}
}

// Axes names the three axes of a group, in field order.
var Axes = [3]string{"X", "Y", "Z"}

// Sample is one reading: accelerometer X/Y/Z followed by gyroscope X/Y/Z.
type Sample [Fields]float64

// ErrFieldCount is returned by ParseSample when a line does not hold exactly
// Fields values.
var ErrFieldCount = errors.New("unexpected number of fields")

// ParseSample parses a line of whitespace-separated floats.
func ParseSample(line string) (Sample, error) {
	var s Sample
	fields := strings.Fields(line)
	if len(fields) != Fields {
		return s, fmt.Errorf("%w: got %d, want %d", ErrFieldCount, len(fields), Fields)
	}
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return s, fmt.Errorf("field %d: %w", i, err)
		}
		s[i] = v
	}
	return s, nil
}

// Group returns the three axes of g.
func (s Sample) Group(g Group) [3]float64 {
	base := int(g) * 3
	return [3]float64{s[base], s[base+1], s[base+2]}
}

// Accel returns the accelerometer axes.
func (s Sample) Accel() [3]float64 { return s.Group(Accel) }

// Gyro returns the gyroscope axes.
func (s Sample) Gyro() [3]float64 { return s.Group(Gyro) }

// Raw is the JSON form of a raw IMU sample as published by MQTT producers.
type Raw struct {
	Ax float64 `json:"ax"`
	Ay float64 `json:"ay"`
	Az float64 `json:"az"`

	Gx float64 `json:"gx"`
	Gy float64 `json:"gy"`
	Gz float64 `json:"gz"`
}

// Sample converts r to a Sample.
func (r Raw) Sample() Sample {
	return Sample{r.Ax, r.Ay, r.Az, r.Gx, r.Gy, r.Gz}
}

// Line formats s as an input line, the inverse of ParseSample.
func (s Sample) Line() string {
	parts := make([]string, Fields)
	for i, v := range s {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}
