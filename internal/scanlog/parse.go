// Package scanlog post-processes a lidar sweep log. The log interleaves
// servo position lines ("S ...") with range readings ("L ..."); each reading
// is tagged with the angle of the servo line before it, then the readings are
// sorted by angle and written out as "distance signal angle" triples.
package scanlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Servo calibration defaults: raw position 2500 is 0 degrees and every unit
// is 0.05 degrees.
const (
	DefaultServoCenter    = 2500
	DefaultDegreesPerUnit = 0.05
)

const maxLineSize = 1024 * 1024

// Reading is one range sample with the servo angle it was taken at.
type Reading struct {
	Distance float64
	Signal   float64
	Angle    float64
}

// ServoAngle converts a raw servo position to degrees using the default
// calibration.
func ServoAngle(raw int) float64 {
	return DefaultParser().ServoAngle(raw)
}

// Parser turns a log into readings.
type Parser struct {
	ServoCenter    int
	DegreesPerUnit float64
	// InitialAngle is the angle of readings that precede any servo line.
	// Like every angle it is written in float form, so the default zero
	// appears as "0.0".
	InitialAngle float64
}

// DefaultParser returns a parser with the default calibration.
func DefaultParser() Parser {
	return Parser{
		ServoCenter:    DefaultServoCenter,
		DegreesPerUnit: DefaultDegreesPerUnit,
	}
}

// ServoAngle converts a raw servo position to degrees.
func (p Parser) ServoAngle(raw int) float64 {
	return float64(raw-p.ServoCenter) * p.DegreesPerUnit
}

// Result is the outcome of parsing one log.
type Result struct {
	Readings []Reading
	// Dropped counts range lines discarded for a zero signal.
	Dropped int
	// ServoLines counts servo position lines.
	ServoLines int
	// Lines counts every input line, including ignored ones.
	Lines int
}

// ErrMissingField is wrapped by LineError when a line has too few tokens.
var ErrMissingField = errors.New("missing field")

// LineError reports a malformed servo or range line.
type LineError struct {
	Line int // 1-based
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// Parse reads the whole log. Lines starting with 'S' set the current angle
// from their third token; lines starting with 'L' yield a reading from their
// second (distance) and third (signal) tokens unless the signal is zero.
// Anything else is ignored. The first malformed S or L line aborts parsing.
func (p Parser) Parse(r io.Reader) (Result, error) {
	var res Result
	angle := p.InitialAngle

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		res.Lines++
		line := scanner.Text()
		if line == "" {
			continue
		}

		switch line[0] {
		case 'S':
			raw, err := servoField(line)
			if err != nil {
				return res, &LineError{Line: res.Lines, Text: line, Err: err}
			}
			angle = p.ServoAngle(raw)
			res.ServoLines++

		case 'L':
			distance, signal, err := rangeFields(line)
			if err != nil {
				return res, &LineError{Line: res.Lines, Text: line, Err: err}
			}
			if signal == 0 {
				res.Dropped++
				continue
			}
			res.Readings = append(res.Readings, Reading{
				Distance: distance,
				Signal:   signal,
				Angle:    angle,
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("read log: %w", err)
	}
	return res, nil
}

func servoField(line string) (int, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return 0, fmt.Errorf("servo position: %w", ErrMissingField)
	}
	raw, err := strconv.Atoi(fields[2])
	if err != nil {
		return 0, fmt.Errorf("servo position: %w", err)
	}
	return raw, nil
}

func rangeFields(line string) (distance, signal float64, err error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return 0, 0, fmt.Errorf("range reading: %w", ErrMissingField)
	}
	if distance, err = strconv.ParseFloat(fields[1], 64); err != nil {
		return 0, 0, fmt.Errorf("distance: %w", err)
	}
	if signal, err = strconv.ParseFloat(fields[2], 64); err != nil {
		return 0, 0, fmt.Errorf("signal: %w", err)
	}
	return distance, signal, nil
}
