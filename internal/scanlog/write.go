package scanlog

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
)

// SortByAngle orders readings by ascending angle. Readings with equal angles
// keep their input order.
func SortByAngle(readings []Reading) {
	slices.SortStableFunc(readings, func(a, b Reading) int {
		switch {
		case a.Angle < b.Angle:
			return -1
		case a.Angle > b.Angle:
			return 1
		}
		return 0
	})
}

// FormatValue renders v as the shortest decimal that round-trips. Integral
// values keep a ".0" suffix, magnitudes outside [1e-4, 1e16) use exponent
// form, and non-finite values are "inf", "-inf" and "nan".
func FormatValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// FormatReading renders r as "distance signal angle".
func FormatReading(r Reading) string {
	return FormatValue(r.Distance) + " " + FormatValue(r.Signal) + " " + FormatValue(r.Angle)
}

// Write writes one newline-terminated line per reading, in slice order.
func Write(w io.Writer, readings []Reading) error {
	bw := bufio.NewWriter(w)
	for _, r := range readings {
		if _, err := bw.WriteString(FormatReading(r) + "\n"); err != nil {
			return fmt.Errorf("write reading: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write reading: %w", err)
	}
	return nil
}
