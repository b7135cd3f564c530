package scanlog

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sweepLog = `S . 2600
L 5.0 10.0
S . 2500
L 3.0 0.0
L 2.0 7.0
`

func TestServoAngle(t *testing.T) {
	tests := []struct {
		raw  int
		want float64
	}{
		{2500, 0},
		{2600, 5},
		{2400, -5},
		{0, -125},
		{2501, 0.05},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.raw), func(t *testing.T) {
			assert.InDelta(t, tt.want, ServoAngle(tt.raw), 1e-12)
		})
	}
}

func TestParse_SweepLog(t *testing.T) {
	res, err := DefaultParser().Parse(strings.NewReader(sweepLog))
	require.NoError(t, err)

	want := []Reading{
		{Distance: 5, Signal: 10, Angle: 5},
		{Distance: 2, Signal: 7, Angle: 0},
	}
	if diff := cmp.Diff(want, res.Readings); diff != "" {
		t.Errorf("readings mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, res.Dropped)
	assert.Equal(t, 2, res.ServoLines)
	assert.Equal(t, 5, res.Lines)
}

func TestParse_IgnoresOtherLines(t *testing.T) {
	in := "# header\n\nX 1 2 3\n  L 1 1\nS x 2700\nLidar 4.5 2\n"
	res, err := DefaultParser().Parse(strings.NewReader(in))
	require.NoError(t, err)

	// only lines whose first byte is the marker count
	require.Len(t, res.Readings, 1)
	assert.Equal(t, Reading{Distance: 4.5, Signal: 2, Angle: 10}, res.Readings[0])
	assert.Equal(t, 6, res.Lines)
}

func TestParse_InitialAngle(t *testing.T) {
	p := DefaultParser()
	p.InitialAngle = -42

	res, err := p.Parse(strings.NewReader("L 1 2\nS 0 2500\nL 3 4\n"))
	require.NoError(t, err)
	require.Len(t, res.Readings, 2)
	assert.Equal(t, -42.0, res.Readings[0].Angle)
	assert.Equal(t, 0.0, res.Readings[1].Angle)
}

func TestParse_CustomCalibration(t *testing.T) {
	p := Parser{ServoCenter: 1500, DegreesPerUnit: 0.1}
	res, err := p.Parse(strings.NewReader("S 0 1600\nL 1 1\n"))
	require.NoError(t, err)
	require.Len(t, res.Readings, 1)
	assert.InDelta(t, 10.0, res.Readings[0].Angle, 1e-12)
}

func TestParse_CRLF(t *testing.T) {
	res, err := DefaultParser().Parse(strings.NewReader("S 0 2520\r\nL 1.5 3\r\n"))
	require.NoError(t, err)
	require.Len(t, res.Readings, 1)
	assert.Equal(t, 3.0, res.Readings[0].Signal)
	assert.InDelta(t, 1.0, res.Readings[0].Angle, 1e-12)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantLine int
		wantIs   error
	}{
		{"servo missing position", "S 0\n", 1, ErrMissingField},
		{"servo not integer", "L 1 1\nS 0 25.5\n", 2, strconv.ErrSyntax},
		{"range missing signal", "L 5\n", 1, ErrMissingField},
		{"range bad distance", "S 0 2500\n\nL abc 1\n", 3, strconv.ErrSyntax},
		{"range bad signal", "L 1 x\n", 1, strconv.ErrSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DefaultParser().Parse(strings.NewReader(tt.in))
			require.Error(t, err)

			var lerr *LineError
			require.True(t, errors.As(err, &lerr), "want *LineError, got %T", err)
			assert.Equal(t, tt.wantLine, lerr.Line)
			assert.ErrorIs(t, err, tt.wantIs)
			assert.Contains(t, err.Error(), "line "+strconv.Itoa(tt.wantLine))
		})
	}
}

func TestParse_Empty(t *testing.T) {
	res, err := DefaultParser().Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, res.Readings)
	assert.Zero(t, res.Lines)
}
