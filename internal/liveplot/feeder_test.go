package liveplot

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lidar-tools/internal/imu"
	"github.com/banshee-data/lidar-tools/internal/monitoring"
	"github.com/banshee-data/lidar-tools/internal/timeutil"
)

func init() {
	monitoring.SetLogger(nil)
}

func feed(lines ...string) <-chan string {
	ch := make(chan string, len(lines))
	for _, l := range lines {
		ch <- l
	}
	close(ch)
	return ch
}

func TestNewFeeder_PublishesZeroWindow(t *testing.T) {
	f := NewFeeder(imu.NewWindow(300))

	snap := f.Latest()
	require.NotNil(t, snap)
	assert.Equal(t, uint64(1), snap.Seq)
	assert.Equal(t, uint64(0), snap.Lines)
	assert.Len(t, snap.Rows, 300)
	assert.Equal(t, imu.Sample{}, snap.Last())
}

func TestFeeder_BatchesAndPartialFlush(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := timeutil.NewMockClock(start)
	var echo bytes.Buffer
	f := NewFeeder(imu.NewWindow(4),
		WithBatchSize(2),
		WithEcho(&echo),
		WithClock(clock),
	)

	lines := []string{
		"1 2 3 4 5 6",
		"7 8 9 10 11 12",
		"-1 -2 -3 -4 -5 -6",
	}
	require.NoError(t, f.Run(context.Background(), feed(lines...)))

	assert.Equal(t, "1 2 3 4 5 6\n7 8 9 10 11 12\n-1 -2 -3 -4 -5 -6\n", echo.String())

	snap := f.Latest()
	// initial, one full batch, then the partial batch at close
	assert.Equal(t, uint64(3), snap.Seq)
	assert.Equal(t, uint64(3), snap.Lines)
	assert.Equal(t, start, snap.Taken)

	want := []imu.Sample{
		{},
		{1, 2, 3, 4, 5, 6},
		{7, 8, 9, 10, 11, 12},
		{-1, -2, -3, -4, -5, -6},
	}
	if diff := cmp.Diff(want, snap.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestFeeder_ExactBatchDoesNotRepublish(t *testing.T) {
	f := NewFeeder(imu.NewWindow(10), WithBatchSize(2))
	require.NoError(t, f.Run(context.Background(), feed("1 1 1 1 1 1", "2 2 2 2 2 2")))
	assert.Equal(t, uint64(2), f.Latest().Seq)
}

func TestFeeder_ParseErrorStops(t *testing.T) {
	tests := []struct {
		name    string
		lines   []string
		wantIs  error
		wantMsg string
	}{
		{"too few fields", []string{"1 2 3"}, imu.ErrFieldCount, "line 1"},
		{"blank line", []string{"1 2 3 4 5 6", ""}, imu.ErrFieldCount, "line 2"},
		{"not a number", []string{"1 2 3 4 5 x"}, nil, "field 5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var echo bytes.Buffer
			f := NewFeeder(imu.NewWindow(10), WithEcho(&echo))
			err := f.Run(context.Background(), feed(tt.lines...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
			if tt.wantIs != nil {
				assert.True(t, errors.Is(err, tt.wantIs), "want %v in chain, got %v", tt.wantIs, err)
			}
			// the bad line is echoed before parsing
			assert.Equal(t, len(tt.lines), bytes.Count(echo.Bytes(), []byte("\n")))
		})
	}
}

func TestFeeder_PartialBatchPublishedOnError(t *testing.T) {
	f := NewFeeder(imu.NewWindow(10), WithBatchSize(50))
	err := f.Run(context.Background(), feed("1 2 3 4 5 6", "oops"))
	require.Error(t, err)

	snap := f.Latest()
	assert.Equal(t, uint64(1), snap.Lines)
	assert.Equal(t, imu.Sample{1, 2, 3, 4, 5, 6}, snap.Last())
}

func TestFeeder_ContextCancel(t *testing.T) {
	f := NewFeeder(imu.NewWindow(10))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.Run(ctx, make(chan string))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSnapshot_View(t *testing.T) {
	snap := &Snapshot{
		Seq:   4,
		Lines: 2,
		Rows:  []imu.Sample{{1, 2, 3, 4, 5, 6}, {7, 8, 9, 10, 11, 12}},
	}
	v := snap.View()

	assert.Equal(t, uint64(4), v.Seq)
	assert.Equal(t, [][3]float64{{1, 2, 3}, {7, 8, 9}}, v.Accel)
	assert.Equal(t, [][3]float64{{4, 5, 6}, {10, 11, 12}}, v.Gyro)
	assert.Equal(t, LastValues{Accel: [3]float64{7, 8, 9}, Gyro: [3]float64{10, 11, 12}}, v.Last)
}
