package scandb

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lidar-tools/internal/monitoring"
	"github.com/banshee-data/lidar-tools/internal/scanlog"
	"github.com/banshee-data/lidar-tools/internal/timeutil"
)

func init() {
	monitoring.SetLogger(nil)
}

func openTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "scan.db"), "", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_MigratesToLatest(t *testing.T) {
	s := openTestStore(t)

	version, dirty, err := s.MigrateVersion("")
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	// opening again is a no-op migration
	require.NoError(t, s.MigrateUp(""))
}

func TestMigrateDown(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.MigrateDown(""))

	version, _, err := s.MigrateVersion("")
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}

func TestOpen_WithoutMigrate(t *testing.T) {
	s := openTestStore(t, WithoutMigrate())

	version, dirty, err := s.MigrateVersion("")
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)

	require.NoError(t, s.MigrateUp(""))
	version, _, err = s.MigrateVersion("")
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
}

func TestOpen_MigrationsDir(t *testing.T) {
	dir := t.TempDir()
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	for _, e := range entries {
		data, err := migrationsFS.ReadFile("migrations/" + e.Name())
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, e.Name()), data, 0o644))
	}

	s, err := Open(filepath.Join(t.TempDir(), "scan.db"), dir)
	require.NoError(t, err)
	defer s.Close()

	version, _, err := s.MigrateVersion(dir)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
}

func TestRecordRun_RoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	s := openTestStore(t, WithClock(timeutil.NewMockClock(now)))
	ctx := context.Background()

	res := scanlog.Result{
		Readings: []scanlog.Reading{
			{Distance: 2, Signal: 7, Angle: 0},
			{Distance: 5, Signal: 10, Angle: 5},
		},
		Dropped: 1,
		Lines:   5,
	}
	id, err := s.RecordRun(ctx, "misc/out.txt", "misc/out2.txt", res)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	assert.NoError(t, err)

	run, err := s.Run(ctx, id)
	require.NoError(t, err)
	want := Run{
		ID:           id,
		SourcePath:   "misc/out.txt",
		OutputPath:   "misc/out2.txt",
		ReadingCount: 2,
		DroppedCount: 1,
		LineCount:    5,
		CreatedAt:    now,
	}
	if diff := cmp.Diff(want, run); diff != "" {
		t.Errorf("run mismatch (-want +got):\n%s", diff)
	}

	readings, err := s.Readings(ctx, id)
	require.NoError(t, err)
	if diff := cmp.Diff(res.Readings, readings); diff != "" {
		t.Errorf("readings mismatch (-want +got):\n%s", diff)
	}
}

func TestRuns_NewestFirst(t *testing.T) {
	clock := timeutil.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s := openTestStore(t, WithClock(clock))
	ctx := context.Background()

	first, err := s.RecordRun(ctx, "a", "b", scanlog.Result{})
	require.NoError(t, err)
	clock.Advance(time.Minute)
	second, err := s.RecordRun(ctx, "c", "d", scanlog.Result{})
	require.NoError(t, err)

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, first, runs[1].ID)

	readings, err := s.Readings(ctx, first)
	require.NoError(t, err)
	assert.Empty(t, readings)
}

func TestRun_NotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Run(ctx, "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = s.Readings(ctx, "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}
