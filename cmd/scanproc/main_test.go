package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lidar-tools/internal/config"
	"github.com/banshee-data/lidar-tools/internal/monitoring"
	"github.com/banshee-data/lidar-tools/internal/scandb"
	"github.com/banshee-data/lidar-tools/internal/scanlog"
	"github.com/banshee-data/lidar-tools/internal/testutil"
)

func init() {
	log.SetOutput(io.Discard)
	monitoring.SetLogger(nil)
}

func parseFlags(t *testing.T, args ...string) *options {
	t.Helper()
	fs := flag.NewFlagSet("scanproc", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	o := registerFlags(fs)
	require.NoError(t, fs.Parse(args))
	return o
}

func TestResolve_Defaults(t *testing.T) {
	j := resolve(parseFlags(t), config.EmptyToolsConfig())
	assert.Equal(t, scanlog.DefaultInputPath, j.in)
	assert.Equal(t, scanlog.DefaultOutputPath, j.out)
	assert.Equal(t, scanlog.DefaultParser(), j.parser)
}

func TestResolve_ShippedDefaults(t *testing.T) {
	assert.Equal(t, resolve(parseFlags(t), config.EmptyToolsConfig()), resolve(parseFlags(t), config.MustLoadDefaultConfig()))
}

func TestResolve_ConfigAndFlags(t *testing.T) {
	path := testutil.WriteTempFile(t, "tools.json", `{"servo_center": 1500, "degrees_per_unit": 0.1, "input_path": "a.txt"}`)
	cfg, err := config.LoadToolsConfig(path)
	require.NoError(t, err)

	j := resolve(parseFlags(t, "-out", "b.txt"), cfg)
	assert.Equal(t, "a.txt", j.in)
	assert.Equal(t, "b.txt", j.out)
	assert.Equal(t, scanlog.Parser{ServoCenter: 1500, DegreesPerUnit: 0.1}, j.parser)
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "out.txt")
	out := filepath.Join(dir, "out2.txt")
	dbPath := filepath.Join(dir, "scan.db")
	plotPath := filepath.Join(dir, "cloud.png")
	require.NoError(t, os.WriteFile(in, []byte("S . 2600\nL 5.0 10.0\nS . 2500\nL 3.0 0.0\nL 2.0 7.0\n"), 0o644))

	o := parseFlags(t, "-in", in, "-out", out, "-db", dbPath, "-plot", plotPath)
	require.NoError(t, run(context.Background(), o))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "2.0 7.0 0.0\n5.0 10.0 5.0\n", string(data))

	_, err = os.Stat(plotPath)
	assert.NoError(t, err)

	store, err := scandb.Open(dbPath, "")
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].ReadingCount)
	assert.Equal(t, 1, runs[0].DroppedCount)
}

func TestRun_MissingInput(t *testing.T) {
	dir := t.TempDir()
	o := parseFlags(t, "-in", filepath.Join(dir, "missing.txt"), "-out", filepath.Join(dir, "out2.txt"))
	err := run(context.Background(), o)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_BadConfig(t *testing.T) {
	o := parseFlags(t, "-config", "tools.yaml")
	assert.Error(t, run(context.Background(), o))
}

func TestRun_NothingToPlot(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "out.txt")
	out := filepath.Join(dir, "out2.txt")
	dbPath := filepath.Join(dir, "scan.db")
	plotPath := filepath.Join(dir, "cloud.png")
	require.NoError(t, os.WriteFile(in, []byte("S . 2600\nL 3.0 0.0\n"), 0o644))

	o := parseFlags(t, "-in", in, "-out", out, "-db", dbPath, "-plot", plotPath)
	require.NoError(t, run(context.Background(), o))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Empty(t, data)

	_, err = os.Stat(plotPath)
	assert.ErrorIs(t, err, os.ErrNotExist)

	store, err := scandb.Open(dbPath, "")
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 0, runs[0].ReadingCount)
	assert.Equal(t, 1, runs[0].DroppedCount)
}

func TestRun_PlotNonFiniteDistance(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "out.txt")
	out := filepath.Join(dir, "out2.txt")
	plotPath := filepath.Join(dir, "cloud.png")
	require.NoError(t, os.WriteFile(in, []byte("S . 2600\nL nan 4.0\nL 2.0 7.0\n"), 0o644))

	o := parseFlags(t, "-in", in, "-out", out, "-plot", plotPath)
	require.NoError(t, run(context.Background(), o))

	_, err := os.Stat(plotPath)
	assert.NoError(t, err)
}

func TestRunMigrate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scan.db")
	o := parseFlags(t, "-db", dbPath)

	var out bytes.Buffer
	require.NoError(t, runMigrate(o, []string{"version"}, &out))
	assert.Equal(t, "version 0 (dirty: false)\n", out.String())

	out.Reset()
	require.NoError(t, runMigrate(o, []string{"up"}, &out))
	assert.Equal(t, "version 2 (dirty: false)\n", out.String())

	out.Reset()
	require.NoError(t, runMigrate(o, []string{"down"}, &out))
	assert.Equal(t, "version 1 (dirty: false)\n", out.String())
}

func TestRunMigrate_Usage(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scan.db")

	err := runMigrate(parseFlags(t), []string{"up"}, io.Discard)
	assert.ErrorIs(t, err, errMigrateUsage)

	err = runMigrate(parseFlags(t, "-db", dbPath), nil, io.Discard)
	assert.ErrorIs(t, err, errMigrateUsage)

	err = runMigrate(parseFlags(t, "-db", dbPath), []string{"sideways"}, io.Discard)
	assert.ErrorIs(t, err, errMigrateUsage)
}
