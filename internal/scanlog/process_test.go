package scanlog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lidar-tools/internal/fsutil"
	"github.com/banshee-data/lidar-tools/internal/testutil"
)

func TestProcessFile_SweepLog(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	mfs.AddFile(DefaultInputPath, []byte(sweepLog))

	res, err := ProcessFile(mfs, DefaultInputPath, DefaultOutputPath, DefaultParser())
	require.NoError(t, err)
	assert.Len(t, res.Readings, 2)
	assert.Equal(t, 1, res.Dropped)

	out, err := mfs.ReadFile(DefaultOutputPath)
	require.NoError(t, err)
	assert.Equal(t, "2.0 7.0 0.0\n5.0 10.0 5.0\n", string(out))
}

func TestProcessFile_CreatesOutputDir(t *testing.T) {
	in := testutil.WriteTempFile(t, "out.txt", "L 1 1\n")
	out := filepath.Join(t.TempDir(), "misc", "sorted", "out2.txt")

	_, err := ProcessFile(fsutil.OSFileSystem{}, in, out, DefaultParser())
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "1.0 1.0 0.0\n", string(data))
}

func TestProcessFile_Idempotent(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteTempFile(t, "out.txt", "S 0 2450\nL 1.25 3\nS 0 2550\nL 7 1\nL 8 0\nS 0 2450\nL 9.5 2\n")
	out := filepath.Join(dir, "out2.txt")

	_, err := ProcessFile(fsutil.OSFileSystem{}, in, out, DefaultParser())
	require.NoError(t, err)
	first, err := os.ReadFile(out)
	require.NoError(t, err)

	_, err = ProcessFile(fsutil.OSFileSystem{}, in, out, DefaultParser())
	require.NoError(t, err)
	second, err := os.ReadFile(out)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "1.25 3.0 -2.5\n9.5 2.0 -2.5\n7.0 1.0 2.5\n", string(first))
}

func TestProcessFile_OverwritesOutput(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	mfs.AddFile("in.txt", []byte("L 1 1\n"))
	mfs.AddFile("out.txt", []byte("a much longer previous result\nwith two lines\n"))

	_, err := ProcessFile(mfs, "in.txt", "out.txt", DefaultParser())
	require.NoError(t, err)

	out, err := mfs.ReadFile("out.txt")
	require.NoError(t, err)
	assert.Equal(t, "1.0 1.0 0.0\n", string(out))
}

func TestProcessFile_MissingInput(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	_, err := ProcessFile(mfs, "missing.txt", "misc/out.txt", DefaultParser())
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.False(t, mfs.Exists("misc/out.txt"))
	assert.False(t, mfs.Exists("misc"))
}

func TestProcessFile_ParseErrorLeavesOutput(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	mfs.AddFile("in.txt", []byte("L 1 1\nS 0 abc\n"))
	mfs.AddFile("out.txt", []byte("previous\n"))

	_, err := ProcessFile(mfs, "in.txt", "out.txt", DefaultParser())
	var lerr *LineError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, 2, lerr.Line)

	out, err := mfs.ReadFile("out.txt")
	require.NoError(t, err)
	assert.Equal(t, "previous\n", string(out))
}

func TestProcessFile_WriteError(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	mfs.AddFile("in.txt", []byte("L 1 1\n"))
	boom := errors.New("boom")
	mfs.FailWrite("out.txt", boom)

	_, err := ProcessFile(mfs, "in.txt", "out.txt", DefaultParser())
	assert.ErrorIs(t, err, boom)
}
