package scanlog

import (
	"fmt"
	"path/filepath"

	"github.com/banshee-data/lidar-tools/internal/fsutil"
)

// Default file locations, relative to the working directory.
const (
	DefaultInputPath  = "misc/out.txt"
	DefaultOutputPath = "misc/out2.txt"
)

// ProcessFile parses in, sorts the readings by angle and writes them to out,
// replacing any previous contents. The output's directory is created if
// missing. The output is not touched if parsing fails.
func ProcessFile(fsys fsutil.FileSystem, in, out string, p Parser) (Result, error) {
	f, err := fsys.Open(in)
	if err != nil {
		return Result{}, fmt.Errorf("open input: %w", err)
	}
	res, err := p.Parse(f)
	f.Close()
	if err != nil {
		return res, fmt.Errorf("parse %s: %w", in, err)
	}

	SortByAngle(res.Readings)

	if err := fsys.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return res, fmt.Errorf("create output directory: %w", err)
	}
	w, err := fsys.Create(out)
	if err != nil {
		return res, fmt.Errorf("create output: %w", err)
	}
	if err := Write(w, res.Readings); err != nil {
		w.Close()
		return res, fmt.Errorf("write %s: %w", out, err)
	}
	if err := w.Close(); err != nil {
		return res, fmt.Errorf("close %s: %w", out, err)
	}
	return res, nil
}
