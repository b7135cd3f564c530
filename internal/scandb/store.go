// Package scandb records post-processing runs and their readings in SQLite.
package scandb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/lidar-tools/internal/scanlog"
	"github.com/banshee-data/lidar-tools/internal/timeutil"
)

// ErrRunNotFound is returned for an unknown run ID.
var ErrRunNotFound = errors.New("scan run not found")

// Store wraps the scan database.
type Store struct {
	db          *sql.DB
	clock       timeutil.Clock
	skipMigrate bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for run timestamps.
func WithClock(c timeutil.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithoutMigrate leaves the schema as found, for callers that manage
// migrations themselves.
func WithoutMigrate() Option {
	return func(s *Store) { s.skipMigrate = true }
}

// Open opens (creating if needed) the database at path and migrates it to
// the latest schema unless WithoutMigrate is given. See MigrateUp for
// migrationsDir.
func Open(path, migrationsDir string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single connection keeps in-memory databases and pragmas consistent
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}

	s := &Store{db: db, clock: timeutil.RealClock{}}
	for _, o := range opts {
		o(s)
	}
	if s.skipMigrate {
		return s, nil
	}
	if err := s.MigrateUp(migrationsDir); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Run describes one post-processing run.
type Run struct {
	ID           string
	SourcePath   string
	OutputPath   string
	ReadingCount int
	DroppedCount int
	LineCount    int
	CreatedAt    time.Time
}

// RecordRun stores the result of processing source into output and returns
// the new run ID. Readings are stored in the order given.
func (s *Store) RecordRun(ctx context.Context, source, output string, res scanlog.Result) (string, error) {
	runID := uuid.New().String()
	createdAt := s.clock.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO scan_runs (run_id, source_path, output_path, reading_count, dropped_count, line_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, source, output, len(res.Readings), res.Dropped, res.Lines, createdAt.Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO scan_readings (run_id, seq, distance, signal, angle)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare reading insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range res.Readings {
		if _, err := stmt.ExecContext(ctx, runID, i, r.Distance, r.Signal, r.Angle); err != nil {
			return "", fmt.Errorf("insert reading %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return runID, nil
}

// Run returns a single run.
func (s *Store) Run(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, source_path, output_path, reading_count, dropped_count, line_count, created_at
		FROM scan_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return r, err
}

// Runs lists all runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, source_path, output_path, reading_count, dropped_count, line_count, created_at
		FROM scan_runs ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		r       Run
		created string
	)
	if err := row.Scan(&r.ID, &r.SourcePath, &r.OutputPath, &r.ReadingCount, &r.DroppedCount, &r.LineCount, &created); err != nil {
		return Run{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Run{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	r.CreatedAt = t
	return r, nil
}

// Readings returns the readings stored for a run, in stored order.
func (s *Store) Readings(ctx context.Context, runID string) ([]scanlog.Reading, error) {
	if _, err := s.Run(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT distance, signal, angle FROM scan_readings
		WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	var out []scanlog.Reading
	for rows.Next() {
		var r scanlog.Reading
		if err := rows.Scan(&r.Distance, &r.Signal, &r.Angle); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
