package main

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/banshee-data/lidar-tools/internal/scandb"
)

var errMigrateUsage = errors.New("usage: scanproc -db <path> migrate up|down|version")

// runMigrate handles the 'migrate' subcommand. The database is opened
// without the automatic upgrade so that down and version see the schema
// as it is.
func runMigrate(o *options, args []string, out io.Writer) error {
	if len(args) < 1 || o.dbPath == "" {
		return errMigrateUsage
	}

	store, err := scandb.Open(o.dbPath, o.migrationsDir, scandb.WithoutMigrate())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	switch args[0] {
	case "up":
		log.Printf("running migrations on %s", o.dbPath)
		if err := store.MigrateUp(o.migrationsDir); err != nil {
			return err
		}
	case "down":
		log.Printf("rolling back one migration on %s", o.dbPath)
		if err := store.MigrateDown(o.migrationsDir); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("unknown migrate action %q: %w", args[0], errMigrateUsage)
	}

	version, dirty, err := store.MigrateVersion(o.migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	fmt.Fprintf(out, "version %d (dirty: %v)\n", version, dirty)
	return nil
}
