// Command scanproc sorts a lidar sweep log by servo angle. It reads servo
// ("S") and range ("L") lines, drops zero-signal readings and writes
// "distance signal angle" triples in ascending angle order.
//
// "scanproc -db <path> migrate up|down|version" manages the run database
// schema.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/banshee-data/lidar-tools/internal/config"
	"github.com/banshee-data/lidar-tools/internal/fsutil"
	"github.com/banshee-data/lidar-tools/internal/scandb"
	"github.com/banshee-data/lidar-tools/internal/scanlog"
	"github.com/banshee-data/lidar-tools/internal/version"
)

func run(ctx context.Context, o *options) error {
	cfg, err := config.LoadOrDefault(o.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	j := resolve(o, cfg)

	res, err := scanlog.ProcessFile(fsutil.OSFileSystem{}, j.in, j.out, j.parser)
	if err != nil {
		return err
	}
	log.Printf("wrote %s: %s (%d zero-signal readings dropped)", j.out, scanlog.Summarize(res.Readings), res.Dropped)

	if o.plotPath != "" {
		switch err := scanlog.PlotCloud(res.Readings, o.plotPath); {
		case errors.Is(err, scanlog.ErrNoReadings):
			log.Printf("nothing to plot, skipping %s", o.plotPath)
		case err != nil:
			return fmt.Errorf("failed to plot readings: %w", err)
		default:
			log.Printf("saved plot to %s", o.plotPath)
		}
	}

	if o.dbPath != "" {
		store, err := scandb.Open(o.dbPath, o.migrationsDir)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()

		runID, err := store.RecordRun(ctx, j.in, j.out, res)
		if err != nil {
			return fmt.Errorf("failed to record run: %w", err)
		}
		log.Printf("recorded run %s in %s", runID, o.dbPath)
	}
	return nil
}

func main() {
	opts := registerFlags(flag.CommandLine)
	flag.Parse()

	log.SetFlags(0)
	log.SetPrefix("scanproc: ")

	if opts.showVersion {
		fmt.Println(version.String("scanproc"))
		return
	}

	if flag.Arg(0) == "migrate" {
		if err := runMigrate(opts, flag.Args()[1:], os.Stdout); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := run(context.Background(), opts); err != nil {
		log.Fatal(err)
	}
}
