package main

import (
	"flag"

	"github.com/banshee-data/lidar-tools/internal/config"
	"github.com/banshee-data/lidar-tools/internal/scanlog"
)

type options struct {
	in            string
	out           string
	configPath    string
	plotPath      string
	dbPath        string
	migrationsDir string
	showVersion   bool
}

func registerFlags(fs *flag.FlagSet) *options {
	o := &options{}
	fs.StringVar(&o.in, "in", "", "Sweep log to read (default misc/out.txt)")
	fs.StringVar(&o.out, "out", "", "Sorted readings file to write (default misc/out2.txt)")
	fs.StringVar(&o.configPath, "config", "", "Path to a JSON config file (see config/tools.defaults.json)")
	fs.StringVar(&o.plotPath, "plot", "", "Also save an XY plot of the readings to this file")
	fs.StringVar(&o.dbPath, "db", "", "Record the run in this SQLite database")
	fs.StringVar(&o.migrationsDir, "migrations", "", "Directory with database migrations (default embedded)")
	fs.BoolVar(&o.showVersion, "version", false, "Print version and exit")
	return o
}

// job is the merged result of the config file and the flags.
type job struct {
	in     string
	out    string
	parser scanlog.Parser
}

func resolve(o *options, cfg *config.ToolsConfig) job {
	j := job{
		in:  cfg.GetInputPath(),
		out: cfg.GetOutputPath(),
		parser: scanlog.Parser{
			ServoCenter:    cfg.GetServoCenter(),
			DegreesPerUnit: cfg.GetDegreesPerUnit(),
		},
	}
	if o.in != "" {
		j.in = o.in
	}
	if o.out != "" {
		j.out = o.out
	}
	return j
}
