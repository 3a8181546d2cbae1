// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command flowsim answers, offline, what a firewall policy set would
// decide for every combination of source segment, destination segment
// and port probe. It loads rules from a FortiGate CLI dump, an Excel
// workbook or a rules database, expands the probe matrix, and writes one
// verdict row per probe.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"grimm.is/flowsim/internal/engine"
	"grimm.is/flowsim/internal/errors"
	"grimm.is/flowsim/internal/ingest"
	"grimm.is/flowsim/internal/logging"
	"grimm.is/flowsim/internal/probe"
	"grimm.is/flowsim/internal/profile"
	"grimm.is/flowsim/internal/sim"
)

type options struct {
	configPath string
	excelPath  string
	dbUser     string
	dbPassword string
	dbHost     string
	dbName     string
	dbFile     string
	fabName    string

	srcCSV string
	dstCSV string
	ports  string
	out    string

	matchMode      string
	maxHosts       int
	ignoreSchedule bool
	workers        int
	filterPolicyID string

	logLevel   string
	logFile    string
	profileDir string
	metricsOut string

	// set records which flags were given explicitly, so profile values
	// only fill the gaps.
	set map[string]bool
}

func parseFlags(args []string) (*options, error) {
	opts := &options{set: make(map[string]bool)}
	fs := flag.NewFlagSet("flowsim", flag.ExitOnError)

	fs.StringVar(&opts.configPath, "config", "", "FortiGate CLI config file")
	fs.StringVar(&opts.excelPath, "excel", "", "Excel rules workbook")
	fs.StringVar(&opts.dbUser, "db-user", "", "Rules database user")
	fs.StringVar(&opts.dbPassword, "db-password", "", "Rules database password")
	fs.StringVar(&opts.dbHost, "db-host", "", "Rules database host")
	fs.StringVar(&opts.dbName, "db-name", "", "Rules database name")
	fs.StringVar(&opts.dbFile, "db-file", "", "SQLite rules snapshot file")
	fs.StringVar(&opts.fabName, "fab-name", "", "Fabrication plant name to filter rules")
	fs.StringVar(&opts.srcCSV, "src-csv", "", "Source CIDR list CSV")
	fs.StringVar(&opts.dstCSV, "dst-csv", "", "Destination CIDR list CSV")
	fs.StringVar(&opts.ports, "ports", "", "Ports list file")
	fs.StringVar(&opts.out, "out", "", "Output CSV path")
	fs.StringVar(&opts.matchMode, "match-mode", string(engine.ModeSegment), "Address match mode (segment, sample-ip, expand, fuzzy)")
	fs.IntVar(&opts.maxHosts, "max-hosts", engine.DefaultMaxHosts, "Max hosts for expand mode")
	fs.BoolVar(&opts.ignoreSchedule, "ignore-schedule", false, "Ignore policy schedules")
	fs.IntVar(&opts.workers, "workers", 0, "Worker count (0=auto, 1=serial)")
	fs.StringVar(&opts.filterPolicyID, "filter-policy-id", "", "Only output results matching this policy ID")
	fs.StringVar(&opts.logLevel, "log-level", "info", "Logging verbosity (debug, info, warning, error, fatal)")
	fs.StringVar(&opts.logFile, "log-file", "", "Optional log file path (defaults to stderr)")
	fs.StringVar(&opts.profileDir, "profile", "", "Optional HCL run profile")
	fs.StringVar(&opts.metricsOut, "metrics-out", "", "Optional metrics textfile path")

	if err := fs.Parse(args); err != nil {
		return nil, errors.Wrap(err, errors.KindValidation, "parse flags")
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	return opts, nil
}

// applyProfile fills flag gaps from the run profile. Explicit flags win.
func applyProfile(opts *options, p *profile.Profile) {
	if p.MatchMode != "" && !opts.set["match-mode"] {
		opts.matchMode = p.MatchMode
	}
	if p.MaxHosts > 0 && !opts.set["max-hosts"] {
		opts.maxHosts = p.MaxHosts
	}
	if p.Workers != nil && !opts.set["workers"] {
		opts.workers = *p.Workers
	}
	if p.MetricsOut != "" && !opts.set["metrics-out"] {
		opts.metricsOut = p.MetricsOut
	}
	if p.Log != nil {
		if p.Log.Level != "" && !opts.set["log-level"] {
			opts.logLevel = p.Log.Level
		}
		if p.Log.File != "" && !opts.set["log-file"] {
			opts.logFile = p.Log.File
		}
	}
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fail(err)
	}
	if err := run(opts); err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(errors.ExitCode(err))
}

func run(opts *options) error {
	syslogCfg := logging.DefaultSyslogConfig()
	if opts.profileDir != "" {
		p, err := profile.Load(opts.profileDir)
		if err != nil {
			return err
		}
		applyProfile(opts, p)
		if p.Syslog != nil {
			syslogCfg = *p.Syslog
		}
	}

	logger, closeLog, err := logging.Setup(logging.Options{
		Level:  opts.logLevel,
		File:   opts.logFile,
		Syslog: syslogCfg,
		RunID:  uuid.NewString(),
	})
	if err != nil {
		return errors.Wrap(err, errors.KindValidation, "configure logging")
	}
	defer closeLog()

	logger.Info("starting static traffic analysis")

	if opts.maxHosts < 1 {
		return errors.New(errors.KindValidation, "max-hosts must be a positive integer")
	}
	modeName, err := engine.ParseMode(opts.matchMode)
	if err != nil {
		return errors.Wrap(err, errors.KindValidation, "match mode")
	}
	mode := engine.MatchMode{Mode: modeName, MaxHosts: opts.maxHosts}

	var missing []string
	for name, value := range map[string]string{
		"--src-csv": opts.srcCSV,
		"--dst-csv": opts.dstCSV,
		"--ports":   opts.ports,
		"--out":     opts.out,
	} {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return errors.Errorf(errors.KindValidation, "missing required flags: %s", strings.Join(missing, ", "))
	}

	data, err := loadRules(opts, logger)
	if err != nil {
		return err
	}

	srcRecords, err := probe.LoadSegments(opts.srcCSV)
	if err != nil {
		return err
	}
	dstRecords, err := probe.LoadSegments(opts.dstCSV)
	if err != nil {
		return err
	}
	ports, err := probe.LoadPorts(opts.ports)
	if err != nil {
		return err
	}
	logger.Info("loaded inputs",
		"sources", len(srcRecords),
		"destinations", len(dstRecords),
		"ports", len(ports),
		"policies", len(data.Policies),
	)

	// Resolve every group up front so the books are read-only in the
	// evaluation hot path and safe to share across workers.
	data.Addresses.FlattenAll()
	data.Services.FlattenAll()

	planner := probe.NewPlanner(srcRecords, dstRecords, ports, mode)

	simOpts := sim.Options{
		Workers:        opts.workers,
		FilterPolicyID: opts.filterPolicyID,
		OutPath:        opts.out,
	}
	if mode.Mode == engine.ModeFuzzy {
		simOpts.RoutablePath = filepath.Join(filepath.Dir(opts.out), "routable.csv")
	}
	if opts.metricsOut != "" {
		simOpts.Metrics = sim.NewMetrics()
	}

	summary, err := sim.Run(&sim.Context{
		Policies:       data.Policies,
		Addresses:      data.Addresses,
		Services:       data.Services,
		Mode:           mode,
		IgnoreSchedule: opts.ignoreSchedule,
	}, planner, simOpts, logger)
	if err != nil {
		logger.Error("simulation failed", "error", err)
		return err
	}

	logger.Info("wrote results",
		"path", opts.out,
		"probes", summary.Probes,
		"rows", summary.Rows,
		"workers", summary.Workers,
	)
	if simOpts.RoutablePath != "" {
		logger.Info("wrote routable results", "path", simOpts.RoutablePath, "rows", summary.Routable)
	}
	if simOpts.Metrics != nil {
		if err := simOpts.Metrics.WriteTextfile(opts.metricsOut); err != nil {
			return err
		}
	}
	return nil
}

// loadRules selects and runs exactly one ingest adapter.
func loadRules(opts *options, logger *logging.Logger) (*ingest.Data, error) {
	dbSelected := opts.dbUser != "" || opts.dbPassword != "" || opts.dbHost != "" ||
		opts.dbName != "" || opts.dbFile != ""

	selected := 0
	for _, chosen := range []bool{opts.configPath != "", opts.excelPath != "", dbSelected} {
		if chosen {
			selected++
		}
	}
	if selected != 1 {
		return nil, errors.New(errors.KindValidation,
			"specify exactly one of --config, --excel, or the database flags")
	}

	switch {
	case opts.configPath != "":
		f, err := os.Open(opts.configPath)
		if err != nil {
			return nil, errors.Wrapf(err, errors.KindIngest, "open config %s", opts.configPath)
		}
		defer f.Close()
		return ingest.ParseFortiGate(f, logger)

	case opts.excelPath != "":
		return ingest.ParseExcel(opts.excelPath, logger)

	default:
		if opts.dbFile == "" {
			var missing []string
			for name, value := range map[string]string{
				"--db-user":     opts.dbUser,
				"--db-password": opts.dbPassword,
				"--db-host":     opts.dbHost,
				"--db-name":     opts.dbName,
			} {
				if value == "" {
					missing = append(missing, name)
				}
			}
			if len(missing) > 0 {
				sort.Strings(missing)
				return nil, errors.Errorf(errors.KindValidation,
					"missing required database flags: %s", strings.Join(missing, ", "))
			}
		}
		return ingest.ParseDB(ingest.DBConfig{
			User:     opts.dbUser,
			Password: opts.dbPassword,
			Host:     opts.dbHost,
			Name:     opts.dbName,
			File:     opts.dbFile,
			FabName:  opts.fabName,
		}, logger)
	}
}
