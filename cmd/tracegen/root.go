package main

import (
	"io"
	"strconv"

	"github.com/YuminosukeSato/tracegen/pkg/config"
	"github.com/YuminosukeSato/tracegen/pkg/errors"
	"github.com/YuminosukeSato/tracegen/pkg/log"
	"github.com/YuminosukeSato/tracegen/pkg/telemetry"
	"github.com/YuminosukeSato/tracegen/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// app carries state shared by the subcommands of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	flags      flagValues

	cfg     *config.Config
	logger  log.Logger
	metrics *telemetry.Metrics
	runID   string
}

// flagValues holds global flags; they override the configuration only when
// set on the command line.
type flagValues struct {
	store       string
	logLevel    string
	logFormat   string
	seed        uint64
	workers     int
	metricsFile string
	plotDir     string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "tracegen",
		Short:         "Model grouped job traces and synthesize look-alike datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.metrics.WriteTextfile(a.cfg.Report.MetricsFile)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&a.flags.store, "store", "", "distribution store backend: array, table or sqlite")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.StringVar(&a.flags.logFormat, "log-format", "", "log format: console or json")
	pf.Uint64Var(&a.flags.seed, "seed", 0, "random seed of the synthesis streams")
	pf.IntVar(&a.flags.workers, "workers", 0, "groups processed concurrently (0: one per CPU)")
	pf.StringVar(&a.flags.metricsFile, "metrics-file", "", "write Prometheus metrics to this file")
	pf.StringVar(&a.flags.plotDir, "plot-dir", "", "write per-group comparison plots here during validate")

	root.AddCommand(newExtractCmd(a), newSimulateCmd(a), newValidateCmd(a))
	return root
}

// setup loads the configuration, applies flags and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	pf := cmd.Flags()
	if pf.Changed("store") {
		cfg.Store.Backend = a.flags.store
	}
	if pf.Changed("log-level") {
		cfg.Log.Level = a.flags.logLevel
	}
	if pf.Changed("log-format") {
		cfg.Log.Format = a.flags.logFormat
	}
	if pf.Changed("seed") {
		cfg.Simulate.Seed = a.flags.seed
	}
	if pf.Changed("workers") {
		cfg.Simulate.Workers = a.flags.workers
	}
	if pf.Changed("metrics-file") {
		cfg.Report.MetricsFile = a.flags.metricsFile
	}
	if pf.Changed("plot-dir") {
		cfg.Report.PlotDir = a.flags.plotDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	var logger log.Logger
	if cfg.Log.Format == "json" {
		sl := log.NewSlogLogger(a.stderr, level)
		errors.SetWarningHandler(func(w error) { sl.Warn("Warning", w) })
		logger = sl
	} else {
		zl := log.NewZerologLogger(a.stderr, level, true)
		zl.InstallWarningSink()
		logger = zl
	}

	a.runID = uuid.NewString()
	a.logger = logger.With(log.RunIDKey, a.runID)
	if cfg.Report.MetricsFile != "" {
		a.metrics = telemetry.New()
	}
	a.logger.Debug("Configuration loaded",
		log.BackendKey, cfg.Store.Backend,
		log.RandomSeedKey, cfg.Simulate.Seed,
		log.WorkersKey, cfg.Simulate.Workers,
	)
	return nil
}

// openStore opens the configured backend rooted at dir.
func (a *app) openStore(dir string, create bool) (store.Store, error) {
	kind, err := store.ParseKind(a.cfg.Store.Backend)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(kind, dir, create)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Store opened", log.BackendKey, string(kind), log.PathKey, dir)
	return st, nil
}

func parseCount(name, s string, min int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < min {
		return 0, errors.NewValidationError(name, "must be an integer >= "+strconv.Itoa(min), s)
	}
	return n, nil
}
