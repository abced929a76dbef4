// Command mrlopt runs one magnetic reference layer optimization from a
// problem file and prints the run summary as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/observability"
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/problem"
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/solver"
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/pkg/config"
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/pkg/logger"
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/pkg/utils"
)

type options struct {
	configPath  string
	solver      string
	objective   string
	direction   string
	budget      int
	seed        int64
	seedSet     bool
	parallelism int
	checkpoint  string
	logLevel    string
	logFormat   string
	output      string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "mrlopt:", err)
		os.Exit(1)
	}
}

func run() error {
	// a missing .env file is fine
	_ = godotenv.Load()

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		return err
	}

	file, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	applyOverrides(&file.Solver, opts)

	level := file.LogLevel
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	log := logger.NewFormat(opts.logFormat, level, os.Stderr)
	logger.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv("mrlopt"), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	p, err := problem.NewFromFile(file)
	if err != nil {
		return err
	}
	settings, err := solver.SettingsFromConfig(file.Solver)
	if err != nil {
		return err
	}

	runLog := logger.ForRun(utils.GenerateRunID(), string(settings.Kind))
	runner, err := settings.NewRunner(p, runLog, solver.NewLoggingCallback(runLog, max(settings.Budget/20, 1)))
	if err != nil {
		return err
	}

	logger.Info("starting optimization",
		"problem", p.Name(),
		"solver", string(settings.Kind),
		"objective", settings.Objective,
		"budget", settings.Budget)
	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("optimization finished",
		"n_evals", result.NEvals,
		"best_value", result.BestValue,
		"stop_reason", result.Metadata[solver.MetaStopReason])

	return writeSummary(opts.output, result.Summary())
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("mrlopt", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", envOr("MRLOPT_CONFIG", "config/mrl.yaml"), "problem file (YAML or JSON)")
	fs.StringVar(&opts.solver, "solver", "", "solver kind override (random, grid)")
	fs.StringVar(&opts.objective, "objective", "", "objective override (TSF, SFM_up, SFM_down, MCF)")
	fs.StringVar(&opts.direction, "direction", "", "direction override (maximize, minimize)")
	fs.IntVar(&opts.budget, "budget", 0, "evaluation budget override")
	fs.Int64Var(&opts.seed, "seed", 0, "random seed override")
	fs.IntVar(&opts.parallelism, "parallelism", 0, "concurrent evaluations override")
	fs.StringVar(&opts.checkpoint, "checkpoint", "", "checkpoint file written during the run")
	fs.StringVar(&opts.logLevel, "log-level", os.Getenv("MRLOPT_LOG_LEVEL"), "log level (debug, info, warn, error)")
	fs.StringVar(&opts.logFormat, "log-format", envOr("MRLOPT_LOG_FORMAT", "text"), "log format (text, json)")
	fs.StringVar(&opts.output, "out", "", "write the summary to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			opts.seedSet = true
		}
	})
	if !opts.seedSet {
		if raw := os.Getenv("MRLOPT_SEED"); raw != "" {
			seed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid MRLOPT_SEED %q: %w", raw, err)
			}
			opts.seed, opts.seedSet = seed, true
		}
	}
	return opts, nil
}

func applyOverrides(sc *config.Solver, opts *options) {
	if opts.solver != "" {
		sc.Kind = opts.solver
	}
	if opts.objective != "" {
		sc.Objective = opts.objective
	}
	if opts.direction != "" {
		sc.Direction = opts.direction
	}
	if opts.budget > 0 {
		sc.Budget = opts.budget
	}
	if opts.seedSet {
		sc.Seed = opts.seed
	}
	if opts.parallelism > 0 {
		sc.Parallelism = opts.parallelism
	}
	if opts.checkpoint != "" {
		sc.Checkpoint = opts.checkpoint
	}
}

func writeSummary(path string, summary map[string]any) error {
	var w io.Writer = os.Stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
