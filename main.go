package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pthm-cable/photovore/catalog"
	"github.com/pthm-cable/photovore/config"
	"github.com/pthm-cable/photovore/sim"
	"github.com/pthm-cable/photovore/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to scenario YAML (empty = embedded defaults)")
	modelCSV := flag.String("models", "", "Path to model override CSV")
	solarCSV := flag.String("solar", "", "Path to solar override CSV")
	seed := flag.Int64("seed", 0, "RNG seed (0 = config, then time-based)")
	maxGenerations := flag.Int("max-generations", -1, "Stop after N generations (-1 = use config)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	if *maxGenerations >= 0 {
		cfg.Simulation.MaxGenerations = *maxGenerations
	}

	// Resolve the parameter catalog against optional override files.
	// Unreadable files are fatal; rejected cells fall back to defaults.
	var sets []*catalog.Overrides
	if *modelCSV != "" {
		ov, issues, err := catalog.LoadModelOverrides(*modelCSV)
		if err != nil {
			slog.Error("failed to load model overrides", "path", *modelCSV, "error", err)
			os.Exit(1)
		}
		logIssues(issues)
		sets = append(sets, ov)
	}
	if *solarCSV != "" {
		ov, issues, err := catalog.LoadSolarOverrides(*solarCSV)
		if err != nil {
			slog.Error("failed to load solar overrides", "path", *solarCSV, "error", err)
			os.Exit(1)
		}
		logIssues(issues)
		sets = append(sets, ov)
	}

	resolved, issues, err := catalog.Resolve(catalog.Default(), sets...)
	if err != nil {
		slog.Error("failed to resolve catalog", "error", err)
		os.Exit(1)
	}
	logIssues(issues)
	resolved.ApplyBaseLoad(cfg.Load.BaseLoadW)

	// Set up seed
	rngSeed := cfg.Simulation.Seed
	if *seed != 0 {
		rngSeed = *seed
	}
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	engine, err := sim.NewEngine(cfg, resolved, rngSeed)
	if err != nil {
		slog.Error("failed to build engine", "error", err)
		os.Exit(1)
	}

	slog.Info("starting simulation",
		"run_id", engine.RunID(),
		"seed", rngSeed,
		"catalog", resolved.Version(),
		"population", cfg.Derived.PopulationSize,
		"ticks_per_generation", cfg.Derived.TicksPerGeneration,
		"max_generations", cfg.Simulation.MaxGenerations,
	)

	// A clean stop happens between ticks.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := engine.Run(ctx)

	slog.Info("simulation stopped",
		"tick", engine.Tick(),
		"generation", engine.Generation(),
		"alive", engine.Alive(),
		"dead", engine.Dead(),
		"best_fitness", engine.BestFitness(),
		"extinctions", engine.Extinctions(),
	)

	if err := engine.Close(); err != nil {
		slog.Error("failed to close telemetry sinks", "error", err)
	}
	if runErr != nil {
		slog.Error("simulation failed", "error", runErr)
		os.Exit(1)
	}
}

// logIssues reports every rejected override cell. The affected fields
// already fell back to catalog defaults.
func logIssues(issues []catalog.OverrideIssue) {
	for _, issue := range issues {
		slog.Warn("override rejected",
			"event", telemetry.NewOverrideFallbackEvent(issue.String()),
		)
	}
}
