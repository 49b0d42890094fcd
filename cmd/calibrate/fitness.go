package main

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"github.com/pthm-cable/photovore/catalog"
	"github.com/pthm-cable/photovore/config"
	"github.com/pthm-cable/photovore/sim"
)

// extinctionPenalty is subtracted from a run's score for every
// extinction it records. Large enough that any surviving configuration
// outscores any collapsed one.
const extinctionPenalty = 1e6

// FitnessEvaluator runs headless simulations and scores parameter
// vectors for the optimizer (lower = better).
type FitnessEvaluator struct {
	params         *ParamVector
	maxGenerations int
	seeds          []int64
	baseConfig     *config.Config

	// Best eval tracking
	mu          sync.Mutex
	bestScore   float64
	lastExtinct int // seeds that collapsed in the most recent Evaluate
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxGenerations int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:         params,
		maxGenerations: maxGenerations,
		seeds:          seeds,
		baseConfig:     baseCfg,
		bestScore:      math.Inf(1),
	}
}

// LastExtinct returns how many seed runs went extinct in the most
// recent evaluation.
func (fe *FitnessEvaluator) LastExtinct() int {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastExtinct
}

// seedResult holds the outcome of one seed run.
type seedResult struct {
	score   float64
	extinct bool
}

// Evaluate computes the objective for a parameter vector: negative
// mean best-fitness across all seeds, with extinctions penalized.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	// Run all seeds in parallel
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			score, extinct := fe.runSimulation(x, s)
			results[idx] = seedResult{score: score, extinct: extinct}
		}(i, seed)
	}
	wg.Wait()

	var total float64
	var extinct int
	for _, r := range results {
		total += r.score
		if r.extinct {
			extinct++
		}
	}

	// Higher mean score is better; the optimizer minimizes.
	objective := -total / float64(len(fe.seeds))

	fe.mu.Lock()
	if objective < fe.bestScore {
		fe.bestScore = objective
	}
	fe.lastExtinct = extinct
	fe.mu.Unlock()

	return objective
}

// runSimulation executes one headless run and returns its score: the
// best generation fitness it reached, minus the extinction penalty for
// every collapse.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) (float64, bool) {
	cfg := fe.scenarioConfig()
	ov := fe.params.ApplyToScenario(cfg, x)

	resolved, issues, err := catalog.Resolve(catalog.Default(), ov)
	if err != nil {
		slog.Error("calibration catalog rejected", "seed", seed, "error", err)
		return -2 * extinctionPenalty, true
	}
	for _, issue := range issues {
		slog.Error("calibration override rejected", "seed", seed, "issue", issue.String())
	}
	resolved.ApplyBaseLoad(cfg.Load.BaseLoadW)

	engine, err := sim.NewEngine(cfg, resolved, seed)
	if err != nil {
		slog.Error("calibration engine failed", "seed", seed, "error", err)
		return -2 * extinctionPenalty, true
	}
	defer engine.Close()

	if err := engine.Run(context.Background()); err != nil {
		slog.Error("calibration run failed", "seed", seed, "error", err)
		return -2 * extinctionPenalty, true
	}

	score := engine.BestFitness() - extinctionPenalty*float64(engine.Extinctions())
	return score, engine.Extinctions() > 0
}

// scenarioConfig builds a private config for one run: the base
// scenario with file sinks disabled, a bounded generation count, and
// halt-on-extinction so a collapsed run stops immediately.
func (fe *FitnessEvaluator) scenarioConfig() *config.Config {
	// Load fresh defaults and copy base values
	cfg, _ := config.Load("")

	cfg.Simulation = fe.baseConfig.Simulation
	cfg.Grid = fe.baseConfig.Grid
	cfg.Battery = fe.baseConfig.Battery
	cfg.Solar = fe.baseConfig.Solar
	cfg.Load = fe.baseConfig.Load
	cfg.Evolution = fe.baseConfig.Evolution
	cfg.Genesis = fe.baseConfig.Genesis
	cfg.Hardware = fe.baseConfig.Hardware
	cfg.Telemetry = fe.baseConfig.Telemetry
	cfg.Derived = fe.baseConfig.Derived

	cfg.Simulation.MaxGenerations = fe.maxGenerations
	cfg.Simulation.OnExtinction = config.OnExtinctionHalt

	// Calibration runs are measured through the engine, not files.
	cfg.Telemetry.StatsCSV = ""
	cfg.Telemetry.GenerationCSV = ""
	cfg.Telemetry.SnapshotPath = ""
	cfg.Telemetry.HistoryDSN = ""

	return cfg
}
