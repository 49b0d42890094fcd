// Package sim owns the ECS world and drives the simulation: per-tick
// parallel physics, generation turnover and telemetry output.
package sim

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/google/uuid"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/photovore/catalog"
	"github.com/pthm-cable/photovore/components"
	"github.com/pthm-cable/photovore/config"
	"github.com/pthm-cable/photovore/evolution"
	"github.com/pthm-cable/photovore/telemetry"
)

// Engine holds the complete simulation state.
type Engine struct {
	world *ecs.World
	rng   *rand.Rand
	seed  int64

	cfg      *config.Config
	resolved *catalog.Resolved

	clock *Clock
	evo   *evolution.Engine
	tiers *tierPicker

	// Entity mappers over the five node components
	nodeMapper *ecs.Map5[
		components.Position,
		components.Battery,
		components.Gene,
		components.Activity,
		components.NodeInfo,
	]
	nodeFilter *ecs.Filter5[
		components.Position,
		components.Battery,
		components.Gene,
		components.Activity,
		components.NodeInfo,
	]

	// Individual component mappers for write-back after the parallel phase
	batMap *ecs.Map1[components.Battery]
	actMap *ecs.Map1[components.Activity]

	parallel *parallelState

	// Telemetry sinks; output and history may be disabled
	runID     string
	collector *telemetry.Collector
	output    *telemetry.Output
	history   *telemetry.History

	// State
	nextID      uint32
	aliveCount  int
	deadCount   int
	halted      bool
	bestFitness float64
	extinctions int
}

// NewEngine builds a world from the scenario configuration and the
// resolved catalog and spawns generation zero.
func NewEngine(cfg *config.Config, resolved *catalog.Resolved, seed int64) (*Engine, error) {
	evo, err := evolution.NewEngine(cfg.Evolution, resolved.ModelIDs())
	if err != nil {
		return nil, err
	}

	tiers, err := newTierPicker(cfg.Hardware.Mix, resolved)
	if err != nil {
		return nil, err
	}

	output, err := telemetry.NewOutput(cfg.Telemetry.StatsCSV, cfg.Telemetry.GenerationCSV)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	history, err := telemetry.OpenHistory(cfg.Telemetry.HistoryDSN, runID, seed, resolved.Version())
	if err != nil {
		output.Close()
		return nil, err
	}

	world := ecs.NewWorld()

	e := &Engine{
		world:    world,
		rng:      rand.New(rand.NewSource(seed)),
		seed:     seed,
		cfg:      cfg,
		resolved: resolved,
		clock:    NewClock(cfg.Simulation, cfg.Derived.TicksPerGeneration),
		evo:      evo,
		tiers:    tiers,
		nodeMapper: ecs.NewMap5[
			components.Position,
			components.Battery,
			components.Gene,
			components.Activity,
			components.NodeInfo,
		](world),
		nodeFilter: ecs.NewFilter5[
			components.Position,
			components.Battery,
			components.Gene,
			components.Activity,
			components.NodeInfo,
		](world),
		batMap:    ecs.NewMap1[components.Battery](world),
		actMap:    ecs.NewMap1[components.Activity](world),
		parallel:  newParallelState(),
		runID:     runID,
		collector: telemetry.NewCollector(cfg.Telemetry.WindowTicks),
		output:    output,
		history:   history,
		nextID:    1, // parent id 0 marks a founder
	}

	e.spawnFounders()

	return e, nil
}

// RunID returns the run identifier shared by every telemetry sink.
func (e *Engine) RunID() string { return e.runID }

// Seed returns the RNG seed the engine was built with.
func (e *Engine) Seed() int64 { return e.seed }

// Tick returns the current simulation tick.
func (e *Engine) Tick() int64 { return e.clock.Tick() }

// Generation returns the current generation number.
func (e *Engine) Generation() uint32 { return e.clock.Generation() }

// Alive returns the number of live nodes.
func (e *Engine) Alive() int { return e.aliveCount }

// Dead returns the cumulative death count for the run.
func (e *Engine) Dead() int { return e.deadCount }

// BestFitness returns the highest boundary fitness seen so far.
func (e *Engine) BestFitness() float64 { return e.bestFitness }

// Extinctions returns how many boundaries found no survivors.
func (e *Engine) Extinctions() int { return e.extinctions }

// Close stops the worker pool and closes the telemetry sinks.
func (e *Engine) Close() error {
	e.parallel.stopWorkers()

	var firstErr error
	if err := e.output.Close(); err != nil {
		firstErr = err
	}
	if err := e.history.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// tierPicker assigns hardware tiers by configured spawn weight. Tier
// order is fixed at construction so assignment is reproducible under
// a fixed seed.
type tierPicker struct {
	ids        []string
	cumWeights []float64
	total      float64
}

// newTierPicker validates the configured mix against the resolved
// catalog. An empty mix disables tiers (nil picker).
func newTierPicker(mix map[string]float64, resolved *catalog.Resolved) (*tierPicker, error) {
	if len(mix) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(mix))
	for id := range mix {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	p := &tierPicker{}
	for _, id := range ids {
		if _, ok := resolved.Tier(id); !ok {
			return nil, fmt.Errorf("hardware.mix references unknown tier %q", id)
		}
		w := mix[id]
		if w <= 0 {
			continue
		}
		p.total += w
		p.ids = append(p.ids, id)
		p.cumWeights = append(p.cumWeights, p.total)
	}
	if p.total <= 0 {
		return nil, fmt.Errorf("hardware.mix has no positive weights")
	}
	return p, nil
}

// pick draws a tier id by weight. Nil picker means tiers are disabled.
func (p *tierPicker) pick(rng *rand.Rand) string {
	if p == nil {
		return ""
	}
	r := rng.Float64() * p.total
	for i, cw := range p.cumWeights {
		if r < cw {
			return p.ids[i]
		}
	}
	return p.ids[len(p.ids)-1]
}
