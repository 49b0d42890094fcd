package sim

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/photovore/components"
	"github.com/pthm-cable/photovore/config"
	"github.com/pthm-cable/photovore/evolution"
	"github.com/pthm-cable/photovore/systems"
	"github.com/pthm-cable/photovore/telemetry"
)

// spawnFounders fills every grid slot with a generation-zero node
// drawn from the genesis distribution.
func (e *Engine) spawnFounders() {
	n := e.cfg.Derived.PopulationSize
	models := e.resolved.ModelIDs()

	for i := 0; i < n; i++ {
		gene := evolution.Founder(e.rng, e.cfg.Genesis, models)
		e.spawnNode(i, gene, e.clock.Generation(), 0)
	}
}

// spawnNode creates one node at the given grid slot.
func (e *Engine) spawnNode(slot int, gene components.Gene, generation, parentID uint32) ecs.Entity {
	id := e.nextID
	e.nextID++

	pos := systems.GridSlot(slot, e.cfg.Grid.Width, e.cfg.Grid.Spacing)

	capacity := e.cfg.Battery.CapacityWh
	tierID := e.tiers.pick(e.rng)
	if tierID != "" {
		if tier, ok := e.resolved.Tier(tierID); ok {
			capacity = tier.CapacityWh
		}
	}

	bat := components.Battery{
		CapacityWh: capacity,
		ChargeWh:   capacity * e.cfg.Battery.InitialCharge,
	}
	act := components.Activity{}
	info := components.NodeInfo{ID: id, Generation: generation, ParentID: parentID, Tier: tierID}

	entity := e.nodeMapper.NewEntity(&pos, &bat, &gene, &act, &info)
	e.aliveCount++
	e.collector.RecordBirth()

	return entity
}

// cullDead removes dead nodes from the world. Runs every tick under
// the immediate policy; the deferred policy leaves them in place until
// the generation boundary.
func (e *Engine) cullDead() {
	// First pass: collect dead entities (must complete before modifying)
	var toRemove []ecs.Entity

	query := e.nodeFilter.Query()
	for query.Next() {
		_, bat, _, _, _ := query.Get()
		if bat.Dead {
			toRemove = append(toRemove, query.Entity())
		}
	}

	// Second pass: remove entities (query iteration complete)
	for _, entity := range toRemove {
		e.nodeMapper.Remove(entity)
	}
}

// despawnAll clears the grid ahead of the next cohort.
func (e *Engine) despawnAll() {
	var toRemove []ecs.Entity

	query := e.nodeFilter.Query()
	for query.Next() {
		toRemove = append(toRemove, query.Entity())
	}

	for _, entity := range toRemove {
		e.nodeMapper.Remove(entity)
	}
	e.aliveCount = 0
}

// collectResults gathers every remaining node's outcome for the
// breeding pool. Dead nodes are included and marked; the evolution
// engine excludes them from selection.
func (e *Engine) collectResults() []evolution.NodeResult {
	results := make([]evolution.NodeResult, 0, e.aliveCount)

	query := e.nodeFilter.Query()
	for query.Next() {
		_, bat, gene, act, info := query.Get()
		results = append(results, evolution.NodeResult{
			ID:       info.ID,
			Gene:     *gene,
			Dead:     bat.Dead,
			Activity: *act,
		})
	}
	return results
}

// processGeneration runs the evolutionary pass at a boundary: score
// the completed cohort, breed the next one, replace the whole grid.
func (e *Engine) processGeneration() error {
	completed := e.clock.Generation()
	endTick := e.clock.Tick()

	results := e.collectResults()
	n := e.cfg.Derived.PopulationSize

	children, ranked, err := e.evo.NextGeneration(e.rng, results, n)
	if errors.Is(err, evolution.ErrExtinction) {
		e.handleExtinction(completed, endTick)
		return nil
	}
	if err != nil {
		return fmt.Errorf("generation %d turnover: %w", completed, err)
	}

	stats := e.generationStats(completed, endTick, ranked)
	if stats.BestFitness > e.bestFitness {
		e.bestFitness = stats.BestFitness
	}
	e.recordGeneration(stats)
	slog.Debug("generation complete", "event", telemetry.NewGenerationEvent(endTick, completed))

	e.despawnAll()
	e.clock.NextGeneration()
	for i, child := range children {
		e.spawnNode(i, child.Gene, e.clock.Generation(), child.ParentID)
	}
	return nil
}

// handleExtinction records a boundary with no survivors and applies
// the configured response.
func (e *Engine) handleExtinction(completed uint32, endTick int64) {
	e.extinctions++

	pop := e.cfg.Derived.PopulationSize
	stats := telemetry.GenerationStats{
		RunID:      e.runID,
		Generation: completed,
		EndTick:    endTick,
		Population: pop,
		Deaths:     pop,
		Extinct:    true,
	}
	e.recordGeneration(stats)
	slog.Warn("population extinct",
		"event", telemetry.NewExtinctionEvent(endTick, completed),
		"on_extinction", e.cfg.Simulation.OnExtinction,
	)

	switch e.cfg.Simulation.OnExtinction {
	case config.OnExtinctionHalt:
		e.halted = true
	case config.OnExtinctionReseed:
		e.despawnAll()
		e.clock.NextGeneration()
		e.spawnFounders()
	case config.OnExtinctionContinue:
		e.despawnAll()
		e.clock.NextGeneration()
	}
}
