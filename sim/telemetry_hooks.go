package sim

import (
	"log/slog"

	"github.com/pthm-cable/photovore/evolution"
	"github.com/pthm-cable/photovore/telemetry"
)

// flushTelemetry emits a window row when the window is full.
func (e *Engine) flushTelemetry() {
	if !e.collector.ShouldFlush(e.clock.Tick()) {
		return
	}

	chargeRatios, fitnesses := e.sampleDistributions()
	stats := e.collector.Flush(
		e.clock.Tick(),
		e.clock.SimSeconds(),
		e.clock.Generation(),
		chargeRatios, fitnesses,
	)

	stats.LogStats()
	if err := e.output.WriteStats(stats); err != nil {
		slog.Error("failed to write stats row", "error", err)
	}
}

// sampleDistributions reads the live population's charge ratios and
// fitness scores for end-of-window percentiles.
func (e *Engine) sampleDistributions() (chargeRatios, fitnesses []float64) {
	w := e.cfg.Evolution.Fitness

	query := e.nodeFilter.Query()
	for query.Next() {
		_, bat, _, act, _ := query.Get()
		if bat.Dead {
			continue
		}
		chargeRatios = append(chargeRatios, bat.ChargeRatio())
		fitnesses = append(fitnesses, evolution.Score(act, w.SurvivalWeight, w.WorkWeight))
	}
	return chargeRatios, fitnesses
}

// generationStats builds the boundary row from the ranked pool.
func (e *Engine) generationStats(completed uint32, endTick int64, ranked []evolution.ScoredNode) telemetry.GenerationStats {
	pop := e.cfg.Derived.PopulationSize

	stats := telemetry.GenerationStats{
		RunID:      e.runID,
		Generation: completed,
		EndTick:    endTick,
		Population: pop,
		Survivors:  len(ranked),
		Deaths:     pop - len(ranked),
		Extinct:    len(ranked) == 0,
	}
	if len(ranked) == 0 {
		return stats
	}

	stats.BestFitness = ranked[0].Fitness

	sum := 0.0
	models := make([]string, len(ranked))
	for i, s := range ranked {
		sum += s.Fitness
		models[i] = s.Gene.Model
	}
	stats.MeanFitness = sum / float64(len(ranked))
	stats.DominantModel = telemetry.DominantModel(models)

	return stats
}

// recordGeneration routes one boundary row to every enabled sink.
func (e *Engine) recordGeneration(stats telemetry.GenerationStats) {
	stats.LogStats()
	if err := e.output.WriteGeneration(stats); err != nil {
		slog.Error("failed to write generation row", "error", err)
	}
	e.history.RecordGeneration(stats)
}

// maybeSnapshot writes the renderer snapshot on its cadence. Runs
// after boundary turnover so a consumer always sees the newest cohort.
func (e *Engine) maybeSnapshot() {
	every := e.cfg.Telemetry.SnapshotEvery
	if e.cfg.Telemetry.SnapshotPath == "" || every <= 0 {
		return
	}
	if e.clock.Tick()%int64(every) == 0 {
		e.saveSnapshot()
	}
}

// saveSnapshot writes the current world state, replacing any previous
// snapshot. A write failure is logged, never fatal.
func (e *Engine) saveSnapshot() {
	path := e.cfg.Telemetry.SnapshotPath
	if path == "" {
		return
	}

	snap := e.buildSnapshot()
	if err := telemetry.SaveSnapshot(snap, path); err != nil {
		slog.Error("failed to save snapshot", "error", err, "path", path)
		return
	}
	slog.Debug("snapshot saved", "tick", snap.Tick, "nodes", len(snap.Nodes), "path", path)
}

// buildSnapshot captures every node still in the world, dead ones
// included so a consumer can show bodies under the deferred policy.
func (e *Engine) buildSnapshot() *telemetry.Snapshot {
	snap := &telemetry.Snapshot{
		Version:    telemetry.SnapshotVersion,
		RunID:      e.runID,
		Seed:       e.seed,
		Tick:       e.clock.Tick(),
		Generation: e.clock.Generation(),
		HourOfDay:  e.clock.HourOfDay(),
	}

	query := e.nodeFilter.Query()
	for query.Next() {
		pos, bat, gene, act, info := query.Get()
		snap.Nodes = append(snap.Nodes, telemetry.NodeState{
			ID:         info.ID,
			Col:        pos.Col,
			Row:        pos.Row,
			X:          pos.X,
			Y:          pos.Y,
			Tier:       info.Tier,
			Model:      gene.Model,
			Policy:     gene.Policy.String(),
			ChargeWh:   bat.ChargeWh,
			CapacityWh: bat.CapacityWh,
			Dead:       bat.Dead,
			AgeSeconds: act.AgeSeconds,
			UsefulWork: act.UsefulWork,
		})
	}

	return snap
}
