package sim

import (
	"context"
	"log/slog"

	"github.com/pthm-cable/photovore/config"
	"github.com/pthm-cable/photovore/systems"
	"github.com/pthm-cable/photovore/telemetry"
)

// Step advances the simulation by one tick: sample the sun, update
// every node, then handle whatever the new tick number triggers.
func (e *Engine) Step() error {
	sample := systems.SampleAt(e.resolved.Solar(), e.clock.HourOfDay())

	if err := e.updateNodes(sample); err != nil {
		return err
	}

	boundary := e.clock.Advance()

	if e.cfg.Simulation.Cull == config.CullImmediate {
		e.cullDead()
	}

	// Flush before the boundary turnover so window rows sample the
	// cohort that lived through the window, not its replacement.
	e.flushTelemetry()

	if boundary {
		if err := e.processGeneration(); err != nil {
			return err
		}
	}

	e.maybeSnapshot()
	return nil
}

// updateNodes runs the physics tick across the grid. Work is split
// into snapshot, compute and apply phases so the compute phase can
// fan out across cores without touching the world.
func (e *Engine) updateNodes(sample systems.Sample) error {
	dt := e.cfg.Simulation.TickSeconds

	// Phase A: snapshot live nodes (single-threaded ECS reads)
	n := e.snapshotNodes()
	if n == 0 {
		e.collector.RecordTick(telemetry.TickSample{Alive: e.aliveCount})
		return nil
	}

	// Phase B: compute new states (parallel, pure)
	if n < parallelThreshold {
		if err := e.computeChunk(0, n, sample, dt); err != nil {
			return err
		}
	} else {
		if err := e.computeParallel(n, sample, dt); err != nil {
			return err
		}
	}

	// Phase C: apply intents (single-threaded ECS writes)
	e.applyIntents()
	return nil
}

// snapshotNodes copies every live node's state into the parallel
// buffers and sizes the intent slice to match. Returns the node count.
func (e *Engine) snapshotNodes() int {
	e.parallel.snapshots = e.parallel.snapshots[:0]

	query := e.nodeFilter.Query()
	for query.Next() {
		_, bat, gene, act, info := query.Get()
		if bat.Dead {
			continue
		}
		model, ok := e.resolved.Model(gene.Model)
		if !ok {
			continue
		}
		tierCapW := 0.0
		if info.Tier != "" {
			if tier, ok := e.resolved.Tier(info.Tier); ok {
				tierCapW = tier.MaxSolarInputW
			}
		}
		e.parallel.snapshots = append(e.parallel.snapshots, nodeSnapshot{
			Entity:   query.Entity(),
			ID:       info.ID,
			Bat:      *bat,
			Act:      *act,
			Gene:     *gene,
			Model:    model,
			TierCapW: tierCapW,
		})
	}

	n := len(e.parallel.snapshots)
	if cap(e.parallel.intents) < n {
		e.parallel.intents = make([]nodeIntent, n)
	}
	e.parallel.intents = e.parallel.intents[:n]
	return n
}

// applyIntents writes computed states back to the world and folds the
// tick's deltas into the telemetry window.
func (e *Engine) applyIntents() {
	var agg telemetry.TickSample

	for i := range e.parallel.snapshots {
		snap := &e.parallel.snapshots[i]
		intent := &e.parallel.intents[i]

		bat := e.batMap.Get(snap.Entity)
		act := e.actMap.Get(snap.Entity)
		if bat == nil || act == nil {
			continue
		}

		agg.HarvestedWh += intent.Act.HarvestedWh - snap.Act.HarvestedWh
		agg.ConsumedWh += intent.Act.ConsumedWh - snap.Act.ConsumedWh
		agg.Inferences += intent.Act.Inferences - snap.Act.Inferences
		agg.UsefulWork += intent.Act.UsefulWork - snap.Act.UsefulWork

		*bat = intent.Bat
		*act = intent.Act

		if intent.Bat.Dead {
			e.aliveCount--
			e.deadCount++
			e.collector.RecordDeath()
			slog.Debug("node died",
				"event", telemetry.NewDeathEvent(e.clock.Tick(), e.clock.Generation(), snap.ID, snap.Gene.Model),
			)
		}
	}

	agg.Alive = e.aliveCount
	e.collector.RecordTick(agg)
}

// Run steps the simulation until the context is cancelled, the
// generation limit is reached, or an extinction halt fires. A final
// snapshot is written on every clean stop.
func (e *Engine) Run(ctx context.Context) error {
	maxGen := e.cfg.Simulation.MaxGenerations

	for {
		select {
		case <-ctx.Done():
			e.saveSnapshot()
			return nil
		default:
		}

		if e.halted {
			e.saveSnapshot()
			return nil
		}
		if maxGen > 0 && e.clock.Generation() >= uint32(maxGen) {
			e.saveSnapshot()
			return nil
		}

		if err := e.Step(); err != nil {
			return err
		}
	}
}
