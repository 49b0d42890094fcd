package sim

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/pthm-cable/photovore/catalog"
	"github.com/pthm-cable/photovore/config"
	"github.com/pthm-cable/photovore/systems"
	"github.com/pthm-cable/photovore/telemetry"
)

// heaterConfig pairs the heater catalog with a battery that dies at
// exactly tick 8: 0.5 Wh full at spawn, 0.0625 Wh drained per tick.
func heaterConfig(t *testing.T, mutate func(*config.Config)) *config.Config {
	t.Helper()
	return buildConfig(t, func(c *config.Config) {
		c.Battery.CapacityWh = 0.5
		c.Battery.InitialCharge = 1
		if mutate != nil {
			mutate(c)
		}
	})
}

// ---------- Death and culling ----------

func TestStep_AnalyticDeathTick(t *testing.T) {
	cfg := heaterConfig(t, nil)
	e := newTestEngine(t, cfg, heaterCatalog())

	stepN(t, e, 7)
	if e.Alive() != 9 || e.Dead() != 0 {
		t.Fatalf("after 7 ticks: alive %d dead %d, want 9 and 0", e.Alive(), e.Dead())
	}

	stepN(t, e, 1)
	if e.Alive() != 0 || e.Dead() != 9 {
		t.Fatalf("after 8 ticks: alive %d dead %d, want 0 and 9", e.Alive(), e.Dead())
	}

	// Deferred culling keeps the bodies in the world.
	if countNodes(e) != 9 {
		t.Fatalf("deferred cull removed bodies: %d nodes", countNodes(e))
	}
	query := e.nodeFilter.Query()
	for query.Next() {
		_, bat, _, act, _ := query.Get()
		if !bat.Dead || bat.ChargeWh != 0 {
			t.Errorf("battery %+v, want dead at exactly zero", bat)
		}
		if act.AgeSeconds != 8 {
			t.Errorf("age = %v, want 8 (the dying tick counts)", act.AgeSeconds)
		}
	}
}

func TestStep_ImmediateCullRemovesBodies(t *testing.T) {
	cfg := heaterConfig(t, func(c *config.Config) {
		c.Simulation.Cull = config.CullImmediate
	})
	e := newTestEngine(t, cfg, heaterCatalog())

	stepN(t, e, 8)
	if e.Alive() != 0 || e.Dead() != 9 {
		t.Fatalf("alive %d dead %d, want 0 and 9", e.Alive(), e.Dead())
	}
	if countNodes(e) != 0 {
		t.Fatalf("immediate cull left %d bodies", countNodes(e))
	}
}

// ---------- Serial and parallel equivalence ----------

func TestStep_SerialMatchesParallel(t *testing.T) {
	cfg := buildConfig(t, func(c *config.Config) {
		c.Grid.Width = 10
		c.Grid.Height = 10
	})
	e := newTestEngine(t, cfg, catalog.Default())

	n := e.snapshotNodes()
	if n != 100 {
		t.Fatalf("snapshot holds %d nodes, want 100", n)
	}
	sample := systems.SampleAt(e.resolved.Solar(), e.clock.HourOfDay())
	dt := cfg.Simulation.TickSeconds

	if err := e.computeChunk(0, n, sample, dt); err != nil {
		t.Fatalf("serial compute: %v", err)
	}
	serial := append([]nodeIntent(nil), e.parallel.intents...)

	if err := e.computeParallel(n, sample, dt); err != nil {
		t.Fatalf("parallel compute: %v", err)
	}

	for i := range serial {
		if e.parallel.intents[i] != serial[i] {
			t.Fatalf("node %d diverged: serial %+v parallel %+v",
				e.parallel.snapshots[i].ID, serial[i], e.parallel.intents[i])
		}
	}
}

// ---------- Determinism ----------

func TestStep_DeterministicRuns(t *testing.T) {
	run := func() *telemetry.Snapshot {
		cfg := buildConfig(t, nil)
		e := newTestEngine(t, cfg, catalog.Default())
		stepN(t, e, 25)
		snap := e.buildSnapshot()
		snap.RunID = ""
		return snap
	}

	first, second := run(), run()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same seed produced different worlds:\n%+v\n%+v", first, second)
	}
	if first.Generation != 2 || first.Tick != 25 {
		t.Errorf("run ended at tick %d gen %d, want 25 and 2", first.Tick, first.Generation)
	}
}

// ---------- Run loop ----------

func TestRun_StopsAtMaxGenerations(t *testing.T) {
	snapPath := filepath.Join(t.TempDir(), "final.json")
	cfg := buildConfig(t, func(c *config.Config) {
		c.Simulation.MaxGenerations = 2
		c.Telemetry.SnapshotPath = snapPath
	})
	e := newTestEngine(t, cfg, sipperCatalog())

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if e.Generation() != 2 || e.Tick() != 20 {
		t.Errorf("stopped at tick %d gen %d, want 20 and 2", e.Tick(), e.Generation())
	}

	// snapshot_every is zero, so only the final snapshot exists.
	snap, err := telemetry.LoadSnapshot(snapPath)
	if err != nil {
		t.Fatalf("loading final snapshot: %v", err)
	}
	if snap.Tick != 20 {
		t.Errorf("final snapshot at tick %d, want 20", snap.Tick)
	}
}

func TestRun_HonorsContext(t *testing.T) {
	cfg := buildConfig(t, nil)
	e := newTestEngine(t, cfg, sipperCatalog())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if e.Tick() != 0 {
		t.Errorf("cancelled run still stepped to tick %d", e.Tick())
	}
}
