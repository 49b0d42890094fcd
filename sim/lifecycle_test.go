package sim

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/photovore/config"
)

// ---------- Generation turnover ----------

func TestTurnover_ReplacesWholeCohort(t *testing.T) {
	cfg := buildConfig(t, nil)
	e := newTestEngine(t, cfg, sipperCatalog())

	stepN(t, e, 10)

	if e.Generation() != 1 {
		t.Fatalf("generation = %d, want 1 after the first boundary", e.Generation())
	}
	if e.Alive() != 9 || countNodes(e) != 9 {
		t.Fatalf("alive = %d, nodes = %d, want a full 9-slot cohort", e.Alive(), countNodes(e))
	}

	for _, info := range nodeInfos(e) {
		if info.Generation != 1 {
			t.Errorf("node %d carries generation %d, want 1", info.ID, info.Generation)
		}
		if info.ID < 10 || info.ID > 18 {
			t.Errorf("node id %d, want fresh ids 10..18", info.ID)
		}
		if info.ParentID < 1 || info.ParentID > 9 {
			t.Errorf("node %d parent %d, want a founder id 1..9", info.ID, info.ParentID)
		}
	}

	// Every sipper lived ten seconds, so the best fitness carries at
	// least the survival term.
	if e.BestFitness() < 10 {
		t.Errorf("best fitness = %v, want >= 10", e.BestFitness())
	}
}

func TestTurnover_AgesResetEachGeneration(t *testing.T) {
	cfg := buildConfig(t, nil)
	e := newTestEngine(t, cfg, sipperCatalog())

	stepN(t, e, 23)

	query := e.nodeFilter.Query()
	for query.Next() {
		_, _, _, act, _ := query.Get()
		if act.AgeSeconds != 3 {
			t.Errorf("age = %v, want 3 ticks since the last boundary", act.AgeSeconds)
		}
	}
}

// ---------- Extinction policies ----------

func TestExtinction_HaltKeepsBodies(t *testing.T) {
	genPath := filepath.Join(t.TempDir(), "generations.csv")
	cfg := heaterConfig(t, func(c *config.Config) {
		c.Simulation.OnExtinction = config.OnExtinctionHalt
		c.Telemetry.GenerationCSV = genPath
	})
	e := newTestEngine(t, cfg, heaterCatalog())

	stepN(t, e, 10)

	if e.Extinctions() != 1 {
		t.Fatalf("extinctions = %d, want 1", e.Extinctions())
	}
	if e.Generation() != 0 {
		t.Errorf("halt advanced the generation to %d", e.Generation())
	}
	if countNodes(e) != 9 || e.Alive() != 0 {
		t.Errorf("halt world holds %d nodes with %d alive, want 9 dead bodies", countNodes(e), e.Alive())
	}

	// A halted engine stops Run without stepping further.
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("run after halt: %v", err)
	}
	if e.Tick() != 10 {
		t.Errorf("halted run advanced to tick %d", e.Tick())
	}

	if err := e.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	rows, err := os.ReadFile(genPath)
	if err != nil {
		t.Fatalf("reading generation csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(rows)), "\n")
	if len(lines) != 2 {
		t.Fatalf("generation csv has %d lines, want header plus the extinction row", len(lines))
	}
	if !strings.Contains(lines[1], "true") {
		t.Errorf("extinction row not marked extinct: %q", lines[1])
	}
}

func TestExtinction_ReseedRefillsWithFounders(t *testing.T) {
	cfg := heaterConfig(t, func(c *config.Config) {
		c.Simulation.OnExtinction = config.OnExtinctionReseed
	})
	e := newTestEngine(t, cfg, heaterCatalog())

	stepN(t, e, 10)

	if e.Extinctions() != 1 {
		t.Fatalf("extinctions = %d, want 1", e.Extinctions())
	}
	if e.Generation() != 1 || e.Alive() != 9 {
		t.Fatalf("gen %d alive %d, want a fresh generation-1 population", e.Generation(), e.Alive())
	}
	for _, info := range nodeInfos(e) {
		if info.ParentID != 0 {
			t.Errorf("reseeded node %d carries parent %d, want founders", info.ID, info.ParentID)
		}
		if info.Generation != 1 {
			t.Errorf("reseeded node %d carries generation %d, want 1", info.ID, info.Generation)
		}
	}
}

func TestExtinction_ContinueTicksAnEmptyWorld(t *testing.T) {
	cfg := heaterConfig(t, func(c *config.Config) {
		c.Simulation.OnExtinction = config.OnExtinctionContinue
	})
	e := newTestEngine(t, cfg, heaterCatalog())

	stepN(t, e, 10)
	if e.Extinctions() != 1 || e.Alive() != 0 || countNodes(e) != 0 {
		t.Fatalf("after first boundary: extinctions %d alive %d nodes %d", e.Extinctions(), e.Alive(), countNodes(e))
	}

	// The empty world keeps ticking; every later boundary records
	// extinction again.
	stepN(t, e, 10)
	if e.Extinctions() != 2 {
		t.Errorf("extinctions = %d, want 2", e.Extinctions())
	}
	if e.Generation() != 2 {
		t.Errorf("generation = %d, want 2", e.Generation())
	}
	if e.Tick() != 20 {
		t.Errorf("tick = %d, want 20", e.Tick())
	}
}
