package telemetry

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func TestHistoryDisabled(t *testing.T) {
	h, err := OpenHistory("", "run", 1, "v1")
	if err != nil {
		t.Fatalf("OpenHistory failed: %v", err)
	}
	if h != nil {
		t.Fatal("empty dsn should disable the sink")
	}

	// Nil sink must swallow everything.
	h.RecordGeneration(GenerationStats{Generation: 1})
	if h.RunID() != "" {
		t.Errorf("RunID on nil sink = %q, want empty", h.RunID())
	}
	if err := h.Close(); err != nil {
		t.Errorf("Close on nil sink: %v", err)
	}
}

func TestHistoryRecordsGenerations(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "history.db")
	runID := "3c1f8f38-0000-4000-8000-000000000001"

	h, err := OpenHistory(dsn, runID, 42, "2026.08")
	if err != nil {
		t.Fatalf("OpenHistory failed: %v", err)
	}

	h.RecordGeneration(GenerationStats{
		RunID: runID, Generation: 0, EndTick: 30,
		Population: 100, Survivors: 84, Deaths: 16,
		BestFitness: 61.5, MeanFitness: 30.2, DominantModel: "MobileNetV3-Small",
	})
	h.RecordGeneration(GenerationStats{
		RunID: runID, Generation: 1, EndTick: 60,
		Population: 100, Survivors: 0, Deaths: 100, Extinct: true,
	})

	if err := h.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Verify through a fresh connection.
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("reopening history db: %v", err)
	}
	defer db.Close()

	var seed int64
	if err := db.QueryRow(`SELECT seed FROM runs WHERE id = ?`, runID).Scan(&seed); err != nil {
		t.Fatalf("querying run row: %v", err)
	}
	if seed != 42 {
		t.Errorf("run seed = %d, want 42", seed)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM generations WHERE run_id = ?`, runID).Scan(&count); err != nil {
		t.Fatalf("counting generations: %v", err)
	}
	if count != 2 {
		t.Errorf("generation rows = %d, want 2", count)
	}

	var extinct bool
	var model string
	err = db.QueryRow(
		`SELECT extinct, dominant_model FROM generations WHERE run_id = ? AND generation = 1`,
		runID,
	).Scan(&extinct, &model)
	if err != nil {
		t.Fatalf("querying generation 1: %v", err)
	}
	if !extinct {
		t.Error("generation 1 should be flagged extinct")
	}
	if model != "" {
		t.Errorf("extinct generation dominant model = %q, want empty", model)
	}
}

func TestHistoryInsertFailureIsNotFatal(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "history.db")

	h, err := OpenHistory(dsn, "run-a", 7, "v1")
	if err != nil {
		t.Fatalf("OpenHistory failed: %v", err)
	}
	defer h.Close()

	// Same primary key twice; the second insert fails and must only warn.
	h.RecordGeneration(GenerationStats{Generation: 3})
	h.RecordGeneration(GenerationStats{Generation: 3})
}
