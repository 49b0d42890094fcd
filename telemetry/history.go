package telemetry

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// History records one row per run and one per generation in a SQLite
// database. A nil *History is a valid disabled sink. Insert failures
// after open are logged as warnings, never fatal; the simulation's
// result does not depend on this sink.
type History struct {
	db    *sql.DB
	runID string
}

const historySchema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	seed       INTEGER NOT NULL,
	catalog    TEXT NOT NULL,
	started_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS generations (
	run_id         TEXT NOT NULL REFERENCES runs(id),
	generation     INTEGER NOT NULL,
	end_tick       INTEGER NOT NULL,
	population     INTEGER NOT NULL,
	survivors      INTEGER NOT NULL,
	deaths         INTEGER NOT NULL,
	best_fitness   REAL NOT NULL,
	mean_fitness   REAL NOT NULL,
	dominant_model TEXT NOT NULL,
	extinct        INTEGER NOT NULL,
	PRIMARY KEY (run_id, generation)
);`

// OpenHistory opens or creates the history database at dsn and
// registers the run. An empty dsn disables the sink (returns nil).
func OpenHistory(dsn, runID string, seed int64, catalogVersion string) (*History, error) {
	if dsn == "" {
		return nil, nil
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}

	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}

	startedAt := time.Now().UTC().Format(time.RFC3339)
	if _, err := db.Exec(
		`INSERT INTO runs (id, seed, catalog, started_at) VALUES (?, ?, ?, ?)`,
		runID, seed, catalogVersion, startedAt,
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("registering run: %w", err)
	}

	return &History{db: db, runID: runID}, nil
}

// RecordGeneration inserts one generation row.
func (h *History) RecordGeneration(g GenerationStats) {
	if h == nil {
		return
	}

	_, err := h.db.Exec(
		`INSERT INTO generations
		 (run_id, generation, end_tick, population, survivors, deaths,
		  best_fitness, mean_fitness, dominant_model, extinct)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.runID, g.Generation, g.EndTick, g.Population, g.Survivors, g.Deaths,
		g.BestFitness, g.MeanFitness, g.DominantModel, g.Extinct,
	)
	if err != nil {
		slog.Warn("history insert failed", "generation", g.Generation, "error", err)
	}
}

// RunID returns the identifier this sink registered.
func (h *History) RunID() string {
	if h == nil {
		return ""
	}
	return h.runID
}

// Close closes the database.
func (h *History) Close() error {
	if h == nil {
		return nil
	}
	return h.db.Close()
}
