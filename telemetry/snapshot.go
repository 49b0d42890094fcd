package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot is the read-only renderer boundary: the visible state of
// the whole population at one tick. The simulation never depends on
// anything a consumer computes from it.
type Snapshot struct {
	Version    int     `json:"version"`
	RunID      string  `json:"run_id"`
	Seed       int64   `json:"seed"`
	Tick       int64   `json:"tick"`
	Generation uint32  `json:"generation"`
	HourOfDay  float64 `json:"hour_of_day"`

	Nodes []NodeState `json:"nodes"`
}

// NodeState holds one node's visible state.
type NodeState struct {
	ID   uint32  `json:"id"`
	Col  int     `json:"col"`
	Row  int     `json:"row"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Tier string  `json:"tier,omitempty"`

	Model  string `json:"model"`
	Policy string `json:"policy"`

	ChargeWh   float64 `json:"charge_wh"`
	CapacityWh float64 `json:"capacity_wh"`
	Dead       bool    `json:"dead"`

	AgeSeconds float64 `json:"age_seconds"`
	UsefulWork float64 `json:"useful_work"`
}

// SaveSnapshot writes a snapshot to path, replacing any previous one
// so a consumer always reads the newest state.
func SaveSnapshot(snapshot *Snapshot, path string) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	return nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return &snapshot, nil
}
