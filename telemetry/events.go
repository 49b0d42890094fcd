// Package telemetry aggregates simulation activity into windowed
// statistics, CSV rows, renderer snapshots and an optional history
// database.
package telemetry

import "log/slog"

// EventType identifies telemetry events.
type EventType uint8

const (
	EventNodeDeath EventType = iota
	EventGenerationComplete
	EventExtinction
	EventOverrideFallback
)

// String returns the event type's log name.
func (t EventType) String() string {
	switch t {
	case EventNodeDeath:
		return "node_death"
	case EventGenerationComplete:
		return "generation_complete"
	case EventExtinction:
		return "extinction"
	case EventOverrideFallback:
		return "override_fallback"
	}
	return "unknown"
}

// Event represents a single telemetry event.
type Event struct {
	Type       EventType
	Tick       int64
	Generation uint32

	// Optional fields depending on event type
	NodeID uint32 // for death events
	Model  string // for death events
	Detail string // for override fallbacks
}

// NewDeathEvent creates a node death event.
func NewDeathEvent(tick int64, generation uint32, nodeID uint32, model string) Event {
	return Event{
		Type:       EventNodeDeath,
		Tick:       tick,
		Generation: generation,
		NodeID:     nodeID,
		Model:      model,
	}
}

// NewGenerationEvent creates a generation-complete event.
func NewGenerationEvent(tick int64, generation uint32) Event {
	return Event{
		Type:       EventGenerationComplete,
		Tick:       tick,
		Generation: generation,
	}
}

// NewExtinctionEvent creates an extinction event (no survivors at a
// generation boundary).
func NewExtinctionEvent(tick int64, generation uint32) Event {
	return Event{
		Type:       EventExtinction,
		Tick:       tick,
		Generation: generation,
	}
}

// NewOverrideFallbackEvent creates an override-fallback event (a
// rejected override cell reverted to its catalog default).
func NewOverrideFallbackEvent(detail string) Event {
	return Event{
		Type:   EventOverrideFallback,
		Detail: detail,
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (e Event) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("type", e.Type.String()),
		slog.Int64("tick", e.Tick),
		slog.Int("generation", int(e.Generation)),
	}
	if e.Type == EventNodeDeath {
		attrs = append(attrs,
			slog.Int("node_id", int(e.NodeID)),
			slog.String("model", e.Model),
		)
	}
	if e.Detail != "" {
		attrs = append(attrs, slog.String("detail", e.Detail))
	}
	return slog.GroupValue(attrs...)
}
