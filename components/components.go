// Package components defines ECS components for the simulation.
package components

// Position fixes a node to a spatial grid cell. Assigned at spawn,
// never moved afterwards.
type Position struct {
	Col, Row int
	X, Y     float64 // world coordinates (grid index * spacing)
}

// Battery tracks a node's energy store.
// ChargeWh is clamped to [0, CapacityWh] every tick; Dead latches the
// moment the charge reaches zero and never reverts.
type Battery struct {
	CapacityWh float64
	ChargeWh   float64
	Dead       bool
}

// ChargeRatio returns the state of charge in [0,1].
func (b *Battery) ChargeRatio() float64 {
	if b.CapacityWh <= 0 {
		return 0
	}
	return b.ChargeWh / b.CapacityWh
}

// NodeInfo bundles identity and lineage.
type NodeInfo struct {
	ID         uint32
	Generation uint32
	ParentID   uint32 // 0 for founders
	Tier       string // hardware tier id, empty when tiers are disabled
}
