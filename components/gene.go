package components

import (
	"errors"
	"fmt"
)

// ErrInvalidGeneBounds marks a gene field outside its declared range.
// Mutation clamps before publishing, so observing this error means an
// internal invariant was broken.
var ErrInvalidGeneBounds = errors.New("gene field out of bounds")

// Declared gene bounds. Mutation clamps to these; Validate checks them.
const (
	DutyCycleMin     = 0.0
	DutyCycleMax     = 1.0
	SolarModifierMax = 1.3
	MutationRateMax  = 1.0
)

// PowerPolicy gates when a node's duty cycle applies.
type PowerPolicy uint8

const (
	PolicyAggressive   PowerPolicy = iota // duty applies unconditionally
	PolicyConservative                    // duty applies only above 50% charge
	PolicyAdaptive                        // duty applies in sun or above 30% charge
)

// String returns the display name for a PowerPolicy.
func (p PowerPolicy) String() string {
	names := PowerPolicyNames()
	if int(p) < len(names) {
		return names[p]
	}
	return "Unknown"
}

// PowerPolicyNames returns the display names for all power policies.
// The order matches the PowerPolicy constants.
func PowerPolicyNames() []string {
	return []string{"Aggressive", "Conservative", "Adaptive"}
}

// PowerPolicyCount returns the number of power policies.
func PowerPolicyCount() int {
	return len(PowerPolicyNames())
}

// Gene is the evolvable policy vector of a node. Created at birth by
// copying a parent's gene with mutation applied; immutable while the
// node lives.
type Gene struct {
	Model         string      // ModelProfile identifier
	DutyCycle     float64     // fraction of tick spent inferring, [0,1]
	SolarModifier float64     // multiplicative harvest factor, (0, 1.3]
	MutationRate  float64     // per-field perturbation probability, (0,1]
	Policy        PowerPolicy // operating-mode gate
}

// Validate reports whether every field sits inside its declared bounds.
func (g *Gene) Validate() error {
	if g.Model == "" {
		return fmt.Errorf("%w: empty model selection", ErrInvalidGeneBounds)
	}
	if g.DutyCycle < DutyCycleMin || g.DutyCycle > DutyCycleMax {
		return fmt.Errorf("%w: duty_cycle %v outside [%v,%v]", ErrInvalidGeneBounds, g.DutyCycle, DutyCycleMin, DutyCycleMax)
	}
	if g.SolarModifier <= 0 || g.SolarModifier > SolarModifierMax {
		return fmt.Errorf("%w: solar_modifier %v outside (0,%v]", ErrInvalidGeneBounds, g.SolarModifier, SolarModifierMax)
	}
	if g.MutationRate <= 0 || g.MutationRate > MutationRateMax {
		return fmt.Errorf("%w: mutation_rate %v outside (0,%v]", ErrInvalidGeneBounds, g.MutationRate, MutationRateMax)
	}
	if int(g.Policy) >= PowerPolicyCount() {
		return fmt.Errorf("%w: unknown policy %d", ErrInvalidGeneBounds, g.Policy)
	}
	return nil
}

// MustValidGene panics when a gene violates its bounds. Used at publish
// points after breeding, where a violation is a programming error.
func MustValidGene(g *Gene) {
	if err := g.Validate(); err != nil {
		panic(err)
	}
}
