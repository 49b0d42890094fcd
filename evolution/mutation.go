package evolution

import (
	"math/rand"

	"github.com/pthm-cable/photovore/components"
	"github.com/pthm-cable/photovore/config"
)

// Mutation clamp floors sit above the gene's hard bounds so breeding
// never produces a node that cannot work or cannot harvest at all.
const (
	dutyFloor  = 0.1
	solarFloor = 0.7
)

// Mutator breeds child genes by copy-with-mutation. Single parent, no
// crossover.
type Mutator struct {
	cfg    config.MutationConfig
	models []string
}

// NewMutator returns a mutator drawing model swaps from the given
// catalog ids.
func NewMutator(cfg config.MutationConfig, models []string) *Mutator {
	return &Mutator{cfg: cfg, models: models}
}

// Child copies the parent gene and perturbs each field independently.
// Numeric fields mutate with probability parent.MutationRate and a
// uniform delta within the configured step; model and policy swap with
// their own probabilities. The field order is fixed (duty, solar,
// rate, model, policy) so a seeded source always breeds the same
// child. Results are clamped before publishing.
func (m *Mutator) Child(rng *rand.Rand, parent components.Gene) components.Gene {
	child := parent
	if rng.Float64() < parent.MutationRate {
		child.DutyCycle = clamp(child.DutyCycle+delta(rng, m.cfg.DutyStep), dutyFloor, components.DutyCycleMax)
	}
	if rng.Float64() < parent.MutationRate {
		child.SolarModifier = clamp(child.SolarModifier+delta(rng, m.cfg.SolarStep), solarFloor, components.SolarModifierMax)
	}
	if rng.Float64() < parent.MutationRate {
		child.MutationRate = clamp(child.MutationRate+delta(rng, m.cfg.RateStep), m.cfg.RateMin, m.cfg.RateMax)
	}
	if len(m.models) > 0 && rng.Float64() < m.cfg.ModelSwapProb {
		child.Model = m.models[rng.Intn(len(m.models))]
	}
	if rng.Float64() < m.cfg.PolicySwapProb {
		child.Policy = components.PowerPolicy(rng.Intn(components.PowerPolicyCount()))
	}
	components.MustValidGene(&child)
	return child
}

// Founder draws a generation-zero gene from the configured genesis
// ranges: uniform model, duty and solar modifier, uniform policy, and
// the fixed initial mutation rate.
func Founder(rng *rand.Rand, g config.GenesisConfig, models []string) components.Gene {
	gene := components.Gene{
		Model:         models[rng.Intn(len(models))],
		DutyCycle:     g.DutyMin + rng.Float64()*(g.DutyMax-g.DutyMin),
		SolarModifier: g.SolarMin + rng.Float64()*(g.SolarMax-g.SolarMin),
		MutationRate:  g.MutationRate,
		Policy:        components.PowerPolicy(rng.Intn(components.PowerPolicyCount())),
	}
	components.MustValidGene(&gene)
	return gene
}

func delta(rng *rand.Rand, step float64) float64 {
	return (rng.Float64()*2 - 1) * step
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
