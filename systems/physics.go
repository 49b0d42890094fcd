// Package systems contains the per-tick update rules for the simulation.
// Every function here reads and writes only the components it is handed,
// so updates for different nodes can run concurrently.
package systems

import (
	"errors"
	"fmt"

	"github.com/pthm-cable/photovore/catalog"
	"github.com/pthm-cable/photovore/components"
)

// ErrInvalidTimestep rejects a zero or negative tick duration. This is
// a configuration or programming error; physics never integrates
// backwards or not at all.
var ErrInvalidTimestep = errors.New("invalid timestep")

// Advance integrates one tick of a node's energy balance at the given
// effective duty cycle and harvest power. Load interpolates linearly
// between the model's idle and full-inference draw. The charge is
// clamped to [0, capacity]; reaching exactly zero latches Dead, and a
// dead node is frozen (no drain, no harvest, no accounting).
func Advance(
	bat *components.Battery,
	act *components.Activity,
	duty float64,
	model *catalog.ModelProfile,
	harvestW float64,
	dtSeconds float64,
) error {
	if dtSeconds <= 0 {
		return fmt.Errorf("%w: dt %v s", ErrInvalidTimestep, dtSeconds)
	}
	if bat.Dead {
		return nil
	}

	dtHours := dtSeconds / 3600.0
	loadW := model.IdlePowerW + duty*(model.InferencePowerW-model.IdlePowerW)
	drainWh := loadW * dtHours
	harvestWh := harvestW * dtHours

	charge := bat.ChargeWh - drainWh + harvestWh
	if charge > bat.CapacityWh {
		charge = bat.CapacityWh
	}
	if charge < 0 {
		charge = 0
	}
	bat.ChargeWh = charge

	// The node lived through this tick; the dying tick still counts.
	act.AgeSeconds += dtSeconds
	act.ConsumedWh += drainWh
	act.HarvestedWh += harvestWh
	if duty > 0 && model.AvgInferenceTimeMS > 0 {
		n := duty * dtSeconds * 1000.0 / model.AvgInferenceTimeMS
		act.Inferences += n
		act.UsefulWork += n * model.AccuracyPercent / 100.0
	}

	if bat.ChargeWh == 0 {
		bat.Dead = true
	}
	return nil
}

// UpdateNode runs one node's full tick: solar harvest, policy gate,
// then battery integration and work accounting.
func UpdateNode(
	bat *components.Battery,
	act *components.Activity,
	gene *components.Gene,
	model *catalog.ModelProfile,
	tierCapW float64,
	sample Sample,
	availability float64,
	dtSeconds float64,
) error {
	harvestW := HarvestPowerW(sample, gene.SolarModifier, availability, tierCapW)
	duty := EffectiveDuty(gene, bat, harvestW)
	return Advance(bat, act, duty, model, harvestW, dtSeconds)
}
