package systems

import "github.com/pthm-cable/photovore/components"

// Policy gate thresholds.
const (
	conservativeMinCharge = 0.50
	adaptiveMinCharge     = 0.30
	adaptiveMinHarvestW   = 5.0
)

// EffectiveDuty applies the gene's power policy to its duty cycle for
// one tick. Gates read only the node's own battery and the shared
// harvest power; they only ever reduce duty and never alter the gene.
func EffectiveDuty(gene *components.Gene, bat *components.Battery, harvestW float64) float64 {
	switch gene.Policy {
	case components.PolicyConservative:
		// Infer only above half charge.
		if bat.ChargeRatio() <= conservativeMinCharge {
			return 0
		}
	case components.PolicyAdaptive:
		// Infer in sunlight or with a comfortable reserve.
		if harvestW <= adaptiveMinHarvestW && bat.ChargeRatio() <= adaptiveMinCharge {
			return 0
		}
	}
	return gene.DutyCycle
}
