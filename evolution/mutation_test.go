package evolution

import (
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/pthm-cable/photovore/components"
	"github.com/pthm-cable/photovore/config"
)

func testMutationConfig() config.MutationConfig {
	return config.MutationConfig{
		DutyStep:       0.1,
		SolarStep:      0.05,
		RateStep:       0.05,
		ModelSwapProb:  0.1,
		PolicySwapProb: 0.1,
		RateMin:        0.05,
		RateMax:        1.0,
	}
}

var testModels = []string{"YOLOv8-nano", "MobileNetV2", "TinyBERT"}

// ---------- Child ----------

func TestChild_DeterministicUnderSeed(t *testing.T) {
	parent := components.Gene{Model: "MobileNetV2", DutyCycle: 0.6, SolarModifier: 1.0, MutationRate: 0.8, Policy: components.PolicyAdaptive}
	m := NewMutator(testMutationConfig(), testModels)

	breed := func() []components.Gene {
		rng := rand.New(rand.NewSource(99))
		children := make([]components.Gene, 50)
		for i := range children {
			children[i] = m.Child(rng, parent)
		}
		return children
	}

	first, second := breed(), breed()
	if !reflect.DeepEqual(first, second) {
		t.Fatal("same seed bred different children")
	}
}

func TestChild_StaysWithinBounds(t *testing.T) {
	cfg := testMutationConfig()
	m := NewMutator(cfg, testModels)
	rng := rand.New(rand.NewSource(3))

	// Walk an extreme parent through many generations of mutation; every
	// child must satisfy the gene bounds and the breeding floors.
	gene := components.Gene{Model: "TinyBERT", DutyCycle: 0.1, SolarModifier: 0.7, MutationRate: 1.0, Policy: components.PolicyAggressive}
	for i := 0; i < 2000; i++ {
		gene = m.Child(rng, gene)
		if err := gene.Validate(); err != nil {
			t.Fatalf("generation %d: %v", i, err)
		}
		if gene.DutyCycle < 0.1 || gene.DutyCycle > components.DutyCycleMax {
			t.Fatalf("generation %d: duty %v outside [0.1,1]", i, gene.DutyCycle)
		}
		if gene.SolarModifier < 0.7 || gene.SolarModifier > components.SolarModifierMax {
			t.Fatalf("generation %d: solar %v outside [0.7,1.3]", i, gene.SolarModifier)
		}
		if gene.MutationRate < cfg.RateMin || gene.MutationRate > cfg.RateMax {
			t.Fatalf("generation %d: rate %v outside [%v,%v]", i, gene.MutationRate, cfg.RateMin, cfg.RateMax)
		}
	}
}

func TestChild_DeltasBoundedBySteps(t *testing.T) {
	cfg := testMutationConfig()
	m := NewMutator(cfg, testModels)
	rng := rand.New(rand.NewSource(17))
	parent := components.Gene{Model: "MobileNetV2", DutyCycle: 0.5, SolarModifier: 1.0, MutationRate: 0.5, Policy: components.PolicyConservative}

	for i := 0; i < 1000; i++ {
		child := m.Child(rng, parent)
		if math.Abs(child.DutyCycle-parent.DutyCycle) > cfg.DutyStep+1e-12 {
			t.Fatalf("duty moved %v in one step, max %v", child.DutyCycle-parent.DutyCycle, cfg.DutyStep)
		}
		if math.Abs(child.SolarModifier-parent.SolarModifier) > cfg.SolarStep+1e-12 {
			t.Fatalf("solar moved %v in one step, max %v", child.SolarModifier-parent.SolarModifier, cfg.SolarStep)
		}
		if math.Abs(child.MutationRate-parent.MutationRate) > cfg.RateStep+1e-12 {
			t.Fatalf("rate moved %v in one step, max %v", child.MutationRate-parent.MutationRate, cfg.RateStep)
		}
	}
}

func TestChild_SwapsDrawFromCatalog(t *testing.T) {
	cfg := testMutationConfig()
	cfg.ModelSwapProb = 1.0
	cfg.PolicySwapProb = 1.0
	m := NewMutator(cfg, testModels)
	rng := rand.New(rand.NewSource(5))
	parent := components.Gene{Model: "MobileNetV2", DutyCycle: 0.5, SolarModifier: 1.0, MutationRate: 0.05, Policy: components.PolicyAggressive}

	known := map[string]bool{}
	for _, id := range testModels {
		known[id] = true
	}
	seenModels := map[string]bool{}
	seenPolicies := map[components.PowerPolicy]bool{}
	for i := 0; i < 300; i++ {
		child := m.Child(rng, parent)
		if !known[child.Model] {
			t.Fatalf("swap produced unknown model %q", child.Model)
		}
		seenModels[child.Model] = true
		seenPolicies[child.Policy] = true
	}
	if len(seenModels) != len(testModels) {
		t.Errorf("swaps covered %d of %d models", len(seenModels), len(testModels))
	}
	if len(seenPolicies) != components.PowerPolicyCount() {
		t.Errorf("swaps covered %d of %d policies", len(seenPolicies), components.PowerPolicyCount())
	}
}

// ---------- Founder ----------

func TestFounder_WithinGenesisRanges(t *testing.T) {
	g := config.GenesisConfig{DutyMin: 0.3, DutyMax: 1.0, SolarMin: 0.8, SolarMax: 1.2, MutationRate: 1.0}
	rng := rand.New(rand.NewSource(21))

	known := map[string]bool{}
	for _, id := range testModels {
		known[id] = true
	}
	for i := 0; i < 500; i++ {
		gene := Founder(rng, g, testModels)
		if gene.DutyCycle < g.DutyMin || gene.DutyCycle > g.DutyMax {
			t.Fatalf("founder duty %v outside [%v,%v]", gene.DutyCycle, g.DutyMin, g.DutyMax)
		}
		if gene.SolarModifier < g.SolarMin || gene.SolarModifier > g.SolarMax {
			t.Fatalf("founder solar %v outside [%v,%v]", gene.SolarModifier, g.SolarMin, g.SolarMax)
		}
		if gene.MutationRate != g.MutationRate {
			t.Fatalf("founder rate %v, want %v", gene.MutationRate, g.MutationRate)
		}
		if !known[gene.Model] {
			t.Fatalf("founder model %q not in catalog", gene.Model)
		}
	}
}

func TestFounder_DeterministicUnderSeed(t *testing.T) {
	g := config.GenesisConfig{DutyMin: 0.3, DutyMax: 1.0, SolarMin: 0.8, SolarMax: 1.2, MutationRate: 0.5}

	draw := func() []components.Gene {
		rng := rand.New(rand.NewSource(4))
		genes := make([]components.Gene, 20)
		for i := range genes {
			genes[i] = Founder(rng, g, testModels)
		}
		return genes
	}
	if !reflect.DeepEqual(draw(), draw()) {
		t.Fatal("same seed drew different founders")
	}
}
