// Package catalog holds the compiled parameter tables and the hybrid
// resolution layer that merges them with optional external overrides.
// Simulation code only ever sees the resolved output; the override
// mechanism stays behind Resolve.
package catalog

import "fmt"

// Version identifies the compiled parameter set.
const Version = "2026.08"

// ModelProfile describes one inference-model variant. Shared read-only
// by every node that selects it.
type ModelProfile struct {
	ID                 string
	IdlePowerW         float64
	InferencePowerW    float64
	AccuracyPercent    float64
	AvgInferenceTimeMS float64
	ModelSizeMB        float64
	ParametersMillions float64
}

// EnergyPerInferenceJ returns the energy cost of one inference in joules.
func (m *ModelProfile) EnergyPerInferenceJ() float64 {
	return m.InferencePowerW * m.AvgInferenceTimeMS / 1000.0
}

// EfficiencyRatio returns accuracy points per watt of inference draw.
func (m *ModelProfile) EfficiencyRatio() float64 {
	if m.InferencePowerW <= 0 {
		return 0
	}
	return m.AccuracyPercent / m.InferencePowerW
}

// SolarPoint is one sample of the diurnal irradiance series.
type SolarPoint struct {
	Hour            float64 // [0,24)
	IrradianceWM2   float64
	PanelEfficiency float64 // (0,1]
	CloudFactor     float64 // [0,1] attenuation
}

// SolarProfile is the time-indexed irradiance series. Points are ordered
// by hour; lookup between samples interpolates with 24 h wraparound, so
// any hour value is defined.
type SolarProfile struct {
	Points []SolarPoint
}

// HardwareTier describes a deployment platform class. Tiers fix battery
// capacity and cap harvest power; spawn assignment is weighted by config.
type HardwareTier struct {
	ID             string
	CapacityWh     float64
	IdlePowerW     float64 // reference draw, informational
	MaxSolarInputW float64
}

// Catalog is the compiled default parameter set. Pure data.
type Catalog struct {
	Version string
	Models  []ModelProfile
	Solar   SolarProfile
	Tiers   []HardwareTier
}

// Default returns the compiled catalog: eight production edge models
// benchmarked on a Raspberry Pi 4 (idle baseline 2.5 W), a North-African
// coastal irradiance day at 0.18 panel efficiency under 0.15 haze
// attenuation, and three platform tiers.
func Default() Catalog {
	return Catalog{
		Version: Version,
		Models: []ModelProfile{
			{ID: "YOLOv8-nano", IdlePowerW: 2.5, InferencePowerW: 4.2, AccuracyPercent: 80.4, AvgInferenceTimeMS: 45, ModelSizeMB: 6.0, ParametersMillions: 3.2},
			{ID: "YOLOv8-small", IdlePowerW: 2.5, InferencePowerW: 5.8, AccuracyPercent: 86.2, AvgInferenceTimeMS: 78, ModelSizeMB: 22.0, ParametersMillions: 11.2},
			{ID: "MobileNetV2", IdlePowerW: 2.5, InferencePowerW: 3.8, AccuracyPercent: 71.3, AvgInferenceTimeMS: 28, ModelSizeMB: 14.0, ParametersMillions: 3.5},
			{ID: "EfficientNetB0", IdlePowerW: 2.5, InferencePowerW: 4.5, AccuracyPercent: 77.1, AvgInferenceTimeMS: 35, ModelSizeMB: 20.1, ParametersMillions: 5.3},
			{ID: "TinyBERT", IdlePowerW: 2.5, InferencePowerW: 6.2, AccuracyPercent: 84.5, AvgInferenceTimeMS: 120, ModelSizeMB: 60.0, ParametersMillions: 67.0},
			{ID: "MobileNetV3-Small", IdlePowerW: 2.5, InferencePowerW: 3.5, AccuracyPercent: 67.4, AvgInferenceTimeMS: 26, ModelSizeMB: 13.0, ParametersMillions: 2.5},
			{ID: "EfficientNetB1", IdlePowerW: 2.5, InferencePowerW: 5.2, AccuracyPercent: 79.8, AvgInferenceTimeMS: 42, ModelSizeMB: 31.0, ParametersMillions: 7.9},
			{ID: "DistilBERT", IdlePowerW: 2.5, InferencePowerW: 5.5, AccuracyPercent: 88.9, AvgInferenceTimeMS: 110, ModelSizeMB: 268.0, ParametersMillions: 66.0},
		},
		Solar: SolarProfile{Points: defaultSolarDay()},
		Tiers: []HardwareTier{
			{ID: "esp32", CapacityWh: 1.5, IdlePowerW: 0.1, MaxSolarInputW: 2.0},
			{ID: "rpi4", CapacityWh: 11.1, IdlePowerW: 2.5, MaxSolarInputW: 20.0},
			{ID: "jetson", CapacityWh: 20.0, IdlePowerW: 5.0, MaxSolarInputW: 40.0},
		},
	}
}

// defaultSolarDay builds the 24 hourly samples of the default profile.
func defaultSolarDay() []SolarPoint {
	irradiance := []float64{
		0, 0, 0, 0, 0, 0, // 00-05 night
		50, 150, 300, 450, 600, 720, // 06-11 morning ramp
		800, 780, 700, 580, 420, 250, // 12-17 peak and decline
		100, 20, 0, 0, 0, 0, // 18-23 dusk and night
	}
	points := make([]SolarPoint, len(irradiance))
	for h, irr := range irradiance {
		points[h] = SolarPoint{
			Hour:            float64(h),
			IrradianceWM2:   irr,
			PanelEfficiency: 0.18,
			CloudFactor:     0.15,
		}
	}
	return points
}

// Validate checks the structural invariants of a catalog. A broken
// catalog aborts initialization; it is never repaired silently.
func (c *Catalog) Validate() error {
	if len(c.Models) == 0 {
		return fmt.Errorf("catalog: no model profiles")
	}
	seen := make(map[string]bool, len(c.Models))
	for i := range c.Models {
		m := &c.Models[i]
		if m.ID == "" {
			return fmt.Errorf("catalog: model %d has empty id", i)
		}
		if seen[m.ID] {
			return fmt.Errorf("catalog: duplicate model id %q", m.ID)
		}
		seen[m.ID] = true
		if m.IdlePowerW < 0 || m.InferencePowerW < m.IdlePowerW {
			return fmt.Errorf("catalog: model %q power range invalid (idle %v, inference %v)", m.ID, m.IdlePowerW, m.InferencePowerW)
		}
		if m.AccuracyPercent < 0 || m.AccuracyPercent > 100 {
			return fmt.Errorf("catalog: model %q accuracy %v outside [0,100]", m.ID, m.AccuracyPercent)
		}
		if m.AvgInferenceTimeMS <= 0 {
			return fmt.Errorf("catalog: model %q inference time %v must be > 0", m.ID, m.AvgInferenceTimeMS)
		}
		if m.ModelSizeMB <= 0 || m.ParametersMillions <= 0 {
			return fmt.Errorf("catalog: model %q size/parameters must be > 0", m.ID)
		}
	}
	if len(c.Solar.Points) == 0 {
		return fmt.Errorf("catalog: empty solar profile")
	}
	prev := -1.0
	for i, p := range c.Solar.Points {
		if p.Hour < 0 || p.Hour >= 24 {
			return fmt.Errorf("catalog: solar point %d hour %v outside [0,24)", i, p.Hour)
		}
		if p.Hour <= prev {
			return fmt.Errorf("catalog: solar points not strictly ordered at index %d", i)
		}
		prev = p.Hour
		if p.IrradianceWM2 < 0 {
			return fmt.Errorf("catalog: solar point %d irradiance %v negative", i, p.IrradianceWM2)
		}
		if p.PanelEfficiency <= 0 || p.PanelEfficiency > 1 {
			return fmt.Errorf("catalog: solar point %d panel efficiency %v outside (0,1]", i, p.PanelEfficiency)
		}
		if p.CloudFactor < 0 || p.CloudFactor > 1 {
			return fmt.Errorf("catalog: solar point %d cloud factor %v outside [0,1]", i, p.CloudFactor)
		}
	}
	seenTier := make(map[string]bool, len(c.Tiers))
	for i := range c.Tiers {
		t := &c.Tiers[i]
		if t.ID == "" {
			return fmt.Errorf("catalog: tier %d has empty id", i)
		}
		if seenTier[t.ID] {
			return fmt.Errorf("catalog: duplicate tier id %q", t.ID)
		}
		seenTier[t.ID] = true
		if t.CapacityWh <= 0 {
			return fmt.Errorf("catalog: tier %q capacity %v must be > 0", t.ID, t.CapacityWh)
		}
		if t.MaxSolarInputW <= 0 {
			return fmt.Errorf("catalog: tier %q max solar input %v must be > 0", t.ID, t.MaxSolarInputW)
		}
	}
	return nil
}
