// Package main provides CMA-ES calibration for finding scenario
// parameters that keep evolved populations alive and productive.
package main

import (
	"github.com/pthm-cable/photovore/catalog"
	"github.com/pthm-cable/photovore/config"
)

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config or catalog path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all tunable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of tunable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "battery_capacity_wh", Path: "battery.capacity_wh", Min: 1.0, Max: 20.0, Default: 5.0},
			{Name: "cloud_factor", Path: "catalog.solar.cloud_factor", Min: 0.05, Max: 1.0, Default: 0.15},
			{Name: "mutation_duty_step", Path: "evolution.mutation.duty_step", Min: 0.01, Max: 0.3, Default: 0.1},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToScenario writes clamped parameter values into the config and
// returns the override set carrying the catalog-level ones. The cloud
// factor rides the solar override mechanism because it is catalog
// data, not config.
func (pv *ParamVector) ApplyToScenario(cfg *config.Config, values []float64) *catalog.Overrides {
	clamped := pv.Clamp(values)

	cfg.Battery.CapacityWh = clamped[0]
	cfg.Evolution.Mutation.DutyStep = clamped[2]

	cloud := clamped[1]
	ov := &catalog.Overrides{Solar: make(map[int]catalog.SolarOverride, 24)}
	for hour := 0; hour < 24; hour++ {
		c := cloud
		ov.Solar[hour] = catalog.SolarOverride{CloudFactor: &c}
	}
	return ov
}
