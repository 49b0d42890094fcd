package catalog

import "strconv"

// Resolved is the merged parameter set the simulation runs on. Built
// once at startup, immutable afterwards, safe to share across workers
// without locking.
type Resolved struct {
	cat        Catalog
	modelIndex map[string]int
	tierIndex  map[string]int
}

// Resolve merges a catalog with zero or more override sets. Override
// wins per-field, catalog is the fallback; later sets win over earlier
// ones. Missing overrides are not errors. Unknown identifiers and
// out-of-range values are reported as issues and the affected fields
// keep their defaults; corrupt override data never aborts resolution.
// The only error case is a structurally invalid base catalog.
func Resolve(cat Catalog, sets ...*Overrides) (*Resolved, []OverrideIssue, error) {
	if err := cat.Validate(); err != nil {
		return nil, nil, err
	}

	merged := cloneCatalog(cat)
	var issues []OverrideIssue
	for _, ov := range sets {
		if ov.Empty() {
			continue
		}
		applyModelOverrides(&merged, cat, ov, &issues)
		applySolarOverrides(&merged, ov, &issues)
	}

	r := &Resolved{
		cat:        merged,
		modelIndex: make(map[string]int, len(merged.Models)),
		tierIndex:  make(map[string]int, len(merged.Tiers)),
	}
	for i := range merged.Models {
		r.modelIndex[merged.Models[i].ID] = i
	}
	for i := range merged.Tiers {
		r.tierIndex[merged.Tiers[i].ID] = i
	}
	return r, issues, nil
}

// applyModelOverrides merges model field overrides into dst, falling
// back to the matching profile in def when a value is rejected.
func applyModelOverrides(dst *Catalog, def Catalog, ov *Overrides, issues *[]OverrideIssue) {
	for name, mo := range ov.Models {
		idx := -1
		for i := range dst.Models {
			if dst.Models[i].ID == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			*issues = append(*issues, OverrideIssue{Profile: name, Field: "model_name", Value: name, Reason: "unknown model"})
			continue
		}
		m := &dst.Models[idx]
		d := def.Models[idx]
		a := fieldApplier{profile: name, issues: issues}
		a.set(&m.IdlePowerW, mo.IdlePowerW, "idle_power_w", nonNegative, "must be >= 0")
		a.set(&m.InferencePowerW, mo.InferencePowerW, "inference_power_w", nonNegative, "must be >= 0")
		a.set(&m.AccuracyPercent, mo.AccuracyPercent, "accuracy_percent", percent, "must be in [0,100]")
		a.set(&m.AvgInferenceTimeMS, mo.AvgInferenceTimeMS, "avg_inference_time_ms", positive, "must be > 0")
		a.set(&m.ModelSizeMB, mo.ModelSizeMB, "model_size_mb", positive, "must be > 0")
		a.set(&m.ParametersMillions, mo.ParametersMillions, "parameters_millions", positive, "must be > 0")

		// Power fields must stay ordered after the merge. On violation
		// both revert to defaults so the pair stays consistent.
		if m.IdlePowerW > m.InferencePowerW {
			*issues = append(*issues, OverrideIssue{
				Profile: name, Field: "idle_power_w",
				Reason: "idle exceeds inference power after merge, pair reverted",
			})
			m.IdlePowerW = d.IdlePowerW
			m.InferencePowerW = d.InferencePowerW
		}
	}
}

// applySolarOverrides merges solar sample overrides keyed by hour.
func applySolarOverrides(dst *Catalog, ov *Overrides, issues *[]OverrideIssue) {
	for hour, so := range ov.Solar {
		idx := -1
		for i := range dst.Solar.Points {
			if dst.Solar.Points[i].Hour == float64(hour) {
				idx = i
				break
			}
		}
		if idx < 0 {
			*issues = append(*issues, OverrideIssue{Profile: solarProfileID(hour), Field: "hour", Reason: "no catalog sample at this hour"})
			continue
		}
		p := &dst.Solar.Points[idx]
		a := fieldApplier{profile: solarProfileID(hour), issues: issues}
		a.set(&p.IrradianceWM2, so.IrradianceWM2, "avg_irradiance_w_m2", nonNegative, "must be >= 0")
		a.set(&p.PanelEfficiency, so.PanelEfficiency, "panel_efficiency", unitOpen, "must be in (0,1]")
		a.set(&p.CloudFactor, so.CloudFactor, "cloud_factor", unitClosed, "must be in [0,1]")
	}
}

// fieldApplier writes one override value if it passes its range check,
// otherwise records an issue and leaves the default in place.
type fieldApplier struct {
	profile string
	issues  *[]OverrideIssue
}

func (a *fieldApplier) set(dst *float64, src *float64, field string, ok func(float64) bool, reason string) {
	if src == nil {
		return
	}
	if !ok(*src) {
		*a.issues = append(*a.issues, OverrideIssue{Profile: a.profile, Field: field, Value: formatValue(*src), Reason: reason})
		return
	}
	*dst = *src
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func nonNegative(v float64) bool { return v >= 0 }
func positive(v float64) bool    { return v > 0 }
func percent(v float64) bool     { return v >= 0 && v <= 100 }
func unitOpen(v float64) bool    { return v > 0 && v <= 1 }
func unitClosed(v float64) bool  { return v >= 0 && v <= 1 }

// Model returns the resolved profile for an id.
func (r *Resolved) Model(id string) (*ModelProfile, bool) {
	i, ok := r.modelIndex[id]
	if !ok {
		return nil, false
	}
	return &r.cat.Models[i], true
}

// Models returns all resolved profiles in catalog order.
func (r *Resolved) Models() []ModelProfile {
	return r.cat.Models
}

// ModelIDs returns the profile identifiers in catalog order.
func (r *Resolved) ModelIDs() []string {
	ids := make([]string, len(r.cat.Models))
	for i := range r.cat.Models {
		ids[i] = r.cat.Models[i].ID
	}
	return ids
}

// Solar returns the resolved irradiance series.
func (r *Resolved) Solar() *SolarProfile {
	return &r.cat.Solar
}

// Tier returns the resolved hardware tier for an id.
func (r *Resolved) Tier(id string) (*HardwareTier, bool) {
	i, ok := r.tierIndex[id]
	if !ok {
		return nil, false
	}
	return &r.cat.Tiers[i], true
}

// Tiers returns all resolved tiers in catalog order.
func (r *Resolved) Tiers() []HardwareTier {
	return r.cat.Tiers
}

// Version returns the catalog version the set was resolved from.
func (r *Resolved) Version() string {
	return r.cat.Version
}

// AsCatalog returns a deep copy of the resolved table in catalog form.
// Resolving that copy with no overrides yields an identical set.
func (r *Resolved) AsCatalog() Catalog {
	return cloneCatalog(r.cat)
}

// ApplyBaseLoad replaces every model's idle draw with a scenario-wide
// floor. Inference power is raised to the floor where it would fall
// below it, keeping the idle <= inference ordering. Zero or negative w
// is a no-op.
func (r *Resolved) ApplyBaseLoad(w float64) {
	if w <= 0 {
		return
	}
	for i := range r.cat.Models {
		m := &r.cat.Models[i]
		m.IdlePowerW = w
		if m.InferencePowerW < w {
			m.InferencePowerW = w
		}
	}
}

// cloneCatalog deep-copies a catalog so resolution never aliases its
// input.
func cloneCatalog(c Catalog) Catalog {
	out := Catalog{Version: c.Version}
	out.Models = make([]ModelProfile, len(c.Models))
	copy(out.Models, c.Models)
	out.Solar.Points = make([]SolarPoint, len(c.Solar.Points))
	copy(out.Solar.Points, c.Solar.Points)
	out.Tiers = make([]HardwareTier, len(c.Tiers))
	copy(out.Tiers, c.Tiers)
	return out
}
