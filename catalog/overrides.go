package catalog

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
)

// OverrideIssue records one rejected override cell or row. Issues are
// reported and logged, never fatal; the affected field keeps its
// catalog default.
type OverrideIssue struct {
	Profile string
	Field   string
	Value   string
	Reason  string
}

func (i OverrideIssue) String() string {
	return fmt.Sprintf("override %s.%s=%q rejected: %s", i.Profile, i.Field, i.Value, i.Reason)
}

// ModelOverride is a sparse field-level override for one model profile.
// Nil fields keep the catalog default.
type ModelOverride struct {
	IdlePowerW         *float64
	InferencePowerW    *float64
	AccuracyPercent    *float64
	AvgInferenceTimeMS *float64
	ModelSizeMB        *float64
	ParametersMillions *float64
}

// SolarOverride is a sparse field-level override for one solar sample,
// keyed by integer hour.
type SolarOverride struct {
	IrradianceWM2   *float64
	PanelEfficiency *float64
	CloudFactor     *float64
}

// Overrides is one loader output: partial mappings from profile
// identifier to field values. Multiple outputs merge in Resolve with
// later outputs winning per-field.
type Overrides struct {
	Models map[string]ModelOverride
	Solar  map[int]SolarOverride
}

// Empty reports whether the set carries no overrides at all.
func (o *Overrides) Empty() bool {
	return o == nil || (len(o.Models) == 0 && len(o.Solar) == 0)
}

// modelOverrideRow mirrors the model override CSV. All cells load as
// strings so that absent columns and blank cells stay distinguishable
// from explicit zeros.
type modelOverrideRow struct {
	ModelName          string `csv:"model_name"`
	IdlePowerW         string `csv:"idle_power_w"`
	InferencePowerW    string `csv:"inference_power_w"`
	AccuracyPercent    string `csv:"accuracy_percent"`
	AvgInferenceTimeMS string `csv:"avg_inference_time_ms"`
	ModelSizeMB        string `csv:"model_size_mb"`
	ParametersMillions string `csv:"parameters_millions"`
}

// solarOverrideRow mirrors the solar override CSV.
type solarOverrideRow struct {
	Hour            string `csv:"hour"`
	IrradianceWM2   string `csv:"avg_irradiance_w_m2"`
	PanelEfficiency string `csv:"panel_efficiency"`
	CloudFactor     string `csv:"cloud_factor"`
}

// LoadModelOverrides reads a model override CSV. The returned issues
// cover cells that failed to parse; the error covers unreadable or
// structurally broken files. Either way the simulation proceeds on
// catalog defaults for whatever was rejected.
func LoadModelOverrides(path string) (*Overrides, []OverrideIssue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening model overrides: %w", err)
	}
	defer f.Close()

	var rows []*modelOverrideRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, nil, fmt.Errorf("parsing model overrides: %w", err)
	}

	ov := &Overrides{Models: make(map[string]ModelOverride, len(rows))}
	var issues []OverrideIssue
	for _, row := range rows {
		name := strings.TrimSpace(row.ModelName)
		if name == "" {
			issues = append(issues, OverrideIssue{Profile: "?", Field: "model_name", Reason: "missing identifier"})
			continue
		}
		mo := ov.Models[name] // later rows extend earlier ones per-field
		mo.IdlePowerW = parseCell(name, "idle_power_w", row.IdlePowerW, mo.IdlePowerW, &issues)
		mo.InferencePowerW = parseCell(name, "inference_power_w", row.InferencePowerW, mo.InferencePowerW, &issues)
		mo.AccuracyPercent = parseCell(name, "accuracy_percent", row.AccuracyPercent, mo.AccuracyPercent, &issues)
		mo.AvgInferenceTimeMS = parseCell(name, "avg_inference_time_ms", row.AvgInferenceTimeMS, mo.AvgInferenceTimeMS, &issues)
		mo.ModelSizeMB = parseCell(name, "model_size_mb", row.ModelSizeMB, mo.ModelSizeMB, &issues)
		mo.ParametersMillions = parseCell(name, "parameters_millions", row.ParametersMillions, mo.ParametersMillions, &issues)
		ov.Models[name] = mo
	}
	return ov, issues, nil
}

// LoadSolarOverrides reads a solar override CSV keyed by hour of day.
func LoadSolarOverrides(path string) (*Overrides, []OverrideIssue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening solar overrides: %w", err)
	}
	defer f.Close()

	var rows []*solarOverrideRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, nil, fmt.Errorf("parsing solar overrides: %w", err)
	}

	ov := &Overrides{Solar: make(map[int]SolarOverride, len(rows))}
	var issues []OverrideIssue
	for _, row := range rows {
		raw := strings.TrimSpace(row.Hour)
		if raw == "" {
			issues = append(issues, OverrideIssue{Profile: "?", Field: "hour", Reason: "missing identifier"})
			continue
		}
		hour, err := strconv.Atoi(raw)
		if err != nil {
			issues = append(issues, OverrideIssue{Profile: raw, Field: "hour", Value: raw, Reason: "not an integer"})
			continue
		}
		key := solarProfileID(hour)
		so := ov.Solar[hour]
		so.IrradianceWM2 = parseCell(key, "avg_irradiance_w_m2", row.IrradianceWM2, so.IrradianceWM2, &issues)
		so.PanelEfficiency = parseCell(key, "panel_efficiency", row.PanelEfficiency, so.PanelEfficiency, &issues)
		so.CloudFactor = parseCell(key, "cloud_factor", row.CloudFactor, so.CloudFactor, &issues)
		ov.Solar[hour] = so
	}
	return ov, issues, nil
}

// solarProfileID names a solar row in issue reports.
func solarProfileID(hour int) string {
	return fmt.Sprintf("solar[%d]", hour)
}

// parseCell parses one override cell. Blank cells mean "no override"
// and keep prev; unparseable or non-finite cells record an issue and
// keep prev.
func parseCell(profile, field, raw string, prev *float64, issues *[]OverrideIssue) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return prev
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*issues = append(*issues, OverrideIssue{Profile: profile, Field: field, Value: raw, Reason: "not a number"})
		return prev
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		*issues = append(*issues, OverrideIssue{Profile: profile, Field: field, Value: raw, Reason: "not finite"})
		return prev
	}
	return &v
}
