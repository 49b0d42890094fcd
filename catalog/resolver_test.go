package catalog

import (
	"reflect"
	"testing"
)

func ptr(v float64) *float64 { return &v }

// ---------- Resolve basics ----------

func TestResolve_NoOverridesKeepsDefaults(t *testing.T) {
	cat := Default()
	r, issues, err := Resolve(cat)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(issues) != 0 {
		t.Errorf("expected no issues, got %d", len(issues))
	}
	if !reflect.DeepEqual(r.AsCatalog(), cat) {
		t.Error("resolving without overrides must reproduce the catalog")
	}
}

func TestResolve_OverrideWinsPerField(t *testing.T) {
	ov := &Overrides{Models: map[string]ModelOverride{
		"TinyBERT": {IdlePowerW: ptr(1.8), AccuracyPercent: ptr(85.0)},
	}}
	r, issues, err := Resolve(Default(), ov)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected no issues, got %v", issues)
	}

	m, ok := r.Model("TinyBERT")
	if !ok {
		t.Fatal("TinyBERT missing from resolved set")
	}
	if m.IdlePowerW != 1.8 {
		t.Errorf("idle override lost: got %v", m.IdlePowerW)
	}
	if m.AccuracyPercent != 85.0 {
		t.Errorf("accuracy override lost: got %v", m.AccuracyPercent)
	}
	// Untouched fields keep catalog defaults.
	if m.InferencePowerW != 6.2 {
		t.Errorf("inference power should stay 6.2, got %v", m.InferencePowerW)
	}
	if m.AvgInferenceTimeMS != 120 {
		t.Errorf("latency should stay 120, got %v", m.AvgInferenceTimeMS)
	}
}

func TestResolve_LaterSetWins(t *testing.T) {
	first := &Overrides{Models: map[string]ModelOverride{
		"MobileNetV2": {IdlePowerW: ptr(1.0)},
	}}
	second := &Overrides{Models: map[string]ModelOverride{
		"MobileNetV2": {IdlePowerW: ptr(2.0)},
	}}
	r, _, err := Resolve(Default(), first, second)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	m, _ := r.Model("MobileNetV2")
	if m.IdlePowerW != 2.0 {
		t.Errorf("later override set should win, got %v", m.IdlePowerW)
	}
}

// ---------- Malformed overrides fall back ----------

func TestResolve_UnknownModelReported(t *testing.T) {
	ov := &Overrides{Models: map[string]ModelOverride{
		"GPT-9": {IdlePowerW: ptr(1.0)},
	}}
	r, issues, err := Resolve(Default(), ov)
	if err != nil {
		t.Fatalf("unknown model must not fail resolution: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(issues))
	}
	if issues[0].Profile != "GPT-9" {
		t.Errorf("issue should name the unknown profile, got %q", issues[0].Profile)
	}
	if !reflect.DeepEqual(r.AsCatalog(), Default()) {
		t.Error("unknown profile must leave the catalog untouched")
	}
}

func TestResolve_OutOfRangeValueFallsBack(t *testing.T) {
	// accuracy_percent = -5 is malformed; the field keeps its default.
	ov := &Overrides{Models: map[string]ModelOverride{
		"YOLOv8-nano": {AccuracyPercent: ptr(-5.0), IdlePowerW: ptr(2.0)},
	}}
	r, issues, err := Resolve(Default(), ov)
	if err != nil {
		t.Fatalf("malformed value must not fail resolution: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d: %v", len(issues), issues)
	}
	if issues[0].Field != "accuracy_percent" {
		t.Errorf("issue should name the field, got %q", issues[0].Field)
	}

	m, _ := r.Model("YOLOv8-nano")
	if m.AccuracyPercent != 80.4 {
		t.Errorf("malformed accuracy must keep default 80.4, got %v", m.AccuracyPercent)
	}
	// The valid field in the same record still applies.
	if m.IdlePowerW != 2.0 {
		t.Errorf("valid sibling field should apply, got %v", m.IdlePowerW)
	}
}

func TestResolve_PowerPairRevertsWhenInverted(t *testing.T) {
	// Idle pushed above inference: both fields revert to defaults.
	ov := &Overrides{Models: map[string]ModelOverride{
		"MobileNetV3-Small": {IdlePowerW: ptr(9.0)},
	}}
	r, issues, err := Resolve(Default(), ov)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue for inverted pair, got %d", len(issues))
	}
	m, _ := r.Model("MobileNetV3-Small")
	if m.IdlePowerW != 2.5 || m.InferencePowerW != 3.5 {
		t.Errorf("inverted pair should revert to defaults, got idle=%v inference=%v", m.IdlePowerW, m.InferencePowerW)
	}
}

func TestResolve_SolarOverridesByHour(t *testing.T) {
	ov := &Overrides{Solar: map[int]SolarOverride{
		12: {IrradianceWM2: ptr(900.0), CloudFactor: ptr(0.5)},
		25: {IrradianceWM2: ptr(100.0)}, // no such sample
	}}
	r, issues, err := Resolve(Default(), ov)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue for unknown hour, got %d: %v", len(issues), issues)
	}

	var noon SolarPoint
	for _, p := range r.Solar().Points {
		if p.Hour == 12 {
			noon = p
		}
	}
	if noon.IrradianceWM2 != 900 {
		t.Errorf("noon irradiance override lost: got %v", noon.IrradianceWM2)
	}
	if noon.CloudFactor != 0.5 {
		t.Errorf("noon cloud override lost: got %v", noon.CloudFactor)
	}
	if noon.PanelEfficiency != 0.18 {
		t.Errorf("untouched efficiency should stay 0.18, got %v", noon.PanelEfficiency)
	}
}

func TestResolve_InvalidBaseCatalogFails(t *testing.T) {
	cat := Default()
	cat.Models[0].AccuracyPercent = 200
	if _, _, err := Resolve(cat); err == nil {
		t.Error("an impossible base catalog must abort resolution")
	}
}

// ---------- Idempotence ----------

func TestResolve_Idempotent(t *testing.T) {
	ov := &Overrides{
		Models: map[string]ModelOverride{
			"DistilBERT":   {InferencePowerW: ptr(5.0)},
			"YOLOv8-small": {AccuracyPercent: ptr(90.0)},
		},
		Solar: map[int]SolarOverride{9: {CloudFactor: ptr(0.4)}},
	}
	once, _, err := Resolve(Default(), ov)
	if err != nil {
		t.Fatalf("first resolve failed: %v", err)
	}
	twice, issues, err := Resolve(once.AsCatalog())
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if len(issues) != 0 {
		t.Errorf("re-resolving resolved output must be clean, got %v", issues)
	}
	if !reflect.DeepEqual(once.AsCatalog(), twice.AsCatalog()) {
		t.Error("resolve(resolve(c,ov).AsCatalog()) must equal resolve(c,ov)")
	}
}

// ---------- Base load ----------

func TestApplyBaseLoad_ReplacesIdle(t *testing.T) {
	r, _, err := Resolve(Default())
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	r.ApplyBaseLoad(20)

	for _, m := range r.Models() {
		if m.IdlePowerW != 20 {
			t.Errorf("%s: idle = %v, want replaced by 20", m.ID, m.IdlePowerW)
		}
		// Every default inference draw sits below 20 W, so all rise with it.
		if m.InferencePowerW != 20 {
			t.Errorf("%s: inference = %v, want raised to 20", m.ID, m.InferencePowerW)
		}
	}
}

func TestApplyBaseLoad_ZeroIsNoOp(t *testing.T) {
	r, _, err := Resolve(Default())
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	r.ApplyBaseLoad(0)
	r.ApplyBaseLoad(-3)
	if !reflect.DeepEqual(r.AsCatalog(), Default()) {
		t.Error("non-positive base load must leave the catalog untouched")
	}
}

func TestApplyBaseLoad_KeepsPowerOrdering(t *testing.T) {
	r, _, err := Resolve(Default())
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	// Between idle (2.5) and the strongest inference draw (6.2).
	r.ApplyBaseLoad(5.0)
	for _, m := range r.Models() {
		if m.IdlePowerW > m.InferencePowerW {
			t.Errorf("%s: ordering broken (idle %v > inference %v)", m.ID, m.IdlePowerW, m.InferencePowerW)
		}
	}
}

// ---------- Lookup surface ----------

func TestResolved_Lookups(t *testing.T) {
	r, _, err := Resolve(Default())
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if _, ok := r.Model("nope"); ok {
		t.Error("lookup of unknown model must report absence")
	}
	if _, ok := r.Tier("esp32"); !ok {
		t.Error("esp32 tier should resolve")
	}
	ids := r.ModelIDs()
	if len(ids) != 8 || ids[0] != "YOLOv8-nano" {
		t.Errorf("model ids should preserve catalog order, got %v", ids)
	}
	if r.Version() != Version {
		t.Errorf("resolved version mismatch: %q", r.Version())
	}
}
