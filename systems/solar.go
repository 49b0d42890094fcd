package systems

import (
	"math"
	"sort"

	"github.com/pthm-cable/photovore/catalog"
)

// Sample is the interpolated solar state at one instant. Shared
// read-only by every node updated in the same tick.
type Sample struct {
	IrradianceWM2   float64
	PanelEfficiency float64
	CloudFactor     float64
}

// SurfacePowerW returns the panel-plane power density before any
// per-node modifier is applied.
func (s Sample) SurfacePowerW() float64 {
	irr := s.IrradianceWM2
	if irr < 0 {
		irr = 0
	}
	return irr * s.PanelEfficiency * s.CloudFactor
}

// SampleAt returns the solar state at the given hour of day.
// Profile points are ordered by hour; lookup interpolates linearly
// between neighbours and wraps across midnight, so every hour value
// is defined.
func SampleAt(p *catalog.SolarProfile, hour float64) Sample {
	pts := p.Points
	if len(pts) == 0 {
		return Sample{}
	}
	if len(pts) == 1 {
		return pointSample(pts[0])
	}

	h := math.Mod(hour, 24)
	if h < 0 {
		h += 24
	}

	i := sort.Search(len(pts), func(i int) bool { return pts[i].Hour > h })
	var lo, hi catalog.SolarPoint
	var t float64
	if i == 0 || i == len(pts) {
		// Between the last sample and the first of the next day.
		lo, hi = pts[len(pts)-1], pts[0]
		span := 24 - lo.Hour + hi.Hour
		if span <= 0 {
			span = 24
		}
		d := h - lo.Hour
		if d < 0 {
			d += 24
		}
		t = d / span
	} else {
		lo, hi = pts[i-1], pts[i]
		t = (h - lo.Hour) / (hi.Hour - lo.Hour)
	}

	return Sample{
		IrradianceWM2:   lerp(lo.IrradianceWM2, hi.IrradianceWM2, t),
		PanelEfficiency: lerp(lo.PanelEfficiency, hi.PanelEfficiency, t),
		CloudFactor:     lerp(lo.CloudFactor, hi.CloudFactor, t),
	}
}

// HarvestPowerW returns the power one node draws from its panel:
// surface power scaled by the gene's solar modifier and the global
// availability factor, capped at the tier's input limit.
// maxInputW <= 0 means uncapped. Never negative.
func HarvestPowerW(s Sample, modifier, availability, maxInputW float64) float64 {
	w := s.SurfacePowerW() * modifier * availability
	if w < 0 {
		w = 0
	}
	if maxInputW > 0 && w > maxInputW {
		w = maxInputW
	}
	return w
}

func pointSample(p catalog.SolarPoint) Sample {
	return Sample{
		IrradianceWM2:   p.IrradianceWM2,
		PanelEfficiency: p.PanelEfficiency,
		CloudFactor:     p.CloudFactor,
	}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
