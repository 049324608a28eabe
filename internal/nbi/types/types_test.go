package types

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/impact-simulator/core"
	"github.com/signalsfoundry/impact-simulator/model"
)

func TestAsteroidFromWireFillsDefaultDensity(t *testing.T) {
	got := AsteroidFromWire(&Asteroid{DiameterM: 250, VelocityKmS: 20, EntryAngleDeg: 45})
	if got.DensityKgPerM3 != model.DefaultDensityKgPerM3 {
		t.Fatalf("density = %v, want %v", got.DensityKgPerM3, model.DefaultDensityKgPerM3)
	}
	if got.DiameterMeters != 250 || got.VelocityKmPerSec != 20 || got.EntryAngleDegrees != 45 {
		t.Fatalf("unexpected mapping: %+v", got)
	}

	explicit := AsteroidFromWire(&Asteroid{DiameterM: 20, DensityKgM3: 3300, VelocityKmS: 19, EntryAngleDeg: 18})
	if explicit.DensityKgPerM3 != 3300 {
		t.Fatalf("explicit density = %v, want 3300", explicit.DensityKgPerM3)
	}
	if back := AsteroidToWire(explicit); back != (Asteroid{DiameterM: 20, DensityKgM3: 3300, VelocityKmS: 19, EntryAngleDeg: 18}) {
		t.Fatalf("AsteroidToWire = %+v", back)
	}

	if got := AsteroidFromWire(nil); got.DiameterMeters != 0 {
		t.Fatalf("AsteroidFromWire(nil) = %+v, want zero value", got)
	}
}

func TestReportToWireLabels(t *testing.T) {
	p := model.AsteroidParameters{DiameterMeters: 20, DensityKgPerM3: 3300, VelocityKmPerSec: 19, EntryAngleDegrees: 18}
	r, err := core.ComputeImpactReport(p, model.DeflectionImpulse{})
	if err != nil {
		t.Fatalf("ComputeImpactReport: %v", err)
	}
	w := ReportToWire(r)
	if w.Threat != "global" || w.ThreatLabel != "global catastrophe" {
		t.Fatalf("threat = %q/%q, want global/global catastrophe", w.Threat, w.ThreatLabel)
	}
	if w.TNTDisplay != "596.3 kt" {
		t.Fatalf("TNTDisplay = %q, want 596.3 kt", w.TNTDisplay)
	}
	if w.DeflectionStatus != "impact still likely" {
		t.Fatalf("DeflectionStatus = %q", w.DeflectionStatus)
	}
	if w.Assessment != r.Assessment() || !strings.Contains(w.Assessment, "regional destruction") {
		t.Fatalf("Assessment = %q, want the regional narrative", w.Assessment)
	}
	if w.TNTEquivalentTons != r.TNTEquivalentTons || w.CraterDepthMeters != r.CraterDepthMeters {
		t.Fatalf("numeric fields not copied: %+v", w)
	}
}

func TestTrajectoryToWireImpactAndMiss(t *testing.T) {
	p := model.AsteroidParameters{DiameterMeters: 250, VelocityKmPerSec: 20, EntryAngleDegrees: 45}

	hit, err := core.ComputeTrajectory(p, model.DeflectionImpulse{})
	if err != nil {
		t.Fatalf("ComputeTrajectory: %v", err)
	}
	site := &core.ImpactSite{LatitudeDeg: 0, LongitudeDeg: 12.5, Epoch: time.Date(2029, 4, 13, 21, 46, 0, 0, time.UTC)}
	w := TrajectoryToWire(hit, site)
	if len(w.Points) != core.TrajectoryPointCount {
		t.Fatalf("len(Points) = %d, want %d", len(w.Points), core.TrajectoryPointCount)
	}
	if !w.WillImpact || w.ImpactPoint == nil || w.SurfaceEntry == nil || w.ImpactSite == nil {
		t.Fatalf("impact trajectory missing impact fields: %+v", w)
	}
	if w.ImpactSite.LongitudeDeg != 12.5 {
		t.Fatalf("ImpactSite = %+v", w.ImpactSite)
	}

	miss, err := core.ComputeTrajectory(p, model.DeflectionImpulse{DeltaVKmPerSec: 3})
	if err != nil {
		t.Fatalf("ComputeTrajectory: %v", err)
	}
	w = TrajectoryToWire(miss, site)
	if w.WillImpact || w.ImpactPoint != nil || w.SurfaceEntry != nil || w.ImpactSite != nil {
		t.Fatalf("miss trajectory carries impact fields: %+v", w)
	}

	raw, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	if strings.Contains(string(raw), "impact_point") {
		t.Fatalf("miss JSON should omit impact_point: %s", raw)
	}
}

func TestPresetsToWire(t *testing.T) {
	out := PresetsToWire(model.BuiltinPresets())
	if len(out) != 4 {
		t.Fatalf("len = %d, want 4", len(out))
	}
	if out[0].Name != "Impactor-2025" || out[0].Asteroid.DiameterM != 250 {
		t.Fatalf("first preset = %+v", out[0])
	}
}

func TestSimulationRequestJSON(t *testing.T) {
	const body = `{"asteroid":{"diameter_m":250,"velocity_km_s":20,"entry_angle_deg":45},"deflection":{"delta_v_km_s":0.6}}`
	var req SimulationRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if req.Asteroid == nil || req.Asteroid.DiameterM != 250 || req.Deflection.DeltaVKmS != 0.6 || req.Preset != "" {
		t.Fatalf("decoded request = %+v", req)
	}
}
