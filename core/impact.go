package core

import (
	"fmt"
	"math"

	"github.com/signalsfoundry/impact-simulator/model"
)

// Constants of the impact model. They are part of the displayed contract and
// are deliberately not configurable.
const (
	// JoulesPerTonTNT is the energy released by one metric ton of TNT.
	JoulesPerTonTNT = 4.184e9
	// WorldPopulation caps the population-at-risk estimate.
	WorldPopulation = 8_000_000_000.0
	// EarthDiameterKm is the miss distance a deflection must exceed to clear
	// the planet.
	EarthDiameterKm = 12_756.0
	// DeflectionBaselineMeters is the Earth-Moon distance, used only as a
	// reference scale for how far off course a deflected body ends up.
	DeflectionBaselineMeters = 384_400_000.0

	craterCoefficient      = 1.25
	craterMassScaleKg      = 1e12
	craterMassExponent     = 0.25
	craterVelocityExponent = 0.5
	craterDepthRatio       = 0.2
	populationPerCraterKm2 = 1_000_000.0
	survivalLossPerMegaton = 50.0
)

// ImpactReport holds every derived quantity of one impact computation. It has
// no identity; a new report is computed for every input change.
type ImpactReport struct {
	MassKg                float64 `json:"mass_kg"`
	KineticEnergyJoules   float64 `json:"kinetic_energy_j"`
	TNTEquivalentTons     float64 `json:"tnt_equivalent_tons"`
	CraterDiameterMeters  float64 `json:"crater_diameter_m"`
	CraterDepthMeters     float64 `json:"crater_depth_m"`
	PopulationAtRisk      float64 `json:"population_at_risk"`
	SurvivalChancePercent float64 `json:"survival_chance_percent"`

	DeflectionAngleRad   float64 `json:"deflection_angle_rad"`
	DeflectionDistanceKm float64 `json:"deflection_distance_km"`
	// ClearsEarth is true when the deflection moves the body further off
	// course than Earth's diameter.
	ClearsEarth bool `json:"clears_earth"`
}

// ComputeImpactReport converts asteroid parameters and an applied deflection
// into energy, crater, casualty and survival estimates.
//
// The formulas are simplified scaling laws, not rigorous physics; their
// constants and exponents are fixed and reproduced exactly. Inputs outside the
// documented domain fail with ErrInvalidParameter and no partial report.
func ComputeImpactReport(p model.AsteroidParameters, d model.DeflectionImpulse) (ImpactReport, error) {
	if err := ValidateImpactInputs(p, d); err != nil {
		return ImpactReport{}, err
	}

	radius := p.DiameterMeters / 2
	volume := (4.0 / 3.0) * math.Pi * math.Pow(radius, 3)
	mass := volume * p.DensityKgPerM3

	vms := p.VelocityKmPerSec * 1000
	energy := 0.5 * mass * vms * vms
	tnt := energy / JoulesPerTonTNT

	crater := craterCoefficient *
		math.Pow(mass/craterMassScaleKg, craterMassExponent) *
		math.Pow(p.VelocityKmPerSec, craterVelocityExponent) *
		1000
	craterKm := crater / 1000
	population := math.Min(craterKm*craterKm*populationPerCraterKm2, WorldPopulation)

	deflectionAngle := (d.DeltaVKmPerSec * 1000) / vms
	deflectionKm := deflectionAngle * DeflectionBaselineMeters / 1000
	clears := deflectionKm > EarthDiameterKm

	survival := 100.0
	if !clears {
		survival = math.Max(0, 100-(tnt/1_000_000)*survivalLossPerMegaton)
	}

	r := ImpactReport{
		MassKg:                mass,
		KineticEnergyJoules:   energy,
		TNTEquivalentTons:     tnt,
		CraterDiameterMeters:  crater,
		CraterDepthMeters:     crater * craterDepthRatio,
		PopulationAtRisk:      population,
		SurvivalChancePercent: survival,
		DeflectionAngleRad:    deflectionAngle,
		DeflectionDistanceKm:  deflectionKm,
		ClearsEarth:           clears,
	}
	if !r.finite() {
		return ImpactReport{}, fmt.Errorf("%w: parameters overflow the model (diameter_m=%v, velocity_km_s=%v)",
			ErrInvalidParameter, p.DiameterMeters, p.VelocityKmPerSec)
	}
	return r, nil
}

func (r ImpactReport) finite() bool {
	for _, v := range []float64{
		r.MassKg, r.KineticEnergyJoules, r.TNTEquivalentTons,
		r.CraterDiameterMeters, r.CraterDepthMeters, r.DeflectionDistanceKm,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Threat classifies the report's energy release.
func (r ImpactReport) Threat() ThreatLevel {
	return ClassifyThreat(r.TNTEquivalentTons)
}

// ThreatLevel is a display band derived from the TNT equivalent.
type ThreatLevel int

const (
	ThreatLocal      ThreatLevel = iota // < 1 kt
	ThreatRegional                      // 1 kt .. 100 kt
	ThreatGlobal                        // 100 kt .. 10 Mt
	ThreatExtinction                    // >= 10 Mt
)

// Band breakpoints in tons of TNT. Each band includes its lower bound.
const (
	RegionalThresholdTons   = 1_000.0
	GlobalThresholdTons     = 100_000.0
	ExtinctionThresholdTons = 10_000_000.0
)

// ClassifyThreat maps a TNT equivalent onto its threat band.
func ClassifyThreat(tntTons float64) ThreatLevel {
	switch {
	case tntTons < RegionalThresholdTons:
		return ThreatLocal
	case tntTons < GlobalThresholdTons:
		return ThreatRegional
	case tntTons < ExtinctionThresholdTons:
		return ThreatGlobal
	default:
		return ThreatExtinction
	}
}

// String returns the display label.
func (t ThreatLevel) String() string {
	switch t {
	case ThreatLocal:
		return "local impact"
	case ThreatRegional:
		return "regional devastation"
	case ThreatGlobal:
		return "global catastrophe"
	case ThreatExtinction:
		return "extinction event"
	default:
		return fmt.Sprintf("ThreatLevel(%d)", int(t))
	}
}

// Slug returns a short identifier suitable for metric labels and JSON.
func (t ThreatLevel) Slug() string {
	switch t {
	case ThreatLocal:
		return "local"
	case ThreatRegional:
		return "regional"
	case ThreatGlobal:
		return "global"
	case ThreatExtinction:
		return "extinction"
	default:
		return "unknown"
	}
}

// FormatTNT renders a TNT equivalent in kilotons, or megatons from 1 Mt up.
func FormatTNT(tons float64) string {
	if tons >= 1e6 {
		return fmt.Sprintf("%.1f Mt", tons/1e6)
	}
	return fmt.Sprintf("%.1f kt", tons/1e3)
}

// DeflectionStatus is the human-readable outcome of the applied deflection.
func (r ImpactReport) DeflectionStatus() string {
	if r.ClearsEarth {
		return "Earth miss"
	}
	return "impact still likely"
}

// Assessment narrative breakpoints in tons of TNT. They are coarser than the
// threat bands and kept separately.
const (
	assessmentRegionalTons     = 1_000.0
	assessmentCivilizationTons = 1_000_000.0
)

// Assessment is a one-paragraph reading of the report for display.
func (r ImpactReport) Assessment() string {
	var text string
	switch {
	case r.TNTEquivalentTons < assessmentRegionalTons:
		text = "This asteroid would likely burn up in the atmosphere or cause minimal damage."
	case r.TNTEquivalentTons < assessmentCivilizationTons:
		text = "This impact would cause significant regional destruction, similar to major nuclear weapons."
	default:
		text = "This would be a civilization-threatening event, potentially causing global climate effects."
	}
	if r.DeflectionDistanceKm > 0 && r.ClearsEarth {
		text += " However, the applied deflection would successfully divert the asteroid away from Earth!"
	}
	return text
}
