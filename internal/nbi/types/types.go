// Package types holds the wire messages of the impact service and the mapping
// functions between them and the simulator's domain model.
//
// Messages are plain Go structs carried by the service's JSON codec. Field
// names follow the snake_case unit-suffixed convention of the domain model so
// that gRPC and HTTP payloads are interchangeable.
package types

import (
	"time"

	"github.com/signalsfoundry/impact-simulator/core"
	"github.com/signalsfoundry/impact-simulator/model"
)

// Asteroid is the wire form of model.AsteroidParameters. A zero density means
// "not supplied" and is filled with model.DefaultDensityKgPerM3.
type Asteroid struct {
	DiameterM     float64 `json:"diameter_m"`
	DensityKgM3   float64 `json:"density_kg_m3,omitempty"`
	VelocityKmS   float64 `json:"velocity_km_s"`
	EntryAngleDeg float64 `json:"entry_angle_deg"`
}

// Deflection is the wire form of model.DeflectionImpulse.
type Deflection struct {
	DeltaVKmS float64 `json:"delta_v_km_s"`
}

// SimulationRequest is shared by ComputeImpact, ComputeTrajectory and
// Simulate. Exactly one of Asteroid or Preset selects the body.
type SimulationRequest struct {
	Asteroid   *Asteroid  `json:"asteroid,omitempty"`
	Preset     string     `json:"preset,omitempty"`
	Deflection Deflection `json:"deflection"`
}

// Vec3 is a point in the design frame.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ImpactReport is the wire form of core.ImpactReport plus its derived labels.
type ImpactReport struct {
	MassKg                float64 `json:"mass_kg"`
	KineticEnergyJoules   float64 `json:"kinetic_energy_j"`
	TNTEquivalentTons     float64 `json:"tnt_equivalent_tons"`
	TNTDisplay            string  `json:"tnt_display"`
	CraterDiameterMeters  float64 `json:"crater_diameter_m"`
	CraterDepthMeters     float64 `json:"crater_depth_m"`
	PopulationAtRisk      float64 `json:"population_at_risk"`
	SurvivalChancePercent float64 `json:"survival_chance_percent"`

	Threat      string `json:"threat"`
	ThreatLabel string `json:"threat_label"`

	DeflectionAngleRad   float64 `json:"deflection_angle_rad"`
	DeflectionDistanceKm float64 `json:"deflection_distance_km"`
	ClearsEarth          bool    `json:"clears_earth"`
	DeflectionStatus     string  `json:"deflection_status"`
	Assessment           string  `json:"assessment"`
}

// ImpactSite is a geodetic impact location.
type ImpactSite struct {
	LatitudeDeg  float64   `json:"latitude_deg"`
	LongitudeDeg float64   `json:"longitude_deg"`
	Epoch        time.Time `json:"epoch"`
}

// Trajectory is the wire form of core.Trajectory. The impact fields are
// omitted on a miss instead of carrying the origin sentinel.
type Trajectory struct {
	Points       []Vec3      `json:"points"`
	WillImpact   bool        `json:"will_impact"`
	ImpactPoint  *Vec3       `json:"impact_point,omitempty"`
	SurfaceEntry *Vec3       `json:"surface_entry,omitempty"`
	ImpactSite   *ImpactSite `json:"impact_site,omitempty"`
	RenderSize   float64     `json:"render_size"`
}

// ImpactResponse answers ComputeImpact.
type ImpactResponse struct {
	Report ImpactReport `json:"report"`
}

// TrajectoryResponse answers ComputeTrajectory.
type TrajectoryResponse struct {
	Trajectory Trajectory `json:"trajectory"`
}

// SimulateResponse answers Simulate with both computations for one input.
type SimulateResponse struct {
	Report     ImpactReport `json:"report"`
	Trajectory Trajectory   `json:"trajectory"`
	Cached     bool         `json:"cached,omitempty"`
}

// Preset is the wire form of model.Preset.
type Preset struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Asteroid    Asteroid `json:"asteroid"`
}

type ListPresetsRequest struct{}

type ListPresetsResponse struct {
	Presets []Preset `json:"presets"`
}

type GetPresetRequest struct {
	Name string `json:"name"`
}

type GetPresetResponse struct {
	Preset Preset `json:"preset"`
}

// AsteroidFromWire converts wire parameters into the domain model, filling
// the default density. Range checks are left to the core package.
func AsteroidFromWire(a *Asteroid) model.AsteroidParameters {
	if a == nil {
		return model.AsteroidParameters{}
	}
	return model.AsteroidParameters{
		DiameterMeters:    a.DiameterM,
		DensityKgPerM3:    a.DensityKgM3,
		VelocityKmPerSec:  a.VelocityKmS,
		EntryAngleDegrees: a.EntryAngleDeg,
	}.WithDefaults()
}

// AsteroidToWire converts domain parameters into their wire form.
func AsteroidToWire(p model.AsteroidParameters) Asteroid {
	return Asteroid{
		DiameterM:     p.DiameterMeters,
		DensityKgM3:   p.DensityKgPerM3,
		VelocityKmS:   p.VelocityKmPerSec,
		EntryAngleDeg: p.EntryAngleDegrees,
	}
}

// DeflectionFromWire converts a wire deflection into the domain model.
func DeflectionFromWire(d Deflection) model.DeflectionImpulse {
	return model.DeflectionImpulse{DeltaVKmPerSec: d.DeltaVKmS}
}

// ReportToWire converts a computed report and attaches its display labels.
func ReportToWire(r core.ImpactReport) ImpactReport {
	threat := r.Threat()
	return ImpactReport{
		MassKg:                r.MassKg,
		KineticEnergyJoules:   r.KineticEnergyJoules,
		TNTEquivalentTons:     r.TNTEquivalentTons,
		TNTDisplay:            core.FormatTNT(r.TNTEquivalentTons),
		CraterDiameterMeters:  r.CraterDiameterMeters,
		CraterDepthMeters:     r.CraterDepthMeters,
		PopulationAtRisk:      r.PopulationAtRisk,
		SurvivalChancePercent: r.SurvivalChancePercent,
		Threat:                threat.Slug(),
		ThreatLabel:           threat.String(),
		DeflectionAngleRad:    r.DeflectionAngleRad,
		DeflectionDistanceKm:  r.DeflectionDistanceKm,
		ClearsEarth:           r.ClearsEarth,
		DeflectionStatus:      r.DeflectionStatus(),
		Assessment:            r.Assessment(),
	}
}

// TrajectoryToWire converts a computed trajectory. site may be nil.
func TrajectoryToWire(tr core.Trajectory, site *core.ImpactSite) Trajectory {
	out := Trajectory{
		Points:     make([]Vec3, 0, len(tr.Samples)),
		WillImpact: tr.WillImpact,
		RenderSize: tr.RenderSize,
	}
	for _, p := range tr.Points() {
		out.Points = append(out.Points, Vec3ToWire(p))
	}
	if tr.WillImpact {
		ip := Vec3ToWire(tr.ImpactPoint)
		se := Vec3ToWire(tr.SurfaceEntry)
		out.ImpactPoint = &ip
		out.SurfaceEntry = &se
		if site != nil {
			out.ImpactSite = &ImpactSite{
				LatitudeDeg:  site.LatitudeDeg,
				LongitudeDeg: site.LongitudeDeg,
				Epoch:        site.Epoch,
			}
		}
	}
	return out
}

// Vec3ToWire converts a design-frame point.
func Vec3ToWire(v core.Vec3) Vec3 {
	return Vec3{X: v.X, Y: v.Y, Z: v.Z}
}

// PresetToWire converts a catalog preset.
func PresetToWire(p model.Preset) Preset {
	return Preset{
		Name:        p.Name,
		Description: p.Description,
		Asteroid:    AsteroidToWire(p.Parameters),
	}
}

// PresetsToWire converts a list of presets, preserving order.
func PresetsToWire(ps []model.Preset) []Preset {
	out := make([]Preset, 0, len(ps))
	for _, p := range ps {
		out = append(out, PresetToWire(p))
	}
	return out
}
