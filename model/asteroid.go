package model

// DefaultDensityKgPerM3 is the bulk density assumed for a custom (stony)
// asteroid when the caller does not supply one.
const DefaultDensityKgPerM3 = 3000.0

// AsteroidParameters describes the physical body and its approach. Values are
// immutable per computation; callers build a fresh struct for every change.
type AsteroidParameters struct {
	DiameterMeters    float64 `json:"diameter_m" yaml:"diameter_m"`
	DensityKgPerM3    float64 `json:"density_kg_m3" yaml:"density_kg_m3"`
	VelocityKmPerSec  float64 `json:"velocity_km_s" yaml:"velocity_km_s"`
	EntryAngleDegrees float64 `json:"entry_angle_deg" yaml:"entry_angle_deg"` // from horizontal
}

// DeflectionImpulse is an externally applied velocity change. It is treated as
// an angular perturbation of the original heading, not a vector sum.
type DeflectionImpulse struct {
	DeltaVKmPerSec float64 `json:"delta_v_km_s" yaml:"delta_v_km_s"`
}

// WithDefaults fills a zero density with DefaultDensityKgPerM3.
func (p AsteroidParameters) WithDefaults() AsteroidParameters {
	if p.DensityKgPerM3 == 0 {
		p.DensityKgPerM3 = DefaultDensityKgPerM3
	}
	return p
}
