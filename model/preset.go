package model

// Preset is a named, pre-filled set of asteroid parameters (historical events
// or reference scenarios) that a UI can offer instead of free sliders.
type Preset struct {
	Name        string             `json:"name" yaml:"name"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
	Parameters  AsteroidParameters `json:"parameters" yaml:"parameters"`
}

// BuiltinPresets returns the reference scenarios shipped with the simulator.
// The slice is freshly allocated on every call.
func BuiltinPresets() []Preset {
	return []Preset{
		{
			Name:        "Impactor-2025",
			Description: "Hypothetical 250 m stony impactor used as the reference scenario",
			Parameters: AsteroidParameters{
				DiameterMeters:    250,
				DensityKgPerM3:    3000,
				VelocityKmPerSec:  20,
				EntryAngleDegrees: 45,
			},
		},
		{
			Name:        "Chelyabinsk-2013",
			Description: "Superbolide over the southern Urals, 15 February 2013",
			Parameters: AsteroidParameters{
				DiameterMeters:    20,
				DensityKgPerM3:    3300,
				VelocityKmPerSec:  19,
				EntryAngleDegrees: 18,
			},
		},
		{
			Name:        "Tunguska-1908",
			Description: "Airburst over the Podkamennaya Tunguska river, 30 June 1908",
			Parameters: AsteroidParameters{
				DiameterMeters:    60,
				DensityKgPerM3:    2000,
				VelocityKmPerSec:  25,
				EntryAngleDegrees: 30,
			},
		},
		{
			Name:        "Chicxulub-Killer",
			Description: "K-Pg boundary impactor scale",
			Parameters: AsteroidParameters{
				DiameterMeters:    10000,
				DensityKgPerM3:    2500,
				VelocityKmPerSec:  30,
				EntryAngleDegrees: 60,
			},
		},
	}
}
