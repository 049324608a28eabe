package core

import (
	"fmt"
	"math"

	"github.com/signalsfoundry/impact-simulator/model"
)

func validatePositive(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidParameter, field, v)
	}
	if v <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidParameter, field, v)
	}
	return nil
}

func validateDeflection(d model.DeflectionImpulse) error {
	v := d.DeltaVKmPerSec
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: delta_v_km_s must be finite, got %v", ErrInvalidParameter, v)
	}
	if v < 0 {
		return fmt.Errorf("%w: delta_v_km_s must not be negative, got %v", ErrInvalidParameter, v)
	}
	return nil
}

// ValidateImpactInputs checks the domain of the physics engine. The entry
// angle does not enter any physics formula and is not checked here.
func ValidateImpactInputs(p model.AsteroidParameters, d model.DeflectionImpulse) error {
	if err := validatePositive("diameter_m", p.DiameterMeters); err != nil {
		return err
	}
	if err := validatePositive("density_kg_m3", p.DensityKgPerM3); err != nil {
		return err
	}
	if err := validatePositive("velocity_km_s", p.VelocityKmPerSec); err != nil {
		return err
	}
	return validateDeflection(d)
}

// ValidateTrajectoryInputs checks the domain of the trajectory model: positive
// diameter and velocity, entry angle in (0, 90] degrees, non-negative delta-v.
// Density plays no part in the geometry and is not checked.
func ValidateTrajectoryInputs(p model.AsteroidParameters, d model.DeflectionImpulse) error {
	if err := validatePositive("diameter_m", p.DiameterMeters); err != nil {
		return err
	}
	if err := validatePositive("velocity_km_s", p.VelocityKmPerSec); err != nil {
		return err
	}
	a := p.EntryAngleDegrees
	if math.IsNaN(a) || a <= 0 || a > 90 {
		return fmt.Errorf("%w: entry_angle_deg must be in (0, 90], got %v", ErrInvalidParameter, a)
	}
	return validateDeflection(d)
}
