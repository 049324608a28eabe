package core

import (
	"math"

	"github.com/signalsfoundry/impact-simulator/model"
)

// Trajectory model constants, in design units.
const (
	// TrajectorySteps is the number of intervals the approach is split into.
	TrajectorySteps = 50
	// TrajectoryPointCount is the fixed number of emitted samples.
	TrajectoryPointCount = TrajectorySteps + 1

	StartDistance    = 15.0
	TargetRadius     = 2.0
	ContactTolerance = 0.1

	// DeflectionRampGain converts delta-v (km/s) into the total heading bend
	// (radians) accumulated over the approach.
	DeflectionRampGain = 0.5

	MinRenderSize     = 0.05
	RenderScaleMeters = 500.0
)

// PathSample is one step of the discretised approach.
type PathSample struct {
	T        float64 `json:"t"`
	Heading  float64 `json:"heading_rad"`
	Distance float64 `json:"distance"`
	Position Vec3    `json:"position"`
}

// Trajectory is the planar approach path of one body towards the target
// sphere centred at the origin. Samples run from the far start point (index 0)
// to the closest approach (last index).
type Trajectory struct {
	Samples [TrajectoryPointCount]PathSample `json:"samples"`

	WillImpact bool `json:"will_impact"`
	// ImpactPoint is the final sample position when WillImpact is set and the
	// origin otherwise. Gate on WillImpact; do not infer a miss from the value.
	ImpactPoint Vec3 `json:"impact_point"`
	// SurfaceEntry is where the path first reaches the target surface. Only
	// meaningful when WillImpact is set.
	SurfaceEntry Vec3 `json:"surface_entry"`

	// RenderSize is a presentation hint for the body's drawn radius.
	RenderSize float64 `json:"render_size"`
}

// Points returns the sample positions in order.
func (t Trajectory) Points() []Vec3 {
	out := make([]Vec3, len(t.Samples))
	for i, s := range t.Samples {
		out[i] = s.Position
	}
	return out
}

// Final returns the closest-approach sample.
func (t Trajectory) Final() PathSample {
	return t.Samples[len(t.Samples)-1]
}

// ComputeTrajectory turns asteroid parameters and a deflection into a
// discretised approach path and an impact/miss verdict.
//
// The body closes from StartDistance towards the origin while the deflection
// bends its heading linearly over the approach. The full bend leaves a miss
// distance m = StartDistance * (1 - cos(min(bend, pi/2))) at t = 1 and the
// distance falls linearly onto it, so it never increases and the last sample
// is the closest approach. With no deflection the path closes exactly onto
// the origin. Velocity is validated but does not shape the path.
func ComputeTrajectory(p model.AsteroidParameters, d model.DeflectionImpulse) (Trajectory, error) {
	if err := ValidateTrajectoryInputs(p, d); err != nil {
		return Trajectory{}, err
	}

	angleRad := p.EntryAngleDegrees * math.Pi / 180
	deflectionEffect := d.DeltaVKmPerSec * DeflectionRampGain
	// Past a quarter turn the body no longer closes at all.
	miss := StartDistance * (1 - math.Cos(math.Min(deflectionEffect, math.Pi/2)))

	var tr Trajectory
	for i := 0; i <= TrajectorySteps; i++ {
		t := float64(i) / TrajectorySteps
		bend := deflectionEffect * t
		heading := angleRad + bend
		distance := StartDistance*(1-t) + t*miss

		tr.Samples[i] = PathSample{
			T:        t,
			Heading:  heading,
			Distance: distance,
			Position: Vec3{
				X: distance * math.Cos(heading),
				Y: distance * math.Sin(heading),
				Z: 0,
			},
		}
	}

	final := tr.Final()
	tr.WillImpact = final.Position.Norm() <= TargetRadius+ContactTolerance
	if tr.WillImpact {
		tr.ImpactPoint = final.Position
		tr.SurfaceEntry = surfaceEntry(tr.Samples[:], final)
	}

	tr.RenderSize = math.Max(MinRenderSize, p.DiameterMeters/RenderScaleMeters)
	return tr, nil
}

// surfaceEntry finds where the path first reaches the target sphere. A path
// that only grazes within the contact tolerance is projected onto the surface.
func surfaceEntry(samples []PathSample, final PathSample) Vec3 {
	for i := 1; i < len(samples); i++ {
		if p, ok := segmentSphereEntry(samples[i-1].Position, samples[i].Position, TargetRadius); ok {
			return p
		}
	}
	return projectOntoSphere(final.Position, TargetRadius, final.Heading)
}
