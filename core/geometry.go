package core

import "math"

// EarthRadiusKm is the mean Earth radius used to scale the design-unit target
// sphere onto the real planet (kilometres).
const EarthRadiusKm = 6371.0

// Vec3 is a point or direction in trajectory design units.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// DistanceTo returns the straight-line distance between two points.
func (v Vec3) DistanceTo(other Vec3) float64 {
	return v.Sub(other).Norm()
}

// Norm returns the Euclidean norm of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Scale returns v multiplied by k.
func (v Vec3) Scale(k float64) Vec3 {
	return Vec3{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// segmentSphereEntry returns the first point where the segment p1->p2 enters
// the sphere of the given radius centred at the origin. A segment that starts
// inside the sphere enters at p1.
func segmentSphereEntry(p1, p2 Vec3, radius float64) (Vec3, bool) {
	c := p1.Dot(p1) - radius*radius
	if c <= 0 {
		return p1, true
	}

	v := p2.Sub(p1)
	a := v.Dot(v)
	if a == 0 {
		// Degenerate segment outside the sphere.
		return Vec3{}, false
	}

	// |p1 + s v|^2 = r^2, smallest root in [0, 1].
	b := 2 * p1.Dot(v)
	disc := b*b - 4*a*c
	if disc < 0 {
		return Vec3{}, false
	}
	s := (-b - math.Sqrt(disc)) / (2 * a)
	if s < 0 || s > 1 {
		return Vec3{}, false
	}
	return p1.Add(v.Scale(s)), true
}

// projectOntoSphere scales p onto the sphere surface. The origin has no
// direction, so the supplied heading (radians in the XY plane) is used instead.
func projectOntoSphere(p Vec3, radius, heading float64) Vec3 {
	n := p.Norm()
	if n == 0 {
		return Vec3{X: radius * math.Cos(heading), Y: radius * math.Sin(heading)}
	}
	return p.Scale(radius / n)
}
