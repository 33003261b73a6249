// Package geometry provides the spherical coordinate math shared by the
// topology mapper and the surface reconstructor.
//
// Conventions: theta is the polar angle in [0, π] measured from the north
// pole, phi is the azimuthal angle in [0, 2π). Longitude wraps: phi = 0 and
// phi = 2π are the same meridian, so angular distances always take the
// shorter way around.
package geometry

import "math"

// GoldenRatio is (1 + sqrt 5) / 2, used for even angular spacing.
var GoldenRatio = (1 + math.Sqrt(5)) / 2

// GoldenAngle is the golden angle in radians, π(3 − sqrt 5).
var GoldenAngle = math.Pi * (3 - math.Sqrt(5))

// Spherical is a position on the unit sphere.
type Spherical struct {
	Theta float64 `json:"theta" msgpack:"theta"`
	Phi   float64 `json:"phi" msgpack:"phi"`
}

// Cartesian is a point in 3D space.
type Cartesian struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	Z float64 `json:"z" msgpack:"z"`
}

// ToCartesian converts spherical coordinates at radius r to Cartesian.
func (s Spherical) ToCartesian(r float64) Cartesian {
	return Cartesian{
		X: r * math.Sin(s.Theta) * math.Cos(s.Phi),
		Y: r * math.Sin(s.Theta) * math.Sin(s.Phi),
		Z: r * math.Cos(s.Theta),
	}
}

// FromCartesian converts a Cartesian point to spherical coordinates,
// discarding the radius. The zero vector maps to the north pole.
func FromCartesian(c Cartesian) Spherical {
	r := math.Sqrt(c.X*c.X + c.Y*c.Y + c.Z*c.Z)
	if r == 0 {
		return Spherical{}
	}
	phi := math.Atan2(c.Y, c.X)
	if phi < 0 {
		phi += 2 * math.Pi
	}
	return Spherical{
		Theta: math.Acos(Clamp(c.Z/r, -1, 1)),
		Phi:   phi,
	}
}

// WrapPhi normalizes an azimuthal angle into [0, 2π).
func WrapPhi(phi float64) float64 {
	phi = math.Mod(phi, 2*math.Pi)
	if phi < 0 {
		phi += 2 * math.Pi
	}
	return phi
}

// DeltaPhi returns the wrapped azimuthal difference between two longitudes,
// always the shorter way around the circle (result in [0, π]).
func DeltaPhi(a, b float64) float64 {
	d := math.Abs(a - b)
	d = math.Mod(d, 2*math.Pi)
	if d > math.Pi {
		d = 2*math.Pi - d
	}
	return d
}

// AngularDistance returns sqrt(Δtheta² + Δphi²) with the phi difference
// wrapped. A naive unwrapped difference produces seam artifacts at the
// phi = 0 / 2π boundary.
func AngularDistance(a, b Spherical) float64 {
	dt := a.Theta - b.Theta
	dp := DeltaPhi(a.Phi, b.Phi)
	return math.Sqrt(dt*dt + dp*dp)
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
