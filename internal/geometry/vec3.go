package geometry

import "math"

// Vec3 is a position or a direction in the world frame, in mm for positions.
type Vec3 struct {
	X, Y, Z float64
}

// FromSlice builds a vector from a 3-element slice; the second result is false
// for any other length.
func FromSlice(s []float64) (Vec3, bool) {
	if len(s) != 3 {
		return Vec3{}, false
	}
	return Vec3{s[0], s[1], s[2]}, true
}

func (a Vec3) Add(b Vec3) Vec3    { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3    { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (v Vec3) Mul(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (a Vec3) Dot(b Vec3) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }
func (v Vec3) Len() float64       { return math.Sqrt(v.Dot(v)) }
func (v Vec3) IsZero() bool       { return v.X == 0 && v.Y == 0 && v.Z == 0 }
func (v Vec3) At(i int) float64   { return [3]float64{v.X, v.Y, v.Z}[i] }
func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{a.Y*b.Z - a.Z*b.Y, a.Z*b.X - a.X*b.Z, a.X*b.Y - a.Y*b.X}
}

// Norm returns a unit-length version of the vector; the zero vector is
// returned unchanged.
func (v Vec3) Norm() Vec3 {
	l := v.Len()
	if l == 0 {
		return v
	}
	return Vec3{v.X / l, v.Y / l, v.Z / l}
}

// Angle returns the angle between a and b in [0, π]. It is NaN if either
// vector has zero length.
func (a Vec3) Angle(b Vec3) float64 {
	la, lb := a.Len(), b.Len()
	if la == 0 || lb == 0 {
		return math.NaN()
	}
	c := a.Dot(b) / (la * lb)
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c)
}

// Basis returns two unit vectors orthogonal to the unit vector w and to each other.
func (w Vec3) Basis() (u, v Vec3) {
	if math.Abs(w.X) > 0.1 {
		u = Vec3{0, 1, 0}
	} else {
		u = Vec3{1, 0, 0}
	}
	u = u.Cross(w).Norm()
	v = w.Cross(u)
	return
}
