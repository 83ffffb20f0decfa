package geometry

import "math"

// Volume is an axis-aligned box in its own frame, placed in the world by a
// translation and a rotation. Rotation maps local directions to world
// directions.
type Volume struct {
	Name     string
	Mother   string
	Center   Vec3
	HalfSize Vec3
	Rotation Mat3

	// material response used by the transport engine
	Attenuation     float64 // [mm^-1]
	ComptonFraction float64

	inverse Mat3
	depth   int
}

func NewVolume(name, mother string, center, halfSize Vec3, rotation Rot3) *Volume {
	R := rotation.Matrix()
	return &Volume{
		Name:     name,
		Mother:   mother,
		Center:   center,
		HalfSize: halfSize,
		Rotation: R,
		inverse:  R.Transpose(),
	}
}

func (v *Volume) Depth() int { return v.depth }

func (v *Volume) ToLocal(p Vec3) Vec3 {
	return v.inverse.MulVec(p.Sub(v.Center))
}

func (v *Volume) DirectionToLocal(d Vec3) Vec3 {
	return v.inverse.MulVec(d)
}

func (v *Volume) Contains(p Vec3) bool {
	l := v.ToLocal(p)
	return math.Abs(l.X) <= v.HalfSize.X &&
		math.Abs(l.Y) <= v.HalfSize.Y &&
		math.Abs(l.Z) <= v.HalfSize.Z
}

// slab returns the parametric interval along the ray p + t*d that lies inside
// the box.
func (v *Volume) slab(p, d Vec3) (tMin, tMax float64) {
	lp, ld := v.ToLocal(p), v.DirectionToLocal(d)
	tMin, tMax = math.Inf(-1), math.Inf(1)
	for i := range 3 {
		o, dir, h := lp.At(i), ld.At(i), v.HalfSize.At(i)
		if dir == 0 {
			if o < -h || o > h {
				return math.Inf(1), math.Inf(-1)
			}
			continue
		}
		t1, t2 := (-h-o)/dir, (h-o)/dir
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
	}
	return
}

// DistanceToOut is the distance from p, assumed inside, to the boundary along d.
func (v *Volume) DistanceToOut(p, d Vec3) float64 {
	_, tMax := v.slab(p, d)
	return math.Max(tMax, 0)
}

// DistanceToIn is the distance from p, assumed outside, to the boundary along
// d. The second result is false if the ray misses the volume.
func (v *Volume) DistanceToIn(p, d Vec3) (float64, bool) {
	tMin, tMax := v.slab(p, d)
	if tMax < tMin || tMax < 0 {
		return math.Inf(1), false
	}
	return math.Max(tMin, 0), true
}
