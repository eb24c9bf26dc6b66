// Package geom contains the small set of vector and plane helpers used by the
// driveline. The track is laid out in the X/Y plane, Z points up.
package geom

import (
	"math"

	"golang.org/x/exp/constraints"
)

type Vec3 struct {
	X, Y, Z float64
}

func V(x, y, z float64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vec3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Length2D ignores the height component
func (v Vec3) Length2D() float64 {
	return math.Hypot(v.X, v.Y)
}

func (v Vec3) IsNaN() bool {
	return math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsNaN(v.Z)
}

// Lerp returns a + (b-a)*t
func Lerp(t float64, a, b Vec3) Vec3 {
	return a.Add(b.Sub(a).Scale(t))
}

func Midpoint(a, b Vec3) Vec3 {
	return Lerp(0.5, a, b)
}

// Dot2D is the dot product in the X/Y plane
func Dot2D(a, b Vec3) float64 {
	return a.X*b.X + a.Y*b.Y
}

// Cross2D is the z component of a x b
func Cross2D(a, b Vec3) float64 {
	return a.X*b.Y - a.Y*b.X
}

// DistanceSquared2D returns the squared planar distance between a and b.
func DistanceSquared2D(a, b Vec3) float64 {
	return Sqr(a.X-b.X) + Sqr(a.Y-b.Y)
}

// Side returns the sign of (b-a) x (p-a). Positive means p is left of the
// directed line a->b (counter-clockwise).
func Side(a, b, p Vec3) float64 {
	return Cross2D(b.Sub(a), p.Sub(a))
}

// PointInTriangle2D reports whether p lies inside or on the border of the
// triangle (a,b,c) when projected onto the X/Y plane. The winding of the
// triangle does not matter.
func PointInTriangle2D(p, a, b, c Vec3) bool {
	d1 := Side(a, b, p)
	d2 := Side(b, c, p)
	d3 := Side(c, a, p)
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}

// PlaneZ returns the height of the plane through (a,b,c) at the planar
// position of p. The second return value is false for degenerate triangles.
func PlaneZ(p, a, b, c Vec3) (float64, bool) {
	u := b.Sub(a)
	w := c.Sub(a)
	// normal = u x w
	nx := u.Y*w.Z - u.Z*w.Y
	ny := u.Z*w.X - u.X*w.Z
	nz := u.X*w.Y - u.Y*w.X
	if nz == 0 {
		return 0, false
	}
	return a.Z - (nx*(p.X-a.X)+ny*(p.Y-a.Y))/nz, true
}

// SignedPointLineDistance returns the signed planar distance from p to the
// infinite line through (p0, p1). Points left of the line have positive
// distances. Returns +Inf if p0 and p1 coincide.
func SignedPointLineDistance(p, p0, p1 Vec3) float64 {
	d := p1.Sub(p0)
	l := d.Length2D()
	if l == 0 {
		return math.Inf(1)
	}
	return Cross2D(d, p.Sub(p0)) / l
}

// PointSegmentDistanceSquared returns the squared planar distance between p
// and the segment vw.
func PointSegmentDistanceSquared(p, v, w Vec3) float64 {
	d := w.Sub(v)
	l2 := Dot2D(d, d)
	if l2 == 0 {
		return DistanceSquared2D(p, v)
	}
	t := Clamp(Dot2D(p.Sub(v), d)/l2, 0, 1)
	return DistanceSquared2D(p, v.Add(d.Scale(t)))
}

// Heading returns the planar heading (radians, atan2 convention) of the
// direction from a to b.
func Heading(a, b Vec3) float64 {
	return math.Atan2(b.Y-a.Y, b.X-a.X)
}

// AngleDiff returns the absolute difference of two headings normalized to
// [0, pi].
func AngleDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 2*math.Pi)
	if d > math.Pi {
		d = 2*math.Pi - d
	}
	return d
}

func Sqr[V constraints.Integer | constraints.Float](v V) V { return v * v }

func Abs[V constraints.Integer | constraints.Float](x V) V {
	if x < 0 {
		return -x
	}
	return x
}

func Clamp[T constraints.Ordered](x, low, high T) T {
	if x < low {
		return low
	}
	if x > high {
		return high
	}
	return x
}

// FromSlice converts [x, y] or [x, y, z] into a Vec3.
func FromSlice(p []float64) (Vec3, bool) {
	switch len(p) {
	case 2:
		return V(p[0], p[1], 0), true
	case 3:
		return V(p[0], p[1], p[2]), true
	default:
		return Vec3{}, false
	}
}
