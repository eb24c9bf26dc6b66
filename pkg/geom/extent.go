package geom

import "math"

// Extent is an axis aligned bounding box with P0 as minimum and P1 as maximum
// corner.
type Extent struct {
	P0, P1 Vec3
}

// EmptyExtent returns a degenerate box that any Union will replace.
func EmptyExtent() Extent {
	inf := math.Inf(1)
	return Extent{
		P0: Vec3{inf, inf, inf},
		P1: Vec3{-inf, -inf, -inf},
	}
}

func ExtentFromPoints(pts ...[]Vec3) Extent {
	e := EmptyExtent()
	for _, set := range pts {
		for _, p := range set {
			e = e.Union(p)
		}
	}
	return e
}

func (e Extent) Union(p Vec3) Extent {
	return Extent{
		P0: Vec3{math.Min(e.P0.X, p.X), math.Min(e.P0.Y, p.Y), math.Min(e.P0.Z, p.Z)},
		P1: Vec3{math.Max(e.P1.X, p.X), math.Max(e.P1.Y, p.Y), math.Max(e.P1.Z, p.Z)},
	}
}

func (e Extent) IsEmpty() bool {
	return e.P0.X > e.P1.X
}

// Inside2D reports whether p is within the box in the X/Y plane.
func (e Extent) Inside2D(p Vec3) bool {
	return p.X >= e.P0.X && p.X <= e.P1.X && p.Y >= e.P0.Y && p.Y <= e.P1.Y
}

func (e Extent) Width() float64 {
	return e.P1.X - e.P0.X
}

func (e Extent) Depth() float64 {
	return e.P1.Y - e.P0.Y
}

func (e Extent) Center() Vec3 {
	return Midpoint(e.P0, e.P1)
}
