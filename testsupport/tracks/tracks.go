// Package tracks provides drivelines for tests.
package tracks

import (
	"testing"

	"github.com/mpapenbr/trackprogress/pkg/driveline"
	"github.com/mpapenbr/trackprogress/pkg/geom"
)

// Boundaries computes left and right boundaries for a counter-clockwise
// centerline ring with constant half width. The left boundary is the inner one.
func Boundaries(centers []geom.Vec3, halfWidth float64) (left, right []geom.Vec3) {
	n := len(centers)
	left = make([]geom.Vec3, n)
	right = make([]geom.Vec3, n)
	for i, c := range centers {
		n1 := leftNormal(centers[(i-1+n)%n], c)
		n2 := leftNormal(c, centers[(i+1)%n])
		m := n1.Add(n2)
		offset := m.Scale(2 * halfWidth / geom.Dot2D(m, m))
		left[i] = c.Add(offset)
		right[i] = c.Sub(offset)
	}
	return left, right
}

func leftNormal(a, b geom.Vec3) geom.Vec3 {
	d := b.Sub(a)
	l := d.Length2D()
	return geom.V(-d.Y/l, d.X/l, 0)
}

// FromCenterline builds a driveline around the given counter-clockwise ring.
//
//nolint:whitespace // can't make the linters happy
func FromCenterline(
	t testing.TB,
	centers []geom.Vec3,
	halfWidth float64,
	opts ...driveline.Option,
) *driveline.Driveline {
	t.Helper()
	left, right := Boundaries(centers, halfWidth)
	d, err := driveline.New(left, right, opts...)
	if err != nil {
		t.Fatalf("could not create driveline: %v", err)
	}
	return d
}

// Square is a 25x25 ring with 4 sectors and a total length of 100.
// Left boundary is (3,3)...(22,22), right boundary (-3,-3)...(28,28).
func Square(t testing.TB, opts ...driveline.Option) *driveline.Driveline {
	t.Helper()
	return FromCenterline(t, SquareCenters(), 3, opts...)
}

func SquareCenters() []geom.Vec3 {
	return []geom.Vec3{
		geom.V(0, 0, 0),
		geom.V(25, 0, 0),
		geom.V(25, 25, 0),
		geom.V(0, 25, 0),
	}
}

// Rectangle is a 60x40 ring sampled every 5 units (40 sectors, length 200).
// Sector i starts at distance 5*i.
func Rectangle(t testing.TB, opts ...driveline.Option) *driveline.Driveline {
	t.Helper()
	return FromCenterline(t, RectangleCenters(), 3, opts...)
}

func RectangleCenters() []geom.Vec3 {
	ret := make([]geom.Vec3, 0, 40)
	for x := 0.0; x < 60; x += 5 {
		ret = append(ret, geom.V(x, 0, 0))
	}
	for y := 0.0; y < 40; y += 5 {
		ret = append(ret, geom.V(60, y, 0))
	}
	for x := 60.0; x > 0; x -= 5 {
		ret = append(ret, geom.V(x, 40, 0))
	}
	for y := 40.0; y > 0; y -= 5 {
		ret = append(ret, geom.V(0, y, 0))
	}
	return ret
}

// OnCenterline returns the centerline point at distance s from the start
// line. s is wrapped into [0, TotalLength).
func OnCenterline(d *driveline.Driveline, s float64) geom.Vec3 {
	total := d.TotalLength()
	for s < 0 {
		s += total
	}
	for s >= total {
		s -= total
	}
	for i := d.NumSectors() - 1; i >= 0; i-- {
		v := d.Vertex(i)
		if v.CumulativeDistance <= s {
			next := d.TrackToSpatial(i + 1)
			return geom.Lerp((s-v.CumulativeDistance)/v.SegmentLength, v.Center, next)
		}
	}
	return d.TrackToSpatial(0)
}

// Offset moves p by lateral units towards the right boundary of a
// counter-clockwise ring, measured against the centerline direction at s.
func Offset(d *driveline.Driveline, s, lateral float64) geom.Vec3 {
	p := OnCenterline(d, s)
	ahead := OnCenterline(d, s+0.01)
	dir := ahead.Sub(p)
	l := dir.Length2D()
	// right of the direction of travel
	return p.Add(geom.V(dir.Y/l*lateral, -dir.X/l*lateral, 0))
}
