package driveline

import (
	"fmt"

	"github.com/mpapenbr/trackprogress/pkg/geom"
)

// TrackCoordinate is a position expressed relative to the driveline.
type TrackCoordinate struct {
	// signed distance to the centerline, positive towards the right boundary
	Lateral float64
	// distance from the start line along the centerline
	Longitudinal float64
	// half width of the track at this position
	HalfWidth float64
}

// Project maps p onto the centerline segment around sector. The segment is
// either (sector-1, sector) or (sector, sector+1), whichever next vertex is
// closer to p. Returns the coordinate and the first vertex of the chosen
// segment.
// Longitudinal is not wrapped, positions before the segment start or behind its
// end yield values outside the segment range.
// Panics if sector is Unknown or out of range.
func (d *Driveline) Project(p geom.Vec3, sector int) (TrackCoordinate, int) {
	if sector < 0 || sector >= len(d.vertices) {
		panic(fmt.Sprintf("driveline: project called with invalid sector %d", sector))
	}
	prev, next := d.prev(sector), d.next(sector)
	p1 := prev
	if geom.DistanceSquared2D(p, d.vertices[next].Center) <
		geom.DistanceSquared2D(p, d.vertices[prev].Center) {
		p1 = sector
	}
	v1, v2 := d.vertices[p1], d.vertices[d.next(p1)]

	dir := v2.Center.Sub(v1.Center)
	t := geom.Dot2D(p.Sub(v1.Center), dir) / geom.Dot2D(dir, dir)
	f := geom.Clamp(t, 0, 1)

	return TrackCoordinate{
		Lateral:      d.rightSign * geom.SignedPointLineDistance(p, v1.Center, v2.Center),
		Longitudinal: v1.CumulativeDistance + t*v1.SegmentLength,
		HalfWidth:    v1.HalfWidth + (v2.HalfWidth-v1.HalfWidth)*f,
	}, p1
}
