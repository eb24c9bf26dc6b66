package driveline

import (
	"math"

	"github.com/mpapenbr/trackprogress/pkg/geom"
)

// Side restricts which boundary LocateNearest measures against.
type Side int

const (
	SideBoth Side = iota
	SideLeft
	SideRight
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return "both"
	}
}

// Locate returns the sector whose quad contains p.
// The quad of hint is tried first (widened by the tolerance factor if
// withTolerance is set) and returned unchanged if it contains p. Otherwise all
// quads are scanned and the one with the closest surface below p wins.
// Returns Unknown if no quad contains p or p is not a valid position.
func (d *Driveline) Locate(p geom.Vec3, hint int, withTolerance bool) int {
	if p.IsNaN() {
		return Unknown
	}
	if hint >= 0 && hint < len(d.vertices) {
		if _, ok := d.quadContains(p, hint, withTolerance); ok {
			return hint
		}
	}
	return d.scan(p)
}

func (d *Driveline) scan(p geom.Vec3) int {
	best := Unknown
	bestHeight := math.Inf(1)
	for i := range d.vertices {
		tri, ok := d.quadContains(p, i, false)
		if !ok {
			continue
		}
		z, ok := geom.PlaneZ(p, tri[0], tri[1], tri[2])
		if !ok {
			continue
		}
		height := p.Z - z
		if height < -d.heightTolerance {
			continue
		}
		if height < bestHeight {
			best = i
			bestHeight = height
		}
	}
	return best
}

// quadContains tests p against the two triangles of quad i and returns the
// triangle that matched.
func (d *Driveline) quadContains(p geom.Vec3, i int, withTolerance bool) ([3]geom.Vec3, bool) {
	cur, nxt := d.vertices[i], d.vertices[d.next(i)]
	l0, r0, l1, r1 := cur.Left, cur.Right, nxt.Left, nxt.Right
	if withTolerance {
		l0, r0, l1, r1 = cur.ToleranceLeft, cur.ToleranceRight, nxt.ToleranceLeft, nxt.ToleranceRight
	}
	if geom.PointInTriangle2D(p, l0, r0, r1) {
		return [3]geom.Vec3{l0, r0, r1}, true
	}
	if geom.PointInTriangle2D(p, r1, l1, l0) {
		return [3]geom.Vec3{r1, l1, l0}, true
	}
	return [3]geom.Vec3{}, false
}

// LocateNearest returns the sector whose boundary segment is closest to p.
// Only sectors within the search window around searchCenter are considered,
// the whole ring if searchCenter is Unknown.
// Returns Unknown if no distance could be computed (e.g. NaN positions).
func (d *Driveline) LocateNearest(p geom.Vec3, side Side, searchCenter int) int {
	n := len(d.vertices)
	first, count := 0, n
	if searchCenter >= 0 && searchCenter < n && 2*d.searchWindow+1 < n {
		first = searchCenter - d.searchWindow
		count = 2*d.searchWindow + 1
	}

	best := Unknown
	bestDist := math.Inf(1)
	for k := range count {
		i := d.wrap(first + k)
		cur, nxt := d.vertices[i], d.vertices[d.next(i)]
		if side != SideRight {
			if dist := geom.PointSegmentDistanceSquared(p, cur.Left, nxt.Left); dist < bestDist {
				best, bestDist = i, dist
			}
		}
		if side != SideLeft {
			if dist := geom.PointSegmentDistanceSquared(p, cur.Right, nxt.Right); dist < bestDist {
				best, bestDist = i, dist
			}
		}
	}
	return best
}
