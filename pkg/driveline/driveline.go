// Package driveline holds the immutable description of a closed track
// (left/right boundaries and the derived centerline) and the lookups that map
// world positions onto it.
package driveline

import (
	"errors"
	"fmt"

	"github.com/mpapenbr/trackprogress/log"
	"github.com/mpapenbr/trackprogress/pkg/geom"
)

// Unknown is the sector value for positions that could not be mapped.
const Unknown = -1

const (
	DefaultToleranceFactor = 0.2
	DefaultSearchWindow    = 10
	DefaultHeightTolerance = 1.5
	// number of sectors on each side of the start line that are treated as
	// the regular start/finish wraparound by IsShortcut
	WrapSectors = 6
)

var (
	ErrTooFewVertices    = errors.New("driveline needs at least 3 vertices")
	ErrBoundaryMismatch  = errors.New("left and right boundary differ in length")
	ErrDegenerateSegment = errors.New("zero length centerline segment")
)

type Vertex struct {
	Left           geom.Vec3
	Right          geom.Vec3
	Center         geom.Vec3
	ToleranceLeft  geom.Vec3
	ToleranceRight geom.Vec3
	HalfWidth      float64
	// distance along the centerline from vertex 0
	CumulativeDistance float64
	// centerline length from this vertex to the next one (ring)
	SegmentLength float64
	// planar heading of the centerline towards the next vertex
	Heading float64
}

// Mismatch describes boundary polylines of different length.
type Mismatch struct {
	Left  int
	Right int
}

type Driveline struct {
	name            string
	vertices        []Vertex
	totalLength     float64
	rightSign       float64
	extent          geom.Extent
	mismatch        *Mismatch
	toleranceFactor float64
	searchWindow    int
	heightTolerance float64
	strict          bool
	log             *log.Logger
}

type Option func(d *Driveline)

func WithName(name string) Option {
	return func(d *Driveline) {
		d.name = name
	}
}

// WithToleranceFactor sets the fraction by which the tolerance corridor
// extends beyond the raw boundaries.
func WithToleranceFactor(f float64) Option {
	return func(d *Driveline) {
		d.toleranceFactor = f
	}
}

// WithSearchWindow sets the number of sectors LocateNearest inspects on each
// side of its search center.
func WithSearchWindow(n int) Option {
	return func(d *Driveline) {
		d.searchWindow = n
	}
}

// WithHeightTolerance sets how far a position may be below a surface and still
// be considered on it.
func WithHeightTolerance(h float64) Option {
	return func(d *Driveline) {
		d.heightTolerance = h
	}
}

// WithStrictBoundaries makes New fail on boundaries of different length.
func WithStrictBoundaries() Option {
	return func(d *Driveline) {
		d.strict = true
	}
}

func WithLogger(l *log.Logger) Option {
	return func(d *Driveline) {
		d.log = l
	}
}

// New builds a driveline from the left and right boundary polylines. Both
// polylines describe a closed ring, the last vertex connects to the first.
func New(left, right []geom.Vec3, opts ...Option) (*Driveline, error) {
	d := &Driveline{
		toleranceFactor: DefaultToleranceFactor,
		searchWindow:    DefaultSearchWindow,
		heightTolerance: DefaultHeightTolerance,
		log:             log.Default().Named("driveline"),
	}
	for _, opt := range opts {
		opt(d)
	}

	n := min(len(left), len(right))
	if len(left) != len(right) {
		if d.strict {
			return nil, fmt.Errorf("%w: left=%d right=%d",
				ErrBoundaryMismatch, len(left), len(right))
		}
		d.mismatch = &Mismatch{Left: len(left), Right: len(right)}
		d.log.Warn("boundary length mismatch, using shorter boundary",
			log.String("driveline", d.name),
			log.Int("left", len(left)),
			log.Int("right", len(right)))
	}
	if n < 3 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewVertices, n)
	}

	d.vertices = make([]Vertex, n)
	for i := range n {
		l, r := left[i], right[i]
		c := geom.Midpoint(l, r)
		d.vertices[i] = Vertex{
			Left:           l,
			Right:          r,
			Center:         c,
			HalfWidth:      r.Sub(c).Length(),
			ToleranceLeft:  l.Add(l.Sub(r).Scale(d.toleranceFactor)),
			ToleranceRight: r.Add(r.Sub(l).Scale(d.toleranceFactor)),
		}
	}

	var cum, rightSide float64
	for i := range n {
		cur := &d.vertices[i]
		next := d.vertices[(i+1)%n].Center
		if next.Sub(cur.Center).Length2D() == 0 {
			return nil, fmt.Errorf("%w: between vertex %d and %d",
				ErrDegenerateSegment, i, (i+1)%n)
		}
		cur.CumulativeDistance = cum
		cur.SegmentLength = next.Sub(cur.Center).Length()
		cur.Heading = geom.Heading(cur.Center, next)
		cum += cur.SegmentLength
		rightSide += geom.Side(cur.Center, next, cur.Right)
	}
	d.totalLength = cum
	// lateral offsets are positive towards the right boundary, whichever way
	// the ring is wound
	d.rightSign = 1
	if rightSide < 0 {
		d.rightSign = -1
	}
	d.extent = geom.ExtentFromPoints(left[:n], right[:n])
	if n <= 2*WrapSectors {
		d.log.Warn("start line wraparound disabled, too few sectors",
			log.String("driveline", d.name),
			log.Int("sectors", n),
			log.Int("required", 2*WrapSectors+1))
	}

	d.log.Debug("driveline created",
		log.String("driveline", d.name),
		log.Int("sectors", n),
		log.Float64("length", d.totalLength))
	return d, nil
}

func (d *Driveline) Name() string {
	return d.name
}

// NumSectors returns the number of vertices, which equals the number of
// sectors of the ring.
func (d *Driveline) NumSectors() int {
	return len(d.vertices)
}

func (d *Driveline) TotalLength() float64 {
	return d.totalLength
}

func (d *Driveline) Vertex(i int) Vertex {
	return d.vertices[i]
}

func (d *Driveline) CumulativeDistance(i int) float64 {
	return d.vertices[i].CumulativeDistance
}

func (d *Driveline) Heading(i int) float64 {
	return d.vertices[i].Heading
}

// Extent returns the bounding box over both boundaries.
func (d *Driveline) Extent() geom.Extent {
	return d.extent
}

// Mismatch reports the boundary lengths if they were different on creation.
func (d *Driveline) Mismatch() (Mismatch, bool) {
	if d.mismatch == nil {
		return Mismatch{}, false
	}
	return *d.mismatch, true
}

// TrackToSpatial returns the centerline point of the given sector.
func (d *Driveline) TrackToSpatial(sector int) geom.Vec3 {
	return d.vertices[d.wrap(sector)].Center
}

func (d *Driveline) next(i int) int {
	return (i + 1) % len(d.vertices)
}

func (d *Driveline) prev(i int) int {
	return (i - 1 + len(d.vertices)) % len(d.vertices)
}

func (d *Driveline) wrap(i int) int {
	n := len(d.vertices)
	return ((i % n) + n) % n
}
