package driveline_test

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/trackprogress/log"
	"github.com/mpapenbr/trackprogress/pkg/driveline"
	"github.com/mpapenbr/trackprogress/pkg/geom"
	"github.com/mpapenbr/trackprogress/testsupport/tracks"
)

func TestNewErrors(t *testing.T) {
	pts := func(n int) []geom.Vec3 {
		ret := make([]geom.Vec3, n)
		for i := range n {
			ret[i] = geom.V(float64(i*10), float64(i%2), 0)
		}
		return ret
	}
	tests := []struct {
		name    string
		left    []geom.Vec3
		right   []geom.Vec3
		opts    []driveline.Option
		wantErr error
	}{
		{name: "empty", wantErr: driveline.ErrTooFewVertices},
		{name: "two vertices", left: pts(2), right: pts(2), wantErr: driveline.ErrTooFewVertices},
		{
			name:    "shorter boundary leaves too few",
			left:    pts(5),
			right:   pts(2),
			wantErr: driveline.ErrTooFewVertices,
		},
		{
			name:    "strict mismatch",
			left:    pts(5),
			right:   pts(4),
			opts:    []driveline.Option{driveline.WithStrictBoundaries()},
			wantErr: driveline.ErrBoundaryMismatch,
		},
		{
			name:    "duplicate vertex",
			left:    []geom.Vec3{geom.V(0, 0, 0), geom.V(0, 0, 0), geom.V(5, 5, 0)},
			right:   []geom.Vec3{geom.V(0, 0, 0), geom.V(0, 0, 0), geom.V(5, 6, 0)},
			wantErr: driveline.ErrDegenerateSegment,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := driveline.New(tt.left, tt.right, tt.opts...)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestNewMismatchTolerated(t *testing.T) {
	left, right := tracks.Boundaries(tracks.RectangleCenters(), 3)
	d, err := driveline.New(left, right[:30])
	require.NoError(t, err)
	assert.Equal(t, 30, d.NumSectors())
	m, ok := d.Mismatch()
	assert.True(t, ok)
	assert.Equal(t, driveline.Mismatch{Left: 40, Right: 30}, m)

	_, ok = tracks.Rectangle(t).Mismatch()
	assert.False(t, ok)
}

func TestWrapSectorsWarning(t *testing.T) {
	tests := []struct {
		name  string
		build func(testing.TB, ...driveline.Option) *driveline.Driveline
		want  bool
	}{
		{"square", tracks.Square, true},
		{"rectangle", tracks.Rectangle, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.build(t, driveline.WithLogger(log.New(&buf, log.WarnLevel)))
			assert.Equal(t, tt.want,
				bytes.Contains(buf.Bytes(), []byte("start line wraparound disabled")))
		})
	}
}

func TestSquare(t *testing.T) {
	d := tracks.Square(t)
	assert.Equal(t, 4, d.NumSectors())
	assert.InDelta(t, 100.0, d.TotalLength(), 1e-9)

	got := make([]float64, d.NumSectors())
	for i := range got {
		got[i] = d.CumulativeDistance(i)
	}
	if diff := cmp.Diff([]float64{0, 25, 50, 75}, got,
		cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("cumulative distance mismatch (-want +got):\n%s", diff)
	}

	v := d.Vertex(0)
	assert.Equal(t, geom.V(3, 3, 0), v.Left)
	assert.Equal(t, geom.V(-3, -3, 0), v.Right)
	assert.Equal(t, geom.V(0, 0, 0), v.Center)
	assert.InDelta(t, math.Sqrt(18), v.HalfWidth, 1e-9)
	assert.InDelta(t, 0.0, v.Heading, 1e-9)
	assert.InDelta(t, math.Pi/2, d.Heading(1), 1e-9)

	e := d.Extent()
	assert.Equal(t, geom.V(-3, -3, 0), e.P0)
	assert.Equal(t, geom.V(28, 28, 0), e.P1)

	assert.Equal(t, geom.V(25, 25, 0), d.TrackToSpatial(2))
	assert.Equal(t, geom.V(0, 0, 0), d.TrackToSpatial(4))
}

func TestCumulativeDistanceMonotonic(t *testing.T) {
	d := tracks.Rectangle(t)
	maxCum := 0.0
	for i := 0; i < d.NumSectors()-1; i++ {
		assert.Less(t, d.CumulativeDistance(i), d.CumulativeDistance(i+1))
		maxCum = max(maxCum, d.CumulativeDistance(i+1))
	}
	assert.Greater(t, d.TotalLength(), maxCum)
	assert.InDelta(t, 200.0, d.TotalLength(), 1e-9)
}

func TestLocate(t *testing.T) {
	d := tracks.Square(t)
	tests := []struct {
		name          string
		p             geom.Vec3
		hint          int
		withTolerance bool
		want          int
	}{
		{name: "scan first sector", p: geom.V(5, 0, 0), hint: driveline.Unknown, want: 0},
		{name: "scan last sector", p: geom.V(0, 5, 0), hint: driveline.Unknown, want: 3},
		{name: "scan top", p: geom.V(12, 24, 0), hint: driveline.Unknown, want: 2},
		{name: "hint matches", p: geom.V(5, 0, 0), hint: 0, want: 0},
		{name: "hint misses", p: geom.V(5, 0, 0), hint: 2, want: 0},
		{name: "invalid hint", p: geom.V(5, 0, 0), hint: 17, want: 0},
		{name: "off track", p: geom.V(40, 40, 0), hint: driveline.Unknown, want: driveline.Unknown},
		{name: "infield", p: geom.V(12, 12, 0), hint: 0, want: driveline.Unknown},
		{
			name: "tolerance corridor", p: geom.V(5, 3.5, 0), hint: 0,
			withTolerance: true, want: 0,
		},
		{name: "raw quad only", p: geom.V(5, 3.5, 0), hint: 0, want: driveline.Unknown},
		{
			name: "tolerance not used by scan", p: geom.V(5, 3.5, 0),
			hint: driveline.Unknown, withTolerance: true, want: driveline.Unknown,
		},
		{name: "too far below surface", p: geom.V(5, 0, -5), hint: driveline.Unknown, want: driveline.Unknown},
		{name: "slightly below surface", p: geom.V(5, 0, -1), hint: driveline.Unknown, want: 0},
		{name: "fast path ignores height", p: geom.V(5, 0, -5), hint: 0, want: 0},
		{name: "nan", p: geom.V(math.NaN(), 0, 0), hint: driveline.Unknown, want: driveline.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Locate(tt.p, tt.hint, tt.withTolerance))
		})
	}
}

func TestLocateOverlapping(t *testing.T) {
	// two laps around the same square, the second one 10 units higher
	centers := tracks.SquareCenters()
	for _, c := range tracks.SquareCenters() {
		centers = append(centers, c.Add(geom.V(0, 0, 10)))
	}
	d := tracks.FromCenterline(t, centers, 3)

	tests := []struct {
		name string
		p    geom.Vec3
		want int
	}{
		{name: "lower level", p: geom.V(5, 0, 0.5), want: 0},
		{name: "upper level", p: geom.V(5, 0, 10.2), want: 4},
		{name: "sunk into upper level", p: geom.V(5, 0, 9), want: 4},
		{name: "between levels", p: geom.V(5, 0, 5), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Locate(tt.p, driveline.Unknown, false))
		})
	}
}

func TestLocateRingClosure(t *testing.T) {
	d := tracks.Rectangle(t)
	n := d.NumSectors()
	for i := range n {
		got := d.Locate(d.TrackToSpatial(i), driveline.Unknown, false)
		assert.Contains(t, []int{i, (i - 1 + n) % n}, got, "vertex %d", i)
	}
}

func TestLocateNearest(t *testing.T) {
	d := tracks.Rectangle(t)
	tests := []struct {
		name   string
		p      geom.Vec3
		side   driveline.Side
		center int
		want   int
	}{
		{name: "whole ring", p: geom.V(32, -10, 0), side: driveline.SideBoth, center: driveline.Unknown, want: 6},
		{name: "within window", p: geom.V(32, -10, 0), side: driveline.SideRight, center: 8, want: 6},
		{name: "outside window", p: geom.V(32, -10, 0), side: driveline.SideBoth, center: 20, want: 10},
		{name: "left only", p: geom.V(32, 8, 0), side: driveline.SideLeft, center: 6, want: 6},
		{name: "right only", p: geom.V(28, 32, 0), side: driveline.SideRight, center: 26, want: 26},
		{name: "nan", p: geom.V(math.NaN(), 0, 0), side: driveline.SideBoth, center: driveline.Unknown, want: driveline.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.LocateNearest(tt.p, tt.side, tt.center))
		})
	}
}

func TestProject(t *testing.T) {
	d := tracks.Square(t)
	tests := []struct {
		name       string
		p          geom.Vec3
		sector     int
		want       driveline.TrackCoordinate
		wantSector int
	}{
		{
			name: "start of ring", p: geom.V(5, 0, 0), sector: 0,
			want:       driveline.TrackCoordinate{Lateral: 0, Longitudinal: 5, HalfWidth: math.Sqrt(18)},
			wantSector: 0,
		},
		{
			name: "end of ring", p: geom.V(0, 5, 0), sector: 3,
			want:       driveline.TrackCoordinate{Lateral: 0, Longitudinal: 95, HalfWidth: math.Sqrt(18)},
			wantSector: 3,
		},
		{
			name: "towards outer boundary", p: geom.V(5, -2, 0), sector: 0,
			want:       driveline.TrackCoordinate{Lateral: 2, Longitudinal: 5, HalfWidth: math.Sqrt(18)},
			wantSector: 0,
		},
		{
			name: "towards inner boundary", p: geom.V(24, 10, 0), sector: 1,
			want:       driveline.TrackCoordinate{Lateral: -1, Longitudinal: 35, HalfWidth: math.Sqrt(18)},
			wantSector: 1,
		},
		{
			name: "previous segment chosen", p: geom.V(20, 2, 0), sector: 1,
			want:       driveline.TrackCoordinate{Lateral: -2, Longitudinal: 20, HalfWidth: math.Sqrt(18)},
			wantSector: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, sector := d.Project(tt.p, tt.sector)
			assert.Equal(t, tt.wantSector, sector)
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
				t.Errorf("Project() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestProjectRoundTrip(t *testing.T) {
	d := tracks.Rectangle(t)
	for i := range d.NumSectors() {
		got, _ := d.Project(d.TrackToSpatial(i), i)
		assert.InDelta(t, 0.0, got.Lateral, 1e-9, "sector %d", i)
		assert.InDelta(t, d.CumulativeDistance(i),
			math.Mod(got.Longitudinal, d.TotalLength()), 1e-9, "sector %d", i)
	}
}

func TestProjectIdempotent(t *testing.T) {
	d := tracks.Rectangle(t)
	p := geom.V(33.3, 1.7, 0.2)
	first, s1 := d.Project(p, 6)
	second, s2 := d.Project(p, 6)
	assert.Equal(t, first, second)
	assert.Equal(t, s1, s2)
}

func TestProjectUnknownPanics(t *testing.T) {
	d := tracks.Square(t)
	assert.Panics(t, func() { d.Project(geom.V(5, 0, 0), driveline.Unknown) })
}

func TestIsShortcut(t *testing.T) {
	d := tracks.Rectangle(t)
	tests := []struct {
		name     string
		from, to int
		want     bool
	}{
		{name: "skip ahead", from: 2, to: 8, want: true},
		{name: "skip back", from: 8, to: 2, want: true},
		{name: "short skip", from: 2, to: 4, want: false},
		{name: "neighbor", from: 2, to: 3, want: false},
		{name: "same", from: 5, to: 5, want: false},
		{name: "ring neighbor", from: 39, to: 0, want: false},
		{name: "start line", from: 38, to: 1, want: false},
		{name: "unknown from", from: driveline.Unknown, to: 20, want: false},
		{name: "unknown to", from: 3, to: driveline.Unknown, want: false},
		{name: "across infield", from: 0, to: 20, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.IsShortcut(tt.from, tt.to, 15))
		})
	}
}
