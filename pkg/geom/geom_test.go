package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPointInTriangle2D(t *testing.T) {
	a, b, c := V(0, 0, 0), V(10, 0, 0), V(0, 10, 0)
	tests := []struct {
		name string
		p    Vec3
		want bool
	}{
		{name: "inside", p: V(1, 1, 0), want: true},
		{name: "on edge", p: V(5, 0, 0), want: true},
		{name: "on vertex", p: V(10, 0, 0), want: true},
		{name: "on hypotenuse", p: V(5, 5, 0), want: true},
		{name: "outside", p: V(6, 6, 0), want: false},
		{name: "negative side", p: V(-1, 1, 0), want: false},
		{name: "height ignored", p: V(1, 1, 100), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PointInTriangle2D(tt.p, a, b, c))
			// winding must not matter
			assert.Equal(t, tt.want, PointInTriangle2D(tt.p, a, c, b))
		})
	}
}

func TestPlaneZ(t *testing.T) {
	// plane z = x
	a, b, c := V(0, 0, 0), V(10, 0, 10), V(0, 10, 0)
	z, ok := PlaneZ(V(4, 3, 99), a, b, c)
	assert.True(t, ok)
	assert.InDelta(t, 4.0, z, 1e-9)

	_, ok = PlaneZ(V(0, 0, 0), V(0, 0, 0), V(1, 1, 0), V(2, 2, 0))
	assert.False(t, ok, "collinear points have no plane")
}

func TestSignedPointLineDistance(t *testing.T) {
	p0, p1 := V(0, 0, 0), V(10, 0, 0)
	assert.InDelta(t, 3.0, SignedPointLineDistance(V(5, 3, 0), p0, p1), 1e-9)
	assert.InDelta(t, -2.0, SignedPointLineDistance(V(50, -2, 0), p0, p1), 1e-9)
	assert.True(t, math.IsInf(SignedPointLineDistance(V(1, 1, 0), p0, p0), 1))
}

func TestPointSegmentDistanceSquared(t *testing.T) {
	v, w := V(0, 0, 0), V(10, 0, 0)
	assert.InDelta(t, 4.0, PointSegmentDistanceSquared(V(5, 2, 0), v, w), 1e-9)
	assert.InDelta(t, 25.0, PointSegmentDistanceSquared(V(13, 4, 0), v, w), 1e-9)
	assert.InDelta(t, 2.0, PointSegmentDistanceSquared(V(-1, -1, 0), v, w), 1e-9)
	assert.InDelta(t, 2.0, PointSegmentDistanceSquared(V(1, 1, 0), v, v), 1e-9)
}

func TestAngleDiff(t *testing.T) {
	assert.InDelta(t, 0.0, AngleDiff(math.Pi, -math.Pi), 1e-9)
	assert.InDelta(t, math.Pi/2, AngleDiff(0, 3*math.Pi/2), 1e-9)
	assert.InDelta(t, math.Pi, AngleDiff(0, math.Pi), 1e-9)
}

func TestExtent(t *testing.T) {
	e := ExtentFromPoints([]Vec3{V(1, 2, 0), V(-3, 5, 1)}, []Vec3{V(4, -1, -2)})
	assert.Equal(t, V(-3, -1, -2), e.P0)
	assert.Equal(t, V(4, 5, 1), e.P1)
	assert.True(t, e.Inside2D(V(0, 0, 100)))
	assert.False(t, e.Inside2D(V(5, 0, 0)))
	assert.InDelta(t, 7.0, e.Width(), 1e-9)
	assert.True(t, EmptyExtent().IsEmpty())
	assert.False(t, e.IsEmpty())
}
