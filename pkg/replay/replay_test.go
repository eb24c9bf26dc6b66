package replay

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/trackprogress/pkg/events"
	"github.com/mpapenbr/trackprogress/pkg/geom"
	"github.com/mpapenbr/trackprogress/pkg/model"
	"github.com/mpapenbr/trackprogress/pkg/processing/race"
	"github.com/mpapenbr/trackprogress/testsupport/tracks"
)

const sampleTrace = `
name: demo
karts:
  - id: a
  - id: b
    grid: 5
frames:
  - clock: 0
    karts:
      a: {position: [0, 20], heading: -1.5707963, speed: 10}
      b: {position: [0, 22, 0], heading: -1.5707963, speed: 10}
  - clock: 0.5
    karts:
      a: {position: [10, 0], heading: 0, speed: 10}
`

func TestLoad(t *testing.T) {
	tr, err := Load(strings.NewReader(sampleTrace))
	require.NoError(t, err)
	assert.Equal(t, "demo", tr.Name)
	assert.Equal(t, []KartEntry{{ID: "a", Grid: 1}, {ID: "b", Grid: 5}}, tr.Karts)
	require.Len(t, tr.Frames, 2)
	assert.Equal(t, geom.V(0, 22, 0), tr.Frames[0].Samples["b"].Position)
	assert.Len(t, tr.Frames[1].Samples, 1)
	assert.Equal(t, 0.5, tr.Duration())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no yaml", "karts: [a"},
		{"duplicate kart", "karts: [{id: a}, {id: a}]"},
		{"empty id", "karts: [{grid: 1}]"},
		{"unknown kart", "karts: [{id: a}]\nframes: [{clock: 0, karts: {x: {position: [0, 0]}}}]"},
		{"bad position", "karts: [{id: a}]\nframes: [{clock: 0, karts: {a: {position: [0]}}}]"},
		{"clock backwards", "karts: [{id: a}]\nframes: [{clock: 1}, {clock: 0}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, ErrMalformedTrace)
		})
	}
}

// lapTrace drives kart "a" 10 units per frame around the square track
func lapTrace(t *testing.T, frames int) *Trace {
	t.Helper()
	d := tracks.Square(t)
	ret := &Trace{Name: "laps", Karts: []KartEntry{{ID: "a", Grid: 1}}}
	for f := range frames {
		s := 97 + 10*float64(f)
		p := tracks.OnCenterline(d, s)
		ret.Frames = append(ret.Frames, Frame{
			Clock: float64(f),
			Samples: map[model.KartID]model.Sample{"a": {
				Position: p,
				Heading:  geom.Heading(p, tracks.OnCenterline(d, s+0.5)),
				Speed:    10,
			}},
		})
	}
	return ret
}

func TestWriteLoad(t *testing.T) {
	tr := lapTrace(t, 3)
	var buf bytes.Buffer
	require.NoError(t, tr.Write(&buf))

	got, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, tr.Karts, got.Karts)
	require.Len(t, got.Frames, 3)
	assert.InDelta(t, tr.Frames[2].Samples["a"].Position.X, got.Frames[2].Samples["a"].Position.X, 1e-9)
	assert.InDelta(t, tr.Frames[2].Samples["a"].Position.Y, got.Frames[2].Samples["a"].Position.Y, 1e-9)
}

func TestRun(t *testing.T) {
	rec := events.NewRecorder()
	r, err := race.NewRace(tracks.Square(t), race.WithSink(rec))
	require.NoError(t, err)

	frames := 0
	p := NewPlayer(lapTrace(t, 40), WithFrameCallback(func(*race.Race, *Frame) { frames++ }))
	require.NoError(t, p.Register(r))
	require.NoError(t, p.Run(context.Background(), r))

	// the kart finishes at frame 31, the remaining frames are skipped
	assert.Equal(t, 32, frames)
	assert.Len(t, rec.OfKind(model.EKLapCompleted), 3)
	assert.Len(t, rec.OfKind(model.EKRaceFinished), 1)
	assert.True(t, r.Done())
}

func TestRunTerminate(t *testing.T) {
	rec := events.NewRecorder()
	r, err := race.NewRace(tracks.Square(t), race.WithSink(rec))
	require.NoError(t, err)

	p := NewPlayer(lapTrace(t, 15), WithTerminate())
	require.NoError(t, p.Register(r))
	require.NoError(t, p.Run(context.Background(), r))

	fin := rec.OfKind(model.EKRaceFinished)
	require.Len(t, fin, 1)
	assert.True(t, fin[0].(model.RaceFinished).Estimated)
}

func TestRunCanceled(t *testing.T) {
	r, err := race.NewRace(tracks.Square(t))
	require.NoError(t, err)
	p := NewPlayer(lapTrace(t, 5))
	require.NoError(t, p.Register(r))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Run(ctx, r), context.Canceled)
}
