// Package replay drives a race with kart positions recorded in a trace file.
package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mpapenbr/trackprogress/log"
	"github.com/mpapenbr/trackprogress/pkg/geom"
	"github.com/mpapenbr/trackprogress/pkg/model"
	"github.com/mpapenbr/trackprogress/pkg/processing/race"
)

var ErrMalformedTrace = errors.New("malformed trace file")

type (
	KartEntry struct {
		ID   model.KartID
		Grid int
	}
	Frame struct {
		Clock   float64
		Samples map[model.KartID]model.Sample
	}
	Trace struct {
		Name   string
		Karts  []KartEntry
		Frames []Frame
	}
)

type (
	fileFormat struct {
		Name   string      `yaml:"name"`
		Karts  []fileKart  `yaml:"karts"`
		Frames []fileFrame `yaml:"frames"`
	}
	fileKart struct {
		ID   string `yaml:"id"`
		Grid int    `yaml:"grid"`
	}
	fileFrame struct {
		Clock float64               `yaml:"clock"`
		Karts map[string]fileSample `yaml:"karts"`
	}
	fileSample struct {
		Position []float64 `yaml:"position"`
		Heading  float64   `yaml:"heading"`
		Speed    float64   `yaml:"speed"`
	}
)

// Load reads a trace in YAML format. Karts without grid slot get the slot
// following their position in the file. Frames must be ordered by clock.
func Load(r io.Reader) (*Trace, error) {
	var f fileFormat
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedTrace, err)
	}
	ret := &Trace{Name: f.Name}
	known := make(map[model.KartID]bool)
	for i, k := range f.Karts {
		grid := k.Grid
		if grid == 0 {
			grid = i + 1
		}
		id := model.KartID(k.ID)
		if id == "" || known[id] {
			return nil, fmt.Errorf("%w: kart entry %d has empty or duplicate id",
				ErrMalformedTrace, i)
		}
		known[id] = true
		ret.Karts = append(ret.Karts, KartEntry{ID: id, Grid: grid})
	}
	for i, fr := range f.Frames {
		if i > 0 && fr.Clock < f.Frames[i-1].Clock {
			return nil, fmt.Errorf("%w: frame %d goes back in time", ErrMalformedTrace, i)
		}
		frame := Frame{Clock: fr.Clock, Samples: make(map[model.KartID]model.Sample)}
		for id, s := range fr.Karts {
			if !known[model.KartID(id)] {
				return nil, fmt.Errorf("%w: frame %d references unknown kart %s",
					ErrMalformedTrace, i, id)
			}
			pos, ok := geom.FromSlice(s.Position)
			if !ok {
				return nil, fmt.Errorf("%w: frame %d kart %s has invalid position",
					ErrMalformedTrace, i, id)
			}
			frame.Samples[model.KartID(id)] = model.Sample{
				Position: pos,
				Heading:  s.Heading,
				Speed:    s.Speed,
			}
		}
		ret.Frames = append(ret.Frames, frame)
	}
	return ret, nil
}

func LoadFile(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Write stores the trace in the format read by Load.
func (t *Trace) Write(w io.Writer) error {
	f := fileFormat{Name: t.Name}
	for _, k := range t.Karts {
		f.Karts = append(f.Karts, fileKart{ID: string(k.ID), Grid: k.Grid})
	}
	for _, fr := range t.Frames {
		ff := fileFrame{Clock: fr.Clock, Karts: make(map[string]fileSample)}
		for id, s := range fr.Samples {
			ff.Karts[string(id)] = fileSample{
				Position: []float64{s.Position.X, s.Position.Y, s.Position.Z},
				Heading:  s.Heading,
				Speed:    s.Speed,
			}
		}
		f.Frames = append(f.Frames, ff)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return err
	}
	return enc.Close()
}

// Duration is the clock of the last frame.
func (t *Trace) Duration() float64 {
	if len(t.Frames) == 0 {
		return 0
	}
	return t.Frames[len(t.Frames)-1].Clock
}

type (
	Player struct {
		trace    *Trace
		l        *log.Logger
		realtime float64
		// called after each frame
		onFrame   func(r *race.Race, f *Frame)
		terminate bool
	}
	PlayerOption func(p *Player)
)

// WithRealtime replays the frames paced by their clock. Factor 2 plays twice
// as fast.
func WithRealtime(factor float64) PlayerOption {
	return func(p *Player) {
		p.realtime = factor
	}
}

func WithFrameCallback(cb func(r *race.Race, f *Frame)) PlayerOption {
	return func(p *Player) {
		p.onFrame = cb
	}
}

// WithTerminate terminates the race after the last frame if some karts did
// not finish.
func WithTerminate() PlayerOption {
	return func(p *Player) {
		p.terminate = true
	}
}

func WithLogger(l *log.Logger) PlayerOption {
	return func(p *Player) {
		p.l = l
	}
}

func NewPlayer(t *Trace, opts ...PlayerOption) *Player {
	ret := &Player{
		trace: t,
		l:     log.Default().Named("replay"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Register adds the karts of the trace to the race.
func (p *Player) Register(r *race.Race) error {
	for _, k := range p.trace.Karts {
		if err := r.AddKart(k.ID, k.Grid); err != nil {
			return err
		}
	}
	return nil
}

// Run feeds all frames into the race. It stops early once all karts finished
// or ctx is done.
func (p *Player) Run(ctx context.Context, r *race.Race) error {
	var last float64
	for i := range p.trace.Frames {
		f := &p.trace.Frames[i]
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.realtime > 0 && i > 0 {
			wait := time.Duration((f.Clock - last) / p.realtime * float64(time.Second))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := r.Step(f.Clock, f.Samples); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		last = f.Clock
		if p.onFrame != nil {
			p.onFrame(r, f)
		}
		if r.Done() {
			p.l.Debug("all karts done", log.Float64("clock", f.Clock))
			return nil
		}
	}
	if p.terminate && !r.Done() {
		p.l.Info("terminating race", log.Float64("clock", last))
		r.Terminate(last)
	}
	return nil
}
