// Package race owns all trackers of one race. It drives the per frame update
// of the karts, ranks them and delivers the resulting events.
package race

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mpapenbr/trackprogress/log"
	"github.com/mpapenbr/trackprogress/pkg/config"
	"github.com/mpapenbr/trackprogress/pkg/driveline"
	"github.com/mpapenbr/trackprogress/pkg/events"
	"github.com/mpapenbr/trackprogress/pkg/geom"
	"github.com/mpapenbr/trackprogress/pkg/model"
	"github.com/mpapenbr/trackprogress/pkg/processing/progress"
	"github.com/mpapenbr/trackprogress/pkg/processing/rank"
)

var (
	ErrNoDriveline    = errors.New("race needs a driveline")
	ErrDuplicateKart  = errors.New("kart already registered")
	ErrUnknownKart    = errors.New("unknown kart")
	ErrInvalidGrid    = errors.New("grid slot must be positive")
	ErrRaceStarted    = errors.New("race already started")
	ErrClockBackwards = errors.New("race clock must not go backwards")
)

type (
	Race struct {
		id         string
		dl         *driveline.Driveline
		settings   config.RaceSettings
		sink       events.Sink
		l          *log.Logger
		parallel   bool
		autoRescue bool
		record     *progress.LapRecord
		metrics    *raceMetrics

		karts   map[model.KartID]*kart
		order   []model.KartID // insertion order
		clock   float64
		started bool
		// race time at which the first kart completed lap i
		lapLeaderTimes map[int]float64
	}

	kart struct {
		id         model.KartID
		grid       int
		tracker    *progress.Tracker
		eliminated bool
		// finished in an earlier frame
		finished bool
		position int
		// events of the current frame, flushed after ranking
		pending []model.Event
	}

	Option func(r *Race)
)

func WithID(id string) Option {
	return func(r *Race) {
		r.id = id
	}
}

func WithSettings(s config.RaceSettings) Option {
	return func(r *Race) {
		r.settings = s
	}
}

func WithSink(s events.Sink) Option {
	return func(r *Race) {
		r.sink = s
	}
}

func WithLogger(l *log.Logger) Option {
	return func(r *Race) {
		r.l = l
	}
}

// WithParallelUpdates runs the tracker updates of a frame concurrently.
func WithParallelUpdates() Option {
	return func(r *Race) {
		r.parallel = true
	}
}

// WithAutoRescue completes rescues right after they were requested instead
// of waiting for CompleteRescue.
func WithAutoRescue() Option {
	return func(r *Race) {
		r.autoRescue = true
	}
}

func NewRace(dl *driveline.Driveline, opts ...Option) (*Race, error) {
	if dl == nil {
		return nil, ErrNoDriveline
	}
	ret := &Race{
		id:             uuid.New().String(),
		dl:             dl,
		settings:       config.DefaultRaceSettings(),
		sink:           events.Discard,
		l:              log.Default().Named("race"),
		record:         progress.NewLapRecord(),
		karts:          make(map[model.KartID]*kart),
		order:          make([]model.KartID, 0),
		lapLeaderTimes: make(map[int]float64),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if err := ret.settings.Validate(); err != nil {
		return nil, err
	}
	// the bands before and after the start line must not overlap
	if 2*ret.settings.CrossingBand >= dl.TotalLength() {
		return nil, fmt.Errorf("%w: crossingBand %.2f is too wide for driveline length %.2f",
			config.ErrInvalidSettings, ret.settings.CrossingBand, dl.TotalLength())
	}
	ret.metrics = newRaceMetrics(ret.id)
	return ret, nil
}

// DrivelineOptions maps the race settings onto driveline options.
func DrivelineOptions(s config.RaceSettings) []driveline.Option {
	return []driveline.Option{
		driveline.WithToleranceFactor(s.ToleranceFactor),
		driveline.WithSearchWindow(s.SearchWindow),
		driveline.WithHeightTolerance(s.HeightTolerance),
	}
}

func (r *Race) ID() string                     { return r.id }
func (r *Race) Driveline() *driveline.Driveline { return r.dl }
func (r *Race) Settings() config.RaceSettings  { return r.settings }
func (r *Race) Clock() float64                 { return r.clock }

// AddKart registers a kart with its starting grid slot. Karts can only be
// added before the first Step.
func (r *Race) AddKart(id model.KartID, grid int) error {
	if r.started {
		return fmt.Errorf("%w: cannot add kart %s", ErrRaceStarted, id)
	}
	if _, ok := r.karts[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateKart, id)
	}
	if grid < 1 {
		return fmt.Errorf("%w: kart %s got %d", ErrInvalidGrid, id, grid)
	}
	r.karts[id] = &kart{
		id:   id,
		grid: grid,
		tracker: progress.NewTracker(id, r.dl,
			progress.WithSettings(r.settings),
			progress.WithLogger(r.l.Named("progress"))),
	}
	r.order = append(r.order, id)
	return nil
}

func (r *Race) Karts() []model.KartID {
	return append([]model.KartID(nil), r.order...)
}

// Step processes one frame. Karts missing in samples keep their state.
func (r *Race) Step(clock float64, samples map[model.KartID]model.Sample) error {
	if clock < r.clock {
		return fmt.Errorf("%w: %f < %f", ErrClockBackwards, clock, r.clock)
	}
	for id := range samples {
		if _, ok := r.karts[id]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownKart, id)
		}
	}
	start := time.Now()
	r.started = true
	r.clock = clock

	r.updateTrackers(clock, samples)
	r.computePositions()
	r.flush()

	r.metrics.frame(time.Since(start))
	return nil
}

func (r *Race) updateTrackers(clock float64, samples map[model.KartID]model.Sample) {
	var g errgroup.Group
	for _, id := range r.order {
		k := r.karts[id]
		k.pending = nil
		s, ok := samples[id]
		if !ok || k.eliminated {
			continue
		}
		if r.parallel {
			g.Go(func() error {
				k.pending = k.tracker.Update(s, clock)
				return nil
			})
		} else {
			k.pending = k.tracker.Update(s, clock)
		}
	}
	//nolint:errcheck // updates do not fail
	g.Wait()
}

func (r *Race) computePositions() {
	entries := make([]rank.Entry, 0, len(r.order))
	for _, id := range r.order {
		k := r.karts[id]
		entries = append(entries, rank.Entry{
			Kart:       id,
			Lap:        k.tracker.Lap(),
			Progress:   k.tracker.Progress(),
			Grid:       k.grid,
			Finished:   k.finished,
			Eliminated: k.eliminated,
			Position:   k.position,
		})
	}
	for id, pos := range rank.Compute(entries) {
		r.karts[id].position = pos
	}
}

// flush delivers the events of the frame in kart insertion order
func (r *Race) flush() {
	for _, id := range r.order {
		k := r.karts[id]
		for _, e := range k.pending {
			r.publish(e)
			switch ev := e.(type) {
			case model.LapCompleted:
				if _, ok := r.lapLeaderTimes[ev.Lap]; !ok {
					r.lapLeaderTimes[ev.Lap] = ev.Clock
				}
				if best, ok := r.record.Offer(ev); ok {
					r.publish(best)
				}
			case model.RaceFinished:
				k.finished = true
				r.l.Info("kart finished",
					log.String("race", r.id),
					log.String("kart", string(id)),
					log.Int("position", k.position),
					log.Float64("time", ev.FinishTime))
			case model.ShortcutDetected, model.ForcedRescue:
				if r.autoRescue {
					k.tracker.CompleteRescue()
				}
			}
		}
		k.pending = nil
	}
}

func (r *Race) publish(e model.Event) {
	r.l.Debug("event",
		log.String("race", r.id),
		log.String("kind", e.Kind().String()),
		log.String("kart", string(e.Kart())),
		log.Float64("clock", e.Time()))
	r.metrics.event(e.Kind())
	r.sink.Publish(e)
}

// CompleteRescue tells the race that the rescue of a kart was done.
func (r *Race) CompleteRescue(id model.KartID) error {
	k, ok := r.karts[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKart, id)
	}
	k.tracker.CompleteRescue()
	return nil
}

// Eliminate removes a kart from the race. It gets the last position among the
// karts still in the race.
func (r *Race) Eliminate(id model.KartID) error {
	k, ok := r.karts[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKart, id)
	}
	if k.eliminated {
		return nil
	}
	remaining := 0
	for _, other := range r.karts {
		if !other.eliminated {
			remaining++
		}
	}
	k.eliminated = true
	k.position = remaining
	r.l.Info("kart eliminated",
		log.String("race", r.id),
		log.String("kart", string(id)),
		log.Int("position", k.position))
	return nil
}

// Terminate ends the race at the given race time. Karts which did not finish
// get an estimated finish time and are placed behind the finished karts in
// order of that time.
func (r *Race) Terminate(clock float64) {
	finished := 0
	terminated := make([]*kart, 0)
	for _, id := range r.order {
		k := r.karts[id]
		switch {
		case k.eliminated:
		case k.finished || k.tracker.State() == progress.StateFinished:
			finished++
		default:
			k.pending = k.tracker.Terminate(clock)
			terminated = append(terminated, k)
		}
	}
	sortByFinish(terminated)
	for i, k := range terminated {
		k.position = finished + i + 1
	}
	r.flush()
	r.clock = max(r.clock, clock)
}

// Done reports whether all karts finished or were eliminated.
func (r *Race) Done() bool {
	for _, k := range r.karts {
		if !k.eliminated && !k.finished {
			return false
		}
	}
	return len(r.karts) > 0
}

// Restart resets all karts to the state before the race start. Registered
// karts and their grid slots are kept.
func (r *Race) Restart() {
	for _, k := range r.karts {
		k.tracker.Reset()
		k.eliminated = false
		k.finished = false
		k.position = 0
		k.pending = nil
	}
	r.record.Reset()
	r.lapLeaderTimes = make(map[int]float64)
	r.clock = 0
	r.started = false
	r.l.Info("race restarted", log.String("race", r.id))
}

// FastestLap returns the fastest lap of the race so far.
func (r *Race) FastestLap() (model.NewFastestLap, bool) {
	return r.record.Best()
}

// Tracker gives access to the progress data of a kart.
func (r *Race) Tracker(id model.KartID) (*progress.Tracker, bool) {
	k, ok := r.karts[id]
	if !ok {
		return nil, false
	}
	return k.tracker, true
}

// Position returns the current position of a kart, 0 if not yet ranked.
func (r *Race) Position(id model.KartID) int {
	if k, ok := r.karts[id]; ok {
		return k.position
	}
	return 0
}

// accessors used by AI drivers

// SectorForKart returns driveline.Unknown for unknown karts.
func (r *Race) SectorForKart(id model.KartID) int {
	if k, ok := r.karts[id]; ok {
		return k.tracker.Sector()
	}
	return driveline.Unknown
}

// DistanceDownTrackForKart returns the distance from the start line in the
// current lap, NaN for unknown karts.
func (r *Race) DistanceDownTrackForKart(id model.KartID) float64 {
	if k, ok := r.karts[id]; ok {
		return k.tracker.Current().Longitudinal
	}
	return math.NaN()
}

// DistanceToCenterForKart returns the lateral offset, positive towards the
// right boundary, NaN for unknown karts.
func (r *Race) DistanceToCenterForKart(id model.KartID) float64 {
	if k, ok := r.karts[id]; ok {
		return k.tracker.Current().Lateral
	}
	return math.NaN()
}

// LapForKart returns -1 for unknown karts or karts not yet across the line.
func (r *Race) LapForKart(id model.KartID) int {
	if k, ok := r.karts[id]; ok {
		return k.tracker.Lap()
	}
	return -1
}

func (r *Race) TrackToSpatial(sector int) geom.Vec3 {
	return r.dl.TrackToSpatial(sector)
}
