// Package progress follows a single kart around the driveline: it keeps the
// track coordinates up to date, counts laps and flags shortcuts.
package progress

import (
	"math"

	"github.com/mpapenbr/trackprogress/log"
	"github.com/mpapenbr/trackprogress/pkg/config"
	"github.com/mpapenbr/trackprogress/pkg/driveline"
	"github.com/mpapenbr/trackprogress/pkg/geom"
	"github.com/mpapenbr/trackprogress/pkg/model"
	"github.com/mpapenbr/trackprogress/pkg/processing/predict"
)

type State int

const (
	StateNotStarted State = iota
	StateRacing
	StateRescuePending
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NOT_STARTED"
	case StateRacing:
		return "RACING"
	case StateRescuePending:
		return "RESCUE_PENDING"
	case StateFinished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// headings differing more than this from the track direction are wrong way
const wrongWayAngle = math.Pi / 2

type Tracker struct {
	kart     model.KartID
	dl       *driveline.Driveline
	settings config.RaceSettings
	l        *log.Logger

	state           State
	sector          int
	current         driveline.TrackCoordinate
	previous        driveline.TrackCoordinate
	onRoad          bool
	lastValidSector int
	lastValidLap    int
	lap             int
	// -1 if the current lap must not be timed
	lapStartTime        float64
	timeAtLastLap       float64
	estimatedFinishTime float64
	finishTime          float64
	wrongWay            bool
	rescueSector        int
	rescueLap           int
	// coordinate before the rescue, compared with the first sample after it
	rescueFrom driveline.TrackCoordinate
	rescued    bool

	events []model.Event
}

type TrackerOption func(t *Tracker)

func WithSettings(s config.RaceSettings) TrackerOption {
	return func(t *Tracker) {
		t.settings = s
	}
}

func WithLogger(l *log.Logger) TrackerOption {
	return func(t *Tracker) {
		t.l = l
	}
}

//nolint:whitespace // can't make the linters happy
func NewTracker(
	kart model.KartID,
	dl *driveline.Driveline,
	opts ...TrackerOption,
) *Tracker {
	ret := &Tracker{
		kart:     kart,
		dl:       dl,
		settings: config.DefaultRaceSettings(),
		l:        log.Default().Named("progress"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.Reset()
	return ret
}

// Reset puts the tracker back to the state before the race start.
func (t *Tracker) Reset() {
	t.state = StateNotStarted
	t.sector = driveline.Unknown
	t.current = driveline.TrackCoordinate{}
	t.previous = driveline.TrackCoordinate{}
	t.onRoad = false
	t.lastValidSector = driveline.Unknown
	t.lastValidLap = -1
	t.lap = -1
	t.lapStartTime = 0
	t.timeAtLastLap = 0
	t.estimatedFinishTime = 0
	t.finishTime = 0
	t.wrongWay = false
	t.rescueSector = driveline.Unknown
	t.rescueLap = -1
	t.rescueFrom = driveline.TrackCoordinate{}
	t.rescued = false
}

// Update processes the kart sample of the current frame and returns the events
// raised by it. Finished karts and karts waiting for a rescue are skipped.
func (t *Tracker) Update(s model.Sample, clock float64) []model.Event {
	t.events = nil
	switch t.state {
	case StateNotStarted:
		t.handleStart(s)
	case StateRacing:
		t.handleRacing(s, clock)
	case StateRescuePending, StateFinished:
	}
	return t.events
}

// the first sample only places the kart, there is no previous coordinate to
// compare with
func (t *Tracker) handleStart(s model.Sample) {
	sector := t.dl.Locate(s.Position, driveline.Unknown, false)
	t.onRoad = sector != driveline.Unknown
	if sector == driveline.Unknown {
		sector = t.dl.LocateNearest(s.Position, driveline.SideBoth, driveline.Unknown)
	}
	if sector == driveline.Unknown {
		t.l.Warn("kart could not be placed on track",
			log.String("kart", string(t.kart)),
			log.Any("position", s.Position))
		return
	}
	t.sector = sector
	t.lastValidSector = sector
	t.lastValidLap = t.lap
	t.current, _ = t.dl.Project(s.Position, sector)
	t.previous = t.current
	t.state = StateRacing
}

func (t *Tracker) handleRacing(s model.Sample, clock float64) {
	prevSector := t.sector
	shortcut := false

	sector := t.dl.Locate(s.Position, prevSector, true)
	if sector != driveline.Unknown {
		t.onRoad = true
		if t.dl.IsShortcut(t.lastValidSector, sector, t.settings.ShortcutThreshold) {
			shortcut = true
		} else {
			t.lastValidSector = sector
			t.lastValidLap = t.lap
		}
	} else {
		t.onRoad = false
		// off road there is no current lateral offset, use the last known side
		side := driveline.SideLeft
		if t.current.Lateral > 0 {
			side = driveline.SideRight
		}
		sector = t.dl.LocateNearest(s.Position, side, prevSector)
		if sector == driveline.Unknown {
			t.requestRescue(clock, true)
			return
		}
		shortcut = t.dl.IsShortcut(prevSector, sector, t.settings.ShortcutThreshold)
	}
	t.sector = sector
	if shortcut {
		t.l.Debug("shortcut detected",
			log.String("kart", string(t.kart)),
			log.Int("from", t.lastValidSector),
			log.Int("to", sector))
		t.requestRescue(clock, false)
	}

	t.previous = t.current
	if t.rescued {
		// a rescue behind the start line must still count the crossing
		t.previous = t.rescueFrom
		t.rescued = false
	}
	t.current, _ = t.dl.Project(s.Position, sector)

	t.checkLapCrossing(clock)
	if t.state == StateFinished {
		return
	}
	if t.settings.HasLaps && t.lap == t.settings.TotalLaps-1 {
		t.estimatedFinishTime = predict.EstimateFinishTime(predict.Params{
			Lap:          t.lap,
			Longitudinal: t.current.Longitudinal,
			TrackLength:  t.dl.TotalLength(),
			TotalLaps:    t.settings.TotalLaps,
			Elapsed:      clock,
		})
	}
	t.checkWrongWay(s, clock)
}

func (t *Tracker) checkLapCrossing(clock float64) {
	length := t.dl.TotalLength()
	band := t.settings.CrossingBand
	switch {
	case t.previous.Longitudinal > length-band && t.current.Longitudinal < band:
		t.crossForward(clock)
	case t.previous.Longitudinal < band && t.current.Longitudinal > length-band:
		t.lap--
		t.lapStartTime = -1
		t.l.Debug("crossed line backwards",
			log.String("kart", string(t.kart)),
			log.Int("lap", t.lap))
	}
}

func (t *Tracker) crossForward(clock float64) {
	if t.settings.HasLaps && t.lap+1 > t.settings.TotalLaps {
		return
	}
	t.timeAtLastLap = clock
	t.lap++

	if t.lap > 0 {
		lapDone := model.LapCompleted{
			EventHeader: t.header(clock),
			Lap:         t.lap,
			LapTime:     -1,
		}
		if t.lapStartTime >= 0 {
			if t.lap == 1 {
				lapDone.LapTime = clock
			} else {
				lapDone.LapTime = clock - t.lapStartTime
			}
		}
		t.emit(lapDone)
	}
	t.lapStartTime = clock

	if t.settings.HasLaps && t.lap >= t.settings.TotalLaps {
		t.finish(clock, false)
	}
}

func (t *Tracker) checkWrongWay(s model.Sample, clock float64) {
	if !t.onRoad || s.Speed <= t.settings.WrongWayMinSpeed {
		return
	}
	wrong := geom.AngleDiff(s.Heading, t.dl.Heading(t.sector)) > wrongWayAngle
	if wrong != t.wrongWay {
		t.wrongWay = wrong
		t.emit(model.WrongWay{EventHeader: t.header(clock), On: wrong})
	}
}

func (t *Tracker) requestRescue(clock float64, forced bool) {
	// lastValidSector is never Unknown while racing
	t.rescueSector = (t.lastValidSector + 1) % t.dl.NumSectors()
	t.rescueLap = t.lastValidLap
	if !t.rescued {
		t.rescueFrom = t.current
	}
	t.state = StateRescuePending
	if forced {
		t.l.Info("kart lost, forcing rescue",
			log.String("kart", string(t.kart)),
			log.Int("lastValidSector", t.lastValidSector))
		t.emit(model.ForcedRescue{
			EventHeader:  t.header(clock),
			TargetSector: t.rescueSector,
			TargetLap:    t.rescueLap,
		})
		return
	}
	t.emit(model.ShortcutDetected{
		EventHeader:  t.header(clock),
		TargetSector: t.rescueSector,
		TargetLap:    t.rescueLap,
	})
}

// CompleteRescue puts a kart waiting for a rescue onto the centerline of the
// rescue sector and resumes racing with the lap it had there.
func (t *Tracker) CompleteRescue() {
	if t.state != StateRescuePending {
		return
	}
	v := t.dl.Vertex(t.rescueSector)
	t.sector = t.rescueSector
	t.lap = t.rescueLap
	t.current = driveline.TrackCoordinate{
		Longitudinal: v.CumulativeDistance,
		HalfWidth:    v.HalfWidth,
	}
	t.previous = t.current
	t.onRoad = true
	t.wrongWay = false
	t.lastValidSector = t.sector
	t.lastValidLap = t.lap
	t.rescued = true
	t.state = StateRacing
}

// estimated is set for karts that were stopped by race termination
func (t *Tracker) finish(finishTime float64, estimated bool) {
	if t.state == StateFinished {
		return
	}
	t.state = StateFinished
	t.finishTime = finishTime
	t.emit(model.RaceFinished{
		EventHeader: t.header(finishTime),
		FinishTime:  finishTime,
		Estimated:   estimated,
	})
}

// Terminate finishes the kart with an estimated finish time based on the
// current race time. Returns the events raised.
func (t *Tracker) Terminate(clock float64) []model.Event {
	t.events = nil
	if t.state == StateFinished {
		return nil
	}
	est := predict.EstimateFinishTime(predict.Params{
		Lap:          max(t.lap, 0),
		Longitudinal: t.current.Longitudinal,
		TrackLength:  t.dl.TotalLength(),
		TotalLaps:    t.settings.TotalLaps,
		Elapsed:      clock,
	})
	t.estimatedFinishTime = est
	t.finish(max(est, clock), true)
	return t.events
}

func (t *Tracker) header(clock float64) model.EventHeader {
	return model.EventHeader{KartID: t.kart, Clock: clock}
}

func (t *Tracker) emit(e model.Event) {
	t.events = append(t.events, e)
}

func (t *Tracker) Kart() model.KartID                  { return t.kart }
func (t *Tracker) State() State                        { return t.state }
func (t *Tracker) Sector() int                         { return t.sector }
func (t *Tracker) Current() driveline.TrackCoordinate  { return t.current }
func (t *Tracker) Previous() driveline.TrackCoordinate { return t.previous }
func (t *Tracker) OnRoad() bool                        { return t.onRoad }
func (t *Tracker) LastValidSector() int                { return t.lastValidSector }
func (t *Tracker) LastValidLap() int                   { return t.lastValidLap }
func (t *Tracker) Lap() int                            { return t.lap }
func (t *Tracker) LapStartTime() float64               { return t.lapStartTime }
func (t *Tracker) TimeAtLastLap() float64              { return t.timeAtLastLap }
func (t *Tracker) EstimatedFinishTime() float64        { return t.estimatedFinishTime }
func (t *Tracker) FinishTime() float64                 { return t.finishTime }
func (t *Tracker) WrongWay() bool                      { return t.wrongWay }

// RescueTarget returns the sector and lap a pending rescue will restore.
func (t *Tracker) RescueTarget() (sector, lap int) {
	return t.rescueSector, t.rescueLap
}

// Progress is the distance driven since the first crossing of the start line.
func (t *Tracker) Progress() float64 {
	return float64(t.lap)*t.dl.TotalLength() + t.current.Longitudinal
}
