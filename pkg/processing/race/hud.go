package race

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/mpapenbr/trackprogress/pkg/model"
	"github.com/mpapenbr/trackprogress/pkg/processing/progress"
)

// Standing is the view of a kart as shown in a race HUD.
type Standing struct {
	Kart     model.KartID `json:"kart"`
	Position int          `json:"pos"`
	Lap      int          `json:"lap"`
	LapText  string       `json:"lapText"`
	// time behind the leader at the last completed lap, NaN if unknown
	Gap             float64 `json:"-"`
	GapText         string  `json:"gap"`
	LapTime         float64 `json:"-"`
	LapTimeText     string  `json:"lapTime"`
	Finished        bool    `json:"finished"`
	FinishTime      float64 `json:"finishTime"`
	EstimatedFinish float64 `json:"estimatedFinish"`
	Eliminated      bool    `json:"eliminated"`
	OnRoad          bool    `json:"onRoad"`
	WrongWay        bool    `json:"wrongWay"`
}

// Standings returns the karts ordered by position. Karts not yet ranked
// follow in registration order.
func (r *Race) Standings() []Standing {
	ret := make([]Standing, 0, len(r.order))
	for _, id := range r.order {
		ret = append(ret, r.standing(r.karts[id]))
	}
	slices.SortStableFunc(ret, func(a, b Standing) int {
		switch {
		case a.Position == 0 && b.Position == 0:
			return 0
		case a.Position == 0:
			return 1
		case b.Position == 0:
			return -1
		default:
			return cmp.Compare(a.Position, b.Position)
		}
	})
	return ret
}

func (r *Race) standing(k *kart) Standing {
	t := k.tracker
	ret := Standing{
		Kart:            k.id,
		Position:        k.position,
		Lap:             t.Lap(),
		LapText:         "-",
		Gap:             math.NaN(),
		LapTime:         math.NaN(),
		Finished:        t.State() == progress.StateFinished,
		FinishTime:      t.FinishTime(),
		EstimatedFinish: t.EstimatedFinishTime(),
		Eliminated:      k.eliminated,
		OnRoad:          t.OnRoad(),
		WrongWay:        t.WrongWay(),
	}
	if r.settings.HasLaps {
		ret.LapText = fmt.Sprintf("%d/%d", max(t.Lap(), 0), r.settings.TotalLaps)
	}
	if lead, ok := r.lapLeaderTimes[t.Lap()]; ok && t.Lap() > 0 {
		ret.Gap = t.TimeAtLastLap() - lead
	}
	ret.GapText = FormatGap(ret.Gap)
	if t.State() == progress.StateRacing || t.State() == progress.StateRescuePending {
		if t.LapStartTime() >= 0 && t.Lap() >= 0 {
			ret.LapTime = r.clock - t.LapStartTime()
		}
	}
	ret.LapTimeText = FormatRaceTime(ret.LapTime)
	return ret
}

var sixty = decimal.NewFromInt(60)

// FormatRaceTime formats seconds as m:ss.fff. Minutes are omitted below one
// minute. Negative or NaN values are shown as "-".
func FormatRaceTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "-"
	}
	d := decimal.NewFromFloat(seconds).Round(3)
	minutes := d.Div(sixty).Floor()
	secs := d.Sub(minutes.Mul(sixty))
	if minutes.IsZero() {
		return secs.StringFixed(3)
	}
	s := secs.StringFixed(3)
	if secs.LessThan(decimal.NewFromInt(10)) {
		s = "0" + s
	}
	return minutes.String() + ":" + s
}

// FormatGap formats the gap to the leader. The leader itself gets an empty
// string as does an unknown gap.
func FormatGap(gap float64) string {
	if math.IsNaN(gap) || gap <= 0 {
		return ""
	}
	return "+" + FormatRaceTime(gap)
}

func sortByFinish(karts []*kart) {
	slices.SortStableFunc(karts, func(a, b *kart) int {
		return cmp.Compare(a.tracker.FinishTime(), b.tracker.FinishTime())
	})
}
