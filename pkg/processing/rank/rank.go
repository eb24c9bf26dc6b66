// Package rank computes race positions from a snapshot of all karts.
package rank

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/samber/lo"

	"github.com/mpapenbr/trackprogress/pkg/model"
)

type Entry struct {
	Kart model.KartID
	Lap  int
	// distance driven, laps included
	Progress float64
	// starting grid slot, higher slots win ties
	Grid       int
	Finished   bool
	Eliminated bool
	// position from the previous computation, kept for finished and
	// eliminated karts
	Position int
}

// Compute returns the 1-based position of every entry. The result only depends
// on the set of entries, not on their order.
// Panics if a racing entry has no valid progress.
func Compute(entries []Entry) map[model.KartID]int {
	for i := range entries {
		if entries[i].racing() && math.IsNaN(entries[i].Progress) {
			panic(fmt.Sprintf("rank: kart %s has no valid progress", entries[i].Kart))
		}
	}
	ret := make(map[model.KartID]int, len(entries))
	for i := range entries {
		a := &entries[i]
		if !a.racing() {
			ret[a.Kart] = a.Position
			continue
		}
		ret[a.Kart] = 1 + lo.CountBy(entries, func(b Entry) bool {
			return b.Kart != a.Kart && !b.Eliminated && ahead(&b, a)
		})
	}
	return ret
}

// Order returns the karts sorted by position. Karts without a position are
// omitted.
func Order(positions map[model.KartID]int) []model.KartID {
	entries := lo.Filter(lo.Entries(positions),
		func(e lo.Entry[model.KartID, int], _ int) bool {
			return e.Value > 0
		})
	slices.SortFunc(entries, func(a, b lo.Entry[model.KartID, int]) int {
		if c := cmp.Compare(a.Value, b.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return lo.Map(entries, func(e lo.Entry[model.KartID, int], _ int) model.KartID {
		return e.Key
	})
}

func (e *Entry) racing() bool {
	return !e.Finished && !e.Eliminated
}

// ahead reports whether b ranks ahead of a
func ahead(b, a *Entry) bool {
	switch {
	case b.Finished:
		return true
	case b.Lap != a.Lap:
		return b.Lap > a.Lap
	case b.Progress != a.Progress:
		return b.Progress > a.Progress
	default:
		return b.Grid > a.Grid
	}
}
