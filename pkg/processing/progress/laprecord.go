package progress

import (
	"sync"

	"github.com/mpapenbr/trackprogress/pkg/model"
)

// LapRecord holds the fastest lap of a race. It is safe for concurrent use.
type LapRecord struct {
	mu   sync.Mutex
	best *model.NewFastestLap
}

func NewLapRecord() *LapRecord {
	return &LapRecord{}
}

// Offer checks the lap against the current record and replaces it if the lap
// is faster. Returns the new record and true on success.
func (r *LapRecord) Offer(lap model.LapCompleted) (model.NewFastestLap, bool) {
	if lap.LapTime < 0 {
		return model.NewFastestLap{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.best != nil && lap.LapTime >= r.best.LapTime {
		return model.NewFastestLap{}, false
	}
	r.best = &model.NewFastestLap{
		EventHeader: lap.EventHeader,
		Lap:         lap.Lap,
		LapTime:     lap.LapTime,
	}
	return *r.best, true
}

func (r *LapRecord) Best() (model.NewFastestLap, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.best == nil {
		return model.NewFastestLap{}, false
	}
	return *r.best, true
}

func (r *LapRecord) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.best = nil
}
