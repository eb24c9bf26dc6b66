package predict

// distance used for karts that are still behind the start line
const minDistance = 0.01

type Params struct {
	Lap          int     // completed laps
	Longitudinal float64 // distance from the start line in the current lap
	TrackLength  float64
	TotalLaps    int
	Elapsed      float64 // race time so far
}

// EstimateFinishTime extrapolates the race time at which the kart will
// complete TotalLaps based on its average speed so far.
// Returns 0 if no race time has elapsed yet.
func EstimateFinishTime(p Params) float64 {
	if p.Elapsed <= 0 {
		return 0
	}
	covered := max(float64(p.Lap)*p.TrackLength+p.Longitudinal, minDistance)
	speed := covered / p.Elapsed
	remaining := float64(p.TotalLaps)*p.TrackLength - covered
	return p.Elapsed + remaining/speed
}
