package model

// Event is emitted by the progress engine for collaborators like rescue, HUD
// or race control.
type Event interface {
	Kind() EventKind
	Kart() KartID
	Time() float64
}

type EventHeader struct {
	KartID KartID  `json:"kart"`
	Clock  float64 `json:"clock"` // race clock when the event was raised
}

func (h EventHeader) Kart() KartID  { return h.KartID }
func (h EventHeader) Time() float64 { return h.Clock }

// ShortcutDetected requests the kart to be rescued to TargetSector while
// keeping TargetLap.
type ShortcutDetected struct {
	EventHeader
	TargetSector int `json:"targetSector"`
	TargetLap    int `json:"targetLap"`
}

// ForcedRescue is raised if a kart could not be mapped onto the track at all.
type ForcedRescue struct {
	EventHeader
	TargetSector int `json:"targetSector"`
	TargetLap    int `json:"targetLap"`
}

type LapCompleted struct {
	EventHeader
	Lap int `json:"lap"`
	// LapTime is negative if the lap could not be timed
	LapTime float64 `json:"lapTime"`
}

type RaceFinished struct {
	EventHeader
	FinishTime float64 `json:"finishTime"`
	// true if the finish time was estimated on race termination
	Estimated bool `json:"estimated"`
}

type NewFastestLap struct {
	EventHeader
	Lap     int     `json:"lap"`
	LapTime float64 `json:"lapTime"`
}

type WrongWay struct {
	EventHeader
	On bool `json:"on"`
}

func (ShortcutDetected) Kind() EventKind { return EKShortcutDetected }
func (ForcedRescue) Kind() EventKind     { return EKForcedRescue }
func (LapCompleted) Kind() EventKind     { return EKLapCompleted }
func (RaceFinished) Kind() EventKind     { return EKRaceFinished }
func (NewFastestLap) Kind() EventKind    { return EKNewFastestLap }
func (WrongWay) Kind() EventKind         { return EKWrongWay }
