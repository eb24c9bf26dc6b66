package model

type EventKind int

const (
	EKShortcutDetected EventKind = iota + 1
	EKForcedRescue
	EKLapCompleted
	EKRaceFinished
	EKNewFastestLap
	EKWrongWay
)

func (k EventKind) String() string {
	switch k {
	case EKShortcutDetected:
		return "shortcut"
	case EKForcedRescue:
		return "rescue"
	case EKLapCompleted:
		return "lap"
	case EKRaceFinished:
		return "finished"
	case EKNewFastestLap:
		return "fastestlap"
	case EKWrongWay:
		return "wrongway"
	default:
		return "unknown"
	}
}
