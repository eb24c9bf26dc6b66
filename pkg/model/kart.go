package model

import "github.com/mpapenbr/trackprogress/pkg/geom"

// KartID identifies a kart for the lifetime of a race.
type KartID string

// Sample is the physics state of a kart for one frame.
type Sample struct {
	Position geom.Vec3 `json:"position" yaml:"position"`
	// planar heading in radians (atan2 convention)
	Heading float64 `json:"heading" yaml:"heading"`
	Speed   float64 `json:"speed" yaml:"speed"`
}
