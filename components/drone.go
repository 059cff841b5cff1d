package components

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// DroneState is the behavioral state of a drone.
type DroneState uint8

const (
	ToHome       DroneState = iota // carrying food back to the colony
	ToHomeNoFood                   // returning without food
	ToFood                         // following food and attractor trails
	Exploring                      // wandering without a usable trail
	Gathering                      // on a food cell, picking up one unit
	Depositing                     // on the colony cell, dropping food
	Resting                        // on the colony cell, empty-handed
	Dead                           // terminal, only set externally
)

// Drone holds per-drone steering state.
type Drone struct {
	Direction  r2.Vec `inspect:"skip"` // unit vector times move speed, or zero
	Autonomous bool   `inspect:"bool"`
}

// FacesLeft reports whether a sprite for this drone should be mirrored.
func (d Drone) FacesLeft() bool {
	a := math.Atan2(-d.Direction.Y, d.Direction.X)
	return a >= 3*math.Pi/4 || a <= -math.Pi/4
}

// Colonist ties a drone to the colony it was spawned from.
type Colonist struct {
	Home r2.Vec // colony cell centre
}
