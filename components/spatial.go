// Package components defines ECS components for the simulation.
package components

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/Dasch0/hivemind-mirror/grid"
)

// Position is a continuous world position in cell units.
type Position struct {
	X, Y float64
}

// Vec returns the position as a vector.
func (p Position) Vec() r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

// PositionOf converts a vector to a Position.
func PositionOf(v r2.Vec) Position { return Position{X: v.X, Y: v.Y} }

// Cell returns the grid cell containing the position.
func (p Position) Cell() grid.Point { return grid.PointOf(p.Vec()) }

// Tile anchors a structure (colony, outpost, router) to one grid cell.
type Tile struct {
	grid.Point
}
