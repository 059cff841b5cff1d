package systems

import (
	"fmt"

	"github.com/Dasch0/hivemind-mirror/grid"
)

// Dir is a cardinal wire direction.
type Dir uint8

const (
	DirNone Dir = iota
	DirNorth
	DirSouth
	DirEast
	DirWest
)

var dirNames = [...]string{"none", "north", "south", "east", "west"}

func (d Dir) String() string {
	if int(d) < len(dirNames) {
		return dirNames[d]
	}
	return "unknown"
}

// DirOf maps a unit cardinal offset to its Dir. Anything else is DirNone.
func DirOf(d grid.Point) Dir {
	switch d {
	case grid.North:
		return DirNorth
	case grid.South:
		return DirSouth
	case grid.East:
		return DirEast
	case grid.West:
		return DirWest
	}
	return DirNone
}

// Connector describes how a wire segment joins its neighbours.
type Connector struct {
	From, To     Dir
	Disconnected bool // a stub pointing away from a fresh router
}

// Disconnect returns a stub connector facing d.
func Disconnect(d Dir) Connector { return Connector{From: d, Disconnected: true} }

// Connect returns a connector joining two sides.
func Connect(from, to Dir) Connector { return Connector{From: from, To: to} }

// ConnectorFromRoute derives the connector of pos from the cells on either side of it.
func ConnectorFromRoute(prev, pos, next grid.Point) Connector {
	return Connect(DirOf(pos.Sub(prev)), DirOf(pos.Sub(next)))
}

func (c Connector) String() string {
	if c.Disconnected {
		return fmt.Sprintf("stub(%s)", c.From)
	}
	return fmt.Sprintf("%s-%s", c.From, c.To)
}

// WirePlacement is one wire segment laid by a router.
type WirePlacement struct {
	Pos       grid.Point
	Connector Connector
	Delay     float64 // seconds before presentation should reveal it
}
