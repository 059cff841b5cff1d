package components

import (
	"fmt"

	"github.com/Dasch0/hivemind-mirror/grid"
)

// ErrInvalidIdentity is returned when an identity is not exactly one colony flag.
var ErrInvalidIdentity = grid.ErrInvalidIdentity

// Identity tags drones and colonies with their colony flag.
type Identity struct {
	Kind grid.Kind `inspect:"label"`
}

// NewIdentity validates that k carries exactly one colony flag.
func NewIdentity(k grid.Kind) (Identity, error) {
	id, err := k.ColonyIdentity()
	if err != nil || id != k {
		return Identity{}, fmt.Errorf("identity %s: %w", k, ErrInvalidIdentity)
	}
	return Identity{Kind: id}, nil
}

// Colony marks a colony entity. Its resource counter lives in the grid cell.
type Colony struct {
	Spawned int `inspect:"label"` // drones spawned so far
}

// Outpost marks a resource harvesting node created by a router.
type Outpost struct {
	Drained uint32 `inspect:"label"` // total quantity taken from the cell
}

// Clock is a repeating timer. A halted clock never fires.
type Clock struct {
	Period  float64 `inspect:"label,fmt:%.2fs"`
	Elapsed float64 `inspect:"label,fmt:%.2fs"`
	Halted  bool    `inspect:"bool"`
}

// NewClock returns a running clock with the given period.
func NewClock(period float64) Clock { return Clock{Period: period} }

// Advance adds dt and returns how many times the clock fired.
// A non-positive period fires once per call.
func (c *Clock) Advance(dt float64) int {
	if c.Halted {
		return 0
	}
	if c.Period <= 0 {
		c.Elapsed = 0
		return 1
	}
	c.Elapsed += dt
	n := 0
	for c.Elapsed >= c.Period {
		c.Elapsed -= c.Period
		n++
	}
	return n
}

// Reset restarts the clock with a new period.
func (c *Clock) Reset(period float64) {
	c.Period = period
	c.Elapsed = 0
}

// Remaining returns the time until the next firing.
func (c Clock) Remaining() float64 {
	if c.Halted {
		return 0
	}
	return c.Period - c.Elapsed
}
