package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/Dasch0/hivemind-mirror/components"
	"github.com/Dasch0/hivemind-mirror/grid"
)

// ColonyOutcome is the result of one colony clock firing.
type ColonyOutcome uint8

const (
	ColonySpawn   ColonyOutcome = iota // resource paid (or waived by cheat), one drone spawned
	ColonyCapped                       // spawn cap reached, nothing happened
	ColonyExtinct                      // resource was already empty; colony destroyed
)

// FireColony applies one spawn firing to the colony cell at p. A cell with
// resource left pays the drone cost (clamped at zero) and spawns. An empty
// cell destroys the colony unless cheat is set, in which case the drone is
// free.
func FireColony(g *grid.Grid, p grid.Point, cost uint32, cheat bool) ColonyOutcome {
	c, ok := g.At(p)
	if !ok {
		return ColonyExtinct
	}
	if c.Quantity > 0 {
		c.Take(cost)
		g.Set(p, c)
		return ColonySpawn
	}
	if cheat {
		return ColonySpawn
	}
	g.Set(p, grid.Cell{})
	return ColonyExtinct
}

// ColonyFiring reports one firing for the caller to act on after iteration.
type ColonyFiring struct {
	Entity    ecs.Entity
	Pos       grid.Point
	Identity  grid.Kind
	Outcome   ColonyOutcome
	Remaining uint32 // resource left in the cell
}

// ColonySystem advances colony spawn clocks.
type ColonySystem struct {
	filter    ecs.Filter4[components.Tile, components.Identity, components.Clock, components.Colony]
	cost      uint32
	maxDrones int
}

// NewColonySystem creates a colony system. maxDrones <= 0 disables the cap.
func NewColonySystem(w *ecs.World, cost uint32, maxDrones int) *ColonySystem {
	return &ColonySystem{
		filter:    *ecs.NewFilter4[components.Tile, components.Identity, components.Clock, components.Colony](w),
		cost:      cost,
		maxDrones: maxDrones,
	}
}

// Update ticks every colony clock by dt and appends the firings to dst.
// Extinct colonies have their clock halted; removing the entity and
// spawning drones is left to the caller since the world is locked while
// the query runs.
func (s *ColonySystem) Update(g *grid.Grid, dt float64, cheat bool, dst []ColonyFiring) []ColonyFiring {
	query := s.filter.Query()
	for query.Next() {
		tile, id, clock, colony := query.Get()
		for n := clock.Advance(dt); n > 0; n-- {
			f := ColonyFiring{Entity: query.Entity(), Pos: tile.Point, Identity: id.Kind}
			if s.maxDrones > 0 && colony.Spawned >= s.maxDrones {
				f.Outcome = ColonyCapped
			} else {
				f.Outcome = FireColony(g, tile.Point, s.cost, cheat)
			}
			if c, ok := g.At(tile.Point); ok {
				f.Remaining = c.Quantity
			}
			dst = append(dst, f)

			if f.Outcome == ColonySpawn {
				colony.Spawned++
			}
			if f.Outcome == ColonyExtinct {
				clock.Halted = true
				break
			}
		}
	}
	return dst
}
