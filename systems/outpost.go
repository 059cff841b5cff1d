package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/Dasch0/hivemind-mirror/components"
	"github.com/Dasch0/hivemind-mirror/grid"
)

// OutpostOutcome is the result of one outpost gather firing.
type OutpostOutcome uint8

const (
	OutpostDrained   OutpostOutcome = iota // took up to the gather rate
	OutpostExhausted                       // quantity hit zero; resource flags cleared
	OutpostPromoted                        // no resource left; cell became a router
	OutpostMissing                         // cell outside the grid
)

// DrainOutpost applies one gather firing to the outpost cell at p.
// It returns the outcome and the amount taken.
func DrainOutpost(g *grid.Grid, p grid.Point, rate uint32) (OutpostOutcome, uint32) {
	c, ok := g.At(p)
	if !ok {
		return OutpostMissing, 0
	}
	switch {
	case !c.Kind.Intersects(grid.RouterFood):
		// Hard assignment drops the outpost flag along with everything else.
		g.Set(p, grid.NewCell(grid.Router, 0))
		return OutpostPromoted, 0
	case c.Quantity == 0:
		c.Kind &^= grid.RouterFood
		g.Set(p, c)
		return OutpostExhausted, 0
	default:
		taken := c.Take(rate)
		g.Set(p, c)
		return OutpostDrained, taken
	}
}

// OutpostFiring reports one outpost firing.
type OutpostFiring struct {
	Entity    ecs.Entity
	Pos       grid.Point
	Outcome   OutpostOutcome
	Taken     uint32
	Remaining uint32
}

// OutpostSystem advances outpost gather clocks.
type OutpostSystem struct {
	filter ecs.Filter3[components.Tile, components.Clock, components.Outpost]
	rate   uint32
}

// NewOutpostSystem creates an outpost system draining rate per firing.
func NewOutpostSystem(w *ecs.World, rate uint32) *OutpostSystem {
	return &OutpostSystem{
		filter: *ecs.NewFilter3[components.Tile, components.Clock, components.Outpost](w),
		rate:   rate,
	}
}

// Update ticks every outpost clock by dt and appends the firings to dst.
// Promoted outposts must be removed and replaced by a router by the caller.
func (s *OutpostSystem) Update(g *grid.Grid, dt float64, dst []OutpostFiring) []OutpostFiring {
	query := s.filter.Query()
	for query.Next() {
		tile, clock, outpost := query.Get()
		for n := clock.Advance(dt); n > 0; n-- {
			outcome, taken := DrainOutpost(g, tile.Point, s.rate)
			if outcome == OutpostMissing {
				break
			}
			outpost.Drained += taken
			c, _ := g.At(tile.Point)
			dst = append(dst, OutpostFiring{
				Entity:    query.Entity(),
				Pos:       tile.Point,
				Outcome:   outcome,
				Taken:     taken,
				Remaining: c.Quantity,
			})
			if outcome == OutpostPromoted {
				clock.Halted = true
				break
			}
		}
	}
	return dst
}
