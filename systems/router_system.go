package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/Dasch0/hivemind-mirror/components"
	"github.com/Dasch0/hivemind-mirror/grid"
)

// RouterReport is one router evaluation, tagged with the router's origin.
type RouterReport struct {
	Entity ecs.Entity
	Origin grid.Point
	Prev   RouterState
	Result StepResult
}

// RouterSystem advances router clocks and steps their state machines.
type RouterSystem struct {
	filter ecs.Filter3[components.Tile, components.Clock, Multivac]
	params RouterParams
}

// NewRouterSystem creates a router system.
func NewRouterSystem(w *ecs.World, params RouterParams) *RouterSystem {
	return &RouterSystem{
		filter: *ecs.NewFilter3[components.Tile, components.Clock, Multivac](w),
		params: params,
	}
}

// Update ticks router clocks and appends a report for every evaluation.
// The clock is reset to the delay of the new state after each step.
func (s *RouterSystem) Update(g *grid.Grid, dt float64, dst []RouterReport) []RouterReport {
	query := s.filter.Query()
	for query.Next() {
		tile, clock, mv := query.Get()
		if clock.Advance(dt) == 0 {
			continue
		}
		prev := mv.State
		res := mv.Step(g, s.params)
		clock.Reset(res.Delay)
		dst = append(dst, RouterReport{
			Entity: query.Entity(),
			Origin: tile.Point,
			Prev:   prev,
			Result: res,
		})
	}
	return dst
}
