package game

import (
	"log/slog"

	"github.com/Dasch0/hivemind-mirror/components"
	"github.com/Dasch0/hivemind-mirror/grid"
	"github.com/Dasch0/hivemind-mirror/systems"
)

// updateFeedback lays drone trails into the fields and applies gathering and
// depositing to the grid.
func (g *Game) updateFeedback() {
	limit := g.config().Colony.MaxResource

	query := g.droneFilter.Query()
	for query.Next() {
		pos, drone, state, _, id := query.Get()
		v := pos.Vec()
		g.fields.DepositTrail(v, *state, drone.Direction)

		p := grid.PointOf(v)
		switch *state {
		case components.Gathering:
			before, _ := g.grid.At(p)
			q, ok := systems.Gather(g.grid, p)
			if !ok {
				continue
			}
			c, _ := g.grid.At(p)
			g.emit(Gathered{Identity: id.Kind, Pos: p, Amount: before.Quantity - q})
			g.emit(CellChanged{Pos: p, Kind: c.Kind, Quantity: q})
		case components.Depositing:
			q, ok := systems.Deposit(g.grid, p, limit)
			if !ok {
				continue
			}
			c, _ := g.grid.At(p)
			g.emit(Deposited{Identity: id.Kind, Pos: p, Amount: 1})
			g.emit(CellChanged{Pos: p, Kind: c.Kind, Quantity: q})
		}
	}
}

// updateColonies fires colony spawn clocks. Entity changes are applied after
// the query finishes.
func (g *Game) updateColonies(dt float64) {
	g.colonyFirings = g.colonySys.Update(g.grid, dt, g.cheat, g.colonyFirings[:0])
	for _, f := range g.colonyFirings {
		switch f.Outcome {
		case systems.ColonySpawn:
			if _, err := g.spawnDrone(f.Pos, f.Identity); err != nil {
				slog.Error("failed to spawn drone", "error", err)
				continue
			}
			c, _ := g.grid.At(f.Pos)
			g.emit(CellChanged{Pos: f.Pos, Kind: c.Kind, Quantity: f.Remaining})
		case systems.ColonyExtinct:
			g.removeColony(f.Entity, f.Pos, f.Identity)
			g.emit(CellChanged{Pos: f.Pos})
		}
	}
}

// updateRouters steps every router whose clock fired and applies the results.
func (g *Game) updateRouters(dt float64) {
	g.routerReports = g.routerSys.Update(g.grid, dt, g.routerReports[:0])
	for _, r := range g.routerReports {
		res := r.Result
		if res.State.Phase != r.Prev.Phase {
			g.emit(RouterStateChanged{Origin: r.Origin, State: res.State})
		}
		for _, p := range res.Pings {
			g.emit(SearchPing{Pos: p})
		}
		if res.Outpost != nil {
			g.spawnOutpost(*res.Outpost)
			g.emit(OutpostCreated{Pos: *res.Outpost})
		}
		for _, w := range res.Wires {
			g.emit(WirePlaced{Pos: w.Pos, Connector: w.Connector, Delay: w.Delay})
		}
		if res.State.Phase == systems.PhaseError {
			slog.Debug("router error", "x", r.Origin.X, "y", r.Origin.Y, "delay", res.Delay)
		}
	}
}

// updateOutposts drains outposts and promotes spent ones into routers.
func (g *Game) updateOutposts(dt float64) {
	g.outpostFirings = g.outpostSys.Update(g.grid, dt, g.outpostFirings[:0])
	for _, f := range g.outpostFirings {
		c, _ := g.grid.At(f.Pos)
		switch f.Outcome {
		case systems.OutpostDrained, systems.OutpostExhausted:
			g.emit(CellChanged{Pos: f.Pos, Kind: c.Kind, Quantity: f.Remaining})
		case systems.OutpostPromoted:
			g.outpostMapper.Remove(f.Entity)
			g.spawnRouter(f.Pos)
		}
	}
}

// updateReload refills every placement meter below the maximum by one.
func (g *Game) updateReload(dt float64) {
	maxAmmo := g.config().Player.MaxAmmo
	for n := g.reload.Advance(dt); n > 0; n-- {
		for m := range g.ammo {
			if g.ammo[m] >= maxAmmo {
				continue
			}
			g.ammo[m]++
			g.emit(ResourceChanged{Meter: Meter(m), Value: g.ammo[m]})
		}
	}
}

// updateApocalypse spawns the first router once the countdown runs out.
func (g *Game) updateApocalypse(dt float64) {
	if g.apocalypse.Advance(dt) == 0 {
		return
	}
	g.apocalypse.Halted = true
	c := g.config().Derived.RouterCell
	g.spawnRouter(grid.Point{X: c.X, Y: c.Y})
}

// ApocalypseIn returns the seconds until the first router appears, or a
// negative value when it already appeared or never will.
func (g *Game) ApocalypseIn() float64 {
	if g.apocalypse.Halted {
		return -1
	}
	return g.apocalypse.Remaining()
}
