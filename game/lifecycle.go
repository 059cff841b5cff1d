package game

import (
	"fmt"
	"log/slog"

	"github.com/mlange-42/ark/ecs"

	"github.com/Dasch0/hivemind-mirror/components"
	"github.com/Dasch0/hivemind-mirror/config"
	"github.com/Dasch0/hivemind-mirror/grid"
	"github.com/Dasch0/hivemind-mirror/systems"
)

// LoadWorld returns the starting grid for cfg. An empty path gives an empty
// world; otherwise the map file is loaded and terrain defaults are applied.
func LoadWorld(cfg *config.Config, path string) (*grid.Grid, error) {
	if path == "" {
		g, err := grid.New(cfg.World.Width, cfg.World.Height)
		if err != nil {
			return nil, err
		}
		if cfg.World.BorderTrees {
			g.ApplyTerrainDefaults(cfg.World.FlowerMax, cfg.World.TreeMax, true)
		}
		return g, nil
	}
	g, err := grid.LoadFile(path, cfg.World.Width, cfg.World.Height)
	if err != nil {
		return nil, fmt.Errorf("loading map %s: %w", path, err)
	}
	g.ApplyTerrainDefaults(cfg.World.FlowerMax, cfg.World.TreeMax, cfg.World.BorderTrees)
	return g, nil
}

// spawnColonies flags every configured colony cell, fills it with the
// initial resource and spawns its starting drones.
func (g *Game) spawnColonies() error {
	cfg := g.config()
	if len(cfg.Derived.ColonyCells) != len(cfg.Colony.Locations) {
		cfg.ComputeDerived()
	}
	for i, loc := range cfg.Colony.Locations {
		kind, err := grid.ParseIdentity(loc.Identity)
		if err != nil {
			return fmt.Errorf("colony %d: %w", i, err)
		}
		c := cfg.Derived.ColonyCells[i]
		p := grid.Point{X: c.X, Y: c.Y}
		if _, err := g.spawnColony(p, kind); err != nil {
			return err
		}
		for range cfg.Colony.Starting {
			if _, err := g.spawnDrone(p, kind); err != nil {
				return err
			}
		}
	}
	return nil
}

// spawnColony creates a colony entity at p with a repeating spawn clock.
func (g *Game) spawnColony(p grid.Point, kind grid.Kind) (ecs.Entity, error) {
	id, err := components.NewIdentity(kind)
	if err != nil {
		return ecs.Entity{}, fmt.Errorf("colony at %s: %w", p, err)
	}
	cfg := g.config()
	if !g.grid.Update(p, func(c *grid.Cell) {
		c.Kind |= id.Kind
		c.SetQuantity(cfg.Colony.InitialResource)
	}) {
		return ecs.Entity{}, fmt.Errorf("colony at %s: outside the %dx%d world", p, g.grid.Width(), g.grid.Height())
	}

	tile := components.Tile{Point: p}
	clock := components.NewClock(cfg.Colony.SpawnRate)
	colony := components.Colony{}
	e := g.colonyMapper.NewEntity(&tile, &id, &clock, &colony)

	slog.Debug("colony created", "identity", id.Kind.String(), "x", p.X, "y", p.Y)
	return e, nil
}

// spawnDrone creates an exploring drone on the colony cell at p.
func (g *Game) spawnDrone(p grid.Point, kind grid.Kind) (ecs.Entity, error) {
	id, err := components.NewIdentity(kind)
	if err != nil {
		return ecs.Entity{}, fmt.Errorf("drone at %s: %w", p, err)
	}
	pos := components.PositionOf(p.Vec())
	drone := components.Drone{}
	state := components.Exploring
	colonist := components.Colonist{Home: p.Center()}
	e := g.droneMapper.NewEntity(&pos, &drone, &state, &colonist, &id)

	g.emit(DroneSpawned{Identity: id.Kind, Pos: p})
	return e, nil
}

// spawnRouter flags p as a router, lays its wire stubs and starts its clock.
func (g *Game) spawnRouter(p grid.Point) {
	if !g.grid.InBounds(p) {
		return
	}
	stubs := systems.PlaceRouter(g.grid, p)

	tile := components.Tile{Point: p}
	clock := components.NewClock(g.config().Router.RouteClock)
	mv := systems.NewMultivac(p, g.grid)
	g.routerMapper.NewEntity(&tile, &clock, &mv)

	g.emit(RouterSpawned{Pos: p})
	for _, w := range stubs {
		g.emit(WirePlaced{Pos: w.Pos, Connector: w.Connector, Delay: w.Delay})
	}
	slog.Info("router spawned", "x", p.X, "y", p.Y, "tick", g.tick)
}

// spawnOutpost starts draining the resource cell at p.
func (g *Game) spawnOutpost(p grid.Point) {
	tile := components.Tile{Point: p}
	clock := components.NewClock(g.config().Router.GatherClock)
	outpost := components.Outpost{}
	g.outpostMapper.NewEntity(&tile, &clock, &outpost)
}

// removeColony destroys an extinct colony. The first extinction ends the game.
func (g *Game) removeColony(e ecs.Entity, p grid.Point, kind grid.Kind) {
	g.colonyMapper.Remove(e)
	g.emit(ColonyExtinct{Identity: kind, Pos: p})
	slog.Info("colony extinct", "identity", kind.String(), "x", p.X, "y", p.Y, "tick", g.tick, "game_time", g.gameTime)

	if g.gameOver {
		return
	}
	g.gameOver = true
	g.emit(GameOver{Time: g.gameTime})
	slog.Info("game over", "game_time", g.gameTime, "tick", g.tick)
}
