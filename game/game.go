// Package game wires the grid, fields and systems into one simulation that
// advances in fixed phases per Tick.
package game

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/mlange-42/ark/ecs"

	"github.com/Dasch0/hivemind-mirror/components"
	"github.com/Dasch0/hivemind-mirror/config"
	"github.com/Dasch0/hivemind-mirror/grid"
	"github.com/Dasch0/hivemind-mirror/parallel"
	"github.com/Dasch0/hivemind-mirror/systems"
	"github.com/Dasch0/hivemind-mirror/telemetry"
)

// Options configures a Game beyond the simulation config.
type Options struct {
	Seed           int64
	LogStats       bool                        // log stats windows and bookmarks via slog
	StatsWindowSec float64                     // 0 = use config
	OutputDir      string                      // CSV, config and final map output (empty = disabled)
	EventLogPath   string                      // zstd JSONL event log (empty = disabled)
	IndexDBPath    string                      // SQLite run index (empty = disabled)
	RunID          string                      // run key in the index (empty = derived from seed)
	StatsCallback  func(telemetry.WindowStats) // called on every flushed window
	EventSink      EventSink                   // receives each tick's events (optional)
}

// Game holds the complete simulation state.
type Game struct {
	cfg  *config.Config
	grid *grid.Grid

	world *ecs.World

	// Drones
	droneMapper *ecs.Map5[
		components.Position,
		components.Drone,
		components.DroneState,
		components.Colonist,
		components.Identity,
	]
	droneFilter *ecs.Filter5[
		components.Position,
		components.Drone,
		components.DroneState,
		components.Colonist,
		components.Identity,
	]
	posMap   *ecs.Map1[components.Position]
	droneMap *ecs.Map1[components.Drone]
	stateMap *ecs.Map1[components.DroneState]

	// Structures
	colonyMapper  *ecs.Map4[components.Tile, components.Identity, components.Clock, components.Colony]
	outpostMapper *ecs.Map3[components.Tile, components.Clock, components.Outpost]
	routerMapper  *ecs.Map3[components.Tile, components.Clock, systems.Multivac]
	colonyFilter  *ecs.Filter2[components.Tile, components.Colony]
	outpostFilter *ecs.Filter1[components.Outpost]
	routerFilter  *ecs.Filter1[systems.Multivac]

	// Systems
	fields      *systems.Fields
	droneParams systems.DroneParams
	colonySys   *systems.ColonySystem
	routerSys   *systems.RouterSystem
	outpostSys  *systems.OutpostSystem
	registry    *systems.SystemRegistry

	// Parallel drone evaluation
	pool       *parallel.Pool
	rows       rowRunner
	drones     droneBuffers
	droneChunk int

	// Scratch for system reports
	colonyFirings  []systems.ColonyFiring
	routerReports  []systems.RouterReport
	outpostFirings []systems.OutpostFiring

	// Player state
	ammo       [meterCount]int
	reload     components.Clock
	cheat      bool
	speed      float64
	apocalypse components.Clock

	// Inbound commands
	cmdMu    sync.Mutex
	commands []Command

	// Outbound events
	events    []Event
	eventSink EventSink

	// State
	seed     int64
	tick     int64
	simTime  float64 // total simulated seconds
	gameTime float64 // survival seconds, frozen on game over
	gameOver bool

	// Telemetry
	collector        *telemetry.Collector
	perfCollector    *telemetry.PerfCollector
	bookmarkDetector *telemetry.BookmarkDetector
	outputManager    *telemetry.OutputManager
	eventLog         *telemetry.EventLog
	indexDB          *telemetry.IndexDB
	statsCallback    func(telemetry.WindowStats)
	logStats         bool
	loggedErrors     map[string]bool
}

// New builds a game over world using cfg. The grid must match the configured
// world size; it is owned by the game from now on.
func New(cfg *config.Config, world *grid.Grid, opts Options) (*Game, error) {
	if world == nil {
		var err error
		if world, err = grid.New(cfg.World.Width, cfg.World.Height); err != nil {
			return nil, err
		}
	}
	if world.Width() != cfg.World.Width || world.Height() != cfg.World.Height {
		return nil, fmt.Errorf("%w: grid is %dx%d, config is %dx%d",
			grid.ErrDimensionMismatch, world.Width(), world.Height(), cfg.World.Width, cfg.World.Height)
	}

	w := ecs.NewWorld()
	g := &Game{
		cfg:   cfg,
		grid:  world,
		world: w,

		droneMapper: ecs.NewMap5[
			components.Position,
			components.Drone,
			components.DroneState,
			components.Colonist,
			components.Identity,
		](w),
		droneFilter: ecs.NewFilter5[
			components.Position,
			components.Drone,
			components.DroneState,
			components.Colonist,
			components.Identity,
		](w),
		posMap:   ecs.NewMap1[components.Position](w),
		droneMap: ecs.NewMap1[components.Drone](w),
		stateMap: ecs.NewMap1[components.DroneState](w),

		colonyMapper:  ecs.NewMap4[components.Tile, components.Identity, components.Clock, components.Colony](w),
		outpostMapper: ecs.NewMap3[components.Tile, components.Clock, components.Outpost](w),
		routerMapper:  ecs.NewMap3[components.Tile, components.Clock, systems.Multivac](w),
		colonyFilter:  ecs.NewFilter2[components.Tile, components.Colony](w),
		outpostFilter: ecs.NewFilter1[components.Outpost](w),
		routerFilter:  ecs.NewFilter1[systems.Multivac](w),

		fields:      systems.NewFields(world.Width(), world.Height(), cfg.Fields),
		droneParams: systems.DroneParamsFromConfig(cfg.Drone),
		colonySys:   systems.NewColonySystem(w, cfg.Colony.DroneCost, cfg.Colony.MaxDrones),
		routerSys:   systems.NewRouterSystem(w, systems.RouterParamsFromConfig(cfg.Router)),
		outpostSys:  systems.NewOutpostSystem(w, cfg.Router.GatherRate),
		registry:    systems.NewSystemRegistry(),

		pool:       parallel.NewPool(cfg.Parallel.Workers, cfg.Parallel.Threshold),
		droneChunk: max(cfg.Parallel.DroneChunk, 1),

		reload:     components.NewClock(cfg.Player.ReloadPeriod),
		apocalypse: components.NewClock(cfg.Router.StartDelay),

		seed:      opts.Seed,
		eventSink: opts.EventSink,
		logStats:  opts.LogStats,

		statsCallback: opts.StatsCallback,
	}
	for i := range g.ammo {
		g.ammo[i] = cfg.Player.MaxAmmo
	}
	g.rows = rowRunner{pool: g.pool, chunk: cfg.Parallel.RowChunk}
	g.setSpeed(1)
	if cfg.Router.StartDelay < 0 {
		g.apocalypse.Halted = true
	}

	if err := g.openTelemetry(opts); err != nil {
		g.pool.Stop()
		return nil, err
	}

	if err := g.spawnColonies(); err != nil {
		g.Close()
		return nil, err
	}

	slog.Info("game created",
		"width", world.Width(),
		"height", world.Height(),
		"seed", opts.Seed,
		"colonies", len(cfg.Colony.Locations),
		"workers", g.pool.Workers(),
	)
	return g, nil
}

// Close stops the worker pool and flushes every telemetry output.
func (g *Game) Close() error {
	g.pool.Stop()
	return g.closeTelemetry()
}

// Tick advances the simulation by elapsed seconds, scaled by the current
// speed. Commands are applied even while paused.
func (g *Game) Tick(elapsed float64) {
	g.events = g.events[:0]
	g.perfCollector.StartTick()

	g.perfCollector.StartPhase(telemetry.PhaseCommands)
	g.applyCommands()

	dt := elapsed * g.speed
	if dt <= 0 {
		g.perfCollector.EndTick()
		g.publishEvents()
		return
	}
	g.tick++
	g.simTime += dt

	g.perfCollector.StartPhase(telemetry.PhaseClassify)
	g.fields.Classify(g.grid)

	g.perfCollector.StartPhase(telemetry.PhaseDiffuse)
	g.fields.Update(dt, g.rows)

	g.perfCollector.StartPhase(telemetry.PhaseDrones)
	g.updateDrones(dt)

	g.perfCollector.StartPhase(telemetry.PhaseFeedback)
	g.updateFeedback()

	g.perfCollector.StartPhase(telemetry.PhaseClocks)
	g.updateColonies(dt)
	g.updateRouters(dt)
	g.updateOutposts(dt)
	g.updateReload(dt)
	g.updateApocalypse(dt)
	if !g.gameOver {
		g.gameTime += dt
	}

	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	g.flushTelemetry()

	g.perfCollector.EndTick()
	g.publishEvents()
}

// Grid returns the world grid. Callers must not modify it while a tick runs.
func (g *Game) Grid() *grid.Grid { return g.grid }

// Fields returns the simulation fields.
func (g *Game) Fields() *systems.Fields { return g.fields }

// Registry returns the tick phase registry.
func (g *Game) Registry() *systems.SystemRegistry { return g.registry }

// TickCount returns the number of simulated ticks.
func (g *Game) TickCount() int64 { return g.tick }

// SimTime returns the total simulated seconds.
func (g *Game) SimTime() float64 { return g.simTime }

// GameTime returns the survival time in seconds.
func (g *Game) GameTime() float64 { return g.gameTime }

// GameOver reports whether a colony has died.
func (g *Game) GameOver() bool { return g.gameOver }

// Cheat reports whether cheat mode is on.
func (g *Game) Cheat() bool { return g.cheat }

// Speed returns the current time-step multiplier.
func (g *Game) Speed() float64 { return g.speed }

// Ammo returns the current value of a placement meter.
func (g *Game) Ammo(m Meter) int {
	if m >= meterCount {
		return 0
	}
	return g.ammo[m]
}

// DroneCount returns the number of drones.
func (g *Game) DroneCount() int {
	n := 0
	query := g.droneFilter.Query()
	for query.Next() {
		n++
	}
	return n
}

// ColonyCount returns the number of live colonies.
func (g *Game) ColonyCount() int {
	n := 0
	query := g.colonyFilter.Query()
	for query.Next() {
		n++
	}
	return n
}

// RouterCount returns the number of routers.
func (g *Game) RouterCount() int {
	n := 0
	query := g.routerFilter.Query()
	for query.Next() {
		n++
	}
	return n
}

// OutpostCount returns the number of outposts being drained.
func (g *Game) OutpostCount() int {
	n := 0
	query := g.outpostFilter.Query()
	for query.Next() {
		n++
	}
	return n
}

func (g *Game) config() *config.Config { return g.cfg }
