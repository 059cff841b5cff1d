package game

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/Dasch0/hivemind-mirror/config"
	"github.com/Dasch0/hivemind-mirror/grid"
	"github.com/Dasch0/hivemind-mirror/inspector"
	"github.com/Dasch0/hivemind-mirror/telemetry"
)

// testConfig returns a 10x10 world with one colony at (2,2) holding 9 units,
// a drone cost of 9 and no starting drones. Routers never appear.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	cfg.World.Width, cfg.World.Height = 10, 10
	cfg.World.BorderTrees = false
	cfg.Physics.DT = 0.1
	cfg.Colony.Starting = 0
	cfg.Colony.SpawnRate = 1
	cfg.Colony.DroneCost = 9
	cfg.Colony.InitialResource = 9
	cfg.Colony.Locations = []config.ColonyLocation{{Identity: "y", X: 0.25, Y: 0.25}}
	cfg.Router.StartDelay = -1
	cfg.Parallel.Workers = 2
	cfg.ComputeDerived()
	return cfg
}

func newTestGame(t *testing.T, cfg *config.Config, world *grid.Grid, opts Options) *Game {
	t.Helper()
	g, err := New(cfg, world, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { g.Close() })
	return g
}

func countEvents[T Event](events []Event) int {
	n := 0
	for _, e := range events {
		if _, ok := e.(T); ok {
			n++
		}
	}
	return n
}

func TestNew_ColonySetup(t *testing.T) {
	cfg := testConfig(t)
	cfg.Colony.Starting = 3
	g := newTestGame(t, cfg, nil, Options{Seed: 1})

	c, ok := g.CellAt(grid.Point{X: 2, Y: 2})
	if !ok {
		t.Fatal("colony cell out of bounds")
	}
	if c.Kind != grid.ColonyY {
		t.Errorf("colony kind = %v, want %v", c.Kind, grid.ColonyY)
	}
	if c.Quantity != 9 {
		t.Errorf("colony quantity = %d, want 9", c.Quantity)
	}
	if g.ColonyCount() != 1 {
		t.Errorf("colonies = %d, want 1", g.ColonyCount())
	}
	if g.DroneCount() != 3 {
		t.Errorf("drones = %d, want 3", g.DroneCount())
	}

	snap := g.Snapshot()
	for _, d := range snap.Drones {
		if d.X != 2 || d.Y != 2 {
			t.Errorf("drone at (%v,%v), want (2,2)", d.X, d.Y)
		}
		if d.State != "Exploring" {
			t.Errorf("drone state = %s, want Exploring", d.State)
		}
	}
	if got := countEvents[DroneSpawned](g.DrainEvents()); got != 3 {
		t.Errorf("spawn events = %d, want 3", got)
	}
}

func TestNew_Errors(t *testing.T) {
	cfg := testConfig(t)
	if _, err := New(cfg, grid.MustNew(5, 5), Options{}); !errors.Is(err, grid.ErrDimensionMismatch) {
		t.Errorf("mismatched grid: err = %v, want ErrDimensionMismatch", err)
	}

	cfg = testConfig(t)
	cfg.Colony.Locations[0].Identity = "x"
	if _, err := New(cfg, nil, Options{}); !errors.Is(err, grid.ErrInvalidIdentity) {
		t.Errorf("bad identity: err = %v, want ErrInvalidIdentity", err)
	}
}

func TestColonyDepletion(t *testing.T) {
	g := newTestGame(t, testConfig(t), nil, Options{Seed: 1})
	g.DrainEvents()
	p := grid.Point{X: 2, Y: 2}

	// First firing pays the whole resource and spawns one drone.
	g.Tick(1)
	if g.DroneCount() != 1 {
		t.Fatalf("drones after first firing = %d, want 1", g.DroneCount())
	}
	if c, _ := g.CellAt(p); c.Quantity != 0 || c.Kind != grid.ColonyY {
		t.Fatalf("colony cell = %+v, want empty colony", c)
	}
	if g.GameOver() {
		t.Fatal("game over after first firing")
	}

	// Second firing finds nothing left.
	g.Tick(1)
	if g.ColonyCount() != 0 {
		t.Errorf("colonies = %d, want 0", g.ColonyCount())
	}
	if c, _ := g.CellAt(p); !c.Empty() {
		t.Errorf("colony cell = %+v, want cleared", c)
	}
	if !g.GameOver() {
		t.Error("expected game over")
	}
	if g.DroneCount() != 1 {
		t.Errorf("drones = %d, want 1 (drones outlive their colony)", g.DroneCount())
	}

	events := g.DrainEvents()
	if countEvents[ColonyExtinct](events) != 1 || countEvents[GameOver](events) != 1 {
		t.Errorf("want one ColonyExtinct and one GameOver, got %d and %d",
			countEvents[ColonyExtinct](events), countEvents[GameOver](events))
	}

	// The survival timer stops on game over.
	frozen := g.GameTime()
	g.Tick(1)
	if g.GameTime() != frozen {
		t.Errorf("game time moved from %v to %v after game over", frozen, g.GameTime())
	}
	if g.SimTime() != 3 {
		t.Errorf("sim time = %v, want 3", g.SimTime())
	}
}

func TestColonyDepletion_Cheat(t *testing.T) {
	g := newTestGame(t, testConfig(t), nil, Options{Seed: 1})
	g.Submit(ToggleCheat{})

	for range 3 {
		g.Tick(1)
	}
	if g.GameOver() {
		t.Error("cheat mode should keep the colony alive")
	}
	if g.ColonyCount() != 1 {
		t.Errorf("colonies = %d, want 1", g.ColonyCount())
	}
	if g.DroneCount() != 3 {
		t.Errorf("drones = %d, want 3", g.DroneCount())
	}
}

func TestPlacement(t *testing.T) {
	cfg := testConfig(t)
	g := newTestGame(t, cfg, nil, Options{})
	g.DrainEvents()

	p := grid.Point{X: 5, Y: 5}
	g.Submit(Place{Pos: p, Action: AddFlower})
	g.Tick(0)

	c, _ := g.CellAt(p)
	if c.Kind != grid.Flower || c.Quantity != cfg.World.FlowerMax {
		t.Errorf("placed cell = %+v, want flower with %d", c, cfg.World.FlowerMax)
	}
	if g.Ammo(MeterFlower) != cfg.Player.MaxAmmo-1 {
		t.Errorf("flower ammo = %d, want %d", g.Ammo(MeterFlower), cfg.Player.MaxAmmo-1)
	}
	events := g.DrainEvents()
	if countEvents[ResourceChanged](events) != 1 || countEvents[Placed](events) != 1 {
		t.Errorf("unexpected events %v", events)
	}

	// Occupied cells reject additions.
	g.Submit(Place{Pos: p, Action: AddTree})
	g.Tick(0)
	if c, _ := g.CellAt(p); c.Kind != grid.Flower {
		t.Errorf("tree placed over flower: %+v", c)
	}
	if g.Ammo(MeterTree) != cfg.Player.MaxAmmo {
		t.Errorf("rejected placement spent ammo")
	}

	// Remove clears the cell entirely.
	g.Submit(Place{Pos: p, Action: Remove})
	g.Tick(0)
	if c, _ := g.CellAt(p); !c.Empty() {
		t.Errorf("removed cell = %+v, want empty", c)
	}
	if g.Ammo(MeterDelete) != cfg.Player.MaxAmmo-1 {
		t.Errorf("delete ammo = %d", g.Ammo(MeterDelete))
	}

	// Colonies cannot be removed.
	g.Submit(Place{Pos: grid.Point{X: 2, Y: 2}, Action: Remove})
	g.Tick(0)
	if c, _ := g.CellAt(grid.Point{X: 2, Y: 2}); c.Kind != grid.ColonyY {
		t.Errorf("colony removed: %+v", c)
	}

	if g.TickCount() != 0 {
		t.Errorf("zero elapsed advanced the simulation to tick %d", g.TickCount())
	}
}

func TestPlacement_AmmoAndReload(t *testing.T) {
	cfg := testConfig(t)
	cfg.Player.MaxAmmo = 2
	cfg.Player.ReloadPeriod = 10
	cfg.Colony.InitialResource = 1000
	g := newTestGame(t, cfg, nil, Options{})

	g.Submit(
		Place{Pos: grid.Point{X: 5, Y: 5}, Action: AddTree},
		Place{Pos: grid.Point{X: 6, Y: 5}, Action: AddTree},
		Place{Pos: grid.Point{X: 7, Y: 5}, Action: AddTree},
	)
	g.Tick(0)
	if g.Ammo(MeterTree) != 0 {
		t.Fatalf("tree ammo = %d, want 0", g.Ammo(MeterTree))
	}
	if c, _ := g.CellAt(grid.Point{X: 7, Y: 5}); !c.Empty() {
		t.Errorf("placement without ammo succeeded: %+v", c)
	}

	// Cheat mode does not spend ammo, but still needs some.
	g.Submit(ToggleCheat{}, Place{Pos: grid.Point{X: 7, Y: 5}, Action: AddTree})
	g.Tick(0)
	if c, _ := g.CellAt(grid.Point{X: 7, Y: 5}); !c.Empty() {
		t.Errorf("cheat placement without ammo succeeded: %+v", c)
	}
	g.Submit(Place{Pos: grid.Point{X: 7, Y: 5}, Action: AddFlower})
	g.Tick(0)
	if g.Ammo(MeterFlower) != 2 {
		t.Errorf("cheat placement spent ammo: %d", g.Ammo(MeterFlower))
	}

	g.Tick(10)
	if g.Ammo(MeterTree) != 1 {
		t.Errorf("tree ammo after one reload = %d, want 1", g.Ammo(MeterTree))
	}
	g.Tick(10)
	g.Tick(10)
	if g.Ammo(MeterTree) != 2 {
		t.Errorf("tree ammo = %d, want capped at 2", g.Ammo(MeterTree))
	}
}

func TestSpeed(t *testing.T) {
	cfg := testConfig(t)
	cfg.Colony.InitialResource = 1000
	g := newTestGame(t, cfg, nil, Options{})

	if g.Speed() != 1 {
		t.Fatalf("initial speed = %v, want 1", g.Speed())
	}

	g.Submit(ToggleSpeed{})
	g.Tick(1)
	if g.Speed() != 0 || g.TickCount() != 0 || g.GameTime() != 0 {
		t.Errorf("paused tick advanced: speed=%v tick=%d time=%v", g.Speed(), g.TickCount(), g.GameTime())
	}

	g.Submit(ToggleSpeed{})
	g.Tick(1)
	if g.Speed() != 1 || g.TickCount() != 1 {
		t.Errorf("resume failed: speed=%v tick=%d", g.Speed(), g.TickCount())
	}

	g.Submit(CycleSpeed{})
	g.Tick(0.5)
	if g.Speed() != 2 {
		t.Errorf("cycled speed = %v, want 2", g.Speed())
	}
	if g.SimTime() != 2 {
		t.Errorf("sim time = %v, want 2", g.SimTime())
	}

	g.Submit(SetSpeed{Multiplier: -3})
	g.Tick(0)
	if g.Speed() != 0 {
		t.Errorf("negative speed = %v, want 0", g.Speed())
	}
}

func TestRouterNetwork(t *testing.T) {
	cfg := testConfig(t)
	cfg.Colony.Locations = nil
	cfg.Router.StartDelay = 0
	cfg.Router.X, cfg.Router.Y = 0.5, 0.5
	cfg.Router.RouteClock = 0.1
	cfg.Router.GatherClock = 1
	cfg.Router.GatherRate = 50
	cfg.Router.Delays = config.RouterDelays{Init: 0.1, Search: 0.1, RouteFound: 0, Route: 0.1, Stopped: 50, Error: 50}
	cfg.ComputeDerived()

	world := grid.MustNew(10, 10)
	food := grid.Point{X: 5, Y: 8}
	world.Set(food, grid.NewCell(grid.Flower, 100))

	g := newTestGame(t, cfg, world, Options{})

	var events []Event
	for range 200 {
		g.Tick(0.1)
		events = append(events, g.DrainEvents()...)
	}

	origin := grid.Point{X: 5, Y: 5}
	if k := g.Grid().KindAt(origin); !k.Intersects(grid.Router) {
		t.Errorf("origin kind = %v, want router", k)
	}
	for _, p := range []grid.Point{{X: 5, Y: 6}, {X: 5, Y: 7}} {
		if k := g.Grid().KindAt(p); !k.Intersects(grid.Wire) {
			t.Errorf("kind at %v = %v, want wire", p, k)
		}
	}
	if k := g.Grid().KindAt(food); k != grid.Router {
		t.Errorf("drained outpost kind = %v, want router", k)
	}
	if g.RouterCount() != 2 {
		t.Errorf("routers = %d, want 2", g.RouterCount())
	}
	if g.OutpostCount() != 0 {
		t.Errorf("outposts = %d, want 0", g.OutpostCount())
	}
	if countEvents[OutpostCreated](events) != 1 {
		t.Errorf("outpost events = %d, want 1", countEvents[OutpostCreated](events))
	}
	if countEvents[RouterSpawned](events) != 2 {
		t.Errorf("router events = %d, want 2", countEvents[RouterSpawned](events))
	}
	if countEvents[SearchPing](events) == 0 {
		t.Error("expected search pings")
	}
}

func TestApocalypse(t *testing.T) {
	cfg := testConfig(t)
	cfg.Colony.InitialResource = 1000
	cfg.Router.StartDelay = 2
	cfg.ComputeDerived()
	g := newTestGame(t, cfg, nil, Options{})

	g.Tick(1)
	if g.RouterCount() != 0 {
		t.Fatal("router appeared before the countdown ended")
	}
	if got := g.ApocalypseIn(); got != 1 {
		t.Errorf("countdown = %v, want 1", got)
	}
	g.DrainEvents()

	g.Tick(1)
	if g.RouterCount() != 1 {
		t.Fatalf("routers = %d, want 1", g.RouterCount())
	}
	events := g.DrainEvents()
	if countEvents[RouterSpawned](events) != 1 {
		t.Errorf("router events = %d, want 1", countEvents[RouterSpawned](events))
	}
	if got := countEvents[WirePlaced](events); got != 4 {
		t.Errorf("wire stubs = %d, want 4", got)
	}
	if g.ApocalypseIn() >= 0 {
		t.Error("countdown should be over")
	}

	g.Tick(100)
	if g.RouterCount() != 1 {
		t.Errorf("apocalypse fired twice: %d routers", g.RouterCount())
	}
}

type recordingSink struct {
	ticks  []int64
	events int
}

func (s *recordingSink) Publish(tick int64, events []Event) {
	s.ticks = append(s.ticks, tick)
	s.events += len(events)
}

func TestEventSink(t *testing.T) {
	sink := &recordingSink{}
	g := newTestGame(t, testConfig(t), nil, Options{EventSink: sink})
	g.Tick(1)
	if len(sink.ticks) != 1 || sink.ticks[0] != 1 {
		t.Errorf("published ticks = %v, want [1]", sink.ticks)
	}
	if sink.events == 0 {
		t.Error("expected events to be published")
	}
}

func TestDeterminism(t *testing.T) {
	run := func(workers int) Snapshot {
		cfg := testConfig(t)
		cfg.Colony.Starting = 40
		cfg.Colony.InitialResource = 1000
		cfg.Parallel.Workers = workers
		cfg.Parallel.Threshold = 1
		cfg.Parallel.DroneChunk = 8

		world := grid.MustNew(10, 10)
		for x := 6; x < 9; x++ {
			world.Set(grid.Point{X: x, Y: 7}, grid.NewCell(grid.Flower, 50))
		}
		world.Set(grid.Point{X: 5, Y: 4}, grid.NewCell(grid.Tree, 50))

		g := newTestGame(t, cfg, world, Options{Seed: 42})
		for range 100 {
			g.Tick(0.1)
		}
		return g.Snapshot()
	}

	a, b := run(1), run(4)
	if !reflect.DeepEqual(a, b) {
		t.Error("snapshots differ between serial and parallel runs")
	}
}

func TestTelemetryOutputs(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)
	cfg.Colony.InitialResource = 1000
	cfg.Colony.Starting = 5

	var windows []telemetry.WindowStats
	g, err := New(cfg, nil, Options{
		Seed:           7,
		StatsWindowSec: 1,
		OutputDir:      filepath.Join(dir, "out"),
		EventLogPath:   filepath.Join(dir, "events.jsonl.zst"),
		IndexDBPath:    filepath.Join(dir, "index.sqlite"),
		StatsCallback:  func(s telemetry.WindowStats) { windows = append(windows, s) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for range 25 {
		g.Tick(0.1)
	}
	if err := g.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if len(windows) != 2 {
		t.Fatalf("windows = %d, want 2", len(windows))
	}
	if windows[0].Drones < 5 {
		t.Errorf("first window drones = %d, want at least 5", windows[0].Drones)
	}
	if windows[0].Colonies != 1 {
		t.Errorf("first window colonies = %d, want 1", windows[0].Colonies)
	}

	for _, name := range []string{
		filepath.Join("out", "telemetry.csv"),
		filepath.Join("out", "config.yaml"),
		filepath.Join("out", "map.yaml.zst"),
		"events.jsonl.zst",
		"index.sqlite",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}
}

func TestLoadWorld(t *testing.T) {
	cfg := testConfig(t)
	cfg.World.BorderTrees = true

	g, err := LoadWorld(cfg, "")
	if err != nil {
		t.Fatalf("LoadWorld: %v", err)
	}
	if k := g.KindAt(grid.Point{X: 0, Y: 4}); k != grid.Tree {
		t.Errorf("border kind = %v, want tree", k)
	}
	if k := g.KindAt(grid.Point{X: 4, Y: 4}); !k.IsEmpty() {
		t.Errorf("interior kind = %v, want empty", k)
	}

	path := filepath.Join(t.TempDir(), "map.yaml")
	src := grid.MustNew(10, 10)
	src.Set(grid.Point{X: 3, Y: 3}, grid.NewCell(grid.Flower, 0))
	if err := src.SaveFile(path); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	g, err = LoadWorld(cfg, path)
	if err != nil {
		t.Fatalf("LoadWorld: %v", err)
	}
	if c, _ := g.At(grid.Point{X: 3, Y: 3}); c.Quantity != cfg.World.FlowerMax {
		t.Errorf("loaded flower quantity = %d, want %d", c.Quantity, cfg.World.FlowerMax)
	}

	cfg.World.Width = 12
	if _, err := LoadWorld(cfg, path); !errors.Is(err, grid.ErrDimensionMismatch) {
		t.Errorf("err = %v, want ErrDimensionMismatch", err)
	}
}

func TestRegistryMatchesPerfPhases(t *testing.T) {
	g := newTestGame(t, testConfig(t), nil, Options{})
	ids := g.Registry().IDs()
	if len(ids) != len(telemetry.Phases) {
		t.Fatalf("registry has %d phases, perf collector has %d", len(ids), len(telemetry.Phases))
	}
	for i, id := range ids {
		if id != telemetry.Phases[i] {
			t.Errorf("phase %d: registry %q, perf %q", i, id, telemetry.Phases[i])
		}
	}
}

func TestInspect(t *testing.T) {
	cfg := testConfig(t)
	cfg.Colony.Starting = 1
	g := newTestGame(t, cfg, nil, Options{Seed: 1})

	reply := make(chan inspector.Report, 1)
	g.Submit(Inspect{Pos: r2.Vec{X: 2.5, Y: 2.5}, Reply: reply})
	g.Tick(0)

	var r inspector.Report
	select {
	case r = <-reply:
	default:
		t.Fatal("no report after the command phase")
	}

	cell, ok := r.Section("cell")
	if !ok {
		t.Fatalf("no cell section: %+v", r.Sections)
	}
	if f, _ := cell.Field("Kind"); f.Value != "colony_y" {
		t.Errorf("cell kind = %q, want colony_y", f.Value)
	}
	for _, title := range []string{"fields", "colony", "drone"} {
		if _, ok := r.Section(title); !ok {
			t.Errorf("missing %q section", title)
		}
	}
	if _, ok := r.Section("router"); ok {
		t.Error("unexpected router section")
	}

	empty := g.Inspect(r2.Vec{X: 8.5, Y: 8.5})
	if _, ok := empty.Section("drone"); ok {
		t.Error("drone picked far from any drone")
	}
}
