package game

import (
	"fmt"

	"github.com/Dasch0/hivemind-mirror/grid"
)

// Command is a request from presentation, applied at the start of the next tick.
type Command interface {
	apply(g *Game)
}

// Action is a placement tool.
type Action uint8

const (
	AddFlower Action = iota
	AddTree
	Remove
)

func (a Action) String() string {
	switch a {
	case AddFlower:
		return "add_flower"
	case AddTree:
		return "add_tree"
	case Remove:
		return "remove"
	}
	return fmt.Sprintf("action(%d)", a)
}

func (a Action) meter() Meter {
	switch a {
	case AddTree:
		return MeterTree
	case Remove:
		return MeterDelete
	}
	return MeterFlower
}

// Place adds a flower or tree on an empty cell, or clears a flower or tree.
// It needs one unit of the matching meter; cheat mode does not spend it.
type Place struct {
	Pos    grid.Point
	Action Action
}

// ToggleCheat flips cheat mode.
type ToggleCheat struct{}

// ToggleSpeed pauses a running game or resumes a paused one at normal speed.
type ToggleSpeed struct{}

// CycleSpeed steps to the next configured speed multiplier, wrapping around.
type CycleSpeed struct{}

// SetSpeed selects a time-step multiplier. Values not in the configured
// speed list are used as-is.
type SetSpeed struct {
	Multiplier float64
}

// Submit queues commands for the next tick. It is safe to call from any goroutine.
func (g *Game) Submit(cmds ...Command) {
	g.cmdMu.Lock()
	g.commands = append(g.commands, cmds...)
	g.cmdMu.Unlock()
}

// applyCommands runs every queued command in submission order.
func (g *Game) applyCommands() {
	g.cmdMu.Lock()
	cmds := g.commands
	g.commands = nil
	g.cmdMu.Unlock()

	for _, c := range cmds {
		c.apply(g)
	}
}

func (c Place) apply(g *Game) {
	m := c.Action.meter()
	if g.ammo[m] <= 0 {
		return
	}
	cell, ok := g.grid.At(c.Pos)
	if !ok {
		return
	}

	cfg := g.config()
	switch c.Action {
	case AddFlower, AddTree:
		if !cell.Kind.IsEmpty() {
			return
		}
		kind, q := grid.Flower, cfg.World.FlowerMax
		if c.Action == AddTree {
			kind, q = grid.Tree, cfg.World.TreeMax
		}
		g.grid.Update(c.Pos, func(cl *grid.Cell) {
			cl.Kind |= kind
			cl.SetQuantity(q)
		})
	case Remove:
		if !cell.Kind.Intersects(grid.Flower | grid.Tree) {
			return
		}
		g.grid.Set(c.Pos, grid.Cell{})
	default:
		return
	}

	if !g.cheat {
		g.ammo[m]--
		g.emit(ResourceChanged{Meter: m, Value: g.ammo[m]})
	}
	cell, _ = g.grid.At(c.Pos)
	g.emit(Placed{Pos: c.Pos, Action: c.Action})
	g.emit(CellChanged{Pos: c.Pos, Kind: cell.Kind, Quantity: cell.Quantity})
}

func (ToggleCheat) apply(g *Game) {
	g.cheat = !g.cheat
	logCheat(g.cheat)
}

func (ToggleSpeed) apply(g *Game) {
	if g.speed == 0 {
		g.setSpeed(1)
	} else {
		g.setSpeed(0)
	}
}

func (c SetSpeed) apply(g *Game) {
	g.setSpeed(c.Multiplier)
}

// setSpeed clamps negative multipliers to a pause.
func (g *Game) setSpeed(m float64) {
	g.speed = max(m, 0)
}

func (CycleSpeed) apply(g *Game) {
	speeds := g.config().Player.Speeds
	if len(speeds) == 0 {
		return
	}
	next := 0
	for i, s := range speeds {
		if s == g.speed {
			next = (i + 1) % len(speeds)
			break
		}
	}
	g.setSpeed(speeds[next])
}
