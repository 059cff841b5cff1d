package game

import (
	"log/slog"

	"github.com/Dasch0/hivemind-mirror/components"
	"github.com/Dasch0/hivemind-mirror/grid"
)

// logOnce logs the first error per message and stays quiet afterwards, so a
// broken output cannot flood the log from the tick loop.
func (g *Game) logOnce(msg string, err error) {
	if g.loggedErrors == nil {
		g.loggedErrors = make(map[string]bool)
	}
	if g.loggedErrors[msg] {
		return
	}
	g.loggedErrors[msg] = true
	slog.Error(msg, "error", err, "tick", g.tick)
}

func logCheat(on bool) {
	slog.Info("cheat mode", "enabled", on)
}

// LogWorldState logs a one-line summary of the world.
func (g *Game) LogWorldState() {
	states := make([]int, components.DroneStateCount())
	query := g.droneFilter.Query()
	for query.Next() {
		_, _, state, _, _ := query.Get()
		if int(*state) < len(states) {
			states[*state]++
		}
	}

	attrs := []any{
		"tick", g.tick,
		"sim_time", g.simTime,
		"game_time", g.gameTime,
		"game_over", g.gameOver,
		"colonies", g.ColonyCount(),
		"routers", g.RouterCount(),
		"outposts", g.OutpostCount(),
		"wires", g.grid.Count(grid.Wire),
		"flowers", g.grid.Count(grid.Flower),
	}
	for i, name := range components.DroneStateNames() {
		attrs = append(attrs, name, states[i])
	}
	slog.Info("world state", attrs...)
}
