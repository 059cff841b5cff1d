package game

import (
	"github.com/Dasch0/hivemind-mirror/grid"
	"github.com/Dasch0/hivemind-mirror/telemetry"
)

// DroneView is the presentation view of one drone.
type DroneView struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	State     string  `json:"state"`
	Identity  string  `json:"identity"`
	FacesLeft bool    `json:"faces_left"`
}

// Snapshot is a read-only copy of everything presentation needs to draw a frame.
type Snapshot struct {
	Tick       int64       `json:"tick"`
	SimTime    float64     `json:"sim_time"`
	GameTime   float64     `json:"game_time"`
	GameOver   bool        `json:"game_over"`
	Cheat      bool        `json:"cheat"`
	Speed      float64     `json:"speed"`
	Ammo       [3]int      `json:"ammo"`
	Apocalypse float64     `json:"apocalypse"` // seconds until the first router, negative once spawned
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	Cells      []uint32    `json:"cells"` // packed, row-major
	Drones     []DroneView `json:"drones"`
}

// Snapshot copies the current world state. It must not run concurrently with Tick.
func (g *Game) Snapshot() Snapshot {
	s := Snapshot{
		Tick:       g.tick,
		SimTime:    g.simTime,
		GameTime:   g.gameTime,
		GameOver:   g.gameOver,
		Cheat:      g.cheat,
		Speed:      g.speed,
		Ammo:       g.ammo,
		Apocalypse: g.ApocalypseIn(),
		Width:      g.grid.Width(),
		Height:     g.grid.Height(),
	}

	cells := g.grid.Cells()
	s.Cells = make([]uint32, len(cells))
	for i, c := range cells {
		s.Cells[i] = c.Pack()
	}

	query := g.droneFilter.Query()
	for query.Next() {
		pos, drone, state, _, id := query.Get()
		s.Drones = append(s.Drones, DroneView{
			X:         pos.X,
			Y:         pos.Y,
			State:     state.String(),
			Identity:  id.Kind.String(),
			FacesLeft: drone.FacesLeft(),
		})
	}
	return s
}

// PerfStats returns timing statistics for the recent ticks.
func (g *Game) PerfStats() telemetry.PerfStats {
	return g.perfCollector.Stats()
}

// CellAt returns the cell at p.
func (g *Game) CellAt(p grid.Point) (grid.Cell, bool) {
	return g.grid.At(p)
}
