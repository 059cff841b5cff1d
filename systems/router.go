package systems

import (
	"fmt"
	"math"

	"github.com/Dasch0/hivemind-mirror/config"
	"github.com/Dasch0/hivemind-mirror/grid"
)

// Phase is the coarse router state.
type Phase uint8

const (
	PhaseInit Phase = iota
	PhaseSearch
	PhaseRouteFound
	PhaseRoute
	PhaseStopped
	PhaseError
)

var phaseNames = [...]string{"init", "search", "route_found", "route", "stopped", "error"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// RouterState is a Phase plus the position it refers to, if any.
// Search carries the last expanded cell; RouteFound and Route carry the
// discovered resource cell.
type RouterState struct {
	Phase Phase
	At    grid.Point
	HasAt bool
}

func stateAt(ph Phase, p grid.Point) RouterState { return RouterState{Phase: ph, At: p, HasAt: true} }

func (s RouterState) String() string {
	if s.HasAt {
		return fmt.Sprintf("%s%s", s.Phase, s.At)
	}
	return s.Phase.String()
}

// SearchPath is a queued BFS candidate and the cell it was reached from.
type SearchPath struct {
	Pos, Prev grid.Point
}

// RouterParams holds router scheduling parameters.
type RouterParams struct {
	Delays      config.RouterDelays
	RouteDelay  float64 // wire reveal stagger per step
	MaxRetries  int     // consecutive errors before backoff, 0 disables backoff
	MaxCooldown float64
}

// RouterParamsFromConfig returns router parameters from config.
func RouterParamsFromConfig(c config.RouterConfig) RouterParams {
	return RouterParams{
		Delays:      c.Delays,
		RouteDelay:  c.RouteDelay,
		MaxRetries:  c.MaxRetries,
		MaxCooldown: c.MaxCooldown,
	}
}

// Delay returns the time to wait before evaluating a router in state s.
func (p RouterParams) Delay(s RouterState) float64 {
	switch s.Phase {
	case PhaseInit:
		return p.Delays.Init
	case PhaseSearch:
		return p.Delays.Search
	case PhaseRouteFound:
		return p.Delays.RouteFound
	case PhaseRoute:
		return p.Delays.Route
	case PhaseStopped:
		return p.Delays.Stopped
	default:
		return p.Delays.Error
	}
}

// Multivac is a router: a BFS over the grid from Origin toward the nearest
// resource cell, followed by a walk back along the BFS predecessors that
// lays wire.
type Multivac struct {
	Origin grid.Point
	State  RouterState

	visited map[grid.Point]grid.Point
	queue   []SearchPath
	head    int
	errors  int // consecutive Error outcomes
}

// NewMultivac returns a router at origin in the Init state.
func NewMultivac(origin grid.Point, g *grid.Grid) Multivac {
	return Multivac{
		Origin:  origin,
		visited: make(map[grid.Point]grid.Point, g.Area()),
		queue:   make([]SearchPath, 0, 4*g.Width()),
	}
}

// QueueLen returns the number of pending BFS candidates.
func (m *Multivac) QueueLen() int { return len(m.queue) - m.head }

// Predecessor returns the cell p was reached from.
func (m *Multivac) Predecessor(p grid.Point) (grid.Point, bool) {
	prev, ok := m.visited[p]
	return prev, ok
}

func (m *Multivac) push(pos, prev grid.Point) {
	m.queue = append(m.queue, SearchPath{Pos: pos, Prev: prev})
}

func (m *Multivac) pop() (SearchPath, bool) {
	if m.head >= len(m.queue) {
		m.queue = m.queue[:0]
		m.head = 0
		return SearchPath{}, false
	}
	c := m.queue[m.head]
	m.head++
	if m.head >= 1024 && m.head*2 >= len(m.queue) {
		n := copy(m.queue, m.queue[m.head:])
		m.queue = m.queue[:n]
		m.head = 0
	}
	return c, true
}

// Init clears the search and seeds the frontier with the origin's
// neighbours, plus the neighbours of every empty neighbour.
func (m *Multivac) Init(g *grid.Grid) RouterState {
	if m.visited == nil {
		m.visited = make(map[grid.Point]grid.Point, g.Area())
	}
	clear(m.visited)
	m.queue = m.queue[:0]
	m.head = 0

	m.visited[m.Origin] = m.Origin
	var first, second [4]grid.Point
	for _, n := range g.Neighbors4(first[:0], m.Origin) {
		m.push(n, m.Origin)
		if g.KindAt(n).IsEmpty() {
			for _, nn := range g.Neighbors4(second[:0], n) {
				if nn != m.Origin {
					m.push(nn, n)
				}
			}
		}
	}
	return RouterState{Phase: PhaseSearch}
}

// Search expands the next unvisited candidate, trying neighbours in
// north, south, east, west order.
func (m *Multivac) Search(g *grid.Grid) RouterState { return m.search(g, false) }

// SearchReverse is Search with the neighbour order reversed.
func (m *Multivac) SearchReverse(g *grid.Grid) RouterState { return m.search(g, true) }

func (m *Multivac) search(g *grid.Grid, reverse bool) RouterState {
	var c SearchPath
	for {
		var ok bool
		if c, ok = m.pop(); !ok {
			return RouterState{Phase: PhaseStopped}
		}
		if _, seen := m.visited[c.Pos]; !seen {
			break
		}
	}
	m.visited[c.Pos] = c.Prev

	cell, ok := g.At(c.Pos)
	if !ok {
		return RouterState{Phase: PhaseSearch}
	}
	if cell.Kind.Intersects(grid.KindMask &^ grid.RouterFood) {
		return RouterState{Phase: PhaseSearch}
	}
	if cell.Kind.Intersects(grid.RouterFood) {
		return stateAt(PhaseRouteFound, c.Pos)
	}

	for i := range grid.Cardinals {
		d := grid.Cardinals[i]
		if reverse {
			d = grid.Cardinals[len(grid.Cardinals)-1-i]
		}
		n := c.Pos.Add(d)
		if !g.InBounds(n) {
			continue
		}
		if _, seen := m.visited[n]; !seen {
			m.push(n, c.Pos)
		}
	}
	return stateAt(PhaseSearch, c.Pos)
}

// Route walks the predecessor chain from p toward the origin, flagging
// every intermediate cell as wire. The walk stops with Stopped at a router
// cell and with Error on a broken chain, an occupied cell, or after more
// steps than the grid has cells.
func (m *Multivac) Route(g *grid.Grid, p grid.Point, routeDelay float64) (RouterState, []WirePlacement) {
	var wires []WirePlacement
	prev := p
	for step := 1; ; step++ {
		if step > g.Area() {
			return RouterState{Phase: PhaseError}, wires
		}
		pos, ok := m.visited[prev]
		if !ok {
			return RouterState{Phase: PhaseError}, wires
		}
		next, ok := m.visited[pos]
		if !ok {
			return RouterState{Phase: PhaseError}, wires
		}
		cell, ok := g.At(pos)
		if !ok {
			return RouterState{Phase: PhaseError}, wires
		}
		if cell.Kind.Intersects(grid.Router) {
			return RouterState{Phase: PhaseStopped}, wires
		}
		if !cell.Kind.IsEmpty() {
			return RouterState{Phase: PhaseError}, wires
		}

		g.Update(pos, func(c *grid.Cell) { c.Kind |= grid.Wire })
		wires = append(wires, WirePlacement{
			Pos:       pos,
			Connector: ConnectorFromRoute(prev, pos, next),
			Delay:     float64(step) * routeDelay,
		})
		prev = pos
	}
}

// StepResult is everything one router evaluation produced.
type StepResult struct {
	State   RouterState
	Pings   []grid.Point    // cells expanded by the search, for presentation
	Wires   []WirePlacement // wire laid by a route walk
	Outpost *grid.Point     // resource cell promoted to an outpost
	Delay   float64         // time until the next evaluation
}

// Step advances the router by one state evaluation.
func (m *Multivac) Step(g *grid.Grid, p RouterParams) StepResult {
	var res StepResult

	switch s := m.State; s.Phase {
	case PhaseInit, PhaseStopped, PhaseError:
		res.State = m.Init(g)

	case PhaseSearch:
		budget := max(1, m.QueueLen()/2)
		state := RouterState{Phase: PhaseStopped}
		steps := [2]func(*grid.Grid) RouterState{m.Search, m.SearchReverse}
	loop:
		for i := 0; i < budget; i++ {
			for _, step := range steps {
				state = step(g)
				if state.Phase != PhaseSearch {
					break loop
				}
				if state.HasAt {
					res.Pings = append(res.Pings, state.At)
				}
			}
		}
		res.State = state

	case PhaseRouteFound:
		g.Update(s.At, func(c *grid.Cell) { c.Kind |= grid.Outpost })
		at := s.At
		res.Outpost = &at
		res.Pings = append(res.Pings, at)
		m.errors = 0
		res.State = stateAt(PhaseRoute, at)

	case PhaseRoute:
		res.State, res.Wires = m.Route(g, s.At, p.RouteDelay)
		for _, w := range res.Wires {
			res.Pings = append(res.Pings, w.Pos)
		}

	default:
		res.State = RouterState{Phase: PhaseError}
	}

	if res.State.Phase == PhaseError {
		m.errors++
	}
	m.State = res.State
	res.Delay = m.backoff(p.Delay(res.State), p)
	return res
}

// backoff doubles the delay for every consecutive error past MaxRetries.
func (m *Multivac) backoff(delay float64, p RouterParams) float64 {
	if p.MaxRetries <= 0 || m.errors <= p.MaxRetries || m.State.Phase != PhaseError {
		return delay
	}
	d := delay * math.Pow(2, float64(m.errors-p.MaxRetries))
	if p.MaxCooldown > 0 {
		d = math.Min(d, p.MaxCooldown)
	}
	return d
}

// PlaceRouter flags p as a router cell and returns disconnected wire stubs
// for each in-bounds neighbour, in west, east, south, north order.
func PlaceRouter(g *grid.Grid, p grid.Point) []WirePlacement {
	if !g.Update(p, func(c *grid.Cell) { c.Kind |= grid.Router }) {
		return nil
	}
	var stubs []WirePlacement
	for i := len(grid.Cardinals) - 1; i >= 0; i-- {
		d := grid.Cardinals[i]
		if n := p.Add(d); g.InBounds(n) {
			stubs = append(stubs, WirePlacement{Pos: n, Connector: Disconnect(DirOf(d))})
		}
	}
	return stubs
}
