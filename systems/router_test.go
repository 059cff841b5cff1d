package systems

import (
	"testing"

	"github.com/Dasch0/hivemind-mirror/config"
	"github.com/Dasch0/hivemind-mirror/grid"
)

var testRouterParams = RouterParams{
	Delays:     config.RouterDelays{Init: 50, Search: 0.1, RouteFound: 0, Route: 0.5, Stopped: 50, Error: 50},
	RouteDelay: 0.3,
}

// runUntil steps m until its phase is want or the step limit runs out.
func runUntil(t *testing.T, m *Multivac, g *grid.Grid, want Phase, limit int) []StepResult {
	t.Helper()
	var results []StepResult
	for i := 0; i < limit; i++ {
		res := m.Step(g, testRouterParams)
		results = append(results, res)
		if res.State.Phase == want {
			return results
		}
	}
	t.Fatalf("router did not reach %v within %d steps (state %v)", want, limit, m.State)
	return nil
}

func TestRouterFindsAndRoutesToFood(t *testing.T) {
	g := grid.MustNew(10, 10)
	origin := grid.Point{X: 5, Y: 5}
	food := grid.Point{X: 5, Y: 8}
	PlaceRouter(g, origin)
	g.Set(food, grid.NewCell(grid.Flower, 500))

	m := NewMultivac(origin, g)
	runUntil(t, &m, g, PhaseRouteFound, 100)
	if m.State.At != food {
		t.Fatalf("route found at %v, want %v", m.State.At, food)
	}

	res := m.Step(g, testRouterParams)
	if res.Outpost == nil || *res.Outpost != food {
		t.Fatalf("outpost = %v, want %v", res.Outpost, food)
	}
	if !g.KindAt(food).Contains(grid.Outpost | grid.Flower) {
		t.Errorf("food cell kind = %v, want flower|outpost", g.KindAt(food))
	}
	if res.State != stateAt(PhaseRoute, food) {
		t.Fatalf("state = %v, want route%v", res.State, food)
	}
	if res.Delay != testRouterParams.Delays.Route {
		t.Errorf("delay = %v, want %v", res.Delay, testRouterParams.Delays.Route)
	}

	res = m.Step(g, testRouterParams)
	if res.State.Phase != PhaseStopped {
		t.Fatalf("route ended in %v, want stopped", res.State)
	}
	wantWires := []grid.Point{{X: 5, Y: 7}, {X: 5, Y: 6}}
	if len(res.Wires) != len(wantWires) {
		t.Fatalf("laid %d wires, want %d: %+v", len(res.Wires), len(wantWires), res.Wires)
	}
	for i, w := range res.Wires {
		if w.Pos != wantWires[i] {
			t.Errorf("wire %d at %v, want %v", i, w.Pos, wantWires[i])
		}
		if !g.KindAt(w.Pos).Contains(grid.Wire) {
			t.Errorf("cell %v not flagged as wire", w.Pos)
		}
		if want := float64(i+1) * testRouterParams.RouteDelay; w.Delay != want {
			t.Errorf("wire %d delay = %v, want %v", i, w.Delay, want)
		}
	}
	if c := res.Wires[0].Connector; c != Connect(DirSouth, DirNorth) {
		t.Errorf("first connector = %v, want south-north", c)
	}
	if !g.KindAt(origin).Contains(grid.Router) || g.KindAt(origin).Contains(grid.Wire) {
		t.Errorf("origin kind = %v", g.KindAt(origin))
	}

	// Stopped restarts the search.
	res = m.Step(g, testRouterParams)
	if res.State.Phase != PhaseSearch || res.Delay != testRouterParams.Delays.Search {
		t.Errorf("after stop: state %v delay %v", res.State, res.Delay)
	}
}

func TestRouterSearchDrainsWithinArea(t *testing.T) {
	g := grid.MustNew(6, 6)
	origin := grid.Point{X: 2, Y: 2}
	PlaceRouter(g, origin)

	m := NewMultivac(origin, g)
	m.Init(g)

	calls := 0
	for {
		calls++
		if calls > g.Area()+1 {
			t.Fatalf("search still running after %d calls", calls)
		}
		var s RouterState
		if calls%2 == 0 {
			s = m.SearchReverse(g)
		} else {
			s = m.Search(g)
		}
		if s.Phase == PhaseStopped {
			break
		}
		if s.Phase != PhaseSearch {
			t.Fatalf("unexpected state %v on empty grid", s)
		}
	}
	if calls > g.Area() {
		t.Errorf("drained in %d calls, want <= %d", calls, g.Area())
	}
	if m.QueueLen() != 0 {
		t.Errorf("queue length %d after drain", m.QueueLen())
	}
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			if _, ok := m.Predecessor(grid.Point{X: x, Y: y}); !ok {
				t.Errorf("cell (%d,%d) never visited", x, y)
			}
		}
	}
}

func TestRouterSearchTreatsObstaclesAsBlocking(t *testing.T) {
	g := grid.MustNew(7, 3)
	origin := grid.Point{X: 0, Y: 1}
	PlaceRouter(g, origin)
	// A column of wire cuts the origin off from the flower.
	for y := 0; y < 3; y++ {
		g.Set(grid.Point{X: 3, Y: y}, grid.NewCell(grid.Wire, 0))
	}
	g.Set(grid.Point{X: 5, Y: 1}, grid.NewCell(grid.Flower, 10))

	m := NewMultivac(origin, g)
	runUntil(t, &m, g, PhaseStopped, 50)
	if _, ok := m.Predecessor(grid.Point{X: 5, Y: 1}); ok {
		t.Error("search reached a cell behind a wall of wire")
	}
}

func TestRouterStaleRouteErrors(t *testing.T) {
	g := grid.MustNew(10, 10)
	origin := grid.Point{X: 5, Y: 5}
	food := grid.Point{X: 5, Y: 8}
	PlaceRouter(g, origin)
	g.Set(food, grid.NewCell(grid.Flower, 500))

	m := NewMultivac(origin, g)
	runUntil(t, &m, g, PhaseRoute, 100)

	// The map changes between search and route.
	g.Set(grid.Point{X: 5, Y: 6}, grid.NewCell(grid.Tree, 1000))

	res := m.Step(g, testRouterParams)
	if res.State.Phase != PhaseError {
		t.Fatalf("state = %v, want error", res.State)
	}
	if res.Delay != testRouterParams.Delays.Error {
		t.Errorf("delay = %v, want %v", res.Delay, testRouterParams.Delays.Error)
	}

	res = m.Step(g, testRouterParams)
	if res.State.Phase != PhaseSearch {
		t.Errorf("error did not re-run init: %v", res.State)
	}
}

func TestRouteBrokenChainErrors(t *testing.T) {
	g := grid.MustNew(4, 4)
	m := NewMultivac(grid.Point{X: 0, Y: 0}, g)
	state, wires := m.Route(g, grid.Point{X: 3, Y: 3}, 1)
	if state.Phase != PhaseError || len(wires) != 0 {
		t.Errorf("Route on empty chain = %v with %d wires", state, len(wires))
	}
}

func TestRouteCycleIsBounded(t *testing.T) {
	g := grid.MustNew(3, 3)
	m := NewMultivac(grid.Point{X: 0, Y: 0}, g)
	a, b := grid.Point{X: 1, Y: 1}, grid.Point{X: 2, Y: 1}
	m.visited[a] = b
	m.visited[b] = a

	state, wires := m.Route(g, a, 0.1)
	if state.Phase != PhaseError {
		t.Errorf("cyclic chain ended in %v, want error", state)
	}
	if len(wires) > g.Area() {
		t.Errorf("walked %d steps on a %d cell grid", len(wires), g.Area())
	}
}

func TestRouterBackoff(t *testing.T) {
	g := grid.MustNew(4, 4)
	p := testRouterParams
	p.MaxRetries = 1
	p.MaxCooldown = 80

	m := NewMultivac(grid.Point{X: 0, Y: 0}, g)
	fail := func() float64 {
		m.State = stateAt(PhaseRoute, grid.Point{X: 3, Y: 3})
		clear(m.visited)
		return m.Step(g, p).Delay
	}

	if d := fail(); d != 50 {
		t.Errorf("first error delay = %v, want 50", d)
	}
	if d := fail(); d != 80 {
		t.Errorf("second error delay = %v, want capped 80", d)
	}

	// Finding a route resets the error count.
	m.State = stateAt(PhaseRouteFound, grid.Point{X: 3, Y: 3})
	m.Step(g, p)
	if d := fail(); d != 50 {
		t.Errorf("error after success delay = %v, want 50", d)
	}
}

func TestSearchBudgetPings(t *testing.T) {
	g := grid.MustNew(20, 20)
	m := NewMultivac(grid.Point{X: 10, Y: 10}, g)
	PlaceRouter(g, m.Origin)

	res := m.Step(g, testRouterParams)
	if res.State != (RouterState{Phase: PhaseSearch}) {
		t.Fatalf("init produced %v", res.State)
	}
	queued := m.QueueLen()

	res = m.Step(g, testRouterParams)
	if res.State.Phase != PhaseSearch {
		t.Fatalf("search produced %v", res.State)
	}
	if len(res.Pings) == 0 || len(res.Pings) > 2*max(1, queued/2) {
		t.Errorf("got %d pings for a queue of %d", len(res.Pings), queued)
	}
}

func TestPlaceRouterStubs(t *testing.T) {
	g := grid.MustNew(5, 5)
	g.Set(grid.Point{X: 0, Y: 0}, grid.NewCell(grid.Flower, 3))

	stubs := PlaceRouter(g, grid.Point{X: 0, Y: 0})
	if got := g.KindAt(grid.Point{X: 0, Y: 0}); !got.Contains(grid.Router) {
		t.Errorf("kind = %v, want router flag", got)
	}
	want := []WirePlacement{
		{Pos: grid.Point{X: 1, Y: 0}, Connector: Disconnect(DirEast)},
		{Pos: grid.Point{X: 0, Y: 1}, Connector: Disconnect(DirNorth)},
	}
	if len(stubs) != len(want) {
		t.Fatalf("stubs = %+v, want %+v", stubs, want)
	}
	for i := range want {
		if stubs[i] != want[i] {
			t.Errorf("stub %d = %+v, want %+v", i, stubs[i], want[i])
		}
	}
	if PlaceRouter(g, grid.Point{X: 9, Y: 9}) != nil {
		t.Error("out of bounds router placed")
	}
}

func TestConnectorFromRoute(t *testing.T) {
	tests := []struct {
		prev, pos, next grid.Point
		want            Connector
	}{
		{grid.Point{X: 5, Y: 8}, grid.Point{X: 5, Y: 7}, grid.Point{X: 5, Y: 6}, Connect(DirSouth, DirNorth)},
		{grid.Point{X: 0, Y: 0}, grid.Point{X: 1, Y: 0}, grid.Point{X: 1, Y: 1}, Connect(DirEast, DirSouth)},
		{grid.Point{X: 0, Y: 0}, grid.Point{X: 2, Y: 0}, grid.Point{X: 2, Y: 0}, Connect(DirNone, DirNone)},
	}
	for _, tt := range tests {
		if got := ConnectorFromRoute(tt.prev, tt.pos, tt.next); got != tt.want {
			t.Errorf("ConnectorFromRoute(%v,%v,%v) = %v, want %v", tt.prev, tt.pos, tt.next, got, tt.want)
		}
	}
}
