package game

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/Dasch0/hivemind-mirror/grid"
	"github.com/Dasch0/hivemind-mirror/inspector"
)

// droneHitRadius is how far from the requested position a drone may be to
// be picked, in cells.
const droneHitRadius = 1.5

// Inspect asks for a report on the cell at Pos, any structure on it and the
// nearest drone. The report is sent on Reply without blocking; Reply should
// be buffered.
type Inspect struct {
	Pos   r2.Vec
	Reply chan<- inspector.Report
}

func (c Inspect) apply(g *Game) {
	if c.Reply == nil {
		return
	}
	select {
	case c.Reply <- g.Inspect(c.Pos):
	default:
	}
}

// Inspect builds a report for the cell containing pos. Call it from the
// goroutine that runs Tick, or submit an Inspect command instead.
func (g *Game) Inspect(pos r2.Vec) inspector.Report {
	p := grid.PointOf(pos)
	r := inspector.NewReport(p.X, p.Y)

	cell, ok := g.grid.At(p)
	if !ok {
		return r
	}
	r.Add("cell", cell)

	r.AddValue("fields", "food", g.fields.Food.At(p))
	r.AddValue("fields", "wall", g.fields.Wall.At(p))
	r.AddValue("fields", "density", g.fields.Density.At(p))
	r.AddValue("fields", "attractor", g.fields.Attractor.At(p))
	r.AddValue("fields", "repellent", g.fields.Repellent.At(p))

	g.inspectStructures(&r, p)

	picker := inspector.NewPicker[ecs.Entity](pos, droneHitRadius)
	query := g.droneFilter.Query()
	for query.Next() {
		position, _, _, _, _ := query.Get()
		picker.Offer(position.Vec(), query.Entity())
	}
	if e, ok := picker.Best(); ok {
		position, drone, state, colonist, id := g.droneMapper.Get(e)
		r.Add("drone", *state, *id, *position, *drone)
		r.AddValue("drone", "Home", colonist.Home)
	}
	return r
}

func (g *Game) inspectStructures(r *inspector.Report, p grid.Point) {
	var found []ecs.Entity

	colonies := g.colonyFilter.Query()
	for colonies.Next() {
		if tile, _ := colonies.Get(); tile.Point == p {
			found = append(found, colonies.Entity())
		}
	}
	for _, e := range found {
		_, id, clock, colony := g.colonyMapper.Get(e)
		r.Add("colony", *id, *colony, *clock)
	}

	found = found[:0]
	outposts := g.outpostFilter.Query()
	for outposts.Next() {
		if tile, _, _ := g.outpostMapper.Get(outposts.Entity()); tile.Point == p {
			found = append(found, outposts.Entity())
		}
	}
	for _, e := range found {
		_, clock, outpost := g.outpostMapper.Get(e)
		r.Add("outpost", *outpost, *clock)
	}

	found = found[:0]
	routers := g.routerFilter.Query()
	for routers.Next() {
		if tile, _, _ := g.routerMapper.Get(routers.Entity()); tile.Point == p {
			found = append(found, routers.Entity())
		}
	}
	for _, e := range found {
		_, clock, router := g.routerMapper.Get(e)
		r.Add("router", *router, *clock)
		r.AddValue("router", "Queue", router.QueueLen())
	}
}
