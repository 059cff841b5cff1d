package systems

import "github.com/Dasch0/hivemind-mirror/grid"

// Gather takes one unit from the food cell at p. A cell with nothing left
// loses its food flag instead. It reports the remaining quantity and
// whether the cell changed.
func Gather(g *grid.Grid, p grid.Point) (uint32, bool) {
	c, ok := g.At(p)
	if !ok {
		return 0, false
	}
	if c.Quantity > 0 {
		c.Quantity--
	} else {
		if !c.Kind.Intersects(grid.HiveFood) {
			return 0, false
		}
		c.Kind &^= grid.HiveFood
	}
	g.Set(p, c)
	return c.Quantity, true
}

// Deposit adds one unit to the cell at p, up to limit.
func Deposit(g *grid.Grid, p grid.Point, limit uint32) (uint32, bool) {
	c, ok := g.At(p)
	if !ok {
		return 0, false
	}
	if c.Give(1, limit) == 0 {
		return c.Quantity, false
	}
	g.Set(p, c)
	return c.Quantity, true
}
