package grid

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// ErrBadDimensions is returned when a grid is created with a non-positive size.
var ErrBadDimensions = errors.New("grid: dimensions must be positive")

// Point is an integer cell coordinate.
type Point struct {
	X, Y int
}

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Vec returns the position of the cell's lower-left corner.
func (p Point) Vec() r2.Vec { return r2.Vec{X: float64(p.X), Y: float64(p.Y)} }

// Center returns the position of the cell's centre.
func (p Point) Center() r2.Vec { return r2.Vec{X: float64(p.X) + 0.5, Y: float64(p.Y) + 0.5} }

func (p Point) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// PointOf returns the cell containing v. Coordinates are floored.
func PointOf(v r2.Vec) Point {
	return Point{int(math.Floor(v.X)), int(math.Floor(v.Y))}
}

// Cardinal neighbour offsets in north, south, east, west order.
var (
	North = Point{0, 1}
	South = Point{0, -1}
	East  = Point{1, 0}
	West  = Point{-1, 0}

	Cardinals = [4]Point{North, South, East, West}
)

// Grid is a fixed-size row-major array of cells.
type Grid struct {
	width, height int
	cells         []Cell
}

// New allocates an empty grid.
func New(width, height int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrBadDimensions, width, height)
	}
	return &Grid{
		width:  width,
		height: height,
		cells:  make([]Cell, width*height),
	}, nil
}

// MustNew is like New but panics on invalid dimensions.
func MustNew(width, height int) *Grid {
	g, err := New(width, height)
	if err != nil {
		panic(err)
	}
	return g
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// Area returns width*height.
func (g *Grid) Area() int { return g.width * g.height }

// InBounds reports whether p lies inside the grid.
func (g *Grid) InBounds(p Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < g.width && p.Y < g.height
}

// OnBorder reports whether p is on the outermost ring.
func (g *Grid) OnBorder(p Point) bool {
	return p.X == 0 || p.Y == 0 || p.X == g.width-1 || p.Y == g.height-1
}

// At returns the cell at p. ok is false outside the grid.
func (g *Grid) At(p Point) (c Cell, ok bool) {
	if !g.InBounds(p) {
		return Cell{}, false
	}
	return g.cells[p.Y*g.width+p.X], true
}

// KindAt returns the kind at p, or Empty outside the grid.
func (g *Grid) KindAt(p Point) Kind {
	c, _ := g.At(p)
	return c.Kind
}

// AtVec returns the cell containing world position v. ok is false outside the grid.
func (g *Grid) AtVec(v r2.Vec) (Cell, bool) {
	if math.IsNaN(v.X) || math.IsNaN(v.Y) || v.X < 0 || v.Y < 0 {
		return Cell{}, false
	}
	return g.At(PointOf(v))
}

// Set overwrites the cell at p. Returns false outside the grid.
func (g *Grid) Set(p Point, c Cell) bool {
	if !g.InBounds(p) {
		return false
	}
	c.Kind &= KindMask
	c.SetQuantity(c.Quantity)
	g.cells[p.Y*g.width+p.X] = c
	return true
}

// Update applies fn to the cell at p in place. Returns false outside the grid.
func (g *Grid) Update(p Point, fn func(c *Cell)) bool {
	if !g.InBounds(p) {
		return false
	}
	c := &g.cells[p.Y*g.width+p.X]
	fn(c)
	c.Kind &= KindMask
	c.SetQuantity(c.Quantity)
	return true
}

// Cells returns the row-major backing slice. Callers must not modify it.
func (g *Grid) Cells() []Cell { return g.cells }

// Each calls fn for every cell in row-major order.
func (g *Grid) Each(fn func(p Point, c Cell)) {
	for y := 0; y < g.height; y++ {
		row := g.cells[y*g.width : (y+1)*g.width]
		for x, c := range row {
			fn(Point{x, y}, c)
		}
	}
}

// Neighbors4 appends the in-bounds cardinal neighbours of p to dst.
func (g *Grid) Neighbors4(dst []Point, p Point) []Point {
	for _, d := range Cardinals {
		if n := p.Add(d); g.InBounds(n) {
			dst = append(dst, n)
		}
	}
	return dst
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	c := &Grid{width: g.width, height: g.height, cells: make([]Cell, len(g.cells))}
	copy(c.cells, g.cells)
	return c
}

// Count returns how many cells intersect k.
func (g *Grid) Count(k Kind) int {
	n := 0
	for _, c := range g.cells {
		if c.Kind.Intersects(k) {
			n++
		}
	}
	return n
}
