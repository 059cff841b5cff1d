// Package field implements double-buffered scalar and vector fields that
// diffuse, advect and decay over the world grid.
//
// Exactly one buffer is readable at a time. Update reads only the active
// buffer, writes only the inactive one, and swaps once every row is done, so
// readers never observe a partially updated field.
package field

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/Dasch0/hivemind-mirror/grid"
)

// Runner executes fn over [0,n) in chunks and returns when all chunks are done.
// parallel.Pool satisfies it.
type Runner interface {
	Run(n, chunkSize int, fn func(lo, hi int))
}

type serialRunner struct{}

func (serialRunner) Run(n, chunkSize int, fn func(lo, hi int)) { fn(0, n) }

// Serial runs every chunk on the calling goroutine.
var Serial Runner = serialRunner{}

// RowChunk is the number of interior rows handed to a worker at once.
var RowChunk = 8

// neighborhood is the 3x3 stencil, centre included.
var neighborhood = [9]grid.Point{
	{X: -1, Y: -1}, {X: 0, Y: -1}, {X: 1, Y: -1},
	{X: -1, Y: 0}, {X: 0, Y: 0}, {X: 1, Y: 0},
	{X: -1, Y: 1}, {X: 0, Y: 1}, {X: 1, Y: 1},
}

// buffers holds the shared double-buffer bookkeeping.
type buffers struct {
	width, height int
	active        int
}

func (b *buffers) index(p grid.Point) (int, bool) {
	if p.X < 0 || p.Y < 0 || p.X >= b.width || p.Y >= b.height {
		return 0, false
	}
	return p.Y*b.width + p.X, true
}

func (b *buffers) indexVec(v r2.Vec) (int, bool) {
	if math.IsNaN(v.X) || math.IsNaN(v.Y) || v.X < 0 || v.Y < 0 {
		return 0, false
	}
	return b.index(grid.PointOf(v))
}

// read returns the active buffer index.
func (b *buffers) read() int {
	if b.active != 0 && b.active != 1 {
		panic(fmt.Sprintf("field: active buffer index %d out of range", b.active))
	}
	return b.active
}

func (b *buffers) swap() { b.active = 1 - b.read() }

// Width returns the number of columns.
func (b *buffers) Width() int { return b.width }

// Height returns the number of rows.
func (b *buffers) Height() int { return b.height }

// decayFactor returns exp(-dt/decay); a non-positive decay constant disables decay.
func decayFactor(dt, decay float64) float64 {
	if decay <= 0 {
		return 1
	}
	return math.Exp(-dt / decay)
}

// relaxRate returns the fraction of the gap to the target closed this step.
func relaxRate(updateRate, dt float64) float64 {
	return math.Max(0, math.Min(updateRate*dt, 1))
}

// copyBorder copies the outermost ring from src to dst.
func copyBorder[T any](src, dst []T, w, h int) {
	copy(dst[:w], src[:w])
	last := (h - 1) * w
	copy(dst[last:last+w], src[last:last+w])
	for y := 1; y < h-1; y++ {
		dst[y*w] = src[y*w]
		dst[y*w+w-1] = src[y*w+w-1]
	}
}

func runner(r Runner) Runner {
	if r == nil {
		return Serial
	}
	return r
}

// Lerp interpolates from a to b by t.
func Lerp(a, b r2.Vec, t float64) r2.Vec {
	return r2.Add(a, r2.Scale(t, r2.Sub(b, a)))
}

// UnitOrZero returns v scaled to length one, or the zero vector when v has no length.
func UnitOrZero(v r2.Vec) r2.Vec {
	n := r2.Norm(v)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return r2.Vec{}
	}
	return r2.Scale(1/n, v)
}

// ClampNorm limits the length of v to maxLen.
func ClampNorm(v r2.Vec, maxLen float64) r2.Vec {
	n := r2.Norm(v)
	if n <= maxLen || n == 0 {
		return v
	}
	return r2.Scale(maxLen/n, v)
}
