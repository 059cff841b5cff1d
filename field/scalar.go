package field

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/Dasch0/hivemind-mirror/grid"
)

// ScalarParams configures a scalar field.
type ScalarParams struct {
	Min, Max   float64
	Decay      float64 // time constant in seconds
	UpdateRate float64
}

// Scalar is a double-buffered grid of float64 values.
type Scalar struct {
	ScalarParams
	buffers
	data [2][]float64
}

// NewScalar allocates a field filled with p.Min.
func NewScalar(width, height int, p ScalarParams) *Scalar {
	p.Decay = math.Abs(p.Decay)
	f := &Scalar{
		ScalarParams: p,
		buffers:      buffers{width: width, height: height},
	}
	for i := range f.data {
		f.data[i] = make([]float64, width*height)
	}
	f.Fill(p.Min)
	return f
}

func (f *Scalar) clamp(v float64) float64 {
	return math.Max(f.Min, math.Min(v, f.Max))
}

// At returns the value at p, or 0 outside the field.
func (f *Scalar) At(p grid.Point) float64 {
	i, ok := f.index(p)
	if !ok {
		return 0
	}
	return f.data[f.read()][i]
}

// AtVec returns the value of the cell containing v, or 0 outside the field.
func (f *Scalar) AtVec(v r2.Vec) float64 {
	i, ok := f.indexVec(v)
	if !ok {
		return 0
	}
	return f.data[f.read()][i]
}

// Set stores a clamped value at p in the active buffer.
func (f *Scalar) Set(p grid.Point, v float64) {
	if i, ok := f.index(p); ok {
		f.data[f.read()][i] = f.clamp(v)
	}
}

// Add adds delta at p, clamped to [Min, Max].
func (f *Scalar) Add(p grid.Point, delta float64) {
	if i, ok := f.index(p); ok {
		buf := f.data[f.read()]
		buf[i] = f.clamp(buf[i] + delta)
	}
}

// AddVec adds delta to the cell containing v.
func (f *Scalar) AddVec(v r2.Vec, delta float64) {
	if i, ok := f.indexVec(v); ok {
		buf := f.data[f.read()]
		buf[i] = f.clamp(buf[i] + delta)
	}
}

// Fill sets every cell of both buffers to a clamped v.
func (f *Scalar) Fill(v float64) {
	v = f.clamp(v)
	for _, buf := range f.data {
		for i := range buf {
			buf[i] = v
		}
	}
}

// Values returns the active buffer in row-major order. Callers must not modify it.
func (f *Scalar) Values() []float64 { return f.data[f.read()] }

// Grad returns the central-difference gradient at the cell containing pos.
// It is zero when any sample would fall outside the field.
func (f *Scalar) Grad(pos r2.Vec) r2.Vec {
	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || pos.X < 0 || pos.Y < 0 {
		return r2.Vec{}
	}
	p := grid.PointOf(pos)
	if p.X < 1 || p.Y < 1 || p.X >= f.width-1 || p.Y >= f.height-1 {
		return r2.Vec{}
	}
	buf := f.data[f.read()]
	i := p.Y*f.width + p.X
	return r2.Vec{
		X: 0.5 * (buf[i+1] - buf[i-1]),
		Y: 0.5 * (buf[i+f.width] - buf[i-f.width]),
	}
}

// Update advances the field by dt: every interior cell relaxes toward its 3x3
// average, decays, and is clamped. Border cells carry over unchanged.
func (f *Scalar) Update(dt float64, run Runner) {
	cur := f.data[f.read()]
	next := f.data[1-f.active]
	w, h := f.width, f.height

	copyBorder(cur, next, w, h)
	if w < 3 || h < 3 {
		f.swap()
		return
	}

	k := relaxRate(f.UpdateRate, dt)
	decay := decayFactor(dt, f.Decay)

	runner(run).Run(h-2, RowChunk, func(lo, hi int) {
		for y := lo + 1; y < hi+1; y++ {
			for x := 1; x < w-1; x++ {
				i := y*w + x
				var sum float64
				for _, o := range neighborhood {
					sum += cur[i+o.Y*w+o.X]
				}
				v := cur[i] + (sum/9-cur[i])*k
				next[i] = f.clamp(v * decay)
			}
		}
	})

	f.swap()
}
