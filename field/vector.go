package field

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/Dasch0/hivemind-mirror/grid"
)

// VectorParams configures a vector field.
type VectorParams struct {
	Decay        float64
	MaxMagnitude float64
	Blend        float64 // 0 = pure diffusion, 1 = pure advection
	UpdateRate   float64
}

// Vector is a double-buffered grid of 2D vectors.
type Vector struct {
	VectorParams
	buffers
	data [2][]r2.Vec
}

// NewVector allocates a zero field.
func NewVector(width, height int, p VectorParams) *Vector {
	p.Decay = math.Abs(p.Decay)
	f := &Vector{
		VectorParams: p,
		buffers:      buffers{width: width, height: height},
	}
	for i := range f.data {
		f.data[i] = make([]r2.Vec, width*height)
	}
	return f
}

func (f *Vector) limit(v r2.Vec) r2.Vec {
	if f.MaxMagnitude <= 0 {
		return v
	}
	return ClampNorm(v, f.MaxMagnitude)
}

// At returns the vector at p, or zero outside the field.
func (f *Vector) At(p grid.Point) r2.Vec {
	i, ok := f.index(p)
	if !ok {
		return r2.Vec{}
	}
	return f.data[f.read()][i]
}

// AtVec returns the vector of the cell containing v, or zero outside the field.
func (f *Vector) AtVec(v r2.Vec) r2.Vec {
	i, ok := f.indexVec(v)
	if !ok {
		return r2.Vec{}
	}
	return f.data[f.read()][i]
}

// Set stores v at p in the active buffer, limited to MaxMagnitude.
func (f *Vector) Set(p grid.Point, v r2.Vec) {
	if i, ok := f.index(p); ok {
		f.data[f.read()][i] = f.limit(v)
	}
}

// AddVec adds delta to the cell containing pos.
func (f *Vector) AddVec(pos, delta r2.Vec) {
	if i, ok := f.indexVec(pos); ok {
		buf := f.data[f.read()]
		buf[i] = f.limit(r2.Add(buf[i], delta))
	}
}

// Values returns the active buffer in row-major order. Callers must not modify it.
func (f *Vector) Values() []r2.Vec { return f.data[f.read()] }

// Update advances the field by dt. Each interior cell relaxes toward a blend
// of its 3x3 average (diffusion) and the strongest neighbour's magnitude
// pointed at that neighbour (advection), then decays and is length-limited.
func (f *Vector) Update(dt float64, run Runner) {
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
				self := cur[i]
				maxMag := r2.Norm(self)
				maxDir := UnitOrZero(self)
				var sum r2.Vec
				for _, o := range neighborhood {
					v := cur[i+o.Y*w+o.X]
					sum = r2.Add(sum, v)
					if m := r2.Norm(v); m > maxMag {
						maxMag = m
						maxDir = UnitOrZero(o.Vec())
					}
				}
				diffusion := r2.Scale(1.0/9, sum)
				advection := r2.Scale(maxMag, maxDir)
				target := Lerp(diffusion, advection, f.Blend)

				v := r2.Add(self, r2.Scale(k, r2.Sub(target, self)))
				next[i] = f.limit(r2.Scale(decay, v))
			}
		}
	})

	f.swap()
}
