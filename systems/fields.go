// Package systems contains the simulation systems: field classifiers, drone
// behavior, colony and outpost lifecycles, and the router state machine.
package systems

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/Dasch0/hivemind-mirror/components"
	"github.com/Dasch0/hivemind-mirror/config"
	"github.com/Dasch0/hivemind-mirror/field"
	"github.com/Dasch0/hivemind-mirror/grid"
)

// Fields bundles the pheromone fields drones read and write.
type Fields struct {
	Food      *field.Scalar
	Wall      *field.Scalar
	Density   *field.Scalar
	Attractor *field.Vector
	Repellent *field.Vector

	FoodDeposit    float64
	WallDeposit    float64
	DensityDeposit float64
}

func scalarParams(c config.ScalarFieldConfig) field.ScalarParams {
	return field.ScalarParams{Min: c.Min, Max: c.Max, Decay: c.Decay, UpdateRate: c.UpdateRate}
}

func vectorParams(c config.VectorFieldConfig) field.VectorParams {
	return field.VectorParams{Decay: c.Decay, MaxMagnitude: c.MaxMagnitude, Blend: c.Blend, UpdateRate: c.UpdateRate}
}

// NewFields allocates every field for a width x height world.
func NewFields(width, height int, cfg config.FieldsConfig) *Fields {
	return &Fields{
		Food:           field.NewScalar(width, height, scalarParams(cfg.Food)),
		Wall:           field.NewScalar(width, height, scalarParams(cfg.Wall)),
		Density:        field.NewScalar(width, height, scalarParams(cfg.Density)),
		Attractor:      field.NewVector(width, height, vectorParams(cfg.Attractor)),
		Repellent:      field.NewVector(width, height, vectorParams(cfg.Repellent)),
		FoodDeposit:    cfg.FoodDeposit,
		WallDeposit:    cfg.WallDeposit,
		DensityDeposit: cfg.DensityDeposit,
	}
}

// Update diffuses every field by dt.
func (f *Fields) Update(dt float64, run field.Runner) {
	f.Food.Update(dt, run)
	f.Wall.Update(dt, run)
	f.Density.Update(dt, run)
	f.Attractor.Update(dt, run)
	f.Repellent.Update(dt, run)
}

// Classify mirrors grid terrain into the fields: food cells emit food and
// clear wall, wall cells emit wall and clear everything else, colony cells
// clear wall.
func (f *Fields) Classify(g *grid.Grid) {
	g.Each(func(p grid.Point, c grid.Cell) {
		switch {
		case c.Kind.Intersects(grid.HiveFood):
			f.Food.Add(p, f.FoodDeposit)
			f.Wall.Set(p, 0)
		case c.Kind.Intersects(grid.Wall):
			f.Wall.Add(p, f.WallDeposit)
			f.Food.Set(p, 0)
			f.Attractor.Set(p, r2.Vec{})
			f.Repellent.Set(p, r2.Vec{})
		}
		if c.Kind.Intersects(grid.ColonyAll) {
			f.Wall.Set(p, 0)
		}
	})
}

// DepositTrail pushes one drone's feedback into the fields. Drones carrying
// food lay an attractor trail pointing back the way they came; drones coming
// home empty lay a repellent along their heading. Every drone adds density.
func (f *Fields) DepositTrail(pos r2.Vec, state components.DroneState, dir r2.Vec) {
	switch state {
	case components.ToHome:
		f.Attractor.AddVec(pos, r2.Scale(-1, dir))
	case components.ToHomeNoFood:
		f.Repellent.AddVec(pos, dir)
	}
	f.Density.AddVec(pos, f.DensityDeposit)
}
