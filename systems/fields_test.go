package systems

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/Dasch0/hivemind-mirror/components"
	"github.com/Dasch0/hivemind-mirror/grid"
)

func TestClassify(t *testing.T) {
	env := testEnv(t, 6, 6)
	f, g := env.Fields, env.Grid
	flower := grid.Point{X: 1, Y: 1}
	tree := grid.Point{X: 2, Y: 1}
	colony := grid.Point{X: 3, Y: 3}
	g.Set(flower, grid.NewCell(grid.Flower, 10))
	g.Set(tree, grid.NewCell(grid.Tree, 10))
	g.Set(colony, grid.NewCell(grid.ColonyM, 10))

	f.Attractor.Set(tree, r2.Vec{X: 1})
	f.Wall.Set(colony, 5)
	f.Classify(g)

	if got, want := f.Food.At(flower), f.Food.Min+f.FoodDeposit; got != min(want, f.Food.Max) {
		t.Errorf("food at flower = %v, want %v", got, want)
	}
	if got := f.Wall.At(flower); got != f.Wall.Min {
		t.Errorf("wall at flower = %v, want min", got)
	}
	if got, want := f.Wall.At(tree), f.Wall.Min+f.WallDeposit; got != want {
		t.Errorf("wall at tree = %v, want %v", got, want)
	}
	if got := f.Attractor.At(tree); got != (r2.Vec{}) {
		t.Errorf("attractor at tree = %v, want zero", got)
	}
	if got := f.Wall.At(colony); got != f.Wall.Min {
		t.Errorf("wall at colony = %v, want min", got)
	}
}

func TestDepositTrail(t *testing.T) {
	env := testEnv(t, 6, 6)
	f := env.Fields
	pos := r2.Vec{X: 2.5, Y: 2.5}
	cell := grid.Point{X: 2, Y: 2}
	dir := r2.Vec{X: 1}

	before := f.Density.At(cell)
	f.DepositTrail(pos, components.ToHome, dir)
	if got := f.Attractor.At(cell); got != (r2.Vec{X: -1}) {
		t.Errorf("attractor = %v, want (-1,0)", got)
	}
	if got := f.Density.At(cell); got <= before {
		t.Errorf("density did not increase: %v -> %v", before, got)
	}

	f.DepositTrail(pos, components.ToHomeNoFood, dir)
	if got := f.Repellent.At(cell); got != dir {
		t.Errorf("repellent = %v, want %v", got, dir)
	}

	f.DepositTrail(pos, components.Exploring, dir)
	if got := f.Attractor.At(cell); got != (r2.Vec{X: -1}) {
		t.Errorf("exploring drone changed attractor: %v", got)
	}
}

func TestGatherAndDeposit(t *testing.T) {
	g := grid.MustNew(4, 4)
	food := grid.Point{X: 1, Y: 1}
	home := grid.Point{X: 2, Y: 2}
	g.Set(food, grid.NewCell(grid.Flower, 1))
	g.Set(home, grid.NewCell(grid.ColonyY, 999))

	if q, ok := Gather(g, food); !ok || q != 0 {
		t.Fatalf("Gather = (%d, %v), want (0, true)", q, ok)
	}
	if q, ok := Gather(g, food); !ok || q != 0 || g.KindAt(food) != grid.Empty {
		t.Fatalf("second Gather = (%d, %v) kind %v, want flower cleared", q, ok, g.KindAt(food))
	}
	if _, ok := Gather(g, food); ok {
		t.Error("gathering from an empty cell changed it")
	}

	if q, ok := Deposit(g, home, 1000); !ok || q != 1000 {
		t.Fatalf("Deposit = (%d, %v), want (1000, true)", q, ok)
	}
	if q, ok := Deposit(g, home, 1000); ok || q != 1000 {
		t.Errorf("Deposit past limit = (%d, %v)", q, ok)
	}
	if _, ok := Deposit(g, grid.Point{X: 9, Y: 9}, 1000); ok {
		t.Error("deposit outside the grid")
	}
}
