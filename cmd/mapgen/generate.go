package main

import (
	"github.com/ojrac/opensimplex-go"

	"github.com/Dasch0/hivemind-mirror/config"
	"github.com/Dasch0/hivemind-mirror/grid"
)

// TerrainParams holds the FBM parameters and the thresholds that turn noise
// into terrain.
type TerrainParams struct {
	Seed       int64
	Scale      float64 // base noise frequency, in features per world width
	Octaves    int
	Lacunarity float64
	Gain       float64

	TreeAbove    float64 // elevation above which cells become trees
	VolcanoAbove float64 // elevation above which cells become volcanoes
	FlowerAbove  float64 // fertility above which low ground becomes flowers
	ClearRadius  int     // cells kept empty around colonies and the router
}

// DefaultTerrainParams returns parameters that give scattered flower patches
// between tree ridges.
func DefaultTerrainParams() TerrainParams {
	return TerrainParams{
		Seed:         1,
		Scale:        4,
		Octaves:      4,
		Lacunarity:   2,
		Gain:         0.5,
		TreeAbove:    0.68,
		VolcanoAbove: 0.8,
		FlowerAbove:  0.62,
		ClearRadius:  3,
	}
}

// fbm sums octaves of normalized noise and rescales the result to [0, 1].
func fbm(n opensimplex.Noise, x, y float64, p TerrainParams) float64 {
	var sum, norm float64
	amp, freq := 1.0, 1.0
	for range max(p.Octaves, 1) {
		sum += amp * n.Eval2(x*freq, y*freq)
		norm += amp
		amp *= p.Gain
		freq *= p.Lacunarity
	}
	return sum / norm
}

// Generate builds a terrain grid for cfg's world size. Colony and router
// cells and their surroundings stay empty so the colonies can start.
func Generate(cfg *config.Config, p TerrainParams) (*grid.Grid, error) {
	g, err := grid.New(cfg.World.Width, cfg.World.Height)
	if err != nil {
		return nil, err
	}

	elevation := opensimplex.NewNormalized(p.Seed)
	fertility := opensimplex.NewNormalized(p.Seed + 1)

	keep := make([]grid.Point, 0, len(cfg.Derived.ColonyCells)+1)
	for _, c := range cfg.Derived.ColonyCells {
		keep = append(keep, grid.Point{X: c.X, Y: c.Y})
	}
	keep = append(keep, grid.Point{X: cfg.Derived.RouterCell.X, Y: cfg.Derived.RouterCell.Y})

	w, h := float64(g.Width()), float64(g.Height())
	g.Each(func(pt grid.Point, _ grid.Cell) {
		if nearAny(pt, keep, p.ClearRadius) {
			return
		}
		x := float64(pt.X) / w * p.Scale
		y := float64(pt.Y) / h * p.Scale

		var c grid.Cell
		switch e := fbm(elevation, x, y, p); {
		case e > p.VolcanoAbove:
			c = grid.NewCell(grid.Volcano, 0)
		case e > p.TreeAbove:
			c = grid.NewCell(grid.Tree, cfg.World.TreeMax)
		case fbm(fertility, x*2, y*2, p) > p.FlowerAbove:
			c = grid.NewCell(grid.Flower, cfg.World.FlowerMax)
		default:
			return
		}
		g.Set(pt, c)
	})

	if cfg.World.BorderTrees {
		g.ApplyTerrainDefaults(cfg.World.FlowerMax, cfg.World.TreeMax, true)
	}
	return g, nil
}

func nearAny(p grid.Point, anchors []grid.Point, r int) bool {
	for _, a := range anchors {
		d := p.Sub(a)
		if d.X >= -r && d.X <= r && d.Y >= -r && d.Y <= r {
			return true
		}
	}
	return false
}
