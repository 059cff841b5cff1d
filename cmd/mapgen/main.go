// Command mapgen writes a noise-generated starting map for the simulation.
//
// Usage: go run ./cmd/mapgen -out maps/ridges.yaml.zst -seed 7
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/Dasch0/hivemind-mirror/config"
	"github.com/Dasch0/hivemind-mirror/grid"
)

func main() {
	def := DefaultTerrainParams()

	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	out := flag.String("out", "map.yaml", "Output map file (.zst suffix compresses)")
	width := flag.Int("width", 0, "World width (0 = use config)")
	height := flag.Int("height", 0, "World height (0 = use config)")
	seed := flag.Int64("seed", def.Seed, "Noise seed")
	scale := flag.Float64("scale", def.Scale, "Base noise frequency")
	octaves := flag.Int("octaves", def.Octaves, "FBM octaves")
	lacunarity := flag.Float64("lacunarity", def.Lacunarity, "FBM frequency multiplier per octave")
	gain := flag.Float64("gain", def.Gain, "FBM amplitude multiplier per octave")
	trees := flag.Float64("trees", def.TreeAbove, "Elevation threshold for trees")
	volcanoes := flag.Float64("volcanoes", def.VolcanoAbove, "Elevation threshold for volcanoes")
	flowers := flag.Float64("flowers", def.FlowerAbove, "Fertility threshold for flowers")
	clearRadius := flag.Int("clear", def.ClearRadius, "Empty radius around colonies and the router")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *width > 0 || *height > 0 {
		if *width > 0 {
			cfg.World.Width = *width
		}
		if *height > 0 {
			cfg.World.Height = *height
		}
		cfg.ComputeDerived()
	}

	g, err := Generate(cfg, TerrainParams{
		Seed:         *seed,
		Scale:        *scale,
		Octaves:      *octaves,
		Lacunarity:   *lacunarity,
		Gain:         *gain,
		TreeAbove:    *trees,
		VolcanoAbove: *volcanoes,
		FlowerAbove:  *flowers,
		ClearRadius:  *clearRadius,
	})
	if err != nil {
		slog.Error("failed to generate map", "error", err)
		os.Exit(1)
	}

	if err := g.SaveFile(*out); err != nil {
		slog.Error("failed to save map", "path", *out, "error", err)
		os.Exit(1)
	}
	slog.Info("map written",
		"path", *out,
		"width", g.Width(),
		"height", g.Height(),
		"flowers", g.Count(grid.Flower),
		"trees", g.Count(grid.Tree),
		"volcanoes", g.Count(grid.Volcano),
	)
}
