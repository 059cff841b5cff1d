package main

import (
	"math"
	"slices"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/Dasch0/hivemind-mirror/config"
	"github.com/Dasch0/hivemind-mirror/game"
	"github.com/Dasch0/hivemind-mirror/grid"
	"github.com/Dasch0/hivemind-mirror/telemetry"
)

// statsWindowSec is the stats window length used for quality scoring.
const statsWindowSec = 10.0

// FitnessEvaluator scores a parameter vector by running one headless game
// per seed. Lower fitness is better.
type FitnessEvaluator struct {
	params   *ParamVector
	maxTicks int64
	seeds    []int64
	base     *config.Config
	world    *grid.Grid // cloned per run; nil = empty world

	mu          sync.Mutex
	bestFitness float64
	bestWindows []telemetry.WindowStats
	lastQuality float64
}

// NewFitnessEvaluator returns an evaluator running every seed for at most
// maxTicks ticks on a clone of world.
func NewFitnessEvaluator(params *ParamVector, maxTicks int64, seeds []int64, baseCfg *config.Config, world *grid.Grid) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		base:        baseCfg,
		world:       world,
		bestFitness: math.Inf(1),
	}
}

// BestWindows returns the stats windows of the best seed of the best
// evaluation so far.
func (fe *FitnessEvaluator) BestWindows() []telemetry.WindowStats {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestWindows
}

// LastQuality returns the mean quality of the latest evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// outcome is the result of one seeded run.
type outcome struct {
	ticks   int64 // ticks until the first colony died, or the cap
	windows []telemetry.WindowStats
	err     error
}

// fitness is -(ticks * (1 + 0.2*quality)). Survival dominates; quality
// separates runs that all reach the cap. Failed runs score 0.
func (o outcome) fitness() float64 {
	if o.err != nil {
		return 0
	}
	return -float64(o.ticks) * (1 + 0.2*quality(o.windows))
}

// Evaluate runs every seed in parallel and returns the mean fitness.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	runs := make([]outcome, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runs[i] = fe.run(x, seed)
		}()
	}
	wg.Wait()

	fitness := make([]float64, len(runs))
	qualities := make([]float64, len(runs))
	for i, r := range runs {
		fitness[i] = r.fitness()
		qualities[i] = quality(r.windows)
	}
	mean := stat.Mean(fitness, nil)
	best := runs[slices.Index(fitness, slices.Min(fitness))]

	fe.mu.Lock()
	defer fe.mu.Unlock()
	if mean < fe.bestFitness {
		fe.bestFitness = mean
		fe.bestWindows = best.windows
	}
	fe.lastQuality = stat.Mean(qualities, nil)
	return mean
}

// run plays one game until the first colony dies or the tick cap.
func (fe *FitnessEvaluator) run(x []float64, seed int64) outcome {
	// Shallow copy: only scalar drone fields are tuned, slices stay shared.
	cfg := *fe.base
	fe.params.ApplyToConfig(&cfg, x)

	var world *grid.Grid
	if fe.world != nil {
		world = fe.world.Clone()
	}

	var out outcome
	g, err := game.New(&cfg, world, game.Options{
		Seed:           seed,
		StatsWindowSec: statsWindowSec,
		StatsCallback: func(s telemetry.WindowStats) {
			out.windows = append(out.windows, s)
		},
	})
	if err != nil {
		out.err = err
		return out
	}
	defer g.Close()

	for g.TickCount() < fe.maxTicks && !g.GameOver() {
		g.Tick(cfg.Physics.DT)
	}
	out.ticks = g.TickCount()
	return out
}

// Quality weights and shape.
const (
	weightDeposit   = 0.4
	weightStability = 0.3
	weightForaging  = 0.3

	warmupWindows    = 1
	depositsPerDrone = 2.0
)

// quality scores a run in [0, 1] from its stats windows: deposit throughput
// per drone, stability of the weakest colony's reserve, and the share of
// drones on a foraging errand. Warmup windows and windows without drones
// are ignored.
func quality(windows []telemetry.WindowStats) float64 {
	if len(windows) <= warmupWindows {
		return 0
	}

	var deposit, foraging []float64
	var weakest []float64
	for _, w := range windows[warmupWindows:] {
		if w.Drones == 0 || w.Colonies == 0 {
			continue
		}
		drones := float64(w.Drones)
		deposit = append(deposit, 1-math.Exp(-float64(w.Deposited)/drones/depositsPerDrone))
		busy := w.ToHome + w.ToFood + w.Gathering + w.Depositing
		foraging = append(foraging, float64(busy)/drones)
		weakest = append(weakest, w.ColonyMin)
	}
	if len(deposit) == 0 {
		return 0
	}

	stability := 0.0
	if len(weakest) >= 2 {
		c := cv(weakest)
		stability = math.Exp(-c * c)
	}

	q := weightDeposit*stat.Mean(deposit, nil) +
		weightStability*stability +
		weightForaging*stat.Mean(foraging, nil)
	return min(max(q, 0), 1)
}

// cv is the coefficient of variation, 0 for an empty or zero-mean sample.
func cv(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	if mean == 0 {
		return 0
	}
	return std / mean
}
