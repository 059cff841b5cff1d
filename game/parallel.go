package game

import (
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/Dasch0/hivemind-mirror/components"
	"github.com/Dasch0/hivemind-mirror/parallel"
	"github.com/Dasch0/hivemind-mirror/systems"
)

// rowRunner dispatches field rows to the pool with the configured chunk size.
type rowRunner struct {
	pool  *parallel.Pool
	chunk int // 0 = keep the field's default
}

func (r rowRunner) Run(n, chunk int, fn func(lo, hi int)) {
	if r.chunk > 0 {
		chunk = r.chunk
	}
	r.pool.Run(n, chunk, fn)
}

// droneBuffers holds the reusable snapshot and intent slices for the drone phase.
type droneBuffers struct {
	entities []ecs.Entity
	inputs   []systems.DroneInput
	outputs  []systems.DroneOutput
}

// chunkSeed mixes the run seed, tick and chunk index into one RNG seed, so a
// chunk draws the same numbers regardless of which worker runs it.
func chunkSeed(seed, tick int64, chunk int) int64 {
	x := uint64(seed)
	x ^= uint64(tick) * 0x9E3779B97F4A7C15
	x ^= uint64(chunk) * 0xBF58476D1CE4E5B9
	x ^= x >> 31
	x *= 0x94D049BB133111EB
	x ^= x >> 29
	return int64(x)
}

// updateDrones evaluates every drone against a frozen view of the world.
func (g *Game) updateDrones(dt float64) {
	b := &g.drones

	// Phase A: snapshot (serial)
	b.entities = b.entities[:0]
	b.inputs = b.inputs[:0]
	query := g.droneFilter.Query()
	for query.Next() {
		pos, drone, state, colonist, _ := query.Get()
		b.entities = append(b.entities, query.Entity())
		b.inputs = append(b.inputs, systems.DroneInput{
			Pos:   pos.Vec(),
			Drone: *drone,
			State: *state,
			Home:  colonist.Home,
		})
	}

	n := len(b.inputs)
	if n == 0 {
		return
	}
	if cap(b.outputs) < n {
		b.outputs = make([]systems.DroneOutput, n, n*2)
	}
	b.outputs = b.outputs[:n]

	// Phase B: compute (parallel, read-only)
	env := systems.Env{Grid: g.grid, Fields: g.fields}
	chunk := g.droneChunk
	g.pool.Run(n, chunk, func(lo, hi int) {
		rng := rand.New(rand.NewSource(chunkSeed(g.seed, g.tick, lo/chunk)))
		for i := lo; i < hi; i++ {
			b.outputs[i] = systems.StepDrone(b.inputs[i], env, g.droneParams, dt, rng)
		}
	})

	// Phase C: apply (serial)
	for i, e := range b.entities {
		out := b.outputs[i]
		*g.posMap.Get(e) = components.PositionOf(out.Pos)
		*g.droneMap.Get(e) = out.Drone
		*g.stateMap.Get(e) = out.State
	}
}
