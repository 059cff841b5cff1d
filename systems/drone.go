package systems

import (
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/Dasch0/hivemind-mirror/components"
	"github.com/Dasch0/hivemind-mirror/config"
	"github.com/Dasch0/hivemind-mirror/field"
	"github.com/Dasch0/hivemind-mirror/grid"
)

// DroneParams holds the steering coefficients shared by every drone.
type DroneParams struct {
	MoveSpeed        float64
	TurnSpeed        float64
	Chaos            float64
	ExploreThreshold float64
	DensityWeight    float64
	HomePull         float64
	WallAvoidance    float64
}

// DroneParamsFromConfig returns steering parameters from config.
func DroneParamsFromConfig(c config.DroneConfig) DroneParams {
	return DroneParams{
		MoveSpeed:        c.MoveSpeed,
		TurnSpeed:        c.TurnSpeed,
		Chaos:            c.Chaos,
		ExploreThreshold: c.ExploreThreshold,
		DensityWeight:    c.DensityWeight,
		HomePull:         c.HomePull,
		WallAvoidance:    c.WallAvoidance,
	}
}

// Env is the read-only world a drone senses during evaluation.
type Env struct {
	Grid   *grid.Grid
	Fields *Fields
}

func (e Env) kindAt(pos r2.Vec) (grid.Kind, bool) {
	c, ok := e.Grid.AtVec(pos)
	return c.Kind, ok
}

// DroneInput is the snapshot of one drone taken before evaluation.
type DroneInput struct {
	Pos   r2.Vec
	Drone components.Drone
	State components.DroneState
	Home  r2.Vec
}

// DroneOutput is the evaluated next state of one drone.
type DroneOutput struct {
	Pos   r2.Vec
	Drone components.Drone
	State components.DroneState
}

// NextState applies the drone transition table for the cell the drone stands on.
func NextState(s components.DroneState, cell grid.Kind, autonomous bool) components.DroneState {
	atColony := cell.Intersects(grid.ColonyAll)
	atFood := cell.Intersects(grid.HiveFood)

	switch s {
	case components.ToHome:
		if atColony {
			return components.Depositing
		}
	case components.ToHomeNoFood:
		if atColony {
			return components.Resting
		}
	case components.ToFood:
		if atFood {
			return components.Gathering
		}
		if autonomous {
			return components.Exploring
		}
	case components.Exploring:
		if !autonomous {
			return components.ToFood
		}
	case components.Gathering:
		if atFood {
			return components.ToHome
		}
		return components.ToHomeNoFood
	case components.Depositing, components.Resting:
		return components.ToFood
	}
	return s
}

// StepDrone evaluates one drone for one tick. It only reads env, so many
// drones can be stepped concurrently against the same snapshot.
func StepDrone(in DroneInput, env Env, p DroneParams, dt float64, rng *rand.Rand) DroneOutput {
	out := DroneOutput{Pos: in.Pos, Drone: in.Drone, State: in.State}
	if in.State == components.Dead {
		return out
	}

	cell, _ := env.kindAt(in.Pos)

	// Stuck inside a wall: back out along the reverse heading.
	if cell.Intersects(grid.Wall) {
		back := r2.Scale(-dt, in.Drone.Direction)
		out.Pos = r2.Add(out.Pos, back)
		if k, _ := env.kindAt(out.Pos); k.Intersects(grid.Wall) {
			out.Pos = r2.Add(out.Pos, r2.Scale(10, back))
			return out
		}
	}

	out.State = NextState(in.State, cell, in.Drone.Autonomous)

	f := env.Fields
	localDensity := r2.Scale(p.DensityWeight, f.Density.Grad(out.Pos))
	foodGrad := f.Food.Grad(out.Pos)

	var signal r2.Vec
	switch out.State {
	case components.ToHome, components.ToHomeNoFood:
		signal = r2.Scale(p.HomePull, r2.Sub(r2.Sub(in.Home, out.Pos), localDensity))
	case components.ToFood:
		signal = r2.Sub(r2.Sub(r2.Add(foodGrad, f.Attractor.AtVec(out.Pos)), f.Repellent.AtVec(out.Pos)), localDensity)
	case components.Exploring:
		signal = r2.Sub(foodGrad, localDensity)
	default:
		return out
	}

	switch out.State {
	case components.ToFood:
		out.Drone.Autonomous = r2.Norm(signal) < p.ExploreThreshold
	case components.Exploring:
		out.Drone.Autonomous = !(r2.Norm(foodGrad) > p.ExploreThreshold ||
			r2.Norm(f.Attractor.AtVec(out.Pos)) > p.ExploreThreshold)
	default:
		out.Drone.Autonomous = false
	}

	signal.X += jitter(rng, p.Chaos)
	signal.Y += jitter(rng, p.Chaos)
	signal = field.UnitOrZero(signal)

	candidate := r2.Scale(p.MoveSpeed, field.UnitOrZero(field.Lerp(in.Drone.Direction, signal, p.TurnSpeed)))

	// Look ahead one step and turn away from rising wall density.
	ahead := r2.Add(out.Pos, r2.Scale(dt, candidate))
	avoid := r2.Scale(-p.WallAvoidance, f.Wall.Grad(ahead))
	dir := r2.Scale(p.MoveSpeed, field.UnitOrZero(field.Lerp(candidate, avoid, p.TurnSpeed)))
	out.Drone.Direction = dir

	next := r2.Add(out.Pos, r2.Scale(dt, dir))
	k, ok := env.kindAt(next)
	switch {
	case !ok:
	case k.Intersects(grid.Wall):
		out.Drone.Direction = r2.Scale(-1, dir)
		out.Pos = r2.Add(out.Pos, r2.Scale(dt, out.Drone.Direction))
	default:
		out.Pos = next
	}
	return out
}

func jitter(rng *rand.Rand, chaos float64) float64 {
	if chaos <= 0 || rng == nil {
		return 0
	}
	return (rng.Float64()*2 - 1) * chaos
}
