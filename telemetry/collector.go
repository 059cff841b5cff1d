package telemetry

import "github.com/Dasch0/hivemind-mirror/components"

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int64
	dt                  float64

	// Current window tracking
	windowStartTick int64

	// Event counters for current window
	spawned      int
	gathered     int
	deposited    int
	extinctions  int
	pings        int
	wires        int
	outposts     int
	routerSpawns int
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := int64(1)
	if dt > 0 {
		ticksPerWindow = max(int64(windowDurationSec/dt), 1)
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// RecordSpawn records a drone spawned by a colony.
func (c *Collector) RecordSpawn() { c.spawned++ }

// RecordGather records one unit of food taken from the grid.
func (c *Collector) RecordGather() { c.gathered++ }

// RecordDeposit records one unit of food delivered to a colony.
func (c *Collector) RecordDeposit() { c.deposited++ }

// RecordExtinction records a colony destroyed for lack of resources.
func (c *Collector) RecordExtinction() { c.extinctions++ }

// RecordPing records a router search step.
func (c *Collector) RecordPing() { c.pings++ }

// RecordWire records a wire placement.
func (c *Collector) RecordWire() { c.wires++ }

// RecordOutpost records a new outpost.
func (c *Collector) RecordOutpost() { c.outposts++ }

// RecordRouterSpawn records a new router joining the network.
func (c *Collector) RecordRouterSpawn() { c.routerSpawns++ }

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int64) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Sample is the world state measured at the end of a window.
type Sample struct {
	States        []components.DroneState
	Autonomous    int
	HomeDistances []float64

	ColonyResources []float64

	Routers, Outposts, Wires int

	Food    []float64
	Density []float64
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int64, s Sample) WindowStats {
	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Drones: len(s.States),

		Colonies: len(s.ColonyResources),

		Spawned:      c.spawned,
		Gathered:     c.gathered,
		Deposited:    c.deposited,
		Extinctions:  c.extinctions,
		Pings:        c.pings,
		WiresPlaced:  c.wires,
		NewOutposts:  c.outposts,
		RouterSpawns: c.routerSpawns,

		Routers:  s.Routers,
		Outposts: s.Outposts,
		Wires:    s.Wires,
	}

	for _, st := range s.States {
		switch st {
		case components.ToHome:
			stats.ToHome++
		case components.ToHomeNoFood:
			stats.ToHomeNoFood++
		case components.ToFood:
			stats.ToFood++
		case components.Exploring:
			stats.Exploring++
		case components.Gathering:
			stats.Gathering++
		case components.Depositing:
			stats.Depositing++
		case components.Resting:
			stats.Resting++
		case components.Dead:
			stats.Dead++
		}
	}
	if len(s.States) > 0 {
		stats.Autonomous = float64(s.Autonomous) / float64(len(s.States))
	}

	stats.HomeDistMean, stats.HomeDistStd, stats.HomeDistP50, stats.HomeDistP90 = ComputeDistribution(s.HomeDistances)

	if len(s.ColonyResources) > 0 {
		stats.ColonyResources, stats.ColonyMin = floatsSumMin(s.ColonyResources)
	}

	stats.FoodMass, stats.FoodPeak = FieldMass(s.Food)
	stats.DensityMass, stats.DensityPeak = FieldMass(s.Density)

	// Reset for next window
	c.windowStartTick = currentTick
	c.spawned = 0
	c.gathered = 0
	c.deposited = 0
	c.extinctions = 0
	c.pings = 0
	c.wires = 0
	c.outposts = 0
	c.routerSpawns = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int64 {
	return c.windowDurationTicks
}
