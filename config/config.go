// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Fields    FieldsConfig    `yaml:"fields"`
	Drone     DroneConfig     `yaml:"drone"`
	Colony    ColonyConfig    `yaml:"colony"`
	Router    RouterConfig    `yaml:"router"`
	Player    PlayerConfig    `yaml:"player"`
	Parallel  ParallelConfig  `yaml:"parallel"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Observer  ObserverConfig  `yaml:"observer"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds grid dimensions and initial terrain rules.
type WorldConfig struct {
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	BorderTrees bool   `yaml:"border_trees"` // Fill empty border cells with trees on load
	FlowerMax   uint32 `yaml:"flower_max"`   // Quantity assigned to loaded and placed flowers
	TreeMax     uint32 `yaml:"tree_max"`     // Quantity assigned to loaded and placed trees
}

// PhysicsConfig holds the default time step.
type PhysicsConfig struct {
	DT float64 `yaml:"dt"`
}

// ScalarFieldConfig holds the parameters of one scalar field.
type ScalarFieldConfig struct {
	Min        float64 `yaml:"min"`
	Max        float64 `yaml:"max"`
	Decay      float64 `yaml:"decay"`       // Decay time constant in seconds
	UpdateRate float64 `yaml:"update_rate"` // Relaxation rate toward the diffused value
}

// VectorFieldConfig holds the parameters of one vector field.
type VectorFieldConfig struct {
	Decay        float64 `yaml:"decay"`
	MaxMagnitude float64 `yaml:"max_magnitude"`
	Blend        float64 `yaml:"blend"` // 0 = pure diffusion, 1 = pure advection
	UpdateRate   float64 `yaml:"update_rate"`
}

// FieldsConfig holds every field plus the classifier deposit amounts.
type FieldsConfig struct {
	Food      ScalarFieldConfig `yaml:"food"`
	Wall      ScalarFieldConfig `yaml:"wall"`
	Density   ScalarFieldConfig `yaml:"density"`
	Attractor VectorFieldConfig `yaml:"attractor"`
	Repellent VectorFieldConfig `yaml:"repellent"`

	FoodDeposit    float64 `yaml:"food_deposit"`    // Added per tick on food cells
	WallDeposit    float64 `yaml:"wall_deposit"`    // Added per tick on wall cells
	DensityDeposit float64 `yaml:"density_deposit"` // Added per drone per tick
}

// DroneConfig holds drone steering parameters.
type DroneConfig struct {
	MoveSpeed        float64 `yaml:"move_speed"`
	TurnSpeed        float64 `yaml:"turn_speed"`
	Chaos            float64 `yaml:"chaos"`
	ExploreThreshold float64 `yaml:"explore_threshold"`
	DensityWeight    float64 `yaml:"density_weight"` // Scale on the density gradient
	HomePull         float64 `yaml:"home_pull"`      // Scale on the home-bound signal
	WallAvoidance    float64 `yaml:"wall_avoidance"` // Scale on the look-ahead wall gradient
}

// ColonyLocation places one colony, as a fraction of the world size.
type ColonyLocation struct {
	Identity string  `yaml:"identity"` // c, m or y
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
}

// ColonyConfig holds colony lifecycle parameters.
type ColonyConfig struct {
	Starting        int              `yaml:"starting"`   // Drones spawned per colony at setup
	MaxDrones       int              `yaml:"max_drones"` // Per-colony spawn cap
	SpawnRate       float64          `yaml:"spawn_rate"` // Seconds between spawn clock firings
	DroneCost       uint32           `yaml:"drone_cost"`
	InitialResource uint32           `yaml:"initial_resource"`
	MaxResource     uint32           `yaml:"max_resource"` // Deposit cap
	Locations       []ColonyLocation `yaml:"locations"`
}

// RouterDelays holds the per-state delay before the next router evaluation.
type RouterDelays struct {
	Init       float64 `yaml:"init"`
	Search     float64 `yaml:"search"`
	RouteFound float64 `yaml:"route_found"`
	Route      float64 `yaml:"route"`
	Stopped    float64 `yaml:"stopped"`
	Error      float64 `yaml:"error"`
}

// RouterConfig holds router and outpost parameters.
type RouterConfig struct {
	StartDelay  float64      `yaml:"start_delay"` // Seconds before the first router appears (negative = never)
	X           float64      `yaml:"x"`           // First router position, fraction of width
	Y           float64      `yaml:"y"`           // First router position, fraction of height
	RouteClock  float64      `yaml:"route_clock"`
	GatherClock float64      `yaml:"gather_clock"`
	RouteDelay  float64      `yaml:"route_delay"` // Per-step wire placement stagger
	GatherRate  uint32       `yaml:"gather_rate"`
	Delays      RouterDelays `yaml:"delays"`
	MaxRetries  int          `yaml:"max_retries"`  // Consecutive errors before backoff (0 = no backoff)
	MaxCooldown float64      `yaml:"max_cooldown"` // Backoff cap in seconds
}

// PlayerConfig holds placement tool parameters.
type PlayerConfig struct {
	MaxAmmo      int       `yaml:"max_ammo"`
	ReloadPeriod float64   `yaml:"reload_period"`
	Speeds       []float64 `yaml:"speeds"` // Speed multipliers cycled by the speed toggle
}

// ParallelConfig holds worker pool parameters.
type ParallelConfig struct {
	Workers    int `yaml:"workers"`     // 0 = GOMAXPROCS
	DroneChunk int `yaml:"drone_chunk"` // Drones per work chunk
	RowChunk   int `yaml:"row_chunk"`   // Field rows per work chunk
	Threshold  int `yaml:"threshold"`   // Minimum items before work is dispatched to workers
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// ObserverConfig holds snapshot streaming parameters.
type ObserverConfig struct {
	PublishEvery int `yaml:"publish_every"` // Ticks between published frames
}

// Cell is an integer grid position computed from fractional config values.
type Cell struct {
	X, Y int
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	ColonyCells []Cell // Parallel to Colony.Locations
	RouterCell  Cell
	WorldCells  int
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in the file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ComputeDerived()

	return cfg, nil
}

// Validate reports configuration values the simulation cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.World.Width < 3 || c.World.Height < 3 {
		errs = append(errs, fmt.Errorf("world must be at least 3x3, got %dx%d", c.World.Width, c.World.Height))
	}
	if c.Colony.SpawnRate <= 0 {
		errs = append(errs, fmt.Errorf("colony.spawn_rate must be positive, got %v", c.Colony.SpawnRate))
	}
	if c.Router.RouteClock <= 0 || c.Router.GatherClock <= 0 {
		errs = append(errs, errors.New("router.route_clock and router.gather_clock must be positive"))
	}
	if c.Player.ReloadPeriod <= 0 {
		errs = append(errs, fmt.Errorf("player.reload_period must be positive, got %v", c.Player.ReloadPeriod))
	}
	seen := make(map[string]bool, len(c.Colony.Locations))
	for _, loc := range c.Colony.Locations {
		id := strings.ToLower(loc.Identity)
		switch id {
		case "c", "m", "y":
		default:
			errs = append(errs, fmt.Errorf("colony identity %q is not one of c, m, y", loc.Identity))
		}
		if seen[id] {
			errs = append(errs, fmt.Errorf("colony identity %q listed twice", loc.Identity))
		}
		seen[id] = true
	}
	return errors.Join(errs...)
}

// ComputeDerived recalculates values derived from the loaded config. Call it
// again after changing world size or fractional locations in code.
func (c *Config) ComputeDerived() {
	w, h := c.World.Width, c.World.Height
	c.Derived.WorldCells = w * h

	c.Derived.ColonyCells = make([]Cell, len(c.Colony.Locations))
	for i, loc := range c.Colony.Locations {
		c.Derived.ColonyCells[i] = fractionToCell(loc.X, loc.Y, w, h)
	}
	c.Derived.RouterCell = fractionToCell(c.Router.X, c.Router.Y, w, h)
}

// fractionToCell maps fractional coordinates onto a cell, clamped inside the border ring.
func fractionToCell(fx, fy float64, w, h int) Cell {
	clampAxis := func(f float64, n int) int {
		v := int(math.Floor(f * float64(n)))
		return max(1, min(v, n-2))
	}
	return Cell{X: clampAxis(fx, w), Y: clampAxis(fy, h)}
}

// Bytes returns the configuration as YAML.
func (c *Config) Bytes() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := c.Bytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
