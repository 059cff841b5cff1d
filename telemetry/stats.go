package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int64   `csv:"-"`
	WindowEndTick   int64   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Drone population at window end
	Drones       int     `csv:"drones"`
	ToHome       int     `csv:"to_home"`
	ToHomeNoFood int     `csv:"to_home_no_food"`
	ToFood       int     `csv:"to_food"`
	Exploring    int     `csv:"exploring"`
	Gathering    int     `csv:"gathering"`
	Depositing   int     `csv:"depositing"`
	Resting      int     `csv:"resting"`
	Dead         int     `csv:"dead"`
	Autonomous   float64 `csv:"autonomous_frac"`

	// Distance from home anchor (sampled at window end)
	HomeDistMean float64 `csv:"home_dist_mean"`
	HomeDistStd  float64 `csv:"home_dist_std"`
	HomeDistP50  float64 `csv:"home_dist_p50"`
	HomeDistP90  float64 `csv:"home_dist_p90"`

	// Colonies
	Colonies        int     `csv:"colonies"`
	ColonyResources float64 `csv:"colony_resources"`
	ColonyMin       float64 `csv:"colony_min"`

	// Events during window
	Spawned      int `csv:"spawned"`
	Gathered     int `csv:"gathered"`
	Deposited    int `csv:"deposited"`
	Extinctions  int `csv:"extinctions"`
	Pings        int `csv:"pings"`
	WiresPlaced  int `csv:"wires_placed"`
	NewOutposts  int `csv:"new_outposts"`
	RouterSpawns int `csv:"router_spawns"`

	// Network at window end
	Routers  int `csv:"routers"`
	Outposts int `csv:"outposts"`
	Wires    int `csv:"wires"`

	// Field mass
	FoodMass    float64 `csv:"food_mass"`
	FoodPeak    float64 `csv:"food_peak"`
	DensityMass float64 `csv:"density_mass"`
	DensityPeak float64 `csv:"density_peak"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeDistribution returns the population mean, standard deviation and
// median/p90 of values.
func ComputeDistribution(values []float64) (mean, std, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}
	mean, std = stat.PopMeanStdDev(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return mean, std, Percentile(sorted, 0.50), Percentile(sorted, 0.90)
}

// FieldMass returns the sum and maximum of a field buffer.
func FieldMass(values []float64) (sum, peak float64) {
	if len(values) == 0 {
		return 0, 0
	}
	return floats.Sum(values), floats.Max(values)
}

func floatsSumMin(values []float64) (sum, least float64) {
	return floats.Sum(values), floats.Min(values)
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartTick),
		slog.Int64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("drones", s.Drones),
		slog.Int("to_home", s.ToHome),
		slog.Int("to_home_no_food", s.ToHomeNoFood),
		slog.Int("to_food", s.ToFood),
		slog.Int("exploring", s.Exploring),
		slog.Int("gathering", s.Gathering),
		slog.Int("depositing", s.Depositing),
		slog.Int("resting", s.Resting),
		slog.Int("dead", s.Dead),
		slog.Float64("autonomous_frac", s.Autonomous),
		slog.Float64("home_dist_mean", s.HomeDistMean),
		slog.Float64("home_dist_std", s.HomeDistStd),
		slog.Float64("home_dist_p50", s.HomeDistP50),
		slog.Float64("home_dist_p90", s.HomeDistP90),
		slog.Int("colonies", s.Colonies),
		slog.Float64("colony_resources", s.ColonyResources),
		slog.Float64("colony_min", s.ColonyMin),
		slog.Int("spawned", s.Spawned),
		slog.Int("gathered", s.Gathered),
		slog.Int("deposited", s.Deposited),
		slog.Int("extinctions", s.Extinctions),
		slog.Int("pings", s.Pings),
		slog.Int("wires_placed", s.WiresPlaced),
		slog.Int("new_outposts", s.NewOutposts),
		slog.Int("router_spawns", s.RouterSpawns),
		slog.Int("routers", s.Routers),
		slog.Int("outposts", s.Outposts),
		slog.Int("wires", s.Wires),
		slog.Float64("food_mass", s.FoodMass),
		slog.Float64("food_peak", s.FoodPeak),
		slog.Float64("density_mass", s.DensityMass),
		slog.Float64("density_peak", s.DensityPeak),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"drones", s.Drones,
		"to_home", s.ToHome,
		"to_food", s.ToFood,
		"exploring", s.Exploring,
		"gathering", s.Gathering,
		"depositing", s.Depositing,
		"autonomous_frac", s.Autonomous,
		"home_dist_mean", s.HomeDistMean,
		"colonies", s.Colonies,
		"colony_resources", s.ColonyResources,
		"spawned", s.Spawned,
		"gathered", s.Gathered,
		"deposited", s.Deposited,
		"extinctions", s.Extinctions,
		"routers", s.Routers,
		"outposts", s.Outposts,
		"wires", s.Wires,
		"food_mass", s.FoodMass,
	)
}
