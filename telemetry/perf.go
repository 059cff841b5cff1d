package telemetry

import (
	"log/slog"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Phase names for the simulation step.
const (
	PhaseCommands  = "commands"
	PhaseClassify  = "classify"
	PhaseDiffuse   = "diffuse"
	PhaseDrones    = "drones"
	PhaseFeedback  = "feedback"
	PhaseClocks    = "clocks"
	PhaseTelemetry = "telemetry"
)

// Phases lists every phase in execution order.
var Phases = []string{
	PhaseCommands, PhaseClassify, PhaseDiffuse, PhaseDrones,
	PhaseFeedback, PhaseClocks, PhaseTelemetry,
}

// perfTick is one ring slot: total tick time plus time per phase slot.
type perfTick struct {
	total  time.Duration
	phases []time.Duration
}

// PerfCollector keeps per-phase tick timings over a ring of recent ticks.
// Phase names are mapped to slots on first use, so a tick allocates nothing
// once every phase has been seen.
type PerfCollector struct {
	ring  []perfTick
	next  int
	count int

	slots map[string]int
	names []string

	cur        perfTick
	tickStart  time.Time
	phaseStart time.Time
	phase      int // current slot, -1 outside a phase
}

// NewPerfCollector creates a collector averaging over windowSize ticks.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	p := &PerfCollector{
		ring:  make([]perfTick, windowSize),
		slots: make(map[string]int, len(Phases)),
		phase: -1,
	}
	for _, name := range Phases {
		p.slot(name)
	}
	return p
}

func (p *PerfCollector) slot(name string) int {
	if i, ok := p.slots[name]; ok {
		return i
	}
	i := len(p.names)
	p.slots[name] = i
	p.names = append(p.names, name)
	return i
}

// StartTick begins timing a new simulation tick.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.phase = -1
	p.cur.phases = p.cur.phases[:0]
	for range p.names {
		p.cur.phases = append(p.cur.phases, 0)
	}
}

// StartPhase closes the running phase, if any, and starts timing phase.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	p.closePhase(now)
	p.phase = p.slot(phase)
	for len(p.cur.phases) <= p.phase {
		p.cur.phases = append(p.cur.phases, 0)
	}
	p.phaseStart = now
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.phase >= 0 {
		p.cur.phases[p.phase] += now.Sub(p.phaseStart)
	}
}

// EndTick closes the running phase and stores the tick in the ring.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	p.closePhase(now)
	p.phase = -1
	p.cur.total = now.Sub(p.tickStart)

	dst := &p.ring[p.next]
	dst.total = p.cur.total
	dst.phases = append(dst.phases[:0], p.cur.phases...)

	p.next = (p.next + 1) % len(p.ring)
	p.count = min(p.count+1, len(p.ring))
}

// PerfStats summarizes the ticks currently in the window.
type PerfStats struct {
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration
	P95TickDuration time.Duration

	PhaseAvg map[string]time.Duration // mean time per phase
	PhasePct map[string]float64       // share of the mean tick, in percent

	TicksPerSecond float64
}

// Stats computes the window summary.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{
		PhaseAvg: make(map[string]time.Duration),
		PhasePct: make(map[string]float64),
	}
	if p.count == 0 {
		return s
	}

	ticks := make([]float64, p.count)
	sums := make([]time.Duration, len(p.names))
	for i, t := range p.ring[:p.count] {
		ticks[i] = float64(t.total)
		for j, d := range t.phases {
			sums[j] += d
		}
	}
	slices.Sort(ticks)

	n := time.Duration(p.count)
	s.AvgTickDuration = time.Duration(stat.Mean(ticks, nil))
	s.MinTickDuration = time.Duration(ticks[0])
	s.MaxTickDuration = time.Duration(ticks[len(ticks)-1])
	s.P95TickDuration = time.Duration(stat.Quantile(0.95, stat.Empirical, ticks, nil))

	for j, sum := range sums {
		if sum == 0 {
			continue
		}
		name := p.names[j]
		s.PhaseAvg[name] = sum / n
		if s.AvgTickDuration > 0 {
			s.PhasePct[name] = float64(s.PhaseAvg[name]) / float64(s.AvgTickDuration) * 100
		}
	}
	if s.AvgTickDuration > 0 {
		s.TicksPerSecond = float64(time.Second) / float64(s.AvgTickDuration)
	}
	return s
}

// LogStats logs the summary, listing phases above 0.1% of the tick.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_tick_us", s.AvgTickDuration.Microseconds(),
		"p95_tick_us", s.P95TickDuration.Microseconds(),
		"max_tick_us", s.MaxTickDuration.Microseconds(),
		"ticks_per_sec", int(s.TicksPerSecond),
	}
	for _, phase := range Phases {
		if pct := s.PhasePct[phase]; pct > 0.1 {
			attrs = append(attrs, phase+"_pct", float64(int(pct*10))/10)
		}
	}
	slog.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("min_tick_us", s.MinTickDuration.Microseconds()),
		slog.Int64("p95_tick_us", s.P95TickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
	}
	for _, phase := range Phases {
		if pct, ok := s.PhasePct[phase]; ok {
			attrs = append(attrs, slog.Float64(phase+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is one perf.csv row.
type PerfStatsCSV struct {
	WindowEnd    int64   `csv:"window_end"`
	AvgTickUS    int64   `csv:"avg_tick_us"`
	MinTickUS    int64   `csv:"min_tick_us"`
	P95TickUS    int64   `csv:"p95_tick_us"`
	MaxTickUS    int64   `csv:"max_tick_us"`
	TicksPerSec  float64 `csv:"ticks_per_sec"`
	CommandsPct  float64 `csv:"commands_pct"`
	ClassifyPct  float64 `csv:"classify_pct"`
	DiffusePct   float64 `csv:"diffuse_pct"`
	DronesPct    float64 `csv:"drones_pct"`
	FeedbackPct  float64 `csv:"feedback_pct"`
	ClocksPct    float64 `csv:"clocks_pct"`
	TelemetryPct float64 `csv:"telemetry_pct"`
}

// ToCSV flattens the summary into a row.
func (s PerfStats) ToCSV(windowEnd int64) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:    windowEnd,
		AvgTickUS:    s.AvgTickDuration.Microseconds(),
		MinTickUS:    s.MinTickDuration.Microseconds(),
		P95TickUS:    s.P95TickDuration.Microseconds(),
		MaxTickUS:    s.MaxTickDuration.Microseconds(),
		TicksPerSec:  s.TicksPerSecond,
		CommandsPct:  s.PhasePct[PhaseCommands],
		ClassifyPct:  s.PhasePct[PhaseClassify],
		DiffusePct:   s.PhasePct[PhaseDiffuse],
		DronesPct:    s.PhasePct[PhaseDrones],
		FeedbackPct:  s.PhasePct[PhaseFeedback],
		ClocksPct:    s.PhasePct[PhaseClocks],
		TelemetryPct: s.PhasePct[PhaseTelemetry],
	}
}
