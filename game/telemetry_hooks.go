package game

import (
	"errors"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/Dasch0/hivemind-mirror/grid"
	"github.com/Dasch0/hivemind-mirror/telemetry"
)

const bookmarkHistory = 10

// openTelemetry creates the collectors and every optional output.
func (g *Game) openTelemetry(opts Options) error {
	cfg := g.config()

	windowSec := opts.StatsWindowSec
	if windowSec <= 0 {
		windowSec = cfg.Telemetry.StatsWindow
	}
	g.collector = telemetry.NewCollector(windowSec, cfg.Physics.DT)
	g.perfCollector = telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow)
	g.bookmarkDetector = telemetry.NewBookmarkDetector(bookmarkHistory)

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return err
	}
	g.outputManager = om
	if om != nil {
		if err := om.WriteConfig(cfg); err != nil {
			slog.Error("failed to write config", "error", err)
		}
	}

	if g.eventLog, err = telemetry.NewEventLog(opts.EventLogPath); err != nil {
		g.closeTelemetry()
		return err
	}

	runID := opts.RunID
	if runID == "" {
		runID = fmt.Sprintf("seed-%d", opts.Seed)
	}
	cfgYAML, err := cfg.Bytes()
	if err != nil {
		g.closeTelemetry()
		return err
	}
	run := telemetry.RunInfo{
		ID:     runID,
		Seed:   opts.Seed,
		Width:  g.grid.Width(),
		Height: g.grid.Height(),
		Config: string(cfgYAML),
	}
	if g.indexDB, err = telemetry.OpenIndexDB(opts.IndexDBPath, run); err != nil {
		g.closeTelemetry()
		return err
	}
	return nil
}

// closeTelemetry writes the final map and closes every output.
func (g *Game) closeTelemetry() error {
	var errs []error
	if g.outputManager != nil {
		if err := g.outputManager.WriteMap(g.grid); err != nil {
			errs = append(errs, err)
		}
		errs = append(errs, g.outputManager.Close())
		g.outputManager = nil
	}
	errs = append(errs, g.eventLog.Close())
	if n := g.indexDB.Dropped(); n > 0 {
		slog.Warn("index writes dropped", "count", n)
	}
	errs = append(errs, g.indexDB.Close())
	return errors.Join(errs...)
}

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (g *Game) flushTelemetry() {
	if !g.collector.ShouldFlush(g.tick) {
		return
	}

	stats := g.collector.Flush(g.tick, g.sample())
	perfStats := g.perfCollector.Stats()

	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if g.outputManager != nil {
		if err := g.outputManager.WriteTelemetry(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := g.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}
	g.indexDB.RecordWindow(stats)
	if err := g.eventLog.Flush(); err != nil {
		g.logOnce("event log flush failed", err)
	}

	for _, bm := range g.bookmarkDetector.Check(stats) {
		if g.logStats {
			bm.LogBookmark()
		}
		if g.outputManager != nil {
			if err := g.outputManager.WriteBookmark(bm); err != nil {
				slog.Error("failed to write bookmark", "error", err)
			}
		}
		g.indexDB.RecordBookmark(bm)
		if err := g.eventLog.Write(telemetry.Event{
			Type:   telemetry.EventBookmark,
			Tick:   bm.Tick,
			Detail: string(bm.Type),
		}); err != nil {
			g.logOnce("event log write failed", err)
		}
	}
}

// sample measures the world for the window being flushed.
func (g *Game) sample() telemetry.Sample {
	var s telemetry.Sample

	query := g.droneFilter.Query()
	for query.Next() {
		pos, drone, state, colonist, _ := query.Get()
		s.States = append(s.States, *state)
		if drone.Autonomous {
			s.Autonomous++
		}
		s.HomeDistances = append(s.HomeDistances, r2.Norm(r2.Sub(colonist.Home, pos.Vec())))
	}

	colonies := g.colonyFilter.Query()
	for colonies.Next() {
		tile, _ := colonies.Get()
		c, _ := g.grid.At(tile.Point)
		s.ColonyResources = append(s.ColonyResources, float64(c.Quantity))
	}

	s.Routers = g.grid.Count(grid.Router)
	s.Outposts = g.grid.Count(grid.Outpost)
	s.Wires = g.grid.Count(grid.Wire)
	s.Food = g.fields.Food.Values()
	s.Density = g.fields.Density.Values()
	return s
}
