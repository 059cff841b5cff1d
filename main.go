package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dasch0/hivemind-mirror/config"
	"github.com/Dasch0/hivemind-mirror/game"
	"github.com/Dasch0/hivemind-mirror/observer"
	"github.com/Dasch0/hivemind-mirror/systems"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	mapPath := flag.String("map", "", "Starting map file, .yaml or .yaml.zst (empty = open world)")
	saveMap := flag.String("save-map", "", "Write the final grid to this map file")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, config and final map")
	eventLog := flag.String("event-log", "", "Write a zstd-compressed JSONL event log to this path")
	indexDB := flag.String("index-db", "", "Record the run in this SQLite index")
	runID := flag.String("run-id", "", "Run key in the index (empty = derived from seed)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int64("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	dt := flag.Float64("dt", 0, "Seconds per tick (0 = use config)")
	observe := flag.String("observe", "", "Serve the observer websocket on this address, e.g. 127.0.0.1:8080")
	allowRemote := flag.Bool("observe-remote", false, "Accept observer connections from non-loopback addresses")
	listPhases := flag.Bool("list-phases", false, "Print the tick phases and exit")

	flag.Parse()

	if *listPhases {
		for _, s := range systems.NewSystemRegistry().All() {
			fmt.Printf("%-10s %-10s %s\n", s.ID, s.Category, s.Description)
		}
		return
	}

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(runOptions{
		configPath:  *configPath,
		mapPath:     *mapPath,
		saveMap:     *saveMap,
		logStats:    *logStats,
		statsWindow: *statsWindow,
		outputDir:   *outputDir,
		eventLog:    *eventLog,
		indexDB:     *indexDB,
		runID:       *runID,
		seed:        *seed,
		maxTicks:    *maxTicks,
		dt:          *dt,
		observe:     *observe,
		allowRemote: *allowRemote,
	}); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

type runOptions struct {
	configPath  string
	mapPath     string
	saveMap     string
	logStats    bool
	statsWindow float64
	outputDir   string
	eventLog    string
	indexDB     string
	runID       string
	seed        int64
	maxTicks    int64
	dt          float64
	observe     string
	allowRemote bool
}

func run(o runOptions) (err error) {
	// Initialize config before anything else
	if err := config.Init(o.configPath); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := config.Cfg()

	rngSeed := o.seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}
	dt := cfg.Physics.DT
	if o.dt > 0 {
		dt = o.dt
	}

	world, err := game.LoadWorld(cfg, o.mapPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := game.Options{
		Seed:           rngSeed,
		LogStats:       o.logStats,
		StatsWindowSec: o.statsWindow,
		OutputDir:      o.outputDir,
		EventLogPath:   o.eventLog,
		IndexDBPath:    o.indexDB,
		RunID:          o.runID,
	}

	var hub *observer.Hub
	if o.observe != "" {
		hub = observer.NewHub()
		opts.EventSink = hub
	}

	g, err := game.New(cfg, world, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := g.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing game: %w", cerr)
		}
	}()

	var pace <-chan time.Time
	serveErr := make(chan error, 1)
	if hub != nil {
		srv := observer.NewServer(hub, observer.BootstrapFor(cfg, rngSeed), observer.Options{
			Submit:      g.Submit,
			AllowRemote: o.allowRemote,
		})
		go func() { serveErr <- observer.ListenAndServe(ctx, o.observe, srv.Handler()) }()
		slog.Info("observer listening", "addr", o.observe)

		// Observed runs play in real time
		ticker := time.NewTicker(time.Duration(dt * float64(time.Second)))
		defer ticker.Stop()
		pace = ticker.C
	}

	slog.Info("starting simulation",
		"seed", rngSeed,
		"dt", dt,
		"max_ticks", o.maxTicks,
		"observe", o.observe,
	)

	publishEvery := int64(max(cfg.Observer.PublishEvery, 1))
	wasOver := false
	for {
		select {
		case <-ctx.Done():
			slog.Info("interrupted", "tick", g.TickCount())
			return finish(g, o.saveMap)
		case err := <-serveErr:
			if err != nil {
				return fmt.Errorf("observer: %w", err)
			}
			serveErr = nil
		default:
		}
		if pace != nil {
			select {
			case <-pace:
			case <-ctx.Done():
				continue
			}
		}

		g.Tick(dt)

		if hub != nil && g.TickCount()%publishEvery == 0 {
			if err := hub.Broadcast(g.Snapshot()); err != nil {
				slog.Warn("failed to publish frame", "error", err)
			}
		}

		if g.GameOver() && !wasOver {
			wasOver = true
			slog.Info("game over", "tick", g.TickCount(), "survived", g.GameTime())
			// Without an observer nothing more can happen worth watching
			if hub == nil {
				return finish(g, o.saveMap)
			}
		}

		if o.maxTicks > 0 && g.TickCount() >= o.maxTicks {
			slog.Info("max ticks reached", "tick", g.TickCount())
			return finish(g, o.saveMap)
		}
	}
}

func finish(g *game.Game, saveMap string) error {
	g.LogWorldState()
	g.PerfStats().LogStats()
	if saveMap == "" {
		return nil
	}
	if err := g.Grid().SaveFile(saveMap); err != nil {
		return fmt.Errorf("saving map: %w", err)
	}
	slog.Info("map saved", "path", saveMap)
	return nil
}
