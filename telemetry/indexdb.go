package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// RunInfo describes one simulation run in the index.
type RunInfo struct {
	ID     string
	Seed   int64
	Width  int
	Height int
	Config string // effective configuration as YAML
}

// IndexDB is a SQLite index of runs, stats windows, bookmarks and structural
// events. Writes are queued and applied by a single writer goroutine; the
// JSONL event log remains the complete record.
type IndexDB struct {
	db    *sql.DB
	runID string

	ch   chan indexReq
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Int64
}

type indexReqKind int

const (
	reqWindow indexReqKind = iota + 1
	reqEvent
	reqBookmark
)

type indexReq struct {
	kind     indexReqKind
	window   WindowStats
	event    Event
	bookmark Bookmark
}

// OpenIndexDB opens or creates the index at path and registers the run.
// Returns nil if path is empty (index disabled).
func OpenIndexDB(path string, run RunInfo) (*IndexDB, error) {
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initIndexPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("index pragmas: %w", err)
	}
	if err := initIndexSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("index schema: %w", err)
	}
	if _, err := db.Exec(
		`INSERT OR REPLACE INTO runs(run_id,seed,width,height,started_at,config_yaml) VALUES(?,?,?,?,?,?)`,
		run.ID, run.Seed, run.Width, run.Height, time.Now().UTC().Format(time.RFC3339Nano), run.Config,
	); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("registering run: %w", err)
	}

	s := &IndexDB{
		db:    db,
		runID: run.ID,
		ch:    make(chan indexReq, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initIndexPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initIndexSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			config_yaml TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS windows (
			run_id TEXT NOT NULL,
			window_end INTEGER NOT NULL,
			sim_time REAL NOT NULL,
			drones INTEGER NOT NULL,
			colonies INTEGER NOT NULL,
			colony_resources REAL NOT NULL,
			gathered INTEGER NOT NULL,
			deposited INTEGER NOT NULL,
			routers INTEGER NOT NULL,
			outposts INTEGER NOT NULL,
			wires INTEGER NOT NULL,
			food_mass REAL NOT NULL,
			PRIMARY KEY (run_id, window_end)
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			type TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			identity TEXT,
			detail TEXT,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_type_tick ON events(type, tick);`,
		`CREATE TABLE IF NOT EXISTS bookmarks (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			type TEXT NOT NULL,
			description TEXT NOT NULL,
			PRIMARY KEY (run_id, tick, type)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close drains queued writes and closes the database.
func (s *IndexDB) Close() error {
	if s == nil {
		return nil
	}
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Dropped returns the number of writes discarded because the queue was full.
func (s *IndexDB) Dropped() int64 {
	if s == nil {
		return 0
	}
	return s.dropped.Load()
}

func (s *IndexDB) enqueue(r indexReq) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		s.dropped.Add(1)
	}
}

// RecordWindow queues a stats window.
func (s *IndexDB) RecordWindow(stats WindowStats) {
	s.enqueue(indexReq{kind: reqWindow, window: stats})
}

// RecordEvent queues an event. High-volume event types belong in the event
// log and are skipped here.
func (s *IndexDB) RecordEvent(e Event) {
	switch e.Type {
	case EventExtinct, EventGameOver, EventOutpost, EventRouter, EventPlacement:
		s.enqueue(indexReq{kind: reqEvent, event: e})
	}
}

// RecordBookmark queues a bookmark.
func (s *IndexDB) RecordBookmark(b Bookmark) {
	s.enqueue(indexReq{kind: reqBookmark, bookmark: b})
}

func (s *IndexDB) loop() {
	ctx := context.Background()

	insertWindow, _ := s.db.Prepare(`INSERT OR REPLACE INTO windows(run_id,window_end,sim_time,drones,colonies,colony_resources,gathered,deposited,routers,outposts,wires,food_mass) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertEvent, _ := s.db.Prepare(`INSERT OR REPLACE INTO events(run_id,seq,tick,type,x,y,identity,detail) VALUES(?,?,?,?,?,?,?,?)`)
	insertBookmark, _ := s.db.Prepare(`INSERT OR REPLACE INTO bookmarks(run_id,tick,type,description) VALUES(?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertWindow, insertEvent, insertBookmark} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
		seq           int64
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		var err error
		switch r.kind {
		case reqWindow:
			if insertWindow == nil {
				continue
			}
			w := r.window
			_, err = tx.Stmt(insertWindow).Exec(
				s.runID, w.WindowEndTick, w.SimTimeSec, w.Drones, w.Colonies, w.ColonyResources,
				w.Gathered, w.Deposited, w.Routers, w.Outposts, w.Wires, w.FoodMass,
			)
		case reqEvent:
			if insertEvent == nil {
				continue
			}
			e := r.event
			seq++
			_, err = tx.Stmt(insertEvent).Exec(s.runID, seq, e.Tick, string(e.Type), e.X, e.Y, e.Identity, e.Detail)
		case reqBookmark:
			if insertBookmark == nil {
				continue
			}
			b := r.bookmark
			_, err = tx.Stmt(insertBookmark).Exec(s.runID, b.Tick, string(b.Type), b.Description)
		}
		if err != nil {
			rollback()
			continue
		}
		opCount++
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
	commit()
}
