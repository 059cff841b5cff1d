package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

// evalLog records every evaluation to a CSV file and tracks the best one.
type evalLog struct {
	f      *os.File
	w      *csv.Writer
	params *ParamVector
	dt     float64
	budget int

	count   int
	started time.Time
	best    float64
	bestX   []float64
}

func newEvalLog(path string, params *ParamVector, dt float64, budget int) (*evalLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	l := &evalLog{
		f:       f,
		w:       csv.NewWriter(f),
		params:  params,
		dt:      dt,
		budget:  budget,
		started: time.Now(),
		best:    1e9,
	}
	cols := make([]string, 0, 3+params.Dim())
	cols = append(cols, "eval", "fitness", "quality")
	for _, s := range params.Specs {
		cols = append(cols, s.Name)
	}
	if err := l.w.Write(cols); err != nil {
		f.Close()
		return nil, err
	}
	return l, nil
}

// record logs one evaluation of the clamped raw vector x.
func (l *evalLog) record(x []float64, fitness, quality float64) {
	l.count++
	if fitness < l.best {
		l.best = fitness
		l.bestX = append(l.bestX[:0], x...)
	}

	row := make([]string, 0, 3+len(x))
	row = append(row,
		strconv.Itoa(l.count),
		strconv.FormatFloat(fitness, 'f', 6, 64),
		strconv.FormatFloat(quality, 'f', 4, 64),
	)
	for _, v := range x {
		row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
	}
	_ = l.w.Write(row)
	l.w.Flush()

	elapsed := time.Since(l.started)
	eta := time.Duration(l.budget-l.count) * (elapsed / time.Duration(l.count))
	// fitness is -(ticks * (1 + 0.2*quality))
	survived := -fitness / (1 + 0.2*quality) * l.dt
	fmt.Printf("[%d/%d] survived %.0fs, quality %.2f, best %.0f (%s elapsed, %s left)\n",
		l.count, l.budget, survived, quality, l.best, formatDuration(elapsed), formatDuration(eta))
}

func (l *evalLog) Close() error {
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		l.f.Close()
		return err
	}
	return l.f.Close()
}

// formatDuration prints d as 1h02m03s or 2m03s.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h, rest := d/time.Hour, d%time.Hour
	m, s := rest/time.Minute, (rest%time.Minute)/time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}
