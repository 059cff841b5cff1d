package telemetry

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"
)

// BookmarkType names a kind of notable moment.
type BookmarkType string

const (
	BookmarkForageBreakthrough BookmarkType = "forage_breakthrough"
	BookmarkFoodCrash          BookmarkType = "food_crash"
	BookmarkColonyLost         BookmarkType = "colony_lost"
	BookmarkNetworkExpansion   BookmarkType = "network_expansion"
	BookmarkStableEconomy      BookmarkType = "stable_economy"
)

// Bookmark marks a window where something notable happened.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        int64        `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs b at info level.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark", "type", string(b.Type), "tick", b.Tick, "description", b.Description)
}

const (
	stableLookback = 4    // windows compared for reserve stability
	stableTrigger  = 5    // consecutive stable windows before the bookmark
	stableMaxCV2   = 0.01 // squared coefficient of variation
	crashDrop      = 0.5
	breakthroughX  = 2.0
	breakthroughAt = 10 // minimum deposits for a breakthrough
)

// BookmarkDetector watches stats windows for notable moments. Each rule
// sees the window history before the current window is added.
type BookmarkDetector struct {
	ring []WindowStats
	next int
	full bool

	foodPeak    float64 // highest food mass since the last crash
	routerPeak  int
	stableCount int
}

// NewBookmarkDetector keeps up to historySize windows (at least five).
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	return &BookmarkDetector{ring: make([]WindowStats, max(historySize, stableTrigger))}
}

// Check returns the bookmarks triggered by stats, then records it.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	history := bd.history()
	rules := []func(WindowStats, []WindowStats) (string, BookmarkType, bool){
		bd.colonyLost,
		bd.networkExpansion,
	}
	if len(history) > 0 {
		rules = append(rules, bd.forageBreakthrough, bd.foodCrash, bd.stableEconomy)
	}

	var out []Bookmark
	for _, rule := range rules {
		if desc, typ, ok := rule(stats, history); ok {
			out = append(out, Bookmark{Type: typ, Tick: stats.WindowEndTick, Description: desc})
		}
	}

	bd.ring[bd.next] = stats
	bd.next = (bd.next + 1) % len(bd.ring)
	bd.full = bd.full || bd.next == 0
	bd.foodPeak = max(bd.foodPeak, stats.FoodMass)
	return out
}

// history returns the recorded windows, oldest first.
func (bd *BookmarkDetector) history() []WindowStats {
	if !bd.full {
		return bd.ring[:bd.next]
	}
	out := make([]WindowStats, 0, len(bd.ring))
	out = append(out, bd.ring[bd.next:]...)
	return append(out, bd.ring[:bd.next]...)
}

func (bd *BookmarkDetector) colonyLost(s WindowStats, _ []WindowStats) (string, BookmarkType, bool) {
	if s.Extinctions == 0 {
		return "", "", false
	}
	return fmt.Sprintf("%d colonies lost, %d remaining", s.Extinctions, s.Colonies), BookmarkColonyLost, true
}

// networkExpansion fires when the router count passes its previous peak.
// The first router ever placed does not count.
func (bd *BookmarkDetector) networkExpansion(s WindowStats, _ []WindowStats) (string, BookmarkType, bool) {
	if s.Routers <= bd.routerPeak {
		return "", "", false
	}
	old := bd.routerPeak
	bd.routerPeak = s.Routers
	if old == 0 {
		return "", "", false
	}
	return fmt.Sprintf("Router network grew from %d to %d", old, s.Routers), BookmarkNetworkExpansion, true
}

func (bd *BookmarkDetector) forageBreakthrough(s WindowStats, history []WindowStats) (string, BookmarkType, bool) {
	if len(history) < 3 {
		return "", "", false
	}
	deposits := make([]float64, len(history))
	for i, h := range history {
		deposits[i] = float64(h.Deposited)
	}
	avg := stat.Mean(deposits, nil)
	if avg == 0 || s.Deposited < breakthroughAt || float64(s.Deposited) <= avg*breakthroughX {
		return "", "", false
	}
	return fmt.Sprintf("Deposits %d are %.1fx average (%.1f)", s.Deposited, float64(s.Deposited)/avg, avg),
		BookmarkForageBreakthrough, true
}

// foodCrash fires when food mass falls by more than half from its peak,
// then restarts the peak from the crashed value.
func (bd *BookmarkDetector) foodCrash(s WindowStats, _ []WindowStats) (string, BookmarkType, bool) {
	if bd.foodPeak == 0 {
		return "", "", false
	}
	drop := 1 - s.FoodMass/bd.foodPeak
	if drop <= crashDrop {
		return "", "", false
	}
	peak := bd.foodPeak
	bd.foodPeak = s.FoodMass
	return fmt.Sprintf("Food mass fell %.0f%% from peak %.0f to %.0f", drop*100, peak, s.FoodMass), BookmarkFoodCrash, true
}

// stableEconomy fires once when colony reserves have held steady for
// stableTrigger consecutive windows.
func (bd *BookmarkDetector) stableEconomy(s WindowStats, history []WindowStats) (string, BookmarkType, bool) {
	if s.Colonies == 0 || s.Drones == 0 {
		bd.stableCount = 0
		return "", "", false
	}
	if len(history) < stableLookback {
		return "", "", false
	}
	reserves := make([]float64, stableLookback)
	for i, h := range history[len(history)-stableLookback:] {
		reserves[i] = h.ColonyResources
	}
	mean, variance := stat.PopMeanVariance(reserves, nil)
	if mean > 0 && variance/(mean*mean) < stableMaxCV2 {
		bd.stableCount++
	} else {
		bd.stableCount = 0
	}
	if bd.stableCount != stableTrigger {
		return "", "", false
	}
	return fmt.Sprintf("Colony reserves steady near %.0f with %d drones over %d+ windows", mean, s.Drones, stableTrigger),
		BookmarkStableEconomy, true
}
