package telemetry

import "testing"

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_ForageBreakthrough(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEndTick: int64(i * 600), Deposited: 5})
	}

	bookmarks := bd.Check(WindowStats{WindowEndTick: 3000, Deposited: 20})
	if !hasBookmark(bookmarks, BookmarkForageBreakthrough) {
		t.Error("expected forage_breakthrough bookmark")
	}
}

func TestBookmarkDetector_FoodCrash(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEndTick: int64(i * 600), FoodMass: 1000})
	}

	bookmarks := bd.Check(WindowStats{WindowEndTick: 3000, FoodMass: 300})
	if !hasBookmark(bookmarks, BookmarkFoodCrash) {
		t.Error("expected food_crash bookmark")
	}

	// Peak resets after a crash
	bookmarks = bd.Check(WindowStats{WindowEndTick: 3600, FoodMass: 250})
	if hasBookmark(bookmarks, BookmarkFoodCrash) {
		t.Error("food_crash should not repeat against the old peak")
	}
}

func TestBookmarkDetector_ColonyLost(t *testing.T) {
	bd := NewBookmarkDetector(10)

	bookmarks := bd.Check(WindowStats{WindowEndTick: 600, Extinctions: 1, Colonies: 2})
	if !hasBookmark(bookmarks, BookmarkColonyLost) {
		t.Error("expected colony_lost bookmark on the first window")
	}
	if hasBookmark(bd.Check(WindowStats{WindowEndTick: 1200, Colonies: 2}), BookmarkColonyLost) {
		t.Error("colony_lost requires an extinction in the window")
	}
}

func TestBookmarkDetector_NetworkExpansion(t *testing.T) {
	bd := NewBookmarkDetector(10)

	// The first router is not an expansion
	if hasBookmark(bd.Check(WindowStats{WindowEndTick: 600, Routers: 1}), BookmarkNetworkExpansion) {
		t.Error("first router should not trigger network_expansion")
	}
	if !hasBookmark(bd.Check(WindowStats{WindowEndTick: 1200, Routers: 3}), BookmarkNetworkExpansion) {
		t.Error("expected network_expansion bookmark")
	}
	if hasBookmark(bd.Check(WindowStats{WindowEndTick: 1800, Routers: 3}), BookmarkNetworkExpansion) {
		t.Error("unchanged router count should not trigger")
	}
}

func TestBookmarkDetector_StableEconomy(t *testing.T) {
	bd := NewBookmarkDetector(10)

	triggered := -1
	for i := 0; i < 12; i++ {
		bookmarks := bd.Check(WindowStats{
			WindowEndTick:   int64(i * 600),
			Drones:          40,
			Colonies:        3,
			ColonyResources: 2400,
		})
		if hasBookmark(bookmarks, BookmarkStableEconomy) {
			if triggered >= 0 {
				t.Fatalf("stable_economy triggered twice (windows %d and %d)", triggered, i)
			}
			triggered = i
		}
	}
	if triggered != 8 {
		t.Errorf("stable_economy triggered at window %d, want 8", triggered)
	}
}

func TestBookmarkDetector_HistoryOrder(t *testing.T) {
	bd := NewBookmarkDetector(5)
	for i := 0; i < 7; i++ {
		bd.Check(WindowStats{WindowEndTick: int64(i)})
	}

	history := bd.history()
	if len(history) != 5 {
		t.Fatalf("history length = %d, want 5", len(history))
	}
	for i, h := range history {
		if h.WindowEndTick != int64(i+2) {
			t.Errorf("history[%d] = tick %d, want %d", i, h.WindowEndTick, i+2)
		}
	}
}
