package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.World.Width != 100 || cfg.World.Height != 100 {
		t.Errorf("world = %dx%d, want 100x100", cfg.World.Width, cfg.World.Height)
	}
	if cfg.Colony.DroneCost != 9 {
		t.Errorf("drone_cost = %d, want 9", cfg.Colony.DroneCost)
	}
	if len(cfg.Colony.Locations) != 3 {
		t.Fatalf("got %d colony locations, want 3", len(cfg.Colony.Locations))
	}

	want := []Cell{{25, 25}, {50, 25}, {25, 50}}
	for i, c := range cfg.Derived.ColonyCells {
		if c != want[i] {
			t.Errorf("colony %d cell = %v, want %v", i, c, want[i])
		}
	}
	if cfg.Derived.RouterCell != (Cell{50, 50}) {
		t.Errorf("router cell = %v, want {50 50}", cfg.Derived.RouterCell)
	}
}

func TestLoadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	data := []byte("world:\n  width: 20\n  height: 10\ndrone:\n  chaos: 0\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.World.Width != 20 || cfg.World.Height != 10 {
		t.Errorf("world = %dx%d, want 20x10", cfg.World.Width, cfg.World.Height)
	}
	if cfg.Drone.Chaos != 0 {
		t.Errorf("chaos = %v, want 0", cfg.Drone.Chaos)
	}
	// Untouched keys keep their defaults
	if cfg.Drone.TurnSpeed != 0.15 {
		t.Errorf("turn_speed = %v, want 0.15", cfg.Drone.TurnSpeed)
	}
	if cfg.Derived.RouterCell != (Cell{10, 5}) {
		t.Errorf("router cell = %v, want {10 5}", cfg.Derived.RouterCell)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"tiny world", "world:\n  width: 2\n"},
		{"bad identity", "colony:\n  locations:\n    - identity: q\n      x: 0.5\n      y: 0.5\n"},
		{"duplicate identity", "colony:\n  locations:\n    - {identity: c, x: 0.2, y: 0.2}\n    - {identity: c, x: 0.4, y: 0.4}\n"},
		{"zero spawn rate", "colony:\n  spawn_rate: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestFractionToCellClampsInsideBorder(t *testing.T) {
	if c := fractionToCell(0, 0, 10, 10); c != (Cell{1, 1}) {
		t.Errorf("got %v, want {1 1}", c)
	}
	if c := fractionToCell(1, 1, 10, 10); c != (Cell{8, 8}) {
		t.Errorf("got %v, want {8 8}", c)
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Drone.Chaos = 0.25

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if back.Drone.Chaos != 0.25 {
		t.Errorf("chaos = %v, want 0.25", back.Drone.Chaos)
	}
}
