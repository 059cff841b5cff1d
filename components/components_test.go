package components

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/Dasch0/hivemind-mirror/grid"
)

func TestNewIdentity(t *testing.T) {
	tests := []struct {
		kind    grid.Kind
		wantErr bool
	}{
		{grid.ColonyC, false},
		{grid.ColonyM, false},
		{grid.ColonyY, false},
		{grid.Empty, true},
		{grid.ColonyC | grid.ColonyM, true},
		{grid.ColonyY | grid.Flower, true},
		{grid.Router, true},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			id, err := NewIdentity(tt.kind)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidIdentity) {
					t.Fatalf("NewIdentity(%v) error = %v, want ErrInvalidIdentity", tt.kind, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewIdentity(%v) unexpected error: %v", tt.kind, err)
			}
			if id.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", id.Kind, tt.kind)
			}
		})
	}
}

func TestClockAdvance(t *testing.T) {
	c := NewClock(1.0)
	if n := c.Advance(0.4); n != 0 {
		t.Fatalf("fired %d times after 0.4s", n)
	}
	if n := c.Advance(0.7); n != 1 {
		t.Fatalf("fired %d times after 1.1s, want 1", n)
	}
	if n := c.Advance(2.0); n != 2 {
		t.Fatalf("fired %d times after 3.1s, want 2", n)
	}

	c.Halted = true
	if n := c.Advance(10); n != 0 {
		t.Errorf("halted clock fired %d times", n)
	}
}

func TestClockZeroPeriodFiresEveryCall(t *testing.T) {
	c := NewClock(0)
	for i := 0; i < 3; i++ {
		if n := c.Advance(0.016); n != 1 {
			t.Fatalf("call %d: fired %d times, want 1", i, n)
		}
	}
}

func TestClockReset(t *testing.T) {
	c := NewClock(5)
	c.Advance(3)
	c.Reset(2)
	if c.Elapsed != 0 || c.Period != 2 {
		t.Fatalf("Reset left clock at %+v", c)
	}
	if got := c.Remaining(); got != 2 {
		t.Errorf("Remaining = %v, want 2", got)
	}
}

func TestDroneStateNames(t *testing.T) {
	if DroneStateCount() != int(Dead)+1 {
		t.Fatalf("DroneStateCount = %d, want %d", DroneStateCount(), int(Dead)+1)
	}
	if Gathering.String() != "Gathering" {
		t.Errorf("Gathering.String() = %q", Gathering.String())
	}
	if DroneState(42).String() != "Unknown" {
		t.Errorf("out of range state should be Unknown")
	}
	for _, s := range []DroneState{Gathering, Depositing, Resting, Dead} {
		if s.Moving() {
			t.Errorf("%v should not move", s)
		}
	}
}

func TestFacesLeft(t *testing.T) {
	tests := []struct {
		dir  r2.Vec
		want bool
	}{
		{r2.Vec{X: 1, Y: 0}, false},
		{r2.Vec{X: -1, Y: 0}, true},
		{r2.Vec{X: 0, Y: 1}, true},   // atan2(-1, 0) = -pi/2
		{r2.Vec{X: 0, Y: -1}, false}, // atan2(1, 0) = pi/2
		{r2.Vec{}, false},
	}
	for _, tt := range tests {
		if got := (Drone{Direction: tt.dir}).FacesLeft(); got != tt.want {
			t.Errorf("FacesLeft(%v) = %v, want %v", tt.dir, got, tt.want)
		}
	}
}

func TestPositionCell(t *testing.T) {
	p := PositionOf(r2.Vec{X: 2.9, Y: 0.1})
	if got := p.Cell(); got != (grid.Point{X: 2, Y: 0}) {
		t.Errorf("Cell() = %v", got)
	}
}
