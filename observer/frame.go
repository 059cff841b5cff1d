// Package observer streams read-only world frames to presentation clients
// over websocket and forwards their placement requests to the game.
package observer

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dasch0/hivemind-mirror/config"
	"github.com/Dasch0/hivemind-mirror/game"
	"github.com/Dasch0/hivemind-mirror/grid"
	"github.com/Dasch0/hivemind-mirror/telemetry"
)

// Version is the frame protocol version.
const Version = "1"

// FrameSchema is the JSON schema every frame conforms to.
//
//go:embed frame.schema.json
var FrameSchema []byte

// Frame is one world update sent to clients.
type Frame struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	Tick            int64             `json:"tick"`
	SimTime         float64           `json:"sim_time"`
	GameTime        float64           `json:"game_time"`
	GameOver        bool              `json:"game_over"`
	Cheat           bool              `json:"cheat"`
	Speed           float64           `json:"speed"`
	Ammo            []int             `json:"ammo"`
	Apocalypse      float64           `json:"apocalypse"`
	Width           int               `json:"width"`
	Height          int               `json:"height"`
	Cells           []uint32          `json:"cells"`
	Drones          []game.DroneView  `json:"drones"`
	Events          []telemetry.Event `json:"events"`
}

// NewFrame builds a frame from a snapshot plus the events since the last frame.
func NewFrame(s game.Snapshot, events []telemetry.Event) Frame {
	f := Frame{
		Type:            "FRAME",
		ProtocolVersion: Version,
		Tick:            s.Tick,
		SimTime:         s.SimTime,
		GameTime:        s.GameTime,
		GameOver:        s.GameOver,
		Cheat:           s.Cheat,
		Speed:           s.Speed,
		Ammo:            s.Ammo[:],
		Apocalypse:      s.Apocalypse,
		Width:           s.Width,
		Height:          s.Height,
		Cells:           s.Cells,
		Drones:          s.Drones,
		Events:          events,
	}
	if f.Cells == nil {
		f.Cells = []uint32{}
	}
	if f.Drones == nil {
		f.Drones = []game.DroneView{}
	}
	if f.Events == nil {
		f.Events = []telemetry.Event{}
	}
	return f
}

// ColonyInfo places one colony in the bootstrap response.
type ColonyInfo struct {
	Identity string `json:"identity"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
}

// Bootstrap describes the world to a client before it subscribes.
type Bootstrap struct {
	ProtocolVersion string       `json:"protocol_version"`
	Width           int          `json:"width"`
	Height          int          `json:"height"`
	Seed            int64        `json:"seed"`
	QuantityShift   int          `json:"quantity_shift"`
	Kinds           []string     `json:"kinds"` // flag names by bit position
	Colonies        []ColonyInfo `json:"colonies"`
	RouterX         int          `json:"router_x"`
	RouterY         int          `json:"router_y"`
	MaxAmmo         int          `json:"max_ammo"`
	Speeds          []float64    `json:"speeds"`
}

// BootstrapFor describes the world configured by cfg.
func BootstrapFor(cfg *config.Config, seed int64) Bootstrap {
	b := Bootstrap{
		ProtocolVersion: Version,
		Width:           cfg.World.Width,
		Height:          cfg.World.Height,
		Seed:            seed,
		QuantityShift:   grid.QuantityShift,
		RouterX:         cfg.Derived.RouterCell.X,
		RouterY:         cfg.Derived.RouterCell.Y,
		MaxAmmo:         cfg.Player.MaxAmmo,
		Speeds:          cfg.Player.Speeds,
	}
	for i := 0; i < grid.QuantityShift; i++ {
		b.Kinds = append(b.Kinds, grid.Kind(1<<i).String())
	}
	for i, loc := range cfg.Colony.Locations {
		if i >= len(cfg.Derived.ColonyCells) {
			break
		}
		c := cfg.Derived.ColonyCells[i]
		b.Colonies = append(b.Colonies, ColonyInfo{Identity: loc.Identity, X: c.X, Y: c.Y})
	}
	return b
}

// Client messages.
const (
	MsgPlace       = "PLACE"
	MsgCheat       = "CHEAT"
	MsgToggleSpeed = "TOGGLE_SPEED"
	MsgCycleSpeed  = "CYCLE_SPEED"
	MsgSetSpeed    = "SET_SPEED"
)

// ErrUnknownMessage is returned for client messages with an unrecognised type.
var ErrUnknownMessage = errors.New("observer: unknown message type")

// ClientMsg is a request sent by a client.
type ClientMsg struct {
	Type       string  `json:"type"`
	X          int     `json:"x,omitempty"`
	Y          int     `json:"y,omitempty"`
	Action     string  `json:"action,omitempty"` // add_flower, add_tree or remove
	Multiplier float64 `json:"multiplier,omitempty"`
}

// ParseCommand decodes a client message into a game command.
func ParseCommand(b []byte) (game.Command, error) {
	var m ClientMsg
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decoding client message: %w", err)
	}
	switch m.Type {
	case MsgPlace:
		var a game.Action
		switch m.Action {
		case game.AddFlower.String():
			a = game.AddFlower
		case game.AddTree.String():
			a = game.AddTree
		case game.Remove.String():
			a = game.Remove
		default:
			return nil, fmt.Errorf("place action %q: %w", m.Action, ErrUnknownMessage)
		}
		return game.Place{Pos: grid.Point{X: m.X, Y: m.Y}, Action: a}, nil
	case MsgCheat:
		return game.ToggleCheat{}, nil
	case MsgToggleSpeed:
		return game.ToggleSpeed{}, nil
	case MsgCycleSpeed:
		return game.CycleSpeed{}, nil
	case MsgSetSpeed:
		return game.SetSpeed{Multiplier: m.Multiplier}, nil
	}
	return nil, fmt.Errorf("%q: %w", m.Type, ErrUnknownMessage)
}
