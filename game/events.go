package game

import (
	"fmt"

	"github.com/Dasch0/hivemind-mirror/grid"
	"github.com/Dasch0/hivemind-mirror/systems"
	"github.com/Dasch0/hivemind-mirror/telemetry"
)

// Event is a notification produced during a tick for presentation and telemetry.
type Event interface {
	// Record converts the event to its flat telemetry form.
	Record(tick int64) telemetry.Event
}

// EventSink receives every event emitted by a tick, after the tick finishes.
// The slice is only valid for the duration of the call.
type EventSink interface {
	Publish(tick int64, events []Event)
}

// Meter identifies one of the player's placement tools.
type Meter uint8

const (
	MeterFlower Meter = iota
	MeterTree
	MeterDelete
	meterCount
)

var meterNames = [...]string{"flower", "tree", "delete"}

func (m Meter) String() string {
	if int(m) < len(meterNames) {
		return meterNames[m]
	}
	return fmt.Sprintf("meter(%d)", m)
}

// ResourceChanged reports a new value for an ammo meter.
type ResourceChanged struct {
	Meter Meter
	Value int
}

func (e ResourceChanged) Record(tick int64) telemetry.Event {
	return telemetry.Event{Type: telemetry.EventMeterChanged, Tick: tick, Detail: e.Meter.String(), Amount: float64(e.Value)}
}

// CellChanged reports a new quantity for a cell (gather, deposit, drain, placement).
type CellChanged struct {
	Pos      grid.Point
	Kind     grid.Kind
	Quantity uint32
}

func (e CellChanged) Record(tick int64) telemetry.Event {
	return telemetry.Event{
		Type: telemetry.EventCellChanged, Tick: tick, X: e.Pos.X, Y: e.Pos.Y,
		Detail: e.Kind.String(), Amount: float64(e.Quantity),
	}
}

// DroneSpawned reports a drone created by a colony.
type DroneSpawned struct {
	Identity grid.Kind
	Pos      grid.Point
}

func (e DroneSpawned) Record(tick int64) telemetry.Event {
	return telemetry.Event{Type: telemetry.EventSpawn, Tick: tick, X: e.Pos.X, Y: e.Pos.Y, Identity: e.Identity.String()}
}

// Gathered reports food taken by a gathering drone.
type Gathered struct {
	Identity grid.Kind
	Pos      grid.Point
	Amount   uint32
}

func (e Gathered) Record(tick int64) telemetry.Event {
	return telemetry.Event{
		Type: telemetry.EventGather, Tick: tick, X: e.Pos.X, Y: e.Pos.Y,
		Identity: e.Identity.String(), Amount: float64(e.Amount),
	}
}

// Deposited reports food added to a colony by a depositing drone.
type Deposited struct {
	Identity grid.Kind
	Pos      grid.Point
	Amount   uint32
}

func (e Deposited) Record(tick int64) telemetry.Event {
	return telemetry.Event{
		Type: telemetry.EventDeposit, Tick: tick, X: e.Pos.X, Y: e.Pos.Y,
		Identity: e.Identity.String(), Amount: float64(e.Amount),
	}
}

// ColonyExtinct reports a colony destroyed by running out of resource.
type ColonyExtinct struct {
	Identity grid.Kind
	Pos      grid.Point
}

func (e ColonyExtinct) Record(tick int64) telemetry.Event {
	return telemetry.Event{Type: telemetry.EventExtinct, Tick: tick, X: e.Pos.X, Y: e.Pos.Y, Identity: e.Identity.String()}
}

// GameOver is emitted once, on the first colony extinction.
type GameOver struct {
	Time float64 // survival seconds
}

func (e GameOver) Record(tick int64) telemetry.Event {
	return telemetry.Event{Type: telemetry.EventGameOver, Tick: tick, Amount: e.Time}
}

// SearchPing marks a cell expanded or claimed by a router.
type SearchPing struct {
	Pos grid.Point
}

func (e SearchPing) Record(tick int64) telemetry.Event {
	return telemetry.Event{Type: telemetry.EventPing, Tick: tick, X: e.Pos.X, Y: e.Pos.Y}
}

// OutpostCreated reports a resource cell claimed by a router.
type OutpostCreated struct {
	Pos grid.Point
}

func (e OutpostCreated) Record(tick int64) telemetry.Event {
	return telemetry.Event{Type: telemetry.EventOutpost, Tick: tick, X: e.Pos.X, Y: e.Pos.Y}
}

// WirePlaced reports one wire segment. Delay staggers its reveal.
type WirePlaced struct {
	Pos       grid.Point
	Connector systems.Connector
	Delay     float64
}

func (e WirePlaced) Record(tick int64) telemetry.Event {
	return telemetry.Event{
		Type: telemetry.EventWire, Tick: tick, X: e.Pos.X, Y: e.Pos.Y,
		Detail: e.Connector.String(), Amount: e.Delay,
	}
}

// RouterSpawned reports a new router, either the first one or a promoted outpost.
type RouterSpawned struct {
	Pos grid.Point
}

func (e RouterSpawned) Record(tick int64) telemetry.Event {
	return telemetry.Event{Type: telemetry.EventRouter, Tick: tick, X: e.Pos.X, Y: e.Pos.Y}
}

// RouterStateChanged reports a router phase transition.
type RouterStateChanged struct {
	Origin grid.Point
	State  systems.RouterState
}

func (e RouterStateChanged) Record(tick int64) telemetry.Event {
	return telemetry.Event{
		Type: telemetry.EventRouterState, Tick: tick, X: e.Origin.X, Y: e.Origin.Y,
		Detail: e.State.String(),
	}
}

// Placed reports an accepted player placement or removal.
type Placed struct {
	Pos    grid.Point
	Action Action
}

func (e Placed) Record(tick int64) telemetry.Event {
	return telemetry.Event{Type: telemetry.EventPlacement, Tick: tick, X: e.Pos.X, Y: e.Pos.Y, Detail: e.Action.String()}
}

// emit buffers an event for the current tick and forwards it to telemetry.
func (g *Game) emit(e Event) {
	g.events = append(g.events, e)
	rec := e.Record(g.tick)
	g.collector.Record(rec)
	if err := g.eventLog.Write(rec); err != nil {
		g.logOnce("event log write failed", err)
	}
	g.indexDB.RecordEvent(rec)
}

// publishEvents hands the tick's events to the sink.
func (g *Game) publishEvents() {
	if g.eventSink == nil || len(g.events) == 0 {
		return
	}
	g.eventSink.Publish(g.tick, g.events)
}

// DrainEvents returns and clears the events of the last Tick. Before the
// first Tick it returns the events emitted while setting up the world.
func (g *Game) DrainEvents() []Event {
	out := g.events
	g.events = nil
	return out
}
