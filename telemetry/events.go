// Package telemetry provides run statistics, bookmarks, event logs and the run index.
package telemetry

// EventType identifies telemetry events.
type EventType string

const (
	EventSpawn        EventType = "spawn"
	EventGather       EventType = "gather"
	EventDeposit      EventType = "deposit"
	EventExtinct      EventType = "colony_extinct"
	EventGameOver     EventType = "game_over"
	EventPing         EventType = "search_ping"
	EventOutpost      EventType = "outpost_created"
	EventWire         EventType = "wire_placed"
	EventRouter       EventType = "router_spawned"
	EventRouterState  EventType = "router_state"
	EventPlacement    EventType = "placement"
	EventCellChanged  EventType = "cell_changed"
	EventMeterChanged EventType = "meter_changed"
	EventBookmark     EventType = "bookmark"
)

// Event represents a single telemetry event.
type Event struct {
	Type EventType `json:"type"`
	Tick int64     `json:"tick"`
	X    int       `json:"x"`
	Y    int       `json:"y"`

	// Optional fields depending on event type
	Identity string  `json:"identity,omitempty"`
	Detail   string  `json:"detail,omitempty"`
	Amount   float64 `json:"amount,omitempty"`
}

// Record counts an event toward the current window. Event types without a
// window counter are ignored.
func (c *Collector) Record(e Event) {
	switch e.Type {
	case EventSpawn:
		c.RecordSpawn()
	case EventGather:
		c.RecordGather()
	case EventDeposit:
		c.RecordDeposit()
	case EventExtinct:
		c.RecordExtinction()
	case EventPing:
		c.RecordPing()
	case EventWire:
		c.RecordWire()
	case EventOutpost:
		c.RecordOutpost()
	case EventRouter:
		c.RecordRouterSpawn()
	}
}
