package observer

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Dasch0/hivemind-mirror/game"
	"github.com/Dasch0/hivemind-mirror/telemetry"
)

const (
	clientBuffer     = 8
	maxPendingEvents = 16384
)

// Hub collects game events and fans frames out to every connected client.
// Slow clients miss frames instead of stalling the simulation.
type Hub struct {
	mu      sync.Mutex
	clients map[uint64]chan []byte
	nextID  uint64
	pending []telemetry.Event
	last    []byte // most recent frame, sent to new clients

	dropped atomic.Int64
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[uint64]chan []byte)}
}

// Publish buffers a tick's events for the next frame. Hub implements game.EventSink.
func (h *Hub) Publish(tick int64, events []game.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, e := range events {
		if len(h.pending) >= maxPendingEvents {
			h.dropped.Add(int64(len(events) - i))
			return
		}
		h.pending = append(h.pending, e.Record(tick))
	}
}

// Broadcast encodes a frame from the snapshot and the buffered events and
// queues it for every client.
func (h *Hub) Broadcast(s game.Snapshot) error {
	h.mu.Lock()
	events := h.pending
	h.pending = nil
	h.mu.Unlock()

	b, err := json.Marshal(NewFrame(s, events))
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = b
	for _, ch := range h.clients {
		select {
		case ch <- b:
		default:
			h.dropped.Add(1)
		}
	}
	return nil
}

// join registers a client. The latest frame, if any, is queued right away.
func (h *Hub) join() (uint64, <-chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	ch := make(chan []byte, clientBuffer)
	if h.last != nil {
		ch <- h.last
	}
	h.clients[h.nextID] = ch
	return h.nextID, ch
}

// leave unregisters a client and closes its channel.
func (h *Hub) leave(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(ch)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns the number of frames and events discarded under load.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}
