// Package events is an in-process fan-out of pipeline and apply events.
package events

import (
	"sync"
	"time"
)

// Event types
const (
	StepChanged    = "step.changed"
	ApplyStarted   = "apply.started"
	ApplyProgress  = "apply.progress"
	ApplyDone      = "apply.done"
	ApplyError     = "apply.error"
	ApplyCancelled = "apply.cancelled"
	ApplyTimeout   = "apply.timeout"
)

type Event struct {
	Type  string    `json:"type"`
	At    time.Time `json:"at"`
	JobID string    `json:"job_id,omitempty"`
	Data  any       `json:"data,omitempty"`
}

// Hub delivers events to subscribers without ever blocking the publisher.
// A nil *Hub drops everything.
type Hub struct {
	mu      sync.Mutex
	clients map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan Event]struct{})}
}

func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, 32)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
	h.mu.Unlock()
}

func (h *Hub) Publish(typ, jobID string, data any) {
	if h == nil {
		return
	}
	evt := Event{Type: typ, At: time.Now().UTC(), JobID: jobID, Data: data}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- evt:
		default:
			// drop if slow
		}
	}
}
