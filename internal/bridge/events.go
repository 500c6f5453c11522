package bridge

import (
	"sync"
	"time"
)

// maxQueuedEvents bounds the per-origin backlog. A surface that never
// drains its queue loses the oldest events first.
const maxQueuedEvents = 64

// Event is one provider notification (chainChanged, accountsChanged)
// queued for a content surface.
type Event struct {
	Event     string    `json:"event"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Events queues provider notifications per origin until the surface
// polls them. It implements the mediator's Notifier.
type Events struct {
	mu     sync.Mutex
	queues map[string][]Event
}

// NewEvents creates an empty event queue.
func NewEvents() *Events {
	return &Events{queues: make(map[string][]Event)}
}

// Notify appends an event to the origin's queue.
func (e *Events) Notify(origin, event string, payload any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	q := append(e.queues[origin], Event{
		Event:     event,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
	if len(q) > maxQueuedEvents {
		q = q[len(q)-maxQueuedEvents:]
	}
	e.queues[origin] = q
}

// Drain returns and clears the origin's queued events.
func (e *Events) Drain(origin string) []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	q := e.queues[origin]
	delete(e.queues, origin)
	return q
}
