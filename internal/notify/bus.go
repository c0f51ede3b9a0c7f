// Package notify carries the sync engine's outbound events to the
// presentation layer: an in-process bus for subscribers plus a websocket hub
// that pushes events to connected dashboard clients.
package notify

import "sync"

// Event names emitted by the sync engine.
const (
	EventStats      = "STATS"
	EventActivities = "ACTIVITIES"
	EventCrowns     = "CROWNS"
	EventRecords    = "RECORDS"
	EventError      = "ERROR"
	EventWarning    = "WARNING"
)

// Event is a named notification with a display-ready payload.
type Event struct {
	Name    string `json:"name"`
	Payload any    `json:"payload"`
}

// ErrorPayload is the body of ERROR and WARNING events.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Bus fans events out to subscribers. Publishing never blocks: a subscriber
// that falls behind loses events rather than stalling the sync cycle.
type Bus struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a subscriber. The returned cancel function must be
// called to release the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to all current subscribers.
func (b *Bus) Publish(name string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- Event{Name: name, Payload: payload}:
		default:
		}
	}
}

// Error publishes an ERROR event with a user-facing message.
func (b *Bus) Error(message string) {
	b.Publish(EventError, ErrorPayload{Message: message})
}

// Warning publishes a WARNING event with a user-facing message.
func (b *Bus) Warning(message string) {
	b.Publish(EventWarning, ErrorPayload{Message: message})
}
