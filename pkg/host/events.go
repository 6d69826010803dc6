package host

import (
	"slices"
	"sync"
)

// Bus is an in-memory implementation of [Events]. It is safe for concurrent
// use and is the default bus for the CLI and tests; embedding applications
// typically bring their own.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]Handler
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: map[string]map[int]Handler{}}
}

// Subscribe registers a handler for a topic and returns its disposer.
// Calling the disposer more than once is harmless.
func (b *Bus) Subscribe(topic string, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[topic] == nil {
		b.subs[topic] = map[int]Handler{}
	}
	id := b.nextID
	b.nextID++
	b.subs[topic][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[topic], id)
	}
}

// Publish delivers the payload to every handler subscribed to the topic.
// Handlers run synchronously in subscription order.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[topic]))
	ids := make([]int, 0, len(b.subs[topic]))
	for id := range b.subs[topic] {
		ids = append(ids, id)
	}
	// Map iteration is randomized; deliver in subscription order instead.
	slices.Sort(ids)
	for _, id := range ids {
		handlers = append(handlers, b.subs[topic][id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(payload)
	}
}

var _ Events = (*Bus)(nil)
