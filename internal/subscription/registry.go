package subscription

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/dkasten/feedlink/internal/wire"
)

// Wildcard matches every envelope type.
const Wildcard = "*"

// Handler receives the payload of a matching envelope.
type Handler func(payload json.RawMessage)

// Filter suppresses delivery when it returns false. A nil filter passes
// everything.
type Filter func(payload json.RawMessage) bool

// Subscription binds a channel name to a handler.
type Subscription struct {
	ID      string
	Channel string
	handler Handler
	filter  Filter
}

// Registry multiplexes inbound envelopes to channel subscribers. Multiple
// subscriptions may share a channel; each has its own id.
type Registry struct {
	mu   sync.Mutex
	subs map[string]*Subscription
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		subs: make(map[string]*Subscription),
	}
}

// Subscribe registers a handler for a channel and returns the subscription id
// together with a cancel func that removes exactly this subscription. The
// cancel func is idempotent.
func (r *Registry) Subscribe(channel string, handler Handler, filter Filter) (string, func()) {
	id := uuid.NewString()

	r.mu.Lock()
	r.subs[id] = &Subscription{
		ID:      id,
		Channel: channel,
		handler: handler,
		filter:  filter,
	}
	r.mu.Unlock()

	return id, func() { r.Unsubscribe(id) }
}

// Unsubscribe removes a subscription by id. Removing an unknown id is a no-op.
func (r *Registry) Unsubscribe(id string) {
	r.mu.Lock()
	delete(r.subs, id)
	r.mu.Unlock()
}

// Dispatch delivers an envelope's payload to every subscription whose channel
// equals the envelope type or the wildcard, subject to the filter. Handlers
// run outside the lock against a snapshot, so they may subscribe or
// unsubscribe freely. An envelope matching nothing is silently dropped.
func (r *Registry) Dispatch(env *wire.Envelope) {
	r.mu.Lock()
	matched := make([]*Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		if sub.Channel == env.Type || sub.Channel == Wildcard {
			matched = append(matched, sub)
		}
	}
	r.mu.Unlock()

	for _, sub := range matched {
		if sub.filter != nil && !sub.filter(env.Payload) {
			continue
		}
		sub.handler(env.Payload)
	}
}

// Len returns the number of active subscriptions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
