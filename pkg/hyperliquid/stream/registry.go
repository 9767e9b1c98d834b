package stream

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Subscription is one registry entry. Entries are immutable once created;
// the stored wire message, resent verbatim, reproduces the same server-side
// subscription after a reconnect.
type Subscription struct {
	ID        string
	Channel   Channel
	Params    map[string]string
	CreatedAt time.Time

	// Delivered reports whether the subscribe message reached the wire at
	// Subscribe time, or was merely queued for the next reconnect.
	Delivered bool

	wire []byte
}

// WireMessage returns a copy of the subscribe payload as sent on the wire.
func (s *Subscription) WireMessage() []byte {
	out := make([]byte, len(s.wire))
	copy(out, s.wire)
	return out
}

// subscriptionRegistry tracks active subscriptions in insertion order so
// replay after a reconnect preserves the order entries were registered in.
type subscriptionRegistry struct {
	mu      sync.Mutex
	order   []string
	entries map[string]*Subscription
}

func newSubscriptionRegistry() *subscriptionRegistry {
	return &subscriptionRegistry{
		entries: make(map[string]*Subscription),
	}
}

func (r *subscriptionRegistry) add(channel Channel, params map[string]string, wire []byte, delivered bool) *Subscription {
	now := time.Now()

	copied := make(map[string]string, len(params))
	for k, v := range params {
		copied[k] = v
	}

	sub := &Subscription{
		ID:        fmt.Sprintf("%s-%d-%s", channel, now.UnixNano(), uuid.NewString()[:8]),
		Channel:   channel,
		Params:    copied,
		CreatedAt: now,
		Delivered: delivered,
		wire:      wire,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, sub.ID)
	r.entries[sub.ID] = sub
	return sub
}

func (r *subscriptionRegistry) get(id string) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[id]
}

func (r *subscriptionRegistry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// list returns all entries in insertion order.
func (r *subscriptionRegistry) list() []*Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Subscription, 0, len(r.order))
	for _, id := range r.order {
		if sub, ok := r.entries[id]; ok {
			out = append(out, sub)
		}
	}
	return out
}

func (r *subscriptionRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *subscriptionRegistry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = nil
	r.entries = make(map[string]*Subscription)
}
