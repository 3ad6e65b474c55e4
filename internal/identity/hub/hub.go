// Package hub fans identity notifications out to in-process subscribers.
package hub

import (
	"slices"
	"sync"

	"nightout/internal/auth/models"
)

// Hub delivers every published notification to every subscriber, one
// notification at a time and in publication order.
type Hub struct {
	deliverMu sync.Mutex

	mu     sync.RWMutex
	subs   []subscriber
	nextID uint64
}

type subscriber struct {
	id uint64
	fn func(models.Notification)
}

func New() *Hub {
	return &Hub{}
}

// Subscribe registers fn. The error is always nil; it matches the platform contract.
func (h *Hub) Subscribe(fn func(models.Notification)) (func(), error) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs = append(h.subs, subscriber{id: id, fn: fn})
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.subs = slices.DeleteFunc(slices.Clone(h.subs), func(s subscriber) bool { return s.id == id })
		})
	}, nil
}

// Publish delivers n synchronously. Subscribers must not publish from their callback.
func (h *Hub) Publish(n models.Notification) {
	h.deliverMu.Lock()
	defer h.deliverMu.Unlock()

	h.mu.RLock()
	subs := h.subs
	h.mu.RUnlock()

	for _, s := range subs {
		s.fn(n)
	}
}

// Len returns the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
