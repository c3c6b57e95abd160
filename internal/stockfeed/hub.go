package stockfeed

import (
	"sync"
	"time"
)

// StockEvent describes one committed stock change.
type StockEvent struct {
	BusinessID string    `json:"-"`
	ProductID  string    `json:"productId"`
	Delta      int       `json:"delta"`
	Stock      int       `json:"stock"`
	At         time.Time `json:"at"`
}

const subscriberBuffer = 16

// Hub fans out stock events to websocket subscribers, partitioned by business
// so one tenant never observes another's inventory.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan StockEvent]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan StockEvent]struct{})}
}

// Subscribe registers a subscriber for a business's events. The returned
// cancel function must be called when the subscriber disconnects.
func (h *Hub) Subscribe(businessID string) (<-chan StockEvent, func()) {
	ch := make(chan StockEvent, subscriberBuffer)

	h.mu.Lock()
	if h.subs[businessID] == nil {
		h.subs[businessID] = make(map[chan StockEvent]struct{})
	}
	h.subs[businessID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[businessID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, businessID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of its business. Slow
// subscribers are skipped rather than blocking the publisher.
func (h *Hub) Publish(ev StockEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[ev.BusinessID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SubscriberCount returns the number of subscribers for a business.
func (h *Hub) SubscriberCount(businessID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[businessID])
}
