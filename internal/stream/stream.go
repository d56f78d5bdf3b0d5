// Package stream fans sale lifecycle events out to live subscribers, such
// as managers watching the approval queue over Server-Sent Events.
package stream

import (
	"context"
	"sync"
	"time"
)

// SaleEvent describes one committed transition of a sale.
type SaleEvent struct {
	Type          string    `json:"type"`
	SaleID        int64     `json:"saleId"`
	TenantID      int64     `json:"tenantId"`
	EmployeeID    int64     `json:"employeeId"`
	Status        string    `json:"status"`
	TotalPrice    string    `json:"totalPrice"`
	Commission    string    `json:"commission,omitempty"`
	TransactionID string    `json:"transactionId"`
	Timestamp     time.Time `json:"timestamp"`
}

const subscriberBuffer = 16

type subscriber struct {
	ch chan SaleEvent
	// nil receives every tenant.
	tenantID *int64
}

// Hub fans events out to all active subscribers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]subscriber
	next   int
	closed bool
}

func New() *Hub {
	return &Hub{subs: make(map[int]subscriber)}
}

// Subscribe registers a subscriber limited to tenantID, or to every tenant
// when tenantID is nil. The channel is closed when ctx ends or the hub is
// closed.
func (h *Hub) Subscribe(ctx context.Context, tenantID *int64) <-chan SaleEvent {
	ch := make(chan SaleEvent, subscriberBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch
	}
	id := h.next
	h.next++
	h.subs[id] = subscriber{ch: ch, tenantID: tenantID}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		if s, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(s.ch)
		}
		h.mu.Unlock()
	}()

	return ch
}

// Close ends every subscription, letting long-lived streams finish during
// server shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, s := range h.subs {
		delete(h.subs, id)
		close(s.ch)
	}
}

// Publish never blocks: a slow subscriber misses events.
func (h *Hub) Publish(evt SaleEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		if s.tenantID != nil && *s.tenantID != evt.TenantID {
			continue
		}
		select {
		case s.ch <- evt:
		default:
		}
	}
}

// Subscribers reports the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
