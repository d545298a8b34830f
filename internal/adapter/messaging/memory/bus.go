// Package memory provides an in-process event bus that records publishes in
// order per key. It stands in for the broker in tests and local runs.
package memory

import (
	"context"
	"sync"

	"github.com/corepay/transfer-saga-service/internal/domain"
)

// Bus implements domain.EventPublisher in memory, preserving per-key order.
type Bus struct {
	mu      sync.Mutex
	byKey   map[string][]domain.Event
	ordered []domain.Event
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{byKey: make(map[string][]domain.Event)}
}

// Publish records the event under key.
func (b *Bus) Publish(ctx context.Context, key string, event domain.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.byKey[key] = append(b.byKey[key], event)
	b.ordered = append(b.ordered, event)

	return nil
}

// Events returns the events published under key, in publish order.
func (b *Bus) Events(key string) []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	events := make([]domain.Event, len(b.byKey[key]))
	copy(events, b.byKey[key])

	return events
}

// All returns every published event in publish order.
func (b *Bus) All() []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	events := make([]domain.Event, len(b.ordered))
	copy(events, b.ordered)

	return events
}
