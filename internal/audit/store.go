package audit

import (
	"context"
	"sync"

	id "taxpilot/pkg/domain"
)

// Sink receives events. Stores persist them; forwarders ship them elsewhere.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Store is a queryable sink.
type Store interface {
	Sink
	ListByTransaction(ctx context.Context, txID id.TransactionID) ([]Event, error)
}

// InMemoryStore keeps events per transaction in append order.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.TransactionID][]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.TransactionID][]Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[event.TransactionID] = append(s.events[event.TransactionID], event)
	return nil
}

func (s *InMemoryStore) ListByTransaction(_ context.Context, txID id.TransactionID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.events[txID]
	out := make([]Event, len(events))
	copy(out, events)
	return out, nil
}
