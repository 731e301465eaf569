package filing

import (
	"context"
	"sync"

	"taxpilot/pkg/platform/sentinel"
)

// InMemoryIdempotencyStore keeps confirmations in a map. Test and
// single-node use only: it does not survive restarts, so crash detection
// between portal acceptance and state commit needs the Redis store.
type InMemoryIdempotencyStore struct {
	mu            sync.RWMutex
	confirmations map[string]string
}

func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{confirmations: make(map[string]string)}
}

func (s *InMemoryIdempotencyStore) Confirmation(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	confirmation, ok := s.confirmations[key]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return confirmation, nil
}

func (s *InMemoryIdempotencyStore) Record(_ context.Context, key, confirmationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.confirmations[key]; ok {
		if existing != confirmationID {
			return sentinel.ErrConflict
		}
		return nil
	}
	s.confirmations[key] = confirmationID
	return nil
}
