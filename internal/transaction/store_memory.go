package transaction

import (
	"context"
	"sort"
	"sync"

	id "taxpilot/pkg/domain"
	"taxpilot/pkg/platform/sentinel"
)

// InMemoryStore keeps transactions in a map. Suitable for tests and
// single-node development; the Postgres store carries production load.
type InMemoryStore struct {
	mu       sync.RWMutex
	byID     map[id.TransactionID]*Transaction
	invoices map[string]id.TransactionID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:     make(map[id.TransactionID]*Transaction),
		invoices: make(map[string]id.TransactionID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, tx *Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[tx.ID]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.invoices[tx.InvoiceNumber]; exists {
		return sentinel.ErrConflict
	}
	cp := *tx
	s.byID[tx.ID] = &cp
	s.invoices[tx.InvoiceNumber] = tx.ID
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, txID id.TransactionID) (*Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.byID[txID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

func (s *InMemoryStore) Update(_ context.Context, tx *Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[tx.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *tx
	s.byID[tx.ID] = &cp
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Transaction, 0, len(s.byID))
	for _, tx := range s.byID {
		cp := *tx
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
