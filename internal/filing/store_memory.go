package filing

import (
	"context"
	"sort"
	"sync"

	id "taxpilot/pkg/domain"
	"taxpilot/pkg/platform/sentinel"
)

// InMemoryStore keeps filings in maps. Suitable for tests and single-node
// development; the Postgres store carries production load.
type InMemoryStore struct {
	mu       sync.RWMutex
	byID     map[id.FilingID]*Filing
	byTarget map[string]id.FilingID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:     make(map[id.FilingID]*Filing),
		byTarget: make(map[string]id.FilingID),
	}
}

func targetKey(txID id.TransactionID, portal string) string {
	return txID.String() + "/" + portal
}

func (s *InMemoryStore) Create(_ context.Context, f *Filing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[f.ID]; exists {
		return sentinel.ErrConflict
	}
	key := targetKey(f.TransactionID, f.Portal)
	if _, exists := s.byTarget[key]; exists {
		return sentinel.ErrConflict
	}
	cp := *f
	s.byID[f.ID] = &cp
	s.byTarget[key] = f.ID
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, filingID id.FilingID) (*Filing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.byID[filingID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (s *InMemoryStore) GetByTransactionPortal(_ context.Context, txID id.TransactionID, portal string) (*Filing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filingID, ok := s.byTarget[targetKey(txID, portal)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[filingID]
	return &cp, nil
}

func (s *InMemoryStore) Update(_ context.Context, f *Filing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[f.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *f
	s.byID[f.ID] = &cp
	return nil
}

func (s *InMemoryStore) ListByTransaction(_ context.Context, txID id.TransactionID) ([]*Filing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Filing
	for _, f := range s.byID {
		if f.TransactionID == txID {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
