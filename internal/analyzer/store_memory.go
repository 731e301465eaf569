package analyzer

import (
	"context"
	"sync"

	id "taxpilot/pkg/domain"
	"taxpilot/pkg/platform/sentinel"
)

// InMemoryStore keeps results in a map. Suitable for tests and single-node
// development; the Postgres store carries production load.
type InMemoryStore struct {
	mu   sync.RWMutex
	byTx map[id.TransactionID]*Result
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byTx: make(map[id.TransactionID]*Result)}
}

func (s *InMemoryStore) Put(_ context.Context, result *Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byTx[result.TransactionID] = copyResult(result)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, txID id.TransactionID) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.byTx[txID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyResult(result), nil
}

func copyResult(result *Result) *Result {
	cp := *result
	cp.MatchedRules = append(cp.MatchedRules[:0:0], result.MatchedRules...)
	cp.Taxes = append(cp.Taxes[:0:0], result.Taxes...)
	cp.Exemptions = append(cp.Exemptions[:0:0], result.Exemptions...)
	return &cp
}
