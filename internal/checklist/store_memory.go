package checklist

import (
	"context"
	"sync"

	id "taxpilot/pkg/domain"
	"taxpilot/pkg/platform/sentinel"
)

// InMemoryStore keeps checklists in a map. Suitable for tests and
// single-node development; the Postgres store carries production load.
type InMemoryStore struct {
	mu   sync.RWMutex
	byTx map[id.TransactionID]*Checklist
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byTx: make(map[id.TransactionID]*Checklist)}
}

func (s *InMemoryStore) Put(_ context.Context, list *Checklist) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byTx[list.TransactionID] = copyChecklist(list)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, txID id.TransactionID) (*Checklist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list, ok := s.byTx[txID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyChecklist(list), nil
}

func (s *InMemoryStore) UpdateItemStatus(_ context.Context, txID id.TransactionID, itemID id.ChecklistItemID, status ItemStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, ok := s.byTx[txID]
	if !ok {
		return sentinel.ErrNotFound
	}
	for i := range list.Items {
		if list.Items[i].ID == itemID {
			list.Items[i].Status = status
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (s *InMemoryStore) Delete(_ context.Context, txID id.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.byTx, txID)
	return nil
}

func copyChecklist(list *Checklist) *Checklist {
	cp := *list
	cp.Items = make([]Item, len(list.Items))
	copy(cp.Items, list.Items)
	return &cp
}
