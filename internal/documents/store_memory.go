// Package documents stores supporting documents for validation. The
// in-memory store backs development and tests; a blob-store adapter slots in
// behind the same port for production.
package documents

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"taxpilot/internal/validation"
	id "taxpilot/pkg/domain"
	"taxpilot/pkg/platform/sentinel"
)

// InMemoryStore implements the orchestrator's DocumentStore port.
type InMemoryStore struct {
	mu   sync.RWMutex
	byID map[id.DocumentID]validation.Document
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byID: make(map[id.DocumentID]validation.Document)}
}

func (s *InMemoryStore) Store(_ context.Context, doc validation.Document) (id.DocumentID, error) {
	if doc.ID.IsZero() {
		doc.ID = id.DocumentID(uuid.New())
	}
	doc.Content = append([]byte(nil), doc.Content...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[doc.ID] = doc
	return doc.ID, nil
}

func (s *InMemoryStore) Fetch(_ context.Context, docID id.DocumentID) (validation.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.byID[docID]
	if !ok {
		return validation.Document{}, sentinel.ErrNotFound
	}
	doc.Content = append([]byte(nil), doc.Content...)
	return doc, nil
}
