package filing

import (
	"context"

	id "taxpilot/pkg/domain"
)

// Store persists filing records.
type Store interface {
	// Create inserts a new filing. Returns sentinel.ErrConflict when a
	// filing already exists for the same (transaction, portal) pair.
	Create(ctx context.Context, f *Filing) error
	// Get returns a filing by ID, or sentinel.ErrNotFound.
	Get(ctx context.Context, filingID id.FilingID) (*Filing, error)
	// GetByTransactionPortal returns the filing for a (transaction, portal)
	// pair, or sentinel.ErrNotFound.
	GetByTransactionPortal(ctx context.Context, txID id.TransactionID, portal string) (*Filing, error)
	// Update persists a mutated filing, or sentinel.ErrNotFound.
	Update(ctx context.Context, f *Filing) error
	// ListByTransaction returns all filings for a transaction in creation
	// order.
	ListByTransaction(ctx context.Context, txID id.TransactionID) ([]*Filing, error)
}

// IdempotencyStore records accepted confirmations keyed by idempotency key,
// surviving process restarts so a crash between portal acceptance and state
// commit is detected on the next run.
type IdempotencyStore interface {
	// Confirmation returns the recorded confirmation ID for the key, or
	// sentinel.ErrNotFound.
	Confirmation(ctx context.Context, key string) (string, error)
	// Record stores the confirmation for the key. First write wins; a
	// different confirmation for an existing key returns
	// sentinel.ErrConflict.
	Record(ctx context.Context, key, confirmationID string) error
}
