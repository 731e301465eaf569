package transaction

import (
	"context"

	id "taxpilot/pkg/domain"
)

// Store persists transactions. Implementations return sentinel errors
// (sentinel.ErrNotFound, sentinel.ErrConflict) so services can translate them
// into domain errors.
type Store interface {
	// Create inserts a new transaction. Fails with sentinel.ErrConflict when
	// the invoice number is already ingested.
	Create(ctx context.Context, tx *Transaction) error

	// Get returns the transaction or sentinel.ErrNotFound.
	Get(ctx context.Context, txID id.TransactionID) (*Transaction, error)

	// Update persists the current state of the transaction.
	Update(ctx context.Context, tx *Transaction) error

	// List returns all transactions; used by the dashboard surface.
	List(ctx context.Context) ([]*Transaction, error)
}
