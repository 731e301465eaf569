package analyzer

import (
	"context"

	id "taxpilot/pkg/domain"
)

// Store persists the latest analysis result per transaction. Results are
// immutable for a given registry version; re-analysis replaces the record.
type Store interface {
	// Put stores or replaces the transaction's analysis result.
	Put(ctx context.Context, result *Result) error
	// Get returns the transaction's result, or sentinel.ErrNotFound.
	Get(ctx context.Context, txID id.TransactionID) (*Result, error)
}
