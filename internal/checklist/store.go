package checklist

import (
	"context"

	id "taxpilot/pkg/domain"
)

// Store persists the current checklist per transaction. A transaction has at
// most one checklist; Put replaces any prior version (re-analysis invalidates
// the old checklist wholesale).
type Store interface {
	// Put stores or replaces the transaction's checklist.
	Put(ctx context.Context, list *Checklist) error
	// Get returns the transaction's checklist, or sentinel.ErrNotFound.
	Get(ctx context.Context, txID id.TransactionID) (*Checklist, error)
	// UpdateItemStatus sets one item's status. Returns sentinel.ErrNotFound
	// when the transaction has no checklist or no such item.
	UpdateItemStatus(ctx context.Context, txID id.TransactionID, itemID id.ChecklistItemID, status ItemStatus) error
	// Delete removes the transaction's checklist. Missing is not an error.
	Delete(ctx context.Context, txID id.TransactionID) error
}
