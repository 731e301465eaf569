// Package ports declares the interfaces of the external collaborators the
// pipeline depends on. Adapters implement them against real services; tests
// substitute fakes. Error semantics are part of each contract: transient
// failures are retryable, permanent rejections are not.
package ports

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"taxpilot/internal/transaction"
	"taxpilot/internal/validation"
	id "taxpilot/pkg/domain"
)

// TransientError marks a collaborator failure worth retrying: timeouts,
// 5xx-equivalents, temporary unavailability.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable.
func Transient(err error) error { return &TransientError{Err: err} }

// PermanentRejection is an explicit refusal by the collaborator. Never
// retried; the reason is recorded for audit.
type PermanentRejection struct {
	Reason string
}

func (e *PermanentRejection) Error() string { return fmt.Sprintf("rejected: %s", e.Reason) }

// DocumentStore fetches and stores supporting documents. Unavailability is
// reported via sentinel.ErrUnavailable wrapped in a TransientError.
type DocumentStore interface {
	Fetch(ctx context.Context, docID id.DocumentID) (validation.Document, error)
	Store(ctx context.Context, doc validation.Document) (id.DocumentID, error)
}

// Submission is one filing attempt against a government portal.
type Submission struct {
	Portal         string
	Payload        []byte
	IdempotencyKey string
}

// FilingPortal submits filings. Implementations must treat IdempotencyKey as
// the deduplication handle: resubmitting the same key returns the original
// confirmation identifier rather than filing twice.
type FilingPortal interface {
	Submit(ctx context.Context, sub Submission) (confirmationID string, err error)
}

// InvoiceAttributes are the normalized transaction fields the ERP holds for
// an invoice.
type InvoiceAttributes struct {
	Amount      decimal.Decimal
	Currency    string
	Origin      string
	Destination string
	Category    string
}

// ERP exposes the system of record for invoice attributes.
type ERP interface {
	FetchInvoiceAttributes(ctx context.Context, invoiceNumber string) (InvoiceAttributes, error)
}

// PaymentGateway reports settlement status. Read-only; consumed by the
// analyzer as an input attribute.
type PaymentGateway interface {
	SettlementStatus(ctx context.Context, txID id.TransactionID) (transaction.SettlementStatus, error)
}
