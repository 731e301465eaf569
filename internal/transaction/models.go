// Package transaction defines the invoice transaction aggregate and its
// lifecycle state machine. State is mutated only through Apply, which
// enforces the allowed transition graph; terminal states are read-only.
package transaction

import (
	"time"

	"github.com/shopspring/decimal"

	id "taxpilot/pkg/domain"
	dErrors "taxpilot/pkg/domain-errors"
)

// State is a transaction's position in the compliance lifecycle.
type State string

const (
	StateCreated          State = "created"
	StateAnalyzed         State = "analyzed"
	StateChecklistReady   State = "checklist_ready"
	StateValidating       State = "validating"
	StateValidationFailed State = "validation_failed"
	StateValidationPassed State = "validation_passed"
	StateSubmitting       State = "submitting"
	StateFiled            State = "filed"
	StateFilingFailed     State = "filing_failed"
	StateAbandoned        State = "abandoned"
)

// transitions is the allowed state graph. ValidationFailed may re-enter
// Validating (document resupply) until the retry budget is spent, at which
// point the machine moves it to Abandoned. Submitting re-enters itself so a
// run interrupted between the filing-intent commit and the outcome commit
// can resume submission.
var transitions = map[State][]State{
	StateCreated:          {StateAnalyzed},
	StateAnalyzed:         {StateChecklistReady, StateAnalyzed},
	StateChecklistReady:   {StateValidating, StateAnalyzed},
	StateValidating:       {StateValidationPassed, StateValidationFailed},
	StateValidationFailed: {StateValidating, StateAbandoned, StateAnalyzed},
	StateValidationPassed: {StateSubmitting, StateAnalyzed},
	StateSubmitting:       {StateSubmitting, StateFiled, StateFilingFailed},
}

// Terminal reports whether the state permits no further mutation.
func (s State) Terminal() bool {
	return s == StateFiled || s == StateFilingFailed || s == StateAbandoned
}

// CanTransitionTo reports whether the transition s -> next is allowed.
func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SettlementStatus is the payment gateway's view of the transaction,
// consumed as an analyzer input attribute only.
type SettlementStatus string

const (
	SettlementSettled SettlementStatus = "settled"
	SettlementPending SettlementStatus = "pending"
	SettlementFailed  SettlementStatus = "failed"
)

// Transaction is the aggregate for one cross-border invoice.
//
// Invariants:
//   - Amount is positive and Currency is set (enforced at ingestion and again
//     by the analyzer)
//   - State changes only through Apply
//   - A transaction is never deleted; superseding states preserve history in
//     the store's audit columns
type Transaction struct {
	ID                 id.TransactionID `json:"id"`
	InvoiceNumber      string           `json:"invoice_number"`
	Amount             decimal.Decimal  `json:"amount"`
	Currency           string           `json:"currency"`
	Origin             string           `json:"origin"`
	Destination        string           `json:"destination"`
	Category           string           `json:"category"`
	Settlement         SettlementStatus `json:"settlement"`
	OccurredAt         time.Time        `json:"occurred_at"`
	State              State            `json:"state"`
	StateReason        string           `json:"state_reason,omitempty"`
	ValidationAttempts int              `json:"validation_attempts"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// New constructs a transaction in the Created state, validating the inbound
// surface before anything enters the pipeline.
func New(txID id.TransactionID, invoiceNumber string, amount decimal.Decimal, currency, origin, destination, category string, occurredAt, now time.Time) (*Transaction, error) {
	if invoiceNumber == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "invoice number is required")
	}
	if !amount.IsPositive() {
		return nil, dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	if currency == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "currency is required")
	}
	if origin == "" || destination == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "origin and destination jurisdictions are required")
	}
	if occurredAt.IsZero() {
		occurredAt = now
	}
	return &Transaction{
		ID:            txID,
		InvoiceNumber: invoiceNumber,
		Amount:        amount,
		Currency:      currency,
		Origin:        origin,
		Destination:   destination,
		Category:      category,
		Settlement:    SettlementPending,
		OccurredAt:    occurredAt,
		State:         StateCreated,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// CrossBorder reports whether origin and destination jurisdictions differ.
func (t *Transaction) CrossBorder() bool {
	return t.Origin != t.Destination
}

// Apply transitions the transaction to the next state, recording the reason.
// Rejected with invariant_violation when the transition is not in the graph
// or the transaction is already terminal.
func (t *Transaction) Apply(next State, reason string, now time.Time) error {
	if t.State.Terminal() {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"transaction %s is terminal in state %s", t.ID, t.State)
	}
	if !t.State.CanTransitionTo(next) {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"illegal transition %s -> %s for transaction %s", t.State, next, t.ID)
	}
	t.State = next
	t.StateReason = reason
	t.UpdatedAt = now
	return nil
}
