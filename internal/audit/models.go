// Package audit captures the compliance trail of every transaction: each
// state transition, validation verdict and filing outcome is recorded as an
// append-only event. Events are transport-agnostic so stores and sinks can
// fan out.
package audit

import (
	"time"

	id "taxpilot/pkg/domain"
)

// Event is one entry in a transaction's compliance trail.
type Event struct {
	Timestamp     time.Time        `json:"timestamp"`
	TransactionID id.TransactionID `json:"transaction_id"`
	Action        Action           `json:"action"`
	State         string           `json:"state,omitempty"`
	Reason        string           `json:"reason,omitempty"`
	RequestID     string           `json:"request_id,omitempty"`
}

// Action names what happened.
type Action string

const (
	ActionTransactionCreated  Action = "transaction_created"
	ActionTransactionAnalyzed Action = "transaction_analyzed"
	ActionChecklistGenerated  Action = "checklist_generated"
	ActionValidationPassed    Action = "validation_passed"
	ActionValidationFailed    Action = "validation_failed"
	ActionValidationAbandoned Action = "validation_abandoned"
	ActionDocumentsResupplied Action = "documents_resupplied"
	ActionReanalysisTriggered Action = "reanalysis_triggered"
	ActionFilingAccepted      Action = "filing_accepted"
	ActionFilingRejected      Action = "filing_rejected"
	ActionFilingFailed        Action = "filing_failed"
)
