// Package filing drives filing submissions to external portals: at most one
// submission per (transaction, portal, payload hash), bounded retries with
// backoff on transient failures, and a permanent record of every terminal
// outcome.
package filing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	id "taxpilot/pkg/domain"
)

// Status is a filing's submission outcome.
type Status string

const (
	// StatusPending means the filing exists but no terminal outcome yet.
	StatusPending Status = "pending"
	// StatusFiled means the portal accepted the submission.
	StatusFiled Status = "filed"
	// StatusRejected means the portal permanently refused the submission.
	StatusRejected Status = "rejected"
	// StatusFailed means transient failures exhausted the retry budget.
	StatusFailed Status = "failed"
)

// Terminal reports whether the status permits no further submission attempts.
func (s Status) Terminal() bool {
	return s == StatusFiled || s == StatusRejected
}

// Filing is one submission record for a (transaction, portal) pair.
type Filing struct {
	ID             id.FilingID      `json:"id"`
	TransactionID  id.TransactionID `json:"transaction_id"`
	Portal         string           `json:"portal"`
	PayloadHash    string           `json:"payload_hash"`
	ConfirmationID string           `json:"confirmation_id,omitempty"`
	Status         Status           `json:"status"`
	Reason         string           `json:"reason,omitempty"`
	Attempts       int              `json:"attempts"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// New constructs a pending filing for the given payload.
func New(filingID id.FilingID, txID id.TransactionID, portal string, payload []byte, now time.Time) *Filing {
	return &Filing{
		ID:            filingID,
		TransactionID: txID,
		Portal:        portal,
		PayloadHash:   PayloadHash(payload),
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// PayloadHash returns the hex SHA-256 of the submission payload. The hash is
// the filing's idempotency anchor: retries must carry the same hash, and a
// changed payload is a new filing.
func PayloadHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// IdempotencyKey is the deduplication handle sent to the portal and used to
// detect a crash between an accepted submission and the local state commit.
func IdempotencyKey(txID id.TransactionID, portal, payloadHash string) string {
	return fmt.Sprintf("filing:%s:%s:%s", txID, portal, payloadHash)
}
