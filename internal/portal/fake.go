package portal

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"taxpilot/internal/orchestrator/ports"
)

// Fake is an in-process FilingPortal for development and tests. It honors
// idempotency keys the way a real portal should: resubmitting a key returns
// the original confirmation.
type Fake struct {
	mu            sync.Mutex
	confirmations map[string]string
	sequence      int

	// FailTransient makes the next n submissions fail with a transient
	// error before any succeeds.
	FailTransient int
	// RejectReason, when set, permanently rejects every submission.
	RejectReason string
}

func NewFake() *Fake {
	return &Fake{confirmations: make(map[string]string)}
}

func (f *Fake) Submit(_ context.Context, sub ports.Submission) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if confirmation, ok := f.confirmations[sub.IdempotencyKey]; ok {
		return confirmation, nil
	}
	if f.RejectReason != "" {
		return "", &ports.PermanentRejection{Reason: f.RejectReason}
	}
	if f.FailTransient > 0 {
		f.FailTransient--
		return "", ports.Transient(errors.New("portal temporarily unavailable"))
	}

	f.sequence++
	confirmation := fmt.Sprintf("FAKE-%s-%06d", sub.Portal, f.sequence)
	f.confirmations[sub.IdempotencyKey] = confirmation
	return confirmation, nil
}
