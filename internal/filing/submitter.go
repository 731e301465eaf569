package filing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"taxpilot/internal/filing/metrics"
	"taxpilot/internal/orchestrator/ports"
	dErrors "taxpilot/pkg/domain-errors"
	"taxpilot/pkg/platform/backoff"
	"taxpilot/pkg/platform/sentinel"
	"taxpilot/pkg/requestcontext"
)

// Submitter drives one filing to a terminal outcome against the portal.
// Transient failures are retried per the backoff policy with the same
// idempotency key; permanent rejections stop immediately. The filing is
// mutated in place and the caller persists it, so a submission outcome can
// commit atomically with the transaction's state transition.
type Submitter struct {
	portal      ports.FilingPortal
	idempotency IdempotencyStore
	policy      backoff.Policy
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

func NewSubmitter(portal ports.FilingPortal, idempotency IdempotencyStore, policy backoff.Policy, logger *slog.Logger, m *metrics.Metrics) *Submitter {
	return &Submitter{
		portal:      portal,
		idempotency: idempotency,
		policy:      policy,
		logger:      logger,
		metrics:     m,
	}
}

// Submit submits the payload for the filing. The payload must hash to the
// filing's recorded payload hash: a retry never switches payloads under the
// same filing. Cancellation is honored between attempts, never mid-call.
func (s *Submitter) Submit(ctx context.Context, f *Filing, payload []byte) error {
	start := time.Now()
	now := requestcontext.Now(ctx)

	if f.Status.Terminal() {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"filing %s is terminal in status %s", f.ID, f.Status)
	}
	if hash := PayloadHash(payload); hash != f.PayloadHash {
		return dErrors.Newf(dErrors.CodeConflict,
			"payload hash %s does not match filing %s hash %s", hash, f.ID, f.PayloadHash)
	}
	key := IdempotencyKey(f.TransactionID, f.Portal, f.PayloadHash)

	// A recorded confirmation means a prior run was accepted by the portal
	// but crashed before committing state. Adopt it instead of resubmitting.
	if confirmation, err := s.idempotency.Confirmation(ctx, key); err == nil {
		s.markFiled(ctx, f, confirmation, now)
		s.observe("filed", start)
		return nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "idempotency store unavailable")
	}

	var lastErr error
	for attempt := 0; attempt < s.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			if s.metrics != nil {
				s.metrics.ObserveRetry()
			}
			if err := backoff.Sleep(ctx, s.policy.Delay(attempt-1)); err != nil {
				return dErrors.Wrap(err, dErrors.CodeUnavailable, "submission cancelled")
			}
		}

		f.Attempts++
		confirmation, err := s.portal.Submit(ctx, ports.Submission{
			Portal:         f.Portal,
			Payload:        payload,
			IdempotencyKey: key,
		})
		if err == nil {
			if recordErr := s.idempotency.Record(ctx, key, confirmation); recordErr != nil && s.logger != nil {
				s.logger.WarnContext(ctx, "failed to record filing confirmation",
					"filing_id", f.ID, "error", recordErr)
			}
			s.markFiled(ctx, f, confirmation, now)
			s.observe("filed", start)
			return nil
		}

		var rejection *ports.PermanentRejection
		if errors.As(err, &rejection) {
			f.Status = StatusRejected
			f.Reason = rejection.Reason
			f.UpdatedAt = now
			if s.logger != nil {
				s.logger.WarnContext(ctx, "filing rejected by portal",
					"filing_id", f.ID, "portal", f.Portal, "reason", rejection.Reason)
			}
			s.observe("rejected", start)
			return dErrors.Wrap(err, dErrors.CodeRejected, "filing rejected by portal")
		}

		lastErr = err
		if s.logger != nil {
			s.logger.WarnContext(ctx, "filing attempt failed",
				"filing_id", f.ID, "portal", f.Portal, "attempt", f.Attempts, "error", err)
		}
	}

	f.Status = StatusFailed
	f.Reason = lastErr.Error()
	f.UpdatedAt = now
	s.observe("failed", start)
	return dErrors.Wrap(lastErr, dErrors.CodeUnavailable, "filing portal unavailable")
}

func (s *Submitter) markFiled(ctx context.Context, f *Filing, confirmation string, now time.Time) {
	f.Status = StatusFiled
	f.ConfirmationID = confirmation
	f.Reason = ""
	f.UpdatedAt = now
	if s.logger != nil {
		s.logger.InfoContext(ctx, "filing accepted",
			"filing_id", f.ID, "portal", f.Portal, "confirmation_id", confirmation, "attempts", f.Attempts)
	}
}

func (s *Submitter) observe(outcome string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveSubmission(outcome, time.Since(start))
	}
}
