// Package backoff provides a bounded-attempt retry policy with exponential
// delay and full jitter, expressed as a value so retry behavior is
// independently testable instead of living in ad hoc loops.
package backoff

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

const maxShift = 62

// Policy describes how an operation is retried: how many attempts are
// allowed, and how long to wait between them. The zero value retries nothing;
// use Default for sane production settings.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Jitter maps a computed delay to the actual wait. Defaults to FullJitter.
	// Tests inject a deterministic function here.
	Jitter func(time.Duration) time.Duration
}

// Default returns the policy used for external collaborator calls.
func Default() Policy {
	return Policy{
		MaxAttempts: 4,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

// Delay returns the wait before the given retry attempt (0-based: attempt 0
// is the delay after the first failure). The exponential delay is capped at
// MaxDelay before jitter is applied.
func (p Policy) Delay(attempt int) time.Duration {
	d := Exponential(p.BaseDelay, attempt)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	jitter := p.Jitter
	if jitter == nil {
		jitter = FullJitter
	}
	return jitter(d)
}

// Exponential calculates base * 2^attempt with overflow protection.
// Negative attempts are treated as 0.
func Exponential(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	} else if attempt > maxShift {
		attempt = maxShift
	}
	multiplier := int64(1 << attempt)
	if int64(base) > math.MaxInt64/multiplier {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(int64(base) * multiplier)
}

// FullJitter returns a random duration in [0, delay). This implements the
// "Full Jitter" strategy so concurrent retries spread out instead of
// hammering a recovering collaborator in lockstep.
func FullJitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(delay)))
}

// Sleep waits for the given duration but respects context cancellation.
// Returns nil if the sleep completes, or the context error if cancelled.
func Sleep(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return nil
	}
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
