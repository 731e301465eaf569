package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBreaker_StartsClosed(t *testing.T) {
	b := New("filing-portal")
	assert.Equal(t, StateClosed, b.State())
	assert.False(t, b.IsOpen())
	assert.Equal(t, "filing-portal", b.Name())
}

func TestBreaker_OpenEdge(t *testing.T) {
	b := New("filing-portal", WithFailureThreshold(3))

	var opened int
	for i := 0; i < 3; i++ {
		fallback, change := b.RecordFailure()
		if change.Opened {
			opened++
			assert.True(t, fallback)
		}
	}
	assert.Equal(t, 1, opened, "exactly one open edge")
	assert.True(t, b.IsOpen())

	// Failures against an open breaker keep failing fast with no new edge.
	fallback, change := b.RecordFailure()
	assert.True(t, fallback)
	assert.Equal(t, Change{}, change)
}

func TestBreaker_CloseEdge(t *testing.T) {
	b := New("filing-portal", WithFailureThreshold(1), WithSuccessThreshold(2))
	b.RecordFailure()

	// A single healthy probe is not enough to trust a flapping portal.
	primary, change := b.RecordSuccess()
	assert.False(t, primary)
	assert.Equal(t, Change{}, change)
	assert.True(t, b.IsOpen())

	primary, change = b.RecordSuccess()
	assert.True(t, primary)
	assert.True(t, change.Closed)
	assert.False(t, b.IsOpen())
}

func TestBreaker_CountersResetOnOppositeOutcome(t *testing.T) {
	t.Run("success clears accumulated failures", func(t *testing.T) {
		b := New("filing-portal", WithFailureThreshold(3))
		b.RecordFailure()
		b.RecordFailure()
		b.RecordSuccess()

		b.RecordFailure()
		b.RecordFailure()
		assert.False(t, b.IsOpen(), "the failure run restarted after the success")

		_, change := b.RecordFailure()
		assert.True(t, change.Opened)
	})

	t.Run("failure clears accumulated successes", func(t *testing.T) {
		b := New("filing-portal", WithFailureThreshold(1), WithSuccessThreshold(3))
		b.RecordFailure()

		b.RecordSuccess()
		b.RecordSuccess()
		b.RecordFailure()
		assert.True(t, b.IsOpen())

		b.RecordSuccess()
		b.RecordSuccess()
		assert.True(t, b.IsOpen(), "success run restarted after the failure")
		_, change := b.RecordSuccess()
		assert.True(t, change.Closed)
	})
}

func TestBreaker_Reset(t *testing.T) {
	b := New("filing-portal", WithFailureThreshold(2))
	b.RecordFailure()
	b.RecordFailure()
	assert.True(t, b.IsOpen())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())

	// Reset also cleared the failure count, so one new failure is short of
	// the threshold.
	_, change := b.RecordFailure()
	assert.False(t, change.Opened)
	assert.False(t, b.IsOpen())
}
