package backoff

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponential(t *testing.T) {
	tests := []struct {
		name    string
		base    time.Duration
		attempt int
		want    time.Duration
	}{
		{"attempt zero returns base", 100 * time.Millisecond, 0, 100 * time.Millisecond},
		{"attempt one doubles", 100 * time.Millisecond, 1, 200 * time.Millisecond},
		{"attempt three is 8x", 100 * time.Millisecond, 3, 800 * time.Millisecond},
		{"negative attempt treated as zero", 100 * time.Millisecond, -5, 100 * time.Millisecond},
		{"zero base returns zero", 0, 3, 0},
		{"huge attempt saturates", time.Second, 200, time.Duration(math.MaxInt64)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Exponential(tt.base, tt.attempt))
		})
	}
}

func TestFullJitter_Range(t *testing.T) {
	delay := 500 * time.Millisecond
	for i := 0; i < 100; i++ {
		j := FullJitter(delay)
		assert.GreaterOrEqual(t, j, time.Duration(0))
		assert.Less(t, j, delay)
	}
	assert.Equal(t, time.Duration(0), FullJitter(0))
	assert.Equal(t, time.Duration(0), FullJitter(-time.Second))
}

func TestPolicy_Delay_CapsAtMaxDelay(t *testing.T) {
	p := Policy{
		MaxAttempts: 10,
		BaseDelay:   time.Second,
		MaxDelay:    2 * time.Second,
		Jitter:      func(d time.Duration) time.Duration { return d }, // identity for determinism
	}

	assert.Equal(t, time.Second, p.Delay(0))
	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(8))
}

func TestPolicy_Delay_DefaultsToFullJitter(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Second}
	d := p.Delay(0)
	assert.GreaterOrEqual(t, d, time.Duration(0))
	assert.Less(t, d, time.Second)
}

func TestSleep_CompletesAndCancels(t *testing.T) {
	t.Run("zero duration returns immediately", func(t *testing.T) {
		require.NoError(t, Sleep(context.Background(), 0))
	})

	t.Run("cancelled context aborts sleep", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Sleep(ctx, time.Minute)
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("short sleep completes", func(t *testing.T) {
		require.NoError(t, Sleep(context.Background(), time.Millisecond))
	})
}
