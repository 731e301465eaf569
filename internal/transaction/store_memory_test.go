package transaction

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "taxpilot/pkg/domain"
	"taxpilot/pkg/platform/sentinel"
)

func newTestTransaction(t *testing.T, invoice string) *Transaction {
	t.Helper()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tx, err := New(
		id.TransactionID(uuid.New()), invoice,
		decimal.RequireFromString("2500.00"), "USD",
		"IN", "US", "technical", now, now,
	)
	require.NoError(t, err)
	return tx
}

func TestInMemoryStore_CreateAndGet(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	tx := newTestTransaction(t, "INV-1001")

	require.NoError(t, store.Create(ctx, tx))

	got, err := store.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.InvoiceNumber, got.InvoiceNumber)
	assert.Equal(t, StateCreated, got.State)
}

func TestInMemoryStore_DuplicateInvoiceConflicts(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newTestTransaction(t, "INV-1001")))
	err := store.Create(ctx, newTestTransaction(t, "INV-1001"))
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestInMemoryStore_GetMissing(t *testing.T) {
	store := NewInMemoryStore()
	_, err := store.Get(context.Background(), id.TransactionID(uuid.New()))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryStore_UpdateIsolatesCallerCopy(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	tx := newTestTransaction(t, "INV-1002")
	require.NoError(t, store.Create(ctx, tx))

	// Mutating the caller's copy must not leak into the store.
	tx.State = StateFiled

	got, err := store.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCreated, got.State)
}

func TestInMemoryStore_ConcurrentUpdates(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	tx := newTestTransaction(t, "INV-1003")
	require.NoError(t, store.Create(ctx, tx))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := store.Get(ctx, tx.ID)
			assert.NoError(t, err)
			got.ValidationAttempts++
			assert.NoError(t, store.Update(ctx, got))
		}()
	}
	wg.Wait()
}

func TestState_Transitions(t *testing.T) {
	tests := []struct {
		from    State
		to      State
		allowed bool
	}{
		{StateCreated, StateAnalyzed, true},
		{StateCreated, StateSubmitting, false},
		{StateAnalyzed, StateChecklistReady, true},
		{StateChecklistReady, StateValidating, true},
		{StateValidating, StateValidationPassed, true},
		{StateValidating, StateValidationFailed, true},
		{StateValidationFailed, StateValidating, true},
		{StateValidationFailed, StateAbandoned, true},
		{StateValidationPassed, StateSubmitting, true},
		{StateSubmitting, StateSubmitting, true},
		{StateSubmitting, StateFiled, true},
		{StateSubmitting, StateFilingFailed, true},
		{StateFiled, StateSubmitting, false},
		{StateValidationPassed, StateFiled, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestTransaction_Apply_TerminalStatesAreReadOnly(t *testing.T) {
	now := time.Now()
	tx := newTestTransaction(t, "INV-1004")
	tx.State = StateFiled

	err := tx.Apply(StateSubmitting, "", now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "terminal")
}

func TestTransaction_New_Validation(t *testing.T) {
	now := time.Now()
	txID := id.TransactionID(uuid.New())

	t.Run("rejects non-positive amount", func(t *testing.T) {
		_, err := New(txID, "INV-1", decimal.Zero, "USD", "IN", "US", "technical", now, now)
		require.Error(t, err)
	})

	t.Run("rejects missing currency", func(t *testing.T) {
		_, err := New(txID, "INV-1", decimal.NewFromInt(10), "", "IN", "US", "technical", now, now)
		require.Error(t, err)
	})

	t.Run("rejects missing jurisdictions", func(t *testing.T) {
		_, err := New(txID, "INV-1", decimal.NewFromInt(10), "USD", "", "US", "technical", now, now)
		require.Error(t, err)
	})
}
