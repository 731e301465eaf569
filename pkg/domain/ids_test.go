package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "taxpilot/pkg/domain-errors"
)

// TestParseTransactionID_Invariants validates the parsing invariant:
// IDs must be valid, non-empty, non-nil UUIDs.
func TestParseTransactionID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseTransactionID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseTransactionID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseTransactionID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseTransactionID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, TransactionID(validUUID), id)
	})
}

func TestParseDocumentID_RoundTrip(t *testing.T) {
	original := DocumentID(uuid.New())
	parsed, err := ParseDocumentID(original.String())
	require.NoError(t, err)
	assert.Equal(t, original, parsed)
}

// TestTypeDistinction verifies the compiler enforces type safety.
// This is a compile-time check - if this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	txID := TransactionID(uuid.New())
	filingID := FilingID(uuid.New())

	// These would fail to compile if types were interchangeable:
	// var _ TransactionID = filingID   // compile error
	// var _ FilingID = txID            // compile error

	assert.NotEqual(t, uuid.UUID(txID), uuid.UUID(filingID))
}

func TestIsZero(t *testing.T) {
	assert.True(t, TransactionID{}.IsZero())
	assert.False(t, TransactionID(uuid.New()).IsZero())
}
