package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "taxpilot/pkg/domain"
	"taxpilot/pkg/requestcontext"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestPublisher_SyncMode(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store, nil)
	defer pub.Close()

	txID := id.TransactionID(uuid.New())
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithRequestID(ctx, "req-1")

	require.NoError(t, pub.Emit(ctx, Event{
		TransactionID: txID,
		Action:        ActionTransactionAnalyzed,
		State:         "analyzed",
	}))

	events, err := pub.List(ctx, txID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ActionTransactionAnalyzed, events[0].Action)
	assert.Equal(t, now, events[0].Timestamp)
	assert.Equal(t, "req-1", events[0].RequestID)
}

func TestPublisher_ListPreservesAppendOrder(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store, nil)
	defer pub.Close()

	txID := id.TransactionID(uuid.New())
	actions := []Action{
		ActionTransactionCreated,
		ActionTransactionAnalyzed,
		ActionChecklistGenerated,
		ActionValidationPassed,
		ActionFilingAccepted,
	}
	for _, action := range actions {
		require.NoError(t, pub.Emit(context.Background(), Event{TransactionID: txID, Action: action}))
	}

	events, err := pub.List(context.Background(), txID)
	require.NoError(t, err)
	require.Len(t, events, len(actions))
	for i, event := range events {
		assert.Equal(t, actions[i], event.Action)
	}
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := NewInMemoryStore()
	sink := &recordingSink{}
	pub := NewPublisher(store, nil, WithSink(sink), WithAsyncBuffer(100))

	txID := id.TransactionID(uuid.New())
	for i := 0; i < 10; i++ {
		require.NoError(t, pub.Emit(context.Background(), Event{
			TransactionID: txID,
			Action:        ActionValidationFailed,
		}))
	}

	pub.Close()

	assert.Equal(t, 10, sink.len(), "close must drain buffered events to sinks")
	events, err := store.ListByTransaction(context.Background(), txID)
	require.NoError(t, err)
	assert.Len(t, events, 10, "store writes are synchronous regardless of buffering")
}
