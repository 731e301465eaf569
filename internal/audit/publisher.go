package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	id "taxpilot/pkg/domain"
	"taxpilot/pkg/requestcontext"
)

// Publisher records audit events to a store and fans them out to optional
// extra sinks. By default emission is synchronous; WithAsyncBuffer moves sink
// delivery onto a background worker so the pipeline never blocks on a slow
// forwarder.
type Publisher struct {
	store  Store
	sinks  []Sink
	logger *slog.Logger

	inbox chan Event
	wg    sync.WaitGroup
}

type Option func(*Publisher)

// WithSink adds an extra delivery target alongside the store.
func WithSink(sink Sink) Option {
	return func(p *Publisher) { p.sinks = append(p.sinks, sink) }
}

// WithAsyncBuffer delivers to sinks from a background worker through a
// buffered channel of the given size. The store is still written
// synchronously so the trail is never lossy.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) { p.inbox = make(chan Event, size) }
}

func NewPublisher(store Store, logger *slog.Logger, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records the event. The timestamp defaults to the request time and the
// request ID is taken from the context when not already set.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	if p.inbox != nil {
		p.inbox <- event
		return nil
	}
	p.forward(ctx, event)
	return nil
}

// List returns a transaction's trail in append order.
func (p *Publisher) List(ctx context.Context, txID id.TransactionID) ([]Event, error) {
	return p.store.ListByTransaction(ctx, txID)
}

// Close drains any buffered events and stops the worker.
func (p *Publisher) Close() {
	if p.inbox != nil {
		close(p.inbox)
		p.wg.Wait()
	}
}

func (p *Publisher) drain() {
	defer p.wg.Done()

	for event := range p.inbox {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		p.forward(ctx, event)
		cancel()
	}
}

func (p *Publisher) forward(ctx context.Context, event Event) {
	for _, sink := range p.sinks {
		if err := sink.Append(ctx, event); err != nil && p.logger != nil {
			p.logger.WarnContext(ctx, "audit sink append failed",
				"transaction_id", event.TransactionID,
				"action", event.Action,
				"error", err,
			)
		}
	}
}
