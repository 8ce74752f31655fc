// Package publisher is the entry point domain services use to emit audit
// events. It stamps events, fans them out to the primary store and any
// write-only sinks, and optionally decouples emission through a buffer.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	id "corpauth/pkg/domain"
	audit "corpauth/pkg/platform/audit"
	"corpauth/pkg/platform/audit/worker"
)

// ErrBufferFull is returned by Emit in async mode when the buffer is full.
var ErrBufferFull = errors.New("audit buffer full")

// Publisher emits audit events. It is safe for concurrent use.
type Publisher struct {
	store  audit.Store
	sinks  []audit.Sink
	logger *slog.Logger

	bufferSize int
	mu         sync.RWMutex
	closed     bool
	inbox      chan audit.Event
	done       chan struct{}
}

type Option func(*Publisher)

// WithAsyncBuffer makes Emit non-blocking; events are persisted by a
// background worker. Close drains the buffer.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.bufferSize = size
		}
	}
}

// WithSinks adds write-only destinations. Sink failures are logged, never
// returned to the emitter.
func WithSinks(sinks ...audit.Sink) Option {
	return func(p *Publisher) {
		for _, s := range sinks {
			if s != nil {
				p.sinks = append(p.sinks, s)
			}
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.inbox = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		w := worker.NewWorker(fanout{p}, p.inbox, p.logger)
		go func() {
			defer close(p.done)
			_ = w.Run(context.Background())
		}()
	}
	return p
}

// Emit records an event. A zero timestamp is set to now and the category is
// derived from the action.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.inbox == nil {
		return fanout{p}.Append(ctx, event)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errors.New("audit publisher closed")
	}
	select {
	case p.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrBufferFull
	}
}

// List returns the stored events for a character.
func (p *Publisher) List(ctx context.Context, characterID id.CharacterID) ([]audit.Event, error) {
	return p.store.ListByCharacter(ctx, characterID)
}

// Recent returns up to limit of the newest stored events.
func (p *Publisher) Recent(ctx context.Context, limit int) ([]audit.Event, error) {
	return p.store.ListRecent(ctx, limit)
}

// Close stops accepting events and waits for buffered events to be written.
func (p *Publisher) Close() {
	if p.inbox == nil {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.inbox)
	p.mu.Unlock()
	<-p.done
}

// fanout writes to the primary store, then to each sink. Only the store's
// error is returned.
type fanout struct{ p *Publisher }

func (f fanout) Append(ctx context.Context, event audit.Event) error {
	err := f.p.store.Append(ctx, event)
	for _, sink := range f.p.sinks {
		if sinkErr := sink.Append(ctx, event); sinkErr != nil {
			f.p.logger.WarnContext(ctx, "audit sink append failed",
				"action", event.Action,
				"error", sinkErr,
			)
		}
	}
	return err
}
