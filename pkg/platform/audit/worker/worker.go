package worker

import (
	"context"
	"log/slog"

	audit "corpauth/pkg/platform/audit"
)

// Worker consumes audit events from a channel and persists them. A failed
// append is logged and dropped; audit never blocks the work it records.
type Worker struct {
	store  audit.Sink
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(store audit.Sink, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run persists events until the inbox is closed or ctx is cancelled. After
// the inbox closes every buffered event has been handled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.WarnContext(ctx, "audit append failed",
					"action", event.Action,
					"character_id", int64(event.CharacterID),
					"error", err,
				)
			}
		}
	}
}
