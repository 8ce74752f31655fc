package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"corpauth/internal/reconcile/metrics"
	id "corpauth/pkg/domain"
	"corpauth/pkg/requestcontext"
)

type jobKind string

const (
	jobPass  jobKind = "pass"
	jobSweep jobKind = "sweep"
	jobJoin  jobKind = "join"
	jobLeave jobKind = "leave"
)

type job struct {
	kind       jobKind
	chatUserID id.ChatUserID
	actor      string
}

// Runner is the work a Worker serializes. *Engine implements it.
type Runner interface {
	RunPass(ctx context.Context) (Summary, error)
	Sweep(ctx context.Context) (SweepSummary, error)
	HandleJoin(ctx context.Context, chatUserID id.ChatUserID) error
	HandleLeave(ctx context.Context, chatUserID id.ChatUserID) error
}

// Worker runs passes, sweeps and membership events one at a time from a
// single inbox, so they never race on the same rows. Pass submissions
// coalesce: at most one pass waits in the inbox.
type Worker struct {
	runner          Runner
	inbox           chan job
	passPending     atomic.Bool
	sweepBeforePass bool
	metrics         *metrics.Metrics
	logger          *slog.Logger
}

type WorkerOption func(*Worker)

func WithInboxSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.inbox = make(chan job, n)
		}
	}
}

// WithSweepBeforePass runs an absence sweep ahead of every pass.
func WithSweepBeforePass(enabled bool) WorkerOption {
	return func(w *Worker) { w.sweepBeforePass = enabled }
}

func WithWorkerMetrics(m *metrics.Metrics) WorkerOption {
	return func(w *Worker) { w.metrics = m }
}

func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func NewWorker(runner Runner, opts ...WorkerOption) *Worker {
	w := &Worker{
		runner: runner,
		inbox:  make(chan job, 256),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SubmitPass queues a pass. It returns false when a pass is already queued
// or the inbox is full.
func (w *Worker) SubmitPass(actor string) bool {
	if !w.passPending.CompareAndSwap(false, true) {
		return false
	}
	select {
	case w.inbox <- job{kind: jobPass, actor: actor}:
		return true
	default:
		w.passPending.Store(false)
		w.metrics.IncrementJobsDropped()
		w.logger.Warn("worker inbox full, pass not queued", "actor", actor)
		return false
	}
}

// SubmitSweep queues an absence sweep unless the inbox is full.
func (w *Worker) SubmitSweep() bool {
	select {
	case w.inbox <- job{kind: jobSweep}:
		return true
	default:
		w.metrics.IncrementJobsDropped()
		return false
	}
}

// MemberJoined queues a join observation, waiting for inbox space until
// ctx ends.
func (w *Worker) MemberJoined(ctx context.Context, chatUserID id.ChatUserID) {
	w.enqueue(ctx, job{kind: jobJoin, chatUserID: chatUserID})
}

// MemberLeft queues a leave observation, waiting for inbox space until
// ctx ends.
func (w *Worker) MemberLeft(ctx context.Context, chatUserID id.ChatUserID) {
	w.enqueue(ctx, job{kind: jobLeave, chatUserID: chatUserID})
}

func (w *Worker) enqueue(ctx context.Context, j job) {
	select {
	case w.inbox <- j:
	case <-ctx.Done():
		w.metrics.IncrementJobsDropped()
		w.logger.WarnContext(ctx, "membership event dropped",
			"kind", j.kind,
			"chat_user_id", j.chatUserID,
			"error", ctx.Err(),
		)
	}
}

// Run handles jobs until ctx is cancelled. A job that panics is logged and
// the loop carries on with the next one.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case j := <-w.inbox:
			if j.kind == jobPass {
				w.passPending.Store(false)
			}
			if err := w.handle(ctx, j); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.WarnContext(ctx, "reconcile job failed",
					"kind", j.kind,
					"chat_user_id", j.chatUserID,
					"error", err,
				)
			}
		}
	}
}

func (w *Worker) handle(ctx context.Context, j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s job: %v", j.kind, r)
		}
	}()

	if j.actor != "" {
		ctx = requestcontext.WithActor(ctx, j.actor)
	}
	switch j.kind {
	case jobPass:
		if w.sweepBeforePass {
			if _, err := w.runner.Sweep(ctx); err != nil {
				w.logger.WarnContext(ctx, "absence sweep failed, running pass anyway", "error", err)
			}
		}
		_, err = w.runner.RunPass(ctx)
		if errors.Is(err, ErrPassInProgress) {
			w.logger.InfoContext(ctx, "pass skipped, another pass is running")
			return nil
		}
		return err
	case jobSweep:
		_, err = w.runner.Sweep(ctx)
		return err
	case jobJoin:
		return w.runner.HandleJoin(ctx, j.chatUserID)
	case jobLeave:
		return w.runner.HandleLeave(ctx, j.chatUserID)
	default:
		return fmt.Errorf("unknown job kind %q", j.kind)
	}
}
