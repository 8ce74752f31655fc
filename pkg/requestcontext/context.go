// Package requestcontext provides transport-independent context accessors for
// values that are scoped to one unit of work: an HTTP request, a chat command,
// or a reconciliation pass.
//
// Usage in services (read values):
//
//	passID := requestcontext.PassID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"
)

type (
	requestIDKey   struct{}
	passIDKey      struct{}
	requestTimeKey struct{}
	actorKey       struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyPassID      = passIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
	ContextKeyActor       = actorKey{}
)

// RequestID retrieves the correlation id of an HTTP request or chat command.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(ContextKeyRequestID).(string)
	return v
}

// WithRequestID injects a correlation id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// PassID retrieves the id of the reconciliation pass running in ctx.
func PassID(ctx context.Context) string {
	v, _ := ctx.Value(ContextKeyPassID).(string)
	return v
}

// WithPassID injects the id of the running reconciliation pass.
func WithPassID(ctx context.Context, passID string) context.Context {
	return context.WithValue(ctx, ContextKeyPassID, passID)
}

// Actor retrieves who triggered the work (admin subject, "scheduler", chat user).
func Actor(ctx context.Context) string {
	v, _ := ctx.Value(ContextKeyActor).(string)
	return v
}

// WithActor records who triggered the work.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ContextKeyActor, actor)
}

// Now retrieves the scoped time from context.
// Falls back to time.Now() if not set (workers, CLI, most tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
