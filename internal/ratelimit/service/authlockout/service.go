// Package authlockout refuses link claims from chat users who keep
// submitting bad tokens.
package authlockout

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"corpauth/internal/platform/metrics"
	"corpauth/internal/ratelimit/models"
	id "corpauth/pkg/domain"
	dErrors "corpauth/pkg/domain-errors"
	"corpauth/pkg/platform/audit"
	"corpauth/pkg/requestcontext"
)

const (
	DefaultAttempts = 5
	DefaultWindow   = 15 * time.Minute
)

// Store is a sliding window counter keyed by string.
type Store interface {
	Add(ctx context.Context, key string, window time.Duration) (models.Window, error)
	Count(ctx context.Context, key string, window time.Duration) (models.Window, error)
	Reset(ctx context.Context, key string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service allows at most attempts failed claims per chat user per window.
type Service struct {
	store    Store
	attempts int
	window   time.Duration
	audit    AuditPublisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

// WithLimit sets how many failures a window tolerates.
func WithLimit(attempts int, window time.Duration) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.attempts = attempts
		}
		if window > 0 {
			s.window = window
		}
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.audit = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now for retry-after arithmetic.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("lockout store is required")
	}
	s := &Service{
		store:    store,
		attempts: DefaultAttempts,
		window:   DefaultWindow,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Check reports whether chatUserID may attempt a claim.
func (s *Service) Check(ctx context.Context, chatUserID id.ChatUserID) (*models.Result, error) {
	w, err := s.store.Count(ctx, models.NewClaimKey(chatUserID), s.window)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read claim failures")
	}
	return s.result(w), nil
}

// RecordFailure counts a rejected claim. The failure that reaches the
// limit is audited once.
func (s *Service) RecordFailure(ctx context.Context, chatUserID id.ChatUserID) (*models.Result, error) {
	w, err := s.store.Add(ctx, models.NewClaimKey(chatUserID), s.window)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record claim failure")
	}
	res := s.result(w)
	if w.Count == s.attempts {
		s.metrics.IncrementClaimLockout()
		s.logger.WarnContext(ctx, "chat user locked out of claims",
			"chat_user_id", chatUserID,
			"failures", w.Count,
			"reset_at", res.ResetAt,
		)
		if s.audit != nil {
			_ = s.audit.Emit(ctx, audit.Event{
				Action:     string(audit.EventClaimLockout),
				ChatUserID: chatUserID,
				Decision:   "locked",
				Reason:     "too many rejected claims",
				RequestID:  requestcontext.RequestID(ctx),
				ActorID:    requestcontext.Actor(ctx),
			})
		}
	}
	return res, nil
}

// Clear forgets past failures after a successful claim.
func (s *Service) Clear(ctx context.Context, chatUserID id.ChatUserID) error {
	if err := s.store.Reset(ctx, models.NewClaimKey(chatUserID)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear claim failures")
	}
	return nil
}

func (s *Service) result(w models.Window) *models.Result {
	now := s.now()
	res := &models.Result{
		Allowed:   w.Count < s.attempts,
		Limit:     s.attempts,
		Remaining: max(s.attempts-w.Count, 0),
		ResetAt:   now.Add(s.window),
	}
	if w.Count > 0 {
		res.ResetAt = w.Oldest.Add(s.window)
	}
	if !res.Allowed {
		res.RetryAfter = max(res.ResetAt.Sub(now), 0)
	}
	return res
}
