package affiliation

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy for upstream calls.
type ErrorCategory string

const (
	// ErrorTimeout indicates the upstream took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorRateLimited indicates the upstream's error budget or rate limit was hit
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorUpstreamOutage indicates a 5xx, a transport failure or an open circuit
	ErrorUpstreamOutage ErrorCategory = "upstream_outage"

	// ErrorBadData indicates a malformed payload or a rejected request
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorNotFound indicates the requested entity does not exist
	ErrorNotFound ErrorCategory = "not_found"

	// ErrorInternal indicates an unexpected client-side failure
	ErrorInternal ErrorCategory = "internal"
)

// SourceError wraps upstream failures with a normalized category.
type SourceError struct {
	Category   ErrorCategory
	Op         string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *SourceError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("affiliation %s [%s]: %s: %v", e.Op, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("affiliation %s [%s]: %s", e.Op, e.Category, e.Message)
}

func (e *SourceError) Unwrap() error {
	return e.Underlying
}

// NewSourceError creates a normalized error. Timeouts, outages and rate
// limits are retryable on a later pass.
func NewSourceError(category ErrorCategory, op, message string, underlying error) *SourceError {
	retryable := category == ErrorTimeout ||
		category == ErrorUpstreamOutage ||
		category == ErrorRateLimited

	return &SourceError{
		Category:   category,
		Op:         op,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable checks if an error is worth retrying
func IsRetryable(err error) bool {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error
func GetCategory(err error) ErrorCategory {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Category
	}
	return ErrorInternal
}

// ErrBatchTooLarge is returned when a lookup exceeds the batch limit.
var ErrBatchTooLarge = errors.New("batch exceeds max batch size")
