package reconcile

import "errors"

var (
	// ErrPassInProgress is returned when a pass is already running here or,
	// with a pass lock configured, in another process.
	ErrPassInProgress = errors.New("reconciliation pass already in progress")

	// ErrNotConverged is returned for a chunk whose batch result and
	// existence checks still disagree after the configured attempts.
	ErrNotConverged = errors.New("chunk did not converge")
)
