// Package models holds the types shared by the rate limit stores and services.
package models

import (
	"time"

	id "corpauth/pkg/domain"
)

// Window is the state of one sliding window after an operation.
type Window struct {
	Count int
	// Oldest is the earliest entry still inside the window, zero when empty.
	Oldest time.Time
}

// Result is the outcome of a lockout check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// NewClaimKey is the bucket key for a chat user's failed claims.
func NewClaimKey(chatUserID id.ChatUserID) string {
	return "claim:" + string(chatUserID)
}
