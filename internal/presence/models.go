// Package presence describes members and roles of the chat server as the
// reconciliation engine sees them. Platform adapters live in subpackages.
package presence

import (
	"errors"

	id "corpauth/pkg/domain"
)

// ErrMemberNotFound is returned when the chat user is not on the server.
var ErrMemberNotFound = errors.New("member not found on chat server")

// Member is a chat server member and the role ids they hold.
type Member struct {
	ChatUserID  id.ChatUserID
	DisplayName string
	RoleIDs     []string
	Bot         bool
}

// Role is a chat server role.
type Role struct {
	ID   string
	Name string
}
