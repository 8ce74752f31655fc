package linking

import (
	dErrors "corpauth/pkg/domain-errors"
)

// Claim failures. Transports match them with errors.Is to pick a reply.
var (
	ErrTokenNotFound   = dErrors.New(dErrors.CodeNotFound, "auth code not found")
	ErrChatUserLinked  = dErrors.New(dErrors.CodeConflict, "chat user already linked")
	ErrCharacterLinked = dErrors.New(dErrors.CodeConflict, "character already linked")
)
