// Package chat answers prefix commands typed in the guild.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"corpauth/internal/linking"
	"corpauth/internal/presence/discord"
	"corpauth/internal/ratelimit/models"
	id "corpauth/pkg/domain"
	"corpauth/pkg/requestcontext"
)

const (
	replyNoArguments   = "No arguments!"
	replyChatUserInDB  = "Discord user already in database!"
	replyTokenNotFound = "Auth code not found!"
	replyFailure       = "Something went wrong, try again later."
)

// Linker is the slice of the linking service the commands use.
type Linker interface {
	Claim(ctx context.Context, token string, chatUserID id.ChatUserID, displayName string) (linking.ClaimResult, error)
}

// ClaimGuard limits how many rejected claims a chat user may make.
type ClaimGuard interface {
	Check(ctx context.Context, chatUserID id.ChatUserID) (*models.Result, error)
	RecordFailure(ctx context.Context, chatUserID id.ChatUserID) (*models.Result, error)
	Clear(ctx context.Context, chatUserID id.ChatUserID) error
}

// Handler implements discord.CommandHandler.
type Handler struct {
	linker Linker
	guard  ClaimGuard
	logger *slog.Logger
}

type Option func(*Handler)

// WithClaimGuard enables the rejected claim limit.
func WithClaimGuard(g ClaimGuard) Option {
	return func(h *Handler) { h.guard = g }
}

func NewHandler(linker Linker, logger *slog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{linker: linker, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle returns the reply for cmd, or "" for commands it does not know.
func (h *Handler) Handle(ctx context.Context, cmd discord.Command) string {
	ctx = requestcontext.WithRequestID(ctx, uuid.NewString())
	ctx = requestcontext.WithActor(ctx, string(cmd.ChatUserID))

	switch cmd.Name {
	case "auth":
		return h.auth(ctx, cmd)
	default:
		return ""
	}
}

func (h *Handler) auth(ctx context.Context, cmd discord.Command) string {
	if len(cmd.Args) == 0 {
		return replyNoArguments
	}
	if reply, locked := h.lockedOut(ctx, cmd.ChatUserID); locked {
		return reply
	}

	result, err := h.linker.Claim(ctx, cmd.Args[0], cmd.ChatUserID, cmd.DisplayName)
	switch {
	case err == nil:
		h.clearFailures(ctx, cmd.ChatUserID)
		return "Authenticated as " + result.CharacterName
	case errors.Is(err, linking.ErrChatUserLinked):
		return replyChatUserInDB
	case errors.Is(err, linking.ErrTokenNotFound):
		h.recordFailure(ctx, cmd.ChatUserID)
		return replyTokenNotFound
	case errors.Is(err, linking.ErrCharacterLinked):
		return fmt.Sprintf("Already authenticated with %s! If you did not authenticate with that character, message a mentor!",
			result.CharacterName)
	default:
		h.logger.ErrorContext(ctx, "auth command failed",
			"chat_user_id", cmd.ChatUserID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return replyFailure
	}
}

// lockedOut fails open: a broken guard store never blocks a claim.
func (h *Handler) lockedOut(ctx context.Context, chatUserID id.ChatUserID) (string, bool) {
	if h.guard == nil {
		return "", false
	}
	res, err := h.guard.Check(ctx, chatUserID)
	if err != nil {
		h.logger.WarnContext(ctx, "claim guard check failed", "chat_user_id", chatUserID, "error", err)
		return "", false
	}
	if res.Allowed {
		return "", false
	}
	return fmt.Sprintf("Too many failed attempts! Try again in %s.", res.RetryAfter.Round(time.Minute).String()), true
}

func (h *Handler) recordFailure(ctx context.Context, chatUserID id.ChatUserID) {
	if h.guard == nil {
		return
	}
	if _, err := h.guard.RecordFailure(ctx, chatUserID); err != nil {
		h.logger.WarnContext(ctx, "claim guard record failed", "chat_user_id", chatUserID, "error", err)
	}
}

func (h *Handler) clearFailures(ctx context.Context, chatUserID id.ChatUserID) {
	if h.guard == nil {
		return
	}
	if err := h.guard.Clear(ctx, chatUserID); err != nil {
		h.logger.WarnContext(ctx, "claim guard clear failed", "chat_user_id", chatUserID, "error", err)
	}
}
