package reconcile

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"corpauth/internal/identity/models"
	id "corpauth/pkg/domain"
	"corpauth/pkg/platform/audit"
	"corpauth/pkg/platform/sentinel"
)

// HandleJoin reconciles the identity of a chat user who joined the server
// or just claimed a link, then marks it present. Members without a linked
// identity are ignored. Roles are always re-applied since a rejoining member
// comes back without them.
func (e *Engine) HandleJoin(ctx context.Context, chatUserID id.ChatUserID) error {
	identity, err := e.store.FindByChatUserID(ctx, chatUserID)
	if errors.Is(err, sentinel.ErrNotFound) {
		e.logger.DebugContext(ctx, "unlinked member joined", "chat_user_id", chatUserID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("find identity for %s: %w", chatUserID, err)
	}

	ctx, span := e.tracer.Start(ctx, "reconcile.join", trace.WithAttributes(
		attribute.Int64("character.id", int64(identity.CharacterID)),
	))
	defer span.End()
	e.metrics.IncrementMembershipEvent("join")

	res, lookupErr := e.resolveChunk(ctx, []*models.LinkedIdentity{identity})
	switch {
	case lookupErr != nil:
		span.RecordError(lookupErr)
		e.logger.WarnContext(ctx, "affiliation lookup for joining member failed, next pass retries",
			"character_id", identity.CharacterID,
			"chat_user_id", chatUserID,
			"error", lookupErr,
		)
	case len(res.vanished) > 0:
		e.recordVanished(ctx, identity)
	case len(res.pairs) == 1:
		identity.PresentOnChatServer = true
		e.repair(ctx, identity, res.pairs[0].affiliation, e.resolveRoles(ctx))
	}

	if err := e.store.SetPresence(ctx, identity.LocalID, true); err != nil {
		return fmt.Errorf("mark %s present: %w", chatUserID, err)
	}
	e.logger.InfoContext(ctx, "linked member joined",
		"character_id", identity.CharacterID,
		"chat_user_id", chatUserID,
	)
	e.emit(ctx, audit.Event{
		CharacterID: identity.CharacterID,
		ChatUserID:  chatUserID,
		Subject:     identity.CharacterName,
		Action:      string(audit.EventMemberJoined),
	})
	if lookupErr != nil {
		return fmt.Errorf("reconcile joining member %s: %w", chatUserID, lookupErr)
	}
	return nil
}

// HandleLeave marks a departed member absent. Roles are left alone; only an
// explicit unlink revokes them.
func (e *Engine) HandleLeave(ctx context.Context, chatUserID id.ChatUserID) error {
	identity, err := e.store.FindByChatUserID(ctx, chatUserID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find identity for %s: %w", chatUserID, err)
	}
	e.metrics.IncrementMembershipEvent("leave")

	if err := e.store.SetPresence(ctx, identity.LocalID, false); err != nil {
		return fmt.Errorf("mark %s absent: %w", chatUserID, err)
	}
	e.logger.InfoContext(ctx, "linked member left",
		"character_id", identity.CharacterID,
		"chat_user_id", chatUserID,
	)
	e.emit(ctx, audit.Event{
		CharacterID: identity.CharacterID,
		ChatUserID:  chatUserID,
		Subject:     identity.CharacterName,
		Action:      string(audit.EventMemberLeft),
	})
	return nil
}
