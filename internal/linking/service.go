// Package linking binds a game character to a chat user. A character that
// finished login gets a pending identity row and a one-time link token; the
// chat user redeems the token and the reconciliation engine takes over.
package linking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"corpauth/internal/identity/models"
	jwttoken "corpauth/internal/jwt_token"
	"corpauth/internal/platform/metrics"
	"corpauth/internal/policy"
	"corpauth/internal/presence"
	id "corpauth/pkg/domain"
	dErrors "corpauth/pkg/domain-errors"
	"corpauth/pkg/platform/audit"
	"corpauth/pkg/platform/sentinel"
	"corpauth/pkg/requestcontext"
)

// Store is the slice of the identity store linking needs.
type Store interface {
	Create(ctx context.Context, identity *models.LinkedIdentity) error
	FindByCharacterID(ctx context.Context, characterID id.CharacterID) (*models.LinkedIdentity, error)
	FindByChatUserID(ctx context.Context, chatUserID id.ChatUserID) (*models.LinkedIdentity, error)
	List(ctx context.Context) ([]*models.LinkedIdentity, error)
	ClaimChatIdentity(ctx context.Context, localID id.LocalID, chatUserID id.ChatUserID, displayName string) error
	Delete(ctx context.Context, localID id.LocalID) error
}

type TokenService interface {
	GenerateLinkToken(characterID id.CharacterID, characterName string, localID id.LocalID, expiresIn time.Duration) (string, *jwttoken.LinkClaims, error)
	ValidateLinkToken(tokenString string) (*jwttoken.LinkClaims, error)
}

// RoleRevoker removes roles from a chat member on unlink.
type RoleRevoker interface {
	Roles(ctx context.Context) ([]presence.Role, error)
	RemoveRoles(ctx context.Context, chatUserID id.ChatUserID, roleIDs []string) error
}

// JoinSubmitter hands a freshly linked member to the reconciliation worker.
type JoinSubmitter interface {
	MemberJoined(ctx context.Context, chatUserID id.ChatUserID)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// LinkToken is an issued one-time link token.
type LinkToken struct {
	Token       string         `json:"token"`
	CharacterID id.CharacterID `json:"character_id"`
	ExpiresAt   time.Time      `json:"expires_at"`
}

// ClaimResult names the character a claim concerned. It is filled for a
// successful claim and for ErrCharacterLinked.
type ClaimResult struct {
	CharacterID   id.CharacterID
	CharacterName string
}

type Service struct {
	store    Store
	tokens   TokenService
	roles    RoleRevoker
	ruleset  policy.Ruleset
	joins    JoinSubmitter
	tokenTTL time.Duration
	auditor  AuditPublisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*Service)

// WithTokenTTL sets how long an issued link token stays valid.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// WithJoinSubmitter makes Claim enqueue a join observation for the new link.
func WithJoinSubmitter(j JoinSubmitter) Option {
	return func(s *Service) { s.joins = j }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditor = p }
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

func New(store Store, tokens TokenService, roles RoleRevoker, ruleset policy.Ruleset, opts ...Option) *Service {
	s := &Service{
		store:    store,
		tokens:   tokens,
		roles:    roles,
		ruleset:  ruleset,
		tokenTTL: 24 * time.Hour,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueLinkToken ensures a pending row exists for the character and returns
// a link token for it. A character that is already linked is a conflict.
func (s *Service) IssueLinkToken(ctx context.Context, characterID id.CharacterID, characterName string) (*LinkToken, error) {
	identity, err := s.ensurePending(ctx, characterID, characterName)
	if err != nil {
		return nil, err
	}

	token, claims, err := s.tokens.GenerateLinkToken(identity.CharacterID, identity.CharacterName, identity.LocalID, s.tokenTTL)
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementLinkTokensIssued()
	s.emit(ctx, audit.Event{
		Action:      string(audit.EventLinkTokenIssued),
		CharacterID: identity.CharacterID,
		Subject:     identity.CharacterName,
	})
	s.logger.InfoContext(ctx, "link token issued",
		"character_id", identity.CharacterID,
		"jti", claims.ID,
	)
	return &LinkToken{
		Token:       token,
		CharacterID: identity.CharacterID,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) ensurePending(ctx context.Context, characterID id.CharacterID, characterName string) (*models.LinkedIdentity, error) {
	existing, err := s.store.FindByCharacterID(ctx, characterID)
	switch {
	case err == nil:
		if existing.IsLinked() {
			return nil, fmt.Errorf("character %d: %w", characterID, ErrCharacterLinked)
		}
		return existing, nil
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up character")
	}

	identity, err := models.NewLinkedIdentity(characterID, characterName, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, identity); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost a race with another issue for the same character.
			return s.ensurePending(ctx, characterID, characterName)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create identity")
	}
	return identity, nil
}

// Claim binds chatUserID to the character named by token. Each token's row
// can be claimed once; a second claim fails with ErrCharacterLinked. A token
// issued for a row that has since been unlinked fails with ErrTokenNotFound.
func (s *Service) Claim(ctx context.Context, token string, chatUserID id.ChatUserID, displayName string) (ClaimResult, error) {
	result, err := s.claim(ctx, token, chatUserID, displayName)
	if err != nil {
		outcome := "rejected"
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			outcome = "error"
		}
		s.metrics.IncrementLinkClaim(outcome)
		s.emit(ctx, audit.Event{
			Action:      string(audit.EventLinkRejected),
			CharacterID: result.CharacterID,
			ChatUserID:  chatUserID,
			Subject:     result.CharacterName,
			Decision:    "denied",
			Reason:      dErrors.MessageOf(err),
		})
		return result, err
	}

	s.metrics.IncrementLinkClaim("linked")
	s.emit(ctx, audit.Event{
		Action:      string(audit.EventIdentityLinked),
		CharacterID: result.CharacterID,
		ChatUserID:  chatUserID,
		Subject:     result.CharacterName,
		Decision:    "granted",
	})
	s.logger.InfoContext(ctx, "identity linked",
		"character_id", result.CharacterID,
		"chat_user_id", chatUserID,
	)

	if s.joins != nil {
		s.joins.MemberJoined(ctx, chatUserID)
	}
	return result, nil
}

func (s *Service) claim(ctx context.Context, token string, chatUserID id.ChatUserID, displayName string) (ClaimResult, error) {
	if chatUserID.IsZero() {
		return ClaimResult{}, dErrors.New(dErrors.CodeInvalidInput, "chat user id is required")
	}

	_, err := s.store.FindByChatUserID(ctx, chatUserID)
	switch {
	case err == nil:
		return ClaimResult{}, fmt.Errorf("chat user %s: %w", chatUserID, ErrChatUserLinked)
	case !errors.Is(err, sentinel.ErrNotFound):
		return ClaimResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up chat user")
	}

	claims, err := s.tokens.ValidateLinkToken(token)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("%w: %s", ErrTokenNotFound, dErrors.MessageOf(err))
	}

	identity, err := s.store.FindByCharacterID(ctx, id.CharacterID(claims.CharacterID))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return ClaimResult{}, fmt.Errorf("character %d has no pending link: %w", claims.CharacterID, ErrTokenNotFound)
		}
		return ClaimResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up character")
	}
	if claims.LocalID != identity.LocalID.String() {
		// Issued for a row that was unlinked since.
		return ClaimResult{}, fmt.Errorf("character %d token superseded: %w", identity.CharacterID, ErrTokenNotFound)
	}
	result := ClaimResult{CharacterID: identity.CharacterID, CharacterName: identity.CharacterName}
	if identity.IsLinked() {
		return result, fmt.Errorf("character %d: %w", identity.CharacterID, ErrCharacterLinked)
	}

	err = s.store.ClaimChatIdentity(ctx, identity.LocalID, chatUserID, displayName)
	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return result, fmt.Errorf("character %d: %w", identity.CharacterID, ErrCharacterLinked)
	case errors.Is(err, sentinel.ErrConflict):
		return result, fmt.Errorf("chat user %s: %w", chatUserID, ErrChatUserLinked)
	case errors.Is(err, sentinel.ErrNotFound):
		return result, fmt.Errorf("character %d unlinked before claim: %w", identity.CharacterID, ErrTokenNotFound)
	default:
		return result, dErrors.Wrap(err, dErrors.CodeInternal, "failed to claim identity")
	}
}

// Unlink revokes every managed role from the member and deletes the row.
// Roles are revoked first: if that fails the row stays so the call can be
// retried, since nothing tracks the member once the row is gone.
func (s *Service) Unlink(ctx context.Context, characterID id.CharacterID) error {
	identity, err := s.store.FindByCharacterID(ctx, characterID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "identity not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up character")
	}

	if identity.IsLinked() {
		if err := s.revokeRoles(ctx, identity); err != nil {
			return err
		}
	}

	if err := s.store.Delete(ctx, identity.LocalID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "identity not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete identity")
	}

	s.metrics.IncrementUnlinks()
	s.emit(ctx, audit.Event{
		Action:      string(audit.EventIdentityUnlinked),
		CharacterID: identity.CharacterID,
		ChatUserID:  identity.ChatUserID,
		Subject:     identity.CharacterName,
	})
	s.logger.InfoContext(ctx, "identity unlinked",
		"character_id", identity.CharacterID,
		"chat_user_id", identity.ChatUserID,
	)
	return nil
}

func (s *Service) revokeRoles(ctx context.Context, identity *models.LinkedIdentity) error {
	guildRoles, err := s.roles.Roles(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "chat server roles unavailable")
	}
	roleIDs, unknown := presence.NewRoleResolver(guildRoles).IDs(s.ruleset.ManagedRoles())
	if len(unknown) > 0 {
		s.logger.WarnContext(ctx, "configured roles missing on chat server", "roles", unknown)
	}
	if len(roleIDs) == 0 {
		return nil
	}

	err = s.roles.RemoveRoles(ctx, identity.ChatUserID, roleIDs)
	if err != nil && !errors.Is(err, presence.ErrMemberNotFound) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to revoke roles")
	}
	return nil
}

// List returns every identity, pending ones included.
func (s *Service) List(ctx context.Context) ([]*models.LinkedIdentity, error) {
	rows, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list identities")
	}
	return rows, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.Category = audit.AuditEvent(event.Action).Category()
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	event.ActorID = requestcontext.Actor(ctx)
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}
