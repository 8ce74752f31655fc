package reconcile

import (
	"context"

	"corpauth/internal/affiliation"
	"corpauth/internal/identity/models"
	"corpauth/internal/presence"
	id "corpauth/pkg/domain"
	"corpauth/pkg/platform/audit"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

// AffiliationSource answers who a character belongs to upstream.
type AffiliationSource interface {
	LookupAffiliations(ctx context.Context, ids []id.CharacterID) ([]affiliation.Affiliation, error)
	CharacterExists(ctx context.Context, characterID id.CharacterID) (bool, error)
	LookupTicker(ctx context.Context, kind affiliation.TickerKind, entityID int64) (string, error)
	MaxBatch() int
}

// IdentityStore is the slice of the identity store the engine reads and writes.
type IdentityStore interface {
	ListCandidates(ctx context.Context, filter models.CandidateFilter) ([]*models.LinkedIdentity, error)
	FindByChatUserID(ctx context.Context, chatUserID id.ChatUserID) (*models.LinkedIdentity, error)
	UpdateAffiliation(ctx context.Context, localID id.LocalID, corp id.CorporationID, alliance id.AllianceID) error
	UpdateDisplayName(ctx context.Context, localID id.LocalID, displayName string) error
	SetPresence(ctx context.Context, localID id.LocalID, present bool) error
}

// Gateway applies presentation and roles on the chat server. Every call
// returns an error value; none of them panic on platform failures.
type Gateway interface {
	Roles(ctx context.Context) ([]presence.Role, error)
	Member(ctx context.Context, chatUserID id.ChatUserID) (*presence.Member, error)
	Members(ctx context.Context) ([]presence.Member, error)
	Rename(ctx context.Context, chatUserID id.ChatUserID, name string) error
	AddRoles(ctx context.Context, chatUserID id.ChatUserID, roleIDs []string) error
	RemoveRoles(ctx context.Context, chatUserID id.ChatUserID, roleIDs []string) error
	Notify(ctx context.Context, chatUserID id.ChatUserID, message string) error
}

// AuditPublisher records reconciliation events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// PassLock excludes passes running in other processes. Acquire returns an
// error wrapping sentinel.ErrConflict when another process holds it.
type PassLock interface {
	Acquire(ctx context.Context) (release func(), err error)
}
