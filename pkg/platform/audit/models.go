package audit

import (
	"context"
	"time"

	id "corpauth/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers changes to who is linked to what: links,
	// unlinks and the roles granted or revoked because of them.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers rejected claims and admin access failures.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine reconciliation activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category    EventCategory
	Timestamp   time.Time
	CharacterID id.CharacterID
	ChatUserID  id.ChatUserID
	// Subject is a human-readable target, usually the character name.
	Subject  string
	Action   string
	Decision string
	Reason   string
	// PassID ties reconciliation events to the pass that produced them.
	PassID    string
	RequestID string
	// ActorID is who triggered the action: an admin subject, "scheduler",
	// or the chat user running a command.
	ActorID string
}

type AuditEvent string

const (
	// Linking events
	EventLinkTokenIssued  AuditEvent = "link_token_issued"
	EventIdentityLinked   AuditEvent = "identity_linked"
	EventLinkRejected     AuditEvent = "link_rejected"
	EventIdentityUnlinked AuditEvent = "identity_unlinked"
	EventClaimLockout     AuditEvent = "claim_lockout_triggered"

	// Reconciliation events
	EventAffiliationChanged   AuditEvent = "affiliation_changed"
	EventPresentationRepaired AuditEvent = "presentation_repaired"
	EventCharacterVanished    AuditEvent = "character_vanished"
	EventPassCompleted        AuditEvent = "pass_completed"

	// Presence events
	EventMemberJoined AuditEvent = "member_joined"
	EventMemberLeft   AuditEvent = "member_left"
	EventMemberAbsent AuditEvent = "member_absent"

	// Admin events
	EventAdminAccessDenied AuditEvent = "admin_access_denied"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventIdentityLinked:     CategoryCompliance,
	EventIdentityUnlinked:   CategoryCompliance,
	EventAffiliationChanged: CategoryCompliance,

	EventLinkRejected:      CategorySecurity,
	EventAdminAccessDenied: CategorySecurity,
	EventClaimLockout:      CategorySecurity,

	EventLinkTokenIssued:      CategoryOperations,
	EventPresentationRepaired: CategoryOperations,
	EventCharacterVanished:    CategoryOperations,
	EventPassCompleted:        CategoryOperations,
	EventMemberJoined:         CategoryOperations,
	EventMemberLeft:           CategoryOperations,
	EventMemberAbsent:         CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByCharacter(ctx context.Context, characterID id.CharacterID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Sink is a write-only destination such as a message topic.
type Sink interface {
	Append(ctx context.Context, event Event) error
}
