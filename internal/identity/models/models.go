package models

import (
	"fmt"
	"time"

	id "corpauth/pkg/domain"
	dErrors "corpauth/pkg/domain-errors"
)

// LinkedIdentity is one confirmed or pending link between a game character
// and a chat user. A row without a ChatUserID is pending: the character has
// completed login but no chat user has claimed its link token yet.
type LinkedIdentity struct {
	LocalID   id.LocalID
	CreatedAt time.Time

	CharacterName string
	CharacterID   id.CharacterID

	// Written only by the reconciliation engine. Zero means not yet known.
	CorporationID id.CorporationID
	AllianceID    id.AllianceID

	ChatUserID      id.ChatUserID
	ChatDisplayName string

	// Last observed membership of the chat server.
	PresentOnChatServer bool
}

// NewLinkedIdentity creates a pending row for a character.
func NewLinkedIdentity(characterID id.CharacterID, characterName string, now time.Time) (*LinkedIdentity, error) {
	if characterID <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "character id must be positive")
	}
	if characterName == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "character name is required")
	}
	return &LinkedIdentity{
		LocalID:       id.NewLocalID(),
		CreatedAt:     now,
		CharacterID:   characterID,
		CharacterName: characterName,
	}, nil
}

// IsLinked reports whether a chat user has claimed this identity.
func (l *LinkedIdentity) IsLinked() bool {
	return !l.ChatUserID.IsZero()
}

// SameAffiliation reports whether the stored affiliation equals the given one.
func (l *LinkedIdentity) SameAffiliation(corp id.CorporationID, alliance id.AllianceID) bool {
	return l.CorporationID == corp && l.AllianceID == alliance
}

// CandidateFilter selects the rows a reconciliation pass covers.
type CandidateFilter string

const (
	// FilterLinked selects every row with a chat identity.
	FilterLinked CandidateFilter = "linked"
	// FilterPresent selects linked rows currently present on the chat server.
	FilterPresent CandidateFilter = "present"
)

func ParseCandidateFilter(s string) (CandidateFilter, error) {
	switch CandidateFilter(s) {
	case FilterLinked, FilterPresent:
		return CandidateFilter(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown candidate filter %q", s))
	}
}

// Matches applies the filter to a row.
func (f CandidateFilter) Matches(l *LinkedIdentity) bool {
	if !l.IsLinked() {
		return false
	}
	if f == FilterPresent {
		return l.PresentOnChatServer
	}
	return true
}
