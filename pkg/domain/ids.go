package domain

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	dErrors "corpauth/pkg/domain-errors"
)

// LocalID is the opaque primary key of a linked identity row.
type LocalID uuid.UUID

// CharacterID identifies a character in the game universe.
type CharacterID int64

// CorporationID identifies a corporation. Zero means "not known yet".
type CorporationID int64

// AllianceID identifies an alliance. Zero means "no alliance".
type AllianceID int64

// ChatUserID is the chat platform's user snowflake.
type ChatUserID string

// NewLocalID returns a fresh random LocalID.
func NewLocalID() LocalID {
	return LocalID(uuid.New())
}

func (id LocalID) String() string { return uuid.UUID(id).String() }

func (id LocalID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// ParseLocalID parses a LocalID at a trust boundary.
func ParseLocalID(s string) (LocalID, error) {
	if strings.TrimSpace(s) == "" {
		return LocalID{}, dErrors.New(dErrors.CodeInvalidInput, "local id is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return LocalID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid local id")
	}
	if parsed == uuid.Nil {
		return LocalID{}, dErrors.New(dErrors.CodeInvalidInput, "local id must not be nil")
	}
	return LocalID(parsed), nil
}

func (id CharacterID) String() string { return strconv.FormatInt(int64(id), 10) }

func (id CharacterID) IsZero() bool { return id == 0 }

// ParseCharacterID parses a positive character id.
func ParseCharacterID(s string) (CharacterID, error) {
	v, err := parsePositiveInt(s, "character id")
	if err != nil {
		return 0, err
	}
	return CharacterID(v), nil
}

func (id CorporationID) String() string { return strconv.FormatInt(int64(id), 10) }

func (id CorporationID) IsZero() bool { return id == 0 }

func (id AllianceID) String() string { return strconv.FormatInt(int64(id), 10) }

func (id AllianceID) IsZero() bool { return id == 0 }

func (id ChatUserID) String() string { return string(id) }

func (id ChatUserID) IsZero() bool { return id == "" }

// ParseChatUserID validates a chat platform snowflake (decimal digits only).
func ParseChatUserID(s string) (ChatUserID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "chat user id is required")
	}
	if _, err := parsePositiveInt(s, "chat user id"); err != nil {
		return "", err
	}
	return ChatUserID(s), nil
}

func parsePositiveInt(s, field string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid "+field)
	}
	if v <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, field+" must be positive")
	}
	return v, nil
}
