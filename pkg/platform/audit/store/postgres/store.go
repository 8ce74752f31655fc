package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "corpauth/pkg/domain"
	audit "corpauth/pkg/platform/audit"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id            UUID PRIMARY KEY,
	category      TEXT NOT NULL,
	timestamp     TIMESTAMPTZ NOT NULL,
	character_id  BIGINT,
	chat_user_id  TEXT NOT NULL DEFAULT '',
	subject       TEXT NOT NULL DEFAULT '',
	action        TEXT NOT NULL,
	decision      TEXT NOT NULL DEFAULT '',
	reason        TEXT NOT NULL DEFAULT '',
	pass_id       TEXT NOT NULL DEFAULT '',
	request_id    TEXT NOT NULL DEFAULT '',
	actor_id      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS audit_events_character_idx ON audit_events (character_id, timestamp);
CREATE INDEX IF NOT EXISTS audit_events_timestamp_idx ON audit_events (timestamp);
`

// Store implements audit.Store on an audit_events table.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the audit table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate audit_events: %w", err)
	}
	return nil
}

// Append inserts an audit event.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO audit_events (
			id, category, timestamp, character_id, chat_user_id, subject,
			action, decision, reason, pass_id, request_id, actor_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	var characterID sql.NullInt64
	if !event.CharacterID.IsZero() {
		characterID = sql.NullInt64{Int64: int64(event.CharacterID), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		uuid.New(),
		string(event.Category),
		event.Timestamp,
		characterID,
		string(event.ChatUserID),
		event.Subject,
		event.Action,
		event.Decision,
		event.Reason,
		event.PassID,
		event.RequestID,
		event.ActorID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByCharacter returns events for a character, oldest first.
func (s *Store) ListByCharacter(ctx context.Context, characterID id.CharacterID) ([]audit.Event, error) {
	query := `
		SELECT category, timestamp, character_id, chat_user_id, subject,
			   action, decision, reason, pass_id, request_id, actor_id
		FROM audit_events
		WHERE character_id = $1
		ORDER BY timestamp ASC
	`

	rows, err := s.db.QueryContext(ctx, query, int64(characterID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListRecent returns the N most recent events, oldest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT category, timestamp, character_id, chat_user_id, subject,
			   action, decision, reason, pass_id, request_id, actor_id
		FROM (
			SELECT * FROM audit_events ORDER BY timestamp DESC LIMIT $1
		) recent
		ORDER BY timestamp ASC
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event

	for rows.Next() {
		var (
			category    string
			chatUserID  string
			characterID sql.NullInt64
			event       audit.Event
		)

		err := rows.Scan(
			&category,
			&event.Timestamp,
			&characterID,
			&chatUserID,
			&event.Subject,
			&event.Action,
			&event.Decision,
			&event.Reason,
			&event.PassID,
			&event.RequestID,
			&event.ActorID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		event.Category = audit.EventCategory(category)
		event.ChatUserID = id.ChatUserID(chatUserID)
		if characterID.Valid {
			event.CharacterID = id.CharacterID(characterID.Int64)
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}

	return events, nil
}
