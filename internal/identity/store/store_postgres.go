package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"corpauth/internal/identity/models"
	id "corpauth/pkg/domain"
	"corpauth/pkg/platform/sentinel"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS linked_identities (
	local_id               UUID PRIMARY KEY,
	created_at             TIMESTAMPTZ NOT NULL,
	character_name         TEXT NOT NULL,
	character_id           BIGINT NOT NULL UNIQUE,
	corporation_id         BIGINT,
	alliance_id            BIGINT,
	chat_user_id           TEXT UNIQUE,
	chat_display_name      TEXT NOT NULL DEFAULT '',
	present_on_chat_server BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS linked_identities_present_idx
	ON linked_identities (character_id) WHERE chat_user_id IS NOT NULL AND present_on_chat_server;
`

const identityColumns = `local_id, created_at, character_name, character_id, corporation_id,
	alliance_id, chat_user_id, chat_display_name, present_on_chat_server`

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// PostgresStore persists identities in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the linked_identities table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate linked_identities: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, identity *models.LinkedIdentity) error {
	if identity == nil {
		return fmt.Errorf("identity is required")
	}
	query := `
		INSERT INTO linked_identities (` + identityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(identity.LocalID),
		identity.CreatedAt,
		identity.CharacterName,
		int64(identity.CharacterID),
		nullInt64(int64(identity.CorporationID)),
		nullInt64(int64(identity.AllianceID)),
		nullString(string(identity.ChatUserID)),
		identity.ChatDisplayName,
		identity.PresentOnChatServer,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create identity for character %d: %w", identity.CharacterID, sentinel.ErrConflict)
		}
		return fmt.Errorf("create identity: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByCharacterID(ctx context.Context, characterID id.CharacterID) (*models.LinkedIdentity, error) {
	query := `SELECT ` + identityColumns + ` FROM linked_identities WHERE character_id = $1`
	return s.findOne(ctx, query, int64(characterID))
}

func (s *PostgresStore) FindByChatUserID(ctx context.Context, chatUserID id.ChatUserID) (*models.LinkedIdentity, error) {
	if chatUserID.IsZero() {
		return nil, sentinel.ErrNotFound
	}
	query := `SELECT ` + identityColumns + ` FROM linked_identities WHERE chat_user_id = $1`
	return s.findOne(ctx, query, string(chatUserID))
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.LinkedIdentity, error) {
	identity, err := scanIdentity(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return identity, nil
}

// ListCandidates returns matching rows ordered by character id.
func (s *PostgresStore) ListCandidates(ctx context.Context, filter models.CandidateFilter) ([]*models.LinkedIdentity, error) {
	query := `SELECT ` + identityColumns + ` FROM linked_identities WHERE chat_user_id IS NOT NULL`
	if filter == models.FilterPresent {
		query += ` AND present_on_chat_server`
	}
	return s.list(ctx, query+` ORDER BY character_id ASC`)
}

// List returns every row, pending ones included, ordered by character id.
func (s *PostgresStore) List(ctx context.Context) ([]*models.LinkedIdentity, error) {
	return s.list(ctx, `SELECT `+identityColumns+` FROM linked_identities ORDER BY character_id ASC`)
}

func (s *PostgresStore) list(ctx context.Context, query string) ([]*models.LinkedIdentity, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var out []*models.LinkedIdentity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		out = append(out, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateAffiliation(ctx context.Context, localID id.LocalID, corp id.CorporationID, alliance id.AllianceID) error {
	return s.exec(ctx, `UPDATE linked_identities SET corporation_id = $2, alliance_id = $3 WHERE local_id = $1`,
		uuid.UUID(localID), nullInt64(int64(corp)), nullInt64(int64(alliance)))
}

func (s *PostgresStore) UpdateDisplayName(ctx context.Context, localID id.LocalID, displayName string) error {
	return s.exec(ctx, `UPDATE linked_identities SET chat_display_name = $2 WHERE local_id = $1`,
		uuid.UUID(localID), displayName)
}

func (s *PostgresStore) SetPresence(ctx context.Context, localID id.LocalID, present bool) error {
	return s.exec(ctx, `UPDATE linked_identities SET present_on_chat_server = $2 WHERE local_id = $1`,
		uuid.UUID(localID), present)
}

func (s *PostgresStore) Delete(ctx context.Context, localID id.LocalID) error {
	return s.exec(ctx, `DELETE FROM linked_identities WHERE local_id = $1`, uuid.UUID(localID))
}

func (s *PostgresStore) exec(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update identity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update identity: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ClaimChatIdentity binds a chat user to a pending row exactly once. The
// conditional update makes concurrent claims of one row race-free.
func (s *PostgresStore) ClaimChatIdentity(ctx context.Context, localID id.LocalID, chatUserID id.ChatUserID, displayName string) error {
	query := `
		UPDATE linked_identities
		SET chat_user_id = $2, chat_display_name = $3
		WHERE local_id = $1 AND chat_user_id IS NULL
	`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(localID), string(chatUserID), displayName)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("chat user %s: %w", chatUserID, sentinel.ErrConflict)
		}
		return fmt.Errorf("claim identity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim identity: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM linked_identities WHERE local_id = $1)`,
		uuid.UUID(localID),
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("claim identity: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrAlreadyUsed
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (*models.LinkedIdentity, error) {
	var (
		localID     uuid.UUID
		corp        sql.NullInt64
		alliance    sql.NullInt64
		chatUserID  sql.NullString
		characterID int64
		identity    models.LinkedIdentity
	)
	err := row.Scan(
		&localID,
		&identity.CreatedAt,
		&identity.CharacterName,
		&characterID,
		&corp,
		&alliance,
		&chatUserID,
		&identity.ChatDisplayName,
		&identity.PresentOnChatServer,
	)
	if err != nil {
		return nil, err
	}
	identity.LocalID = id.LocalID(localID)
	identity.CharacterID = id.CharacterID(characterID)
	identity.CorporationID = id.CorporationID(corp.Int64)
	identity.AllianceID = id.AllianceID(alliance.Int64)
	identity.ChatUserID = id.ChatUserID(chatUserID.String)
	return &identity, nil
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
