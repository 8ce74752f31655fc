package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"corpauth/internal/identity/models"
	id "corpauth/pkg/domain"
	"corpauth/pkg/platform/sentinel"
)

// identityRow is the gorm mapping of a LinkedIdentity. Nullable columns
// use pointers so unset affiliation and unclaimed chat ids are stored as NULL.
type identityRow struct {
	LocalID             string    `gorm:"column:local_id;primaryKey;size:36"`
	CreatedAt           time.Time `gorm:"column:created_at;not null"`
	CharacterName       string    `gorm:"column:character_name;not null"`
	CharacterID         int64     `gorm:"column:character_id;not null;uniqueIndex"`
	CorporationID       *int64    `gorm:"column:corporation_id"`
	AllianceID          *int64    `gorm:"column:alliance_id"`
	ChatUserID          *string   `gorm:"column:chat_user_id;uniqueIndex"`
	ChatDisplayName     string    `gorm:"column:chat_display_name;not null;default:''"`
	PresentOnChatServer bool      `gorm:"column:present_on_chat_server;not null;default:false"`
}

func (identityRow) TableName() string { return "linked_identities" }

// GormStore persists identities through gorm. The default single-node
// deployment runs it on SQLite.
type GormStore struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the linked_identities table.
func (s *GormStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&identityRow{}); err != nil {
		return fmt.Errorf("migrate linked_identities: %w", err)
	}
	return nil
}

func (s *GormStore) Create(ctx context.Context, identity *models.LinkedIdentity) error {
	if identity == nil {
		return fmt.Errorf("identity is required")
	}
	row := toRow(identity)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isGormDuplicate(err) {
			return fmt.Errorf("create identity for character %d: %w", identity.CharacterID, sentinel.ErrConflict)
		}
		return fmt.Errorf("create identity: %w", err)
	}
	return nil
}

func (s *GormStore) FindByCharacterID(ctx context.Context, characterID id.CharacterID) (*models.LinkedIdentity, error) {
	return s.findOne(ctx, "character_id = ?", int64(characterID))
}

func (s *GormStore) FindByChatUserID(ctx context.Context, chatUserID id.ChatUserID) (*models.LinkedIdentity, error) {
	if chatUserID.IsZero() {
		return nil, sentinel.ErrNotFound
	}
	return s.findOne(ctx, "chat_user_id = ?", string(chatUserID))
}

func (s *GormStore) findOne(ctx context.Context, query string, arg any) (*models.LinkedIdentity, error) {
	var row identityRow
	err := s.db.WithContext(ctx).Where(query, arg).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return fromRow(row)
}

// ListCandidates returns matching rows ordered by character id.
func (s *GormStore) ListCandidates(ctx context.Context, filter models.CandidateFilter) ([]*models.LinkedIdentity, error) {
	q := s.db.WithContext(ctx).Where("chat_user_id IS NOT NULL")
	if filter == models.FilterPresent {
		q = q.Where("present_on_chat_server = ?", true)
	}
	return s.list(q)
}

// List returns every row, pending ones included, ordered by character id.
func (s *GormStore) List(ctx context.Context) ([]*models.LinkedIdentity, error) {
	return s.list(s.db.WithContext(ctx))
}

func (s *GormStore) list(q *gorm.DB) ([]*models.LinkedIdentity, error) {
	var rows []identityRow
	if err := q.Order("character_id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	out := make([]*models.LinkedIdentity, 0, len(rows))
	for _, row := range rows {
		identity, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, identity)
	}
	return out, nil
}

func (s *GormStore) UpdateAffiliation(ctx context.Context, localID id.LocalID, corp id.CorporationID, alliance id.AllianceID) error {
	return s.update(ctx, localID, map[string]any{
		"corporation_id": nullableInt(int64(corp)),
		"alliance_id":    nullableInt(int64(alliance)),
	})
}

func (s *GormStore) UpdateDisplayName(ctx context.Context, localID id.LocalID, displayName string) error {
	return s.update(ctx, localID, map[string]any{"chat_display_name": displayName})
}

func (s *GormStore) SetPresence(ctx context.Context, localID id.LocalID, present bool) error {
	return s.update(ctx, localID, map[string]any{"present_on_chat_server": present})
}

func (s *GormStore) update(ctx context.Context, localID id.LocalID, values map[string]any) error {
	res := s.db.WithContext(ctx).Model(&identityRow{}).
		Where("local_id = ?", localID.String()).
		Updates(values)
	if res.Error != nil {
		return fmt.Errorf("update identity: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ClaimChatIdentity binds a chat user to a pending row exactly once.
func (s *GormStore) ClaimChatIdentity(ctx context.Context, localID id.LocalID, chatUserID id.ChatUserID, displayName string) error {
	res := s.db.WithContext(ctx).Model(&identityRow{}).
		Where("local_id = ? AND chat_user_id IS NULL", localID.String()).
		Updates(map[string]any{
			"chat_user_id":      string(chatUserID),
			"chat_display_name": displayName,
		})
	if res.Error != nil {
		if isGormDuplicate(res.Error) {
			return fmt.Errorf("chat user %s: %w", chatUserID, sentinel.ErrConflict)
		}
		return fmt.Errorf("claim identity: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&identityRow{}).
		Where("local_id = ?", localID.String()).
		Count(&count).Error; err != nil {
		return fmt.Errorf("claim identity: %w", err)
	}
	if count == 0 {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrAlreadyUsed
}

func (s *GormStore) Delete(ctx context.Context, localID id.LocalID) error {
	res := s.db.WithContext(ctx).Where("local_id = ?", localID.String()).Delete(&identityRow{})
	if res.Error != nil {
		return fmt.Errorf("delete identity: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func toRow(l *models.LinkedIdentity) identityRow {
	row := identityRow{
		LocalID:             l.LocalID.String(),
		CreatedAt:           l.CreatedAt,
		CharacterName:       l.CharacterName,
		CharacterID:         int64(l.CharacterID),
		ChatDisplayName:     l.ChatDisplayName,
		PresentOnChatServer: l.PresentOnChatServer,
	}
	if !l.CorporationID.IsZero() {
		v := int64(l.CorporationID)
		row.CorporationID = &v
	}
	if !l.AllianceID.IsZero() {
		v := int64(l.AllianceID)
		row.AllianceID = &v
	}
	if l.IsLinked() {
		v := string(l.ChatUserID)
		row.ChatUserID = &v
	}
	return row
}

func fromRow(row identityRow) (*models.LinkedIdentity, error) {
	localID, err := uuid.Parse(row.LocalID)
	if err != nil {
		return nil, fmt.Errorf("parse local id %q: %w", row.LocalID, err)
	}
	l := &models.LinkedIdentity{
		LocalID:             id.LocalID(localID),
		CreatedAt:           row.CreatedAt,
		CharacterName:       row.CharacterName,
		CharacterID:         id.CharacterID(row.CharacterID),
		ChatDisplayName:     row.ChatDisplayName,
		PresentOnChatServer: row.PresentOnChatServer,
	}
	if row.CorporationID != nil {
		l.CorporationID = id.CorporationID(*row.CorporationID)
	}
	if row.AllianceID != nil {
		l.AllianceID = id.AllianceID(*row.AllianceID)
	}
	if row.ChatUserID != nil {
		l.ChatUserID = id.ChatUserID(*row.ChatUserID)
	}
	return l, nil
}

func nullableInt(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}

func isGormDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}
