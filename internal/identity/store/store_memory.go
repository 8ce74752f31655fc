// Package store persists linked identities. Every backend returns the
// sentinel errors from pkg/platform/sentinel: ErrNotFound for a missing row,
// ErrConflict when a unique character or chat user id is taken, and
// ErrAlreadyUsed when a claim targets a row that is already linked.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"corpauth/internal/identity/models"
	id "corpauth/pkg/domain"
	"corpauth/pkg/platform/sentinel"
)

// InMemoryStore keeps identities in process memory. Useful for tests and
// single-run tooling.
type InMemoryStore struct {
	mu   sync.RWMutex
	rows map[id.LocalID]*models.LinkedIdentity
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{rows: make(map[id.LocalID]*models.LinkedIdentity)}
}

func (s *InMemoryStore) Create(_ context.Context, identity *models.LinkedIdentity) error {
	if identity == nil {
		return fmt.Errorf("identity is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[identity.LocalID]; ok {
		return fmt.Errorf("local id %s: %w", identity.LocalID, sentinel.ErrConflict)
	}
	for _, row := range s.rows {
		if row.CharacterID == identity.CharacterID {
			return fmt.Errorf("character %d: %w", identity.CharacterID, sentinel.ErrConflict)
		}
		if identity.IsLinked() && row.ChatUserID == identity.ChatUserID {
			return fmt.Errorf("chat user %s: %w", identity.ChatUserID, sentinel.ErrConflict)
		}
	}
	clone := *identity
	s.rows[identity.LocalID] = &clone
	return nil
}

func (s *InMemoryStore) FindByCharacterID(_ context.Context, characterID id.CharacterID) (*models.LinkedIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, row := range s.rows {
		if row.CharacterID == characterID {
			clone := *row
			return &clone, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByChatUserID(_ context.Context, chatUserID id.ChatUserID) (*models.LinkedIdentity, error) {
	if chatUserID.IsZero() {
		return nil, sentinel.ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, row := range s.rows {
		if row.ChatUserID == chatUserID {
			clone := *row
			return &clone, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// ListCandidates returns matching rows ordered by character id.
func (s *InMemoryStore) ListCandidates(_ context.Context, filter models.CandidateFilter) ([]*models.LinkedIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.LinkedIdentity
	for _, row := range s.rows {
		if filter.Matches(row) {
			clone := *row
			out = append(out, &clone)
		}
	}
	sortByCharacter(out)
	return out, nil
}

// List returns every row, pending ones included, ordered by character id.
func (s *InMemoryStore) List(_ context.Context) ([]*models.LinkedIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.LinkedIdentity, 0, len(s.rows))
	for _, row := range s.rows {
		clone := *row
		out = append(out, &clone)
	}
	sortByCharacter(out)
	return out, nil
}

func (s *InMemoryStore) UpdateAffiliation(_ context.Context, localID id.LocalID, corp id.CorporationID, alliance id.AllianceID) error {
	return s.mutate(localID, func(row *models.LinkedIdentity) {
		row.CorporationID = corp
		row.AllianceID = alliance
	})
}

func (s *InMemoryStore) UpdateDisplayName(_ context.Context, localID id.LocalID, displayName string) error {
	return s.mutate(localID, func(row *models.LinkedIdentity) {
		row.ChatDisplayName = displayName
	})
}

func (s *InMemoryStore) SetPresence(_ context.Context, localID id.LocalID, present bool) error {
	return s.mutate(localID, func(row *models.LinkedIdentity) {
		row.PresentOnChatServer = present
	})
}

// ClaimChatIdentity binds a chat user to a pending row exactly once.
func (s *InMemoryStore) ClaimChatIdentity(_ context.Context, localID id.LocalID, chatUserID id.ChatUserID, displayName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[localID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if row.IsLinked() {
		return sentinel.ErrAlreadyUsed
	}
	for _, other := range s.rows {
		if other.ChatUserID == chatUserID {
			return fmt.Errorf("chat user %s: %w", chatUserID, sentinel.ErrConflict)
		}
	}
	row.ChatUserID = chatUserID
	row.ChatDisplayName = displayName
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, localID id.LocalID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[localID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.rows, localID)
	return nil
}

func (s *InMemoryStore) mutate(localID id.LocalID, fn func(*models.LinkedIdentity)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[localID]
	if !ok {
		return sentinel.ErrNotFound
	}
	fn(row)
	return nil
}

func sortByCharacter(rows []*models.LinkedIdentity) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].CharacterID < rows[j].CharacterID })
}
