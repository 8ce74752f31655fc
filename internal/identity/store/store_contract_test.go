package store

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/suite"

	"corpauth/internal/identity/models"
	id "corpauth/pkg/domain"
	"corpauth/pkg/platform/sentinel"
)

type identityStore interface {
	Create(ctx context.Context, identity *models.LinkedIdentity) error
	FindByCharacterID(ctx context.Context, characterID id.CharacterID) (*models.LinkedIdentity, error)
	FindByChatUserID(ctx context.Context, chatUserID id.ChatUserID) (*models.LinkedIdentity, error)
	ListCandidates(ctx context.Context, filter models.CandidateFilter) ([]*models.LinkedIdentity, error)
	List(ctx context.Context) ([]*models.LinkedIdentity, error)
	UpdateAffiliation(ctx context.Context, localID id.LocalID, corp id.CorporationID, alliance id.AllianceID) error
	UpdateDisplayName(ctx context.Context, localID id.LocalID, displayName string) error
	SetPresence(ctx context.Context, localID id.LocalID, present bool) error
	ClaimChatIdentity(ctx context.Context, localID id.LocalID, chatUserID id.ChatUserID, displayName string) error
	Delete(ctx context.Context, localID id.LocalID) error
}

// storeContractSuite holds the behaviour every backend must share.
// Backend suites embed it and set newStore.
type storeContractSuite struct {
	suite.Suite
	newStore func() identityStore
	store    identityStore
}

func (s *storeContractSuite) SetupTest() {
	s.store = s.newStore()
}

func newIdentity(characterID id.CharacterID, name string, chatUserID id.ChatUserID) *models.LinkedIdentity {
	identity, err := models.NewLinkedIdentity(characterID, name, time.Now().UTC().Truncate(time.Microsecond))
	if err != nil {
		panic(err)
	}
	identity.ChatUserID = chatUserID
	return identity
}

func (s *storeContractSuite) create(characterID id.CharacterID, chatUserID id.ChatUserID, present bool) *models.LinkedIdentity {
	identity := newIdentity(characterID, "Pilot "+characterID.String(), chatUserID)
	identity.PresentOnChatServer = present
	s.Require().NoError(s.store.Create(context.Background(), identity))
	return identity
}

func (s *storeContractSuite) TestCreateAndFind() {
	ctx := context.Background()
	created := s.create(90000001, "111", true)

	byChar, err := s.store.FindByCharacterID(ctx, 90000001)
	s.Require().NoError(err)
	s.Equal(created.LocalID, byChar.LocalID)
	s.Equal("Pilot 90000001", byChar.CharacterName)
	s.True(byChar.CorporationID.IsZero())
	s.True(byChar.AllianceID.IsZero())
	s.True(byChar.PresentOnChatServer)
	s.WithinDuration(created.CreatedAt, byChar.CreatedAt, time.Second)

	byChat, err := s.store.FindByChatUserID(ctx, "111")
	s.Require().NoError(err)
	s.Equal(created.LocalID, byChat.LocalID)

	_, err = s.store.FindByCharacterID(ctx, 1)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindByChatUserID(ctx, "999")
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindByChatUserID(ctx, "")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *storeContractSuite) TestUniqueCharacterAndChatUser() {
	ctx := context.Background()
	s.create(90000001, "111", false)

	err := s.store.Create(ctx, newIdentity(90000001, "Dup", "222"))
	s.ErrorIs(err, sentinel.ErrConflict)

	err = s.store.Create(ctx, newIdentity(90000002, "Dup", "111"))
	s.ErrorIs(err, sentinel.ErrConflict)

	// Pending rows have no chat identity and never collide on it.
	s.create(90000003, "", false)
	s.create(90000004, "", false)
}

func (s *storeContractSuite) TestListCandidatesFiltersAndOrders() {
	ctx := context.Background()
	s.create(30, "333", true)
	s.create(10, "111", true)
	s.create(20, "222", false)
	s.create(40, "", false)

	present, err := s.store.ListCandidates(ctx, models.FilterPresent)
	s.Require().NoError(err)
	s.Equal([]id.CharacterID{10, 30}, characterIDs(present))

	linked, err := s.store.ListCandidates(ctx, models.FilterLinked)
	s.Require().NoError(err)
	s.Equal([]id.CharacterID{10, 20, 30}, characterIDs(linked))

	all, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Equal([]id.CharacterID{10, 20, 30, 40}, characterIDs(all))
}

func (s *storeContractSuite) TestUpdateAffiliationIsIdempotent() {
	ctx := context.Background()
	created := s.create(90000001, "111", true)

	for range 2 {
		s.Require().NoError(s.store.UpdateAffiliation(ctx, created.LocalID, 200, 9000))
	}
	got, err := s.store.FindByCharacterID(ctx, 90000001)
	s.Require().NoError(err)
	s.Equal(id.CorporationID(200), got.CorporationID)
	s.Equal(id.AllianceID(9000), got.AllianceID)

	// Leaving an alliance clears it.
	s.Require().NoError(s.store.UpdateAffiliation(ctx, created.LocalID, 200, 0))
	got, err = s.store.FindByCharacterID(ctx, 90000001)
	s.Require().NoError(err)
	s.True(got.AllianceID.IsZero())

	err = s.store.UpdateAffiliation(ctx, id.NewLocalID(), 1, 0)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *storeContractSuite) TestDisplayNameAndPresence() {
	ctx := context.Background()
	created := s.create(90000001, "111", false)

	s.Require().NoError(s.store.UpdateDisplayName(ctx, created.LocalID, "[CORP] Pilot"))
	s.Require().NoError(s.store.SetPresence(ctx, created.LocalID, true))

	got, err := s.store.FindByChatUserID(ctx, "111")
	s.Require().NoError(err)
	s.Equal("[CORP] Pilot", got.ChatDisplayName)
	s.True(got.PresentOnChatServer)

	s.Require().NoError(s.store.SetPresence(ctx, created.LocalID, false))
	got, err = s.store.FindByChatUserID(ctx, "111")
	s.Require().NoError(err)
	s.False(got.PresentOnChatServer)

	s.ErrorIs(s.store.SetPresence(ctx, id.NewLocalID(), true), sentinel.ErrNotFound)
	s.ErrorIs(s.store.UpdateDisplayName(ctx, id.NewLocalID(), "x"), sentinel.ErrNotFound)
}

func (s *storeContractSuite) TestClaimChatIdentity() {
	ctx := context.Background()
	pending := s.create(90000001, "", false)
	s.create(90000002, "222", true)

	err := s.store.ClaimChatIdentity(ctx, pending.LocalID, "222", "Taken")
	s.ErrorIs(err, sentinel.ErrConflict)

	s.Require().NoError(s.store.ClaimChatIdentity(ctx, pending.LocalID, "111", "Alpha"))
	got, err := s.store.FindByChatUserID(ctx, "111")
	s.Require().NoError(err)
	s.Equal(pending.LocalID, got.LocalID)
	s.Equal("Alpha", got.ChatDisplayName)

	err = s.store.ClaimChatIdentity(ctx, pending.LocalID, "333", "Again")
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	err = s.store.ClaimChatIdentity(ctx, id.NewLocalID(), "444", "Ghost")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *storeContractSuite) TestConcurrentClaimsHaveOneWinner() {
	ctx := context.Background()
	pending := s.create(90000001, "", false)

	const goroutines = 10
	var wg sync.WaitGroup
	var wins, used atomic.Int32
	for i := range goroutines {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.store.ClaimChatIdentity(ctx, pending.LocalID, id.ChatUserID(strconv.Itoa(1000+i)), "Racer")
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				used.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
	s.Equal(int32(goroutines-1), used.Load())
}

func (s *storeContractSuite) TestDelete() {
	ctx := context.Background()
	created := s.create(90000001, "111", true)

	s.Require().NoError(s.store.Delete(ctx, created.LocalID))
	_, err := s.store.FindByCharacterID(ctx, 90000001)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.Delete(ctx, created.LocalID), sentinel.ErrNotFound)

	// The character can link again after removal.
	s.create(90000001, "111", false)
}

func characterIDs(rows []*models.LinkedIdentity) []id.CharacterID {
	out := make([]id.CharacterID, len(rows))
	for i, r := range rows {
		out[i] = r.CharacterID
	}
	return out
}
