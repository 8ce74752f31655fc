package reconcile

import (
	"context"
	"errors"

	"go.uber.org/mock/gomock"

	"corpauth/internal/affiliation"
	"corpauth/internal/identity/models"
	"corpauth/internal/presence"
	id "corpauth/pkg/domain"
	"corpauth/pkg/platform/audit"
	"corpauth/pkg/platform/sentinel"
)

func (s *EngineSuite) TestHandleJoinReconcilesThenMarksPresent() {
	h := s.h
	chat := id.ChatUserID("111")
	pending := &models.LinkedIdentity{
		LocalID:         id.NewLocalID(),
		CharacterID:     10,
		CharacterName:   "Alpha Pilot",
		ChatUserID:      chat,
		ChatDisplayName: "alpha",
	}

	h.store.EXPECT().FindByChatUserID(gomock.Any(), chat).Return(pending, nil)
	h.source.EXPECT().LookupAffiliations(gomock.Any(), []id.CharacterID{10}).
		Return([]affiliation.Affiliation{{CharacterID: 10, CorporationID: 100, AllianceID: 9000}}, nil)
	h.roles()
	h.gateway.EXPECT().Member(gomock.Any(), chat).
		Return(&presence.Member{ChatUserID: chat, DisplayName: "alpha", RoleIDs: []string{"r-officer"}}, nil)
	h.source.EXPECT().LookupTicker(gomock.Any(), affiliation.KindAlliance, int64(9000)).Return("ALLY", nil)
	gomock.InOrder(
		h.gateway.EXPECT().Rename(gomock.Any(), chat, "[ALLY] Alpha Pilot").Return(nil),
		h.store.EXPECT().UpdateDisplayName(gomock.Any(), pending.LocalID, "[ALLY] Alpha Pilot").Return(nil),
		h.gateway.EXPECT().AddRoles(gomock.Any(), chat, []string{"r-member", "r-pilots"}).Return(nil),
		h.store.EXPECT().UpdateAffiliation(gomock.Any(), pending.LocalID, id.CorporationID(100), id.AllianceID(9000)).Return(nil),
		h.store.EXPECT().SetPresence(gomock.Any(), pending.LocalID, true).Return(nil),
	)

	s.Require().NoError(h.engine().HandleJoin(context.Background(), chat))
	s.Contains(actions(h.events(s.T())), string(audit.EventMemberJoined))
}

func (s *EngineSuite) TestHandleJoinReappliesRolesForConsistentIdentity() {
	h := s.h
	c10 := linked(10, 100, "111")
	c10.PresentOnChatServer = false

	h.store.EXPECT().FindByChatUserID(gomock.Any(), c10.ChatUserID).Return(c10, nil)
	h.source.EXPECT().LookupAffiliations(gomock.Any(), []id.CharacterID{10}).
		Return([]affiliation.Affiliation{{CharacterID: 10, CorporationID: 100}}, nil)
	h.roles()
	// A rejoining member has lost every role and nickname.
	h.gateway.EXPECT().Member(gomock.Any(), c10.ChatUserID).
		Return(&presence.Member{ChatUserID: c10.ChatUserID, DisplayName: "pilot", RoleIDs: []string{}}, nil)
	h.source.EXPECT().LookupTicker(gomock.Any(), affiliation.KindCorporation, int64(100)).Return("CORP", nil)
	h.gateway.EXPECT().Rename(gomock.Any(), c10.ChatUserID, "[CORP] Pilot 10").Return(nil)
	h.gateway.EXPECT().AddRoles(gomock.Any(), c10.ChatUserID, []string{"r-member", "r-pilots"}).Return(nil)
	h.store.EXPECT().SetPresence(gomock.Any(), c10.LocalID, true).Return(nil)

	s.Require().NoError(h.engine().HandleJoin(context.Background(), c10.ChatUserID))
}

func (s *EngineSuite) TestHandleJoinIgnoresUnlinkedMember() {
	h := s.h
	h.store.EXPECT().FindByChatUserID(gomock.Any(), id.ChatUserID("999")).Return(nil, sentinel.ErrNotFound)

	s.NoError(h.engine().HandleJoin(context.Background(), "999"))
	s.Empty(h.events(s.T()))
}

func (s *EngineSuite) TestHandleJoinLookupFailureStillMarksPresent() {
	h := s.h
	c10 := linked(10, 100, "111")

	h.store.EXPECT().FindByChatUserID(gomock.Any(), c10.ChatUserID).Return(c10, nil)
	h.source.EXPECT().LookupAffiliations(gomock.Any(), gomock.Any()).
		Return(nil, affiliation.NewSourceError(affiliation.ErrorRateLimited, "affiliation", "unexpected status 420", nil))
	h.store.EXPECT().SetPresence(gomock.Any(), c10.LocalID, true).Return(nil)

	err := h.engine().HandleJoin(context.Background(), c10.ChatUserID)
	s.Require().Error(err)
	s.Equal(affiliation.ErrorRateLimited, affiliation.GetCategory(err))
}

func (s *EngineSuite) TestHandleJoinVanishedCharacter() {
	h := s.h
	c10 := linked(10, 100, "111")

	h.store.EXPECT().FindByChatUserID(gomock.Any(), c10.ChatUserID).Return(c10, nil)
	h.source.EXPECT().LookupAffiliations(gomock.Any(), gomock.Any()).Return(nil, nil)
	h.source.EXPECT().CharacterExists(gomock.Any(), id.CharacterID(10)).Return(false, nil)
	h.store.EXPECT().SetPresence(gomock.Any(), c10.LocalID, true).Return(nil)

	s.Require().NoError(h.engine().HandleJoin(context.Background(), c10.ChatUserID))
	s.Equal([]string{string(audit.EventCharacterVanished), string(audit.EventMemberJoined)}, actions(h.events(s.T())))
}

func (s *EngineSuite) TestHandleLeaveOnlyClearsPresence() {
	h := s.h
	c10 := linked(10, 100, "111")

	h.store.EXPECT().FindByChatUserID(gomock.Any(), c10.ChatUserID).Return(c10, nil)
	h.store.EXPECT().SetPresence(gomock.Any(), c10.LocalID, false).Return(nil)

	// No gateway expectations: leaving never revokes roles.
	s.Require().NoError(h.engine().HandleLeave(context.Background(), c10.ChatUserID))
	s.Equal([]string{string(audit.EventMemberLeft)}, actions(h.events(s.T())))
}

func (s *EngineSuite) TestHandleLeaveErrors() {
	h := s.h
	h.store.EXPECT().FindByChatUserID(gomock.Any(), id.ChatUserID("999")).Return(nil, sentinel.ErrNotFound)
	s.NoError(h.engine().HandleLeave(context.Background(), "999"))

	c10 := linked(10, 100, "111")
	h.store.EXPECT().FindByChatUserID(gomock.Any(), c10.ChatUserID).Return(c10, nil)
	h.store.EXPECT().SetPresence(gomock.Any(), c10.LocalID, false).Return(errors.New("disk full"))
	s.Error(h.engine().HandleLeave(context.Background(), c10.ChatUserID))
}
