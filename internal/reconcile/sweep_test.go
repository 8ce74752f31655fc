package reconcile

import (
	"context"
	"errors"

	"go.uber.org/mock/gomock"

	"corpauth/internal/identity/models"
	"corpauth/internal/presence"
)

func (s *EngineSuite) TestSweepMarksAbsentAndRefreshesNames() {
	h := s.h
	c10, c20, c30 := linked(10, 100, "111"), linked(20, 100, "222"), linked(30, 100, "333")

	h.gateway.EXPECT().Members(gomock.Any()).Return([]presence.Member{
		{ChatUserID: "111", DisplayName: c10.ChatDisplayName},
		{ChatUserID: "333", DisplayName: "renamed by hand"},
		{ChatUserID: "444", DisplayName: "unlinked"},
	}, nil)
	h.store.EXPECT().ListCandidates(gomock.Any(), models.FilterPresent).
		Return([]*models.LinkedIdentity{c10, c20, c30}, nil)
	h.store.EXPECT().SetPresence(gomock.Any(), c20.LocalID, false).Return(nil)
	h.store.EXPECT().UpdateDisplayName(gomock.Any(), c30.LocalID, "renamed by hand").Return(nil)

	summary, err := h.engine().Sweep(context.Background())
	s.Require().NoError(err)
	s.Equal(SweepSummary{Members: 3, Checked: 3, MarkedAbsent: 1, NamesRefreshed: 1}, summary)
}

func (s *EngineSuite) TestSweepGatewayFailure() {
	h := s.h
	h.gateway.EXPECT().Members(gomock.Any()).Return(nil, errors.New("gateway closed"))

	_, err := h.engine().Sweep(context.Background())
	s.Error(err)
}

func (s *EngineSuite) TestSweepContinuesPastStoreFailure() {
	h := s.h
	c10, c20 := linked(10, 100, "111"), linked(20, 100, "222")

	h.gateway.EXPECT().Members(gomock.Any()).Return([]presence.Member{}, nil)
	h.store.EXPECT().ListCandidates(gomock.Any(), models.FilterPresent).
		Return([]*models.LinkedIdentity{c10, c20}, nil)
	h.store.EXPECT().SetPresence(gomock.Any(), c10.LocalID, false).Return(errors.New("locked"))
	h.store.EXPECT().SetPresence(gomock.Any(), c20.LocalID, false).Return(nil)

	summary, err := h.engine().Sweep(context.Background())
	s.Require().NoError(err)
	s.Equal(1, summary.MarkedAbsent)
	s.Equal(2, summary.Checked)
}
