//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "corpauth/pkg/domain"
	audit "corpauth/pkg/platform/audit"
	"corpauth/pkg/platform/audit/store/postgres"
	"corpauth/pkg/testutil/containers"
)

type AuditStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestAuditStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AuditStoreSuite))
}

func (s *AuditStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *AuditStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_events"))
}

func (s *AuditStoreSuite) TestAppendAndList() {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	events := []audit.Event{
		{Category: audit.CategoryCompliance, Timestamp: base, CharacterID: 10, ChatUserID: "111", Action: string(audit.EventIdentityLinked)},
		{Category: audit.CategoryOperations, Timestamp: base.Add(time.Second), Action: string(audit.EventPassCompleted), PassID: "p-1"},
		{Category: audit.CategoryCompliance, Timestamp: base.Add(2 * time.Second), CharacterID: 10, Action: string(audit.EventAffiliationChanged), Decision: "corp 100 -> 200"},
	}
	for _, e := range events {
		s.Require().NoError(s.store.Append(ctx, e))
	}

	byChar, err := s.store.ListByCharacter(ctx, id.CharacterID(10))
	s.Require().NoError(err)
	s.Require().Len(byChar, 2)
	s.Equal(id.ChatUserID("111"), byChar[0].ChatUserID)
	s.Equal("corp 100 -> 200", byChar[1].Decision)

	recent, err := s.store.ListRecent(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.Equal("p-1", recent[0].PassID)
	s.True(recent[0].CharacterID.IsZero())
}
