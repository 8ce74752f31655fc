package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corpauth/internal/platform/config"
	id "corpauth/pkg/domain"
	"corpauth/pkg/platform/audit"
	"corpauth/pkg/platform/audit/publisher"
	auditmemory "corpauth/pkg/platform/audit/store/memory"
	"corpauth/pkg/requestcontext"
)

func TestRulesetFromConfig(t *testing.T) {
	ruleset, err := rulesetFromConfig(config.Roles{
		BaseRole: "Member",
		Rules:    []config.RoleRule{{CorporationID: 100, RoleName: "Pilots"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Member", ruleset.BaseRole)
	require.Len(t, ruleset.Rules, 1)
	assert.Equal(t, id.CorporationID(100), ruleset.Rules[0].CorporationID)

	_, err = rulesetFromConfig(config.Roles{BaseRole: "Member", Rules: []config.RoleRule{{RoleName: "Pilots"}}})
	assert.Error(t, err)
}

func TestDeniedAuditorEmitsSecurityEvent(t *testing.T) {
	store := auditmemory.NewInMemoryStore()
	denied := deniedAuditor{audit: publisher.NewPublisher(store)}

	ctx := requestcontext.WithRequestID(context.Background(), "req-1")
	denied.AdminAccessDenied(ctx, "invalid token")

	events, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventAdminAccessDenied), events[0].Action)
	assert.Equal(t, audit.CategorySecurity, events[0].Category)
	assert.Equal(t, "invalid token", events[0].Reason)
	assert.Equal(t, "req-1", events[0].RequestID)
}

func TestCommandsAreRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["reconcile"])
	assert.True(t, names["token"])
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}
