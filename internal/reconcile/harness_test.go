package reconcile

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/mock/gomock"

	"corpauth/internal/identity/models"
	"corpauth/internal/policy"
	"corpauth/internal/presence"
	"corpauth/internal/reconcile/metrics"
	"corpauth/internal/reconcile/mocks"
	id "corpauth/pkg/domain"
	"corpauth/pkg/platform/audit"
	"corpauth/pkg/platform/audit/publisher"
	auditmemory "corpauth/pkg/platform/audit/store/memory"
)

var testRuleset = policy.Ruleset{
	BaseRole: "Member",
	Rules: []policy.Rule{
		{CorporationID: 100, RoleName: "Pilots"},
		{CorporationID: 200, RoleName: "Allies"},
	},
}

var guildRoles = []presence.Role{
	{ID: "r-member", Name: "Member"},
	{ID: "r-pilots", Name: "Pilots"},
	{ID: "r-allies", Name: "Allies"},
	{ID: "r-officer", Name: "Officer"},
}

type harness struct {
	ctrl       *gomock.Controller
	source     *mocks.MockAffiliationSource
	store      *mocks.MockIdentityStore
	gateway    *mocks.MockGateway
	auditStore *auditmemory.InMemoryStore
	metrics    *metrics.Metrics
}

func newHarness(t *testing.T) *harness {
	ctrl := gomock.NewController(t)
	return &harness{
		ctrl:       ctrl,
		source:     mocks.NewMockAffiliationSource(ctrl),
		store:      mocks.NewMockIdentityStore(ctrl),
		gateway:    mocks.NewMockGateway(ctrl),
		auditStore: auditmemory.NewInMemoryStore(),
		metrics:    metrics.New(prometheus.NewRegistry()),
	}
}

func (h *harness) engine(opts ...Option) *Engine {
	base := []Option{
		WithAuditPublisher(publisher.NewPublisher(h.auditStore)),
		WithMetrics(h.metrics),
		WithLogger(discardLogger()),
	}
	return NewEngine(h.source, h.store, h.gateway, testRuleset, append(base, opts...)...)
}

func (h *harness) batch(n int) {
	h.source.EXPECT().MaxBatch().Return(n).AnyTimes()
}

func (h *harness) candidates(identities ...*models.LinkedIdentity) {
	h.store.EXPECT().ListCandidates(gomock.Any(), models.FilterPresent).Return(identities, nil)
}

func (h *harness) roles() {
	h.gateway.EXPECT().Roles(gomock.Any()).Return(guildRoles, nil)
}

func (h *harness) events(t *testing.T) []audit.Event {
	t.Helper()
	events, err := h.auditStore.ListRecent(context.Background(), 100)
	if err != nil {
		t.Fatal(err)
	}
	return events
}

func actions(events []audit.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Action
	}
	return out
}

// linked builds a present identity whose stored state is consistent with
// corp and ticker "CORP".
func linked(characterID id.CharacterID, corp id.CorporationID, chatUserID string) *models.LinkedIdentity {
	name := "Pilot " + characterID.String()
	return &models.LinkedIdentity{
		LocalID:             id.NewLocalID(),
		CharacterID:         characterID,
		CharacterName:       name,
		CorporationID:       corp,
		ChatUserID:          id.ChatUserID(chatUserID),
		ChatDisplayName:     policy.Presentation("CORP", name),
		PresentOnChatServer: true,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
