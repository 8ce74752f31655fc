package reconcile

import (
	"context"
	"fmt"

	"corpauth/internal/identity/models"
	"corpauth/internal/presence"
	id "corpauth/pkg/domain"
	"corpauth/pkg/platform/audit"
)

// SweepSummary reports what an absence sweep changed.
type SweepSummary struct {
	Members        int
	Checked        int
	MarkedAbsent   int
	NamesRefreshed int
}

// Sweep compares rows marked present with the server's member list. Rows
// whose member is gone are marked absent; rows whose member shows another
// nickname get the observed name cached so the next pass sees the drift.
// It never marks a row present.
func (e *Engine) Sweep(ctx context.Context) (SweepSummary, error) {
	var summary SweepSummary
	members, err := e.gateway.Members(ctx)
	if err != nil {
		e.metrics.IncrementGatewayFailure("members")
		return summary, fmt.Errorf("list members: %w", err)
	}
	summary.Members = len(members)
	byID := make(map[id.ChatUserID]presence.Member, len(members))
	for _, m := range members {
		byID[m.ChatUserID] = m
	}

	present, err := e.store.ListCandidates(ctx, models.FilterPresent)
	if err != nil {
		return summary, fmt.Errorf("list present identities: %w", err)
	}
	for _, identity := range present {
		summary.Checked++
		m, ok := byID[identity.ChatUserID]
		if !ok {
			if err := e.store.SetPresence(ctx, identity.LocalID, false); err != nil {
				e.logger.WarnContext(ctx, "failed to mark absent member",
					"character_id", identity.CharacterID,
					"chat_user_id", identity.ChatUserID,
					"error", err,
				)
				continue
			}
			summary.MarkedAbsent++
			e.metrics.IncrementMembershipEvent("absent")
			e.emit(ctx, audit.Event{
				CharacterID: identity.CharacterID,
				ChatUserID:  identity.ChatUserID,
				Subject:     identity.CharacterName,
				Action:      string(audit.EventMemberAbsent),
			})
			continue
		}
		if m.DisplayName != identity.ChatDisplayName {
			if err := e.store.UpdateDisplayName(ctx, identity.LocalID, m.DisplayName); err != nil {
				e.logger.WarnContext(ctx, "failed to refresh display name",
					"character_id", identity.CharacterID,
					"error", err,
				)
				continue
			}
			summary.NamesRefreshed++
		}
	}

	e.logger.InfoContext(ctx, "absence sweep finished",
		"members", summary.Members,
		"checked", summary.Checked,
		"marked_absent", summary.MarkedAbsent,
		"names_refreshed", summary.NamesRefreshed,
	)
	return summary, nil
}
