// Package reconcile keeps each linked identity's stored affiliation and its
// chat presentation (nickname and managed roles) in line with the upstream
// source. Full passes walk every candidate in bounded chunks; join and leave
// observations reconcile a single identity.
package reconcile

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"corpauth/internal/affiliation"
	"corpauth/internal/identity/models"
	"corpauth/internal/policy"
	"corpauth/internal/presence"
	"corpauth/internal/reconcile/metrics"
	id "corpauth/pkg/domain"
	"corpauth/pkg/platform/audit"
	"corpauth/pkg/requestcontext"
)

// Summary reports what one pass did.
type Summary struct {
	PassID     string
	Candidates int
	// Processed counts candidates paired with an upstream affiliation.
	Processed int
	Repaired  int
	Unchanged int
	// Skipped counts candidates left for the next pass: pairing
	// mismatches, abandoned chunks and cancellation.
	Skipped  int
	Vanished int
	// RepairFailures counts repaired identities where at least one gateway
	// or store operation failed.
	RepairFailures int
	FailedChunks   int
	Duration       time.Duration
}

// Engine is the long-lived reconciliation service. It is safe for
// concurrent use; passes are serialized by an internal guard.
type Engine struct {
	source  AffiliationSource
	store   IdentityStore
	gateway Gateway
	ruleset policy.Ruleset

	scope            models.CandidateFilter
	convergeAttempts int
	probeConcurrency int
	notifyOnRepair   bool

	guard   guard
	auditor AuditPublisher
	metrics *metrics.Metrics
	tracer  trace.Tracer
	logger  *slog.Logger
}

type Option func(*Engine)

// WithScope selects which identities a pass covers.
func WithScope(filter models.CandidateFilter) Option {
	return func(e *Engine) {
		if filter != "" {
			e.scope = filter
		}
	}
}

// WithConvergeAttempts bounds the shrink-and-recheck rounds per chunk.
func WithConvergeAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.convergeAttempts = n
		}
	}
}

// WithProbeConcurrency bounds parallel existence checks within a chunk.
func WithProbeConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.probeConcurrency = n
		}
	}
}

// WithNotifyOnRepair sends members a direct message when their
// affiliation changed.
func WithNotifyOnRepair(enabled bool) Option {
	return func(e *Engine) { e.notifyOnRepair = enabled }
}

// WithPassLock excludes passes in other processes.
func WithPassLock(lock PassLock) Option {
	return func(e *Engine) { e.guard.lock = lock }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(e *Engine) { e.auditor = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func NewEngine(source AffiliationSource, store IdentityStore, gateway Gateway, ruleset policy.Ruleset, opts ...Option) *Engine {
	e := &Engine{
		source:           source,
		store:            store,
		gateway:          gateway,
		ruleset:          ruleset,
		scope:            models.FilterPresent,
		convergeAttempts: 3,
		probeConcurrency: 4,
		tracer:           otel.Tracer("corpauth/reconcile"),
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Busy reports whether a pass is running in this process.
func (e *Engine) Busy() bool {
	return e.guard.busy()
}

// RunPass reconciles every candidate in scope. Failures of single chunks or
// identities are logged and counted, never returned. The error is non-nil
// only when the pass could not start or list candidates, or ctx ended; in
// the last case the summary covers the chunks finished before.
func (e *Engine) RunPass(ctx context.Context) (Summary, error) {
	release, err := e.guard.enter(ctx)
	if err != nil {
		if errors.Is(err, ErrPassInProgress) {
			e.metrics.IncrementPass("skipped")
		}
		return Summary{}, err
	}
	defer release()

	start := time.Now()
	summary := Summary{PassID: uuid.NewString()}
	ctx = requestcontext.WithPassID(ctx, summary.PassID)
	ctx, span := e.tracer.Start(ctx, "reconcile.pass",
		trace.WithAttributes(attribute.String("pass.id", summary.PassID)))
	defer span.End()

	err = e.runPass(ctx, &summary)
	summary.Duration = time.Since(start)

	outcome := "completed"
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = "cancelled"
	default:
		outcome = "failed"
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	span.SetAttributes(
		attribute.Int("pass.candidates", summary.Candidates),
		attribute.Int("pass.repaired", summary.Repaired),
		attribute.Int("pass.vanished", summary.Vanished),
	)
	e.metrics.IncrementPass(outcome)
	e.metrics.ObservePassDuration(summary.Duration)

	e.logger.InfoContext(ctx, "reconciliation pass finished",
		"pass_id", summary.PassID,
		"outcome", outcome,
		"candidates", summary.Candidates,
		"processed", summary.Processed,
		"repaired", summary.Repaired,
		"unchanged", summary.Unchanged,
		"skipped", summary.Skipped,
		"vanished", summary.Vanished,
		"repair_failures", summary.RepairFailures,
		"failed_chunks", summary.FailedChunks,
		"duration", summary.Duration,
	)
	e.emit(ctx, audit.Event{
		Action:   string(audit.EventPassCompleted),
		Decision: outcome,
		Reason: fmt.Sprintf("processed=%d repaired=%d skipped=%d vanished=%d",
			summary.Processed, summary.Repaired, summary.Skipped, summary.Vanished),
	})
	return summary, err
}

func (e *Engine) runPass(ctx context.Context, summary *Summary) error {
	candidates, err := e.store.ListCandidates(ctx, e.scope)
	if err != nil {
		return fmt.Errorf("list candidates: %w", err)
	}
	slices.SortFunc(candidates, func(a, b *models.LinkedIdentity) int {
		return cmp.Compare(a.CharacterID, b.CharacterID)
	})
	summary.Candidates = len(candidates)
	if len(candidates) == 0 {
		return nil
	}

	resolver := e.resolveRoles(ctx)
	batch := max(e.source.MaxBatch(), 1)

	done, index := 0, 0
	for chunk := range slices.Chunk(candidates, batch) {
		if err := ctx.Err(); err != nil {
			summary.Skipped += len(candidates) - done
			return err
		}
		e.processChunk(ctx, index, chunk, resolver, summary)
		done += len(chunk)
		index++
	}
	return nil
}

// resolveRoles maps role names to chat role ids once for the pass. When
// roles cannot be listed the pass continues with presentation only.
func (e *Engine) resolveRoles(ctx context.Context) *presence.RoleResolver {
	roles, err := e.gateway.Roles(ctx)
	if err != nil {
		e.metrics.IncrementGatewayFailure("roles")
		e.logger.WarnContext(ctx, "failed to list chat roles, role changes skipped",
			"pass_id", requestcontext.PassID(ctx),
			"error", err,
		)
		return presence.NewRoleResolver(nil)
	}
	resolver := presence.NewRoleResolver(roles)
	if _, unknown := resolver.IDs(e.ruleset.ManagedRoles()); len(unknown) > 0 {
		e.logger.WarnContext(ctx, "configured roles not found on chat server",
			"pass_id", requestcontext.PassID(ctx),
			"roles", unknown,
		)
	}
	return resolver
}

func (e *Engine) processChunk(ctx context.Context, index int, chunk []*models.LinkedIdentity, resolver *presence.RoleResolver, summary *Summary) {
	ctx, span := e.tracer.Start(ctx, "reconcile.chunk", trace.WithAttributes(
		attribute.Int("chunk.index", index),
		attribute.Int("chunk.size", len(chunk)),
	))
	defer span.End()

	res, err := e.resolveChunk(ctx, chunk)
	if err != nil {
		reason := "lookup"
		if errors.Is(err, ErrNotConverged) {
			reason = "not_converged"
		}
		summary.FailedChunks++
		summary.Skipped += len(chunk)
		e.metrics.IncrementChunkFailure(reason)
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		e.logger.WarnContext(ctx, "chunk skipped until next pass",
			"pass_id", requestcontext.PassID(ctx),
			"chunk", index,
			"size", len(chunk),
			"error", err,
		)
		return
	}

	summary.Skipped += res.mismatched
	for _, gone := range res.vanished {
		summary.Vanished++
		e.recordVanished(ctx, gone)
	}
	for _, p := range res.pairs {
		summary.Processed++
		if !needsRepair(p.identity, p.affiliation) {
			summary.Unchanged++
			continue
		}
		summary.Repaired++
		e.metrics.IncrementRepairs()
		if !e.repair(ctx, p.identity, p.affiliation, resolver) {
			summary.RepairFailures++
		}
	}
}

type pairing struct {
	identity    *models.LinkedIdentity
	affiliation affiliation.Affiliation
}

type chunkResult struct {
	pairs      []pairing
	vanished   []*models.LinkedIdentity
	mismatched int
}

// resolveChunk looks up a chunk sorted by character id and pairs it with the
// sorted result by position. The batch endpoint silently drops characters
// that no longer exist, so a short result is narrowed by per-character
// existence checks until the lengths agree.
func (e *Engine) resolveChunk(ctx context.Context, chunk []*models.LinkedIdentity) (chunkResult, error) {
	var res chunkResult
	results, err := e.source.LookupAffiliations(ctx, characterIDs(chunk))
	if err != nil {
		return res, fmt.Errorf("lookup affiliations: %w", err)
	}
	slices.SortFunc(results, func(a, b affiliation.Affiliation) int {
		return cmp.Compare(a.CharacterID, b.CharacterID)
	})

	working := chunk
	for attempt := 0; len(results) != len(working); attempt++ {
		if len(results) > len(working) || attempt == e.convergeAttempts {
			return res, fmt.Errorf("%w: %d results for %d candidates after %d attempts",
				ErrNotConverged, len(results), len(working), attempt)
		}
		e.logger.InfoContext(ctx, "affiliation result shorter than chunk, checking which characters still exist",
			"pass_id", requestcontext.PassID(ctx),
			"results", len(results),
			"candidates", len(working),
			"attempt", attempt+1,
		)
		exists := e.probe(ctx, working)
		kept := make([]*models.LinkedIdentity, 0, len(working))
		for i, identity := range working {
			if exists[i] {
				kept = append(kept, identity)
			} else {
				res.vanished = append(res.vanished, identity)
			}
		}
		working = kept
	}

	for i, identity := range working {
		aff := results[i]
		if aff.CharacterID != identity.CharacterID {
			res.mismatched++
			e.logger.WarnContext(ctx, "affiliation result does not match candidate, skipping",
				"pass_id", requestcontext.PassID(ctx),
				"character_id", identity.CharacterID,
				"result_character_id", aff.CharacterID,
			)
			continue
		}
		res.pairs = append(res.pairs, pairing{identity: identity, affiliation: aff})
	}
	return res, nil
}

// probe checks existence of each identity's character. A failed check
// counts as existing: only a definite answer removes a candidate.
func (e *Engine) probe(ctx context.Context, identities []*models.LinkedIdentity) []bool {
	exists := make([]bool, len(identities))
	var g errgroup.Group
	g.SetLimit(e.probeConcurrency)
	for i, identity := range identities {
		g.Go(func() error {
			ok, err := e.source.CharacterExists(ctx, identity.CharacterID)
			if err != nil {
				e.logger.WarnContext(ctx, "character existence check failed",
					"pass_id", requestcontext.PassID(ctx),
					"character_id", identity.CharacterID,
					"error", err,
				)
				exists[i] = true
				return nil
			}
			exists[i] = ok
			return nil
		})
	}
	_ = g.Wait()
	return exists
}

// needsRepair reports drift between the stored row and upstream, or a
// present member whose cached display name is not canonical.
func needsRepair(identity *models.LinkedIdentity, aff affiliation.Affiliation) bool {
	if !identity.SameAffiliation(aff.CorporationID, aff.AllianceID) {
		return true
	}
	return identity.PresentOnChatServer &&
		!policy.IsPresentation(identity.ChatDisplayName, identity.CharacterName)
}

// repair applies presentation and roles, then persists the affiliation.
// Persisting last means a crash in between is re-detected as drift. It
// reports whether every operation succeeded.
func (e *Engine) repair(ctx context.Context, identity *models.LinkedIdentity, aff affiliation.Affiliation, resolver *presence.RoleResolver) bool {
	logger := e.logger.With(
		"pass_id", requestcontext.PassID(ctx),
		"character_id", identity.CharacterID,
		"chat_user_id", identity.ChatUserID,
	)

	ok := true
	if identity.PresentOnChatServer {
		ok = e.applyPresentation(ctx, identity, aff, resolver, logger)
	}

	if identity.SameAffiliation(aff.CorporationID, aff.AllianceID) {
		return ok
	}
	if err := e.store.UpdateAffiliation(ctx, identity.LocalID, aff.CorporationID, aff.AllianceID); err != nil {
		logger.WarnContext(ctx, "failed to persist affiliation, next pass retries", "error", err)
		return false
	}
	logger.InfoContext(ctx, "affiliation updated",
		"from_corporation_id", identity.CorporationID,
		"from_alliance_id", identity.AllianceID,
		"corporation_id", aff.CorporationID,
		"alliance_id", aff.AllianceID,
	)
	e.emit(ctx, audit.Event{
		CharacterID: identity.CharacterID,
		ChatUserID:  identity.ChatUserID,
		Subject:     identity.CharacterName,
		Action:      string(audit.EventAffiliationChanged),
		Reason: fmt.Sprintf("corporation %s->%s alliance %s->%s",
			identity.CorporationID, aff.CorporationID, identity.AllianceID, aff.AllianceID),
	})

	if e.notifyOnRepair && identity.PresentOnChatServer {
		msg := fmt.Sprintf("Your roles and nickname were updated to match %s's current corporation.", identity.CharacterName)
		if err := e.gateway.Notify(ctx, identity.ChatUserID, msg); err != nil {
			logger.WarnContext(ctx, "failed to notify member", "error", err)
		}
	}
	return ok
}

// applyPresentation renames the member and adjusts managed roles. Rename,
// role grants and role revocations are attempted independently.
func (e *Engine) applyPresentation(ctx context.Context, identity *models.LinkedIdentity, aff affiliation.Affiliation, resolver *presence.RoleResolver, logger *slog.Logger) bool {
	member, err := e.gateway.Member(ctx, identity.ChatUserID)
	var held []string
	switch {
	case err == nil:
		held = resolver.Names(member.RoleIDs)
	case errors.Is(err, presence.ErrMemberNotFound):
		logger.InfoContext(ctx, "member no longer on chat server, marking absent")
		if err := e.store.SetPresence(ctx, identity.LocalID, false); err != nil {
			logger.WarnContext(ctx, "failed to mark member absent", "error", err)
		}
		return true
	default:
		e.metrics.IncrementGatewayFailure("member")
		logger.WarnContext(ctx, "member lookup failed, applying roles without current state", "error", err)
	}

	ok := true
	display := policy.Presentation(e.ticker(ctx, aff, logger), identity.CharacterName)
	renamed := member != nil && member.DisplayName == display
	if !renamed {
		if err := e.gateway.Rename(ctx, identity.ChatUserID, display); err != nil {
			ok = false
			e.metrics.IncrementGatewayFailure("rename")
			logger.WarnContext(ctx, "rename failed", "display_name", display, "error", err)
		} else {
			renamed = true
		}
	}
	if renamed && identity.ChatDisplayName != display {
		if err := e.store.UpdateDisplayName(ctx, identity.LocalID, display); err != nil {
			ok = false
			logger.WarnContext(ctx, "failed to cache display name", "error", err)
		} else {
			e.emit(ctx, audit.Event{
				CharacterID: identity.CharacterID,
				ChatUserID:  identity.ChatUserID,
				Subject:     identity.CharacterName,
				Action:      string(audit.EventPresentationRepaired),
				Reason:      display,
			})
		}
	}

	add, remove := policy.Diff(e.ruleset.TargetRoles(aff.CorporationID), e.ruleset.ManagedRoles(), held)
	if roleIDs, _ := resolver.IDs(add); len(roleIDs) > 0 {
		if err := e.gateway.AddRoles(ctx, identity.ChatUserID, roleIDs); err != nil {
			ok = false
			e.metrics.IncrementGatewayFailure("add_roles")
			logger.WarnContext(ctx, "adding roles failed", "roles", add, "error", err)
		}
	}
	if roleIDs, _ := resolver.IDs(remove); len(roleIDs) > 0 {
		if err := e.gateway.RemoveRoles(ctx, identity.ChatUserID, roleIDs); err != nil {
			ok = false
			e.metrics.IncrementGatewayFailure("remove_roles")
			logger.WarnContext(ctx, "removing roles failed", "roles", remove, "error", err)
		}
	}
	return ok
}

// ticker resolves the display prefix. Failures degrade to no prefix.
func (e *Engine) ticker(ctx context.Context, aff affiliation.Affiliation, logger *slog.Logger) string {
	isAlliance, entityID := policy.TickerEntity(aff.CorporationID, aff.AllianceID)
	kind := affiliation.KindCorporation
	if isAlliance {
		kind = affiliation.KindAlliance
	}
	ticker, err := e.source.LookupTicker(ctx, kind, entityID)
	if err != nil {
		logger.WarnContext(ctx, "ticker lookup failed, presenting bare name",
			"kind", kind,
			"entity_id", entityID,
			"error", err,
		)
		return ""
	}
	return ticker
}

func (e *Engine) recordVanished(ctx context.Context, identity *models.LinkedIdentity) {
	e.metrics.AddVanished(1)
	e.logger.InfoContext(ctx, "character no longer exists upstream",
		"pass_id", requestcontext.PassID(ctx),
		"character_id", identity.CharacterID,
		"chat_user_id", identity.ChatUserID,
	)
	e.emit(ctx, audit.Event{
		CharacterID: identity.CharacterID,
		ChatUserID:  identity.ChatUserID,
		Subject:     identity.CharacterName,
		Action:      string(audit.EventCharacterVanished),
	})
}

func (e *Engine) emit(ctx context.Context, event audit.Event) {
	if e.auditor == nil {
		return
	}
	if event.PassID == "" {
		event.PassID = requestcontext.PassID(ctx)
	}
	if event.ActorID == "" {
		event.ActorID = requestcontext.Actor(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if err := e.auditor.Emit(ctx, event); err != nil {
		e.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}

func characterIDs(identities []*models.LinkedIdentity) []id.CharacterID {
	ids := make([]id.CharacterID, len(identities))
	for i, identity := range identities {
		ids[i] = identity.CharacterID
	}
	return ids
}
