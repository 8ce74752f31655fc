package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"corpauth/internal/identity/models"
	"corpauth/internal/linking"
	id "corpauth/pkg/domain"
	dErrors "corpauth/pkg/domain-errors"
	"corpauth/pkg/platform/httputil"
	"corpauth/pkg/requestcontext"
)

//go:generate mockgen -source=handlers_admin.go -destination=mocks/admin-mocks.go -package=mocks

// LinkingService defines the administrative linking operations.
type LinkingService interface {
	IssueLinkToken(ctx context.Context, characterID id.CharacterID, characterName string) (*linking.LinkToken, error)
	Unlink(ctx context.Context, characterID id.CharacterID) error
	List(ctx context.Context) ([]*models.LinkedIdentity, error)
}

// PassSubmitter queues reconciliation passes.
type PassSubmitter interface {
	SubmitPass(actor string) bool
}

// AdminHandler serves the /admin routes. Authentication happens in the router.
type AdminHandler struct {
	linking LinkingService
	passes  PassSubmitter
	logger  *slog.Logger
}

func NewAdminHandler(linkingService LinkingService, passes PassSubmitter, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{linking: linkingService, passes: passes, logger: logger}
}

// Register registers the admin routes on r.
func (h *AdminHandler) Register(r chi.Router) {
	r.Post("/reconcile", h.handleReconcile)
	r.Get("/identities", h.handleListIdentities)
	r.Delete("/identities/{characterID}", h.handleUnlink)
	r.Post("/link-tokens", h.handleIssueLinkToken)
}

type identityResponse struct {
	CharacterID     id.CharacterID   `json:"character_id"`
	CharacterName   string           `json:"character_name"`
	CorporationID   id.CorporationID `json:"corporation_id,omitempty"`
	AllianceID      id.AllianceID    `json:"alliance_id,omitempty"`
	ChatUserID      id.ChatUserID    `json:"chat_user_id,omitempty"`
	ChatDisplayName string           `json:"chat_display_name,omitempty"`
	Present         bool             `json:"present_on_chat_server"`
	CreatedAt       time.Time        `json:"created_at"`
}

type issueLinkTokenRequest struct {
	CharacterID   int64  `json:"character_id"`
	CharacterName string `json:"character_name"`
}

func (r issueLinkTokenRequest) validate() error {
	if r.CharacterID <= 0 {
		return dErrors.New(dErrors.CodeValidation, "character_id must be positive")
	}
	if strings.TrimSpace(r.CharacterName) == "" {
		return dErrors.New(dErrors.CodeValidation, "character_name is required")
	}
	return nil
}

// handleReconcile queues a full pass. 409 means one is already queued.
func (h *AdminHandler) handleReconcile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)
	if !h.passes.SubmitPass(actor) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "a reconciliation pass is already pending"))
		return
	}
	h.logger.InfoContext(ctx, "reconciliation pass requested",
		"actor", actor,
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (h *AdminHandler) handleListIdentities(w http.ResponseWriter, r *http.Request) {
	rows, err := h.linking.List(r.Context())
	if err != nil {
		h.logError(r, "list identities failed", err)
		httputil.WriteError(w, err)
		return
	}
	out := make([]identityResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, identityResponse{
			CharacterID:     row.CharacterID,
			CharacterName:   row.CharacterName,
			CorporationID:   row.CorporationID,
			AllianceID:      row.AllianceID,
			ChatUserID:      row.ChatUserID,
			ChatDisplayName: row.ChatDisplayName,
			Present:         row.PresentOnChatServer,
			CreatedAt:       row.CreatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"identities": out})
}

func (h *AdminHandler) handleUnlink(w http.ResponseWriter, r *http.Request) {
	characterID, err := id.ParseCharacterID(chi.URLParam(r, "characterID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid character id"))
		return
	}
	if err := h.linking.Unlink(r.Context(), characterID); err != nil {
		h.logError(r, "unlink failed", err, "character_id", characterID)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) handleIssueLinkToken(w http.ResponseWriter, r *http.Request) {
	var req issueLinkTokenRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	token, err := h.linking.IssueLinkToken(r.Context(), id.CharacterID(req.CharacterID), strings.TrimSpace(req.CharacterName))
	if err != nil {
		h.logError(r, "issue link token failed", err, "character_id", req.CharacterID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, token)
}

func (h *AdminHandler) logError(r *http.Request, msg string, err error, args ...any) {
	ctx := r.Context()
	args = append(args, "error", err, "request_id", requestcontext.RequestID(ctx))
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, args...)
		return
	}
	h.logger.WarnContext(ctx, msg, args...)
}
