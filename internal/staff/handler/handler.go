// Package handler serves the staff token endpoint.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dsnap/internal/staff/service"
	id "dsnap/pkg/domain"
	dErrors "dsnap/pkg/domain-errors"
	"dsnap/pkg/platform/httputil"
	"dsnap/pkg/platform/middleware/auth"
	platformstrings "dsnap/pkg/platform/strings"
	"dsnap/pkg/platform/validation"
	"dsnap/pkg/requestcontext"
)

// Service mints bearer tokens for authenticated staff.
type Service interface {
	IssueToken(ctx context.Context, actor id.Actor, scopes []string) (*service.Token, error)
}

type Handler struct {
	staff  Service
	logger *slog.Logger
}

func New(staff Service, logger *slog.Logger) *Handler {
	return &Handler{staff: staff, logger: logger}
}

// Register mounts the token endpoint. The parent router must run the
// authentication middleware so Basic credentials are already verified.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/token", h.HandleToken)
}

type tokenRequest struct {
	Scope []string `json:"scope" validate:"omitempty,dive,staffscope"`
}

func (r *tokenRequest) Normalize() {
	r.Scope = platformstrings.DedupeAndTrim(r.Scope)
}

func (r *tokenRequest) Validate() error {
	if err := validation.CheckSliceCount("scopes", len(r.Scope), validation.MaxScopes); err != nil {
		return err
	}
	if err := validation.CheckEachStringLength("scope", r.Scope, validation.MaxScopeLength); err != nil {
		return err
	}
	return validation.Validate(r)
}

type tokenResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresIn   int      `json:"expires_in"`
	Scope       []string `json:"scope"`
}

// HandleToken implements POST /auth/token.
//
// Input: Basic credentials, optional body { "scope": ["registrations:read"] }
// Output: { "access_token": "...", "token_type": "Bearer", "expires_in": 900, "scope": [...] }
func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor := requestcontext.Actor(ctx)
	if _, _, ok := r.BasicAuth(); !ok || !actor.IsAuthenticated() {
		w.Header().Set("WWW-Authenticate", `Basic realm="`+auth.Realm+`"`)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "basic staff credentials required"))
		return
	}

	// An empty body asks for every scope the caller holds.
	req, err := httputil.Decode[tokenRequest](r.Body, true)
	if err == nil {
		err = httputil.PrepareRequest(req)
	}
	if err != nil {
		h.logger.WarnContext(ctx, "invalid token request",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	token, err := h.staff.IssueToken(ctx, actor, req.Scope)
	if err != nil {
		h.logger.WarnContext(ctx, "token request rejected",
			"error", err,
			"staff_id", actor.StaffID,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(token.ExpiresIn.Seconds()),
		Scope:       token.Scopes,
	})
}
