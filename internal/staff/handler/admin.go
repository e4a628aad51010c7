package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"dsnap/internal/staff/models"
	id "dsnap/pkg/domain"
	dErrors "dsnap/pkg/domain-errors"
	"dsnap/pkg/platform/httputil"
	"dsnap/pkg/platform/middleware/admin"
	"dsnap/pkg/platform/validation"
	"dsnap/pkg/requestcontext"
)

// AdminService manages staff accounts on behalf of operators.
type AdminService interface {
	Create(ctx context.Context, username, password string) (*models.Staff, error)
	Deactivate(ctx context.Context, staffID id.StaffID) error
}

// AdminHandler serves the operator staff endpoints behind the admin token.
type AdminHandler struct {
	staff  AdminService
	logger *slog.Logger
}

func NewAdmin(staff AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{staff: staff, logger: logger}
}

// Register mounts /admin/staff routes; the caller applies admin.RequireAdminToken.
func (h *AdminHandler) Register(r chi.Router) {
	r.Post("/admin/staff", h.HandleCreate)
	r.Post("/admin/staff/{id}/deactivate", h.HandleDeactivate)
}

type createStaffRequest struct {
	Username string `json:"username" validate:"required,notblank"`
	Password string `json:"password" validate:"required"`
}

func (r *createStaffRequest) Validate() error {
	if err := validation.CheckStringLength("username", r.Username, validation.MaxUsernameLength); err != nil {
		return err
	}
	return validation.Validate(r)
}

type staffResponse struct {
	ID        id.StaffID `json:"id"`
	Username  string     `json:"username"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
}

// HandleCreate implements POST /admin/staff.
//
// Input: { "username": "intake.clerk", "password": "..." }
// Output: { "id": "...", "username": "intake.clerk", "active": true, "created_at": "..." }
func (h *AdminHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[createStaffRequest](w, r, h.logger)
	if !ok {
		return
	}
	staff, err := h.staff.Create(ctx, req.Username, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to create staff",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "staff created by operator",
		"staff_id", staff.ID,
		"operator", admin.Operator(ctx),
		"request_id", requestID,
	)
	httputil.WriteJSON(w, http.StatusCreated, staffResponse{
		ID:        staff.ID,
		Username:  staff.Username,
		Active:    staff.Active,
		CreatedAt: staff.CreatedAt,
	})
}

// HandleDeactivate implements POST /admin/staff/{id}/deactivate.
func (h *AdminHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	staffID, err := id.ParseStaffID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "staff not found"))
		return
	}
	if err := h.staff.Deactivate(ctx, staffID); err != nil {
		h.logger.WarnContext(ctx, "failed to deactivate staff",
			"error", err,
			"staff_id", staffID,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "staff deactivated by operator",
		"staff_id", staffID,
		"operator", admin.Operator(ctx),
		"request_id", requestID,
	)
	w.WriteHeader(http.StatusNoContent)
}
