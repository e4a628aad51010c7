// Package handler exposes registration operations over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/invopop/jsonschema"

	"dsnap/internal/policy"
	"dsnap/internal/registration/models"
	"dsnap/internal/registration/search"
	id "dsnap/pkg/domain"
	"dsnap/pkg/platform/httputil"
	"dsnap/pkg/requestcontext"
)

// Service runs registration operations; it authorizes the context actor itself.
// Authorize lets handlers reject a caller before reading the request body.
type Service interface {
	Authorize(ctx context.Context, op policy.Operation) error
	Schema(ctx context.Context) (*jsonschema.Schema, error)
	Create(ctx context.Context, submission models.Document) (*models.Record, error)
	Get(ctx context.Context, recordID id.RegistrationID) (*models.Record, error)
	Search(ctx context.Context, filter search.Filter) ([]*models.Record, error)
	Update(ctx context.Context, recordID id.RegistrationID, doc models.Document) (*models.Record, error)
	UpdateStatus(ctx context.Context, recordID id.RegistrationID, doc models.Document) (*models.Record, error)
	Delete(ctx context.Context, recordID id.RegistrationID) error
}

// StaffLabeler turns staff IDs into display names.
type StaffLabeler interface {
	Labels(ctx context.Context, ids []id.StaffID) (map[id.StaffID]string, error)
}

type Handler struct {
	registrations Service
	labels        StaffLabeler
	logger        *slog.Logger
}

// New builds the handler. labels may be nil, in which case staff render as raw IDs.
func New(registrations Service, labels StaffLabeler, logger *slog.Logger) *Handler {
	return &Handler{registrations: registrations, labels: labels, logger: logger}
}

// Register mounts the registration routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/registrations", func(r chi.Router) {
		r.Get("/", h.HandleSearch)
		r.Post("/", h.HandleCreate)
		r.Get("/schema", h.HandleSchema)
		r.Get("/{id}", h.HandleGet)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
		r.Put("/{id}/status", h.HandleUpdateStatus)
		r.Patch("/{id}/status", h.HandleUpdateStatus)
	})
}

// HandleSearch implements GET /registrations. Unknown query parameters are ignored.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	records, err := h.registrations.Search(ctx, search.Build(r.URL.Query()))
	if err != nil {
		h.fail(ctx, w, "failed to search registrations", err)
		return
	}
	h.writeRecords(ctx, w, http.StatusOK, records)
}

// HandleCreate implements POST /registrations with the raw applicant document as body.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	doc, err := models.DecodeDocument(r.Body)
	if err != nil {
		h.fail(ctx, w, "failed to decode registration", err)
		return
	}
	record, err := h.registrations.Create(ctx, doc)
	if err != nil {
		h.fail(ctx, w, "failed to create registration", err)
		return
	}
	h.writeRecord(ctx, w, http.StatusCreated, record)
}

// HandleSchema implements GET /registrations/schema.
func (h *Handler) HandleSchema(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	schema, err := h.registrations.Schema(ctx)
	if err != nil {
		h.fail(ctx, w, "failed to export schema", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, schema)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	record, err := h.registrations.Get(ctx, recordIDParam(r))
	if err != nil {
		h.fail(ctx, w, "failed to get registration", err)
		return
	}
	h.writeRecord(ctx, w, http.StatusOK, record)
}

// HandleUpdate implements PUT /registrations/{id}; the body replaces latest_data.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.registrations.Authorize(ctx, policy.OpUpdateRegistration); err != nil {
		h.fail(ctx, w, "registration update denied", err)
		return
	}
	doc, err := models.DecodeDocument(r.Body)
	if err != nil {
		h.fail(ctx, w, "failed to decode registration", err)
		return
	}
	record, err := h.registrations.Update(ctx, recordIDParam(r), doc)
	if err != nil {
		h.fail(ctx, w, "failed to update registration", err)
		return
	}
	h.writeRecord(ctx, w, http.StatusOK, record)
}

// HandleUpdateStatus implements PUT and PATCH /registrations/{id}/status. Both
// verbs require the full status payload.
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.registrations.Authorize(ctx, policy.OpUpdateStatus); err != nil {
		h.fail(ctx, w, "registration status change denied", err)
		return
	}
	doc, err := models.DecodeDocument(r.Body)
	if err != nil {
		h.fail(ctx, w, "failed to decode status", err)
		return
	}
	record, err := h.registrations.UpdateStatus(ctx, recordIDParam(r), doc)
	if err != nil {
		h.fail(ctx, w, "failed to update registration status", err)
		return
	}
	h.writeRecord(ctx, w, http.StatusOK, record)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.registrations.Delete(ctx, recordIDParam(r)); err != nil {
		h.fail(ctx, w, "failed to delete registration", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// recordIDParam parses the path ID. A malformed ID is treated as an ID that
// matches nothing, so callers see the same 404 as for an unknown record.
func recordIDParam(r *http.Request) id.RegistrationID {
	recordID, err := id.ParseRegistrationID(chi.URLParam(r, "id"))
	if err != nil {
		return id.RegistrationID{}
	}
	return recordID
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteError(w, err)
}
