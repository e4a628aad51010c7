package handler

import (
	"context"
	"net/http"
	"time"

	"dsnap/internal/registration/models"
	id "dsnap/pkg/domain"
	"dsnap/pkg/platform/httputil"
	"dsnap/pkg/requestcontext"
)

// RecordResponse is the wire form of a registration. Staff references carry
// the staff username rather than the ID.
type RecordResponse struct {
	ID                   id.RegistrationID `json:"id"`
	OriginalData         models.Document   `json:"original_data"`
	LatestData           models.Document   `json:"latest_data"`
	CreatedAt            time.Time         `json:"created_at"`
	ModifiedAt           time.Time         `json:"modified_at"`
	ModifiedBy           *string           `json:"modified_by"`
	RulesServiceApproved *bool             `json:"rules_service_approved"`
	UserApproved         *bool             `json:"user_approved"`
	ApprovedBy           *string           `json:"approved_by"`
	ApprovedAt           *time.Time        `json:"approved_at"`
}

func toResponse(record *models.Record, labels map[id.StaffID]string) RecordResponse {
	return RecordResponse{
		ID:                   record.ID,
		OriginalData:         record.OriginalData,
		LatestData:           record.LatestData,
		CreatedAt:            record.CreatedAt,
		ModifiedAt:           record.ModifiedAt,
		ModifiedBy:           label(record.ModifiedBy, labels),
		RulesServiceApproved: record.RulesServiceApproved,
		UserApproved:         record.UserApproved,
		ApprovedBy:           label(record.ApprovedBy, labels),
		ApprovedAt:           record.ApprovedAt,
	}
}

func label(staffID *id.StaffID, labels map[id.StaffID]string) *string {
	if staffID == nil {
		return nil
	}
	if name, ok := labels[*staffID]; ok {
		return &name
	}
	raw := staffID.String()
	return &raw
}

func (h *Handler) writeRecord(ctx context.Context, w http.ResponseWriter, status int, record *models.Record) {
	httputil.WriteJSON(w, status, h.render(ctx, []*models.Record{record})[0])
}

// writeRecords always writes an array, [] when records is empty.
func (h *Handler) writeRecords(ctx context.Context, w http.ResponseWriter, status int, records []*models.Record) {
	httputil.WriteJSON(w, status, h.render(ctx, records))
}

// render resolves staff labels best effort; on lookup failure staff render as raw IDs.
func (h *Handler) render(ctx context.Context, records []*models.Record) []RecordResponse {
	var labels map[id.StaffID]string
	if h.labels != nil {
		var staffIDs []id.StaffID
		for _, record := range records {
			staffIDs = append(staffIDs, record.StaffIDs()...)
		}
		if len(staffIDs) > 0 {
			resolved, err := h.labels.Labels(ctx, staffIDs)
			if err != nil {
				h.logger.WarnContext(ctx, "failed to resolve staff labels",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
			} else {
				labels = resolved
			}
		}
	}
	body := make([]RecordResponse, 0, len(records))
	for _, record := range records {
		body = append(body, toResponse(record, labels))
	}
	return body
}
