package handlers

import (
	"context"
	"net/http"

	"github.com/hugh/taskboard/internal/api/dto"
	"github.com/hugh/taskboard/internal/api/middleware"
	"github.com/hugh/taskboard/internal/jobs"
)

// ReminderEnqueuer is satisfied by *jobs.Enqueuer.
type ReminderEnqueuer interface {
	EnqueueDueReminderScan(ctx context.Context, payload jobs.DueReminderScanPayload) (string, error)
}

type ReminderHandler struct {
	enqueuer ReminderEnqueuer
}

// NewReminderHandler accepts a nil enqueuer when no queue is configured.
func NewReminderHandler(enqueuer ReminderEnqueuer) *ReminderHandler {
	return &ReminderHandler{enqueuer: enqueuer}
}

// Run queues a due-reminder scan for the caller's organization.
func (h *ReminderHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer == nil {
		writeJSON(w, http.StatusServiceUnavailable, dto.ErrorResponse{Error: "Background jobs are not configured"})
		return
	}

	id := middleware.Identity(r.Context())
	taskID, err := h.enqueuer.EnqueueDueReminderScan(r.Context(), jobs.DueReminderScanPayload{
		OrganizationID: id.OrganizationID,
		RequestedBy:    id.UserID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, dto.ReminderRunResponse{TaskID: taskID})
}
