package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/taskboard/internal/database/models"
	"gorm.io/gorm"
)

type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
	window time.Duration
	now    func() time.Time
}

func NewHandler(db *gorm.DB, logger *slog.Logger, window time.Duration) *Handler {
	return &Handler{
		db:     db,
		logger: logger,
		window: window,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeDueReminderScan, h.HandleDueReminderScan)
}

// ScanResult summarizes one reminder pass.
type ScanResult struct {
	Tasks     int
	Assignees int
}

func (h *Handler) HandleDueReminderScan(ctx context.Context, t *asynq.Task) error {
	var payload DueReminderScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
	}

	h.logger.Info("starting due reminder scan",
		"org_id", payload.OrganizationID,
		"requested_by", payload.RequestedBy,
		"window", h.window.String(),
	)

	result, err := h.ScanDueTasks(ctx, payload.OrganizationID)
	if err != nil {
		h.logger.Error("due reminder scan failed", "error", err)
		return err
	}

	h.logger.Info("completed due reminder scan",
		"tasks", result.Tasks,
		"assignees", result.Assignees,
	)
	return nil
}

// ScanDueTasks finds open, assigned tasks due inside the reminder window that
// have not been reminded yet, logs one digest per assignee and stamps them.
func (h *Handler) ScanDueTasks(ctx context.Context, orgID uint) (ScanResult, error) {
	db := h.db.WithContext(ctx)
	now := h.now()
	horizon := now.Add(h.window)

	terminal := db.Unscoped().Model(&models.TodoState{}).
		Select("id").
		Where("is_terminal = ?", true)

	query := db.
		Preload("AssignedTo").
		Where("assigned_to_id IS NOT NULL AND due_reminder_sent_at IS NULL").
		Where("due_date IS NOT NULL AND due_date >= ? AND due_date <= ?", now, horizon).
		Where("todo_state_id NOT IN (?)", terminal).
		Order("due_date ASC").Order("id ASC")
	if orgID != 0 {
		query = query.Where("organization_id = ?", orgID)
	}

	var due []models.Task
	if err := query.Find(&due).Error; err != nil {
		return ScanResult{}, fmt.Errorf("loading due tasks: %w", err)
	}
	if len(due) == 0 {
		return ScanResult{}, nil
	}

	byAssignee := make(map[uint][]models.Task)
	var order []uint
	for _, task := range due {
		id := *task.AssignedToID
		if _, ok := byAssignee[id]; !ok {
			order = append(order, id)
		}
		byAssignee[id] = append(byAssignee[id], task)
	}

	ids := make([]uint, 0, len(due))
	for _, assigneeID := range order {
		tasks := byAssignee[assigneeID]
		titles := make([]string, len(tasks))
		for i, task := range tasks {
			titles[i] = task.Title
			ids = append(ids, task.ID)
		}

		attrs := []any{
			"assignee_id", assigneeID,
			"org_id", tasks[0].OrganizationID,
			"count", len(tasks),
			"first_due", tasks[0].DueDate.Format(time.RFC3339),
			"titles", titles,
		}
		if u := tasks[0].AssignedTo; u != nil {
			attrs = append(attrs, "email", u.Email)
		}
		h.logger.InfoContext(ctx, "tasks due soon", attrs...)
	}

	if err := db.Model(&models.Task{}).
		Where("id IN ?", ids).
		UpdateColumn("due_reminder_sent_at", now).Error; err != nil {
		return ScanResult{}, fmt.Errorf("stamping reminders: %w", err)
	}

	return ScanResult{Tasks: len(ids), Assignees: len(order)}, nil
}
