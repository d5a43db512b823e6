package dto

import (
	"time"

	"github.com/hugh/taskboard/internal/database/models"
	"github.com/hugh/taskboard/internal/domain"
)

// Priority defaults to Medium when omitted.
type CreateTaskRequest struct {
	Title        string           `json:"title" validate:"required,max=200"`
	Description  string           `json:"description" validate:"max=1000"`
	DueDate      *time.Time       `json:"dueDate"`
	Priority     *models.Priority `json:"priority" validate:"omitempty,min=0,max=2"`
	TodoStateID  *uint            `json:"todoStateId"`
	AssignedToID *uint            `json:"assignedToId"`
	ProjectID    *uint            `json:"projectId"`
	ParentTaskID *uint            `json:"parentTaskId"`
}

// UpdateTaskRequest distinguishes an omitted reference from an explicit null.
type UpdateTaskRequest struct {
	Title        string                `json:"title" validate:"required,max=200"`
	Description  string                `json:"description" validate:"max=1000"`
	DueDate      *time.Time            `json:"dueDate"`
	Priority     *models.Priority      `json:"priority" validate:"omitempty,min=0,max=2"`
	TodoStateID  *uint                 `json:"todoStateId"`
	AssignedToID domain.Optional[uint] `json:"assignedToId"`
	ProjectID    domain.Optional[uint] `json:"projectId"`
	ParentTaskID domain.Optional[uint] `json:"parentTaskId"`
}

type ReorderTasksRequest struct {
	TaskIDs []uint `json:"taskIds" validate:"required"`
}

type ReorderStatesRequest struct {
	StateIDs []uint `json:"stateIds" validate:"required"`
}

type ReminderRunResponse struct {
	TaskID string `json:"taskId"`
}
