// Package todos implements task listing, mutation and statistics for an
// organization. Every operation takes the caller's identity explicitly.
package todos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hugh/taskboard/internal/database/models"
	"github.com/hugh/taskboard/internal/domain"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// TaskView is the transfer shape of a task with its references resolved.
type TaskView struct {
	ID                   uint            `json:"id"`
	Title                string          `json:"title"`
	Description          string          `json:"description"`
	IsCompleted          bool            `json:"isCompleted"`
	Priority             models.Priority `json:"priority"`
	DueDate              *time.Time      `json:"dueDate"`
	CompletedAt          *time.Time      `json:"completedAt"`
	Order                *int            `json:"order"`
	TodoStateID          uint            `json:"todoStateId"`
	TodoStateName        string          `json:"todoStateName"`
	TodoStateDisplayName string          `json:"todoStateDisplayName"`
	TodoStateColor       string          `json:"todoStateColor"`
	AssignedToID         *uint           `json:"assignedToId"`
	AssignedToName       string          `json:"assignedToName,omitempty"`
	AssignedToEmail      string          `json:"assignedToEmail,omitempty"`
	CreatedByID          uint            `json:"createdById"`
	CreatedByName        string          `json:"createdByName"`
	UpdatedByID          *uint           `json:"updatedById"`
	UpdatedByName        string          `json:"updatedByName,omitempty"`
	ProjectID            *uint           `json:"projectId"`
	ProjectName          string          `json:"projectName,omitempty"`
	ParentTaskID         *uint           `json:"parentTaskId"`
	ParentTaskTitle      string          `json:"parentTaskTitle,omitempty"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
	Subtasks             []TaskView      `json:"subtasks,omitempty"`
}

func toTaskView(t models.Task) TaskView {
	v := TaskView{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Priority:     t.Priority,
		DueDate:      t.DueDate,
		CompletedAt:  t.CompletedAt,
		Order:        t.Order,
		TodoStateID:  t.TodoStateID,
		AssignedToID: t.AssignedToID,
		CreatedByID:  t.CreatedByID,
		UpdatedByID:  t.UpdatedByID,
		ProjectID:    t.ProjectID,
		ParentTaskID: t.ParentTaskID,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
	if t.TodoState != nil {
		v.TodoStateName = t.TodoState.Name
		v.TodoStateDisplayName = t.TodoState.DisplayName
		v.TodoStateColor = t.TodoState.Color
		v.IsCompleted = t.TodoState.IsTerminal
	}
	if t.AssignedTo != nil {
		v.AssignedToName = t.AssignedTo.FullName()
		v.AssignedToEmail = t.AssignedTo.Email
	}
	if t.CreatedBy != nil {
		v.CreatedByName = t.CreatedBy.FullName()
	}
	if t.UpdatedBy != nil {
		v.UpdatedByName = t.UpdatedBy.FullName()
	}
	if t.Project != nil {
		v.ProjectName = t.Project.Name
	}
	if t.ParentTask != nil {
		v.ParentTaskTitle = t.ParentTask.Title
	}
	return v
}

func unscoped(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}

// withRefs preloads everything toTaskView reads. Referenced rows are loaded
// even when soft deleted so names keep resolving.
func withRefs(db *gorm.DB) *gorm.DB {
	return db.
		Preload("TodoState", unscoped).
		Preload("AssignedTo", unscoped).
		Preload("CreatedBy", unscoped).
		Preload("UpdatedBy", unscoped).
		Preload("Project", unscoped).
		Preload("ParentTask", unscoped)
}

// findTask loads a live task in the caller's organization.
func (s *Service) findTask(tx *gorm.DB, orgID, taskID uint) (*models.Task, error) {
	var task models.Task
	if err := tx.Where("id = ? AND organization_id = ?", taskID, orgID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("task %d not found", taskID)
		}
		return nil, fmt.Errorf("loading task: %w", err)
	}
	return &task, nil
}

// authorizeWrite allows Admins on any task and Users on tasks they created.
func authorizeWrite(id domain.Identity, task *models.Task) error {
	if id.IsAdmin() {
		return nil
	}
	if id.Role == domain.RoleUser && task.CreatedByID == id.UserID {
		return nil
	}
	return domain.Forbidden("you do not have permission to modify this task")
}

func (s *Service) loadState(tx *gorm.DB, orgID, stateID uint) (*models.TodoState, error) {
	var state models.TodoState
	if err := tx.Where("id = ? AND organization_id = ?", stateID, orgID).First(&state).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.InvalidReference("todo state %d does not exist in this organization", stateID)
		}
		return nil, fmt.Errorf("loading todo state: %w", err)
	}
	return &state, nil
}

func (s *Service) defaultState(tx *gorm.DB, orgID uint) (*models.TodoState, error) {
	var state models.TodoState
	if err := tx.Where("organization_id = ? AND is_default = ?", orgID, true).First(&state).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.InvalidReference("organization has no default state")
		}
		return nil, fmt.Errorf("loading default state: %w", err)
	}
	return &state, nil
}

func (s *Service) checkAssignee(tx *gorm.DB, orgID, userID uint) error {
	var count int64
	if err := tx.Model(&models.User{}).
		Where("id = ? AND organization_id = ? AND is_active = ?", userID, orgID, true).
		Count(&count).Error; err != nil {
		return fmt.Errorf("checking assignee: %w", err)
	}
	if count == 0 {
		return domain.InvalidReference("user %d cannot be assigned in this organization", userID)
	}
	return nil
}

func (s *Service) checkProject(tx *gorm.DB, orgID, projectID uint) error {
	var count int64
	if err := tx.Model(&models.Project{}).
		Where("id = ? AND organization_id = ?", projectID, orgID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("checking project: %w", err)
	}
	if count == 0 {
		return domain.InvalidReference("project %d does not exist in this organization", projectID)
	}
	return nil
}

func (s *Service) loadParent(tx *gorm.DB, orgID, parentID uint) (*models.Task, error) {
	var parent models.Task
	if err := tx.Where("id = ? AND organization_id = ?", parentID, orgID).First(&parent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.InvalidReference("parent task %d does not exist in this organization", parentID)
		}
		return nil, fmt.Errorf("loading parent task: %w", err)
	}
	return &parent, nil
}

func (s *Service) view(ctx context.Context, orgID, taskID uint) (*TaskView, error) {
	var task models.Task
	if err := withRefs(s.db.WithContext(ctx)).
		Where("id = ? AND organization_id = ?", taskID, orgID).
		First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("task %d not found", taskID)
		}
		return nil, fmt.Errorf("loading task: %w", err)
	}
	v := toTaskView(task)
	return &v, nil
}
