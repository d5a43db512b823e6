package todos

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hugh/taskboard/internal/database/models"
	"github.com/hugh/taskboard/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CreateInput struct {
	Title        string
	Description  string
	Priority     models.Priority
	DueDate      *time.Time
	TodoStateID  *uint
	AssignedToID *uint
	ProjectID    *uint
	ParentTaskID *uint
}

// UpdateInput overwrites the scalar fields. The reference fields follow the
// omitted / null / value convention of domain.Optional.
type UpdateInput struct {
	Title        string
	Description  string
	Priority     models.Priority
	DueDate      *time.Time
	TodoStateID  *uint
	AssignedToID domain.Optional[uint]
	ProjectID    domain.Optional[uint]
	ParentTaskID domain.Optional[uint]
}

func validateScalars(title string, priority models.Priority) error {
	if strings.TrimSpace(title) == "" {
		return domain.Validation("title is required")
	}
	if !priority.Valid() {
		return domain.Validation("priority must be 0 (Low), 1 (Medium) or 2 (High)")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, id domain.Identity, in CreateInput) (*TaskView, error) {
	if err := id.Require(); err != nil {
		return nil, err
	}
	if !id.CanWrite() {
		return nil, domain.Forbidden("viewers cannot create tasks")
	}
	if err := validateScalars(in.Title, in.Priority); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	orgID := id.OrganizationID

	var (
		state *models.TodoState
		err   error
	)
	if in.TodoStateID != nil {
		state, err = s.loadState(db, orgID, *in.TodoStateID)
	} else {
		state, err = s.defaultState(db, orgID)
	}
	if err != nil {
		return nil, err
	}

	if in.AssignedToID != nil {
		if err := s.checkAssignee(db, orgID, *in.AssignedToID); err != nil {
			return nil, err
		}
	}
	if in.ProjectID != nil {
		if err := s.checkProject(db, orgID, *in.ProjectID); err != nil {
			return nil, err
		}
	}

	projectID := in.ProjectID
	if in.ParentTaskID != nil {
		parent, err := s.loadParent(db, orgID, *in.ParentTaskID)
		if err != nil {
			return nil, err
		}
		if projectID == nil && parent.ProjectID != nil {
			projectID = parent.ProjectID
		}
	}

	now := s.now()
	task := models.Task{
		OrganizationID: orgID,
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		Priority:       in.Priority,
		DueDate:        in.DueDate,
		TodoStateID:    state.ID,
		CreatedByID:    id.UserID,
		AssignedToID:   in.AssignedToID,
		ProjectID:      projectID,
		ParentTaskID:   in.ParentTaskID,
	}
	if state.IsTerminal {
		task.CompletedAt = &now
	}

	if err := db.Omit(clause.Associations).Create(&task).Error; err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	return s.view(ctx, orgID, task.ID)
}

func (s *Service) Update(ctx context.Context, id domain.Identity, taskID uint, in UpdateInput) (*TaskView, error) {
	if err := id.Require(); err != nil {
		return nil, err
	}
	if err := validateScalars(in.Title, in.Priority); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	orgID := id.OrganizationID

	task, err := s.findTask(db, orgID, taskID)
	if err != nil {
		return nil, err
	}
	if err := authorizeWrite(id, task); err != nil {
		return nil, err
	}

	now := s.now()

	if !sameTime(task.DueDate, in.DueDate) {
		task.DueReminderSentAt = nil
	}
	task.Title = strings.TrimSpace(in.Title)
	task.Description = in.Description
	task.Priority = in.Priority
	task.DueDate = in.DueDate

	if in.AssignedToID.Valid {
		if err := s.checkAssignee(db, orgID, in.AssignedToID.Value); err != nil {
			return nil, err
		}
	}
	if in.AssignedToID.Set {
		task.AssignedToID = in.AssignedToID.Ptr()
	}

	if in.ProjectID.Valid {
		if err := s.checkProject(db, orgID, in.ProjectID.Value); err != nil {
			return nil, err
		}
	}
	if in.ProjectID.Set {
		task.ProjectID = in.ProjectID.Ptr()
	}

	if in.ParentTaskID.Valid {
		if in.ParentTaskID.Value == task.ID {
			return nil, domain.Validation("a task cannot be its own parent")
		}
		if _, err := s.loadParent(db, orgID, in.ParentTaskID.Value); err != nil {
			return nil, err
		}
	}
	if in.ParentTaskID.Set {
		task.ParentTaskID = in.ParentTaskID.Ptr()
	}

	if in.TodoStateID != nil && *in.TodoStateID != task.TodoStateID {
		next, err := s.loadState(db, orgID, *in.TodoStateID)
		if err != nil {
			return nil, err
		}
		current, err := s.loadState(db.Unscoped(), orgID, task.TodoStateID)
		if err != nil {
			return nil, err
		}
		switch {
		case next.IsTerminal && !current.IsTerminal:
			task.CompletedAt = &now
			task.PreviousTodoStateID = &current.ID
		case !next.IsTerminal && current.IsTerminal:
			task.CompletedAt = nil
			task.PreviousTodoStateID = &current.ID
		}
		task.TodoStateID = next.ID
	}

	task.UpdatedByID = &id.UserID
	if err := s.save(db, task); err != nil {
		return nil, err
	}

	return s.view(ctx, orgID, task.ID)
}

// ToggleStatus moves a task into a terminal state, or back out of it to the
// state it was in before. Each direction records the state it leaves so a
// second toggle lands where the task started.
func (s *Service) ToggleStatus(ctx context.Context, id domain.Identity, taskID uint) (*TaskView, error) {
	if err := id.Require(); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	orgID := id.OrganizationID

	task, err := s.findTask(db, orgID, taskID)
	if err != nil {
		return nil, err
	}
	if err := authorizeWrite(id, task); err != nil {
		return nil, err
	}

	current, err := s.loadState(db.Unscoped(), orgID, task.TodoStateID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !current.IsTerminal {
		target, err := s.completeTarget(db, orgID, task.PreviousTodoStateID)
		if err != nil {
			return nil, err
		}
		task.PreviousTodoStateID = &current.ID
		task.TodoStateID = target.ID
		task.CompletedAt = &now
	} else {
		target, err := s.reopenTarget(db, orgID, task.PreviousTodoStateID)
		if err != nil {
			return nil, err
		}
		task.PreviousTodoStateID = &current.ID
		task.TodoStateID = target.ID
		task.CompletedAt = nil
	}

	task.UpdatedByID = &id.UserID
	if err := s.save(db, task); err != nil {
		return nil, err
	}

	return s.view(ctx, orgID, task.ID)
}

// completeTarget picks the terminal state the task was last completed into,
// falling back to the first terminal state by order.
func (s *Service) completeTarget(db *gorm.DB, orgID uint, previousID *uint) (*models.TodoState, error) {
	terminal := func() *gorm.DB {
		return db.Where("organization_id = ? AND is_terminal = ?", orgID, true)
	}

	var state models.TodoState
	if previousID != nil {
		err := terminal().Where("id = ?", *previousID).First(&state).Error
		if err == nil {
			return &state, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("loading terminal state: %w", err)
		}
	}

	err := terminal().Order("sort_order ASC").Order("id ASC").First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.Conflict("organization has no completed state to move the task into")
	}
	if err != nil {
		return nil, fmt.Errorf("loading terminal state: %w", err)
	}
	return &state, nil
}

// reopenTarget picks the state a completed task returns to: the state it came
// from, then "active", then the default, then the first open state.
func (s *Service) reopenTarget(db *gorm.DB, orgID uint, previousID *uint) (*models.TodoState, error) {
	open := func() *gorm.DB {
		return db.Where("organization_id = ? AND is_terminal = ?", orgID, false)
	}

	var state models.TodoState
	candidates := []func() *gorm.DB{
		func() *gorm.DB {
			if previousID == nil {
				return nil
			}
			return open().Where("id = ?", *previousID)
		},
		func() *gorm.DB { return open().Where("name = ?", "active") },
		func() *gorm.DB { return open().Where("is_default = ?", true) },
		func() *gorm.DB { return open().Order("sort_order ASC").Order("id ASC") },
	}

	for _, candidate := range candidates {
		q := candidate()
		if q == nil {
			continue
		}
		err := q.First(&state).Error
		if err == nil {
			return &state, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("loading reopen state: %w", err)
		}
	}
	return nil, domain.Conflict("organization has no open state to move the task into")
}

// Delete soft deletes a task. Subtasks are left alone.
func (s *Service) Delete(ctx context.Context, id domain.Identity, taskID uint) error {
	if err := id.Require(); err != nil {
		return err
	}

	db := s.db.WithContext(ctx)
	task, err := s.findTask(db, id.OrganizationID, taskID)
	if err != nil {
		return err
	}
	if err := authorizeWrite(id, task); err != nil {
		return err
	}

	if err := db.Model(task).Updates(models.SoftDeleteUpdates(id.UserID, s.now())).Error; err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return nil
}

// Reorder sets each task's position to its index in taskIDs. Either every
// task is reordered or none is.
func (s *Service) Reorder(ctx context.Context, id domain.Identity, taskIDs []uint) error {
	if err := id.Require(); err != nil {
		return err
	}
	if !id.CanWrite() {
		return domain.Forbidden("viewers cannot reorder tasks")
	}
	if err := checkDistinct(taskIDs); err != nil {
		return err
	}
	if len(taskIDs) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tasks []models.Task
		if err := tx.Where("organization_id = ? AND id IN ?", id.OrganizationID, taskIDs).
			Find(&tasks).Error; err != nil {
			return fmt.Errorf("loading tasks: %w", err)
		}
		if len(tasks) != len(taskIDs) {
			return domain.InvalidReference("one or more tasks do not exist in this organization")
		}
		if !id.IsAdmin() {
			for i := range tasks {
				if tasks[i].CreatedByID != id.UserID {
					return domain.Forbidden("you can only reorder tasks you created")
				}
			}
		}

		for pos, taskID := range taskIDs {
			if err := tx.Model(&models.Task{}).Where("id = ?", taskID).
				Update("sort_order", pos).Error; err != nil {
				return fmt.Errorf("reordering task %d: %w", taskID, err)
			}
		}
		return nil
	})
}

func (s *Service) save(db *gorm.DB, task *models.Task) error {
	if err := db.Omit(clause.Associations).Save(task).Error; err != nil {
		return fmt.Errorf("saving task: %w", err)
	}
	return nil
}

func checkDistinct(ids []uint) error {
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return domain.Validation("id %d appears more than once", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
