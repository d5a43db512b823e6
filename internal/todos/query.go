package todos

import (
	"context"
	"fmt"
	"strings"

	"github.com/hugh/taskboard/internal/database/models"
	"github.com/hugh/taskboard/internal/domain"
	"gorm.io/gorm"
)

// Sort keys accepted by List.
const (
	SortTitle    = "title"
	SortPriority = "priority"
	SortDueDate  = "duedate"
	SortCreated  = "created"
)

// ListQuery filters are ANDed together. Nil pointers mean "not filtered".
type ListQuery struct {
	Filter         string
	SortBy         string
	IsCompleted    *bool
	TodoStateID    *uint
	AssignedToID   *uint
	UnassignedOnly bool
	ProjectID      *uint
}

// List returns the organization's live top-level tasks.
func (s *Service) List(ctx context.Context, id domain.Identity, q ListQuery) ([]TaskView, error) {
	if id.OrganizationID == 0 {
		return nil, domain.ErrUnauthenticated
	}

	db := s.db.WithContext(ctx)
	query := withRefs(db.Model(&models.Task{})).
		Where("tasks.organization_id = ? AND tasks.parent_task_id IS NULL", id.OrganizationID)
	query = applyFilters(db, query, id.OrganizationID, q)
	query = applySort(query, q.SortBy)

	var tasks []models.Task
	if err := query.Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}

	views := make([]TaskView, len(tasks))
	for i, t := range tasks {
		views[i] = toTaskView(t)
	}
	return views, nil
}

// Get returns a single task with its live subtasks embedded.
func (s *Service) Get(ctx context.Context, id domain.Identity, taskID uint) (*TaskView, error) {
	if id.OrganizationID == 0 {
		return nil, domain.ErrUnauthenticated
	}

	v, err := s.view(ctx, id.OrganizationID, taskID)
	if err != nil {
		return nil, err
	}

	var subtasks []models.Task
	query := withRefs(s.db.WithContext(ctx).Model(&models.Task{})).
		Where("tasks.organization_id = ? AND tasks.parent_task_id = ?", id.OrganizationID, taskID)
	if err := applySort(query, "").Find(&subtasks).Error; err != nil {
		return nil, fmt.Errorf("loading subtasks: %w", err)
	}

	v.Subtasks = make([]TaskView, len(subtasks))
	for i, st := range subtasks {
		v.Subtasks[i] = toTaskView(st)
	}
	return v, nil
}

func applyFilters(db, query *gorm.DB, orgID uint, q ListQuery) *gorm.DB {
	// Unassigned wins over an explicit assignee
	if q.UnassignedOnly {
		query = query.Where("tasks.assigned_to_id IS NULL")
	} else if q.AssignedToID != nil {
		query = query.Where("tasks.assigned_to_id = ?", *q.AssignedToID)
	}

	// An explicit state wins over the completed flag
	if q.TodoStateID != nil {
		query = query.Where("tasks.todo_state_id = ?", *q.TodoStateID)
	} else if q.IsCompleted != nil {
		terminal := db.Model(&models.TodoState{}).
			Select("id").
			Where("organization_id = ? AND is_terminal = ?", orgID, true)
		if *q.IsCompleted {
			query = query.Where("tasks.todo_state_id IN (?)", terminal)
		} else {
			query = query.Where("tasks.todo_state_id NOT IN (?)", terminal)
		}
	}

	if q.ProjectID != nil {
		query = query.Where("tasks.project_id = ?", *q.ProjectID)
	}

	if f := strings.TrimSpace(q.Filter); f != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(f)) + "%"
		query = query.Where(`(LOWER(tasks.title) LIKE ? ESCAPE '\' OR LOWER(tasks.description) LIKE ? ESCAPE '\')`, like, like)
	}

	return query
}

// likeEscaper makes LIKE match user text literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// applySort orders by explicit position first, unpositioned tasks last, then
// by the requested key.
func applySort(query *gorm.DB, sortBy string) *gorm.DB {
	query = query.
		Order("CASE WHEN tasks.sort_order IS NULL THEN 1 ELSE 0 END").
		Order("tasks.sort_order ASC")

	switch strings.ToLower(sortBy) {
	case SortTitle:
		return query.Order("tasks.title ASC").Order("tasks.id ASC")
	case SortPriority:
		return query.Order("tasks.priority DESC").Order("tasks.created_at ASC").Order("tasks.id ASC")
	case SortDueDate:
		return query.
			Order("CASE WHEN tasks.due_date IS NULL THEN 1 ELSE 0 END").
			Order("tasks.due_date ASC").
			Order("tasks.id ASC")
	default:
		// created, and anything unrecognized
		return query.Order("tasks.created_at DESC").Order("tasks.id DESC")
	}
}
