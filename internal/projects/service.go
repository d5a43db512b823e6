// Package projects groups tasks under named projects within an organization.
package projects

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hugh/taskboard/internal/database/models"
	"github.com/hugh/taskboard/internal/domain"
	"gorm.io/gorm"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type ProjectView struct {
	ID               uint      `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	OrganizationID   uint      `json:"organizationId"`
	OrganizationName string    `json:"organizationName"`
	CreatedByID      uint      `json:"createdById"`
	CreatedByName    string    `json:"createdByName"`
	UpdatedByID      *uint     `json:"updatedById"`
	UpdatedByName    string    `json:"updatedByName,omitempty"`
	TaskCount        int64     `json:"taskCount"`
	ActiveTaskCount  int64     `json:"activeTaskCount"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type CreateInput struct {
	Name        string
	Description string
}

type UpdateInput struct {
	Name        *string
	Description *string
}

type counts struct {
	total  map[uint]int64
	active map[uint]int64
}

func toView(p models.Project, c counts) ProjectView {
	v := ProjectView{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		OrganizationID:  p.OrganizationID,
		CreatedByID:     p.CreatedByID,
		UpdatedByID:     p.UpdatedByID,
		TaskCount:       c.total[p.ID],
		ActiveTaskCount: c.active[p.ID],
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	if p.Organization != nil {
		v.OrganizationName = p.Organization.Name
	}
	if p.CreatedBy != nil {
		v.CreatedByName = p.CreatedBy.FullName()
	}
	if p.UpdatedBy != nil {
		v.UpdatedByName = p.UpdatedBy.FullName()
	}
	return v
}

func withRefs(db *gorm.DB) *gorm.DB {
	unscoped := func(db *gorm.DB) *gorm.DB { return db.Unscoped() }
	return db.
		Preload("Organization", unscoped).
		Preload("CreatedBy", unscoped).
		Preload("UpdatedBy", unscoped)
}

func requireWriter(id domain.Identity) error {
	if err := id.Require(); err != nil {
		return err
	}
	if !id.CanWrite() {
		return domain.Forbidden("viewers cannot modify projects")
	}
	return nil
}

// taskCounts counts live tasks per project, optionally limited to projectID.
func (s *Service) taskCounts(db *gorm.DB, orgID, projectID uint) (counts, error) {
	c := counts{total: map[uint]int64{}, active: map[uint]int64{}}

	type row struct {
		ProjectID uint
		Count     int64
	}
	base := func() *gorm.DB {
		q := db.Model(&models.Task{}).
			Select("project_id, COUNT(*) AS count").
			Where("organization_id = ? AND project_id IS NOT NULL", orgID).
			Group("project_id")
		if projectID != 0 {
			q = q.Where("project_id = ?", projectID)
		}
		return q
	}

	var all []row
	if err := base().Scan(&all).Error; err != nil {
		return c, fmt.Errorf("counting project tasks: %w", err)
	}
	for _, r := range all {
		c.total[r.ProjectID] = r.Count
	}

	terminal := db.Model(&models.TodoState{}).
		Select("id").
		Where("organization_id = ? AND is_terminal = ?", orgID, true)
	var open []row
	if err := base().Where("todo_state_id NOT IN (?)", terminal).Scan(&open).Error; err != nil {
		return c, fmt.Errorf("counting active project tasks: %w", err)
	}
	for _, r := range open {
		c.active[r.ProjectID] = r.Count
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, id domain.Identity) ([]ProjectView, error) {
	if id.OrganizationID == 0 {
		return nil, domain.ErrUnauthenticated
	}

	db := s.db.WithContext(ctx)
	var projects []models.Project
	if err := withRefs(db).
		Where("organization_id = ?", id.OrganizationID).
		Order("name ASC").Order("id ASC").
		Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	c, err := s.taskCounts(db, id.OrganizationID, 0)
	if err != nil {
		return nil, err
	}

	views := make([]ProjectView, len(projects))
	for i, p := range projects {
		views[i] = toView(p, c)
	}
	return views, nil
}

func (s *Service) Get(ctx context.Context, id domain.Identity, projectID uint) (*ProjectView, error) {
	if id.OrganizationID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	return s.view(s.db.WithContext(ctx), id.OrganizationID, projectID)
}

func (s *Service) view(db *gorm.DB, orgID, projectID uint) (*ProjectView, error) {
	var project models.Project
	if err := withRefs(db).
		Where("id = ? AND organization_id = ?", projectID, orgID).
		First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("project %d not found", projectID)
		}
		return nil, fmt.Errorf("loading project: %w", err)
	}

	c, err := s.taskCounts(db, orgID, projectID)
	if err != nil {
		return nil, err
	}
	v := toView(project, c)
	return &v, nil
}

func (s *Service) checkNameFree(db *gorm.DB, orgID uint, name string, exceptID uint) error {
	var count int64
	q := db.Model(&models.Project{}).
		Where("organization_id = ? AND LOWER(name) = ?", orgID, strings.ToLower(name))
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return fmt.Errorf("checking project name: %w", err)
	}
	if count > 0 {
		return domain.Conflict("a project named '%s' already exists", name)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, id domain.Identity, in CreateInput) (*ProjectView, error) {
	if err := requireWriter(id); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Validation("project name is required")
	}

	project := models.Project{
		OrganizationID: id.OrganizationID,
		Name:           name,
		Description:    strings.TrimSpace(in.Description),
		CreatedByID:    id.UserID,
	}

	db := s.db.WithContext(ctx)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := s.checkNameFree(tx, id.OrganizationID, name, 0); err != nil {
			return err
		}
		if err := tx.Omit("Organization", "CreatedBy", "UpdatedBy").Create(&project).Error; err != nil {
			return fmt.Errorf("creating project: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(db, id.OrganizationID, project.ID)
}

func (s *Service) Update(ctx context.Context, id domain.Identity, projectID uint, in UpdateInput) (*ProjectView, error) {
	if err := requireWriter(id); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	err := db.Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.Where("id = ? AND organization_id = ?", projectID, id.OrganizationID).First(&project).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFound("project %d not found", projectID)
			}
			return fmt.Errorf("loading project: %w", err)
		}

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return domain.Validation("project name cannot be empty")
			}
			if !strings.EqualFold(name, project.Name) {
				if err := s.checkNameFree(tx, id.OrganizationID, name, project.ID); err != nil {
					return err
				}
			}
			project.Name = name
		}
		if in.Description != nil {
			project.Description = strings.TrimSpace(*in.Description)
		}
		updatedBy := id.UserID
		project.UpdatedByID = &updatedBy

		if err := tx.Omit("Organization", "CreatedBy", "UpdatedBy").Save(&project).Error; err != nil {
			return fmt.Errorf("saving project: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(db, id.OrganizationID, projectID)
}

// Delete soft deletes a project with no live tasks.
func (s *Service) Delete(ctx context.Context, id domain.Identity, projectID uint) error {
	if err := requireWriter(id); err != nil {
		return err
	}

	db := s.db.WithContext(ctx)
	var project models.Project
	if err := db.Where("id = ? AND organization_id = ?", projectID, id.OrganizationID).First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NotFound("project %d not found", projectID)
		}
		return fmt.Errorf("loading project: %w", err)
	}

	var taskCount int64
	if err := db.Model(&models.Task{}).Where("project_id = ?", project.ID).Count(&taskCount).Error; err != nil {
		return fmt.Errorf("counting project tasks: %w", err)
	}
	if taskCount > 0 {
		return domain.Conflict("Cannot delete project that has tasks. Please move or delete the %d task(s) first.", taskCount)
	}

	if err := db.Model(&project).Updates(models.SoftDeleteUpdates(id.UserID, time.Now().UTC())).Error; err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	return nil
}
