// Package organizations exposes the caller's tenant and its settings.
package organizations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hugh/taskboard/internal/api/validation"
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

type OrganizationView struct {
	ID              uint      `json:"id"`
	Name            string    `json:"name"`
	Slug            string    `json:"slug"`
	IsActive        bool      `json:"isActive"`
	UserCount       int64     `json:"userCount"`
	TaskCount       int64     `json:"taskCount"`
	ActiveTaskCount int64     `json:"activeTaskCount"`
	TodoStateCount  int64     `json:"todoStateCount"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type UpdateInput struct {
	Name     string
	Slug     *string
	IsActive *bool
}

func (s *Service) Get(ctx context.Context, id domain.Identity) (*OrganizationView, error) {
	if id.OrganizationID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	return s.view(s.db.WithContext(ctx), id.OrganizationID)
}

func (s *Service) view(db *gorm.DB, orgID uint) (*OrganizationView, error) {
	var org models.Organization
	if err := db.First(&org, orgID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("organization %d not found", orgID)
		}
		return nil, fmt.Errorf("loading organization: %w", err)
	}

	v := &OrganizationView{
		ID:        org.ID,
		Name:      org.Name,
		Slug:      org.Slug,
		IsActive:  org.IsActive,
		CreatedAt: org.CreatedAt,
		UpdatedAt: org.UpdatedAt,
	}

	scoped := func(model interface{}) *gorm.DB {
		return db.Model(model).Where("organization_id = ?", orgID)
	}
	if err := scoped(&models.User{}).Count(&v.UserCount).Error; err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}
	if err := scoped(&models.Task{}).Count(&v.TaskCount).Error; err != nil {
		return nil, fmt.Errorf("counting tasks: %w", err)
	}
	terminal := db.Model(&models.TodoState{}).
		Select("id").
		Where("organization_id = ? AND is_terminal = ?", orgID, true)
	if err := scoped(&models.Task{}).Where("todo_state_id NOT IN (?)", terminal).Count(&v.ActiveTaskCount).Error; err != nil {
		return nil, fmt.Errorf("counting active tasks: %w", err)
	}
	if err := scoped(&models.TodoState{}).Count(&v.TodoStateCount).Error; err != nil {
		return nil, fmt.Errorf("counting todo states: %w", err)
	}
	return v, nil
}

// Update renames the organization and optionally changes its slug and status.
func (s *Service) Update(ctx context.Context, id domain.Identity, in UpdateInput) (*OrganizationView, error) {
	if err := id.Require(); err != nil {
		return nil, err
	}
	if !id.IsAdmin() {
		return nil, domain.Forbidden("only administrators can update the organization")
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Validation("organization name is required")
	}

	db := s.db.WithContext(ctx)
	err := db.Transaction(func(tx *gorm.DB) error {
		var org models.Organization
		if err := tx.First(&org, id.OrganizationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFound("organization %d not found", id.OrganizationID)
			}
			return fmt.Errorf("loading organization: %w", err)
		}

		org.Name = name
		if in.Slug != nil {
			slug := strings.ToLower(strings.TrimSpace(*in.Slug))
			if !validation.IsValidSlug(slug) {
				return domain.Validation("slug may only contain lowercase letters, digits and hyphens")
			}
			if slug != org.Slug {
				var taken int64
				// Deleted organizations keep their slug reserved
				if err := tx.Unscoped().Model(&models.Organization{}).
					Where("slug = ? AND id <> ?", slug, org.ID).
					Count(&taken).Error; err != nil {
					return fmt.Errorf("checking slug: %w", err)
				}
				if taken > 0 {
					return domain.Conflict("organization slug '%s' is already in use", slug)
				}
				org.Slug = slug
			}
		}
		if in.IsActive != nil {
			org.IsActive = *in.IsActive
		}

		if err := tx.Omit("Users", "TodoStates").Save(&org).Error; err != nil {
			return fmt.Errorf("saving organization: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(db, id.OrganizationID)
}
