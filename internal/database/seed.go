package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/hugh/taskboard/internal/database/models"
	"github.com/hugh/taskboard/internal/domain"
	"gorm.io/gorm"
)

var defaultRoles = []models.Role{
	{Name: domain.RoleAdmin, Description: "Full access to all features"},
	{Name: domain.RoleUser, Description: "Can create/read/update own tasks, read organization tasks"},
	{Name: domain.RoleViewer, Description: "Read-only access to tasks"},
}

// DefaultTodoStates returns the workflow every new organization starts with.
func DefaultTodoStates(orgID uint) []models.TodoState {
	return []models.TodoState{
		{OrganizationID: orgID, Name: "draft", DisplayName: "Draft", Order: 0, IsDefault: true, Color: "#6B7280"},
		{OrganizationID: orgID, Name: "active", DisplayName: "Active", Order: 1, Color: "#3B82F6"},
		{OrganizationID: orgID, Name: "in-progress", DisplayName: "In Progress", Order: 2, Color: "#F59E0B"},
		{OrganizationID: orgID, Name: "done", DisplayName: "Done", Order: 3, IsTerminal: true, Color: "#10B981"},
	}
}

// Seed creates the roles and the default organization with its workflow.
// Running it again is a no-op.
func Seed(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := SeedRoles(tx); err != nil {
			return err
		}
		_, err := EnsureDefaultOrganization(tx)
		return err
	})
}

func SeedRoles(tx *gorm.DB) error {
	for _, role := range defaultRoles {
		r := role
		if err := tx.Where(models.Role{Name: r.Name}).FirstOrCreate(&r).Error; err != nil {
			return fmt.Errorf("seeding role %s: %w", r.Name, err)
		}
	}
	return nil
}

// EnsureDefaultOrganization returns the organization with the default slug,
// creating and seeding it when missing.
func EnsureDefaultOrganization(tx *gorm.DB) (*models.Organization, error) {
	var org models.Organization
	err := tx.Where("slug = ?", models.DefaultOrganizationSlug).First(&org).Error
	if err == nil {
		return &org, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("loading default organization: %w", err)
	}

	org = models.Organization{
		Name:     "Default Organization",
		Slug:     models.DefaultOrganizationSlug,
		IsActive: true,
	}
	if err := tx.Create(&org).Error; err != nil {
		return nil, fmt.Errorf("creating default organization: %w", err)
	}
	if err := SeedTodoStates(tx, org.ID); err != nil {
		return nil, err
	}
	return &org, nil
}

// SeedTodoStates adds the default workflow to an organization that has no
// states yet.
func SeedTodoStates(tx *gorm.DB, orgID uint) error {
	var count int64
	if err := tx.Model(&models.TodoState{}).Where("organization_id = ?", orgID).Count(&count).Error; err != nil {
		return fmt.Errorf("counting todo states: %w", err)
	}
	if count > 0 {
		return nil
	}
	states := DefaultTodoStates(orgID)
	if err := tx.Create(&states).Error; err != nil {
		return fmt.Errorf("seeding todo states: %w", err)
	}
	return nil
}

// RoleByName loads a seeded role.
func RoleByName(tx *gorm.DB, name string) (*models.Role, error) {
	var role models.Role
	if err := tx.Where("name = ?", name).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.InvalidReference("role %q does not exist", name)
		}
		return nil, fmt.Errorf("loading role: %w", err)
	}
	return &role, nil
}
