// Package users covers user management, preferences and the profile of the
// signed-in user.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hugh/taskboard/internal/auth"
	"github.com/hugh/taskboard/internal/database"
	"github.com/hugh/taskboard/internal/database/models"
	"github.com/hugh/taskboard/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type UserView struct {
	ID               uint       `json:"id"`
	Email            string     `json:"email"`
	FirstName        string     `json:"firstName"`
	LastName         string     `json:"lastName"`
	FullName         string     `json:"fullName"`
	IsActive         bool       `json:"isActive"`
	Role             string     `json:"role"`
	OrganizationID   uint       `json:"organizationId"`
	OrganizationName string     `json:"organizationName"`
	LastLoginAt      *time.Time `json:"lastLoginAt"`
	TaskCount        int64      `json:"taskCount"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

type AssigneeView struct {
	ID        uint   `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

type UpdateInput struct {
	FirstName *string
	LastName  *string
	Role      *string
	IsActive  *bool
}

func toView(u models.User, taskCount int64) UserView {
	v := UserView{
		ID:             u.ID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		FullName:       u.FullName(),
		IsActive:       u.IsActive,
		Role:           u.RoleName(),
		OrganizationID: u.OrganizationID,
		LastLoginAt:    u.LastLoginAt,
		TaskCount:      taskCount,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
	if u.Organization != nil {
		v.OrganizationName = u.Organization.Name
	}
	return v
}

func withRefs(db *gorm.DB) *gorm.DB {
	return db.Preload("Role").Preload("Organization")
}

func requireAdmin(id domain.Identity) error {
	if err := id.Require(); err != nil {
		return err
	}
	if !id.IsAdmin() {
		return domain.Forbidden("only administrators can manage users")
	}
	return nil
}

// createdCounts maps user id to the number of live tasks that user created.
func (s *Service) createdCounts(db *gorm.DB, orgID uint) (map[uint]int64, error) {
	var rows []struct {
		CreatedByID uint
		Count       int64
	}
	if err := db.Model(&models.Task{}).
		Select("created_by_id, COUNT(*) AS count").
		Where("organization_id = ?", orgID).
		Group("created_by_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("counting tasks per user: %w", err)
	}
	out := make(map[uint]int64, len(rows))
	for _, r := range rows {
		out[r.CreatedByID] = r.Count
	}
	return out, nil
}

func (s *Service) List(ctx context.Context, id domain.Identity) ([]UserView, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var users []models.User
	if err := withRefs(db).
		Where("organization_id = ?", id.OrganizationID).
		Order("last_name ASC").Order("first_name ASC").Order("id ASC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	counts, err := s.createdCounts(db, id.OrganizationID)
	if err != nil {
		return nil, err
	}
	views := make([]UserView, len(users))
	for i, u := range users {
		views[i] = toView(u, counts[u.ID])
	}
	return views, nil
}

func (s *Service) find(db *gorm.DB, orgID, userID uint) (*models.User, error) {
	var user models.User
	if err := withRefs(db).
		Where("id = ? AND organization_id = ?", userID, orgID).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("user %d not found", userID)
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return &user, nil
}

func (s *Service) view(db *gorm.DB, orgID, userID uint) (*UserView, error) {
	user, err := s.find(db, orgID, userID)
	if err != nil {
		return nil, err
	}
	var count int64
	if err := db.Model(&models.Task{}).Where("created_by_id = ?", user.ID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("counting tasks: %w", err)
	}
	v := toView(*user, count)
	return &v, nil
}

func (s *Service) Get(ctx context.Context, id domain.Identity, userID uint) (*UserView, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	return s.view(s.db.WithContext(ctx), id.OrganizationID, userID)
}

func (s *Service) Update(ctx context.Context, id domain.Identity, userID uint, in UpdateInput) (*UserView, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	err := db.Transaction(func(tx *gorm.DB) error {
		user, err := s.find(tx, id.OrganizationID, userID)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{"updated_at": time.Now().UTC()}
		if in.FirstName != nil {
			updates["first_name"] = strings.TrimSpace(*in.FirstName)
		}
		if in.LastName != nil {
			updates["last_name"] = strings.TrimSpace(*in.LastName)
		}
		if in.IsActive != nil {
			updates["is_active"] = *in.IsActive
		}
		if in.Role != nil {
			role, err := database.RoleByName(tx, *in.Role)
			if err != nil {
				return err
			}
			updates["role_id"] = role.ID
		}

		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("updating user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(db, id.OrganizationID, userID)
}

// Delete soft deletes a member of the organization. Admins cannot delete
// their own account.
func (s *Service) Delete(ctx context.Context, id domain.Identity, userID uint) error {
	if err := requireAdmin(id); err != nil {
		return err
	}
	if userID == id.UserID {
		return domain.Validation("you cannot delete your own account")
	}

	db := s.db.WithContext(ctx)
	user, err := s.find(db, id.OrganizationID, userID)
	if err != nil {
		return err
	}
	if err := db.Model(&models.User{}).Where("id = ?", user.ID).
		Updates(models.SoftDeleteUpdates(id.UserID, time.Now().UTC())).Error; err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}

// ForAssignment lists the users a task can be assigned to.
func (s *Service) ForAssignment(ctx context.Context, id domain.Identity) ([]AssigneeView, error) {
	if id.OrganizationID == 0 {
		return nil, domain.ErrUnauthenticated
	}

	var users []models.User
	if err := s.db.WithContext(ctx).
		Where("organization_id = ? AND is_active = ?", id.OrganizationID, true).
		Order("last_name ASC").Order("first_name ASC").Order("id ASC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("listing assignable users: %w", err)
	}

	out := make([]AssigneeView, len(users))
	for i, u := range users {
		out[i] = AssigneeView{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
	}
	return out, nil
}

type MeView struct {
	UserView
	OrganizationSlug string             `json:"organizationSlug"`
	Preferences      models.Preferences `json:"preferences"`
}

func (s *Service) Me(ctx context.Context, id domain.Identity) (*MeView, error) {
	if err := id.Require(); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	user, err := s.find(db, id.OrganizationID, id.UserID)
	if err != nil {
		return nil, err
	}
	var count int64
	if err := db.Model(&models.Task{}).Where("created_by_id = ?", user.ID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("counting tasks: %w", err)
	}

	me := &MeView{UserView: toView(*user, count), Preferences: withDefaults(user.Preferences.Data())}
	if user.Organization != nil {
		me.OrganizationSlug = user.Organization.Slug
	}
	return me, nil
}

func withDefaults(p models.Preferences) models.Preferences {
	if len(p.VisibleStats) == 0 {
		p.VisibleStats = append([]string(nil), auth.DefaultVisibleStats...)
	}
	if p.OtherPreferences == nil {
		p.OtherPreferences = map[string]interface{}{}
	}
	return p
}

// PreferencesInput leaves nil fields untouched. OtherPreferences keys are
// merged into the stored map.
type PreferencesInput struct {
	VisibleStats     []string
	Theme            *string
	Language         *string
	OtherPreferences map[string]interface{}
}

func (s *Service) GetPreferences(ctx context.Context, id domain.Identity) (*models.Preferences, error) {
	if err := id.Require(); err != nil {
		return nil, err
	}
	user, err := s.find(s.db.WithContext(ctx), id.OrganizationID, id.UserID)
	if err != nil {
		return nil, err
	}
	p := withDefaults(user.Preferences.Data())
	return &p, nil
}

func (s *Service) UpdatePreferences(ctx context.Context, id domain.Identity, in PreferencesInput) (*models.Preferences, error) {
	if err := id.Require(); err != nil {
		return nil, err
	}

	var result models.Preferences
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.find(tx, id.OrganizationID, id.UserID)
		if err != nil {
			return err
		}

		p := withDefaults(user.Preferences.Data())
		if in.VisibleStats != nil {
			p.VisibleStats = in.VisibleStats
		}
		if in.Theme != nil {
			p.Theme = *in.Theme
		}
		if in.Language != nil {
			p.Language = *in.Language
		}
		for k, v := range in.OtherPreferences {
			p.OtherPreferences[k] = v
		}

		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).
			Update("preferences", datatypes.NewJSONType(p)).Error; err != nil {
			return fmt.Errorf("saving preferences: %w", err)
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
