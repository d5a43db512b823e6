package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hugh/taskboard/internal/database"
	"github.com/hugh/taskboard/internal/database/models"
	"github.com/hugh/taskboard/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserExists           = errors.New("user already exists")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInactiveUser         = errors.New("user is inactive")
	ErrOrganizationNotFound = errors.New("organization not found")
)

// DefaultVisibleStats are shown to users who never changed their dashboard.
var DefaultVisibleStats = []string{"Total", "High Priority"}

type Service struct {
	db  *gorm.DB
	jwt *JWTService
}

func NewService(db *gorm.DB, jwt *JWTService) *Service {
	return &Service{db: db, jwt: jwt}
}

type RegisterInput struct {
	Email            string
	Password         string
	FirstName        string
	LastName         string
	OrganizationID   *uint  // join an existing organization
	OrganizationName string // create a new organization
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, input RegisterInput) (*AuthResponse, error) {
	email := normalizeEmail(input.Email)

	// Deleted users keep their address reserved
	var count int64
	if err := s.db.WithContext(ctx).Unscoped().Model(&models.User{}).
		Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("checking email: %w", err)
	}
	if count > 0 {
		return nil, ErrUserExists
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org, err := s.resolveOrganization(tx, input)
		if err != nil {
			return err
		}

		// First member of an organization administers it
		var members int64
		if err := tx.Model(&models.User{}).Where("organization_id = ?", org.ID).Count(&members).Error; err != nil {
			return fmt.Errorf("counting members: %w", err)
		}
		roleName := domain.RoleUser
		if members == 0 {
			roleName = domain.RoleAdmin
		}
		role, err := database.RoleByName(tx, roleName)
		if err != nil {
			return err
		}

		user = models.User{
			Email:          email,
			PasswordHash:   hash,
			FirstName:      strings.TrimSpace(input.FirstName),
			LastName:       strings.TrimSpace(input.LastName),
			IsActive:       true,
			OrganizationID: org.ID,
			RoleID:         role.ID,
			Preferences:    datatypes.NewJSONType(models.Preferences{VisibleStats: DefaultVisibleStats}),
		}
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("creating user: %w", err)
		}

		user.Organization = org
		user.Role = role
		return nil
	})
	if err != nil {
		return nil, err
	}

	token, err := s.jwt.GenerateToken(user.ID, user.OrganizationID, user.Email, user.RoleName())
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		Token: token,
		User:  &user,
	}, nil
}

func (s *Service) resolveOrganization(tx *gorm.DB, input RegisterInput) (*models.Organization, error) {
	switch {
	case strings.TrimSpace(input.OrganizationName) != "":
		name := strings.TrimSpace(input.OrganizationName)
		slug, err := uniqueSlug(tx, name)
		if err != nil {
			return nil, err
		}
		org := models.Organization{Name: name, Slug: slug, IsActive: true}
		if err := tx.Create(&org).Error; err != nil {
			return nil, fmt.Errorf("creating organization: %w", err)
		}
		if err := database.SeedTodoStates(tx, org.ID); err != nil {
			return nil, err
		}
		return &org, nil

	case input.OrganizationID != nil:
		var org models.Organization
		if err := tx.Where("id = ? AND is_active = ?", *input.OrganizationID, true).First(&org).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrOrganizationNotFound
			}
			return nil, fmt.Errorf("loading organization: %w", err)
		}
		return &org, nil

	default:
		return database.EnsureDefaultOrganization(tx)
	}
}

func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Preload("Organization").
		Preload("Role").
		Where("email = ?", normalizeEmail(input.Email)).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !CheckPassword(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive || user.Organization == nil || !user.Organization.IsActive {
		return nil, ErrInactiveUser
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&user).UpdateColumn("last_login_at", now).Error; err != nil {
		return nil, fmt.Errorf("stamping login: %w", err)
	}
	user.LastLoginAt = &now

	token, err := s.jwt.GenerateToken(user.ID, user.OrganizationID, user.Email, user.RoleName())
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		Token: token,
		User:  &user,
	}, nil
}

func (s *Service) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Preload("Organization").
		Preload("Role").
		First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// SwitchRole changes the caller's own role and issues a token carrying it.
// Only reachable when dev testing is enabled.
func (s *Service) SwitchRole(ctx context.Context, userID uint, roleName string) (*AuthResponse, error) {
	if !domain.IsValidRole(roleName) {
		return nil, domain.Validation("invalid role %q", roleName)
	}

	role, err := database.RoleByName(s.db.WithContext(ctx), roleName)
	if err != nil {
		return nil, err
	}

	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(user).UpdateColumn("role_id", role.ID).Error; err != nil {
		return nil, fmt.Errorf("switching role: %w", err)
	}
	user.RoleID = role.ID
	user.Role = role

	token, err := s.jwt.GenerateToken(user.ID, user.OrganizationID, user.Email, role.Name)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: user}, nil
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

func generateSlug(name string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(name), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "org"
	}
	if len(slug) > 80 {
		slug = strings.TrimRight(slug[:80], "-")
	}
	return slug
}

func uniqueSlug(tx *gorm.DB, name string) (string, error) {
	slug := generateSlug(name)
	var count int64
	if err := tx.Unscoped().Model(&models.Organization{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return "", fmt.Errorf("checking slug: %w", err)
	}
	if count == 0 {
		return slug, nil
	}
	// Add timestamp to ensure uniqueness
	return slug + "-" + time.Now().Format("060102150405"), nil
}
