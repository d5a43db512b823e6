package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hugh/taskboard/internal/api/validation"
	"github.com/hugh/taskboard/internal/auth"
	"github.com/hugh/taskboard/internal/database"
	"github.com/hugh/taskboard/internal/database/models"
	"github.com/hugh/taskboard/internal/domain"
	"github.com/spf13/cobra"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type adminInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=6,max=100"`
	FirstName string `json:"first" validate:"required,max=100"`
	LastName  string `json:"last" validate:"required,max=100"`
	OrgSlug   string `json:"org" validate:"omitempty,slug"`
}

var admin adminInput

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator account",
	Long: `create-admin adds an Admin to an existing organization, or to the
default organization when --org is omitted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, _, err := connect()
		if err != nil {
			return err
		}
		defer database.Close(db)

		user, err := createAdmin(cmd.Context(), db, admin)
		if err != nil {
			return err
		}
		cmd.Printf("created admin %s (id %d) in organization %d\n", user.Email, user.ID, user.OrganizationID)
		return nil
	},
}

func (in *adminInput) normalize() {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.OrgSlug = strings.TrimSpace(in.OrgSlug)
}

func init() {
	createAdminCmd.Flags().StringVar(&admin.Email, "email", "", "Email address")
	createAdminCmd.Flags().StringVar(&admin.Password, "password", "", "Password (at least 6 characters)")
	createAdminCmd.Flags().StringVar(&admin.FirstName, "first", "", "First name")
	createAdminCmd.Flags().StringVar(&admin.LastName, "last", "", "Last name")
	createAdminCmd.Flags().StringVar(&admin.OrgSlug, "org", "", "Organization slug (defaults to the default organization)")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")
}

func createAdmin(ctx context.Context, db *gorm.DB, in adminInput) (*models.User, error) {
	in.normalize()
	if details := validation.Struct(in); len(details) > 0 {
		var parts []string
		for field, msg := range details {
			parts = append(parts, field+" "+msg)
		}
		return nil, fmt.Errorf("invalid input: %s", strings.Join(parts, "; "))
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	var user models.User
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := database.SeedRoles(tx); err != nil {
			return err
		}

		org, err := adminOrganization(tx, in.OrgSlug)
		if err != nil {
			return err
		}

		var existing int64
		if err := tx.Unscoped().Model(&models.User{}).Where("email = ?", in.Email).Count(&existing).Error; err != nil {
			return fmt.Errorf("checking email: %w", err)
		}
		if existing > 0 {
			return auth.ErrUserExists
		}

		role, err := database.RoleByName(tx, domain.RoleAdmin)
		if err != nil {
			return err
		}

		user = models.User{
			Email:          in.Email,
			PasswordHash:   hash,
			FirstName:      in.FirstName,
			LastName:       in.LastName,
			IsActive:       true,
			OrganizationID: org.ID,
			RoleID:         role.ID,
			Preferences:    datatypes.NewJSONType(models.Preferences{VisibleStats: auth.DefaultVisibleStats}),
		}
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("creating user: %w", err)
		}
		user.Role = role
		user.Organization = org
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func adminOrganization(tx *gorm.DB, slug string) (*models.Organization, error) {
	if slug == "" {
		return database.EnsureDefaultOrganization(tx)
	}
	var org models.Organization
	if err := tx.Where("slug = ?", slug).First(&org).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("organization %q: %w", slug, auth.ErrOrganizationNotFound)
		}
		return nil, fmt.Errorf("loading organization: %w", err)
	}
	return &org, nil
}
