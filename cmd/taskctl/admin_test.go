package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/hugh/taskboard/internal/auth"
	"github.com/hugh/taskboard/internal/database/models"
	"github.com/hugh/taskboard/internal/domain"
	"github.com/hugh/taskboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Help(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"--help"})

	require.NoError(t, rootCmd.Execute())
	for _, name := range []string{"migrate", "seed", "create-admin", "remind"} {
		assert.Contains(t, buf.String(), name)
	}
}

func TestCreateAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	valid := adminInput{
		Email:     " Root@Example.com ",
		Password:  "secret1",
		FirstName: "Ada",
		LastName:  "Admin",
	}

	t.Run("default organization", func(t *testing.T) {
		user, err := createAdmin(ctx, db, valid)
		require.NoError(t, err)
		assert.Equal(t, "root@example.com", user.Email)
		assert.Equal(t, domain.RoleAdmin, user.RoleName())
		assert.Equal(t, models.DefaultOrganizationSlug, user.Organization.Slug)
		assert.True(t, auth.CheckPassword("secret1", user.PasswordHash))
		assert.Equal(t, auth.DefaultVisibleStats, user.Preferences.Data().VisibleStats)

		var states int64
		require.NoError(t, db.Model(&models.TodoState{}).Where("organization_id = ?", user.OrganizationID).Count(&states).Error)
		assert.Equal(t, int64(4), states)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := createAdmin(ctx, db, valid)
		assert.ErrorIs(t, err, auth.ErrUserExists)
	})

	t.Run("named organization", func(t *testing.T) {
		org := testutil.CreateTestOrg(t, db)
		in := valid
		in.Email = "second@example.com"
		in.OrgSlug = org.Slug

		user, err := createAdmin(ctx, db, in)
		require.NoError(t, err)
		assert.Equal(t, org.ID, user.OrganizationID)
	})

	t.Run("unknown organization", func(t *testing.T) {
		in := valid
		in.Email = "third@example.com"
		in.OrgSlug = "nowhere"

		_, err := createAdmin(ctx, db, in)
		assert.ErrorIs(t, err, auth.ErrOrganizationNotFound)
	})

	t.Run("padded fields are trimmed before validation", func(t *testing.T) {
		in := adminInput{
			Email:     "\tPadded@Example.COM  ",
			Password:  "secret1",
			FirstName: "  Grace ",
			LastName:  " Hopper",
		}

		user, err := createAdmin(ctx, db, in)
		require.NoError(t, err)
		assert.Equal(t, "padded@example.com", user.Email)
		assert.Equal(t, "Grace", user.FirstName)
		assert.Equal(t, "Hopper", user.LastName)

		in.Email = "PADDED@example.com"
		_, err = createAdmin(ctx, db, in)
		assert.ErrorIs(t, err, auth.ErrUserExists)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := createAdmin(ctx, db, adminInput{Email: "nope", Password: "123"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "email")
		assert.Contains(t, err.Error(), "password")
	})
}
