package states

import (
	"testing"

	"github.com/hugh/taskboard/internal/database/models"
	"github.com/hugh/taskboard/internal/domain"
	"github.com/hugh/taskboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Service, *testutil.TestSetup, domain.Identity) {
	t.Helper()
	tc := testutil.NewTestContext(t)
	t.Cleanup(tc.Cleanup)
	return NewService(tc.DB), tc, testutil.Identity(tc.User)
}

func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }

func names(views []StateView) []string {
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = v.Name
	}
	return out
}

func TestList(t *testing.T) {
	svc, tc, admin := setup(t)
	ctx := testutil.TestContext(t)

	testutil.CreateTestTask(t, tc.DB, tc.User, "one", models.PriorityLow)
	testutil.CreateTestTask(t, tc.DB, tc.User, "two", models.PriorityLow)

	views, err := svc.List(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, []string{"draft", "active", "in-progress", "done"}, names(views))
	assert.Equal(t, int64(2), views[0].TaskCount)
	assert.True(t, views[0].IsDefault)
	assert.True(t, views[3].IsTerminal)

	t.Run("other organizations are invisible", func(t *testing.T) {
		other := testutil.CreateTestOrg(t, tc.DB)
		stranger := testutil.CreateTestUser(t, tc.DB, other, domain.RoleAdmin)
		_, err := svc.Get(ctx, testutil.Identity(stranger), views[0].ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestCreate(t *testing.T) {
	svc, tc, admin := setup(t)
	ctx := testutil.TestContext(t)

	t.Run("normalizes name and infers terminal flag", func(t *testing.T) {
		v, err := svc.Create(ctx, admin, CreateInput{Name: "  Review ", DisplayName: "Review", Order: 5})
		require.NoError(t, err)
		assert.Equal(t, "review", v.Name)
		assert.False(t, v.IsTerminal)
	})

	t.Run("duplicate name conflicts", func(t *testing.T) {
		_, err := svc.Create(ctx, admin, CreateInput{Name: "REVIEW", DisplayName: "Again"})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("explicit terminal flag wins", func(t *testing.T) {
		v, err := svc.Create(ctx, admin, CreateInput{Name: "shipped", DisplayName: "Shipped", IsTerminal: boolPtr(true)})
		require.NoError(t, err)
		assert.True(t, v.IsTerminal)
	})

	t.Run("new default replaces the old one", func(t *testing.T) {
		v, err := svc.Create(ctx, admin, CreateInput{Name: "backlog", DisplayName: "Backlog", IsDefault: true})
		require.NoError(t, err)
		assert.True(t, v.IsDefault)

		var defaults []models.TodoState
		require.NoError(t, tc.DB.Where("organization_id = ? AND is_default = ?", tc.Org.ID, true).Find(&defaults).Error)
		require.Len(t, defaults, 1)
		assert.Equal(t, v.ID, defaults[0].ID)
	})

	t.Run("missing names fail validation", func(t *testing.T) {
		_, err := svc.Create(ctx, admin, CreateInput{Name: " "})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("non admins are forbidden", func(t *testing.T) {
		member, _ := tc.AddUser(t, domain.RoleUser)
		_, err := svc.Create(ctx, testutil.Identity(member), CreateInput{Name: "x", DisplayName: "X"})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestUpdate(t *testing.T) {
	svc, tc, admin := setup(t)
	ctx := testutil.TestContext(t)

	active := testutil.StateByName(t, tc.DB, tc.Org.ID, "active")
	draft := testutil.StateByName(t, tc.DB, tc.Org.ID, "draft")

	t.Run("partial update keeps other fields", func(t *testing.T) {
		v, err := svc.Update(ctx, admin, active.ID, UpdateInput{Color: strPtr("#000000")})
		require.NoError(t, err)
		assert.Equal(t, "#000000", v.Color)
		assert.Equal(t, "Active", v.DisplayName)
	})

	t.Run("rename onto existing name conflicts", func(t *testing.T) {
		_, err := svc.Update(ctx, admin, active.ID, UpdateInput{Name: strPtr("Done")})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("becoming default moves the flag", func(t *testing.T) {
		v, err := svc.Update(ctx, admin, active.ID, UpdateInput{IsDefault: boolPtr(true)})
		require.NoError(t, err)
		assert.True(t, v.IsDefault)

		old, err := svc.Get(ctx, admin, draft.ID)
		require.NoError(t, err)
		assert.False(t, old.IsDefault)
	})

	t.Run("cannot unset the current default", func(t *testing.T) {
		_, err := svc.Update(ctx, admin, active.ID, UpdateInput{IsDefault: boolPtr(false)})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("terminal flag can change", func(t *testing.T) {
		v, err := svc.Update(ctx, admin, draft.ID, UpdateInput{IsTerminal: boolPtr(true)})
		require.NoError(t, err)
		assert.True(t, v.IsTerminal)
	})
}

func TestDelete(t *testing.T) {
	svc, tc, admin := setup(t)
	ctx := testutil.TestContext(t)

	draft := testutil.StateByName(t, tc.DB, tc.Org.ID, "draft")
	inProgress := testutil.StateByName(t, tc.DB, tc.Org.ID, "in-progress")
	task := testutil.CreateTestTask(t, tc.DB, tc.User, "busy", models.PriorityLow)
	require.NoError(t, tc.DB.Model(task).Update("todo_state_id", inProgress.ID).Error)

	t.Run("state in use conflicts", func(t *testing.T) {
		err := svc.Delete(ctx, admin, inProgress.ID)
		require.ErrorIs(t, err, domain.ErrConflict)
		assert.Contains(t, err.Error(), "Cannot delete todo state 'In Progress' because it is being used by 1 task(s).")
	})

	t.Run("default state conflicts", func(t *testing.T) {
		err := svc.Delete(ctx, admin, draft.ID)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("unused state is soft deleted", func(t *testing.T) {
		require.NoError(t, tc.DB.Model(task).Update("todo_state_id", draft.ID).Error)
		require.NoError(t, svc.Delete(ctx, admin, inProgress.ID))

		_, err := svc.Get(ctx, admin, inProgress.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		var raw models.TodoState
		require.NoError(t, tc.DB.Unscoped().First(&raw, inProgress.ID).Error)
		assert.True(t, raw.IsDeleted)
		require.NotNil(t, raw.DeletedByID)
		assert.Equal(t, tc.User.ID, *raw.DeletedByID)
	})
}

func TestReorder(t *testing.T) {
	svc, tc, admin := setup(t)
	ctx := testutil.TestContext(t)

	views, err := svc.List(ctx, admin)
	require.NoError(t, err)
	ids := []uint{views[3].ID, views[2].ID, views[1].ID, views[0].ID}

	require.NoError(t, svc.Reorder(ctx, admin, ids))
	views, err = svc.List(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, []string{"done", "in-progress", "active", "draft"}, names(views))

	t.Run("foreign id rejects the whole batch", func(t *testing.T) {
		other := testutil.CreateTestOrg(t, tc.DB)
		foreign := testutil.StateByName(t, tc.DB, other.ID, "draft")

		err := svc.Reorder(ctx, admin, []uint{views[3].ID, foreign.ID})
		assert.ErrorIs(t, err, domain.ErrInvalidReference)

		after, err := svc.List(ctx, admin)
		require.NoError(t, err)
		assert.Equal(t, names(views), names(after))
	})

	t.Run("duplicates fail validation", func(t *testing.T) {
		err := svc.Reorder(ctx, admin, []uint{ids[0], ids[0]})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}
