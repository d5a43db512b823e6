package todos

import (
	"testing"
	"time"

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

func uintPtr(v uint) *uint { return &v }
func boolPtr(v bool) *bool { return &v }

func titles(views []TaskView) []string {
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = v.Title
	}
	return out
}

func TestList_ScopeAndVisibility(t *testing.T) {
	svc, tc, admin := setup(t)
	ctx := testutil.TestContext(t)

	top := testutil.CreateTestTask(t, tc.DB, tc.User, "top", models.PriorityLow)
	sub := testutil.CreateTestTask(t, tc.DB, tc.User, "sub", models.PriorityLow)
	require.NoError(t, tc.DB.Model(sub).Update("parent_task_id", top.ID).Error)
	gone := testutil.CreateTestTask(t, tc.DB, tc.User, "gone", models.PriorityLow)
	require.NoError(t, svc.Delete(ctx, admin, gone.ID))

	otherOrg := testutil.CreateTestOrg(t, tc.DB)
	stranger := testutil.CreateTestUser(t, tc.DB, otherOrg, domain.RoleAdmin)
	testutil.CreateTestTask(t, tc.DB, stranger, "foreign", models.PriorityLow)

	viewer, _ := tc.AddUser(t, domain.RoleViewer)
	for _, id := range []domain.Identity{admin, testutil.Identity(viewer)} {
		views, err := svc.List(ctx, id, ListQuery{})
		require.NoError(t, err)
		assert.Equal(t, []string{"top"}, titles(views))
	}

	t.Run("missing organization", func(t *testing.T) {
		_, err := svc.List(ctx, domain.Identity{UserID: tc.User.ID}, ListQuery{})
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})

	t.Run("get embeds subtasks", func(t *testing.T) {
		v, err := svc.Get(ctx, admin, top.ID)
		require.NoError(t, err)
		require.Len(t, v.Subtasks, 1)
		assert.Equal(t, "sub", v.Subtasks[0].Title)
		assert.Equal(t, "top", v.Subtasks[0].ParentTaskTitle)
	})

	t.Run("get across organizations is not found", func(t *testing.T) {
		_, err := svc.Get(ctx, testutil.Identity(stranger), top.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestList_Filters(t *testing.T) {
	svc, tc, admin := setup(t)
	ctx := testutil.TestContext(t)

	member, _ := tc.AddUser(t, domain.RoleUser)
	project := testutil.CreateTestProject(t, tc.DB, tc.User, "Launch")
	active := testutil.StateByName(t, tc.DB, tc.Org.ID, "active")

	assigned, err := svc.Create(ctx, admin, CreateInput{Title: "Write docs", Description: "README and GUIDE", AssignedToID: &member.ID})
	require.NoError(t, err)
	inProject, err := svc.Create(ctx, admin, CreateInput{Title: "Ship", ProjectID: &project.ID, TodoStateID: &active.ID})
	require.NoError(t, err)
	finished, err := svc.Create(ctx, admin, CreateInput{Title: "Kickoff"})
	require.NoError(t, err)
	_, err = svc.ToggleStatus(ctx, admin, finished.ID)
	require.NoError(t, err)

	tests := []struct {
		name string
		q    ListQuery
		want []string
	}{
		{"assignee", ListQuery{AssignedToID: &member.ID}, []string{assigned.Title}},
		{"unassigned overrides assignee", ListQuery{AssignedToID: &member.ID, UnassignedOnly: true}, []string{finished.Title, inProject.Title}},
		{"completed", ListQuery{IsCompleted: boolPtr(true)}, []string{finished.Title}},
		{"active", ListQuery{IsCompleted: boolPtr(false)}, []string{inProject.Title, assigned.Title}},
		{"state wins over completed flag", ListQuery{TodoStateID: &active.ID, IsCompleted: boolPtr(true)}, []string{inProject.Title}},
		{"project", ListQuery{ProjectID: &project.ID}, []string{inProject.Title}},
		{"text matches description case-insensitively", ListQuery{Filter: "guide"}, []string{assigned.Title}},
		{"text matches title", ListQuery{Filter: "SHI"}, []string{inProject.Title}},
		{"no match", ListQuery{Filter: "zzz"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views, err := svc.List(ctx, admin, tt.q)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(views))
		})
	}
}

func TestList_FilterTreatsWildcardsLiterally(t *testing.T) {
	svc, _, admin := setup(t)
	ctx := testutil.TestContext(t)

	for _, title := range []string{"100% done", "ship v1", "a_b", "axb", `C:\tmp`} {
		_, err := svc.Create(ctx, admin, CreateInput{Title: title})
		require.NoError(t, err)
	}

	tests := []struct {
		filter string
		want   []string
	}{
		{"%", []string{"100% done"}},
		{"a_b", []string{"a_b"}},
		{"_", []string{"a_b"}},
		{`\`, []string{`C:\tmp`}},
		{"0% d", []string{"100% done"}},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			views, err := svc.List(ctx, admin, ListQuery{Filter: tt.filter})
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(views))
		})
	}
}

func TestList_Sorting(t *testing.T) {
	svc, _, admin := setup(t)
	ctx := testutil.TestContext(t)

	later := time.Now().Add(48 * time.Hour)
	sooner := time.Now().Add(24 * time.Hour)

	b, err := svc.Create(ctx, admin, CreateInput{Title: "b", Priority: models.PriorityLow, DueDate: &later})
	require.NoError(t, err)
	c, err := svc.Create(ctx, admin, CreateInput{Title: "c", Priority: models.PriorityHigh})
	require.NoError(t, err)
	_, err = svc.Create(ctx, admin, CreateInput{Title: "a", Priority: models.PriorityMedium, DueDate: &sooner})
	require.NoError(t, err)

	cases := map[string][]string{
		SortTitle:    {"a", "b", "c"},
		SortPriority: {"c", "a", "b"},
		SortDueDate:  {"a", "b", "c"},
		SortCreated:  {"a", "c", "b"},
		"bogus":      {"a", "c", "b"},
	}
	for key, want := range cases {
		t.Run(key, func(t *testing.T) {
			views, err := svc.List(ctx, admin, ListQuery{SortBy: key})
			require.NoError(t, err)
			assert.Equal(t, want, titles(views))
		})
	}

	t.Run("explicit order comes first and unordered tasks follow", func(t *testing.T) {
		require.NoError(t, svc.Reorder(ctx, admin, []uint{b.ID, c.ID}))

		views, err := svc.List(ctx, admin, ListQuery{})
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c", "a"}, titles(views))

		views, err = svc.List(ctx, admin, ListQuery{SortBy: SortTitle})
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c", "a"}, titles(views))
	})
}

func TestReorder(t *testing.T) {
	svc, tc, admin := setup(t)
	ctx := testutil.TestContext(t)

	t1 := testutil.CreateTestTask(t, tc.DB, tc.User, "one", models.PriorityLow)
	t2 := testutil.CreateTestTask(t, tc.DB, tc.User, "two", models.PriorityLow)
	t3 := testutil.CreateTestTask(t, tc.DB, tc.User, "three", models.PriorityLow)

	require.NoError(t, svc.Reorder(ctx, admin, []uint{t3.ID, t1.ID, t2.ID}))

	views, err := svc.List(ctx, admin, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"three", "one", "two"}, titles(views))
	assert.Equal(t, 0, *views[0].Order)
	assert.Equal(t, 2, *views[2].Order)

	t.Run("unknown id rejects the whole batch", func(t *testing.T) {
		err := svc.Reorder(ctx, admin, []uint{t1.ID, t2.ID, 99999})
		assert.ErrorIs(t, err, domain.ErrInvalidReference)

		v, err := svc.Get(ctx, admin, t1.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, *v.Order)
	})

	t.Run("duplicates are rejected", func(t *testing.T) {
		err := svc.Reorder(ctx, admin, []uint{t1.ID, t1.ID})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("non-admin cannot reorder tasks of others", func(t *testing.T) {
		member, _ := tc.AddUser(t, domain.RoleUser)
		own := testutil.CreateTestTask(t, tc.DB, member, "mine", models.PriorityLow)

		err := svc.Reorder(ctx, testutil.Identity(member), []uint{own.ID, t1.ID})
		assert.ErrorIs(t, err, domain.ErrForbidden)

		assert.NoError(t, svc.Reorder(ctx, testutil.Identity(member), []uint{own.ID}))
	})

	t.Run("viewer cannot reorder", func(t *testing.T) {
		viewer, _ := tc.AddUser(t, domain.RoleViewer)
		err := svc.Reorder(ctx, testutil.Identity(viewer), []uint{t1.ID})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestCreate(t *testing.T) {
	svc, tc, admin := setup(t)
	ctx := testutil.TestContext(t)

	draft := testutil.StateByName(t, tc.DB, tc.Org.ID, "draft")

	t.Run("uses default state", func(t *testing.T) {
		v, err := svc.Create(ctx, admin, CreateInput{Title: "Ship v1", Priority: models.PriorityHigh})
		require.NoError(t, err)
		assert.Equal(t, draft.ID, v.TodoStateID)
		assert.Equal(t, "draft", v.TodoStateName)
		assert.False(t, v.IsCompleted)
		assert.Nil(t, v.CompletedAt)
		assert.Equal(t, tc.User.ID, v.CreatedByID)
		assert.Equal(t, tc.User.FullName(), v.CreatedByName)
	})

	t.Run("creating in a terminal state completes the task", func(t *testing.T) {
		done := testutil.StateByName(t, tc.DB, tc.Org.ID, "done")
		v, err := svc.Create(ctx, admin, CreateInput{Title: "Already done", TodoStateID: &done.ID})
		require.NoError(t, err)
		assert.True(t, v.IsCompleted)
		assert.NotNil(t, v.CompletedAt)
	})

	t.Run("subtask inherits parent project", func(t *testing.T) {
		project := testutil.CreateTestProject(t, tc.DB, tc.User, "Launch")
		parent, err := svc.Create(ctx, admin, CreateInput{Title: "Parent", ProjectID: &project.ID})
		require.NoError(t, err)

		child, err := svc.Create(ctx, admin, CreateInput{Title: "Child", ParentTaskID: &parent.ID})
		require.NoError(t, err)
		require.NotNil(t, child.ProjectID)
		assert.Equal(t, project.ID, *child.ProjectID)
		assert.Equal(t, "Launch", child.ProjectName)
		assert.Equal(t, "Parent", child.ParentTaskTitle)
	})

	otherOrg := testutil.CreateTestOrg(t, tc.DB)
	stranger := testutil.CreateTestUser(t, tc.DB, otherOrg, domain.RoleAdmin)
	foreignState := testutil.StateByName(t, tc.DB, otherOrg.ID, "draft")
	foreignProject := testutil.CreateTestProject(t, tc.DB, stranger, "Theirs")
	foreignTask := testutil.CreateTestTask(t, tc.DB, stranger, "theirs", models.PriorityLow)

	inactive, _ := tc.AddUser(t, domain.RoleUser)
	require.NoError(t, tc.DB.Model(inactive).Update("is_active", false).Error)

	invalid := []struct {
		name string
		in   CreateInput
	}{
		{"state from another organization", CreateInput{Title: "x", TodoStateID: &foreignState.ID}},
		{"assignee from another organization", CreateInput{Title: "x", AssignedToID: &stranger.ID}},
		{"inactive assignee", CreateInput{Title: "x", AssignedToID: &inactive.ID}},
		{"project from another organization", CreateInput{Title: "x", ProjectID: &foreignProject.ID}},
		{"parent from another organization", CreateInput{Title: "x", ParentTaskID: &foreignTask.ID}},
		{"missing state", CreateInput{Title: "x", TodoStateID: uintPtr(99999)}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, admin, tt.in)
			assert.ErrorIs(t, err, domain.ErrInvalidReference)
		})
	}

	t.Run("blank title", func(t *testing.T) {
		_, err := svc.Create(ctx, admin, CreateInput{Title: "   "})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("bad priority", func(t *testing.T) {
		_, err := svc.Create(ctx, admin, CreateInput{Title: "x", Priority: 7})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("viewer is forbidden", func(t *testing.T) {
		viewer, _ := tc.AddUser(t, domain.RoleViewer)
		_, err := svc.Create(ctx, testutil.Identity(viewer), CreateInput{Title: "x"})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("organization without default state", func(t *testing.T) {
		require.NoError(t, tc.DB.Model(&models.TodoState{}).
			Where("organization_id = ?", otherOrg.ID).Update("is_default", false).Error)
		_, err := svc.Create(ctx, testutil.Identity(stranger), CreateInput{Title: "x"})
		assert.ErrorIs(t, err, domain.ErrInvalidReference)
	})
}

func TestUpdate(t *testing.T) {
	svc, tc, admin := setup(t)
	ctx := testutil.TestContext(t)

	member, _ := tc.AddUser(t, domain.RoleUser)
	memberID := testutil.Identity(member)
	task, err := svc.Create(ctx, admin, CreateInput{Title: "Original", AssignedToID: &member.ID})
	require.NoError(t, err)

	t.Run("non-admin cannot edit a task they did not create", func(t *testing.T) {
		_, err := svc.Update(ctx, memberID, task.ID, UpdateInput{Title: "Hijack"})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("creator can edit their own task", func(t *testing.T) {
		own, err := svc.Create(ctx, memberID, CreateInput{Title: "Mine"})
		require.NoError(t, err)
		v, err := svc.Update(ctx, memberID, own.ID, UpdateInput{Title: "Still mine", Priority: models.PriorityMedium})
		require.NoError(t, err)
		assert.Equal(t, "Still mine", v.Title)
		require.NotNil(t, v.UpdatedByID)
		assert.Equal(t, member.ID, *v.UpdatedByID)
	})

	t.Run("omitted assignee is kept", func(t *testing.T) {
		v, err := svc.Update(ctx, admin, task.ID, UpdateInput{Title: "Renamed"})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", v.Title)
		require.NotNil(t, v.AssignedToID)
		assert.Equal(t, member.ID, *v.AssignedToID)
		assert.Equal(t, tc.User.FullName(), v.UpdatedByName)
	})

	t.Run("explicit null clears assignee", func(t *testing.T) {
		v, err := svc.Update(ctx, admin, task.ID, UpdateInput{Title: "Renamed", AssignedToID: domain.Null[uint]()})
		require.NoError(t, err)
		assert.Nil(t, v.AssignedToID)
	})

	t.Run("value sets assignee", func(t *testing.T) {
		v, err := svc.Update(ctx, admin, task.ID, UpdateInput{Title: "Renamed", AssignedToID: domain.Some(tc.User.ID)})
		require.NoError(t, err)
		require.NotNil(t, v.AssignedToID)
		assert.Equal(t, tc.User.ID, *v.AssignedToID)
	})

	t.Run("self parent is rejected", func(t *testing.T) {
		_, err := svc.Update(ctx, admin, task.ID, UpdateInput{Title: "Loop", ParentTaskID: domain.Some(task.ID)})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("bad project reference", func(t *testing.T) {
		_, err := svc.Update(ctx, admin, task.ID, UpdateInput{Title: "x", ProjectID: domain.Some(uint(99999))})
		assert.ErrorIs(t, err, domain.ErrInvalidReference)
	})

	t.Run("state transitions stamp and clear completion", func(t *testing.T) {
		done := testutil.StateByName(t, tc.DB, tc.Org.ID, "done")
		active := testutil.StateByName(t, tc.DB, tc.Org.ID, "active")

		v, err := svc.Update(ctx, admin, task.ID, UpdateInput{Title: "x", TodoStateID: &done.ID})
		require.NoError(t, err)
		assert.True(t, v.IsCompleted)
		assert.NotNil(t, v.CompletedAt)

		v, err = svc.Update(ctx, admin, task.ID, UpdateInput{Title: "x", TodoStateID: &active.ID})
		require.NoError(t, err)
		assert.False(t, v.IsCompleted)
		assert.Nil(t, v.CompletedAt)
	})

	t.Run("missing task", func(t *testing.T) {
		_, err := svc.Update(ctx, admin, 99999, UpdateInput{Title: "x"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("changing the due date re-arms the reminder", func(t *testing.T) {
		stamp := time.Now()
		require.NoError(t, tc.DB.Model(&models.Task{}).Where("id = ?", task.ID).Update("due_reminder_sent_at", stamp).Error)

		due := time.Now().Add(time.Hour)
		_, err := svc.Update(ctx, admin, task.ID, UpdateInput{Title: "x", DueDate: &due})
		require.NoError(t, err)

		var stored models.Task
		require.NoError(t, tc.DB.First(&stored, task.ID).Error)
		assert.Nil(t, stored.DueReminderSentAt)
	})
}

func TestToggleStatus(t *testing.T) {
	svc, tc, admin := setup(t)
	ctx := testutil.TestContext(t)

	inProgress := testutil.StateByName(t, tc.DB, tc.Org.ID, "in-progress")
	done := testutil.StateByName(t, tc.DB, tc.Org.ID, "done")

	t.Run("round trip restores the original state", func(t *testing.T) {
		task, err := svc.Create(ctx, admin, CreateInput{Title: "Work", TodoStateID: &inProgress.ID})
		require.NoError(t, err)

		v, err := svc.ToggleStatus(ctx, admin, task.ID)
		require.NoError(t, err)
		assert.Equal(t, done.ID, v.TodoStateID)
		assert.True(t, v.IsCompleted)
		assert.NotNil(t, v.CompletedAt)

		v, err = svc.ToggleStatus(ctx, admin, task.ID)
		require.NoError(t, err)
		assert.Equal(t, inProgress.ID, v.TodoStateID)
		assert.False(t, v.IsCompleted)
		assert.Nil(t, v.CompletedAt)
	})

	t.Run("round trip from a second terminal state", func(t *testing.T) {
		cancelled := models.TodoState{
			OrganizationID: tc.Org.ID,
			Name:           "cancelled",
			DisplayName:    "Cancelled",
			Order:          9,
			IsTerminal:     true,
		}
		require.NoError(t, tc.DB.Create(&cancelled).Error)

		task, err := svc.Create(ctx, admin, CreateInput{Title: "Dropped", TodoStateID: &cancelled.ID})
		require.NoError(t, err)

		v, err := svc.ToggleStatus(ctx, admin, task.ID)
		require.NoError(t, err)
		assert.False(t, v.IsCompleted)

		v, err = svc.ToggleStatus(ctx, admin, task.ID)
		require.NoError(t, err)
		assert.Equal(t, cancelled.ID, v.TodoStateID)
		assert.True(t, v.IsCompleted)

		// a fresh task still completes into the first terminal state
		fresh, err := svc.Create(ctx, admin, CreateInput{Title: "Fresh"})
		require.NoError(t, err)
		v, err = svc.ToggleStatus(ctx, admin, fresh.ID)
		require.NoError(t, err)
		assert.Equal(t, done.ID, v.TodoStateID)
	})

	t.Run("reopening without history falls back to active", func(t *testing.T) {
		task, err := svc.Create(ctx, admin, CreateInput{Title: "Born done", TodoStateID: &done.ID})
		require.NoError(t, err)

		v, err := svc.ToggleStatus(ctx, admin, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "active", v.TodoStateName)
	})

	t.Run("viewer and non-owner are forbidden", func(t *testing.T) {
		task := testutil.CreateTestTask(t, tc.DB, tc.User, "admin's", models.PriorityLow)
		viewer, _ := tc.AddUser(t, domain.RoleViewer)
		member, _ := tc.AddUser(t, domain.RoleUser)

		_, err := svc.ToggleStatus(ctx, testutil.Identity(viewer), task.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
		_, err = svc.ToggleStatus(ctx, testutil.Identity(member), task.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("no terminal state leaves the task unchanged", func(t *testing.T) {
		task := testutil.CreateTestTask(t, tc.DB, tc.User, "stuck", models.PriorityLow)
		require.NoError(t, tc.DB.Model(&models.TodoState{}).Where("id = ?", done.ID).Update("is_terminal", false).Error)
		t.Cleanup(func() {
			tc.DB.Model(&models.TodoState{}).Where("id = ?", done.ID).Update("is_terminal", true)
		})

		_, err := svc.ToggleStatus(ctx, admin, task.ID)
		assert.ErrorIs(t, err, domain.ErrConflict)

		var stored models.Task
		require.NoError(t, tc.DB.First(&stored, task.ID).Error)
		assert.Equal(t, task.TodoStateID, stored.TodoStateID)
		assert.Nil(t, stored.CompletedAt)
	})
}

func TestDelete(t *testing.T) {
	svc, tc, admin := setup(t)
	ctx := testutil.TestContext(t)

	parent, err := svc.Create(ctx, admin, CreateInput{Title: "Parent"})
	require.NoError(t, err)
	child, err := svc.Create(ctx, admin, CreateInput{Title: "Child", ParentTaskID: &parent.ID})
	require.NoError(t, err)

	member, _ := tc.AddUser(t, domain.RoleUser)
	assert.ErrorIs(t, svc.Delete(ctx, testutil.Identity(member), parent.ID), domain.ErrForbidden)

	require.NoError(t, svc.Delete(ctx, admin, parent.ID))

	_, err = svc.Get(ctx, admin, parent.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// the row is still there, flagged
	var stored models.Task
	require.NoError(t, tc.DB.Unscoped().First(&stored, parent.ID).Error)
	assert.True(t, stored.IsDeleted)
	assert.True(t, stored.DeletedAt.Valid)
	require.NotNil(t, stored.DeletedByID)
	assert.Equal(t, tc.User.ID, *stored.DeletedByID)

	// no cascade
	v, err := svc.Get(ctx, admin, child.ID)
	require.NoError(t, err)
	assert.Equal(t, "Parent", v.ParentTaskTitle)

	assert.ErrorIs(t, svc.Delete(ctx, admin, parent.ID), domain.ErrNotFound)
}

func TestStats_EndToEnd(t *testing.T) {
	svc, _, admin := setup(t)
	ctx := testutil.TestContext(t)

	task, err := svc.Create(ctx, admin, CreateInput{Title: "Ship v1", Priority: models.PriorityHigh})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, int64(1), stats.Active)
	assert.Equal(t, int64(1), stats.HighPriority)
	assert.Equal(t, int64(1), stats.StateCounts["Draft"])
	assert.Equal(t, int64(0), stats.StateCounts["Done"])

	_, err = svc.ToggleStatus(ctx, admin, task.ID)
	require.NoError(t, err)

	stats, err = svc.Stats(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(0), stats.Active)
	assert.Equal(t, int64(0), stats.HighPriority)
	assert.Equal(t, int64(1), stats.StateCounts["Done"])
}

func TestAdvancedStats(t *testing.T) {
	svc, tc, admin := setup(t)
	ctx := testutil.TestContext(t)

	fixed := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	member, _ := tc.AddUser(t, domain.RoleUser)

	high, err := svc.Create(ctx, admin, CreateInput{Title: "assigned high", Priority: models.PriorityHigh, AssignedToID: &member.ID})
	require.NoError(t, err)
	doneTask, err := svc.Create(ctx, admin, CreateInput{Title: "assigned done", AssignedToID: &member.ID})
	require.NoError(t, err)
	_, err = svc.ToggleStatus(ctx, admin, doneTask.ID)
	require.NoError(t, err)
	old, err := svc.Create(ctx, admin, CreateInput{Title: "loose"})
	require.NoError(t, err)

	// pin creation times to the service clock, one task three days back
	require.NoError(t, tc.DB.Model(&models.Task{}).Where("id IN ?", []uint{high.ID, doneTask.ID}).UpdateColumn("created_at", fixed).Error)
	require.NoError(t, tc.DB.Model(&models.Task{}).Where("id = ?", old.ID).UpdateColumn("created_at", fixed.AddDate(0, 0, -3)).Error)

	stats, err := svc.AdvancedStats(ctx, admin, 7)
	require.NoError(t, err)

	assert.Equal(t, 7, stats.Days)
	require.Len(t, stats.Trends, 8)

	memberStats := stats.ByUser[formatID(member.ID)]
	require.NotNil(t, memberStats)
	assert.Equal(t, member.Email, memberStats.UserEmail)
	assert.Equal(t, int64(2), memberStats.TotalTasks)
	assert.Equal(t, int64(1), memberStats.CompletedTasks)
	assert.Equal(t, int64(1), memberStats.ActiveTasks)
	assert.Equal(t, int64(1), memberStats.HighPriorityTasks)

	loose := stats.ByUser["unassigned"]
	require.NotNil(t, loose)
	assert.Equal(t, "Unassigned", loose.UserName)
	assert.Nil(t, loose.UserID)
	assert.Equal(t, int64(1), loose.TotalTasks)

	assert.Equal(t, int64(1), stats.ByState["Done"])
	assert.Equal(t, int64(2), stats.ByState["Draft"])

	first := stats.Trends[0]
	threeDays := stats.Trends[4]
	today := stats.Trends[7]
	assert.Equal(t, int64(0), first.TotalTasks)
	assert.Equal(t, int64(1), threeDays.TasksCreated)
	assert.Equal(t, int64(1), threeDays.TotalTasks)
	assert.Equal(t, int64(2), today.TasksCreated)
	assert.Equal(t, int64(1), today.TasksCompleted)
	assert.Equal(t, int64(3), today.TotalTasks)
	assert.Equal(t, "2026-03-15", today.Date)

	t.Run("days out of range", func(t *testing.T) {
		_, err := svc.AdvancedStats(ctx, admin, 1000)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("zero days uses the default window", func(t *testing.T) {
		stats, err := svc.AdvancedStats(ctx, admin, 0)
		require.NoError(t, err)
		assert.Len(t, stats.Trends, DefaultStatsDays+1)
	})
}
