package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	authdomain "taskhub-backend/internal/auth/domain"
	"taskhub-backend/internal/apperr"
	"taskhub-backend/internal/task/domain"
)

func newTestRepo(t *testing.T) (TaskRepository, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&authdomain.User{}, &domain.Task{}, &domain.ShareEntry{}))
	return NewGormTaskRepository(db, time.Second), db
}

func seedTask(t *testing.T, repo TaskRepository, ownerID, title string, mutate func(*domain.Task)) *domain.Task {
	t.Helper()
	task := &domain.Task{
		Title:    title,
		Status:   domain.StatusTodo,
		Priority: domain.PriorityMedium,
		OwnerID:  ownerID,
	}
	if mutate != nil {
		mutate(task)
	}
	require.NoError(t, repo.Create(context.Background(), task))
	return task
}

func shareTask(t *testing.T, repo TaskRepository, taskID, userID string, permission domain.Permission) {
	t.Helper()
	require.NoError(t, repo.UpsertShare(context.Background(), &domain.ShareEntry{
		TaskID:     taskID,
		UserID:     userID,
		Permission: permission,
		GrantedAt:  time.Now(),
	}))
}

func TestListVisible_UnifiedOwnedAndShared(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		seedTask(t, repo, "alice", fmt.Sprintf("owned %d", i), nil)
	}
	for i := 0; i < 2; i++ {
		task := seedTask(t, repo, "bob", fmt.Sprintf("from bob %d", i), nil)
		shareTask(t, repo, task.ID, "alice", domain.PermissionRead)
	}
	// Invisible to alice.
	seedTask(t, repo, "bob", "bob private", nil)

	tasks, total, err := repo.ListVisible(ctx, "alice", ListFilters{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.EqualValues(t, 5, total)
	require.Len(t, tasks, 5)

	seen := map[string]bool{}
	for _, task := range tasks {
		require.False(t, seen[task.ID], "task %s returned twice", task.ID)
		seen[task.ID] = true
	}
}

func TestListVisible_PaginationCoversWholeSet(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	want := map[string]bool{}
	for i := 0; i < 4; i++ {
		task := seedTask(t, repo, "alice", fmt.Sprintf("owned %c", 'a'+i), nil)
		want[task.ID] = true
	}
	for i := 0; i < 3; i++ {
		task := seedTask(t, repo, "bob", fmt.Sprintf("shared %c", 'a'+i), nil)
		shareTask(t, repo, task.ID, "alice", domain.PermissionWrite)
		want[task.ID] = true
	}

	// Walk every page; the union must be exactly the visible set, no task missing
	// or repeated across page boundaries.
	got := map[string]bool{}
	for page := 1; page <= 4; page++ {
		tasks, total, err := repo.ListVisible(ctx, "alice", ListFilters{
			Page: page, PageSize: 2, SortBy: "title", SortOrder: "asc",
		})
		require.NoError(t, err)
		require.EqualValues(t, 7, total)
		for _, task := range tasks {
			require.False(t, got[task.ID])
			got[task.ID] = true
		}
	}
	require.Equal(t, want, got)
}

func TestListVisible_Filters(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)

	seedTask(t, repo, "alice", "write report", func(task *domain.Task) {
		task.Status = domain.StatusInProgress
		task.Priority = domain.PriorityHigh
	})
	seedTask(t, repo, "alice", "buy groceries", func(task *domain.Task) {
		task.DueDate = &past
	})
	done := seedTask(t, repo, "alice", "old report", func(task *domain.Task) {
		task.DueDate = &past
	})
	require.NoError(t, repo.UpdateFields(ctx, done.ID, map[string]interface{}{
		"status": domain.StatusCompleted,
	}))

	status := domain.StatusInProgress
	tasks, total, err := repo.ListVisible(ctx, "alice", ListFilters{Status: &status, Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "write report", tasks[0].Title)

	priority := domain.PriorityHigh
	_, total, err = repo.ListVisible(ctx, "alice", ListFilters{Priority: &priority, Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)

	// Case-insensitive substring over title and description.
	_, total, err = repo.ListVisible(ctx, "alice", ListFilters{Search: "REPORT", Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)

	// Overdue excludes completed tasks.
	tasks, total, err = repo.ListVisible(ctx, "alice", ListFilters{Overdue: true, Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "buy groceries", tasks[0].Title)
}

func TestStatsFor(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)

	seedTask(t, repo, "alice", "one", func(task *domain.Task) {
		task.Priority = domain.PriorityHigh
		task.DueDate = &past
	})
	seedTask(t, repo, "alice", "two", func(task *domain.Task) {
		task.Status = domain.StatusInProgress
	})
	shared := seedTask(t, repo, "bob", "three", nil)
	shareTask(t, repo, shared.ID, "alice", domain.PermissionRead)
	seedTask(t, repo, "bob", "invisible", nil)

	stats, err := repo.StatsFor(ctx, "alice")
	require.NoError(t, err)
	require.EqualValues(t, 3, stats.Total)
	require.EqualValues(t, 2, stats.ByStatus[domain.StatusTodo])
	require.EqualValues(t, 1, stats.ByStatus[domain.StatusInProgress])
	require.EqualValues(t, 1, stats.ByPriority[domain.PriorityHigh])
	require.EqualValues(t, 2, stats.ByPriority[domain.PriorityMedium])
	require.EqualValues(t, 1, stats.Overdue)
}

func TestUpsertShare_SingleEntryPerUser(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	task := seedTask(t, repo, "alice", "shared doc", nil)
	shareTask(t, repo, task.ID, "bob", domain.PermissionRead)
	shareTask(t, repo, task.ID, "bob", domain.PermissionWrite)

	var shares []domain.ShareEntry
	require.NoError(t, db.Where("task_id = ?", task.ID).Find(&shares).Error)
	require.Len(t, shares, 1)
	require.Equal(t, domain.PermissionWrite, shares[0].Permission)

	loaded, err := repo.FindByID(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, loaded.SharedWith, 1)
}

func TestDeleteShare_Idempotent(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	task := seedTask(t, repo, "alice", "shared doc", nil)
	shareTask(t, repo, task.ID, "bob", domain.PermissionRead)

	removed, err := repo.DeleteShare(ctx, task.ID, "bob")
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = repo.DeleteShare(ctx, task.ID, "bob")
	require.NoError(t, err)
	require.False(t, removed)
}

func TestDelete_RemovesShares(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	task := seedTask(t, repo, "alice", "doomed", nil)
	shareTask(t, repo, task.ID, "bob", domain.PermissionRead)

	require.NoError(t, repo.Delete(ctx, task.ID))

	loaded, err := repo.FindByID(ctx, task.ID)
	require.NoError(t, err)
	require.Nil(t, loaded)

	var count int64
	require.NoError(t, db.Model(&domain.ShareEntry{}).Where("task_id = ?", task.ID).Count(&count).Error)
	require.Zero(t, count)
}

func TestPurgeUser_FullCascade(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&authdomain.User{ID: "alice", Email: "alice@example.com", Name: "Alice"}).Error)
	require.NoError(t, db.Create(&authdomain.User{ID: "bob", Email: "bob@example.com", Name: "Bob"}).Error)

	// Alice owns a task shared with bob; bob owns a task shared with alice.
	owned := seedTask(t, repo, "alice", "alice task", nil)
	shareTask(t, repo, owned.ID, "bob", domain.PermissionWrite)
	kept := seedTask(t, repo, "bob", "bob task", nil)
	shareTask(t, repo, kept.ID, "alice", domain.PermissionRead)

	require.NoError(t, repo.PurgeUser(ctx, "alice"))

	loaded, err := repo.FindByID(ctx, owned.ID)
	require.NoError(t, err)
	require.Nil(t, loaded)

	// Bob's task survives but no longer lists alice.
	loaded, err = repo.FindByID(ctx, kept.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Empty(t, loaded.SharedWith)

	var users int64
	require.NoError(t, db.Model(&authdomain.User{}).Where("id = ?", "alice").Count(&users).Error)
	require.Zero(t, users)

	var shares int64
	require.NoError(t, db.Model(&domain.ShareEntry{}).Count(&shares).Error)
	require.Zero(t, shares)
}

func TestFindDueForReminder(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()
	soon := now.Add(30 * time.Minute)
	far := now.Add(3 * time.Hour)

	due := seedTask(t, repo, "alice", "due soon", func(task *domain.Task) {
		task.DueDate = &soon
	})
	seedTask(t, repo, "alice", "due later", func(task *domain.Task) {
		task.DueDate = &far
	})
	seedTask(t, repo, "alice", "no due date", nil)
	completed := seedTask(t, repo, "alice", "done", func(task *domain.Task) {
		task.DueDate = &soon
	})
	require.NoError(t, repo.UpdateFields(ctx, completed.ID, map[string]interface{}{
		"status": domain.StatusCompleted,
	}))

	window := ReminderWindow{From: now, To: now.Add(time.Hour)}
	tasks, err := repo.FindDueForReminder(ctx, window)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, due.ID, tasks[0].ID)

	// Once marked, the sweep never returns the task again.
	require.NoError(t, repo.MarkReminderSent(ctx, due.ID))
	tasks, err = repo.FindDueForReminder(ctx, window)
	require.NoError(t, err)
	require.Empty(t, tasks)
}

func TestStoreCalls_CanceledContext(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.FindByID(ctx, "any")
	require.Equal(t, apperr.CodeUnavailable, apperr.CodeOf(err))

	_, _, err = repo.ListVisible(ctx, "alice", ListFilters{Page: 1, PageSize: 10})
	require.Equal(t, apperr.CodeUnavailable, apperr.CodeOf(err))
}

func TestStoreCalls_TimeoutSurfacesAsUnavailable(t *testing.T) {
	_, db := newTestRepo(t)
	repo := NewGormTaskRepository(db, time.Nanosecond)

	// The per-call deadline expires before the query runs; the caller sees a
	// retryable Unavailable, not a hung request.
	_, err := repo.FindByID(context.Background(), "any")
	require.Equal(t, apperr.CodeUnavailable, apperr.CodeOf(err))
}
