package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	authdomain "taskhub-backend/internal/auth/domain"
	"taskhub-backend/internal/task/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskhub-backend/internal/apperr"
)

// ReminderWindow bounds the due dates a reminder sweep looks at.
type ReminderWindow struct {
	From time.Time
	To   time.Time
}

// gormTaskRepository implements TaskRepository using GORM.
type gormTaskRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewGormTaskRepository(db *gorm.DB, timeout time.Duration) TaskRepository {
	return &gormTaskRepository{db: db, timeout: timeout}
}

// opCtx bounds a store call so a hung database surfaces as Unavailable instead
// of stalling the request. A non-positive timeout leaves the context unbounded.
func (r *gormTaskRepository) opCtx(parent context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return parent, func() {}
	}
	return context.WithTimeout(parent, r.timeout)
}

func (r *gormTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	task.CreatedAt = time.Now()
	task.UpdatedAt = time.Now()
	return wrapDB(r.db.WithContext(ctx).Create(task).Error)
}

func (r *gormTaskRepository) FindByID(ctx context.Context, id string) (*domain.Task, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	var task domain.Task
	err := r.db.WithContext(ctx).
		Preload("SharedWith").
		Where("id = ?", id).
		First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, wrapDB(err)
	}
	return &task, nil
}

func (r *gormTaskRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	fields["updated_at"] = time.Now()
	return wrapDB(r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("id = ?", id).
		Updates(fields).Error)
}

func (r *gormTaskRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	return wrapDB(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&domain.ShareEntry{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Task{}, "id = ?", id).Error
	}))
}

// visibleTo is the single predicate defining a user's visible set: tasks they own
// plus tasks shared with them. List, stats and export all go through it.
func visibleTo(userID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			"tasks.owner_id = ? OR EXISTS (SELECT 1 FROM task_shares s WHERE s.task_id = tasks.id AND s.user_id = ?)",
			userID, userID,
		)
	}
}

func overdueCondition(db *gorm.DB, now time.Time) *gorm.DB {
	return db.Where("tasks.due_date IS NOT NULL AND tasks.due_date < ? AND tasks.status <> ?",
		now, domain.StatusCompleted)
}

var sortColumns = map[string]string{
	"created_at": "tasks.created_at",
	"updated_at": "tasks.updated_at",
	"due_date":   "tasks.due_date",
	"title":      "tasks.title",
	"status":     "tasks.status",
	"priority":   "tasks.priority",
}

func (r *gormTaskRepository) ListVisible(ctx context.Context, userID string, f ListFilters) ([]*domain.Task, int64, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	query := r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Scopes(visibleTo(userID))

	if f.Status != nil {
		query = query.Where("tasks.status = ?", *f.Status)
	}
	if f.Priority != nil {
		query = query.Where("tasks.priority = ?", *f.Priority)
	}
	if f.Search != "" {
		pattern := "%" + strings.ToLower(f.Search) + "%"
		query = query.Where("LOWER(tasks.title) LIKE ? OR LOWER(tasks.description) LIKE ?", pattern, pattern)
	}
	if f.Overdue {
		query = overdueCondition(query, time.Now())
	}

	// One count and one page slice over the combined predicate; owned and shared
	// are never paginated separately.
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, wrapDB(err)
	}

	column, ok := sortColumns[f.SortBy]
	if !ok {
		column = "tasks.created_at"
	}
	direction := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		direction = "ASC"
	}

	var tasks []*domain.Task
	err := query.
		Preload("SharedWith").
		Order(column + " " + direction).
		Limit(f.PageSize).
		Offset((f.Page - 1) * f.PageSize).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, wrapDB(err)
	}
	return tasks, total, nil
}

func (r *gormTaskRepository) StatsFor(ctx context.Context, userID string) (*Stats, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	stats := &Stats{
		ByStatus:   make(map[domain.Status]int64),
		ByPriority: make(map[domain.Priority]int64),
	}

	type bucket struct {
		Key   string
		Count int64
	}

	var statusRows []bucket
	err := r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Scopes(visibleTo(userID)).
		Select("tasks.status AS key, COUNT(*) AS count").
		Group("tasks.status").
		Scan(&statusRows).Error
	if err != nil {
		return nil, wrapDB(err)
	}
	for _, row := range statusRows {
		stats.ByStatus[domain.Status(row.Key)] = row.Count
		stats.Total += row.Count
	}

	var priorityRows []bucket
	err = r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Scopes(visibleTo(userID)).
		Select("tasks.priority AS key, COUNT(*) AS count").
		Group("tasks.priority").
		Scan(&priorityRows).Error
	if err != nil {
		return nil, wrapDB(err)
	}
	for _, row := range priorityRows {
		stats.ByPriority[domain.Priority(row.Key)] = row.Count
	}

	err = overdueCondition(
		r.db.WithContext(ctx).Model(&domain.Task{}).Scopes(visibleTo(userID)),
		time.Now(),
	).Count(&stats.Overdue).Error
	if err != nil {
		return nil, wrapDB(err)
	}

	return stats, nil
}

func (r *gormTaskRepository) ListOwned(ctx context.Context, userID string) ([]*domain.Task, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	var tasks []*domain.Task
	err := r.db.WithContext(ctx).
		Preload("SharedWith").
		Where("owner_id = ?", userID).
		Order("created_at DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, wrapDB(err)
	}
	return tasks, nil
}

func (r *gormTaskRepository) ListSharedWith(ctx context.Context, userID string) ([]*domain.Task, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	var tasks []*domain.Task
	err := r.db.WithContext(ctx).
		Preload("SharedWith").
		Where("EXISTS (SELECT 1 FROM task_shares s WHERE s.task_id = tasks.id AND s.user_id = ?)", userID).
		Order("updated_at DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, wrapDB(err)
	}
	return tasks, nil
}

func (r *gormTaskRepository) UpsertShare(ctx context.Context, share *domain.ShareEntry) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	return wrapDB(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "task_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"permission", "granted_at"}),
		}).Create(share).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Task{}).
			Where("id = ?", share.TaskID).
			Update("updated_at", time.Now()).Error
	}))
}

func (r *gormTaskRepository) DeleteShare(ctx context.Context, taskID, userID string) (bool, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	result := r.db.WithContext(ctx).
		Where("task_id = ? AND user_id = ?", taskID, userID).
		Delete(&domain.ShareEntry{})
	if result.Error != nil {
		return false, wrapDB(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *gormTaskRepository) PurgeUser(ctx context.Context, userID string) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	return wrapDB(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Shares of tasks the user owns.
		if err := tx.Where(
			"task_id IN (SELECT id FROM tasks WHERE owner_id = ?)", userID,
		).Delete(&domain.ShareEntry{}).Error; err != nil {
			return err
		}
		// The user's own share rows on other people's tasks.
		if err := tx.Where("user_id = ?", userID).Delete(&domain.ShareEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("owner_id = ?", userID).Delete(&domain.Task{}).Error; err != nil {
			return err
		}
		return tx.Delete(&authdomain.User{}, "id = ?", userID).Error
	}))
}

func (r *gormTaskRepository) FindDueForReminder(ctx context.Context, window ReminderWindow) ([]*domain.Task, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	var tasks []*domain.Task
	err := r.db.WithContext(ctx).
		Where("due_date IS NOT NULL AND due_date > ? AND due_date <= ? AND reminder_sent = ? AND status <> ?",
			window.From, window.To, false, domain.StatusCompleted).
		Find(&tasks).Error
	if err != nil {
		return nil, wrapDB(err)
	}
	return tasks, nil
}

func (r *gormTaskRepository) MarkReminderSent(ctx context.Context, id string) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	return wrapDB(r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("id = ?", id).
		Update("reminder_sent", true).Error)
}

func wrapDB(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperr.Wrap(apperr.CodeUnavailable, "storage timeout", err)
	}
	return err
}
