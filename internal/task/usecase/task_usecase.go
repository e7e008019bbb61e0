package usecase

import (
	"context"
	"strings"
	"time"

	authrepo "taskhub-backend/internal/auth/repository"
	"taskhub-backend/internal/notification"
	"taskhub-backend/internal/task/domain"
	"taskhub-backend/internal/task/repository"

	"go.uber.org/zap"

	"taskhub-backend/internal/apperr"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	maxTitleLen     = 200
	maxDescLen      = 1000
)

// taskUsecase implements TaskUsecase.
type taskUsecase struct {
	taskRepo repository.TaskRepository
	userRepo authrepo.UserRepository
	mailer   notification.Mailer
	sink     EventSink
	logger   *zap.Logger
}

func NewTaskUsecase(taskRepo repository.TaskRepository, userRepo authrepo.UserRepository, mailer notification.Mailer, logger *zap.Logger) TaskUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &taskUsecase{
		taskRepo: taskRepo,
		userRepo: userRepo,
		mailer:   mailer,
		logger:   logger,
	}
}

func (u *taskUsecase) SetEventSink(sink EventSink) {
	u.sink = sink
}

func (u *taskUsecase) Create(ctx context.Context, actor Actor, req CreateTaskRequest) (*domain.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" || len(title) > maxTitleLen {
		return nil, apperr.InvalidArgument("title is required and cannot exceed 200 characters")
	}
	if len(req.Description) > maxDescLen {
		return nil, apperr.InvalidArgument("description cannot exceed 1000 characters")
	}

	status := domain.StatusTodo
	if req.Status != "" {
		status = domain.Status(req.Status)
		if !status.Valid() {
			return nil, apperr.InvalidArgument("invalid status")
		}
	}
	priority := domain.PriorityMedium
	if req.Priority != "" {
		priority = domain.Priority(req.Priority)
		if !priority.Valid() {
			return nil, apperr.InvalidArgument("invalid priority")
		}
	}

	var dueDate *time.Time
	if req.DueDate != nil && *req.DueDate != "" {
		parsed, err := time.Parse(time.RFC3339, *req.DueDate)
		if err != nil {
			return nil, apperr.InvalidArgument("due_date must be RFC3339")
		}
		if parsed.Before(time.Now()) {
			return nil, apperr.InvalidArgument("due_date cannot be in the past")
		}
		dueDate = &parsed
	}

	task := &domain.Task{
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Priority:    priority,
		DueDate:     dueDate,
		OwnerID:     actor.ID,
		Tags:        trimTags(req.Tags),
		IsPublic:    req.IsPublic,
	}
	task.SetStatus(status, time.Now())

	if err := u.taskRepo.Create(ctx, task); err != nil {
		return nil, err
	}

	// The actor is acknowledged synchronously; the push event keeps the owner's
	// other sessions current.
	if u.sink != nil {
		u.sink.TaskCreated(task, actor)
	}
	return task, nil
}

func (u *taskUsecase) GetByID(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	task, err := u.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, apperr.NotFound("task not found")
	}
	if decision := domain.Authorize(task, userID, domain.PermissionRead); !decision.Allowed {
		return nil, apperr.Forbidden("access denied: " + decision.Reason)
	}
	return task, nil
}

func (u *taskUsecase) List(ctx context.Context, userID string, opts ListOptions) (*TaskPage, error) {
	filters := repository.ListFilters{
		Search:    strings.TrimSpace(opts.Search),
		Overdue:   opts.Overdue,
		SortBy:    opts.SortBy,
		SortOrder: opts.SortOrder,
		Page:      opts.Page,
		PageSize:  opts.PageSize,
	}
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = defaultPageSize
	}
	if filters.PageSize > maxPageSize {
		filters.PageSize = maxPageSize
	}

	if opts.Status != "" {
		status := domain.Status(opts.Status)
		if !status.Valid() {
			return nil, apperr.InvalidArgument("invalid status filter")
		}
		filters.Status = &status
	}
	if opts.Priority != "" {
		priority := domain.Priority(opts.Priority)
		if !priority.Valid() {
			return nil, apperr.InvalidArgument("invalid priority filter")
		}
		filters.Priority = &priority
	}

	tasks, total, err := u.taskRepo.ListVisible(ctx, userID, filters)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}

	totalPages := total / int64(filters.PageSize)
	if total%int64(filters.PageSize) != 0 {
		totalPages++
	}

	return &TaskPage{
		Items:      tasks,
		Page:       filters.Page,
		PageSize:   filters.PageSize,
		TotalCount: total,
		TotalPages: totalPages,
	}, nil
}

func (u *taskUsecase) Stats(ctx context.Context, userID string) (*repository.Stats, error) {
	return u.taskRepo.StatsFor(ctx, userID)
}

func (u *taskUsecase) Update(ctx context.Context, actor Actor, taskID string, req UpdateTaskRequest) (*domain.Task, error) {
	task, err := u.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, apperr.NotFound("task not found")
	}
	if decision := domain.Authorize(task, actor.ID, domain.PermissionWrite); !decision.Allowed {
		return nil, apperr.Forbidden("access denied: " + decision.Reason)
	}

	fields := map[string]interface{}{}
	var changed []string

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" || len(title) > maxTitleLen {
			return nil, apperr.InvalidArgument("title is required and cannot exceed 200 characters")
		}
		task.Title = title
		fields["title"] = title
		changed = append(changed, "title")
	}
	if req.Description != nil {
		if len(*req.Description) > maxDescLen {
			return nil, apperr.InvalidArgument("description cannot exceed 1000 characters")
		}
		task.Description = strings.TrimSpace(*req.Description)
		fields["description"] = task.Description
		changed = append(changed, "description")
	}
	if req.Priority != nil {
		priority := domain.Priority(*req.Priority)
		if !priority.Valid() {
			return nil, apperr.InvalidArgument("invalid priority")
		}
		task.Priority = priority
		fields["priority"] = priority
		changed = append(changed, "priority")
	}
	if req.DueDate != nil {
		if *req.DueDate == "" {
			task.DueDate = nil
			fields["due_date"] = nil
		} else {
			parsed, err := time.Parse(time.RFC3339, *req.DueDate)
			if err != nil {
				return nil, apperr.InvalidArgument("due_date must be RFC3339")
			}
			task.DueDate = &parsed
			fields["due_date"] = parsed
			fields["reminder_sent"] = false
		}
		changed = append(changed, "due date")
	}
	if req.Tags != nil {
		task.Tags = trimTags(*req.Tags)
		fields["tags"] = task.Tags
		changed = append(changed, "tags")
	}
	if req.IsPublic != nil {
		task.IsPublic = *req.IsPublic
		fields["is_public"] = *req.IsPublic
		changed = append(changed, "visibility")
	}
	if req.Status != nil {
		status := domain.Status(*req.Status)
		if !status.Valid() {
			return nil, apperr.InvalidArgument("invalid status")
		}
		// Completion timestamp transitions in the same write as the status change.
		task.SetStatus(status, time.Now())
		fields["status"] = status
		fields["completed_at"] = task.CompletedAt
		changed = append(changed, "status")
	}

	if len(fields) == 0 {
		return task, nil
	}

	if err := u.taskRepo.UpdateFields(ctx, task.ID, fields); err != nil {
		return nil, err
	}
	task.UpdatedAt = time.Now()

	if u.sink != nil {
		u.sink.TaskUpdated(task, actor)
	}
	u.notifySharedUsers(task, actor, strings.Join(changed, ", "))

	return task, nil
}

func (u *taskUsecase) Delete(ctx context.Context, actor Actor, taskID string) error {
	task, err := u.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return apperr.NotFound("task not found")
	}
	if task.OwnerID != actor.ID {
		return apperr.Forbidden("only the task owner can delete a task")
	}

	// Interested set is captured before the delete wipes the sharing rows.
	recipients := task.InterestedUserIDs()

	if err := u.taskRepo.Delete(ctx, task.ID); err != nil {
		return err
	}

	if u.sink != nil {
		u.sink.TaskDeleted(task.ID, recipients, actor)
	}
	return nil
}

func (u *taskUsecase) Share(ctx context.Context, actor Actor, taskID, email string, permission string) (*domain.Task, error) {
	task, err := u.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, apperr.NotFound("task not found")
	}
	if task.OwnerID != actor.ID {
		return nil, apperr.Forbidden("only the task owner can share a task")
	}

	perm := domain.PermissionRead
	if permission != "" {
		perm = domain.Permission(permission)
		if !perm.Valid() {
			return nil, apperr.InvalidArgument("permission must be read or write")
		}
	}

	target, err := u.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apperr.NotFound("user not found")
	}
	if target.ID == actor.ID {
		return nil, apperr.InvalidArgument("cannot share task with yourself")
	}

	now := time.Now()
	share := &domain.ShareEntry{
		TaskID:     task.ID,
		UserID:     target.ID,
		Permission: perm,
		GrantedAt:  now,
	}
	if err := u.taskRepo.UpsertShare(ctx, share); err != nil {
		return nil, err
	}
	task.ShareWith(target.ID, perm, now)
	task.UpdatedAt = now

	if u.sink != nil {
		u.sink.TaskShared(task, target.ID, perm, actor)
	}
	if u.mailer != nil && target.Preferences.Notifications {
		u.mailer.SendShareNotification(target.Email, task.Title, actor.Name, string(perm))
	}

	return task, nil
}

func (u *taskUsecase) Unshare(ctx context.Context, actor Actor, taskID, targetUserID string) (*domain.Task, error) {
	task, err := u.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, apperr.NotFound("task not found")
	}
	if task.OwnerID != actor.ID {
		return nil, apperr.Forbidden("only the task owner can remove sharing")
	}

	removed, err := u.taskRepo.DeleteShare(ctx, task.ID, targetUserID)
	if err != nil {
		return nil, err
	}
	// Revoking an absent share is a no-op, not an error.
	if removed {
		task.RemoveShare(targetUserID)
		task.UpdatedAt = time.Now()
		if u.sink != nil {
			// Remaining collaborators see the change; the revoked user is already
			// out of the interested set.
			u.sink.TaskUpdated(task, actor)
		}
	}

	return task, nil
}

// notifySharedUsers emails collaborators about an update. Fire and forget: mail
// failure never fails the mutation, and a sharing entry whose user no longer
// resolves is skipped.
func (u *taskUsecase) notifySharedUsers(task *domain.Task, actor Actor, changes string) {
	if u.mailer == nil || len(task.SharedWith) == 0 {
		return
	}
	shares := make([]domain.ShareEntry, len(task.SharedWith))
	copy(shares, task.SharedWith)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, share := range shares {
			if share.UserID == actor.ID {
				continue
			}
			user, err := u.userRepo.FindByID(ctx, share.UserID)
			if err != nil || user == nil || !user.Preferences.Notifications {
				continue
			}
			u.mailer.SendUpdateNotification(user.Email, task.Title, actor.Name, changes)
		}
	}()
}

func trimTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
