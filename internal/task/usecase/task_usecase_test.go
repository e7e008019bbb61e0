package usecase

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	authdomain "taskhub-backend/internal/auth/domain"
	"taskhub-backend/internal/apperr"
	"taskhub-backend/internal/task/domain"
	"taskhub-backend/internal/task/repository"
)

type fakeTaskRepo struct {
	tasks map[string]*domain.Task
	seq   int
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[string]*domain.Task)}
}

func (r *fakeTaskRepo) Create(_ context.Context, task *domain.Task) error {
	if task.ID == "" {
		r.seq++
		task.ID = fmt.Sprintf("task-%d", r.seq)
	}
	r.tasks[task.ID] = task
	return nil
}

func (r *fakeTaskRepo) FindByID(_ context.Context, id string) (*domain.Task, error) {
	return r.tasks[id], nil
}

func (r *fakeTaskRepo) UpdateFields(_ context.Context, id string, fields map[string]interface{}) error {
	return nil
}

func (r *fakeTaskRepo) Delete(_ context.Context, id string) error {
	delete(r.tasks, id)
	return nil
}

func (r *fakeTaskRepo) ListVisible(_ context.Context, userID string, f repository.ListFilters) ([]*domain.Task, int64, error) {
	var visible []*domain.Task
	for _, task := range r.tasks {
		if domain.Authorize(task, userID, domain.PermissionRead).Allowed {
			visible = append(visible, task)
		}
	}
	return visible, int64(len(visible)), nil
}

func (r *fakeTaskRepo) StatsFor(_ context.Context, userID string) (*repository.Stats, error) {
	return &repository.Stats{}, nil
}

func (r *fakeTaskRepo) ListOwned(_ context.Context, userID string) ([]*domain.Task, error) {
	var owned []*domain.Task
	for _, task := range r.tasks {
		if task.OwnerID == userID {
			owned = append(owned, task)
		}
	}
	return owned, nil
}

func (r *fakeTaskRepo) ListSharedWith(_ context.Context, userID string) ([]*domain.Task, error) {
	var shared []*domain.Task
	for _, task := range r.tasks {
		if task.ShareIndex(userID) >= 0 {
			shared = append(shared, task)
		}
	}
	return shared, nil
}

func (r *fakeTaskRepo) UpsertShare(_ context.Context, share *domain.ShareEntry) error {
	if task, ok := r.tasks[share.TaskID]; ok {
		task.ShareWith(share.UserID, share.Permission, share.GrantedAt)
	}
	return nil
}

func (r *fakeTaskRepo) DeleteShare(_ context.Context, taskID, userID string) (bool, error) {
	if task, ok := r.tasks[taskID]; ok {
		return task.RemoveShare(userID), nil
	}
	return false, nil
}

func (r *fakeTaskRepo) PurgeUser(_ context.Context, userID string) error {
	for id, task := range r.tasks {
		if task.OwnerID == userID {
			delete(r.tasks, id)
			continue
		}
		task.RemoveShare(userID)
	}
	return nil
}

func (r *fakeTaskRepo) FindDueForReminder(_ context.Context, window repository.ReminderWindow) ([]*domain.Task, error) {
	return nil, nil
}

func (r *fakeTaskRepo) MarkReminderSent(_ context.Context, id string) error {
	return nil
}

type fakeUserRepo struct {
	users map[string]*authdomain.User
}

func newFakeUserRepo(users ...*authdomain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*authdomain.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, user *authdomain.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (*authdomain.User, error) {
	return r.users[id], nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*authdomain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindByGoogleID(_ context.Context, googleID string) (*authdomain.User, error) {
	for _, u := range r.users {
		if u.GoogleID != nil && *u.GoogleID == googleID {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *authdomain.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) UpdateFields(_ context.Context, id string, fields map[string]interface{}) error {
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) Search(_ context.Context, term, excludeID string, limit int) ([]*authdomain.User, error) {
	return nil, nil
}

type sinkCall struct {
	kind       string
	taskID     string
	recipients []string
	target     string
	actor      Actor
}

type recordingSink struct {
	calls []sinkCall
}

func (s *recordingSink) TaskCreated(task *domain.Task, actor Actor) {
	s.calls = append(s.calls, sinkCall{kind: "created", taskID: task.ID, actor: actor})
}

func (s *recordingSink) TaskUpdated(task *domain.Task, actor Actor) {
	s.calls = append(s.calls, sinkCall{kind: "updated", taskID: task.ID, actor: actor})
}

func (s *recordingSink) TaskDeleted(taskID string, recipients []string, actor Actor) {
	s.calls = append(s.calls, sinkCall{kind: "deleted", taskID: taskID, recipients: recipients, actor: actor})
}

func (s *recordingSink) TaskShared(task *domain.Task, targetUserID string, permission domain.Permission, actor Actor) {
	s.calls = append(s.calls, sinkCall{kind: "shared", taskID: task.ID, target: targetUserID, actor: actor})
}

func newTestUsecase(t *testing.T, users ...*authdomain.User) (TaskUsecase, *fakeTaskRepo, *recordingSink) {
	t.Helper()
	repo := newFakeTaskRepo()
	sink := &recordingSink{}
	uc := NewTaskUsecase(repo, newFakeUserRepo(users...), nil, nil)
	uc.SetEventSink(sink)
	return uc, repo, sink
}

var (
	alice = Actor{ID: "alice", Name: "Alice"}
	bob   = Actor{ID: "bob", Name: "Bob"}
)

func TestCreate_Defaults(t *testing.T) {
	uc, _, _ := newTestUsecase(t)

	task, err := uc.Create(context.Background(), alice, CreateTaskRequest{Title: "  buy milk  "})
	require.NoError(t, err)
	require.Equal(t, "buy milk", task.Title)
	require.Equal(t, domain.StatusTodo, task.Status)
	require.Equal(t, domain.PriorityMedium, task.Priority)
	require.Equal(t, "alice", task.OwnerID)
	require.Nil(t, task.CompletedAt)
}

func TestCreate_Validation(t *testing.T) {
	uc, _, _ := newTestUsecase(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Hour).Format(time.RFC3339)

	tests := []struct {
		name string
		req  CreateTaskRequest
	}{
		{"empty title", CreateTaskRequest{Title: "   "}},
		{"title too long", CreateTaskRequest{Title: strings.Repeat("x", 201)}},
		{"description too long", CreateTaskRequest{Title: "ok", Description: strings.Repeat("x", 1001)}},
		{"invalid status", CreateTaskRequest{Title: "ok", Status: "done"}},
		{"invalid priority", CreateTaskRequest{Title: "ok", Priority: "urgent"}},
		{"malformed due date", CreateTaskRequest{Title: "ok", DueDate: ptr("tomorrow")}},
		{"past due date", CreateTaskRequest{Title: "ok", DueDate: &past}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Create(ctx, alice, tt.req)
			require.Error(t, err)
			require.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
		})
	}
}

func TestCreate_NotifiesOwnerChannel(t *testing.T) {
	uc, _, sink := newTestUsecase(t)

	task, err := uc.Create(context.Background(), alice, CreateTaskRequest{Title: "new work"})
	require.NoError(t, err)
	require.Len(t, sink.calls, 1)
	require.Equal(t, "created", sink.calls[0].kind)
	require.Equal(t, task.ID, sink.calls[0].taskID)
	require.Equal(t, "alice", sink.calls[0].actor.ID)
}

func TestCreate_CompletedSetsTimestamp(t *testing.T) {
	uc, _, _ := newTestUsecase(t)

	task, err := uc.Create(context.Background(), alice, CreateTaskRequest{Title: "done already", Status: "completed"})
	require.NoError(t, err)
	require.NotNil(t, task.CompletedAt)
}

func TestGetByID_Access(t *testing.T) {
	uc, repo, _ := newTestUsecase(t)
	ctx := context.Background()

	task, err := uc.Create(ctx, alice, CreateTaskRequest{Title: "private"})
	require.NoError(t, err)
	repo.tasks[task.ID].ShareWith("carol", domain.PermissionRead, time.Now())

	_, err = uc.GetByID(ctx, "alice", task.ID)
	require.NoError(t, err)

	_, err = uc.GetByID(ctx, "carol", task.ID)
	require.NoError(t, err)

	_, err = uc.GetByID(ctx, "bob", task.ID)
	require.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	_, err = uc.GetByID(ctx, "alice", "missing")
	require.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestUpdate_RequiresWritePermission(t *testing.T) {
	uc, repo, sink := newTestUsecase(t)
	ctx := context.Background()

	task, err := uc.Create(ctx, alice, CreateTaskRequest{Title: "draft"})
	require.NoError(t, err)
	repo.tasks[task.ID].ShareWith("bob", domain.PermissionRead, time.Now())
	repo.tasks[task.ID].ShareWith("carol", domain.PermissionWrite, time.Now())
	sink.calls = nil

	_, err = uc.Update(ctx, bob, task.ID, UpdateTaskRequest{Title: ptr("hacked")})
	require.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
	require.Empty(t, sink.calls)

	updated, err := uc.Update(ctx, Actor{ID: "carol", Name: "Carol"}, task.ID, UpdateTaskRequest{Title: ptr("revised")})
	require.NoError(t, err)
	require.Equal(t, "revised", updated.Title)
	require.Len(t, sink.calls, 1)
	require.Equal(t, "updated", sink.calls[0].kind)
	require.Equal(t, "carol", sink.calls[0].actor.ID)
}

func TestUpdate_StatusTransition(t *testing.T) {
	uc, _, _ := newTestUsecase(t)
	ctx := context.Background()

	task, err := uc.Create(ctx, alice, CreateTaskRequest{Title: "work"})
	require.NoError(t, err)

	updated, err := uc.Update(ctx, alice, task.ID, UpdateTaskRequest{Status: ptr("completed")})
	require.NoError(t, err)
	require.NotNil(t, updated.CompletedAt)

	updated, err = uc.Update(ctx, alice, task.ID, UpdateTaskRequest{Status: ptr("todo")})
	require.NoError(t, err)
	require.Nil(t, updated.CompletedAt)
}

func TestUpdate_EmptyPatchIsNoOp(t *testing.T) {
	uc, _, sink := newTestUsecase(t)
	ctx := context.Background()

	task, err := uc.Create(ctx, alice, CreateTaskRequest{Title: "stable"})
	require.NoError(t, err)
	sink.calls = nil

	_, err = uc.Update(ctx, alice, task.ID, UpdateTaskRequest{})
	require.NoError(t, err)
	require.Empty(t, sink.calls)
}

func TestUpdate_ClearDueDate(t *testing.T) {
	uc, _, _ := newTestUsecase(t)
	ctx := context.Background()
	future := time.Now().Add(time.Hour).Format(time.RFC3339)

	task, err := uc.Create(ctx, alice, CreateTaskRequest{Title: "timed", DueDate: &future})
	require.NoError(t, err)
	require.NotNil(t, task.DueDate)

	updated, err := uc.Update(ctx, alice, task.ID, UpdateTaskRequest{DueDate: ptr("")})
	require.NoError(t, err)
	require.Nil(t, updated.DueDate)
}

func TestDelete_OwnerOnly(t *testing.T) {
	uc, repo, sink := newTestUsecase(t)
	ctx := context.Background()

	task, err := uc.Create(ctx, alice, CreateTaskRequest{Title: "shared work"})
	require.NoError(t, err)
	repo.tasks[task.ID].ShareWith("bob", domain.PermissionWrite, time.Now())
	sink.calls = nil

	// Even a write share does not allow deletion.
	err = uc.Delete(ctx, bob, task.ID)
	require.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	require.NoError(t, uc.Delete(ctx, alice, task.ID))
	require.Len(t, sink.calls, 1)
	require.Equal(t, "deleted", sink.calls[0].kind)
	// Recipients were captured before the sharing rows went away.
	require.Equal(t, []string{"alice", "bob"}, sink.calls[0].recipients)
}

func TestShare_Flow(t *testing.T) {
	target := &authdomain.User{ID: "bob", Email: "bob@example.com", Name: "Bob", Preferences: authdomain.Preferences{Notifications: true}}
	uc, repo, sink := newTestUsecase(t, target)
	ctx := context.Background()

	task, err := uc.Create(ctx, alice, CreateTaskRequest{Title: "teamwork"})
	require.NoError(t, err)
	sink.calls = nil

	shared, err := uc.Share(ctx, alice, task.ID, "bob@example.com", "")
	require.NoError(t, err)
	require.Len(t, shared.SharedWith, 1)
	require.Equal(t, domain.PermissionRead, shared.SharedWith[0].Permission)
	require.Len(t, sink.calls, 1)
	require.Equal(t, "shared", sink.calls[0].kind)
	require.Equal(t, "bob", sink.calls[0].target)

	// Re-sharing upgrades the permission without duplicating the entry.
	shared, err = uc.Share(ctx, alice, task.ID, "bob@example.com", "write")
	require.NoError(t, err)
	require.Len(t, shared.SharedWith, 1)
	require.Equal(t, domain.PermissionWrite, shared.SharedWith[0].Permission)

	_, err = uc.Share(ctx, bob, task.ID, "bob@example.com", "read")
	require.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	_, err = uc.Share(ctx, alice, task.ID, "nobody@example.com", "read")
	require.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	_, err = uc.Share(ctx, alice, task.ID, "bob@example.com", "admin")
	require.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))

	require.NotNil(t, repo.tasks[task.ID])
}

func TestShare_SelfShareRejected(t *testing.T) {
	self := &authdomain.User{ID: "alice", Email: "alice@example.com", Name: "Alice"}
	uc, _, _ := newTestUsecase(t, self)
	ctx := context.Background()

	task, err := uc.Create(ctx, alice, CreateTaskRequest{Title: "mine"})
	require.NoError(t, err)

	_, err = uc.Share(ctx, alice, task.ID, "alice@example.com", "read")
	require.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
}

func TestUnshare_Idempotent(t *testing.T) {
	target := &authdomain.User{ID: "bob", Email: "bob@example.com", Name: "Bob"}
	uc, _, sink := newTestUsecase(t, target)
	ctx := context.Background()

	task, err := uc.Create(ctx, alice, CreateTaskRequest{Title: "teamwork"})
	require.NoError(t, err)
	_, err = uc.Share(ctx, alice, task.ID, "bob@example.com", "read")
	require.NoError(t, err)
	sink.calls = nil

	result, err := uc.Unshare(ctx, alice, task.ID, "bob")
	require.NoError(t, err)
	require.Empty(t, result.SharedWith)
	require.Len(t, sink.calls, 1)

	// Revoking again is a no-op and emits nothing.
	sink.calls = nil
	_, err = uc.Unshare(ctx, alice, task.ID, "bob")
	require.NoError(t, err)
	require.Empty(t, sink.calls)
}

func TestList_Validation(t *testing.T) {
	uc, _, _ := newTestUsecase(t)
	ctx := context.Background()

	_, err := uc.List(ctx, "alice", ListOptions{Status: "done"})
	require.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))

	_, err = uc.List(ctx, "alice", ListOptions{Priority: "urgent"})
	require.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))

	// Oversized page sizes are capped, not rejected.
	page, err := uc.List(ctx, "alice", ListOptions{PageSize: 10000})
	require.NoError(t, err)
	require.Equal(t, 100, page.PageSize)
	require.NotNil(t, page.Items)
}

func ptr[T any](v T) *T { return &v }
