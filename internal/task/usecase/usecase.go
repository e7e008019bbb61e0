package usecase

import (
	"context"

	"taskhub-backend/internal/task/domain"
	"taskhub-backend/internal/task/repository"
)

// Actor identifies the user performing a mutation, carried through so fan-out can
// exclude them and name them in events without extra lookups.
type Actor struct {
	ID   string
	Name string
}

// CreateTaskRequest carries validated creation fields. Zero values fall back to
// the todo/medium defaults.
type CreateTaskRequest struct {
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     *string // RFC3339
	Tags        []string
	IsPublic    bool
}

// UpdateTaskRequest is a patch: nil fields are left untouched. An empty due-date
// string clears the due date.
type UpdateTaskRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Status      *string   `json:"status"`
	Priority    *string   `json:"priority"`
	DueDate     *string   `json:"due_date"`
	Tags        *[]string `json:"tags"`
	IsPublic    *bool     `json:"is_public"`
}

// ListOptions mirror the query string of GET /tasks.
type ListOptions struct {
	Status    string
	Priority  string
	Search    string
	Overdue   bool
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

// TaskPage is a slice of the unified owned∪shared view.
type TaskPage struct {
	Items      []*domain.Task `json:"items"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalCount int64          `json:"total_count"`
	TotalPages int64          `json:"total_pages"`
}

// EventSink receives successful mutations for realtime fan-out. Implementations
// must not block; a nil sink disables push.
type EventSink interface {
	// TaskCreated goes to the owner's personal channel so their other sessions
	// pick up the new task.
	TaskCreated(task *domain.Task, actor Actor)
	// TaskUpdated goes to every interested user's personal channel except the actor.
	TaskUpdated(task *domain.Task, actor Actor)
	// TaskDeleted carries only the id; recipients were computed before deletion.
	TaskDeleted(taskID string, recipients []string, actor Actor)
	// TaskShared goes to the new collaborator's personal channel.
	TaskShared(task *domain.Task, targetUserID string, permission domain.Permission, actor Actor)
}

// TaskUsecase is the mutation and query surface for tasks. Every mutation
// authorizes through the pure access decision before touching the store, on both
// the HTTP and the websocket path.
type TaskUsecase interface {
	Create(ctx context.Context, actor Actor, req CreateTaskRequest) (*domain.Task, error)
	GetByID(ctx context.Context, userID, taskID string) (*domain.Task, error)
	List(ctx context.Context, userID string, opts ListOptions) (*TaskPage, error)
	Stats(ctx context.Context, userID string) (*repository.Stats, error)
	Update(ctx context.Context, actor Actor, taskID string, req UpdateTaskRequest) (*domain.Task, error)
	Delete(ctx context.Context, actor Actor, taskID string) error
	Share(ctx context.Context, actor Actor, taskID, email string, permission string) (*domain.Task, error)
	Unshare(ctx context.Context, actor Actor, taskID, targetUserID string) (*domain.Task, error)

	// SetEventSink wires the realtime hub after construction (the hub needs the
	// usecase for its own handlers).
	SetEventSink(sink EventSink)
}
