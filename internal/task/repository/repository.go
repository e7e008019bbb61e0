package repository

import (
	"context"

	"taskhub-backend/internal/task/domain"
)

// ListFilters narrows and orders the unified owned∪shared view.
type ListFilters struct {
	Status    *domain.Status
	Priority  *domain.Priority
	Search    string
	Overdue   bool
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

// Stats are the derived counters over a user's visible set.
type Stats struct {
	Total      int64                     `json:"total"`
	ByStatus   map[domain.Status]int64   `json:"by_status"`
	ByPriority map[domain.Priority]int64 `json:"by_priority"`
	Overdue    int64                     `json:"overdue"`
}

// TaskRepository owns task documents and their sharing rows.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error

	// FindByID loads the task with its sharing set, or nil when absent.
	FindByID(ctx context.Context, id string) (*domain.Task, error)

	// UpdateFields applies a column-level patch so concurrent edits to other
	// fields are never clobbered by a whole-row replace.
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error

	Delete(ctx context.Context, id string) error

	// ListVisible pages over the deduplicated set of tasks the user owns or is
	// shared on, with all filters applied as one combined predicate. Returns the
	// page plus the true total of the filtered set.
	ListVisible(ctx context.Context, userID string, f ListFilters) ([]*domain.Task, int64, error)

	// StatsFor aggregates counters over the same visible set ListVisible uses.
	StatsFor(ctx context.Context, userID string) (*Stats, error)

	// ListOwned returns every task the user owns; ListSharedWith every task
	// shared with them. Used by the account export.
	ListOwned(ctx context.Context, userID string) ([]*domain.Task, error)
	ListSharedWith(ctx context.Context, userID string) ([]*domain.Task, error)

	// UpsertShare inserts or refreshes a sharing row atomically.
	UpsertShare(ctx context.Context, share *domain.ShareEntry) error

	// DeleteShare removes a sharing row; reports whether one existed.
	DeleteShare(ctx context.Context, taskID, userID string) (bool, error)

	// PurgeUser deletes the user's owned tasks (with their shares), strips the
	// user from every other task's sharing set, and removes the account record,
	// all in one transaction.
	PurgeUser(ctx context.Context, userID string) error

	// FindDueForReminder returns not-completed tasks whose due date falls inside
	// (now, now+window] and whose reminder has not been sent yet.
	FindDueForReminder(ctx context.Context, window ReminderWindow) ([]*domain.Task, error)
	MarkReminderSent(ctx context.Context, id string) error
}
