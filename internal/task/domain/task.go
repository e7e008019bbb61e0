package domain

import "time"

// Status is the task lifecycle state.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Priority is the task urgency level.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ShareEntry grants a non-owner access to a task. The composite primary key keeps
// at most one entry per (task, user).
type ShareEntry struct {
	TaskID     string     `json:"-" gorm:"primaryKey"`
	UserID     string     `json:"user_id" gorm:"primaryKey;index"`
	Permission Permission `json:"permission" gorm:"not null;default:read"`
	GrantedAt  time.Time  `json:"granted_at"`
}

func (ShareEntry) TableName() string { return "task_shares" }

// Task is a to-do item owned by exactly one user and optionally shared with others.
type Task struct {
	ID           string       `json:"id" gorm:"primaryKey"`
	Title        string       `json:"title" gorm:"size:200;not null"`
	Description  string       `json:"description,omitempty" gorm:"size:1000"`
	Status       Status       `json:"status" gorm:"index;default:todo"`
	Priority     Priority     `json:"priority" gorm:"index;default:medium"`
	DueDate      *time.Time   `json:"due_date,omitempty"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
	OwnerID      string       `json:"owner_id" gorm:"index;not null"`
	SharedWith   []ShareEntry `json:"shared_with" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	Tags         []string     `json:"tags" gorm:"serializer:json"`
	IsPublic     bool         `json:"is_public" gorm:"default:false"`
	ReminderSent bool         `json:"-" gorm:"default:false"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// SetStatus applies a status change together with the completion-timestamp
// invariant: completed_at is non-null exactly while status is completed.
func (t *Task) SetStatus(s Status, now time.Time) {
	prev := t.Status
	t.Status = s
	switch {
	case s == StatusCompleted && prev != StatusCompleted:
		t.CompletedAt = &now
	case s != StatusCompleted:
		t.CompletedAt = nil
	}
}

// IsOverdue reports whether the task is past its due date and not completed.
// Derived, never stored.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.Status == StatusCompleted {
		return false
	}
	return now.After(*t.DueDate)
}

// ShareIndex returns the position of userID's share entry, or -1.
func (t *Task) ShareIndex(userID string) int {
	for i, share := range t.SharedWith {
		if share.UserID == userID {
			return i
		}
	}
	return -1
}

// Upsert of a sharing entry: an existing entry gets the new permission and
// timestamp in place, never a duplicate row.
func (t *Task) ShareWith(userID string, permission Permission, now time.Time) {
	if i := t.ShareIndex(userID); i >= 0 {
		t.SharedWith[i].Permission = permission
		t.SharedWith[i].GrantedAt = now
		return
	}
	t.SharedWith = append(t.SharedWith, ShareEntry{
		TaskID:     t.ID,
		UserID:     userID,
		Permission: permission,
		GrantedAt:  now,
	})
}

// RemoveShare drops userID's entry if present. Removing an absent share is a no-op.
func (t *Task) RemoveShare(userID string) bool {
	if i := t.ShareIndex(userID); i >= 0 {
		t.SharedWith = append(t.SharedWith[:i], t.SharedWith[i+1:]...)
		return true
	}
	return false
}

// InterestedUserIDs is the set of users whose views a mutation of this task can
// change: the owner plus everyone in the sharing set.
func (t *Task) InterestedUserIDs() []string {
	ids := make([]string, 0, len(t.SharedWith)+1)
	ids = append(ids, t.OwnerID)
	for _, share := range t.SharedWith {
		ids = append(ids, share.UserID)
	}
	return ids
}
