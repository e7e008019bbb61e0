package usecase

import (
	"context"
	"time"

	authdomain "taskhub-backend/internal/auth/domain"
	taskdomain "taskhub-backend/internal/task/domain"
)

// PreferencesPatch updates individual preference fields.
type PreferencesPatch struct {
	Theme         *string `json:"theme"`
	Notifications *bool   `json:"notifications"`
}

// UpdateProfileRequest is a patch over the mutable profile fields.
type UpdateProfileRequest struct {
	Name        *string           `json:"name"`
	Email       *string           `json:"email"`
	Preferences *PreferencesPatch `json:"preferences"`
}

// UserStats summarizes a user's task activity. Completed and overdue counts
// cover owned tasks only.
type UserStats struct {
	TotalOwnedTasks  int64 `json:"total_owned_tasks"`
	TotalSharedTasks int64 `json:"total_shared_tasks"`
	CompletedTasks   int64 `json:"completed_tasks"`
	OverdueTasks     int64 `json:"overdue_tasks"`
}

// ExportData is the full account data bundle for GET /users/export.
type ExportData struct {
	User       *authdomain.User   `json:"user"`
	OwnedTasks []*taskdomain.Task `json:"owned_tasks"`
	SharedTasks []*taskdomain.Task `json:"shared_tasks"`
	Stats      UserStats          `json:"stats"`
	ExportedAt time.Time          `json:"exported_at"`
}

// UserUsecase covers profile and account management.
type UserUsecase interface {
	UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*authdomain.User, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	Search(ctx context.Context, userID, term string, limit int) ([]authdomain.PublicProfile, error)
	Stats(ctx context.Context, userID string) (*UserStats, error)
	Deactivate(ctx context.Context, userID string) error
	Reactivate(ctx context.Context, userID string) error
	Export(ctx context.Context, userID string) (*ExportData, error)

	// DeleteAccount removes the user, every task they own, and their entries in
	// other users' sharing sets, atomically.
	DeleteAccount(ctx context.Context, userID string) error
}
