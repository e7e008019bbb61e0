package usecase

import (
	"context"
	"strings"
	"time"

	authdomain "taskhub-backend/internal/auth/domain"
	authrepo "taskhub-backend/internal/auth/repository"
	taskdomain "taskhub-backend/internal/task/domain"
	taskrepo "taskhub-backend/internal/task/repository"

	"go.uber.org/zap"

	"taskhub-backend/internal/apperr"
)

const minPasswordLen = 8

// userUsecase implements UserUsecase.
type userUsecase struct {
	userRepo authrepo.UserRepository
	taskRepo taskrepo.TaskRepository
	logger   *zap.Logger
}

func NewUserUsecase(userRepo authrepo.UserRepository, taskRepo taskrepo.TaskRepository, logger *zap.Logger) UserUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &userUsecase{userRepo: userRepo, taskRepo: taskRepo, logger: logger}
}

func (u *userUsecase) loadUser(ctx context.Context, userID string) (*authdomain.User, error) {
	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFound("user not found")
	}
	return user, nil
}

func (u *userUsecase) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*authdomain.User, error) {
	user, err := u.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperr.InvalidArgument("name cannot be empty")
		}
		user.Name = name
	}

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email == "" {
			return nil, apperr.InvalidArgument("email cannot be empty")
		}
		if email != user.Email {
			existing, err := u.userRepo.FindByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if existing != nil && existing.ID != userID {
				return nil, apperr.InvalidArgument("email is already taken")
			}
			user.Email = email
		}
	}

	if req.Preferences != nil {
		if req.Preferences.Theme != nil {
			theme := *req.Preferences.Theme
			if theme != "light" && theme != "dark" {
				return nil, apperr.InvalidArgument("theme must be light or dark")
			}
			user.Preferences.Theme = theme
		}
		if req.Preferences.Notifications != nil {
			user.Preferences.Notifications = *req.Preferences.Notifications
		}
	}

	if err := u.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (u *userUsecase) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := u.loadUser(ctx, userID)
	if err != nil {
		return err
	}

	// Provider-only accounts have no password to change.
	if user.Password == "" {
		return apperr.InvalidArgument("password change is not available for identity-provider accounts")
	}
	if !authrepo.CheckPasswordHash(currentPassword, user.Password) {
		return apperr.InvalidArgument("current password is incorrect")
	}
	if len(newPassword) < minPasswordLen {
		return apperr.InvalidArgument("new password must be at least 8 characters")
	}

	hashed, err := authrepo.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return u.userRepo.UpdateFields(ctx, userID, map[string]interface{}{"password": hashed})
}

func (u *userUsecase) Search(ctx context.Context, userID, term string, limit int) ([]authdomain.PublicProfile, error) {
	term = strings.TrimSpace(term)
	if len(term) < 2 {
		return nil, apperr.InvalidArgument("search term must be at least 2 characters")
	}
	if limit < 1 || limit > 50 {
		limit = 10
	}

	users, err := u.userRepo.Search(ctx, term, userID, limit)
	if err != nil {
		return nil, err
	}

	profiles := make([]authdomain.PublicProfile, 0, len(users))
	for _, user := range users {
		profiles = append(profiles, user.Public())
	}
	return profiles, nil
}

func (u *userUsecase) Stats(ctx context.Context, userID string) (*UserStats, error) {
	owned, err := u.taskRepo.ListOwned(ctx, userID)
	if err != nil {
		return nil, err
	}
	shared, err := u.taskRepo.ListSharedWith(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &UserStats{
		TotalOwnedTasks:  int64(len(owned)),
		TotalSharedTasks: int64(len(shared)),
	}
	now := time.Now()
	for _, task := range owned {
		if task.Status == taskdomain.StatusCompleted {
			stats.CompletedTasks++
		}
		if task.IsOverdue(now) {
			stats.OverdueTasks++
		}
	}
	return stats, nil
}

func (u *userUsecase) Deactivate(ctx context.Context, userID string) error {
	if _, err := u.loadUser(ctx, userID); err != nil {
		return err
	}
	return u.userRepo.UpdateFields(ctx, userID, map[string]interface{}{"is_active": false})
}

func (u *userUsecase) Reactivate(ctx context.Context, userID string) error {
	if _, err := u.loadUser(ctx, userID); err != nil {
		return err
	}
	return u.userRepo.UpdateFields(ctx, userID, map[string]interface{}{"is_active": true})
}

func (u *userUsecase) Export(ctx context.Context, userID string) (*ExportData, error) {
	user, err := u.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	owned, err := u.taskRepo.ListOwned(ctx, userID)
	if err != nil {
		return nil, err
	}
	shared, err := u.taskRepo.ListSharedWith(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats, err := u.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &ExportData{
		User:        user,
		OwnedTasks:  owned,
		SharedTasks: shared,
		Stats:       *stats,
		ExportedAt:  time.Now(),
	}, nil
}

func (u *userUsecase) DeleteAccount(ctx context.Context, userID string) error {
	if _, err := u.loadUser(ctx, userID); err != nil {
		return err
	}
	if err := u.taskRepo.PurgeUser(ctx, userID); err != nil {
		return err
	}
	u.logger.Info("account deleted", zap.String("user_id", userID))
	return nil
}
