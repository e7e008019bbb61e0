package repository

import (
	"context"

	authdomain "taskhub-backend/internal/auth/domain"
)

// UserRepository is the user directory: lookup by internal id, provider id, or email.
type UserRepository interface {
	Create(ctx context.Context, user *authdomain.User) error
	FindByID(ctx context.Context, id string) (*authdomain.User, error)
	FindByEmail(ctx context.Context, email string) (*authdomain.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*authdomain.User, error)
	Update(ctx context.Context, user *authdomain.User) error
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, term, excludeID string, limit int) ([]*authdomain.User, error)
}
