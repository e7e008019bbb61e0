package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	authdomain "taskhub-backend/internal/auth/domain"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"taskhub-backend/internal/apperr"
)

// userRepository implements UserRepository on GORM.
type userRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewUserRepository(db *gorm.DB, timeout time.Duration) UserRepository {
	return &userRepository{db: db, timeout: timeout}
}

// opCtx bounds a store call so a hung database surfaces as Unavailable instead
// of stalling the request. A non-positive timeout leaves the context unbounded.
func (r *userRepository) opCtx(parent context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return parent, func() {}
	}
	return context.WithTimeout(parent, r.timeout)
}

func (r *userRepository) Create(ctx context.Context, user *authdomain.User) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.InvalidArgument("email is already taken")
		}
		return wrapDB(err)
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*authdomain.User, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	var user authdomain.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, wrapDB(err)
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*authdomain.User, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	var user authdomain.User
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, wrapDB(err)
	}
	return &user, nil
}

func (r *userRepository) FindByGoogleID(ctx context.Context, googleID string) (*authdomain.User, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	var user authdomain.User
	err := r.db.WithContext(ctx).Where("google_id = ?", googleID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, wrapDB(err)
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *authdomain.User) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	user.UpdatedAt = time.Now()
	return wrapDB(r.db.WithContext(ctx).Save(user).Error)
}

func (r *userRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	fields["updated_at"] = time.Now()
	return wrapDB(r.db.WithContext(ctx).
		Model(&authdomain.User{}).
		Where("id = ?", id).
		Updates(fields).Error)
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	return wrapDB(r.db.WithContext(ctx).Delete(&authdomain.User{}, "id = ?", id).Error)
}

func (r *userRepository) Search(ctx context.Context, term, excludeID string, limit int) ([]*authdomain.User, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	var users []*authdomain.User
	pattern := "%" + strings.ToLower(term) + "%"
	err := r.db.WithContext(ctx).
		Where("(LOWER(name) LIKE ? OR LOWER(email) LIKE ?) AND id <> ? AND is_active = ?",
			pattern, pattern, excludeID, true).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, wrapDB(err)
	}
	return users, nil
}

// wrapDB classifies store failures so callers can tell retryable outages apart
// from programming errors.
func wrapDB(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperr.Wrap(apperr.CodeUnavailable, "storage timeout", err)
	}
	return err
}

// HashPassword hashes a password using bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with a hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
