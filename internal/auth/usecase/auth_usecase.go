package usecase

import (
	"context"
	"time"

	authdomain "taskhub-backend/internal/auth/domain"
	authdto "taskhub-backend/internal/auth/dto"
	"taskhub-backend/internal/auth/repository"

	"github.com/golang-jwt/jwt/v5"

	"taskhub-backend/internal/apperr"
	"taskhub-backend/pkg/config"
	"taskhub-backend/pkg/googleauth"
)

// authUsecase implements AuthUsecase.
type authUsecase struct {
	userRepo repository.UserRepository
	verifier googleauth.Verifier
	config   *config.Config
}

func NewAuthUsecase(userRepo repository.UserRepository, verifier googleauth.Verifier, cfg *config.Config) AuthUsecase {
	return &authUsecase{
		userRepo: userRepo,
		verifier: verifier,
		config:   cfg,
	}
}

func (u *authUsecase) GoogleSignIn(ctx context.Context, idToken string) (*authdto.AuthResponse, error) {
	identity, err := u.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}

	if !identity.EmailVerified {
		return nil, apperr.Unauthenticated("email is not verified with the identity provider")
	}

	user, err := u.userRepo.FindByGoogleID(ctx, identity.Subject)
	if err != nil {
		return nil, err
	}

	if user == nil {
		// A pre-existing account with the same email gets linked instead of duplicated.
		user, err = u.userRepo.FindByEmail(ctx, identity.Email)
		if err != nil {
			return nil, err
		}

		if user != nil {
			user.GoogleID = &identity.Subject
			user.AvatarURL = identity.Picture
			user.LastLoginAt = time.Now()
			if err := u.userRepo.Update(ctx, user); err != nil {
				return nil, err
			}
		} else {
			user = &authdomain.User{
				GoogleID:    &identity.Subject,
				Email:       identity.Email,
				Name:        identity.Name,
				AvatarURL:   identity.Picture,
				IsActive:    true,
				LastLoginAt: time.Now(),
				Preferences: authdomain.Preferences{Theme: "light", Notifications: true},
			}
			if err := u.userRepo.Create(ctx, user); err != nil {
				return nil, err
			}
		}
	} else {
		user.Name = identity.Name
		user.AvatarURL = identity.Picture
		user.LastLoginAt = time.Now()
		if err := u.userRepo.Update(ctx, user); err != nil {
			return nil, err
		}
	}

	token, err := u.IssueToken(user.ID)
	if err != nil {
		return nil, err
	}

	return &authdto.AuthResponse{User: user, Token: token}, nil
}

func (u *authUsecase) Refresh(ctx context.Context, userID string) (*authdto.AuthResponse, error) {
	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, apperr.Unauthenticated("user not found or inactive")
	}

	token, err := u.IssueToken(user.ID)
	if err != nil {
		return nil, err
	}

	return &authdto.AuthResponse{User: user, Token: token}, nil
}

func (u *authUsecase) IssueToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     now.Add(u.config.JWTExpiry).Unix(),
		"iat":     now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(u.config.JWTSecret))
}

func (u *authUsecase) ValidateToken(ctx context.Context, tokenString string) (*authdomain.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.Unauthenticated("unexpected signing method")
		}
		return []byte(u.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, apperr.Unauthenticated("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperr.Unauthenticated("invalid token claims")
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil, apperr.Unauthenticated("invalid token claims")
	}

	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.Unauthenticated("invalid token, user not found")
	}

	return user, nil
}
