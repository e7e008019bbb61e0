package usecase

import (
	"context"

	authdomain "taskhub-backend/internal/auth/domain"
	authdto "taskhub-backend/internal/auth/dto"
)

// AuthUsecase signs users in through the identity provider and manages session tokens.
type AuthUsecase interface {
	// GoogleSignIn verifies the provider credential and finds, links, or creates
	// the matching account.
	GoogleSignIn(ctx context.Context, idToken string) (*authdto.AuthResponse, error)

	// Refresh issues a new session token for an already-authenticated user. The
	// previous token stays valid until it expires; there is no revocation store.
	Refresh(ctx context.Context, userID string) (*authdto.AuthResponse, error)

	// IssueToken produces a signed session token for the user id.
	IssueToken(userID string) (string, error)

	// ValidateToken checks signature and expiry and resolves the account record.
	ValidateToken(ctx context.Context, token string) (*authdomain.User, error)
}
