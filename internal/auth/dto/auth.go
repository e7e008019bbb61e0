package dto

import authdomain "taskhub-backend/internal/auth/domain"

// GoogleSignInRequest carries the identity provider credential.
type GoogleSignInRequest struct {
	IDToken string `json:"id_token" binding:"required"`
}

// AuthResponse is returned from sign-in and refresh.
type AuthResponse struct {
	User  *authdomain.User `json:"user"`
	Token string           `json:"token"`
}
