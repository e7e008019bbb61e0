package delivery

import (
	"net/http"

	authdto "taskhub-backend/internal/auth/dto"
	"taskhub-backend/internal/auth/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskhub-backend/internal/apperr"
	"taskhub-backend/pkg/ratelimit"
	"taskhub-backend/pkg/response"
)

// AuthHandler exposes sign-in, refresh, profile and logout.
type AuthHandler struct {
	authUsecase usecase.AuthUsecase
	limiter     *ratelimit.Limiter
	logger      *zap.Logger
}

func NewAuthHandler(authUsecase usecase.AuthUsecase, limiter *ratelimit.Limiter, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{authUsecase: authUsecase, limiter: limiter, logger: logger}
}

// GoogleSignIn handles POST /api/auth/google.
func (h *AuthHandler) GoogleSignIn(c *gin.Context) {
	var req authdto.GoogleSignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, h.logger, apperr.InvalidArgument("id_token is required"))
		return
	}

	result, err := h.authUsecase.GoogleSignIn(c.Request.Context(), req.IDToken)
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}

	// A successful sign-in clears this client's failed-attempt window.
	if h.limiter != nil {
		if err := h.limiter.Reset(c.Request.Context(), "auth:"+ratelimit.ClientKey(c)); err != nil {
			h.logger.Debug("failed to reset auth rate limit", zap.Error(err))
		}
	}

	response.OK(c, http.StatusOK, "authenticated successfully", result)
}

// Refresh handles POST /api/auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	result, err := h.authUsecase.Refresh(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}

	response.OK(c, http.StatusOK, "token refreshed", result)
}

// Profile handles GET /api/auth/profile.
func (h *AuthHandler) Profile(c *gin.Context) {
	user, _ := c.Get("user")
	response.OK(c, http.StatusOK, "", gin.H{"user": user})
}

// Logout handles POST /api/auth/logout. Tokens are stateless, so logout is a
// client-side discard; the endpoint only acknowledges.
func (h *AuthHandler) Logout(c *gin.Context) {
	response.OK(c, http.StatusOK, "logged out successfully", nil)
}
