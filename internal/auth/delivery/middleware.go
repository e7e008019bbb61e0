package delivery

import (
	"strings"

	"taskhub-backend/internal/auth/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskhub-backend/internal/apperr"
	"taskhub-backend/pkg/response"
)

// AuthMiddleware validates the bearer token and requires an active account.
func AuthMiddleware(authUsecase usecase.AuthUsecase, logger *zap.Logger) gin.HandlerFunc {
	return authenticate(authUsecase, logger, false)
}

// AuthMiddlewareAllowInactive admits deactivated accounts; only the reactivation
// endpoint uses it.
func AuthMiddlewareAllowInactive(authUsecase usecase.AuthUsecase, logger *zap.Logger) gin.HandlerFunc {
	return authenticate(authUsecase, logger, true)
}

func authenticate(authUsecase usecase.AuthUsecase, logger *zap.Logger, allowInactive bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Fail(c, logger, apperr.Unauthenticated("authorization header required"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Fail(c, logger, apperr.Unauthenticated("invalid authorization header format"))
			return
		}

		user, err := authUsecase.ValidateToken(c.Request.Context(), parts[1])
		if err != nil {
			response.Fail(c, logger, err)
			return
		}

		if !user.IsActive && !allowInactive {
			response.Fail(c, logger, apperr.Unauthenticated("account is deactivated"))
			return
		}

		c.Set("user", user)
		c.Set("userID", user.ID)
		c.Next()
	}
}
