package response

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"runtime/debug"

	"taskhub-backend/internal/apperr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Envelope is the response wrapper shared by every endpoint.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Status  string      `json:"status,omitempty"` // "fail" for 4xx, "error" for 5xx
	Stack   string      `json:"stack,omitempty"`  // only outside production
}

// OK writes a success envelope.
func OK(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

// Fail writes an error envelope derived from err's classification. Unclassified
// errors are logged with full detail and surfaced as a generic 500.
func Fail(c *gin.Context, logger *zap.Logger, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	code := apperr.CodeOf(err)
	status := apperr.HTTPStatus(code)

	message := err.Error()
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		logger.Error("unhandled error",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		message = "something went wrong"
	}

	env := Envelope{
		Success: false,
		Message: message,
		Status:  statusWord(status),
	}
	if !production() {
		env.Stack = fmt.Sprintf("%+v\n%s", err, debug.Stack())
	}

	if code == apperr.CodeRateLimited {
		c.Header("Retry-After", c.GetString("retry_after"))
	}

	c.AbortWithStatusJSON(status, env)
}

func statusWord(status int) string {
	if status >= http.StatusInternalServerError {
		return "error"
	}
	return "fail"
}

func production() bool {
	return os.Getenv("APP_ENV") == "production"
}
