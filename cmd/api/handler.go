package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	authusecase "taskhub-backend/internal/auth/usecase"
	"taskhub-backend/internal/realtime"
	taskusecase "taskhub-backend/internal/task/usecase"
	userusecase "taskhub-backend/internal/user/usecase"
	"taskhub-backend/pkg/config"
	"taskhub-backend/pkg/ratelimit"
)

// Handler wires the use cases into an HTTP server.
type Handler struct {
	authUsecase authusecase.AuthUsecase
	taskUsecase taskusecase.TaskUsecase
	userUsecase userusecase.UserUsecase
	wsHandler   *realtime.Handler
	limiter     *ratelimit.Limiter
	config      *config.Config
	logger      *zap.Logger
}

func NewHandler(
	authUsecase authusecase.AuthUsecase,
	taskUsecase taskusecase.TaskUsecase,
	userUsecase userusecase.UserUsecase,
	wsHandler *realtime.Handler,
	limiter *ratelimit.Limiter,
	cfg *config.Config,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		authUsecase: authUsecase,
		taskUsecase: taskUsecase,
		userUsecase: userUsecase,
		wsHandler:   wsHandler,
		limiter:     limiter,
		config:      cfg,
		logger:      logger,
	}
}

// Start configures the engine and blocks serving on addr.
func (h *Handler) Start(addr string) error {
	if h.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(h.corsMiddleware())

	h.setupRoutes(r)

	return r.Run(addr)
}

func (h *Handler) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == h.config.FrontendURL {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else if !h.config.IsProduction() && origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
