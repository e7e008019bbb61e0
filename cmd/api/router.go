package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authdelivery "taskhub-backend/internal/auth/delivery"
	taskdelivery "taskhub-backend/internal/task/delivery"
	userdelivery "taskhub-backend/internal/user/delivery"
	"taskhub-backend/pkg/ratelimit"
)

func (h *Handler) setupRoutes(r *gin.Engine) {
	authHandler := authdelivery.NewAuthHandler(h.authUsecase, h.limiter, h.logger)
	taskHandler := taskdelivery.NewTaskHandler(h.taskUsecase, h.logger)
	userHandler := userdelivery.NewUserHandler(h.userUsecase, h.logger)

	requireAuth := authdelivery.AuthMiddleware(h.authUsecase, h.logger)
	allowInactive := authdelivery.AuthMiddlewareAllowInactive(h.authUsecase, h.logger)

	api := r.Group("/api")
	api.Use(ratelimit.Middleware(h.limiter, "api", h.config.RateLimitMax, h.config.RateLimitWindow, h.logger))
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Websocket endpoint; authenticates via token query param or header
		api.GET("/ws", h.wsHandler.ServeWS)

		// Auth routes
		auth := api.Group("/auth")
		auth.Use(ratelimit.Middleware(h.limiter, "auth", h.config.AuthLimitMax, h.config.AuthLimitWindow, h.logger))
		{
			auth.POST("/google", authHandler.GoogleSignIn)
			auth.POST("/refresh", requireAuth, authHandler.Refresh)
			auth.GET("/profile", requireAuth, authHandler.Profile)
			auth.POST("/logout", requireAuth, authHandler.Logout)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", ratelimit.Middleware(h.limiter, "task-create", h.config.TaskCreateMax, h.config.TaskCreateWindow, h.logger), taskHandler.CreateTask)
			tasks.GET("/stats", taskHandler.TaskStats)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.PUT("/:id", taskHandler.UpdateTask)
			tasks.DELETE("/:id", taskHandler.DeleteTask)
			tasks.POST("/:id/share", taskHandler.ShareTask)
			tasks.DELETE("/:id/share/:userId", taskHandler.RemoveShare)
		}

		// User routes (protected)
		users := api.Group("/users")
		{
			users.GET("/profile", requireAuth, userHandler.GetProfile)
			users.PUT("/profile", requireAuth, userHandler.UpdateProfile)
			users.POST("/change-password", requireAuth, userHandler.ChangePassword)
			users.GET("/search", requireAuth, userHandler.SearchUsers)
			users.GET("/stats", requireAuth, userHandler.UserStats)
			users.POST("/deactivate", requireAuth, userHandler.Deactivate)
			users.POST("/reactivate", allowInactive, userHandler.Reactivate)
			users.GET("/export", requireAuth, userHandler.Export)
			users.DELETE("/account", requireAuth, userHandler.DeleteAccount)
		}
	}
}
