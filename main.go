package main

import (
	"log"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	api "taskhub-backend/cmd/api"
	authdomain "taskhub-backend/internal/auth/domain"
	authrepo "taskhub-backend/internal/auth/repository"
	authusecase "taskhub-backend/internal/auth/usecase"
	"taskhub-backend/internal/notification"
	"taskhub-backend/internal/realtime"
	taskdomain "taskhub-backend/internal/task/domain"
	taskrepo "taskhub-backend/internal/task/repository"
	"taskhub-backend/internal/task/scheduler"
	taskusecase "taskhub-backend/internal/task/usecase"
	userusecase "taskhub-backend/internal/user/usecase"
	"taskhub-backend/pkg/config"
	"taskhub-backend/pkg/database"
	"taskhub-backend/pkg/googleauth"
	"taskhub-backend/pkg/logger"
	"taskhub-backend/pkg/ratelimit"
)

func main() {
	cfg := config.Load()

	zlog, err := logger.New(cfg.IsProduction())
	if err != nil {
		log.Fatal("failed to initialize logger:", err)
	}
	defer zlog.Sync()

	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(&authdomain.User{}, &taskdomain.Task{}, &taskdomain.ShareEntry{}); err != nil {
		zlog.Fatal("failed to migrate database", zap.Error(err))
	}

	// Redis is optional; without it rate limiting is disabled.
	var limiter *ratelimit.Limiter
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		limiter = ratelimit.NewLimiter(redisClient, "ratelimit:")
		zlog.Info("rate limiting enabled", zap.String("redis_addr", cfg.RedisAddr))
	} else {
		zlog.Warn("REDIS_ADDR not configured, rate limiting disabled")
	}

	mailer := notification.NewSMTPMailer(cfg, zlog)
	if mailer == nil {
		zlog.Warn("SMTP_HOST not configured, email notifications disabled")
	}

	userRepo := authrepo.NewUserRepository(db, cfg.StoreTimeout)
	taskRepo := taskrepo.NewGormTaskRepository(db, cfg.StoreTimeout)

	authUC := authusecase.NewAuthUsecase(userRepo, googleauth.NewTokenInfoVerifier(), cfg)
	taskUC := taskusecase.NewTaskUsecase(taskRepo, userRepo, mailer, zlog)
	userUC := userusecase.NewUserUsecase(userRepo, taskRepo, zlog)

	hub := realtime.NewHub(zlog)
	taskUC.SetEventSink(hub)
	wsHandler := realtime.NewHandler(hub, authUC, taskUC, zlog)

	reminders := scheduler.New(taskRepo, userRepo, mailer, hub, cfg, zlog)
	reminders.Start()
	defer reminders.Stop()

	handler := api.NewHandler(authUC, taskUC, userUC, wsHandler, limiter, cfg, zlog)

	zlog.Info("server starting", zap.String("port", cfg.Port))
	if err := handler.Start(":" + cfg.Port); err != nil {
		zlog.Fatal("failed to start server", zap.Error(err))
	}
}
