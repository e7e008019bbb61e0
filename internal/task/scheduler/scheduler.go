package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	authrepo "taskhub-backend/internal/auth/repository"
	"taskhub-backend/internal/notification"
	"taskhub-backend/internal/realtime"
	taskrepo "taskhub-backend/internal/task/repository"
	"taskhub-backend/pkg/config"
)

const scanTimeout = 30 * time.Second

// Scheduler periodically scans for tasks due soon and notifies their owners.
// Each task is reminded at most once; the sent flag is reset whenever the due
// date changes.
type Scheduler struct {
	taskRepo taskrepo.TaskRepository
	userRepo authrepo.UserRepository
	mailer   notification.Mailer
	hub      *realtime.Hub
	logger   *zap.Logger

	interval time.Duration
	window   time.Duration
	stop     chan struct{}
}

func New(taskRepo taskrepo.TaskRepository, userRepo authrepo.UserRepository, mailer notification.Mailer, hub *realtime.Hub, cfg *config.Config, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		taskRepo: taskRepo,
		userRepo: userRepo,
		mailer:   mailer,
		hub:      hub,
		logger:   logger,
		interval: cfg.ReminderInterval,
		window:   cfg.ReminderWindow,
		stop:     make(chan struct{}),
	}
}

// Start runs the reminder loop until Stop is called.
func (s *Scheduler) Start() {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.scan()
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	close(s.stop)
}

func (s *Scheduler) scan() {
	ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
	defer cancel()

	now := time.Now()
	tasks, err := s.taskRepo.FindDueForReminder(ctx, taskrepo.ReminderWindow{
		From: now,
		To:   now.Add(s.window),
	})
	if err != nil {
		s.logger.Warn("reminder scan failed", zap.Error(err))
		return
	}

	for _, task := range tasks {
		owner, err := s.userRepo.FindByID(ctx, task.OwnerID)
		if err != nil {
			s.logger.Warn("reminder owner lookup failed",
				zap.String("task_id", task.ID),
				zap.Error(err))
			continue
		}
		if owner == nil || !owner.IsActive {
			continue
		}

		if s.hub != nil {
			s.hub.SendToUser(owner.ID, realtime.Event{
				Event: realtime.EventTaskReminder,
				Data: map[string]interface{}{
					"task_id":  task.ID,
					"title":    task.Title,
					"due_date": task.DueDate,
				},
			})
		}
		if s.mailer != nil && owner.Preferences.Notifications && task.DueDate != nil {
			s.mailer.SendReminder(owner.Email, task.Title, *task.DueDate)
		}

		if err := s.taskRepo.MarkReminderSent(ctx, task.ID); err != nil {
			s.logger.Warn("failed to mark reminder sent",
				zap.String("task_id", task.ID),
				zap.Error(err))
		}
	}
}
