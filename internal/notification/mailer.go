package notification

import (
	"fmt"
	"net/smtp"
	"time"

	"go.uber.org/zap"

	"taskhub-backend/pkg/config"
)

// Mailer sends outbound notification emails. All sends are fire-and-forget side
// effects; failures are logged and never surfaced to the triggering request.
type Mailer interface {
	SendShareNotification(to, taskTitle, grantorName, permission string)
	SendUpdateNotification(to, taskTitle, updaterName, changes string)
	SendReminder(to, taskTitle string, due time.Time)
}

// smtpMailer delivers through a plain SMTP relay.
type smtpMailer struct {
	addr   string
	auth   smtp.Auth
	from   string
	logger *zap.Logger
}

// NewSMTPMailer returns nil when no SMTP host is configured; callers treat a nil
// Mailer as notifications disabled.
func NewSMTPMailer(cfg *config.Config, logger *zap.Logger) Mailer {
	if cfg.SMTPHost == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPHost)
	}
	return &smtpMailer{
		addr:   cfg.SMTPHost + ":" + cfg.SMTPPort,
		auth:   auth,
		from:   cfg.MailFrom,
		logger: logger,
	}
}

func (m *smtpMailer) SendShareNotification(to, taskTitle, grantorName, permission string) {
	subject := fmt.Sprintf("%s shared a task with you", grantorName)
	body := fmt.Sprintf("%s shared the task %q with you (%s access).", grantorName, taskTitle, permission)
	m.send(to, subject, body)
}

func (m *smtpMailer) SendUpdateNotification(to, taskTitle, updaterName, changes string) {
	subject := fmt.Sprintf("Task %q was updated", taskTitle)
	body := fmt.Sprintf("%s updated the task %q (changed: %s).", updaterName, taskTitle, changes)
	m.send(to, subject, body)
}

func (m *smtpMailer) SendReminder(to, taskTitle string, due time.Time) {
	subject := fmt.Sprintf("Reminder: %q is due soon", taskTitle)
	body := fmt.Sprintf("The task %q is due at %s.", taskTitle, due.Format(time.RFC1123))
	m.send(to, subject, body)
}

func (m *smtpMailer) send(to, subject, body string) {
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", m.from, to, subject, body))
	go func() {
		if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, msg); err != nil {
			m.logger.Warn("failed to send notification email",
				zap.String("to", to),
				zap.String("subject", subject),
				zap.Error(err))
		}
	}()
}
