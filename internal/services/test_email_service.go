package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"coachapp/internal/config"
	"coachapp/internal/observability"
	"coachapp/internal/services/mailer"
	contextutils "coachapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// SentEmail is one message captured by TestEmailService
type SentEmail struct {
	To       string
	Subject  string
	Template string
	Body     string
}

// TestEmailService implements mailer.Mailer without sending anything. Messages
// are rendered, logged and kept in memory.
type TestEmailService struct {
	cfg    *config.Config
	logger *observability.Logger
	db     *sql.DB

	mu   sync.Mutex
	sent []SentEmail
}

var _ mailer.Mailer = (*TestEmailService)(nil)

// NewTestEmailService creates a new TestEmailService instance
func NewTestEmailService(cfg *config.Config, logger *observability.Logger) *TestEmailService {
	return &TestEmailService{
		cfg:    cfg,
		logger: logger,
	}
}

// NewTestEmailServiceWithDB creates a new TestEmailService that also records notifications
func NewTestEmailServiceWithDB(cfg *config.Config, logger *observability.Logger, db *sql.DB) *TestEmailService {
	s := NewTestEmailService(cfg, logger)
	s.db = db
	return s
}

// SendWeeklyDigest renders the digest and captures it (test mode)
func (e *TestEmailService) SendWeeklyDigest(ctx context.Context, digest mailer.WeeklyDigest) (err error) {
	if digest.Profile == nil || digest.Roadmap == nil {
		return contextutils.WrapError(contextutils.ErrInvalidInput, "weekly digest needs a profile and a roadmap")
	}

	ctx, span := observability.TraceEmailFunction(ctx, "test_send_weekly_digest", observability.AttributeUserID(digest.Profile.ID))
	defer observability.FinishSpan(span, &err)

	if !digest.Profile.Email.Valid || digest.Profile.Email.String == "" {
		e.logger.Warn(ctx, "Learner has no email address, skipping weekly digest", map[string]interface{}{
			"user_id": digest.Profile.ID,
		})
		return nil
	}

	subject := weeklyDigestSubject(digest.Roadmap)
	if err = e.SendEmail(ctx, digest.Profile.Email.String, subject, TemplateWeeklyDigest, weeklyDigestData(e.cfg.Server.AppBaseURL, digest)); err != nil {
		return err
	}

	if e.db != nil {
		if err = e.RecordSentNotification(ctx, digest.Profile.ID, mailer.NotificationWeeklyDigest, subject, TemplateWeeklyDigest, mailer.StatusSent, ""); err != nil {
			return contextutils.WrapError(err, "failed to record weekly digest notification in test mode")
		}
	}
	return nil
}

// SendEmail renders and captures a message (test mode)
func (e *TestEmailService) SendEmail(ctx context.Context, to, subject, templateName string, data map[string]interface{}) (err error) {
	ctx, span := observability.TraceEmailFunction(ctx, "test_send_email",
		attribute.String("email.to", to),
		attribute.String("email.template", templateName),
	)
	defer observability.FinishSpan(span, &err)

	body, err := generateEmailContent(templateName, data)
	if err != nil {
		return contextutils.WrapError(err, "failed to generate email content")
	}

	e.mu.Lock()
	e.sent = append(e.sent, SentEmail{To: to, Subject: subject, Template: templateName, Body: body})
	e.mu.Unlock()

	e.logger.Info(ctx, "TEST MODE: Would send email", map[string]interface{}{
		"to":        to,
		"subject":   subject,
		"template":  templateName,
		"test_mode": true,
		"data_keys": getMapKeys(data),
	})
	return nil
}

// RecordSentNotification records a notification when a database is attached
func (e *TestEmailService) RecordSentNotification(ctx context.Context, userID int, notificationType, subject, templateName, status, errorMessage string) error {
	if e.db == nil {
		return nil
	}
	return recordSentNotification(ctx, e.db, userID, notificationType, subject, templateName, status, errorMessage)
}

// IsEnabled always returns true for the test service
func (e *TestEmailService) IsEnabled() bool {
	return true
}

// Sent returns a copy of the captured messages
func (e *TestEmailService) Sent() []SentEmail {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]SentEmail, len(e.sent))
	copy(out, e.sent)
	return out
}

func getMapKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
