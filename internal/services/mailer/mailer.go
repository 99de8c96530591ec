// Package mailer defines the outbound email interface for the coach application.
package mailer

import (
	"context"

	"coachapp/internal/models"
)

// Notification types recorded in sent_notifications
const (
	NotificationWeeklyDigest = "weekly_digest"
	NotificationTest         = "test_email"
)

// Notification statuses
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// WeeklyDigest is everything the weekly plan email shows
type WeeklyDigest struct {
	Profile    *models.UserProfile
	Roadmap    *models.Roadmap
	Directives []models.Directive
	// SubjectNames maps subject ids to display names.
	SubjectNames map[string]string
}

// Mailer defines the interface for email sending functionality
type Mailer interface {
	// SendWeeklyDigest mails the learner their new roadmap and any suggested adjustments
	SendWeeklyDigest(ctx context.Context, digest WeeklyDigest) error

	// SendEmail sends a generic email with the given parameters
	SendEmail(ctx context.Context, to, subject, templateName string, data map[string]interface{}) error

	// IsEnabled returns whether email functionality is enabled
	IsEnabled() bool

	// RecordSentNotification records a sent notification in the database
	RecordSentNotification(ctx context.Context, userID int, notificationType, subject, templateName, status, errorMessage string) error
}
