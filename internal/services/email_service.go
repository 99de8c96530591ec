package services

import (
	"context"
	"database/sql"
	"fmt"
	"html/template"
	"strings"
	"time"

	"coachapp/internal/config"
	"coachapp/internal/models"
	"coachapp/internal/observability"
	"coachapp/internal/planner"
	"coachapp/internal/services/mailer"
	contextutils "coachapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/mail.v2"
)

// Template names understood by generateEmailContent
const (
	TemplateWeeklyDigest = "weekly_digest"
	TemplateTestEmail    = "test_email"
)

// EmailService implements mailer.Mailer over SMTP using gomail
type EmailService struct {
	cfg    *config.Config
	logger *observability.Logger
	dialer *mail.Dialer
	db     *sql.DB
}

var _ mailer.Mailer = (*EmailService)(nil)

// NewEmailService creates a new EmailService instance
func NewEmailService(cfg *config.Config, logger *observability.Logger) *EmailService {
	var dialer *mail.Dialer
	if cfg.Email.Enabled && cfg.Email.SMTP.Host != "" {
		dialer = mail.NewDialer(
			cfg.Email.SMTP.Host,
			cfg.Email.SMTP.Port,
			cfg.Email.SMTP.Username,
			cfg.Email.SMTP.Password,
		)
	}

	return &EmailService{
		cfg:    cfg,
		logger: logger,
		dialer: dialer,
	}
}

// NewEmailServiceWithDB creates a new EmailService that also records sent notifications
func NewEmailServiceWithDB(cfg *config.Config, logger *observability.Logger, db *sql.DB) *EmailService {
	e := NewEmailService(cfg, logger)
	e.db = db
	return e
}

// SendWeeklyDigest mails the learner their roadmap for the week
func (e *EmailService) SendWeeklyDigest(ctx context.Context, digest mailer.WeeklyDigest) (err error) {
	if digest.Profile == nil || digest.Roadmap == nil {
		return contextutils.WrapError(contextutils.ErrInvalidInput, "weekly digest needs a profile and a roadmap")
	}

	ctx, span := observability.TraceEmailFunction(ctx, "send_weekly_digest",
		observability.AttributeUserID(digest.Profile.ID),
		observability.AttributeRoadmapID(digest.Roadmap.ID.String()),
	)
	defer observability.FinishSpan(span, &err)

	if !e.IsEnabled() || !e.cfg.Email.WeeklyDigest.Enabled {
		e.logger.Info(ctx, "Email disabled, skipping weekly digest", map[string]interface{}{
			"user_id": digest.Profile.ID,
		})
		return nil
	}

	if !digest.Profile.Email.Valid || digest.Profile.Email.String == "" {
		e.logger.Warn(ctx, "Learner has no email address, skipping weekly digest", map[string]interface{}{
			"user_id": digest.Profile.ID,
		})
		return nil
	}

	subject := weeklyDigestSubject(digest.Roadmap)
	sendErr := e.SendEmail(ctx, digest.Profile.Email.String, subject, TemplateWeeklyDigest, weeklyDigestData(e.cfg.Server.AppBaseURL, digest))

	status, message := mailer.StatusSent, ""
	if sendErr != nil {
		status, message = mailer.StatusFailed, sendErr.Error()
	}
	if e.db != nil {
		if recErr := e.RecordSentNotification(ctx, digest.Profile.ID, mailer.NotificationWeeklyDigest, subject, TemplateWeeklyDigest, status, message); recErr != nil {
			e.logger.Warn(ctx, "Could not record weekly digest notification", map[string]interface{}{
				"user_id": digest.Profile.ID,
				"error":   recErr.Error(),
			})
		}
	}
	if sendErr != nil {
		return contextutils.WrapError(sendErr, "failed to send weekly digest")
	}

	e.logger.Info(ctx, "Weekly digest sent", map[string]interface{}{
		"user_id":    digest.Profile.ID,
		"roadmap_id": digest.Roadmap.ID.String(),
	})
	return nil
}

// SendEmail sends a generic email with the given parameters
func (e *EmailService) SendEmail(ctx context.Context, to, subject, templateName string, data map[string]interface{}) (err error) {
	ctx, span := observability.TraceEmailFunction(ctx, "send_email",
		attribute.String("email.to", to),
		attribute.String("email.subject", subject),
		attribute.String("email.template", templateName),
	)
	defer observability.FinishSpan(span, &err)

	if !e.IsEnabled() {
		e.logger.Info(ctx, "Email disabled, skipping email send", map[string]interface{}{
			"to":       to,
			"template": templateName,
		})
		return nil
	}

	if e.dialer == nil {
		return contextutils.ErrorWithContextf("email service not properly configured")
	}

	content, err := generateEmailContent(templateName, data)
	if err != nil {
		return contextutils.WrapError(err, "failed to generate email content")
	}

	m := mail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("%s <%s>", e.cfg.Email.SMTP.FromName, e.cfg.Email.SMTP.FromAddress))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", content)

	if err = e.dialer.DialAndSend(m); err != nil {
		e.logger.Error(ctx, "Failed to send email", err, map[string]interface{}{
			"to":       to,
			"template": templateName,
			"subject":  subject,
		})
		return contextutils.WrapErrorf(contextutils.ErrServiceUnavailable, "failed to send email: %v", err)
	}

	e.logger.Info(ctx, "Email sent successfully", map[string]interface{}{
		"to":       to,
		"template": templateName,
		"subject":  subject,
	})
	return nil
}

// RecordSentNotification records a sent notification in the database
func (e *EmailService) RecordSentNotification(ctx context.Context, userID int, notificationType, subject, templateName, status, errorMessage string) (err error) {
	ctx, span := observability.TraceEmailFunction(ctx, "record_sent_notification",
		observability.AttributeUserID(userID),
		attribute.String("notification.type", notificationType),
		attribute.String("notification.status", status),
	)
	defer observability.FinishSpan(span, &err)

	return recordSentNotification(ctx, e.db, userID, notificationType, subject, templateName, status, errorMessage)
}

// IsEnabled returns whether email functionality is enabled
func (e *EmailService) IsEnabled() bool {
	return e.cfg.Email.Enabled && e.cfg.Email.SMTP.Host != ""
}

func recordSentNotification(ctx context.Context, db *sql.DB, userID int, notificationType, subject, templateName, status, errorMessage string) error {
	if db == nil {
		return contextutils.WrapError(contextutils.ErrServiceUnavailable, "no database connection for notifications")
	}
	_, err := db.ExecContext(ctx, `INSERT INTO sent_notifications (user_id, notification_type, subject, template_name, status, error_message)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		userID, notificationType, subject, templateName, status, errorMessage)
	if err != nil {
		return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to record sent notification: %w", err)
	}
	return nil
}

type digestSubject struct {
	Name    string
	Percent int
	Hours   int
}

type digestItem struct {
	Topic    string
	Subject  string
	Activity string
	Hours    float64
}

type digestDay struct {
	Label string
	Items []digestItem
}

func weeklyDigestSubject(r *models.Roadmap) string {
	return fmt.Sprintf("Your study plan for the week of %s", r.WeekStart.Format("January 2"))
}

func subjectDisplayName(names map[string]string, id string) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return id
}

// weeklyDigestData flattens a roadmap into template rows: subjects in
// priority order and items grouped by day.
func weeklyDigestData(appURL string, d mailer.WeeklyDigest) map[string]interface{} {
	r := d.Roadmap

	subjects := make([]digestSubject, 0, len(r.PriorityOrder))
	for _, id := range r.PriorityOrder {
		subjects = append(subjects, digestSubject{
			Name:    subjectDisplayName(d.SubjectNames, id),
			Percent: r.Allocation[id],
			Hours:   r.WeeklyHours[id],
		})
	}

	days := make([]digestDay, 0, planner.DaysPerWeek)
	for day := 1; day <= planner.DaysPerWeek; day++ {
		entry := digestDay{Label: r.WeekStart.AddDate(0, 0, day-1).Format("Monday, Jan 2")}
		for _, item := range r.Items {
			if item.DayOfWeek != day {
				continue
			}
			entry.Items = append(entry.Items, digestItem{
				Topic:    item.TopicName,
				Subject:  subjectDisplayName(d.SubjectNames, item.SubjectID),
				Activity: strings.ReplaceAll(string(item.ActivityType), "_", " "),
				Hours:    item.StudyHours,
			})
		}
		if len(entry.Items) > 0 {
			days = append(days, entry)
		}
	}

	return map[string]interface{}{
		"Name":            d.Profile.Name,
		"WeekStart":       r.WeekStart.Format("January 2, 2006"),
		"Phase":           string(r.Phase),
		"Intensity":       strings.ReplaceAll(string(r.Intensity), "_", " "),
		"MonthsRemaining": r.MonthsRemaining,
		"FocusAreas":      r.FocusAreas,
		"Subjects":        subjects,
		"Days":            days,
		"Directives":      d.Directives,
		"AppURL":          appURL,
	}
}

// generateEmailContent renders the named template with data
func generateEmailContent(templateName string, data map[string]interface{}) (string, error) {
	var templateStr string
	switch templateName {
	case TemplateWeeklyDigest:
		templateStr = weeklyDigestTemplate
	case TemplateTestEmail:
		templateStr = testEmailTemplate
	default:
		return "", contextutils.ErrorWithContextf("unknown template: %s", templateName)
	}

	tmpl, err := template.New(templateName).Parse(templateStr)
	if err != nil {
		return "", contextutils.WrapError(err, "failed to parse template")
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", contextutils.WrapError(err, "failed to execute template")
	}
	return buf.String(), nil
}

// TestEmailData is the payload for the SMTP check template
func TestEmailData(name, message string) map[string]interface{} {
	return map[string]interface{}{
		"Name":     name,
		"TestTime": time.Now().UTC().Format(time.RFC1123),
		"Message":  message,
	}
}

const weeklyDigestTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Your Weekly Study Plan</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #3F51B5; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
        .content { background-color: #f9f9f9; padding: 20px; }
        table { width: 100%; border-collapse: collapse; }
        td, th { padding: 6px; border-bottom: 1px solid #ddd; text-align: left; }
        .button { display: inline-block; background-color: #3F51B5; color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px; margin: 20px 0; }
        .footer { background-color: #eee; padding: 15px; text-align: center; font-size: 12px; color: #666; border-radius: 0 0 5px 5px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Week of {{.WeekStart}}</h1>
        </div>
        <div class="content">
            <h2>Hello {{.Name}}!</h2>
            <p>You are in the <strong>{{.Phase}}</strong> phase with {{.MonthsRemaining}} months to go ({{.Intensity}} intensity).</p>
            {{if .FocusAreas}}<p>Focus this week: {{range $i, $f := .FocusAreas}}{{if $i}}, {{end}}{{$f}}{{end}}</p>{{end}}
            <h3>Time per subject</h3>
            <table>
                <tr><th>Subject</th><th>Share</th><th>Hours</th></tr>
                {{range .Subjects}}<tr><td>{{.Name}}</td><td>{{.Percent}}%</td><td>{{.Hours}}</td></tr>{{end}}
            </table>
            {{range .Days}}
            <h3>{{.Label}}</h3>
            <ul>
                {{range .Items}}<li>{{.Activity}}: <strong>{{.Topic}}</strong> ({{.Subject}}, {{.Hours}}h)</li>{{end}}
            </ul>
            {{end}}
            {{if .Directives}}
            <h3>Suggested adjustments</h3>
            <ul>
                {{range .Directives}}<li>{{.Action}} ({{.Reason}})</li>{{end}}
            </ul>
            {{end}}
            {{if .AppURL}}<div style="text-align: center;"><a href="{{.AppURL}}/roadmap" class="button">Open your roadmap</a></div>{{end}}
        </div>
        <div class="footer">
            <p>This plan was generated by Study Coach.</p>
        </div>
    </div>
</body>
</html>`

const testEmailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Test Email</title>
</head>
<body>
    <h2>Hello {{.Name}}!</h2>
    <p>This is a test email to verify that your email settings are working correctly.</p>
    <p><strong>Test Time:</strong> {{.TestTime}}</p>
    <p><strong>Message:</strong> {{.Message}}</p>
</body>
</html>`
