package services

import (
	"context"
	"database/sql"

	"coachapp/internal/config"
	"coachapp/internal/observability"
	"coachapp/internal/services/mailer"
)

// Mailer modes reported at startup
const (
	mailerModeCapture  = "capture"
	mailerModeSMTP     = "smtp"
	mailerModeDisabled = "disabled"
)

func mailerMode(cfg *config.Config) string {
	switch {
	case cfg.IsTest:
		return mailerModeCapture
	case cfg.Email.Enabled && cfg.Email.SMTP.Host != "":
		return mailerModeSMTP
	default:
		return mailerModeDisabled
	}
}

// CreateEmailService picks the mailer for cfg: an in-memory capture mailer in
// test mode, otherwise SMTP (which reports IsEnabled false without a host).
// db may be nil, in which case notifications are not recorded.
func CreateEmailService(cfg *config.Config, logger *observability.Logger, db *sql.DB) mailer.Mailer {
	mode := mailerMode(cfg)
	logger.Info(context.Background(), "Mailer configured", map[string]interface{}{
		"mode":          mode,
		"weekly_digest": cfg.Email.WeeklyDigest.Enabled,
		"audit":         db != nil,
	})

	if mode == mailerModeCapture {
		return NewTestEmailServiceWithDB(cfg, logger, db)
	}
	return NewEmailServiceWithDB(cfg, logger, db)
}
