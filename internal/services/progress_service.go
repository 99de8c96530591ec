package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"coachapp/internal/config"
	"coachapp/internal/database"
	"coachapp/internal/mastery"
	"coachapp/internal/models"
	"coachapp/internal/observability"
	contextutils "coachapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// ProgressServiceInterface is the per-topic mastery store.
type ProgressServiceInterface interface {
	GetProgress(ctx context.Context, userID int) ([]models.ProgressRecord, error)
	UpsertProgress(ctx context.Context, userID int, update models.ProgressUpdate) (*models.ProgressRecord, error)
	RecordOutcome(ctx context.Context, userID int, outcome models.Outcome) (*models.ProgressRecord, error)
}

// ProgressService stores mastery state per (user, topic)
type ProgressService struct {
	db      *sql.DB
	cfg     *config.Config
	logger  *observability.Logger
	metrics *observability.CoachMetrics
}

var _ ProgressServiceInterface = (*ProgressService)(nil)

// queryRower is satisfied by *sql.DB and *sql.Tx
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const upsertProgressQuery = `INSERT INTO user_progress (user_id, topic_id, mastery_level, time_spent_minutes, last_studied, attempts, correct_answers, status, updated_at)
	VALUES ($1, $2, $3, $4, NOW(), $5, $6, $7, NOW())
	ON CONFLICT (user_id, topic_id) DO UPDATE SET
		mastery_level = EXCLUDED.mastery_level,
		time_spent_minutes = EXCLUDED.time_spent_minutes,
		last_studied = EXCLUDED.last_studied,
		attempts = EXCLUDED.attempts,
		correct_answers = EXCLUDED.correct_answers,
		status = EXCLUDED.status,
		updated_at = NOW()
	RETURNING id, (SELECT subject_id FROM topics WHERE id = $2), last_studied, updated_at`

// NewProgressServiceWithLogger creates a new ProgressService instance with logger
func NewProgressServiceWithLogger(db *sql.DB, cfg *config.Config, logger *observability.Logger, metrics *observability.CoachMetrics) *ProgressService {
	return &ProgressService{
		db:      db,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// GetProgress returns every progress record for the user ordered by topic id
func (s *ProgressService) GetProgress(ctx context.Context, userID int) (result0 []models.ProgressRecord, err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "get_progress", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	var exists bool
	if err = s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM user_profiles WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to look up user %d: %w", userID, err)
	}
	if !exists {
		return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "user %d not found", userID)
	}

	query := `SELECT p.id, p.user_id, p.topic_id, t.subject_id, p.mastery_level, p.time_spent_minutes, p.last_studied,
			p.attempts, p.correct_answers, p.status, p.updated_at
		FROM user_progress p
		JOIN topics t ON t.id = p.topic_id
		WHERE p.user_id = $1
		ORDER BY p.topic_id`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to load progress for user %d: %w", userID, err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	records := []models.ProgressRecord{}
	for rows.Next() {
		var r models.ProgressRecord
		if err = rows.Scan(&r.ID, &r.UserID, &r.TopicID, &r.SubjectID, &r.MasteryLevel, &r.TimeSpentMinutes,
			&r.LastStudied, &r.Attempts, &r.CorrectAnswers, &r.Status, &r.UpdatedAt); err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to scan progress: %w", err)
		}
		records = append(records, r)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to iterate progress: %w", err)
	}

	span.SetAttributes(attribute.Int("progress.records", len(records)))
	return records, nil
}

// UpsertProgress overwrites the stored values with the caller's cumulative
// snapshot under the user's advisory lock. Mastery is clamped and status is
// always derived.
func (s *ProgressService) UpsertProgress(ctx context.Context, userID int, update models.ProgressUpdate) (result0 *models.ProgressRecord, err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "upsert_progress",
		observability.AttributeUserID(userID),
		observability.AttributeTopicID(update.TopicID),
	)
	defer observability.FinishSpan(span, &err)

	if strings.TrimSpace(update.TopicID) == "" {
		return nil, contextutils.WrapError(contextutils.ErrMissingRequired, "topic_id is required")
	}
	if update.TimeSpentMinutes < 0 || update.Attempts < 0 || update.CorrectAnswers < 0 {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "time spent, attempts and correct answers must not be negative")
	}

	record := &models.ProgressRecord{
		UserID:           userID,
		TopicID:          update.TopicID,
		MasteryLevel:     mastery.Clamp(update.MasteryLevel),
		TimeSpentMinutes: update.TimeSpentMinutes,
		Attempts:         update.Attempts,
		CorrectAnswers:   update.CorrectAnswers,
	}
	record.Status = mastery.DeriveStatus(record.MasteryLevel, record.Attempts)

	// serializes with RecordOutcome
	err = database.WithUserLock(ctx, s.db, userID, func(tx *sql.Tx) error {
		return s.writeSnapshot(ctx, tx, record)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordProgressUpdate(ctx, string(models.OutcomeSourceManual))
	s.logger.Debug(ctx, "Stored progress snapshot", map[string]interface{}{
		"user_id":  userID,
		"topic_id": update.TopicID,
		"mastery":  record.MasteryLevel,
		"status":   record.Status,
	})
	return record, nil
}

// RecordOutcome applies one observed outcome to the stored mastery under the
// user's advisory lock and accumulates attempts, correct answers and time.
func (s *ProgressService) RecordOutcome(ctx context.Context, userID int, outcome models.Outcome) (result0 *models.ProgressRecord, err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "record_outcome",
		observability.AttributeUserID(userID),
		observability.AttributeTopicID(outcome.TopicID),
		attribute.String("outcome.source", string(outcome.Source)),
	)
	defer observability.FinishSpan(span, &err)

	if strings.TrimSpace(outcome.TopicID) == "" {
		return nil, contextutils.WrapError(contextutils.ErrMissingRequired, "topic_id is required")
	}
	if outcome.Score < 0 || outcome.Score > 1 {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "score %.3f is outside [0,1]", outcome.Score)
	}
	if outcome.MinutesSpent < 0 {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "minutes spent must not be negative")
	}

	var record *models.ProgressRecord
	err = database.WithUserLock(ctx, s.db, userID, func(tx *sql.Tx) error {
		var subjectID string
		if err := tx.QueryRowContext(ctx, `SELECT subject_id FROM topics WHERE id = $1`, outcome.TopicID).Scan(&subjectID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "topic %s not found", outcome.TopicID)
			}
			return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to look up topic %s: %w", outcome.TopicID, err)
		}

		current := models.ProgressRecord{UserID: userID, TopicID: outcome.TopicID}
		err := tx.QueryRowContext(ctx,
			`SELECT mastery_level, time_spent_minutes, attempts, correct_answers FROM user_progress WHERE user_id = $1 AND topic_id = $2 FOR UPDATE`,
			userID, outcome.TopicID,
		).Scan(&current.MasteryLevel, &current.TimeSpentMinutes, &current.Attempts, &current.CorrectAnswers)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to read progress: %w", err)
		}

		result := mastery.Update(current.MasteryLevel, mastery.Observation{
			Score:        outcome.Score,
			ResponseTime: outcome.ResponseTime,
			ExpectedTime: outcome.ExpectedTime,
			Attempts:     current.Attempts,
		})

		next := &models.ProgressRecord{
			UserID:           userID,
			TopicID:          outcome.TopicID,
			MasteryLevel:     mastery.Clamp(result.Mastery),
			TimeSpentMinutes: current.TimeSpentMinutes + outcome.MinutesSpent,
			Attempts:         result.Attempts,
			CorrectAnswers:   current.CorrectAnswers,
		}
		if outcome.Correct {
			next.CorrectAnswers++
		}
		next.Status = mastery.DeriveStatus(next.MasteryLevel, next.Attempts)

		if err := s.writeSnapshot(ctx, tx, next); err != nil {
			return err
		}
		record = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordProgressUpdate(ctx, string(outcome.Source))
	span.SetAttributes(attribute.Float64("progress.mastery", record.MasteryLevel), attribute.String("progress.status", string(record.Status)))
	return record, nil
}

// writeSnapshot upserts record and fills the generated columns
func (s *ProgressService) writeSnapshot(ctx context.Context, q queryRower, record *models.ProgressRecord) error {
	var subjectID sql.NullString
	err := q.QueryRowContext(ctx, upsertProgressQuery,
		record.UserID, record.TopicID, record.MasteryLevel, record.TimeSpentMinutes,
		record.Attempts, record.CorrectAnswers, record.Status,
	).Scan(&record.ID, &subjectID, &record.LastStudied, &record.UpdatedAt)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "user %d or topic %s not found", record.UserID, record.TopicID)
		}
		return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to write progress for topic %s: %w", record.TopicID, err)
	}
	record.SubjectID = subjectID.String
	return nil
}
