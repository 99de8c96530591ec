package services

import (
	"context"
	"database/sql"
	"math"
	"strings"
	"time"

	"coachapp/internal/config"
	"coachapp/internal/mastery"
	"coachapp/internal/models"
	"coachapp/internal/observability"
	contextutils "coachapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// InteractionServiceInterface ingests learner interactions and turns them into
// progress and profile changes.
type InteractionServiceInterface interface {
	RecordQuizAnswer(ctx context.Context, userID int, answer models.QuizAnswer) (*models.InteractionResult, error)
	RecordSessionEnd(ctx context.Context, userID int, session models.SessionEnd) (*models.InteractionResult, error)
	RecordChatMessage(ctx context.Context, userID int, msg models.ChatMessage) (*models.InteractionResult, error)
	ListInteractions(ctx context.Context, userID, limit int) ([]models.Interaction, error)
}

// InteractionService feeds quiz answers and session ends to the progress store
// and chat sentiment to the profile
type InteractionService struct {
	db       *sql.DB
	cfg      *config.Config
	logger   *observability.Logger
	users    UserServiceInterface
	progress ProgressServiceInterface
}

var _ InteractionServiceInterface = (*InteractionService)(nil)

// maxInteractionsListed caps ListInteractions
const maxInteractionsListed = 200

// NewInteractionServiceWithLogger creates a new InteractionService instance with logger
func NewInteractionServiceWithLogger(db *sql.DB, cfg *config.Config, logger *observability.Logger, users UserServiceInterface, progress ProgressServiceInterface) *InteractionService {
	return &InteractionService{
		db:       db,
		cfg:      cfg,
		logger:   logger,
		users:    users,
		progress: progress,
	}
}

// RecordQuizAnswer applies one graded answer to the topic's mastery
func (s *InteractionService) RecordQuizAnswer(ctx context.Context, userID int, answer models.QuizAnswer) (result0 *models.InteractionResult, err error) {
	ctx, span := observability.TraceInteractionFunction(ctx, "record_quiz_answer",
		observability.AttributeUserID(userID),
		observability.AttributeTopicID(answer.TopicID),
		attribute.Bool("quiz.correct", answer.Correct),
	)
	defer observability.FinishSpan(span, &err)

	if strings.TrimSpace(answer.TopicID) == "" {
		return nil, contextutils.WrapError(contextutils.ErrMissingRequired, "topic_id is required")
	}
	if answer.ResponseTimeSeconds < 0 || answer.ExpectedTimeSeconds < 0 {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "response and expected times must not be negative")
	}

	score := 0.0
	if answer.Correct {
		score = 1.0
	}
	record, err := s.progress.RecordOutcome(ctx, userID, models.Outcome{
		TopicID:      answer.TopicID,
		Source:       models.OutcomeSourceQuiz,
		Score:        score,
		Correct:      answer.Correct,
		ResponseTime: secondsToDuration(answer.ResponseTimeSeconds),
		ExpectedTime: secondsToDuration(answer.ExpectedTimeSeconds),
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, models.Interaction{
		UserID:    userID,
		Kind:      models.InteractionQuiz,
		TopicID:   sql.NullString{String: answer.TopicID, Valid: true},
		Sentiment: models.SentimentNeutral,
		Score:     sql.NullFloat64{Float64: score, Valid: true},
	})

	return &models.InteractionResult{Sentiment: models.SentimentNeutral, Progress: record}, nil
}

// RecordSessionEnd applies a finished study session. PerformanceScore takes
// precedence over the understanding level.
func (s *InteractionService) RecordSessionEnd(ctx context.Context, userID int, session models.SessionEnd) (result0 *models.InteractionResult, err error) {
	ctx, span := observability.TraceInteractionFunction(ctx, "record_session_end",
		observability.AttributeUserID(userID),
		observability.AttributeTopicID(session.TopicID),
		attribute.Int("session.understanding", session.UnderstandingLevel),
	)
	defer observability.FinishSpan(span, &err)

	if strings.TrimSpace(session.TopicID) == "" {
		return nil, contextutils.WrapError(contextutils.ErrMissingRequired, "topic_id is required")
	}
	if session.UnderstandingLevel < 1 || session.UnderstandingLevel > 5 {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "understanding level %d is outside 1..5", session.UnderstandingLevel)
	}
	if session.DurationMinutes < 0 {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "duration must not be negative")
	}

	score := mastery.SessionScore(session.UnderstandingLevel)
	if session.PerformanceScore != nil {
		score = *session.PerformanceScore
	}

	record, err := s.progress.RecordOutcome(ctx, userID, models.Outcome{
		TopicID:      session.TopicID,
		Source:       models.OutcomeSourceSession,
		Score:        score,
		MinutesSpent: session.DurationMinutes,
	})
	if err != nil {
		return nil, err
	}

	sentiment := models.SentimentNeutral
	if session.Mood != "" {
		sentiment, _ = AnalyzeSentiment(session.Mood)
	}
	s.audit(ctx, models.Interaction{
		UserID:    userID,
		Kind:      models.InteractionSession,
		TopicID:   sql.NullString{String: session.TopicID, Valid: true},
		Content:   session.Mood,
		Sentiment: sentiment,
		Score:     sql.NullFloat64{Float64: score, Valid: true},
	})

	return &models.InteractionResult{Sentiment: sentiment, Progress: record}, nil
}

// RecordChatMessage classifies a message and adjusts the learner's confidence
func (s *InteractionService) RecordChatMessage(ctx context.Context, userID int, msg models.ChatMessage) (result0 *models.InteractionResult, err error) {
	ctx, span := observability.TraceInteractionFunction(ctx, "record_chat_message", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	text := strings.TrimSpace(msg.Message)
	if text == "" {
		return nil, contextutils.WrapError(contextutils.ErrMissingRequired, "message is required")
	}

	sentiment, subjectID := AnalyzeSentiment(text)
	span.SetAttributes(attribute.String("chat.sentiment", string(sentiment)), observability.AttributeSubjectID(subjectID))

	profile, err := s.users.AdjustForSentiment(ctx, userID, sentiment, subjectID)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, models.Interaction{
		UserID:    userID,
		Kind:      models.InteractionChat,
		Content:   text,
		Sentiment: sentiment,
	})

	return &models.InteractionResult{Sentiment: sentiment, Profile: profile}, nil
}

// ListInteractions returns the learner's most recent interactions, newest first
func (s *InteractionService) ListInteractions(ctx context.Context, userID, limit int) (result0 []models.Interaction, err error) {
	ctx, span := observability.TraceInteractionFunction(ctx, "list_interactions", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	if limit <= 0 || limit > maxInteractionsListed {
		limit = maxInteractionsListed
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, kind, topic_id, content, sentiment, score, created_at
		FROM interactions WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to list interactions: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	out := []models.Interaction{}
	for rows.Next() {
		var i models.Interaction
		if err = rows.Scan(&i.ID, &i.UserID, &i.Kind, &i.TopicID, &i.Content, &i.Sentiment, &i.Score, &i.CreatedAt); err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to scan interaction: %w", err)
		}
		out = append(out, i)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to iterate interactions: %w", err)
	}
	return out, nil
}

// audit appends the interaction to the trail. Failures are logged only.
func (s *InteractionService) audit(ctx context.Context, i models.Interaction) {
	_, err := s.db.ExecContext(ctx, `INSERT INTO interactions (user_id, kind, topic_id, content, sentiment, score)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		i.UserID, i.Kind, i.TopicID, i.Content, i.Sentiment, i.Score,
	)
	if err != nil {
		s.logger.Error(ctx, "Failed to record interaction", err, map[string]interface{}{
			"user_id": i.UserID,
			"kind":    i.Kind,
		})
	}
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(math.Round(seconds * float64(time.Second)))
}
