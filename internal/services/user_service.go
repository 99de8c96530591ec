package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"coachapp/internal/config"
	"coachapp/internal/database"
	"coachapp/internal/models"
	"coachapp/internal/observability"
	contextutils "coachapp/internal/utils"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
)

// Confidence adjustments applied from chat sentiment
const (
	positiveConfidenceDelta   = 0.05
	frustratedConfidenceDelta = -0.03
	difficultyStep            = 0.1
)

// UserServiceInterface defines the profile store used by the planner and handlers.
type UserServiceInterface interface {
	CreateUser(ctx context.Context, profile *models.UserProfile) (*models.UserProfile, error)
	GetUser(ctx context.Context, id int) (*models.UserProfile, error)
	ListUsers(ctx context.Context) ([]models.UserProfile, error)
	UpdateUser(ctx context.Context, id int, profile *models.UserProfile) (*models.UserProfile, error)
	ApplyDirectives(ctx context.Context, userID int, directives []models.Directive) (*models.UserProfile, error)
	AdjustForSentiment(ctx context.Context, userID int, sentiment models.Sentiment, subjectID string) (*models.UserProfile, error)
}

// UserService provides methods for learner profile management.
type UserService struct {
	db     *sql.DB
	cfg    *config.Config
	logger *observability.Logger
}

var _ UserServiceInterface = (*UserService)(nil)

const userSelectFields = `id, name, email, exam_track, target_exam_year, study_hours_per_day, preferred_study_time, adaptive_difficulty, confidence_level, weak_subjects, strong_subjects, created_at, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// NewUserServiceWithLogger creates a new UserService instance with logger
func NewUserServiceWithLogger(db *sql.DB, cfg *config.Config, logger *observability.Logger) *UserService {
	return &UserService{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
}

func scanProfile(row rowScanner) (*models.UserProfile, error) {
	p := &models.UserProfile{}
	err := row.Scan(
		&p.ID, &p.Name, &p.Email, &p.ExamTrack, &p.TargetExamYear, &p.StudyHoursPerDay,
		&p.PreferredStudyTime, &p.AdaptiveDifficulty, &p.ConfidenceLevel,
		pq.Array(&p.WeakSubjects), pq.Array(&p.StrongSubjects), &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// CreateUser validates and stores a new learner profile with onboarding defaults
func (s *UserService) CreateUser(ctx context.Context, profile *models.UserProfile) (result0 *models.UserProfile, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "create_user")
	defer observability.FinishSpan(span, &err)

	if profile == nil {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "profile is required")
	}
	p := *profile
	p.Name = strings.TrimSpace(p.Name)
	p.ApplyDefaults()
	if err = contextutils.ValidateStruct(&p); err != nil {
		return nil, err
	}

	query := `INSERT INTO user_profiles (name, email, exam_track, target_exam_year, study_hours_per_day, preferred_study_time, adaptive_difficulty, confidence_level, weak_subjects, strong_subjects)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`
	err = s.db.QueryRowContext(ctx, query,
		p.Name, p.Email, p.ExamTrack, p.TargetExamYear, p.StudyHoursPerDay, p.PreferredStudyTime,
		p.AdaptiveDifficulty, p.ConfidenceLevel, pq.Array(p.WeakSubjects), pq.Array(p.StrongSubjects),
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, contextutils.WrapErrorf(contextutils.ErrRecordExists, "email %s is already registered", p.Email.String)
		}
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to create profile: %w", err)
	}

	span.SetAttributes(observability.AttributeUserID(p.ID), observability.AttributeExamTrack(string(p.ExamTrack)))
	s.logger.Info(ctx, "Created learner profile", map[string]interface{}{
		"user_id":    p.ID,
		"exam_track": p.ExamTrack,
	})
	return &p, nil
}

// GetUser returns the profile or ErrRecordNotFound
func (s *UserService) GetUser(ctx context.Context, id int) (result0 *models.UserProfile, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_user", observability.AttributeUserID(id))
	defer observability.FinishSpan(span, &err)

	query := fmt.Sprintf("SELECT %s FROM user_profiles WHERE id = $1", userSelectFields)
	p, err := scanProfile(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "user %d not found", id)
		}
		s.logger.Error(ctx, "Database error retrieving profile", err, map[string]interface{}{"user_id": id})
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to load user %d: %w", id, err)
	}
	return p, nil
}

// ListUsers returns every profile ordered by id
func (s *UserService) ListUsers(ctx context.Context) (result0 []models.UserProfile, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "list_users")
	defer observability.FinishSpan(span, &err)

	query := fmt.Sprintf("SELECT %s FROM user_profiles ORDER BY id", userSelectFields)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to list users: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	profiles := []models.UserProfile{}
	for rows.Next() {
		p, scanErr := scanProfile(rows)
		if scanErr != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to scan profile: %w", scanErr)
		}
		profiles = append(profiles, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to iterate profiles: %w", err)
	}

	span.SetAttributes(attribute.Int("users.count", len(profiles)))
	return profiles, nil
}

// UpdateUser replaces the editable profile fields
func (s *UserService) UpdateUser(ctx context.Context, id int, profile *models.UserProfile) (result0 *models.UserProfile, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "update_user", observability.AttributeUserID(id))
	defer observability.FinishSpan(span, &err)

	if profile == nil {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "profile is required")
	}
	p := *profile
	p.ID = id
	p.Name = strings.TrimSpace(p.Name)
	p.ApplyDefaults()
	if err = contextutils.ValidateStruct(&p); err != nil {
		return nil, err
	}

	query := `UPDATE user_profiles
		SET name = $2, email = $3, exam_track = $4, target_exam_year = $5, study_hours_per_day = $6,
			preferred_study_time = $7, adaptive_difficulty = $8, confidence_level = $9,
			weak_subjects = $10, strong_subjects = $11, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`
	err = s.db.QueryRowContext(ctx, query,
		id, p.Name, p.Email, p.ExamTrack, p.TargetExamYear, p.StudyHoursPerDay, p.PreferredStudyTime,
		p.AdaptiveDifficulty, p.ConfidenceLevel, pq.Array(p.WeakSubjects), pq.Array(p.StrongSubjects),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "user %d not found", id)
		}
		if database.IsUniqueViolation(err) {
			return nil, contextutils.WrapErrorf(contextutils.ErrRecordExists, "email %s is already registered", p.Email.String)
		}
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to update user %d: %w", id, err)
	}
	return &p, nil
}

// ApplyDirectives applies advisory directives the caller accepted: workload
// changes move study hours, focus directives mark weak subjects, difficulty
// directives raise adaptive difficulty.
func (s *UserService) ApplyDirectives(ctx context.Context, userID int, directives []models.Directive) (result0 *models.UserProfile, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "apply_directives",
		observability.AttributeUserID(userID),
		attribute.Int("directives.count", len(directives)),
	)
	defer observability.FinishSpan(span, &err)

	var updated *models.UserProfile
	err = database.WithUserLock(ctx, s.db, userID, func(tx *sql.Tx) error {
		p, err := s.loadProfileTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		for _, d := range directives {
			switch d.Type {
			case models.DirectiveReduceWorkload:
				p.StudyHoursPerDay += d.DeltaHours
				if p.StudyHoursPerDay < models.MinStudyHoursPerDay {
					p.StudyHoursPerDay = models.MinStudyHoursPerDay
				}
				if p.StudyHoursPerDay > models.MaxStudyHoursPerDay {
					p.StudyHoursPerDay = models.MaxStudyHoursPerDay
				}
			case models.DirectiveIncreaseFocus:
				if d.SubjectID != "" {
					p.WeakSubjects = appendUnique(p.WeakSubjects, d.SubjectID)
				}
			case models.DirectiveIncreaseDifficulty:
				p.AdaptiveDifficulty = clampUnit(p.AdaptiveDifficulty + difficultyStep)
			default:
				return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown directive type %q", d.Type)
			}
		}
		if err := s.saveAdaptationTx(ctx, tx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Applied roadmap directives", map[string]interface{}{
		"user_id":             userID,
		"directives":          len(directives),
		"study_hours_per_day": updated.StudyHoursPerDay,
	})
	return updated, nil
}

// AdjustForSentiment nudges confidence from chat sentiment and records a
// frustrating subject as weak.
func (s *UserService) AdjustForSentiment(ctx context.Context, userID int, sentiment models.Sentiment, subjectID string) (result0 *models.UserProfile, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "adjust_for_sentiment",
		observability.AttributeUserID(userID),
		attribute.String("sentiment", string(sentiment)),
	)
	defer observability.FinishSpan(span, &err)

	var updated *models.UserProfile
	err = database.WithUserLock(ctx, s.db, userID, func(tx *sql.Tx) error {
		p, err := s.loadProfileTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		switch sentiment {
		case models.SentimentPositive:
			p.ConfidenceLevel = clampUnit(p.ConfidenceLevel + positiveConfidenceDelta)
		case models.SentimentFrustrated:
			p.ConfidenceLevel = clampUnit(p.ConfidenceLevel + frustratedConfidenceDelta)
			if subjectID != "" {
				p.WeakSubjects = appendUnique(p.WeakSubjects, subjectID)
			}
		default:
			updated = p
			return nil
		}
		if err := s.saveAdaptationTx(ctx, tx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *UserService) loadProfileTx(ctx context.Context, tx *sql.Tx, userID int) (*models.UserProfile, error) {
	query := fmt.Sprintf("SELECT %s FROM user_profiles WHERE id = $1", userSelectFields)
	p, err := scanProfile(tx.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "user %d not found", userID)
		}
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to load user %d: %w", userID, err)
	}
	return p, nil
}

func (s *UserService) saveAdaptationTx(ctx context.Context, tx *sql.Tx, p *models.UserProfile) error {
	query := `UPDATE user_profiles
		SET study_hours_per_day = $2, adaptive_difficulty = $3, confidence_level = $4, weak_subjects = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := tx.QueryRowContext(ctx, query,
		p.ID, p.StudyHoursPerDay, p.AdaptiveDifficulty, p.ConfidenceLevel, pq.Array(p.WeakSubjects),
	).Scan(&p.UpdatedAt)
	if err != nil {
		return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to save profile %d: %w", p.ID, err)
	}
	return nil
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

// clampUnit bounds v to [0,1], rounded to 4 decimals to keep repeated nudges stable
func clampUnit(v float64) float64 {
	v = math.Round(v*10000) / 10000
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
