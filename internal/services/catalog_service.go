package services

import (
	"context"
	"database/sql"
	"errors"

	"coachapp/internal/catalog"
	"coachapp/internal/config"
	"coachapp/internal/models"
	"coachapp/internal/observability"
	contextutils "coachapp/internal/utils"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
)

// CatalogServiceInterface is the read side of the subject and topic reference data.
type CatalogServiceInterface interface {
	Seed(ctx context.Context, c *catalog.Catalog) (subjects, topics int, err error)
	ListSubjects(ctx context.Context, track models.ExamTrack) ([]models.Subject, error)
	ListTopics(ctx context.Context, subjectID string) ([]models.Topic, error)
	TopicsBySubject(ctx context.Context, track models.ExamTrack) (map[string][]models.Topic, error)
	GetTopic(ctx context.Context, topicID string) (*models.Topic, error)
	SubjectNames(ctx context.Context) (map[string]string, error)
}

// CatalogService reads and seeds subjects and topics
type CatalogService struct {
	db     *sql.DB
	cfg    *config.Config
	logger *observability.Logger
}

var _ CatalogServiceInterface = (*CatalogService)(nil)

const topicSelectFields = `id, subject_id, name, chapter, difficulty, importance, estimated_hours, prerequisites`

// NewCatalogServiceWithLogger creates a new CatalogService instance with logger
func NewCatalogServiceWithLogger(db *sql.DB, cfg *config.Config, logger *observability.Logger) *CatalogService {
	return &CatalogService{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
}

// Seed inserts the catalog idempotently and returns how many rows were new
func (s *CatalogService) Seed(ctx context.Context, c *catalog.Catalog) (subjects, topics int, err error) {
	ctx, span := observability.TraceCatalogFunction(ctx, "seed_catalog")
	defer observability.FinishSpan(span, &err)

	if c == nil {
		return 0, 0, contextutils.WrapError(contextutils.ErrInvalidInput, "catalog is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, contextutils.WrapErrorf(contextutils.ErrDatabaseTransaction, "failed to begin transaction: %v", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, subj := range c.AllSubjects() {
		res, execErr := tx.ExecContext(ctx,
			`INSERT INTO subjects (id, name, exam_applicability, description) VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
			subj.ID, subj.Name, subj.ExamApplicability, subj.Description)
		if execErr != nil {
			return 0, 0, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to seed subject %s: %w", subj.ID, execErr)
		}
		subjects += affected(res)
	}

	for _, topic := range c.AllTopics() {
		res, execErr := tx.ExecContext(ctx,
			`INSERT INTO topics (id, subject_id, name, chapter, difficulty, importance, estimated_hours, prerequisites)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (id) DO NOTHING`,
			topic.ID, topic.SubjectID, topic.Name, topic.Chapter, topic.Difficulty, topic.Importance,
			topic.EstimatedHours, pq.Array(topic.Prerequisites))
		if execErr != nil {
			return 0, 0, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to seed topic %s: %w", topic.ID, execErr)
		}
		topics += affected(res)
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, contextutils.WrapErrorf(contextutils.ErrDatabaseTransaction, "failed to commit catalog seed: %v", err)
	}

	span.SetAttributes(attribute.Int("catalog.subjects_inserted", subjects), attribute.Int("catalog.topics_inserted", topics))
	s.logger.Info(ctx, "Seeded topic catalog", map[string]interface{}{
		"subjects_inserted": subjects,
		"topics_inserted":   topics,
		"topics_total":      c.TopicCount(),
	})
	return subjects, topics, nil
}

func affected(res sql.Result) int {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return int(n)
}

// ListSubjects returns subjects for a track, or every subject when track is empty
func (s *CatalogService) ListSubjects(ctx context.Context, track models.ExamTrack) (result0 []models.Subject, err error) {
	ctx, span := observability.TraceCatalogFunction(ctx, "list_subjects", observability.AttributeExamTrack(string(track)))
	defer observability.FinishSpan(span, &err)

	if track != "" && !track.Valid() {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown exam track %q", string(track))
	}

	query := `SELECT id, name, exam_applicability, description FROM subjects`
	var args []interface{}
	if track != "" {
		query += ` WHERE exam_applicability IN ($1, 'BOTH')`
		args = append(args, string(track))
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to list subjects: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	subjects := []models.Subject{}
	for rows.Next() {
		var subj models.Subject
		if err = rows.Scan(&subj.ID, &subj.Name, &subj.ExamApplicability, &subj.Description); err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to scan subject: %w", err)
		}
		subjects = append(subjects, subj)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to iterate subjects: %w", err)
	}
	return subjects, nil
}

// ListTopics returns a subject's topics ordered by id. An unknown subject is
// ErrRecordNotFound; a known subject with no topics is an empty list.
func (s *CatalogService) ListTopics(ctx context.Context, subjectID string) (result0 []models.Topic, err error) {
	ctx, span := observability.TraceCatalogFunction(ctx, "list_topics", observability.AttributeSubjectID(subjectID))
	defer observability.FinishSpan(span, &err)

	var exists bool
	if err = s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM subjects WHERE id = $1)`, subjectID).Scan(&exists); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to look up subject %s: %w", subjectID, err)
	}
	if !exists {
		return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "subject %s not found", subjectID)
	}

	return s.queryTopics(ctx, `SELECT `+topicSelectFields+` FROM topics WHERE subject_id = $1 ORDER BY id`, subjectID)
}

// TopicsBySubject groups the topics of every subject studied for track
func (s *CatalogService) TopicsBySubject(ctx context.Context, track models.ExamTrack) (result0 map[string][]models.Topic, err error) {
	ctx, span := observability.TraceCatalogFunction(ctx, "topics_by_subject", observability.AttributeExamTrack(string(track)))
	defer observability.FinishSpan(span, &err)

	if !track.Valid() {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidProfile, "unknown exam track %q", string(track))
	}

	topics, err := s.queryTopics(ctx, `SELECT t.id, t.subject_id, t.name, t.chapter, t.difficulty, t.importance, t.estimated_hours, t.prerequisites
		FROM topics t JOIN subjects s ON s.id = t.subject_id
		WHERE s.exam_applicability IN ($1, 'BOTH')
		ORDER BY t.subject_id, t.id`, string(track))
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]models.Topic)
	for _, t := range topics {
		grouped[t.SubjectID] = append(grouped[t.SubjectID], t)
	}
	span.SetAttributes(attribute.Int("catalog.topics", len(topics)))
	return grouped, nil
}

// GetTopic returns one topic or ErrRecordNotFound
func (s *CatalogService) GetTopic(ctx context.Context, topicID string) (result0 *models.Topic, err error) {
	ctx, span := observability.TraceCatalogFunction(ctx, "get_topic", observability.AttributeTopicID(topicID))
	defer observability.FinishSpan(span, &err)

	t, err := scanTopic(s.db.QueryRowContext(ctx, `SELECT `+topicSelectFields+` FROM topics WHERE id = $1`, topicID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "topic %s not found", topicID)
		}
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to load topic %s: %w", topicID, err)
	}
	return t, nil
}

// SubjectNames maps every subject id to its display name
func (s *CatalogService) SubjectNames(ctx context.Context) (result0 map[string]string, err error) {
	subjects, err := s.ListSubjects(ctx, "")
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(subjects))
	for _, subj := range subjects {
		names[subj.ID] = subj.Name
	}
	return names, nil
}

func (s *CatalogService) queryTopics(ctx context.Context, query string, args ...interface{}) (result0 []models.Topic, err error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to list topics: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	topics := []models.Topic{}
	for rows.Next() {
		t, scanErr := scanTopic(rows)
		if scanErr != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to scan topic: %w", scanErr)
		}
		topics = append(topics, *t)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to iterate topics: %w", err)
	}
	return topics, nil
}

func scanTopic(row rowScanner) (*models.Topic, error) {
	t := &models.Topic{}
	err := row.Scan(&t.ID, &t.SubjectID, &t.Name, &t.Chapter, &t.Difficulty, &t.Importance, &t.EstimatedHours, pq.Array(&t.Prerequisites))
	if err != nil {
		return nil, err
	}
	if t.Prerequisites == nil {
		t.Prerequisites = []string{}
	}
	return t, nil
}
