package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"coachapp/internal/config"
	"coachapp/internal/database"
	"coachapp/internal/models"
	"coachapp/internal/observability"
	"coachapp/internal/planner"
	contextutils "coachapp/internal/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// RoadmapServiceInterface generates, stores and reconciles weekly roadmaps.
type RoadmapServiceInterface interface {
	GenerateWeeklyRoadmap(ctx context.Context, userID, weekOffset int) (*models.Roadmap, error)
	GetRoadmap(ctx context.Context, userID, weekOffset int) (*models.Roadmap, error)
	UpdateRoadmapItemStatus(ctx context.Context, itemID uuid.UUID, status models.ItemStatus) error
	GetRoadmapAnalytics(ctx context.Context, userID, weeksBack int) (*models.RoadmapAnalytics, error)
	AdaptRoadmapBasedOnPerformance(ctx context.Context, userID int) ([]models.Directive, error)
	ListUsersWithoutRoadmap(ctx context.Context, weekOffset int) ([]int, error)
}

// RoadmapService ties the planner to the profile, catalog and progress stores
type RoadmapService struct {
	db       *sql.DB
	cfg      *config.Config
	logger   *observability.Logger
	users    UserServiceInterface
	catalog  CatalogServiceInterface
	progress ProgressServiceInterface
	cache    RoadmapCache
	metrics  *observability.CoachMetrics
	now      func() time.Time
}

var _ RoadmapServiceInterface = (*RoadmapService)(nil)

// dbQueryer is satisfied by *sql.DB and *sql.Tx
type dbQueryer interface {
	queryRower
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

const roadmapSelectFields = `id, user_id, week_number, year, week_start, status, phase, intensity, months_remaining, allocation, priority_order, focus_areas, weekly_hours, created_at`

// NewRoadmapServiceWithLogger creates a new RoadmapService instance with logger
func NewRoadmapServiceWithLogger(
	db *sql.DB,
	cfg *config.Config,
	logger *observability.Logger,
	users UserServiceInterface,
	catalog CatalogServiceInterface,
	progress ProgressServiceInterface,
	cache RoadmapCache,
	metrics *observability.CoachMetrics,
) *RoadmapService {
	if cache == nil {
		cache = NoopRoadmapCache{}
	}
	return &RoadmapService{
		db:       db,
		cfg:      cfg,
		logger:   logger,
		users:    users,
		catalog:  catalog,
		progress: progress,
		cache:    cache,
		metrics:  metrics,
		now:      time.Now,
	}
}

// GenerateWeeklyRoadmap builds and stores the roadmap for the week at
// weekOffset. A roadmap already stored for that week is returned unchanged
// with Existing set.
func (s *RoadmapService) GenerateWeeklyRoadmap(ctx context.Context, userID, weekOffset int) (result0 *models.Roadmap, err error) {
	ctx, span := observability.TraceRoadmapFunction(ctx, "generate_weekly_roadmap",
		observability.AttributeUserID(userID),
		observability.AttributeWeekOffset(weekOffset),
	)
	defer observability.FinishSpan(span, &err)

	started := time.Now()
	now := s.now()

	profile, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	weekStart := planner.WeekStart(now, weekOffset)
	year, week := weekStart.ISOWeek()
	span.SetAttributes(attribute.Int("roadmap.year", year), attribute.Int("roadmap.week", week))

	existing, err := s.loadRoadmap(ctx, s.db, userID, year, week)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		existing.Existing = true
		span.SetAttributes(attribute.Bool("roadmap.existing", true))
		return existing, nil
	}

	progress, err := s.progress.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	topics, err := s.catalog.TopicsBySubject(ctx, profile.ExamTrack)
	if err != nil {
		return nil, err
	}

	plan, err := planner.BuildWeek(planner.BuildInput{
		Profile:  profile,
		Topics:   topics,
		Progress: progress,
		Now:      now,
	})
	if err != nil {
		return nil, err
	}

	roadmap := roadmapFromPlan(userID, year, week, weekStart, plan)

	raced := false
	err = database.WithUserLock(ctx, s.db, userID, func(tx *sql.Tx) error {
		var id uuid.UUID
		lookupErr := tx.QueryRowContext(ctx,
			`SELECT id FROM study_roadmaps WHERE user_id = $1 AND year = $2 AND week_number = $3`,
			userID, year, week,
		).Scan(&id)
		if lookupErr == nil {
			raced = true
			return nil
		}
		if !errors.Is(lookupErr, sql.ErrNoRows) {
			return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to check for roadmap: %w", lookupErr)
		}
		return s.insertRoadmapTx(ctx, tx, roadmap)
	})
	if err != nil {
		return nil, err
	}

	if raced {
		existing, err = s.loadRoadmap(ctx, s.db, userID, year, week)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrConflict, "roadmap for %d-W%02d vanished during generation", year, week)
		}
		existing.Existing = true
		return existing, nil
	}

	s.cache.Set(ctx, roadmap)
	s.metrics.RecordRoadmapGenerated(ctx, string(profile.ExamTrack), time.Since(started))

	span.SetAttributes(
		observability.AttributeRoadmapID(roadmap.ID.String()),
		attribute.Int("roadmap.items", len(roadmap.Items)),
		attribute.String("roadmap.phase", string(roadmap.Phase)),
	)
	s.logger.Info(ctx, "Generated weekly roadmap", map[string]interface{}{
		"user_id":    userID,
		"roadmap_id": roadmap.ID.String(),
		"year":       year,
		"week":       week,
		"phase":      roadmap.Phase,
		"items":      len(roadmap.Items),
	})
	return roadmap, nil
}

// roadmapFromPlan turns a plan into a roadmap with one item per activity that
// has a topic, positioned in day then activity order.
func roadmapFromPlan(userID, year, week int, weekStart time.Time, plan *planner.WeekPlan) *models.Roadmap {
	roadmap := &models.Roadmap{
		ID:              uuid.New(),
		UserID:          userID,
		WeekNumber:      week,
		Year:            year,
		WeekStart:       weekStart,
		Status:          models.RoadmapActive,
		Phase:           plan.Phase,
		Intensity:       plan.Intensity,
		MonthsRemaining: plan.MonthsRemaining,
		Allocation:      plan.Allocation,
		PriorityOrder:   plan.Priority,
		FocusAreas:      plan.FocusAreas,
		WeeklyHours:     plan.WeeklyHours,
		Items:           []models.RoadmapItem{},
	}

	position := 0
	for day := 1; day <= planner.DaysPerWeek; day++ {
		for _, a := range plan.Days[day] {
			if a.TopicID == "" {
				continue
			}
			roadmap.Items = append(roadmap.Items, models.RoadmapItem{
				ID:           uuid.New(),
				RoadmapID:    roadmap.ID,
				TopicID:      a.TopicID,
				TopicName:    a.TopicName,
				SubjectID:    a.SubjectID,
				DayOfWeek:    day,
				ActivityType: a.Type,
				StudyHours:   a.Hours,
				Priority:     a.Priority,
				Position:     position,
				Status:       models.ItemPending,
			})
			position++
		}
	}
	return roadmap
}

func (s *RoadmapService) insertRoadmapTx(ctx context.Context, tx *sql.Tx, roadmap *models.Roadmap) error {
	allocation, err := json.Marshal(roadmap.Allocation)
	if err != nil {
		return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to encode allocation: %v", err)
	}
	priority, err := json.Marshal(roadmap.PriorityOrder)
	if err != nil {
		return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to encode priority order: %v", err)
	}
	focus, err := json.Marshal(roadmap.FocusAreas)
	if err != nil {
		return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to encode focus areas: %v", err)
	}
	hours, err := json.Marshal(roadmap.WeeklyHours)
	if err != nil {
		return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to encode weekly hours: %v", err)
	}

	err = tx.QueryRowContext(ctx, `INSERT INTO study_roadmaps
			(id, user_id, week_number, year, week_start, status, phase, intensity, months_remaining, allocation, priority_order, focus_areas, weekly_hours)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at`,
		roadmap.ID, roadmap.UserID, roadmap.WeekNumber, roadmap.Year, roadmap.WeekStart, roadmap.Status,
		roadmap.Phase, roadmap.Intensity, roadmap.MonthsRemaining,
		string(allocation), string(priority), string(focus), string(hours),
	).Scan(&roadmap.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return contextutils.WrapErrorf(contextutils.ErrRecordExists, "roadmap for %d-W%02d already exists", roadmap.Year, roadmap.WeekNumber)
		}
		return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to insert roadmap: %w", err)
	}

	for _, item := range roadmap.Items {
		_, err = tx.ExecContext(ctx, `INSERT INTO roadmap_items
				(id, roadmap_id, topic_id, subject_id, day_of_week, activity_type, study_hours, priority, position, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			item.ID, item.RoadmapID, item.TopicID, item.SubjectID, item.DayOfWeek, item.ActivityType,
			item.StudyHours, item.Priority, item.Position, item.Status,
		)
		if err != nil {
			return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to insert roadmap item %d: %w", item.Position, err)
		}
	}
	return nil
}

// GetRoadmap returns the stored roadmap for the week at weekOffset, or nil
// when none exists
func (s *RoadmapService) GetRoadmap(ctx context.Context, userID, weekOffset int) (result0 *models.Roadmap, err error) {
	ctx, span := observability.TraceRoadmapFunction(ctx, "get_roadmap",
		observability.AttributeUserID(userID),
		observability.AttributeWeekOffset(weekOffset),
	)
	defer observability.FinishSpan(span, &err)

	year, week := planner.WeekStart(s.now(), weekOffset).ISOWeek()

	if cached, ok := s.cache.Get(ctx, userID, year, week); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}

	roadmap, err := s.loadRoadmap(ctx, s.db, userID, year, week)
	if err != nil {
		return nil, err
	}
	if roadmap == nil {
		return nil, nil
	}
	s.cache.Set(ctx, roadmap)
	return roadmap, nil
}

// loadRoadmap reads a roadmap with its items, or nil when none is stored
func (s *RoadmapService) loadRoadmap(ctx context.Context, q dbQueryer, userID, year, week int) (*models.Roadmap, error) {
	roadmap := &models.Roadmap{}
	var allocation, priority, focus, hours []byte
	err := q.QueryRowContext(ctx,
		`SELECT `+roadmapSelectFields+` FROM study_roadmaps WHERE user_id = $1 AND year = $2 AND week_number = $3`,
		userID, year, week,
	).Scan(
		&roadmap.ID, &roadmap.UserID, &roadmap.WeekNumber, &roadmap.Year, &roadmap.WeekStart, &roadmap.Status,
		&roadmap.Phase, &roadmap.Intensity, &roadmap.MonthsRemaining, &allocation, &priority, &focus, &hours, &roadmap.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to load roadmap: %w", err)
	}

	for _, col := range []struct {
		raw  []byte
		dest interface{}
	}{
		{allocation, &roadmap.Allocation},
		{priority, &roadmap.PriorityOrder},
		{focus, &roadmap.FocusAreas},
		{hours, &roadmap.WeeklyHours},
	} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.dest); err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to decode roadmap %s: %v", roadmap.ID, err)
		}
	}

	rows, err := q.QueryContext(ctx, `SELECT ri.id, ri.roadmap_id, COALESCE(ri.topic_id, ''), COALESCE(t.name, ''), ri.subject_id, ri.day_of_week,
			ri.activity_type, ri.study_hours, ri.priority, ri.position, ri.status, ri.completed_at
		FROM roadmap_items ri
		LEFT JOIN topics t ON t.id = ri.topic_id
		WHERE ri.roadmap_id = $1
		ORDER BY ri.position`, roadmap.ID)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to load roadmap items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	roadmap.Items = []models.RoadmapItem{}
	for rows.Next() {
		var item models.RoadmapItem
		if err := rows.Scan(&item.ID, &item.RoadmapID, &item.TopicID, &item.TopicName, &item.SubjectID, &item.DayOfWeek,
			&item.ActivityType, &item.StudyHours, &item.Priority, &item.Position, &item.Status, &item.CompletedAt); err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to scan roadmap item: %w", err)
		}
		roadmap.Items = append(roadmap.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to iterate roadmap items: %w", err)
	}
	return roadmap, nil
}

// UpdateRoadmapItemStatus sets an item's status. The roadmap completes once
// no item with hours is pending and reopens if one goes back to pending.
func (s *RoadmapService) UpdateRoadmapItemStatus(ctx context.Context, itemID uuid.UUID, status models.ItemStatus) (err error) {
	ctx, span := observability.TraceRoadmapFunction(ctx, "update_roadmap_item_status",
		attribute.String("roadmap_item.id", itemID.String()),
		attribute.String("roadmap_item.status", string(status)),
	)
	defer observability.FinishSpan(span, &err)

	if !status.Valid() {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid item status %q", string(status))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return contextutils.WrapErrorf(contextutils.ErrDatabaseTransaction, "failed to begin transaction: %v", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var roadmapID uuid.UUID
	err = tx.QueryRowContext(ctx, `UPDATE roadmap_items
		SET status = $2, completed_at = CASE WHEN $2 = 'completed' THEN NOW() ELSE NULL END
		WHERE id = $1
		RETURNING roadmap_id`, itemID, status).Scan(&roadmapID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "roadmap item %s not found", itemID)
		}
		return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to update roadmap item: %w", err)
	}

	var userID int
	var roadmapStatus models.RoadmapStatus
	err = tx.QueryRowContext(ctx, `UPDATE study_roadmaps
		SET status = CASE WHEN EXISTS (SELECT 1 FROM roadmap_items WHERE roadmap_id = $1 AND status = 'pending' AND study_hours > 0) THEN 'active' ELSE 'completed' END
		WHERE id = $1
		RETURNING user_id, status`, roadmapID).Scan(&userID, &roadmapStatus)
	if err != nil {
		return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to refresh roadmap status: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return contextutils.WrapErrorf(contextutils.ErrDatabaseTransaction, "failed to commit transaction: %v", err)
	}

	s.cache.Invalidate(ctx, userID)
	span.SetAttributes(observability.AttributeRoadmapID(roadmapID.String()), attribute.String("roadmap.status", string(roadmapStatus)))
	s.logger.Info(ctx, "Updated roadmap item status", map[string]interface{}{
		"user_id":        userID,
		"roadmap_id":     roadmapID.String(),
		"item_id":        itemID.String(),
		"item_status":    status,
		"roadmap_status": roadmapStatus,
	})
	return nil
}

// GetRoadmapAnalytics reports per-week completion over the weeksBack most
// recent weeks, current week included. Zero-hour items are not counted and
// items whose topic was deleted are skipped.
func (s *RoadmapService) GetRoadmapAnalytics(ctx context.Context, userID, weeksBack int) (result0 *models.RoadmapAnalytics, err error) {
	ctx, span := observability.TraceRoadmapFunction(ctx, "get_roadmap_analytics",
		observability.AttributeUserID(userID),
		attribute.Int("analytics.weeks_back", weeksBack),
	)
	defer observability.FinishSpan(span, &err)

	if weeksBack <= 0 {
		weeksBack = config.DefaultAnalyticsWeeks
		if s.cfg != nil && s.cfg.Planner.AnalyticsWeeks > 0 {
			weeksBack = s.cfg.Planner.AnalyticsWeeks
		}
	}
	now := s.now()
	since := planner.WeekStart(now, -(weeksBack - 1))
	until := planner.WeekStart(now, 0)

	rows, err := s.db.QueryContext(ctx, `SELECT r.year, r.week_number, r.week_start, ri.id, ri.status, t.id IS NOT NULL
		FROM study_roadmaps r
		JOIN roadmap_items ri ON ri.roadmap_id = r.id
		LEFT JOIN topics t ON t.id = ri.topic_id
		WHERE r.user_id = $1 AND r.week_start >= $2 AND r.week_start <= $3 AND ri.study_hours > 0
		ORDER BY r.week_start DESC, ri.position`, userID, since, until)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to load roadmap analytics: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	var weeks []models.WeekCompletion
	index := make(map[string]int)
	skipped := 0
	for rows.Next() {
		var (
			year, weekNumber int
			weekStart        time.Time
			itemID           uuid.UUID
			status           models.ItemStatus
			topicExists      bool
		)
		if err = rows.Scan(&year, &weekNumber, &weekStart, &itemID, &status, &topicExists); err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to scan analytics row: %w", err)
		}
		if !topicExists {
			skipped++
			s.logger.Warn(ctx, "Skipping roadmap item with missing topic", map[string]interface{}{
				"user_id":    userID,
				"item_id":    itemID.String(),
				"error_code": contextutils.ErrorCodeInconsistentState,
			})
			continue
		}

		key := roadmapCacheField(year, weekNumber)
		i, ok := index[key]
		if !ok {
			weeks = append(weeks, models.WeekCompletion{Year: year, WeekNumber: weekNumber, WeekStart: weekStart})
			i = len(weeks) - 1
			index[key] = i
		}
		w := &weeks[i]
		w.Total++
		switch status {
		case models.ItemCompleted:
			w.Completed++
		case models.ItemSkipped:
			w.Skipped++
		default:
			w.Pending++
		}
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to iterate analytics rows: %w", err)
	}

	analytics := planner.Summarize(userID, weeksBack, weeks)
	span.SetAttributes(
		attribute.Int("analytics.weeks_tracked", analytics.TotalWeeksTracked),
		attribute.Float64("analytics.avg_completion_rate", analytics.AvgCompletionRate),
		attribute.Int("analytics.items_skipped", skipped),
	)
	return analytics, nil
}

// AdaptRoadmapBasedOnPerformance returns advisory directives from the last two
// weeks of completion and current progress. Nothing is applied.
func (s *RoadmapService) AdaptRoadmapBasedOnPerformance(ctx context.Context, userID int) (result0 []models.Directive, err error) {
	ctx, span := observability.TraceRoadmapFunction(ctx, "adapt_roadmap", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	if _, err = s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	recent, err := s.GetRoadmapAnalytics(ctx, userID, planner.RecentWeeksForAdapt)
	if err != nil {
		return nil, err
	}
	progress, err := s.progress.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	names, err := s.catalog.SubjectNames(ctx)
	if err != nil {
		return nil, err
	}

	directives := planner.Adapt(planner.AdaptInput{
		Recent:       recent,
		Progress:     progress,
		SubjectNames: names,
	})
	if directives == nil {
		directives = []models.Directive{}
	}

	types := make([]string, 0, len(directives))
	for _, d := range directives {
		s.metrics.RecordDirective(ctx, string(d.Type))
		types = append(types, string(d.Type))
	}
	span.SetAttributes(attribute.StringSlice("directives", types))
	s.logger.Info(ctx, "Computed roadmap adaptations", map[string]interface{}{
		"user_id":             userID,
		"directives":          types,
		"avg_completion_rate": recent.AvgCompletionRate,
	})
	return directives, nil
}

// ListUsersWithoutRoadmap returns ids of learners with no roadmap for the week at weekOffset
func (s *RoadmapService) ListUsersWithoutRoadmap(ctx context.Context, weekOffset int) (result0 []int, err error) {
	ctx, span := observability.TraceRoadmapFunction(ctx, "list_users_without_roadmap", observability.AttributeWeekOffset(weekOffset))
	defer observability.FinishSpan(span, &err)

	year, week := planner.WeekStart(s.now(), weekOffset).ISOWeek()
	rows, err := s.db.QueryContext(ctx, `SELECT u.id FROM user_profiles u
		WHERE NOT EXISTS (SELECT 1 FROM study_roadmaps r WHERE r.user_id = u.id AND r.year = $1 AND r.week_number = $2)
		ORDER BY u.id`, year, week)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to list users without roadmap: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	ids := []int{}
	for rows.Next() {
		var id int
		if err = rows.Scan(&id); err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to iterate user ids: %w", err)
	}
	span.SetAttributes(attribute.Int("users.pending", len(ids)))
	return ids, nil
}
