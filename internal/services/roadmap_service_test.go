package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"coachapp/internal/config"
	"coachapp/internal/models"
	"coachapp/internal/planner"
	contextutils "coachapp/internal/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	roadmapColumns = []string{
		"id", "user_id", "week_number", "year", "week_start", "status", "phase", "intensity", "months_remaining",
		"allocation", "priority_order", "focus_areas", "weekly_hours", "created_at",
	}
	roadmapItemColumns = []string{
		"id", "roadmap_id", "topic_id", "name", "subject_id", "day_of_week", "activity_type", "study_hours",
		"priority", "position", "status", "completed_at",
	}
	analyticsColumns = []string{"year", "week_number", "week_start", "id", "status", "topic_exists"}

	currentWeekStart = time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	lastWeekStart    = time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC)
)

type roadmapFixture struct {
	service  *RoadmapService
	mock     sqlmock.Sqlmock
	users    *MockUserService
	catalog  *MockCatalogService
	progress *MockProgressService
	cache    *memoryRoadmapCache
}

func newTestRoadmapService(t *testing.T) (*roadmapFixture, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	f := &roadmapFixture{
		mock:     mock,
		users:    &MockUserService{},
		catalog:  &MockCatalogService{},
		progress: &MockProgressService{},
		cache:    newMemoryRoadmapCache(),
	}
	cfg := &config.Config{Planner: config.PlannerConfig{AnalyticsWeeks: 4}}
	f.service = NewRoadmapServiceWithLogger(db, cfg, testLogger(), f.users, f.catalog, f.progress, f.cache, nil)
	f.service.now = func() time.Time { return fixedNow }

	cleanup := func() {
		require.NoError(t, mock.ExpectationsWereMet())
		f.users.AssertExpectations(t)
		f.catalog.AssertExpectations(t)
		f.progress.AssertExpectations(t)
		require.NoError(t, db.Close())
	}
	return f, cleanup
}

func jeeProfile(id int) *models.UserProfile {
	return &models.UserProfile{
		ID:               id,
		Name:             "Asha",
		ExamTrack:        models.ExamTrackJEE,
		TargetExamYear:   2027,
		StudyHoursPerDay: 4,
	}
}

func storedRoadmapRows(id uuid.UUID, userID int) *sqlmock.Rows {
	return sqlmock.NewRows(roadmapColumns).AddRow(
		id.String(), userID, 42, 2026, currentWeekStart, "active", "foundation", "medium_high", 6,
		`{"physics_jee_neet":33,"chemistry_jee_neet":33,"mathematics_jee":34}`,
		`["physics_jee_neet","chemistry_jee_neet","mathematics_jee"]`,
		`["Basic concepts","Fundamental problems","NCERT textbooks"]`,
		`{"physics_jee_neet":9,"chemistry_jee_neet":9,"mathematics_jee":10}`,
		fixedNow,
	)
}

func TestRoadmapService_GenerateWeeklyRoadmapForNewLearner(t *testing.T) {
	f, cleanup := newTestRoadmapService(t)
	defer cleanup()

	f.users.On("GetUser", mock.Anything, 5).Return(jeeProfile(5), nil)
	f.progress.On("GetProgress", mock.Anything, 5).Return([]models.ProgressRecord{}, nil)
	f.catalog.On("TopicsBySubject", mock.Anything, models.ExamTrackJEE).Return(map[string][]models.Topic{
		planner.SubjectPhysics: {
			{ID: "physics_jee_neet_kinematics", SubjectID: planner.SubjectPhysics, Name: "Kinematics", Difficulty: 2, Importance: 5},
			{ID: "physics_jee_neet_laws_of_motion", SubjectID: planner.SubjectPhysics, Name: "Laws of Motion", Difficulty: 3, Importance: 5},
		},
		planner.SubjectChemistry: {
			{ID: "chemistry_jee_neet_mole_concept", SubjectID: planner.SubjectChemistry, Name: "Mole Concept", Difficulty: 2, Importance: 5},
		},
	}, nil)

	f.mock.ExpectQuery(`SELECT id, user_id, week_number`).
		WithArgs(5, 2026, 42).
		WillReturnRows(sqlmock.NewRows(roadmapColumns))
	f.mock.ExpectBegin()
	f.mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectQuery(`SELECT id FROM study_roadmaps`).
		WithArgs(5, 2026, 42).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	f.mock.ExpectQuery(`INSERT INTO study_roadmaps`).
		WithArgs(sqlmock.AnyArg(), 5, 42, 2026, currentWeekStart, "active", "foundation", "medium_high", 6,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(fixedNow))
	f.mock.ExpectExec(`INSERT INTO roadmap_items`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "chemistry_jee_neet_mole_concept", planner.SubjectChemistry, 1,
			"concept_study", 2.0, models.PriorityHigh, 0, "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	for i := 1; i < 8; i++ {
		f.mock.ExpectExec(`INSERT INTO roadmap_items`).WillReturnResult(sqlmock.NewResult(0, 1))
	}
	f.mock.ExpectCommit()

	roadmap, err := f.service.GenerateWeeklyRoadmap(context.Background(), 5, 0)
	require.NoError(t, err)

	assert.False(t, roadmap.Existing)
	assert.Equal(t, 2026, roadmap.Year)
	assert.Equal(t, 42, roadmap.WeekNumber)
	assert.Equal(t, models.PhaseFoundation, roadmap.Phase)
	assert.Equal(t, models.IntensityMediumHigh, roadmap.Intensity)
	assert.Equal(t, map[string]int{
		planner.SubjectPhysics:     33,
		planner.SubjectChemistry:   33,
		planner.SubjectMathematics: 34,
	}, roadmap.Allocation)

	require.Len(t, roadmap.Items, 8)
	for i, item := range roadmap.Items {
		assert.Equal(t, i, item.Position)
		assert.Equal(t, roadmap.ID, item.RoadmapID)
		assert.NotEmpty(t, item.TopicID)
		assert.Equal(t, models.ItemPending, item.Status)
	}
	assert.Equal(t, "physics_jee_neet_laws_of_motion", roadmap.Items[1].TopicID)
	assert.Equal(t, models.ActivityPractice, roadmap.Items[1].ActivityType)
	assert.Equal(t, 2, roadmap.Items[1].DayOfWeek)

	cached, ok := f.cache.Get(context.Background(), 5, 2026, 42)
	require.True(t, ok)
	assert.Equal(t, roadmap.ID, cached.ID)
}

func TestRoadmapService_GenerateWeeklyRoadmapReturnsExisting(t *testing.T) {
	f, cleanup := newTestRoadmapService(t)
	defer cleanup()

	roadmapID := uuid.New()
	itemID := uuid.New()

	f.users.On("GetUser", mock.Anything, 5).Return(jeeProfile(5), nil)
	f.mock.ExpectQuery(`SELECT id, user_id, week_number`).
		WithArgs(5, 2026, 42).
		WillReturnRows(storedRoadmapRows(roadmapID, 5))
	f.mock.ExpectQuery(`FROM roadmap_items ri`).
		WithArgs(roadmapID.String()).
		WillReturnRows(sqlmock.NewRows(roadmapItemColumns).AddRow(
			itemID.String(), roadmapID.String(), "physics_jee_neet_kinematics", "Kinematics", planner.SubjectPhysics, 1,
			"concept_study", 2.0, 1, 0, "completed", fixedNow,
		))

	roadmap, err := f.service.GenerateWeeklyRoadmap(context.Background(), 5, 0)
	require.NoError(t, err)

	assert.True(t, roadmap.Existing)
	assert.Equal(t, roadmapID, roadmap.ID)
	assert.Equal(t, []string{planner.SubjectPhysics, planner.SubjectChemistry, planner.SubjectMathematics}, roadmap.PriorityOrder)
	assert.Equal(t, 34, roadmap.Allocation[planner.SubjectMathematics])
	require.Len(t, roadmap.Items, 1)
	assert.Equal(t, itemID, roadmap.Items[0].ID)
	assert.Equal(t, "Kinematics", roadmap.Items[0].TopicName)
	assert.True(t, roadmap.Items[0].CompletedAt.Valid)
}

func TestRoadmapService_GenerateWeeklyRoadmapLosesRace(t *testing.T) {
	f, cleanup := newTestRoadmapService(t)
	defer cleanup()

	roadmapID := uuid.New()

	f.users.On("GetUser", mock.Anything, 5).Return(jeeProfile(5), nil)
	f.progress.On("GetProgress", mock.Anything, 5).Return([]models.ProgressRecord{}, nil)
	f.catalog.On("TopicsBySubject", mock.Anything, models.ExamTrackJEE).Return(map[string][]models.Topic{}, nil)

	f.mock.ExpectQuery(`SELECT id, user_id, week_number`).
		WithArgs(5, 2026, 42).
		WillReturnRows(sqlmock.NewRows(roadmapColumns))
	f.mock.ExpectBegin()
	f.mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectQuery(`SELECT id FROM study_roadmaps`).
		WithArgs(5, 2026, 42).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(roadmapID.String()))
	f.mock.ExpectCommit()
	f.mock.ExpectQuery(`SELECT id, user_id, week_number`).
		WithArgs(5, 2026, 42).
		WillReturnRows(storedRoadmapRows(roadmapID, 5))
	f.mock.ExpectQuery(`FROM roadmap_items ri`).
		WithArgs(roadmapID.String()).
		WillReturnRows(sqlmock.NewRows(roadmapItemColumns))

	roadmap, err := f.service.GenerateWeeklyRoadmap(context.Background(), 5, 0)
	require.NoError(t, err)
	assert.True(t, roadmap.Existing)
	assert.Equal(t, roadmapID, roadmap.ID)
	assert.Empty(t, roadmap.Items)
}

func TestRoadmapService_GenerateWeeklyRoadmapFavorsWeakSubjects(t *testing.T) {
	f, cleanup := newTestRoadmapService(t)
	defer cleanup()

	// profile as left by an accepted increase_focus directive for chemistry
	profile := jeeProfile(5)
	profile.WeakSubjects = []string{planner.SubjectChemistry}

	f.users.On("GetUser", mock.Anything, 5).Return(profile, nil)
	f.progress.On("GetProgress", mock.Anything, 5).Return([]models.ProgressRecord{}, nil)
	f.catalog.On("TopicsBySubject", mock.Anything, models.ExamTrackJEE).Return(map[string][]models.Topic{}, nil)

	f.mock.ExpectQuery(`SELECT id, user_id, week_number`).
		WithArgs(5, 2026, 42).
		WillReturnRows(sqlmock.NewRows(roadmapColumns))
	f.mock.ExpectBegin()
	f.mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectQuery(`SELECT id FROM study_roadmaps`).
		WithArgs(5, 2026, 42).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	f.mock.ExpectQuery(`INSERT INTO study_roadmaps`).
		WithArgs(sqlmock.AnyArg(), 5, 42, 2026, currentWeekStart, "active", "foundation", "medium_high", 6,
			`{"chemistry_jee_neet":39,"mathematics_jee":31,"physics_jee_neet":30}`,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(fixedNow))
	f.mock.ExpectCommit()

	roadmap, err := f.service.GenerateWeeklyRoadmap(context.Background(), 5, 0)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		planner.SubjectPhysics:     30,
		planner.SubjectChemistry:   39,
		planner.SubjectMathematics: 31,
	}, roadmap.Allocation)
}

func TestRoadmapService_GenerateWeeklyRoadmapRollsBackOnItemFailure(t *testing.T) {
	f, cleanup := newTestRoadmapService(t)
	defer cleanup()

	f.users.On("GetUser", mock.Anything, 5).Return(jeeProfile(5), nil)
	f.progress.On("GetProgress", mock.Anything, 5).Return([]models.ProgressRecord{}, nil)
	f.catalog.On("TopicsBySubject", mock.Anything, models.ExamTrackJEE).Return(map[string][]models.Topic{
		planner.SubjectChemistry: {
			{ID: "chemistry_jee_neet_mole_concept", SubjectID: planner.SubjectChemistry, Name: "Mole Concept", Difficulty: 2, Importance: 5},
		},
	}, nil)

	f.mock.ExpectQuery(`SELECT id, user_id, week_number`).
		WithArgs(5, 2026, 42).
		WillReturnRows(sqlmock.NewRows(roadmapColumns))
	f.mock.ExpectBegin()
	f.mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectQuery(`SELECT id FROM study_roadmaps`).
		WithArgs(5, 2026, 42).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	f.mock.ExpectQuery(`INSERT INTO study_roadmaps`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(fixedNow))
	f.mock.ExpectExec(`INSERT INTO roadmap_items`).
		WillReturnError(errors.New("connection reset by peer"))
	f.mock.ExpectRollback()

	roadmap, err := f.service.GenerateWeeklyRoadmap(context.Background(), 5, 0)
	require.Error(t, err)
	assert.Nil(t, roadmap)
	assert.Equal(t, contextutils.ErrorCodeDatabaseQuery, contextutils.GetErrorCode(err))
	assert.Empty(t, f.cache.entries, "nothing cached for a roadmap that was never committed")
}

func TestRoadmapService_GenerateWeeklyRoadmapUnknownUser(t *testing.T) {
	f, cleanup := newTestRoadmapService(t)
	defer cleanup()

	f.users.On("GetUser", mock.Anything, 9).Return(nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "user %d not found", 9))

	_, err := f.service.GenerateWeeklyRoadmap(context.Background(), 9, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, contextutils.ErrRecordNotFound))
}

func TestRoadmapService_GetRoadmapIsIdempotent(t *testing.T) {
	f, cleanup := newTestRoadmapService(t)
	defer cleanup()

	roadmapID := uuid.New()
	f.mock.ExpectQuery(`SELECT id, user_id, week_number`).
		WithArgs(5, 2026, 43).
		WillReturnRows(storedRoadmapRows(roadmapID, 5))
	f.mock.ExpectQuery(`FROM roadmap_items ri`).
		WithArgs(roadmapID.String()).
		WillReturnRows(sqlmock.NewRows(roadmapItemColumns))

	first, err := f.service.GetRoadmap(context.Background(), 5, 1)
	require.NoError(t, err)
	second, err := f.service.GetRoadmap(context.Background(), 5, 1)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRoadmapService_GetRoadmapMissing(t *testing.T) {
	f, cleanup := newTestRoadmapService(t)
	defer cleanup()

	f.mock.ExpectQuery(`SELECT id, user_id, week_number`).
		WithArgs(5, 2026, 42).
		WillReturnRows(sqlmock.NewRows(roadmapColumns))

	roadmap, err := f.service.GetRoadmap(context.Background(), 5, 0)
	require.NoError(t, err)
	assert.Nil(t, roadmap)
}

func TestRoadmapService_UpdateRoadmapItemStatus(t *testing.T) {
	f, cleanup := newTestRoadmapService(t)
	defer cleanup()

	itemID := uuid.New()
	roadmapID := uuid.New()

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`UPDATE roadmap_items`).
		WithArgs(itemID.String(), "completed").
		WillReturnRows(sqlmock.NewRows([]string{"roadmap_id"}).AddRow(roadmapID.String()))
	// zero-hour items never hold a roadmap open
	f.mock.ExpectQuery(`(?s)UPDATE study_roadmaps.*status = 'pending' AND study_hours > 0`).
		WithArgs(roadmapID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "status"}).AddRow(5, "completed"))
	f.mock.ExpectCommit()

	err := f.service.UpdateRoadmapItemStatus(context.Background(), itemID, models.ItemCompleted)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, f.cache.invalidated)
}

func TestRoadmapService_UpdateRoadmapItemStatusUnknownItem(t *testing.T) {
	f, cleanup := newTestRoadmapService(t)
	defer cleanup()

	itemID := uuid.New()
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`UPDATE roadmap_items`).
		WithArgs(itemID.String(), "skipped").
		WillReturnRows(sqlmock.NewRows([]string{"roadmap_id"}))
	f.mock.ExpectRollback()

	err := f.service.UpdateRoadmapItemStatus(context.Background(), itemID, models.ItemSkipped)
	require.Error(t, err)
	assert.True(t, errors.Is(err, contextutils.ErrRecordNotFound))
	assert.Empty(t, f.cache.invalidated)
}

func TestRoadmapService_UpdateRoadmapItemStatusInvalid(t *testing.T) {
	f, cleanup := newTestRoadmapService(t)
	defer cleanup()

	err := f.service.UpdateRoadmapItemStatus(context.Background(), uuid.New(), models.ItemStatus("done"))
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeInvalidInput, contextutils.GetErrorCode(err))
}

func TestRoadmapService_GetRoadmapAnalyticsSkipsMissingTopics(t *testing.T) {
	f, cleanup := newTestRoadmapService(t)
	defer cleanup()

	since := time.Date(2026, 9, 21, 0, 0, 0, 0, time.UTC)
	f.mock.ExpectQuery(`(?s)FROM study_roadmaps r.*AND ri.study_hours > 0`).
		WithArgs(5, since, currentWeekStart).
		WillReturnRows(sqlmock.NewRows(analyticsColumns).
			AddRow(2026, 42, currentWeekStart, uuid.NewString(), "completed", true).
			AddRow(2026, 42, currentWeekStart, uuid.NewString(), "pending", true).
			AddRow(2026, 41, lastWeekStart, uuid.NewString(), "completed", true).
			AddRow(2026, 41, lastWeekStart, uuid.NewString(), "skipped", true).
			AddRow(2026, 41, lastWeekStart, uuid.NewString(), "pending", false))

	analytics, err := f.service.GetRoadmapAnalytics(context.Background(), 5, 0)
	require.NoError(t, err)

	assert.Equal(t, 4, analytics.WeeksBack)
	assert.Equal(t, 2, analytics.TotalWeeksTracked)
	assert.Equal(t, 50.0, analytics.AvgCompletionRate)
	require.Len(t, analytics.WeeklyStats, 2)
	assert.Equal(t, "2026-W42", analytics.WeeklyStats[0].Week)
	assert.Equal(t, 2, analytics.WeeklyStats[0].Total)
	assert.Equal(t, "2026-W41", analytics.WeeklyStats[1].Week)
	assert.Equal(t, 2, analytics.WeeklyStats[1].Total)
	assert.Equal(t, 1, analytics.WeeklyStats[1].Skipped)
}

func TestRoadmapService_GetRoadmapAnalyticsWithoutRoadmaps(t *testing.T) {
	f, cleanup := newTestRoadmapService(t)
	defer cleanup()

	f.mock.ExpectQuery(`FROM study_roadmaps r`).
		WithArgs(5, lastWeekStart, currentWeekStart).
		WillReturnRows(sqlmock.NewRows(analyticsColumns))

	analytics, err := f.service.GetRoadmapAnalytics(context.Background(), 5, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, analytics.TotalWeeksTracked)
	assert.Equal(t, 0.0, analytics.AvgCompletionRate)
	assert.Empty(t, analytics.WeeklyStats)
}

func TestRoadmapService_AdaptRoadmapBasedOnPerformance(t *testing.T) {
	f, cleanup := newTestRoadmapService(t)
	defer cleanup()

	f.users.On("GetUser", mock.Anything, 5).Return(jeeProfile(5), nil)
	rows := sqlmock.NewRows(analyticsColumns)
	for _, week := range []struct {
		number int
		start  time.Time
	}{{42, currentWeekStart}, {41, lastWeekStart}} {
		for i := 0; i < 5; i++ {
			status := "pending"
			if i < 2 {
				status = "completed"
			}
			rows.AddRow(2026, week.number, week.start, uuid.NewString(), status, true)
		}
	}
	f.mock.ExpectQuery(`FROM study_roadmaps r`).
		WithArgs(5, lastWeekStart, currentWeekStart).
		WillReturnRows(rows)
	f.progress.On("GetProgress", mock.Anything, 5).Return([]models.ProgressRecord{
		{TopicID: "physics_jee_neet_kinematics", SubjectID: planner.SubjectPhysics, MasteryLevel: 0.2, Attempts: 4, Status: models.ProgressStruggling},
		{TopicID: "physics_jee_neet_laws_of_motion", SubjectID: planner.SubjectPhysics, MasteryLevel: 0.3, Attempts: 5, Status: models.ProgressStruggling},
		{TopicID: "chemistry_jee_neet_mole_concept", SubjectID: planner.SubjectChemistry, MasteryLevel: 0.35, Attempts: 6, Status: models.ProgressStruggling},
	}, nil)
	f.catalog.On("SubjectNames", mock.Anything).Return(map[string]string{planner.SubjectPhysics: "Physics"}, nil)

	directives, err := f.service.AdaptRoadmapBasedOnPerformance(context.Background(), 5)
	require.NoError(t, err)

	require.Len(t, directives, 2)
	assert.Equal(t, models.DirectiveReduceWorkload, directives[0].Type)
	assert.Equal(t, -1, directives[0].DeltaHours)
	assert.Equal(t, models.DirectiveIncreaseFocus, directives[1].Type)
	assert.Equal(t, planner.SubjectPhysics, directives[1].SubjectID)
	assert.Equal(t, "Increase Physics study time by 30%", directives[1].Action)
}

func TestRoadmapService_AdaptRoadmapWithoutHistory(t *testing.T) {
	f, cleanup := newTestRoadmapService(t)
	defer cleanup()

	f.users.On("GetUser", mock.Anything, 5).Return(jeeProfile(5), nil)
	f.mock.ExpectQuery(`FROM study_roadmaps r`).
		WithArgs(5, lastWeekStart, currentWeekStart).
		WillReturnRows(sqlmock.NewRows(analyticsColumns))
	f.progress.On("GetProgress", mock.Anything, 5).Return([]models.ProgressRecord{}, nil)
	f.catalog.On("SubjectNames", mock.Anything).Return(map[string]string{}, nil)

	directives, err := f.service.AdaptRoadmapBasedOnPerformance(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, directives)
	assert.Empty(t, directives)
}

func TestRoadmapService_ListUsersWithoutRoadmap(t *testing.T) {
	f, cleanup := newTestRoadmapService(t)
	defer cleanup()

	f.mock.ExpectQuery(`SELECT u.id FROM user_profiles u`).
		WithArgs(2026, 42).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3).AddRow(7))

	ids, err := f.service.ListUsersWithoutRoadmap(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 7}, ids)
}
