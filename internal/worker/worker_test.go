package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"coachapp/internal/config"
	"coachapp/internal/models"
	"coachapp/internal/observability"
	"coachapp/internal/services/mailer"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

type workerFixture struct {
	worker   *Worker
	users    *mockUserService
	catalog  *mockCatalogService
	roadmaps *mockRoadmapService
	mailer   *mockMailer
	now      time.Time
}

func newWorkerFixture(t *testing.T, cfg *config.Config) *workerFixture {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{Planner: config.PlannerConfig{Concurrency: 2, Interval: time.Hour}}
	}
	f := &workerFixture{
		users:    &mockUserService{},
		catalog:  &mockCatalogService{},
		roadmaps: &mockRoadmapService{},
		mailer:   &mockMailer{},
		now:      fixedNow,
	}
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	f.worker = NewWorker(f.users, f.catalog, f.roadmaps, f.mailer, "test", cfg, logger)
	f.worker.timeNow = func() time.Time { return f.now }
	t.Cleanup(func() {
		f.users.AssertExpectations(t)
		f.catalog.AssertExpectations(t)
		f.roadmaps.AssertExpectations(t)
		f.mailer.AssertExpectations(t)
	})
	return f
}

func newRoadmap(userID int, existing bool) *models.Roadmap {
	id := uuid.New()
	return &models.Roadmap{
		ID:         id,
		UserID:     userID,
		Year:       2026,
		WeekNumber: 42,
		WeekStart:  time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC),
		Status:     models.RoadmapActive,
		Items:      []models.RoadmapItem{{RoadmapID: id, TopicName: "Kinematics", DayOfWeek: 1, StudyHours: 2}},
		Existing:   existing,
	}
}

func TestNewWorker_Defaults(t *testing.T) {
	w := NewWorker(nil, nil, nil, nil, "", &config.Config{Planner: config.PlannerConfig{StartPaused: true}},
		observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false}))

	assert.Equal(t, "default", w.GetInstance())
	assert.True(t, w.GetStatus().IsPaused)
	assert.Equal(t, config.DefaultPlannerInterval, w.interval())
	assert.Equal(t, config.DefaultPlannerConcurrency, w.concurrency())
}

func TestWorker_RunOnceWithNothingPending(t *testing.T) {
	f := newWorkerFixture(t, nil)
	f.roadmaps.On("ListUsersWithoutRoadmap", mock.Anything, 0).Return([]int{}, nil)

	summary, err := f.worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunSummary{}, *summary)
}

func TestWorker_RunOncePlansAndMailsNewRoadmaps(t *testing.T) {
	f := newWorkerFixture(t, nil)
	names := map[string]string{"physics_jee_neet": "Physics"}
	directives := []models.Directive{{Type: models.DirectiveReduceWorkload, Reason: "Low completion rate", DeltaHours: -1}}
	learner := &models.UserProfile{ID: 1, Name: "Asha", Email: sql.NullString{String: "asha@example.com", Valid: true}}
	fresh := newRoadmap(1, false)

	f.roadmaps.On("ListUsersWithoutRoadmap", mock.Anything, 0).Return([]int{1, 2}, nil)
	f.catalog.On("SubjectNames", mock.Anything).Return(names, nil)
	f.roadmaps.On("GenerateWeeklyRoadmap", mock.Anything, 1, 0).Return(fresh, nil)
	f.roadmaps.On("GenerateWeeklyRoadmap", mock.Anything, 2, 0).Return(newRoadmap(2, true), nil)
	f.roadmaps.On("AdaptRoadmapBasedOnPerformance", mock.Anything, 1).Return(directives, nil)
	f.mailer.On("IsEnabled").Return(true)
	f.users.On("GetUser", mock.Anything, 1).Return(learner, nil)
	f.mailer.On("SendWeeklyDigest", mock.Anything, mock.MatchedBy(func(d mailer.WeeklyDigest) bool {
		return d.Profile == learner && d.Roadmap == fresh && len(d.Directives) == 1 && d.SubjectNames["physics_jee_neet"] == "Physics"
	})).Return(nil)

	summary, err := f.worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunSummary{Pending: 2, Generated: 1, Existing: 1, Digests: 1}, *summary)
	f.roadmaps.AssertNotCalled(t, "AdaptRoadmapBasedOnPerformance", mock.Anything, 2)
}

func TestWorker_RunOnceSkipsDigestWithoutEmail(t *testing.T) {
	f := newWorkerFixture(t, nil)
	f.roadmaps.On("ListUsersWithoutRoadmap", mock.Anything, 0).Return([]int{4}, nil)
	f.catalog.On("SubjectNames", mock.Anything).Return(nil, errors.New("catalog offline"))
	f.roadmaps.On("GenerateWeeklyRoadmap", mock.Anything, 4, 0).Return(newRoadmap(4, false), nil)
	f.roadmaps.On("AdaptRoadmapBasedOnPerformance", mock.Anything, 4).Return(nil, errors.New("analytics unavailable"))
	f.mailer.On("IsEnabled").Return(true)
	f.users.On("GetUser", mock.Anything, 4).Return(&models.UserProfile{ID: 4, Name: "No Mail"}, nil)

	summary, err := f.worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Generated)
	assert.Equal(t, 0, summary.Digests)
}

func TestWorker_RunOnceDigestFailureIsNotAPlanningFailure(t *testing.T) {
	f := newWorkerFixture(t, nil)
	f.roadmaps.On("ListUsersWithoutRoadmap", mock.Anything, 0).Return([]int{5}, nil)
	f.catalog.On("SubjectNames", mock.Anything).Return(map[string]string{}, nil)
	f.roadmaps.On("GenerateWeeklyRoadmap", mock.Anything, 5, 0).Return(newRoadmap(5, false), nil)
	f.roadmaps.On("AdaptRoadmapBasedOnPerformance", mock.Anything, 5).Return([]models.Directive{}, nil)
	f.mailer.On("IsEnabled").Return(true)
	f.users.On("GetUser", mock.Anything, 5).Return(&models.UserProfile{ID: 5, Email: sql.NullString{String: "five@example.com", Valid: true}}, nil)
	f.mailer.On("SendWeeklyDigest", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	summary, err := f.worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunSummary{Pending: 1, Generated: 1}, *summary)
	assert.Empty(t, f.worker.GetBackoffs())

	logs := f.worker.GetActivityLogs()
	require.NotEmpty(t, logs)
	assert.Contains(t, logs[len(logs)-2].Message, "Weekly digest failed")
}

func TestWorker_RunOncePartialFailure(t *testing.T) {
	f := newWorkerFixture(t, nil)
	f.roadmaps.On("ListUsersWithoutRoadmap", mock.Anything, 0).Return([]int{1, 2}, nil)
	f.catalog.On("SubjectNames", mock.Anything).Return(map[string]string{}, nil)
	f.roadmaps.On("GenerateWeeklyRoadmap", mock.Anything, 1, 0).Return(nil, errors.New("planner exploded"))
	f.roadmaps.On("GenerateWeeklyRoadmap", mock.Anything, 2, 0).Return(newRoadmap(2, false), nil)
	f.roadmaps.On("AdaptRoadmapBasedOnPerformance", mock.Anything, 2).Return(nil, nil)
	f.mailer.On("IsEnabled").Return(false)

	summary, err := f.worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Generated)

	backoffs := f.worker.GetBackoffs()
	require.Contains(t, backoffs, 1)
	assert.Equal(t, 1, backoffs[1].ConsecutiveFailures)
	assert.Equal(t, fixedNow.Add(2*time.Minute), backoffs[1].NextRetryTime)
}

func TestWorker_FailedLearnerBacksOff(t *testing.T) {
	f := newWorkerFixture(t, nil)
	f.roadmaps.On("ListUsersWithoutRoadmap", mock.Anything, 0).Return([]int{3}, nil)
	f.catalog.On("SubjectNames", mock.Anything).Return(map[string]string{}, nil)
	f.roadmaps.On("GenerateWeeklyRoadmap", mock.Anything, 3, 0).Return(nil, errors.New("profile incomplete")).Once()

	summary, err := f.worker.RunOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, summary.Failed)

	// Inside the backoff window the learner is skipped entirely.
	summary, err = f.worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunSummary{Pending: 1, Skipped: 1}, *summary)

	// After the window the learner is retried and success clears the backoff.
	f.now = fixedNow.Add(3 * time.Minute)
	f.roadmaps.On("GenerateWeeklyRoadmap", mock.Anything, 3, 0).Return(newRoadmap(3, false), nil).Once()
	f.roadmaps.On("AdaptRoadmapBasedOnPerformance", mock.Anything, 3).Return(nil, nil)
	f.mailer.On("IsEnabled").Return(false)

	summary, err = f.worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Generated)
	assert.Empty(t, f.worker.GetBackoffs())
}

func TestWorker_BackoffIsCapped(t *testing.T) {
	f := newWorkerFixture(t, nil)
	for i := 0; i < 12; i++ {
		f.worker.recordUserFailure(context.Background(), 8)
	}
	info := f.worker.GetBackoffs()[8]
	assert.Equal(t, 12, info.ConsecutiveFailures)
	assert.Equal(t, fixedNow.Add(config.WorkerMaxUserBackoff), info.NextRetryTime)
}

func TestWorker_RunOnceListFailure(t *testing.T) {
	f := newWorkerFixture(t, nil)
	f.roadmaps.On("ListUsersWithoutRoadmap", mock.Anything, 0).Return(nil, errors.New("connection refused"))

	summary, err := f.worker.RunOnce(context.Background())
	assert.Error(t, err)
	assert.Nil(t, summary)
}

func TestWorker_RunRecordsHistory(t *testing.T) {
	f := newWorkerFixture(t, nil)
	f.roadmaps.On("ListUsersWithoutRoadmap", mock.Anything, 0).Return(nil, errors.New("connection refused")).Once()
	f.roadmaps.On("ListUsersWithoutRoadmap", mock.Anything, 0).Return([]int{}, nil).Once()

	f.worker.run(context.Background())
	status := f.worker.GetStatus()
	assert.Contains(t, status.LastRunError, "connection refused")
	assert.Equal(t, fixedNow, status.LastRunStart)
	assert.Equal(t, fixedNow.Add(time.Hour), status.NextRun)

	f.worker.run(context.Background())
	assert.Empty(t, f.worker.GetStatus().LastRunError)

	history := f.worker.GetHistory()
	require.Len(t, history, 2)
	assert.Equal(t, "Failure", history[0].Status)
	assert.Contains(t, history[0].Details, "connection refused")
	assert.Equal(t, "Success", history[1].Status)
	assert.Equal(t, RunSummary{}.String(), history[1].Details)
}

func TestWorker_HistoryIsTrimmed(t *testing.T) {
	f := newWorkerFixture(t, nil)
	for i := 0; i < config.WorkerMaxHistory+5; i++ {
		f.worker.recordRunHistory(fmt.Sprintf("run %d", i), nil)
	}
	history := f.worker.GetHistory()
	require.Len(t, history, config.WorkerMaxHistory)
	assert.Equal(t, "run 5", history[0].Details)
}

func TestWorker_ActivityLogIsTrimmed(t *testing.T) {
	f := newWorkerFixture(t, nil)
	for i := 0; i < config.WorkerMaxActivityLogs+1; i++ {
		f.worker.logActivity("INFO", fmt.Sprintf("entry %d", i), nil)
	}
	logs := f.worker.GetActivityLogs()
	require.Len(t, logs, config.WorkerMaxActivityLogs)
	assert.Equal(t, "entry 1", logs[0].Message)
}

func TestWorker_PausedRunDoesNothing(t *testing.T) {
	f := newWorkerFixture(t, nil)
	f.worker.Pause(context.Background())

	f.worker.run(context.Background())

	assert.Empty(t, f.worker.GetHistory())
	assert.Equal(t, "Paused", f.worker.GetStatus().CurrentActivity)
	f.roadmaps.AssertNotCalled(t, "ListUsersWithoutRoadmap", mock.Anything, mock.Anything)

	f.worker.Resume(context.Background())
	assert.False(t, f.worker.GetStatus().IsPaused)
}

func TestWorker_TriggerManualRunCoalesces(t *testing.T) {
	f := newWorkerFixture(t, nil)
	assert.True(t, f.worker.TriggerManualRun())
	assert.False(t, f.worker.TriggerManualRun())
}

func TestWorker_StartAndShutdown(t *testing.T) {
	cfg := &config.Config{Planner: config.PlannerConfig{Interval: time.Hour, StartPaused: true}}
	f := newWorkerFixture(t, cfg)

	go f.worker.Start(context.Background())
	require.Eventually(t, func() bool { return f.worker.GetStatus().IsRunning }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.worker.Shutdown(ctx))

	assert.False(t, f.worker.GetStatus().IsRunning)
	assert.Empty(t, f.worker.GetHistory())
}
