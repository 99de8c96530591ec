package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coachapp/internal/config"
	"coachapp/internal/models"
	"coachapp/internal/observability"
	contextutils "coachapp/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type routerFixture struct {
	router       *gin.Engine
	users        *MockUserService
	catalog      *MockCatalogService
	progress     *MockProgressService
	interactions *MockInteractionService
	roadmaps     *MockRoadmapService
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	f := &routerFixture{
		users:        &MockUserService{},
		catalog:      &MockCatalogService{},
		progress:     &MockProgressService{},
		interactions: &MockInteractionService{},
		roadmaps:     &MockRoadmapService{},
	}
	cfg := &config.Config{IsTest: true}
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	f.router = NewRouter(cfg, f.users, f.catalog, f.progress, f.interactions, f.roadmaps, logger)
	gin.SetMode(gin.TestMode)
	t.Cleanup(func() {
		f.users.AssertExpectations(t)
		f.catalog.AssertExpectations(t)
		f.progress.AssertExpectations(t)
		f.interactions.AssertExpectations(t)
		f.roadmaps.AssertExpectations(t)
	})
	return f
}

func (f *routerFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func learnerProfile() *models.UserProfile {
	created := time.Date(2026, 10, 1, 8, 30, 0, 0, time.UTC)
	return &models.UserProfile{
		ID:                 7,
		Name:               "Asha",
		Email:              sql.NullString{String: "asha@example.com", Valid: true},
		ExamTrack:          models.ExamTrackJEE,
		TargetExamYear:     2027,
		StudyHoursPerDay:   4,
		PreferredStudyTime: models.StudyTimeMorning,
		AdaptiveDifficulty: 0.5,
		ConfidenceLevel:    0.5,
		CreatedAt:          created,
		UpdatedAt:          created,
	}
}

func TestRouter_Health(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeBody(t, w)["status"])
}

func TestRouter_Version(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(t, http.MethodGet, "/v1/version", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	backend := body["backend"].(map[string]interface{})
	assert.Equal(t, ServiceName, backend["service"])
	assert.Contains(t, body, "worker")
}

func TestRouter_ListSubjectsNormalizesTrack(t *testing.T) {
	f := newRouterFixture(t)
	f.catalog.On("ListSubjects", mock.Anything, models.ExamTrackJEE).Return([]models.Subject{
		{ID: "physics_jee_neet", Name: "Physics", ExamApplicability: models.ApplicabilityBoth},
	}, nil)

	w := f.do(t, http.MethodGet, "/v1/subjects?track=jee", nil)

	require.Equal(t, http.StatusOK, w.Code)
	subjects := decodeBody(t, w)["subjects"].([]interface{})
	assert.Len(t, subjects, 1)
}

func TestRouter_ListTopicsUnknownSubject(t *testing.T) {
	f := newRouterFixture(t)
	f.catalog.On("ListTopics", mock.Anything, "astronomy").
		Return(nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "subject %s not found", "astronomy"))

	w := f.do(t, http.MethodGet, "/v1/subjects/astronomy/topics", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(contextutils.ErrorCodeRecordNotFound), decodeBody(t, w)["code"])
}

func TestRouter_CreateUser(t *testing.T) {
	f := newRouterFixture(t)
	f.users.On("CreateUser", mock.Anything, mock.MatchedBy(func(p *models.UserProfile) bool {
		return p.Name == "Asha" && p.Email.Valid && p.Email.String == "asha@example.com" && p.ExamTrack == models.ExamTrackJEE
	})).Return(learnerProfile(), nil)

	w := f.do(t, http.MethodPost, "/v1/users", map[string]interface{}{
		"name":             "Asha",
		"email":            "asha@example.com",
		"exam_track":       "JEE",
		"target_exam_year": 2027,
	})

	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(7), body["id"])
	assert.Equal(t, "asha@example.com", body["email"])
	assert.Equal(t, "2026-10-01", body["member_since"])
	assert.Equal(t, []interface{}{}, body["weak_subjects"])
}

func TestRouter_CreateUserRejectsMalformedEmail(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(t, http.MethodPost, "/v1/users", map[string]interface{}{
		"name":             "Asha",
		"email":            "not-an-email",
		"exam_track":       "JEE",
		"target_exam_year": 2027,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.users.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
}

func TestRouter_CreateUserDuplicateEmail(t *testing.T) {
	f := newRouterFixture(t)
	f.users.On("CreateUser", mock.Anything, mock.Anything).
		Return(nil, contextutils.WrapError(contextutils.ErrRecordExists, "email asha@example.com is already registered"))

	w := f.do(t, http.MethodPost, "/v1/users", map[string]interface{}{
		"name":             "Asha",
		"email":            "asha@example.com",
		"exam_track":       "JEE",
		"target_exam_year": 2027,
	})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRouter_GetUser(t *testing.T) {
	f := newRouterFixture(t)
	f.users.On("GetUser", mock.Anything, 7).Return(learnerProfile(), nil)
	f.users.On("GetUser", mock.Anything, 9).Return(nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "user %d not found", 9))

	w := f.do(t, http.MethodGet, "/v1/users/7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Asha", decodeBody(t, w)["name"])

	w = f.do(t, http.MethodGet, "/v1/users/9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/v1/users/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_UpdateUser(t *testing.T) {
	f := newRouterFixture(t)
	updated := learnerProfile()
	updated.StudyHoursPerDay = 6
	f.users.On("UpdateUser", mock.Anything, 7, mock.MatchedBy(func(p *models.UserProfile) bool {
		return p.StudyHoursPerDay == 6 && !p.Email.Valid
	})).Return(updated, nil)

	w := f.do(t, http.MethodPut, "/v1/users/7", map[string]interface{}{
		"name":                "Asha",
		"exam_track":          "JEE",
		"target_exam_year":    2027,
		"study_hours_per_day": 6,
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(6), decodeBody(t, w)["study_hours_per_day"])
}

func TestRouter_ApplyDirectives(t *testing.T) {
	f := newRouterFixture(t)
	adapted := learnerProfile()
	adapted.StudyHoursPerDay = 3
	directives := []models.Directive{{Type: models.DirectiveReduceWorkload, Reason: "Low completion rate", Action: "Reduce daily study hours by 1", DeltaHours: -1}}
	f.users.On("ApplyDirectives", mock.Anything, 7, directives).Return(adapted, nil)

	w := f.do(t, http.MethodPost, "/v1/users/7/directives/apply", map[string]interface{}{"directives": directives})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), decodeBody(t, w)["study_hours_per_day"])

	w = f.do(t, http.MethodPost, "/v1/users/7/directives/apply", map[string]interface{}{"directives": []models.Directive{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_UpsertProgress(t *testing.T) {
	f := newRouterFixture(t)
	update := models.ProgressUpdate{TopicID: "physics_jee_neet_mechanics", MasteryLevel: 0.35, TimeSpentMinutes: 90, Attempts: 5, CorrectAnswers: 2}
	f.progress.On("UpsertProgress", mock.Anything, 7, update).Return(&models.ProgressRecord{
		ID: 1, UserID: 7, TopicID: update.TopicID, SubjectID: "physics_jee_neet", MasteryLevel: 0.35,
		TimeSpentMinutes: 90, Attempts: 5, CorrectAnswers: 2, Status: models.ProgressStruggling,
	}, nil)

	w := f.do(t, http.MethodPut, "/v1/users/7/progress/physics_jee_neet_mechanics", map[string]interface{}{
		"mastery_level":      0.35,
		"time_spent_minutes": 90,
		"attempts":           5,
		"correct_answers":    2,
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "struggling", decodeBody(t, w)["status"])
}

func TestRouter_UpsertProgressValidation(t *testing.T) {
	f := newRouterFixture(t)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing mastery", map[string]interface{}{"attempts": 1}},
		{"mastery above one", map[string]interface{}{"mastery_level": 1.5}},
		{"more correct than attempts", map[string]interface{}{"mastery_level": 0.5, "attempts": 1, "correct_answers": 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPut, "/v1/users/7/progress/physics_jee_neet_mechanics", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestRouter_GetProgress(t *testing.T) {
	f := newRouterFixture(t)
	f.progress.On("GetProgress", mock.Anything, 7).Return([]models.ProgressRecord{}, nil)

	w := f.do(t, http.MethodGet, "/v1/users/7/progress", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{}, decodeBody(t, w)["progress"])
}

func TestRouter_RecordChatMessage(t *testing.T) {
	f := newRouterFixture(t)
	f.interactions.On("RecordChatMessage", mock.Anything, 7, models.ChatMessage{Message: "I am stuck on physics"}).
		Return(&models.InteractionResult{Sentiment: models.SentimentFrustrated}, nil)

	w := f.do(t, http.MethodPost, "/v1/users/7/interactions/chat", map[string]interface{}{"message": "I am stuck on physics"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "frustrated", decodeBody(t, w)["sentiment"])
}

func TestRouter_RecordSessionEndValidation(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(t, http.MethodPost, "/v1/users/7/interactions/session", map[string]interface{}{
		"topic_id":            "physics_jee_neet_mechanics",
		"duration_minutes":    30,
		"understanding_level": 6,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_RecordQuizAnswer(t *testing.T) {
	f := newRouterFixture(t)
	answer := models.QuizAnswer{TopicID: "chemistry_jee_neet_mole_concept", Correct: true, ResponseTimeSeconds: 40, ExpectedTimeSeconds: 60}
	f.interactions.On("RecordQuizAnswer", mock.Anything, 7, answer).
		Return(&models.InteractionResult{Sentiment: models.SentimentNeutral, Progress: &models.ProgressRecord{TopicID: answer.TopicID, Attempts: 1, CorrectAnswers: 1}}, nil)

	w := f.do(t, http.MethodPost, "/v1/users/7/interactions/quiz", answer)

	require.Equal(t, http.StatusOK, w.Code)
	progress := decodeBody(t, w)["progress"].(map[string]interface{})
	assert.Equal(t, float64(1), progress["correct_answers"])
}

func TestRouter_ListInteractionsClampsLimit(t *testing.T) {
	f := newRouterFixture(t)
	f.interactions.On("ListInteractions", mock.Anything, 7, maxListLimit).Return([]models.Interaction{}, nil)

	w := f.do(t, http.MethodGet, "/v1/users/7/interactions?limit=1000", nil)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_GenerateRoadmap(t *testing.T) {
	f := newRouterFixture(t)
	fresh := &models.Roadmap{ID: uuid.New(), UserID: 7, Year: 2026, WeekNumber: 42, Status: models.RoadmapActive}
	existing := &models.Roadmap{ID: uuid.New(), UserID: 7, Year: 2026, WeekNumber: 43, Status: models.RoadmapActive, Existing: true}
	f.roadmaps.On("GenerateWeeklyRoadmap", mock.Anything, 7, 0).Return(fresh, nil)
	f.roadmaps.On("GenerateWeeklyRoadmap", mock.Anything, 7, 1).Return(existing, nil)

	w := f.do(t, http.MethodPost, "/v1/users/7/roadmaps", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, fresh.ID.String(), decodeBody(t, w)["id"])

	w = f.do(t, http.MethodPost, "/v1/users/7/roadmaps?week_offset=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["existing"])
}

func TestRouter_GenerateRoadmapErrors(t *testing.T) {
	f := newRouterFixture(t)
	f.roadmaps.On("GenerateWeeklyRoadmap", mock.Anything, 7, 0).
		Return(nil, contextutils.WrapErrorf(contextutils.ErrInvalidProfile, "unknown exam track %q", "SAT"))

	w := f.do(t, http.MethodPost, "/v1/users/7/roadmaps", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, string(contextutils.ErrorCodeInvalidProfile), decodeBody(t, w)["code"])

	w = f.do(t, http.MethodPost, "/v1/users/7/roadmaps?week_offset=next", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_GetRoadmapMissing(t *testing.T) {
	f := newRouterFixture(t)
	f.roadmaps.On("GetRoadmap", mock.Anything, 7, -1).Return(nil, nil)

	w := f.do(t, http.MethodGet, "/v1/users/7/roadmaps?week_offset=-1", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_GetAnalytics(t *testing.T) {
	f := newRouterFixture(t)
	f.roadmaps.On("GetRoadmapAnalytics", mock.Anything, 7, 3).Return(&models.RoadmapAnalytics{
		UserID: 7, WeeksBack: 3, WeeklyStats: []models.WeekCompletion{}, AvgCompletionRate: 0,
	}, nil)

	w := f.do(t, http.MethodGet, "/v1/users/7/roadmaps/analytics?weeks_back=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), decodeBody(t, w)["weeks_back"])

	w = f.do(t, http.MethodGet, "/v1/users/7/roadmaps/analytics?weeks_back=-2", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_GetAdaptations(t *testing.T) {
	f := newRouterFixture(t)
	f.roadmaps.On("AdaptRoadmapBasedOnPerformance", mock.Anything, 7).Return([]models.Directive{
		{Type: models.DirectiveReduceWorkload, Reason: "Low completion rate", Action: "Reduce daily study hours by 1", DeltaHours: -1},
	}, nil)

	w := f.do(t, http.MethodGet, "/v1/users/7/roadmaps/adaptations", nil)

	require.Equal(t, http.StatusOK, w.Code)
	directives := decodeBody(t, w)["directives"].([]interface{})
	require.Len(t, directives, 1)
	assert.Equal(t, "reduce_workload", directives[0].(map[string]interface{})["type"])
}

func TestRouter_UpdateItemStatus(t *testing.T) {
	f := newRouterFixture(t)
	itemID := uuid.New()
	missingID := uuid.New()
	f.roadmaps.On("UpdateRoadmapItemStatus", mock.Anything, itemID, models.ItemCompleted).Return(nil)
	f.roadmaps.On("UpdateRoadmapItemStatus", mock.Anything, itemID, models.ItemStatus("done")).
		Return(contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid item status %q", "done"))
	f.roadmaps.On("UpdateRoadmapItemStatus", mock.Anything, missingID, models.ItemSkipped).
		Return(contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "roadmap item %s not found", missingID))

	w := f.do(t, http.MethodPut, "/v1/roadmap-items/"+itemID.String()+"/status", map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", decodeBody(t, w)["status"])

	w = f.do(t, http.MethodPut, "/v1/roadmap-items/"+itemID.String()+"/status", map[string]string{"status": "done"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPut, "/v1/roadmap-items/"+missingID.String()+"/status", map[string]string{"status": "skipped"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPut, "/v1/roadmap-items/not-a-uuid/status", map[string]string{"status": "completed"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
