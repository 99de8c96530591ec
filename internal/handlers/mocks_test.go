package handlers

import (
	"context"

	"coachapp/internal/catalog"
	"coachapp/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) profileResult(args mock.Arguments) (*models.UserProfile, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *MockUserService) CreateUser(ctx context.Context, profile *models.UserProfile) (*models.UserProfile, error) {
	return m.profileResult(m.Called(ctx, profile))
}

func (m *MockUserService) GetUser(ctx context.Context, id int) (*models.UserProfile, error) {
	return m.profileResult(m.Called(ctx, id))
}

func (m *MockUserService) ListUsers(ctx context.Context) ([]models.UserProfile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UserProfile), args.Error(1)
}

func (m *MockUserService) UpdateUser(ctx context.Context, id int, profile *models.UserProfile) (*models.UserProfile, error) {
	return m.profileResult(m.Called(ctx, id, profile))
}

func (m *MockUserService) ApplyDirectives(ctx context.Context, userID int, directives []models.Directive) (*models.UserProfile, error) {
	return m.profileResult(m.Called(ctx, userID, directives))
}

func (m *MockUserService) AdjustForSentiment(ctx context.Context, userID int, sentiment models.Sentiment, subjectID string) (*models.UserProfile, error) {
	return m.profileResult(m.Called(ctx, userID, sentiment, subjectID))
}

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) Seed(ctx context.Context, c *catalog.Catalog) (int, int, error) {
	args := m.Called(ctx, c)
	return args.Int(0), args.Int(1), args.Error(2)
}

func (m *MockCatalogService) ListSubjects(ctx context.Context, track models.ExamTrack) ([]models.Subject, error) {
	args := m.Called(ctx, track)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Subject), args.Error(1)
}

func (m *MockCatalogService) ListTopics(ctx context.Context, subjectID string) ([]models.Topic, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Topic), args.Error(1)
}

func (m *MockCatalogService) TopicsBySubject(ctx context.Context, track models.ExamTrack) (map[string][]models.Topic, error) {
	args := m.Called(ctx, track)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]models.Topic), args.Error(1)
}

func (m *MockCatalogService) GetTopic(ctx context.Context, topicID string) (*models.Topic, error) {
	args := m.Called(ctx, topicID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Topic), args.Error(1)
}

func (m *MockCatalogService) SubjectNames(ctx context.Context) (map[string]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

type MockProgressService struct {
	mock.Mock
}

func (m *MockProgressService) GetProgress(ctx context.Context, userID int) ([]models.ProgressRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ProgressRecord), args.Error(1)
}

func (m *MockProgressService) UpsertProgress(ctx context.Context, userID int, update models.ProgressUpdate) (*models.ProgressRecord, error) {
	args := m.Called(ctx, userID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProgressRecord), args.Error(1)
}

func (m *MockProgressService) RecordOutcome(ctx context.Context, userID int, outcome models.Outcome) (*models.ProgressRecord, error) {
	args := m.Called(ctx, userID, outcome)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProgressRecord), args.Error(1)
}

type MockInteractionService struct {
	mock.Mock
}

func (m *MockInteractionService) result(args mock.Arguments) (*models.InteractionResult, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InteractionResult), args.Error(1)
}

func (m *MockInteractionService) RecordQuizAnswer(ctx context.Context, userID int, answer models.QuizAnswer) (*models.InteractionResult, error) {
	return m.result(m.Called(ctx, userID, answer))
}

func (m *MockInteractionService) RecordSessionEnd(ctx context.Context, userID int, session models.SessionEnd) (*models.InteractionResult, error) {
	return m.result(m.Called(ctx, userID, session))
}

func (m *MockInteractionService) RecordChatMessage(ctx context.Context, userID int, msg models.ChatMessage) (*models.InteractionResult, error) {
	return m.result(m.Called(ctx, userID, msg))
}

func (m *MockInteractionService) ListInteractions(ctx context.Context, userID, limit int) ([]models.Interaction, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Interaction), args.Error(1)
}

type MockRoadmapService struct {
	mock.Mock
}

func (m *MockRoadmapService) roadmapResult(args mock.Arguments) (*models.Roadmap, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Roadmap), args.Error(1)
}

func (m *MockRoadmapService) GenerateWeeklyRoadmap(ctx context.Context, userID, weekOffset int) (*models.Roadmap, error) {
	return m.roadmapResult(m.Called(ctx, userID, weekOffset))
}

func (m *MockRoadmapService) GetRoadmap(ctx context.Context, userID, weekOffset int) (*models.Roadmap, error) {
	return m.roadmapResult(m.Called(ctx, userID, weekOffset))
}

func (m *MockRoadmapService) UpdateRoadmapItemStatus(ctx context.Context, itemID uuid.UUID, status models.ItemStatus) error {
	return m.Called(ctx, itemID, status).Error(0)
}

func (m *MockRoadmapService) GetRoadmapAnalytics(ctx context.Context, userID, weeksBack int) (*models.RoadmapAnalytics, error) {
	args := m.Called(ctx, userID, weeksBack)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RoadmapAnalytics), args.Error(1)
}

func (m *MockRoadmapService) AdaptRoadmapBasedOnPerformance(ctx context.Context, userID int) ([]models.Directive, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Directive), args.Error(1)
}

func (m *MockRoadmapService) ListUsersWithoutRoadmap(ctx context.Context, weekOffset int) ([]int, error) {
	args := m.Called(ctx, weekOffset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int), args.Error(1)
}
