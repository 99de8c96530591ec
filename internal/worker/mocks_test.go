package worker

import (
	"context"

	"coachapp/internal/catalog"
	"coachapp/internal/models"
	"coachapp/internal/services/mailer"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockUserService struct {
	mock.Mock
}

func (m *mockUserService) CreateUser(ctx context.Context, profile *models.UserProfile) (*models.UserProfile, error) {
	args := m.Called(ctx, profile)
	return profileOrNil(args.Get(0)), args.Error(1)
}

func (m *mockUserService) GetUser(ctx context.Context, id int) (*models.UserProfile, error) {
	args := m.Called(ctx, id)
	return profileOrNil(args.Get(0)), args.Error(1)
}

func (m *mockUserService) ListUsers(ctx context.Context) ([]models.UserProfile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UserProfile), args.Error(1)
}

func (m *mockUserService) UpdateUser(ctx context.Context, id int, profile *models.UserProfile) (*models.UserProfile, error) {
	args := m.Called(ctx, id, profile)
	return profileOrNil(args.Get(0)), args.Error(1)
}

func (m *mockUserService) ApplyDirectives(ctx context.Context, userID int, directives []models.Directive) (*models.UserProfile, error) {
	args := m.Called(ctx, userID, directives)
	return profileOrNil(args.Get(0)), args.Error(1)
}

func (m *mockUserService) AdjustForSentiment(ctx context.Context, userID int, sentiment models.Sentiment, subjectID string) (*models.UserProfile, error) {
	args := m.Called(ctx, userID, sentiment, subjectID)
	return profileOrNil(args.Get(0)), args.Error(1)
}

func profileOrNil(v interface{}) *models.UserProfile {
	if v == nil {
		return nil
	}
	return v.(*models.UserProfile)
}

type mockCatalogService struct {
	mock.Mock
}

func (m *mockCatalogService) Seed(ctx context.Context, c *catalog.Catalog) (int, int, error) {
	args := m.Called(ctx, c)
	return args.Int(0), args.Int(1), args.Error(2)
}

func (m *mockCatalogService) ListSubjects(ctx context.Context, track models.ExamTrack) ([]models.Subject, error) {
	args := m.Called(ctx, track)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Subject), args.Error(1)
}

func (m *mockCatalogService) ListTopics(ctx context.Context, subjectID string) ([]models.Topic, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Topic), args.Error(1)
}

func (m *mockCatalogService) TopicsBySubject(ctx context.Context, track models.ExamTrack) (map[string][]models.Topic, error) {
	args := m.Called(ctx, track)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]models.Topic), args.Error(1)
}

func (m *mockCatalogService) GetTopic(ctx context.Context, topicID string) (*models.Topic, error) {
	args := m.Called(ctx, topicID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Topic), args.Error(1)
}

func (m *mockCatalogService) SubjectNames(ctx context.Context) (map[string]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

type mockRoadmapService struct {
	mock.Mock
}

func (m *mockRoadmapService) GenerateWeeklyRoadmap(ctx context.Context, userID, weekOffset int) (*models.Roadmap, error) {
	args := m.Called(ctx, userID, weekOffset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Roadmap), args.Error(1)
}

func (m *mockRoadmapService) GetRoadmap(ctx context.Context, userID, weekOffset int) (*models.Roadmap, error) {
	args := m.Called(ctx, userID, weekOffset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Roadmap), args.Error(1)
}

func (m *mockRoadmapService) UpdateRoadmapItemStatus(ctx context.Context, itemID uuid.UUID, status models.ItemStatus) error {
	return m.Called(ctx, itemID, status).Error(0)
}

func (m *mockRoadmapService) GetRoadmapAnalytics(ctx context.Context, userID, weeksBack int) (*models.RoadmapAnalytics, error) {
	args := m.Called(ctx, userID, weeksBack)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RoadmapAnalytics), args.Error(1)
}

func (m *mockRoadmapService) AdaptRoadmapBasedOnPerformance(ctx context.Context, userID int) ([]models.Directive, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Directive), args.Error(1)
}

func (m *mockRoadmapService) ListUsersWithoutRoadmap(ctx context.Context, weekOffset int) ([]int, error) {
	args := m.Called(ctx, weekOffset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int), args.Error(1)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendWeeklyDigest(ctx context.Context, digest mailer.WeeklyDigest) error {
	return m.Called(ctx, digest).Error(0)
}

func (m *mockMailer) SendEmail(ctx context.Context, to, subject, templateName string, data map[string]interface{}) error {
	return m.Called(ctx, to, subject, templateName, data).Error(0)
}

func (m *mockMailer) IsEnabled() bool {
	return m.Called().Bool(0)
}

func (m *mockMailer) RecordSentNotification(ctx context.Context, userID int, notificationType, subject, templateName, status, errorMessage string) error {
	return m.Called(ctx, userID, notificationType, subject, templateName, status, errorMessage).Error(0)
}
