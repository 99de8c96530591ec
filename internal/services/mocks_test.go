package services

import (
	"context"

	"coachapp/internal/catalog"
	"coachapp/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockUserService is a mock implementation of UserServiceInterface
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) CreateUser(ctx context.Context, profile *models.UserProfile) (*models.UserProfile, error) {
	args := m.Called(ctx, profile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *MockUserService) GetUser(ctx context.Context, id int) (*models.UserProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *MockUserService) ListUsers(ctx context.Context) ([]models.UserProfile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UserProfile), args.Error(1)
}

func (m *MockUserService) UpdateUser(ctx context.Context, id int, profile *models.UserProfile) (*models.UserProfile, error) {
	args := m.Called(ctx, id, profile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *MockUserService) ApplyDirectives(ctx context.Context, userID int, directives []models.Directive) (*models.UserProfile, error) {
	args := m.Called(ctx, userID, directives)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *MockUserService) AdjustForSentiment(ctx context.Context, userID int, sentiment models.Sentiment, subjectID string) (*models.UserProfile, error) {
	args := m.Called(ctx, userID, sentiment, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

// MockCatalogService is a mock implementation of CatalogServiceInterface
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

// MockProgressService is a mock implementation of ProgressServiceInterface
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

// memoryRoadmapCache is an in-process RoadmapCache for tests
type memoryRoadmapCache struct {
	entries     map[string]*models.Roadmap
	invalidated []int
}

func newMemoryRoadmapCache() *memoryRoadmapCache {
	return &memoryRoadmapCache{entries: make(map[string]*models.Roadmap)}
}

func (c *memoryRoadmapCache) key(userID, year, week int) string {
	return roadmapCacheKey(userID) + "/" + roadmapCacheField(year, week)
}

func (c *memoryRoadmapCache) Get(_ context.Context, userID, year, week int) (*models.Roadmap, bool) {
	r, ok := c.entries[c.key(userID, year, week)]
	return r, ok
}

func (c *memoryRoadmapCache) Set(_ context.Context, roadmap *models.Roadmap) {
	c.entries[c.key(roadmap.UserID, roadmap.Year, roadmap.WeekNumber)] = roadmap
}

func (c *memoryRoadmapCache) Invalidate(_ context.Context, userID int) {
	c.invalidated = append(c.invalidated, userID)
	for k, r := range c.entries {
		if r.UserID == userID {
			delete(c.entries, k)
		}
	}
}
