package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Phase is the preparation stage derived from overall mastery
type Phase string

// Preparation phases
const (
	PhaseFoundation   Phase = "foundation"
	PhaseIntermediate Phase = "intermediate"
	PhaseAdvanced     Phase = "advanced"
)

// Intensity labels how hard the schedule pushes given the time left
type Intensity string

// Intensity labels
const (
	IntensityHigh       Intensity = "high"
	IntensityMediumHigh Intensity = "medium_high"
	IntensityMedium     Intensity = "medium"
	IntensityLowMedium  Intensity = "low_medium"
)

// ActivityType is the kind of study block scheduled in a roadmap
type ActivityType string

// Activity types
const (
	ActivityConceptStudy ActivityType = "concept_study"
	ActivityPractice     ActivityType = "practice"
	ActivityRevision     ActivityType = "revision"
	ActivityMockTest     ActivityType = "mock_test"
)

// ItemStatus is the completion state of a roadmap item
type ItemStatus string

// Roadmap item statuses
const (
	ItemPending   ItemStatus = "pending"
	ItemCompleted ItemStatus = "completed"
	ItemSkipped   ItemStatus = "skipped"
)

// Valid reports whether s is a known item status
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemPending, ItemCompleted, ItemSkipped:
		return true
	}
	return false
}

// Closed reports whether the item no longer needs work
func (s ItemStatus) Closed() bool {
	return s == ItemCompleted || s == ItemSkipped
}

// RoadmapStatus is the lifecycle state of a weekly roadmap
type RoadmapStatus string

// Roadmap statuses
const (
	RoadmapActive    RoadmapStatus = "active"
	RoadmapCompleted RoadmapStatus = "completed"
	RoadmapSkipped   RoadmapStatus = "skipped"
)

// Item priorities, 1 is most urgent
const (
	PriorityHigh   = 1
	PriorityMedium = 2
	PriorityLow    = 3
)

// MixedSubject marks activities that span all subjects
const MixedSubject = "mixed"

// Roadmap is one persisted week plan for a learner
type Roadmap struct {
	ID              uuid.UUID      `json:"id"`
	UserID          int            `json:"user_id"`
	WeekNumber      int            `json:"week_number"`
	Year            int            `json:"year"`
	WeekStart       time.Time      `json:"week_start"`
	Status          RoadmapStatus  `json:"status"`
	Phase           Phase          `json:"phase"`
	Intensity       Intensity      `json:"intensity"`
	MonthsRemaining int            `json:"months_remaining"`
	Allocation      map[string]int `json:"allocation"`
	PriorityOrder   []string       `json:"priority_order"`
	FocusAreas      []string       `json:"focus_areas"`
	WeeklyHours     map[string]int `json:"weekly_hours"`
	Items           []RoadmapItem  `json:"items"`
	CreatedAt       time.Time      `json:"created_at"`
	// Existing is set when generation found a roadmap already stored for the week.
	Existing bool `json:"existing"`
}

// RoadmapItem is one scheduled activity on a topic
type RoadmapItem struct {
	ID           uuid.UUID    `json:"id"`
	RoadmapID    uuid.UUID    `json:"roadmap_id"`
	TopicID      string       `json:"topic_id"`
	TopicName    string       `json:"topic_name"`
	SubjectID    string       `json:"subject_id"`
	DayOfWeek    int          `json:"day_of_week"`
	ActivityType ActivityType `json:"activity_type"`
	StudyHours   float64      `json:"study_hours"`
	Priority     int          `json:"priority"`
	Position     int          `json:"position"`
	Status       ItemStatus   `json:"status"`
	CompletedAt  sql.NullTime `json:"completed_at"`
}

// MarshalJSON renders completed_at as null for open items
func (i RoadmapItem) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID           uuid.UUID    `json:"id"`
		RoadmapID    uuid.UUID    `json:"roadmap_id"`
		TopicID      string       `json:"topic_id"`
		TopicName    string       `json:"topic_name"`
		SubjectID    string       `json:"subject_id"`
		DayOfWeek    int          `json:"day_of_week"`
		ActivityType ActivityType `json:"activity_type"`
		StudyHours   float64      `json:"study_hours"`
		Priority     int          `json:"priority"`
		Position     int          `json:"position"`
		Status       ItemStatus   `json:"status"`
		CompletedAt  *time.Time   `json:"completed_at"`
	}{
		ID:           i.ID,
		RoadmapID:    i.RoadmapID,
		TopicID:      i.TopicID,
		TopicName:    i.TopicName,
		SubjectID:    i.SubjectID,
		DayOfWeek:    i.DayOfWeek,
		ActivityType: i.ActivityType,
		StudyHours:   i.StudyHours,
		Priority:     i.Priority,
		Position:     i.Position,
		Status:       i.Status,
		CompletedAt:  nullTimeToPointer(i.CompletedAt),
	})
}

// WeekCompletion summarizes item statuses for one roadmap week
type WeekCompletion struct {
	Week           string    `json:"week"`
	Year           int       `json:"year"`
	WeekNumber     int       `json:"week_number"`
	WeekStart      time.Time `json:"week_start"`
	Completed      int       `json:"completed"`
	Pending        int       `json:"pending"`
	Skipped        int       `json:"skipped"`
	Total          int       `json:"total"`
	CompletionRate float64   `json:"completion_rate"`
}

// RoadmapAnalytics is the completion history over a look-back window
type RoadmapAnalytics struct {
	UserID            int              `json:"user_id"`
	WeeksBack         int              `json:"weeks_back"`
	WeeklyStats       []WeekCompletion `json:"weekly_stats"`
	AvgCompletionRate float64          `json:"avg_completion_rate"`
	TotalWeeksTracked int              `json:"total_weeks_tracked"`
}

// DirectiveType names an adaptation suggestion
type DirectiveType string

// Directive types
const (
	DirectiveReduceWorkload     DirectiveType = "reduce_workload"
	DirectiveIncreaseFocus      DirectiveType = "increase_focus"
	DirectiveIncreaseDifficulty DirectiveType = "increase_difficulty"
)

// Directive is an advisory change for future roadmaps. It is never applied
// automatically.
type Directive struct {
	Type       DirectiveType `json:"type"`
	SubjectID  string        `json:"subject_id,omitempty"`
	Reason     string        `json:"reason"`
	Action     string        `json:"action"`
	DeltaHours int           `json:"delta_hours,omitempty"`
	Factor     float64       `json:"factor,omitempty"`
}

// UnmarshalJSON accepts the shape produced by MarshalJSON
func (i *RoadmapItem) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID           uuid.UUID    `json:"id"`
		RoadmapID    uuid.UUID    `json:"roadmap_id"`
		TopicID      string       `json:"topic_id"`
		TopicName    string       `json:"topic_name"`
		SubjectID    string       `json:"subject_id"`
		DayOfWeek    int          `json:"day_of_week"`
		ActivityType ActivityType `json:"activity_type"`
		StudyHours   float64      `json:"study_hours"`
		Priority     int          `json:"priority"`
		Position     int          `json:"position"`
		Status       ItemStatus   `json:"status"`
		CompletedAt  *time.Time   `json:"completed_at"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*i = RoadmapItem{
		ID:           aux.ID,
		RoadmapID:    aux.RoadmapID,
		TopicID:      aux.TopicID,
		TopicName:    aux.TopicName,
		SubjectID:    aux.SubjectID,
		DayOfWeek:    aux.DayOfWeek,
		ActivityType: aux.ActivityType,
		StudyHours:   aux.StudyHours,
		Priority:     aux.Priority,
		Position:     aux.Position,
		Status:       aux.Status,
	}
	if aux.CompletedAt != nil {
		i.CompletedAt = sql.NullTime{Time: *aux.CompletedAt, Valid: true}
	}
	return nil
}
