package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// ProgressStatus is the derived learning state of a topic
type ProgressStatus string

// Progress statuses
const (
	ProgressNotStarted ProgressStatus = "not_started"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
	ProgressStruggling ProgressStatus = "struggling"
)

// ProgressRecord is a learner's state on one topic
type ProgressRecord struct {
	ID               int            `json:"id"`
	UserID           int            `json:"user_id"`
	TopicID          string         `json:"topic_id"`
	SubjectID        string         `json:"subject_id"`
	MasteryLevel     float64        `json:"mastery_level"`
	TimeSpentMinutes int            `json:"time_spent_minutes"`
	LastStudied      sql.NullTime   `json:"last_studied"`
	Attempts         int            `json:"attempts"`
	CorrectAnswers   int            `json:"correct_answers"`
	Status           ProgressStatus `json:"status"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// MarshalJSON renders last_studied as null when the topic was never studied
func (p ProgressRecord) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID               int            `json:"id"`
		UserID           int            `json:"user_id"`
		TopicID          string         `json:"topic_id"`
		SubjectID        string         `json:"subject_id"`
		MasteryLevel     float64        `json:"mastery_level"`
		TimeSpentMinutes int            `json:"time_spent_minutes"`
		LastStudied      *time.Time     `json:"last_studied"`
		Attempts         int            `json:"attempts"`
		CorrectAnswers   int            `json:"correct_answers"`
		Status           ProgressStatus `json:"status"`
		UpdatedAt        time.Time      `json:"updated_at"`
	}{
		ID:               p.ID,
		UserID:           p.UserID,
		TopicID:          p.TopicID,
		SubjectID:        p.SubjectID,
		MasteryLevel:     p.MasteryLevel,
		TimeSpentMinutes: p.TimeSpentMinutes,
		LastStudied:      nullTimeToPointer(p.LastStudied),
		Attempts:         p.Attempts,
		CorrectAnswers:   p.CorrectAnswers,
		Status:           p.Status,
		UpdatedAt:        p.UpdatedAt,
	})
}

// ProgressUpdate is a full snapshot of cumulative values for one topic.
// Writing the same snapshot twice leaves the stored record unchanged.
type ProgressUpdate struct {
	TopicID          string  `json:"topic_id"`
	MasteryLevel     float64 `json:"mastery_level"`
	TimeSpentMinutes int     `json:"time_spent_minutes"`
	Attempts         int     `json:"attempts"`
	CorrectAnswers   int     `json:"correct_answers"`
}

// OutcomeSource names where an outcome event came from
type OutcomeSource string

// Outcome sources
const (
	OutcomeSourceQuiz    OutcomeSource = "quiz"
	OutcomeSourceSession OutcomeSource = "session"
	OutcomeSourceManual  OutcomeSource = "manual"
)

// Outcome is one observed performance signal on a topic
type Outcome struct {
	TopicID string
	Source  OutcomeSource
	// Score in [0,1].
	Score float64
	// Correct counts toward correct_answers when true.
	Correct bool
	// ResponseTime and ExpectedTime are zero when latency is unknown.
	ResponseTime time.Duration
	ExpectedTime time.Duration
	MinutesSpent int
}
