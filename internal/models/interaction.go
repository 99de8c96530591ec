package models

import (
	"database/sql"
	"time"
)

// InteractionKind names the outcome source of an interaction
type InteractionKind string

// Interaction kinds
const (
	InteractionQuiz    InteractionKind = "quiz"
	InteractionSession InteractionKind = "session"
	InteractionChat    InteractionKind = "chat"
)

// Sentiment is the keyword-derived mood of a chat message
type Sentiment string

// Sentiments
const (
	SentimentNeutral    Sentiment = "neutral"
	SentimentPositive   Sentiment = "positive"
	SentimentFrustrated Sentiment = "frustrated"
	SentimentAnxious    Sentiment = "anxious"
)

// Interaction is one ingested outcome event kept for audit
type Interaction struct {
	ID        int             `json:"id"`
	UserID    int             `json:"user_id"`
	Kind      InteractionKind `json:"kind"`
	TopicID   sql.NullString  `json:"-"`
	Content   string          `json:"content"`
	Sentiment Sentiment       `json:"sentiment"`
	Score     sql.NullFloat64 `json:"-"`
	CreatedAt time.Time       `json:"created_at"`
}

// QuizAnswer is a single graded answer on a topic
type QuizAnswer struct {
	TopicID             string  `json:"topic_id" binding:"required"`
	Correct             bool    `json:"correct"`
	ResponseTimeSeconds float64 `json:"response_time_seconds" binding:"min=0"`
	ExpectedTimeSeconds float64 `json:"expected_time_seconds" binding:"min=0"`
}

// SessionEnd closes a study session on a topic
type SessionEnd struct {
	TopicID            string `json:"topic_id" binding:"required"`
	DurationMinutes    int    `json:"duration_minutes" binding:"min=0"`
	UnderstandingLevel int    `json:"understanding_level" binding:"required,min=1,max=5"`
	// PerformanceScore overrides the understanding mapping when present.
	PerformanceScore *float64 `json:"performance_score,omitempty" binding:"omitempty,min=0,max=1"`
	Mood             string   `json:"mood"`
}

// ChatMessage is a free-text message from the learner
type ChatMessage struct {
	Message string `json:"message" binding:"required,max=4000"`
}

// InteractionResult reports what an ingested interaction changed
type InteractionResult struct {
	Sentiment Sentiment       `json:"sentiment"`
	Progress  *ProgressRecord `json:"progress,omitempty"`
	Profile   *UserProfile    `json:"profile,omitempty"`
}
