// Package mastery turns noisy performance signals into a per-topic mastery level
// and the learning status derived from it.
package mastery

import (
	"math"
	"time"

	"coachapp/internal/models"
)

// Status thresholds
const (
	CompletedThreshold  = 0.8
	InProgressThreshold = 0.4
	// StrugglingAttempts is the attempt count a low-mastery topic must exceed
	// before it is flagged as struggling.
	StrugglingAttempts = 3
)

// Weights of accuracy and speed in the observed performance
const (
	scoreWeight = 0.8
	speedWeight = 0.2
	minAlpha    = 0.2
)

// DeriveStatus maps a mastery level and attempt count to a progress status.
// It is a pure function of its inputs.
func DeriveStatus(mastery float64, attempts int) models.ProgressStatus {
	switch {
	case mastery >= CompletedThreshold:
		return models.ProgressCompleted
	case mastery >= InProgressThreshold:
		return models.ProgressInProgress
	case attempts > StrugglingAttempts:
		return models.ProgressStruggling
	default:
		return models.ProgressInProgress
	}
}

// Observation is one performance signal on a topic
type Observation struct {
	// Score in [0,1]; a boolean answer maps to 0 or 1.
	Score float64
	// ResponseTime and ExpectedTime are zero when latency is unknown.
	ResponseTime time.Duration
	ExpectedTime time.Duration
	// Attempts made before this observation.
	Attempts int
}

// Result is the outcome of applying one observation
type Result struct {
	Mastery  float64
	Attempts int
	Status   models.ProgressStatus
}

// Update moves current mastery toward the observed performance with a learning
// rate that decays with attempts. The result is not clamped.
func Update(current float64, obs Observation) Result {
	observed := Performance(obs)
	alpha := LearningRate(obs.Attempts)
	next := current + alpha*(observed-current)
	attempts := obs.Attempts + 1

	return Result{
		Mastery:  next,
		Attempts: attempts,
		Status:   DeriveStatus(next, attempts),
	}
}

// Performance blends accuracy with answer speed. Without latency data the
// score is used on its own.
func Performance(obs Observation) float64 {
	if obs.ResponseTime <= 0 || obs.ExpectedTime <= 0 {
		return obs.Score
	}
	ratio := float64(obs.ResponseTime) / float64(obs.ExpectedTime)
	return scoreWeight*obs.Score + speedWeight*SpeedFactor(ratio)
}

// SpeedFactor scores response time relative to the expected time
func SpeedFactor(ratio float64) float64 {
	switch {
	case ratio <= 0.5:
		return 1.0
	case ratio <= 1.0:
		return 1.0 - (ratio - 0.5)
	default:
		return math.Max(0, 0.5-0.5*(ratio-1))
	}
}

// LearningRate is max(0.2, 1/(attempts+1))
func LearningRate(attempts int) float64 {
	if attempts < 0 {
		attempts = 0
	}
	return math.Max(minAlpha, 1.0/float64(attempts+1))
}

// SessionScore maps a 1..5 understanding level onto [0,1]
func SessionScore(understanding int) float64 {
	if understanding < 1 {
		understanding = 1
	}
	if understanding > 5 {
		understanding = 5
	}
	return float64(understanding-1) / 4.0
}

// Clamp bounds a mastery level to [0,1]; NaN becomes 0
func Clamp(m float64) float64 {
	if math.IsNaN(m) || m < 0 {
		return 0
	}
	if m > 1 {
		return 1
	}
	return m
}
