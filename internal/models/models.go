// Package models defines data structures used throughout the coach application.
package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// ExamTrack is the competitive exam a learner prepares for
type ExamTrack string

// Supported exam tracks
const (
	ExamTrackJEE  ExamTrack = "JEE"
	ExamTrackNEET ExamTrack = "NEET"
)

// Valid reports whether the track is one of the supported exams
func (t ExamTrack) Valid() bool {
	return t == ExamTrackJEE || t == ExamTrackNEET
}

// Applicability marks which exam tracks a subject belongs to
type Applicability string

// Subject applicability values
const (
	ApplicabilityJEE  Applicability = "JEE"
	ApplicabilityNEET Applicability = "NEET"
	ApplicabilityBoth Applicability = "BOTH"
)

// AppliesTo reports whether a subject with this applicability is studied for track
func (a Applicability) AppliesTo(track ExamTrack) bool {
	return a == ApplicabilityBoth || string(a) == string(track)
}

// StudyTime is the learner's preferred slot of the day
type StudyTime string

// Preferred study times
const (
	StudyTimeMorning   StudyTime = "morning"
	StudyTimeAfternoon StudyTime = "afternoon"
	StudyTimeEvening   StudyTime = "evening"
	StudyTimeNight     StudyTime = "night"
)

// Profile defaults applied at onboarding
const (
	DefaultStudyHoursPerDay   = 4
	MinStudyHoursPerDay       = 1
	MaxStudyHoursPerDay       = 16
	DefaultAdaptiveDifficulty = 0.5
	DefaultConfidenceLevel    = 0.5
)

// UserProfile represents a learner and their study preferences
type UserProfile struct {
	ID                 int            `json:"id" yaml:"id"`
	Name               string         `json:"name" yaml:"name" validate:"required,max=200"`
	Email              sql.NullString `json:"email" yaml:"email"`
	ExamTrack          ExamTrack      `json:"exam_track" yaml:"exam_track" validate:"required,oneof=JEE NEET"`
	TargetExamYear     int            `json:"target_exam_year" yaml:"target_exam_year" validate:"required,min=2000,max=2100"`
	StudyHoursPerDay   int            `json:"study_hours_per_day" yaml:"study_hours_per_day" validate:"min=1,max=16"`
	PreferredStudyTime StudyTime      `json:"preferred_study_time" yaml:"preferred_study_time" validate:"oneof=morning afternoon evening night"`
	AdaptiveDifficulty float64        `json:"adaptive_difficulty" yaml:"adaptive_difficulty" validate:"min=0,max=1"`
	ConfidenceLevel    float64        `json:"confidence_level" yaml:"confidence_level" validate:"min=0,max=1"`
	WeakSubjects       []string       `json:"weak_subjects" yaml:"weak_subjects"`
	StrongSubjects     []string       `json:"strong_subjects" yaml:"strong_subjects"`
	CreatedAt          time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at" yaml:"updated_at"`
}

// ApplyDefaults fills the onboarding defaults for unset preference fields
func (p *UserProfile) ApplyDefaults() {
	if p.StudyHoursPerDay == 0 {
		p.StudyHoursPerDay = DefaultStudyHoursPerDay
	}
	if p.PreferredStudyTime == "" {
		p.PreferredStudyTime = StudyTimeMorning
	}
	if p.AdaptiveDifficulty == 0 {
		p.AdaptiveDifficulty = DefaultAdaptiveDifficulty
	}
	if p.ConfidenceLevel == 0 {
		p.ConfidenceLevel = DefaultConfidenceLevel
	}
	if p.WeakSubjects == nil {
		p.WeakSubjects = []string{}
	}
	if p.StrongSubjects == nil {
		p.StrongSubjects = []string{}
	}
}

// MarshalJSON renders nullable columns as JSON null
func (p UserProfile) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID                 int       `json:"id"`
		Name               string    `json:"name"`
		Email              *string   `json:"email"`
		ExamTrack          ExamTrack `json:"exam_track"`
		TargetExamYear     int       `json:"target_exam_year"`
		StudyHoursPerDay   int       `json:"study_hours_per_day"`
		PreferredStudyTime StudyTime `json:"preferred_study_time"`
		AdaptiveDifficulty float64   `json:"adaptive_difficulty"`
		ConfidenceLevel    float64   `json:"confidence_level"`
		WeakSubjects       []string  `json:"weak_subjects"`
		StrongSubjects     []string  `json:"strong_subjects"`
		CreatedAt          time.Time `json:"created_at"`
		UpdatedAt          time.Time `json:"updated_at"`
	}{
		ID:                 p.ID,
		Name:               p.Name,
		Email:              nullStringToPointer(p.Email),
		ExamTrack:          p.ExamTrack,
		TargetExamYear:     p.TargetExamYear,
		StudyHoursPerDay:   p.StudyHoursPerDay,
		PreferredStudyTime: p.PreferredStudyTime,
		AdaptiveDifficulty: p.AdaptiveDifficulty,
		ConfidenceLevel:    p.ConfidenceLevel,
		WeakSubjects:       nonNilStrings(p.WeakSubjects),
		StrongSubjects:     nonNilStrings(p.StrongSubjects),
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	})
}

// Subject is a catalog subject such as physics or biology
type Subject struct {
	ID                string        `json:"id" yaml:"id"`
	Name              string        `json:"name" yaml:"name"`
	ExamApplicability Applicability `json:"exam_applicability" yaml:"exam_applicability"`
	Description       string        `json:"description" yaml:"description"`
}

// Topic is a catalog topic within a subject
type Topic struct {
	ID             string   `json:"id" yaml:"id"`
	SubjectID      string   `json:"subject_id" yaml:"subject_id"`
	Name           string   `json:"name" yaml:"name"`
	Chapter        string   `json:"chapter" yaml:"chapter"`
	Difficulty     int      `json:"difficulty" yaml:"difficulty"`
	Importance     int      `json:"importance" yaml:"importance"`
	EstimatedHours float64  `json:"estimated_hours" yaml:"estimated_hours"`
	Prerequisites  []string `json:"prerequisites" yaml:"prerequisites"`
}

// Helper functions for converting sql.Null types to pointers
func nullStringToPointer(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}

func nullTimeToPointer(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
