package planner

import (
	"math"
	"sort"
	"time"

	"coachapp/internal/models"
	contextutils "coachapp/internal/utils"
)

// DaysPerWeek is the length of a roadmap
const DaysPerWeek = 7

// AssessmentDay is reserved for revision and a mock test
const AssessmentDay = 7

// topicPoolSize is how many ranked candidates are kept per subject
const topicPoolSize = 3

// Activity is one block of study on a day
type Activity struct {
	Type      models.ActivityType
	SubjectID string
	// TopicID is empty for mixed activities and subjects without topics.
	TopicID   string
	TopicName string
	Hours     float64
	Priority  int
	// Pool holds the ranked candidate topic ids the attached topic was picked from.
	Pool []string
}

// WeekPlan is a generated week before persistence
type WeekPlan struct {
	Days            map[int][]Activity
	Allocation      map[string]int
	Priority        []string
	SubjectMastery  map[string]float64
	Phase           models.Phase
	Intensity       models.Intensity
	MonthsRemaining int
	FocusAreas      []string
	WeeklyHours     map[string]int
}

// BuildInput carries everything BuildWeek reads
type BuildInput struct {
	Profile *models.UserProfile
	// Topics by subject id.
	Topics     map[string][]models.Topic
	Progress   []models.ProgressRecord
	Directives []models.Directive
	Now        time.Time
}

// BuildWeek lays out seven days of activities for the learner
func BuildWeek(in BuildInput) (*WeekPlan, error) {
	if in.Profile == nil {
		return nil, contextutils.WrapError(contextutils.ErrInvalidProfile, "profile is required")
	}
	if in.Profile.StudyHoursPerDay < models.MinStudyHoursPerDay {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidProfile, "study hours per day must be at least %d", models.MinStudyHoursPerDay)
	}

	directives := append(FocusDirectives(in.Profile.WeakSubjects), in.Directives...)
	alloc, err := Allocate(in.Profile.ExamTrack, in.Progress, directives)
	if err != nil {
		return nil, err
	}

	months := MonthsRemaining(in.Profile.ExamTrack, in.Profile.TargetExamYear, in.Now)
	plan := &WeekPlan{
		Days:            make(map[int][]Activity, DaysPerWeek),
		Allocation:      alloc.Percent,
		Priority:        alloc.Priority,
		SubjectMastery:  alloc.SubjectMastery,
		Phase:           DerivePhase(alloc.OverallMastery, alloc.HasProgress),
		MonthsRemaining: months,
		Intensity:       Intensity(months),
		FocusAreas:      FocusAreas(alloc.OverallMastery, alloc.HasProgress),
		WeeklyHours:     WeeklyHours(in.Profile.StudyHoursPerDay, alloc.Percent),
	}

	topicMastery := make(map[string]float64, len(in.Progress))
	for _, p := range in.Progress {
		topicMastery[p.TopicID] = p.MasteryLevel
	}

	daily := in.Profile.StudyHoursPerDay
	n := len(plan.Priority)
	for day := 1; day <= DaysPerWeek; day++ {
		if day == AssessmentDay {
			half := float64(daily) / 2
			plan.Days[day] = []Activity{
				{Type: models.ActivityRevision, SubjectID: models.MixedSubject, Hours: half, Priority: models.PriorityMedium},
				{Type: models.ActivityMockTest, SubjectID: models.MixedSubject, Hours: half, Priority: models.PriorityHigh},
			}
			continue
		}

		primaryHours := daily * 7 / 10
		secondaryHours := daily * 2 / 10
		revisionHours := daily - primaryHours - secondaryHours

		primary := plan.Priority[day%n]
		secondary := plan.Priority[(day+1)%n]

		plan.Days[day] = []Activity{
			subjectActivity(models.ActivityConceptStudy, primary, in.Topics[primary], topicMastery, plan.Phase, primaryHours, models.PriorityHigh),
			subjectActivity(models.ActivityPractice, secondary, in.Topics[secondary], topicMastery, plan.Phase, secondaryHours, models.PriorityMedium),
			{Type: models.ActivityRevision, SubjectID: models.MixedSubject, Hours: float64(revisionHours), Priority: models.PriorityLow},
		}
	}

	return plan, nil
}

func subjectActivity(kind models.ActivityType, subjectID string, topics []models.Topic, mastery map[string]float64, phase models.Phase, hours, priority int) Activity {
	act := Activity{
		Type:      kind,
		SubjectID: subjectID,
		Hours:     float64(hours),
		Priority:  priority,
	}
	pool := SelectTopics(topics, mastery, phase)
	if len(pool) == 0 {
		return act
	}
	act.TopicID = pool[0].ID
	act.TopicName = pool[0].Name
	for _, t := range pool {
		act.Pool = append(act.Pool, t.ID)
	}
	return act
}

// SelectTopics filters a subject's topics to the phase's mastery band and
// returns up to three, most important and hardest first. Topics without a
// progress record count as mastery 0. An empty band falls back to all topics.
func SelectTopics(topics []models.Topic, mastery map[string]float64, phase models.Phase) []models.Topic {
	if len(topics) == 0 {
		return nil
	}

	suitable := make([]models.Topic, 0, len(topics))
	for _, t := range topics {
		if inPhaseBand(mastery[t.ID], phase) {
			suitable = append(suitable, t)
		}
	}
	if len(suitable) == 0 {
		suitable = append(suitable, topics...)
	}

	sort.SliceStable(suitable, func(a, b int) bool {
		ta, tb := suitable[a], suitable[b]
		if ta.Importance != tb.Importance {
			return ta.Importance > tb.Importance
		}
		if ta.Difficulty != tb.Difficulty {
			return ta.Difficulty > tb.Difficulty
		}
		return ta.ID < tb.ID
	})

	if len(suitable) > topicPoolSize {
		suitable = suitable[:topicPoolSize]
	}
	return suitable
}

func inPhaseBand(m float64, phase models.Phase) bool {
	switch phase {
	case models.PhaseFoundation:
		return m < 0.4
	case models.PhaseIntermediate:
		return m >= 0.3 && m < 0.7
	default:
		return m >= 0.6
	}
}

// WeeklyHours converts percentages into whole weekly hours per subject
func WeeklyHours(dailyHours int, percent map[string]int) map[string]int {
	weekly := float64(dailyHours * DaysPerWeek)
	hours := make(map[string]int, len(percent))
	for id, pct := range percent {
		hours[id] = int(math.Round(weekly * float64(pct) / 100))
	}
	return hours
}

// DayHours sums the hours scheduled on one day
func (p *WeekPlan) DayHours(day int) float64 {
	var total float64
	for _, a := range p.Days[day] {
		total += a.Hours
	}
	return total
}
