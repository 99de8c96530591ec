package planner

import (
	"fmt"
	"sort"

	"coachapp/internal/models"
)

// Adaptation thresholds
const (
	lowCompletionRate   = 50.0
	highCompletionRate  = 80.0
	highOverallMastery  = 0.7
	strugglingForFocus  = 2
	workloadDeltaHours  = -1
	RecentWeeksForAdapt = 2
)

// CompletionRate is completed / total * 100, or 0 for an empty week
func CompletionRate(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}

// Summarize fills per-week rates and the window average. Weeks with no items
// are dropped.
func Summarize(userID, weeksBack int, weeks []models.WeekCompletion) *models.RoadmapAnalytics {
	out := &models.RoadmapAnalytics{
		UserID:      userID,
		WeeksBack:   weeksBack,
		WeeklyStats: make([]models.WeekCompletion, 0, len(weeks)),
	}
	var sum float64
	for _, w := range weeks {
		if w.Total == 0 {
			continue
		}
		w.CompletionRate = CompletionRate(w.Completed, w.Total)
		if w.Week == "" {
			w.Week = fmt.Sprintf("%d-W%02d", w.Year, w.WeekNumber)
		}
		sum += w.CompletionRate
		out.WeeklyStats = append(out.WeeklyStats, w)
	}
	out.TotalWeeksTracked = len(out.WeeklyStats)
	if out.TotalWeeksTracked > 0 {
		out.AvgCompletionRate = sum / float64(out.TotalWeeksTracked)
	}
	return out
}

// AdaptInput carries the signals Adapt reasons over
type AdaptInput struct {
	// Recent holds the last two weeks of completion analytics.
	Recent   *models.RoadmapAnalytics
	Progress []models.ProgressRecord
	// SubjectNames maps subject ids to display names.
	SubjectNames map[string]string
}

// Adapt derives advisory directives from recent completion and current
// progress. Nothing is applied to the profile here.
func Adapt(in AdaptInput) []models.Directive {
	var directives []models.Directive

	hasAnalytics := in.Recent != nil && in.Recent.TotalWeeksTracked > 0

	if hasAnalytics && in.Recent.AvgCompletionRate < lowCompletionRate {
		directives = append(directives, models.Directive{
			Type:       models.DirectiveReduceWorkload,
			Reason:     "Low completion rate",
			Action:     "Reduce daily study hours by 1",
			DeltaHours: workloadDeltaHours,
		})
	}

	struggles := make(map[string]int)
	for _, p := range in.Progress {
		if p.Status == models.ProgressStruggling {
			struggles[p.SubjectID]++
		}
	}
	subjects := make([]string, 0, len(struggles))
	for id, count := range struggles {
		if count >= strugglingForFocus {
			subjects = append(subjects, id)
		}
	}
	sort.Strings(subjects)
	for _, id := range subjects {
		name := in.SubjectNames[id]
		if name == "" {
			name = id
		}
		directives = append(directives, models.Directive{
			Type:      models.DirectiveIncreaseFocus,
			SubjectID: id,
			Reason:    fmt.Sprintf("Struggling with %d topics", struggles[id]),
			Action:    fmt.Sprintf("Increase %s study time by 30%%", name),
			Factor:    focusMultiplier,
		})
	}

	if hasAnalytics && in.Recent.AvgCompletionRate > highCompletionRate && len(in.Progress) > 0 {
		var sum float64
		for _, p := range in.Progress {
			sum += p.MasteryLevel
		}
		if sum/float64(len(in.Progress)) > highOverallMastery {
			directives = append(directives, models.Directive{
				Type:   models.DirectiveIncreaseDifficulty,
				Reason: "Excellent performance",
				Action: "Add advanced topics and mock tests",
			})
		}
	}

	return directives
}
