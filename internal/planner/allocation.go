// Package planner converts mastery state into a weekly study allocation, a
// day-by-day plan, and adaptation directives. Everything here is pure; the
// services package handles storage.
package planner

import (
	"math"
	"sort"
	"time"

	"coachapp/internal/models"
	contextutils "coachapp/internal/utils"
)

// Subject ids of the seeded catalog
const (
	SubjectPhysics     = "physics_jee_neet"
	SubjectChemistry   = "chemistry_jee_neet"
	SubjectMathematics = "mathematics_jee"
	SubjectBiology     = "biology_neet"
)

// SubjectShare is one entry of a base split table
type SubjectShare struct {
	SubjectID string
	Percent   int
}

var baseSplits = map[models.ExamTrack][]SubjectShare{
	models.ExamTrackJEE: {
		{SubjectPhysics, 33},
		{SubjectChemistry, 33},
		{SubjectMathematics, 34},
	},
	models.ExamTrackNEET: {
		{SubjectPhysics, 25},
		{SubjectChemistry, 25},
		{SubjectBiology, 50},
	},
}

// Allocation adjustment thresholds
const (
	weakMastery     = 0.3
	strongMastery   = 0.7
	weakBonus       = 10
	weakCap         = 50
	strongPenalty   = 5
	strongFloor     = 20
	focusMultiplier = 1.3
)

// BaseSplit returns the base percentages for a track in subject order
func BaseSplit(track models.ExamTrack) ([]SubjectShare, error) {
	split, ok := baseSplits[track]
	if !ok {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidProfile, "unknown exam track %q", string(track))
	}
	out := make([]SubjectShare, len(split))
	copy(out, split)
	return out, nil
}

// Allocation is the share of study time per subject and the order to study them in
type Allocation struct {
	// Percent per subject id; always sums to exactly 100.
	Percent map[string]int
	// Priority lists subject ids weakest first.
	Priority []string
	// SubjectMastery is the mean mastery per subject (0 when no records).
	SubjectMastery map[string]float64
	// OverallMastery is the mean over all records; HasProgress is false when there are none.
	OverallMastery float64
	HasProgress    bool
}

// SubjectMastery averages mastery per subject over the records that exist
func SubjectMastery(progress []models.ProgressRecord) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, p := range progress {
		sums[p.SubjectID] += p.MasteryLevel
		counts[p.SubjectID]++
	}
	means := make(map[string]float64, len(sums))
	for id, sum := range sums {
		means[id] = sum / float64(counts[id])
	}
	return means
}

// FocusDirectives turns the profile's weak subjects into increase_focus
// directives. Accepted focus directives and frustrated chat both land in
// weak_subjects, so this is how they reach the next allocation.
func FocusDirectives(weakSubjects []string) []models.Directive {
	out := make([]models.Directive, 0, len(weakSubjects))
	for _, id := range weakSubjects {
		if id == "" {
			continue
		}
		out = append(out, models.Directive{Type: models.DirectiveIncreaseFocus, SubjectID: id})
	}
	return out
}

// Allocate splits study time across the track's subjects. Weak subjects gain
// time, strong ones lose some, and an explicit increase_focus directive scales
// its subject by 1.3 before the shares are renormalized to 100.
func Allocate(track models.ExamTrack, progress []models.ProgressRecord, directives []models.Directive) (*Allocation, error) {
	split, err := BaseSplit(track)
	if err != nil {
		return nil, err
	}

	means := SubjectMastery(progress)
	focus := make(map[string]bool)
	for _, d := range directives {
		if d.Type == models.DirectiveIncreaseFocus && d.SubjectID != "" {
			focus[d.SubjectID] = true
		}
	}

	subjectMastery := make(map[string]float64, len(split))
	adjusted := make([]float64, len(split))
	for i, share := range split {
		m := means[share.SubjectID]
		subjectMastery[share.SubjectID] = m
		adjusted[i] = float64(AdjustShare(share.Percent, m))
		if focus[share.SubjectID] {
			adjusted[i] *= focusMultiplier
		}
	}

	percents := renormalize(split, adjusted, subjectMastery)

	alloc := &Allocation{
		Percent:        make(map[string]int, len(split)),
		Priority:       priorityOrder(split, subjectMastery),
		SubjectMastery: subjectMastery,
		HasProgress:    len(progress) > 0,
	}
	for i, share := range split {
		alloc.Percent[share.SubjectID] = percents[i]
	}
	if alloc.HasProgress {
		var sum float64
		for _, p := range progress {
			sum += p.MasteryLevel
		}
		alloc.OverallMastery = sum / float64(len(progress))
	}
	return alloc, nil
}

// AdjustShare applies the weak/strong rule to one base percentage
func AdjustShare(base int, mean float64) int {
	switch {
	case mean < weakMastery:
		if base+weakBonus > weakCap {
			return weakCap
		}
		return base + weakBonus
	case mean > strongMastery:
		if base-strongPenalty < strongFloor {
			return strongFloor
		}
		return base - strongPenalty
	default:
		return base
	}
}

// renormalize scales values to integers summing to 100 using largest remainder.
// Ties go to the lower-mastery subject, then to the earlier subject.
func renormalize(split []SubjectShare, values []float64, mastery map[string]float64) []int {
	var total float64
	for _, v := range values {
		total += v
	}
	out := make([]int, len(values))
	if total <= 0 || len(values) == 0 {
		return out
	}

	type remainder struct {
		idx  int
		frac float64
	}
	rems := make([]remainder, len(values))
	assigned := 0
	for i, v := range values {
		exact := v * 100 / total
		floor := math.Floor(exact)
		out[i] = int(floor)
		assigned += out[i]
		rems[i] = remainder{idx: i, frac: exact - floor}
	}

	sort.SliceStable(rems, func(a, b int) bool {
		ra, rb := rems[a], rems[b]
		if math.Abs(ra.frac-rb.frac) > 1e-9 {
			return ra.frac > rb.frac
		}
		ma, mb := mastery[split[ra.idx].SubjectID], mastery[split[rb.idx].SubjectID]
		if ma != mb {
			return ma < mb
		}
		return ra.idx < rb.idx
	})

	for i := 0; assigned < 100; i = (i + 1) % len(rems) {
		out[rems[i].idx]++
		assigned++
	}
	return out
}

// priorityOrder sorts subjects by ascending mean mastery keeping base order on ties
func priorityOrder(split []SubjectShare, mastery map[string]float64) []string {
	order := make([]string, len(split))
	for i, share := range split {
		order[i] = share.SubjectID
	}
	sort.SliceStable(order, func(a, b int) bool {
		return mastery[order[a]] < mastery[order[b]]
	})
	return order
}

// DerivePhase picks the preparation phase from overall mean mastery
func DerivePhase(overall float64, hasProgress bool) models.Phase {
	switch {
	case !hasProgress || overall < 0.3:
		return models.PhaseFoundation
	case overall < 0.6:
		return models.PhaseIntermediate
	default:
		return models.PhaseAdvanced
	}
}

// FocusAreas lists the themes to emphasize for the learner's current standing
func FocusAreas(overall float64, hasProgress bool) []string {
	switch {
	case !hasProgress:
		return []string{"basic_concepts", "ncert_completion"}
	case overall < 0.3:
		return []string{"concept_building", "basic_practice"}
	case overall < 0.6:
		return []string{"problem_solving", "previous_year_questions"}
	default:
		return []string{"mock_tests", "advanced_problems", "revision"}
	}
}

// ExamMonth is the calendar month the track's exam is held in
func ExamMonth(track models.ExamTrack) time.Month {
	if track == models.ExamTrackNEET {
		return time.May
	}
	return time.April
}

// MonthsRemaining counts whole months until the exam, never less than 1
func MonthsRemaining(track models.ExamTrack, examYear int, now time.Time) int {
	months := (examYear-now.Year())*12 + int(ExamMonth(track)) - int(now.Month())
	if months < 1 {
		return 1
	}
	return months
}

// Intensity labels the schedule pressure for the months left
func Intensity(monthsRemaining int) models.Intensity {
	switch {
	case monthsRemaining <= 2:
		return models.IntensityHigh
	case monthsRemaining <= 6:
		return models.IntensityMediumHigh
	case monthsRemaining <= 12:
		return models.IntensityMedium
	default:
		return models.IntensityLowMedium
	}
}

// WeekStart returns the Monday (UTC midnight) of the ISO week offset weeks from now
func WeekStart(now time.Time, offset int) time.Time {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return day.AddDate(0, 0, -(weekday-1)+7*offset)
}
