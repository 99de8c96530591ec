package services

import (
	"strings"

	"coachapp/internal/models"
	"coachapp/internal/planner"
)

// sentimentKeywords are checked in order; the first sentiment with a hit wins.
var sentimentKeywords = []struct {
	sentiment models.Sentiment
	words     []string
}{
	{models.SentimentFrustrated, []string{"confused", "stuck", "difficult", "hard", "frustrated"}},
	{models.SentimentPositive, []string{"excited", "confident", "easy", "understand"}},
	{models.SentimentAnxious, []string{"worried", "anxious", "scared", "nervous"}},
}

// subjectKeywords map message fragments to catalog subject ids. Full names
// come before abbreviations.
var subjectKeywords = []struct {
	word      string
	subjectID string
}{
	{"physics", planner.SubjectPhysics},
	{"chemistry", planner.SubjectChemistry},
	{"mathematics", planner.SubjectMathematics},
	{"biology", planner.SubjectBiology},
	{"math", planner.SubjectMathematics},
	{"bio", planner.SubjectBiology},
	{"chem", planner.SubjectChemistry},
	{"phy", planner.SubjectPhysics},
}

// AnalyzeSentiment classifies a chat message by keyword and reports the first
// subject it mentions, or "" when none.
func AnalyzeSentiment(message string) (models.Sentiment, string) {
	text := strings.ToLower(message)

	sentiment := models.SentimentNeutral
	for _, group := range sentimentKeywords {
		if containsAny(text, group.words) {
			sentiment = group.sentiment
			break
		}
	}

	subjectID := ""
	for _, k := range subjectKeywords {
		if strings.Contains(text, k.word) {
			subjectID = k.subjectID
			break
		}
	}
	return sentiment, subjectID
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
