package llm

import (
	"fmt"
	"strings"
)

var defaultDomainKeywords = []string{
	"appointment", "doctor", "checkup", "medical",
	"health", "patient", "clinic", "schedule",
}

// HeuristicScore grades a conversation without any model call, using
// length and structure alone. Fallback for when no grading endpoint is
// reachable; the numbers are deliberately coarse.
func HeuristicScore(conversationText string, domainKeywords []string) ScoreResult {
	if len(domainKeywords) == 0 {
		domainKeywords = defaultDomainKeywords
	}
	lines := nonEmptyLines(conversationText)
	wordCount := len(strings.Fields(conversationText))

	realness := 6
	switch {
	case wordCount > 100 && len(lines) > 10:
		realness = 8
	case wordCount > 50 && len(lines) > 5:
		realness = 7
	}

	coherence := 7
	if len(lines) > 8 {
		coherence = 8
	}

	naturalness := 7
	if strings.Contains(conversationText, "?") && wordCount > 80 {
		naturalness = 8
	}

	overall := (realness + coherence + naturalness + 1) / 3

	lower := strings.ToLower(conversationText)
	valid := false
	for _, kw := range domainKeywords {
		if strings.Contains(lower, kw) {
			valid = true
			break
		}
	}

	feedback := fmt.Sprintf("Local grading: %d words, %d turns", wordCount, len(lines))
	return ScoreResult{
		RealnessScore:    &realness,
		CoherenceScore:   &coherence,
		NaturalnessScore: &naturalness,
		OverallScore:     &overall,
		DomainValid:      &valid,
		BriefFeedback:    feedback,
	}
}

func nonEmptyLines(s string) []string {
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
