package llm_test

import (
	"strings"
	"testing"

	"calllab/internal/llm"
)

func TestHeuristicScoreLongConversation(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 12; i++ {
		b.WriteString("User: I would like to schedule a doctor appointment for next week please?\n")
	}
	result := llm.HeuristicScore(b.String(), nil)
	if result.RealnessScore == nil || *result.RealnessScore != 8 {
		t.Fatalf("realness = %v, want 8", result.RealnessScore)
	}
	if result.CoherenceScore == nil || *result.CoherenceScore != 8 {
		t.Fatalf("coherence = %v, want 8", result.CoherenceScore)
	}
	if result.DomainValid == nil || !*result.DomainValid {
		t.Fatal("appointment keyword should mark the conversation valid")
	}
	if !strings.HasPrefix(result.BriefFeedback, "Local grading:") {
		t.Fatalf("feedback = %q", result.BriefFeedback)
	}
}

func TestHeuristicScoreShortOffDomain(t *testing.T) {
	result := llm.HeuristicScore("hello there", nil)
	if result.RealnessScore == nil || *result.RealnessScore != 6 {
		t.Fatalf("realness = %v, want 6", result.RealnessScore)
	}
	if result.DomainValid == nil || *result.DomainValid {
		t.Fatal("off-domain text should not be valid")
	}
	if result.GradingError != nil {
		t.Fatal("heuristic grading never errors")
	}
}

func TestHeuristicScoreCustomKeywords(t *testing.T) {
	result := llm.HeuristicScore("I want to order a large pizza", []string{"pizza"})
	if result.DomainValid == nil || !*result.DomainValid {
		t.Fatal("custom keyword should mark validity")
	}
}
