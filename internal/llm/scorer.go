package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const scoreTimeout = 60 * time.Second

// Truncation limits applied to text embedded in the grading request.
const (
	maxPromptChars     = 500
	maxTranscriptChars = 2000
)

// ScoreResult is the rubric outcome for one conversation. All score
// fields are nil and GradingError is set when the grading call or its
// response parsing fails; failures are never returned as errors.
type ScoreResult struct {
	RealnessScore    *int    `json:"realness_score"`
	CoherenceScore   *int    `json:"coherence_score"`
	NaturalnessScore *int    `json:"naturalness_score"`
	OverallScore     *int    `json:"overall_score"`
	DomainValid      *bool   `json:"domain_valid"`
	BriefFeedback    string  `json:"brief_feedback"`
	GradingError     *string `json:"grading_error,omitempty"`
}

// Scorer grades generated conversations with a hosted chat model.
type Scorer struct {
	Client *Client
	Model  string
	// Domain names the conversation domain checked by the validity
	// question, e.g. "healthcare appointment".
	Domain string
}

func (s Scorer) model() string {
	if s.Model != "" {
		return s.Model
	}
	return "gpt-4o-mini"
}

func (s Scorer) domain() string {
	if s.Domain != "" {
		return s.Domain
	}
	return "healthcare appointment"
}

// Score asks the grading model to rate the conversation against the
// fixed rubric. A single call, no retry; every failure mode collapses
// into GradingError.
func (s Scorer) Score(ctx context.Context, conversationText, promptUsed string) ScoreResult {
	ctx, cancel := context.WithTimeout(ctx, scoreTimeout)
	defer cancel()

	resp, err := s.Client.Chat(ctx, ChatRequest{
		Model:       s.model(),
		Messages:    []Message{{Role: "user", Content: s.GradingPrompt(conversationText, promptUsed)}},
		MaxTokens:   200,
		Temperature: 0.1,
	})
	if err != nil {
		return failedScore(err.Error())
	}

	raw := StripFences(strings.TrimSpace(resp.Content))
	var parsed ScoreResult
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return failedScore("Invalid JSON: " + truncate(raw, 100))
	}
	parsed.GradingError = nil
	return parsed
}

// GradingPrompt builds the rubric prompt with the prompt and transcript
// truncated to their fixed limits.
func (s Scorer) GradingPrompt(conversationText, promptUsed string) string {
	domain := s.domain()
	return fmt.Sprintf(`Grade this AI-generated %s conversation on a scale of 1-10 for each metric:

1. REALNESS: How realistic and believable is this conversation? (1=obviously AI, 10=indistinguishable from human)
2. COHERENCE: How well does the conversation flow logically? (1=nonsensical, 10=perfect flow)
3. NATURALNESS: How natural do the speech patterns sound? (1=robotic, 10=completely natural)
4. OVERALL: Overall quality for training chatbot systems (1=unusable, 10=excellent training data)
5. DOMAIN_VALID: Is this actually a %s conversation? (true/false)

Original prompt used:
%s...

Generated conversation to grade:
%s...

Respond ONLY with JSON format:
{
  "realness_score": X,
  "coherence_score": X,
  "naturalness_score": X,
  "overall_score": X,
  "domain_valid": true/false,
  "brief_feedback": "one sentence explanation"
}`, domain, domain, truncate(promptUsed, maxPromptChars), truncate(conversationText, maxTranscriptChars))
}

// StripFences removes a Markdown code-fence wrapper from a model reply.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = text[len("```json"):]
	} else if strings.HasPrefix(text, "```") {
		text = text[len("```"):]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func failedScore(diag string) ScoreResult {
	return ScoreResult{GradingError: &diag}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
