package llm

import (
	"context"
	"time"
)

const executeTimeout = 300 * time.Second

// Metrics captures timing and token counts for one prompt execution.
// On failure Success is false and Error carries the message; token
// counts are zero.
type Metrics struct {
	TotalTime        float64 `json:"total_time"`
	TokensPerSecond  float64 `json:"tokens_per_second"`
	TotalTokens      int     `json:"total_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	PromptTokens     int     `json:"prompt_tokens"`
	Success          bool    `json:"success"`
	Error            string  `json:"error,omitempty"`
}

// Executor runs prompts against a conversational model.
type Executor struct {
	Client      *Client
	MaxTokens   int
	Temperature float64
}

// Execute sends a single-shot prompt and measures throughput. Failures
// are reported through Metrics, not the error return, so callers can
// always record the attempt.
func (e Executor) Execute(ctx context.Context, modelID, prompt string) (string, Metrics) {
	maxTokens := e.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2000
	}
	temperature := e.Temperature
	if temperature == 0 {
		temperature = 0.7
	}

	ctx, cancel := context.WithTimeout(ctx, executeTimeout)
	defer cancel()

	start := time.Now()
	resp, err := e.Client.Chat(ctx, ChatRequest{
		Model:       modelID,
		Messages:    []Message{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	elapsed := time.Since(start).Seconds()

	if err != nil {
		return "", Metrics{TotalTime: elapsed, Error: err.Error()}
	}

	tokensPerSecond := 0.0
	if elapsed > 0 {
		tokensPerSecond = float64(resp.Usage.CompletionTokens) / elapsed
	}
	return resp.Content, Metrics{
		TotalTime:        elapsed,
		TokensPerSecond:  tokensPerSecond,
		TotalTokens:      resp.Usage.TotalTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		PromptTokens:     resp.Usage.PromptTokens,
		Success:          true,
	}
}
