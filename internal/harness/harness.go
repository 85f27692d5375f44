// Package harness runs the prompt test suite: discover models, probe
// availability, execute each prompt for a number of rounds, score the
// output and write a CSV report.
package harness

import (
	"context"
	"fmt"
	"time"

	"calllab/internal/config"
	"calllab/internal/llm"
	"calllab/internal/report"
)

const roundPause = 2 * time.Second

type Runner struct {
	Discovery llm.Discovery
	Executor  llm.Executor
	Scorer    llm.Scorer
	Reporter  report.Reporter
	Rounds    int
	// Logf receives progress lines; nil disables them.
	Logf func(format string, args ...any)
}

func (r Runner) logf(format string, args ...any) {
	if r.Logf != nil {
		r.Logf(format, args...)
	}
}

func (r Runner) rounds() int {
	if r.Rounds > 0 {
		return r.Rounds
	}
	return 3
}

// Run executes the full suite and returns the CSV report path along
// with the collected results.
func (r Runner) Run(ctx context.Context, prompts []config.PromptTemplate) (string, []report.TestResult, error) {
	models, err := r.Discovery.ConversationalModels(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("discover models: %w", err)
	}
	if len(models) == 0 {
		return "", nil, fmt.Errorf("no conversational models found")
	}
	r.logf("Found %d conversational models", len(models))
	for _, m := range models {
		r.logf("  - %s", m.ID)
	}

	var results []report.TestResult
	var monitor report.Monitor

	for _, model := range models {
		r.logf("Testing model: %s", model.ID)
		if !r.Discovery.Available(ctx, model.ID) {
			r.logf("  model %s not responsive, skipping", model.ID)
			continue
		}
		for _, prompt := range prompts {
			for round := 1; round <= r.rounds(); round++ {
				r.logf("  running prompt %s (round %d/%d)", prompt.ID, round, r.rounds())

				monitor.Start()
				conversation, perf := r.Executor.Execute(ctx, model.ID, prompt.Prompt)
				resources := monitor.Stop()

				var scores llm.ScoreResult
				if perf.Success {
					r.logf("    %d tokens in %.2fs (%.2f tok/s)",
						perf.CompletionTokens, perf.TotalTime, perf.TokensPerSecond)
					scores = r.Scorer.Score(ctx, conversation, prompt.Prompt)
					if scores.GradingError != nil {
						r.logf("    grading error: %s", *scores.GradingError)
					}
				} else {
					r.logf("    execution failed: %s", perf.Error)
				}

				results = append(results, report.TestResult{
					ModelID:       model.ID,
					PromptID:      fmt.Sprintf("%s_round_%d", prompt.ID, round),
					PromptText:    prompt.Prompt,
					Conversation:  conversation,
					GradingPrompt: r.Scorer.GradingPrompt(conversation, prompt.Prompt),
					Performance:   perf,
					Resources:     resources,
					Scores:        scores,
					Timestamp:     time.Now().UTC().Format(time.RFC3339),
				})

				select {
				case <-ctx.Done():
					return "", results, ctx.Err()
				case <-time.After(roundPause):
				}
			}
		}
	}

	path, err := r.Reporter.Write(results)
	if err != nil {
		return "", results, fmt.Errorf("write report: %w", err)
	}
	return path, results, nil
}
