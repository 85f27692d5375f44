package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"calllab/internal/llm"
)

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	r := NewReporter(dir)

	seven := 7
	valid := true
	diag := "Invalid JSON: some rambling"
	results := []TestResult{
		{
			ModelID:    "gemma-1.1-2b-it",
			PromptID:   "basic_booking_round_1",
			PromptText: "Generate a scheduling conversation.",
			Performance: llm.Metrics{
				TotalTime: 2.5, TokensPerSecond: 12.0,
				TotalTokens: 50, CompletionTokens: 30, Success: true,
			},
			Scores: llm.ScoreResult{
				RealnessScore: &seven, OverallScore: &seven,
				DomainValid: &valid, BriefFeedback: "fine",
			},
			Timestamp: "2026-01-01T00:00:00Z",
		},
		{
			ModelID:     "llama-3.2-1b",
			PromptID:    "basic_booking_round_2",
			Performance: llm.Metrics{Error: "timeout"},
			Scores:      llm.ScoreResult{GradingError: &diag},
		},
	}

	path, err := r.Write(results)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "prompt_test_results_") {
		t.Fatalf("filename = %q", filepath.Base(path))
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}

	idx := map[string]int{}
	for i, name := range rows[0] {
		idx[name] = i
	}
	ok := rows[1]
	if ok[idx["model_id"]] != "gemma-1.1-2b-it" {
		t.Fatalf("model = %q", ok[idx["model_id"]])
	}
	if ok[idx["realness_score"]] != "7" || ok[idx["domain_valid"]] != "true" {
		t.Fatalf("scores row = %v", ok)
	}
	if ok[idx["tokens_per_second"]] != "12.00" {
		t.Fatalf("tok/s = %q", ok[idx["tokens_per_second"]])
	}

	failed := rows[2]
	if failed[idx["realness_score"]] != "" || failed[idx["domain_valid"]] != "" {
		t.Fatalf("failed row should have empty score cells: %v", failed)
	}
	if failed[idx["grading_error"]] != diag {
		t.Fatalf("grading_error = %q", failed[idx["grading_error"]])
	}
	if failed[idx["execution_error"]] != "timeout" {
		t.Fatalf("execution_error = %q", failed[idx["execution_error"]])
	}
}
