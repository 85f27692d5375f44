package harness_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"calllab/internal/config"
	"calllab/internal/harness"
	"calllab/internal/llm"
	"calllab/internal/report"
)

// inferenceServer fakes the local model server: two models (one an
// embedding model) and canned completions.
func inferenceServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/models":
			json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{
				{"id": "gemma-1.1-2b-it", "object": "model"},
				{"id": "nomic-embed-text-v1.5", "object": "model"},
			}})
		case "/v1/chat/completions":
			json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{{"message": map[string]any{
					"content": "User: I'd like to book an appointment.\nAgent: Certainly, when suits you?",
				}}},
				"usage": map[string]int{"prompt_tokens": 20, "completion_tokens": 30, "total_tokens": 50},
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

func gradingServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{
				"content": `{"realness_score": 7, "coherence_score": 8, "naturalness_score": 7, "overall_score": 7, "domain_valid": true, "brief_feedback": "fine"}`,
			}}},
			"usage": map[string]int{"completion_tokens": 40, "total_tokens": 80},
		})
	}))
}

func TestRunEndToEnd(t *testing.T) {
	inference := inferenceServer(t)
	defer inference.Close()
	grading := gradingServer(t)
	defer grading.Close()

	client := llm.NewClient(inference.URL, "")
	outDir := t.TempDir()
	runner := harness.Runner{
		Discovery: llm.Discovery{Client: client},
		Executor:  llm.Executor{Client: client},
		Scorer:    llm.Scorer{Client: llm.NewClient(grading.URL, "key")},
		Reporter:  report.NewReporter(outDir),
		Rounds:    1,
	}
	prompts := []config.PromptTemplate{
		{ID: "basic_booking", Prompt: "Generate a scheduling conversation."},
	}

	path, results, err := runner.Run(context.Background(), prompts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// one conversational model, one prompt, one round
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	r := results[0]
	if r.ModelID != "gemma-1.1-2b-it" {
		t.Fatalf("model = %q", r.ModelID)
	}
	if r.PromptID != "basic_booking_round_1" {
		t.Fatalf("prompt id = %q", r.PromptID)
	}
	if !r.Performance.Success || r.Performance.CompletionTokens != 30 {
		t.Fatalf("performance = %+v", r.Performance)
	}
	if r.Scores.OverallScore == nil || *r.Scores.OverallScore != 7 {
		t.Fatalf("overall = %v", r.Scores.OverallScore)
	}
	if !strings.Contains(r.GradingPrompt, "Generate a scheduling conversation.") {
		t.Fatal("grading prompt should embed the original prompt")
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open report: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("csv rows = %d, want header + 1", len(rows))
	}
	header := rows[0]
	if header[0] != "model_id" || header[len(header)-1] != "timestamp" {
		t.Fatalf("unexpected header: %v", header)
	}
	if rows[1][0] != "gemma-1.1-2b-it" {
		t.Fatalf("row model = %q", rows[1][0])
	}
}

func TestRunNoModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/models" {
			json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{
				{"id": "nomic-embed-text-v1.5"},
			}})
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	runner := harness.Runner{
		Discovery: llm.Discovery{Client: llm.NewClient(srv.URL, "")},
		Reporter:  report.NewReporter(t.TempDir()),
	}
	if _, _, err := runner.Run(context.Background(), nil); err == nil {
		t.Fatal("expected error when only embedding models are served")
	}
}
