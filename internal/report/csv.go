package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"calllab/internal/llm"
)

// TestResult is one model/prompt/round outcome, flattened into a CSV row.
type TestResult struct {
	ModelID       string          `json:"model_id"`
	PromptID      string          `json:"prompt_id"`
	PromptText    string          `json:"prompt_text"`
	Conversation  string          `json:"generated_conversation"`
	GradingPrompt string          `json:"grading_prompt"`
	Performance   llm.Metrics     `json:"performance_metrics"`
	Resources     ResourceMetrics `json:"resource_metrics"`
	Scores        llm.ScoreResult `json:"quality_scores"`
	Timestamp     string          `json:"timestamp"`
}

var header = []string{
	"model_id", "prompt_id", "prompt_text", "generated_conversation",
	"grading_prompt", "tokens_per_second", "total_time", "total_tokens",
	"completion_tokens",
	"cpu_usage_avg", "cpu_usage_max", "cpu_temp_avg", "cpu_temp_max",
	"memory_usage_avg", "memory_usage_max",
	"realness_score", "coherence_score", "naturalness_score", "overall_score",
	"domain_valid", "brief_feedback", "grading_error", "execution_error",
	"timestamp",
}

// Reporter writes prompt test results as a timestamped CSV file.
type Reporter struct {
	OutputDir string
}

func NewReporter(dir string) Reporter {
	if dir == "" {
		dir = "output"
	}
	return Reporter{OutputDir: dir}
}

// Write flattens the results into output/prompt_test_results_<ts>.csv and
// returns the file path.
func (r Reporter) Write(results []TestResult) (string, error) {
	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("prompt_test_results_%s.csv", time.Now().Format("20060102_150405"))
	path := filepath.Join(r.OutputDir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, res := range results {
		if err := w.Write(row(res)); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return path, nil
}

func row(r TestResult) []string {
	return []string{
		r.ModelID,
		r.PromptID,
		r.PromptText,
		r.Conversation,
		r.GradingPrompt,
		ffloat(r.Performance.TokensPerSecond),
		ffloat(r.Performance.TotalTime),
		strconv.Itoa(r.Performance.TotalTokens),
		strconv.Itoa(r.Performance.CompletionTokens),
		ffloat(r.Resources.CPUUsageAvg),
		ffloat(r.Resources.CPUUsageMax),
		ffloat(r.Resources.CPUTempAvg),
		ffloat(r.Resources.CPUTempMax),
		ffloat(r.Resources.MemoryUsageAvg),
		ffloat(r.Resources.MemoryUsageMax),
		fint(r.Scores.RealnessScore),
		fint(r.Scores.CoherenceScore),
		fint(r.Scores.NaturalnessScore),
		fint(r.Scores.OverallScore),
		fbool(r.Scores.DomainValid),
		r.Scores.BriefFeedback,
		fstr(r.Scores.GradingError),
		r.Performance.Error,
		r.Timestamp,
	}
}

func ffloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func fint(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func fbool(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}

func fstr(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
