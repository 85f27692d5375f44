package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"calllab/internal/config"
	"calllab/internal/harness"
	"calllab/internal/llm"
	"calllab/internal/report"
	"calllab/internal/transcript"
)

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List discovered conversational models",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			d := llm.Discovery{Client: llm.NewClient(cfg.LLMEndpoint, "")}
			models, err := d.ConversationalModels(cmd.Context())
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(models)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"ID", "Owner"})
			for _, m := range models {
				tw.AppendRow(table.Row{m.ID, m.OwnedBy})
			}
			tw.Render()
			return nil
		},
	}
}

func promptCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "prompt", Short: "Prompt test harness"}
	cmd.AddCommand(promptTestCmd())
	cmd.AddCommand(promptRunCmd())
	return cmd
}

func promptTestCmd() *cobra.Command {
	var promptsPath, outputDir string
	var rounds int
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run the full test suite and write a CSV report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			set, err := config.LoadPrompts(promptsPath)
			if err != nil {
				return err
			}
			client := llm.NewClient(cfg.LLMEndpoint, "")
			runner := harness.Runner{
				Discovery: llm.Discovery{Client: client},
				Executor:  llm.Executor{Client: client},
				Scorer: llm.Scorer{
					Client: llm.NewClient(cfg.Grading.APIBase, cfg.Grading.APIKey),
					Model:  cfg.Grading.Model,
				},
				Reporter: report.NewReporter(outputDir),
				Rounds:   rounds,
				Logf: func(format string, a ...any) {
					fmt.Printf(format+"\n", a...)
				},
			}
			header.Println("=== Prompt Tester ===")
			path, results, err := runner.Run(cmd.Context(), set.Prompts)
			if err != nil {
				return err
			}
			succeeded := 0
			for _, r := range results {
				if r.Performance.Success {
					succeeded++
				}
			}
			fmt.Printf("tested %d prompts successfully\n", succeeded)
			fmt.Printf("report saved to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&promptsPath, "prompts", "config/test_prompts.yaml", "prompt template YAML file")
	cmd.Flags().StringVar(&outputDir, "output", "output", "report output directory")
	cmd.Flags().IntVar(&rounds, "rounds", 3, "rounds per prompt")
	return cmd
}

type promptRunResult struct {
	Success      bool        `json:"success"`
	Model        string      `json:"model"`
	Text         string      `json:"text,omitempty"`
	Error        string      `json:"error,omitempty"`
	DurationMS   int64       `json:"duration_ms"`
	Tokens       int         `json:"tokens"`
	TokensPerSec float64     `json:"tokens_per_sec"`
	Chars        int         `json:"chars"`
	TurnCount    int         `json:"turn_count"`
	Complete     bool        `json:"complete"`
	Turns        [][2]string `json:"turns,omitempty"`
}

func promptRunCmd() *cobra.Command {
	var prompt, model, output string
	var count int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single prompt and summarize the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			if prompt == "" {
				return fmt.Errorf("--prompt required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client := llm.NewClient(cfg.LLMEndpoint, "")
			modelID := model
			if modelID == "auto" || modelID == "" {
				d := llm.Discovery{Client: client}
				models, err := d.ConversationalModels(cmd.Context())
				if err != nil {
					return fmt.Errorf("auto-detect model: %w", err)
				}
				if len(models) == 0 {
					return fmt.Errorf("no conversational models available")
				}
				modelID = models[0].ID
			}
			executor := llm.Executor{Client: client, Temperature: 0.9}
			for i := 1; i <= count; i++ {
				fmt.Printf("run %d/%d against %s\n", i, count, modelID)
				text, metrics := executor.Execute(cmd.Context(), modelID, prompt)
				result := summarizeRun(modelID, text, metrics)
				if result.Success {
					fmt.Printf("  %d tokens in %.2fs (%.2f tok/s), %d turns, complete=%v\n",
						result.Tokens, metrics.TotalTime, result.TokensPerSec, result.TurnCount, result.Complete)
				} else {
					fmt.Printf("  failed: %s\n", result.Error)
				}
				path, err := saveRunResult(result, output)
				if err != nil {
					return err
				}
				fmt.Printf("  saved to %s\n", path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&prompt, "prompt", "", "prompt to run")
	cmd.Flags().StringVar(&model, "model", "auto", "model id (auto-detect by default)")
	cmd.Flags().IntVar(&count, "count", 1, "number of runs")
	cmd.Flags().StringVar(&output, "output", "test", "output file prefix")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}

func summarizeRun(modelID, text string, metrics llm.Metrics) promptRunResult {
	result := promptRunResult{
		Success:      metrics.Success,
		Model:        modelID,
		Text:         text,
		Error:        metrics.Error,
		DurationMS:   int64(metrics.TotalTime * 1000),
		Tokens:       metrics.CompletionTokens,
		TokensPerSec: metrics.TokensPerSecond,
		Chars:        len(text),
	}
	turns := parseSpeakerTurns(text)
	result.Turns = turns
	result.TurnCount = len(turns)
	result.Complete = len(turns) >= 4
	return result
}

// parseSpeakerTurns extracts "User:"/"Agent:" prefixed lines from raw
// model output.
func parseSpeakerTurns(text string) [][2]string {
	var turns [][2]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "User:"):
			turns = append(turns, [2]string{"User", strings.TrimSpace(line[5:])})
		case strings.HasPrefix(line, "Agent:"):
			turns = append(turns, [2]string{"Agent", strings.TrimSpace(line[6:])})
		}
	}
	return turns
}

func saveRunResult(result promptRunResult, prefix string) (string, error) {
	dir := "prompt_tests"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_%s.json", prefix, time.Now().Format("20060102_150405"))
	path := filepath.Join(dir, name)
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, data, 0o644)
}

func transcriptsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "transcripts", Short: "Synthetic transcript tools"}
	cmd.AddCommand(transcriptsGenCmd())
	return cmd
}

func transcriptsGenCmd() *cobra.Command {
	var count, minTurns, maxTurns int
	var outDir string
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate synthetic Contact Lens transcripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(time.Now().UnixNano()))
			dateStr := time.Now().Format("2006-01-02")
			for i := 1; i <= count; i++ {
				convID := fmt.Sprintf("conv_%05d", i)
				_, turns := transcript.Generate(rng, minTurns, maxTurns)
				doc := transcript.Build(convID, turns)
				data, err := json.MarshalIndent(doc, "", "  ")
				if err != nil {
					return err
				}
				name := fmt.Sprintf("transcript_%s_%s.json", convID, dateStr)
				if err := os.WriteFile(filepath.Join(outDir, name), data, 0o644); err != nil {
					return err
				}
			}
			fmt.Printf("generated %d transcripts in %s\n", count, outDir)
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 10, "number of transcripts")
	cmd.Flags().IntVar(&minTurns, "min-turns", 8, "minimum turns")
	cmd.Flags().IntVar(&maxTurns, "max-turns", 16, "maximum turns")
	cmd.Flags().StringVar(&outDir, "out", "transcripts", "output directory")
	return cmd
}
