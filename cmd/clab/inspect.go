package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"calllab/internal/config"
	"calllab/internal/domain"
	"calllab/internal/llm"
	"calllab/internal/repo"
	"calllab/internal/transcript"
)

var header = color.New(color.FgCyan, color.Bold)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "System status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, _ *config.Config, r repo.Repo) error {
				summary, err := r.StatusSummary(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(summary)
				}
				header.Println("=== System Status ===")
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendRow(table.Row{"Online nodes", summary.OnlineNodes})
				tw.AppendRow(table.Row{"Pending jobs", summary.PendingJobs})
				tw.AppendRow(table.Row{"Running jobs", summary.RunningJobs})
				tw.AppendRow(table.Row{"Total conversations", summary.TotalConversations})
				tw.AppendRow(table.Row{"Conversations (last hour)", summary.LastHour})
				tw.Render()
				return nil
			})
		},
	}
}

func jobsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Job queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, _ *config.Config, r repo.Repo) error {
				counts, err := r.JobStatusCounts(ctx)
				if err != nil {
					return err
				}
				jobs, err := r.RecentJobs(ctx, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"counts": counts, "recent": jobs})
				}
				header.Println("=== Job Queue ===")
				for status, n := range counts {
					fmt.Printf("  %s: %d\n", status, n)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Type", "Status", "Created"})
				for _, j := range jobs {
					tw.AppendRow(table.Row{j.ID, j.JobType, j.Status, j.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 5, "number of recent jobs")
	return cmd
}

func conversationsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "conversations [id-prefix]",
		Short: "Recent conversations with transcript preview",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			return withRepo(cmd.Context(), func(ctx context.Context, _ *config.Config, r repo.Repo) error {
				convs, err := r.RecentConversations(ctx, limit, prefix)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(convs)
				}
				for _, c := range convs {
					printConversation(c)
				}
				if len(convs) == 0 {
					fmt.Println("no conversations found")
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 5, "number of conversations")
	return cmd
}

func printConversation(c domain.Conversation) {
	header.Printf("=== Conversation %s ===\n", c.ID)
	fmt.Printf("  model: %s  created: %s\n", c.ModelName, c.CreatedAt)
	if c.GenerationDurationMS != nil {
		fmt.Printf("  generation: %dms\n", *c.GenerationDurationMS)
	}
	doc, err := transcript.Parse([]byte(c.Content))
	if err != nil {
		preview := c.Content
		if len(preview) > 200 {
			preview = preview[:200]
		}
		fmt.Printf("  (not a transcript document) %s\n", preview)
		return
	}
	turns := doc.Turns()
	fmt.Printf("  turns: %d\n", len(turns))
	for i, t := range turns {
		if i == 6 {
			fmt.Printf("  ... %d more turns\n", len(turns)-6)
			break
		}
		fmt.Printf("  %s: %s\n", transcript.Speaker(t.Participant), t.Content)
	}
}

func gradesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "grades", Short: "Inspect and manage conversation grades"}
	cmd.AddCommand(gradesListCmd())
	cmd.AddCommand(gradesClearCmd())
	cmd.AddCommand(gradesDropCmd())
	cmd.AddCommand(gradesRunCmd())
	return cmd
}

func gradesListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Recent grades with conversation preview",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, _ *config.Config, r repo.Repo) error {
				grades, err := r.ListGrades(ctx, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(grades)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Conversation", "R", "C", "N", "Overall", "Valid", "Feedback"})
				for _, g := range grades {
					tw.AppendRow(table.Row{
						shortID(g.ConversationID),
						scoreCell(g.RealnessScore), scoreCell(g.CoherenceScore),
						scoreCell(g.NaturalnessScore), scoreCell(g.OverallScore),
						validCell(g.DomainValid), g.BriefFeedback,
					})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of grades")
	return cmd
}

func gradesClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all grade rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, _ *config.Config, r repo.Repo) error {
				before, err := r.CountGrades(ctx)
				if err != nil {
					return err
				}
				deleted, err := r.ClearGrades(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("deleted %d of %d grade rows\n", deleted, before)
				return nil
			})
		},
	}
}

func gradesDropCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drop",
		Short: "Drop the grades table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, _ *config.Config, r repo.Repo) error {
				if err := r.DropGradesTable(ctx); err != nil {
					return err
				}
				fmt.Println("conversation_grades table dropped")
				return nil
			})
		},
	}
}

func gradesRunCmd() *cobra.Command {
	var limit int
	var useLLM bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Grade ungraded conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, cfg *config.Config, r repo.Repo) error {
				convs, err := r.UngradedConversations(ctx, limit)
				if err != nil {
					return err
				}
				if len(convs) == 0 {
					fmt.Println("no ungraded conversations")
					return nil
				}
				var scorer llm.Scorer
				if useLLM {
					if cfg.Grading.APIKey == "" {
						return fmt.Errorf("OPENAI_API_KEY required for --llm grading")
					}
					scorer = llm.Scorer{
						Client: llm.NewClient(cfg.Grading.APIBase, cfg.Grading.APIKey),
						Model:  cfg.Grading.Model,
					}
				}
				graded := 0
				for _, c := range convs {
					text := conversationText(c.Content)
					var result llm.ScoreResult
					if useLLM {
						result = scorer.Score(ctx, text, "")
					} else {
						result = llm.HeuristicScore(text, nil)
					}
					g := domain.Grade{
						ID:               uuid.NewString(),
						ConversationID:   c.ID,
						RealnessScore:    result.RealnessScore,
						CoherenceScore:   result.CoherenceScore,
						NaturalnessScore: result.NaturalnessScore,
						OverallScore:     result.OverallScore,
						DomainValid:      result.DomainValid,
						BriefFeedback:    result.BriefFeedback,
						GradingError:     result.GradingError,
					}
					if err := r.InsertGrade(ctx, g); err != nil {
						return fmt.Errorf("store grade for %s: %w", c.ID, err)
					}
					graded++
					if result.GradingError != nil {
						fmt.Printf("  %s: grading error: %s\n", shortID(c.ID), *result.GradingError)
					} else {
						fmt.Printf("  %s: overall %s valid %s\n", shortID(c.ID),
							scoreCell(result.OverallScore), validCell(result.DomainValid))
					}
				}
				fmt.Printf("graded %d conversations\n", graded)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum conversations to grade")
	cmd.Flags().BoolVar(&useLLM, "llm", false, "grade with the hosted model instead of the local heuristic")
	return cmd
}

// conversationText flattens stored content into plain speaker-tagged
// text for the graders. Raw content passes through unchanged when it is
// not a transcript document.
func conversationText(content string) string {
	doc, err := transcript.Parse([]byte(content))
	if err != nil {
		return content
	}
	return doc.PlainText()
}

func nodesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "nodes", Short: "Inspect and manage pipeline nodes"}
	cmd.AddCommand(nodesListCmd())
	cmd.AddCommand(nodesMetricsCmd())
	cmd.AddCommand(nodesCleanMastersCmd())
	return cmd
}

func nodesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Node roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, _ *config.Config, r repo.Repo) error {
				nodes, err := r.ListNodes(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(nodes)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Hostname", "Type", "Status", "Last Seen"})
				for _, n := range nodes {
					lastSeen := ""
					if n.LastSeen != nil {
						lastSeen = *n.LastSeen
					}
					tw.AppendRow(table.Row{n.Hostname, n.NodeType, n.Status, lastSeen})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func nodesMetricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "System metrics of online nodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, _ *config.Config, r repo.Repo) error {
				nodes, err := r.OnlineNodeMetrics(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(nodes)
				}
				for _, n := range nodes {
					header.Printf("=== %s ===\n", n.Hostname)
					if n.SystemMetrics != nil {
						fmt.Println(*n.SystemMetrics)
					} else {
						fmt.Println("  no metrics reported")
					}
				}
				if len(nodes) == 0 {
					fmt.Println("no online nodes")
				}
				return nil
			})
		},
	}
}

func nodesCleanMastersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean-masters",
		Short: "Delete stale master node records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, _ *config.Config, r repo.Repo) error {
				masters, err := r.MasterNodes(ctx)
				if err != nil {
					return err
				}
				for _, m := range masters {
					fmt.Printf("  master %s (%s)\n", m.Hostname, m.Status)
				}
				deleted, err := r.DeleteMasterNodes(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("deleted %d master records\n", deleted)
				return nil
			})
		},
	}
}

func infraCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "infra",
		Short: "Check infrastructure connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			header.Println("=== Infrastructure ===")

			conn, err := openDB(cfg)
			if err != nil {
				fmt.Printf("  database: %s %v\n", color.RedString("FAIL"), err)
			} else {
				r := repo.Repo{DB: conn}
				version, verr := r.ServerVersion(cmd.Context())
				conn.Close()
				if verr != nil {
					fmt.Printf("  database: %s %v\n", color.RedString("FAIL"), verr)
				} else {
					fmt.Printf("  database: %s %s (%s)\n", color.GreenString("OK"), conn.Host, version)
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			models, err := llm.NewClient(cfg.LLMEndpoint, "").Models(ctx)
			if err != nil {
				fmt.Printf("  llm endpoint: %s %v\n", color.RedString("FAIL"), err)
			} else {
				fmt.Printf("  llm endpoint: %s %s (%d models)\n", color.GreenString("OK"), cfg.LLMEndpoint, len(models))
			}
			return nil
		},
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func scoreCell(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func validCell(v *bool) string {
	if v == nil {
		return "-"
	}
	if *v {
		return color.GreenString("yes")
	}
	return color.RedString("no")
}
