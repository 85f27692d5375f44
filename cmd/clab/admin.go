package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"calllab/internal/config"
	"calllab/internal/migrate"
	"calllab/internal/pinode"
	"calllab/internal/repo"
	"calllab/internal/server"
)

func dbCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "db", Short: "Manage the database schema"}
	cmd.AddCommand(dbInitCmd())
	cmd.AddCommand(dbMigrateCmd())
	cmd.AddCommand(dbStatusCmd())
	cmd.AddCommand(dbResetCmd())
	return cmd
}

func dbInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Apply migrations and seed sample data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, _ *config.Config, r repo.Repo) error {
				existing, err := r.TableCount(ctx, "scenarios")
				if err != nil {
					return err
				}
				if existing > 0 {
					fmt.Printf("database already seeded (%d scenarios)\n", existing)
					return nil
				}
				n, err := r.Seed(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("seeded %d scenarios and the master node\n", n)
				return nil
			})
		},
	}
}

func dbMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, _ *config.Config, r repo.Repo) error {
				version, err := migrate.Version(r.DB.DB)
				if err != nil {
					return err
				}
				fmt.Printf("schema at version %d\n", version)
				return nil
			})
		},
	}
}

func dbStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Per-table row counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, _ *config.Config, r repo.Repo) error {
				counts := map[string]int{}
				for _, t := range repo.InventoryTables {
					n, err := r.TableCount(ctx, t)
					if err != nil {
						return err
					}
					counts[t] = n
				}
				if viper.GetBool("json") {
					return printJSON(counts)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Table", "Rows"})
				for _, t := range repo.InventoryTables {
					tw.AppendRow(table.Row{t, counts[t]})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func dbResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete the local database file and re-initialize it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !viper.GetBool("local") {
				return fmt.Errorf("db reset only works with --local; use 'clab reset' or 'clab clean' on Postgres")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := os.Remove(cfg.LocalDBPath); err != nil && !os.IsNotExist(err) {
				return err
			}
			return withRepo(cmd.Context(), func(ctx context.Context, _ *config.Config, r repo.Repo) error {
				n, err := r.Seed(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("recreated %s with %d scenarios\n", cfg.LocalDBPath, n)
				return nil
			})
		},
	}
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset for a new run (grades, conversations, jobs, masters offline)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, _ *config.Config, r repo.Repo) error {
				result, err := r.ResetRun(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(result)
				}
				fmt.Printf("deleted %d grades, %d conversations, %d jobs; %d masters set offline\n",
					result.DeletedGrades, result.DeletedConversations, result.DeletedJobs, result.MastersReset)
				return nil
			})
		},
	}
}

func cleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Wipe transaction tables and reset the run counter",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, _ *config.Config, r repo.Repo) error {
				if err := r.CleanTables(ctx); err != nil {
					return err
				}
				fmt.Println("transaction tables cleaned, run counter reset")
				return nil
			})
		},
	}
}

func ragCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "rag", Short: "Manage the RAG tables"}
	cmd.AddCommand(&cobra.Command{
		Use:   "recreate",
		Short: "Drop and recreate the RAG tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, _ *config.Config, r repo.Repo) error {
				if err := r.RecreateRAGTables(ctx); err != nil {
					return err
				}
				fmt.Println("rag_sources and document_chunks recreated")
				return nil
			})
		},
	})
	return cmd
}

func dedupeCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "dedupe", Short: "Manage the dedupe tables"}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Apply the dedupe schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, _ *config.Config, r repo.Repo) error {
				if err := r.EnsureDedupeSchema(ctx); err != nil {
					return err
				}
				fmt.Println("dedupe schema ready")
				return nil
			})
		},
	})
	return cmd
}

func piCmd() *cobra.Command {
	var modelDirs []string
	cmd := &cobra.Command{Use: "pi", Short: "Raspberry Pi node bootstrap"}

	setup := &cobra.Command{
		Use:   "setup",
		Short: "Locate models and set the CPU governor to performance",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := pinode.NewManager(modelDirs...)
			if err := m.Setup(); err != nil {
				return err
			}
			fmt.Printf("chat model: %s\n", m.ChatModel)
			if m.EmbeddingModel != "" {
				fmt.Printf("embedding model: %s\n", m.EmbeddingModel)
			}
			fmt.Println("cpu governor set to performance")
			return nil
		},
	}
	teardown := &cobra.Command{
		Use:   "teardown",
		Short: "Reset the CPU governor to ondemand",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := pinode.NewManager(modelDirs...).Teardown(); err != nil {
				return err
			}
			fmt.Println("cpu governor reset to ondemand")
			return nil
		},
	}
	cmd.PersistentFlags().StringSliceVar(&modelDirs, "model-dir", nil, "model directories to scan")
	cmd.AddCommand(setup)
	cmd.AddCommand(teardown)
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the read-only dashboard API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			conn, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn.DB); err != nil {
				return err
			}
			authCfg := server.AuthConfig{JWTSecret: os.Getenv("CALLLAB_JWT_SECRET")}
			if authCfg.JWTSecret == "" {
				return fmt.Errorf("CALLLAB_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{
				Repo:     repo.Repo{DB: conn},
				BasePath: basePath,
				Auth:     authCfg,
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving dashboard API on http://%s%s\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}
