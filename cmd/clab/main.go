package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"calllab/internal/config"
	"calllab/internal/db"
	"calllab/internal/migrate"
	"calllab/internal/repo"
)

var rootCmd = &cobra.Command{
	Use:   "clab",
	Short: "Calllab maintenance CLI",
	Long: `Calllab is the maintenance and debugging toolbox for the synthetic
conversation pipeline: database inspectors, table cleaners, the prompt
test harness and node bootstrap helpers.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("CALLLAB")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("db-url", "", "database URL (overrides config)")
	rootCmd.PersistentFlags().Bool("local", false, "use the local SQLite workbench database")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("db-url", rootCmd.PersistentFlags().Lookup("db-url"))
	_ = viper.BindPFlag("local", rootCmd.PersistentFlags().Lookup("local"))
}

func registerCommands() {
	rootCmd.AddCommand(dbCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(jobsCmd())
	rootCmd.AddCommand(conversationsCmd())
	rootCmd.AddCommand(gradesCmd())
	rootCmd.AddCommand(nodesCmd())
	rootCmd.AddCommand(resetCmd())
	rootCmd.AddCommand(cleanCmd())
	rootCmd.AddCommand(infraCmd())
	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(promptCmd())
	rootCmd.AddCommand(transcriptsCmd())
	rootCmd.AddCommand(ragCmd())
	rootCmd.AddCommand(dedupeCmd())
	rootCmd.AddCommand(piCmd())
	rootCmd.AddCommand(serveCmd())
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return nil, err
	}
	if u := viper.GetString("db-url"); u != "" {
		cfg.DB.URL = u
	}
	return cfg, nil
}

func openDB(cfg *config.Config) (*db.DB, error) {
	if viper.GetBool("local") {
		return db.OpenLocal(cfg.LocalDBPath)
	}
	return db.Open(cfg.DB)
}

func withRepo(ctx context.Context, fn func(context.Context, *config.Config, repo.Repo) error) error {
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
	return fn(ctx, cfg, repo.Repo{DB: conn})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
