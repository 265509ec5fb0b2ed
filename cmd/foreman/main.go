package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/itsmrshow/foreman/internal/cli"
	"github.com/itsmrshow/foreman/internal/logging"
)

var (
	version = "1.0.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	// A missing .env is fine; real environment variables win over it.
	_ = godotenv.Load()

	logging.Init(logging.Config{
		Level:  getEnv("FOREMAN_LOG_LEVEL", "info"),
		Format: getEnv("FOREMAN_LOG_FORMAT", "console"),
	})

	rootCmd := &cobra.Command{
		Use:   "foreman",
		Short: "Foreman - structure placement planner for tile-grid worlds",
		Long: `Foreman plans where an agent should place new structures in a tile-grid
world. It reads world snapshots, scores candidate tiles around anchor
structures, and keeps per-region placement plans up to date while memoizing
expensive world queries for a bounded number of ticks.`,
		Version:      fmt.Sprintf("%s (commit: %s, date: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "Log format (console, json)")
	rootCmd.PersistentFlags().String("config", "", "Config file path (default $FOREMAN_CONFIG)")

	rootCmd.AddCommand(cli.NewPlanCommand())
	rootCmd.AddCommand(cli.NewPlansCommand())
	rootCmd.AddCommand(cli.NewServeCommand())
	rootCmd.AddCommand(cli.NewCacheCommand())
	rootCmd.AddCommand(cli.NewSnapshotCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
