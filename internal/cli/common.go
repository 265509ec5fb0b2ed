package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/itsmrshow/foreman/internal/config"
	"github.com/itsmrshow/foreman/internal/logging"
	"github.com/itsmrshow/foreman/internal/state"
	"github.com/itsmrshow/foreman/internal/world"
)

// loadConfig reads the file named by --config (or FOREMAN_CONFIG), then
// lets explicitly set flags override it, and installs the configured
// logger.
func loadConfig(cmd *cobra.Command) (config.Config, *logging.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv("FOREMAN_CONFIG")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Log.Format, _ = flags.GetString("log-format")
	}
	if f := flags.Lookup("world"); f != nil && f.Changed {
		cfg.World = f.Value.String()
	}
	if f := flags.Lookup("state"); f != nil && f.Changed {
		cfg.StateDB = f.Value.String()
	}
	if f := flags.Lookup("replan"); f != nil && f.Changed {
		cfg.Replan, _ = flags.GetBool("replan")
	}

	logging.Init(cfg.Log)
	return cfg, logging.New(cfg.Log), nil
}

// openStore opens the SQLite store at path, or an in-memory store when
// path is empty. The caller closes it.
func openStore(ctx context.Context, path string, logger *logging.Logger) (state.Store, error) {
	if path == "" {
		return state.NewMemoryStore(), nil
	}

	store, err := state.NewSQLiteStore(path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create state store: %w", err)
	}
	if err := store.Initialize(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize state store: %w", err)
	}
	logger.Info().Str("path", path).Msg("State persistence enabled")
	return store, nil
}

// parseCategories splits a comma-separated category list.
func parseCategories(value string) []world.Category {
	var out []world.Category
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, world.Category(part))
		}
	}
	return out
}

func writeJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
