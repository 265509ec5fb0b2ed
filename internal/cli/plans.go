package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/itsmrshow/foreman/internal/world"
)

// NewPlansCommand creates the plans command
func NewPlansCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "List persisted placement plans",
		RunE:  runPlans,
	}

	cmd.Flags().String("state", "", "Path to state database (SQLite)")
	cmd.Flags().String("region", "", "List plans of a single region only")
	cmd.Flags().Bool("json", false, "Output as JSON")

	del := &cobra.Command{
		Use:   "delete",
		Short: "Delete the persisted plans of a region",
		Long: `Deletes every stored plan of one region. The next planning pass
rebuilds them from the current world.`,
		RunE: runPlansDelete,
	}
	del.Flags().String("state", "", "Path to state database (SQLite)")
	del.Flags().String("region", "", "Region whose plans are deleted (required)")
	_ = del.MarkFlagRequired("region")

	cmd.AddCommand(del)
	return cmd
}

func runPlans(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.StateDB == "" {
		return fmt.Errorf("no state database configured (use --state or FOREMAN_STATE_DB)")
	}
	region, _ := cmd.Flags().GetString("region")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	ctx := context.Background()
	store, err := openStore(ctx, cfg.StateDB, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	plans, err := store.ListPlans(ctx, world.RegionID(region))
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(map[string]interface{}{
			"plans": plans,
		})
	}
	return renderPlans(os.Stdout, plans)
}

func runPlansDelete(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.StateDB == "" {
		return fmt.Errorf("no state database configured (use --state or FOREMAN_STATE_DB)")
	}
	region, _ := cmd.Flags().GetString("region")
	if region == "" {
		return fmt.Errorf("--region is required")
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg.StateDB, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.DeletePlans(ctx, world.RegionID(region)); err != nil {
		return err
	}
	logger.Info().Str("region", region).Msg("Plans deleted")
	return nil
}
