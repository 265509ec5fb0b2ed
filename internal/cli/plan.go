package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/itsmrshow/foreman/internal/grid"
	"github.com/itsmrshow/foreman/internal/planner"
	"github.com/itsmrshow/foreman/internal/scheduler"
	"github.com/itsmrshow/foreman/internal/state"
	"github.com/itsmrshow/foreman/internal/world"
)

// NewPlanCommand creates the plan command
func NewPlanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Run one planning pass over a world snapshot",
		Long: `Loads a world snapshot, builds placement plans for every region and
configured category, and prints them. With --state, plans are persisted and
existing plans are kept unless --replan is given.`,
		RunE: runPlan,
	}

	cmd.Flags().String("world", "", "Path to world snapshot (.yaml, .yml or .zst)")
	cmd.Flags().String("state", "", "Path to state database (SQLite) for persistence")
	cmd.Flags().String("region", "", "Plan a single region only")
	cmd.Flags().String("category", "", "Comma-separated categories to plan (default: all profiles)")
	cmd.Flags().Bool("replan", false, "Rebuild plans even when one is stored")
	cmd.Flags().Bool("json", false, "Output as JSON")

	return cmd
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	region, _ := cmd.Flags().GetString("region")
	category, _ := cmd.Flags().GetString("category")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	categories := cfg.Categories
	if category != "" {
		categories = parseCategories(category)
		for _, c := range categories {
			if _, ok := cfg.Profiles[c]; !ok {
				return fmt.Errorf("category %q: %w", c, planner.ErrUnknownCategory)
			}
		}
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg.StateDB, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	opts := scheduler.PlanOptions{
		TTL:        cfg.TTL,
		Profiles:   cfg.Profiles,
		Categories: categories,
		Replan:     cfg.Replan,
	}
	if region != "" {
		opts.Regions = []world.RegionID{world.RegionID(region)}
	}

	job := scheduler.NewPlanJob(scheduler.SnapshotFile(cfg.World), store, opts, logger)
	result, err := job.Run(ctx)
	if err != nil {
		return fmt.Errorf("planning failed: %w", err)
	}

	if jsonOutput {
		return writeJSON(result)
	}
	fmt.Printf("\nPlacement plans at tick %d:\n\n", result.Tick)
	if err := renderPlans(os.Stdout, result.Plans); err != nil {
		return err
	}
	fmt.Printf("\nSummary:\n")
	fmt.Printf("  Regions: %d\n", result.Regions)
	fmt.Printf("  Plans built: %d\n", result.Built)
	fmt.Printf("  Plans kept: %d\n", len(result.Plans)-result.Built)
	return nil
}

// renderPlans prints one row per plan.
func renderPlans(w io.Writer, plans []state.Plan) error {
	if len(plans) == 0 {
		_, err := fmt.Fprintln(w, "No plans.")
		return err
	}

	rows := make([][]string, 0, len(plans))
	for _, p := range plans {
		rows = append(rows, []string{
			string(p.Region),
			string(p.Category),
			strconv.Itoa(p.Level),
			strconv.Itoa(len(p.Positions)),
			strconv.Itoa(p.Count),
			strconv.Itoa(p.Remaining()),
			strconv.FormatInt(int64(p.Tick), 10),
			p.Digest,
			formatTiles(p.Positions),
		})
	}

	table := tablewriter.NewWriter(w)
	table.Header("Region", "Category", "Level", "Planned", "Built", "Remaining", "Tick", "Digest", "Positions")
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func formatTiles(tiles []grid.Tile) string {
	if len(tiles) == 0 {
		return "-"
	}
	parts := make([]string, len(tiles))
	for i, t := range tiles {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}
