package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/itsmrshow/foreman/internal/observe"
	"github.com/itsmrshow/foreman/internal/scheduler"
)

// NewCacheCommand creates the cache command group
func NewCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the observation cache",
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Run planning passes and print observation cache counters",
		Long: `Runs one or more planning passes against a world snapshot without
persisting plans, then prints hit, miss and refresh counts per query kind.
Passes after the first run at the same tick, so they show cache reuse.`,
		RunE: runCacheStats,
	}
	stats.Flags().String("world", "", "Path to world snapshot (.yaml, .yml or .zst)")
	stats.Flags().Int("passes", 1, "Number of planning passes to run")
	stats.Flags().Bool("json", false, "Output as JSON")

	cmd.AddCommand(stats)
	return cmd
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	passes, _ := cmd.Flags().GetInt("passes")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	ctx := context.Background()
	store, err := openStore(ctx, "", logger)
	if err != nil {
		return err
	}

	job := scheduler.NewPlanJob(scheduler.SnapshotFile(cfg.World), store, scheduler.PlanOptions{
		TTL:        cfg.TTL,
		Profiles:   cfg.Profiles,
		Categories: cfg.Categories,
		Replan:     true,
	}, logger)
	for i := 0; i < passes; i++ {
		if _, err := job.Run(ctx); err != nil {
			return fmt.Errorf("planning failed: %w", err)
		}
	}

	stats := job.CacheStats()
	if jsonOutput {
		return writeJSON(stats)
	}
	return renderCacheStats(os.Stdout, stats)
}

func renderCacheStats(w io.Writer, stats observe.Stats) error {
	table := tablewriter.NewWriter(w)
	table.Header("Kind", "Hits", "Misses", "Refreshes")
	rows := [][]string{
		kindRow(observe.KindStructures, stats.Structures),
		kindRow(observe.KindSites, stats.Sites),
		kindRow(observe.KindOccupancy, stats.Occupancy),
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nEntries: %d  Cached tiles: %d\n", stats.Entries, stats.Tiles)
	return err
}

func kindRow(kind observe.Kind, s observe.KindStats) []string {
	return []string{
		kind.String(),
		strconv.FormatUint(s.Hits, 10),
		strconv.FormatUint(s.Misses, 10),
		strconv.FormatUint(s.Refreshes, 10),
	}
}
