package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itsmrshow/foreman/internal/world"
)

// NewSnapshotCommand creates the snapshot command group
func NewSnapshotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Work with world snapshot files",
	}

	convert := &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Validate a snapshot and rewrite it, zstd compressed when out ends in .zst",
		Args:  cobra.ExactArgs(2),
		RunE:  runSnapshotConvert,
	}

	cmd.AddCommand(convert)
	return cmd
}

func runSnapshotConvert(cmd *cobra.Command, args []string) error {
	_, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	snap, err := world.LoadSnapshot(args[0])
	if err != nil {
		return err
	}
	if err := world.WriteSnapshot(args[1], snap); err != nil {
		return fmt.Errorf("failed to write %s: %w", args[1], err)
	}
	logger.Info().
		Str("from", args[0]).
		Str("to", args[1]).
		Int("regions", len(snap.Regions())).
		Int64("tick", int64(snap.Tick)).
		Msg("Snapshot written")
	return nil
}
