package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/itsmrshow/foreman/internal/api"
	"github.com/itsmrshow/foreman/internal/scheduler"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run Foreman as a daemon",
		Long: `Runs Foreman as a daemon process with:
- Scheduled planning passes over the world snapshot
- HTTP API for plans and cache administration
- Prometheus metrics on /metrics`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "HTTP listen address (default :8080)")
	cmd.Flags().String("world", "", "Path to world snapshot (.yaml, .yml or .zst)")
	cmd.Flags().String("state", "", "Path to state database (SQLite)")
	cmd.Flags().String("schedule", "", "Planning schedule, cron expression or @every descriptor")
	cmd.Flags().Bool("replan", false, "Rebuild plans on every pass")
	cmd.Flags().Bool("readonly", false, "Refuse administrative writes")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		cfg.Addr, _ = cmd.Flags().GetString("addr")
	}
	if cmd.Flags().Changed("schedule") {
		cfg.Schedule, _ = cmd.Flags().GetString("schedule")
	}
	if cmd.Flags().Changed("readonly") {
		cfg.ReadOnly, _ = cmd.Flags().GetBool("readonly")
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg.StateDB, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	job := scheduler.NewPlanJob(scheduler.SnapshotFile(cfg.World), store, scheduler.PlanOptions{
		TTL:        cfg.TTL,
		Profiles:   cfg.Profiles,
		Categories: cfg.Categories,
		Replan:     cfg.Replan,
	}, logger)

	sched := scheduler.NewScheduler(logger)
	if err := sched.AddJob(cfg.Schedule, job); err != nil {
		return err
	}
	// First pass runs before the listener so /api/plans is populated.
	_ = sched.RunNow(job.Name())
	sched.Start()
	defer sched.Stop()

	server := api.NewServer(api.Config{
		Addr:           cfg.Addr,
		ReadOnly:       cfg.ReadOnly,
		Token:          cfg.Token,
		WriteRateRPS:   cfg.WriteRateRPS,
		WriteRateBurst: cfg.WriteRateBurst,
	}, store, job, logger)
	httpServer := server.HTTPServer()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("world", cfg.World).Msg("Foreman listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
		logger.Info().Msg("Shutting down")
	case err := <-errCh:
		logger.Error().Err(err).Msg("Server error")
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
