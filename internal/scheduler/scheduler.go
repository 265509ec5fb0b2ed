package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/itsmrshow/foreman/internal/logging"
	"github.com/robfig/cron/v3"
)

// DefaultJobTimeout bounds a single job run.
const DefaultJobTimeout = 5 * time.Minute

// Job represents a scheduled job
type Job interface {
	// Execute runs the job
	Execute(ctx context.Context) error

	// Name returns the job name
	Name() string
}

// Scheduler runs jobs on cron expressions. A run that is still going when
// its next slot comes up causes that slot to be skipped.
type Scheduler struct {
	cron    *cron.Cron
	jobs    map[string]Job
	timeout time.Duration
	logger  *logging.Logger
	mu      sync.RWMutex
}

// NewScheduler creates a new scheduler
func NewScheduler(logger *logging.Logger) *Scheduler {
	logger = logger.WithComponent("scheduler")
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger}))),
		jobs:    make(map[string]Job),
		timeout: DefaultJobTimeout,
		logger:  logger,
	}
}

// WithTimeout sets the per-run deadline. Non-positive values keep the default.
func (s *Scheduler) WithTimeout(d time.Duration) *Scheduler {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// AddJob adds a job with a cron expression or descriptor such as "@every 30s".
func (s *Scheduler) AddJob(cronExpr string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info().
		Str("job", job.Name()).
		Str("schedule", cronExpr).
		Msg("Adding scheduled job")

	if _, err := cron.ParseStandard(cronExpr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}

	_, err := s.cron.AddFunc(cronExpr, func() {
		s.executeJob(job)
	})
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobs[job.Name()] = job
	return nil
}

// RunNow executes a registered job synchronously, outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	s.executeJob(job)
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.mu.RLock()
	jobCount := len(s.jobs)
	s.mu.RUnlock()

	s.logger.Info().
		Int("jobs", jobCount).
		Msg("Starting scheduler")

	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.logger.Info().Msg("Stopping scheduler")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) executeJob(job Job) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err := job.Execute(ctx)
	duration := time.Since(start)

	if err != nil {
		s.logger.Error().
			Err(err).
			Str("job", job.Name()).
			Dur("duration", duration).
			Msg("Scheduled job failed")
		return
	}
	s.logger.Debug().
		Str("job", job.Name()).
		Dur("duration", duration).
		Msg("Scheduled job completed")
}

// GetJobs returns the list of registered jobs
func (s *Scheduler) GetJobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		jobs = append(jobs, name)
	}
	return jobs
}

// cronLogger routes cron's own messages (skipped runs, panics) to zerolog.
type cronLogger struct {
	logger *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
