package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/itsmrshow/foreman/internal/grid"
	"github.com/itsmrshow/foreman/internal/logging"
	"github.com/itsmrshow/foreman/internal/metrics"
	"github.com/itsmrshow/foreman/internal/observe"
	"github.com/itsmrshow/foreman/internal/planner"
	"github.com/itsmrshow/foreman/internal/state"
	"github.com/itsmrshow/foreman/internal/world"
)

// LastTickSetting is the store setting holding the tick of the last pass.
const LastTickSetting = "last_tick"

// Source yields the world view for one planning pass.
type Source interface {
	Load(ctx context.Context) (world.World, world.Tick, error)
}

// SnapshotFile loads a world snapshot from disk on every pass.
type SnapshotFile string

func (p SnapshotFile) Load(ctx context.Context) (world.World, world.Tick, error) {
	snap, err := world.LoadSnapshot(string(p))
	if err != nil {
		return nil, 0, err
	}
	return snap, snap.Tick, nil
}

// PlanOptions configures a PlanJob.
type PlanOptions struct {
	TTL        observe.TTLs
	Profiles   map[world.Category]planner.Profile
	Categories []world.Category
	// Regions limits planning to the named regions. Empty plans them all.
	Regions []world.RegionID
	// Replan rebuilds every plan on each pass.
	Replan bool

	// LoadAttempts and LoadBackoff control retries of a failed world load.
	LoadAttempts int
	LoadBackoff  time.Duration
}

// PassResult summarizes one planning pass.
type PassResult struct {
	Tick    world.Tick   `json:"tick"`
	Regions int          `json:"regions"`
	Built   int          `json:"built"`
	Plans   []state.Plan `json:"plans"`
}

// PlanJob runs planning passes over every region. It owns the observation
// cache and serializes all access to it.
type PlanJob struct {
	mu         sync.Mutex
	source     Source
	live       *world.Live
	clock      *observe.ManualClock
	cache      *observe.Cache
	planner    *planner.Planner
	store      state.Store
	categories []world.Category
	regions    map[world.RegionID]bool
	replan     bool
	attempts   int
	backoff    time.Duration
	lastTick   world.Tick
	started    bool
	logger     *logging.Logger
}

// NewPlanJob creates the planning job.
func NewPlanJob(source Source, store state.Store, opts PlanOptions, logger *logging.Logger) *PlanJob {
	if logger == nil {
		logger = logging.Default()
	}
	live := world.NewLive(nil)
	clock := observe.NewManualClock(0)
	cache := observe.New(live, clock, opts.TTL, logger)

	p := planner.New(logger, cache, live, opts.Profiles)
	categories := opts.Categories
	if len(categories) == 0 {
		categories = p.Categories()
	}

	var regions map[world.RegionID]bool
	if len(opts.Regions) > 0 {
		regions = make(map[world.RegionID]bool, len(opts.Regions))
		for _, r := range opts.Regions {
			regions[r] = true
		}
	}

	attempts, backoff := opts.LoadAttempts, opts.LoadBackoff
	if attempts <= 0 {
		attempts = defaultLoadAttempts
	}
	if backoff <= 0 {
		backoff = defaultLoadBackoff
	}

	return &PlanJob{
		source:     source,
		live:       live,
		clock:      clock,
		cache:      cache,
		planner:    p,
		store:      store,
		categories: categories,
		regions:    regions,
		replan:     opts.Replan,
		attempts:   attempts,
		backoff:    backoff,
		logger:     logger.WithComponent("plan-job"),
	}
}

// Name returns the job name
func (j *PlanJob) Name() string {
	return "plan-placements"
}

// Execute runs one planning pass.
func (j *PlanJob) Execute(ctx context.Context) error {
	_, err := j.Run(ctx)
	return err
}

// Run executes one pass and returns the resulting plans.
func (j *PlanJob) Run(ctx context.Context) (*PassResult, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	start := time.Now()
	defer func() { metrics.PlanningDuration.Observe(time.Since(start).Seconds()) }()

	w, tick, err := loadWithRetry(ctx, j.source, j.attempts, j.backoff)
	if err != nil {
		return nil, fmt.Errorf("failed to load world: %w", err)
	}
	j.advance(tick)
	j.live.Set(w)

	regions := j.selectRegions(w.Regions())
	metrics.PlannedRegions.Set(float64(len(regions)))
	metrics.WorldTick.Set(float64(tick))

	result := &PassResult{Tick: tick, Regions: len(regions)}
	var failures []error
	for _, region := range regions {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		anchors := j.planner.ResolveAnchors(region)
		for _, category := range j.categories {
			plan, built, err := j.planRegion(ctx, region, category, anchors)
			if err != nil {
				j.logger.Error().
					Err(err).
					Str("region", string(region)).
					Str("category", string(category)).
					Msg("Planning failed")
				failures = append(failures, err)
				continue
			}
			if built {
				result.Built++
			}
			result.Plans = append(result.Plans, *plan)
		}
	}

	if err := j.store.SetSetting(ctx, LastTickSetting, strconv.FormatInt(int64(tick), 10)); err != nil {
		j.logger.Warn().Err(err).Msg("Failed to record last tick")
	}

	j.logger.Info().
		Int64("tick", int64(tick)).
		Int("regions", len(regions)).
		Int("built", result.Built).
		Int("failed", len(failures)).
		Msg("Planning pass completed")

	if len(failures) > 0 {
		return result, fmt.Errorf("%d plans failed: %w", len(failures), errors.Join(failures...))
	}
	return result, nil
}

func (j *PlanJob) selectRegions(all []world.RegionID) []world.RegionID {
	if j.regions == nil {
		return all
	}
	out := make([]world.RegionID, 0, len(j.regions))
	for _, r := range all {
		if j.regions[r] {
			out = append(out, r)
		}
	}
	return out
}

// advance moves the cache clock to tick. World time never runs backwards
// within one cache, so a regression (a restored older snapshot) drops
// every cached entry.
func (j *PlanJob) advance(tick world.Tick) {
	if j.started && tick < j.lastTick {
		j.logger.Warn().
			Int64("tick", int64(tick)).
			Int64("last_tick", int64(j.lastTick)).
			Msg("World tick went backwards, clearing observation cache")
		j.cache.ClearAll()
	}
	j.clock.Set(tick)
	j.lastTick = tick
	j.started = true
}

// planRegion keeps the stored plan unless it is missing, was made for a
// different controller level, or Replan is set. The realized count is
// refreshed either way.
func (j *PlanJob) planRegion(ctx context.Context, region world.RegionID, category world.Category, anchors planner.Anchors) (*state.Plan, bool, error) {
	existing, err := j.store.GetPlan(ctx, region, category)
	if err != nil && !errors.Is(err, state.ErrPlanNotFound) {
		return nil, false, fmt.Errorf("failed to load plan: %w", err)
	}

	plan := existing
	built := false
	if existing == nil || j.replan || existing.Level != anchors.Level {
		if existing != nil && existing.Level != anchors.Level {
			j.logger.Info().
				Str("region", string(region)).
				Str("category", string(category)).
				Int("from", existing.Level).
				Int("to", anchors.Level).
				Msg("Controller level changed, rebuilding plan")
		}
		plan, err = j.planner.BuildPlan(region, category, anchors)
		if err != nil {
			return nil, false, err
		}
		built = true
	}

	count := j.realized(region, category, plan.Positions)
	if built {
		plan.Count = count
		if err := j.store.SavePlan(ctx, plan); err != nil {
			return nil, false, err
		}
	} else if count != plan.Count {
		plan.Count = count
		if err := j.store.SetRealizedCount(ctx, region, category, count); err != nil {
			return nil, false, err
		}
	}
	return plan, built, nil
}

// realized counts plan positions holding a structure or construction site
// of category.
func (j *PlanJob) realized(region world.RegionID, category world.Category, positions []grid.Tile) int {
	taken := make(map[grid.Tile]bool)
	for _, s := range j.cache.StructuresByType(region)[category] {
		taken[s.Position] = true
	}
	for _, site := range j.cache.ConstructionSites(region).Sites {
		if site.Category == category {
			taken[site.Position] = true
		}
	}

	n := 0
	for _, pos := range positions {
		if taken[pos] {
			n++
		}
	}
	return n
}

// ClearCache drops every cached observation.
func (j *PlanJob) ClearCache() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cache.ClearAll()
}

// CacheStats returns the observation cache counters.
func (j *PlanJob) CacheStats() observe.Stats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cache.Stats()
}
