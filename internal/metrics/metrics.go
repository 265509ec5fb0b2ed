package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheRequests counts observation cache reads by query kind and result (hit/miss).
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foreman_cache_requests_total",
		Help: "Total number of observation cache reads",
	}, []string{"kind", "result"})

	// CacheRefreshes counts full recomputations of a region entry by query kind.
	CacheRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foreman_cache_refreshes_total",
		Help: "Total number of observation cache region refreshes",
	}, []string{"kind"})

	// CacheClears counts administrative cache resets.
	CacheClears = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foreman_cache_clears_total",
		Help: "Total number of full observation cache clears",
	})

	// PlacementSearches counts single-candidate searches by outcome (found/none).
	PlacementSearches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foreman_placement_searches_total",
		Help: "Total number of placement searches",
	}, []string{"result"})

	// PlansBuilt counts placement plans built by category.
	PlansBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foreman_plans_built_total",
		Help: "Total number of placement plans built",
	}, []string{"category"})

	// PlanningDuration observes the wall time of one planning pass.
	PlanningDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "foreman_planning_pass_duration_seconds",
		Help:    "Time to complete one planning pass over all regions",
		Buckets: prometheus.DefBuckets,
	})

	// PlannedRegions tracks the number of regions seen in the last pass.
	PlannedRegions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "foreman_planned_regions",
		Help: "Number of regions covered by the last planning pass",
	})

	// WorldTick tracks the world time of the last planning pass.
	WorldTick = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "foreman_world_tick",
		Help: "World tick observed by the last planning pass",
	})
)
