package planner

import (
	"errors"
	"fmt"
	"sort"

	"github.com/itsmrshow/foreman/internal/grid"
	"github.com/itsmrshow/foreman/internal/logging"
	"github.com/itsmrshow/foreman/internal/metrics"
	"github.com/itsmrshow/foreman/internal/state"
	"github.com/itsmrshow/foreman/internal/world"
)

// ErrUnknownCategory is returned when no profile exists for a category.
var ErrUnknownCategory = errors.New("no planning profile for category")

// Candidate is a scored tile considered during one search.
type Candidate struct {
	Tile  grid.Tile `json:"tile"`
	Score int       `json:"score"`
}

// Anchors are the reference tiles a plan is sequenced around.
type Anchors struct {
	Storage    *grid.Tile
	Spawn      *grid.Tile
	Controller *grid.Tile
	Level      int
	Sources    []grid.Tile
}

// Planner chooses tiles for new structures.
type Planner struct {
	logger   *logging.Logger
	cache    observations
	world    terrainSource
	profiles map[world.Category]Profile
}

type observations interface {
	Now() world.Tick
	StructuresByType(region world.RegionID) map[world.Category][]world.Structure
	Occupancy(region world.RegionID, tile grid.Tile) []world.Occupant
	HasBlockingOccupant(region world.RegionID, tile grid.Tile, candidate world.Category) bool
}

type terrainSource interface {
	Bounds(region world.RegionID) grid.Bounds
	Terrain(region world.RegionID, tile grid.Tile) grid.Terrain
	FindSources(region world.RegionID) []grid.Tile
}

// New creates a planner. A nil profile map selects DefaultProfiles.
func New(logger *logging.Logger, cache observations, w terrainSource, profiles map[world.Category]Profile) *Planner {
	if logger == nil {
		logger = logging.Default()
	}
	if profiles == nil {
		profiles = DefaultProfiles()
	}
	return &Planner{
		logger:   logger.WithComponent("planner"),
		cache:    cache,
		world:    w,
		profiles: profiles,
	}
}

// Categories lists the categories with a profile, sorted by name.
func (p *Planner) Categories() []world.Category {
	out := make([]world.Category, 0, len(p.profiles))
	for c := range p.profiles {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// FindPosition searches the square of radius maxRange around anchor for
// the best free tile whose distance to the anchor lies in
// [minRange, maxRange]. Any occupant, construction sites included,
// disqualifies a tile. Ties keep the first tile in dx-major order.
func (p *Planner) FindPosition(region world.RegionID, anchor grid.Tile, minRange, maxRange int) (Candidate, bool) {
	bounds := p.world.Bounds(region)

	var best Candidate
	found := false
	for dx := -maxRange; dx <= maxRange; dx++ {
		for dy := -maxRange; dy <= maxRange; dy++ {
			tile := anchor.Add(dx, dy)
			if !bounds.Interior(tile) {
				continue
			}
			dist := grid.Manhattan(anchor, tile)
			if dist < minRange || dist > maxRange {
				continue
			}
			if !p.world.Terrain(region, tile).Walkable() {
				continue
			}
			if len(p.cache.Occupancy(region, tile)) > 0 {
				continue
			}

			score := p.openness(region, bounds, tile) + (maxRange - dist)
			if !found || score > best.Score {
				best = Candidate{Tile: tile, Score: score}
				found = true
			}
		}
	}

	if found {
		metrics.PlacementSearches.WithLabelValues("found").Inc()
	} else {
		metrics.PlacementSearches.WithLabelValues("none").Inc()
	}
	return best, found
}

// openness counts the non-wall, on-grid tiles of the 3x3 block centered on tile.
func (p *Planner) openness(region world.RegionID, bounds grid.Bounds, tile grid.Tile) int {
	n := 0
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			t := tile.Add(dx, dy)
			if bounds.Contains(t) && p.world.Terrain(region, t).Walkable() {
				n++
			}
		}
	}
	return n
}

// ResolveAnchors reads the storage, spawn and controller anchors from the
// cached structure inventory and the resource nodes from the world.
func (p *Planner) ResolveAnchors(region world.RegionID) Anchors {
	byType := p.cache.StructuresByType(region)
	anchors := Anchors{Sources: p.world.FindSources(region)}

	if s := byType[world.CategoryStorage]; len(s) > 0 {
		t := s[0].Position
		anchors.Storage = &t
	}
	if s := byType[world.CategorySpawn]; len(s) > 0 {
		t := s[0].Position
		anchors.Spawn = &t
	}
	if s := byType[world.CategoryController]; len(s) > 0 {
		t := s[0].Position
		anchors.Controller = &t
		anchors.Level = s[0].Level
	}
	return anchors
}

// BuildPlan produces a fresh plan for category in region.
func (p *Planner) BuildPlan(region world.RegionID, category world.Category, anchors Anchors) (*state.Plan, error) {
	profile, ok := p.profiles[category]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}

	logger := p.logger.WithCategory(string(region), string(category))

	var positions []grid.Tile
	switch profile.Strategy {
	case StrategyRoute:
		positions = p.routePositions(region, category, anchors)
	default:
		positions = p.clusterPositions(region, profile, anchors, logger)
	}

	plan := state.NewPlan(region, category, anchors.Level, p.cache.Now(), positions)
	metrics.PlansBuilt.WithLabelValues(string(category)).Inc()

	logger.Info().
		Int("level", anchors.Level).
		Int("positions", len(plan.Positions)).
		Str("digest", plan.Digest).
		Msg("Plan built")
	return plan, nil
}

// clusterPositions runs one search per anchor stage: storage (or spawn),
// then controller, then each resource node. Picks within a batch are not
// checked against each other, only against existing occupants.
func (p *Planner) clusterPositions(region world.RegionID, profile Profile, anchors Anchors, logger *logging.Logger) []grid.Tile {
	limit := profile.Cap(anchors.Level)
	if limit < 1 {
		logger.Debug().Int("level", anchors.Level).Msg("Level cap is zero, nothing to place")
		return nil
	}

	var positions []grid.Tile
	place := func(stage string, anchor grid.Tile, band Band) {
		c, ok := p.FindPosition(region, anchor, band.Min, band.Max)
		if !ok {
			logger.Debug().Str("stage", stage).Str("anchor", anchor.String()).Msg("No candidate tile")
			return
		}
		logger.Debug().
			Str("stage", stage).
			Str("anchor", anchor.String()).
			Str("tile", c.Tile.String()).
			Int("score", c.Score).
			Msg("Candidate selected")
		positions = append(positions, c.Tile)
	}

	switch {
	case anchors.Storage != nil:
		place("storage", *anchors.Storage, profile.StorageBand)
	case anchors.Spawn != nil:
		place("spawn", *anchors.Spawn, profile.SpawnBand)
	default:
		logger.Debug().Msg("No storage or spawn anchor, skipping first placement")
	}

	if limit < 2 {
		return positions
	}

	if anchors.Controller != nil {
		place("controller", *anchors.Controller, profile.ControllerBand)
	}

	for _, source := range anchors.Sources {
		if len(positions) >= limit {
			break
		}
		place("source", source, profile.SourceBand)
	}
	return positions
}

// routePositions lays routes from the storage (or spawn) to every resource
// node and then the controller, skipping tiles already claimed by an
// earlier route.
func (p *Planner) routePositions(region world.RegionID, category world.Category, anchors Anchors) []grid.Tile {
	var from grid.Tile
	switch {
	case anchors.Storage != nil:
		from = *anchors.Storage
	case anchors.Spawn != nil:
		from = *anchors.Spawn
	default:
		return nil
	}

	targets := append([]grid.Tile(nil), anchors.Sources...)
	if anchors.Controller != nil {
		targets = append(targets, *anchors.Controller)
	}

	seen := make(map[grid.Tile]bool)
	var positions []grid.Tile
	for _, to := range targets {
		for _, t := range p.PlanRoute(region, category, from, to) {
			if !seen[t] {
				seen[t] = true
				positions = append(positions, t)
			}
		}
	}
	return positions
}

// PlanRoute walks an L-shaped path from one tile to another, x first, and
// returns the tiles along it (endpoints excluded) where a structure of
// category could be placed. Traversable categories may share a tile with
// a defensive overlay.
func (p *Planner) PlanRoute(region world.RegionID, category world.Category, from, to grid.Tile) []grid.Tile {
	bounds := p.world.Bounds(region)

	var out []grid.Tile
	visit := func(t grid.Tile) {
		if t == to || !bounds.Interior(t) {
			return
		}
		if !p.world.Terrain(region, t).Walkable() {
			return
		}
		if p.cache.HasBlockingOccupant(region, t, category) {
			return
		}
		out = append(out, t)
	}

	cur := from
	for cur.X != to.X {
		cur.X += sign(to.X - cur.X)
		visit(cur)
	}
	for cur.Y != to.Y {
		cur.Y += sign(to.Y - cur.Y)
		visit(cur)
	}
	return out
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
