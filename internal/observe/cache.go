// Package observe memoizes expensive world queries with per-kind expiry
// measured in world ticks.
//
// A Cache is not safe for concurrent use. Planning runs one region at a
// time within a tick, and callers that share a Cache across goroutines
// must serialize access themselves.
package observe

import (
	"github.com/itsmrshow/foreman/internal/grid"
	"github.com/itsmrshow/foreman/internal/logging"
	"github.com/itsmrshow/foreman/internal/metrics"
	"github.com/itsmrshow/foreman/internal/world"
)

// Kind names one family of cached queries.
type Kind uint8

const (
	KindStructures Kind = iota
	KindSites
	KindOccupancy
)

func (k Kind) String() string {
	switch k {
	case KindStructures:
		return "structures"
	case KindSites:
		return "sites"
	case KindOccupancy:
		return "occupancy"
	default:
		return "unknown"
	}
}

var kinds = []Kind{KindStructures, KindSites, KindOccupancy}

// TTLs holds the maximum age, in ticks, of each query kind.
type TTLs struct {
	Structures world.Tick `yaml:"structures"`
	Sites      world.Tick `yaml:"sites"`
	Occupancy  world.Tick `yaml:"occupancy"`
}

// DefaultTTLs returns the standard expiry windows.
func DefaultTTLs() TTLs {
	return TTLs{
		Structures: 50,
		Sites:      20,
		Occupancy:  100,
	}
}

// WithDefaults replaces non-positive windows with the defaults.
func (t TTLs) WithDefaults() TTLs {
	def := DefaultTTLs()
	if t.Structures <= 0 {
		t.Structures = def.Structures
	}
	if t.Sites <= 0 {
		t.Sites = def.Sites
	}
	if t.Occupancy <= 0 {
		t.Occupancy = def.Occupancy
	}
	return t
}

func (t TTLs) of(k Kind) world.Tick {
	switch k {
	case KindStructures:
		return t.Structures
	case KindSites:
		return t.Sites
	default:
		return t.Occupancy
	}
}

// Key identifies one region entry of one query kind. Occupancy entries hold
// a further sub-entry per tile.
type Key struct {
	Region world.RegionID
	Kind   Kind
}

type entry struct {
	at         world.Tick
	structures map[world.Category][]world.Structure
	sites      SiteInventory
	tiles      map[grid.Tile][]world.Occupant
}

// SiteInventory is the cached construction-site listing of a region.
type SiteInventory struct {
	Sites []world.Site
	Count int
	IDs   []string
}

// KindStats counts cache activity for one query kind.
type KindStats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Refreshes uint64 `json:"refreshes"`
}

// Stats is a snapshot of cache activity.
type Stats struct {
	Structures KindStats `json:"structures"`
	Sites      KindStats `json:"sites"`
	Occupancy  KindStats `json:"occupancy"`
	Entries    int       `json:"entries"`
	Tiles      int       `json:"tiles"`
}

// Cache memoizes structure inventories, site inventories and tile
// occupancy per region.
type Cache struct {
	world   world.World
	clock   Clock
	ttl     TTLs
	logger  *logging.Logger
	entries map[Key]*entry
	stats   map[Kind]*KindStats
}

// New creates a cache over w, reading world time from clock.
func New(w world.World, clock Clock, ttl TTLs, logger *logging.Logger) *Cache {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Cache{
		world:   w,
		clock:   clock,
		ttl:     ttl.WithDefaults(),
		logger:  logger.WithComponent("observe"),
		entries: make(map[Key]*entry),
		stats:   make(map[Kind]*KindStats, len(kinds)),
	}
	for _, k := range kinds {
		c.stats[k] = &KindStats{}
	}
	return c
}

// TTLs returns the expiry windows in effect.
func (c *Cache) TTLs() TTLs {
	return c.ttl
}

// Now returns the world time reads are judged against.
func (c *Cache) Now() world.Tick {
	return c.clock.Now()
}

// fresh reports whether e may still be served at now.
func (c *Cache) fresh(e *entry, k Kind, now world.Tick) bool {
	return e != nil && now-e.at < c.ttl.of(k)
}

// StructuresByType returns the region's structures grouped by category, in
// world query order within each group. The result must not be modified.
func (c *Cache) StructuresByType(region world.RegionID) map[world.Category][]world.Structure {
	now := c.clock.Now()
	key := Key{Region: region, Kind: KindStructures}
	if e := c.entries[key]; c.fresh(e, KindStructures, now) {
		c.hit(KindStructures)
		return e.structures
	}

	c.miss(KindStructures)
	grouped := make(map[world.Category][]world.Structure)
	for _, s := range c.world.FindStructures(region) {
		grouped[s.Category] = append(grouped[s.Category], s)
	}
	c.entries[key] = &entry{at: now, structures: grouped}
	c.refreshed(KindStructures, region, now)
	return grouped
}

// ConstructionSites returns the region's construction sites with their count
// and identifiers. The result must not be modified.
func (c *Cache) ConstructionSites(region world.RegionID) SiteInventory {
	now := c.clock.Now()
	key := Key{Region: region, Kind: KindSites}
	if e := c.entries[key]; c.fresh(e, KindSites, now) {
		c.hit(KindSites)
		return e.sites
	}

	c.miss(KindSites)
	sites := c.world.FindConstructionSites(region)
	inv := SiteInventory{
		Sites: sites,
		Count: len(sites),
		IDs:   make([]string, 0, len(sites)),
	}
	for _, s := range sites {
		inv.IDs = append(inv.IDs, s.ID)
	}
	c.entries[key] = &entry{at: now, sites: inv}
	c.refreshed(KindSites, region, now)
	return inv
}

// Occupancy returns what stands on tile. All tiles of a region share one
// refresh timestamp: once it expires, the next read of any tile discards
// every cached tile of that region and restarts the window.
func (c *Cache) Occupancy(region world.RegionID, tile grid.Tile) []world.Occupant {
	now := c.clock.Now()
	key := Key{Region: region, Kind: KindOccupancy}
	e := c.entries[key]
	if !c.fresh(e, KindOccupancy, now) {
		e = &entry{at: now, tiles: make(map[grid.Tile][]world.Occupant)}
		c.entries[key] = e
		c.refreshed(KindOccupancy, region, now)
	} else if occupants, ok := e.tiles[tile]; ok {
		c.hit(KindOccupancy)
		return occupants
	}

	c.miss(KindOccupancy)
	occupants := c.world.LookupTile(region, tile)
	e.tiles[tile] = occupants
	return occupants
}

// HasBlockingOccupant reports whether something on tile prevents placing a
// structure of category candidate there. The only permitted stacking is a
// traversable structure over a defensive overlay.
func (c *Cache) HasBlockingOccupant(region world.RegionID, tile grid.Tile, candidate world.Category) bool {
	for _, o := range c.Occupancy(region, tile) {
		if candidate.Traversable() && o.Category.Overlay() {
			continue
		}
		return true
	}
	return false
}

// ClearAll drops every entry of every kind and region.
func (c *Cache) ClearAll() {
	dropped := len(c.entries)
	c.entries = make(map[Key]*entry)
	metrics.CacheClears.Inc()
	c.logger.Info().Int("entries", dropped).Msg("Observation cache cleared")
}

// Stats returns a snapshot of cache counters and size.
func (c *Cache) Stats() Stats {
	s := Stats{
		Structures: *c.stats[KindStructures],
		Sites:      *c.stats[KindSites],
		Occupancy:  *c.stats[KindOccupancy],
		Entries:    len(c.entries),
	}
	for key, e := range c.entries {
		if key.Kind == KindOccupancy {
			s.Tiles += len(e.tiles)
		}
	}
	return s
}

func (c *Cache) hit(k Kind) {
	c.stats[k].Hits++
	metrics.CacheRequests.WithLabelValues(k.String(), "hit").Inc()
}

func (c *Cache) miss(k Kind) {
	c.stats[k].Misses++
	metrics.CacheRequests.WithLabelValues(k.String(), "miss").Inc()
}

func (c *Cache) refreshed(k Kind, region world.RegionID, now world.Tick) {
	c.stats[k].Refreshes++
	metrics.CacheRefreshes.WithLabelValues(k.String()).Inc()
	c.logger.Debug().
		Str("region", string(region)).
		Str("kind", k.String()).
		Int64("tick", int64(now)).
		Msg("Refreshed cache entry")
}
