package observe

import (
	"reflect"
	"testing"

	"github.com/itsmrshow/foreman/internal/grid"
	"github.com/itsmrshow/foreman/internal/logging"
	"github.com/itsmrshow/foreman/internal/world"
)

// countingWorld is a mutable World that records how often each query runs.
type countingWorld struct {
	structures map[world.RegionID][]world.Structure
	sites      map[world.RegionID][]world.Site
	occupants  map[grid.Tile][]world.Occupant

	structureCalls int
	siteCalls      int
	lookupCalls    map[grid.Tile]int
}

func newCountingWorld() *countingWorld {
	return &countingWorld{
		structures:  make(map[world.RegionID][]world.Structure),
		sites:       make(map[world.RegionID][]world.Site),
		occupants:   make(map[grid.Tile][]world.Occupant),
		lookupCalls: make(map[grid.Tile]int),
	}
}

func (w *countingWorld) Regions() []world.RegionID         { return []world.RegionID{"W1N1"} }
func (w *countingWorld) Bounds(world.RegionID) grid.Bounds { return grid.DefaultBounds() }
func (w *countingWorld) FindSources(world.RegionID) []grid.Tile {
	return nil
}
func (w *countingWorld) Terrain(world.RegionID, grid.Tile) grid.Terrain { return grid.Plain }

func (w *countingWorld) FindStructures(region world.RegionID) []world.Structure {
	w.structureCalls++
	return append([]world.Structure(nil), w.structures[region]...)
}

func (w *countingWorld) FindConstructionSites(region world.RegionID) []world.Site {
	w.siteCalls++
	return append([]world.Site(nil), w.sites[region]...)
}

func (w *countingWorld) LookupTile(region world.RegionID, tile grid.Tile) []world.Occupant {
	w.lookupCalls[tile]++
	return append([]world.Occupant(nil), w.occupants[tile]...)
}

func (w *countingWorld) totalLookups() int {
	n := 0
	for _, c := range w.lookupCalls {
		n += c
	}
	return n
}

func newTestCache(w world.World, clock Clock) *Cache {
	return New(w, clock, DefaultTTLs(), logging.Nop())
}

func TestDefaultTTLs(t *testing.T) {
	ttl := TTLs{Sites: 5}.WithDefaults()
	if ttl.Structures != 50 || ttl.Sites != 5 || ttl.Occupancy != 100 {
		t.Fatalf("unexpected TTLs %+v", ttl)
	}
}

func TestStructuresByTypeGroupsInOrder(t *testing.T) {
	w := newCountingWorld()
	w.structures["W1N1"] = []world.Structure{
		{Category: world.CategorySpawn, Position: grid.T(25, 25)},
		{Category: world.CategoryLink, Position: grid.T(10, 10)},
		{Category: world.CategoryLink, Position: grid.T(12, 10)},
	}
	c := newTestCache(w, NewManualClock(0))

	grouped := c.StructuresByType("W1N1")
	if len(grouped) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(grouped))
	}
	links := grouped[world.CategoryLink]
	if len(links) != 2 || links[0].Position != grid.T(10, 10) || links[1].Position != grid.T(12, 10) {
		t.Fatalf("unexpected link grouping %+v", links)
	}

	if empty := c.StructuresByType("W9N9"); len(empty) != 0 {
		t.Fatalf("expected empty mapping for empty region, got %+v", empty)
	}
}

func TestStructuresByTypeStaleness(t *testing.T) {
	w := newCountingWorld()
	w.structures["W1N1"] = []world.Structure{{Category: world.CategorySpawn, Position: grid.T(25, 25)}}
	clock := NewManualClock(1000)
	c := newTestCache(w, clock)

	first := c.StructuresByType("W1N1")

	// The world changes but the entry is still inside its window.
	w.structures["W1N1"] = append(w.structures["W1N1"], world.Structure{Category: world.CategoryLink, Position: grid.T(5, 5)})
	clock.Set(1049)
	second := c.StructuresByType("W1N1")
	if w.structureCalls != 1 {
		t.Fatalf("expected 1 world query inside TTL, got %d", w.structureCalls)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected memoized value, got %+v", second)
	}

	clock.Set(1050)
	third := c.StructuresByType("W1N1")
	if w.structureCalls != 2 {
		t.Fatalf("expected recompute at TTL boundary, got %d calls", w.structureCalls)
	}
	if len(third[world.CategoryLink]) != 1 {
		t.Fatalf("expected refreshed grouping to include link, got %+v", third)
	}

	// The new timestamp restarts the window.
	clock.Set(1099)
	c.StructuresByType("W1N1")
	if w.structureCalls != 2 {
		t.Fatalf("expected refreshed entry to be served, got %d calls", w.structureCalls)
	}
}

func TestConstructionSites(t *testing.T) {
	w := newCountingWorld()
	w.sites["W1N1"] = []world.Site{
		{ID: "a", Category: world.CategoryLink, Position: grid.T(10, 10)},
		{ID: "b", Category: world.CategoryRoad, Position: grid.T(11, 10)},
	}
	clock := NewManualClock(0)
	c := newTestCache(w, clock)

	inv := c.ConstructionSites("W1N1")
	if inv.Count != 2 || len(inv.Sites) != 2 {
		t.Fatalf("expected 2 sites, got %+v", inv)
	}
	if !reflect.DeepEqual(inv.IDs, []string{"a", "b"}) {
		t.Fatalf("unexpected ids %v", inv.IDs)
	}

	w.sites["W1N1"] = nil
	clock.Set(19)
	if got := c.ConstructionSites("W1N1"); got.Count != 2 {
		t.Fatalf("expected memoized count 2, got %d", got.Count)
	}
	clock.Set(20)
	if got := c.ConstructionSites("W1N1"); got.Count != 0 || len(got.IDs) != 0 {
		t.Fatalf("expected refreshed empty inventory, got %+v", got)
	}
	if w.siteCalls != 2 {
		t.Fatalf("expected 2 world queries, got %d", w.siteCalls)
	}
}

func TestKindsDoNotCrossInvalidate(t *testing.T) {
	w := newCountingWorld()
	clock := NewManualClock(0)
	c := newTestCache(w, clock)

	c.StructuresByType("W1N1")
	c.ConstructionSites("W1N1")
	c.Occupancy("W1N1", grid.T(10, 10))

	// Sites expire at 20, the others do not.
	clock.Set(25)
	c.StructuresByType("W1N1")
	c.ConstructionSites("W1N1")
	c.Occupancy("W1N1", grid.T(10, 10))

	if w.structureCalls != 1 {
		t.Errorf("expected structures to stay cached, got %d calls", w.structureCalls)
	}
	if w.siteCalls != 2 {
		t.Errorf("expected sites to refresh, got %d calls", w.siteCalls)
	}
	if w.lookupCalls[grid.T(10, 10)] != 1 {
		t.Errorf("expected occupancy to stay cached, got %d calls", w.lookupCalls[grid.T(10, 10)])
	}
}

func TestOccupancyMemoizedWithinWindow(t *testing.T) {
	w := newCountingWorld()
	w.occupants[grid.T(10, 10)] = []world.Occupant{{Kind: world.OccupantStructure, Category: world.CategoryLink}}
	clock := NewManualClock(100)
	c := newTestCache(w, clock)

	first := c.Occupancy("W1N1", grid.T(10, 10))
	clock.Set(150)
	second := c.Occupancy("W1N1", grid.T(10, 10))

	if w.lookupCalls[grid.T(10, 10)] != 1 {
		t.Fatalf("expected a single world lookup, got %d", w.lookupCalls[grid.T(10, 10)])
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results, got %+v and %+v", first, second)
	}
}

func TestOccupancyRepeatedReadsInOneTickAreIdentical(t *testing.T) {
	w := newCountingWorld()
	w.occupants[grid.T(3, 4)] = []world.Occupant{{Kind: world.OccupantSite, Category: world.CategoryRoad}}
	c := newTestCache(w, NewManualClock(7))

	first := c.Occupancy("W1N1", grid.T(3, 4))
	for i := 0; i < 5; i++ {
		if got := c.Occupancy("W1N1", grid.T(3, 4)); !reflect.DeepEqual(first, got) {
			t.Fatalf("read %d differs: %+v vs %+v", i, first, got)
		}
	}
	if got := c.Stats().Occupancy; got.Hits != 5 || got.Misses != 1 {
		t.Fatalf("expected 5 hits and 1 miss, got %+v", got)
	}
}

func TestOccupancySharedGate(t *testing.T) {
	w := newCountingWorld()
	clock := NewManualClock(0)
	c := newTestCache(w, clock)

	a, b := grid.T(10, 10), grid.T(20, 20)
	c.Occupancy("W1N1", a)
	c.Occupancy("W1N1", b)

	// A new tile inside the window is added without moving the gate.
	clock.Set(60)
	c.Occupancy("W1N1", grid.T(30, 30))
	if c.Stats().Occupancy.Refreshes != 1 {
		t.Fatalf("expected no regional refresh inside window, got %+v", c.Stats().Occupancy)
	}

	clock.Set(100)
	fresh := grid.T(40, 40)
	c.Occupancy("W1N1", fresh)
	stats := c.Stats()
	if stats.Occupancy.Refreshes != 2 {
		t.Fatalf("expected a regional refresh for a never-seen tile, got %+v", stats.Occupancy)
	}
	if stats.Tiles != 1 {
		t.Fatalf("expected the refresh to drop every cached tile, got %d tiles", stats.Tiles)
	}

	// Tiles cached before the refresh are looked up again.
	c.Occupancy("W1N1", b)
	if w.lookupCalls[b] != 2 {
		t.Fatalf("expected tile b to be recomputed after the shared gate expired, got %d", w.lookupCalls[b])
	}
}

func TestOccupancyGateIsPerRegion(t *testing.T) {
	w := newCountingWorld()
	clock := NewManualClock(0)
	c := newTestCache(w, clock)

	c.Occupancy("W1N1", grid.T(10, 10))
	clock.Set(50)
	c.Occupancy("W2N1", grid.T(10, 10))

	clock.Set(120)
	c.Occupancy("W2N1", grid.T(10, 10))
	if got := w.totalLookups(); got != 2 {
		t.Fatalf("expected W2N1 to remain cached, got %d lookups", got)
	}
	c.Occupancy("W1N1", grid.T(10, 10))
	if got := w.totalLookups(); got != 3 {
		t.Fatalf("expected W1N1 to refresh, got %d lookups", got)
	}
}

func TestHasBlockingOccupant(t *testing.T) {
	w := newCountingWorld()
	rampart := grid.T(5, 5)
	road := grid.T(6, 5)
	site := grid.T(7, 5)
	w.occupants[rampart] = []world.Occupant{{Kind: world.OccupantStructure, Category: world.CategoryRampart}}
	w.occupants[road] = []world.Occupant{{Kind: world.OccupantStructure, Category: world.CategoryRoad}}
	w.occupants[site] = []world.Occupant{{Kind: world.OccupantSite, Category: world.CategoryLink}}
	c := newTestCache(w, NewManualClock(0))

	cases := []struct {
		name      string
		tile      grid.Tile
		candidate world.Category
		want      bool
	}{
		{"road over rampart", rampart, world.CategoryRoad, false},
		{"link over rampart", rampart, world.CategoryLink, true},
		{"rampart over road", road, world.CategoryRampart, true},
		{"road over road", road, world.CategoryRoad, true},
		{"road over site", site, world.CategoryRoad, true},
		{"empty tile", grid.T(8, 5), world.CategoryLink, false},
	}
	for _, tc := range cases {
		if got := c.HasBlockingOccupant("W1N1", tc.tile, tc.candidate); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestClearAll(t *testing.T) {
	w := newCountingWorld()
	c := newTestCache(w, NewManualClock(0))

	c.StructuresByType("W1N1")
	c.ConstructionSites("W1N1")
	c.Occupancy("W1N1", grid.T(10, 10))
	if got := c.Stats().Entries; got != 3 {
		t.Fatalf("expected 3 entries, got %d", got)
	}

	c.ClearAll()
	if got := c.Stats().Entries; got != 0 {
		t.Fatalf("expected empty cache, got %d entries", got)
	}

	c.StructuresByType("W1N1")
	c.ConstructionSites("W1N1")
	c.Occupancy("W1N1", grid.T(10, 10))
	if w.structureCalls != 2 || w.siteCalls != 2 || w.lookupCalls[grid.T(10, 10)] != 2 {
		t.Fatalf("expected every kind to recompute after clear, got %d/%d/%d",
			w.structureCalls, w.siteCalls, w.lookupCalls[grid.T(10, 10)])
	}
}

func TestClockFunc(t *testing.T) {
	tick := world.Tick(3)
	clock := ClockFunc(func() world.Tick { return tick })
	if clock.Now() != 3 {
		t.Fatalf("expected 3, got %d", clock.Now())
	}
	tick = 9
	if clock.Now() != 9 {
		t.Fatalf("expected 9, got %d", clock.Now())
	}

	mc := NewManualClock(10)
	mc.Advance(5)
	if mc.Now() != 15 {
		t.Fatalf("expected 15, got %d", mc.Now())
	}
}
