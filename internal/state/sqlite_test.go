package state

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/itsmrshow/foreman/internal/grid"
	"github.com/itsmrshow/foreman/internal/logging"
)

func newTestStores(t *testing.T) map[string]Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "state.db")
	sqliteStore, err := NewSQLiteStore(dbPath, logging.Nop())
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { _ = sqliteStore.Close() })

	stores := map[string]Store{
		"sqlite": sqliteStore,
		"memory": NewMemoryStore(),
	}
	for name, store := range stores {
		if err := store.Initialize(context.Background()); err != nil {
			t.Fatalf("%s: Initialize failed: %v", name, err)
		}
	}
	return stores
}

func TestStoreSaveAndGetPlan(t *testing.T) {
	ctx := context.Background()
	for name, store := range newTestStores(t) {
		plan := NewPlan("W1N1", "link", 5, 1200, []grid.Tile{grid.T(24, 25), grid.T(31, 30)})
		if err := store.SavePlan(ctx, plan); err != nil {
			t.Fatalf("%s: SavePlan failed: %v", name, err)
		}

		got, err := store.GetPlan(ctx, "W1N1", "link")
		if err != nil {
			t.Fatalf("%s: GetPlan failed: %v", name, err)
		}
		if !got.Planned || got.Count != 0 || got.Level != 5 || got.Tick != 1200 {
			t.Fatalf("%s: unexpected plan %+v", name, got)
		}
		if len(got.Positions) != 2 || got.Positions[1] != grid.T(31, 30) {
			t.Fatalf("%s: unexpected positions %v", name, got.Positions)
		}
		if got.Digest != plan.Digest {
			t.Fatalf("%s: expected digest %s, got %s", name, plan.Digest, got.Digest)
		}
	}
}

func TestStoreReplacesPlanWholesale(t *testing.T) {
	ctx := context.Background()
	for name, store := range newTestStores(t) {
		first := NewPlan("W1N1", "link", 5, 100, []grid.Tile{grid.T(10, 10), grid.T(11, 11)})
		if err := store.SavePlan(ctx, first); err != nil {
			t.Fatalf("%s: SavePlan failed: %v", name, err)
		}
		if err := store.SetRealizedCount(ctx, "W1N1", "link", 2); err != nil {
			t.Fatalf("%s: SetRealizedCount failed: %v", name, err)
		}

		second := NewPlan("W1N1", "link", 6, 200, []grid.Tile{grid.T(20, 20)})
		if err := store.SavePlan(ctx, second); err != nil {
			t.Fatalf("%s: SavePlan failed: %v", name, err)
		}

		got, err := store.GetPlan(ctx, "W1N1", "link")
		if err != nil {
			t.Fatalf("%s: GetPlan failed: %v", name, err)
		}
		if got.Count != 0 || got.Level != 6 || len(got.Positions) != 1 {
			t.Fatalf("%s: expected replaced plan, got %+v", name, got)
		}
	}
}

func TestStoreMissingPlan(t *testing.T) {
	ctx := context.Background()
	for name, store := range newTestStores(t) {
		if _, err := store.GetPlan(ctx, "W1N1", "link"); !errors.Is(err, ErrPlanNotFound) {
			t.Fatalf("%s: expected ErrPlanNotFound, got %v", name, err)
		}
		if err := store.SetRealizedCount(ctx, "W1N1", "link", 1); !errors.Is(err, ErrPlanNotFound) {
			t.Fatalf("%s: expected ErrPlanNotFound on update, got %v", name, err)
		}
	}
}

func TestStoreListAndDeletePlans(t *testing.T) {
	ctx := context.Background()
	for name, store := range newTestStores(t) {
		for _, p := range []*Plan{
			NewPlan("W2N1", "road", 3, 1, nil),
			NewPlan("W1N1", "road", 3, 1, nil),
			NewPlan("W1N1", "link", 5, 1, []grid.Tile{grid.T(5, 5)}),
		} {
			if err := store.SavePlan(ctx, p); err != nil {
				t.Fatalf("%s: SavePlan failed: %v", name, err)
			}
		}

		all, err := store.ListPlans(ctx, "")
		if err != nil {
			t.Fatalf("%s: ListPlans failed: %v", name, err)
		}
		if len(all) != 3 || all[0].Region != "W1N1" || all[0].Category != "link" || all[2].Region != "W2N1" {
			t.Fatalf("%s: unexpected ordering %+v", name, all)
		}
		if len(all[1].Positions) != 0 {
			t.Fatalf("%s: expected empty positions for road plan, got %v", name, all[1].Positions)
		}

		if err := store.DeletePlans(ctx, "W1N1"); err != nil {
			t.Fatalf("%s: DeletePlans failed: %v", name, err)
		}
		remaining, err := store.ListPlans(ctx, "W1N1")
		if err != nil {
			t.Fatalf("%s: ListPlans failed: %v", name, err)
		}
		if len(remaining) != 0 {
			t.Fatalf("%s: expected no W1N1 plans, got %d", name, len(remaining))
		}
	}
}

func TestStoreSettings(t *testing.T) {
	ctx := context.Background()
	for name, store := range newTestStores(t) {
		if _, err := store.GetSetting(ctx, "last_tick"); err == nil {
			t.Fatalf("%s: expected missing setting error", name)
		}
		if err := store.SetSetting(ctx, "last_tick", "100"); err != nil {
			t.Fatalf("%s: SetSetting failed: %v", name, err)
		}
		if err := store.SetSetting(ctx, "last_tick", "150"); err != nil {
			t.Fatalf("%s: SetSetting failed: %v", name, err)
		}
		value, err := store.GetSetting(ctx, "last_tick")
		if err != nil || value != "150" {
			t.Fatalf("%s: expected 150, got %q (%v)", name, value, err)
		}
	}
}

func TestPositionsDigest(t *testing.T) {
	a := PositionsDigest([]grid.Tile{grid.T(1, 2), grid.T(3, 4)})
	b := PositionsDigest([]grid.Tile{grid.T(1, 2), grid.T(3, 4)})
	c := PositionsDigest([]grid.Tile{grid.T(3, 4), grid.T(1, 2)})
	d := PositionsDigest([]grid.Tile{grid.T(12, 3), grid.T(4, 0)})

	if a != b {
		t.Fatal("expected equal digests for equal positions")
	}
	if a == c {
		t.Fatal("expected order to change the digest")
	}
	if a == d {
		t.Fatal("expected different tiles to change the digest")
	}
	if len(a) != 16 {
		t.Fatalf("expected 16 hex chars, got %q", a)
	}
}

func TestPlanRemaining(t *testing.T) {
	plan := NewPlan("W1N1", "link", 5, 0, []grid.Tile{grid.T(1, 1), grid.T(2, 2)})
	if plan.Remaining() != 2 {
		t.Fatalf("expected 2 remaining, got %d", plan.Remaining())
	}
	plan.Count = 3
	if plan.Remaining() != 0 {
		t.Fatalf("expected 0 remaining, got %d", plan.Remaining())
	}
}
