package state

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/itsmrshow/foreman/internal/grid"
	"github.com/itsmrshow/foreman/internal/world"
)

type planKey struct {
	region   world.RegionID
	category world.Category
}

// MemoryStore keeps plans in process memory. It backs one-shot CLI runs
// and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	plans    map[planKey]Plan
	settings map[string]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		plans:    make(map[planKey]Plan),
		settings: make(map[string]string),
	}
}

func (m *MemoryStore) Initialize(ctx context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) SavePlan(ctx context.Context, plan *Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	plan.UpdatedAt = time.Now()
	stored := *plan
	stored.Positions = append([]grid.Tile(nil), plan.Positions...)
	m.plans[planKey{plan.Region, plan.Category}] = stored
	return nil
}

func (m *MemoryStore) GetPlan(ctx context.Context, region world.RegionID, category world.Category) (*Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plan, ok := m.plans[planKey{region, category}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrPlanNotFound, region, category)
	}
	plan.Positions = append([]grid.Tile(nil), plan.Positions...)
	return &plan, nil
}

func (m *MemoryStore) ListPlans(ctx context.Context, region world.RegionID) ([]Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var plans []Plan
	for key, plan := range m.plans {
		if region != "" && key.region != region {
			continue
		}
		plan.Positions = append([]grid.Tile(nil), plan.Positions...)
		plans = append(plans, plan)
	}
	sort.Slice(plans, func(i, j int) bool {
		if plans[i].Region != plans[j].Region {
			return plans[i].Region < plans[j].Region
		}
		return plans[i].Category < plans[j].Category
	})
	return plans, nil
}

func (m *MemoryStore) SetRealizedCount(ctx context.Context, region world.RegionID, category world.Category, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := planKey{region, category}
	plan, ok := m.plans[key]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrPlanNotFound, region, category)
	}
	plan.Count = count
	plan.UpdatedAt = time.Now()
	m.plans[key] = plan
	return nil
}

func (m *MemoryStore) DeletePlans(ctx context.Context, region world.RegionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.plans {
		if key.region == region {
			delete(m.plans, key)
		}
	}
	return nil
}

func (m *MemoryStore) GetSetting(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.settings[key]
	if !ok {
		return "", fmt.Errorf("setting not found: %s", key)
	}
	return value, nil
}

func (m *MemoryStore) SetSetting(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings[key] = value
	return nil
}
