package state

import (
	"context"
	"errors"

	"github.com/itsmrshow/foreman/internal/world"
)

// ErrPlanNotFound is returned when no plan exists for a region and category.
var ErrPlanNotFound = errors.New("plan not found")

// Store defines the interface for placement plan persistence
type Store interface {
	// Initialize the store (create tables, run migrations)
	Initialize(ctx context.Context) error

	// Close the store connection
	Close() error

	// Plan operations
	SavePlan(ctx context.Context, plan *Plan) error
	GetPlan(ctx context.Context, region world.RegionID, category world.Category) (*Plan, error)
	ListPlans(ctx context.Context, region world.RegionID) ([]Plan, error)
	SetRealizedCount(ctx context.Context, region world.RegionID, category world.Category, count int) error
	DeletePlans(ctx context.Context, region world.RegionID) error

	// Settings operations
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}
