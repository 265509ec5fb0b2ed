package state

import (
	"time"

	"github.com/itsmrshow/foreman/internal/grid"
	"github.com/itsmrshow/foreman/internal/world"
)

// Plan is the placement plan of one structure category in one region.
// A new search replaces a plan wholesale; only Count changes in place.
type Plan struct {
	Region    world.RegionID `json:"region"`
	Category  world.Category `json:"category"`
	Planned   bool           `json:"planned"`
	Positions []grid.Tile    `json:"positions"`
	Count     int            `json:"count"` // realized so far (built or under construction)
	Level     int            `json:"level"` // controller level the plan was made for
	Tick      world.Tick     `json:"tick"`  // world time the plan was made at
	Digest    string         `json:"digest"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewPlan builds a fresh plan with a zero realized count.
func NewPlan(region world.RegionID, category world.Category, level int, tick world.Tick, positions []grid.Tile) *Plan {
	if positions == nil {
		positions = []grid.Tile{}
	}
	return &Plan{
		Region:    region,
		Category:  category,
		Planned:   true,
		Positions: positions,
		Level:     level,
		Tick:      tick,
		Digest:    PositionsDigest(positions),
	}
}

// Remaining returns how many planned positions are not yet realized.
func (p *Plan) Remaining() int {
	if n := len(p.Positions) - p.Count; n > 0 {
		return n
	}
	return 0
}
