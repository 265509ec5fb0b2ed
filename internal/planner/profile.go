package planner

import (
	"fmt"

	"github.com/itsmrshow/foreman/internal/world"
)

// Strategy selects how a category's positions are searched.
type Strategy string

const (
	// StrategyCluster places single structures near a sequence of anchors.
	StrategyCluster Strategy = "cluster"
	// StrategyRoute lays traversable tiles along paths between anchors.
	StrategyRoute Strategy = "route"
)

// Band is an inclusive Manhattan distance range around an anchor.
type Band struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// Valid reports whether the band can contain any tile.
func (b Band) Valid() bool {
	return b.Min >= 0 && b.Min <= b.Max
}

// Profile configures planning for one structure category.
type Profile struct {
	Strategy       Strategy `yaml:"strategy"`
	StorageBand    Band     `yaml:"storage_band"`
	SpawnBand      Band     `yaml:"spawn_band"`
	ControllerBand Band     `yaml:"controller_band"`
	SourceBand     Band     `yaml:"source_band"`

	// Caps[level] is the number of structures allowed at a controller
	// level. Levels past the end use the last entry.
	Caps []int `yaml:"caps"`
}

// Cap returns the level cap at level.
func (p Profile) Cap(level int) int {
	if len(p.Caps) == 0 || level < 0 {
		return 0
	}
	if level >= len(p.Caps) {
		return p.Caps[len(p.Caps)-1]
	}
	return p.Caps[level]
}

// Validate checks that a cluster profile has usable bands.
func (p Profile) Validate() error {
	switch p.Strategy {
	case StrategyRoute:
		return nil
	case StrategyCluster:
		for name, b := range map[string]Band{
			"storage_band":    p.StorageBand,
			"spawn_band":      p.SpawnBand,
			"controller_band": p.ControllerBand,
			"source_band":     p.SourceBand,
		} {
			if !b.Valid() {
				return fmt.Errorf("%s: invalid range %d-%d", name, b.Min, b.Max)
			}
		}
		for level, c := range p.Caps {
			if c < 0 {
				return fmt.Errorf("caps[%d]: negative cap %d", level, c)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown strategy %q", p.Strategy)
	}
}

// DefaultProfiles returns the built-in link and road profiles.
func DefaultProfiles() map[world.Category]Profile {
	return map[world.Category]Profile{
		world.CategoryLink: {
			Strategy:       StrategyCluster,
			StorageBand:    Band{Min: 1, Max: 2},
			SpawnBand:      Band{Min: 2, Max: 4},
			ControllerBand: Band{Min: 1, Max: 3},
			SourceBand:     Band{Min: 1, Max: 2},
			Caps:           []int{0, 0, 0, 0, 0, 2, 3, 4, 6},
		},
		world.CategoryRoad: {
			Strategy: StrategyRoute,
		},
	}
}
