package world

import "github.com/itsmrshow/foreman/internal/grid"

// RegionID identifies one bounded grid area.
type RegionID string

// Tick is a discrete world-time step.
type Tick int64

// Category is a structure category.
type Category string

const (
	CategorySpawn      Category = "spawn"
	CategoryStorage    Category = "storage"
	CategoryController Category = "controller"
	CategoryLink       Category = "link"
	CategoryExtension  Category = "extension"
	CategoryContainer  Category = "container"
	CategoryTower      Category = "tower"
	CategoryRoad       Category = "road"
	CategoryRampart    Category = "rampart"
	CategoryWall       Category = "constructedWall"
)

// Traversable reports whether units can walk over the category, so it can
// share a tile with a defensive overlay.
func (c Category) Traversable() bool {
	return c == CategoryRoad
}

// Overlay reports whether the category is a defensive overlay that may sit
// beneath a traversable structure.
func (c Category) Overlay() bool {
	return c == CategoryRampart
}

// OccupantKind says what sort of entity occupies a tile.
type OccupantKind string

const (
	OccupantStructure OccupantKind = "structure"
	OccupantSite      OccupantKind = "site"
	OccupantSource    OccupantKind = "source"
	OccupantBlocker   OccupantKind = "blocker"
)

// Structure is a built structure in a region.
type Structure struct {
	Category Category  `json:"category" yaml:"category"`
	Position grid.Tile `json:"position" yaml:",inline"`
	// Level is only meaningful for controllers.
	Level int `json:"level,omitempty" yaml:"level,omitempty"`
}

// Site is a construction site awaiting work.
type Site struct {
	ID       string    `json:"id" yaml:"id"`
	Category Category  `json:"category" yaml:"category"`
	Position grid.Tile `json:"position" yaml:",inline"`
}

// Occupant describes one entity found on a tile.
type Occupant struct {
	Kind     OccupantKind `json:"kind"`
	Category Category     `json:"category,omitempty"`
}

// World is the read-only query surface of the simulated world. Every call
// is assumed to cost up to O(region size).
type World interface {
	Regions() []RegionID
	Bounds(region RegionID) grid.Bounds
	FindStructures(region RegionID) []Structure
	FindConstructionSites(region RegionID) []Site
	FindSources(region RegionID) []grid.Tile
	LookupTile(region RegionID, tile grid.Tile) []Occupant
	Terrain(region RegionID, tile grid.Tile) grid.Terrain
}
