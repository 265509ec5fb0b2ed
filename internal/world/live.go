package world

import "github.com/itsmrshow/foreman/internal/grid"

// Live forwards queries to whichever World was set last. It lets a
// long-lived cache outlive the snapshots it reads from: entries computed
// against an older snapshot stay in use until they expire.
type Live struct {
	current World
}

// NewLive returns a Live world serving w.
func NewLive(w World) *Live {
	return &Live{current: w}
}

// Set replaces the world served to callers.
func (l *Live) Set(w World) { l.current = w }

func (l *Live) Regions() []RegionID {
	if l.current == nil {
		return nil
	}
	return l.current.Regions()
}

func (l *Live) Bounds(region RegionID) grid.Bounds {
	if l.current == nil {
		return grid.DefaultBounds()
	}
	return l.current.Bounds(region)
}

func (l *Live) FindStructures(region RegionID) []Structure {
	if l.current == nil {
		return nil
	}
	return l.current.FindStructures(region)
}

func (l *Live) FindConstructionSites(region RegionID) []Site {
	if l.current == nil {
		return nil
	}
	return l.current.FindConstructionSites(region)
}

func (l *Live) FindSources(region RegionID) []grid.Tile {
	if l.current == nil {
		return nil
	}
	return l.current.FindSources(region)
}

func (l *Live) LookupTile(region RegionID, tile grid.Tile) []Occupant {
	if l.current == nil {
		return nil
	}
	return l.current.LookupTile(region, tile)
}

func (l *Live) Terrain(region RegionID, tile grid.Tile) grid.Terrain {
	if l.current == nil {
		return grid.Wall
	}
	return l.current.Terrain(region, tile)
}
