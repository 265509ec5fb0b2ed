package grid

import "fmt"

// DefaultSize is the width and height of a region when none is configured.
const DefaultSize = 50

// Tile is a cell coordinate on a region grid.
type Tile struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// T is shorthand for Tile{X: x, Y: y}.
func T(x, y int) Tile {
	return Tile{X: x, Y: y}
}

func (t Tile) String() string {
	return fmt.Sprintf("(%d,%d)", t.X, t.Y)
}

// Add offsets the tile by dx, dy.
func (t Tile) Add(dx, dy int) Tile {
	return Tile{X: t.X + dx, Y: t.Y + dy}
}

// Manhattan returns |dx| + |dy| between two tiles.
func Manhattan(a, b Tile) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Bounds describes the size of a region grid.
type Bounds struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// DefaultBounds returns the standard 50x50 region.
func DefaultBounds() Bounds {
	return Bounds{Width: DefaultSize, Height: DefaultSize}
}

// WithDefaults fills zero dimensions with DefaultSize.
func (b Bounds) WithDefaults() Bounds {
	if b.Width <= 0 {
		b.Width = DefaultSize
	}
	if b.Height <= 0 {
		b.Height = DefaultSize
	}
	return b
}

// Contains reports whether t lies anywhere on the grid.
func (b Bounds) Contains(t Tile) bool {
	return t.X >= 0 && t.Y >= 0 && t.X < b.Width && t.Y < b.Height
}

// Interior reports whether t is a usable placement tile. Coordinates at or
// below 1 and at or above size-2 are reserved as the border margin.
func (b Bounds) Interior(t Tile) bool {
	return t.X > 1 && t.Y > 1 && t.X < b.Width-2 && t.Y < b.Height-2
}
