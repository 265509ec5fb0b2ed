package grid

import "fmt"

// Terrain classifies a single tile.
type Terrain uint8

const (
	Plain Terrain = iota
	Swamp
	Wall
)

func (t Terrain) String() string {
	switch t {
	case Plain:
		return "plain"
	case Swamp:
		return "swamp"
	case Wall:
		return "wall"
	default:
		return fmt.Sprintf("terrain(%d)", uint8(t))
	}
}

// Walkable reports whether the tile can hold a structure.
func (t Terrain) Walkable() bool {
	return t != Wall
}

// ParseTerrain maps a snapshot glyph to a terrain class.
// '#' is a wall, '~' a swamp, anything else plain.
func ParseTerrain(glyph rune) Terrain {
	switch glyph {
	case '#':
		return Wall
	case '~':
		return Swamp
	default:
		return Plain
	}
}
