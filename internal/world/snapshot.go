package world

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"github.com/itsmrshow/foreman/internal/grid"
)

// Snapshot is a World backed by a static, file-loaded description of the
// world at one tick.
type Snapshot struct {
	Tick    Tick           `yaml:"tick"`
	Entries []RegionRecord `yaml:"regions"`

	regions map[RegionID]*regionIndex
	order   []RegionID
}

// RegionRecord is the on-disk description of one region.
type RegionRecord struct {
	Name       string      `yaml:"name"`
	Width      int         `yaml:"width,omitempty"`
	Height     int         `yaml:"height,omitempty"`
	Terrain    []string    `yaml:"terrain,omitempty"` // rows of glyphs, see grid.ParseTerrain
	Walls      []grid.Tile `yaml:"walls,omitempty"`
	Swamps     []grid.Tile `yaml:"swamps,omitempty"`
	Sources    []grid.Tile `yaml:"sources,omitempty"`
	Structures []Structure `yaml:"structures,omitempty"`
	Sites      []Site      `yaml:"sites,omitempty"`
	Blockers   []grid.Tile `yaml:"blockers,omitempty"`
}

type regionIndex struct {
	record  RegionRecord
	bounds  grid.Bounds
	terrain map[grid.Tile]grid.Terrain
}

// LoadSnapshot reads a YAML snapshot. Files ending in .zst are zstd
// compressed YAML.
func LoadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.EqualFold(filepath.Ext(path), ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return ParseSnapshot(data)
}

// ParseSnapshot decodes a YAML snapshot document.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&snap); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if err := snap.index(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// WriteSnapshot encodes the snapshot as YAML, zstd compressed when path
// ends in .zst.
func WriteSnapshot(path string, snap *Snapshot) error {
	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	defer f.Close()

	if !strings.EqualFold(filepath.Ext(path), ".zst") {
		_, err = f.Write(data)
		return err
	}

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	if _, err := enc.Write(data); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func (s *Snapshot) index() error {
	s.regions = make(map[RegionID]*regionIndex, len(s.Entries))
	s.order = make([]RegionID, 0, len(s.Entries))

	for _, rec := range s.Entries {
		id := RegionID(rec.Name)
		if id == "" {
			return fmt.Errorf("region without a name")
		}
		if _, dup := s.regions[id]; dup {
			return fmt.Errorf("duplicate region %q", id)
		}

		idx := &regionIndex{
			record:  rec,
			bounds:  grid.Bounds{Width: rec.Width, Height: rec.Height}.WithDefaults(),
			terrain: make(map[grid.Tile]grid.Terrain),
		}
		for y, row := range rec.Terrain {
			x := 0
			for _, glyph := range row {
				if t := grid.ParseTerrain(glyph); t != grid.Plain {
					idx.terrain[grid.T(x, y)] = t
				}
				x++
			}
		}
		for _, tile := range rec.Swamps {
			idx.terrain[tile] = grid.Swamp
		}
		for _, tile := range rec.Walls {
			idx.terrain[tile] = grid.Wall
		}

		s.regions[id] = idx
		s.order = append(s.order, id)
	}
	return nil
}

// Regions returns region identities in file order.
func (s *Snapshot) Regions() []RegionID {
	return append([]RegionID(nil), s.order...)
}

// Bounds returns the region grid size, or the default size for unknown regions.
func (s *Snapshot) Bounds(region RegionID) grid.Bounds {
	if idx, ok := s.regions[region]; ok {
		return idx.bounds
	}
	return grid.DefaultBounds()
}

func (s *Snapshot) FindStructures(region RegionID) []Structure {
	idx, ok := s.regions[region]
	if !ok {
		return nil
	}
	return append([]Structure(nil), idx.record.Structures...)
}

func (s *Snapshot) FindConstructionSites(region RegionID) []Site {
	idx, ok := s.regions[region]
	if !ok {
		return nil
	}
	return append([]Site(nil), idx.record.Sites...)
}

func (s *Snapshot) FindSources(region RegionID) []grid.Tile {
	idx, ok := s.regions[region]
	if !ok {
		return nil
	}
	return append([]grid.Tile(nil), idx.record.Sources...)
}

// LookupTile lists structures, sites, resource nodes and other blockers at tile.
func (s *Snapshot) LookupTile(region RegionID, tile grid.Tile) []Occupant {
	idx, ok := s.regions[region]
	if !ok {
		return nil
	}

	var out []Occupant
	for _, st := range idx.record.Structures {
		if st.Position == tile {
			out = append(out, Occupant{Kind: OccupantStructure, Category: st.Category})
		}
	}
	for _, site := range idx.record.Sites {
		if site.Position == tile {
			out = append(out, Occupant{Kind: OccupantSite, Category: site.Category})
		}
	}
	for _, src := range idx.record.Sources {
		if src == tile {
			out = append(out, Occupant{Kind: OccupantSource})
		}
	}
	for _, b := range idx.record.Blockers {
		if b == tile {
			out = append(out, Occupant{Kind: OccupantBlocker})
		}
	}
	return out
}

// Terrain classifies tile. Tiles off the grid are walls.
func (s *Snapshot) Terrain(region RegionID, tile grid.Tile) grid.Terrain {
	idx, ok := s.regions[region]
	if !ok || !idx.bounds.Contains(tile) {
		return grid.Wall
	}
	return idx.terrain[tile]
}
