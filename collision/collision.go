// Package collision provides collision maps: per-cell words packing a terrain
// tile id with collision flags, and the bezier paths terrain is generated from.
package collision

import (
	"fmt"
	"slices"

	"github.com/eak1mov/go-beehive/bezier"
	"github.com/eak1mov/go-beehive/platform"
	"github.com/eak1mov/go-beehive/terrain"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// Path is an authored terrain curve with its metadata.
type Path struct {
	bezier.Path

	// Flags are applied to every cell the path passes through.
	Flags terrain.Flags
	Layer uint8
	// GenerateWidth is an authoring marker stored with the path. Terrain
	// generation does not read it and produces no width data.
	GenerateWidth bool
}

// Map is a grid of collision words. The low 11 bits of a word hold the
// terrain tile id or terrain.NoneWord; the high bits hold terrain.Flags.
type Map struct {
	Name       string
	width      int
	height     int
	tileWidth  int
	tileHeight int
	words      []uint16
	Paths      []*Path
}

func New(cfg platform.Config, name string, width, height int) *Map {
	m := &Map{
		Name:       name,
		width:      width,
		height:     height,
		tileWidth:  cfg.TileWidth,
		tileHeight: cfg.TileHeight,
		words:      make([]uint16, width*height),
	}
	for i := range m.words {
		m.words[i] = terrain.NoneWord
	}
	return m
}

// Restore builds a map from raw row-major words.
func Restore(cfg platform.Config, name string, width, height int, words []uint16, paths []*Path) *Map {
	if len(words) != width*height {
		panic(fmt.Sprintf("beehive: %d words for a %dx%d collision map", len(words), width, height))
	}
	m := New(cfg, name, 0, 0)
	m.width, m.height, m.words, m.Paths = width, height, words, paths
	return m
}

func (m *Map) Width() int { return m.width }
func (m *Map) Height() int { return m.height }

// Words returns the row-major word slice. It aliases map storage.
func (m *Map) Words() []uint16 { return m.words }

// Clone returns a deep copy of the cells. Paths are shared.
func (m *Map) Clone() *Map {
	c := *m
	c.words = slices.Clone(m.words)
	c.Paths = slices.Clone(m.Paths)
	return &c
}

func (m *Map) offset(x, y int) int {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		panic(fmt.Sprintf("beehive: collision cell (%d, %d) out of range %dx%d", x, y, m.width, m.height))
	}
	return y*m.width + x
}

func (m *Map) Word(x, y int) uint16 {
	return m.words[m.offset(x, y)]
}

func (m *Map) TerrainTile(x, y int) terrain.MaybeID {
	w := m.words[m.offset(x, y)] & terrain.IDMask
	if w == terrain.NoneWord {
		return terrain.None
	}
	return terrain.Some(terrain.ID(w))
}

func (m *Map) SetTerrainTile(x, y int, id terrain.MaybeID) {
	i := m.offset(x, y)
	w := uint16(terrain.NoneWord)
	if v, ok := id.Get(); ok {
		w = uint16(v)
	}
	m.words[i] = m.words[i]&^terrain.IDMask | w
}

func (m *Map) Flags(x, y int) terrain.Flags {
	return terrain.Flags(m.words[m.offset(x, y)] &^ terrain.IDMask)
}

func (m *Map) SetFlags(x, y int, f terrain.Flags) {
	i := m.offset(x, y)
	m.words[i] = m.words[i]&terrain.IDMask | uint16(f)&^terrain.IDMask
}

// Resize changes the map size keeping existing words. When growing, the
// shift options move content to the right or bottom edge. Paths are moved
// so that they stay over the same cells.
func (m *Map) Resize(width, height int, shiftRight, shiftDown bool) {
	words := make([]uint16, width*height)
	for i := range words {
		words[i] = terrain.NoneWord
	}
	dx, dy := 0, 0
	if shiftRight && width > m.width {
		dx = width - m.width
	}
	if shiftDown && height > m.height {
		dy = height - m.height
	}
	for y := range min(height, m.height) {
		for x := range min(width, m.width) {
			words[(y+dy)*width+x+dx] = m.words[y*m.width+x]
		}
	}

	// Path Y is measured up from the bottom edge.
	offset := vec.Vec2{
		X: float64(dx * m.tileWidth),
		Y: float64((height - m.height - dy) * m.tileHeight),
	}
	if offset != (vec.Vec2{}) {
		for _, p := range m.Paths {
			p.Move(offset)
		}
	}
	m.words, m.width, m.height = words, width, height
}

// AddPath appends a path and returns its index.
func (m *Map) AddPath(p *Path) int {
	m.Paths = append(m.Paths, p)
	return len(m.Paths) - 1
}

func (m *Map) RemovePath(i int) {
	if i < 0 || i >= len(m.Paths) {
		panic(fmt.Sprintf("beehive: path %d out of range [0, %d)", i, len(m.Paths)))
	}
	m.Paths = slices.Delete(m.Paths, i, i+1)
}

// FindPaths returns the indices of paths whose bounds intersect the closed
// pixel rectangle r in path space.
func (m *Map) FindPaths(r rect.Rect) []int {
	var found []int
	for i, p := range m.Paths {
		if bezier.Overlaps(p.Bounds(), r) {
			found = append(found, i)
		}
	}
	return found
}

// Uses reports whether any cell references id.
func (m *Map) Uses(id terrain.ID) bool {
	return slices.ContainsFunc(m.words, func(w uint16) bool {
		return w&terrain.IDMask == uint16(id)
	})
}

// Remap replaces every terrain id with f(id). Flags are kept.
func (m *Map) Remap(f func(terrain.MaybeID) terrain.MaybeID) {
	for y := range m.height {
		for x := range m.width {
			m.SetTerrainTile(x, y, f(m.TerrainTile(x, y)))
		}
	}
}
