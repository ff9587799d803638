// Package tilemap provides graphics maps: dense grids of tile references plus
// placed stamps, and the padded fields they are packed from.
package tilemap

import (
	"fmt"
	"slices"

	"github.com/eak1mov/go-beehive/tile"
)

type StampID uint32

// Stamp is a reusable rectangular patch of tile references.
type Stamp struct {
	ID     StampID
	Name   string
	Width  int
	Height int
	Cells  []tile.Ref
}

func NewStamp(id StampID, width, height int) *Stamp {
	return &Stamp{ID: id, Width: width, Height: height, Cells: make([]tile.Ref, width*height)}
}

func (s *Stamp) At(x, y int) tile.Ref {
	return s.Cells[y*s.Width+x]
}

func (s *Stamp) Set(x, y int, r tile.Ref) {
	s.Cells[y*s.Width+x] = r
}

// Placement positions a stamp on a map. Flags flip the whole stamp.
type Placement struct {
	Stamp StampID
	X     int
	Y     int
	Flags tile.Flags
}

type Map struct {
	Name       string
	width      int
	height     int
	cells      []tile.Ref
	Placements []Placement
}

func New(name string, width, height int) *Map {
	return &Map{Name: name, width: width, height: height, cells: make([]tile.Ref, width*height)}
}

// Restore builds a map from row-major cells.
func Restore(name string, width, height int, cells []tile.Ref, placements []Placement) *Map {
	if len(cells) != width*height {
		panic(fmt.Sprintf("beehive: %d cells for a %dx%d map", len(cells), width, height))
	}
	return &Map{Name: name, width: width, height: height, cells: cells, Placements: placements}
}

func (m *Map) Width() int { return m.width }
func (m *Map) Height() int { return m.height }

// Cells returns the row-major cell slice. It aliases map storage.
func (m *Map) Cells() []tile.Ref { return m.cells }

func (m *Map) offset(x, y int) int {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		panic(fmt.Sprintf("beehive: cell (%d, %d) out of range %dx%d", x, y, m.width, m.height))
	}
	return y*m.width + x
}

func (m *Map) At(x, y int) tile.Ref {
	return m.cells[m.offset(x, y)]
}

func (m *Map) Set(x, y int, r tile.Ref) {
	m.cells[m.offset(x, y)] = r
}

// Resize changes the map size keeping existing content. When growing, the
// shift options move content (and stamps) to the right or bottom edge.
func (m *Map) Resize(width, height int, shiftRight, shiftDown bool) {
	cells := make([]tile.Ref, width*height)
	dx, dy := 0, 0
	if shiftRight && width > m.width {
		dx = width - m.width
	}
	if shiftDown && height > m.height {
		dy = height - m.height
	}
	for y := range min(height, m.height) {
		for x := range min(width, m.width) {
			cells[(y+dy)*width+x+dx] = m.cells[y*m.width+x]
		}
	}
	for i := range m.Placements {
		m.Placements[i].X += dx
		m.Placements[i].Y += dy
	}
	m.cells, m.width, m.height = cells, width, height
}

// Bake writes stamp s onto a row-major grid at (x, y). Stamp cells without a
// tile are transparent and cells outside the grid are dropped.
func Bake(cells []tile.Ref, width, height, x, y int, s *Stamp, flags tile.Flags) {
	for sy := range s.Height {
		for sx := range s.Width {
			srcX, srcY := sx, sy
			if flags&tile.FlipX != 0 {
				srcX = s.Width - 1 - sx
			}
			if flags&tile.FlipY != 0 {
				srcY = s.Height - 1 - sy
			}
			r := s.At(srcX, srcY)
			if !r.ID.Valid() {
				continue
			}
			mx, my := x+sx, y+sy
			if mx < 0 || my < 0 || mx >= width || my >= height {
				continue
			}
			r.Flags ^= flags & tile.FlipXY
			cells[my*width+mx] = r
		}
	}
}

// BakeStamp writes a stamp into the map cells permanently.
func (m *Map) BakeStamp(x, y int, s *Stamp, flags tile.Flags) {
	Bake(m.cells, m.width, m.height, x, y, s, flags)
}

// Field returns the map padded to a multiple of the block size with all
// placed stamps baked in. Empty cells take the background tile.
func (m *Map) Field(blockWidth, blockHeight int, background tile.ID, stamps func(StampID) *Stamp) (cells []tile.Ref, width, height int) {
	width = (m.width + blockWidth - 1) / blockWidth * blockWidth
	height = (m.height + blockHeight - 1) / blockHeight * blockHeight

	bg := tile.Ref{ID: tile.Some(background)}
	cells = make([]tile.Ref, width*height)
	for i := range cells {
		cells[i] = bg
	}
	for y := range m.height {
		for x := range m.width {
			r := m.cells[y*m.width+x]
			if !r.ID.Valid() {
				r.ID = bg.ID
			}
			cells[y*width+x] = r
		}
	}
	for _, p := range m.Placements {
		if s := stamps(p.Stamp); s != nil {
			Bake(cells, width, height, p.X, p.Y, s, p.Flags)
		}
	}
	return cells, width, height
}

// Uses reports whether any cell references id.
func (m *Map) Uses(id tile.ID) bool {
	return slices.ContainsFunc(m.cells, func(r tile.Ref) bool {
		got, ok := r.ID.Get()
		return ok && got == id
	})
}

// RemovePlacements drops every placement of a stamp.
func (m *Map) RemovePlacements(id StampID) {
	m.Placements = slices.DeleteFunc(m.Placements, func(p Placement) bool { return p.Stamp == id })
}

// Remap replaces every cell with f(cell).
func (m *Map) Remap(f func(tile.Ref) tile.Ref) {
	remap(m.cells, f)
}

// Remap replaces every stamp cell with f(cell).
func (s *Stamp) Remap(f func(tile.Ref) tile.Ref) {
	remap(s.Cells, f)
}

func remap(cells []tile.Ref, f func(tile.Ref) tile.Ref) {
	for i, r := range cells {
		cells[i] = f(r)
	}
}
