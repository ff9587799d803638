// Package tile provides the pixel tile type, tile references and orientation flags.
package tile

import (
	"fmt"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// ID is a dense index into a tile store.
type ID uint32

// MaybeID is a tile id that may be absent. The zero value is absent.
type MaybeID struct {
	id ID
	ok bool
}

func Some(id ID) MaybeID { return MaybeID{id: id, ok: true} }

// None is the absent id.
var None MaybeID

func (m MaybeID) Get() (ID, bool) { return m.id, m.ok }
func (m MaybeID) Valid() bool { return m.ok }

// MustGet returns the id or panics if it is absent.
func (m MaybeID) MustGet() ID {
	if !m.ok {
		panic("beehive: tile id is absent")
	}
	return m.id
}

func (m MaybeID) String() string {
	if !m.ok {
		return "none"
	}
	return fmt.Sprint(m.id)
}

// Flags are per-placement bits: orientation and rendering plane.
type Flags uint8

const (
	FlipX Flags = 1 << iota
	FlipY
	HighPlane

	FlipXY = FlipX | FlipY
)

// Orientations lists the transforms in lookup order.
var Orientations = [4]Flags{0, FlipX, FlipY, FlipXY}

// Ref is a usage site of a tile.
type Ref struct {
	ID    MaybeID
	Flags Flags
}

// Colors is the number of colour indices in a palette. Pixels hold indices
// below Colors.
const Colors = 16

// Tile is a grid of colour indices plus the palette it is drawn with.
type Tile struct {
	Width   int
	Height  int
	Pixels  []uint8
	Palette uint8
}

func New(width, height int) *Tile {
	return &Tile{Width: width, Height: height, Pixels: make([]uint8, width*height)}
}

func (t *Tile) At(x, y int) uint8 {
	return t.Pixels[y*t.Width+x]
}

func (t *Tile) Set(x, y int, c uint8) {
	t.Pixels[y*t.Width+x] = c
}

func (t *Tile) Clone() *Tile {
	c := *t
	c.Pixels = slices.Clone(t.Pixels)
	return &c
}

// CopyFrom replaces pixels and palette with those of src. Sizes must match.
func (t *Tile) CopyFrom(src *Tile) {
	if t.Width != src.Width || t.Height != src.Height {
		panic("beehive: tile size mismatch")
	}
	copy(t.Pixels, src.Pixels)
	t.Palette = src.Palette
}

// Equal reports whether t and o have the same pixels and palette. It is the
// duplicate relation of every tile lookup.
func (t *Tile) Equal(o *Tile) bool {
	return t.Width == o.Width && t.Height == o.Height && t.Palette == o.Palette && slices.Equal(t.Pixels, o.Pixels)
}

// Transform returns a copy of t flipped by the orientation bits of f.
func (t *Tile) Transform(f Flags) *Tile {
	out := New(t.Width, t.Height)
	out.Palette = t.Palette
	w, h := t.Width, t.Height
	for y := range h {
		for x := range w {
			sx, sy := x, y
			if f&FlipX != 0 {
				sx = w - 1 - x
			}
			if f&FlipY != 0 {
				sy = h - 1 - y
			}
			out.Pixels[y*w+x] = t.Pixels[sy*w+sx]
		}
	}
	return out
}

// Hash returns the content hash of the pixel array and palette.
func (t *Tile) Hash() uint64 {
	d := xxhash.New()
	d.Write(t.Pixels)
	d.Write([]byte{t.Palette})
	return d.Sum64()
}

// Hashes returns the content hash of t under each of Orientations.
func (t *Tile) Hashes() [4]uint64 {
	var hashes [4]uint64
	for i, f := range Orientations {
		if f == 0 {
			hashes[i] = t.Hash()
			continue
		}
		hashes[i] = t.Transform(f).Hash()
	}
	return hashes
}

// IsSolid reports whether every pixel has the same colour.
func (t *Tile) IsSolid() bool {
	for _, c := range t.Pixels {
		if c != t.Pixels[0] {
			return false
		}
	}
	return true
}
