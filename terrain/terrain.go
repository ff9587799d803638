// Package terrain provides terrain tiles (per-column height profiles), the
// collision flag bits that accompany them, and their deduplicating store.
package terrain

import (
	"fmt"
	"math"
	"slices"

	"github.com/cespare/xxhash/v2"
	"seehuhn.de/go/geom/vec"
)

// ID is a dense index into a terrain store.
type ID uint16

// MaybeID is a terrain tile id that may be absent ("no collision").
type MaybeID struct {
	id ID
	ok bool
}

func Some(id ID) MaybeID { return MaybeID{id: id, ok: true} }

var None MaybeID

func (m MaybeID) Get() (ID, bool) { return m.id, m.ok }
func (m MaybeID) Valid() bool { return m.ok }

func (m MaybeID) String() string {
	if !m.ok {
		return "none"
	}
	return fmt.Sprint(m.id)
}

// Flags occupy the bits of a collision word above the terrain id.
type Flags uint16

const (
	FlagTerrain Flags = 1 << (11 + iota)
	FlagWater
	FlagSolid
	FlagHole
	FlagSpecial

	// FlagsManual are hand placed and survive terrain generation.
	FlagsManual = FlagSolid | FlagHole
	// FlagsGenerated are owned by terrain generation.
	FlagsGenerated = FlagWater | FlagSpecial
)

const (
	// IDMask selects the terrain id bits of a collision word.
	IDMask = 1<<11 - 1
	// NoneWord is the id field value of a cell without terrain.
	NoneWord = IDMask
)

// Tile is a column height profile. Heights are in pixels, 0 is empty.
type Tile struct {
	Heights []int8
	height  int
}

func NewTile(width, height int) *Tile {
	return &Tile{Heights: make([]int8, width), height: height}
}

func (t *Tile) Width() int { return len(t.Heights) }
func (t *Tile) MaxHeight() int { return t.height }

func (t *Tile) Height(x int) int { return int(t.Heights[x]) }

// SetHeight sets the height of column x. Heights beyond the tile height are
// a programming error.
func (t *Tile) SetHeight(x, h int) {
	if h > t.height || h < -t.height {
		panic(fmt.Sprintf("beehive: terrain height %d out of range [%d, %d]", h, -t.height, t.height))
	}
	t.Heights[x] = int8(h)
}

func (t *Tile) IsEmpty() bool {
	for _, h := range t.Heights {
		if h != 0 {
			return false
		}
	}
	return true
}

func (t *Tile) Clear() {
	clear(t.Heights)
}

func (t *Tile) Clone() *Tile {
	c := *t
	c.Heights = slices.Clone(t.Heights)
	return &c
}

func (t *Tile) Equal(o *Tile) bool {
	return slices.Equal(t.Heights, o.Heights)
}

// Up is the normal of flat ground.
var Up = vec.Vec2{X: 0, Y: 1}

// Normal returns the unit surface normal of the line joining the leftmost
// and rightmost non-empty columns, pointing away from the solid side. Tiles
// with fewer than two non-empty columns are flat.
func (t *Tile) Normal() vec.Vec2 {
	x1 := slices.IndexFunc(t.Heights, func(h int8) bool { return h != 0 })
	if x1 < 0 {
		return Up
	}
	x2 := len(t.Heights) - 1
	for t.Heights[x2] == 0 {
		x2--
	}
	if x1 == x2 {
		return Up
	}
	d := vec.Vec2{X: float64(x2 - x1), Y: float64(t.Heights[x2] - t.Heights[x1])}
	l := d.Length()
	return vec.Vec2{X: -d.Y / l, Y: d.X / l}
}

// AngleByte converts a surface normal to a 256-step angle measured from Up
// towards positive X, so a normal along +X is 64.
func AngleByte(n vec.Vec2) uint8 {
	turns := math.Atan2(n.X, n.Y) / (2 * math.Pi)
	turns -= math.Floor(turns)
	return uint8(int(math.Floor(turns*256)) & 0xFF)
}

// Angle returns the angle byte of the tile's normal.
func (t *Tile) Angle() uint8 { return AngleByte(t.Normal()) }

func (t *Tile) Hash() uint64 {
	buf := make([]byte, len(t.Heights))
	for i, h := range t.Heights {
		buf[i] = byte(h)
	}
	return xxhash.Sum64(buf)
}
