// Package platform describes the target console: tile geometry, scroll plane
// size, block size and the id-space limits of the hardware.
package platform

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidConfig = errors.New("beehive: invalid platform config")

// Config holds per-platform constants. All sizes are in pixels for tiles and
// in tiles for planes and blocks.
type Config struct {
	Name string `mapstructure:"name"`

	TileWidth  int `mapstructure:"tile_width"`
	TileHeight int `mapstructure:"tile_height"`

	// Default map size.
	ScrollPlaneWidth  int `mapstructure:"scroll_plane_width"`
	ScrollPlaneHeight int `mapstructure:"scroll_plane_height"`

	BlockWidth  int `mapstructure:"block_width"`
	BlockHeight int `mapstructure:"block_height"`

	// Capacity of the tile and terrain tile stores. Terrain ids share the
	// collision word with flags, so they are limited to 11 bits minus the
	// "no collision" sentinel.
	MaxTiles        int `mapstructure:"max_tiles"`
	MaxTerrainTiles int `mapstructure:"max_terrain_tiles"`

	// RelaxSolidTiles enables solid-colour tile equivalence in graphics
	// block packing.
	RelaxSolidTiles bool `mapstructure:"relax_solid_tiles"`

	// Granularity is the number of samples taken along each terrain path.
	Granularity int `mapstructure:"granularity"`
}

// MegaDrive is the default target.
var MegaDrive = Config{
	Name:              "megadrive",
	TileWidth:         8,
	TileHeight:        8,
	ScrollPlaneWidth:  64,
	ScrollPlaneHeight: 32,
	BlockWidth:        4,
	BlockHeight:       4,
	MaxTiles:          2048,
	MaxTerrainTiles:   2047,
	RelaxSolidTiles:   true,
	Granularity:       2000,
}

// SNES has the same tile geometry but no flip cost on solid tiles worth
// collapsing for.
var SNES = Config{
	Name:              "snes",
	TileWidth:         8,
	TileHeight:        8,
	ScrollPlaneWidth:  32,
	ScrollPlaneHeight: 32,
	BlockWidth:        4,
	BlockHeight:       4,
	MaxTiles:          1024,
	MaxTerrainTiles:   1024,
	RelaxSolidTiles:   false,
	Granularity:       2000,
}

var presets = []Config{MegaDrive, SNES}

// Lookup returns the preset with the given name.
func Lookup(name string) (Config, bool) {
	for _, c := range presets {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Config{}, false
}

const (
	maxTileID        = 1<<11 - 1
	maxTerrainTileID = 1<<11 - 2
)

func (c Config) Validate() error {
	switch {
	case c.TileWidth <= 0 || c.TileHeight <= 0:
		return fmt.Errorf("%w: tile size %dx%d", ErrInvalidConfig, c.TileWidth, c.TileHeight)
	case c.TileHeight > 127:
		return fmt.Errorf("%w: tile height %d does not fit a signed byte", ErrInvalidConfig, c.TileHeight)
	case c.BlockWidth <= 0 || c.BlockHeight <= 0:
		return fmt.Errorf("%w: block size %dx%d", ErrInvalidConfig, c.BlockWidth, c.BlockHeight)
	case c.ScrollPlaneWidth <= 0 || c.ScrollPlaneHeight <= 0:
		return fmt.Errorf("%w: scroll plane %dx%d", ErrInvalidConfig, c.ScrollPlaneWidth, c.ScrollPlaneHeight)
	case c.MaxTiles <= 0 || c.MaxTiles > maxTileID+1:
		return fmt.Errorf("%w: max tiles %d", ErrInvalidConfig, c.MaxTiles)
	case c.MaxTerrainTiles <= 0 || c.MaxTerrainTiles > maxTerrainTileID+1:
		return fmt.Errorf("%w: max terrain tiles %d", ErrInvalidConfig, c.MaxTerrainTiles)
	case c.Granularity < 2:
		return fmt.Errorf("%w: granularity %d", ErrInvalidConfig, c.Granularity)
	}
	return nil
}

// RoundUp returns n rounded up to the nearest multiple of m.
func RoundUp(n, m int) int {
	return (n + m - 1) / m * m
}
