package project

import (
	"errors"
	"fmt"
	"image"

	"github.com/eak1mov/go-beehive/internal/hashindex"
	"github.com/eak1mov/go-beehive/tile"
	"github.com/eak1mov/go-beehive/tileset"
)

// ImportTiles cuts an indexed image into tiles, deduplicates them against the
// tile store under all orientations and returns the row-major grid of
// references. Pixels beyond the last whole tile are ignored. Colour indices
// must be below tile.Colors. If the store cannot hold the new tiles nothing
// is added.
func (p *Project) ImportTiles(img *image.Paletted) (refs []tile.Ref, width, height int, err error) {
	tw, th := p.Config.TileWidth, p.Config.TileHeight
	bounds := img.Bounds()
	width, height = bounds.Dx()/tw, bounds.Dy()/th
	if bounds.Dx()%tw != 0 || bounds.Dy()%th != 0 {
		p.logger.Warn("beehive: image size is not a multiple of the tile size",
			"width", bounds.Dx(), "height", bounds.Dy(), "tile_width", tw, "tile_height", th)
	}

	type pendingRef struct {
		index int
		flags tile.Flags
	}
	var (
		pending      []*tile.Tile
		pendingIndex = hashindex.New[int]()
		resolved     = make(map[int]pendingRef)
	)

	refs = make([]tile.Ref, width*height)
	for ty := range height {
		for tx := range width {
			t := tile.New(tw, th)
			for y := range th {
				for x := range tw {
					px, py := bounds.Min.X+tx*tw+x, bounds.Min.Y+ty*th+y
					c := img.ColorIndexAt(px, py)
					if c >= tile.Colors {
						return nil, 0, 0, fmt.Errorf("%w: pixel (%d, %d) has colour %d", ErrColorOutOfRange, px, py, c)
					}
					t.Set(x, y, c)
				}
			}

			cell := ty*width + tx
			id, flags, err := p.Tiles.FindDuplicate(t)
			switch {
			case err == nil:
				refs[cell] = tile.Ref{ID: tile.Some(id), Flags: flags}
				continue
			case !errors.Is(err, tileset.ErrNotFound):
				return nil, 0, 0, fmt.Errorf("tile (%d, %d): %w", tx, ty, err)
			}

			index, flags := findPending(pending, pendingIndex, t)
			if index == -1 {
				index, flags = len(pending), 0
				pending = append(pending, t)
				pendingIndex.Add(t.Hash(), index)
			}
			resolved[cell] = pendingRef{index: index, flags: flags}
		}
	}

	if free := p.Config.MaxTiles - p.Tiles.Len(); len(pending) > free {
		return nil, 0, 0, fmt.Errorf("%w: image needs %d new tiles, %d free", tileset.ErrStoreFull, len(pending), free)
	}
	base := p.Tiles.Len()
	for _, t := range pending {
		if _, err := p.Tiles.Insert(t); err != nil {
			return nil, 0, 0, err
		}
	}
	for cell, r := range resolved {
		refs[cell] = tile.Ref{ID: tile.Some(tile.ID(base + r.index)), Flags: r.flags}
	}

	p.logger.Debug("beehive: image imported", "cells", len(refs), "new", len(pending))
	return refs, width, height, nil
}

func findPending(pending []*tile.Tile, index *hashindex.Index[int], t *tile.Tile) (int, tile.Flags) {
	for i, hash := range t.Hashes() {
		f := tile.Orientations[i]
		for _, k := range index.Lookup(hash) {
			if pending[k].Transform(f).Equal(t) {
				return k, f
			}
		}
	}
	return -1, 0
}
