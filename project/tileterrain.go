package project

import (
	"errors"
	"fmt"
	"slices"

	"github.com/eak1mov/go-beehive/rasterize"
	"github.com/eak1mov/go-beehive/terrain"
	"github.com/eak1mov/go-beehive/tile"
	"github.com/eak1mov/go-beehive/tilemap"
)

// GenerateTerrainFromTiles derives terrain for one map from its graphics,
// with stamps baked in and flips applied. Each tile below the top row becomes
// a height profile: a column's height runs from the bottom of the tile to its
// topmost non-zero pixel. A tile filled along its top edge gets no terrain
// when the tile above is filled along its bottom edge.
//
// Profiles are deduplicated against the terrain store and written to the
// collision map. Cells without a profile keep their terrain and flags. If
// the store cannot hold the new tiles nothing changes.
func (p *Project) GenerateTerrainFromTiles(name string) (rasterize.Report, error) {
	m, ok := p.Maps[name]
	if !ok {
		return rasterize.Report{}, fmt.Errorf("%w: %q", ErrMapNotFound, name)
	}
	c := p.Collision[name]

	width, height := m.Width(), m.Height()
	cells := slices.Clone(m.Cells())
	for _, pl := range m.Placements {
		if s := p.stamp(pl.Stamp); s != nil {
			tilemap.Bake(cells, width, height, pl.X, pl.Y, s, pl.Flags)
		}
	}
	graphic := func(x, y int) *tile.Tile {
		r := cells[y*width+x]
		id, ok := r.ID.Get()
		if !ok || int(id) >= p.Tiles.Len() {
			return nil
		}
		return p.Tiles.Tile(id).Transform(r.Flags & tile.FlipXY)
	}

	type resolved struct {
		x, y    int
		id      int
		pending bool
	}
	var (
		report  rasterize.Report
		out     []resolved
		pending []*terrain.Tile
		byHash  = make(map[uint64][]int)
	)

	for y := 1; y < height; y++ {
		for x := range width {
			t := graphic(x, y)
			if t == nil {
				continue
			}
			if rowFilled(t, 0) {
				if above := graphic(x, y-1); above != nil && rowFilled(above, above.Height-1) {
					continue
				}
			}
			profile := p.Terrain.NewTile()
			heightProfile(t, profile)
			if profile.IsEmpty() {
				continue
			}

			id, err := p.Terrain.FindDuplicate(profile)
			switch {
			case err == nil:
				report.ReusedTiles++
				out = append(out, resolved{x: x, y: y, id: int(id)})
				continue
			case errors.Is(err, terrain.ErrHashCollision):
				p.logger.Error("beehive: terrain tile hash collision", "map", name, "x", x, "y", y, "candidate", id)
				report.Integrity = append(report.Integrity, &rasterize.CellError{Map: name, X: x, Y: y, Err: err})
				continue
			case !errors.Is(err, terrain.ErrNotFound):
				return rasterize.Report{}, &rasterize.CellError{Map: name, X: x, Y: y, Err: err}
			}

			hash := profile.Hash()
			k := slices.IndexFunc(byHash[hash], func(j int) bool { return pending[j].Equal(profile) })
			if k >= 0 {
				k = byHash[hash][k]
				report.ReusedTiles++
			} else {
				k = len(pending)
				pending = append(pending, profile)
				byHash[hash] = append(byHash[hash], k)
			}
			out = append(out, resolved{x: x, y: y, id: k, pending: true})
		}
	}

	if free := p.Terrain.Capacity() - p.Terrain.Len(); len(pending) > free {
		return rasterize.Report{}, fmt.Errorf("%w: map %s needs %d new terrain tiles, %d free",
			terrain.ErrStoreFull, name, len(pending), free)
	}

	base := p.Terrain.Len()
	for _, t := range pending {
		if _, err := p.Terrain.Insert(t); err != nil {
			return rasterize.Report{}, err
		}
	}
	for _, r := range out {
		id := terrain.ID(r.id)
		if r.pending {
			id = terrain.ID(base + r.id)
		}
		c.SetTerrainTile(r.x, r.y, terrain.Some(id))
	}
	report.NewTiles = len(pending)
	report.Cells = len(out)

	p.logger.Info("beehive: terrain generated from tiles", "map", name,
		"cells", report.Cells, "new", report.NewTiles, "reused", report.ReusedTiles)
	return report, errors.Join(integrityErrors(report)...)
}

func integrityErrors(r rasterize.Report) []error {
	errs := make([]error, len(r.Integrity))
	for i, cerr := range r.Integrity {
		errs[i] = cerr
	}
	return errs
}

// heightProfile writes into out, per column, the distance from the bottom of
// t to its topmost non-zero pixel.
func heightProfile(t *tile.Tile, out *terrain.Tile) {
	for x := range t.Width {
		for y := range t.Height {
			if t.At(x, y) != 0 {
				out.SetHeight(x, t.Height-y)
				break
			}
		}
	}
}

// rowFilled reports whether every pixel of row y is non-zero.
func rowFilled(t *tile.Tile, y int) bool {
	for x := range t.Width {
		if t.At(x, y) == 0 {
			return false
		}
	}
	return true
}
