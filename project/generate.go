package project

import (
	"errors"
	"fmt"

	"github.com/eak1mov/go-beehive/block"
	"github.com/eak1mov/go-beehive/collision"
	"github.com/eak1mov/go-beehive/rasterize"
	"github.com/eak1mov/go-beehive/terrain"
	"github.com/eak1mov/go-beehive/tile"
)

// MapReport is the terrain generation report of one collision map.
type MapReport struct {
	Name   string
	Report rasterize.Report
}

// GenerateTerrain rebuilds the terrain store from the paths of every
// collision map. The new store starts with a single blank tile, which becomes
// the default terrain tile, and maps are generated in name order.
//
// Generation runs on copies of the collision maps and a fresh store, which
// replace the project's only when every map succeeded: a full store leaves
// the project as it was. Hash collisions do not stop generation and are
// returned joined after all maps are done.
func (p *Project) GenerateTerrain() ([]MapReport, error) {
	store := terrain.NewStore(p.Config)
	id, err := store.Add()
	if err != nil {
		return nil, err
	}

	gen := rasterize.New(p.Config,
		rasterize.WithLogger(p.logger),
		rasterize.WithWorkers(p.workers),
	)

	var (
		names     = p.MapNames()
		generated = make([]*collision.Map, len(names))
		reports   []MapReport
		integrity []error
	)
	for i, name := range names {
		c := p.Collision[name].Clone()
		report, err := gen.Generate(c, store)
		if err != nil {
			return nil, fmt.Errorf("map %q: %w", name, err)
		}
		integrity = append(integrity, integrityErrors(report)...)
		generated[i] = c
		reports = append(reports, MapReport{Name: name, Report: report})
		p.logger.Info("beehive: terrain generated", "map", name,
			"cells", report.Cells, "new", report.NewTiles, "reused", report.ReusedTiles)
		p.progress(name)
	}

	for i, name := range names {
		*p.Collision[name] = *generated[i]
	}
	p.Terrain = store
	p.DefaultTerrain = terrain.Some(id)
	return reports, errors.Join(integrity...)
}

// MapBlocks is the block packing result of one map.
type MapBlocks struct {
	Name   string
	Result *block.Result
}

func (p *Project) dims() block.Dims {
	return block.Dims{Width: p.Config.BlockWidth, Height: p.Config.BlockHeight}
}

// TileCell converts a tile reference into a block cell.
func TileCell(r tile.Ref) block.Cell {
	id, _ := r.ID.Get()
	return block.Cell{ID: uint32(id), Flags: uint32(r.Flags)}
}

// tileEquivalence compares block cells by tile content. With relaxed solid
// tiles enabled, flips of solid-colour tiles are ignored but the plane bit is
// kept.
func (p *Project) tileEquivalence() block.Equivalence {
	if !p.Config.RelaxSolidTiles {
		return block.Strict
	}
	lookup := func(id uint32) *tile.Tile {
		if int(id) >= p.Tiles.Len() {
			return nil
		}
		return p.Tiles.Tile(tile.ID(id))
	}
	sameContent := func(a, b uint32) bool {
		if a == b {
			return true
		}
		ta, tb := lookup(a), lookup(b)
		return ta != nil && tb != nil && ta.Equal(tb)
	}
	solid := func(id uint32) bool {
		t := lookup(id)
		return t != nil && t.IsSolid()
	}
	return block.SolidRelaxed(sameContent, solid, uint32(tile.HighPlane))
}

// PackBlocks packs every graphics map, with stamps baked in, into blocks.
// Each map is packed on its own.
func (p *Project) PackBlocks() ([]MapBlocks, error) {
	background, _ := p.Background.Get()
	dims := p.dims()
	eq := p.tileEquivalence()

	var out []MapBlocks
	for _, name := range p.MapNames() {
		refs, width, height := p.Maps[name].Field(dims.Width, dims.Height, background, p.stamp)
		f := block.Field{Width: width, Height: height, Cells: make([]block.Cell, len(refs))}
		for i, r := range refs {
			f.Cells[i] = TileCell(r)
		}
		r, err := block.Pack(f, dims, block.PadFill(TileCell(tile.Ref{ID: tile.Some(background)})), eq,
			block.WithWorkers(p.workers), block.WithScanOrder(p.scan))
		if err != nil {
			return nil, fmt.Errorf("map %q: %w", name, err)
		}
		p.logger.Debug("beehive: blocks packed", "map", name, "blocks", len(r.Blocks), "unique", r.NumUnique())
		out = append(out, MapBlocks{Name: name, Result: r})
		p.progress(name)
	}
	return out, nil
}

// PackTerrainBlocks packs every collision map into blocks of collision words.
// Cells without terrain take the default terrain tile and the field is
// padded by repeating its last row and column.
func (p *Project) PackTerrainBlocks() ([]MapBlocks, error) {
	fallback, _ := p.DefaultTerrain.Get()
	dims := p.dims()

	var out []MapBlocks
	for _, name := range p.MapNames() {
		c := p.Collision[name]
		f := block.Field{Width: c.Width(), Height: c.Height(), Cells: make([]block.Cell, 0, c.Width()*c.Height())}
		for y := range c.Height() {
			for x := range c.Width() {
				id, ok := c.TerrainTile(x, y).Get()
				if !ok {
					id = fallback
				}
				f.Cells = append(f.Cells, block.Cell{ID: uint32(id), Flags: uint32(c.Flags(x, y))})
			}
		}
		r, err := block.Pack(f, dims, block.PadEdge, block.Strict,
			block.WithWorkers(p.workers), block.WithScanOrder(p.scan))
		if err != nil {
			return nil, fmt.Errorf("collision map %q: %w", name, err)
		}
		p.logger.Debug("beehive: terrain blocks packed", "map", name, "blocks", len(r.Blocks), "unique", r.NumUnique())
		out = append(out, MapBlocks{Name: name, Result: r})
		p.progress(name)
	}
	return out, nil
}
