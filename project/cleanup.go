package project

import (
	"slices"

	"github.com/eak1mov/go-beehive/collision"
	"github.com/eak1mov/go-beehive/internal/hashindex"
	"github.com/eak1mov/go-beehive/terrain"
	"github.com/eak1mov/go-beehive/tile"
)

// CleanupTiles merges tiles that are duplicates under any orientation and
// removes tiles nothing references. It returns the number of tiles removed.
func (p *Project) CleanupTiles() int {
	type merge struct {
		id    tile.ID
		flags tile.Flags
	}
	merged := make(map[tile.ID]merge)
	seen := hashindex.New[tile.ID]()

	for id, t := range p.Tiles.All() {
		found := false
		for i, hash := range t.Hashes() {
			f := tile.Orientations[i]
			for _, c := range seen.Lookup(hash) {
				if p.Tiles.Tile(c).Transform(f).Equal(t) {
					merged[id] = merge{id: c, flags: f}
					found = true
					break
				}
			}
			if found {
				break
			}
		}
		if !found {
			seen.Add(t.Hash(), id)
		}
	}
	if len(merged) > 0 {
		p.remapTiles(func(r tile.Ref) tile.Ref {
			if id, ok := r.ID.Get(); ok {
				if m, ok := merged[id]; ok {
					return tile.Ref{ID: tile.Some(m.id), Flags: r.Flags ^ m.flags}
				}
			}
			return r
		})
	}

	used := p.usedTiles()
	removed := 0
	for id := p.Tiles.Len() - 1; id >= 0; id-- {
		if !used[id] {
			p.DeleteTile(tile.ID(id))
			removed++
		}
	}
	p.logger.Info("beehive: tiles cleaned up", "merged", len(merged), "removed", removed, "left", p.Tiles.Len())
	return removed
}

func (p *Project) usedTiles() []bool {
	used := make([]bool, p.Tiles.Len())
	mark := func(refs []tile.Ref) {
		for _, r := range refs {
			if id, ok := r.ID.Get(); ok && int(id) < len(used) {
				used[id] = true
			}
		}
	}
	for _, m := range p.Maps {
		mark(m.Cells())
	}
	for _, s := range p.Stamps {
		mark(s.Cells)
	}
	if id, ok := p.Background.Get(); ok && int(id) < len(used) {
		used[id] = true
	}
	return used
}

// CleanupTerrainTiles removes paths without curves, merges duplicate terrain
// tiles and removes terrain tiles nothing references. The default terrain
// tile is always kept. It returns the number of terrain tiles removed.
func (p *Project) CleanupTerrainTiles() int {
	paths := 0
	for _, c := range p.Collision {
		before := len(c.Paths)
		c.Paths = slices.DeleteFunc(c.Paths, func(path *collision.Path) bool { return path.NumCurves() == 0 })
		paths += before - len(c.Paths)
	}

	// The default tile is seeded first so it represents its duplicates and
	// is never merged away.
	merged := make(map[terrain.ID]terrain.ID)
	seen := hashindex.New[terrain.ID]()
	def, hasDefault := p.DefaultTerrain.Get()
	hasDefault = hasDefault && int(def) < p.Terrain.Len()
	if hasDefault {
		seen.Add(p.Terrain.Tile(def).Hash(), def)
	}
	for id, t := range p.Terrain.All() {
		if hasDefault && id == def {
			continue
		}
		hash := t.Hash()
		found := false
		for _, c := range seen.Lookup(hash) {
			if p.Terrain.Tile(c).Equal(t) {
				merged[id] = c
				found = true
				break
			}
		}
		if !found {
			seen.Add(hash, id)
		}
	}
	if len(merged) > 0 {
		p.remapTerrain(func(m terrain.MaybeID) terrain.MaybeID {
			if id, ok := m.Get(); ok {
				if c, ok := merged[id]; ok {
					return terrain.Some(c)
				}
			}
			return m
		})
	}

	used := make([]bool, p.Terrain.Len())
	for _, c := range p.Collision {
		for y := range c.Height() {
			for x := range c.Width() {
				if id, ok := c.TerrainTile(x, y).Get(); ok && int(id) < len(used) {
					used[id] = true
				}
			}
		}
	}
	if id, ok := p.DefaultTerrain.Get(); ok && int(id) < len(used) {
		used[id] = true
	}

	removed := 0
	for id := p.Terrain.Len() - 1; id >= 0; id-- {
		if !used[id] {
			p.DeleteTerrainTile(terrain.ID(id))
			removed++
		}
	}
	p.logger.Info("beehive: terrain tiles cleaned up",
		"paths", paths, "merged", len(merged), "removed", removed, "left", p.Terrain.Len())
	return removed
}
