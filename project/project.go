// Package project ties the tile and terrain stores to the maps that reference
// them, and keeps those references consistent across edits, cleanup and
// terrain generation.
package project

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/eak1mov/go-beehive/block"
	"github.com/eak1mov/go-beehive/collision"
	"github.com/eak1mov/go-beehive/platform"
	"github.com/eak1mov/go-beehive/terrain"
	"github.com/eak1mov/go-beehive/tile"
	"github.com/eak1mov/go-beehive/tilemap"
	"github.com/eak1mov/go-beehive/tileset"
)

var (
	ErrMapNotFound       = errors.New("beehive: map not found")
	ErrMapExists         = errors.New("beehive: map already exists")
	ErrStampNotFound     = errors.New("beehive: stamp not found")
	ErrStampSizeMismatch = errors.New("beehive: stamp size mismatch")
	ErrColorOutOfRange   = errors.New("beehive: colour index outside the palette")
)

// Project is the unit of work of the pipeline. Every graphics map has a
// collision map of the same name and size.
type Project struct {
	Config platform.Config

	Tiles   *tileset.Store
	Terrain *terrain.Store

	Maps      map[string]*tilemap.Map
	Collision map[string]*collision.Map
	Stamps    map[tilemap.StampID]*tilemap.Stamp

	// Background pads graphics blocks and replaces empty map cells.
	Background tile.MaybeID
	// DefaultTerrain pads terrain blocks and replaces cells without terrain.
	DefaultTerrain terrain.MaybeID

	logger   *slog.Logger
	workers  int
	scan     block.Scan
	progress func(name string)
}

type projectConfig struct {
	Logger   *slog.Logger
	Workers  int
	Scan     block.Scan
	Progress func(name string)
}

type Option func(*projectConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *projectConfig) { c.Logger = logger }
}

// WithWorkers bounds the goroutines used by terrain generation and block
// packing.
func WithWorkers(n int) Option {
	return func(c *projectConfig) { c.Workers = max(n, 1) }
}

// WithScanOrder sets the order in which packed blocks receive indices.
func WithScanOrder(scan block.Scan) Option {
	return func(c *projectConfig) { c.Scan = scan }
}

// WithProgress registers a callback run after each map of a per-map pass.
func WithProgress(fn func(name string)) Option {
	return func(c *projectConfig) { c.Progress = fn }
}

// New returns an empty project for cfg.
func New(cfg platform.Config, opts ...Option) (*Project, error) {
	return Restore(cfg, tileset.New(cfg), terrain.NewStore(cfg), opts...)
}

// Restore returns a project around existing stores. Store indices are
// rebuilt, so restored stores are ready for deduplication.
func Restore(cfg platform.Config, tiles *tileset.Store, terrainTiles *terrain.Store, opts ...Option) (*Project, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	config := projectConfig{
		Logger:   slog.New(slog.DiscardHandler),
		Workers:  1,
		Progress: func(string) {},
	}
	for _, opt := range opts {
		opt(&config)
	}

	tiles.RebuildIndex()
	terrainTiles.RebuildIndex()
	return &Project{
		Config:    cfg,
		Tiles:     tiles,
		Terrain:   terrainTiles,
		Maps:      make(map[string]*tilemap.Map),
		Collision: make(map[string]*collision.Map),
		Stamps:    make(map[tilemap.StampID]*tilemap.Stamp),
		logger:    config.Logger,
		workers:   config.Workers,
		scan:      config.Scan,
		progress:  config.Progress,
	}, nil
}

// MapNames returns map names in sorted order.
func (p *Project) MapNames() []string {
	return slices.Sorted(maps.Keys(p.Maps))
}

// AddMap creates a graphics map and its collision map.
func (p *Project) AddMap(name string, width, height int) (*tilemap.Map, *collision.Map, error) {
	if _, ok := p.Maps[name]; ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrMapExists, name)
	}
	m := tilemap.New(name, width, height)
	c := collision.New(p.Config, name, width, height)
	p.Maps[name], p.Collision[name] = m, c
	return m, c, nil
}

// AttachMap adds restored maps. A missing collision map is created empty.
func (p *Project) AttachMap(m *tilemap.Map, c *collision.Map) error {
	if _, ok := p.Maps[m.Name]; ok {
		return fmt.Errorf("%w: %q", ErrMapExists, m.Name)
	}
	if c == nil {
		c = collision.New(p.Config, m.Name, m.Width(), m.Height())
	}
	if c.Width() != m.Width() || c.Height() != m.Height() {
		return fmt.Errorf("beehive: collision map %q is %dx%d, graphics map is %dx%d",
			m.Name, c.Width(), c.Height(), m.Width(), m.Height())
	}
	p.Maps[m.Name], p.Collision[m.Name] = m, c
	return nil
}

func (p *Project) RemoveMap(name string) error {
	if _, ok := p.Maps[name]; !ok {
		return fmt.Errorf("%w: %q", ErrMapNotFound, name)
	}
	delete(p.Maps, name)
	delete(p.Collision, name)
	return nil
}

// ResizeMap resizes a graphics map and its collision map together.
func (p *Project) ResizeMap(name string, width, height int, shiftRight, shiftDown bool) error {
	m, ok := p.Maps[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrMapNotFound, name)
	}
	m.Resize(width, height, shiftRight, shiftDown)
	p.Collision[name].Resize(width, height, shiftRight, shiftDown)
	return nil
}

// AddStamp creates a blank stamp with the next free id.
func (p *Project) AddStamp(name string, width, height int) *tilemap.Stamp {
	var id tilemap.StampID
	for existing := range p.Stamps {
		id = max(id, existing+1)
	}
	s := tilemap.NewStamp(id, width, height)
	s.Name = name
	p.Stamps[id] = s
	return s
}

// RemoveStamp deletes a stamp and every placement of it.
func (p *Project) RemoveStamp(id tilemap.StampID) error {
	if _, ok := p.Stamps[id]; !ok {
		return fmt.Errorf("%w: %d", ErrStampNotFound, id)
	}
	delete(p.Stamps, id)
	for _, m := range p.Maps {
		m.RemovePlacements(id)
	}
	return nil
}

// ReplaceStamp overwrites the cells of a stamp. The new content must have the
// stamp's size.
func (p *Project) ReplaceStamp(id tilemap.StampID, cells []tile.Ref, width, height int) error {
	s, ok := p.Stamps[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrStampNotFound, id)
	}
	if width != s.Width || height != s.Height || len(cells) != width*height {
		return fmt.Errorf("%w: stamp %d is %dx%d, got %dx%d", ErrStampSizeMismatch, id, s.Width, s.Height, width, height)
	}
	copy(s.Cells, cells)
	return nil
}

func (p *Project) stamp(id tilemap.StampID) *tilemap.Stamp {
	return p.Stamps[id]
}

// Stats summarises project contents.
type Stats struct {
	Tiles        int
	TerrainTiles int
	Maps         int
	Stamps       int
	Placements   int
	Paths        int
}

func (p *Project) Stats() Stats {
	s := Stats{
		Tiles:        p.Tiles.Len(),
		TerrainTiles: p.Terrain.Len(),
		Maps:         len(p.Maps),
		Stamps:       len(p.Stamps),
	}
	for _, m := range p.Maps {
		s.Placements += len(m.Placements)
	}
	for _, c := range p.Collision {
		s.Paths += len(c.Paths)
	}
	return s
}

// remapTiles applies f to every tile reference in maps, stamps and the
// background.
func (p *Project) remapTiles(f func(tile.Ref) tile.Ref) {
	for _, m := range p.Maps {
		m.Remap(f)
	}
	for _, s := range p.Stamps {
		s.Remap(f)
	}
	if p.Background.Valid() {
		p.Background = f(tile.Ref{ID: p.Background}).ID
	}
}

func (p *Project) remapTerrain(f func(terrain.MaybeID) terrain.MaybeID) {
	for _, c := range p.Collision {
		c.Remap(f)
	}
	if p.DefaultTerrain.Valid() {
		p.DefaultTerrain = f(p.DefaultTerrain)
	}
}

// DeleteTile removes a tile by moving the last tile into its slot. References
// to the deleted tile become empty and references to the last tile follow it.
func (p *Project) DeleteTile(id tile.ID) {
	if int(id) >= p.Tiles.Len() {
		panic(fmt.Sprintf("beehive: tile id %d out of range [0, %d)", id, p.Tiles.Len()))
	}
	last := tile.ID(p.Tiles.Len() - 1)
	p.remapTiles(func(r tile.Ref) tile.Ref {
		switch got, ok := r.ID.Get(); {
		case !ok:
		case got == id:
			return tile.Ref{}
		case got == last:
			r.ID = tile.Some(id)
		}
		return r
	})
	p.Tiles.Swap(id, last)
	p.Tiles.RemoveLast()
	if id != last {
		p.Tiles.RecomputeHash(id)
	}
	p.logger.Debug("beehive: tile deleted", "id", id, "moved", last)
}

// DeleteTerrainTile removes a terrain tile the same way DeleteTile does.
func (p *Project) DeleteTerrainTile(id terrain.ID) {
	if int(id) >= p.Terrain.Len() {
		panic(fmt.Sprintf("beehive: terrain tile id %d out of range [0, %d)", id, p.Terrain.Len()))
	}
	last := terrain.ID(p.Terrain.Len() - 1)
	p.remapTerrain(func(m terrain.MaybeID) terrain.MaybeID {
		switch got, ok := m.Get(); {
		case !ok:
		case got == id:
			return terrain.None
		case got == last:
			return terrain.Some(id)
		}
		return m
	})
	p.Terrain.Swap(id, last)
	p.Terrain.RemoveLast()
	if id != last {
		p.Terrain.RecomputeHash(id)
	}
	p.logger.Debug("beehive: terrain tile deleted", "id", id, "moved", last)
}
