// Package rasterize converts the bezier paths of a collision map into
// terrain tiles.
//
// Generation runs four phases over one collision map: clear, sample,
// approximate and materialize. Generated terrain is a derived cache and is
// fully rebuilt from the paths on every run.
package rasterize

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/eak1mov/go-beehive/collision"
	"github.com/eak1mov/go-beehive/platform"
	"github.com/eak1mov/go-beehive/terrain"
	"golang.org/x/sync/errgroup"
	"seehuhn.de/go/geom/vec"
)

// CellError attaches a collision map cell to an error.
type CellError struct {
	Map string
	X   int
	Y   int
	Err error
}

func (e *CellError) Error() string {
	return fmt.Sprintf("%s (%d, %d): %v", e.Map, e.X, e.Y, e.Err)
}

func (e *CellError) Unwrap() error { return e.Err }

// Report summarises one Generate call.
type Report struct {
	Cells       int
	NewTiles    int
	ReusedTiles int

	// Integrity lists cells skipped because a stored tile matched by hash
	// but not by content.
	Integrity []*CellError
}

type Generator struct {
	tileWidth   int
	tileHeight  int
	granularity int
	approximate bool
	minCurves   int
	workers     int
	logger      *slog.Logger
}

type generatorConfig struct {
	Granularity int
	Approximate bool
	MinCurves   int
	Workers     int
	Logger      *slog.Logger
}

type Option func(*generatorConfig)

// WithGranularity sets the number of samples per path.
func WithGranularity(n int) Option {
	return func(c *generatorConfig) { c.Granularity = n }
}

// WithApproximation enables or disables straight-line approximation of
// gap-free tiles.
func WithApproximation(enabled bool) Option {
	return func(c *generatorConfig) { c.Approximate = enabled }
}

// WithMinCurves sets the smallest curve count a path needs to be sampled.
func WithMinCurves(n int) Option {
	return func(c *generatorConfig) { c.MinCurves = n }
}

// WithWorkers samples up to n paths concurrently.
func WithWorkers(n int) Option {
	return func(c *generatorConfig) { c.Workers = max(n, 1) }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *generatorConfig) { c.Logger = logger }
}

func New(cfg platform.Config, opts ...Option) *Generator {
	config := generatorConfig{
		Granularity: cfg.Granularity,
		Approximate: true,
		MinCurves:   2,
		Workers:     1,
		Logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Generator{
		tileWidth:   cfg.TileWidth,
		tileHeight:  cfg.TileHeight,
		granularity: config.Granularity,
		approximate: config.Approximate,
		minCurves:   config.MinCurves,
		workers:     config.Workers,
		logger:      config.Logger,
	}
}

// Generate regenerates the terrain of m from its paths, adding new terrain
// tiles to store. If store runs out of room, neither m nor store is modified
// and the error wraps terrain.ErrStoreFull.
func (g *Generator) Generate(m *collision.Map, store *terrain.Store) (Report, error) {
	work := m.Clone()

	Clear(work)
	g.logger.Debug("beehive: terrain cleared", "map", m.Name)

	scratch, err := g.Sample(work)
	if err != nil {
		return Report{}, err
	}
	g.logger.Debug("beehive: terrain sampled", "map", m.Name, "paths", len(work.Paths))

	if g.approximate {
		for _, t := range scratch.Tiles {
			Approximate(t)
		}
	}

	report, err := g.Materialize(work, scratch, store)
	if err != nil {
		return Report{}, err
	}
	copy(m.Words(), work.Words())

	g.logger.Debug("beehive: terrain materialized", "map", m.Name,
		"cells", report.Cells, "new", report.NewTiles, "reused", report.ReusedTiles)
	return report, nil
}

// Clear resets every cell to no terrain, keeping only hand-placed flags.
func Clear(m *collision.Map) {
	for y := range m.Height() {
		for x := range m.Width() {
			m.SetTerrainTile(x, y, terrain.None)
			m.SetFlags(x, y, m.Flags(x, y)&terrain.FlagsManual)
		}
	}
}

// Scratch holds one generated tile and flag set per map cell, row-major.
type Scratch struct {
	Width  int
	Height int
	Tiles  []*terrain.Tile
	Flags  []terrain.Flags
}

func (g *Generator) newScratch(width, height int) *Scratch {
	s := &Scratch{
		Width:  width,
		Height: height,
		Tiles:  make([]*terrain.Tile, width*height),
		Flags:  make([]terrain.Flags, width*height),
	}
	for i := range s.Tiles {
		s.Tiles[i] = terrain.NewTile(g.tileWidth, g.tileHeight)
	}
	return s
}

// Sample walks every path of m and writes column heights into a scratch
// buffer. Paths are evaluated concurrently and applied in path order.
func (g *Generator) Sample(m *collision.Map) (*Scratch, error) {
	scratch := g.newScratch(m.Width(), m.Height())

	samples := make([][]vec.Vec2, len(m.Paths))
	var eg errgroup.Group
	eg.SetLimit(g.workers)
	for i, p := range m.Paths {
		if p.NumCurves() < g.minCurves {
			g.logger.Debug("beehive: skipping short path", "map", m.Name, "path", i, "curves", p.NumCurves())
			continue
		}
		eg.Go(func() error {
			samples[i] = p.Positions(0, 1, g.granularity)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	heightPixels := m.Height() * g.tileHeight
	for i, p := range m.Paths {
		prevX, prevY := -1, -1
		for _, pos := range samples[i] {
			px := int(math.Floor(pos.X))
			py := heightPixels - int(math.Round(pos.Y))
			tx := floorDiv(px, g.tileWidth)
			ty := floorDiv(py, g.tileHeight)

			// The top row is never generated.
			if tx < 0 || tx >= m.Width() || ty <= 0 || ty >= m.Height() {
				continue
			}

			cell := ty*m.Width() + tx
			inX := px - tx*g.tileWidth
			inY := py - ty*g.tileHeight
			scratch.Tiles[cell].SetHeight(inX, min(max(g.tileHeight-inY, 1), g.tileHeight))

			if tx != prevX || ty != prevY {
				scratch.Flags[cell] |= p.Flags
				prevX, prevY = tx, ty
			}
		}
	}
	return scratch, nil
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// HasGaps reports whether the non-empty columns of t are not contiguous.
// It also returns the first and last columns of the leading non-empty run;
// they default to the tile edges when absent.
func HasGaps(t *terrain.Tile) (gaps bool, x1, x2 int) {
	x1, x2 = -1, -1
	for x := range t.Width() {
		if t.Height(x) == 0 {
			if x1 != -1 && x2 == -1 {
				x2 = x - 1
			}
			continue
		}
		if x1 == -1 {
			x1 = x
		}
		if x2 != -1 {
			gaps = true
			break
		}
	}
	if x1 == -1 {
		x1 = 0
	}
	if x2 == -1 {
		x2 = t.Width() - 1
	}
	return gaps, x1, x2
}

// Approximate replaces a gap-free profile with a straight line between its
// first and last non-empty columns. Tiles with gaps are left unchanged.
func Approximate(t *terrain.Tile) {
	gaps, x1, x2 := HasGaps(t)
	if gaps || x1 == x2 {
		return
	}
	y1, y2 := t.Height(x1), t.Height(x2)

	steep := abs(y2-y1) > abs(x2-x1)
	if steep {
		x1, y1 = y1, x1
		x2, y2 = y2, x2
	}
	if x1 > x2 {
		x1, x2 = x2, x1
		y1, y2 = y2, y1
	}

	dx := float64(x2 - x1)
	dy := float64(abs(y2 - y1))
	e := dx / 2
	step := 1
	if y1 > y2 {
		step = -1
	}
	y := y1
	for x := x1; x < x2; x++ {
		if steep {
			t.SetHeight(y, x)
		} else {
			t.SetHeight(x, y)
		}
		e -= dy
		if e < 0 {
			y += step
			e += dx
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Materialize deduplicates every non-empty scratch tile through store and
// writes the resulting ids and flags into m. New tiles are only added to
// store once the whole map is known to fit.
func (g *Generator) Materialize(m *collision.Map, s *Scratch, store *terrain.Store) (Report, error) {
	type resolved struct {
		x, y    int
		id      int // pending index when pending is set
		flags   terrain.Flags
		pending bool
	}

	var (
		report  Report
		cells   []resolved
		pending []*terrain.Tile
		byHash  = make(map[uint64][]int)
	)

	for x := range s.Width {
		for y := range s.Height {
			i := y*s.Width + x
			t := s.Tiles[i]
			if t.IsEmpty() {
				continue
			}

			id, err := store.FindDuplicate(t)
			switch {
			case err == nil:
				report.ReusedTiles++
				cells = append(cells, resolved{x: x, y: y, id: int(id), flags: s.Flags[i]})
				continue
			case errors.Is(err, terrain.ErrHashCollision):
				cerr := &CellError{Map: m.Name, X: x, Y: y, Err: err}
				g.logger.Error("beehive: terrain tile hash collision", "map", m.Name, "x", x, "y", y, "candidate", id)
				report.Integrity = append(report.Integrity, cerr)
				continue
			case !errors.Is(err, terrain.ErrNotFound):
				return Report{}, &CellError{Map: m.Name, X: x, Y: y, Err: err}
			}

			hash := t.Hash()
			found := -1
			for _, k := range byHash[hash] {
				if pending[k].Equal(t) {
					found = k
					break
				}
			}
			if found == -1 {
				found = len(pending)
				pending = append(pending, t)
				byHash[hash] = append(byHash[hash], found)
			} else {
				report.ReusedTiles++
			}
			cells = append(cells, resolved{x: x, y: y, id: found, flags: s.Flags[i], pending: true})
		}
	}

	if free := store.Capacity() - store.Len(); len(pending) > free {
		return Report{}, fmt.Errorf("%w: map %s needs %d new terrain tiles, %d free",
			terrain.ErrStoreFull, m.Name, len(pending), free)
	}

	base := store.Len()
	for _, t := range pending {
		if _, err := store.Insert(t); err != nil {
			return Report{}, err
		}
	}
	report.NewTiles = len(pending)

	for _, c := range cells {
		id := terrain.ID(c.id)
		if c.pending {
			id = terrain.ID(base + c.id)
		}
		m.SetTerrainTile(c.x, c.y, terrain.Some(id))
		m.SetFlags(c.x, c.y, m.Flags(c.x, c.y)&^terrain.FlagsGenerated|c.flags)
	}
	report.Cells = len(cells)
	return report, nil
}
