// Package tileset implements the canonical store of unique pixel tiles.
//
// Tiles are addressed by dense ids. Lookups go through a hash index which is
// kept current by Add, RemoveLast, Swap and RecomputeHash. Tiles edited in
// place through Tile must be followed by RecomputeHash. A store built by
// Restore has no index until RebuildIndex is called.
package tileset

import (
	"errors"
	"fmt"
	"iter"

	"github.com/eak1mov/go-beehive/internal/hashindex"
	"github.com/eak1mov/go-beehive/platform"
	"github.com/eak1mov/go-beehive/tile"
)

var (
	ErrStoreFull     = errors.New("beehive: tile store is full")
	ErrNotFound      = errors.New("beehive: tile not found")
	ErrHashCollision = errors.New("beehive: tile hash collision")
)

type Store struct {
	width    int
	height   int
	capacity int

	tiles   []*tile.Tile
	hashes  []uint64
	index   *hashindex.Index[tile.ID]
	indexed bool
}

// New returns an empty indexed store sized for cfg.
func New(cfg platform.Config) *Store {
	return &Store{
		width:    cfg.TileWidth,
		height:   cfg.TileHeight,
		capacity: cfg.MaxTiles,
		index:    hashindex.New[tile.ID](),
		indexed:  true,
	}
}

// Restore returns a store holding tiles in the given order. The store is not
// indexed; RebuildIndex must be called before FindDuplicate.
func Restore(cfg platform.Config, tiles []*tile.Tile) *Store {
	s := New(cfg)
	s.indexed = false
	s.tiles = tiles
	s.hashes = make([]uint64, len(tiles))
	for i, t := range tiles {
		s.hashes[i] = t.Hash()
	}
	return s
}

func (s *Store) Len() int { return len(s.tiles) }

// Indexed reports whether FindDuplicate may be called.
func (s *Store) Indexed() bool { return s.indexed }

func (s *Store) check(id tile.ID) {
	if int(id) >= len(s.tiles) {
		panic(fmt.Sprintf("beehive: tile id %d out of range [0, %d)", id, len(s.tiles)))
	}
}

// Tile returns the stored tile. Edits must be followed by RecomputeHash.
func (s *Store) Tile(id tile.ID) *tile.Tile {
	s.check(id)
	return s.tiles[id]
}

// Hash returns the cached content hash of a tile.
func (s *Store) Hash(id tile.ID) uint64 {
	s.check(id)
	return s.hashes[id]
}

// Add appends a blank tile.
func (s *Store) Add() (tile.ID, error) {
	if len(s.tiles) >= s.capacity {
		return 0, fmt.Errorf("%w: %d tiles", ErrStoreFull, s.capacity)
	}
	id := tile.ID(len(s.tiles))
	t := tile.New(s.width, s.height)
	s.tiles = append(s.tiles, t)
	s.hashes = append(s.hashes, t.Hash())
	if s.indexed {
		s.index.Add(s.hashes[id], id)
	}
	return id, nil
}

// Insert appends a copy of t.
func (s *Store) Insert(t *tile.Tile) (tile.ID, error) {
	id, err := s.Add()
	if err != nil {
		return 0, err
	}
	s.tiles[id].CopyFrom(t)
	s.RecomputeHash(id)
	return id, nil
}

// RemoveLast drops the highest id. Callers deleting another id swap it into
// the last slot first and remap references before calling RemoveLast.
func (s *Store) RemoveLast() {
	if len(s.tiles) == 0 {
		panic("beehive: RemoveLast on empty tile store")
	}
	last := tile.ID(len(s.tiles) - 1)
	if s.indexed {
		s.index.Remove(s.hashes[last], last)
	}
	s.tiles[last] = nil
	s.tiles = s.tiles[:last]
	s.hashes = s.hashes[:last]
}

// Swap exchanges the content of two ids.
func (s *Store) Swap(a, b tile.ID) {
	s.check(a)
	s.check(b)
	if a == b {
		return
	}
	if s.indexed {
		s.index.Remove(s.hashes[a], a)
		s.index.Remove(s.hashes[b], b)
	}
	s.tiles[a], s.tiles[b] = s.tiles[b], s.tiles[a]
	s.hashes[a], s.hashes[b] = s.hashes[b], s.hashes[a]
	if s.indexed {
		s.index.Add(s.hashes[a], a)
		s.index.Add(s.hashes[b], b)
	}
}

// RecomputeHash refreshes the cached hash of id and its index entry.
func (s *Store) RecomputeHash(id tile.ID) {
	s.check(id)
	if s.indexed {
		s.index.Remove(s.hashes[id], id)
	}
	s.hashes[id] = s.tiles[id].Hash()
	if s.indexed {
		s.index.Add(s.hashes[id], id)
	}
}

// RebuildIndex recomputes every hash and repopulates the index.
func (s *Store) RebuildIndex() {
	s.index.Reset()
	for i, t := range s.tiles {
		s.hashes[i] = t.Hash()
		s.index.Add(s.hashes[i], tile.ID(i))
	}
	s.indexed = true
}

// FindDuplicate looks t up under every orientation. It returns the id of the
// stored tile and the flags that transform the stored tile into t.
//
// ErrNotFound means no stored tile hashes like t. ErrHashCollision means a
// hash matched but no candidate is equal to t; the returned id is then the
// first mismatching candidate.
func (s *Store) FindDuplicate(t *tile.Tile) (tile.ID, tile.Flags, error) {
	if !s.indexed {
		panic("beehive: FindDuplicate on unindexed tile store")
	}

	collision := tile.None
	for i, hash := range t.Hashes() {
		f := tile.Orientations[i]
		for _, id := range s.index.Lookup(hash) {
			if s.tiles[id].Transform(f).Equal(t) {
				return id, f, nil
			}
			if !collision.Valid() {
				collision = tile.Some(id)
			}
		}
	}

	if id, ok := collision.Get(); ok {
		return id, 0, fmt.Errorf("%w: candidate %d", ErrHashCollision, id)
	}
	return 0, 0, ErrNotFound
}

func (s *Store) VisitTiles(visitor func(tile.ID, *tile.Tile) error) error {
	for i, t := range s.tiles {
		if err := visitor(tile.ID(i), t); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) All() iter.Seq2[tile.ID, *tile.Tile] {
	return tile.IterTiles(s)
}
