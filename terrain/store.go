package terrain

import (
	"errors"
	"fmt"
	"iter"

	"github.com/eak1mov/go-beehive/internal/hashindex"
	"github.com/eak1mov/go-beehive/platform"
)

var (
	ErrStoreFull     = errors.New("beehive: terrain store is full")
	ErrNotFound      = errors.New("beehive: terrain tile not found")
	ErrHashCollision = errors.New("beehive: terrain tile hash collision")
)

// Store holds unique terrain tiles. Terrain tiles have a single orientation,
// otherwise the store follows the same index rules as the tile store.
type Store struct {
	width    int
	height   int
	capacity int

	tiles   []*Tile
	hashes  []uint64
	index   *hashindex.Index[ID]
	indexed bool
}

func NewStore(cfg platform.Config) *Store {
	return &Store{
		width:    cfg.TileWidth,
		height:   cfg.TileHeight,
		capacity: cfg.MaxTerrainTiles,
		index:    hashindex.New[ID](),
		indexed:  true,
	}
}

// RestoreStore returns an unindexed store holding tiles in order.
func RestoreStore(cfg platform.Config, tiles []*Tile) *Store {
	s := NewStore(cfg)
	s.indexed = false
	for _, t := range tiles {
		t.height = cfg.TileHeight
		s.tiles = append(s.tiles, t)
		s.hashes = append(s.hashes, t.Hash())
	}
	return s
}

// NewTile returns a blank tile sized for the store.
func (s *Store) NewTile() *Tile {
	return NewTile(s.width, s.height)
}

func (s *Store) Len() int { return len(s.tiles) }
func (s *Store) Indexed() bool { return s.indexed }
func (s *Store) Capacity() int { return s.capacity }

func (s *Store) check(id ID) {
	if int(id) >= len(s.tiles) {
		panic(fmt.Sprintf("beehive: terrain tile id %d out of range [0, %d)", id, len(s.tiles)))
	}
}

func (s *Store) Tile(id ID) *Tile {
	s.check(id)
	return s.tiles[id]
}

func (s *Store) Hash(id ID) uint64 {
	s.check(id)
	return s.hashes[id]
}

func (s *Store) Add() (ID, error) {
	if len(s.tiles) >= s.capacity {
		return 0, fmt.Errorf("%w: %d terrain tiles", ErrStoreFull, s.capacity)
	}
	id := ID(len(s.tiles))
	t := s.NewTile()
	s.tiles = append(s.tiles, t)
	s.hashes = append(s.hashes, t.Hash())
	if s.indexed {
		s.index.Add(s.hashes[id], id)
	}
	return id, nil
}

// Insert appends a copy of t.
func (s *Store) Insert(t *Tile) (ID, error) {
	id, err := s.Add()
	if err != nil {
		return 0, err
	}
	copy(s.tiles[id].Heights, t.Heights)
	s.RecomputeHash(id)
	return id, nil
}

func (s *Store) RemoveLast() {
	if len(s.tiles) == 0 {
		panic("beehive: RemoveLast on empty terrain store")
	}
	last := ID(len(s.tiles) - 1)
	if s.indexed {
		s.index.Remove(s.hashes[last], last)
	}
	s.tiles[last] = nil
	s.tiles = s.tiles[:last]
	s.hashes = s.hashes[:last]
}

func (s *Store) Swap(a, b ID) {
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

func (s *Store) RecomputeHash(id ID) {
	s.check(id)
	if s.indexed {
		s.index.Remove(s.hashes[id], id)
	}
	s.hashes[id] = s.tiles[id].Hash()
	if s.indexed {
		s.index.Add(s.hashes[id], id)
	}
}

func (s *Store) RebuildIndex() {
	s.index.Reset()
	for i, t := range s.tiles {
		s.hashes[i] = t.Hash()
		s.index.Add(s.hashes[i], ID(i))
	}
	s.indexed = true
}

// Reset removes every tile.
func (s *Store) Reset() {
	s.tiles = nil
	s.hashes = nil
	s.index.Reset()
	s.indexed = true
}

// FindDuplicate returns the id of a stored tile equal to t. A hash hit without
// an equal candidate is reported as ErrHashCollision with that candidate id.
func (s *Store) FindDuplicate(t *Tile) (ID, error) {
	if !s.indexed {
		panic("beehive: FindDuplicate on unindexed terrain store")
	}
	candidates := s.index.Lookup(t.Hash())
	for _, id := range candidates {
		if s.tiles[id].Equal(t) {
			return id, nil
		}
	}
	if len(candidates) > 0 {
		return candidates[0], fmt.Errorf("%w: candidate %d", ErrHashCollision, candidates[0])
	}
	return 0, ErrNotFound
}

func (s *Store) All() iter.Seq2[ID, *Tile] {
	return func(yield func(ID, *Tile) bool) {
		for i, t := range s.tiles {
			if !yield(ID(i), t) {
				return
			}
		}
	}
}
