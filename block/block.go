// Package block partitions a dense field of tile references into fixed-size
// blocks and assigns each distinct block a dense index.
//
// Pack is a pure function: it never modifies its input, and the same field,
// block size, padding and equivalence always produce the same result
// regardless of worker count.
package block

import (
	"errors"
	"fmt"
	"slices"
)

var ErrInvalidField = errors.New("beehive: invalid block field")

// Cell is a tile (or terrain tile) id with its placement flags.
type Cell struct {
	ID    uint32
	Flags uint32
}

// Equivalence reports whether two differing cells may share a block.
// A nil Equivalence is strict equality.
type Equivalence func(a, b Cell) bool

// Strict accepts only identical cells.
func Strict(a, b Cell) bool { return a == b }

// SolidRelaxed treats two solid-colour cells as equal when their tiles show
// identical content and their flags differ only in bits outside keep. Any
// other pair of cells must be identical.
func SolidRelaxed(sameContent func(a, b uint32) bool, solid func(id uint32) bool, keep uint32) Equivalence {
	return func(a, b Cell) bool {
		if a == b {
			return true
		}
		if !solid(a.ID) || !solid(b.ID) || !sameContent(a.ID, b.ID) {
			return false
		}
		return a.Flags&keep == b.Flags&keep
	}
}

// Pad supplies cells beyond the field extent.
type Pad func(f Field, x, y int) Cell

// PadFill pads with a constant cell.
func PadFill(c Cell) Pad {
	return func(Field, int, int) Cell { return c }
}

// PadEdge pads with the nearest cell of the last column or row.
func PadEdge(f Field, x, y int) Cell {
	return f.Cells[min(y, f.Height-1)*f.Width+min(x, f.Width-1)]
}

// Field is a row-major grid of cells.
type Field struct {
	Width  int
	Height int
	Cells  []Cell
}

// Dims is a block size in cells.
type Dims struct {
	Width  int
	Height int
}

// Block is the row-major cell list of one block.
type Block struct {
	Cells []Cell
}

func (b Block) Equal(o Block, eq Equivalence) bool {
	if eq == nil {
		eq = Strict
	}
	for i, c := range b.Cells {
		if c != o.Cells[i] && !eq(c, o.Cells[i]) {
			return false
		}
	}
	return true
}

// Result holds the blocks of a padded field and their dense indices.
type Result struct {
	Dims         Dims
	WidthBlocks  int
	HeightBlocks int

	// Blocks lists every block of the padded field, row-major by block.
	Blocks []Block

	indices []int
	unique  []int
}

func (r *Result) offset(bx, by int) int {
	if bx < 0 || by < 0 || bx >= r.WidthBlocks || by >= r.HeightBlocks {
		panic(fmt.Sprintf("beehive: block (%d, %d) out of range %dx%d", bx, by, r.WidthBlocks, r.HeightBlocks))
	}
	return by*r.WidthBlocks + bx
}

// Index returns the unique index of the block at block coordinates (bx, by).
func (r *Result) Index(bx, by int) int {
	return r.indices[r.offset(bx, by)]
}

// CellIndex returns the unique index of the block containing cell (x, y) of
// the padded field.
func (r *Result) CellIndex(x, y int) int {
	return r.Index(x/r.Dims.Width, y/r.Dims.Height)
}

// Indices returns the block map: one unique index per block, row-major.
func (r *Result) Indices() []int {
	return slices.Clone(r.indices)
}

func (r *Result) NumUnique() int {
	return len(r.unique)
}

// Unique returns the representative blocks in index order.
func (r *Result) Unique() []Block {
	blocks := make([]Block, len(r.unique))
	for i, pos := range r.unique {
		blocks[i] = r.Blocks[pos]
	}
	return blocks
}

// Pack splits the field into blocks of size dims, padding the field up to a
// multiple of dims with pad, and deduplicates blocks under eq.
func Pack(f Field, dims Dims, pad Pad, eq Equivalence, opts ...Option) (*Result, error) {
	config := packConfig{
		Workers: 1,
		Scan:    ScanRowMajor,
	}
	for _, opt := range opts {
		opt(&config)
	}

	if dims.Width <= 0 || dims.Height <= 0 {
		return nil, fmt.Errorf("%w: block size %dx%d", ErrInvalidField, dims.Width, dims.Height)
	}
	if f.Width < 0 || f.Height < 0 || len(f.Cells) != f.Width*f.Height {
		return nil, fmt.Errorf("%w: %d cells for %dx%d", ErrInvalidField, len(f.Cells), f.Width, f.Height)
	}
	if eq == nil {
		eq = Strict
	}

	r := &Result{
		Dims:         dims,
		WidthBlocks:  (f.Width + dims.Width - 1) / dims.Width,
		HeightBlocks: (f.Height + dims.Height - 1) / dims.Height,
	}
	if r.WidthBlocks == 0 || r.HeightBlocks == 0 {
		r.WidthBlocks, r.HeightBlocks = 0, 0
		return r, nil
	}
	if pad == nil {
		pad = PadFill(Cell{})
	}

	r.Blocks = make([]Block, 0, r.WidthBlocks*r.HeightBlocks)
	for by := range r.HeightBlocks {
		for bx := range r.WidthBlocks {
			cells := make([]Cell, 0, dims.Width*dims.Height)
			for ty := range dims.Height {
				for tx := range dims.Width {
					x, y := bx*dims.Width+tx, by*dims.Height+ty
					if x < f.Width && y < f.Height {
						cells = append(cells, f.Cells[y*f.Width+x])
					} else {
						cells = append(cells, pad(f, x, y))
					}
				}
			}
			r.Blocks = append(r.Blocks, Block{Cells: cells})
		}
	}

	order, err := config.Scan.order(r.WidthBlocks, r.HeightBlocks)
	if err != nil {
		return nil, err
	}
	r.indices, r.unique, err = dedup(r.Blocks, order, eq, config.Workers)
	if err != nil {
		return nil, err
	}
	return r, nil
}
