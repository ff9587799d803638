package tile

import (
	"errors"
	"iter"
)

var errVisitCancelled = errors.New("visit cancelled")

// Visitor is implemented by tile stores.
type Visitor interface {
	// VisitTiles calls visitor for every tile in id order.
	VisitTiles(visitor func(ID, *Tile) error) error
}

// IterTiles returns an iterator over all tiles of the store.
// Iteration panics if visiting fails with an error other than cancellation.
func IterTiles(v Visitor) iter.Seq2[ID, *Tile] {
	return func(yield func(ID, *Tile) bool) {
		err := v.VisitTiles(func(id ID, t *Tile) error {
			if !yield(id, t) {
				return errVisitCancelled
			}
			return nil
		})
		if err != nil && err != errVisitCancelled {
			panic(err)
		}
	}
}

// IterRefs returns an iterator over a row-major grid of refs with their cell coordinates.
func IterRefs(refs []Ref, width int) iter.Seq2[[2]int, Ref] {
	return func(yield func([2]int, Ref) bool) {
		for i, r := range refs {
			if !yield([2]int{i % width, i / width}, r) {
				return
			}
		}
	}
}
