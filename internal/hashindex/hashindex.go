// Package hashindex maps 64-bit content hashes to the ids of entries that
// produced them. Equal hashes are only candidates: callers must compare
// content before treating two entries as duplicates.
package hashindex

import "slices"

type Index[ID comparable] struct {
	buckets map[uint64][]ID
}

func New[ID comparable]() *Index[ID] {
	return &Index[ID]{buckets: make(map[uint64][]ID)}
}

func (x *Index[ID]) Add(hash uint64, id ID) {
	x.buckets[hash] = append(x.buckets[hash], id)
}

// Remove drops one occurrence of id from the bucket of hash.
func (x *Index[ID]) Remove(hash uint64, id ID) {
	bucket := x.buckets[hash]
	i := slices.Index(bucket, id)
	if i < 0 {
		return
	}
	bucket = slices.Delete(bucket, i, i+1)
	if len(bucket) == 0 {
		delete(x.buckets, hash)
		return
	}
	x.buckets[hash] = bucket
}

// Lookup returns candidates in insertion order. The slice must not be modified.
func (x *Index[ID]) Lookup(hash uint64) []ID {
	return x.buckets[hash]
}

func (x *Index[ID]) Reset() {
	clear(x.buckets)
}

// Len returns the number of distinct hashes.
func (x *Index[ID]) Len() int {
	return len(x.buckets)
}
