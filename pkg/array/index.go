package array

import (
	"github.com/google/btree"

	"github.com/arraydb/arraydb/pkg/chunk"
)

// chunkKey orders chunks by dimension-major linearized chunk position
// within one (arrayID, attributeID) pair, backing the ordered chunk index
// an array's attribute iterator walks.
type chunkKey struct {
	pos  []int64
	addr chunk.Address
}

func (k chunkKey) Less(other btree.Item) bool {
	o := other.(chunkKey)
	for i := range k.pos {
		if i >= len(o.pos) {
			return false
		}
		if k.pos[i] != o.pos[i] {
			return k.pos[i] < o.pos[i]
		}
	}
	return false
}

// ChunkIndex is the ordered index of one attribute's chunk positions,
// giving the array iterator ordered traversal and the optimizer's
// boundary computation an efficient range query, per SPEC_FULL's §4.2
// expansion ("instead of sorting a slice on every call").
type ChunkIndex struct {
	tree *btree.BTree
}

// NewChunkIndex returns an empty index.
func NewChunkIndex() *ChunkIndex {
	return &ChunkIndex{tree: btree.New(32)}
}

// Insert records a chunk's position in the index.
func (idx *ChunkIndex) Insert(pos []int64, addr chunk.Address) {
	idx.tree.ReplaceOrInsert(chunkKey{pos: pos, addr: addr})
}

// Delete removes a chunk's position from the index.
func (idx *ChunkIndex) Delete(pos []int64) {
	idx.tree.Delete(chunkKey{pos: pos})
}

// Len returns the number of indexed chunk positions.
func (idx *ChunkIndex) Len() int { return idx.tree.Len() }

// Ascend visits every indexed address in dimension-major order.
func (idx *ChunkIndex) Ascend(fn func(addr chunk.Address) bool) {
	idx.tree.Ascend(func(it btree.Item) bool {
		return fn(it.(chunkKey).addr)
	})
}

// AscendRange visits every indexed address whose position lies within
// [lo, hi] inclusive on every dimension, in dimension-major order.
func (idx *ChunkIndex) AscendRange(lo, hi []int64, fn func(addr chunk.Address) bool) {
	idx.tree.AscendRange(chunkKey{pos: lo}, chunkKey{pos: bump(hi)}, func(it btree.Item) bool {
		k := it.(chunkKey)
		for i := range lo {
			if i >= len(k.pos) || k.pos[i] < lo[i] || k.pos[i] > hi[i] {
				return true
			}
		}
		return fn(k.addr)
	})
}

// bump returns the position immediately after hi in dimension-major
// order, giving AscendRange an exclusive upper bound that still includes
// hi itself (btree's AscendRange excludes its "to" item).
func bump(hi []int64) []int64 {
	out := append([]int64{}, hi...)
	if len(out) > 0 {
		out[len(out)-1]++
	}
	return out
}
