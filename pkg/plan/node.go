package plan

import (
	"github.com/arraydb/arraydb/pkg/array"
	"github.com/arraydb/arraydb/pkg/dberr"
	"github.com/arraydb/arraydb/pkg/plan/distro"
)

func errNoImpl(name string) error {
	return dberr.Newf(dberr.FunctionNotFound, "plan", "no physical implementation registered for %q", name)
}

// Node is a physical operator plus children, caching its inferred
// distribution, boundaries, and width per spec.md §4.4.
type Node struct {
	Op       PhysicalOperator
	Children []*Node
	Schema   *array.Descriptor

	// Movable is true iff the optimizer inserted this node (as opposed to
	// a user-written one); only movable SG nodes may be collapsed or
	// rewritten by the optimizer's later passes (spec.md §4.5 invariant).
	Movable bool

	// TileMode records whether this node's expression parameters were
	// compiled in batched tile mode (spec.md §4.5 step 2); step 8 inserts
	// a materializer wherever this flag differs between parent and child.
	TileMode bool

	distCached     bool
	dist           distro.Distribution
	boundsCached   bool
	bounds         array.Boundary
	widthCached    bool
	width          float64
}

// Distribution returns (and caches) this node's output distribution.
func (n *Node) Distribution() distro.Distribution {
	if n.distCached {
		return n.dist
	}
	inputs := make([]distro.Distribution, len(n.Children))
	schemas := make([]*array.Descriptor, len(n.Children))
	for i, c := range n.Children {
		inputs[i] = c.Distribution()
		schemas[i] = c.Schema
	}
	n.dist = n.Op.GetOutputDistribution(inputs, schemas)
	n.distCached = true
	return n.dist
}

// Boundaries returns (and caches) this node's logical bounding box.
func (n *Node) Boundaries() array.Boundary {
	if n.boundsCached {
		return n.bounds
	}
	inputs := make([]array.Boundary, len(n.Children))
	schemas := make([]*array.Descriptor, len(n.Children))
	for i, c := range n.Children {
		inputs[i] = c.Boundaries()
		schemas[i] = c.Schema
	}
	n.bounds = n.Op.GetOutputBoundaries(inputs, schemas)
	n.boundsCached = true
	return n.bounds
}

// Width returns (and caches) this node's estimated bytes-per-cell.
func (n *Node) Width() float64 {
	if n.widthCached {
		return n.width
	}
	n.width = n.Op.GetDataWidth()
	n.widthCached = true
	return n.width
}

// InvalidateCache clears this node's cached distribution/boundaries/
// width, needed after the optimizer rewrites it in place (e.g. promoting
// an SG's target partitioning).
func (n *Node) InvalidateCache() {
	n.distCached, n.boundsCached, n.widthCached = false, false, false
}

// ChunkPreserving reports whether this node preserves its children's
// chunk boundaries, consulting each child's own chunk-preservation in
// turn (a node with a non-chunk-preserving ancestor is itself treated as
// non-chunk-preserving by IsChunkPreserving's input vector).
func (n *Node) ChunkPreserving() bool {
	inputs := make([]bool, len(n.Children))
	for i, c := range n.Children {
		inputs[i] = c.ChunkPreserving()
	}
	return n.Op.IsChunkPreserving(inputs)
}

// Walk visits n and every descendant, post-order (children before
// parent).
func (n *Node) Walk(fn func(*Node)) {
	for _, c := range n.Children {
		c.Walk(fn)
	}
	fn(n)
}
