package engine

import (
	"github.com/arraydb/arraydb/pkg/chunk"
	"github.com/arraydb/arraydb/pkg/dberr"
	"github.com/arraydb/arraydb/pkg/plan"
	"github.com/arraydb/arraydb/pkg/plan/ops"
	"github.com/arraydb/arraydb/pkg/query"
)

// Executor implements cluster.Executor by walking a physical plan
// bottom-up and touching the chunk cache/catalog at the storage
// boundary: scan reads back an array's tracked chunks, store and
// storingSg record new ones under their target array. Every other
// operator stands in for a relational-style body spec.md §1 treats as
// an external collaborator; this walk only needs their distribution/
// chunk contract (already modeled by pkg/plan/ops), so it passes their
// input chunk set through unchanged.
type Executor struct {
	Engine *Context
}

// NewExecutor returns an Executor bound to e's catalog and cache.
func NewExecutor(e *Context) *Executor {
	return &Executor{Engine: e}
}

// Execute runs q's local slice of plan, satisfying cluster.Executor.
func (x *Executor) Execute(q *query.Query, n *plan.Node) error {
	_, err := x.run(n)
	return err
}

// run executes n's children before n itself, returning the chunk
// addresses n's output now spans.
func (x *Executor) run(n *plan.Node) ([]chunk.Address, error) {
	if n == nil {
		// A worker-side execution whose plan never crossed the wire (the
		// transport only broadcasts identifying information, per
		// netsvc.ClusterTransport's encodePlan); nothing local to do.
		return nil, nil
	}
	childAddrs := make([][]chunk.Address, len(n.Children))
	for i, c := range n.Children {
		addrs, err := x.run(c)
		if err != nil {
			return nil, err
		}
		childAddrs[i] = addrs
	}
	in := flattenAddrs(childAddrs)

	switch op := n.Op.(type) {
	case *ops.Scan:
		return x.scan(op)
	case *ops.Store:
		return x.storeUnderName(op.ArrayName, in)
	case *ops.StoringSG:
		return x.storeUnderName(op.ArrayName, in)
	default:
		return in, nil
	}
}

// scan resolves the array op addresses, reading each of its tracked
// chunks back through the cache (forcing a spill-store read on a cold
// chunk) to confirm the array's data is actually retrievable.
func (x *Executor) scan(op *ops.Scan) ([]chunk.Address, error) {
	name := arrayNameFromParams(op.Params())
	d, err := x.Engine.Catalog.Lookup(name)
	if err != nil {
		return nil, err
	}
	addrs := x.Engine.Catalog.ChunksOf(d.ArrayID)
	for _, addr := range addrs {
		_, h, err := x.Engine.Cache.Pin(addr)
		if err != nil {
			return nil, dberr.Newf(dberr.Internal, "engine", "scan %q: read chunk %v: %v", name, addr, err)
		}
		h.Release()
	}
	return addrs, nil
}

// storeUnderName checks name exists, then tracks in's chunks under it so
// a later rollback or DropArray can find them.
func (x *Executor) storeUnderName(name string, in []chunk.Address) ([]chunk.Address, error) {
	if _, err := x.Engine.Catalog.Lookup(name); err != nil {
		return nil, err
	}
	for _, addr := range in {
		x.Engine.Catalog.TrackChunk(addr)
	}
	return in, nil
}

func flattenAddrs(in [][]chunk.Address) []chunk.Address {
	var out []chunk.Address
	for _, a := range in {
		out = append(out, a...)
	}
	return out
}
