package engine

import (
	"sync/atomic"

	"github.com/arraydb/arraydb/pkg/optimizer"
	"github.com/arraydb/arraydb/pkg/query"
)

// counter generates the monotonic per-instance component of a query.ID
// (spec.md §4.6's (instanceId, time, clock, counter) identity).
var counter int64

// NewQuery allocates a fresh query.ID stamped with this instance and a
// caller-supplied (time, clock) pair, and returns the Query built from
// it.
func (e *Context) NewQuery(t, clock int64) *query.Query {
	id := query.ID{
		InstanceID: e.InstanceID,
		Time:       t,
		Clock:      clock,
		Counter:    atomic.AddInt64(&counter, 1),
	}
	return query.New(id)
}

// NewOptimizerContext builds an optimizer.Context sharing this engine's
// registries and compiler, with Query set to e itself so logical schema
// inference (e.g. resolving a load target) can reach the catalog.
func (e *Context) NewOptimizerContext(clusterSize int, tilesAllowed bool) *optimizer.Context {
	return &optimizer.Context{
		Logical:      e.Logical,
		Physical:     e.Physical,
		Compiler:     e.Compiler,
		TilesAllowed: tilesAllowed,
		ClusterSize:  clusterSize,
		Query:        e,
	}
}
