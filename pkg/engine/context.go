// Package engine wires together every instance-wide singleton named
// across the other packages — type/function catalogs, operator
// registries, the chunk cache, the array catalog, the scheduler pool,
// and the cluster liveness/transport layer — into the one struct
// cmd/arrayd constructs at startup, mirroring the reference corpus's
// own top-level Engine/Session construction in pkg/frontend.
package engine

import (
	"github.com/arraydb/arraydb/pkg/chunk"
	"github.com/arraydb/arraydb/pkg/chunk/cache"
	"github.com/arraydb/arraydb/pkg/chunk/compress"
	"github.com/arraydb/arraydb/pkg/cluster"
	"github.com/arraydb/arraydb/pkg/config"
	"github.com/arraydb/arraydb/pkg/container/types"
	"github.com/arraydb/arraydb/pkg/dberr"
	"github.com/arraydb/arraydb/pkg/netsvc"
	"github.com/arraydb/arraydb/pkg/plan"
	"github.com/arraydb/arraydb/pkg/sched"
)

// Context collects the instance-wide state every query needs to reach:
// catalogs, registries, the materialization cache, the worker pool, and
// the cluster liveness publisher. One Context is constructed per
// instance process.
type Context struct {
	Config config.Options

	Types *types.Registry
	Funcs *types.FuncCatalog

	Logical  *plan.LogicalRegistry
	Physical *plan.PhysicalRegistry
	Compiler *plan.ExprCompiler

	Cache   *cache.Cache
	Catalog *Catalog

	Pool    *sched.Pool
	Queries *sched.WorkQueue

	Publisher *cluster.Publisher
	Codecs    *compress.Registry

	InstanceID int32
}

// New builds a Context from opts: opens the chunk cache's spill store,
// constructs the catalogs and registries, registers the built-in
// operators, and starts the worker pool. Callers own shutting it down
// via Close.
func New(instanceID int32, opts config.Options, spillDir string) (*Context, error) {
	codecs := compress.NewRegistry()
	c, err := cache.New(spillDir,
		func(ch chunk.Chunk) ([]byte, error) { return chunk.Encode(ch, codecs) },
		func(data []byte) (chunk.Chunk, error) { return chunk.Decode(data, codecs) },
		cache.WithMemThreshold(opts.MemThresholdBytes))
	if err != nil {
		return nil, err
	}

	pool, err := sched.NewPool(opts.WorkerPoolSize)
	if err != nil {
		c.Close()
		return nil, err
	}

	ctx := &Context{
		Config:     opts,
		Types:      types.NewRegistry(),
		Funcs:      types.NewFuncCatalog(),
		Logical:    plan.NewLogicalRegistry(),
		Physical:   plan.NewPhysicalRegistry(),
		Cache:      c,
		Catalog:    NewCatalog(c),
		Pool:       pool,
		Publisher:  cluster.NewPublisher(),
		Codecs:     codecs,
		InstanceID: instanceID,
	}
	ctx.Compiler = &plan.ExprCompiler{Funcs: ctx.Funcs}
	ctx.Queries = sched.NewWorkQueue(pool)

	registerBuiltinLogical(ctx.Logical)
	registerBuiltinPhysical(ctx.Physical, ctx.Catalog)

	return ctx, nil
}

// Close tears down the pool and the cache's spill store.
func (e *Context) Close() error {
	e.Pool.Release()
	return e.Cache.Close()
}

// NetDialer adapts Catalog-less peer address resolution for
// netsvc.ClusterTransport; instances learn peer addresses from the
// membership config rather than service discovery.
type NetDialer struct {
	Addrs map[int32]string
}

func (d NetDialer) Addr(instanceID int32) (string, error) {
	a, ok := d.Addrs[instanceID]
	if !ok {
		return "", dberr.Newf(dberr.InstanceOffline, "engine", "no address known for instance %d", instanceID)
	}
	return a, nil
}

var _ netsvc.PeerDialer = NetDialer{}
