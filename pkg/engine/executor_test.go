package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arraydb/arraydb/pkg/array"
	"github.com/arraydb/arraydb/pkg/chunk"
	"github.com/arraydb/arraydb/pkg/chunk/cache"
	"github.com/arraydb/arraydb/pkg/plan"
	"github.com/arraydb/arraydb/pkg/plan/distro"
	"github.com/arraydb/arraydb/pkg/plan/ops"
)

func newTestEngine(t *testing.T) *Context {
	t.Helper()
	dir := t.TempDir()
	c, err := cache.New(dir,
		func(ch chunk.Chunk) ([]byte, error) { return chunk.Encode(ch, nil) },
		func(data []byte) (chunk.Chunk, error) { return chunk.Decode(data, nil) },
	)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return &Context{Cache: c, Catalog: NewCatalog(c)}
}

// scanNode builds a plan.Node reading arrayName, the shape Execute's scan
// step resolves via arrayNameFromParams.
func scanNode(arrayName string) *plan.Node {
	l := &plan.LogicalOperator{Params: []plan.Param{{Kind: plan.ParamArrayName, ArrayName: arrayName}}}
	return &plan.Node{Op: ops.NewScan(l, distro.Distribution{Kind: distro.RoundRobin}, array.Boundary{}, 8)}
}

func TestExecutorNilPlanIsNoOp(t *testing.T) {
	e := newTestEngine(t)
	x := NewExecutor(e)
	require.NoError(t, x.Execute(nil, nil))
}

func TestExecutorScanReadsBackTrackedChunks(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Catalog.Create(&array.Descriptor{Name: "a", ArrayID: 1}, 1, 100))

	addr := chunk.Address{ArrayID: 1, AttributeID: 0, Position: []int64{0}}
	c := chunk.NewDenseChunk(addr, testAttr, []int64{0}, []int64{0}, []int64{0}, []int64{0}, "none")
	e.Cache.Put(c, 8)
	e.Catalog.TrackChunk(addr)

	x := NewExecutor(e)
	addrs, err := x.run(scanNode("a"))
	require.NoError(t, err)
	require.Equal(t, []chunk.Address{addr}, addrs)
}

func TestExecutorScanUnknownArrayFails(t *testing.T) {
	e := newTestEngine(t)
	x := NewExecutor(e)
	_, err := x.run(scanNode("missing"))
	require.Error(t, err)
}

func TestExecutorStoreTracksInputChunks(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Catalog.Create(&array.Descriptor{Name: "src", ArrayID: 1}, 1, 100))
	require.NoError(t, e.Catalog.Create(&array.Descriptor{Name: "dest", ArrayID: 2}, 1, 100))

	addr := chunk.Address{ArrayID: 1, AttributeID: 0, Position: []int64{0}}
	c := chunk.NewDenseChunk(addr, testAttr, []int64{0}, []int64{0}, []int64{0}, []int64{0}, "none")
	e.Cache.Put(c, 8)
	e.Catalog.TrackChunk(addr)

	x := NewExecutor(e)
	store := ops.NewStore(&plan.LogicalOperator{Params: []plan.Param{{Kind: plan.ParamArrayName, ArrayName: "dest"}}})
	n := &plan.Node{Op: store, Children: []*plan.Node{scanNode("src")}}

	out, err := x.run(n)
	require.NoError(t, err)
	require.Equal(t, []chunk.Address{addr}, out)
	require.ElementsMatch(t, []chunk.Address{addr}, e.Catalog.ChunksOf(2))
}

func TestExecutorStoreUnknownTargetFails(t *testing.T) {
	e := newTestEngine(t)
	x := NewExecutor(e)
	store := ops.NewStore(&plan.LogicalOperator{Params: []plan.Param{{Kind: plan.ParamArrayName, ArrayName: "missing"}}})
	_, err := x.run(&plan.Node{Op: store})
	require.Error(t, err)
}

func TestExecutorPassThroughForwardsInputUnchanged(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Catalog.Create(&array.Descriptor{Name: "src", ArrayID: 1}, 1, 100))

	addr := chunk.Address{ArrayID: 1, AttributeID: 0, Position: []int64{0}}
	c := chunk.NewDenseChunk(addr, testAttr, []int64{0}, []int64{0}, []int64{0}, []int64{0}, "none")
	e.Cache.Put(c, 8)
	e.Catalog.TrackChunk(addr)

	x := NewExecutor(e)
	n := &plan.Node{
		Op:       ops.NewPassThrough(&plan.LogicalOperator{OpName: "filter"}, 8),
		Children: []*plan.Node{scanNode("src")},
	}

	out, err := x.run(n)
	require.NoError(t, err)
	require.Equal(t, []chunk.Address{addr}, out)
}

func TestExecutorFlattensMultipleChildren(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Catalog.Create(&array.Descriptor{Name: "left", ArrayID: 1}, 1, 100))
	require.NoError(t, e.Catalog.Create(&array.Descriptor{Name: "right", ArrayID: 2}, 1, 100))

	la := chunk.Address{ArrayID: 1, AttributeID: 0, Position: []int64{0}}
	ra := chunk.Address{ArrayID: 2, AttributeID: 0, Position: []int64{0}}
	e.Cache.Put(chunk.NewDenseChunk(la, testAttr, []int64{0}, []int64{0}, []int64{0}, []int64{0}, "none"), 8)
	e.Cache.Put(chunk.NewDenseChunk(ra, testAttr, []int64{0}, []int64{0}, []int64{0}, []int64{0}, "none"), 8)
	e.Catalog.TrackChunk(la)
	e.Catalog.TrackChunk(ra)

	x := NewExecutor(e)
	n := &plan.Node{
		Op:       ops.NewJoin(8, 8),
		Children: []*plan.Node{scanNode("left"), scanNode("right")},
	}

	out, err := x.run(n)
	require.NoError(t, err)
	require.ElementsMatch(t, []chunk.Address{la, ra}, out)
}
