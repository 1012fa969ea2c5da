package cluster

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arraydb/arraydb/pkg/array"
	"github.com/arraydb/arraydb/pkg/dberr"
	"github.com/arraydb/arraydb/pkg/optimizer"
	"github.com/arraydb/arraydb/pkg/plan"
	"github.com/arraydb/arraydb/pkg/plan/ops"
	"github.com/arraydb/arraydb/pkg/query"
)

// fakeTransport records every broadcast/wait call for assertion and lets
// a test force any one of them to fail.
type fakeTransport struct {
	calls []string
	failOn string
	err    error
}

func (f *fakeTransport) do(name string) error {
	f.calls = append(f.calls, name)
	if f.failOn == name {
		return f.err
	}
	return nil
}

func (f *fakeTransport) BroadcastPrepare(q *query.Query, p *plan.Node, s Snapshot) error { return f.do("BroadcastPrepare") }
func (f *fakeTransport) BroadcastExecute(q *query.Query) error                          { return f.do("BroadcastExecute") }
func (f *fakeTransport) BroadcastCommit(q *query.Query) error                           { return f.do("BroadcastCommit") }
func (f *fakeTransport) BroadcastAbort(q *query.Query) error                            { return f.do("BroadcastAbort") }
func (f *fakeTransport) WaitPrepareAcks(q *query.Query, n int, errCheck func() error) error {
	return f.do("WaitPrepareAcks")
}
func (f *fakeTransport) WaitExecuteAcks(q *query.Query, n int, errCheck func() error) error {
	return f.do("WaitExecuteAcks")
}

type fakeExecutor struct {
	err    error
	ran    bool
}

func (f *fakeExecutor) Execute(q *query.Query, p *plan.Node) error {
	f.ran = true
	return f.err
}

func leafLogical() *plan.LogicalOperator {
	return &plan.LogicalOperator{
		OpName: "leaf",
		Infer: func(inputs []*array.Descriptor, q any) (*array.Descriptor, error) {
			return &array.Descriptor{Name: "leaf"}, nil
		},
	}
}

func newTestOptCtx() *optimizer.Context {
	phys := plan.NewPhysicalRegistry()
	phys.Register("leaf", func(l *plan.LogicalOperator) (plan.PhysicalOperator, error) {
		return ops.NewPassThrough(l, 8), nil
	})
	return &optimizer.Context{
		Logical:  plan.NewLogicalRegistry(),
		Physical: phys,
		Compiler: &plan.ExprCompiler{},
	}
}

func liveSnapshot(ids ...int32) Snapshot {
	instances := make(map[int32]InstanceState, len(ids))
	for _, id := range ids {
		instances[id] = Live
	}
	return Snapshot{Version: 1, Instances: instances}
}

func TestCoordinatorRunHappyPath(t *testing.T) {
	pub := NewPublisher()
	pub.Publish(liveSnapshot(1, 2))

	transport := &fakeTransport{}
	executor := &fakeExecutor{}
	c := &Coordinator{Transport: transport, Executor: executor, Publisher: pub, Redundancy: 0}

	q := query.New(query.ID{InstanceID: 1})
	err := c.Run(q, CoordinateParams{Logical: leafLogical(), OptCtx: newTestOptCtx(), Membership: []int32{2}})

	require.NoError(t, err)
	require.True(t, executor.ran)
	require.Equal(t, query.Committed, q.Commit())
	require.Equal(t, []string{"BroadcastPrepare", "WaitPrepareAcks", "BroadcastExecute", "WaitExecuteAcks", "BroadcastCommit"}, transport.calls)
}

func TestCoordinatorRunAbortsOnInsufficientQuorum(t *testing.T) {
	pub := NewPublisher()
	pub.Publish(liveSnapshot(1))

	transport := &fakeTransport{}
	c := &Coordinator{Transport: transport, Executor: &fakeExecutor{}, Publisher: pub, Redundancy: 0}

	q := query.New(query.ID{})
	err := c.Run(q, CoordinateParams{Logical: leafLogical(), OptCtx: newTestOptCtx(), Membership: []int32{2, 3}})

	require.Error(t, err)
	require.Equal(t, query.Aborted, q.Commit())
	require.Contains(t, transport.calls, "BroadcastAbort")
}

func TestCoordinatorRunAbortsWhenPrepareAcksFail(t *testing.T) {
	pub := NewPublisher()
	pub.Publish(liveSnapshot(1, 2))

	transport := &fakeTransport{failOn: "WaitPrepareAcks", err: dberr.New(dberr.InstanceOffline, "cluster", "peer unreachable")}
	c := &Coordinator{Transport: transport, Executor: &fakeExecutor{}, Publisher: pub, Redundancy: 0}

	q := query.New(query.ID{})
	err := c.Run(q, CoordinateParams{Logical: leafLogical(), OptCtx: newTestOptCtx(), Membership: []int32{2}})

	require.Error(t, err)
	require.Equal(t, query.Aborted, q.Commit())
	require.Equal(t, []string{"BroadcastPrepare", "WaitPrepareAcks", "BroadcastAbort"}, transport.calls)
}

func TestCoordinatorRunAbortsWhenLocalExecuteFails(t *testing.T) {
	pub := NewPublisher()
	pub.Publish(liveSnapshot(1, 2))

	transport := &fakeTransport{}
	executor := &fakeExecutor{err: dberr.New(dberr.Internal, "cluster", "boom")}
	c := &Coordinator{Transport: transport, Executor: executor, Publisher: pub, Redundancy: 0}

	q := query.New(query.ID{})
	err := c.Run(q, CoordinateParams{Logical: leafLogical(), OptCtx: newTestOptCtx(), Membership: []int32{2}})

	require.Error(t, err)
	require.Equal(t, query.Aborted, q.Commit())
	require.Equal(t, []string{"BroadcastPrepare", "WaitPrepareAcks", "BroadcastExecute", "BroadcastAbort"}, transport.calls)
}
