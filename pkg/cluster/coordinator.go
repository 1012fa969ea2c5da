package cluster

import (
	"github.com/arraydb/arraydb/pkg/dberr"
	"github.com/arraydb/arraydb/pkg/optimizer"
	"github.com/arraydb/arraydb/pkg/plan"
	"github.com/arraydb/arraydb/pkg/query"
)

// Transport is the narrow surface the coordinator/worker paths need
// from the network layer: broadcast a message to every live instance
// and wait for N-1 acks. pkg/netsvc implements this over goetty TCP
// sessions; tests substitute an in-process fake.
type Transport interface {
	BroadcastPrepare(q *query.Query, plan *plan.Node, snap Snapshot) error
	BroadcastExecute(q *query.Query) error
	BroadcastCommit(q *query.Query) error
	BroadcastAbort(q *query.Query) error
	WaitPrepareAcks(q *query.Query, n int, errCheck func() error) error
	WaitExecuteAcks(q *query.Query, n int, errCheck func() error) error
}

// Executor runs a query's local slice of the physical plan.
type Executor interface {
	Execute(q *query.Query, plan *plan.Node) error
}

// Coordinator drives the coordinator path of spec.md §4.6.
type Coordinator struct {
	Transport  Transport
	Executor   Executor
	Publisher  *Publisher
	Redundancy int
}

// CoordinateParams bundles what Run needs beyond the query itself.
type CoordinateParams struct {
	Logical     *plan.LogicalOperator
	OptCtx      *optimizer.Context
	Membership  []int32 // participant instance ids excluding the coordinator
}

// Run executes the full coordinator path: optimize, broadcast prepare,
// wait, broadcast execute, execute locally, wait, commit or abort.
func (c *Coordinator) Run(q *query.Query, p CoordinateParams) error {
	if err := q.Begin(); err != nil {
		return err
	}

	snap := c.Publisher.Current()
	if snap.LiveCount()+c.Redundancy < len(p.Membership)+1 {
		err := dberr.New(dberr.NoQuorum, "cluster", "insufficient live instances for redundancy")
		q.Fail(err)
		c.abort(q)
		return err
	}

	node, err := optimizer.Optimize(p.Logical, p.OptCtx)
	if err != nil {
		q.Fail(err)
		c.abort(q)
		return err
	}

	errCheck := func() error { return q.Err() }

	if err := c.Transport.BroadcastPrepare(q, node, snap); err != nil {
		q.Fail(err)
		c.abort(q)
		return err
	}
	if err := c.Transport.WaitPrepareAcks(q, len(p.Membership), errCheck); err != nil {
		q.Fail(err)
		c.abort(q)
		return err
	}

	if err := c.Transport.BroadcastExecute(q); err != nil {
		q.Fail(err)
		c.abort(q)
		return err
	}
	if err := c.Executor.Execute(q, node); err != nil {
		q.Fail(err)
		c.abort(q)
		return err
	}
	if err := c.Transport.WaitExecuteAcks(q, len(p.Membership), errCheck); err != nil {
		q.Fail(err)
		c.abort(q)
		return err
	}

	if err := q.Done(); err != nil {
		q.Fail(err)
		c.abort(q)
		return err
	}
	if err := q.HandleComplete(); err != nil {
		q.Fail(err)
		c.abort(q)
		return err
	}
	if err := c.Transport.BroadcastCommit(q); err != nil {
		// The local commit already happened; a broadcast failure here is
		// logged by the caller via q.Err() but does not unwind the local
		// decision, matching spec.md's terminal-COMMITTED invariant.
		q.Fail(err)
	}
	q.Terminate()
	return q.Err()
}

// abort runs the spec.md §4.6 coordinator error path: broadcast abort,
// transition the query, then let Terminate drain handlers/finalizers.
func (c *Coordinator) abort(q *query.Query) {
	_ = c.Transport.BroadcastAbort(q)
	_ = q.HandleAbort()
	q.Terminate()
}
