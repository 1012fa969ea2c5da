package cluster

import (
	"github.com/arraydb/arraydb/pkg/plan"
	"github.com/arraydb/arraydb/pkg/query"
)

// WorkerTransport is the narrow surface a worker needs to acknowledge
// prepare/execute and learn of commit/abort; pkg/netsvc implements it.
type WorkerTransport interface {
	AckPrepare(q *query.Query) error
	AckExecute(q *query.Query) error
}

// Worker drives the worker path of spec.md §4.6.
type Worker struct {
	Transport WorkerTransport
	Executor  Executor
	Publisher *Publisher
}

// Prepare handles an incoming PreparePhysicalPlan: acquires WORKER-role
// locks (left to the caller, which owns the catalog) and acks.
func (w *Worker) Prepare(q *query.Query) error {
	if err := q.Begin(); err != nil {
		return err
	}
	return w.Transport.AckPrepare(q)
}

// Execute runs the worker's local slice of node and acks completion.
func (w *Worker) Execute(q *query.Query, node *plan.Node) error {
	if err := w.Executor.Execute(q, node); err != nil {
		q.Fail(err)
		return err
	}
	if err := q.Done(); err != nil {
		q.Fail(err)
		return err
	}
	return w.Transport.AckExecute(q)
}

// Commit handles an incoming Commit message.
func (w *Worker) Commit(q *query.Query) error {
	if err := q.HandleComplete(); err != nil {
		return err
	}
	q.Terminate()
	return nil
}

// Abort handles an incoming Abort message, or a self-abort triggered by
// LivenessAbort declaring the coordinator dead before Commit/Abort
// arrives (spec.md §4.6 worker path step 3).
func (w *Worker) Abort(q *query.Query) error {
	if err := q.HandleAbort(); err != nil {
		return err
	}
	q.Terminate()
	return nil
}

// WatchCoordinator subscribes to the liveness publisher and self-aborts
// the query if the coordinator is declared dead before a terminal
// Commit/Abort message arrives.
func (w *Worker) WatchCoordinator(q *query.Query, coordinator int32, participants []int32, redundancy int) {
	ch := w.Publisher.Subscribe()
	for snap := range ch {
		if q.Commit() != query.Unknown {
			return
		}
		if LivenessAbort(snap, coordinator, participants, redundancy) != NoAbort {
			_ = w.Abort(q)
			return
		}
	}
}
