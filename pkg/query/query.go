// Package query implements query identity, the completion/commit state
// machine, array-lock bookkeeping, and the error-handler/finalizer
// stacks of spec.md §4.6.
package query

import (
	"fmt"
	"sync"

	"github.com/arraydb/arraydb/pkg/container/types"
	"github.com/arraydb/arraydb/pkg/dberr"
)

// ID is a query's cluster-wide identity: (instanceId, time, clock,
// counter).
type ID struct {
	InstanceID int32
	Time       int64
	Clock      int64
	Counter    int64
}

func (id ID) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", id.InstanceID, id.Time, id.Clock, id.Counter)
}

// Completion is the query's primary lifecycle state.
type Completion int

const (
	Init Completion = iota
	Start
	OK
	Error
)

// Commit is the query's two-phase-commit outcome.
type Commit int

const (
	Unknown Commit = iota
	Committed
	Aborted
)

// Handler runs in LIFO order when a query terminates with an error.
type Handler func(err error)

// Finalizer runs in LIFO order on every terminal path; it must not
// fail — if it does, the process aborts per spec.md §4.6 ("finalizers
// own the invariants that keep the cluster consistent").
type Finalizer func()

// Query is one in-flight query's identity and lifecycle state. All
// mutating methods hold mu only for the critical section itself; long
// operations (planning, execution) run outside the lock.
type Query struct {
	ID ID

	mu         sync.Mutex
	completion Completion
	commit     Commit
	firstErr   error

	handlers   []Handler
	finalizers []Finalizer
	locks      *lockSet

	// LivenessVersion is the liveness snapshot this query was planned
	// against; workers and the coordinator compare against it to detect
	// membership changes (spec.md §4.6 coordinator step 4).
	LivenessVersion uint64
	// LogicalToPhysical maps a snapshot-relative logical instance id to
	// its current cluster-wide physical instance id.
	LogicalToPhysical map[int32]int32

	Arena *types.Arena
}

// New creates a query in the INIT state.
func New(id ID) *Query {
	return &Query{
		ID:                id,
		completion:        Init,
		commit:            Unknown,
		locks:             newLockSet(),
		LogicalToPhysical: make(map[int32]int32),
		Arena:             &types.Arena{},
	}
}

// Completion returns the query's current completion state.
func (q *Query) Completion() Completion {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.completion
}

// Commit returns the query's current commit state.
func (q *Query) Commit() Commit {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.commit
}

// Err returns the query's sticky first error, if any.
func (q *Query) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.firstErr
}

// Begin transitions INIT -> START.
func (q *Query) Begin() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.completion != Init {
		return dberr.Newf(dberr.InvalidCommitState, "query", "query %s: start() from %v", q.ID, q.completion)
	}
	q.completion = Start
	return nil
}

// Done transitions START -> OK.
func (q *Query) Done() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.completion != Start {
		return dberr.Newf(dberr.InvalidCommitState, "query", "query %s: done() from %v", q.ID, q.completion)
	}
	q.completion = OK
	return nil
}

// Fail records err as the query's sticky first error and transitions to
// ERROR; later calls are no-ops (first error wins, per spec.md §7
// propagation policy).
func (q *Query) Fail(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.firstErr == nil {
		q.firstErr = err
	}
	if q.completion != Error {
		q.completion = Error
	}
}

// HandleCommit transitions OK -> COMMITTED. It is illegal from any
// other completion state, and illegal once the query is already
// ABORTED.
func (q *Query) HandleCommit() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.commit == Aborted {
		return dberr.Newf(dberr.InvalidCommitState, "query", "query %s: handleCommit() while ABORTED", q.ID)
	}
	if q.completion != OK {
		return dberr.Newf(dberr.InvalidCommitState, "query", "query %s: handleCommit() from completion %v", q.ID, q.completion)
	}
	q.commit = Committed
	return nil
}

// HandleComplete is the coordinator's local OK -> handleCommit step;
// it is a convenience alias kept distinct from HandleCommit because
// spec.md's diagram names the coordinator's own transition separately
// from the commit-state transition workers observe.
func (q *Query) HandleComplete() error {
	return q.HandleCommit()
}

// HandleAbort transitions {START, ERROR, OK} -> ABORTED. Illegal once
// the query is already COMMITTED.
func (q *Query) HandleAbort() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.commit == Committed {
		return dberr.Newf(dberr.InvalidCommitState, "query", "query %s: handleAbort() while COMMITTED", q.ID)
	}
	q.commit = Aborted
	return nil
}

// PushHandler registers an error handler, run LIFO on termination with
// an error.
func (q *Query) PushHandler(h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, h)
}

// PushFinalizer registers a finalizer, run LIFO on every terminal path.
func (q *Query) PushFinalizer(f Finalizer) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.finalizers = append(q.finalizers, f)
}

// AcquireLock adds l to the query's requested-locks set, subsuming any
// lower mode already held on the same array/instance.
func (q *Query) AcquireLock(l ArrayLock) {
	q.mu.Lock()
	defer q.mu.Unlock()
	l.QueryID = q.ID
	q.locks.acquire(l)
}

// Locks returns a snapshot of the query's currently-held locks.
func (q *Query) Locks() []ArrayLock {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.locks.all()
}

// Terminate runs the error-handler stack (if firstErr is set) followed
// by the finalizer stack, both LIFO, exactly once. A finalizer that
// panics is not recovered: per spec.md §4.6, the process aborts rather
// than let the cluster observe a half-torn-down query.
func (q *Query) Terminate() {
	q.mu.Lock()
	handlers := q.handlers
	finalizers := q.finalizers
	err := q.firstErr
	q.handlers = nil
	q.finalizers = nil
	q.mu.Unlock()

	if err != nil {
		for i := len(handlers) - 1; i >= 0; i-- {
			handlers[i](err)
		}
	}
	for i := len(finalizers) - 1; i >= 0; i-- {
		finalizers[i]()
	}
}
