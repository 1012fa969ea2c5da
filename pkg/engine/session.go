package engine

import (
	"fmt"
	"sync"

	"github.com/arraydb/arraydb/pkg/cluster"
	"github.com/arraydb/arraydb/pkg/dberr"
	"github.com/arraydb/arraydb/pkg/netsvc/client"
	nc "github.com/arraydb/arraydb/pkg/netsvc/cluster"
	"github.com/arraydb/arraydb/pkg/query"
)

// AllowAllAuthenticator accepts any username/hashed-password pair;
// instance-level authentication policy is deployment-specific and left
// for the caller to replace with a real Authenticator.
type AllowAllAuthenticator struct{}

// Authenticate implements client.Authenticator.
func (AllowAllAuthenticator) Authenticate(username, hashedPassword string) bool { return true }

var _ client.Authenticator = AllowAllAuthenticator{}

// HandleClientRequest answers one decoded client request. The
// relational query-text surface spec.md §1 names as an external
// collaborator is never implemented here, so PrepareQuery/ExecuteQuery
// answer honestly with an Error instead of faking parse support.
func HandleClientRequest(msg interface{}) interface{} {
	switch m := msg.(type) {
	case client.PrepareQuery:
		return client.Error{LongCode: uint32(dberr.NotImplemented), Message: "query text parsing is not implemented"}
	case client.ExecuteQuery:
		return client.Error{QueryID: m.QueryID, LongCode: uint32(dberr.NotImplemented), Message: "no prepared query with that id"}
	case client.CancelQuery:
		return client.Error{QueryID: m.QueryID, LongCode: uint32(dberr.NotImplemented), Message: "no prepared query with that id"}
	case client.CompleteQuery:
		return client.QueryResult{QueryID: m.QueryID}
	default:
		return client.UnknownRequest{Reason: fmt.Sprintf("unsupported request %T", msg)}
	}
}

// WorkerSession dispatches incoming PreparePhysicalPlan/
// ExecutePhysicalPlan/Commit/Abort messages to a cluster.Worker,
// tracking one query.Query per in-flight queryID on this connection.
// The broadcast transport never puts an executable plan on the wire
// (netsvc.ClusterTransport's encodePlan only round-trips identifying
// information), so Execute always runs against a nil plan.Node; see
// Executor.run's nil guard.
type WorkerSession struct {
	Worker *cluster.Worker

	mu      sync.Mutex
	queries map[string]*query.Query
}

// NewWorkerSession returns a session dispatching onto w.
func NewWorkerSession(w *cluster.Worker) *WorkerSession {
	return &WorkerSession{Worker: w, queries: make(map[string]*query.Query)}
}

func (s *WorkerSession) get(id string) *query.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queries[id]
	if !ok {
		q = query.New(query.ID{})
		s.queries[id] = q
	}
	return q
}

func (s *WorkerSession) drop(id string) {
	s.mu.Lock()
	delete(s.queries, id)
	s.mu.Unlock()
}

// Handle dispatches one decoded inter-instance message.
func (s *WorkerSession) Handle(msg interface{}) error {
	switch m := msg.(type) {
	case nc.PreparePhysicalPlan:
		return s.Worker.Prepare(s.get(m.QueryID))
	case nc.ExecutePhysicalPlan:
		return s.Worker.Execute(s.get(m.QueryID), nil)
	case nc.Commit:
		defer s.drop(m.QueryID)
		return s.Worker.Commit(s.get(m.QueryID))
	case nc.Abort:
		defer s.drop(m.QueryID)
		return s.Worker.Abort(s.get(m.QueryID))
	default:
		return dberr.Newf(dberr.NotImplemented, "engine", "worker session: unexpected message %T", msg)
	}
}
