package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arraydb/arraydb/pkg/cluster"
	"github.com/arraydb/arraydb/pkg/dberr"
	"github.com/arraydb/arraydb/pkg/netsvc/client"
	nc "github.com/arraydb/arraydb/pkg/netsvc/cluster"
	"github.com/arraydb/arraydb/pkg/plan"
	"github.com/arraydb/arraydb/pkg/query"
)

func TestAllowAllAuthenticatorAcceptsAnything(t *testing.T) {
	var a client.Authenticator = AllowAllAuthenticator{}
	require.True(t, a.Authenticate("anyone", "anything"))
}

func TestHandleClientRequestAnswersQueryTextAsNotImplemented(t *testing.T) {
	resp := HandleClientRequest(client.PrepareQuery{QueryText: "select *"})
	errResp, ok := resp.(client.Error)
	require.True(t, ok)
	require.Equal(t, uint32(dberr.NotImplemented), errResp.LongCode)
}

func TestHandleClientRequestAnswersExecuteAsNotImplemented(t *testing.T) {
	resp := HandleClientRequest(client.ExecuteQuery{QueryID: "q1"})
	errResp, ok := resp.(client.Error)
	require.True(t, ok)
	require.Equal(t, "q1", errResp.QueryID)
	require.Equal(t, uint32(dberr.NotImplemented), errResp.LongCode)
}

func TestHandleClientRequestAnswersUnknownMessage(t *testing.T) {
	resp := HandleClientRequest(42)
	_, ok := resp.(client.UnknownRequest)
	require.True(t, ok)
}

type fakeWorkerTransport struct{}

func (fakeWorkerTransport) AckPrepare(q *query.Query) error { return nil }
func (fakeWorkerTransport) AckExecute(q *query.Query) error { return nil }

type fakeExecutor struct{ err error }

func (f fakeExecutor) Execute(q *query.Query, n *plan.Node) error { return f.err }

func newTestWorkerSession() *WorkerSession {
	w := &cluster.Worker{Transport: fakeWorkerTransport{}, Executor: fakeExecutor{}, Publisher: cluster.NewPublisher()}
	return NewWorkerSession(w)
}

func TestWorkerSessionHandlePrepareThenExecuteThenCommit(t *testing.T) {
	s := newTestWorkerSession()

	require.NoError(t, s.Handle(nc.PreparePhysicalPlan{QueryID: "q1"}))
	require.NoError(t, s.Handle(nc.ExecutePhysicalPlan{QueryID: "q1"}))
	require.NoError(t, s.Handle(nc.Commit{QueryID: "q1"}))

	s.mu.Lock()
	_, stillTracked := s.queries["q1"]
	s.mu.Unlock()
	require.False(t, stillTracked)
}

func TestWorkerSessionHandleAbortDropsQuery(t *testing.T) {
	s := newTestWorkerSession()

	require.NoError(t, s.Handle(nc.PreparePhysicalPlan{QueryID: "q1"}))
	require.NoError(t, s.Handle(nc.Abort{QueryID: "q1"}))

	s.mu.Lock()
	_, stillTracked := s.queries["q1"]
	s.mu.Unlock()
	require.False(t, stillTracked)
}

func TestWorkerSessionReusesQueryAcrossMessages(t *testing.T) {
	s := newTestWorkerSession()
	first := s.get("q1")
	second := s.get("q1")
	require.Same(t, first, second)
}

func TestWorkerSessionHandleUnknownMessage(t *testing.T) {
	s := newTestWorkerSession()
	err := s.Handle("not a known message")
	require.Error(t, err)
}
