package netsvc

import (
	"github.com/fagongzi/goetty/v2"

	nc "github.com/arraydb/arraydb/pkg/netsvc/cluster"
	"github.com/arraydb/arraydb/pkg/query"
)

// WorkerClusterTransport implements cluster.WorkerTransport: a worker
// acks prepare/execute back to whichever session the coordinator's
// message arrived on.
type WorkerClusterTransport struct {
	CoordinatorSession goetty.IOSession
}

// AckPrepare implements cluster.WorkerTransport.
func (t *WorkerClusterTransport) AckPrepare(q *query.Query) error {
	return t.CoordinatorSession.Write(nc.PrepareAck{QueryID: q.ID.String(), Ok: q.Err() == nil}, goetty.WriteOptions{Flush: true})
}

// AckExecute implements cluster.WorkerTransport.
func (t *WorkerClusterTransport) AckExecute(q *query.Query) error {
	errMsg := ""
	if err := q.Err(); err != nil {
		errMsg = err.Error()
	}
	return t.CoordinatorSession.Write(nc.ExecuteAck{QueryID: q.ID.String(), Ok: q.Err() == nil, Error: errMsg}, goetty.WriteOptions{Flush: true})
}
