package netsvc

import (
	"bytes"
	"encoding/gob"
	"sync"

	"github.com/fagongzi/goetty/v2"

	"github.com/arraydb/arraydb/pkg/cluster"
	nc "github.com/arraydb/arraydb/pkg/netsvc/cluster"
	"github.com/arraydb/arraydb/pkg/plan"
	"github.com/arraydb/arraydb/pkg/query"
)

// PeerDialer resolves a cluster instance id to a dialable address.
type PeerDialer interface {
	Addr(instanceID int32) (string, error)
}

// ClusterTransport implements cluster.Transport and
// cluster.WorkerTransport over goetty sessions to every peer instance,
// per spec.md §6's PreparePhysicalPlan/ExecutePhysicalPlan/Commit/Abort
// message set.
type ClusterTransport struct {
	Dialer PeerDialer

	mu    sync.Mutex
	conns map[int32]goetty.IOSession

	acksMu sync.Mutex
	acks   map[string]*cluster.AckSemaphore // queryID -> pending-ack barrier
}

// NewClusterTransport returns a transport with no open connections yet;
// they are dialed lazily per peer.
func NewClusterTransport(dialer PeerDialer) *ClusterTransport {
	return &ClusterTransport{
		Dialer: dialer,
		conns:  make(map[int32]goetty.IOSession),
		acks:   make(map[string]*cluster.AckSemaphore),
	}
}

func (t *ClusterTransport) sessionFor(instanceID int32) (goetty.IOSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.conns[instanceID]; ok {
		return s, nil
	}
	addr, err := t.Dialer.Addr(instanceID)
	if err != nil {
		return nil, err
	}
	s, err := Dial(addr)
	if err != nil {
		return nil, err
	}
	t.conns[instanceID] = s
	go t.readAcks(s)
	return s, nil
}

// readAcks drains a dialed peer session for the PrepareAck/ExecuteAck
// replies that arrive on the same bidirectional connection the broadcast
// writes went out on, feeding them into the matching ack barrier.
func (t *ClusterTransport) readAcks(s goetty.IOSession) {
	for {
		msg, err := s.Read()
		if err != nil {
			return
		}
		switch m := msg.(type) {
		case nc.PrepareAck:
			t.OnAck(m.QueryID, "prepare")
		case nc.ExecuteAck:
			t.OnAck(m.QueryID, "execute")
		}
	}
}

func (t *ClusterTransport) broadcast(peers []int32, msg interface{}) error {
	for _, id := range peers {
		s, err := t.sessionFor(id)
		if err != nil {
			return err
		}
		if err := s.Write(msg, goetty.WriteOptions{Flush: true}); err != nil {
			return err
		}
	}
	return nil
}

func encodePlan(n *plan.Node) []byte {
	// Only the root node's output schema is encoded; the operator tree
	// itself is not serialized, and workers do not rebuild a plan from
	// this payload (the engine's WorkerSession executes a nil plan).
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(n.Schema)
	return buf.Bytes()
}

// BroadcastPrepare implements cluster.Transport.
func (t *ClusterTransport) BroadcastPrepare(q *query.Query, node *plan.Node, snap cluster.Snapshot) error {
	peers := peerIDs(q)
	t.acksMu.Lock()
	t.acks[q.ID.String()+"/prepare"] = cluster.NewAckSemaphore(len(peers))
	t.acksMu.Unlock()
	return t.broadcast(peers, nc.PreparePhysicalPlan{
		QueryID:         q.ID.String(),
		Plan:            encodePlan(node),
		LivenessVersion: snap.Version,
	})
}

// BroadcastExecute implements cluster.Transport.
func (t *ClusterTransport) BroadcastExecute(q *query.Query) error {
	peers := peerIDs(q)
	t.acksMu.Lock()
	t.acks[q.ID.String()+"/execute"] = cluster.NewAckSemaphore(len(peers))
	t.acksMu.Unlock()
	return t.broadcast(peers, nc.ExecutePhysicalPlan{QueryID: q.ID.String()})
}

// BroadcastCommit implements cluster.Transport.
func (t *ClusterTransport) BroadcastCommit(q *query.Query) error {
	return t.broadcast(peerIDs(q), nc.Commit{QueryID: q.ID.String()})
}

// BroadcastAbort implements cluster.Transport.
func (t *ClusterTransport) BroadcastAbort(q *query.Query) error {
	reason := ""
	if err := q.Err(); err != nil {
		reason = err.Error()
	}
	return t.broadcast(peerIDs(q), nc.Abort{QueryID: q.ID.String(), Reason: reason})
}

// WaitPrepareAcks implements cluster.Transport.
func (t *ClusterTransport) WaitPrepareAcks(q *query.Query, n int, errCheck func() error) error {
	return t.wait(q.ID.String()+"/prepare", errCheck)
}

// WaitExecuteAcks implements cluster.Transport.
func (t *ClusterTransport) WaitExecuteAcks(q *query.Query, n int, errCheck func() error) error {
	return t.wait(q.ID.String()+"/execute", errCheck)
}

func (t *ClusterTransport) wait(key string, errCheck func() error) error {
	t.acksMu.Lock()
	sem, ok := t.acks[key]
	t.acksMu.Unlock()
	if !ok {
		return nil
	}
	return sem.Wait(errCheck)
}

// OnAck feeds one PrepareAck/ExecuteAck received from a peer back into
// the matching barrier; the listener's dispatch loop calls this.
func (t *ClusterTransport) OnAck(queryID, phase string) {
	t.acksMu.Lock()
	sem, ok := t.acks[queryID+"/"+phase]
	t.acksMu.Unlock()
	if ok {
		sem.Ack()
	}
}

func peerIDs(q *query.Query) []int32 {
	ids := make([]int32, 0, len(q.LogicalToPhysical))
	for _, id := range q.LogicalToPhysical {
		ids = append(ids, id)
	}
	return ids
}
