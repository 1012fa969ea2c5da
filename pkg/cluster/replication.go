package cluster

import (
	"sync"
	"time"

	queue "github.com/yireyun/go-queue"

	"github.com/arraydb/arraydb/pkg/chunk"
	"github.com/arraydb/arraydb/pkg/dberr"
)

// DefaultCancelPoll is the wake period spec.md §5 describes for
// cancellation responsiveness ("default ~10s"); it does not cap
// operation duration.
const DefaultCancelPoll = 10 * time.Second

// ReplicaMessage is one entry on a per-array replication queue: either a
// chunk replica or the sender's completion marker.
type ReplicaMessage struct {
	Addr chunk.Address
	Data []byte
	EOF  bool
}

// ReplicationQueue is the bounded, lock-free per-array queue of
// spec.md §4.6 "a per-array bounded queue accepts replication messages
// from peers"; overflow surfaces as a capacity error rather than
// blocking the sender.
type ReplicationQueue struct {
	q  *queue.EsQueue
	wg sync.WaitGroup
}

// NewReplicationQueue returns a queue with room for capacity messages.
func NewReplicationQueue(capacity int32) *ReplicationQueue {
	return &ReplicationQueue{q: queue.NewQueue(capacity)}
}

// Offer enqueues msg, returning a capacity error if the ring is full.
func (r *ReplicationQueue) Offer(msg ReplicaMessage) error {
	ok, err := r.q.Put(msg)
	if err != nil || !ok {
		return dberr.Newf(dberr.ReplicationQueueFull, "cluster", "replication queue full")
	}
	return nil
}

// Poll dequeues the next message, reporting false if the queue is
// currently empty.
func (r *ReplicationQueue) Poll() (ReplicaMessage, bool) {
	v, ok, err := r.q.Get()
	if err != nil || !ok {
		return ReplicaMessage{}, false
	}
	return v.(ReplicaMessage), true
}

// AckSemaphore is the EOF-acknowledgement barrier of spec.md §4.6
// "Replication": the sender broadcasts EOF and waits for every
// recipient's ack via this semaphore.
type AckSemaphore struct {
	mu      sync.Mutex
	pending int
	done    chan struct{}
}

// NewAckSemaphore returns a semaphore expecting n acknowledgements.
// n == 0 (redundancy == 0) returns an already-satisfied semaphore,
// short-circuiting replication entirely per spec.md §4.6.
func NewAckSemaphore(n int) *AckSemaphore {
	s := &AckSemaphore{pending: n, done: make(chan struct{})}
	if n <= 0 {
		close(s.done)
	}
	return s
}

// Ack records one recipient's acknowledgement.
func (s *AckSemaphore) Ack() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending <= 0 {
		return
	}
	s.pending--
	if s.pending == 0 {
		close(s.done)
	}
}

// Wait blocks until every expected ack has arrived or errCheck (polled
// on each timeout tick) reports a reason to give up, per spec.md §5
// "cancellation... semaphores consult an error checker callback".
func (s *AckSemaphore) Wait(errCheck func() error) error {
	t := time.NewTicker(DefaultCancelPoll)
	defer t.Stop()
	for {
		select {
		case <-s.done:
			return nil
		case <-t.C:
			if errCheck != nil {
				if err := errCheck(); err != nil {
					return err
				}
			}
		}
	}
}
