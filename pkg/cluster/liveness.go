// Package cluster implements the liveness publisher, the per-array
// replication queue, and the coordinator/worker two-phase-commit path
// of spec.md §4.6.
package cluster

import "sync"

// InstanceState is one cluster member's observed liveness.
type InstanceState int

const (
	Live InstanceState = iota
	Dead
)

// Snapshot is a version-tagged view of cluster membership, the unit a
// query plans against and later compares its own copy to (spec.md
// §4.6 coordinator step 4, "refuse to proceed if membership has
// changed since the snapshot").
type Snapshot struct {
	Version   uint64
	Instances map[int32]InstanceState
}

// LiveCount returns the number of instances marked Live.
func (s Snapshot) LiveCount() int {
	n := 0
	for _, st := range s.Instances {
		if st == Live {
			n++
		}
	}
	return n
}

// Equal reports whether two snapshots describe the same membership
// (ignoring version), the comparison the coordinator's "membership has
// changed since the snapshot" check performs.
func (s Snapshot) Equal(o Snapshot) bool {
	if len(s.Instances) != len(o.Instances) {
		return false
	}
	for id, st := range s.Instances {
		if o.Instances[id] != st {
			return false
		}
	}
	return true
}

// Publisher broadcasts liveness snapshots to subscribers, satisfying
// spec.md §8 property 9 (liveness convergence): every subscriber
// eventually observes the same latest version.
type Publisher struct {
	mu   sync.Mutex
	cur  Snapshot
	subs []chan Snapshot
}

// NewPublisher returns a Publisher seeded with an empty snapshot.
func NewPublisher() *Publisher {
	return &Publisher{cur: Snapshot{Instances: make(map[int32]InstanceState)}}
}

// Current returns the latest published snapshot.
func (p *Publisher) Current() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cur
}

// Subscribe returns a channel receiving every snapshot published after
// this call, buffered so a slow subscriber never blocks the publisher.
func (p *Publisher) Subscribe() <-chan Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan Snapshot, 8)
	p.subs = append(p.subs, ch)
	return ch
}

// Publish advances to a new snapshot and notifies every subscriber,
// dropping the update for a subscriber whose buffer is full rather than
// blocking (a subscriber that falls behind re-syncs via Current).
func (p *Publisher) Publish(s Snapshot) {
	p.mu.Lock()
	p.cur = s
	subs := p.subs
	p.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- s:
		default:
		}
	}
}

// MarkDead flags instance as Dead and republishes a new version.
func (p *Publisher) MarkDead(instance int32) {
	p.mu.Lock()
	next := Snapshot{Version: p.cur.Version + 1, Instances: make(map[int32]InstanceState, len(p.cur.Instances))}
	for id, st := range p.cur.Instances {
		next.Instances[id] = st
	}
	next.Instances[instance] = Dead
	p.cur = next
	subs := p.subs
	p.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- next:
		default:
		}
	}
}

// AbortReason names why LivenessAbort decided to abort a query.
type AbortReason int

const (
	NoAbort AbortReason = iota
	CoordinatorDead
	NoQuorumAbort
)

// LivenessAbort implements spec.md §4.6 "liveness-driven abort": given
// the query's coordinator and participant set, decide whether a new
// snapshot demands an abort.
func LivenessAbort(snap Snapshot, coordinator int32, participants []int32, redundancy int) AbortReason {
	if snap.Instances[coordinator] == Dead {
		return CoordinatorDead
	}
	live := 0
	for _, p := range participants {
		if snap.Instances[p] == Live {
			live++
		}
	}
	if live+redundancy < len(participants) {
		return NoQuorumAbort
	}
	return NoAbort
}
