// Package cluster defines the inter-instance wire messages of
// spec.md §6: physical-plan broadcast, two-phase commit, chunk
// replication, and the inter-instance security handshake.
package cluster

import "encoding/gob"

// PreparePhysicalPlan carries the plan's encoded root schema and the
// coordinator's liveness snapshot version to every live instance.
type PreparePhysicalPlan struct {
	QueryID         string
	Plan            []byte // gob-encoded root output schema; the operator tree is not included
	LivenessVersion uint64
}

// PrepareAck acknowledges a PreparePhysicalPlan.
type PrepareAck struct {
	QueryID string
	Ok      bool
	Error   string
}

// ExecutePhysicalPlan tells every prepared instance to run its slice.
type ExecutePhysicalPlan struct {
	QueryID string
}

// ExecuteAck acknowledges completion of a worker's local execution.
type ExecuteAck struct {
	QueryID string
	Ok      bool
	Error   string
}

// Commit finalizes a query cluster-wide.
type Commit struct {
	QueryID string
}

// Abort aborts a query cluster-wide.
type Abort struct {
	QueryID string
	Reason  string
}

// ChunkReplica carries one replicated chunk for a persistent array
// under write, or (when EOF is set) the sender's completion marker.
type ChunkReplica struct {
	ArrayID int64
	Addr    []int64
	Data    []byte
	EOF     bool
}

// ChunkReplicaAck acknowledges one ChunkReplica, including the EOF
// marker (spec.md §4.6 "Replication").
type ChunkReplicaAck struct {
	ArrayID int64
	EOF     bool
}

// SecurityMessage carries an inter-instance authentication challenge,
// mirroring the client-facing login:/password: sequence but between
// cluster peers rather than an external client.
type SecurityMessage struct {
	InstanceID int32
	Challenge  string
}

// SecurityMessageResponse answers a SecurityMessage.
type SecurityMessageResponse struct {
	InstanceID     int32
	HashedResponse string
}

func init() {
	gob.Register(PreparePhysicalPlan{})
	gob.Register(PrepareAck{})
	gob.Register(ExecutePhysicalPlan{})
	gob.Register(ExecuteAck{})
	gob.Register(Commit{})
	gob.Register(Abort{})
	gob.Register(ChunkReplica{})
	gob.Register(ChunkReplicaAck{})
	gob.Register(SecurityMessage{})
	gob.Register(SecurityMessageResponse{})
}
