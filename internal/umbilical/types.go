// Package umbilical implements the control-plane RPC between a reduce/map task and
// its host runtime: task liveness (Ping), progress reporting (StatusUpdate), terminal
// notification (Done), persistence bookkeeping (SnapshotCommit, AfterIterCommit), and
// the runtime's authority to force a task to reload from its last snapshot
// (RollbackCheck) — the Umbilical capability set from Design Notes §9.
//
// No .proto-generated stubs are available in this retrieval pack, so the service is
// registered by hand against a grpc.ServiceDesc (see server.go) using plain JSON
// messages instead of protobuf-generated types (see codec.go). DESIGN.md records why
// this substitution was made instead of dropping gRPC from the stack entirely.
package umbilical

// StatusUpdateRequest reports a task's current phase and iteration to the runtime.
type StatusUpdateRequest struct {
	TaskId    string `json:"taskId"`
	Phase     string `json:"phase"`
	Iteration int64  `json:"iteration"`
	Message   string `json:"message"`
}

// StatusUpdateResponse acknowledges a StatusUpdate.
type StatusUpdateResponse struct {
	Ok bool `json:"ok"`
}

// PingRequest is a liveness probe carrying only the caller's task id.
type PingRequest struct {
	TaskId string `json:"taskId"`
}

// PongResponse answers a PingRequest.
type PongResponse struct {
	TaskId string `json:"taskId"`
}

// DoneRequest notifies the runtime a task has converged or otherwise terminated.
type DoneRequest struct {
	TaskId         string `json:"taskId"`
	FinalIteration int64  `json:"finalIteration"`
	Converged      bool   `json:"converged"`
}

// DoneResponse acknowledges a DoneRequest.
type DoneResponse struct {
	Ok bool `json:"ok"`
}

// SnapshotCommitRequest notifies the runtime a reduce task has persisted a snapshot.
type SnapshotCommitRequest struct {
	TaskId     string `json:"taskId"`
	SnapshotId int64  `json:"snapshotId"`
	Iteration  int64  `json:"iteration"`
}

// SnapshotCommitResponse acknowledges a SnapshotCommitRequest.
type SnapshotCommitResponse struct {
	Ok bool `json:"ok"`
}

// AfterIterCommitRequest notifies the runtime an iteration's output has been durably
// exchanged, carrying both the data checkpoint and, if one was taken this iteration,
// the snapshot checkpoint.
type AfterIterCommitRequest struct {
	TaskId             string `json:"taskId"`
	Iteration          int64  `json:"iteration"`
	Checkpoint         int64  `json:"checkpoint"`
	SnapshotCheckpoint int64  `json:"snapshotCheckpoint"`
}

// AfterIterCommitResponse acknowledges an AfterIterCommitRequest.
type AfterIterCommitResponse struct {
	Ok bool `json:"ok"`
}

// RollbackCheckRequest asks the runtime whether this task should reload from its last
// committed snapshot before continuing.
type RollbackCheckRequest struct {
	TaskId string `json:"taskId"`
}

// RollbackCheckResponse answers a RollbackCheckRequest.
type RollbackCheckResponse struct {
	ShouldRollback bool  `json:"shouldRollback"`
	Checkpoint     int64 `json:"checkpoint"`
}
