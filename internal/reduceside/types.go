// Package reduceside implements the PriorityStateEngine and the per-task iteration
// coordinator: the reducer half of a priority-based iterative map/reduce job. Each key
// carries a triple (iState, cState, staticData); the engine merges incoming deltas into
// iState, periodically selects a bounded top-priority subset for activation, applies the
// user's update to fold iState into cState, and snapshots top-K cState entries to a
// blobstore.Provider for durability and convergence checking.
package reduceside

// Key identifies one entry in the engine's per-key state store.
type Key = string

// StateCodec is the injected set of user-supplied callbacks the engine needs to remain
// generic over whatever domain-specific state a job's keys carry. iState, cState, and
// staticData are opaque byte payloads (the codec package's PQRec/StaticRec field
// encodings); only the codec interprets them.
type StateCodec interface {
	// Combine folds an incoming delta into the existing iState for a key, honoring
	// whatever associative/commutative operation the job defines (spec.md: "if the
	// user's combine is not commutative/associative, the framework still processes
	// deltas but offers no convergence guarantee").
	Combine(existingIState, delta []byte) []byte

	// Update folds a selected key's iState into its cState, producing the new cState
	// and a delta to emit downstream (typically a self-loop back through the
	// transport plane).
	Update(key Key, iState, cState []byte) (newCState, delta []byte)

	// Priority extracts the scalar used to order entries for selectActivation. Higher
	// values are selected first.
	Priority(iState []byte) float64

	// Numeric projects a cState value to a scalar for checkDone's sampled
	// convergence comparison (spec.md §3's Numeric() accessor, SPEC_FULL.md §3).
	Numeric(cState []byte) float64
}

// entry is the per-key triple the engine stores. hasStatic distinguishes "staticData is
// the zero value" from "staticData has never been loaded", since a delta that arrives
// before static data is buffered rather than merged (spec.md §4.3 edge case).
type entry struct {
	iState     []byte
	cState     []byte
	staticData []byte
	hasStatic  bool
}

// Activation is one entry returned by SelectActivation: the key, its iState at
// selection time, and the priority it was ranked by.
type Activation struct {
	Key      Key
	IState   []byte
	Priority float64
}
