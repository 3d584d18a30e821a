// Package bufferexchange implements the Source/Sink transport plane: a Sink binds an
// ephemeral TCP listener and advertises it through the consul registry; a Source is
// constructed with a BufferRequest and connects lazily. The package owns the connection
// handshake, the four BufferType-specific handlers, and the three STREAM synchronization
// regimes.
package bufferexchange

// BufferType selects which per-handler cursor/dedup/accept semantics a connection uses.
type BufferType int

const (
	// FILE transfers ordered, resumable spill segments identified by an integer
	// spill-id range.
	FILE BufferType = iota
	// SNAPSHOT transfers idempotent, monotonically-progressing state dumps.
	SNAPSHOT
	// STREAM transfers strictly sequenced per-iteration records that trigger the
	// reducer.
	STREAM
	// PKVBUF transfers strictly sequenced per-iteration activation batches that wake
	// the map side.
	PKVBUF
)

func (t BufferType) String() string {
	switch t {
	case FILE:
		return "FILE"
	case SNAPSHOT:
		return "SNAPSHOT"
	case STREAM:
		return "STREAM"
	case PKVBUF:
		return "PKVBUF"
	default:
		return "UNKNOWN"
	}
}

// Connect is the enum a Source reads immediately after opening its TCP connection.
type Connect int32

const (
	OPEN Connect = iota
	BUFFER_COMPLETE
	CONNECTIONS_FULL
	ERROR
	CLOSED
)

func (c Connect) String() string {
	switch c {
	case OPEN:
		return "OPEN"
	case BUFFER_COMPLETE:
		return "BUFFER_COMPLETE"
	case CONNECTIONS_FULL:
		return "CONNECTIONS_FULL"
	case ERROR:
		return "ERROR"
	case CLOSED:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Transfer is the enum a Sink replies with after reading a record batch header.
type Transfer int32

const (
	READY Transfer = iota
	IGNORE
	SUCCESS
	RETRY
	TERMINATE
	TRANSFER_CLOSED
)

func (t Transfer) String() string {
	switch t {
	case READY:
		return "READY"
	case IGNORE:
		return "IGNORE"
	case SUCCESS:
		return "SUCCESS"
	case RETRY:
		return "RETRY"
	case TERMINATE:
		return "TERMINATE"
	case TRANSFER_CLOSED:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// batchSentinel precedes every record-batch Header on the wire; a 0 in its place signals
// that the writer is closing the connection.
const batchSentinel int32 = 0x7FFFFFFF

// closeSentinel is written in place of batchSentinel when either side is closing the
// connection.
const closeSentinel int32 = 0
