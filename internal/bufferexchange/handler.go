package bufferexchange

import (
	"net"

	"github.com/Scusemua/go-utils/logger"

	"github.com/scusemua/priter/common/types"
	"github.com/scusemua/priter/internal/codec"
)

// OnBatch is invoked by a Handler after it accepts a batch (decides READY and reads the
// payload). header is one of *FileHeader, *SnapshotHeader, *StreamHeader, or
// *PKVBufferHeader depending on the Handler's BufferType.
type OnBatch func(header interface{}, payload []byte)

// Handler is the single sum-typed connection handler for all four BufferTypes (Design
// Notes: the four handler kinds are expressed as sum types dispatched by a single enum,
// not subclass hierarchies). Its cursor fields are a superset of every BufferType's
// cursor kind; only the field matching bufferType is ever read or written.
type Handler struct {
	bufferType BufferType

	intCursor   int64   // FILE (next expected spill-id), STREAM/PKVBUF (next expected sequence)
	floatCursor float64 // SNAPSHOT (last applied progress)

	onBatch OnBatch
	logger  logger.Logger

	syncRegime      *streamSyncRegime // only set when bufferType == STREAM
	sourcePartition int               // the source partition id this handler serves; only meaningful when bufferType == STREAM
}

// NewHandler returns a Handler for the given BufferType. syncRegime and sourcePartition
// are ignored unless bufferType is STREAM; syncRegime may be nil for every other
// BufferType, and must be the same *StreamSyncRegime shared across every STREAM
// Handler belonging to one reduce task.
func NewHandler(bufferType BufferType, onBatch OnBatch, syncRegime *StreamSyncRegime, sourcePartition int, log logger.Logger) *Handler {
	h := &Handler{
		bufferType:      bufferType,
		onBatch:         onBatch,
		sourcePartition: sourcePartition,
		logger:          log,
	}
	if syncRegime != nil {
		h.syncRegime = syncRegime.inner
	}
	return h
}

// Handle drives the per-batch protocol loop over an already-accepted connection: the
// Sink has already sent OPEN and read the source's BufferType before constructing this
// Handler and calling Handle.
func (h *Handler) Handle(conn net.Conn) error {
	for {
		sentinel, err := readInt32(conn)
		if err != nil {
			return err
		}
		if sentinel == closeSentinel {
			return nil
		}
		if sentinel != batchSentinel {
			return types.ErrUnknownBufferType
		}

		transfer, header, err := h.decideAndRead(conn)
		if err != nil {
			return err
		}

		if err := writeInt32(conn, int32(transfer)); err != nil {
			return err
		}

		if transfer != READY {
			continue
		}

		payload, err := readPayload(conn)
		if err != nil {
			return err
		}

		h.accept(header, payload)

		if err := h.writeCursorAck(conn); err != nil {
			return err
		}
	}
}

// decideAndRead reads the batch header for h.bufferType and decides the Transfer
// response, without yet reading the payload (the source only sends the payload after
// seeing READY).
func (h *Handler) decideAndRead(conn net.Conn) (Transfer, interface{}, error) {
	switch h.bufferType {
	case FILE:
		return decideFile(conn, h)
	case SNAPSHOT:
		return decideSnapshot(conn, h)
	case STREAM:
		return decideStream(conn, h)
	case PKVBUF:
		return decidePKVBuf(conn, h)
	default:
		return READY, nil, types.ErrUnknownBufferType
	}
}

// accept runs the BufferType-specific on-accept action and advances this Handler's
// cursor. The new cursor value is then written back to the source by writeCursorAck.
func (h *Handler) accept(header interface{}, payload []byte) {
	if h.onBatch != nil {
		h.onBatch(header, payload)
	}

	switch h.bufferType {
	case FILE:
		fh := header.(*FileHeader)
		h.intCursor = fh.LastId + 1
	case SNAPSHOT:
		sh := header.(*SnapshotHeader)
		h.floatCursor = sh.Progress
	case STREAM:
		sh := header.(*StreamHeader)
		h.intCursor = sh.Sequence + 1
		if h.syncRegime != nil {
			h.syncRegime.Arrived(h.sourcePartition)
		}
	case PKVBUF:
		ph := header.(*PKVBufferHeader)
		h.intCursor = ph.Iteration + 1
	}
}

// writeCursorAck writes the handler's next-expected-cursor back to the source: a VInt-
// encoded fixed-point value for SNAPSHOT's float-valued progress cursor (scaled by
// progressScale so fractional progress survives the integer wire format), or a plain
// VInt for every other BufferType's integer cursor.
func (h *Handler) writeCursorAck(conn net.Conn) error {
	if h.bufferType == SNAPSHOT {
		return codec.WriteVInt(conn, int64(h.floatCursor*progressScale))
	}
	return codec.WriteVInt(conn, h.intCursor)
}

// progressScale is the fixed-point scale applied to SnapshotHeader.Progress when it is
// acknowledged back to the source as a VInt.
const progressScale = 1e6
