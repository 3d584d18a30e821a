package bufferexchange

import "net"

// decideStream implements STREAM's cursor semantics: records are strictly sequenced, so a
// batch is only accepted when its Sequence exactly matches the next expected value. A
// batch behind the cursor is a replay and is ignored; a batch ahead of the cursor implies
// a missing predecessor and the source is asked to retry.
//
// The syncRegime is not consulted here: it governs when the accumulated STREAM inputs are
// considered sufficient to wake the reducer, which is decided by the caller after accept
// runs, not by the per-batch accept/reject decision itself.
func decideStream(conn net.Conn, h *Handler) (Transfer, interface{}, error) {
	header := &StreamHeader{}
	if err := readHeader(conn, header); err != nil {
		return READY, nil, err
	}

	switch {
	case header.Sequence == h.intCursor:
		return READY, header, nil
	case header.Sequence < h.intCursor:
		return IGNORE, header, nil
	default:
		return RETRY, header, nil
	}
}
