package bufferexchange

import "net"

// decideSnapshot implements SNAPSHOT's cursor semantics: a dump is accepted whenever it
// carries more progress than the last applied dump. Since snapshots are cumulative state
// rather than an append-only log, a dump that does not advance progress is a harmless
// replay and is ignored rather than retried.
func decideSnapshot(conn net.Conn, h *Handler) (Transfer, interface{}, error) {
	header := &SnapshotHeader{}
	if err := readHeader(conn, header); err != nil {
		return READY, nil, err
	}

	if header.Progress > h.floatCursor {
		return READY, header, nil
	}
	return IGNORE, header, nil
}
