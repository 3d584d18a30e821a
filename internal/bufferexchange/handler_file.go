package bufferexchange

import "net"

// decideFile implements FILE's cursor semantics: a run is only accepted if it picks up
// exactly where the last accepted run left off. A run whose FirstId has already been
// passed is a replay and is ignored; a run whose FirstId is ahead of the cursor implies a
// missing predecessor run and the source is asked to retry once that gap is filled.
func decideFile(conn net.Conn, h *Handler) (Transfer, interface{}, error) {
	header := &FileHeader{}
	if err := readHeader(conn, header); err != nil {
		return READY, nil, err
	}

	switch {
	case header.FirstId == h.intCursor:
		return READY, header, nil
	case header.FirstId < h.intCursor:
		return IGNORE, header, nil
	default:
		return RETRY, header, nil
	}
}
