package bufferexchange

import "net"

// decidePKVBuf implements PKVBUF's cursor semantics: exactly one activation batch is
// expected per source per iteration, so a batch is accepted only when its Iteration
// exactly matches the next expected value.
func decidePKVBuf(conn net.Conn, h *Handler) (Transfer, interface{}, error) {
	header := &PKVBufferHeader{}
	if err := readHeader(conn, header); err != nil {
		return READY, nil, err
	}

	switch {
	case header.Iteration == h.intCursor:
		return READY, header, nil
	case header.Iteration < h.intCursor:
		return IGNORE, header, nil
	default:
		return RETRY, header, nil
	}
}
