package bufferexchange

import (
	"fmt"
	"net"
	"time"

	"github.com/Scusemua/go-utils/config"
	"github.com/Scusemua/go-utils/logger"

	"github.com/scusemua/priter/common/types"
	"github.com/scusemua/priter/internal/codec"
)

// Source pushes batches of one BufferType to a single remote Sink. It dials lazily: the
// TCP connection is only opened on the first SendBatch call, and is re-dialed after a
// RETRY or a connection error.
type Source struct {
	request BufferRequest

	conn net.Conn
	log  logger.Logger

	retryBudget int
	retries     int
}

// NewSource constructs a Source for the given BufferRequest. retryBudget bounds how many
// times a single batch may be retransmitted after a RETRY or connection error before
// SendBatch gives up and returns an error.
func NewSource(request BufferRequest, retryBudget int) *Source {
	s := &Source{request: request, retryBudget: retryBudget}
	config.InitLogger(&s.log, s)
	return s
}

func (s *Source) String() string {
	return fmt.Sprintf("Source[%s,dest=%s/%d]", s.request.BufferType, s.request.DestTaskId, s.request.PartitionId)
}

// dial opens a fresh connection and performs the Connect handshake. It does not retry,
// and SendBatch returns a dial error (including types.ErrConnectionsFull) to its caller
// without retrying it; only failures after the connection is open are retried.
func (s *Source) dial() error {
	conn, err := net.DialTimeout("tcp", s.request.DestAddr, 10*time.Second)
	if err != nil {
		return err
	}

	status, err := readInt32(conn)
	if err != nil {
		_ = conn.Close()
		return err
	}

	switch Connect(status) {
	case OPEN:
		s.conn = conn
		return nil
	case CONNECTIONS_FULL:
		_ = conn.Close()
		return types.ErrConnectionsFull
	default:
		_ = conn.Close()
		return fmt.Errorf("%s: unexpected handshake status %s", s, Connect(status))
	}
}

// SendBatch transmits one header+payload batch. It returns nil once the Sink answers
// READY and acknowledges the payload with its cursor, or answers IGNORE. TERMINATE closes
// the connection and returns types.ErrBufferComplete; the Source is not marked as
// terminated, so a later SendBatch dials the Sink again. RETRY, and I/O errors on an
// open connection, are retried up to retryBudget times, each on a freshly dialed
// connection. Errors from dialing and the Connect handshake are returned without retry.
func (s *Source) SendBatch(header interface{}, payload []byte) error {
	for {
		if err := s.sendOnce(header, payload); err != nil {
			if err == errRetry {
				s.retries++
				if s.retries > s.retryBudget {
					return fmt.Errorf("%s: exceeded retry budget of %d", s, s.retryBudget)
				}
				s.closeConn()
				continue
			}
			return err
		}
		s.retries = 0
		return nil
	}
}

var errRetry = fmt.Errorf("bufferexchange: batch rejected with RETRY")

func (s *Source) sendOnce(header interface{}, payload []byte) error {
	if s.conn == nil {
		if err := s.dial(); err != nil {
			return err
		}
	}

	if err := writeInt32(s.conn, batchSentinel); err != nil {
		s.closeConn()
		return errRetry
	}
	if err := writeHeader(s.conn, header); err != nil {
		s.closeConn()
		return errRetry
	}

	transfer, err := readInt32(s.conn)
	if err != nil {
		s.closeConn()
		return errRetry
	}

	switch Transfer(transfer) {
	case READY:
		// fall through to payload transmission below
	case IGNORE:
		return nil
	case RETRY:
		return errRetry
	case TERMINATE:
		s.closeConn()
		return types.ErrBufferComplete
	default:
		s.closeConn()
		return fmt.Errorf("%s: unexpected transfer status %s", s, Transfer(transfer))
	}

	if err := writePayload(s.conn, payload); err != nil {
		s.closeConn()
		return errRetry
	}

	// Drain the cursor ack; the value itself is only needed by callers that track
	// cumulative acknowledged progress, which is out of scope for SendBatch.
	if _, err := codec.ReadVInt(s.conn); err != nil {
		s.closeConn()
		return errRetry
	}

	return nil
}

func (s *Source) closeConn() {
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}

// Close tells the Sink this Source is done sending, then closes the connection.
func (s *Source) Close() error {
	if s.conn == nil {
		return nil
	}
	_ = writeInt32(s.conn, closeSentinel)
	err := s.conn.Close()
	s.conn = nil
	return err
}
