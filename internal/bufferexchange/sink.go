package bufferexchange

import (
	"fmt"
	"net"
	"sync"

	"github.com/Scusemua/go-utils/config"
	"github.com/Scusemua/go-utils/logger"

	"github.com/scusemua/priter/common/consul"
)

// Sink binds one ephemeral TCP listener per BufferType, advertises it through the
// registry, and spawns a Handler for every accepted connection, subject to
// maxConnections flow control.
type Sink struct {
	bufferType BufferType
	ownerId    string

	listener    net.Listener
	registry    *consul.Client
	maxConns    int
	activeConns int
	mu          sync.Mutex

	newHandler func() *Handler

	log    logger.Logger
	closed chan struct{}
}

// NewSink binds a listener for bufferType on an OS-assigned port and returns the Sink;
// advertising it in the registry is a separate Register call. newHandler constructs a
// fresh per-connection Handler and is called once per admitted connection. It takes no
// arguments: the handshake carries no source partition, so a Handler is not told which
// source it serves.
func NewSink(bufferType BufferType, ownerId string, registry *consul.Client, maxConns int, newHandler func() *Handler) (*Sink, error) {
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		return nil, fmt.Errorf("failed to bind %s sink listener: %w", bufferType, err)
	}

	s := &Sink{
		bufferType: bufferType,
		ownerId:    ownerId,
		listener:   listener,
		registry:   registry,
		maxConns:   maxConns,
		newHandler: newHandler,
		closed:     make(chan struct{}),
	}
	config.InitLogger(&s.log, s)

	return s, nil
}

func (s *Sink) String() string {
	return fmt.Sprintf("Sink[%s,owner=%s]", s.bufferType, s.ownerId)
}

// Addr returns the address the listener is bound to, for registry advertisement.
func (s *Sink) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until Close is called. Each connection first receives the
// Connect handshake, then (if admitted) is handed to a fresh Handler.
func (s *Sink) Serve() error {
	s.log.Info("%s accepting connections at %v", s, s.listener.Addr())

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closed:
				return nil
			default:
				s.log.Error("%s accept error: %v", s, err)
				continue
			}
		}

		go s.serveConn(conn)
	}
}

func (s *Sink) serveConn(conn net.Conn) {
	if !s.admit() {
		_ = writeInt32(conn, int32(CONNECTIONS_FULL))
		_ = conn.Close()
		return
	}
	defer s.release()
	defer func() { _ = conn.Close() }()

	if err := writeInt32(conn, int32(OPEN)); err != nil {
		s.log.Error("%s failed to complete handshake: %v", s, err)
		return
	}

	handler := s.newHandler()
	if err := handler.Handle(conn); err != nil {
		s.log.Debug("%s handler for %s exited: %v", s, conn.RemoteAddr(), err)
	}
}

func (s *Sink) admit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeConns >= s.maxConns {
		return false
	}
	s.activeConns++
	return true
}

func (s *Sink) release() {
	s.mu.Lock()
	s.activeConns--
	s.mu.Unlock()
}

// Close stops accepting new connections and deregisters the Sink.
func (s *Sink) Close() error {
	close(s.closed)
	if s.registry != nil {
		s.registry.Deregister(s.registryId())
	}
	return s.listener.Close()
}

func (s *Sink) registryId() string {
	return fmt.Sprintf("%s-%s", s.ownerId, s.bufferType)
}

// Register advertises this Sink's listener under the registry using ownerId and
// BufferType to build a unique service id.
func (s *Sink) Register() error {
	if s.registry == nil {
		return nil
	}

	host, portStr, err := net.SplitHostPort(s.listener.Addr().String())
	if err != nil {
		return err
	}

	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return err
	}

	return s.registry.Register(s.registryId(), s.registryId(), host, port)
}
