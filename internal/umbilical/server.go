package umbilical

import (
	"context"
	"net"
	"runtime/debug"

	"github.com/Scusemua/go-utils/config"
	"github.com/Scusemua/go-utils/logger"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// serviceName is the gRPC service path segment ("package.Service") used in every
// method's full path below.
const serviceName = "priter.umbilical.Umbilical"

// Server is implemented by whatever component of the host runtime answers a task's
// umbilical calls (ordinarily the job coordinator wiring in internal/job).
type Server interface {
	StatusUpdate(ctx context.Context, req *StatusUpdateRequest) (*StatusUpdateResponse, error)
	Ping(ctx context.Context, req *PingRequest) (*PongResponse, error)
	Done(ctx context.Context, req *DoneRequest) (*DoneResponse, error)
	SnapshotCommit(ctx context.Context, req *SnapshotCommitRequest) (*SnapshotCommitResponse, error)
	AfterIterCommit(ctx context.Context, req *AfterIterCommitRequest) (*AfterIterCommitResponse, error)
	RollbackCheck(ctx context.Context, req *RollbackCheckRequest) (*RollbackCheckResponse, error)
}

// serviceDesc is this package's hand-written replacement for a .proto-generated
// grpc.ServiceDesc: one grpc.MethodDesc per Server method, each decoding its request
// with the injected jsonCodec rather than protobuf.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "StatusUpdate", Handler: statusUpdateHandler},
		{MethodName: "Ping", Handler: pingHandler},
		{MethodName: "Done", Handler: doneHandler},
		{MethodName: "SnapshotCommit", Handler: snapshotCommitHandler},
		{MethodName: "AfterIterCommit", Handler: afterIterCommitHandler},
		{MethodName: "RollbackCheck", Handler: rollbackCheckHandler},
	},
}

func statusUpdateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(StatusUpdateRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).StatusUpdate(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/StatusUpdate"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).StatusUpdate(ctx, req.(*StatusUpdateRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func pingHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(PingRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Ping(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/Ping"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).Ping(ctx, req.(*PingRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func doneHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(DoneRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Done(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/Done"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).Done(ctx, req.(*DoneRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func snapshotCommitHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(SnapshotCommitRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).SnapshotCommit(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/SnapshotCommit"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).SnapshotCommit(ctx, req.(*SnapshotCommitRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func afterIterCommitHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(AfterIterCommitRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).AfterIterCommit(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/AfterIterCommit"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).AfterIterCommit(ctx, req.(*AfterIterCommitRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func rollbackCheckHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(RollbackCheckRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).RollbackCheck(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/RollbackCheck"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).RollbackCheck(ctx, req.(*RollbackCheckRequest))
	}
	return interceptor(ctx, req, info, handler)
}

// RegisterServer attaches srv to s under this package's hand-written ServiceDesc.
func RegisterServer(s *grpc.Server, srv Server) {
	s.RegisterService(&serviceDesc, srv)
}

// HostRuntime wraps a net.Listener and a *grpc.Server serving the umbilical, matching
// the teacher's listener-owning server struct shape.
type HostRuntime struct {
	listener net.Listener
	server   *grpc.Server

	log logger.Logger
}

// NewHostRuntime binds addr and registers srv against a fresh *grpc.Server, which
// decodes with this package's JSON codec whenever a client sends its content-subtype.
func NewHostRuntime(addr string, srv Server) (*HostRuntime, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	h := &HostRuntime{listener: listener}
	config.InitLogger(&h.log, h)

	// No explicit codec option is needed server-side: grpc selects a registered
	// codec.Codec by the "application/grpc+<subtype>" content-type the client sends,
	// and jsonCodec is registered under codecName in codec.go's init().
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		recovery.UnaryServerInterceptor(recovery.WithRecoveryHandler(h.recoverPanic)),
	))
	RegisterServer(grpcServer, srv)
	h.server = grpcServer

	return h, nil
}

// recoverPanic is the umbilical's gRPC recovery handler: a task's status/done/commit
// call must never take the whole host runtime down with it, matching the teacher's own
// GetGrpcOptions recovery handler shape (gateway/cmd/main.go).
func (h *HostRuntime) recoverPanic(p any) error {
	h.log.Error("Umbilical gRPC handler panicked: %v", p)
	debug.PrintStack()
	return status.Errorf(codes.Internal, "umbilical handler panic: %v", p)
}

func (h *HostRuntime) String() string {
	return "UmbilicalHostRuntime[" + h.listener.Addr().String() + "]"
}

// Serve blocks accepting umbilical RPCs until Stop is called.
func (h *HostRuntime) Serve() error {
	h.log.Info("Umbilical host runtime listening on %s", h.listener.Addr().String())
	return h.server.Serve(h.listener)
}

// Addr returns the bound listener address.
func (h *HostRuntime) Addr() net.Addr {
	return h.listener.Addr()
}

// Stop gracefully shuts the gRPC server down.
func (h *HostRuntime) Stop() {
	h.server.GracefulStop()
}
