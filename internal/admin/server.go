package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"meshnode/internal/node"
)

const (
	serviceName    = "meshnode.admin.Admin"
	snapshotMethod = "/" + serviceName + "/Snapshot"
)

// Inspector is the part of a node the admin service reads.
type Inspector interface {
	Inspect(ctx context.Context, fn func()) error
	Snapshot() map[string]any
}

// AdminServer is the server API of the admin service.
type AdminServer interface {
	Snapshot(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*AdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Snapshot", Handler: snapshotHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "meshnode/admin",
}

func snapshotHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdminServer).Snapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: snapshotMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AdminServer).Snapshot(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// Register adds the admin service to s.
func Register(s grpc.ServiceRegistrar, srv AdminServer) {
	s.RegisterService(&serviceDesc, srv)
}

// Service implements AdminServer over a running node.
type Service struct {
	node   Inspector
	logger *zap.Logger
}

// NewService creates the admin service for n.
func NewService(n Inspector, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{node: n, logger: logger.Named("admin")}
}

// Snapshot reads the node state on its handler goroutine.
func (s *Service) Snapshot(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	var snap map[string]any
	err := s.node.Inspect(ctx, func() { snap = s.node.Snapshot() })
	switch {
	case errors.Is(err, node.ErrStopped):
		return nil, status.Error(codes.Unavailable, "node stopped")
	case err != nil:
		return nil, status.FromContextError(err).Err()
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode snapshot: %v", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Errorf(codes.Internal, "convert snapshot: %v", err)
	}
	return out, nil
}

// Server runs the admin service on its own listener.
type Server struct {
	grpc   *grpc.Server
	logger *zap.Logger
}

// NewServer creates a gRPC server exposing svc.
func NewServer(svc AdminServer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("admin")
	s := &Server{
		grpc:   grpc.NewServer(grpc.UnaryInterceptor(logCalls(logger))),
		logger: logger,
	}
	Register(s.grpc, svc)
	return s
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("serving admin", zap.String("addr", lis.Addr().String()))
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve admin: %w", err)
	}
	return nil
}

// ListenAndServe listens on addr and serves.
func (s *Server) ListenAndServe(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(lis)
}

// Stop gracefully stops the server.
func (s *Server) Stop() {
	s.grpc.GracefulStop()
}

func logCalls(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			logger.Warn("admin call failed", zap.String("method", info.FullMethod), zap.Error(err))
		} else {
			logger.Debug("admin call", zap.String("method", info.FullMethod))
		}
		return resp, err
	}
}
