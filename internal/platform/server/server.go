package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/ogurasousui/leave-ledger/internal/adapters/grpc/handler"
	"github.com/ogurasousui/leave-ledger/internal/platform/metrics"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Services はサーバーに登録する gRPC サービスの実装です。nil のサービスは登録しません。
type Services struct {
	Leave     handler.LeaveServiceServer
	LeaveType handler.LeaveTypeServiceServer
	Employee  handler.EmployeeServiceServer
}

// Server は gRPC サーバーのライフサイクルを管理します。
type Server struct {
	listenAddr string
	grpcServer *grpc.Server
	health     *health.Server
	logger     *slog.Logger
}

// New は指定されたアドレスで待ち受ける gRPC サーバーを構築します。
func New(listenAddr string, services Services, logger *slog.Logger, recorder *metrics.Recorder, opts ...grpc.ServerOption) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(UnaryInterceptor(logger, recorder))}, opts...)
	srv := grpc.NewServer(opts...)

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(srv, healthSrv)

	if services.Leave != nil {
		handler.RegisterLeaveServiceServer(srv, services.Leave)
		healthSrv.SetServingStatus(handler.LeaveServiceDesc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	}
	if services.LeaveType != nil {
		handler.RegisterLeaveTypeServiceServer(srv, services.LeaveType)
		healthSrv.SetServingStatus(handler.LeaveTypeServiceDesc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	}
	if services.Employee != nil {
		handler.RegisterEmployeeServiceServer(srv, services.Employee)
		healthSrv.SetServingStatus(handler.EmployeeServiceDesc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	}

	return &Server{
		listenAddr: listenAddr,
		grpcServer: srv,
		health:     healthSrv,
		logger:     logger,
	}
}

// Run はサーバーを起動し、コンテキストがキャンセルされると GracefulStop します。
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.listenAddr, err)
	}
	return s.Serve(ctx, lis)
}

// Serve は受け取ったリスナーでサーバーを起動します。
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()

	s.logger.Info("gRPC server listening", "addr", lis.Addr().String())
	if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	return nil
}

// GracefulStop はヘルスチェックを NOT_SERVING にしてからサーバーを安全に停止します。
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
