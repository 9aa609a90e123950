package server

import (
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// NewGRPCServer creates a gRPC server with standard interceptors, registers
// the health service and reflection, and returns the server ready to serve.
func NewGRPCServer(hs *health.Server, authToken string, logger *slog.Logger) *grpc.Server {
	if logger == nil {
		logger = slog.Default()
	}
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor(logger),
			LoggingInterceptor(logger),
			AuthInterceptor(authToken),
		),
		grpc.ChainStreamInterceptor(
			StreamLoggingInterceptor(logger),
			StreamAuthInterceptor(authToken),
		),
	)

	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return srv
}
