// Package grpc serves the gRPC health checking protocol next to the HTTP API,
// for orchestrators that probe over gRPC.
package grpc

import (
	"github.com/garala-cf/garala/internal/middleware"
	"github.com/garala-cf/garala/internal/platform/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// NewHealthServer creates a gRPC server exposing grpc.health.v1 and
// reflection. serviceName starts NOT_SERVING; the caller flips it once the
// HTTP listener is up.
func NewHealthServer(appLogger *logger.Logger, serviceName string) (*grpc.Server, *health.Server) {
	server := grpc.NewServer(
		middleware.GRPCTracing(),
		grpc.ChainUnaryInterceptor(middleware.UnaryLoggingInterceptor(appLogger)),
	)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	reflection.Register(server)

	appLogger.Info("gRPC health server configured", zap.String("service", serviceName))
	return server, healthServer
}
