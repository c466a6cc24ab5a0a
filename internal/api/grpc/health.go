package grpc

import (
	"context"
	"time"

	"roomsync-backend/internal/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// RelayService is the health service name that tracks the change relay.
const RelayService = "relay"

// HealthServer exposes grpc.health.v1. The overall status is SERVING once the
// process is up; the relay service follows the notification listener.
type HealthServer struct {
	srv *health.Server
}

func NewHealthServer() *HealthServer {
	h := &HealthServer{srv: health.NewServer()}
	h.srv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.srv.SetServingStatus(RelayService, healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// SetRelayServing is called by the relay as its listener connects and drops.
func (h *HealthServer) SetRelayServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.srv.SetServingStatus(RelayService, status)
}

func (h *HealthServer) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := h.srv.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.Status, nil
}

// NewServer builds the gRPC server carrying the health service.
func (h *HealthServer) NewServer() *grpc.Server {
	s := grpc.NewServer(grpc.UnaryInterceptor(loggingInterceptor))
	healthpb.RegisterHealthServer(s, h.srv)
	// Register reflection service for grpcurl
	reflection.Register(s)
	return s
}

// Shutdown flips every service to NOT_SERVING ahead of stopping.
func (h *HealthServer) Shutdown() {
	h.srv.Shutdown()
}

func loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	logger.Debug("grpc request", "method", info.FullMethod, "duration_ms", time.Since(start).Milliseconds(), "error", err)
	return resp, err
}
