// Package admin exposes the relay's operational gRPC surface: standard health checking and reflection.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	sdkgrpc "github.com/mama165/sdk-go/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported for the websocket relay.
const ServiceName = "chat.relay"

type Server struct {
	log    *slog.Logger
	grpc   *grpc.Server
	health *health.Server
}

func NewServer(log *slog.Logger) *Server {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(sdkgrpc.UnaryLoggingInterceptor(log)))
	h := health.NewServer()
	healthpb.RegisterHealthServer(s, h)
	reflection.Register(s)
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Server{log: log.With("component", "admin"), grpc: s, health: h}
}

// SetServing flips both the overall and the relay health status.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Serve blocks until the listener fails or Stop is called.
func (s *Server) Serve(listener net.Listener) error {
	s.log.Info("Starting gRPC admin server", "address", listener.Addr().String())
	for serviceName := range s.grpc.GetServiceInfo() {
		s.log.Debug("gRPC exposed service", "name", serviceName)
	}
	if err := s.grpc.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("gRPC admin server error: %w", err)
	}
	return nil
}

// Stop reports NOT_SERVING and drains in-flight calls until ctx expires.
func (s *Server) Stop(ctx context.Context) {
	s.health.Shutdown()
	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpc.Stop()
	}
}
