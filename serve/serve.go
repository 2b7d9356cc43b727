package serve

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/zero-day-ai/riskvault/config"
)

// Config holds the Analyzer server settings.
type Config struct {
	// Address is the TCP listen address.
	// Default: :50051
	Address string

	// GracefulTimeout bounds how long in-flight Analyze calls may run once
	// shutdown starts. Default: 10 seconds
	GracefulTimeout time.Duration

	// TLSCertFile and TLSKeyFile are PEM files. TLS is on only when both
	// are set.
	TLSCertFile string
	TLSKeyFile  string

	// Listener, if set, is used instead of listening on Address.
	Listener net.Listener

	// Logger receives lifecycle messages. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultConfig listens on :50051 with a 10 second graceful timeout.
func DefaultConfig() *Config {
	return &Config{
		Address:         ":50051",
		GracefulTimeout: 10 * time.Second,
	}
}

// ConfigFrom builds a serve configuration from the server section of a
// riskvault configuration.
func ConfigFrom(sc *config.ServerConfig) *Config {
	cfg := DefaultConfig()
	cfg.Address = sc.GetAddress()
	cfg.GracefulTimeout = sc.GetGracefulTimeout()
	return cfg
}

// Server hosts the Analyzer and gRPC health services.
type Server struct {
	grpcServer   *grpc.Server
	listener     net.Listener
	config       *Config
	healthServer *health.Server
	logger       *slog.Logger
}

// NewServer creates a gRPC server serving analyzer and the health service.
func NewServer(cfg *Config, analyzer AnalyzerServer, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}

	var serverOpts []grpc.ServerOption
	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS credentials: %w", err)
		}
		serverOpts = append(serverOpts, grpc.Creds(creds))
	}

	listener := cfg.Listener
	if listener == nil {
		var err error
		listener, err = net.Listen("tcp", cfg.Address)
		if err != nil {
			return nil, fmt.Errorf("failed to listen on %s: %w", cfg.Address, err)
		}
	}

	grpcServer := grpc.NewServer(serverOpts...)
	RegisterAnalyzerServer(grpcServer, analyzer)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		grpcServer:   grpcServer,
		listener:     listener,
		config:       cfg,
		healthServer: healthServer,
		logger:       cfg.Logger,
	}, nil
}

// GRPCServer exposes the gRPC server for registering extra services.
func (s *Server) GRPCServer() *grpc.Server {
	return s.grpcServer
}

// HealthServer exposes the health service so callers can flip statuses.
func (s *Server) HealthServer() *health.Server {
	return s.healthServer
}

// Serve starts the gRPC server and blocks until ctx is done, SIGINT or
// SIGTERM arrives, or the server fails. Shutdown is graceful.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.grpcServer.Serve(s.listener); err != nil {
			errCh <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s.logger.Info("analyzer serving", "address", s.Addr())

	select {
	case <-sigCtx.Done():
		s.logger.Info("shutting down gracefully")
		s.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}

// Stop closes all connections and cancels in-flight calls.
func (s *Server) Stop() {
	s.grpcServer.Stop()
}

// GracefulStop marks the services not serving, stops accepting
// connections and waits up to the graceful timeout for active RPCs.
func (s *Server) GracefulStop() {
	s.healthServer.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("server stopped gracefully")
	case <-time.After(s.config.GracefulTimeout):
		s.logger.Warn("graceful shutdown timeout, forcing stop", "timeout", s.config.GracefulTimeout)
		s.grpcServer.Stop()
	}
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}
