package serve

import (
	"log/slog"
	"net"
	"time"
)

// Option is a functional option for configuring a Server.
type Option func(*Config)

// WithAddress sets the TCP listen address. Use ":0" to pick a free port.
//
// Example:
//
//	serve.NewServer(nil, analyzer, serve.WithAddress("127.0.0.1:9000"))
func WithAddress(addr string) Option {
	return func(c *Config) {
		c.Address = addr
	}
}

// WithListener serves on an existing listener instead of Address.
func WithListener(lis net.Listener) Option {
	return func(c *Config) {
		c.Listener = lis
	}
}

// WithGracefulShutdown sets the maximum duration to wait for active
// requests to complete during graceful shutdown.
// After this timeout, the server will force shutdown.
func WithGracefulShutdown(timeout time.Duration) Option {
	return func(c *Config) {
		c.GracefulTimeout = timeout
	}
}

// WithTLS enables TLS encryption for the gRPC server.
// Both certFile and keyFile must be valid paths to PEM-encoded files.
// If either path is empty, TLS will be disabled.
func WithTLS(certFile, keyFile string) Option {
	return func(c *Config) {
		c.TLSCertFile = certFile
		c.TLSKeyFile = keyFile
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
