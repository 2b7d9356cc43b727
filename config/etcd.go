package config

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdSource reads a shared configuration document from one etcd key and
// watches it for updates.
//
// Example usage:
//
//	src, err := config.NewEtcdSource(config.EtcdConfig{
//	    Endpoints: []string{"localhost:2379"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer src.Close()
//
//	cfg, err := src.Load(ctx)
//
// Thread-safety: All methods are safe for concurrent use.
type EtcdSource struct {
	kv      clientv3.KV
	watcher clientv3.Watcher
	key     string
	logger  *slog.Logger
	client  *clientv3.Client

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
	done   chan struct{}
}

// SourceOption configures an EtcdSource.
type SourceOption func(*EtcdSource)

// WithSourceLogger sets the logger used to report rejected documents.
func WithSourceLogger(logger *slog.Logger) SourceOption {
	return func(s *EtcdSource) {
		s.logger = logger
	}
}

// NewEtcdSource connects to the cluster described by cfg.
func NewEtcdSource(cfg EtcdConfig, opts ...SourceOption) (*EtcdSource, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("etcd endpoints cannot be empty")
	}

	clientCfg := clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.GetDialTimeout(),
	}
	if cfg.TLS != nil && cfg.TLS.Enabled {
		tlsConfig, err := clientTLS(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
		clientCfg.TLS = tlsConfig
	}

	cli, err := clientv3.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	s := NewEtcdSourceFromClient(cli, cli, cfg.GetKey(), opts...)
	s.client = cli
	return s, nil
}

// NewEtcdSourceFromEnv creates a source from RISKVAULT_ETCD_ENDPOINTS
// (comma-separated) and RISKVAULT_ETCD_KEY.
//
// If RISKVAULT_ETCD_ENDPOINTS is not set, it returns (nil, nil): the caller
// keeps its local configuration.
func NewEtcdSourceFromEnv(opts ...SourceOption) (*EtcdSource, error) {
	endpoints := os.Getenv("RISKVAULT_ETCD_ENDPOINTS")
	if endpoints == "" {
		return nil, nil
	}

	list := strings.Split(endpoints, ",")
	for i, ep := range list {
		list[i] = strings.TrimSpace(ep)
	}
	return NewEtcdSource(EtcdConfig{
		Endpoints: list,
		Key:       os.Getenv("RISKVAULT_ETCD_KEY"),
	}, opts...)
}

// NewEtcdSourceFromClient wraps existing KV and Watcher implementations.
func NewEtcdSourceFromClient(kv clientv3.KV, watcher clientv3.Watcher, key string, opts ...SourceOption) *EtcdSource {
	s := &EtcdSource{
		kv:      kv,
		watcher: watcher,
		key:     key,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Key returns the watched key.
func (s *EtcdSource) Key() string {
	return s.key
}

// Load reads and validates the current document.
func (s *EtcdSource) Load(ctx context.Context) (Config, error) {
	resp, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read %s: %w", s.key, err)
	}
	if len(resp.Kvs) == 0 {
		return Config{}, fmt.Errorf("config key %s not found", s.key)
	}
	return Parse(resp.Kvs[0].Value)
}

// Watch returns a channel that receives every valid config written to the
// key. The current document, if any and valid, is sent first. Invalid
// documents and deletions are logged and skipped so the receiver keeps its
// last good config.
//
// The channel is closed when ctx is canceled or Close is called.
func (s *EtcdSource) Watch(ctx context.Context) (<-chan Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("etcd source is closed")
	}

	ch := make(chan Config, 1)

	resp, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.key, err)
	}
	if len(resp.Kvs) > 0 {
		if cfg, ok := s.decode(resp.Kvs[0].Value); ok {
			ch <- cfg
		}
	}

	watchChan := s.watcher.Watch(ctx, s.key)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(ch)

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case wresp, ok := <-watchChan:
				if !ok {
					return
				}
				if err := wresp.Err(); err != nil {
					s.logger.Warn("config watch failed", "key", s.key, "error", err)
					return
				}

				for _, ev := range wresp.Events {
					if ev.Type == mvccpb.DELETE {
						s.logger.Warn("config key deleted, keeping last config", "key", s.key)
						continue
					}
					cfg, ok := s.decode(ev.Kv.Value)
					if !ok {
						continue
					}
					select {
					case ch <- cfg:
					case <-ctx.Done():
						return
					case <-s.done:
						return
					}
				}
			}
		}
	}()

	return ch, nil
}

func (s *EtcdSource) decode(data []byte) (Config, bool) {
	cfg, err := Parse(data)
	if err != nil {
		s.logger.Warn("rejected config document", "key", s.key, "error", err)
		return Config{}, false
	}
	return cfg, true
}

// Close stops all watches and releases the client if the source owns it.
func (s *EtcdSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()

	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func clientTLS(cfg *TLSConfig) (*tls.Config, error) {
	if cfg.CertFile == "" || cfg.KeyFile == "" || cfg.CAFile == "" {
		return nil, fmt.Errorf("TLS cert, key and CA files are required when TLS is enabled")
	}

	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client certificate: %w", err)
	}

	caData, err := os.ReadFile(cfg.CAFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caData) {
		return nil, fmt.Errorf("failed to parse CA certificate")
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      caPool,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// Follow passes each config received on updates to apply until updates is
// closed or ctx is done. Configs apply rejects are logged and skipped.
func Follow(ctx context.Context, updates <-chan Config, apply func(Config) error, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-updates:
			if !ok {
				return
			}
			if err := apply(cfg); err != nil {
				logger.Warn("config update rejected", "error", err)
			}
		}
	}
}
