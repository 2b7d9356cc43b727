package config

import "time"

// WorkerConfig defines configuration for queue-based batch analysis.
type WorkerConfig struct {
	// Concurrency is the number of concurrent worker goroutines.
	// Default: 4
	Concurrency int `yaml:"concurrency,omitempty" json:"concurrency,omitempty"`

	// ShutdownTimeout is the time to wait for in-flight batches on shutdown.
	// Format: Go duration string (e.g., "30s", "1m")
	// Default: 30s
	ShutdownTimeout string `yaml:"shutdown_timeout,omitempty" json:"shutdown_timeout,omitempty"`

	// PopTimeout is how long one blocking queue read waits for a batch.
	// Format: Go duration string (e.g., "5s")
	// Default: 5s
	PopTimeout string `yaml:"pop_timeout,omitempty" json:"pop_timeout,omitempty"`

	// QueuePrefix is the Redis key prefix.
	// Default: "riskvault" (resulting in "riskvault:batches")
	QueuePrefix string `yaml:"queue_prefix,omitempty" json:"queue_prefix,omitempty"`

	// RedisURL is the Redis address.
	// Default: "redis://localhost:6379"
	RedisURL string `yaml:"redis_url,omitempty" json:"redis_url,omitempty"`

	// DedupSize is how many recent batch IDs are remembered to drop redeliveries.
	// Default: 1024
	DedupSize int `yaml:"dedup_size,omitempty" json:"dedup_size,omitempty"`

	// MetricsAddr is the listen address of the /metrics and /healthz endpoint.
	// Empty disables it.
	MetricsAddr string `yaml:"metrics_addr,omitempty" json:"metrics_addr,omitempty"`

	// MaxBacklog is the queue depth above which the worker reports itself
	// degraded. Zero or less disables the check.
	// Default: 10000
	MaxBacklog int64 `yaml:"max_backlog,omitempty" json:"max_backlog,omitempty"`
}

// GetConcurrency returns the configured concurrency or the default value.
func (w *WorkerConfig) GetConcurrency() int {
	if w == nil || w.Concurrency <= 0 {
		return 4
	}
	return w.Concurrency
}

// GetShutdownTimeout parses the shutdown timeout string and returns a duration.
// Returns the default value if not set or invalid.
func (w *WorkerConfig) GetShutdownTimeout() time.Duration {
	if w == nil {
		return 30 * time.Second
	}
	return parseOr(w.ShutdownTimeout, 30*time.Second)
}

// GetPopTimeout parses the pop timeout string and returns a duration.
// Returns the default value if not set or invalid.
func (w *WorkerConfig) GetPopTimeout() time.Duration {
	if w == nil {
		return 5 * time.Second
	}
	return parseOr(w.PopTimeout, 5*time.Second)
}

// GetQueuePrefix returns the queue prefix or the default value.
func (w *WorkerConfig) GetQueuePrefix() string {
	if w == nil || w.QueuePrefix == "" {
		return "riskvault"
	}
	return w.QueuePrefix
}

// GetRedisURL returns the Redis URL or the default value.
func (w *WorkerConfig) GetRedisURL() string {
	if w == nil || w.RedisURL == "" {
		return "redis://localhost:6379"
	}
	return w.RedisURL
}

// GetMaxBacklog returns the degraded-backlog threshold or the default value.
func (w *WorkerConfig) GetMaxBacklog() int64 {
	if w == nil || w.MaxBacklog == 0 {
		return 10000
	}
	return w.MaxBacklog
}

// GetDedupSize returns the redelivery guard size or the default value.
func (w *WorkerConfig) GetDedupSize() int {
	if w == nil || w.DedupSize <= 0 {
		return 1024
	}
	return w.DedupSize
}

// GetMetricsAddr returns the metrics listen address, empty when disabled.
func (w *WorkerConfig) GetMetricsAddr() string {
	if w == nil {
		return ""
	}
	return w.MetricsAddr
}

// ServerConfig defines configuration for the gRPC analysis server.
type ServerConfig struct {
	// Address is the listen address.
	// Default: ":50051"
	Address string `yaml:"address,omitempty" json:"address,omitempty"`

	// GracefulTimeout bounds graceful shutdown before a hard stop.
	// Format: Go duration string
	// Default: 10s
	GracefulTimeout string `yaml:"graceful_timeout,omitempty" json:"graceful_timeout,omitempty"`
}

// GetAddress returns the listen address or the default value.
func (s *ServerConfig) GetAddress() string {
	if s == nil || s.Address == "" {
		return ":50051"
	}
	return s.Address
}

// GetGracefulTimeout parses the graceful timeout string and returns a duration.
// Returns the default value if not set or invalid.
func (s *ServerConfig) GetGracefulTimeout() time.Duration {
	if s == nil {
		return 10 * time.Second
	}
	return parseOr(s.GracefulTimeout, 10*time.Second)
}

// EtcdConfig locates a shared configuration document in etcd.
type EtcdConfig struct {
	// Endpoints is the list of etcd endpoints.
	// Format: ["host1:2379", "host2:2379"]
	Endpoints []string `yaml:"endpoints" json:"endpoints"`

	// Key holds the YAML config document.
	// Default: "/riskvault/config"
	Key string `yaml:"key,omitempty" json:"key,omitempty"`

	// DialTimeout bounds the initial connection.
	// Format: Go duration string
	// Default: 5s
	DialTimeout string `yaml:"dial_timeout,omitempty" json:"dial_timeout,omitempty"`

	// TLS configures mutual TLS to the cluster.
	TLS *TLSConfig `yaml:"tls,omitempty" json:"tls,omitempty"`
}

// GetKey returns the document key or the default value.
func (e *EtcdConfig) GetKey() string {
	if e == nil || e.Key == "" {
		return "/riskvault/config"
	}
	return e.Key
}

// GetDialTimeout parses the dial timeout string and returns a duration.
// Returns the default value if not set or invalid.
func (e *EtcdConfig) GetDialTimeout() time.Duration {
	if e == nil {
		return 5 * time.Second
	}
	return parseOr(e.DialTimeout, 5*time.Second)
}

// TLSConfig holds client certificate paths.
type TLSConfig struct {
	// Enabled determines whether TLS is active.
	// If false, all other fields are ignored
	Enabled bool `yaml:"enabled" json:"enabled"`

	// CertFile is the path to the client certificate file (PEM format).
	CertFile string `yaml:"cert_file" json:"cert_file"`

	// KeyFile is the path to the client private key file (PEM format).
	KeyFile string `yaml:"key_file" json:"key_file"`

	// CAFile is the path to the certificate authority file (PEM format).
	CAFile string `yaml:"ca_file" json:"ca_file"`
}

func parseOr(raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
