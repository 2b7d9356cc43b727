package queue

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix is the key prefix used when RedisOptions.Prefix is empty.
const DefaultPrefix = "riskvault"

const (
	heartbeatTTL = 30 * time.Second

	// DefaultReportTTL is how long a published report stays retrievable.
	DefaultReportTTL = time.Hour
)

// Client defines the interface for moving batches and reports through Redis.
type Client interface {
	// Push adds a batch to the end of the queue (LPUSH).
	Push(ctx context.Context, batch Batch) error

	// Pop removes and returns the oldest batch (BRPOP). It waits at most
	// timeout, returning nil and no error if nothing arrived. A zero timeout
	// waits until ctx is done.
	Pop(ctx context.Context, timeout time.Duration) (*Batch, error)

	// Len returns the number of pending batches.
	Len(ctx context.Context) (int64, error)

	// Publish stores a report and sends it to the batch's channel.
	Publish(ctx context.Context, r Report) error

	// Subscribe returns a channel receiving reports for one batch until ctx is done.
	Subscribe(ctx context.Context, batchID string) (<-chan Report, error)

	// Report returns the stored report for a batch, or nil if none is stored.
	Report(ctx context.Context, batchID string) (*Report, error)

	// Heartbeat refreshes the health key for a worker with a 30s TTL.
	Heartbeat(ctx context.Context, workerID string) error

	// GetWorkerCount returns the number of running workers.
	GetWorkerCount(ctx context.Context) (int, error)

	// IncrementWorkerCount increments the running worker counter.
	IncrementWorkerCount(ctx context.Context) error

	// DecrementWorkerCount decrements the running worker counter.
	DecrementWorkerCount(ctx context.Context) error

	// Close closes the Redis connection.
	Close() error
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379")
	URL string

	// Prefix namespaces every key. Defaults to DefaultPrefix.
	Prefix string

	// TLS configuration for secure connections
	TLS *tls.Config

	// ConnectTimeout is the maximum time to wait for connection establishment
	ConnectTimeout time.Duration

	// ReadTimeout is the maximum time to wait for read operations
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait for write operations
	WriteTimeout time.Duration

	// ReportTTL is how long published reports stay retrievable.
	// Defaults to DefaultReportTTL.
	ReportTTL time.Duration

	// Logger receives undecodable pub/sub messages. Defaults to slog.Default().
	Logger *slog.Logger
}

// Keys builds the Redis key names under one prefix.
type Keys struct {
	prefix string
}

// NewKeys returns the key builder for prefix.
func NewKeys(prefix string) Keys {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Keys{prefix: prefix}
}

// Batches is the pending batch list.
func (k Keys) Batches() string { return formatKeyName(k.prefix, "batches") }

// ReportChannel is the pub/sub channel for a batch's report.
func (k Keys) ReportChannel(batchID string) string {
	return formatKeyName(k.prefix, "reports", batchID)
}

// Report is the key holding a batch's last report.
func (k Keys) Report(batchID string) string { return formatKeyName(k.prefix, "report", batchID) }

// WorkerHealth is a worker's heartbeat key.
func (k Keys) WorkerHealth(workerID string) string {
	return formatKeyName(k.prefix, "worker", workerID, "health")
}

// Workers is the running worker counter.
func (k Keys) Workers() string { return formatKeyName(k.prefix, "workers") }

// RedisClient implements the Client interface using go-redis/v9.
type RedisClient struct {
	client    *redis.Client
	keys      Keys
	reportTTL time.Duration
	logger    *slog.Logger
}

// NewRedisClient creates a new Redis queue client with the given options.
func NewRedisClient(opts RedisOptions) (*RedisClient, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}

	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}

	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	if opts.ReportTTL == 0 {
		opts.ReportTTL = DefaultReportTTL
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if opts.TLS != nil {
		redisOpts.TLSConfig = opts.TLS
	}
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{
		client:    client,
		keys:      NewKeys(opts.Prefix),
		reportTTL: opts.ReportTTL,
		logger:    opts.Logger,
	}, nil
}

// Keys returns the client's key builder.
func (c *RedisClient) Keys() Keys {
	return c.keys
}

// Push adds a batch to the end of the queue.
func (c *RedisClient) Push(ctx context.Context, batch Batch) error {
	if err := batch.Validate(); err != nil {
		return fmt.Errorf("invalid batch: %w", err)
	}

	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}

	if err := c.client.LPush(ctx, c.keys.Batches(), data).Err(); err != nil {
		return fmt.Errorf("failed to push batch %s: %w", batch.ID, err)
	}

	return nil
}

// Pop removes and returns the oldest batch.
func (c *RedisClient) Pop(ctx context.Context, timeout time.Duration) (*Batch, error) {
	// BRPOP returns [queue_name, value] or redis.Nil on timeout
	result, err := c.client.BRPop(ctx, timeout, c.keys.Batches()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop batch: %w", err)
	}

	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP result length: %d", len(result))
	}

	var batch Batch
	if err := json.Unmarshal([]byte(result[1]), &batch); err != nil {
		return nil, fmt.Errorf("failed to unmarshal batch: %w", err)
	}

	return &batch, nil
}

// Len returns the number of pending batches.
func (c *RedisClient) Len(ctx context.Context) (int64, error) {
	n, err := c.client.LLen(ctx, c.keys.Batches()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue length: %w", err)
	}
	return n, nil
}

// Publish stores a report and sends it to the batch's channel.
func (c *RedisClient) Publish(ctx context.Context, r Report) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid report: %w", err)
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := c.client.Set(ctx, c.keys.Report(r.BatchID), data, c.reportTTL).Err(); err != nil {
		return fmt.Errorf("failed to store report for batch %s: %w", r.BatchID, err)
	}

	if err := c.client.Publish(ctx, c.keys.ReportChannel(r.BatchID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish report for batch %s: %w", r.BatchID, err)
	}

	return nil
}

// Subscribe creates a subscription to a batch's report channel.
func (c *RedisClient) Subscribe(ctx context.Context, batchID string) (<-chan Report, error) {
	channel := c.keys.ReportChannel(batchID)
	pubsub := c.client.Subscribe(ctx, channel)

	// Wait for subscription confirmation
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to channel %s: %w", channel, err)
	}

	reports := make(chan Report)

	go func() {
		defer close(reports)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var r Report
				if err := json.Unmarshal([]byte(msg.Payload), &r); err != nil {
					c.logger.Warn("dropping undecodable report",
						"channel", msg.Channel,
						"error", err,
					)
					continue
				}

				select {
				case reports <- r:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return reports, nil
}

// Report returns the stored report for a batch.
func (c *RedisClient) Report(ctx context.Context, batchID string) (*Report, error) {
	data, err := c.client.Get(ctx, c.keys.Report(batchID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read report for batch %s: %w", batchID, err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &r, nil
}

// Heartbeat refreshes the health key for a worker with a 30s TTL.
func (c *RedisClient) Heartbeat(ctx context.Context, workerID string) error {
	if err := c.client.Set(ctx, c.keys.WorkerHealth(workerID), "ok", heartbeatTTL).Err(); err != nil {
		return fmt.Errorf("failed to set heartbeat for worker %s: %w", workerID, err)
	}
	return nil
}

// GetWorkerCount returns the number of running workers.
func (c *RedisClient) GetWorkerCount(ctx context.Context) (int, error) {
	countStr, err := c.client.Get(ctx, c.keys.Workers()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get worker count: %w", err)
	}

	count, err := strconv.Atoi(countStr)
	if err != nil {
		return 0, fmt.Errorf("invalid worker count value: %w", err)
	}

	return count, nil
}

// IncrementWorkerCount increments the running worker counter.
func (c *RedisClient) IncrementWorkerCount(ctx context.Context) error {
	if err := c.client.Incr(ctx, c.keys.Workers()).Err(); err != nil {
		return fmt.Errorf("failed to increment worker count: %w", err)
	}
	return nil
}

// DecrementWorkerCount decrements the running worker counter.
func (c *RedisClient) DecrementWorkerCount(ctx context.Context) error {
	if err := c.client.Decr(ctx, c.keys.Workers()).Err(); err != nil {
		return fmt.Errorf("failed to decrement worker count: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisClient) Close() error {
	return c.client.Close()
}

// formatKeyName joins key parts with ':'.
func formatKeyName(parts ...string) string {
	return strings.Join(parts, ":")
}
