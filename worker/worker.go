package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zero-day-ai/riskvault"
	"github.com/zero-day-ai/riskvault/config"
	"github.com/zero-day-ai/riskvault/event"
	"github.com/zero-day-ai/riskvault/health"
	"github.com/zero-day-ai/riskvault/ingest"
	"github.com/zero-day-ai/riskvault/queue"
	"github.com/zero-day-ai/riskvault/report"
)

const (
	heartbeatInterval = 10 * time.Second

	publishRetries         = 3
	publishInitialInterval = 100 * time.Millisecond
	publishMaxInterval     = 2 * time.Second

	popInitialInterval = 100 * time.Millisecond
	popMaxInterval     = 5 * time.Second
)

// Worker consumes batches from a queue and publishes their reports.
type Worker struct {
	id       string
	client   queue.Client
	settings *config.WorkerConfig
	cfg      atomic.Pointer[config.Config]
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *Metrics
	guard    *redeliveryGuard
	analyze  []riskvault.Option
	updates  <-chan config.Config
	running  atomic.Bool
}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger sets the worker logger. The default writes JSON to stdout.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithWorkerID overrides the generated worker identifier.
func WithWorkerID(id string) Option {
	return func(w *Worker) {
		if id != "" {
			w.id = id
		}
	}
}

// WithRegistry registers the worker metrics with reg instead of a private
// registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(w *Worker) {
		if reg != nil {
			w.registry = reg
		}
	}
}

// WithAnalyzeOptions passes options to every pipeline run.
func WithAnalyzeOptions(opts ...riskvault.Option) Option {
	return func(w *Worker) {
		w.analyze = append(w.analyze, opts...)
	}
}

// WithConfigUpdates applies configs received on updates while the worker
// runs, such as those from config.EtcdSource.Watch.
func WithConfigUpdates(updates <-chan config.Config) Option {
	return func(w *Worker) {
		w.updates = updates
	}
}

// New creates a worker reading from client. cfg is the pipeline
// configuration and its worker section tunes the loop.
func New(client queue.Client, cfg config.Config, opts ...Option) (*Worker, error) {
	if client == nil {
		return nil, errors.New("worker: queue client is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	w := &Worker{
		id:       generateWorkerID(),
		client:   client,
		settings: cfg.Worker,
		logger: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})),
		registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.cfg.Store(&cfg)

	guard, err := newRedeliveryGuard(w.settings.GetDedupSize())
	if err != nil {
		return nil, fmt.Errorf("worker: %w", err)
	}
	w.guard = guard
	w.metrics = NewMetrics(w.registry)
	w.logger = w.logger.With("worker_id", w.id)
	return w, nil
}

// ID returns the worker identifier.
func (w *Worker) ID() string {
	return w.id
}

// Metrics returns the worker's Prometheus metrics.
func (w *Worker) Metrics() *Metrics {
	return w.metrics
}

// Handler serves /metrics and /healthz. The health probe fails while the
// worker is not running or the queue is unreachable.
func (w *Worker) Handler() http.Handler {
	return newOpsRouter(w.registry, func(r *http.Request) health.Report {
		return w.Health(r.Context())
	})
}

// Health combines the worker's checks into one report.
func (w *Worker) Health(ctx context.Context) health.Report {
	return health.Combine(
		health.RunningCheck("worker", w.running.Load()),
		health.QueueCheck(ctx, w.client, w.settings.GetMaxBacklog()),
	)
}

// Config returns the pipeline configuration currently in use.
func (w *Worker) Config() config.Config {
	return *w.cfg.Load()
}

// UpdateConfig swaps the pipeline configuration for subsequent batches.
// Batches already being analysed keep the configuration they started with.
func (w *Worker) UpdateConfig(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	w.cfg.Store(&cfg)
	w.logger.Info("configuration updated")
	return nil
}

// Run starts the worker goroutines and blocks until ctx is done. It then
// waits up to the shutdown timeout for in-flight batches.
func (w *Worker) Run(ctx context.Context) error {
	concurrency := w.settings.GetConcurrency()
	shutdownTimeout := w.settings.GetShutdownTimeout()

	w.logger.Info("worker starting", "concurrency", concurrency)

	if err := w.client.IncrementWorkerCount(ctx); err != nil {
		w.logger.Error("failed to increment worker count", "error", err)
	}
	defer func() {
		// ctx is done by now
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cleanupCancel()
		if err := w.client.DecrementWorkerCount(cleanupCtx); err != nil {
			w.logger.Error("failed to decrement worker count", "error", err)
		}
	}()

	w.running.Store(true)
	defer w.running.Store(false)

	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go w.runHeartbeat(heartbeatCtx)
	if w.updates != nil {
		go config.Follow(heartbeatCtx, w.updates, w.UpdateConfig, w.logger)
	}

	// Loops keep their own context so in-flight batches finish after ctx
	// is done; they stop popping as soon as ctx is.
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(workerNum int) {
			defer wg.Done()
			w.loop(ctx, workerNum)
		}(i)
	}

	w.logger.Info("worker started", "workers", concurrency)

	<-ctx.Done()
	w.logger.Info("initiating graceful shutdown")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("worker shutdown complete")
	case <-time.After(shutdownTimeout):
		w.logger.Warn("worker shutdown timeout exceeded", "timeout", shutdownTimeout)
	}
	return nil
}

// runHeartbeat refreshes the worker's health key and samples the queue
// depth until ctx is done.
func (w *Worker) runHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	w.beat(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.beat(ctx)
		}
	}
}

func (w *Worker) beat(ctx context.Context) {
	if err := w.client.Heartbeat(ctx, w.id); err != nil {
		w.logger.Debug("heartbeat failed", "error", err)
	}
	if n, err := w.client.Len(ctx); err == nil {
		w.metrics.QueueDepth.Set(float64(n))
	}
}

// loop pops and handles batches until ctx is done.
func (w *Worker) loop(ctx context.Context, workerNum int) {
	logger := w.logger.With("worker_num", workerNum)
	popTimeout := w.settings.GetPopTimeout()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = popInitialInterval
	bo.MaxInterval = popMaxInterval
	bo.MaxElapsedTime = 0
	bo.Reset()

	for {
		if ctx.Err() != nil {
			logger.Debug("worker loop stopped", "reason", "context_cancelled")
			return
		}

		batch, err := w.client.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			wait := bo.NextBackOff()
			logger.Error("failed to pop batch", "error", err, "retry_in", wait)
			if !sleep(ctx, wait) {
				return
			}
			continue
		}
		bo.Reset()
		if batch == nil {
			continue
		}

		// Analysis and publication outlive ctx so a popped batch is never lost.
		w.handle(context.WithoutCancel(ctx), *batch, logger)
	}
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// handle processes one popped batch and publishes its report.
func (w *Worker) handle(ctx context.Context, batch queue.Batch, logger *slog.Logger) {
	logger = logger.With("batch_id", batch.ID)

	if batch.ID != "" && !w.guard.firstDelivery(batch.ID) {
		w.metrics.BatchesTotal.WithLabelValues(statusDuplicate).Inc()
		logger.Warn("dropping redelivered batch")
		return
	}

	logger.Info("received batch", "records", len(batch.Records), "age", batch.Age())
	rep := w.Process(ctx, batch)

	if err := w.publish(ctx, rep, logger); err != nil {
		logger.Error("failed to publish report", "error", err)
		// Let a redelivery try again.
		w.guard.forget(batch.ID)
	}
}

// publish sends rep, retrying transient failures with exponential backoff.
func (w *Worker) publish(ctx context.Context, rep queue.Report, logger *slog.Logger) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = publishInitialInterval
	bo.MaxInterval = publishMaxInterval

	return backoff.RetryNotify(func() error {
		return w.client.Publish(ctx, rep)
	}, backoff.WithContext(backoff.WithMaxRetries(bo, publishRetries), ctx), func(err error, wait time.Duration) {
		logger.Warn("retrying report publish", "error", err, "wait", wait)
	})
}

// Process analyses one batch and returns its report. It never fails: any
// error is carried in the report.
func (w *Worker) Process(ctx context.Context, batch queue.Batch) queue.Report {
	start := time.Now()
	rep := queue.Report{
		BatchID:   batch.ID,
		WorkerID:  w.id,
		StartedAt: start.UnixMilli(),
	}
	fail := func(err error) queue.Report {
		w.metrics.BatchesTotal.WithLabelValues(statusFailed).Inc()
		w.logger.Error("batch failed", "batch_id", batch.ID, "error", err)
		rep.Error = err.Error()
		rep.CompletedAt = time.Now().UnixMilli()
		return rep
	}

	if err := batch.Validate(); err != nil {
		return fail(fmt.Errorf("invalid batch: %w", err))
	}

	cfg := w.Config()
	if batch.Config != "" {
		override, err := config.Parse([]byte(batch.Config))
		if err != nil {
			return fail(err)
		}
		cfg = override
	}

	records := batch.Records
	if batch.Payload != "" {
		decoded, err := w.decode(ctx, batch)
		if err != nil {
			return fail(err)
		}
		records = decoded
	}

	rep.RunID = uuid.New().String()
	opts := append([]riskvault.Option{
		riskvault.WithLogger(w.logger.With("batch_id", batch.ID)),
		riskvault.WithRunID(rep.RunID),
	}, w.analyze...)

	res, err := riskvault.Analyze(ctx, records, cfg, opts...)
	if err != nil {
		return fail(err)
	}

	doc := report.NewDocument(res.Register, report.WithRunID(res.RunID))
	rep.Document = &doc
	rep.CompletedAt = time.Now().UnixMilli()

	w.metrics.BatchesTotal.WithLabelValues(statusOK).Inc()
	w.metrics.BatchDuration.Observe(time.Since(start).Seconds())
	w.metrics.observeRegister(res.Register)
	return rep
}

func (w *Worker) decode(ctx context.Context, batch queue.Batch) ([]event.LogRecord, error) {
	r, err := ingest.NewReader(batch.Format, ingest.WithLogger(w.logger.With("batch_id", batch.ID)))
	if err != nil {
		return nil, err
	}
	return r.Decode(ctx, []byte(batch.Payload))
}

// Run connects to Redis using cfg's worker section and runs a Worker until
// SIGINT or SIGTERM. If the section sets a metrics address, /metrics and
// /healthz are served there.
func Run(cfg config.Config, opts ...Option) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	return RunContext(ctx, cfg, opts...)
}

// RunContext is Run with the lifetime bound to ctx instead of signals.
func RunContext(ctx context.Context, cfg config.Config, opts ...Option) error {
	settings := cfg.Worker

	client, err := queue.NewRedisClient(queue.RedisOptions{
		URL:    settings.GetRedisURL(),
		Prefix: settings.GetQueuePrefix(),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer riskvault.CloseWithLog(client, nil, "redis queue client")

	w, err := New(client, cfg, opts...)
	if err != nil {
		return err
	}

	if addr := settings.GetMetricsAddr(); addr != "" {
		srv := &http.Server{
			Addr:              addr,
			Handler:           w.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				w.logger.Error("metrics server failed", "addr", addr, "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		w.logger.Info("serving metrics", "addr", addr)
	}

	return w.Run(ctx)
}

// generateWorkerID creates a unique identifier for this worker instance.
// Uses hostname + PID + UUID for uniqueness.
func generateWorkerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%d-%s", hostname, os.Getpid(), uuid.New().String()[:8])
}
