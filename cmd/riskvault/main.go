// Command riskvault turns security logs into a ranked risk register.
//
// Usage:
//
//	riskvault analyze [flags] <log file>...
//	riskvault serve   [flags]
//	riskvault worker  [flags]
//
// The serve and worker commands follow a shared configuration in etcd when
// RISKVAULT_ETCD_ENDPOINTS is set. Variables in a .env file in the working
// directory are loaded first.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zero-day-ai/riskvault"
	"github.com/zero-day-ai/riskvault/config"
	"github.com/zero-day-ai/riskvault/event"
	"github.com/zero-day-ai/riskvault/ingest"
	"github.com/zero-day-ai/riskvault/report"
	"github.com/zero-day-ai/riskvault/risk"
	"github.com/zero-day-ai/riskvault/serve"
	"github.com/zero-day-ai/riskvault/worker"
)

const usage = `usage: riskvault <command> [flags]

commands:
  analyze   analyze log files and write the risk register
  serve     run the gRPC analyzer service
  worker    consume record batches from Redis
`

// errUsage marks command line mistakes; they exit with status 2.
var errUsage = errors.New("usage error")

func main() {
	loadDotEnv(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// loadDotEnv loads variables from paths, or .env when none are given. A
// missing file is fine; any other failure is reported and skipped.
func loadDotEnv(stderr io.Writer, paths ...string) {
	err := godotenv.Load(paths...)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(stderr, "riskvault: ignoring .env: %v\n", err)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "analyze":
		err = runAnalyze(ctx, args[1:], stdout, stderr)
	case "serve":
		err = runServe(ctx, args[1:], stderr)
	case "worker":
		err = runWorker(ctx, args[1:], stderr)
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintln(stderr, err)
		return 2
	default:
		fmt.Fprintln(stderr, "riskvault:", err)
		return 1
	}
}

// newLogger builds the JSON logger every command writes to stderr.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("%w: invalid log level %q", errUsage, level)
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// loadConfig reads path, or returns the built-in configuration when path
// is empty.
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// watchEtcd starts following the shared configuration if one is set up in
// the environment. It returns nil updates when etcd is not configured.
func watchEtcd(ctx context.Context, logger *slog.Logger) (<-chan config.Config, io.Closer, error) {
	src, err := config.NewEtcdSourceFromEnv(config.WithSourceLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	if src == nil {
		return nil, nil, nil
	}
	updates, err := src.Watch(ctx)
	if err != nil {
		riskvault.CloseWithLog(src, logger, "etcd source")
		return nil, nil, err
	}
	logger.Info("following shared configuration", "key", src.Key())
	return updates, src, nil
}

func runAnalyze(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath  = fs.String("config", "", "configuration file or directory")
		outPath     = fs.String("o", "", "write the register to this file; the format follows the extension")
		format      = fs.String("format", string(report.FormatJSON), "output format when writing to stdout (json, csv, yaml)")
		inputFormat = fs.String("input-format", "", "log format (csv, jsonl, json, text); default follows each file extension")
		location    = fs.String("location", "UTC", "time zone for timestamps without one")
		strict      = fs.Bool("strict", false, "fail on undecodable lines instead of counting them as malformed")
		sequential  = fs.Bool("sequential", false, "run detectors one after another")
		runID       = fs.String("run-id", "", "run identifier (default: generated)")
		logLevel    = fs.String("log-level", "info", "log level (debug, info, warn, error)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: analyze needs at least one log file", errUsage)
	}

	logger, err := newLogger(stderr, *logLevel)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	loc, err := time.LoadLocation(*location)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	outFormat, err := report.ParseFormat(*format)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	readOpts := []ingest.Option{
		ingest.WithAliases(cfg.AliasTable()),
		ingest.WithLocation(loc),
		ingest.WithLogger(logger),
	}
	if *strict {
		readOpts = append(readOpts, ingest.WithStrict())
	}

	var records []event.LogRecord
	for _, path := range fs.Args() {
		batch, err := readLog(ctx, path, *inputFormat, readOpts)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		logger.Debug("read log file", "path", path, "records", len(batch))
		records = append(records, batch...)
	}

	opts := []riskvault.Option{riskvault.WithLogger(logger)}
	if *sequential {
		opts = append(opts, riskvault.WithSequentialDetectors())
	}
	if *runID != "" {
		opts = append(opts, riskvault.WithRunID(*runID))
	}
	res, err := riskvault.Analyze(ctx, records, cfg, opts...)
	if err != nil {
		return err
	}

	summary := res.Summary()
	logger.Info("analysis complete",
		"run_id", res.RunID,
		"entries", summary.Total,
		"critical", summary.ByLevel[risk.LevelCritical],
		"rejected", summary.Stats.Rejected,
		"duration", res.Duration)

	if *outPath != "" {
		return report.WriteFile(*outPath, res.Register, report.WithRunID(res.RunID))
	}
	return report.Write(stdout, res.Register, outFormat, report.WithRunID(res.RunID))
}

// readLog reads one file, with an explicit format or one inferred from the
// extension.
func readLog(ctx context.Context, path, format string, opts []ingest.Option) ([]event.LogRecord, error) {
	if format == "" {
		return ingest.ReadFile(ctx, path, opts...)
	}
	f, err := ingest.ParseFormat(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	r, err := ingest.NewReader(f, opts...)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return r.Read(ctx, file)
}

func runServe(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", "", "configuration file or directory")
		addr       = fs.String("addr", "", "listen address (default: server.address or :50051)")
		certFile   = fs.String("tls-cert", "", "TLS certificate file")
		keyFile    = fs.String("tls-key", "", "TLS key file")
		logLevel   = fs.String("log-level", "info", "log level (debug, info, warn, error)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger, err := newLogger(stderr, *logLevel)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	analyzer, err := serve.NewAnalyzer(cfg, serve.WithAnalyzerLogger(logger))
	if err != nil {
		return err
	}

	opts := []serve.Option{serve.WithLogger(logger)}
	if *addr != "" {
		opts = append(opts, serve.WithAddress(*addr))
	}
	if *certFile != "" || *keyFile != "" {
		opts = append(opts, serve.WithTLS(*certFile, *keyFile))
	}
	srv, err := serve.NewServer(serve.ConfigFrom(cfg.Server), analyzer, opts...)
	if err != nil {
		return err
	}

	updates, src, err := watchEtcd(ctx, logger)
	if err != nil {
		srv.Stop()
		return err
	}
	if src != nil {
		defer riskvault.CloseWithLog(src, logger, "etcd source")
		go config.Follow(ctx, updates, analyzer.UpdateConfig, logger)
	}

	return srv.Serve(ctx)
}

func runWorker(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("worker", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath  = fs.String("config", "", "configuration file or directory")
		redisURL    = fs.String("redis", "", "Redis URL (default: worker.redis_url)")
		concurrency = fs.Int("concurrency", 0, "number of batch loops (default: worker.concurrency)")
		metricsAddr = fs.String("metrics-addr", "", "serve /metrics and /healthz on this address")
		id          = fs.String("id", "", "worker identifier (default: generated)")
		logLevel    = fs.String("log-level", "info", "log level (debug, info, warn, error)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger, err := newLogger(stderr, *logLevel)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	settings := config.WorkerConfig{}
	if cfg.Worker != nil {
		settings = *cfg.Worker
	}
	if *redisURL != "" {
		settings.RedisURL = strings.TrimSpace(*redisURL)
	}
	if *concurrency > 0 {
		settings.Concurrency = *concurrency
	}
	if *metricsAddr != "" {
		settings.MetricsAddr = *metricsAddr
	}
	cfg.Worker = &settings

	opts := []worker.Option{worker.WithLogger(logger), worker.WithWorkerID(*id)}
	updates, src, err := watchEtcd(ctx, logger)
	if err != nil {
		return err
	}
	if src != nil {
		defer riskvault.CloseWithLog(src, logger, "etcd source")
		opts = append(opts, worker.WithConfigUpdates(updates))
	}

	return worker.RunContext(ctx, cfg, opts...)
}
