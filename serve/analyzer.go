package serve

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/zero-day-ai/riskvault"
	"github.com/zero-day-ai/riskvault/config"
	"github.com/zero-day-ai/riskvault/ingest"
	"github.com/zero-day-ai/riskvault/report"
	"github.com/zero-day-ai/riskvault/riskerr"
)

// Analyzer implements AnalyzerServer over riskvault.Analyze.
type Analyzer struct {
	cfg    atomic.Pointer[config.Config]
	logger *slog.Logger
	opts   []riskvault.Option
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithAnalyzerLogger sets the logger for requests.
func WithAnalyzerLogger(logger *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithPipelineOptions passes options to every pipeline run.
func WithPipelineOptions(opts ...riskvault.Option) AnalyzerOption {
	return func(a *Analyzer) {
		a.opts = append(a.opts, opts...)
	}
}

// NewAnalyzer creates the service with a default configuration used by
// requests that carry none.
func NewAnalyzer(cfg config.Config, opts ...AnalyzerOption) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &Analyzer{logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	a.cfg.Store(&cfg)
	return a, nil
}

// Config returns the default configuration.
func (a *Analyzer) Config() config.Config {
	return *a.cfg.Load()
}

// UpdateConfig replaces the default configuration for later requests.
func (a *Analyzer) UpdateConfig(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg.Store(&cfg)
	return nil
}

// Analyze runs the pipeline for one request.
func (a *Analyzer) Analyze(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := ParseRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	resp, err := a.Run(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}

	out, err := resp.ToStruct()
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// Run executes a typed request.
func (a *Analyzer) Run(ctx context.Context, req Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, riskerr.InvalidConfiguration("serve.Analyze", err.Error())
	}

	cfg := a.Config()
	if req.Config != "" {
		override, err := config.Parse([]byte(req.Config))
		if err != nil {
			return nil, err
		}
		cfg = override
	}

	records := req.Records
	if req.Payload != "" {
		r, err := ingest.NewReader(req.Format, ingest.WithLogger(a.logger))
		if err != nil {
			return nil, err
		}
		if records, err = r.Decode(ctx, []byte(req.Payload)); err != nil {
			return nil, err
		}
	}
	opts := append([]riskvault.Option{riskvault.WithLogger(a.logger)}, a.opts...)
	if req.RunID != "" {
		opts = append(opts, riskvault.WithRunID(req.RunID))
	}
	res, err := riskvault.Analyze(ctx, records, cfg, opts...)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		RunID:    res.RunID,
		Document: report.NewDocument(res.Register, report.WithRunID(res.RunID)),
	}
	if req.Export != "" {
		data, err := report.Marshal(res.Register, req.Export, report.WithRunID(res.RunID))
		if err != nil {
			return nil, err
		}
		resp.Export = string(data)
	}
	return resp, nil
}

// toStatus maps pipeline errors to gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, riskerr.ErrInvalidConfiguration), errors.Is(err, riskerr.ErrMalformedRecord):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
