package serve

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/zero-day-ai/riskvault/config"
	"github.com/zero-day-ai/riskvault/event"
	"github.com/zero-day-ai/riskvault/ingest"
	"github.com/zero-day-ai/riskvault/report"
	"github.com/zero-day-ai/riskvault/risk"
)

var base = time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestServer starts an in-memory server and returns a client connection.
func setupTestServer(t *testing.T) (*Server, *grpc.ClientConn) {
	t.Helper()
	const bufSize = 1024 * 1024
	lis := bufconn.Listen(bufSize)

	analyzer, err := NewAnalyzer(config.Default(), WithAnalyzerLogger(quietLogger()))
	require.NoError(t, err)

	srv, err := NewServer(nil, analyzer, WithListener(lis), WithLogger(quietLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
			return lis.Dial()
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		cancel()
		<-done
	})
	return srv, conn
}

func failedLogins(ip string, n int, step time.Duration) []event.LogRecord {
	records := make([]event.LogRecord, n)
	for i := range records {
		records[i] = event.LogRecord{
			Timestamp: base.Add(time.Duration(i) * step),
			EventType: event.EventFailedLogin,
			SourceIP:  ip,
		}
	}
	return records
}

func TestAnalyzeRecords(t *testing.T) {
	_, conn := setupTestServer(t)
	client := NewAnalyzerClient(conn)

	resp, err := client.AnalyzeRecords(context.Background(), Request{
		Records: failedLogins("10.0.0.10", 6, 24*time.Second),
		RunID:   "run-42",
	})
	require.NoError(t, err)

	assert.Equal(t, "run-42", resp.RunID)
	assert.Equal(t, "run-42", resp.Document.RunID)
	require.Len(t, resp.Document.Entries, 1)
	e := resp.Document.Entries[0]
	assert.Equal(t, 1, e.Rank)
	assert.Equal(t, 280, e.Score.RPN)
	assert.Equal(t, risk.LevelCritical, e.Level)
	assert.Equal(t, 6, e.Finding.EvidenceCount)
	assert.Equal(t, "10.0.0.10", e.Finding.Actor.SourceIP)
	assert.True(t, base.Equal(e.Finding.WindowStart))
	assert.Equal(t, 1, resp.Document.Summary.ByLevel[risk.LevelCritical])
	assert.Empty(t, resp.Export)
}

func TestAnalyze_PayloadAndExport(t *testing.T) {
	_, conn := setupTestServer(t)
	client := NewAnalyzerClient(conn)

	payload := "timestamp,event_type,src_ip\n"
	for _, r := range failedLogins("10.0.0.11", 5, 10*time.Second) {
		payload += r.Timestamp.Format(time.RFC3339) + ",auth_failure,10.0.0.11\n"
	}

	resp, err := client.AnalyzeRecords(context.Background(), Request{
		Payload: payload,
		Format:  ingest.FormatCSV,
		Export:  report.FormatCSV,
	})
	require.NoError(t, err)
	require.Len(t, resp.Document.Entries, 1)
	assert.NotEmpty(t, resp.RunID)
	assert.Contains(t, resp.Export, "rank,level,rpn")
	assert.Contains(t, resp.Export, "10.0.0.11")
}

func TestAnalyze_RawStructWithNativeKeys(t *testing.T) {
	_, conn := setupTestServer(t)
	client := NewAnalyzerClient(conn)

	var records []any
	for i := 0; i < 12; i++ {
		records = append(records, map[string]any{
			"ts":       base.Add(time.Duration(i) * 10 * time.Second).Format(time.RFC3339),
			"type":     "scan",
			"src":      "198.51.100.7",
			"dst_port": float64(8000 + i),
		})
	}
	records = append(records, "not an object")
	in, err := structpb.NewStruct(map[string]any{"records": records})
	require.NoError(t, err)

	out, err := client.Analyze(context.Background(), in)
	require.NoError(t, err)
	resp, err := ParseResponse(out)
	require.NoError(t, err)

	require.Len(t, resp.Document.Entries, 1)
	assert.Equal(t, 12, resp.Document.Entries[0].Finding.EvidenceCount)
	assert.Equal(t, 1, resp.Document.Summary.Stats.Rejected)
}

func TestAnalyze_InvalidArgument(t *testing.T) {
	_, conn := setupTestServer(t)
	client := NewAnalyzerClient(conn)

	tests := []struct {
		name string
		req  map[string]any
	}{
		{"records not a list", map[string]any{"records": "x"}},
		{"unknown payload format", map[string]any{"payload": "x", "format": "xml"}},
		{"both inputs", map[string]any{"payload": "x", "format": "csv", "records": []any{map[string]any{}}}},
		{"bad export", map[string]any{"export": "pdf"}},
		{"invalid config", map[string]any{"config": "low_rpn_threshold: 300\n"}},
		{"bad window", map[string]any{"config": "port_scan:\n  window: 0s\n"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := structpb.NewStruct(tt.req)
			require.NoError(t, err)
			_, err = client.Analyze(context.Background(), in)
			require.Error(t, err)
			assert.Equal(t, codes.InvalidArgument, status.Code(err))
		})
	}
}

func TestAnalyze_EmptyRequest(t *testing.T) {
	_, conn := setupTestServer(t)

	resp, err := NewAnalyzerClient(conn).AnalyzeRecords(context.Background(), Request{})
	require.NoError(t, err)
	assert.Empty(t, resp.Document.Entries)
	assert.Equal(t, 0, resp.Document.Summary.Total)
}

func TestHealth(t *testing.T) {
	srv, conn := setupTestServer(t)
	health := grpc_health_v1.NewHealthClient(conn)

	for _, service := range []string{"", ServiceName} {
		resp, err := health.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: service})
		require.NoError(t, err)
		assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.Status)
	}
	assert.NotNil(t, srv.HealthServer())
	assert.NotNil(t, srv.GRPCServer())
	assert.Equal(t, "bufconn", srv.Addr())
}

func TestNewServer(t *testing.T) {
	_, err := NewServer(nil, nil)
	assert.Error(t, err)

	analyzer, err := NewAnalyzer(config.Default())
	require.NoError(t, err)

	srv, err := NewServer(nil, analyzer, WithAddress("127.0.0.1:0"), WithGracefulShutdown(time.Second), WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.NotEqual(t, "127.0.0.1:0", srv.Addr())
	srv.Stop()
	require.NoError(t, srv.listener.Close())

	_, err = NewServer(nil, analyzer, WithAddress("127.0.0.1:0"), WithTLS("/missing.crt", "/missing.key"))
	assert.Error(t, err)
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(nil)
	assert.Equal(t, ":50051", cfg.Address)
	assert.Equal(t, 10*time.Second, cfg.GracefulTimeout)

	cfg = ConfigFrom(&config.ServerConfig{Address: ":6000", GracefulTimeout: "3s"})
	assert.Equal(t, ":6000", cfg.Address)
	assert.Equal(t, 3*time.Second, cfg.GracefulTimeout)
}

func TestAnalyzer_UpdateConfig(t *testing.T) {
	a, err := NewAnalyzer(config.Default(), WithAnalyzerLogger(quietLogger()))
	require.NoError(t, err)

	bad := config.Default()
	bad.DetectabilityDefault = 42
	assert.Error(t, a.UpdateConfig(bad))

	next := config.Default()
	next.BruteForce.ThresholdCount = 10
	require.NoError(t, a.UpdateConfig(next))
	assert.Equal(t, 10, a.Config().BruteForce.ThresholdCount)

	resp, err := a.Run(context.Background(), Request{Records: failedLogins("10.0.0.10", 6, time.Second)})
	require.NoError(t, err)
	assert.Empty(t, resp.Document.Entries)

	_, err = NewAnalyzer(bad)
	assert.Error(t, err)
}

func TestAnalyzer_Canceled(t *testing.T) {
	a, err := NewAnalyzer(config.Default(), WithAnalyzerLogger(quietLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in, err := Request{Records: failedLogins("10.0.0.10", 6, time.Second)}.ToStruct()
	require.NoError(t, err)
	_, err = a.Analyze(ctx, in)
	require.Error(t, err)
	assert.Equal(t, codes.Canceled, status.Code(err))
}

func TestRequestRoundTrip(t *testing.T) {
	req := Request{
		Records: failedLogins("10.0.0.10", 2, time.Second),
		Config:  "detectability_default: 4\n",
		RunID:   "r",
		Export:  report.FormatYAML,
	}
	s, err := req.ToStruct()
	require.NoError(t, err)

	got, err := ParseRequest(s)
	require.NoError(t, err)
	assert.Equal(t, req.Config, got.Config)
	assert.Equal(t, req.RunID, got.RunID)
	assert.Equal(t, req.Export, got.Export)
	require.Len(t, got.Records, 2)
	assert.True(t, req.Records[1].Timestamp.Equal(got.Records[1].Timestamp))
	assert.Equal(t, event.EventFailedLogin, got.Records[1].EventType)
}
