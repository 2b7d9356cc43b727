package serve

import (
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/zero-day-ai/riskvault/event"
	"github.com/zero-day-ai/riskvault/ingest"
	"github.com/zero-day-ai/riskvault/report"
)

// Request is the typed form of an Analyze request.
type Request struct {
	// Records are decoded log records. Keys follow the ingest column names.
	Records []event.LogRecord `json:"records,omitempty"`

	// Payload is raw log text in Format. Records and Payload are mutually
	// exclusive.
	Payload string        `json:"payload,omitempty"`
	Format  ingest.Format `json:"format,omitempty"`

	// Config is an optional YAML configuration document for this call.
	Config string `json:"config,omitempty"`

	// RunID is an optional run identifier.
	RunID string `json:"run_id,omitempty"`

	// Export asks for the register rendered in this format in Response.Export.
	Export report.Format `json:"export,omitempty"`
}

// ToStruct encodes the request as a protobuf Struct.
func (r Request) ToStruct() (*structpb.Struct, error) {
	m, err := toMap(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return structpb.NewStruct(m)
}

// ParseRequest decodes a Struct request. Records are read with the same
// key spellings as ingested JSON, so clients may send their native field
// names. Timestamps without a zone are UTC.
func ParseRequest(s *structpb.Struct) (Request, error) {
	m := s.AsMap()
	req := Request{
		Payload: stringField(m, "payload"),
		Format:  ingest.Format(stringField(m, "format")),
		Config:  stringField(m, "config"),
		RunID:   stringField(m, "run_id"),
		Export:  report.Format(stringField(m, "export")),
	}

	if raw, ok := m["records"]; ok && raw != nil {
		items, ok := raw.([]any)
		if !ok {
			return Request{}, fmt.Errorf("records must be a list, got %T", raw)
		}
		req.Records = make([]event.LogRecord, len(items))
		for i, item := range items {
			obj, ok := item.(map[string]any)
			if !ok {
				// Left empty: rejected as malformed by the pipeline.
				continue
			}
			req.Records[i] = ingest.RecordFromMap(obj, time.UTC)
		}
	}

	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Validate checks the request shape.
func (r Request) Validate() error {
	if len(r.Records) > 0 && r.Payload != "" {
		return fmt.Errorf("records and payload are mutually exclusive")
	}
	if r.Payload != "" && !r.Format.IsValid() {
		return fmt.Errorf("payload format %q is not supported", r.Format)
	}
	if r.Export != "" && !r.Export.IsValid() {
		return fmt.Errorf("export format %q is not supported", r.Export)
	}
	return nil
}

// Response is the typed form of an Analyze response.
type Response struct {
	RunID    string          `json:"run_id"`
	Document report.Document `json:"document"`

	// Export holds the rendered register when the request asked for one.
	Export string `json:"export,omitempty"`
}

// ToStruct encodes the response as a protobuf Struct.
func (r Response) ToStruct() (*structpb.Struct, error) {
	m, err := toMap(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return structpb.NewStruct(m)
}

// ParseResponse decodes a Struct response.
func ParseResponse(s *structpb.Struct) (*Response, error) {
	data, err := json.Marshal(s.AsMap())
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// toMap round-trips v through JSON into the generic form structpb accepts.
func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
