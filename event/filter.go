package event

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// ExpressionFilter excludes records matching a CEL expression.
//
// The record is exposed as the map variable "record" with the keys
// timestamp, event_type, raw_type, source_ip, destination_ip, username,
// message and, when present, source_port and destination_port:
//
//	record.source_ip in ["10.0.0.5", "10.0.0.6"]
//	has(record.destination_port) && record.destination_port == 161
type ExpressionFilter struct {
	expr    string
	program cel.Program
}

// NewExpressionFilter compiles expr. The expression must evaluate to a bool.
func NewExpressionFilter(expr string) (*ExpressionFilter, error) {
	env, err := cel.NewEnv(
		cel.Variable("record", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile exclusion expression: %w", iss.Err())
	}
	out := ast.OutputType()
	if !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("exclusion expression must return bool, got %s", out)
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build exclusion program: %w", err)
	}

	return &ExpressionFilter{expr: expr, program: prg}, nil
}

// Expression returns the source expression.
func (f *ExpressionFilter) Expression() string {
	return f.expr
}

// Exclude evaluates the expression against r.
func (f *ExpressionFilter) Exclude(r LogRecord) (bool, error) {
	val, _, err := f.program.Eval(map[string]any{"record": recordVars(r)})
	if err != nil {
		return false, fmt.Errorf("evaluate exclusion expression: %w", err)
	}
	b, ok := val.Value().(bool)
	if !ok {
		return false, fmt.Errorf("exclusion expression returned %T, want bool", val.Value())
	}
	return b, nil
}

func recordVars(r LogRecord) map[string]any {
	vars := map[string]any{
		"timestamp":      r.Timestamp,
		"event_type":     string(r.EventType),
		"raw_type":       r.RawType,
		"source_ip":      r.SourceIP,
		"destination_ip": r.DestinationIP,
		"username":       r.Username,
		"message":        r.Message,
	}
	if r.SourcePort != nil {
		vars["source_port"] = int64(*r.SourcePort)
	}
	if r.DestinationPort != nil {
		vars["destination_port"] = int64(*r.DestinationPort)
	}
	return vars
}
