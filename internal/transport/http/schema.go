package http

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed signal_schema.json
var signalSchemaJSON []byte

// SignalSchema validates intake payloads before they reach the pipeline, so
// a malformed detector payload is rejected at the boundary with a precise
// error instead of surfacing as a validation-stage failure.
type SignalSchema struct {
	schema *jsonschema.Schema
}

func NewSignalSchema() (*SignalSchema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("signal.json", bytes.NewReader(signalSchemaJSON)); err != nil {
		return nil, fmt.Errorf("loading signal schema failed: %w", err)
	}
	schema, err := compiler.Compile("signal.json")
	if err != nil {
		return nil, fmt.Errorf("compiling signal schema failed: %w", err)
	}
	return &SignalSchema{schema: schema}, nil
}

func (s *SignalSchema) Validate(raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("payload is not valid JSON: %w", err)
	}
	if err := s.schema.Validate(doc); err != nil {
		return fmt.Errorf("payload rejected: %w", err)
	}
	return nil
}

func jsonUnmarshal(raw []byte, v any) error {
	return json.Unmarshal(raw, v)
}
