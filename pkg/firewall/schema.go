package firewall

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// requestSchemaDoc describes the wire shape of Request before Normalize
// ever runs: a first line of defense against malformed payloads, separate
// from the semantic checks Normalize performs.
const requestSchemaDoc = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["ai_output", "confidence", "intended_action"],
  "properties": {
    "ai_output": {"type": "string"},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "intended_action": {"type": "string", "minLength": 1},
    "sources": {"type": "array", "items": {"type": "string"}}
  }
}`

// RequestValidator checks raw decoded JSON against the Request schema
// before Normalize runs, so adapters can return a structural error instead
// of a pipeline panic on badly shaped input.
type RequestValidator struct {
	schema *jsonschema.Schema
}

// NewRequestValidator compiles the request schema once.
func NewRequestValidator() (*RequestValidator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	const schemaURL = "https://decision-firewall.local/schemas/request.json"
	if err := c.AddResource(schemaURL, strings.NewReader(requestSchemaDoc)); err != nil {
		return nil, fmt.Errorf("firewall: failed to load request schema: %w", err)
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("firewall: failed to compile request schema: %w", err)
	}
	return &RequestValidator{schema: compiled}, nil
}

// Validate checks a decoded JSON payload (map[string]interface{}, as
// produced by encoding/json into an any) against the request schema.
func (v *RequestValidator) Validate(payload interface{}) error {
	if err := v.schema.Validate(payload); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error())
	}
	return nil
}
