// Package llm provides the language-model backend boundary: a small
// client interface for free-text and schema-constrained JSON generation,
// typed failure classification, and the normalization step that extracts
// the first JSON object from noisy model output.
package llm

import (
	"context"
	"errors"
)

// Backend names for configuration.
const (
	BackendOllama = "ollama"
	BackendMock   = "mock"
)

// Failure classes surfaced by clients. Callers branch on these to pick
// fallbacks; everything else is an unexpected transport error.
var (
	ErrTimeout        = errors.New("llm: request timed out")
	ErrMalformed      = errors.New("llm: no JSON object in model output")
	ErrSchemaMismatch = errors.New("llm: model output does not match schema")
	ErrBackendDown    = errors.New("llm: backend unavailable")
	ErrNotConfigured  = errors.New("llm: backend not configured")
)

// Client is the interface every language-model backend implements.
// GenerateJSON asks for output conforming to schema and unmarshals the
// first JSON object found into out.
type Client interface {
	// Name returns the backend identifier (e.g., "ollama", "mock").
	Name() string

	// GenerateText sends a system+user prompt and returns the raw text.
	GenerateText(ctx context.Context, system, user string) (string, error)

	// GenerateJSON sends a system+user prompt, constrains the backend to
	// JSON output where supported, and decodes the first JSON object in
	// the reply into out. Returns ErrMalformed when no object can be
	// extracted and ErrSchemaMismatch when the object does not decode.
	GenerateJSON(ctx context.Context, system, user string, schema *Schema, out any) error
}

// Schema is a lightweight JSON Schema used both to steer backends that
// support constrained decoding and to key canned mock payloads.
type Schema struct {
	Title       string             `json:"title,omitempty"`
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
}

// ObjectSchema creates a schema for an object with the given properties.
func ObjectSchema(title, desc string, props map[string]*Schema, required ...string) *Schema {
	return &Schema{
		Title:       title,
		Type:        "object",
		Description: desc,
		Properties:  props,
		Required:    required,
	}
}

// StringProp creates a schema for a string property.
func StringProp(desc string) *Schema {
	return &Schema{Type: "string", Description: desc}
}

// NumberProp creates a schema for a number property.
func NumberProp(desc string) *Schema {
	return &Schema{Type: "number", Description: desc}
}

// EnumProp creates a schema for a string enum property.
func EnumProp(desc string, values ...string) *Schema {
	return &Schema{Type: "string", Description: desc, Enum: values}
}

// ArrayProp creates a schema for an array property.
func ArrayProp(desc string, items *Schema) *Schema {
	return &Schema{Type: "array", Description: desc, Items: items}
}
