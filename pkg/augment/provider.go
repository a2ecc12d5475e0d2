// Package augment enriches synthesized values through an external
// generation provider. The provider is strictly best-effort: any error
// or timeout falls back to the local synthesizer, so a mock never
// blocks on an upstream service.
package augment

import (
	"context"
	"errors"
	"fmt"

	"github.com/fauxapi/fauxd/pkg/spec"
)

// Provider produces a value for one field from an external service.
type Provider interface {
	Generate(ctx context.Context, req *Request) (*Response, error)

	// Name identifies the provider in logs.
	Name() string
}

// Request describes the field to generate.
type Request struct {
	// Schema is the resolved schema node for the field.
	Schema *spec.SchemaNode `json:"schema,omitempty"`

	// FieldName is the property name, empty at the root.
	FieldName string `json:"fieldName"`

	// FieldType and Format are hints lifted from the schema.
	FieldType string `json:"fieldType,omitempty"`
	Format    string `json:"format,omitempty"`

	// Context is free-form guidance, typically the operation summary.
	Context string `json:"context,omitempty"`
}

// Response carries the generated value.
type Response struct {
	Value any `json:"value"`

	// Raw is the unparsed provider output, kept for debugging.
	Raw string `json:"raw,omitempty"`
}

var (
	ErrNotConfigured   = errors.New("augmentation provider not configured")
	ErrInvalidResponse = errors.New("invalid response from provider")
)

// ProviderError wraps a provider failure with its origin.
type ProviderError struct {
	Provider string
	Message  string
	Cause    error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}
