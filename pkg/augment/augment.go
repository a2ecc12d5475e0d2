package augment

import (
	"context"
	"log/slog"
	"time"

	"github.com/fauxapi/fauxd/pkg/logging"
	"github.com/fauxapi/fauxd/pkg/spec"
	"github.com/fauxapi/fauxd/pkg/synth"
)

// DefaultTimeout bounds one provider call.
const DefaultTimeout = 5 * time.Second

// Augmenter generates values through a provider, falling back to the
// local synthesizer whenever the provider errors or times out.
type Augmenter struct {
	provider Provider
	fallback *synth.Synthesizer
	timeout  time.Duration
	logger   *slog.Logger
}

// NewAugmenter wires a provider to its synthesizer fallback. timeout <= 0
// uses DefaultTimeout; logger may be nil.
func NewAugmenter(provider Provider, fallback *synth.Synthesizer, timeout time.Duration, logger *slog.Logger) *Augmenter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Augmenter{
		provider: provider,
		fallback: fallback,
		timeout:  timeout,
		logger:   logger,
	}
}

// Generate produces a value for the schema node, preferring the
// provider and never failing: the synthesizer answers when the provider
// cannot.
func (a *Augmenter) Generate(ctx context.Context, schema *spec.SchemaNode, fieldName, operationContext string) any {
	if a.provider == nil {
		return a.fallback.Synthesize(schema, fieldName)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req := &Request{
		Schema:    schema,
		FieldName: fieldName,
		Context:   operationContext,
	}
	if schema != nil {
		req.FieldType = schema.Type
		req.Format = schema.Format
	}

	resp, err := a.provider.Generate(ctx, req)
	if err != nil {
		a.logger.Debug("augmentation failed, using synthesizer",
			"provider", a.provider.Name(), "field", fieldName, "error", err)
		return a.fallback.Synthesize(schema, fieldName)
	}
	if resp == nil || resp.Value == nil {
		return a.fallback.Synthesize(schema, fieldName)
	}
	return resp.Value
}
