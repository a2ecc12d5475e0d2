// Package validation checks submitted request bodies against the
// operation's declared body schema. A schema that cannot be compiled
// degrades to skip-validation: a broken validation setup must never
// block an otherwise-working mock.
package validation

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/fauxapi/fauxd/pkg/logging"
	"github.com/fauxapi/fauxd/pkg/spec"
)

// Validator compiles schema nodes on first use and caches the result
// per node.
type Validator struct {
	logger *slog.Logger

	mu    sync.Mutex
	cache map[*spec.SchemaNode]*compiled
}

type compiled struct {
	schema *jsonschema.Schema
	err    error
}

// New creates a Validator. logger may be nil.
func New(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Validator{
		logger: logger,
		cache:  make(map[*spec.SchemaNode]*compiled),
	}
}

// ValidateBody validates a decoded JSON body against the resolved
// schema node. A nil node or a compile failure yields a valid,
// Skipped result.
func (v *Validator) ValidateBody(node *spec.SchemaNode, body any) *Result {
	if node == nil {
		return &Result{Valid: true, Skipped: true}
	}

	c := v.compile(node)
	if c.err != nil {
		return &Result{Valid: true, Skipped: true}
	}

	result := &Result{Valid: true}
	if err := c.schema.Validate(body); err != nil {
		var ve *jsonschema.ValidationError
		if ok := asValidationError(err, &ve); ok {
			collectCauses(ve, result)
		} else {
			result.AddError(&FieldError{Code: ErrCodeSchema, Message: err.Error()})
		}
	}
	return result
}

func (v *Validator) compile(node *spec.SchemaNode) *compiled {
	v.mu.Lock()
	defer v.mu.Unlock()
	if c, ok := v.cache[node]; ok {
		return c
	}

	c := &compiled{}
	c.schema, c.err = compileNode(node)
	if c.err != nil {
		v.logger.Warn("schema compilation failed, skipping body validation", "error", c.err)
	}
	v.cache[node] = c
	return c
}

func compileNode(node *spec.SchemaNode) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(toSchemaMap(node))
	if err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	if err := compiler.AddResource("request.json", strings.NewReader(string(raw))); err != nil {
		return nil, err
	}
	return compiler.Compile("request.json")
}

// toSchemaMap renders a resolved node as a plain JSON Schema document.
// Exclusive bounds translate from the boolean flag form to the
// draft-7 numeric keywords.
func toSchemaMap(n *spec.SchemaNode) map[string]any {
	m := map[string]any{}
	if n == nil {
		return m
	}
	if n.Type != "" {
		m["type"] = n.Type
	}
	if n.Format != "" {
		m["format"] = n.Format
	}
	if len(n.Enum) > 0 {
		m["enum"] = n.Enum
	}
	if n.Const != nil {
		m["const"] = n.Const
	}
	if len(n.Required) > 0 {
		m["required"] = n.Required
	}
	if len(n.Properties) > 0 {
		props := make(map[string]any, len(n.Properties))
		for name, p := range n.Properties {
			props[name] = toSchemaMap(p)
		}
		m["properties"] = props
	}
	if n.Items != nil {
		m["items"] = toSchemaMap(n.Items)
	}

	if n.Minimum != nil {
		if n.ExclusiveMinimum {
			m["exclusiveMinimum"] = *n.Minimum
		} else {
			m["minimum"] = *n.Minimum
		}
	}
	if n.Maximum != nil {
		if n.ExclusiveMaximum {
			m["exclusiveMaximum"] = *n.Maximum
		} else {
			m["maximum"] = *n.Maximum
		}
	}
	if n.MultipleOf != nil {
		m["multipleOf"] = *n.MultipleOf
	}
	if n.MinLength != nil {
		m["minLength"] = *n.MinLength
	}
	if n.MaxLength != nil {
		m["maxLength"] = *n.MaxLength
	}
	if n.Pattern != "" {
		m["pattern"] = n.Pattern
	}
	if n.MinItems != nil {
		m["minItems"] = *n.MinItems
	}
	if n.MaxItems != nil {
		m["maxItems"] = *n.MaxItems
	}
	if n.UniqueItems {
		m["uniqueItems"] = true
	}
	if n.MinProperties != nil {
		m["minProperties"] = *n.MinProperties
	}
	if n.MaxProperties != nil {
		m["maxProperties"] = *n.MaxProperties
	}
	if len(n.OneOf) > 0 {
		m["oneOf"] = schemaMapList(n.OneOf)
	}
	if len(n.AnyOf) > 0 {
		m["anyOf"] = schemaMapList(n.AnyOf)
	}
	if len(n.AllOf) > 0 {
		m["allOf"] = schemaMapList(n.AllOf)
	}
	return m
}

func schemaMapList(nodes []*spec.SchemaNode) []any {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		out[i] = toSchemaMap(n)
	}
	return out
}

func asValidationError(err error, target **jsonschema.ValidationError) bool {
	ve, ok := err.(*jsonschema.ValidationError)
	if ok {
		*target = ve
	}
	return ok
}

// collectCauses flattens the validation error tree into a list of leaf
// violations.
func collectCauses(err *jsonschema.ValidationError, result *Result) {
	if len(err.Causes) == 0 {
		result.AddError(&FieldError{
			Field:   fieldFromPointer(err.InstanceLocation),
			Code:    codeForKeyword(err.KeywordLocation),
			Message: err.Message,
		})
		return
	}
	for _, cause := range err.Causes {
		collectCauses(cause, result)
	}
}

func codeForKeyword(keywordLocation string) string {
	switch {
	case strings.HasSuffix(keywordLocation, "/required"):
		return ErrCodeRequired
	case strings.HasSuffix(keywordLocation, "/type"):
		return ErrCodeType
	case strings.HasSuffix(keywordLocation, "/format"):
		return ErrCodeFormat
	default:
		return ErrCodeSchema
	}
}
