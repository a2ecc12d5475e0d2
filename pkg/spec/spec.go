// Package spec defines the in-memory representation of an imported API
// specification: the document, its operations, and the schema nodes that
// drive value synthesis and request validation.
package spec

import (
	"fmt"
	"strings"
)

// Document is an immutable snapshot of an imported specification.
// Re-importing produces a new Document; nothing mutates one in place.
type Document struct {
	Title   string
	Version string

	// Paths preserves declaration order, which the router relies on for
	// template tie-breaking.
	Paths []*PathItem

	// Schemas holds the named component schemas addressable via $ref.
	Schemas map[string]*SchemaNode
}

// PathItem groups the operations declared under one path template.
type PathItem struct {
	Path       string
	Operations []*Operation
}

// Operation describes a single method+path endpoint.
type Operation struct {
	Method      string
	Path        string
	OperationID string
	Summary     string

	// RequestBody is the declared body schema, nil when the operation
	// takes no body.
	RequestBody *SchemaNode

	// Responses maps status code to response body schema. A nil schema
	// means the status is declared with an empty body.
	Responses map[int]*SchemaNode
}

// ID returns a stable human-readable identity like "GET /pets/{petId}".
func (op *Operation) ID() string {
	return op.Method + " " + op.Path
}

// SuccessResponse picks the schema to synthesize responses from, along
// with its status code. Preference order: 200, 201, 202, 204, then the
// lowest declared 2xx, then any declared response.
func (op *Operation) SuccessResponse() (int, *SchemaNode) {
	for _, code := range []int{200, 201, 202, 204} {
		if node, ok := op.Responses[code]; ok {
			return code, node
		}
	}
	best := 0
	for code := range op.Responses {
		if code >= 200 && code < 300 && (best == 0 || code < best) {
			best = code
		}
	}
	if best != 0 {
		return best, op.Responses[best]
	}
	for code, node := range op.Responses {
		return code, node
	}
	return 200, nil
}

// Operations flattens all operations in declaration order.
func (d *Document) Operations() []*Operation {
	var ops []*Operation
	for _, item := range d.Paths {
		ops = append(ops, item.Operations...)
	}
	return ops
}

// SchemaNode is the closed representation of a JSON-Schema-style type.
// Exactly the constructs the synthesizer and validator understand are
// modeled; anything else is dropped at import time.
type SchemaNode struct {
	// Ref, when non-empty, means this node is a reference token and all
	// other fields are ignored until resolution.
	Ref string `json:"$ref,omitempty" yaml:"$ref,omitempty"`

	Type   string `json:"type,omitempty" yaml:"type,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`

	Enum  []any `json:"enum,omitempty" yaml:"enum,omitempty"`
	Const any   `json:"const,omitempty" yaml:"const,omitempty"`

	// Object constraints.
	Properties    map[string]*SchemaNode `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required      []string               `json:"required,omitempty" yaml:"required,omitempty"`
	MinProperties *int                   `json:"minProperties,omitempty" yaml:"minProperties,omitempty"`
	MaxProperties *int                   `json:"maxProperties,omitempty" yaml:"maxProperties,omitempty"`

	// Array constraints.
	Items       *SchemaNode `json:"items,omitempty" yaml:"items,omitempty"`
	MinItems    *int        `json:"minItems,omitempty" yaml:"minItems,omitempty"`
	MaxItems    *int        `json:"maxItems,omitempty" yaml:"maxItems,omitempty"`
	UniqueItems bool        `json:"uniqueItems,omitempty" yaml:"uniqueItems,omitempty"`

	// Numeric constraints.
	Minimum          *float64 `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum          *float64 `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	ExclusiveMinimum bool     `json:"exclusiveMinimum,omitempty" yaml:"exclusiveMinimum,omitempty"`
	ExclusiveMaximum bool     `json:"exclusiveMaximum,omitempty" yaml:"exclusiveMaximum,omitempty"`
	MultipleOf       *float64 `json:"multipleOf,omitempty" yaml:"multipleOf,omitempty"`

	// String constraints.
	MinLength *int   `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty" yaml:"pattern,omitempty"`

	// Composition.
	AllOf []*SchemaNode `json:"allOf,omitempty" yaml:"allOf,omitempty"`
	OneOf []*SchemaNode `json:"oneOf,omitempty" yaml:"oneOf,omitempty"`
	AnyOf []*SchemaNode `json:"anyOf,omitempty" yaml:"anyOf,omitempty"`
}

// IsRef reports whether the node is an unresolved reference token.
func (n *SchemaNode) IsRef() bool {
	return n != nil && n.Ref != ""
}

// RefName extracts the schema name from an internal $ref like
// "#/components/schemas/Pet" or "#/definitions/Pet". It returns false
// for external or malformed references.
func (n *SchemaNode) RefName() (string, bool) {
	if n == nil || n.Ref == "" {
		return "", false
	}
	for _, prefix := range []string{"#/components/schemas/", "#/definitions/"} {
		if name, ok := strings.CutPrefix(n.Ref, prefix); ok && name != "" && !strings.Contains(name, "/") {
			return name, true
		}
	}
	return "", false
}

// Validate performs a structural sanity check on the document: every
// operation has a method and path, and every path item has at least one
// operation. Importers call it before handing a document to the engine.
func (d *Document) Validate() error {
	if len(d.Paths) == 0 {
		return fmt.Errorf("document declares no paths")
	}
	for _, item := range d.Paths {
		if item.Path == "" || !strings.HasPrefix(item.Path, "/") {
			return fmt.Errorf("invalid path %q: must start with /", item.Path)
		}
		if len(item.Operations) == 0 {
			return fmt.Errorf("path %s declares no operations", item.Path)
		}
		for _, op := range item.Operations {
			if op.Method == "" {
				return fmt.Errorf("path %s has an operation with no method", item.Path)
			}
		}
	}
	return nil
}
