package importer

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/fauxapi/fauxd/pkg/spec"
)

// toNode converts an OpenAPI schema reference to the internal node
// form. References are kept as tokens rather than being inlined, so
// resolution (including cycle handling) happens in one place.
func toNode(ref *openapi3.SchemaRef) *spec.SchemaNode {
	if ref == nil {
		return nil
	}
	if ref.Ref != "" {
		return &spec.SchemaNode{Ref: ref.Ref}
	}
	return convertSchema(ref.Value)
}

func convertSchema(src *openapi3.Schema) *spec.SchemaNode {
	if src == nil {
		return nil
	}

	node := &spec.SchemaNode{
		Format:           src.Format,
		Enum:             src.Enum,
		Required:         src.Required,
		Pattern:          src.Pattern,
		UniqueItems:      src.UniqueItems,
		Minimum:          src.Min,
		Maximum:          src.Max,
		ExclusiveMinimum: src.ExclusiveMin,
		ExclusiveMaximum: src.ExclusiveMax,
		MultipleOf:       src.MultipleOf,
	}

	if src.Type != nil {
		if types := src.Type.Slice(); len(types) > 0 {
			node.Type = types[0]
		}
	}

	if src.MinLength > 0 {
		node.MinLength = intPtr(int(src.MinLength))
	}
	if src.MaxLength != nil {
		node.MaxLength = intPtr(int(*src.MaxLength))
	}
	if src.MinItems > 0 {
		node.MinItems = intPtr(int(src.MinItems))
	}
	if src.MaxItems != nil {
		node.MaxItems = intPtr(int(*src.MaxItems))
	}
	if src.MinProps > 0 {
		node.MinProperties = intPtr(int(src.MinProps))
	}
	if src.MaxProps != nil {
		node.MaxProperties = intPtr(int(*src.MaxProps))
	}

	if len(src.Properties) > 0 {
		node.Properties = make(map[string]*spec.SchemaNode, len(src.Properties))
		for name, prop := range src.Properties {
			node.Properties[name] = toNode(prop)
		}
	}
	if src.Items != nil {
		node.Items = toNode(src.Items)
	}

	node.AllOf = toNodeList(src.AllOf)
	node.OneOf = toNodeList(src.OneOf)
	node.AnyOf = toNodeList(src.AnyOf)

	return node
}

func toNodeList(refs openapi3.SchemaRefs) []*spec.SchemaNode {
	if len(refs) == 0 {
		return nil
	}
	out := make([]*spec.SchemaNode, 0, len(refs))
	for _, ref := range refs {
		if n := toNode(ref); n != nil {
			out = append(out, n)
		}
	}
	return out
}

func intPtr(i int) *int {
	return &i
}
