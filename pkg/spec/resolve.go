package spec

// Resolve normalizes a schema node against the document's named schemas:
// $ref tokens are replaced by their targets, allOf members are merged into
// a single node, and oneOf/anyOf members are resolved in place so the
// synthesizer can pick among ready candidates.
//
// Resolve never fails and never mutates its inputs. A reference that
// cannot be followed (unknown name, external URL, or a cycle) collapses
// to a permissive object placeholder.
func Resolve(node *SchemaNode, doc *Document) *SchemaNode {
	r := &resolver{doc: doc, visiting: make(map[string]bool)}
	return r.resolve(node)
}

// placeholder stands in for anything unresolvable. A bare object is the
// most forgiving shape: it synthesizes to {} and validates everything.
func placeholder() *SchemaNode {
	return &SchemaNode{Type: "object"}
}

type resolver struct {
	doc *Document

	// visiting tracks ref names on the current descent path. Names are
	// removed on unwind, so two sibling references to the same schema
	// both resolve; only a reference back into its own ancestry is a
	// cycle.
	visiting map[string]bool
}

func (r *resolver) resolve(node *SchemaNode) *SchemaNode {
	if node == nil {
		return placeholder()
	}

	if node.IsRef() {
		name, ok := node.RefName()
		if !ok {
			return placeholder()
		}
		if r.visiting[name] {
			return placeholder()
		}
		target := r.lookup(name)
		if target == nil {
			return placeholder()
		}
		r.visiting[name] = true
		defer delete(r.visiting, name)
		return r.resolve(target)
	}

	if len(node.AllOf) > 0 {
		return r.mergeAllOf(node)
	}

	out := shallowCopy(node)

	if len(node.OneOf) > 0 {
		out.OneOf = r.resolveList(node.OneOf)
	}
	if len(node.AnyOf) > 0 {
		out.AnyOf = r.resolveList(node.AnyOf)
	}
	if len(node.Properties) > 0 {
		props := make(map[string]*SchemaNode, len(node.Properties))
		for name, prop := range node.Properties {
			props[name] = r.resolve(prop)
		}
		out.Properties = props
	}
	if node.Items != nil {
		out.Items = r.resolve(node.Items)
	}

	return out
}

func (r *resolver) lookup(name string) *SchemaNode {
	if r.doc == nil || r.doc.Schemas == nil {
		return nil
	}
	return r.doc.Schemas[name]
}

func (r *resolver) resolveList(nodes []*SchemaNode) []*SchemaNode {
	out := make([]*SchemaNode, len(nodes))
	for i, n := range nodes {
		out[i] = r.resolve(n)
	}
	return out
}

// mergeAllOf folds every allOf member, plus any constraints declared on
// the parent node itself, into one combined node. Properties and
// required lists union; on conflicting bounds the tighter side wins;
// the type comes from the first member that declares one.
func (r *resolver) mergeAllOf(node *SchemaNode) *SchemaNode {
	merged := &SchemaNode{}

	parts := make([]*SchemaNode, 0, len(node.AllOf)+1)
	for _, member := range node.AllOf {
		parts = append(parts, r.resolve(member))
	}
	inline := shallowCopy(node)
	inline.AllOf = nil
	if !isEmptySchema(inline) {
		parts = append(parts, r.resolve(inline))
	}

	for _, part := range parts {
		mergeInto(merged, part)
	}
	if merged.Type == "" && len(merged.Properties) > 0 {
		merged.Type = "object"
	}
	return merged
}

func mergeInto(dst, src *SchemaNode) {
	if dst.Type == "" {
		dst.Type = src.Type
	}
	if dst.Format == "" {
		dst.Format = src.Format
	}
	if dst.Enum == nil {
		dst.Enum = src.Enum
	}
	if dst.Const == nil {
		dst.Const = src.Const
	}
	if dst.Pattern == "" {
		dst.Pattern = src.Pattern
	}
	if src.Items != nil && dst.Items == nil {
		dst.Items = src.Items
	}
	if dst.OneOf == nil {
		dst.OneOf = src.OneOf
	}
	if dst.AnyOf == nil {
		dst.AnyOf = src.AnyOf
	}
	dst.UniqueItems = dst.UniqueItems || src.UniqueItems
	dst.ExclusiveMinimum = dst.ExclusiveMinimum || src.ExclusiveMinimum
	dst.ExclusiveMaximum = dst.ExclusiveMaximum || src.ExclusiveMaximum

	if len(src.Properties) > 0 {
		if dst.Properties == nil {
			dst.Properties = make(map[string]*SchemaNode, len(src.Properties))
		}
		for name, prop := range src.Properties {
			if _, exists := dst.Properties[name]; !exists {
				dst.Properties[name] = prop
			}
		}
	}
	for _, req := range src.Required {
		if !contains(dst.Required, req) {
			dst.Required = append(dst.Required, req)
		}
	}

	// Lower bounds: the larger wins. Upper bounds: the smaller wins.
	dst.Minimum = maxFloat(dst.Minimum, src.Minimum)
	dst.Maximum = minFloat(dst.Maximum, src.Maximum)
	dst.MinLength = maxInt(dst.MinLength, src.MinLength)
	dst.MaxLength = minInt(dst.MaxLength, src.MaxLength)
	dst.MinItems = maxInt(dst.MinItems, src.MinItems)
	dst.MaxItems = minInt(dst.MaxItems, src.MaxItems)
	dst.MinProperties = maxInt(dst.MinProperties, src.MinProperties)
	dst.MaxProperties = minInt(dst.MaxProperties, src.MaxProperties)
	if dst.MultipleOf == nil {
		dst.MultipleOf = src.MultipleOf
	}
}

func shallowCopy(n *SchemaNode) *SchemaNode {
	cp := *n
	return &cp
}

func isEmptySchema(n *SchemaNode) bool {
	return n.Type == "" && n.Format == "" && n.Enum == nil && n.Const == nil &&
		n.Properties == nil && n.Required == nil && n.Items == nil &&
		n.Minimum == nil && n.Maximum == nil && n.MultipleOf == nil &&
		n.MinLength == nil && n.MaxLength == nil && n.Pattern == "" &&
		n.MinItems == nil && n.MaxItems == nil && !n.UniqueItems &&
		n.MinProperties == nil && n.MaxProperties == nil &&
		len(n.OneOf) == 0 && len(n.AnyOf) == 0
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func maxFloat(a, b *float64) *float64 {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case *b > *a:
		return b
	default:
		return a
	}
}

func minFloat(a, b *float64) *float64 {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case *b < *a:
		return b
	default:
		return a
	}
}

func maxInt(a, b *int) *int {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case *b > *a:
		return b
	default:
		return a
	}
}

func minInt(a, b *int) *int {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case *b < *a:
		return b
	default:
		return a
	}
}
