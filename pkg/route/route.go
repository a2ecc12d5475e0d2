// Package route matches incoming method+path pairs against the
// operations declared in a specification document.
package route

import (
	"sort"
	"strings"

	"github.com/fauxapi/fauxd/pkg/spec"
)

// Table is an immutable routing table built from a document. Lookups
// try an exact path match first, then path templates in declaration
// order; the first template whose segments all match wins.
type Table struct {
	// exact: method → literal path → operation.
	exact map[string]map[string]*spec.Operation

	// templates: method → templated operations in declaration order.
	templates map[string][]*template
}

type template struct {
	op       *spec.Operation
	segments []string
}

// NewTable builds a routing table from the document's operations.
func NewTable(doc *spec.Document) *Table {
	t := &Table{
		exact:     make(map[string]map[string]*spec.Operation),
		templates: make(map[string][]*template),
	}
	for _, op := range doc.Operations() {
		method := strings.ToUpper(op.Method)
		if strings.Contains(op.Path, "{") {
			t.templates[method] = append(t.templates[method], &template{
				op:       op,
				segments: splitPath(op.Path),
			})
			continue
		}
		if t.exact[method] == nil {
			t.exact[method] = make(map[string]*spec.Operation)
		}
		t.exact[method][op.Path] = op
	}
	return t
}

// Match finds the operation for a method and concrete path. Extracted
// template parameters come back keyed by parameter name.
func (t *Table) Match(method, path string) (*spec.Operation, map[string]string, bool) {
	method = strings.ToUpper(method)
	path = normalizePath(path)

	if op, ok := t.exact[method][path]; ok {
		return op, nil, true
	}

	segments := splitPath(path)
	for _, tmpl := range t.templates[method] {
		if params, ok := tmpl.match(segments); ok {
			return tmpl.op, params, true
		}
	}
	return nil, nil, false
}

// match compares segment by segment: a {name} template segment captures
// exactly one non-empty path segment, everything else must be equal.
func (tmpl *template) match(segments []string) (map[string]string, bool) {
	if len(segments) != len(tmpl.segments) {
		return nil, false
	}
	var params map[string]string
	for i, ts := range tmpl.segments {
		if strings.HasPrefix(ts, "{") && strings.HasSuffix(ts, "}") {
			if segments[i] == "" {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[ts[1:len(ts)-1]] = segments[i]
			continue
		}
		if ts != segments[i] {
			return nil, false
		}
	}
	return params, true
}

// Known lists every routable "METHOD /path" pair, sorted, for 404
// diagnostics.
func (t *Table) Known() []string {
	var known []string
	for method, paths := range t.exact {
		for path := range paths {
			known = append(known, method+" "+path)
		}
	}
	for method, tmpls := range t.templates {
		for _, tmpl := range tmpls {
			known = append(known, method+" "+tmpl.op.Path)
		}
	}
	sort.Strings(known)
	return known
}

func normalizePath(path string) string {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

func splitPath(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}
