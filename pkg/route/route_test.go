package route

import (
	"testing"

	"github.com/fauxapi/fauxd/pkg/spec"
)

func buildDoc(ops ...*spec.Operation) *spec.Document {
	doc := &spec.Document{}
	for _, op := range ops {
		doc.Paths = append(doc.Paths, &spec.PathItem{
			Path:       op.Path,
			Operations: []*spec.Operation{op},
		})
	}
	return doc
}

func TestExactBeatsTemplate(t *testing.T) {
	tmpl := &spec.Operation{Method: "GET", Path: "/pets/{petId}"}
	exact := &spec.Operation{Method: "GET", Path: "/pets/special"}
	table := NewTable(buildDoc(tmpl, exact))

	op, params, ok := table.Match("GET", "/pets/special")
	if !ok {
		t.Fatal("expected a match")
	}
	if op != exact {
		t.Errorf("matched %s, want the exact route", op.Path)
	}
	if len(params) != 0 {
		t.Errorf("exact match should extract no params, got %v", params)
	}
}

func TestTemplateDeclarationOrder(t *testing.T) {
	first := &spec.Operation{Method: "GET", Path: "/a/{x}/c"}
	second := &spec.Operation{Method: "GET", Path: "/a/{y}/{z}"}
	table := NewTable(buildDoc(first, second))

	op, params, ok := table.Match("GET", "/a/b/c")
	if !ok {
		t.Fatal("expected a match")
	}
	if op != first {
		t.Errorf("matched %s, want first-declared template", op.Path)
	}
	if params["x"] != "b" {
		t.Errorf("params = %v, want x=b", params)
	}
}

func TestTemplateParamExtraction(t *testing.T) {
	op := &spec.Operation{Method: "DELETE", Path: "/stores/{storeId}/orders/{orderId}"}
	table := NewTable(buildDoc(op))

	_, params, ok := table.Match("DELETE", "/stores/7/orders/42")
	if !ok {
		t.Fatal("expected a match")
	}
	if params["storeId"] != "7" || params["orderId"] != "42" {
		t.Errorf("params = %v", params)
	}
}

func TestNoMatch(t *testing.T) {
	table := NewTable(buildDoc(&spec.Operation{Method: "GET", Path: "/pets"}))

	tests := []struct {
		method, path string
	}{
		{"POST", "/pets"},            // wrong method
		{"GET", "/pets/1"},           // extra segment
		{"GET", "/pet"},              // different path
		{"GET", "/unknown/anything"}, // unknown entirely
	}
	for _, tt := range tests {
		if _, _, ok := table.Match(tt.method, tt.path); ok {
			t.Errorf("%s %s should not match", tt.method, tt.path)
		}
	}
}

func TestParamMatchesSingleSegmentOnly(t *testing.T) {
	op := &spec.Operation{Method: "GET", Path: "/files/{name}"}
	table := NewTable(buildDoc(op))

	if _, _, ok := table.Match("GET", "/files/a/b"); ok {
		t.Error("{name} must not span multiple segments")
	}
}

func TestTrailingSlashNormalized(t *testing.T) {
	op := &spec.Operation{Method: "GET", Path: "/pets"}
	table := NewTable(buildDoc(op))

	if _, _, ok := table.Match("GET", "/pets/"); !ok {
		t.Error("trailing slash should normalize to the declared path")
	}
}

func TestMethodCaseInsensitive(t *testing.T) {
	op := &spec.Operation{Method: "get", Path: "/pets"}
	table := NewTable(buildDoc(op))

	if _, _, ok := table.Match("GET", "/pets"); !ok {
		t.Error("method comparison should be case-insensitive")
	}
}

func TestKnownSorted(t *testing.T) {
	table := NewTable(buildDoc(
		&spec.Operation{Method: "GET", Path: "/b"},
		&spec.Operation{Method: "GET", Path: "/a/{id}"},
		&spec.Operation{Method: "POST", Path: "/a"},
	))
	known := table.Known()
	if len(known) != 3 {
		t.Fatalf("Known() = %v, want 3 entries", known)
	}
	for i := 1; i < len(known); i++ {
		if known[i-1] > known[i] {
			t.Errorf("Known() not sorted: %v", known)
		}
	}
}
