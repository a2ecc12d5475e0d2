// Package importer loads OpenAPI documents and converts them into the
// engine's internal specification model. OpenAPI 3.x is handled
// natively; Swagger 2.0 documents are upconverted first.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/fauxapi/fauxd/pkg/logging"
	"github.com/fauxapi/fauxd/pkg/spec"
)

// methodOrder fixes the operation order within a path so documents
// import deterministically.
var methodOrder = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS", "TRACE"}

// Importer converts OpenAPI documents to spec documents.
type Importer struct {
	logger *slog.Logger
}

// New creates an Importer. logger may be nil.
func New(logger *slog.Logger) *Importer {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Importer{logger: logger}
}

// ImportFile loads a YAML or JSON document from disk.
func (im *Importer) ImportFile(ctx context.Context, path string) (*spec.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spec file: %w", err)
	}
	return im.ImportData(ctx, data)
}

// ImportURL fetches and loads a document from an HTTP(S) URL.
func (im *Importer) ImportURL(ctx context.Context, rawURL string) (*spec.Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse spec url: %w", err)
	}
	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = true
	doc, err := loader.LoadFromURI(u)
	if err != nil {
		return nil, fmt.Errorf("load spec from %s: %w", rawURL, err)
	}
	return im.convert(ctx, doc)
}

// ImportData loads a document from raw bytes, sniffing the version.
func (im *Importer) ImportData(ctx context.Context, data []byte) (*spec.Document, error) {
	if isSwagger2(data) {
		return im.importSwagger2(ctx, data)
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("parse openapi document: %w", err)
	}
	return im.convert(ctx, doc)
}

func (im *Importer) importSwagger2(ctx context.Context, data []byte) (*spec.Document, error) {
	jsonData, err := toJSON(data)
	if err != nil {
		return nil, fmt.Errorf("parse swagger document: %w", err)
	}
	var v2 openapi2.T
	if err := json.Unmarshal(jsonData, &v2); err != nil {
		return nil, fmt.Errorf("parse swagger document: %w", err)
	}
	doc, err := openapi2conv.ToV3(&v2)
	if err != nil {
		return nil, fmt.Errorf("convert swagger 2.0 document: %w", err)
	}
	return im.convert(ctx, doc)
}

func (im *Importer) convert(ctx context.Context, doc *openapi3.T) (*spec.Document, error) {
	// Structural problems in the source document are worth surfacing
	// but must not block the import: a mock should serve what it can.
	if err := doc.Validate(ctx); err != nil {
		im.logger.Warn("openapi document has validation issues, importing anyway", "error", err)
	}

	out := &spec.Document{
		Schemas: make(map[string]*spec.SchemaNode),
	}
	if doc.Info != nil {
		out.Title = doc.Info.Title
		out.Version = doc.Info.Version
	}

	if doc.Components != nil {
		for name, ref := range doc.Components.Schemas {
			out.Schemas[name] = toNode(ref)
		}
	}

	if doc.Paths != nil {
		pathMap := doc.Paths.Map()
		paths := make([]string, 0, len(pathMap))
		for p := range pathMap {
			paths = append(paths, p)
		}
		sort.Strings(paths)

		for _, p := range paths {
			item := convertPathItem(p, pathMap[p])
			if item != nil {
				out.Paths = append(out.Paths, item)
			}
		}
	}

	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("imported document unusable: %w", err)
	}
	im.logger.Info("spec imported",
		"title", out.Title, "paths", len(out.Paths), "schemas", len(out.Schemas))
	return out, nil
}

func convertPathItem(path string, src *openapi3.PathItem) *spec.PathItem {
	if src == nil {
		return nil
	}
	ops := src.Operations()
	item := &spec.PathItem{Path: path}
	for _, method := range methodOrder {
		op, ok := ops[method]
		if !ok || op == nil {
			continue
		}
		item.Operations = append(item.Operations, convertOperation(method, path, op))
	}
	if len(item.Operations) == 0 {
		return nil
	}
	return item
}

func convertOperation(method, path string, src *openapi3.Operation) *spec.Operation {
	op := &spec.Operation{
		Method:      method,
		Path:        path,
		OperationID: src.OperationID,
		Summary:     src.Summary,
		Responses:   make(map[int]*spec.SchemaNode),
	}

	if src.RequestBody != nil && src.RequestBody.Value != nil {
		op.RequestBody = toNode(jsonSchema(src.RequestBody.Value.Content))
	}

	if src.Responses != nil {
		for status, ref := range src.Responses.Map() {
			code, err := parseStatus(status)
			if err != nil {
				continue
			}
			if ref == nil || ref.Value == nil {
				op.Responses[code] = nil
				continue
			}
			op.Responses[code] = toNode(jsonSchema(ref.Value.Content))
		}
	}
	return op
}

// jsonSchema picks the schema of the JSON content type, or any content
// type as a fallback.
func jsonSchema(content openapi3.Content) *openapi3.SchemaRef {
	if content == nil {
		return nil
	}
	if mt := content.Get("application/json"); mt != nil {
		return mt.Schema
	}
	for _, mt := range content {
		if mt != nil && mt.Schema != nil {
			return mt.Schema
		}
	}
	return nil
}

func parseStatus(s string) (int, error) {
	if strings.EqualFold(s, "default") {
		return 200, nil
	}
	var code int
	_, err := fmt.Sscanf(s, "%d", &code)
	if err != nil || code < 100 || code > 599 {
		return 0, fmt.Errorf("bad status %q", s)
	}
	return code, nil
}

// isSwagger2 sniffs the version marker without a full parse.
func isSwagger2(data []byte) bool {
	var probe struct {
		Swagger string `json:"swagger" yaml:"swagger"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return false
	}
	return strings.HasPrefix(probe.Swagger, "2.")
}

// toJSON normalizes YAML or JSON input to JSON bytes.
func toJSON(data []byte) ([]byte, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		return data, nil
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return json.Marshal(raw)
}
