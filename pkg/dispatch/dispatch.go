// Package dispatch turns matched requests into mock responses: it
// validates bodies, synthesizes response values, and applies CRUD
// semantics over the resource store.
package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/expr-lang/expr/vm"

	"github.com/fauxapi/fauxd/internal/id"
	"github.com/fauxapi/fauxd/pkg/augment"
	"github.com/fauxapi/fauxd/pkg/logging"
	"github.com/fauxapi/fauxd/pkg/resource"
	"github.com/fauxapi/fauxd/pkg/route"
	"github.com/fauxapi/fauxd/pkg/spec"
	"github.com/fauxapi/fauxd/pkg/synth"
	"github.com/fauxapi/fauxd/pkg/validation"
)

// Request is the transport-neutral request descriptor.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

// Response is what the transport writes back.
type Response struct {
	StatusCode int
	Body       any
	Meta       *Meta
}

// Meta carries diagnostics about how a response was produced. It is
// cosmetic: clients must not depend on it.
type Meta struct {
	Operation string `json:"operation"`
	Source    string `json:"source"`
}

// Meta sources.
const (
	SourceStore       = "store"
	SourceSynthesized = "synthesized"
)

// resolvedOp caches the fully resolved schemas for one operation, so
// no request pays for reference resolution.
type resolvedOp struct {
	op            *spec.Operation
	requestBody   *spec.SchemaNode
	successStatus int
	response      *spec.SchemaNode
}

// Dispatcher executes requests against a specification document.
type Dispatcher struct {
	routes    *route.Table
	store     *resource.Store
	synth     *synth.Synthesizer
	validator *validation.Validator
	augmenter *augment.Augmenter
	observer  Observer
	logger    *slog.Logger

	includeMeta bool
	resolved    map[*spec.Operation]*resolvedOp

	filterMu    sync.RWMutex
	filterCache map[string]*vm.Program
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithObserver attaches operation hooks.
func WithObserver(o Observer) DispatcherOption {
	return func(d *Dispatcher) { d.observer = o }
}

// WithLogger sets the dispatcher's logger.
func WithLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l }
}

// WithAugmenter routes response synthesis through an augmentation
// provider, with the synthesizer as fallback.
func WithAugmenter(a *augment.Augmenter) DispatcherOption {
	return func(d *Dispatcher) { d.augmenter = a }
}

// WithMeta includes the diagnostic meta block in responses.
func WithMeta() DispatcherOption {
	return func(d *Dispatcher) { d.includeMeta = true }
}

// New builds a dispatcher over the document. Schemas referenced by
// operations are resolved eagerly.
func New(doc *spec.Document, store *resource.Store, synthesizer *synth.Synthesizer, validator *validation.Validator, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		routes:      route.NewTable(doc),
		store:       store,
		synth:       synthesizer,
		validator:   validator,
		observer:    NoopObserver{},
		logger:      logging.Nop(),
		resolved:    make(map[*spec.Operation]*resolvedOp),
		filterCache: make(map[string]*vm.Program),
	}
	for _, opt := range opts {
		opt(d)
	}

	for _, op := range doc.Operations() {
		r := &resolvedOp{op: op}
		if op.RequestBody != nil {
			r.requestBody = spec.Resolve(op.RequestBody, doc)
		}
		status, node := op.SuccessResponse()
		r.successStatus = status
		if node != nil {
			r.response = spec.Resolve(node, doc)
		}
		d.resolved[op] = r
	}
	return d
}

// Dispatch runs one request through the match/validate/resolve/respond
// sequence. It never panics; unexpected synthesis failures degrade to a
// generic record and, only if that also fails, to a 500.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) *Response {
	start := time.Now()
	op, _, ok := d.routes.Match(req.Method, req.Path)
	if !ok {
		d.observer.OnError("", http.StatusNotFound)
		return errorResponse(&NotFoundError{
			Method: req.Method,
			Path:   req.Path,
			Known:  d.routes.Known(),
		})
	}

	resp := d.execute(ctx, d.resolved[op], req, start)
	if resp.StatusCode >= 400 {
		d.observer.OnError(op.ID(), resp.StatusCode)
	}
	if d.includeMeta && resp.Meta != nil {
		resp.Meta.Operation = op.ID()
	} else if !d.includeMeta {
		resp.Meta = nil
	}
	return resp
}

func (d *Dispatcher) execute(ctx context.Context, r *resolvedOp, req *Request, start time.Time) *Response {
	method := strings.ToUpper(req.Method)

	var body map[string]any
	isWrite := method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
	if isWrite && len(req.Body) > 0 {
		if err := json.Unmarshal(req.Body, &body); err != nil {
			return errorResponse(&BadRequestError{Detail: "request body is not a JSON object"})
		}
	}
	if isWrite && r.requestBody != nil {
		var submitted any
		if body != nil {
			submitted = body
		}
		result := d.validator.ValidateBody(r.requestBody, submitted)
		if !result.Valid {
			return errorResponse(&ValidationFailedError{Violations: result.Errors})
		}
	}

	switch method {
	case http.MethodPost:
		return d.create(ctx, r, req, body, start)
	case http.MethodPut, http.MethodPatch:
		return d.update(ctx, r, req, body, start)
	case http.MethodDelete:
		return d.delete(r, req, start)
	default:
		return d.read(ctx, r, req, start)
	}
}

func (d *Dispatcher) create(ctx context.Context, r *resolvedOp, req *Request, body map[string]any, start time.Time) *Response {
	record, err := d.buildRecord(ctx, r, body)
	if err != nil {
		return errorResponse(err)
	}

	if _, has := record["id"]; !has {
		record["id"] = d.newID(r.response)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	record["createdAt"] = now
	record["updatedAt"] = now

	collectionKey := resource.CollectionKey(normalize(req.Path))
	itemKey := collectionKey + "/" + valueString(record["id"])
	d.store.Do(collectionKey, func() {
		d.store.Set(itemKey, record)
		d.store.AppendToCollection(collectionKey, record)
	})

	d.observer.OnCreate(r.op.ID(), time.Since(start))
	return &Response{
		StatusCode: http.StatusCreated,
		Body:       record,
		Meta:       &Meta{Source: SourceSynthesized},
	}
}

func (d *Dispatcher) update(ctx context.Context, r *resolvedOp, req *Request, body map[string]any, start time.Time) *Response {
	record, err := d.buildRecord(ctx, r, body)
	if err != nil {
		return errorResponse(err)
	}

	itemKey := normalize(req.Path)
	collectionKey := resource.CollectionKey(itemKey)
	now := time.Now().UTC().Format(time.RFC3339)

	d.store.Do(collectionKey, func() {
		prior, hadPrior := d.store.Get(itemKey)
		if priorObj, isObj := prior.(map[string]any); hadPrior && isObj {
			if created, has := priorObj["createdAt"]; has {
				record["createdAt"] = created
			}
			if pid, has := priorObj["id"]; has {
				record["id"] = pid
			}
		} else if seg := lastSegment(itemKey); id.IsIdentifier(seg) {
			record["id"] = idValue(seg)
		}
		record["updatedAt"] = now
		// Item key only: the stored collection array keeps its
		// original element until the next create repopulates it.
		d.store.Set(itemKey, record)
	})

	d.observer.OnUpdate(r.op.ID(), time.Since(start))
	return &Response{
		StatusCode: http.StatusOK,
		Body:       record,
		Meta:       &Meta{Source: SourceSynthesized},
	}
}

func (d *Dispatcher) delete(r *resolvedOp, req *Request, start time.Time) *Response {
	itemKey := normalize(req.Path)
	collectionKey := resource.CollectionKey(itemKey)

	var existed bool
	d.store.Do(collectionKey, func() {
		if _, ok := d.store.Get(itemKey); !ok {
			return
		}
		existed = true
		d.store.Delete(itemKey)
		if seg := lastSegment(itemKey); seg != "" {
			d.store.RemoveFromCollection(collectionKey, "id", seg)
		}
	})
	if !existed {
		return errorResponse(&NotFoundError{
			Method: req.Method,
			Path:   req.Path,
			Detail: "no stored item at " + itemKey,
		})
	}

	d.observer.OnDelete(r.op.ID(), time.Since(start))
	return &Response{StatusCode: http.StatusNoContent}
}

func (d *Dispatcher) read(ctx context.Context, r *resolvedOp, req *Request, start time.Time) *Response {
	path := normalize(req.Path)

	if resource.IsItemPath(path) {
		return d.readItem(ctx, r, path, start)
	}
	return d.readCollection(r, path, req.Query, start)
}

func (d *Dispatcher) readItem(ctx context.Context, r *resolvedOp, path string, start time.Time) *Response {
	if stored, ok := d.store.Get(path); ok {
		d.observer.OnRead(r.op.ID(), time.Since(start))
		return &Response{
			StatusCode: http.StatusOK,
			Body:       stored,
			Meta:       &Meta{Source: SourceStore},
		}
	}

	// A deleted item stays gone; resynthesizing it would undo the
	// delete from the caller's point of view.
	if d.store.WasDeleted(path) {
		return errorResponse(&NotFoundError{
			Method: http.MethodGet,
			Path:   path,
			Detail: "item " + path + " was deleted",
		})
	}

	// Stateless fallback: a never-created item is still explorable.
	record, err := d.buildRecord(ctx, r, nil)
	if err != nil {
		return errorResponse(err)
	}
	// The addressed identifier wins over whatever synthesis produced.
	if seg := lastSegment(path); id.IsIdentifier(seg) {
		record["id"] = idValue(seg)
	}

	d.observer.OnRead(r.op.ID(), time.Since(start))
	return &Response{
		StatusCode: r.successStatus,
		Body:       record,
		Meta:       &Meta{Source: SourceSynthesized},
	}
}

func (d *Dispatcher) readCollection(r *resolvedOp, path string, query url.Values, start time.Time) *Response {
	items, ok := d.store.GetCollection(path)
	if !ok {
		// A collection never populated by a create has nothing to
		// return; synthesizing one would fake persistence.
		return errorResponse(&NotFoundError{
			Method: http.MethodGet,
			Path:   path,
			Detail: "no stored data for collection " + path,
		})
	}

	filtered, err := d.filterCollection(items, query)
	if err != nil {
		return errorResponse(err)
	}

	d.observer.OnRead(r.op.ID(), time.Since(start))
	return &Response{
		StatusCode: http.StatusOK,
		Body:       filtered,
		Meta:       &Meta{Source: SourceStore},
	}
}

// buildRecord synthesizes the response-shaped value and overlays the
// submitted body, submitted fields winning. A panic anywhere in
// synthesis degrades to a minimal generic record.
func (d *Dispatcher) buildRecord(ctx context.Context, r *resolvedOp, body map[string]any) (map[string]any, error) {
	synthesized, panicked := d.safeSynthesize(ctx, r)
	if panicked != nil {
		d.logger.Warn("synthesis panicked, substituting generic record",
			"operation", r.op.ID(), "cause", panicked)
		fallback := safeGenericRecord()
		if fallback == nil {
			return nil, &SynthesisError{Operation: r.op.ID(), Cause: panicked}
		}
		synthesized = fallback
	}

	record, isObj := synthesized.(map[string]any)
	if !isObj {
		record = map[string]any{}
		if synthesized != nil {
			record["value"] = synthesized
		}
	}
	for k, v := range body {
		record[k] = v
	}
	return record, nil
}

func (d *Dispatcher) safeSynthesize(ctx context.Context, r *resolvedOp) (value any, panicked any) {
	defer func() {
		if p := recover(); p != nil {
			panicked = p
		}
	}()
	if r.response == nil {
		return map[string]any{}, nil
	}
	if d.augmenter != nil {
		return d.augmenter.Generate(ctx, r.response, "", r.op.Summary), nil
	}
	return d.synth.Synthesize(r.response, ""), nil
}

// safeGenericRecord builds the minimal degradation record, returning
// nil if even that fails.
func safeGenericRecord() (record map[string]any) {
	defer func() {
		if recover() != nil {
			record = nil
		}
	}()
	now := time.Now().UTC().Format(time.RFC3339)
	return map[string]any{
		"id":        id.RandomInt(),
		"name":      "resource",
		"status":    "active",
		"createdAt": now,
		"updatedAt": now,
	}
}

// newID picks the identifier type from the response schema's id
// property: integer schemas get a bounded random integer, uuid-format
// strings get a UUID, anything else defaults to integer.
func (d *Dispatcher) newID(response *spec.SchemaNode) any {
	if response != nil && response.Properties != nil {
		if idSchema := response.Properties["id"]; idSchema != nil {
			if idSchema.Type == "string" && idSchema.Format == "uuid" {
				return id.UUID()
			}
		}
	}
	return id.RandomInt()
}

func normalize(path string) string {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

func lastSegment(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

// idValue converts a path segment to the value type stored record ids
// use: numeric segments become numbers, everything else stays a string.
func idValue(seg string) any {
	if id.IsNumeric(seg) {
		if n, err := strconv.Atoi(seg); err == nil {
			return n
		}
	}
	return seg
}

// valueString renders an id value for use in a storage key.
func valueString(v any) string {
	return idString(v)
}

func idString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
