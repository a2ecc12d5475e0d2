package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fauxapi/fauxd/pkg/resource"
	"github.com/fauxapi/fauxd/pkg/spec"
	"github.com/fauxapi/fauxd/pkg/synth"
	"github.com/fauxapi/fauxd/pkg/validation"
)

func fptr(f float64) *float64 { return &f }

func petDoc() *spec.Document {
	petSchema := &spec.SchemaNode{
		Type: "object",
		Properties: map[string]*spec.SchemaNode{
			"id":     {Type: "integer", Minimum: fptr(1)},
			"name":   {Type: "string"},
			"status": {Type: "string", Enum: []any{"available", "sold"}},
		},
		Required: []string{"id", "name"},
	}
	bodySchema := &spec.SchemaNode{
		Type: "object",
		Properties: map[string]*spec.SchemaNode{
			"name":   {Type: "string"},
			"status": {Type: "string"},
		},
		Required: []string{"name"},
	}
	listSchema := &spec.SchemaNode{Type: "array", Items: petSchema}

	return &spec.Document{
		Title: "petstore",
		Paths: []*spec.PathItem{
			{Path: "/pets", Operations: []*spec.Operation{
				{Method: "GET", Path: "/pets", Responses: map[int]*spec.SchemaNode{200: listSchema}},
				{Method: "POST", Path: "/pets", RequestBody: bodySchema, Responses: map[int]*spec.SchemaNode{201: petSchema}},
			}},
			{Path: "/pets/{petId}", Operations: []*spec.Operation{
				{Method: "GET", Path: "/pets/{petId}", Responses: map[int]*spec.SchemaNode{200: petSchema}},
				{Method: "PUT", Path: "/pets/{petId}", RequestBody: bodySchema, Responses: map[int]*spec.SchemaNode{200: petSchema}},
				{Method: "DELETE", Path: "/pets/{petId}", Responses: map[int]*spec.SchemaNode{204: nil}},
			}},
		},
	}
}

func newDispatcher(t *testing.T, doc *spec.Document, opts ...DispatcherOption) (*Dispatcher, *resource.Store) {
	t.Helper()
	store := resource.NewStore()
	d := New(doc, store, synth.New(nil), validation.New(nil), opts...)
	return d, store
}

func do(d *Dispatcher, method, path string, body string) *Response {
	req := &Request{Method: method, Path: path}
	if body != "" {
		req.Body = []byte(body)
	}
	return d.Dispatch(context.Background(), req)
}

func TestCreateStoresAndResponds201(t *testing.T) {
	d, store := newDispatcher(t, petDoc())

	resp := do(d, "POST", "/pets", `{"name":"Rex"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	record := resp.Body.(map[string]any)
	assert.Equal(t, "Rex", record["name"], "submitted field wins over synthesized")
	require.Contains(t, record, "id")
	assert.Contains(t, record, "createdAt")
	assert.Contains(t, record, "updatedAt")

	itemKey := "/pets/" + valueString(record["id"])
	stored, ok := store.Get(itemKey)
	require.True(t, ok, "item stored under %s", itemKey)
	assert.Equal(t, record, stored)

	items, ok := store.GetCollection("/pets")
	require.True(t, ok)
	assert.Len(t, items, 1)
}

func TestCreateAssignsIntegerIDAtLeastOne(t *testing.T) {
	d, _ := newDispatcher(t, petDoc())
	for i := 0; i < 100; i++ {
		resp := do(d, "POST", "/pets", `{"name":"x"}`)
		record := resp.Body.(map[string]any)
		idNum, ok := record["id"].(int)
		require.True(t, ok, "integer id schema must yield an int, got %T", record["id"])
		assert.GreaterOrEqual(t, idNum, 1)
	}
}

func TestCreateUUIDWhenSchemaSaysSo(t *testing.T) {
	doc := petDoc()
	// Switch the id property to string+uuid.
	post := doc.Paths[0].Operations[1]
	post.Responses[201].Properties["id"] = &spec.SchemaNode{Type: "string", Format: "uuid"}

	d, _ := newDispatcher(t, doc)
	resp := do(d, "POST", "/pets", `{"name":"x"}`)
	record := resp.Body.(map[string]any)
	idStr, ok := record["id"].(string)
	require.True(t, ok)
	assert.Len(t, idStr, 36)
}

func TestCreateThenReadRoundTrip(t *testing.T) {
	d, _ := newDispatcher(t, petDoc(), WithMeta())

	created := do(d, "POST", "/pets", `{"name":"Rex","status":"available"}`).Body.(map[string]any)
	itemPath := "/pets/" + valueString(created["id"])

	resp := do(d, "GET", itemPath, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created, resp.Body)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, SourceStore, resp.Meta.Source)

	list := do(d, "GET", "/pets", "")
	require.Equal(t, http.StatusOK, list.StatusCode)
	assert.Len(t, list.Body.([]any), 1)
}

func TestReadUnpopulatedCollection404(t *testing.T) {
	d, _ := newDispatcher(t, petDoc())
	resp := do(d, "GET", "/pets", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReadUnknownItemSynthesizes(t *testing.T) {
	d, _ := newDispatcher(t, petDoc(), WithMeta())
	resp := do(d, "GET", "/pets/42", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	record := resp.Body.(map[string]any)
	assert.Equal(t, 42, record["id"], "path identifier flows into the synthesized item")
	assert.Contains(t, record, "name")
	assert.Equal(t, SourceSynthesized, resp.Meta.Source)
}

func TestUpdatePreservesCreatedAt(t *testing.T) {
	d, store := newDispatcher(t, petDoc())

	created := do(d, "POST", "/pets", `{"name":"Rex"}`).Body.(map[string]any)
	itemPath := "/pets/" + valueString(created["id"])
	createdAt := created["createdAt"]

	time.Sleep(1100 * time.Millisecond)
	resp := do(d, "PUT", itemPath, `{"name":"Max"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	updated := resp.Body.(map[string]any)
	assert.Equal(t, "Max", updated["name"])
	assert.Equal(t, createdAt, updated["createdAt"])
	assert.NotEqual(t, createdAt, updated["updatedAt"])
	assert.Equal(t, created["id"], updated["id"])

	// Update writes the item key only; the collection keeps one entry.
	items, _ := store.GetCollection("/pets")
	assert.Len(t, items, 1)
}

func TestUpdateWithoutPriorRecord(t *testing.T) {
	d, _ := newDispatcher(t, petDoc())
	resp := do(d, "PUT", "/pets/7", `{"name":"Ghost"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	record := resp.Body.(map[string]any)
	assert.Equal(t, 7, record["id"])
	assert.Equal(t, "Ghost", record["name"])
}

func TestDeleteLifecycle(t *testing.T) {
	d, store := newDispatcher(t, petDoc())

	created := do(d, "POST", "/pets", `{"name":"Rex"}`).Body.(map[string]any)
	itemPath := "/pets/" + valueString(created["id"])

	resp := do(d, "DELETE", itemPath, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Nil(t, resp.Body)

	_, ok := store.Get(itemPath)
	assert.False(t, ok)
	items, _ := store.GetCollection("/pets")
	assert.Empty(t, items, "delete also removes the collection entry")

	assert.Equal(t, http.StatusNotFound, do(d, "DELETE", itemPath, "").StatusCode)
}

func TestDeletedItemStaysGoneOnRead(t *testing.T) {
	d, _ := newDispatcher(t, petDoc())

	created := do(d, "POST", "/pets", `{"name":"Rex"}`).Body.(map[string]any)
	itemPath := "/pets/" + valueString(created["id"])

	require.Equal(t, http.StatusNoContent, do(d, "DELETE", itemPath, "").StatusCode)

	// The stateless fallback only covers never-created items; a deleted
	// one must not come back.
	resp := do(d, "GET", itemPath, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	list := do(d, "GET", "/pets", "")
	require.Equal(t, http.StatusOK, list.StatusCode)
	assert.Empty(t, list.Body.([]any))

	// A never-created sibling still synthesizes.
	assert.Equal(t, http.StatusOK, do(d, "GET", "/pets/1000001", "").StatusCode)

	// Re-creating through update revives the item.
	require.Equal(t, http.StatusOK, do(d, "PUT", itemPath, `{"name":"Rex II"}`).StatusCode)
	revived := do(d, "GET", itemPath, "")
	require.Equal(t, http.StatusOK, revived.StatusCode)
	assert.Equal(t, "Rex II", revived.Body.(map[string]any)["name"])
}

func TestValidationFailure400(t *testing.T) {
	d, _ := newDispatcher(t, petDoc())

	resp := do(d, "POST", "/pets", `{"status":"available"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := resp.Body.(map[string]any)
	assert.Equal(t, "validation failed", body["error"])
	assert.NotEmpty(t, body["violations"])
}

func TestMalformedJSONBody400(t *testing.T) {
	d, _ := newDispatcher(t, petDoc())
	resp := do(d, "POST", "/pets", `{"name": `)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnknownRoute404WithDiagnostics(t *testing.T) {
	d, _ := newDispatcher(t, petDoc())
	resp := do(d, "GET", "/unknown", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := resp.Body.(map[string]any)
	assert.Contains(t, body["knownOperations"], "GET /pets")
}

func TestCollectionQueryFilters(t *testing.T) {
	d, _ := newDispatcher(t, petDoc())
	do(d, "POST", "/pets", `{"name":"Rex","status":"available"}`)
	do(d, "POST", "/pets", `{"name":"Max","status":"sold"}`)
	do(d, "POST", "/pets", `{"name":"Rexford","status":"available"}`)

	resp := d.Dispatch(context.Background(), &Request{
		Method: "GET", Path: "/pets",
		Query: url.Values{"name": {"rex"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, resp.Body.([]any), 2, "substring match is case-insensitive")

	resp = d.Dispatch(context.Background(), &Request{
		Method: "GET", Path: "/pets",
		Query: url.Values{"name": {"rex"}, "status": {"sold"}},
	})
	assert.Empty(t, resp.Body.([]any))
}

func TestCollectionExpressionFilter(t *testing.T) {
	d, _ := newDispatcher(t, petDoc())
	do(d, "POST", "/pets", `{"name":"Rex","status":"available"}`)
	do(d, "POST", "/pets", `{"name":"Max","status":"sold"}`)

	resp := d.Dispatch(context.Background(), &Request{
		Method: "GET", Path: "/pets",
		Query: url.Values{"q": {`status == "sold"`}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := resp.Body.([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Max", items[0].(map[string]any)["name"])
}

func TestInvalidExpressionFilter400(t *testing.T) {
	d, _ := newDispatcher(t, petDoc())
	do(d, "POST", "/pets", `{"name":"Rex"}`)

	resp := d.Dispatch(context.Background(), &Request{
		Method: "GET", Path: "/pets",
		Query: url.Values{"q": {`status ==`}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetaOmittedByDefault(t *testing.T) {
	d, _ := newDispatcher(t, petDoc())
	resp := do(d, "POST", "/pets", `{"name":"Rex"}`)
	assert.Nil(t, resp.Meta)
}

func TestObserverCounts(t *testing.T) {
	obs := NewMetricsObserver()
	d, _ := newDispatcher(t, petDoc(), WithObserver(obs))

	created := do(d, "POST", "/pets", `{"name":"Rex"}`).Body.(map[string]any)
	itemPath := "/pets/" + valueString(created["id"])
	do(d, "GET", itemPath, "")
	do(d, "PUT", itemPath, `{"name":"Max"}`)
	do(d, "DELETE", itemPath, "")
	do(d, "GET", "/nope", "")

	snap := obs.Snapshot()
	assert.Equal(t, int64(1), snap.CreateCount)
	assert.Equal(t, int64(1), snap.ReadCount)
	assert.Equal(t, int64(1), snap.UpdateCount)
	assert.Equal(t, int64(1), snap.DeleteCount)
	assert.Equal(t, int64(1), snap.ErrorCount)
}

func TestResponseBodySerializes(t *testing.T) {
	d, _ := newDispatcher(t, petDoc())
	resp := do(d, "POST", "/pets", `{"name":"Rex"}`)
	_, err := json.Marshal(resp.Body)
	assert.NoError(t, err)
}
