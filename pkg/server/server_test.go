package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fauxapi/fauxd/pkg/config"
	"github.com/fauxapi/fauxd/pkg/dispatch"
	"github.com/fauxapi/fauxd/pkg/resource"
	"github.com/fauxapi/fauxd/pkg/spec"
	"github.com/fauxapi/fauxd/pkg/synth"
	"github.com/fauxapi/fauxd/pkg/validation"
)

func testServer(t *testing.T) (*Server, *resource.Store) {
	t.Helper()
	doc := &spec.Document{
		Title: "test",
		Paths: []*spec.PathItem{
			{Path: "/widgets", Operations: []*spec.Operation{
				{Method: "GET", Path: "/widgets", Responses: map[int]*spec.SchemaNode{200: {Type: "array", Items: widgetSchema()}}},
				{Method: "POST", Path: "/widgets", Responses: map[int]*spec.SchemaNode{201: widgetSchema()}},
			}},
			{Path: "/widgets/{id}", Operations: []*spec.Operation{
				{Method: "GET", Path: "/widgets/{id}", Responses: map[int]*spec.SchemaNode{200: widgetSchema()}},
				{Method: "DELETE", Path: "/widgets/{id}", Responses: map[int]*spec.SchemaNode{204: nil}},
			}},
		},
	}
	store := resource.NewStore()
	metrics := dispatch.NewMetricsObserver()
	d := dispatch.New(doc, store, synth.New(nil), validation.New(nil),
		dispatch.WithObserver(metrics), dispatch.WithMeta())
	cfg := config.Default()
	cfg.Server.IncludeMeta = true
	return New(cfg, d, store, metrics, nil), store
}

func widgetSchema() *spec.SchemaNode {
	return &spec.SchemaNode{
		Type: "object",
		Properties: map[string]*spec.SchemaNode{
			"id":   {Type: "integer"},
			"name": {Type: "string"},
		},
		Required: []string{"id", "name"},
	}
}

func TestMockEndpointLifecycle(t *testing.T) {
	srv, _ := testServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	// Create.
	resp, err := http.Post(ts.URL+"/widgets", "application/json",
		bytes.NewBufferString(`{"name":"gear"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var created map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	assert.Equal(t, "gear", created["name"])

	// Read back.
	itemURL := ts.URL + "/widgets/" + anyString(created["id"])
	resp, err = http.Get(itemURL)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "store", resp.Header.Get("X-Fauxd-Source"))
	resp.Body.Close()

	// Delete returns 204 with empty body.
	req, _ := http.NewRequest(http.MethodDelete, itemURL, nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()
}

func TestUnknownPath404(t *testing.T) {
	srv, _ := testServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/nothing/here")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := testServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/__fauxd/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestResetEndpoint(t *testing.T) {
	srv, store := testServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	store.Set("/widgets/1", map[string]any{"id": float64(1)})
	resp, err := http.Post(ts.URL+"/__fauxd/reset", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, store.Len())

	// Reset requires POST.
	resp, err = http.Get(ts.URL + "/__fauxd/reset")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestStatsEndpoint(t *testing.T) {
	srv, _ := testServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	http.Post(ts.URL+"/widgets", "application/json", strings.NewReader(`{"name":"a"}`))

	resp, err := http.Get(ts.URL + "/__fauxd/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap dispatch.MetricsSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, int64(1), snap.CreateCount)
}

func TestBodySizeLimit(t *testing.T) {
	srv, _ := testServer(t)
	srv.cfg.Server.MaxBodyBytes = 64
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	big := `{"name":"` + strings.Repeat("x", 200) + `"}`
	resp, err := http.Post(ts.URL+"/widgets", "application/json", strings.NewReader(big))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	details, ok := body["details"].(map[string]any)
	require.True(t, ok, "413 body carries a details payload")
	assert.Equal(t, float64(64), details["limitBytes"])
}

func TestSeedPopulatesStore(t *testing.T) {
	store := resource.NewStore()
	Seed(store, []config.SeedCollection{
		{Path: "/pets", Items: []map[string]any{
			{"id": 1, "name": "Rex"},
			{"id": 2, "name": "Bo"},
		}},
	}, nil)

	items, ok := store.GetCollection("/pets")
	require.True(t, ok)
	assert.Len(t, items, 2)

	v, ok := store.Get("/pets/1")
	require.True(t, ok)
	assert.Equal(t, "Rex", v.(map[string]any)["name"])
	// JSON round-trip normalizes numbers to float64.
	assert.Equal(t, float64(1), v.(map[string]any)["id"])
}
