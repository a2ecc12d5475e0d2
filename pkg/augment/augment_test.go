package augment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fauxapi/fauxd/pkg/spec"
	"github.com/fauxapi/fauxd/pkg/synth"
)

type stubProvider struct {
	value any
	err   error
	delay time.Duration
}

func (s *stubProvider) Generate(ctx context.Context, _ *Request) (*Response, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &Response{Value: s.value}, nil
}

func (s *stubProvider) Name() string { return "stub" }

func TestAugmenterUsesProviderValue(t *testing.T) {
	a := NewAugmenter(&stubProvider{value: "from provider"}, synth.New(nil), 0, nil)
	got := a.Generate(context.Background(), &spec.SchemaNode{Type: "string"}, "name", "")
	assert.Equal(t, "from provider", got)
}

func TestAugmenterFallsBackOnError(t *testing.T) {
	a := NewAugmenter(&stubProvider{err: errors.New("boom")}, synth.New(nil), 0, nil)
	got := a.Generate(context.Background(), &spec.SchemaNode{Type: "string", Format: "email"}, "email", "")
	s, ok := got.(string)
	require.True(t, ok, "fallback should produce a string")
	assert.Contains(t, s, "@")
}

func TestAugmenterFallsBackOnTimeout(t *testing.T) {
	provider := &stubProvider{value: "late", delay: 200 * time.Millisecond}
	a := NewAugmenter(provider, synth.New(nil), 10*time.Millisecond, nil)

	start := time.Now()
	got := a.Generate(context.Background(), &spec.SchemaNode{Type: "boolean"}, "", "")
	assert.Less(t, time.Since(start), 150*time.Millisecond)
	assert.IsType(t, true, got)
}

func TestAugmenterNilProvider(t *testing.T) {
	a := NewAugmenter(nil, synth.New(nil), 0, nil)
	got := a.Generate(context.Background(), &spec.SchemaNode{Type: "integer"}, "", "")
	assert.IsType(t, 0, got)
}

func TestHTTPProviderGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"name\": \"Aurora Lamp\"}"}}]}`))
	}))
	defer srv.Close()

	p, err := NewHTTPProvider(HTTPConfig{Endpoint: srv.URL, APIKey: "test-key", Model: "test-model"})
	require.NoError(t, err)

	resp, err := p.Generate(context.Background(), &Request{FieldName: "product"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Aurora Lamp"}, resp.Value)
}

func TestHTTPProviderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p, err := NewHTTPProvider(HTTPConfig{Endpoint: srv.URL, APIKey: "k", Model: "m"})
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), &Request{FieldName: "x"})
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
}

func TestHTTPProviderConfigValidation(t *testing.T) {
	_, err := NewHTTPProvider(HTTPConfig{Model: "m"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewHTTPProvider(HTTPConfig{APIKey: "k"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n42\n```", "42"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripCodeFences(tt.in))
	}
}
