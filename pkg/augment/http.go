package augment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultEndpoint is the OpenAI-compatible chat completions base URL.
const DefaultEndpoint = "https://api.openai.com/v1"

// HTTPConfig configures the HTTP provider.
type HTTPConfig struct {
	// Endpoint is the API base URL; any OpenAI-compatible server works
	// (OpenAI, OpenRouter, a local Ollama with the compat layer).
	Endpoint string

	APIKey string
	Model  string

	// Client defaults to a client with a 30s overall timeout. Callers
	// normally bound individual requests with a tighter context.
	Client *http.Client
}

// HTTPProvider talks to an OpenAI-compatible chat completions API.
type HTTPProvider struct {
	cfg    HTTPConfig
	client *http.Client
}

// NewHTTPProvider validates cfg and builds the provider.
func NewHTTPProvider(cfg HTTPConfig) (*HTTPProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: api key required", ErrNotConfigured)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model required", ErrNotConfigured)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPProvider{cfg: cfg, client: client}, nil
}

func (p *HTTPProvider) Name() string {
	return "openai-compatible"
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (p *HTTPProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	payload := chatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(req)},
		},
		Temperature: 0.8,
		MaxTokens:   256,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := strings.TrimSuffix(p.cfg.Endpoint, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &ProviderError{
			Provider: p.Name(),
			Message:  fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))),
		}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &ProviderError{Provider: p.Name(), Message: "decode response", Cause: err}
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrInvalidResponse)
	}

	content := stripCodeFences(parsed.Choices[0].Message.Content)
	return &Response{Value: parseValue(content), Raw: content}, nil
}

const systemPrompt = "You generate a single realistic example value for an API mock. " +
	"Respond with only the value as JSON, no explanation."

func buildPrompt(req *Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a value for field %q", req.FieldName)
	if req.FieldType != "" {
		fmt.Fprintf(&b, " of type %s", req.FieldType)
	}
	if req.Format != "" {
		fmt.Fprintf(&b, " with format %s", req.Format)
	}
	if req.Context != "" {
		fmt.Fprintf(&b, ". Context: %s", req.Context)
	}
	if req.Schema != nil {
		if data, err := json.Marshal(req.Schema); err == nil {
			fmt.Fprintf(&b, ". Schema: %s", data)
		}
	}
	return b.String()
}

// stripCodeFences removes a surrounding markdown code fence if the
// model wrapped its output in one.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 && !strings.ContainsAny(s[:idx], "{}[]\"") {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// parseValue decodes the content as JSON when possible, falling back
// to the raw string.
func parseValue(content string) any {
	var v any
	if err := json.Unmarshal([]byte(content), &v); err == nil {
		return v
	}
	return content
}
