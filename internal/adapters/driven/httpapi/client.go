// Package httpapi is the JSON-over-HTTP client shared by the OpenAI,
// Anthropic and Ollama adapters.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/researchbot/researchbot/internal/adapters/driven/resilience"
)

// maxErrorBody bounds how much of a failed reply ends up in an error.
const maxErrorBody = 4096

// StatusError is a non-2xx reply from a provider.
type StatusError struct {
	Provider string
	Status   int
	Message  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.Status, e.Message)
}

// Client sends JSON requests to one provider's API.
type Client struct {
	provider string
	baseURL  string
	http     *http.Client
	header   http.Header
	guard    *resilience.Guard
}

// Option customises a Client.
type Option func(*Client)

// WithHeader sends key: value on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.header.Set(key, value) }
}

// WithBearer authenticates with an Authorization bearer token.
func WithBearer(token string) Option {
	return WithHeader("Authorization", "Bearer "+token)
}

// WithGuard routes Post calls through a rate limiter and circuit breaker.
func WithGuard(g *resilience.Guard) Option {
	return func(c *Client) { c.guard = g }
}

// New creates a client for the API rooted at baseURL. provider names the
// remote side in errors.
func New(provider, baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		provider: provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		header:   make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Post sends in as JSON to path and decodes the reply into out.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	if c.guard == nil {
		return c.do(ctx, http.MethodPost, path, in, out)
	}
	_, err := resilience.Do(ctx, c.guard, func() (struct{}, error) {
		return struct{}{}, c.do(ctx, http.MethodPost, path, in, out)
	})
	return err
}

// Get fetches path and decodes the reply into out. A nil out discards it.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Ping checks that path answers with a 2xx status. It bypasses the guard so
// a health check never waits on the rate limiter.
func (c *Client) Ping(ctx context.Context, path string) error {
	if err := c.Get(ctx, path, nil); err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return err
		}
		return fmt.Errorf("%s: ping failed: %w", c.provider, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", c.provider, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.provider, err)
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: send request: %w", c.provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Provider: c.provider,
			Status:   resp.StatusCode,
			Message:  errorMessage(resp.StatusCode, raw),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.provider, err)
	}
	return nil
}

// errorMessage pulls the human-readable part out of an error reply.
// OpenAI and Anthropic send {"error":{"message":...}}, Ollama sends
// {"error":"..."}; anything else is returned as text.
func errorMessage(status int, raw []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) == nil && len(envelope.Error) > 0 {
		var text string
		if json.Unmarshal(envelope.Error, &text) == nil && text != "" {
			return text
		}
		var obj struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(envelope.Error, &obj) == nil && obj.Message != "" {
			return obj.Message
		}
	}

	if msg := strings.TrimSpace(string(raw)); msg != "" {
		return msg
	}
	return http.StatusText(status)
}
