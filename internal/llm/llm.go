// Package llm is the gateway to the external completion endpoint. It wraps
// an OpenAI-compatible chat API and exposes the typed analysis operations
// the exercise modules use.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/evalia/evalia/internal/model"
)

// ErrUnavailable marks transport-level failures reaching the endpoint.
var ErrUnavailable = errors.New("llm endpoint unavailable")

// RequestError is a non-success HTTP response from the endpoint.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("llm request failed: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("llm request failed: status %d", e.StatusCode)
}

// MalformedResponseError means the model's output did not match the expected
// JSON shape. Raw carries the text for logging; nothing partial is returned.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed llm response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api *openai.Client
	cfg model.AIConfig
}

// New creates the gateway client. The customer/tenant identifier is attached
// to every request as a header; the HTTP client enforces the configured
// request timeout.
func New(cfg model.AIConfig) *Client {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		config.BaseURL = cfg.Endpoint
	}
	config.HTTPClient = &http.Client{
		Timeout: cfg.Timeout,
		Transport: &headerTransport{
			customerID: cfg.CustomerID,
			base:       http.DefaultTransport,
		},
	}
	return &Client{api: openai.NewClientWithConfig(config), cfg: cfg}
}

// headerTransport adds the tenant identifier header to every request.
type headerTransport struct {
	customerID string
	base       http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.customerID != "" {
		req = req.Clone(req.Context())
		req.Header.Set("customerId", t.customerID)
	}
	return t.base.RoundTrip(req)
}

// Option adjusts a single completion call.
type Option func(*callOptions)

type callOptions struct {
	model       string
	temperature *float32
}

// WithModel overrides the configured model for one call.
func WithModel(m string) Option {
	return func(o *callOptions) { o.model = m }
}

// WithTemperature overrides the configured temperature for one call.
func WithTemperature(t float32) Option {
	return func(o *callOptions) { o.temperature = &t }
}

// Complete sends a system+user prompt pair and returns the raw response
// text. Non-success HTTP statuses surface as *RequestError, transport
// failures wrap ErrUnavailable, and an empty choice list is a
// *MalformedResponseError. Parsing the text is the caller's concern.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, opts ...Option) (string, error) {
	call := callOptions{model: c.cfg.Model}
	for _, opt := range opts {
		opt(&call)
	}
	temperature := c.cfg.Temperature
	if call.temperature != nil {
		temperature = *call.temperature
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: call.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", &RequestError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return "", &RequestError{StatusCode: reqErr.HTTPStatusCode}
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return "", &MalformedResponseError{Err: errors.New("response has no choices")}
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("llm response received", "model", call.model, "bytes", len(raw))
	return raw, nil
}

// Ping verifies the endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
