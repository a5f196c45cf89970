// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jeranaias/wikichat/internal/conversation"
	"github.com/jeranaias/wikichat/internal/tools"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the chat client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotRunning
	ErrTypeTimeout
	ErrTypeModelNotFound
	ErrTypeConnection
	ErrTypeInvalidResponse
)

// Sentinel errors for easy checking.
var (
	ErrNotRunning    = &ClientError{Type: ErrTypeNotRunning, Message: "chat server is not running"}
	ErrTimeout       = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrModelNotFound = &ClientError{Type: ErrTypeModelNotFound, Message: "model not found"}
)

// IsNotRunning checks if an error indicates the server is unreachable.
func IsNotRunning(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeNotRunning
	}
	return errors.Is(err, ErrNotRunning)
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeTimeout
	}
	return errors.Is(err, ErrTimeout)
}

// IsModelNotFound checks if an error is a model not found error.
func IsModelNotFound(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeModelNotFound
	}
	return errors.Is(err, ErrModelNotFound)
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the chat client.
type ClientConfig struct {
	// BaseURL is the OpenAI-compatible API base, including /v1
	// (default: http://0.0.0.0:5001/v1)
	BaseURL string

	// APIKey is sent as a bearer token. Local servers accept any
	// value (default: "lm-studio").
	APIKey string

	// Model to request (default: "mlx-community/llama-3.2-3b-instruct")
	Model string

	// Timeout for non-streaming requests (default: 120s; local
	// models can be slow to first token)
	Timeout time.Duration

	// Quirks adapts requests and decoding to known backend bugs.
	Quirks Quirks
}

// Quirks are workarounds for specific backend behaviors.
type Quirks struct {
	// StripStrict removes the `strict` marker from tool definitions
	// before sending, for backends that reject the field.
	StripStrict bool

	// SyntheticToolIndexes assigns stream positions locally, for
	// backends that report index 0 for every tool call.
	SyntheticToolIndexes bool
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL: "http://0.0.0.0:5001/v1",
		APIKey:  "lm-studio",
		Model:   "mlx-community/llama-3.2-3b-instruct",
		Timeout: 120 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to an OpenAI-compatible chat-completions server.
// Safe for concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a client, filling defaults for any zero
// values in config.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://0.0.0.0:5001/v1"
	}
	if config.APIKey == "" {
		config.APIKey = "lm-studio"
	}
	if config.Model == "" {
		config.Model = "mlx-community/llama-3.2-3b-instruct"
	}
	if config.Timeout == 0 {
		config.Timeout = 120 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Config returns the client configuration.
func (c *Client) Config() *ClientConfig {
	return c.config
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.config.Model
}

// =============================================================================
// NON-STREAMING COMPLETION
// =============================================================================

// Completion sends the history with tool definitions and returns the
// complete response. Used for tool-calling rounds, where the response
// must be inspected as a whole before anything is shown.
func (c *Client) Completion(ctx context.Context, messages []conversation.Message, defs []tools.Definition) (*CompletionResponse, error) {
	if c.config.Quirks.StripStrict && len(defs) > 0 {
		defs = tools.StripStrict(defs)
	}

	reqBody := CompletionRequest{
		Model:    c.config.Model,
		Messages: toWire(messages),
		Tools:    defs,
	}

	resp, err := c.post(ctx, c.httpClient, reqBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var result CompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	if len(result.Choices) == 0 {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "response contains no choices"}
	}

	return &result, nil
}

// =============================================================================
// STREAMING COMPLETION
// =============================================================================

// ContentCallback receives content fragments as they arrive, for live
// display. Tool-call fragments are accumulated internally instead.
type ContentCallback func(fragment string)

// CompletionStream sends the history without tools and streams the
// response, returning the fully reassembled assistant turn. A nil
// callback is allowed.
func (c *Client) CompletionStream(ctx context.Context, messages []conversation.Message, onContent ContentCallback) (*StreamedResponse, error) {
	reqBody := CompletionRequest{
		Model:    c.config.Model,
		Messages: toWire(messages),
		Stream:   true,
	}

	// No client timeout on streams; lifetime is governed by ctx.
	resp, err := c.post(ctx, &http.Client{}, reqBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	dec := newStreamDecoder(c.config.Quirks.SyntheticToolIndexes)
	if err := readSSE(ctx, resp.Body, func(chunk *StreamChunk) {
		fragment := dec.push(chunk)
		if fragment != "" && onContent != nil {
			onContent(fragment)
		}
	}); err != nil {
		return nil, err
	}

	return dec.finalize(), nil
}

// =============================================================================
// TRANSPORT HELPERS
// =============================================================================

func (c *Client) post(ctx context.Context, hc *http.Client, reqBody CompletionRequest) (*http.Response, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := hc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, ErrTimeout
		}
		return nil, ErrNotRunning
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	if resp.StatusCode == http.StatusNotFound {
		return ErrModelNotFound
	}

	var apiErr apiError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: apiErr.Error.Message}
	}
	return &ClientError{
		Type:    ErrTypeInvalidResponse,
		Message: "chat request failed: " + resp.Status,
	}
}
