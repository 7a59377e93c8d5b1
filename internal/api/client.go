// Package api is the HTTP client for the marketing backend's blog endpoints.
// The backend owns all persistent data; this client never retries and never
// caches - each call either succeeds or surfaces the server's error to the
// caller.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/verdesa/theme-agent/internal/config"
	"github.com/verdesa/theme-agent/pkg/logger"
	"github.com/verdesa/theme-agent/pkg/ratelimit"
)

// Client handles backend API requests
type Client struct {
	httpClient  *http.Client
	baseURL     string
	token       string
	rateLimiter *ratelimit.MultiLimiter
	log         *logger.Logger
}

// NewClient creates a new backend API client
func NewClient(cfg config.APIConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:     cfg.BaseURL,
		token:       cfg.Token,
		rateLimiter: limiter,
		log:         log.WithComponent("api"),
	}
}

// Error is a non-2xx backend response. Message carries the server's message
// field (or a per-operation default); Body carries a forwarded downstream
// webhook response when the backend included one, so automation failures are
// diagnosable without server log access.
type Error struct {
	Status  int
	Message string
	Body    string
}

func (e *Error) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Body)
	}
	return e.Message
}

// errorEnvelope is the backend's error response shape.
type errorEnvelope struct {
	Message string `json:"message"`
	Data    struct {
		Body string `json:"body"`
	} `json:"data"`
	Body string `json:"body"`
}

// dataEnvelope unwraps the optional {data: ...} wrapping the backend applies
// inconsistently across endpoints.
type dataEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// do performs an authenticated request against the backend.
func (c *Client) do(ctx context.Context, limiterName, method, path string, body interface{}) (*http.Response, error) {
	if err := c.rateLimiter.Wait(ctx, limiterName); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Msg("Backend API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	c.log.Debug().
		Int("status", resp.StatusCode).
		Str("path", path).
		Msg("Backend API response")

	return resp, nil
}

// decode consumes the response body. Non-2xx statuses become an *Error with
// the server's message (or defaultMsg). On success the payload is unwrapped
// from the {data: ...} envelope when present and decoded into out; pass nil
// when the payload is irrelevant.
func (c *Client) decode(resp *http.Response, out interface{}, defaultMsg string) error {
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{Status: resp.StatusCode, Message: defaultMsg}
		var env errorEnvelope
		if jsonErr := json.Unmarshal(raw, &env); jsonErr == nil {
			if env.Message != "" {
				apiErr.Message = env.Message
			}
			if env.Data.Body != "" {
				apiErr.Body = env.Data.Body
			} else if env.Body != "" {
				apiErr.Body = env.Body
			}
		}
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}

	var env dataEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 && string(env.Data) != "null" {
		raw = env.Data
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
