// Package transport provides the HTTP client shared by the backend adapters.
// It attaches session credentials to every request, inspects response bodies
// for application-level error envelopes, and classifies failures into the
// taxonomy the data-access layer depends on. Each call is exactly one
// attempt; there is no retry or backoff layer.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxResponseSize caps response bodies read from the backend (10MB).
const maxResponseSize = 10 * 1024 * 1024

// SessionSource supplies the current session identifier, if any. An expired
// session must report ok=false so the client sends no credentials at all.
type SessionSource interface {
	SessionID() (id string, ok bool)
}

// Client is the transport used by both backend adapters.
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
	session    SessionSource
	metrics    *Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithSessionSource attaches a session credential source.
func WithSessionSource(src SessionSource) Option {
	return func(c *Client) { c.session = src }
}

// WithMetrics attaches request metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a transport client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("transport: base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("transport: invalid base URL: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
			"User-Agent":   "uniondash/1.0",
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Request describes a single HTTP call.
type Request struct {
	Method      string
	Path        string
	QueryParams map[string]string
	Body        any
}

// Response is the raw outcome of a successful call (HTTP status < 400 and no
// application-level error envelope in the body).
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// appEnvelope is the application-level error shape some backends return with
// a 200 status.
type appEnvelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Do executes a single request attempt and classifies the outcome.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	u, err := c.buildURL(req.Path, req.QueryParams)
	if err != nil {
		return nil, fmt.Errorf("transport: building URL: %w", err)
	}

	var bodyReader io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("transport: marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("transport: creating request: %w", err)
	}

	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	c.attachSession(httpReq)

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		c.metrics.observe(req.Method, outcomeTransportError, duration)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		c.metrics.observe(req.Method, outcomeTransportError, duration)
		return nil, fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}

	if httpResp.StatusCode >= 400 {
		c.metrics.observe(req.Method, outcomeHTTPError, duration)
		return nil, newAPIError(ErrRequestFailed, httpResp.StatusCode, 0, http.StatusText(httpResp.StatusCode), body)
	}

	// A success status can still carry an application-level error envelope.
	if kind, code, msg := sniffAppError(body); kind != nil {
		c.metrics.observe(req.Method, outcomeAppError, duration)
		return nil, newAPIError(kind, httpResp.StatusCode, code, msg, body)
	}

	c.metrics.observe(req.Method, outcomeSuccess, duration)
	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
		Duration:   duration,
	}, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, queryParams map[string]string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, QueryParams: queryParams})
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path})
}

// attachSession injects the current session identifier as both a custom
// header and a cookie-style header; different backends read different ones.
func (c *Client) attachSession(req *http.Request) {
	if c.session == nil {
		return
	}
	id, ok := c.session.SessionID()
	if !ok || id == "" {
		return
	}
	req.Header.Set("X-Session-ID", id)
	req.Header.Set("Cookie", "session_id="+id)
}

// buildURL resolves path against the base URL and appends query parameters.
func (c *Client) buildURL(path string, queryParams map[string]string) (*url.URL, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, err
	}
	if len(queryParams) > 0 {
		q := u.Query()
		for k, v := range queryParams {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}

// sniffAppError decodes the application error envelope, if present. Bodies
// that are not objects, or objects without a numeric error code, are not
// errors.
func sniffAppError(body []byte) (kind error, code int, msg string) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, 0, ""
	}
	var env appEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, 0, ""
	}
	switch {
	case env.Code == http.StatusForbidden:
		return ErrPermissionDenied, env.Code, env.Msg
	case env.Code >= 400:
		return ErrBackendError, env.Code, env.Msg
	default:
		return nil, 0, ""
	}
}
