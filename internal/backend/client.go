// Package backend is the typed HTTP client for the dark-event detection
// backend. Every remote operation the console performs goes through it; the
// backend is the sole source of truth and the console never mutates state
// locally before the server confirms.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	basePath       = "/api/v1"
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 5 << 20 // 5 MB
)

// RequestObserver receives per-request outcome metrics (wired by main for Prometheus).
type RequestObserver interface {
	ObserveRequest(ctx context.Context, method, route, outcome string, dur time.Duration)
}

// RequestObserverFunc adapts a plain function to RequestObserver.
type RequestObserverFunc func(ctx context.Context, method, route, outcome string, dur time.Duration)

// ObserveRequest implements RequestObserver.
func (f RequestObserverFunc) ObserveRequest(ctx context.Context, method, route, outcome string, dur time.Duration) {
	f(ctx, method, route, outcome, dur)
}

// APIError is a non-2xx response from the backend. Detail carries the
// server-provided message when present, falling back to the status text.
type APIError struct {
	StatusCode int
	Detail     string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Detail)
}

// Client talks to the detection backend REST API.
type Client struct {
	endpoint   string
	httpClient *http.Client
	observer   RequestObserver
}

// Option configures a Client.
type Option func(*Client)

// WithObserver wires a per-request metrics observer.
func WithObserver(o RequestObserver) Option {
	return func(c *Client) { c.observer = o }
}

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a backend client for the given endpoint, e.g. "http://backend:8000".
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// buildURL joins the endpoint, API base path and route, attaching query values.
func (c *Client) buildURL(route string, q url.Values) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint: %w", err)
	}
	u.Path = path.Join(u.Path, basePath, route)
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// doJSON performs a request with an optional JSON body and decodes the JSON
// response into out (which may be nil to discard the body).
func (c *Client) doJSON(ctx context.Context, method, route string, q url.Values, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	u, err := c.buildURL(route, q)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(ctx, req, method, route, out)
}

// doMultipart uploads a file under the given form field, with extra plain
// fields, and decodes the JSON response into out.
func (c *Client) doMultipart(ctx context.Context, route, field, filename string, file io.Reader, fields map[string]string, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(fw, file); err != nil {
		return fmt.Errorf("copy file: %w", err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}

	u, err := c.buildURL(route, nil)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.send(ctx, req, http.MethodPost, route, out)
}

func (c *Client) send(ctx context.Context, req *http.Request, method, route string, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: endpoint is from trusted config, not user input
	if err != nil {
		c.observe(ctx, method, route, "error", start)
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.observe(ctx, method, route, "error", start)
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.observe(ctx, method, route, "http_error", start)
		return &APIError{StatusCode: resp.StatusCode, Detail: errorDetail(raw, resp.Status)}
	}

	c.observe(ctx, method, route, "success", start)

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func (c *Client) observe(ctx context.Context, method, route, outcome string, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(ctx, method, route, outcome, time.Since(start))
	}
}

// errorDetail extracts the server's {"detail": "..."} message, falling back to
// the HTTP status text when the body is not in that shape.
func errorDetail(raw []byte, statusText string) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}
	return statusText
}
