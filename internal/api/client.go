package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultCacheTTL = 30 * time.Second

// TokenSource yields the stored access token. An empty token means the
// operator has not logged in.
type TokenSource interface {
	Token() (string, error)
}

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
	Logger     *slog.Logger
	CacheTTL   time.Duration
}

// Client is the one shared HTTP client every domain service goes through.
// It attaches the bearer token, unwraps JSON responses, converts non-2xx
// bodies into typed errors, and memoizes GET responses.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	tokens  TokenSource
	logger  *slog.Logger
	cache   *responseCache
}

func New(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		return nil, errors.New("base URL cannot be empty")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported base URL scheme: %s", base.Scheme)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := opts.CacheTTL
	if ttl == 0 {
		ttl = defaultCacheTTL
	}

	return &Client{
		baseURL: base,
		http:    httpClient,
		tokens:  opts.Tokens,
		logger:  logger,
		cache:   newResponseCache(ttl),
	}, nil
}

// Invalidate drops every cached GET whose key contains pattern.
func (c *Client) Invalidate(pattern string) {
	c.cache.invalidate(pattern)
}

// Get fetches path into out, serving from the response cache when possible.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	key := cacheKey(path, query)
	if raw, ok := c.cache.get(key); ok {
		return decodeInto(raw, out)
	}
	raw, err := c.roundTrip(ctx, http.MethodGet, path, query, nil, true)
	if err != nil {
		return err
	}
	c.cache.put(key, raw)
	return decodeInto(raw, out)
}

// Do issues a mutating request and invalidates cached entries sharing the
// request's first path segment.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &Error{Code: CodeInternal, Message: "encode request body", Err: err}
		}
		payload = bytes.NewReader(raw)
	}
	raw, err := c.roundTripReader(ctx, method, path, query, payload, "application/json", true)
	if err != nil {
		return err
	}
	c.cache.invalidate(rootSegment(path))
	return decodeInto(raw, out)
}

// DoNoAuth is Do without the bearer token, for the login endpoint.
func (c *Client) DoNoAuth(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &Error{Code: CodeInternal, Message: "encode request body", Err: err}
		}
		payload = bytes.NewReader(raw)
	}
	raw, err := c.roundTripReader(ctx, method, path, nil, payload, "application/json", false)
	if err != nil {
		return err
	}
	return decodeInto(raw, out)
}

// Upload posts a multipart body with one file part plus optional form fields.
func (c *Client) Upload(ctx context.Context, path, field, filename string, file io.Reader, fields map[string]string, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		return &Error{Code: CodeInternal, Message: "build multipart body", Err: err}
	}
	if _, err := io.Copy(part, file); err != nil {
		return &Error{Code: CodeInternal, Message: "read upload file", Err: err}
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return &Error{Code: CodeInternal, Message: "build multipart body", Err: err}
		}
	}
	if err := writer.Close(); err != nil {
		return &Error{Code: CodeInternal, Message: "build multipart body", Err: err}
	}

	raw, err := c.roundTripReader(ctx, http.MethodPost, path, nil, &buf, writer.FormDataContentType(), true)
	if err != nil {
		return err
	}
	c.cache.invalidate(rootSegment(path))
	return decodeInto(raw, out)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body io.Reader, auth bool) ([]byte, error) {
	return c.roundTripReader(ctx, method, path, query, body, "application/json", auth)
}

func (c *Client) roundTripReader(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, auth bool) ([]byte, error) {
	target := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, &Error{Code: CodeInternal, Message: "build request", Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	if auth {
		if c.tokens == nil {
			return nil, ErrLoginRequired
		}
		token, err := c.tokens.Token()
		if err != nil {
			return nil, &Error{Code: CodeInternal, Message: "read access token", Err: err}
		}
		if strings.TrimSpace(token) == "" {
			return nil, ErrLoginRequired
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Code: CodeTransport, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Code: CodeTransport, Message: "read response body", Err: err}
	}

	c.logger.Debug("api request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"bytes", len(raw),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newHTTPError(resp.StatusCode, raw)
	}
	return raw, nil
}

func decodeInto(raw []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Code: CodeInternal, Message: "decode response body", Err: err}
	}
	return nil
}

func cacheKey(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}

func rootSegment(path string) string {
	trimmed := strings.Trim(path, "/")
	if idx := strings.IndexByte(trimmed, '/'); idx > 0 {
		return trimmed[:idx]
	}
	return trimmed
}
