package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Client wraps the joke ledger REST endpoints.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	token      string
	caller     string
	apiKey     string
}

// Option mutates the client configuration during construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithToken sends a bearer token on every request. The token subject is the
// caller identity when the server enforces authentication.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithCaller sets the X-Caller header used by servers running without
// authentication.
func WithCaller(address string) Option {
	return func(c *Client) { c.caller = strings.TrimSpace(address) }
}

// WithAPIKey sets the X-API-Key header, which the server rate limits by.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = strings.TrimSpace(key) }
}

// New constructs a client pointed at the supplied base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	trimmedURL := strings.TrimSpace(baseURL)
	if trimmedURL == "" {
		return nil, fmt.Errorf("baseURL required")
	}
	parsed, err := url.Parse(trimmedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid baseURL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid baseURL scheme %q", parsed.Scheme)
	}
	client := &Client{
		baseURL:    parsed,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// APIError is a non-2xx response. Code carries the ledger error code when
// the server supplied one.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("jokeledger %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("jokeledger %d: %s", e.Status, e.Message)
}

// IsCode reports whether err is an APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

func (c *Client) endpoint(path string, query url.Values) string {
	rel := &url.URL{Path: strings.TrimSuffix(c.baseURL.Path, "/") + path}
	if len(query) > 0 {
		rel.RawQuery = query.Encode()
	}
	return c.baseURL.ResolveReference(rel).String()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req.Header)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, bodyBytes)
	}
	if out == nil || len(bytes.TrimSpace(bodyBytes)) == 0 {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) authorize(h http.Header) {
	if c.token != "" {
		h.Set("Authorization", "Bearer "+c.token)
	}
	if c.caller != "" {
		h.Set("X-Caller", c.caller)
	}
	if c.apiKey != "" {
		h.Set("X-API-Key", c.apiKey)
	}
}

func decodeError(status int, body []byte) error {
	apiErr := &APIError{Status: status}
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Code != "" {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Message
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(body))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

func idPath(format string, id uint64) string {
	return fmt.Sprintf(format, strconv.FormatUint(id, 10))
}
