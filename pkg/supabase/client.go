// Package supabase is a small HTTP client for the two Supabase services
// GradMate uses: GoTrue for user auth and Storage for resume files.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

const (
	defaultTimeout = 30 * time.Second

	retryAttempts  = 3
	retryBaseDelay = 500 * time.Millisecond
)

// Config holds the Supabase project settings.
type Config struct {
	// ProjectURL is the Supabase project URL (e.g. https://xxx.supabase.co).
	ProjectURL string

	// AnonKey is the public anon key sent with user-scoped requests.
	AnonKey string

	// ServiceKey is the service role key. Used for storage operations that
	// bypass row level security. Optional.
	ServiceKey string

	// Timeout for HTTP requests. Defaults to 30s.
	Timeout time.Duration
}

// Client is the Supabase API client.
type Client struct {
	config Config
	http   *http.Client

	baseURL    string
	authURL    string
	storageURL string

	auth    *AuthClient
	storage *StorageClient
}

// New creates a Supabase client from the project configuration.
func New(cfg Config) (*Client, error) {
	if cfg.ProjectURL == "" {
		return nil, errors.New("project URL is required")
	}
	if cfg.AnonKey == "" {
		return nil, errors.New("anon key is required")
	}

	baseURL := strings.TrimRight(cfg.ProjectURL, "/")
	if _, err := url.Parse(baseURL); err != nil {
		return nil, errors.Wrap(err, "invalid project URL")
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	c := &Client{
		config:     cfg,
		http:       &http.Client{Timeout: cfg.Timeout},
		baseURL:    baseURL,
		authURL:    baseURL + "/auth/v1",
		storageURL: baseURL + "/storage/v1",
	}
	c.auth = &AuthClient{client: c}
	c.storage = &StorageClient{client: c}

	return c, nil
}

// Auth returns the GoTrue auth client.
func (c *Client) Auth() *AuthClient {
	return c.auth
}

// Storage returns the object storage client.
func (c *Client) Storage() *StorageClient {
	return c.storage
}

// request performs a request authorized with the anon key.
func (c *Client) request(ctx context.Context, method, urlPath string, body []byte, headers map[string]string) ([]byte, int, error) {
	return c.do(ctx, method, urlPath, body, headers, c.config.AnonKey)
}

// requestWithServiceKey performs a request authorized with the service role key.
func (c *Client) requestWithServiceKey(ctx context.Context, method, urlPath string, body []byte, headers map[string]string) ([]byte, int, error) {
	if c.config.ServiceKey == "" {
		return nil, 0, errors.New("service key not configured")
	}
	return c.do(ctx, method, urlPath, body, headers, c.config.ServiceKey)
}

// requestWithToken performs a request authorized with a user access token.
// The anon key is still sent as the apikey header, per Supabase convention.
func (c *Client) requestWithToken(ctx context.Context, method, urlPath string, body []byte, headers map[string]string, accessToken string) ([]byte, int, error) {
	if headers == nil {
		headers = map[string]string{}
	}
	headers["Authorization"] = "Bearer " + accessToken
	return c.do(ctx, method, urlPath, body, headers, "")
}

// do sends a request, retrying network errors, 429s, and 5xx responses
// with exponential backoff. The body is a byte slice so it can be replayed.
func (c *Client) do(ctx context.Context, method, urlPath string, body []byte, headers map[string]string, bearerKey string) ([]byte, int, error) {
	var (
		respBody []byte
		status   int
		lastErr  error
	)
	delay := retryBaseDelay
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		respBody, status, lastErr = c.doOnce(ctx, method, urlPath, body, headers, bearerKey)
		if lastErr != nil {
			continue
		}
		if status == http.StatusTooManyRequests || status >= 500 {
			lastErr = parseError(respBody, status)
			continue
		}
		return respBody, status, nil
	}
	return nil, status, lastErr
}

func (c *Client) doOnce(ctx context.Context, method, urlPath string, body []byte, headers map[string]string, bearerKey string) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlPath, reader)
	if err != nil {
		return nil, 0, errors.Wrap(err, "build request")
	}

	req.Header.Set("apikey", c.config.AnonKey)
	req.Header.Set("Accept", "application/json")
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if bearerKey != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+bearerKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, errors.Wrap(err, "request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, errors.Wrap(err, "read response")
	}

	return respBody, resp.StatusCode, nil
}

// Error is an error response from a Supabase service.
type Error struct {
	Code       string
	Message    string
	Details    string
	Hint       string
	StatusCode int
}

func (e *Error) Error() string {
	if e.Message != "" {
		return "supabase: " + e.Message
	}
	return "supabase: status " + http.StatusText(e.StatusCode)
}

// parseError decodes a Supabase error body. The services are inconsistent
// about field names, so several are tried in order.
func parseError(body []byte, statusCode int) *Error {
	var raw struct {
		Code             any    `json:"code"`
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		Details          string `json:"details"`
		Hint             string `json:"hint"`
		Err              string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	e := &Error{StatusCode: statusCode}
	if err := json.Unmarshal(body, &raw); err != nil {
		e.Message = strings.TrimSpace(string(body))
		return e
	}

	switch code := raw.Code.(type) {
	case string:
		e.Code = code
	case float64:
		e.Code = http.StatusText(int(code))
	}
	e.Details = raw.Details
	e.Hint = raw.Hint

	for _, msg := range []string{raw.Message, raw.Msg, raw.ErrorDescription, raw.Err} {
		if msg != "" {
			e.Message = msg
			break
		}
	}
	return e
}
