// Package httpclient is a small JSON/form HTTP client for third-party APIs
// (OAuth provider, notification provider) with retries on transient
// failures and an optional outbound rate limit.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 1 << 20

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// Client performs API calls with retry.
type Client struct {
	httpClient   *http.Client
	limiter      *rate.Limiter
	maxRetries   int
	initialDelay time.Duration
	userAgent    string
}

// Option configures a Client.
type Option func(*Client)

// WithRetries sets the retry count and first backoff delay.
func WithRetries(maxRetries int, initialDelay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.initialDelay = initialDelay
	}
}

// WithRateLimit caps outbound requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHTTPClient replaces the underlying client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a client with the given per-request timeout.
func New(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		maxRetries:   2,
		initialDelay: 200 * time.Millisecond,
		userAgent:    "quizbot",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON performs a GET and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, header http.Header, out any) error {
	return c.do(ctx, http.MethodGet, rawURL, header, nil, "", out)
}

// PostForm posts form values and decodes the JSON response into out.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values, header http.Header, out any) error {
	return c.do(ctx, http.MethodPost, rawURL, header, []byte(form.Encode()), "application/x-www-form-urlencoded;charset=utf-8", out)
}

// PostJSON posts payload as JSON and decodes the JSON response into out.
// out may be nil.
func (c *Client) PostJSON(ctx context.Context, rawURL string, payload any, header http.Header, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, rawURL, header, body, "application/json", out)
}

func (c *Client) do(ctx context.Context, method, rawURL string, header http.Header, body []byte, contentType string, out any) error {
	var respBody []byte

	err := RetryWithBackoff(ctx, c.maxRetries, c.initialDelay, func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return Permanent(err)
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
		if err != nil {
			return Permanent(fmt.Errorf("create request: %w", err))
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return Permanent(ctx.Err())
			}
			return fmt.Errorf("request failed: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			se := &StatusError{
				Method:     method,
				URL:        redact(rawURL),
				StatusCode: resp.StatusCode,
				Body:       strings.TrimSpace(string(data[:min(len(data), 512)])),
			}
			switch resp.StatusCode {
			case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
				return se
			default:
				return Permanent(se)
			}
		}

		respBody = data
		return nil
	})
	if err != nil {
		return err
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// redact drops the query string, which may carry credentials.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	u.RawQuery = ""
	return u.String()
}
