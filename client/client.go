// Package client is the HTTP transport to the OmniAlpha API.
//
// OpenScan and OpenChat return the raw streaming response body; framing and
// decoding belong to the stream package. The body is bound to the request
// context, so cancelling the context unblocks a pending Read.
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
	"strings"
	"time"

	"github.com/xzemt/OmniAlpha/iox"
	"github.com/xzemt/OmniAlpha/types"
)

// DefaultHealthTimeout bounds the health probe.
const DefaultHealthTimeout = 5 * time.Second

// maxErrorExcerpt bounds the body excerpt carried by StatusError.
const maxErrorExcerpt = 512

// maxDrain bounds how much of an unused body is read before closing.
const maxDrain = 64 << 10

// Config configures a Client.
type Config struct {
	// BaseURL is the API root including the /api prefix (required),
	// e.g. http://localhost:8000/api.
	BaseURL string
	// HTTPClient is used for all requests. It must not set a Timeout, which
	// would cut long streams short. Defaults to a new http.Client.
	HTTPClient *http.Client
	// HealthTimeout bounds Health (default 5s).
	HealthTimeout time.Duration
	// UserAgent is sent on every request when set.
	UserAgent string
}

// Client talks to one OmniAlpha API.
type Client struct {
	base          *url.URL
	http          *http.Client
	healthTimeout time.Duration
	userAgent     string
}

// New creates a Client. Returns an error if the base URL is missing or not
// absolute http(s).
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("client requires a base URL")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute http(s)", cfg.BaseURL)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = DefaultHealthTimeout
	}
	return &Client{
		base:          base,
		http:          cfg.HTTPClient,
		healthTimeout: cfg.HealthTimeout,
		userAgent:     cfg.UserAgent,
	}, nil
}

// BaseURL returns the API root the client was configured with.
func (c *Client) BaseURL() string { return c.base.String() }

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	Code int
	// URL is the request URL.
	URL string
	// Body is a bounded excerpt of the response body.
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
	}
	return fmt.Sprintf("unexpected status %d from %s: %s", e.Code, e.URL, e.Body)
}

// IsStatusError returns the status code if err wraps a *StatusError.
func IsStatusError(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}

// OpenScan starts a scan and returns the NDJSON response body.
// The caller must close it.
func (c *Client) OpenScan(ctx context.Context, req *types.ScanRequest) (io.ReadCloser, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("scan request: %w", err)
	}
	return c.openStream(ctx, "/scan/", req, "application/x-ndjson")
}

// OpenChat starts a chat and returns the event-stream response body.
// The caller must close it.
func (c *Client) OpenChat(ctx context.Context, req *types.ChatRequest) (io.ReadCloser, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("chat request: %w", err)
	}
	return c.openStream(ctx, "/ai/chat", req, "text/event-stream")
}

// Health probes GET {origin}/health within the health timeout.
// The health route lives outside the /api prefix.
func (c *Client) Health(ctx context.Context) (types.HealthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	u := url.URL{Scheme: c.base.Scheme, Host: c.base.Host, Path: "/health"}
	var status types.HealthStatus
	if err := c.getJSON(ctx, u.String(), &status); err != nil {
		return types.HealthStatus{}, fmt.Errorf("health: %w", err)
	}
	if !status.OK() {
		return status, fmt.Errorf("health: status %q", status.Status)
	}
	return status, nil
}

// Strategies lists the strategies the API accepts.
func (c *Client) Strategies(ctx context.Context) ([]types.Strategy, error) {
	var out []types.Strategy
	if err := c.getJSON(ctx, c.endpoint("/strategies/"), &out); err != nil {
		return nil, fmt.Errorf("strategies: %w", err)
	}
	return out, nil
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + path
}

func (c *Client) openStream(ctx context.Context, path string, body any, accept string) (io.ReadCloser, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	target := c.endpoint(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	req.Header.Set("Cache-Control", "no-cache")
	c.decorate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if err := checkStatus(resp, target); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) getJSON(ctx context.Context, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.decorate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if err := checkStatus(resp, target); err != nil {
		return err
	}
	defer iox.DrainClose(resp.Body, maxDrain)

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) decorate(req *http.Request) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
}

// checkStatus closes the body and returns a *StatusError for non-2xx.
func checkStatus(resp *http.Response, target string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	excerpt := strings.TrimSpace(iox.ReadExcerpt(resp.Body, maxErrorExcerpt))
	iox.DrainClose(resp.Body, maxDrain)
	return &StatusError{Code: resp.StatusCode, URL: target, Body: excerpt}
}
