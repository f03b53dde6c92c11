// Package fetch performs the outbound network operations of the pipeline:
// published-HTML retrieval, resource byte-length probing and intrinsic image
// measurement. All operations carry a bounded timeout; callers treat failures
// as soft (zero contribution), so errors here are classified, never fatal.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/fluxbase-eu/pageweight/internal/apperr"
)

// Config tunes the outbound HTTP client.
type Config struct {
	// Timeout bounds each request. Defaults to 5s.
	Timeout time.Duration `mapstructure:"timeout"`
	// UserAgent is sent on every request.
	UserAgent string `mapstructure:"user_agent"`
	// RequestsPerSecond rate-limits outbound probes against external
	// hosts. Zero disables limiting.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	// MaxBodyBytes caps how much of any response body is read.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}

// DefaultConfig returns the client defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:           5 * time.Second,
		UserAgent:         "pageweight/1.0 (+https://github.com/fluxbase-eu/pageweight)",
		RequestsPerSecond: 10,
		MaxBodyBytes:      10 << 20,
	}
}

// Client is a rate-limited HTTP client for probing published sites.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	maxBody   int64
}

// NewClient creates a probe client from config, filling zero values with
// defaults.
func NewClient(cfg Config) *Client {
	defaults := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaults.MaxBodyBytes
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), int(cfg.RequestsPerSecond)+1)
	}

	return &Client{
		http:      &http.Client{Timeout: cfg.Timeout},
		limiter:   limiter,
		userAgent: cfg.UserAgent,
		maxBody:   cfg.MaxBodyBytes,
	}
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// FetchHTML retrieves a page body.
func (c *Client) FetchHTML(ctx context.Context, url string) ([]byte, error) {
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetwork, "fetch.FetchHTML", err)
	}
	return body, nil
}

// FetchBytes retrieves a raw resource body.
func (c *Client) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetwork, "fetch.FetchBytes", err)
	}
	return body, nil
}

// ProbeSize resolves a resource's transfer size via a HEAD request. Returns
// zero when the server does not report a length.
func (c *Client) ProbeSize(ctx context.Context, url string) (int64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, apperr.Wrap(apperr.KindNetwork, "fetch.ProbeSize", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindNetwork, "fetch.ProbeSize", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindNetwork, "fetch.ProbeSize", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, apperr.Newf(apperr.KindNetwork, "fetch.ProbeSize", "unexpected status %d for %s", resp.StatusCode, url)
	}
	if resp.ContentLength < 0 {
		return 0, nil
	}
	return resp.ContentLength, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, err
	}
	return body, nil
}
