package tsdb

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Default timeouts for daemon write-endpoint operations.
const (
	defaultWriteTimeout  = 5 * time.Second
	defaultHealthTimeout = 5 * time.Second
)

// Endpoint paths on the analytics daemon's HTTP API.
const (
	writePath = "/kapacitor/v1/write"
	pingPath  = "/kapacitor/v1/ping"
)

// Options configures a Client.
type Options struct {
	// BaseURL is the daemon's URL (KAPACITOR_URL after the scheme rewrite).
	BaseURL string

	// Database and RetentionPolicy are sent as the db and rp query parameters.
	Database        string
	RetentionPolicy string

	// InsecureSkipVerify disables TLS verification (KAPACITOR_UNSAFE_SSL).
	InsecureSkipVerify bool

	// Timeout bounds each request. Zero uses the default.
	Timeout time.Duration
}

// Client posts InfluxDB line protocol to the analytics daemon's write
// endpoint.
//
// Unlike a batching metrics writer, every Write is a single synchronous
// POST: the ingestion endpoint relays the daemon's status code and body to
// its own caller.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	baseURL    string
	writeURL   string
	httpClient *http.Client
}

// New creates a Client. No connection is made until the first request.
//
// Returns:
//   - *Client: Client ready for use
//   - error: If BaseURL is empty or not a valid URL
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		return nil, ErrNoURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoURL, err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureSkipVerify {
		// #nosec G402 -- mirrors the daemon's own KAPACITOR_UNSAFE_SSL setting
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	query := url.Values{}
	if opts.Database != "" {
		query.Set("db", opts.Database)
	}
	if opts.RetentionPolicy != "" {
		query.Set("rp", opts.RetentionPolicy)
	}
	writeURL := base + writePath
	if len(query) > 0 {
		writeURL += "?" + query.Encode()
	}

	return &Client{
		baseURL:  base,
		writeURL: writeURL,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}, nil
}

// WriteURL returns the full write endpoint including query parameters.
func (c *Client) WriteURL() string {
	return c.writeURL
}

// HealthCheck verifies the daemon's HTTP API answers.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (c *Client) HealthCheck(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, defaultHealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, c.baseURL+pingPath, nil)
	if err != nil {
		return fmt.Errorf("tsdb health check: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	defer resp.Body.Close()
	// Drain body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tsdb health check: status %d", resp.StatusCode)
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
}
