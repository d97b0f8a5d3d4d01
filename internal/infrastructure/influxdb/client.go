package influxdb

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
)

// defaultPingTimeout bounds a single health check.
const defaultPingTimeout = 5 * time.Second

// Client wraps the InfluxDB v2 client for the daemon's upstream data source.
//
// The supervisor never writes through it: the daemon subscribes to InfluxDB
// itself. The client only checks that the source named by
// KAPACITOR_INFLUXDB_0_URLS_0 answers before the daemon is launched.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	client influxdb2.Client
	url    string
}

// NewClient creates a client for url. No connection is made until
// HealthCheck is called.
//
// Parameters:
//   - url: InfluxDB base URL (scheme already rewritten for the security mode)
//   - token: API token, empty for unauthenticated v1-compatible endpoints
//   - insecureSkipVerify: skip TLS verification (KAPACITOR_UNSAFE_SSL)
func NewClient(url, token string, insecureSkipVerify bool) *Client {
	opts := influxdb2.DefaultOptions()
	if insecureSkipVerify {
		// #nosec G402 -- mirrors the daemon's own KAPACITOR_UNSAFE_SSL setting
		opts.SetTLSConfig(&tls.Config{InsecureSkipVerify: true})
	}
	return &Client{
		client: influxdb2.NewClientWithOptions(url, token, opts),
		url:    url,
	}
}

// URL returns the server URL.
func (c *Client) URL() string {
	return c.url
}

// HealthCheck pings the server.
//
// Returns:
//   - error: nil if healthy, ErrConnectionFailed or ErrUnhealthy otherwise
func (c *Client) HealthCheck(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	healthy, err := c.client.Ping(checkCtx)
	if err != nil {
		return fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		return ErrUnhealthy
	}
	return nil
}

// Close releases the underlying HTTP resources.
func (c *Client) Close() {
	if c.client == nil {
		return
	}
	c.client.Close()
}
