package tsdb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxResponseBody bounds how much of an error body is kept.
const maxResponseBody = 64 * 1024

// WriteResult is the daemon's answer to a write.
type WriteResult struct {
	StatusCode int
	Body       string
}

// Accepted reports whether the daemon stored the data (HTTP 204).
func (r WriteResult) Accepted() bool {
	return r.StatusCode == http.StatusNoContent
}

// Write posts lines as one newline-delimited line protocol body.
//
// A non-204 answer is not an error: the caller gets the status and body
// and decides. The error is reserved for failures to reach the daemon.
func (c *Client) Write(ctx context.Context, lines ...string) (WriteResult, error) {
	if len(lines) == 0 {
		return WriteResult{}, ErrEmptyWrite
	}

	body := strings.Join(lines, "\n")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.writeURL, strings.NewReader(body))
	if err != nil {
		return WriteResult{}, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return WriteResult{}, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return WriteResult{}, fmt.Errorf("%w: reading response: %w", ErrWriteFailed, err)
	}
	// Drain the rest to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	return WriteResult{StatusCode: resp.StatusCode, Body: string(data)}, nil
}
