// Package remote implements the push and connectivity capabilities
// over HTTP against the plant server.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/floorsync/floorsync/internal/syncer"
)

// DefaultRequestTimeout is the default timeout for individual requests.
const DefaultRequestTimeout = 10 * time.Second

// Client talks to the plant server. It implements both syncer.Pusher
// and syncer.Connectivity.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the given base URL, e.g.
// "https://plant.example.com". A zero timeout falls back to
// DefaultRequestTimeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// IsConnected probes the server's health endpoint. A reachable,
// healthy server is the definition of "online" for sync purposes:
// link-layer connectivity without server reachability is useless here.
func (c *Client) IsConnected(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode < 400
}

// Push uploads a batch to the server's sync endpoint. The server
// accepts or rejects the batch as a whole and deduplicates re-pushed
// records by ID, making retries of previously-accepted items safe.
func (c *Client) Push(ctx context.Context, batch syncer.Batch) (syncer.PushResult, error) {
	payload, err := json.Marshal(batch)
	if err != nil {
		return syncer.PushResult{}, fmt.Errorf("marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/sync", bytes.NewReader(payload))
	if err != nil {
		return syncer.PushResult{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return syncer.PushResult{}, fmt.Errorf("push batch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return syncer.PushResult{}, fmt.Errorf("read response: %w", err)
	}

	var result syncer.PushResult
	if err := json.Unmarshal(body, &result); err != nil {
		if resp.StatusCode >= 400 {
			return syncer.PushResult{
				Errors: []string{fmt.Sprintf("server error (%d): %s", resp.StatusCode, string(body))},
			}, nil
		}
		return syncer.PushResult{}, fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 400 {
		result.Accepted = false
		if len(result.Errors) == 0 {
			result.Errors = []string{fmt.Sprintf("server error (%d)", resp.StatusCode)}
		}
	}
	return result, nil
}
