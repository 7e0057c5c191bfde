// Package client talks to a running rapport server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lazypower/rapport/internal/engine"
)

const (
	defaultServerURL = "http://127.0.0.1:37780"
	httpTimeout      = 60 * time.Second
	sessionHeader    = "X-Session-ID"
)

// Client talks to the rapport server.
type Client struct {
	http      *http.Client
	serverURL string
	sessionID string
}

// New creates a client for serverURL. An empty URL falls back to RAPPORT_URL,
// then http://127.0.0.1:37780.
func New(serverURL, sessionID string) *Client {
	if serverURL == "" {
		serverURL = os.Getenv("RAPPORT_URL")
	}
	if serverURL == "" {
		serverURL = defaultServerURL
	}
	return &Client{
		http:      &http.Client{Timeout: httpTimeout},
		serverURL: strings.TrimRight(serverURL, "/"),
		sessionID: sessionID,
	}
}

// Connection asks the server for the connection type between a and b.
func (c *Client) Connection(ctx context.Context, a, b int64) (*engine.Result, error) {
	q := url.Values{}
	q.Set("user_a_id", strconv.FormatInt(a, 10))
	q.Set("user_b_id", strconv.FormatInt(b, 10))

	data, err := c.get(ctx, "/api/connection?"+q.Encode())
	if err != nil {
		return nil, err
	}
	var res engine.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode connection: %w", err)
	}
	return &res, nil
}

// Healthy checks if the server is reachable.
func (c *Client) Healthy(ctx context.Context) bool {
	_, err := c.get(ctx, "/api/health")
	return err == nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	if c.sessionID != "" {
		req.Header.Set(sessionHeader, c.sessionID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		return data, fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, bytes.TrimSpace(data))
	}
	return data, nil
}
