// Package transmission is a minimal Transmission RPC client covering the
// calls the download pipeline needs.
package transmission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const sessionHeader = "X-Transmission-Session-Id"

// Client talks to a Transmission daemon over its HTTP JSON RPC. The
// session token is process-wide state guarded by a mutex; a 409 response
// means the token went stale and carries the replacement.
type Client struct {
	rpcURL     string
	httpClient *http.Client
	logger     *logrus.Logger

	mu        sync.Mutex
	sessionID string
}

// NewClient creates a client for the daemon at host:port
func NewClient(host string, port int, timeout time.Duration, logger *logrus.Logger) *Client {
	return &Client{
		rpcURL: fmt.Sprintf("http://%s:%d/transmission/rpc", host, port),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type rpcRequest struct {
	Method    string      `json:"method"`
	Arguments interface{} `json:"arguments,omitempty"`
}

type rpcResponse struct {
	Result    string          `json:"result"`
	Arguments json.RawMessage `json:"arguments"`
}

// call performs one RPC round trip. A 409 refreshes the session token
// from the response and retries exactly once; a second 409 is an error.
func (c *Client) call(ctx context.Context, method string, args interface{}, out interface{}) error {
	payload, err := json.Marshal(rpcRequest{Method: method, Arguments: args})
	if err != nil {
		return fmt.Errorf("failed to encode RPC request: %w", err)
	}

	resp, err := c.do(ctx, payload)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusConflict {
		c.setSessionID(resp.Header.Get(sessionHeader))
		resp.Body.Close()

		c.logger.Debug("Transmission session expired, retrying with new token")
		resp, err = c.do(ctx, payload)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("transmission RPC returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read RPC response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("failed to decode RPC response: %w", err)
	}
	if rpcResp.Result != "success" {
		return fmt.Errorf("transmission RPC %s failed: %s", method, rpcResp.Result)
	}

	if out != nil && len(rpcResp.Arguments) > 0 {
		if err := json.Unmarshal(rpcResp.Arguments, out); err != nil {
			return fmt.Errorf("failed to decode RPC arguments: %w", err)
		}
	}
	return nil
}

func (c *Client) do(ctx context.Context, payload []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create RPC request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if id := c.getSessionID(); id != "" {
		req.Header.Set(sessionHeader, id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transmission RPC request failed: %w", err)
	}
	return resp, nil
}

func (c *Client) getSessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Client) setSessionID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = id
}

type addTorrentArgs struct {
	Filename    string `json:"filename"`
	DownloadDir string `json:"download-dir,omitempty"`
}

type torrentInfo struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	HashString string `json:"hashString"`
}

type addTorrentResult struct {
	Added     *torrentInfo `json:"torrent-added"`
	Duplicate *torrentInfo `json:"torrent-duplicate"`
}

// AddTorrent submits a magnet link or .torrent URL and returns the
// torrent hash. A duplicate submission is not an error.
func (c *Client) AddTorrent(ctx context.Context, link, downloadDir string) (string, error) {
	var result addTorrentResult
	err := c.call(ctx, "torrent-add", addTorrentArgs{Filename: link, DownloadDir: downloadDir}, &result)
	if err != nil {
		return "", err
	}

	switch {
	case result.Added != nil:
		c.logger.WithFields(logrus.Fields{
			"name": result.Added.Name,
			"hash": result.Added.HashString,
		}).Info("Torrent added to Transmission")
		return strings.ToLower(result.Added.HashString), nil
	case result.Duplicate != nil:
		c.logger.WithFields(logrus.Fields{
			"name": result.Duplicate.Name,
			"hash": result.Duplicate.HashString,
		}).Info("Torrent already present in Transmission")
		return strings.ToLower(result.Duplicate.HashString), nil
	default:
		return "", fmt.Errorf("torrent-add returned no torrent info")
	}
}

type torrentGetArgs struct {
	Fields []string `json:"fields"`
}

type torrentGetResult struct {
	Torrents []torrentInfo `json:"torrents"`
}

// ListHashes returns the lowercase hashes of all torrents known to the
// daemon
func (c *Client) ListHashes(ctx context.Context) (map[string]bool, error) {
	var result torrentGetResult
	if err := c.call(ctx, "torrent-get", torrentGetArgs{Fields: []string{"hashString"}}, &result); err != nil {
		return nil, err
	}

	hashes := make(map[string]bool, len(result.Torrents))
	for _, t := range result.Torrents {
		hashes[strings.ToLower(t.HashString)] = true
	}
	return hashes, nil
}

// Ping verifies the daemon is reachable and primes the session token
func (c *Client) Ping(ctx context.Context) error {
	return c.call(ctx, "session-get", nil, nil)
}
