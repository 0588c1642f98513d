package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/singleflight"

	"callconsole/internal/config"
)

const defaultHTTPTimeout = 30 * time.Second

// Client talks to the callconsole daemon. It implements the session
// package's RemoteAPI, CallControlAPI and TranscriptStreamer.
type Client struct {
	baseURL   string
	tokenPath string
	http      *http.Client

	mu    sync.RWMutex
	token string
	loads singleflight.Group
}

func New(cfg config.Config) (*Client, error) {
	tokenPath, err := config.TokenPath()
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   cfg.DaemonBaseURL(),
		tokenPath: tokenPath,
		http: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
	}
	_ = c.loadToken()
	return c, nil
}

func NewWithBaseURL(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ShutdownDaemon(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/shutdown", nil, true, nil)
}

// EnsureDaemon starts a background daemon when none answers the health
// check and waits for it to come up.
func (c *Client) EnsureDaemon(ctx context.Context) error {
	return c.ensureDaemon(ctx, "", false)
}

func (c *Client) EnsureDaemonVersion(ctx context.Context, expectedVersion string, restart bool) error {
	return c.ensureDaemon(ctx, expectedVersion, restart)
}

func (c *Client) ensureDaemon(ctx context.Context, expectedVersion string, restart bool) error {
	resp, err := c.Health(ctx)
	if err == nil && resp.OK {
		if expectedVersion == "" || resp.Version == expectedVersion {
			return nil
		}
		if !restart {
			return fmt.Errorf("daemon version mismatch: %s (expected %s)", resp.Version, expectedVersion)
		}
		if err := c.ShutdownDaemon(ctx); err != nil {
			apiErr := asAPIError(err)
			if apiErr == nil || apiErr.StatusCode != http.StatusNotFound || resp.PID <= 0 {
				return err
			}
			if killErr := killProcess(resp.PID); killErr != nil {
				return fmt.Errorf("failed to stop stale daemon (pid %d): %w", resp.PID, killErr)
			}
		}
		if err := c.waitFor(ctx, 2*time.Second, 100*time.Millisecond, func() bool {
			_, err := c.Health(ctx)
			return err != nil
		}); err != nil {
			return err
		}
	}

	if err := startDaemon(); err != nil {
		return err
	}

	var lastErr error
	ready := func() bool {
		resp, err := c.Health(ctx)
		switch {
		case err != nil:
			lastErr = err
		case !resp.OK:
			lastErr = errors.New("daemon reported not ok")
		case expectedVersion != "" && resp.Version != expectedVersion:
			lastErr = fmt.Errorf("daemon version mismatch: %s (expected %s)", resp.Version, expectedVersion)
		default:
			_ = c.loadToken()
			return true
		}
		return false
	}
	if err := c.waitFor(ctx, 4*time.Second, 150*time.Millisecond, ready); err != nil {
		if lastErr == nil {
			lastErr = errors.New("daemon not healthy after start")
		}
		return lastErr
	}
	return nil
}

func (c *Client) waitFor(ctx context.Context, limit, interval time.Duration, done func() bool) error {
	deadline := time.Now().Add(limit)
	for time.Now().Before(deadline) {
		if done() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return errors.New("timed out waiting for daemon")
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, requireAuth bool, out any) error {
	return c.doJSONWithClient(ctx, method, path, body, requireAuth, out, c.http)
}

func (c *Client) doJSONWithClient(ctx context.Context, method, path string, body any, requireAuth bool, out any, httpClient *http.Client) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if requireAuth {
		token, err := c.ensureToken()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && requireAuth && c.tokenPath != "" {
		// The daemon may have rotated its token since we last read it.
		_ = c.loadToken()
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) ensureToken() (string, error) {
	if token := c.currentToken(); strings.TrimSpace(token) != "" {
		return token, nil
	}
	if err := c.loadToken(); err != nil {
		return "", err
	}
	token := c.currentToken()
	if strings.TrimSpace(token) == "" {
		return "", errors.New("token not found; is the daemon running?")
	}
	return token, nil
}

// loadToken rereads the token file. Concurrent callers share one read.
func (c *Client) loadToken() error {
	if c.tokenPath == "" {
		return nil
	}
	_, err, _ := c.loads.Do("token", func() (any, error) {
		data, err := os.ReadFile(c.tokenPath)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		c.mu.Lock()
		c.token = strings.TrimSpace(string(data))
		c.mu.Unlock()
		return nil, nil
	})
	return err
}

func decodeAPIError(resp *http.Response) error {
	type errorPayload struct {
		Error string `json:"error"`
	}
	var payload errorPayload
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	if payload.Error != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
}

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

func asAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

// IsUnavailable reports whether err means the daemon could not be reached
// or could not serve the request, as opposed to rejecting it.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if apiErr := asAPIError(err); apiErr != nil {
		switch apiErr.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsNotFound reports whether the daemon answered 404.
func IsNotFound(err error) bool {
	apiErr := asAPIError(err)
	return apiErr != nil && apiErr.StatusCode == http.StatusNotFound
}

var killProcess = terminateProcess

func terminateProcess(pid int) error {
	if pid <= 0 {
		return errors.New("invalid pid")
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if runtime.GOOS == "windows" {
		return proc.Kill()
	}
	return proc.Signal(syscall.SIGTERM)
}
