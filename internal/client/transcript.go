package client

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"

	"callconsole/internal/types"
)

const (
	baseReconnectDelay = 500 * time.Millisecond
	maxReconnectDelay  = 15 * time.Second
	streamBuffer       = 64
)

func (c *Client) GetTranscript(ctx context.Context, callID string) ([]types.TranscriptEntry, error) {
	var resp TranscriptResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/calls/"+url.PathEscape(callID)+"/transcript", nil, true, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

func (c *Client) AppendTranscriptSegment(ctx context.Context, callID string, req types.AppendSegmentRequest) (*types.TranscriptEntry, error) {
	var entry types.TranscriptEntry
	if err := c.doJSON(ctx, http.MethodPost, "/v1/calls/"+url.PathEscape(callID)+"/transcript", req, true, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// StreamTranscript opens the live transcript WebSocket for a call. The
// first connection is made before returning so a refused stream surfaces as
// an error; later disconnects reconnect with backoff and resume after the
// last delivered segment. The channel closes when ctx ends or stop is
// called.
func (c *Client) StreamTranscript(ctx context.Context, callID string) (<-chan types.TranscriptEntry, func(), error) {
	token, err := c.ensureToken()
	if err != nil {
		return nil, nil, err
	}
	streamURL := c.streamURL(callID)
	ctx, cancel := context.WithCancel(ctx)
	conn, err := dialStream(ctx, streamURL, token, time.Time{})
	if err != nil {
		cancel()
		return nil, nil, err
	}
	out := make(chan types.TranscriptEntry, streamBuffer)
	go c.streamLoop(ctx, conn, streamURL, out)
	return out, cancel, nil
}

func (c *Client) streamURL(callID string) string {
	base := c.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/v1/calls/" + url.PathEscape(callID) + "/transcript/stream"
}

func dialStream(ctx context.Context, streamURL, token string, after time.Time) (*websocket.Conn, error) {
	target := streamURL
	if !after.IsZero() {
		target += "?after=" + url.QueryEscape(after.Format(time.RFC3339Nano))
	}
	opts := &websocket.DialOptions{}
	if token != "" {
		opts.HTTPHeader = http.Header{
			"Authorization": []string{"Bearer " + token},
		}
	}
	conn, _, err := websocket.Dial(ctx, target, opts)
	return conn, err
}

func (c *Client) streamLoop(ctx context.Context, conn *websocket.Conn, streamURL string, out chan<- types.TranscriptEntry) {
	defer close(out)
	var last time.Time
	fails := 0
	for {
		if conn != nil {
			if delivered := readStream(ctx, conn, out, &last); delivered {
				fails = 0
			}
			conn = nil
		}
		if ctx.Err() != nil {
			return
		}
		fails++
		delay := time.Duration(float64(baseReconnectDelay) * math.Pow(2, float64(min(fails-1, 5))))
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		token, _ := c.ensureToken()
		next, err := dialStream(ctx, streamURL, token, last)
		if err == nil {
			conn = next
		}
	}
}

// readStream forwards segments until the connection drops and reports
// whether anything was delivered.
func readStream(ctx context.Context, conn *websocket.Conn, out chan<- types.TranscriptEntry, last *time.Time) bool {
	defer conn.CloseNow()
	delivered := false
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return delivered
		}
		var entry types.TranscriptEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		if entry.Timestamp.After(*last) {
			*last = entry.Timestamp
		}
		select {
		case out <- entry:
			delivered = true
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "client closing")
			return delivered
		}
	}
}
