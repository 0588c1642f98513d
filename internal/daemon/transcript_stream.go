package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"callconsole/internal/logging"
	"callconsole/internal/types"
)

const streamWriteTimeout = 5 * time.Second

// StreamTranscript upgrades to a WebSocket and sends the call's stored
// segments (after ?after= when given) followed by live ones until the
// client leaves or the call ends.
func (a *API) StreamTranscript(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callID")
	var after time.Time
	if raw := r.URL.Query().Get("after"); raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeServiceError(w, invalidError("invalid after timestamp", err))
			return
		}
		after = ts
	}

	// Subscribe before reading the backlog so nothing appended in between
	// is lost; duplicates are skipped by id.
	live, unsubscribe := a.Hub.Subscribe(callID)
	defer unsubscribe()
	backlog, err := a.Transcripts.Since(r.Context(), callID, after)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		a.logger().Warn("transcript_stream_accept_failed", logging.Call(callID), logging.Err(err))
		return
	}
	defer conn.CloseNow()
	ctx := conn.CloseRead(r.Context())

	wsConnectionsActive.Inc()
	defer wsConnectionsActive.Dec()

	sent := make(map[string]struct{}, len(backlog))
	send := func(entry types.TranscriptEntry) bool {
		data, err := json.Marshal(entry)
		if err != nil {
			return true
		}
		writeCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
		defer cancel()
		if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
			a.logger().Debug("transcript_stream_write_failed", logging.Call(callID), logging.Err(err))
			return false
		}
		sent[entry.ID] = struct{}{}
		return true
	}
	for _, entry := range backlog {
		if !send(entry) {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "stream closed")
			return
		case entry, ok := <-live:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "call ended")
				return
			}
			if _, dup := sent[entry.ID]; dup {
				continue
			}
			if !send(entry) {
				return
			}
		}
	}
}

func (a *API) logger() logging.Logger {
	if a.Logger == nil {
		return logging.Nop()
	}
	return a.Logger
}
