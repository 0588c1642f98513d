package session

import (
	"context"
	"strings"

	"callconsole/internal/logging"
	"callconsole/internal/types"
)

type TranscriptController struct {
	deps
}

func newTranscriptController(d deps) *TranscriptController {
	return &TranscriptController{deps: d}
}

func (c *TranscriptController) Load(ctx context.Context, callID string) error {
	if callID == "" {
		return ErrCallIDRequired
	}
	epoch := c.registry.begin(callID, flagTranscript, func(s types.CallState) types.CallState {
		s.TranscriptError = ""
		return s
	})
	return c.load(ctx, callID, epoch)
}

// load replaces the transcript with the server's. Segments that arrived
// locally while the fetch was in flight are kept after it.
func (c *TranscriptController) load(ctx context.Context, callID string, epoch uint64) error {
	opCtx, cancel := c.scopes.op(ctx, callID)
	defer cancel()
	entries, err := c.remote.GetTranscript(opCtx, callID)
	if err != nil {
		c.logger.Warn("remote_failed", logging.Call(callID), logging.Op("load_transcript"), logging.Err(err))
		c.registry.failLoad(callID, epoch, SliceTranscript, errorText(err))
		return err
	}
	c.registry.finish(callID, epoch, flagTranscript, func(s types.CallState) types.CallState {
		s.Transcript = mergeTranscript(entries, s.Transcript)
		s.TranscriptLoaded = true
		return s
	})
	return nil
}

// AppendSegment records a segment with a client timestamp and appends the
// server's canonical copy.
func (c *TranscriptController) AppendSegment(ctx context.Context, callID string, speaker types.Speaker, text string) (types.TranscriptEntry, error) {
	if callID == "" {
		return types.TranscriptEntry{}, ErrCallIDRequired
	}
	if !speaker.Valid() {
		return types.TranscriptEntry{}, ErrInvalidSpeaker
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return types.TranscriptEntry{}, ErrEmptySegment
	}
	stamp := c.now()
	epoch := c.registry.begin(callID, flagTranscript, func(s types.CallState) types.CallState {
		s.TranscriptError = ""
		return s
	})

	opCtx, cancel := c.scopes.op(ctx, callID)
	defer cancel()
	entry, err := c.remote.AppendTranscriptSegment(opCtx, callID, types.AppendSegmentRequest{
		Speaker:   speaker,
		Text:      text,
		Timestamp: stamp,
	})
	if err == nil && entry == nil {
		err = errEmptyResponse
	}
	if err != nil {
		c.logger.Warn("remote_failed", logging.Call(callID), logging.Op("append_segment"), logging.Err(err))
		c.registry.finish(callID, epoch, flagTranscript, func(s types.CallState) types.CallState {
			s.TranscriptError = errorText(err)
			return s
		})
		return types.TranscriptEntry{}, err
	}
	segment := *entry
	if segment.Timestamp.IsZero() {
		segment.Timestamp = stamp
	}
	c.registry.finish(callID, epoch, flagTranscript, func(s types.CallState) types.CallState {
		s.Transcript = appendSegment(s.Transcript, segment)
		return s
	})
	return segment, nil
}

// Follow appends live segments until ctx ends, the stream closes or the
// call is removed.
func (c *TranscriptController) Follow(ctx context.Context, callID string) error {
	if callID == "" {
		return ErrCallIDRequired
	}
	streamer, ok := c.remote.(TranscriptStreamer)
	if !ok {
		return ErrStreamUnavailable
	}
	epoch := c.registry.ensureEpoch(callID)
	streamCtx, cancel := c.scopes.watch(ctx, callID)
	defer cancel()

	segments, stop, err := streamer.StreamTranscript(streamCtx, callID)
	if err != nil {
		c.logger.Warn("stream_failed", logging.Call(callID), logging.Err(err))
		return err
	}
	defer stop()
	c.logger.Debug("stream_started", logging.Call(callID))
	for {
		select {
		case <-streamCtx.Done():
			return nil
		case segment, ok := <-segments:
			if !ok {
				return nil
			}
			committed := c.registry.commit(callID, epoch, func(s types.CallState) types.CallState {
				s.Transcript = appendSegment(s.Transcript, segment)
				return s
			})
			if !committed {
				return nil
			}
		}
	}
}

func appendSegment(entries []types.TranscriptEntry, segment types.TranscriptEntry) []types.TranscriptEntry {
	for _, entry := range entries {
		if entry.ID == segment.ID {
			return entries
		}
	}
	return append(entries, segment)
}

func mergeTranscript(server, local []types.TranscriptEntry) []types.TranscriptEntry {
	out := types.CloneTranscript(server)
	seen := make(map[string]struct{}, len(out))
	for _, entry := range out {
		seen[entry.ID] = struct{}{}
	}
	for _, entry := range local {
		if _, ok := seen[entry.ID]; ok {
			continue
		}
		out = append(out, entry)
	}
	return out
}
