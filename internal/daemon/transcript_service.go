package daemon

import (
	"context"
	"strings"
	"time"

	"callconsole/internal/store"
	"callconsole/internal/types"
)

type TranscriptService struct {
	entries store.TranscriptStore
	hub     *TranscriptHub
}

func NewTranscriptService(repo store.Repository, hub *TranscriptHub) *TranscriptService {
	svc := &TranscriptService{hub: hub}
	if repo != nil {
		svc.entries = repo.Transcripts()
	}
	return svc
}

func (s *TranscriptService) List(ctx context.Context, callID string) ([]types.TranscriptEntry, error) {
	if s.entries == nil {
		return nil, unavailableError("transcript store not available", nil)
	}
	callID = strings.TrimSpace(callID)
	if callID == "" {
		return nil, invalidError("call id is required", nil)
	}
	stored, err := s.entries.List(ctx, callID)
	if err != nil {
		return nil, unavailableError("list transcript", err)
	}
	out := make([]types.TranscriptEntry, 0, len(stored))
	for _, entry := range stored {
		out = append(out, *entry)
	}
	return out, nil
}

// Since returns the entries of a call stamped after ts; a zero ts returns
// all of them.
func (s *TranscriptService) Since(ctx context.Context, callID string, ts time.Time) ([]types.TranscriptEntry, error) {
	entries, err := s.List(ctx, callID)
	if err != nil || ts.IsZero() {
		return entries, err
	}
	out := entries[:0]
	for _, entry := range entries {
		if entry.Timestamp.After(ts) {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (s *TranscriptService) Append(ctx context.Context, callID string, req types.AppendSegmentRequest) (*types.TranscriptEntry, error) {
	if s.entries == nil {
		return nil, unavailableError("transcript store not available", nil)
	}
	callID = strings.TrimSpace(callID)
	if callID == "" {
		return nil, invalidError("call id is required", nil)
	}
	if !req.Speaker.Valid() {
		return nil, invalidError("speaker must be Agent or Customer", nil)
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, invalidError("text is required", nil)
	}
	entry, err := s.entries.Append(ctx, &types.TranscriptEntry{
		CallID:    callID,
		Speaker:   req.Speaker,
		Text:      req.Text,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		return nil, unavailableError("append transcript", err)
	}
	transcriptSegmentsTotal.WithLabelValues(string(entry.Speaker)).Inc()
	if s.hub != nil {
		s.hub.Publish(*entry)
	}
	return entry, nil
}
