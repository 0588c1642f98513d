package store

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"callconsole/internal/types"
)

var now = func() time.Time { return time.Now().UTC() }

func newID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func normalizeCall(record *types.CallRecord) (*types.CallRecord, error) {
	if record == nil {
		return nil, errors.New("call is required")
	}
	normalized := *record
	normalized.CallID = strings.TrimSpace(normalized.CallID)
	if normalized.CallID == "" {
		normalized.CallID = newID("call")
	}
	if normalized.TabID == "" {
		normalized.TabID = normalized.CallID
	}
	if normalized.Status == "" {
		normalized.Status = types.CallStatusConnecting
	}
	if !normalized.Status.Valid() {
		return nil, errors.New("invalid call status: " + string(normalized.Status))
	}
	if normalized.CreatedAt.IsZero() {
		normalized.CreatedAt = now()
	}
	return cloneCall(&normalized), nil
}

func cloneCall(record *types.CallRecord) *types.CallRecord {
	if record == nil {
		return nil
	}
	copy := *record
	if record.ActivatedAt != nil {
		ts := *record.ActivatedAt
		copy.ActivatedAt = &ts
	}
	if record.EndedAt != nil {
		ts := *record.EndedAt
		copy.EndedAt = &ts
	}
	return &copy
}

func normalizeNote(note *types.StickyNote, existing *types.StickyNote) (*types.StickyNote, error) {
	if note == nil {
		return nil, errors.New("note is required")
	}
	normalized := *note
	normalized.Content = strings.TrimSpace(normalized.Content)
	if normalized.Content == "" {
		return nil, errors.New("note content is required")
	}
	if strings.TrimSpace(normalized.ID) == "" {
		normalized.ID = newID("note")
	}
	normalized.Color = types.NormalizeNoteColor(normalized.Color)
	if existing != nil {
		normalized.ID = existing.ID
		normalized.CallID = existing.CallID
		normalized.CreatedAt = existing.CreatedAt
		ts := now()
		normalized.UpdatedAt = &ts
	} else if normalized.CreatedAt.IsZero() {
		normalized.CreatedAt = now()
	}
	if strings.TrimSpace(normalized.CallID) == "" {
		return nil, errors.New("note call id is required")
	}
	return cloneNote(&normalized), nil
}

func cloneNote(note *types.StickyNote) *types.StickyNote {
	if note == nil {
		return nil
	}
	copy := *note
	if note.UpdatedAt != nil {
		ts := *note.UpdatedAt
		copy.UpdatedAt = &ts
	}
	return &copy
}

func normalizeMessage(msg *types.ChatMessage) (*types.ChatMessage, error) {
	if msg == nil {
		return nil, errors.New("message is required")
	}
	if strings.TrimSpace(msg.CallID) == "" {
		return nil, errors.New("message call id is required")
	}
	normalized := *msg
	if normalized.ID == "" {
		normalized.ID = newID("msg")
	}
	if normalized.Timestamp.IsZero() {
		normalized.Timestamp = now()
	}
	return cloneMessage(&normalized), nil
}

func cloneMessage(msg *types.ChatMessage) *types.ChatMessage {
	if msg == nil {
		return nil
	}
	copy := *msg
	if msg.Suggestions != nil {
		copy.Suggestions = append([]string(nil), msg.Suggestions...)
	}
	if msg.Confidence != nil {
		c := *msg.Confidence
		copy.Confidence = &c
	}
	return &copy
}

func normalizeSegment(entry *types.TranscriptEntry) (*types.TranscriptEntry, error) {
	if entry == nil {
		return nil, errors.New("segment is required")
	}
	if strings.TrimSpace(entry.CallID) == "" {
		return nil, errors.New("segment call id is required")
	}
	if !entry.Speaker.Valid() {
		return nil, errors.New("invalid speaker: " + string(entry.Speaker))
	}
	normalized := *entry
	normalized.Text = strings.TrimSpace(normalized.Text)
	if normalized.Text == "" {
		return nil, errors.New("segment text is required")
	}
	if normalized.ID == "" {
		normalized.ID = newID("seg")
	}
	if normalized.Timestamp.IsZero() {
		normalized.Timestamp = now()
	}
	return &normalized, nil
}
