package types

import (
	"strings"
	"time"
)

type NoteColor string

const (
	NoteColorYellow NoteColor = "yellow"
	NoteColorBlue   NoteColor = "blue"
	NoteColorGreen  NoteColor = "green"
	NoteColorPink   NoteColor = "pink"
)

const NoteTypeSticky = "sticky"

type StickyNote struct {
	ID        string     `json:"id"`
	CallID    string     `json:"call_id,omitempty"`
	Content   string     `json:"content"`
	Color     NoteColor  `json:"color"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// NormalizeNoteColor maps unknown or empty colors to yellow.
func NormalizeNoteColor(color NoteColor) NoteColor {
	switch NoteColor(strings.ToLower(strings.TrimSpace(string(color)))) {
	case NoteColorBlue:
		return NoteColorBlue
	case NoteColorGreen:
		return NoteColorGreen
	case NoteColorPink:
		return NoteColorPink
	default:
		return NoteColorYellow
	}
}

func CloneNotes(notes []StickyNote) []StickyNote {
	out := make([]StickyNote, len(notes))
	for i, note := range notes {
		out[i] = note
		if note.UpdatedAt != nil {
			ts := *note.UpdatedAt
			out[i].UpdatedAt = &ts
		}
	}
	return out
}
