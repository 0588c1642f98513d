package types

import "time"

type CreateSessionRequest struct {
	AgentID     string `json:"agent_id"`
	SessionType string `json:"session_type,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

type CreateSessionResponse struct {
	CallID string `json:"call_id"`
	TabID  string `json:"tab_id"`
}

type EndSessionRequest struct {
	Reason string `json:"reason,omitempty"`
}

type HoldCallRequest struct {
	Reason string `json:"reason,omitempty"`
}

type TransferCallRequest struct {
	TargetAgentID string `json:"target_agent_id"`
	Reason        string `json:"reason,omitempty"`
}

type NotesResponse struct {
	Notes         []StickyNote `json:"notes"`
	DocumentNotes string       `json:"document_notes"`
}

type CreateNoteRequest struct {
	Content  string    `json:"content"`
	NoteType string    `json:"note_type,omitempty"`
	Color    NoteColor `json:"color,omitempty"`
}

type UpdateNoteRequest struct {
	Content string `json:"content"`
}

type DocumentNotesRequest struct {
	Content string `json:"content"`
}

type ChatContext struct {
	Transcript    []TranscriptEntry `json:"transcript,omitempty"`
	Notes         []StickyNote      `json:"notes,omitempty"`
	DocumentNotes string            `json:"document_notes,omitempty"`
}

type ChatRequest struct {
	CallID          string        `json:"call_id"`
	Message         string        `json:"message"`
	ResponseLevel   ResponseLevel `json:"response_level"`
	ClientMessageID string        `json:"client_message_id,omitempty"`
	// Ephemeral requests (quick suggestions) are answered but not stored
	// in the call's chat history.
	Ephemeral bool        `json:"ephemeral,omitempty"`
	Context   ChatContext `json:"context"`
}

type ChatResponse struct {
	Response    string   `json:"response"`
	ResponseID  string   `json:"response_id"`
	Suggestions []string `json:"suggestions,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
}

type AppendSegmentRequest struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
