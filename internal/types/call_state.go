package types

// CallState is the isolated bundle of notes, chat and transcript data for
// one call. An empty error string means "no error".
type CallState struct {
	CallID string `json:"call_id"`

	Notes         []StickyNote `json:"notes"`
	DocumentNotes string       `json:"document_notes"`
	NotesLoaded   bool         `json:"notes_loaded"`
	NotesLoading  bool         `json:"notes_loading"`
	NotesError    string       `json:"notes_error,omitempty"`

	AIChatMessages         []ChatMessage `json:"ai_chat_messages"`
	AIChatLoaded           bool          `json:"ai_chat_loaded"`
	AIChatLoading          bool          `json:"ai_chat_loading"`
	AIChatError            string        `json:"ai_chat_error,omitempty"`
	IsAITyping             bool          `json:"is_ai_typing"`
	IsGeneratingSuggestion bool          `json:"is_generating_suggestion"`
	QuickSuggestion        string        `json:"quick_suggestion,omitempty"`

	Transcript        []TranscriptEntry `json:"transcript"`
	TranscriptLoaded  bool              `json:"transcript_loaded"`
	TranscriptLoading bool              `json:"transcript_loading"`
	TranscriptError   string            `json:"transcript_error,omitempty"`
}

func NewCallState(callID string) CallState {
	return CallState{
		CallID:         callID,
		Notes:          []StickyNote{},
		AIChatMessages: []ChatMessage{},
		Transcript:     []TranscriptEntry{},
	}
}

// Clone returns a deep copy so snapshots handed out never alias registry
// storage.
func (s CallState) Clone() CallState {
	out := s
	out.Notes = CloneNotes(s.Notes)
	out.AIChatMessages = CloneChatMessages(s.AIChatMessages)
	out.Transcript = CloneTranscript(s.Transcript)
	return out
}
