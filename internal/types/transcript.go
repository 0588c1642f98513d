package types

import "time"

type Speaker string

const (
	SpeakerAgent    Speaker = "Agent"
	SpeakerCustomer Speaker = "Customer"
)

func (s Speaker) Valid() bool {
	return s == SpeakerAgent || s == SpeakerCustomer
}

// TranscriptEntry is one immutable segment of what was said on a call.
type TranscriptEntry struct {
	ID        string    `json:"id"`
	CallID    string    `json:"call_id,omitempty"`
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

func CloneTranscript(entries []TranscriptEntry) []TranscriptEntry {
	return append(make([]TranscriptEntry, 0, len(entries)), entries...)
}
