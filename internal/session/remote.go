package session

import (
	"context"
	"errors"
	"fmt"

	"callconsole/internal/types"
)

var (
	ErrTabNotFound            = errors.New("tab not found")
	ErrEmptyMessage           = errors.New("message is empty")
	ErrEmptyNote              = errors.New("note content is empty")
	ErrEmptySegment           = errors.New("transcript text is empty")
	ErrInvalidSpeaker         = errors.New("invalid speaker")
	ErrCallIDRequired         = errors.New("call id is required")
	ErrConfirmationRequired   = errors.New("closing an active call requires confirmation")
	ErrCallControlUnavailable = errors.New("call control is not available")
	ErrInvalidTransition      = errors.New("invalid call status transition")
	ErrStreamUnavailable      = errors.New("transcript streaming is not available")
)

// RemoteAPI is the durable backend every controller reconciles against.
type RemoteAPI interface {
	CreateSession(ctx context.Context, req types.CreateSessionRequest) (*types.CreateSessionResponse, error)
	ActivateSession(ctx context.Context, callID string) error
	EndSession(ctx context.Context, callID, reason string) error

	GetNotes(ctx context.Context, callID string) (*types.NotesResponse, error)
	CreateNote(ctx context.Context, callID string, req types.CreateNoteRequest) (*types.StickyNote, error)
	UpdateNote(ctx context.Context, noteID string, req types.UpdateNoteRequest) (*types.StickyNote, error)
	DeleteNote(ctx context.Context, noteID string) error
	UpdateDocumentNotes(ctx context.Context, callID, content string) error

	GetChatMessages(ctx context.Context, callID string) ([]types.ChatMessage, error)
	SendChatMessage(ctx context.Context, req types.ChatRequest) (*types.ChatResponse, error)

	GetTranscript(ctx context.Context, callID string) ([]types.TranscriptEntry, error)
	AppendTranscriptSegment(ctx context.Context, callID string, req types.AppendSegmentRequest) (*types.TranscriptEntry, error)
}

// CallControlAPI is the telephony side of the backend. It is optional; a
// RemoteAPI that also implements it enables hold, transfer and hangup.
type CallControlAPI interface {
	HoldCall(ctx context.Context, callID, reason string) error
	EndCall(ctx context.Context, callID, reason string) error
	TransferCall(ctx context.Context, callID, targetAgentID, reason string) error
}

// TranscriptStreamer delivers live transcript segments. The returned stop
// function releases the stream.
type TranscriptStreamer interface {
	StreamTranscript(ctx context.Context, callID string) (<-chan types.TranscriptEntry, func(), error)
}

type OutcomeMode int

const (
	OutcomeRemote OutcomeMode = iota
	OutcomeLocalFallback
)

func (m OutcomeMode) String() string {
	if m == OutcomeLocalFallback {
		return "local_fallback"
	}
	return "remote"
}

// Outcome tells the caller of a tab operation whether the backend confirmed
// it or the change was applied locally after a remote failure.
type Outcome struct {
	Mode   OutcomeMode
	Reason string
}

func (o Outcome) Fallback() bool {
	return o.Mode == OutcomeLocalFallback
}

func remoteOutcome() Outcome {
	return Outcome{Mode: OutcomeRemote}
}

func fallbackOutcome(err error) Outcome {
	return Outcome{Mode: OutcomeLocalFallback, Reason: errorText(err)}
}

// errorText renders an error for a state error slot.
func errorText(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("remote timed out: %v", err)
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "request failed"
}
