package store

import (
	"context"
	"errors"
	"strings"

	"callconsole/internal/types"
)

var (
	ErrCallNotFound = errors.New("call not found")
	ErrCallExists   = errors.New("call already exists")
	ErrNoteNotFound = errors.New("note not found")
)

// Repository groups the durable stores behind the session daemon.
type Repository interface {
	Calls() CallStore
	Notes() NoteStore
	Chat() ChatStore
	Transcripts() TranscriptStore
	Close() error
}

type CallStore interface {
	List(ctx context.Context) ([]*types.CallRecord, error)
	Get(ctx context.Context, callID string) (*types.CallRecord, bool, error)
	Create(ctx context.Context, record *types.CallRecord) (*types.CallRecord, error)
	// Update applies fn to the stored record inside one transaction.
	Update(ctx context.Context, callID string, fn func(*types.CallRecord) error) (*types.CallRecord, error)
}

type NoteStore interface {
	ListByCall(ctx context.Context, callID string) ([]*types.StickyNote, error)
	Get(ctx context.Context, noteID string) (*types.StickyNote, bool, error)
	Upsert(ctx context.Context, note *types.StickyNote) (*types.StickyNote, error)
	Delete(ctx context.Context, noteID string) error
	DeleteByCall(ctx context.Context, callID string) error
}

type ChatStore interface {
	List(ctx context.Context, callID string) ([]*types.ChatMessage, error)
	Append(ctx context.Context, msg *types.ChatMessage) (*types.ChatMessage, error)
}

type TranscriptStore interface {
	List(ctx context.Context, callID string) ([]*types.TranscriptEntry, error)
	Append(ctx context.Context, entry *types.TranscriptEntry) (*types.TranscriptEntry, error)
}

func Open(path string) (Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("db path is required")
	}
	return NewBboltRepository(path)
}
