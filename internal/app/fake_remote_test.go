package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"callconsole/internal/types"
)

var errOffline = errors.New("backend offline")

// fakeRemote is an in-memory backend with call control.
type fakeRemote struct {
	mu         sync.Mutex
	next       int
	createErr  error
	activated  []string
	ended      []string
	held       []string
	notes      map[string][]types.StickyNote
	docNotes   map[string]string
	transcript map[string][]types.TranscriptEntry
	chats      []types.ChatRequest
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		notes:      map[string][]types.StickyNote{},
		docNotes:   map[string]string{},
		transcript: map[string][]types.TranscriptEntry{},
	}
}

func (f *fakeRemote) id(prefix string) string {
	f.next++
	return fmt.Sprintf("%s-%d", prefix, f.next)
}

func (f *fakeRemote) CreateSession(ctx context.Context, req types.CreateSessionRequest) (*types.CreateSessionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	id := f.id("call")
	return &types.CreateSessionResponse{CallID: id, TabID: id}, nil
}

func (f *fakeRemote) ActivateSession(ctx context.Context, callID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activated = append(f.activated, callID)
	return nil
}

func (f *fakeRemote) EndSession(ctx context.Context, callID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, callID)
	return nil
}

func (f *fakeRemote) GetNotes(ctx context.Context, callID string) (*types.NotesResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &types.NotesResponse{Notes: types.CloneNotes(f.notes[callID]), DocumentNotes: f.docNotes[callID]}, nil
}

func (f *fakeRemote) CreateNote(ctx context.Context, callID string, req types.CreateNoteRequest) (*types.StickyNote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	note := types.StickyNote{ID: f.id("note"), CallID: callID, Content: req.Content, Color: req.Color, CreatedAt: time.Now()}
	f.notes[callID] = append(f.notes[callID], note)
	return &note, nil
}

func (f *fakeRemote) UpdateNote(ctx context.Context, noteID string, req types.UpdateNoteRequest) (*types.StickyNote, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeRemote) DeleteNote(ctx context.Context, noteID string) error {
	return errors.New("not implemented")
}

func (f *fakeRemote) UpdateDocumentNotes(ctx context.Context, callID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docNotes[callID] = content
	return nil
}

func (f *fakeRemote) GetChatMessages(ctx context.Context, callID string) ([]types.ChatMessage, error) {
	return []types.ChatMessage{}, nil
}

func (f *fakeRemote) SendChatMessage(ctx context.Context, req types.ChatRequest) (*types.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats = append(f.chats, req)
	if req.Ephemeral {
		return &types.ChatResponse{Response: "Offer to waive the late fee."}, nil
	}
	return &types.ChatResponse{Response: "Confirm the **account number** first.", ResponseID: f.id("msg")}, nil
}

func (f *fakeRemote) GetTranscript(ctx context.Context, callID string) ([]types.TranscriptEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return types.CloneTranscript(f.transcript[callID]), nil
}

func (f *fakeRemote) AppendTranscriptSegment(ctx context.Context, callID string, req types.AppendSegmentRequest) (*types.TranscriptEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry := types.TranscriptEntry{ID: f.id("seg"), CallID: callID, Speaker: req.Speaker, Text: req.Text, Timestamp: req.Timestamp}
	f.transcript[callID] = append(f.transcript[callID], entry)
	return &entry, nil
}

func (f *fakeRemote) HoldCall(ctx context.Context, callID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.held = append(f.held, callID)
	return nil
}

func (f *fakeRemote) EndCall(ctx context.Context, callID, reason string) error {
	return f.EndSession(ctx, callID, reason)
}

func (f *fakeRemote) TransferCall(ctx context.Context, callID, targetAgentID, reason string) error {
	return f.EndSession(ctx, callID, reason)
}

func (f *fakeRemote) endedCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ended...)
}
