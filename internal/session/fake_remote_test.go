package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"callconsole/internal/types"
)

var errRemoteDown = errors.New("remote unavailable")

// fakeRemote answers every call with canned data unless a hook is set.
type fakeRemote struct {
	mu     sync.Mutex
	calls  map[string]int
	nextID int

	createSession func(context.Context, types.CreateSessionRequest) (*types.CreateSessionResponse, error)
	activate      func(context.Context, string) error
	endSession    func(context.Context, string, string) error
	getNotes      func(context.Context, string) (*types.NotesResponse, error)
	createNote    func(context.Context, string, types.CreateNoteRequest) (*types.StickyNote, error)
	updateNote    func(context.Context, string, types.UpdateNoteRequest) (*types.StickyNote, error)
	deleteNote    func(context.Context, string) error
	updateDoc     func(context.Context, string, string) error
	getChat       func(context.Context, string) ([]types.ChatMessage, error)
	sendChat      func(context.Context, types.ChatRequest) (*types.ChatResponse, error)
	getTranscript func(context.Context, string) ([]types.TranscriptEntry, error)
	appendSegment func(context.Context, string, types.AppendSegmentRequest) (*types.TranscriptEntry, error)
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{calls: map[string]int{}}
}

func (f *fakeRemote) record(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	f.nextID++
	return f.nextID
}

func (f *fakeRemote) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeRemote) CreateSession(ctx context.Context, req types.CreateSessionRequest) (*types.CreateSessionResponse, error) {
	n := f.record("CreateSession")
	if f.createSession != nil {
		return f.createSession(ctx, req)
	}
	id := fmt.Sprintf("call-%d", n)
	return &types.CreateSessionResponse{CallID: id, TabID: id}, nil
}

func (f *fakeRemote) ActivateSession(ctx context.Context, callID string) error {
	f.record("ActivateSession")
	if f.activate != nil {
		return f.activate(ctx, callID)
	}
	return nil
}

func (f *fakeRemote) EndSession(ctx context.Context, callID, reason string) error {
	f.record("EndSession")
	if f.endSession != nil {
		return f.endSession(ctx, callID, reason)
	}
	return nil
}

func (f *fakeRemote) GetNotes(ctx context.Context, callID string) (*types.NotesResponse, error) {
	f.record("GetNotes")
	if f.getNotes != nil {
		return f.getNotes(ctx, callID)
	}
	return &types.NotesResponse{Notes: []types.StickyNote{}}, nil
}

func (f *fakeRemote) CreateNote(ctx context.Context, callID string, req types.CreateNoteRequest) (*types.StickyNote, error) {
	n := f.record("CreateNote")
	if f.createNote != nil {
		return f.createNote(ctx, callID, req)
	}
	return &types.StickyNote{
		ID:        fmt.Sprintf("note-%d", n),
		CallID:    callID,
		Content:   req.Content,
		Color:     req.Color,
		CreatedAt: time.Unix(int64(n), 0).UTC(),
	}, nil
}

func (f *fakeRemote) UpdateNote(ctx context.Context, noteID string, req types.UpdateNoteRequest) (*types.StickyNote, error) {
	f.record("UpdateNote")
	if f.updateNote != nil {
		return f.updateNote(ctx, noteID, req)
	}
	return &types.StickyNote{ID: noteID, Content: req.Content}, nil
}

func (f *fakeRemote) DeleteNote(ctx context.Context, noteID string) error {
	f.record("DeleteNote")
	if f.deleteNote != nil {
		return f.deleteNote(ctx, noteID)
	}
	return nil
}

func (f *fakeRemote) UpdateDocumentNotes(ctx context.Context, callID, content string) error {
	f.record("UpdateDocumentNotes")
	if f.updateDoc != nil {
		return f.updateDoc(ctx, callID, content)
	}
	return nil
}

func (f *fakeRemote) GetChatMessages(ctx context.Context, callID string) ([]types.ChatMessage, error) {
	f.record("GetChatMessages")
	if f.getChat != nil {
		return f.getChat(ctx, callID)
	}
	return []types.ChatMessage{}, nil
}

func (f *fakeRemote) SendChatMessage(ctx context.Context, req types.ChatRequest) (*types.ChatResponse, error) {
	n := f.record("SendChatMessage")
	if f.sendChat != nil {
		return f.sendChat(ctx, req)
	}
	return &types.ChatResponse{Response: "reply: " + req.Message, ResponseID: fmt.Sprintf("ai-%d", n)}, nil
}

func (f *fakeRemote) GetTranscript(ctx context.Context, callID string) ([]types.TranscriptEntry, error) {
	f.record("GetTranscript")
	if f.getTranscript != nil {
		return f.getTranscript(ctx, callID)
	}
	return []types.TranscriptEntry{}, nil
}

func (f *fakeRemote) AppendTranscriptSegment(ctx context.Context, callID string, req types.AppendSegmentRequest) (*types.TranscriptEntry, error) {
	n := f.record("AppendTranscriptSegment")
	if f.appendSegment != nil {
		return f.appendSegment(ctx, callID, req)
	}
	return &types.TranscriptEntry{
		ID:        fmt.Sprintf("seg-%d", n),
		CallID:    callID,
		Speaker:   req.Speaker,
		Text:      req.Text,
		Timestamp: req.Timestamp,
	}, nil
}

// fakeTelephony adds call control to fakeRemote.
type fakeTelephony struct {
	*fakeRemote
	hold     func(context.Context, string, string) error
	end      func(context.Context, string, string) error
	transfer func(context.Context, string, string, string) error
}

func (f *fakeTelephony) HoldCall(ctx context.Context, callID, reason string) error {
	f.record("HoldCall")
	if f.hold != nil {
		return f.hold(ctx, callID, reason)
	}
	return nil
}

func (f *fakeTelephony) EndCall(ctx context.Context, callID, reason string) error {
	f.record("EndCall")
	if f.end != nil {
		return f.end(ctx, callID, reason)
	}
	return nil
}

func (f *fakeTelephony) TransferCall(ctx context.Context, callID, target, reason string) error {
	f.record("TransferCall")
	if f.transfer != nil {
		return f.transfer(ctx, callID, target, reason)
	}
	return nil
}

// fakeStreamer adds a transcript stream fed by the test.
type fakeStreamer struct {
	*fakeRemote
	segments chan types.TranscriptEntry
	stopped  chan struct{}
}

func (f *fakeStreamer) StreamTranscript(ctx context.Context, callID string) (<-chan types.TranscriptEntry, func(), error) {
	f.record("StreamTranscript")
	var once sync.Once
	return f.segments, func() { once.Do(func() { close(f.stopped) }) }, nil
}

func newTestConsole(t *testing.T, remote RemoteAPI) *Console {
	t.Helper()
	var (
		mu  sync.Mutex
		seq int
	)
	return NewConsole(remote, Options{
		AgentID:       "agent-7",
		RemoteTimeout: time.Second,
		Now: func() time.Time {
			return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		},
		NewID: func() string {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
	})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
