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

func TestNotesAddConcurrentlyKeepsEveryNote(t *testing.T) {
	remote := newFakeRemote()
	started := make(chan struct{})
	release := make(chan struct{})
	var (
		mu sync.Mutex
		n  int
	)
	remote.createNote = func(_ context.Context, callID string, req types.CreateNoteRequest) (*types.StickyNote, error) {
		mu.Lock()
		n++
		id := fmt.Sprintf("note-%d", n)
		mu.Unlock()
		started <- struct{}{}
		<-release
		return &types.StickyNote{ID: id, CallID: callID, Content: req.Content, Color: req.Color}, nil
	}
	c := newTestConsole(t, remote)

	const total = 5
	var wg sync.WaitGroup
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := c.Notes.Add(context.Background(), "c1", fmt.Sprintf("note %d", i), types.NoteColorBlue); err != nil {
				t.Errorf("add: %v", err)
			}
		}(i)
	}
	for i := 0; i < total; i++ {
		<-started
	}
	if !c.State("c1").NotesLoading {
		t.Fatalf("expected loading while adds are in flight")
	}
	close(release)
	wg.Wait()

	state := c.State("c1")
	if len(state.Notes) != total {
		t.Fatalf("expected %d notes, got %d", total, len(state.Notes))
	}
	if state.NotesLoading {
		t.Fatalf("expected loading cleared")
	}
}

func TestNotesAddAppendsServerNote(t *testing.T) {
	remote := newFakeRemote()
	c := newTestConsole(t, remote)
	note, err := c.Notes.Add(context.Background(), "c1", "  verify address  ", "")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if note.ID != "note-1" {
		t.Fatalf("expected server id, got %q", note.ID)
	}
	if note.Content != "verify address" {
		t.Fatalf("expected trimmed content, got %q", note.Content)
	}
	if note.Color != types.NoteColorYellow {
		t.Fatalf("expected default color yellow, got %q", note.Color)
	}
	state := c.State("c1")
	if len(state.Notes) != 1 || state.Notes[0].ID != "note-1" {
		t.Fatalf("unexpected notes %+v", state.Notes)
	}
}

func TestNotesAddRejectsEmptyContent(t *testing.T) {
	remote := newFakeRemote()
	c := newTestConsole(t, remote)
	if _, err := c.Notes.Add(context.Background(), "c1", "   ", types.NoteColorPink); !errors.Is(err, ErrEmptyNote) {
		t.Fatalf("expected ErrEmptyNote, got %v", err)
	}
	if c.Registry.Has("c1") {
		t.Fatalf("expected no state change")
	}
	if remote.count("CreateNote") != 0 {
		t.Fatalf("expected no remote call")
	}
}

func TestNotesAddFailureKeepsPriorNotes(t *testing.T) {
	remote := newFakeRemote()
	c := newTestConsole(t, remote)
	if _, err := c.Notes.Add(context.Background(), "c1", "first", types.NoteColorGreen); err != nil {
		t.Fatalf("add: %v", err)
	}
	remote.createNote = func(context.Context, string, types.CreateNoteRequest) (*types.StickyNote, error) {
		return nil, errRemoteDown
	}
	if _, err := c.Notes.Add(context.Background(), "c1", "second", types.NoteColorGreen); !errors.Is(err, errRemoteDown) {
		t.Fatalf("expected remote error, got %v", err)
	}
	state := c.State("c1")
	if len(state.Notes) != 1 || state.Notes[0].Content != "first" {
		t.Fatalf("expected prior notes kept, got %+v", state.Notes)
	}
	if state.NotesError != errRemoteDown.Error() {
		t.Fatalf("expected notes error, got %q", state.NotesError)
	}
	if state.NotesLoading {
		t.Fatalf("expected loading cleared")
	}
}

func TestNotesUpdateReplacesByIDAndStamps(t *testing.T) {
	remote := newFakeRemote()
	c := newTestConsole(t, remote)
	first, _ := c.Notes.Add(context.Background(), "c1", "one", types.NoteColorYellow)
	second, _ := c.Notes.Add(context.Background(), "c1", "two", types.NoteColorYellow)

	updated, err := c.Notes.Update(context.Background(), "c1", second.ID, "two, revised")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.UpdatedAt == nil {
		t.Fatalf("expected updated_at stamp")
	}
	state := c.State("c1")
	if state.Notes[0].ID != first.ID || state.Notes[0].UpdatedAt != nil {
		t.Fatalf("expected first note untouched, got %+v", state.Notes[0])
	}
	if state.Notes[1].Content != "two, revised" || state.Notes[1].UpdatedAt == nil {
		t.Fatalf("expected second note revised, got %+v", state.Notes[1])
	}
	if !state.Notes[1].UpdatedAt.Equal(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected stamp %v", state.Notes[1].UpdatedAt)
	}
}

func TestNotesDeleteFiltersByID(t *testing.T) {
	remote := newFakeRemote()
	c := newTestConsole(t, remote)
	first, _ := c.Notes.Add(context.Background(), "c1", "one", types.NoteColorYellow)
	c.Notes.Add(context.Background(), "c1", "two", types.NoteColorYellow)
	if err := c.Notes.Delete(context.Background(), "c1", first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	state := c.State("c1")
	if len(state.Notes) != 1 || state.Notes[0].Content != "two" {
		t.Fatalf("unexpected notes %+v", state.Notes)
	}
}

func TestNotesDeleteFailureKeepsNote(t *testing.T) {
	remote := newFakeRemote()
	remote.deleteNote = func(context.Context, string) error { return errRemoteDown }
	c := newTestConsole(t, remote)
	note, _ := c.Notes.Add(context.Background(), "c1", "one", types.NoteColorYellow)
	if err := c.Notes.Delete(context.Background(), "c1", note.ID); err == nil {
		t.Fatalf("expected error")
	}
	if len(c.State("c1").Notes) != 1 {
		t.Fatalf("expected note kept")
	}
}

func TestNotesDocumentNotesAreOptimistic(t *testing.T) {
	remote := newFakeRemote()
	entered := make(chan struct{})
	release := make(chan struct{})
	remote.updateDoc = func(context.Context, string, string) error {
		close(entered)
		<-release
		return errRemoteDown
	}
	c := newTestConsole(t, remote)

	done := make(chan error, 1)
	go func() {
		done <- c.Notes.UpdateDocumentNotes(context.Background(), "c1", "caller wants a refund")
	}()
	<-entered
	state := c.State("c1")
	if state.DocumentNotes != "caller wants a refund" {
		t.Fatalf("expected text applied before remote returns, got %q", state.DocumentNotes)
	}
	if state.NotesLoading {
		t.Fatalf("expected document edits not to raise loading")
	}
	close(release)
	if err := <-done; !errors.Is(err, errRemoteDown) {
		t.Fatalf("expected remote error, got %v", err)
	}
	state = c.State("c1")
	if state.DocumentNotes != "caller wants a refund" {
		t.Fatalf("expected optimistic text kept, got %q", state.DocumentNotes)
	}
	if state.NotesError == "" {
		t.Fatalf("expected notes error")
	}
}

func TestNotesDocumentNotesStaleFailureIgnored(t *testing.T) {
	remote := newFakeRemote()
	firstEntered := make(chan struct{})
	release := make(chan struct{})
	remote.updateDoc = func(_ context.Context, _ string, content string) error {
		if content == "draft" {
			close(firstEntered)
			<-release
			return errRemoteDown
		}
		return nil
	}
	c := newTestConsole(t, remote)
	done := make(chan error, 1)
	go func() {
		done <- c.Notes.UpdateDocumentNotes(context.Background(), "c1", "draft")
	}()
	<-firstEntered
	if err := c.Notes.UpdateDocumentNotes(context.Background(), "c1", "final"); err != nil {
		t.Fatalf("update: %v", err)
	}
	close(release)
	<-done
	state := c.State("c1")
	if state.DocumentNotes != "final" {
		t.Fatalf("expected latest text, got %q", state.DocumentNotes)
	}
	if state.NotesError != "" {
		t.Fatalf("expected superseded failure ignored, got %q", state.NotesError)
	}
}

func TestNotesLoadMergesLocalNotes(t *testing.T) {
	remote := newFakeRemote()
	release := make(chan struct{})
	remote.getNotes = func(context.Context, string) (*types.NotesResponse, error) {
		<-release
		return &types.NotesResponse{
			Notes:         []types.StickyNote{{ID: "srv-1", Content: "from server"}},
			DocumentNotes: "server doc",
		}, nil
	}
	c := newTestConsole(t, remote)

	done := make(chan error, 1)
	go func() { done <- c.Notes.Load(context.Background(), "c1") }()
	waitFor(t, "load in flight", func() bool { return remote.count("GetNotes") == 1 })
	if _, err := c.Notes.Add(context.Background(), "c1", "local", types.NoteColorBlue); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !c.State("c1").NotesLoading {
		t.Fatalf("expected loading while load is in flight")
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("load: %v", err)
	}
	state := c.State("c1")
	if !state.NotesLoaded || state.NotesLoading {
		t.Fatalf("expected loaded, got loaded=%v loading=%v", state.NotesLoaded, state.NotesLoading)
	}
	if len(state.Notes) != 2 || state.Notes[0].ID != "srv-1" || state.Notes[1].Content != "local" {
		t.Fatalf("unexpected notes %+v", state.Notes)
	}
	if state.DocumentNotes != "server doc" {
		t.Fatalf("expected server document notes, got %q", state.DocumentNotes)
	}
}

func TestNotesLoadFailureLeavesUnloaded(t *testing.T) {
	remote := newFakeRemote()
	remote.getNotes = func(context.Context, string) (*types.NotesResponse, error) { return nil, errRemoteDown }
	c := newTestConsole(t, remote)
	if err := c.Notes.Load(context.Background(), "c1"); err == nil {
		t.Fatalf("expected error")
	}
	state := c.State("c1")
	if state.NotesLoaded || state.NotesLoading || state.NotesError == "" {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestNotesRemoteTimeoutClearsLoading(t *testing.T) {
	remote := newFakeRemote()
	remote.getNotes = func(ctx context.Context, _ string) (*types.NotesResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	c := NewConsole(remote, Options{RemoteTimeout: 20 * time.Millisecond})
	if err := c.Notes.Load(context.Background(), "c1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	state := c.State("c1")
	if state.NotesLoading {
		t.Fatalf("expected loading cleared after timeout")
	}
	if state.NotesError == "" {
		t.Fatalf("expected timeout error recorded")
	}
}
