package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"callconsole/internal/logging"
	"callconsole/internal/types"
)

var errEmptyResponse = errors.New("remote returned an empty response")

type NotesController struct {
	deps

	mu     sync.Mutex
	docSeq map[string]uint64
}

func newNotesController(d deps) *NotesController {
	return &NotesController{deps: d, docSeq: map[string]uint64{}}
}

func clearNotesError(s types.CallState) types.CallState {
	s.NotesError = ""
	return s
}

// Load fetches the call's notes and document notes.
func (c *NotesController) Load(ctx context.Context, callID string) error {
	if callID == "" {
		return ErrCallIDRequired
	}
	epoch := c.registry.begin(callID, flagNotes, clearNotesError)
	return c.load(ctx, callID, epoch)
}

func (c *NotesController) load(ctx context.Context, callID string, epoch uint64) error {
	opCtx, cancel := c.scopes.op(ctx, callID)
	defer cancel()
	resp, err := c.remote.GetNotes(opCtx, callID)
	if err == nil && resp == nil {
		err = errEmptyResponse
	}
	if err != nil {
		c.logger.Warn("remote_failed", logging.Call(callID), logging.Op("load_notes"), logging.Err(err))
		c.registry.failLoad(callID, epoch, SliceNotes, errorText(err))
		return err
	}
	keepDoc := c.docWritten(callID)
	c.registry.finish(callID, epoch, flagNotes, func(s types.CallState) types.CallState {
		s.Notes = mergeNotes(resp.Notes, s.Notes)
		if !keepDoc {
			s.DocumentNotes = resp.DocumentNotes
		}
		s.NotesLoaded = true
		return s
	})
	return nil
}

// Add creates a note remotely and appends the server's copy.
func (c *NotesController) Add(ctx context.Context, callID, content string, color types.NoteColor) (types.StickyNote, error) {
	if callID == "" {
		return types.StickyNote{}, ErrCallIDRequired
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return types.StickyNote{}, ErrEmptyNote
	}
	color = types.NormalizeNoteColor(color)
	epoch := c.registry.begin(callID, flagNotes, clearNotesError)

	opCtx, cancel := c.scopes.op(ctx, callID)
	defer cancel()
	note, err := c.remote.CreateNote(opCtx, callID, types.CreateNoteRequest{
		Content:  content,
		NoteType: types.NoteTypeSticky,
		Color:    color,
	})
	if err == nil && note == nil {
		err = errEmptyResponse
	}
	if err != nil {
		c.fail(callID, epoch, "add_note", err)
		return types.StickyNote{}, err
	}
	created := *note
	if created.Color == "" {
		created.Color = color
	}
	created.Color = types.NormalizeNoteColor(created.Color)
	if created.CreatedAt.IsZero() {
		created.CreatedAt = c.now()
	}
	c.registry.finish(callID, epoch, flagNotes, func(s types.CallState) types.CallState {
		s.Notes = upsertNote(s.Notes, created)
		return s
	})
	return created, nil
}

func (c *NotesController) Update(ctx context.Context, callID, noteID, content string) (types.StickyNote, error) {
	if callID == "" {
		return types.StickyNote{}, ErrCallIDRequired
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return types.StickyNote{}, ErrEmptyNote
	}
	epoch := c.registry.begin(callID, flagNotes, clearNotesError)

	opCtx, cancel := c.scopes.op(ctx, callID)
	defer cancel()
	note, err := c.remote.UpdateNote(opCtx, noteID, types.UpdateNoteRequest{Content: content})
	if err != nil {
		c.fail(callID, epoch, "update_note", err)
		return types.StickyNote{}, err
	}
	stamp := c.now()
	if note != nil && note.UpdatedAt != nil {
		stamp = *note.UpdatedAt
	}
	if note != nil && note.Content != "" {
		content = note.Content
	}
	var updated types.StickyNote
	c.registry.finish(callID, epoch, flagNotes, func(s types.CallState) types.CallState {
		for i := range s.Notes {
			if s.Notes[i].ID != noteID {
				continue
			}
			ts := stamp
			s.Notes[i].Content = content
			s.Notes[i].UpdatedAt = &ts
			updated = s.Notes[i]
		}
		return s
	})
	if updated.ID == "" && note != nil {
		updated = *note
	}
	return updated, nil
}

func (c *NotesController) Delete(ctx context.Context, callID, noteID string) error {
	if callID == "" {
		return ErrCallIDRequired
	}
	epoch := c.registry.begin(callID, flagNotes, clearNotesError)

	opCtx, cancel := c.scopes.op(ctx, callID)
	defer cancel()
	if err := c.remote.DeleteNote(opCtx, noteID); err != nil {
		c.fail(callID, epoch, "delete_note", err)
		return err
	}
	c.registry.finish(callID, epoch, flagNotes, func(s types.CallState) types.CallState {
		kept := s.Notes[:0]
		for _, note := range s.Notes {
			if note.ID != noteID {
				kept = append(kept, note)
			}
		}
		s.Notes = kept
		return s
	})
	return nil
}

// UpdateDocumentNotes sets the text locally before the remote write. A
// failed write is reported through NotesError and the local text stays.
func (c *NotesController) UpdateDocumentNotes(ctx context.Context, callID, content string) error {
	if callID == "" {
		return ErrCallIDRequired
	}
	seq := c.nextDocSeq(callID)
	epoch, _ := c.registry.apply(callID, func(s types.CallState) types.CallState {
		s.DocumentNotes = content
		return s
	})

	opCtx, cancel := c.scopes.op(ctx, callID)
	defer cancel()
	err := c.remote.UpdateDocumentNotes(opCtx, callID, content)
	if err == nil {
		return nil
	}
	c.logger.Warn("remote_failed", logging.Call(callID), logging.Op("update_document_notes"), logging.Err(err))
	if c.latestDoc(callID, seq) {
		c.registry.commit(callID, epoch, func(s types.CallState) types.CallState {
			s.NotesError = errorText(err)
			return s
		})
	}
	return err
}

func (c *NotesController) fail(callID string, epoch uint64, op string, err error) {
	c.logger.Warn("remote_failed", logging.Call(callID), logging.Op(op), logging.Err(err))
	c.registry.finish(callID, epoch, flagNotes, func(s types.CallState) types.CallState {
		s.NotesError = errorText(err)
		return s
	})
}

func (c *NotesController) nextDocSeq(callID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docSeq[callID]++
	return c.docSeq[callID]
}

func (c *NotesController) latestDoc(callID string, seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.docSeq[callID] == seq
}

func (c *NotesController) docWritten(callID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.docSeq[callID] > 0
}

func (c *NotesController) forget(callID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.docSeq, callID)
}

// mergeNotes keeps the server order and appends local notes the server
// did not return yet.
func mergeNotes(server, local []types.StickyNote) []types.StickyNote {
	out := types.CloneNotes(server)
	seen := make(map[string]struct{}, len(out))
	for _, note := range out {
		seen[note.ID] = struct{}{}
	}
	for _, note := range local {
		if _, ok := seen[note.ID]; ok {
			continue
		}
		out = append(out, note)
	}
	return out
}

func upsertNote(notes []types.StickyNote, note types.StickyNote) []types.StickyNote {
	for i := range notes {
		if notes[i].ID == note.ID {
			notes[i] = note
			return notes
		}
	}
	return append(notes, note)
}
