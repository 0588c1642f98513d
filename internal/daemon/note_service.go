package daemon

import (
	"context"
	"errors"
	"strings"

	"callconsole/internal/store"
	"callconsole/internal/types"
)

type NoteService struct {
	notes store.NoteStore
	calls store.CallStore
}

func NewNoteService(repo store.Repository) *NoteService {
	if repo == nil {
		return &NoteService{}
	}
	return &NoteService{notes: repo.Notes(), calls: repo.Calls()}
}

// List returns the sticky notes and document notes of a call. A call the
// daemon has never seen has no notes.
func (s *NoteService) List(ctx context.Context, callID string) (*types.NotesResponse, error) {
	if s.notes == nil || s.calls == nil {
		return nil, unavailableError("note store not available", nil)
	}
	callID = strings.TrimSpace(callID)
	if callID == "" {
		return nil, invalidError("call id is required", nil)
	}
	notes, err := s.notes.ListByCall(ctx, callID)
	if err != nil {
		return nil, unavailableError("list notes", err)
	}
	resp := &types.NotesResponse{Notes: make([]types.StickyNote, 0, len(notes))}
	for _, note := range notes {
		resp.Notes = append(resp.Notes, *note)
	}
	record, ok, err := s.calls.Get(ctx, callID)
	if err != nil {
		return nil, unavailableError("load call", err)
	}
	if ok {
		resp.DocumentNotes = record.DocumentNotes
	}
	return resp, nil
}

func (s *NoteService) Create(ctx context.Context, callID string, req types.CreateNoteRequest) (*types.StickyNote, error) {
	if s.notes == nil {
		return nil, unavailableError("note store not available", nil)
	}
	callID = strings.TrimSpace(callID)
	if callID == "" {
		return nil, invalidError("call id is required", nil)
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, invalidError("note content is required", nil)
	}
	if req.NoteType != "" && req.NoteType != types.NoteTypeSticky {
		return nil, invalidError("unsupported note type: "+req.NoteType, nil)
	}
	note, err := s.notes.Upsert(ctx, &types.StickyNote{
		CallID:  callID,
		Content: req.Content,
		Color:   req.Color,
	})
	if err != nil {
		return nil, unavailableError("save note", err)
	}
	return note, nil
}

func (s *NoteService) Update(ctx context.Context, noteID string, req types.UpdateNoteRequest) (*types.StickyNote, error) {
	if s.notes == nil {
		return nil, unavailableError("note store not available", nil)
	}
	noteID = strings.TrimSpace(noteID)
	if noteID == "" {
		return nil, invalidError("note id is required", nil)
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, invalidError("note content is required", nil)
	}
	existing, ok, err := s.notes.Get(ctx, noteID)
	if err != nil {
		return nil, unavailableError("load note", err)
	}
	if !ok {
		return nil, notFoundError("note not found", nil)
	}
	existing.Content = req.Content
	note, err := s.notes.Upsert(ctx, existing)
	if err != nil {
		return nil, unavailableError("save note", err)
	}
	return note, nil
}

func (s *NoteService) Delete(ctx context.Context, noteID string) error {
	if s.notes == nil {
		return unavailableError("note store not available", nil)
	}
	err := s.notes.Delete(ctx, strings.TrimSpace(noteID))
	switch {
	case errors.Is(err, store.ErrNoteNotFound):
		return notFoundError("note not found", err)
	case err != nil:
		return unavailableError("delete note", err)
	}
	return nil
}

// SetDocumentNotes replaces the free-form document notes of a call.
func (s *NoteService) SetDocumentNotes(ctx context.Context, callID, content string) error {
	if s.calls == nil {
		return unavailableError("call store not available", nil)
	}
	_, err := s.calls.Update(ctx, strings.TrimSpace(callID), func(r *types.CallRecord) error {
		r.DocumentNotes = content
		return nil
	})
	switch {
	case errors.Is(err, store.ErrCallNotFound):
		return notFoundError("call not found", err)
	case err != nil:
		return unavailableError("save document notes", err)
	}
	return nil
}
