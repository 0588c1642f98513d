package client

import (
	"context"
	"net/http"
	"net/url"

	"callconsole/internal/types"
)

func (c *Client) GetNotes(ctx context.Context, callID string) (*types.NotesResponse, error) {
	var resp types.NotesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/calls/"+url.PathEscape(callID)+"/notes", nil, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CreateNote(ctx context.Context, callID string, req types.CreateNoteRequest) (*types.StickyNote, error) {
	var note types.StickyNote
	if err := c.doJSON(ctx, http.MethodPost, "/v1/calls/"+url.PathEscape(callID)+"/notes", req, true, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

func (c *Client) UpdateNote(ctx context.Context, noteID string, req types.UpdateNoteRequest) (*types.StickyNote, error) {
	var note types.StickyNote
	if err := c.doJSON(ctx, http.MethodPatch, "/v1/notes/"+url.PathEscape(noteID), req, true, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

func (c *Client) DeleteNote(ctx context.Context, noteID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/notes/"+url.PathEscape(noteID), nil, true, nil)
}

func (c *Client) UpdateDocumentNotes(ctx context.Context, callID, content string) error {
	body := types.DocumentNotesRequest{Content: content}
	return c.doJSON(ctx, http.MethodPut, "/v1/calls/"+url.PathEscape(callID)+"/document-notes", body, true, nil)
}
