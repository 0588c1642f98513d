package daemon

import (
	"context"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"callconsole/internal/logging"
	"callconsole/internal/types"
)

type API struct {
	Version     string
	Calls       *CallService
	Notes       *NoteService
	Chat        *ChatService
	Transcripts *TranscriptService
	Hub         *TranscriptHub
	Logger      logging.Logger
	Shutdown    func(context.Context) error
}

// Router builds the daemon's HTTP surface: public /health and /metrics,
// token-guarded /v1.
func (a *API) Router(token string, metrics bool) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(LoggingMiddleware(a.Logger))
	r.Use(TokenAuthMiddleware(token))

	r.Get("/health", a.Health)
	if metrics {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/shutdown", a.ShutdownDaemon)

		r.Get("/sessions", a.ListSessions)
		r.Post("/sessions", a.CreateSession)
		r.Post("/sessions/{callID}/activate", a.ActivateSession)
		r.Post("/sessions/{callID}/end", a.EndSession)

		r.Route("/calls/{callID}", func(r chi.Router) {
			r.Get("/", a.GetCall)
			r.Post("/hold", a.HoldCall)
			r.Post("/end", a.EndCall)
			r.Post("/transfer", a.TransferCall)

			r.Get("/notes", a.ListNotes)
			r.Post("/notes", a.CreateNote)
			r.Put("/document-notes", a.UpdateDocumentNotes)

			r.Get("/chat", a.ListChat)

			r.Get("/transcript", a.ListTranscript)
			r.Post("/transcript", a.AppendTranscript)
			r.Get("/transcript/stream", a.StreamTranscript)
		})

		r.Patch("/notes/{noteID}", a.UpdateNote)
		r.Delete("/notes/{noteID}", a.DeleteNote)

		r.Post("/chat", a.SendChat)
	})
	return r
}

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"version": a.Version,
		"pid":     os.Getpid(),
	})
}

func (a *API) ShutdownDaemon(w http.ResponseWriter, r *http.Request) {
	if a.Shutdown == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "shutdown not available"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	go func() {
		_ = a.Shutdown(context.Background())
	}()
}

func (a *API) ListSessions(w http.ResponseWriter, r *http.Request) {
	calls, err := a.Calls.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"calls": calls})
}

func (a *API) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req types.CreateSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	record, err := a.Calls.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.CreateSessionResponse{CallID: record.CallID, TabID: record.TabID})
}

func (a *API) ActivateSession(w http.ResponseWriter, r *http.Request) {
	record, err := a.Calls.Activate(r.Context(), chi.URLParam(r, "callID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (a *API) EndSession(w http.ResponseWriter, r *http.Request) {
	var req types.EndSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	record, err := a.Calls.End(r.Context(), chi.URLParam(r, "callID"), req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (a *API) GetCall(w http.ResponseWriter, r *http.Request) {
	record, err := a.Calls.Get(r.Context(), chi.URLParam(r, "callID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (a *API) HoldCall(w http.ResponseWriter, r *http.Request) {
	var req types.HoldCallRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	record, err := a.Calls.Hold(r.Context(), chi.URLParam(r, "callID"), req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (a *API) EndCall(w http.ResponseWriter, r *http.Request) {
	a.EndSession(w, r)
}

func (a *API) TransferCall(w http.ResponseWriter, r *http.Request) {
	var req types.TransferCallRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	record, err := a.Calls.Transfer(r.Context(), chi.URLParam(r, "callID"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (a *API) ListNotes(w http.ResponseWriter, r *http.Request) {
	resp, err := a.Notes.List(r.Context(), chi.URLParam(r, "callID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req types.CreateNoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	note, err := a.Notes.Create(r.Context(), chi.URLParam(r, "callID"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (a *API) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req types.UpdateNoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	note, err := a.Notes.Update(r.Context(), chi.URLParam(r, "noteID"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (a *API) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := a.Notes.Delete(r.Context(), chi.URLParam(r, "noteID")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *API) UpdateDocumentNotes(w http.ResponseWriter, r *http.Request) {
	var req types.DocumentNotesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if err := a.Notes.SetDocumentNotes(r.Context(), chi.URLParam(r, "callID"), req.Content); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *API) ListChat(w http.ResponseWriter, r *http.Request) {
	messages, err := a.Chat.List(r.Context(), chi.URLParam(r, "callID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (a *API) SendChat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	resp, err := a.Chat.Send(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) ListTranscript(w http.ResponseWriter, r *http.Request) {
	entries, err := a.Transcripts.List(r.Context(), chi.URLParam(r, "callID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (a *API) AppendTranscript(w http.ResponseWriter, r *http.Request) {
	var req types.AppendSegmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	entry, err := a.Transcripts.Append(r.Context(), chi.URLParam(r, "callID"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}
