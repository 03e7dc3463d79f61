package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/knsh/nvrconsole/events"
	"github.com/knsh/nvrconsole/models"
)

// SessionHandler exposes the review-session state machine to the browser.
// Opening a session hands out a uuid the frontend carries on every later
// call, so concurrent tabs drive independent sessions.
type SessionHandler struct {
	Sessions *events.Manager
}

type sessionView struct {
	SessionID string          `json:"session_id"`
	Session   events.Snapshot `json:"session"`
}

func (sh *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	var ev models.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "invalid event body: "+err.Error())
		return
	}
	if ev.EventID == "" || ev.Camera == "" {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "event_id and camera are required")
		return
	}

	id, s := sh.Sessions.Open(r.Context(), ev)
	writeJSON(w, http.StatusCreated, sessionView{SessionID: id, Session: s.Snapshot()})
}

func (sh *SessionHandler) lookup(w http.ResponseWriter, r *http.Request) (*events.Session, string, bool) {
	id := chi.URLParam(r, "session_id")
	s, ok := sh.Sessions.Get(id)
	if !ok {
		WriteAPIError(w, http.StatusNotFound, "session_not_found", "no such review session")
		return nil, id, false
	}
	return s, id, true
}

func (sh *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, id, ok := sh.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionView{SessionID: id, Session: s.Snapshot()})
}

// Select switches the open session to another event. The previous frame set
// is dropped before the new fetch is issued; a straggling response for the
// old event is discarded by the session's identity guard.
func (sh *SessionHandler) Select(w http.ResponseWriter, r *http.Request) {
	s, id, ok := sh.lookup(w, r)
	if !ok {
		return
	}
	var ev models.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "invalid event body: "+err.Error())
		return
	}
	s.Select(r.Context(), ev)
	writeJSON(w, http.StatusOK, sessionView{SessionID: id, Session: s.Snapshot()})
}

func (sh *SessionHandler) Enlarge(w http.ResponseWriter, r *http.Request) {
	s, id, ok := sh.lookup(w, r)
	if !ok {
		return
	}
	var req struct {
		Frame string `json:"frame"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Frame == "" {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "frame is required")
		return
	}

	switch err := s.Enlarge(req.Frame); {
	case errors.Is(err, events.ErrNotReady):
		WriteAPIError(w, http.StatusConflict, "not_ready", "frame list not loaded yet")
		return
	case errors.Is(err, events.ErrUnknownFrame):
		WriteAPIError(w, http.StatusNotFound, "unknown_frame", "frame not in loaded set")
		return
	case err != nil:
		WriteAPIError(w, http.StatusInternalServerError, "enlarge_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sessionView{SessionID: id, Session: s.Snapshot()})
}

func (sh *SessionHandler) Unenlarge(w http.ResponseWriter, r *http.Request) {
	s, id, ok := sh.lookup(w, r)
	if !ok {
		return
	}
	s.Unenlarge()
	writeJSON(w, http.StatusOK, sessionView{SessionID: id, Session: s.Snapshot()})
}

func (sh *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session_id")
	sh.Sessions.Close(id)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
