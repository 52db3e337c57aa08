package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/tablefilter/internal/eventbus"
	"github.com/matthewbaird/tablefilter/internal/filter/builder"
	"github.com/matthewbaird/tablefilter/internal/filter/tree"
	"github.com/matthewbaird/tablefilter/internal/rows"
	"github.com/matthewbaird/tablefilter/internal/session"
)

// SessionHandler exposes builder sessions over REST. Interactive editing
// happens over the WebSocket protocol.
type SessionHandler struct {
	sessions *session.Manager
	history  *eventbus.History
}

func NewSessionHandler(sessions *session.Manager, history *eventbus.History) *SessionHandler {
	return &SessionHandler{sessions: sessions, history: history}
}

// SessionResponse describes one session.
type SessionResponse struct {
	ID           string        `json:"id"`
	CreatedAt    time.Time     `json:"created_at"`
	LastActiveAt time.Time     `json:"last_active_at"`
	State        builder.State `json:"state"`
	Tree         *tree.Group   `json:"tree"`
	Loading      bool          `json:"loading"`
	Rows         []rows.Row    `json:"rows"`
}

func sessionResponse(s *session.Session) SessionResponse {
	return SessionResponse{
		ID:           s.ID,
		CreatedAt:    s.CreatedAt,
		LastActiveAt: s.LastActiveAt(),
		State:        s.Builder.State(),
		Tree:         s.Builder.Tree(),
		Loading:      s.Loader.Loading(),
		Rows:         s.Loader.Rows(),
	}
}

// Create starts a session. The optional body is a filter tree to start
// from.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}
	var initial *tree.Group
	if len(data) > 0 {
		var ok bool
		if initial, ok = parseTree(w, data); !ok {
			return
		}
	}
	writeJSON(w, http.StatusCreated, sessionResponse(h.sessions.Create(initial)))
}

// Get returns a session by id.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(s))
}

// Delete ends a session.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.lookup(w, r); !ok {
		return
	}
	h.sessions.Remove(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// Events lists a session's recent events, newest first.
func (h *SessionHandler) Events(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.history.Recent(s.ID, parseLimit(r, 20, 100)))
}

// AllEvents lists recent events across sessions, newest first.
func (h *SessionHandler) AllEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.history.Recent("", parseLimit(r, 20, 100)))
}

func (h *SessionHandler) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := chi.URLParam(r, "id")
	s := h.sessions.Get(id)
	if s == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "session not found: "+id)
		return nil, false
	}
	return s, true
}
