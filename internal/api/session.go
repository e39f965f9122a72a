package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"destinova/pkg/engine"
	"destinova/pkg/model"
	"destinova/pkg/store"
)

// SessionHeader identifies the client session. The server generates an
// id when the client has none yet and echoes it back on every response.
const SessionHeader = "X-Session-ID"

// SessionHandler serves session lifecycle and list-flow endpoints.
type SessionHandler struct {
	registry *engine.Registry
	state    store.StateStore
}

func NewSessionHandler(r *engine.Registry, st store.StateStore) *SessionHandler {
	return &SessionHandler{registry: r, state: st}
}

// session resolves the request's session, creating one if needed.
func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) *engine.Session {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(SessionHeader, id)
	return h.registry.Get(id)
}

// LocationRequest reports the client's position, or its refusal to
// share one.
type LocationRequest struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Denied bool    `json:"denied"`
}

// HandleLocation records the position and kicks off the recommendation
// flow. The response is the immediate snapshot; the committed list
// arrives via state polling or the map feed.
func (h *SessionHandler) HandleLocation(w http.ResponseWriter, r *http.Request) {
	var req LocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s := h.session(w, r)
	s.SetLocation(req.Lat, req.Lng, req.Denied)
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// HandleState returns the full session snapshot.
func (h *SessionHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// ThemeRequest flips the cosmetic theme flag.
type ThemeRequest struct {
	Theme string `json:"theme"`
}

func (h *SessionHandler) HandleTheme(w http.ResponseWriter, r *http.Request) {
	var req ThemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Theme == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s := h.session(w, r)
	s.SetTheme(req.Theme)
	// Remember the choice across restarts.
	if h.state != nil {
		if err := h.state.SetState(r.Context(), "theme", req.Theme); err != nil {
			slog.Warn("Failed to persist theme", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// SelectRequest marks a POI for the details view; an empty id clears.
type SelectRequest struct {
	ID model.ID `json:"id"`
}

func (h *SessionHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s := h.session(w, r)
	if err := s.Select(req.ID); err != nil {
		writeError(w, http.StatusNotFound, "unknown poi")
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// SearchRequest starts a place search.
type SearchRequest struct {
	Query string `json:"query"`
}

func (h *SessionHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeError(w, http.StatusBadRequest, "query must not be empty")
		return
	}

	s := h.session(w, r)
	s.Search(req.Query)
	writeJSON(w, http.StatusAccepted, s.Snapshot())
}

// engineError maps engine sentinel errors onto status codes.
func engineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrNoOrigin):
		writeError(w, http.StatusConflict, "location not resolved yet")
	case errors.Is(err, engine.ErrUnknownPOI):
		writeError(w, http.StatusNotFound, "unknown poi")
	case errors.Is(err, engine.ErrOriginFixed):
		writeError(w, http.StatusBadRequest, "origin waypoint is fixed")
	case errors.Is(err, engine.ErrBadIndex):
		writeError(w, http.StatusBadRequest, "index out of range")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
