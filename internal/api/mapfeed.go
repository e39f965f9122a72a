package api

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"destinova/pkg/engine"
)

// MapFeedHandler pushes session snapshots to the map surface over a
// websocket. One feed per session; a newer connection replaces the
// older one.
type MapFeedHandler struct {
	logger   *slog.Logger
	sessions *SessionHandler
	upgrader websocket.Upgrader
}

func NewMapFeedHandler(s *SessionHandler) *MapFeedHandler {
	return &MapFeedHandler{
		logger:   slog.With("component", "mapfeed"),
		sessions: s,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Local single-user app, the map client is our own page.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handle upgrades the connection and streams snapshots until the client
// goes away. Browsers cannot set headers on websocket dials, so the
// session id also comes via the "session" query parameter.
func (h *MapFeedHandler) Handle(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	if id == "" {
		id = r.Header.Get(SessionHeader)
	}
	if id == "" {
		writeError(w, http.StatusBadRequest, "session id required")
		return
	}
	s := h.sessions.registry.Get(id)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	send := func(snap engine.Snapshot) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(snap); err != nil {
			h.logger.Debug("feed write failed", "session", id, "error", err)
		}
	}

	// Initial state, then every committed change.
	send(s.Snapshot())
	token := s.SetNotify(send)
	defer s.ClearNotify(token)

	h.logger.Info("map feed connected", "session", id)
	for {
		// Drain client frames; an error means the peer is gone.
		if _, _, err := conn.ReadMessage(); err != nil {
			h.logger.Info("map feed disconnected", "session", id)
			return
		}
	}
}
