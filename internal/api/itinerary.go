package api

import (
	"encoding/json"
	"net/http"

	"destinova/pkg/model"
)

// ItineraryHandler serves itinerary mutation endpoints.
type ItineraryHandler struct {
	sessions *SessionHandler
}

func NewItineraryHandler(s *SessionHandler) *ItineraryHandler {
	return &ItineraryHandler{sessions: s}
}

// RouteRequest picks the POI for a fresh origin→destination route.
type RouteRequest struct {
	ID model.ID `json:"id"`
}

// HandleSetRoute replaces the itinerary with [origin, poi].
func (h *ItineraryHandler) HandleSetRoute(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s := h.sessions.session(w, r)
	if err := s.SetRoute(req.ID); err != nil {
		engineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Itinerary())
}

// HandleAddStop appends a POI to the itinerary.
func (h *ItineraryHandler) HandleAddStop(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s := h.sessions.session(w, r)
	if err := s.AddStop(req.ID); err != nil {
		engineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Itinerary())
}

// HandleRemoveStop removes the stop in the path's {id}.
func (h *ItineraryHandler) HandleRemoveStop(w http.ResponseWriter, r *http.Request) {
	id := model.ID(r.PathValue("id"))
	s := h.sessions.session(w, r)
	if err := s.RemoveStop(id); err != nil {
		engineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Itinerary())
}

// MoveRequest reorders a stop.
type MoveRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (h *ItineraryHandler) HandleMoveStop(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s := h.sessions.session(w, r)
	if err := s.MoveStop(req.From, req.To); err != nil {
		engineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Itinerary())
}

// HandleClear empties the itinerary.
func (h *ItineraryHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.session(w, r)
	s.ClearItinerary()
	writeJSON(w, http.StatusOK, []model.Waypoint{})
}
