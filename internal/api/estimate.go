package api

import (
	"net/http"

	"destinova/pkg/model"
)

// EstimateHandler serves per-POI travel-time endpoints.
type EstimateHandler struct {
	sessions *SessionHandler
}

func NewEstimateHandler(s *SessionHandler) *EstimateHandler {
	return &EstimateHandler{sessions: s}
}

// EstimateResponse wraps a travel estimate with its readiness flag, so
// clients can poll until the async computation lands.
type EstimateResponse struct {
	Ready    bool                  `json:"ready"`
	Estimate *model.TravelEstimate `json:"estimate,omitempty"`
}

// HandleGet returns the cached estimate for a POI, kicking off the
// computation when none is cached yet. Clients poll until ready; a
// poll that finds the job still running leaves it alone, since
// re-requesting would cancel it.
func (h *EstimateHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := model.ID(r.PathValue("id"))
	s := h.sessions.session(w, r)

	if est, ok := s.Estimate(id); ok {
		writeJSON(w, http.StatusOK, EstimateResponse{Ready: true, Estimate: &est})
		return
	}
	if s.EstimatePending(id) {
		writeJSON(w, http.StatusAccepted, EstimateResponse{Ready: false})
		return
	}

	if err := s.RequestEstimate(id); err != nil {
		engineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, EstimateResponse{Ready: false})
}

// HandleCancel aborts a pending estimate for a POI.
func (h *EstimateHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id := model.ID(r.PathValue("id"))
	s := h.sessions.session(w, r)
	s.CancelEstimate(id)
	w.WriteHeader(http.StatusNoContent)
}
