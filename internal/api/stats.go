package api

import (
	"net/http"

	"destinova/pkg/engine"
	"destinova/pkg/tracker"
)

// StatsHandler exposes provider counters and session totals.
type StatsHandler struct {
	tracker  *tracker.Tracker
	registry *engine.Registry
}

func NewStatsHandler(t *tracker.Tracker, r *engine.Registry) *StatsHandler {
	return &StatsHandler{tracker: t, registry: r}
}

// ProviderStatsDTO mirrors the tracker counters with a derived hit rate.
type ProviderStatsDTO struct {
	CacheHits     int64 `json:"cache_hits"`
	CacheMisses   int64 `json:"cache_misses"`
	APISuccess    int64 `json:"api_success"`
	APIZeroResult int64 `json:"api_zero"`
	APIFailures   int64 `json:"api_errors"`
	HitRate       int64 `json:"hit_rate"`
}

// StatsResponse is the stats API payload.
type StatsResponse struct {
	Sessions  int                         `json:"sessions"`
	Providers map[string]ProviderStatsDTO `json:"providers"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snapshot := h.tracker.Snapshot()

	resp := StatsResponse{
		Sessions:  h.registry.Len(),
		Providers: make(map[string]ProviderStatsDTO, len(snapshot)),
	}
	for provider, s := range snapshot {
		dto := ProviderStatsDTO{
			CacheHits:     s.CacheHits,
			CacheMisses:   s.CacheMisses,
			APISuccess:    s.APISuccess,
			APIZeroResult: s.APIZeroResult,
			APIFailures:   s.APIFailures,
		}
		if total := s.CacheHits + s.CacheMisses; total > 0 {
			dto.HitRate = s.CacheHits * 100 / total
		}
		resp.Providers[provider] = dto
	}

	writeJSON(w, http.StatusOK, resp)
}
