package api

import (
	"net/http"

	"destinova/pkg/config"
	"destinova/pkg/store"
)

// ConfigHandler exposes the engine defaults the map client needs.
type ConfigHandler struct {
	cfg   *config.Config
	state store.StateStore
}

func NewConfigHandler(cfg *config.Config, st store.StateStore) *ConfigHandler {
	return &ConfigHandler{cfg: cfg, state: st}
}

// ConfigResponse is the client-facing configuration payload.
type ConfigResponse struct {
	RecommendRadiusKm  float64 `json:"recommend_radius_km"`
	SearchRadiusMeters int     `json:"search_radius_meters"`
	FallbackLat        float64 `json:"fallback_lat"`
	FallbackLng        float64 `json:"fallback_lng"`
	DefaultTheme       string  `json:"default_theme"`
	RoutingProfile     string  `json:"routing_profile"`
}

func (h *ConfigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	theme := h.cfg.Session.Theme
	// A theme stored from an earlier run wins over the config default.
	if h.state != nil {
		if saved, ok := h.state.GetState(r.Context(), "theme"); ok && saved != "" {
			theme = saved
		}
	}

	writeJSON(w, http.StatusOK, ConfigResponse{
		RecommendRadiusKm:  h.cfg.Catalog.RadiusKm,
		SearchRadiusMeters: int(h.cfg.Search.Radius.Meters()),
		FallbackLat:        h.cfg.Session.FallbackLat,
		FallbackLng:        h.cfg.Session.FallbackLng,
		DefaultTheme:       theme,
		RoutingProfile:     h.cfg.Routing.Profile,
	})
}
