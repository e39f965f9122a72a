// Package api exposes the engine over HTTP: session state, search,
// itinerary mutation, travel estimates and the websocket map feed.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"destinova/pkg/version"
)

// NewServer creates and configures the HTTP server.
func NewServer(addr string, session *SessionHandler, itin *ItineraryHandler, est *EstimateHandler, stats *StatsHandler, cfg *ConfigHandler, feed *MapFeedHandler, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)
	mux.Handle("GET /api/stats", stats)
	mux.Handle("GET /api/config", cfg)

	mux.HandleFunc("POST /api/session/location", session.HandleLocation)
	mux.HandleFunc("GET /api/session/state", session.HandleState)
	mux.HandleFunc("POST /api/session/theme", session.HandleTheme)
	mux.HandleFunc("POST /api/session/select", session.HandleSelect)
	mux.HandleFunc("POST /api/search", session.HandleSearch)

	mux.HandleFunc("POST /api/itinerary/route", itin.HandleSetRoute)
	mux.HandleFunc("POST /api/itinerary/stops", itin.HandleAddStop)
	mux.HandleFunc("DELETE /api/itinerary/stops/{id}", itin.HandleRemoveStop)
	mux.HandleFunc("PATCH /api/itinerary/move", itin.HandleMoveStop)
	mux.HandleFunc("DELETE /api/itinerary", itin.HandleClear)

	mux.HandleFunc("GET /api/pois/{id}/travel-time", est.HandleGet)
	mux.HandleFunc("DELETE /api/pois/{id}/travel-time", est.HandleCancel)

	mux.HandleFunc("GET /api/map/feed", feed.Handle)

	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		// Call shutdown in a goroutine to allow the response to flush
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

// writeError sends a JSON error payload.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
