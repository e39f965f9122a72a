// Package catalog holds the static POI snapshot. The snapshot is loaded
// exactly once per process and frozen; every ranking call reads the same
// immutable slice.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"destinova/pkg/model"
)

// Store owns the frozen catalog snapshot.
type Store struct {
	logger *slog.Logger

	mu      sync.RWMutex
	loaded  bool
	entries []model.CatalogEntry
}

// NewStore creates an empty, unloaded store.
func NewStore() *Store {
	return &Store{
		logger: slog.With("component", "catalog"),
	}
}

// Load reads and parses the snapshot file. It is idempotent: once a load
// has succeeded, further calls are no-ops. A failed load leaves the store
// unloaded so a later retry is possible.
func (s *Store) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRead, err)
	}

	entries, err := parseSnapshot(data)
	if err != nil {
		return err
	}

	s.entries = entries
	s.loaded = true
	s.logger.Info("Catalog loaded", "path", path, "entries", len(entries))
	return nil
}

// Loaded reports whether a snapshot has been loaded.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Query returns the frozen snapshot in its original (curated) order.
// Before a successful load it returns an empty slice, not an error; callers
// must tolerate an empty catalog. The returned slice is shared and must be
// treated as read-only.
func (s *Store) Query() []model.CatalogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return nil
	}
	return s.entries
}

// parseSnapshot accepts either the plain JSON array shipped with the app
// (custom_poi_data.json) or a GeoJSON FeatureCollection.
func parseSnapshot(data []byte) ([]model.CatalogEntry, error) {
	if looksLikeFeatureCollection(data) {
		return parseGeoJSON(data)
	}

	var entries []model.CatalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return entries, nil
}

func looksLikeFeatureCollection(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func parseGeoJSON(data []byte) ([]model.CatalogEntry, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	entries := make([]model.CatalogEntry, 0, len(fc.Features))
	for i, f := range fc.Features {
		point, ok := f.Geometry.(orb.Point)
		if !ok {
			continue // only point features carry a POI
		}

		name := stringProp(f.Properties, "name")
		if name == "" {
			continue
		}

		id := stringProp(f.Properties, "id")
		if id == "" {
			id = strconv.Itoa(i)
		}

		entries = append(entries, model.CatalogEntry{
			ID:          model.ID(id),
			Name:        name,
			Location:    model.Coordinate{Lat: point.Lat(), Lng: point.Lon()},
			PhotoURL:    stringProp(f.Properties, "photo_url"),
			Description: stringProp(f.Properties, "description"),
		})
	}
	return entries, nil
}

func stringProp(props geojson.Properties, key string) string {
	if val, ok := props[key]; ok {
		if s, ok := val.(string); ok {
			return s
		}
		if f, ok := val.(float64); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	}
	return ""
}
