package model

import (
	"encoding/json"
	"strconv"
)

// ID is a POI identifier. Snapshot and search sources deliver ids as either
// JSON numbers or strings; both decode into the same string form. IDs are
// only unique within their own source.
type ID string

// UnmarshalJSON accepts a string or a number.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// FromInt builds an ID from a numeric source id.
func FromInt(n int64) ID {
	return ID(strconv.FormatInt(n, 10))
}

// Coordinate is an immutable geographic position.
// Lat is in [-90, 90], Lng in [-180, 180]; callers validate, not the model.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// CatalogEntry is a raw record from the static POI snapshot.
type CatalogEntry struct {
	ID          ID         `json:"id"`
	Name        string     `json:"name"`
	Location    Coordinate `json:"location"`
	PhotoURL    string     `json:"photo_url"`
	Description string     `json:"description,omitempty"`
	Reviews     []string   `json:"reviews,omitempty"`
}

// POI is the canonical point-of-interest shape the engine works with.
// Catalog entries and search results are both normalized into it; the two
// sources are never mixed in one list, so IDs only need to be unique within
// their own source.
type POI struct {
	ID          ID         `json:"id"`
	Name        string     `json:"name"`
	Coordinate  Coordinate `json:"coordinate"`
	DistanceKm  *float64   `json:"distance_km"` // nil until a reference point is known
	ImageURL    string     `json:"image_url,omitempty"`
	Description string     `json:"description,omitempty"`
	Reviews     []string   `json:"reviews,omitempty"`
}

// DisplayMode says which POI list is authoritative for rendering.
type DisplayMode string

const (
	ModeRecommend DisplayMode = "recommend"
	ModeSearch    DisplayMode = "search"
)

// SessionStatus is the fetch/status line shown alongside the POI list.
type SessionStatus struct {
	IsFetching    bool   `json:"is_fetching"`
	StatusMessage string `json:"status_message"`
}

// OriginID is the synthetic waypoint id for the user's position.
const OriginID = "origin"

// OriginName is the display label of the itinerary origin.
const OriginName = "Your Location"

// Waypoint is one stop of the itinerary. The origin always sits at index 0
// with ID == OriginID.
type Waypoint struct {
	ID         ID         `json:"id"`
	Name       string     `json:"name"`
	Coordinate Coordinate `json:"coordinate"`
}

// TravelEstimate is an on-demand routing result for a single POI.
type TravelEstimate struct {
	Minutes    int     `json:"minutes"`
	DistanceKm float64 `json:"distance_km"`
}
