package engine

import "errors"

var (
	// ErrNoOrigin indicates an itinerary mutation before the user's
	// location was resolved.
	ErrNoOrigin = errors.New("origin not resolved")

	// ErrUnknownPOI indicates the referenced id is not in the active
	// POI list or itinerary.
	ErrUnknownPOI = errors.New("unknown poi")

	// ErrOriginFixed indicates an attempt to move or remove the origin
	// waypoint.
	ErrOriginFixed = errors.New("origin waypoint is fixed")

	// ErrBadIndex indicates an out-of-range itinerary position.
	ErrBadIndex = errors.New("itinerary index out of range")
)
