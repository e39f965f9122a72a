package overpass

import "errors"

var (
	// ErrUnavailable indicates the search backend could not be reached
	// or returned garbage.
	ErrUnavailable = errors.New("search service unavailable")
)
