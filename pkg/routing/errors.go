package routing

import "errors"

var (
	// ErrUnavailable indicates the routing backend could not be reached
	// or returned garbage.
	ErrUnavailable = errors.New("routing service unavailable")

	// ErrNoRoute indicates the backend answered but found no route
	// between the two points.
	ErrNoRoute = errors.New("no route found")
)
