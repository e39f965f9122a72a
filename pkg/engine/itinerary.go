package engine

import "destinova/pkg/model"

// itinerary is the ordered waypoint sequence of a session. It is either
// empty or starts with the synthetic origin waypoint at index 0. Not
// safe for concurrent use; the owning session serializes access.
type itinerary struct {
	waypoints []model.Waypoint
}

func (it *itinerary) snapshot() []model.Waypoint {
	if len(it.waypoints) == 0 {
		return nil
	}
	out := make([]model.Waypoint, len(it.waypoints))
	copy(out, it.waypoints)
	return out
}

// setRoute replaces the whole itinerary with [origin, destination].
func (it *itinerary) setRoute(origin model.Coordinate, dest model.Waypoint) {
	it.waypoints = []model.Waypoint{
		{ID: model.OriginID, Name: model.OriginName, Coordinate: origin},
		dest,
	}
}

// addStop appends a waypoint, seeding the origin entry first when the
// itinerary is empty.
func (it *itinerary) addStop(origin model.Coordinate, stop model.Waypoint) {
	if len(it.waypoints) == 0 {
		it.waypoints = []model.Waypoint{
			{ID: model.OriginID, Name: model.OriginName, Coordinate: origin},
		}
	}
	it.waypoints = append(it.waypoints, stop)
}

// removeStop deletes the waypoint with the given id. When the last stop
// goes, the bare origin goes with it and the itinerary is empty again.
func (it *itinerary) removeStop(id model.ID) error {
	if id == model.OriginID {
		return ErrOriginFixed
	}
	for i, wp := range it.waypoints {
		if wp.ID == id {
			it.waypoints = append(it.waypoints[:i], it.waypoints[i+1:]...)
			if len(it.waypoints) == 1 {
				it.waypoints = nil
			}
			return nil
		}
	}
	return ErrUnknownPOI
}

// moveStop reorders the waypoint at position from to position to. The
// origin at index 0 takes part in neither end of the move.
func (it *itinerary) moveStop(from, to int) error {
	n := len(it.waypoints)
	if from <= 0 || from >= n || to <= 0 || to >= n {
		if from == 0 || to == 0 {
			return ErrOriginFixed
		}
		return ErrBadIndex
	}
	if from == to {
		return nil
	}
	wp := it.waypoints[from]
	rest := append(it.waypoints[:from], it.waypoints[from+1:]...)
	it.waypoints = append(rest[:to], append([]model.Waypoint{wp}, rest[to:]...)...)
	return nil
}

func (it *itinerary) clear() {
	it.waypoints = nil
}
