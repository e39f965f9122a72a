package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"

	"destinova/pkg/model"
)

// Point represents a geographic coordinate.
type Point struct {
	Lat float64
	Lng float64
}

// FromCoordinate adapts a model coordinate for distance math.
func FromCoordinate(c model.Coordinate) Point {
	return Point{Lat: c.Lat, Lng: c.Lng}
}

// earthRadiusKm is the mean Earth radius used for all distance math.
const earthRadiusKm = 6371.0

// DistanceKm calculates the Haversine distance between two points in
// kilometers. Symmetric, zero for identical points. Out-of-range
// coordinates are accepted as-is; validation is the caller's job.
func DistanceKm(p1, p2 Point) float64 {
	dLat := (p2.Lat - p1.Lat) * (math.Pi / 180.0)
	dLng := (p2.Lng - p1.Lng) * (math.Pi / 180.0)
	lat1 := p1.Lat * (math.Pi / 180.0)
	lat2 := p2.Lat * (math.Pi / 180.0)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLng/2)*math.Sin(dLng/2)*math.Cos(lat1)*math.Cos(lat2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// Orb converts the point to orb's lng/lat ordering.
func (p Point) Orb() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// BoundAroundKm returns a bounding box covering radiusKm around center.
// The box over-covers (it circumscribes the circle), so it is only useful
// as a cheap prefilter before an exact DistanceKm check.
func BoundAroundKm(center Point, radiusKm float64) orb.Bound {
	return orbgeo.NewBoundAroundPoint(center.Orb(), radiusKm*1000.0)
}
