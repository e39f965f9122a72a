// Package rank turns catalog entries into a distance-ordered
// recommendation list around a point of origin.
package rank

import (
	"log/slog"
	"sort"

	"destinova/pkg/geo"
	"destinova/pkg/model"
)

// Ranker filters catalog entries by distance from an origin and sorts
// the survivors nearest-first.
type Ranker struct {
	logger   *slog.Logger
	radiusKm float64
}

func New(radiusKm float64) *Ranker {
	return &Ranker{
		logger:   slog.With("component", "rank"),
		radiusKm: radiusKm,
	}
}

// RadiusKm reports the configured cutoff.
func (r *Ranker) RadiusKm() float64 {
	return r.radiusKm
}

// Recommend maps entries to POIs, drops everything beyond the radius
// and returns the rest ordered by ascending distance. Entries at the
// same distance keep their catalog order.
func (r *Ranker) Recommend(origin geo.Point, entries []model.CatalogEntry) []model.POI {
	if len(entries) == 0 {
		return nil
	}

	// Cheap rectangular prefilter before the haversine pass.
	bound := geo.BoundAroundKm(origin, r.radiusKm)

	pois := make([]model.POI, 0, len(entries))
	for _, e := range entries {
		loc := geo.FromCoordinate(e.Location)
		if !bound.Contains(loc.Orb()) {
			continue
		}
		d := geo.DistanceKm(origin, loc)
		if d > r.radiusKm {
			continue
		}
		dist := d
		pois = append(pois, model.POI{
			ID:          e.ID,
			Name:        e.Name,
			Coordinate:  e.Location,
			DistanceKm:  &dist,
			ImageURL:    e.PhotoURL,
			Description: e.Description,
			Reviews:     e.Reviews,
		})
	}

	sort.SliceStable(pois, func(i, j int) bool {
		return *pois[i].DistanceKm < *pois[j].DistanceKm
	})

	r.logger.Debug("ranked catalog", "candidates", len(entries), "within_radius", len(pois))
	return pois
}
