// Package overpass searches OpenStreetMap for named places around a
// point via the Overpass API.
package overpass

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"destinova/pkg/config"
	"destinova/pkg/geo"
	"destinova/pkg/model"
	"destinova/pkg/request"
	"destinova/pkg/tracker"
)

// Client queries the Overpass interpreter endpoint.
type Client struct {
	logger   *slog.Logger
	client   *request.Client
	tracker  *tracker.Tracker
	endpoint string
	radiusM  int
}

// New creates an Overpass client from the search configuration.
func New(cfg *config.SearchConfig, rc *request.Client, t *tracker.Tracker) *Client {
	return &Client{
		logger:   slog.With("component", "overpass"),
		client:   rc,
		tracker:  t,
		endpoint: cfg.Endpoint,
		radiusM:  int(cfg.Radius.Meters()),
	}
}

// overpassResponse mirrors the subset of the Overpass JSON output we use.
type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *overpassCenter   `json:"center,omitempty"`
	Tags   map[string]string `json:"tags"`
}

type overpassCenter struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Search finds named nodes and ways matching the query (case-insensitive
// substring) within the configured radius of origin. Results are
// normalized POIs sorted by ascending distance from origin.
func (c *Client) Search(ctx context.Context, query string, origin geo.Point) ([]model.POI, error) {
	ql := c.buildQuery(query, origin)
	u := c.endpoint + "?data=" + url.QueryEscape(ql)
	cacheKey := fmt.Sprintf("overpass:%x", md5.Sum([]byte(ql)))

	body, err := c.client.Get(ctx, u, cacheKey)
	if err != nil {
		c.logger.Warn("search request failed", "query", query, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var resp overpassResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Warn("unparseable search response", "query", query, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	pois := c.normalize(resp.Elements, origin)
	if len(pois) == 0 {
		c.tracker.TrackAPIZero("overpass")
	}
	c.logger.Debug("search complete", "query", query, "raw", len(resp.Elements), "usable", len(pois))
	return pois, nil
}

// buildQuery assembles an Overpass QL union over nodes and ways whose
// name matches the query, restricted to the search radius.
func (c *Client) buildQuery(query string, origin geo.Point) string {
	q := escapeRegex(query)
	around := fmt.Sprintf("(around:%d,%f,%f)", c.radiusM, origin.Lat, origin.Lng)
	return fmt.Sprintf(`[out:json];(node["name"~"%s",i]%s;way["name"~"%s",i]%s;);out center;`,
		q, around, q, around)
}

// escapeRegex neutralizes characters that would change the meaning of the
// name filter. Overpass treats the value as a POSIX regex; the app wants
// a literal substring match.
func escapeRegex(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '"', '.', '*', '+', '?', '(', ')', '[', ']', '{', '}', '^', '$', '|':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// normalize converts raw elements into POIs. Elements without a name tag
// or without any usable coordinate are dropped; ways fall back to their
// computed center.
func (c *Client) normalize(elements []overpassElement, origin geo.Point) []model.POI {
	pois := make([]model.POI, 0, len(elements))
	for _, e := range elements {
		name := e.Tags["name"]
		if name == "" {
			continue
		}

		lat, lng := e.Lat, e.Lon
		if lat == 0 && lng == 0 {
			if e.Center == nil {
				continue
			}
			lat, lng = e.Center.Lat, e.Center.Lon
		}

		d := geo.DistanceKm(origin, geo.Point{Lat: lat, Lng: lng})
		dist := d
		pois = append(pois, model.POI{
			ID:         model.FromInt(e.ID),
			Name:       name,
			Coordinate: model.Coordinate{Lat: lat, Lng: lng},
			DistanceKm: &dist,
		})
	}

	sort.SliceStable(pois, func(i, j int) bool {
		return *pois[i].DistanceKm < *pois[j].DistanceKm
	})
	return pois
}
