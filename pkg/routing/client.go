// Package routing computes driving travel estimates between two points
// using an OSRM-compatible service.
package routing

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"destinova/pkg/config"
	"destinova/pkg/geo"
	"destinova/pkg/model"
	"destinova/pkg/request"
)

// Client talks to an OSRM route service.
type Client struct {
	logger   *slog.Logger
	client   *request.Client
	endpoint string
	profile  string
}

// New creates a routing client from the routing configuration.
func New(cfg *config.RoutingConfig, rc *request.Client) *Client {
	return &Client{
		logger:   slog.With("component", "routing"),
		client:   rc,
		endpoint: cfg.Endpoint,
		profile:  cfg.Profile,
	}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Duration float64 `json:"duration"` // seconds
		Distance float64 `json:"distance"` // meters
	} `json:"routes"`
}

// Estimate returns the fastest route between from and to as whole
// minutes and fractional kilometers.
func (c *Client) Estimate(ctx context.Context, from, to geo.Point) (model.TravelEstimate, error) {
	// OSRM wants lng,lat pairs.
	u := fmt.Sprintf("%s/route/v1/%s/%f,%f;%f,%f?overview=false",
		c.endpoint, c.profile, from.Lng, from.Lat, to.Lng, to.Lat)
	cacheKey := fmt.Sprintf("osrm:%x", md5.Sum([]byte(u)))

	body, err := c.client.Get(ctx, u, cacheKey)
	if err != nil {
		c.logger.Warn("route request failed", "error", err)
		return model.TravelEstimate{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var resp osrmResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Warn("unparseable route response", "error", err)
		return model.TravelEstimate{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.Code != "Ok" || len(resp.Routes) == 0 {
		return model.TravelEstimate{}, ErrNoRoute
	}

	r := resp.Routes[0]
	return model.TravelEstimate{
		Minutes:    int(math.Round(r.Duration / 60.0)),
		DistanceKm: r.Distance / 1000.0,
	}, nil
}
