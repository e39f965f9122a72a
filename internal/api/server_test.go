package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"destinova/pkg/config"
	"destinova/pkg/engine"
	"destinova/pkg/geo"
	"destinova/pkg/model"
	"destinova/pkg/rank"
	"destinova/pkg/tracker"
)

var testOrigin = geo.Point{Lat: 10.7769, Lng: 106.7009}

type fakeSearcher struct {
	results []model.POI
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, _ string, _ geo.Point) ([]model.POI, error) {
	return f.results, f.err
}

type fakeEstimator struct {
	est model.TravelEstimate
	err error
}

func (f *fakeEstimator) Estimate(_ context.Context, _, _ geo.Point) (model.TravelEstimate, error) {
	return f.est, f.err
}

// slowEstimator answers after a delay and counts invocations, so tests
// can assert that polling does not restart the computation.
type slowEstimator struct {
	est   model.TravelEstimate
	delay time.Duration
	calls atomic.Int64
}

func (f *slowEstimator) Estimate(ctx context.Context, _, _ geo.Point) (model.TravelEstimate, error) {
	f.calls.Add(1)
	select {
	case <-time.After(f.delay):
		return f.est, nil
	case <-ctx.Done():
		return model.TravelEstimate{}, ctx.Err()
	}
}

type fakeCatalog struct {
	entries []model.CatalogEntry
}

func (f *fakeCatalog) Loaded() bool                { return f.entries != nil }
func (f *fakeCatalog) Query() []model.CatalogEntry { return f.entries }

type memState struct {
	mu sync.Mutex
	m  map[string]string
}

func (s *memState) GetState(_ context.Context, key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok
}

func (s *memState) SetState(_ context.Context, key, val string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == nil {
		s.m = make(map[string]string)
	}
	s.m[key] = val
	return nil
}

type testHarness struct {
	srv      *httptest.Server
	registry *engine.Registry
	shutdown chan struct{}
}

func newHarness(t *testing.T, searcher engine.Searcher, estimator engine.Estimator) *testHarness {
	t.Helper()

	deps := engine.Deps{
		Catalog: &fakeCatalog{entries: []model.CatalogEntry{
			{ID: "1", Name: "Cafe A", Location: model.Coordinate{Lat: 10.78, Lng: 106.70}},
			{ID: "2", Name: "Cafe B", Location: model.Coordinate{Lat: 10.90, Lng: 107.00}},
		}},
		Ranker:       rank.New(100),
		Searcher:     searcher,
		Estimator:    estimator,
		Fallback:     testOrigin,
		DefaultTheme: "light",
	}

	registry := engine.NewRegistry(context.Background(), deps, time.Minute)
	t.Cleanup(registry.Close)

	shutdown := make(chan struct{})
	sessionH := NewSessionHandler(registry, &memState{})
	httpSrv := NewServer("localhost:0",
		sessionH,
		NewItineraryHandler(sessionH),
		NewEstimateHandler(sessionH),
		NewStatsHandler(tracker.New(), registry),
		NewConfigHandler(config.DefaultConfig(), &memState{}),
		NewMapFeedHandler(sessionH),
		func() { close(shutdown) },
	)

	srv := httptest.NewServer(httpSrv.Handler)
	t.Cleanup(srv.Close)
	return &testHarness{srv: srv, registry: registry, shutdown: shutdown}
}

func (h *testHarness) do(t *testing.T, method, path, sessionID string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, reader)
	require.NoError(t, err)
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeSnapshot(t *testing.T, resp *http.Response) engine.Snapshot {
	t.Helper()
	var snap engine.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	return snap
}

// settle polls the state endpoint until the session stops fetching.
func (h *testHarness) settle(t *testing.T, sessionID string) engine.Snapshot {
	t.Helper()
	var snap engine.Snapshot
	require.Eventually(t, func() bool {
		resp := h.do(t, http.MethodGet, "/api/session/state", sessionID, nil)
		snap = decodeSnapshot(t, resp)
		return !snap.Status.IsFetching
	}, time.Second, 10*time.Millisecond)
	return snap
}

func (h *testHarness) locate(t *testing.T, sessionID string) {
	t.Helper()
	resp := h.do(t, http.MethodPost, "/api/session/location", sessionID,
		map[string]any{"lat": testOrigin.Lat, "lng": testOrigin.Lng})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	h.settle(t, sessionID)
}

func TestHealthAndVersion(t *testing.T) {
	h := newHarness(t, &fakeSearcher{}, &fakeEstimator{})

	resp := h.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/api/version", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var v map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	assert.NotEmpty(t, v["version"])
}

func TestSessionIDGeneratedWhenAbsent(t *testing.T) {
	h := newHarness(t, &fakeSearcher{}, &fakeEstimator{})

	resp := h.do(t, http.MethodGet, "/api/session/state", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(SessionHeader))
}

func TestLocationTriggersRecommendations(t *testing.T) {
	h := newHarness(t, &fakeSearcher{}, &fakeEstimator{})

	resp := h.do(t, http.MethodPost, "/api/session/location", "alice",
		map[string]any{"lat": testOrigin.Lat, "lng": testOrigin.Lng})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	snap := h.settle(t, "alice")
	assert.Equal(t, model.ModeRecommend, snap.Mode)
	require.Len(t, snap.POIs, 2)
	assert.Equal(t, "Cafe A", snap.POIs[0].Name)
}

func TestLocationDenied(t *testing.T) {
	h := newHarness(t, &fakeSearcher{}, &fakeEstimator{})

	resp := h.do(t, http.MethodPost, "/api/session/location", "bob",
		map[string]any{"denied": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	snap := h.settle(t, "bob")
	require.NotNil(t, snap.Origin)
	assert.Equal(t, testOrigin.Lat, snap.Origin.Lat)
	assert.Len(t, snap.POIs, 2)
}

func TestSearchFlow(t *testing.T) {
	h := newHarness(t, &fakeSearcher{results: []model.POI{
		{ID: "p1", Name: "City Park", Coordinate: model.Coordinate{Lat: 10.79, Lng: 106.71}},
	}}, &fakeEstimator{})

	resp := h.do(t, http.MethodPost, "/api/search", "carol", map[string]string{"query": "park"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	snap := h.settle(t, "carol")
	assert.Equal(t, model.ModeSearch, snap.Mode)
	require.Len(t, snap.POIs, 1)
	assert.Equal(t, "City Park", snap.POIs[0].Name)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	h := newHarness(t, &fakeSearcher{}, &fakeEstimator{})
	resp := h.do(t, http.MethodPost, "/api/search", "s", map[string]string{"query": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestItineraryLifecycle(t *testing.T) {
	h := newHarness(t, &fakeSearcher{}, &fakeEstimator{})
	h.locate(t, "dave")

	// Route requires a known POI.
	resp := h.do(t, http.MethodPost, "/api/itinerary/route", "dave", map[string]string{"id": "nope"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = h.do(t, http.MethodPost, "/api/itinerary/route", "dave", map[string]string{"id": "1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var it []model.Waypoint
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&it))
	require.Len(t, it, 2)
	assert.Equal(t, model.ID(model.OriginID), it[0].ID)
	assert.Equal(t, model.ID("1"), it[1].ID)

	resp = h.do(t, http.MethodPost, "/api/itinerary/stops", "dave", map[string]string{"id": "2"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&it))
	require.Len(t, it, 3)

	resp = h.do(t, http.MethodPatch, "/api/itinerary/move", "dave", map[string]int{"from": 1, "to": 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&it))
	assert.Equal(t, model.ID("2"), it[1].ID)

	resp = h.do(t, http.MethodDelete, "/api/itinerary/stops/1", "dave", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&it))
	require.Len(t, it, 2)

	resp = h.do(t, http.MethodDelete, "/api/itinerary", "dave", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := h.settle(t, "dave")
	assert.Empty(t, snap.Itinerary)
}

func TestItineraryWithoutLocation(t *testing.T) {
	h := newHarness(t, &fakeSearcher{}, &fakeEstimator{})

	resp := h.do(t, http.MethodPost, "/api/itinerary/route", "eve", map[string]string{"id": "1"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestTravelTimePolling(t *testing.T) {
	h := newHarness(t, &fakeSearcher{},
		&fakeEstimator{est: model.TravelEstimate{Minutes: 13, DistanceKm: 5.32}})
	h.locate(t, "frank")

	// First call kicks the computation off.
	resp := h.do(t, http.MethodGet, "/api/pois/1/travel-time", "frank", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		resp := h.do(t, http.MethodGet, "/api/pois/1/travel-time", "frank", nil)
		if resp.StatusCode != http.StatusOK {
			return false
		}
		var er EstimateResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&er))
		return er.Ready && er.Estimate != nil && er.Estimate.Minutes == 13
	}, time.Second, 10*time.Millisecond)
}

func TestTravelTimePollingKeepsJobRunning(t *testing.T) {
	estimator := &slowEstimator{
		est:   model.TravelEstimate{Minutes: 9, DistanceKm: 4.1},
		delay: 150 * time.Millisecond,
	}
	h := newHarness(t, &fakeSearcher{}, estimator)
	h.locate(t, "oscar")

	// Poll much faster than the backend answers; every poll before
	// completion must report 202 without restarting the job.
	require.Eventually(t, func() bool {
		resp := h.do(t, http.MethodGet, "/api/pois/1/travel-time", "oscar", nil)
		if resp.StatusCode != http.StatusOK {
			require.Equal(t, http.StatusAccepted, resp.StatusCode)
			return false
		}
		var er EstimateResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&er))
		return er.Ready && er.Estimate != nil && er.Estimate.Minutes == 9
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, int64(1), estimator.calls.Load())
}

func TestTravelTimeCancel(t *testing.T) {
	h := newHarness(t, &fakeSearcher{}, &fakeEstimator{})
	h.locate(t, "grace")

	resp := h.do(t, http.MethodDelete, "/api/pois/1/travel-time", "grace", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestThemeRoundTrip(t *testing.T) {
	h := newHarness(t, &fakeSearcher{}, &fakeEstimator{})

	resp := h.do(t, http.MethodPost, "/api/session/theme", "heidi", map[string]string{"theme": "dark"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decodeSnapshot(t, resp)
	assert.Equal(t, "dark", snap.Theme)
}

func TestSelectPOI(t *testing.T) {
	h := newHarness(t, &fakeSearcher{}, &fakeEstimator{})
	h.locate(t, "ivan")

	resp := h.do(t, http.MethodPost, "/api/session/select", "ivan", map[string]string{"id": "2"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decodeSnapshot(t, resp)
	assert.Equal(t, model.ID("2"), snap.Selected)

	resp = h.do(t, http.MethodPost, "/api/session/select", "ivan", map[string]string{"id": "ghost"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatsAndConfig(t *testing.T) {
	h := newHarness(t, &fakeSearcher{}, &fakeEstimator{})
	h.locate(t, "judy")

	resp := h.do(t, http.MethodGet, "/api/stats", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats StatsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 1, stats.Sessions)

	resp = h.do(t, http.MethodGet, "/api/config", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cfg ConfigResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cfg))
	assert.Equal(t, float64(100), cfg.RecommendRadiusKm)
	assert.Equal(t, "light", cfg.DefaultTheme)
}

func TestShutdownEndpoint(t *testing.T) {
	h := newHarness(t, &fakeSearcher{}, &fakeEstimator{})

	resp := h.do(t, http.MethodPost, "/api/shutdown", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case <-h.shutdown:
	case <-time.After(time.Second):
		t.Fatal("shutdown callback not invoked")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newHarness(t, &fakeSearcher{}, &fakeEstimator{})
	resp := h.do(t, http.MethodGet, "/api/search", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

