// Package engine owns per-session POI state: the active display mode
// and list, the session status line, the itinerary and on-demand
// travel estimates. All mutation funnels through the session mutex;
// async flows carry sequence numbers so stale completions never
// clobber fresher state.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"destinova/pkg/geo"
	"destinova/pkg/model"
	"destinova/pkg/rank"
)

// Status messages shown on the session status line.
const (
	statusRequestingLocation = "Requesting location access..."
	statusFinding            = "Finding recommendations..."
	statusNoRecommendations  = "No local recommendations found."
	statusSearching          = `Searching for "%s"...`
	statusNoResults          = `No results for "%s".`
	statusSearchFailed       = "Could not complete search."
	statusLocationDenied     = "Location denied."
	statusCatalogFailed      = "Could not load recommendations."
)

// Catalog is the read side of the POI snapshot store.
type Catalog interface {
	Loaded() bool
	Query() []model.CatalogEntry
}

// Searcher finds places around a point.
type Searcher interface {
	Search(ctx context.Context, query string, origin geo.Point) ([]model.POI, error)
}

// Estimator computes a travel estimate between two points.
type Estimator interface {
	Estimate(ctx context.Context, from, to geo.Point) (model.TravelEstimate, error)
}

// Deps are the capabilities a session orchestrates.
type Deps struct {
	Catalog      Catalog
	Ranker       *rank.Ranker
	Searcher     Searcher
	Estimator    Estimator
	Fallback     geo.Point
	DefaultTheme string
}

// Snapshot is the full render state of one session, consumed by the map
// surface and the REST state endpoint.
type Snapshot struct {
	SessionID string                            `json:"session_id"`
	Mode      model.DisplayMode                 `json:"mode"`
	POIs      []model.POI                       `json:"pois"`
	Origin    *model.Coordinate                 `json:"origin,omitempty"`
	Status    model.SessionStatus               `json:"status"`
	Itinerary []model.Waypoint                  `json:"itinerary"`
	Theme     string                            `json:"theme"`
	Selected  model.ID                          `json:"selected,omitempty"`
	Estimates map[model.ID]model.TravelEstimate `json:"estimates,omitempty"`
}

type estimateJob struct {
	seq    uint64
	cancel context.CancelFunc
}

// Session holds the engine state for one client.
type Session struct {
	id     string
	logger *slog.Logger
	deps   Deps

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	origin    *geo.Point
	mode      model.DisplayMode
	pois      []model.POI
	status    model.SessionStatus
	theme     string
	selected  model.ID
	itinerary itinerary

	recommendSeq uint64
	searchSeq    uint64

	estimates map[model.ID]model.TravelEstimate
	estSeq    map[model.ID]uint64
	estJobs   map[model.ID]*estimateJob

	// notify, when set, receives a snapshot after every committed
	// change. notifyGen identifies the current registration so a
	// stale consumer cannot detach its replacement.
	notify    func(Snapshot)
	notifyGen uint64
}

// NewSession creates a fresh session in recommend mode with the
// "requesting location" status, waiting for the client to report a
// position.
func NewSession(parent context.Context, id string, deps Deps) *Session {
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		id:     id,
		logger: slog.With("component", "engine", "session", id),
		deps:   deps,
		ctx:    ctx,
		cancel: cancel,
		mode:   model.ModeRecommend,
		status: model.SessionStatus{IsFetching: true, StatusMessage: statusRequestingLocation},
		theme:  deps.DefaultTheme,

		estimates: make(map[model.ID]model.TravelEstimate),
		estSeq:    make(map[model.ID]uint64),
		estJobs:   make(map[model.ID]*estimateJob),
	}
}

// ID returns the session's opaque client id.
func (s *Session) ID() string { return s.id }

// SetNotify registers the map-surface callback, replacing any earlier
// one, and returns a token for ClearNotify.
func (s *Session) SetNotify(fn func(Snapshot)) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifyGen++
	s.notify = fn
	return s.notifyGen
}

// ClearNotify detaches the callback registered under token. It is a
// no-op when a newer registration owns the slot, so a departing
// consumer never unhooks its replacement.
func (s *Session) ClearNotify(token uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notifyGen == token {
		s.notify = nil
	}
}

// Close tears the session down. In-flight flows observe the cancelled
// context and never commit.
func (s *Session) Close() {
	s.cancel()
	s.mu.Lock()
	for _, j := range s.estJobs {
		j.cancel()
	}
	s.mu.Unlock()
}

// Snapshot returns a copy of the current render state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID: s.id,
		Mode:      s.mode,
		POIs:      s.pois,
		Status:    s.status,
		Itinerary: s.itinerary.snapshot(),
		Theme:     s.theme,
		Selected:  s.selected,
	}
	if s.origin != nil {
		snap.Origin = &model.Coordinate{Lat: s.origin.Lat, Lng: s.origin.Lng}
	}
	if len(s.estimates) > 0 {
		est := make(map[model.ID]model.TravelEstimate, len(s.estimates))
		for k, v := range s.estimates {
			est[k] = v
		}
		snap.Estimates = est
	}
	return snap
}

// publish fires the notify callback outside the lock.
func (s *Session) publish(snap Snapshot, fn func(Snapshot)) {
	if fn != nil {
		fn(snap)
	}
}

// SetLocation records the client's position and kicks off the
// recommendation flow. denied selects the fallback coordinate first.
func (s *Session) SetLocation(lat, lng float64, denied bool) {
	s.mu.Lock()
	if denied {
		p := s.deps.Fallback
		s.origin = &p
		s.status = model.SessionStatus{IsFetching: true, StatusMessage: statusLocationDenied}
		s.logger.Info("location denied, using fallback", "lat", p.Lat, "lng", p.Lng)
	} else {
		s.origin = &geo.Point{Lat: lat, Lng: lng}
	}
	snap, fn := s.snapshotLocked(), s.notify
	s.mu.Unlock()
	s.publish(snap, fn)

	s.Recommend()
}

// Origin returns the resolved origin, if any.
func (s *Session) Origin() (geo.Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.origin == nil {
		return geo.Point{}, false
	}
	return *s.origin, true
}

// Recommend runs the catalog ranking flow against the current origin.
// A stale completion (an older flow finishing after a newer one was
// dispatched) is dropped.
func (s *Session) Recommend() {
	s.mu.Lock()
	if s.origin == nil {
		s.mu.Unlock()
		return
	}
	origin := *s.origin
	s.recommendSeq++
	seq := s.recommendSeq
	s.status = model.SessionStatus{IsFetching: true, StatusMessage: statusFinding}
	snap, fn := s.snapshotLocked(), s.notify
	s.mu.Unlock()
	s.publish(snap, fn)

	flow := uuid.NewString()
	s.logger.Debug("recommend flow started", "flow", flow, "seq", seq)

	go func() {
		var pois []model.POI
		msg := ""
		if !s.deps.Catalog.Loaded() {
			msg = statusCatalogFailed
		} else {
			pois = s.deps.Ranker.Recommend(origin, s.deps.Catalog.Query())
			if len(pois) == 0 {
				msg = statusNoRecommendations
			}
		}
		s.commitList(seq, &s.recommendSeq, model.ModeRecommend, pois, msg, flow)
	}()
}

// Search runs the place-search flow around the current origin (or the
// fallback when no location was ever resolved).
func (s *Session) Search(query string) {
	s.mu.Lock()
	origin := s.deps.Fallback
	if s.origin != nil {
		origin = *s.origin
	}
	s.searchSeq++
	seq := s.searchSeq
	s.status = model.SessionStatus{IsFetching: true, StatusMessage: fmt.Sprintf(statusSearching, query)}
	snap, fn := s.snapshotLocked(), s.notify
	s.mu.Unlock()
	s.publish(snap, fn)

	flow := uuid.NewString()
	s.logger.Debug("search flow started", "flow", flow, "seq", seq, "query", query)

	go func() {
		pois, err := s.deps.Searcher.Search(s.ctx, query, origin)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			// Prior mode and list stay as they are; only the status changes.
			s.commitStatus(seq, &s.searchSeq, statusSearchFailed, flow)
			return
		}
		msg := ""
		if len(pois) == 0 {
			msg = fmt.Sprintf(statusNoResults, query)
		}
		s.commitList(seq, &s.searchSeq, model.ModeSearch, pois, msg, flow)
	}()
}

// commitList atomically replaces mode and list together, unless the
// flow is stale or the session is gone.
func (s *Session) commitList(seq uint64, latest *uint64, mode model.DisplayMode, pois []model.POI, msg, flow string) {
	if s.ctx.Err() != nil {
		return
	}
	s.mu.Lock()
	if seq != *latest {
		s.mu.Unlock()
		s.logger.Debug("stale completion dropped", "flow", flow, "seq", seq)
		return
	}
	s.mode = mode
	s.pois = pois
	s.status = model.SessionStatus{IsFetching: false, StatusMessage: msg}
	snap, fn := s.snapshotLocked(), s.notify
	s.mu.Unlock()
	s.publish(snap, fn)
	s.logger.Debug("list committed", "flow", flow, "mode", mode, "count", len(pois))
}

// commitStatus updates only the status line, with the same staleness
// guard as commitList.
func (s *Session) commitStatus(seq uint64, latest *uint64, msg, flow string) {
	if s.ctx.Err() != nil {
		return
	}
	s.mu.Lock()
	if seq != *latest {
		s.mu.Unlock()
		s.logger.Debug("stale completion dropped", "flow", flow, "seq", seq)
		return
	}
	s.status = model.SessionStatus{IsFetching: false, StatusMessage: msg}
	snap, fn := s.snapshotLocked(), s.notify
	s.mu.Unlock()
	s.publish(snap, fn)
}

// SetTheme flips the cosmetic light/dark flag.
func (s *Session) SetTheme(theme string) {
	s.mu.Lock()
	s.theme = theme
	snap, fn := s.snapshotLocked(), s.notify
	s.mu.Unlock()
	s.publish(snap, fn)
}

// Select marks a POI as the one shown in the details modal. An empty id
// clears the selection.
func (s *Session) Select(id model.ID) error {
	s.mu.Lock()
	if id != "" && s.findPOILocked(id) == nil {
		s.mu.Unlock()
		return ErrUnknownPOI
	}
	s.selected = id
	snap, fn := s.snapshotLocked(), s.notify
	s.mu.Unlock()
	s.publish(snap, fn)
	return nil
}

// findPOILocked looks the id up in the active list.
func (s *Session) findPOILocked(id model.ID) *model.POI {
	for i := range s.pois {
		if s.pois[i].ID == id {
			return &s.pois[i]
		}
	}
	return nil
}

// waypointForLocked resolves an id to a waypoint from the active list.
func (s *Session) waypointForLocked(id model.ID) (model.Waypoint, error) {
	p := s.findPOILocked(id)
	if p == nil {
		return model.Waypoint{}, ErrUnknownPOI
	}
	return model.Waypoint{ID: p.ID, Name: p.Name, Coordinate: p.Coordinate}, nil
}

// SetRoute replaces the itinerary with [origin, poi]. Fails without a
// resolved origin, leaving the itinerary unchanged.
func (s *Session) SetRoute(id model.ID) error {
	return s.mutateItinerary(func() error {
		wp, err := s.waypointForLocked(id)
		if err != nil {
			return err
		}
		s.itinerary.setRoute(s.originCoordinateLocked(), wp)
		return nil
	})
}

// AddStop appends the POI to the itinerary.
func (s *Session) AddStop(id model.ID) error {
	return s.mutateItinerary(func() error {
		wp, err := s.waypointForLocked(id)
		if err != nil {
			return err
		}
		s.itinerary.addStop(s.originCoordinateLocked(), wp)
		return nil
	})
}

// RemoveStop deletes a stop; the origin cannot be removed.
func (s *Session) RemoveStop(id model.ID) error {
	return s.mutateItinerary(func() error {
		return s.itinerary.removeStop(id)
	})
}

// MoveStop reorders a stop; the origin cannot move.
func (s *Session) MoveStop(from, to int) error {
	return s.mutateItinerary(func() error {
		return s.itinerary.moveStop(from, to)
	})
}

// ClearItinerary empties the itinerary. Always succeeds, origin or not.
func (s *Session) ClearItinerary() {
	s.mu.Lock()
	s.itinerary.clear()
	snap, fn := s.snapshotLocked(), s.notify
	s.mu.Unlock()
	s.publish(snap, fn)
}

// mutateItinerary runs an itinerary mutation under the session lock,
// requiring a resolved origin and publishing on success.
func (s *Session) mutateItinerary(mutate func() error) error {
	s.mu.Lock()
	if s.origin == nil {
		s.mu.Unlock()
		return ErrNoOrigin
	}
	if err := mutate(); err != nil {
		s.mu.Unlock()
		return err
	}
	snap, fn := s.snapshotLocked(), s.notify
	s.mu.Unlock()
	s.publish(snap, fn)
	return nil
}

func (s *Session) originCoordinateLocked() model.Coordinate {
	return model.Coordinate{Lat: s.origin.Lat, Lng: s.origin.Lng}
}

// Itinerary returns a copy of the current waypoint sequence.
func (s *Session) Itinerary() []model.Waypoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itinerary.snapshot()
}

// RequestEstimate kicks off (or restarts) the travel estimate for one
// POI. A newer request for the same POI supersedes and cancels the
// older one; different POIs run in parallel.
func (s *Session) RequestEstimate(id model.ID) error {
	s.mu.Lock()
	if s.origin == nil {
		s.mu.Unlock()
		return ErrNoOrigin
	}
	p := s.findPOILocked(id)
	if p == nil {
		s.mu.Unlock()
		return ErrUnknownPOI
	}
	from := *s.origin
	to := geo.Point{Lat: p.Coordinate.Lat, Lng: p.Coordinate.Lng}

	if prev, ok := s.estJobs[id]; ok {
		prev.cancel()
	}
	s.estSeq[id]++
	seq := s.estSeq[id]
	ctx, cancel := context.WithCancel(s.ctx)
	s.estJobs[id] = &estimateJob{seq: seq, cancel: cancel}
	s.mu.Unlock()

	go func() {
		defer cancel()
		est, err := s.deps.Estimator.Estimate(ctx, from, to)

		s.mu.Lock()
		if s.estSeq[id] != seq || s.ctx.Err() != nil {
			s.mu.Unlock()
			return
		}
		delete(s.estJobs, id)
		if err != nil {
			// The POI simply shows no travel time.
			delete(s.estimates, id)
			s.mu.Unlock()
			s.logger.Debug("estimate failed", "poi", id, "error", err)
			return
		}
		s.estimates[id] = est
		snap, fn := s.snapshotLocked(), s.notify
		s.mu.Unlock()
		s.publish(snap, fn)
	}()
	return nil
}

// Estimate returns the cached travel estimate for a POI, if one has
// been computed and committed.
func (s *Session) Estimate(id model.ID) (model.TravelEstimate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	est, ok := s.estimates[id]
	return est, ok
}

// EstimatePending reports whether an estimate job for the POI is
// still in flight. Pollers use it to avoid re-requesting, which would
// supersede the running job.
func (s *Session) EstimatePending(id model.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.estJobs[id]
	return ok
}

// CancelEstimate aborts a pending estimate for a POI and invalidates
// its sequence, so a late completion cannot commit.
func (s *Session) CancelEstimate(id model.ID) {
	s.mu.Lock()
	if j, ok := s.estJobs[id]; ok {
		j.cancel()
		delete(s.estJobs, id)
	}
	s.estSeq[id]++
	s.mu.Unlock()
}
