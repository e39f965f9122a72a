package tracker

import (
	"sync"
)

// ProviderStats holds usage counters for one upstream provider.
type ProviderStats struct {
	CacheHits     int64 `json:"cache_hits"`
	CacheMisses   int64 `json:"cache_misses"`
	APISuccess    int64 `json:"api_success"`
	APIFailures   int64 `json:"api_errors"`
	APIZeroResult int64 `json:"api_zero"`
}

// Tracker tracks usage statistics per provider (overpass, osrm, ...).
type Tracker struct {
	mu    sync.Mutex
	stats map[string]*ProviderStats
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		stats: make(map[string]*ProviderStats),
	}
}

func (t *Tracker) bump(provider string, f func(*ProviderStats)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.stats[provider]
	if !ok {
		s = &ProviderStats{}
		t.stats[provider] = s
	}
	f(s)
}

// TrackCacheHit increments the cache hit counter.
func (t *Tracker) TrackCacheHit(provider string) {
	t.bump(provider, func(s *ProviderStats) { s.CacheHits++ })
}

// TrackCacheMiss increments the cache miss counter.
func (t *Tracker) TrackCacheMiss(provider string) {
	t.bump(provider, func(s *ProviderStats) { s.CacheMisses++ })
}

// TrackAPISuccess increments the success counter.
func (t *Tracker) TrackAPISuccess(provider string) {
	t.bump(provider, func(s *ProviderStats) { s.APISuccess++ })
}

// TrackAPIFailure increments the failure counter.
func (t *Tracker) TrackAPIFailure(provider string) {
	t.bump(provider, func(s *ProviderStats) { s.APIFailures++ })
}

// TrackAPIZero counts a successful call that produced zero usable results.
func (t *Tracker) TrackAPIZero(provider string) {
	t.bump(provider, func(s *ProviderStats) { s.APIZeroResult++ })
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]ProviderStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	result := make(map[string]ProviderStats, len(t.stats))
	for k, v := range t.stats {
		result[k] = *v
	}
	return result
}
