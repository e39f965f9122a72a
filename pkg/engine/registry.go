package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Registry hands out per-client sessions and evicts idle ones. Eviction
// closes the session, cancelling its context so in-flight flows never
// commit into a dead session.
type Registry struct {
	logger *slog.Logger
	deps   Deps
	ttl    time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*registryEntry
}

type registryEntry struct {
	session  *Session
	lastSeen time.Time
}

// NewRegistry creates a registry and starts its eviction loop.
func NewRegistry(parent context.Context, deps Deps, ttl time.Duration) *Registry {
	ctx, cancel := context.WithCancel(parent)
	r := &Registry{
		logger:   slog.With("component", "registry"),
		deps:     deps,
		ttl:      ttl,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*registryEntry),
	}
	go r.evictLoop()
	return r
}

// Get returns the session for the client id, creating it on first use.
// Every call refreshes the idle timer.
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		e = &registryEntry{session: NewSession(r.ctx, id, r.deps)}
		r.sessions[id] = e
		r.logger.Info("session created", "session", id)
	}
	e.lastSeen = time.Now()
	return e.session
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close stops the eviction loop and closes every session.
func (r *Registry) Close() {
	r.cancel()
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.sessions {
		e.session.Close()
		delete(r.sessions, id)
	}
}

func (r *Registry) evictLoop() {
	interval := r.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case now := <-ticker.C:
			r.evictIdle(now)
		}
	}
}

func (r *Registry) evictIdle(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.sessions {
		if now.Sub(e.lastSeen) > r.ttl {
			e.session.Close()
			delete(r.sessions, id)
			r.logger.Info("session evicted", "session", id)
		}
	}
}
