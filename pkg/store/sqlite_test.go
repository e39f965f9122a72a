package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"destinova/pkg/db"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	d, err := db.Init(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("db.Init() error = %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return NewSQLiteStore(d)
}

func TestCacheRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, hit := s.GetCache(ctx, "missing"); hit {
		t.Error("expected miss for unknown key")
	}

	payload := []byte(`{"elements":[{"id":1,"tags":{"name":"City Park"}}]}`)
	if err := s.SetCache(ctx, "overpass_abc", payload); err != nil {
		t.Fatalf("SetCache() error = %v", err)
	}

	got, hit := s.GetCache(ctx, "overpass_abc")
	if !hit {
		t.Fatal("expected hit after SetCache")
	}
	if string(got) != string(payload) {
		t.Errorf("GetCache() = %q, want %q", got, payload)
	}
}

func TestCachePrune(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SetCache(ctx, "old", []byte("v")); err != nil {
		t.Fatal(err)
	}

	// Everything is younger than an hour; prune must keep it.
	if err := s.db.PruneCache(time.Hour); err != nil {
		t.Fatalf("PruneCache() error = %v", err)
	}
	if _, hit := s.GetCache(ctx, "old"); !hit {
		t.Error("prune removed a fresh entry")
	}

	// Zero ttl prunes everything.
	if err := s.db.PruneCache(-time.Hour); err != nil {
		t.Fatalf("PruneCache() error = %v", err)
	}
	if _, hit := s.GetCache(ctx, "old"); hit {
		t.Error("prune kept a stale entry")
	}
}

func TestStateRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, ok := s.GetState(ctx, "theme"); ok {
		t.Error("expected no state for unknown key")
	}

	if err := s.SetState(ctx, "theme", "dark"); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}
	if err := s.SetState(ctx, "theme", "light"); err != nil {
		t.Fatalf("SetState() overwrite error = %v", err)
	}

	got, ok := s.GetState(ctx, "theme")
	if !ok || got != "light" {
		t.Errorf("GetState() = %q, %v; want \"light\", true", got, ok)
	}
}
