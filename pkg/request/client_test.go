package request

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"destinova/pkg/config"
	"destinova/pkg/db"
	"destinova/pkg/store"
	"destinova/pkg/tracker"
)

func newTestClient(t *testing.T) (*Client, *tracker.Tracker) {
	t.Helper()
	d, err := db.Init(filepath.Join(t.TempDir(), "client_test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })

	cfg := &config.RequestConfig{
		Retries: 3,
		Timeout: config.Duration(5 * time.Second),
		Backoff: config.BackoffConfig{
			BaseDelay: config.Duration(10 * time.Millisecond),
			MaxDelay:  config.Duration(100 * time.Millisecond),
		},
	}
	tr := tracker.New()
	return New(cfg, store.NewSQLiteStore(d), tr), tr
}

func TestGet_Retry(t *testing.T) {
	attempts := 0
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(429) // Too Many Requests
			return
		}
		w.WriteHeader(200)
		if _, err := w.Write([]byte("success")); err != nil {
			t.Logf("Write failed: %v", err)
		}
	}))
	defer svr.Close()

	client, _ := newTestClient(t)

	body, err := client.Get(context.Background(), svr.URL, "")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(body) != "success" {
		t.Errorf("body = %q, want success", body)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestGet_HardFailure(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
	}))
	defer svr.Close()

	client, tr := newTestClient(t)

	if _, err := client.Get(context.Background(), svr.URL, ""); err == nil {
		t.Fatal("expected error for 404")
	}

	snap := tr.Snapshot()
	host := svr.Listener.Addr().String()
	if snap[host].APIFailures != 1 {
		t.Errorf("expected one tracked failure, got %+v", snap)
	}
}

func TestGet_CacheSecondCall(t *testing.T) {
	hits := 0
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(200)
		if _, err := w.Write([]byte("payload")); err != nil {
			t.Logf("Write failed: %v", err)
		}
	}))
	defer svr.Close()

	client, _ := newTestClient(t)

	for i := 0; i < 2; i++ {
		body, err := client.Get(context.Background(), svr.URL, "cache_key")
		if err != nil {
			t.Fatalf("Get %d failed: %v", i, err)
		}
		if string(body) != "payload" {
			t.Errorf("body = %q", body)
		}
	}

	if hits != 1 {
		t.Errorf("server hits = %d, want 1 (second call must be served from cache)", hits)
	}
}

func TestGet_ContextCancelled(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(200)
	}))
	defer svr.Close()

	client, _ := newTestClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := client.Get(ctx, svr.URL, ""); err == nil {
		t.Fatal("expected context error")
	}
}

func TestNormalizeProvider(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"overpass-api.de", "overpass"},
		{"overpass.kumi.systems", "overpass"},
		{"router.project-osrm.org", "osrm"},
		{"example.com", "example.com"},
	}

	for _, tt := range tests {
		if got := normalizeProvider(tt.host); got != tt.want {
			t.Errorf("normalizeProvider(%q) = %q, want %q", tt.host, got, tt.want)
		}
	}
}
