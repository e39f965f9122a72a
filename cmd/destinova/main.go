package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"destinova/internal/api"
	"destinova/pkg/catalog"
	"destinova/pkg/config"
	"destinova/pkg/db"
	"destinova/pkg/engine"
	"destinova/pkg/geo"
	"destinova/pkg/logging"
	"destinova/pkg/overpass"
	"destinova/pkg/rank"
	"destinova/pkg/request"
	"destinova/pkg/routing"
	"destinova/pkg/store"
	"destinova/pkg/tracker"
	"destinova/pkg/version"
)

var initConfig = flag.Bool("init-config", false, "Generate default config file and exit")

func main() {
	flag.Parse()

	// Optional .env for endpoint overrides; absence is fine.
	if err := godotenv.Load(); err == nil {
		fmt.Println("Loaded environment overrides from .env")
	}

	if *initConfig {
		if err := config.GenerateDefault("configs/destinova.yaml"); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated: configs/destinova.yaml")
		return
	}

	if err := run(context.Background(), "configs/destinova.yaml"); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("Destinova Started", "version", version.Version)

	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbConn.Close()
	st := store.NewSQLiteStore(dbConn)

	go pruneLoop(ctx, dbConn, time.Duration(appCfg.DB.CacheTTL))

	tr := tracker.New()
	reqClient := request.New(&appCfg.Request, st, tr)

	// Catalog load failure is non-fatal: sessions report it on their
	// status line and everything else keeps working.
	cat := catalog.NewStore()
	if err := cat.Load(appCfg.Catalog.Path); err != nil {
		slog.Error("Catalog unavailable", "path", appCfg.Catalog.Path, "error", err)
	}

	deps := engine.Deps{
		Catalog:   cat,
		Ranker:    rank.New(appCfg.Catalog.RadiusKm),
		Searcher:  overpass.New(&appCfg.Search, reqClient, tr),
		Estimator: routing.New(&appCfg.Routing, reqClient),
		Fallback: geo.Point{
			Lat: appCfg.Session.FallbackLat,
			Lng: appCfg.Session.FallbackLng,
		},
		DefaultTheme: appCfg.Session.Theme,
	}
	registry := engine.NewRegistry(ctx, deps, time.Duration(appCfg.Server.SessionTTL))
	defer registry.Close()

	return runServer(ctx, appCfg, registry, tr, st)
}

func runServer(ctx context.Context, cfg *config.Config, registry *engine.Registry, tr *tracker.Tracker, st store.Store) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	shutdownFunc := func() { quit <- syscall.SIGTERM }

	sessionH := api.NewSessionHandler(registry, st)
	srv := api.NewServer(cfg.Server.Address,
		sessionH,
		api.NewItineraryHandler(sessionH),
		api.NewEstimateHandler(sessionH),
		api.NewStatsHandler(tr, registry),
		api.NewConfigHandler(cfg, st),
		api.NewMapFeedHandler(sessionH),
		shutdownFunc,
	)
	srv.Handler = loggingMiddleware(srv.Handler)

	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// pruneLoop drops cached upstream responses past their TTL.
func pruneLoop(ctx context.Context, dbConn *db.DB, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := dbConn.PruneCache(ttl); err != nil {
				slog.Warn("Cache prune failed", "error", err)
			}
		}
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.RequestLogger.Info("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
