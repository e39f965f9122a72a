package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Request RequestConfig `yaml:"request"`
	Log     LogConfig     `yaml:"log"`
	DB      DBConfig      `yaml:"db"`
	Server  ServerConfig  `yaml:"server"`
	Catalog CatalogConfig `yaml:"catalog"`
	Search  SearchConfig  `yaml:"search"`
	Routing RoutingConfig `yaml:"routing"`
	Session SessionConfig `yaml:"session"`
}

// RequestConfig holds HTTP request settings.
type RequestConfig struct {
	Retries int           `yaml:"retries"`
	Timeout Duration      `yaml:"timeout"`
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path     string   `yaml:"path"`
	CacheTTL Duration `yaml:"cache_ttl"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address    string   `yaml:"address"`
	SessionTTL Duration `yaml:"session_ttl"`
}

// CatalogConfig holds settings for the static POI snapshot.
type CatalogConfig struct {
	Path     string  `yaml:"path"`
	RadiusKm float64 `yaml:"radius_km"` // recommendation cutoff
}

// SearchConfig holds settings for the external place search.
type SearchConfig struct {
	Endpoint string   `yaml:"endpoint"`
	Radius   Distance `yaml:"radius"`
}

// RoutingConfig holds settings for the travel-time service.
type RoutingConfig struct {
	Endpoint string `yaml:"endpoint"`
	Profile  string `yaml:"profile"` // e.g. "driving"
}

// SessionConfig holds per-session defaults.
type SessionConfig struct {
	FallbackLat float64 `yaml:"fallback_lat"`
	FallbackLng float64 `yaml:"fallback_lng"`
	Theme       string  `yaml:"theme"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Request: RequestConfig{
			Retries: 3,
			Timeout: Duration(30 * time.Second),
			Backoff: BackoffConfig{
				BaseDelay: Duration(500 * time.Millisecond),
				MaxDelay:  Duration(30 * time.Second),
			},
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path:     "./data/destinova.db",
			CacheTTL: Duration(Day),
		},
		Server: ServerConfig{
			Address:    "localhost:1931",
			SessionTTL: Duration(30 * time.Minute),
		},
		Catalog: CatalogConfig{
			Path:     "./data/custom_poi_data.json",
			RadiusKm: 100,
		},
		Search: SearchConfig{
			Endpoint: "https://overpass-api.de/api/interpreter",
			Radius:   Distance(20000), // 20km
		},
		Routing: RoutingConfig{
			Endpoint: "https://router.project-osrm.org",
			Profile:  "driving",
		},
		Session: SessionConfig{
			FallbackLat: 10.7769,
			FallbackLng: 106.7009,
			Theme:       "light",
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT
// save back to disk (to preserve user formatting and comments).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		// Env fallbacks for endpoints (not saved back to disk)
		if ep := os.Getenv("OVERPASS_ENDPOINT"); ep != "" {
			cfg.Search.Endpoint = ep
		}
		if ep := os.Getenv("OSRM_ENDPOINT"); ep != "" {
			cfg.Routing.Endpoint = ep
		}

		return cfg, nil
	}

	if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Destinova Configuration
# ---------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
#   Distance: m (meters), km (kilometers)

`)
	data = append(header, data...)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil // File exists, do nothing
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
