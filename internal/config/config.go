// SPDX-License-Identifier: MIT

// Package config loads application configuration from the environment.
//
// Precedence is ENV > defaults. Spotify credentials keep their
// conventional names (SPOTIFY_CLIENT_ID / SPOTIFY_CLIENT_SECRET); all
// other keys use the MPD_ prefix.
package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// Defaults for the enrichment pipeline. Batch size is capped by the
// Spotify audio-features endpoint, which accepts at most 100 ids.
const (
	DefaultBatchSize       = 100
	MaxBatchSize           = 100
	DefaultCheckpointEvery = 10
	DefaultBatchDelay      = 100 * time.Millisecond
	DefaultRateLimitRPS    = 10.0

	DefaultSpotifyAPIBase  = "https://api.spotify.com/v1"
	DefaultSpotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// AppConfig holds the complete runtime configuration.
type AppConfig struct {
	// Dataset
	DataDir            string // directory containing mpd.slice.*.json files
	InterimDir         string // directory for exported JSON artifacts
	MaxSliceFiles      int    // 0 = process all slices
	ExtractConcurrency int    // 0 = GOMAXPROCS, clamped in the extractor

	// Spotify API
	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyAPIBase      string
	SpotifyTokenURL     string
	BatchSize           int
	BatchDelay          time.Duration
	CheckpointEvery     int
	RateLimitRPS        float64

	// Persistence
	CatalogDB string // SQLite database path

	// Feature cache
	CacheBackend  string // "memory" or "redis"
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// HTTP API
	ListenAddr     string
	APIToken       string
	MetricsEnabled bool
	MetricsAddr    string
	ReadyStrict    bool

	// Pipeline behaviour
	EnrichOnStart bool

	// Logging
	LogLevel   string
	LogService string
}

// FromEnv assembles an AppConfig from environment variables and defaults.
func FromEnv() AppConfig {
	dataDir := ParseString("MPD_DATA", "data/raw")
	return AppConfig{
		DataDir:            dataDir,
		InterimDir:         ParseString("MPD_INTERIM", "data/interim"),
		MaxSliceFiles:      ParseInt("MPD_MAX_SLICES", 0),
		ExtractConcurrency: ParseInt("MPD_EXTRACT_CONCURRENCY", 0),

		SpotifyClientID:     ParseString("SPOTIFY_CLIENT_ID", ""),
		SpotifyClientSecret: ParseString("SPOTIFY_CLIENT_SECRET", ""),
		SpotifyAPIBase:      ParseString("MPD_SPOTIFY_API_BASE", DefaultSpotifyAPIBase),
		SpotifyTokenURL:     ParseString("MPD_SPOTIFY_TOKEN_URL", DefaultSpotifyTokenURL),
		BatchSize:           ParseInt("MPD_BATCH_SIZE", DefaultBatchSize),
		BatchDelay:          ParseDuration("MPD_BATCH_DELAY", DefaultBatchDelay),
		CheckpointEvery:     ParseInt("MPD_CHECKPOINT_EVERY", DefaultCheckpointEvery),
		RateLimitRPS:        ParseFloat("MPD_RATE_LIMIT_RPS", DefaultRateLimitRPS),

		CatalogDB: ParseString("MPD_CATALOG_DB", filepath.Join("data", "catalog.db")),

		CacheBackend:  ParseString("MPD_CACHE_BACKEND", "memory"),
		CacheTTL:      ParseDuration("MPD_CACHE_TTL", 24*time.Hour),
		RedisAddr:     ParseString("MPD_REDIS_ADDR", "localhost:6379"),
		RedisPassword: ParseString("MPD_REDIS_PASSWORD", ""),
		RedisDB:       ParseInt("MPD_REDIS_DB", 0),

		ListenAddr:     ParseString("MPD_LISTEN", ":8080"),
		APIToken:       ParseString("MPD_API_TOKEN", ""),
		MetricsEnabled: ParseBool("MPD_METRICS_ENABLED", true),
		MetricsAddr:    ParseString("MPD_METRICS_ADDR", ":9090"),
		ReadyStrict:    ParseBool("MPD_READY_STRICT", false),

		EnrichOnStart: ParseBool("MPD_ENRICH_ON_START", false),

		LogLevel:   ParseString("LOG_LEVEL", "info"),
		LogService: ParseString("LOG_SERVICE", "mpd-enrich"),
	}
}

// HasSpotifyCredentials reports whether both credential halves are set.
func (c AppConfig) HasSpotifyCredentials() bool {
	return c.SpotifyClientID != "" && c.SpotifyClientSecret != ""
}

// Validate checks the configuration for values that cannot work at
// runtime. It normalises clampable fields in place.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data directory is empty")
	}
	if strings.TrimSpace(c.InterimDir) == "" {
		return fmt.Errorf("interim directory is empty")
	}
	if err := validateBaseURL("spotify API base", c.SpotifyAPIBase); err != nil {
		return err
	}
	if err := validateBaseURL("spotify token URL", c.SpotifyTokenURL); err != nil {
		return err
	}
	if c.BatchSize < 1 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BatchSize > MaxBatchSize {
		c.BatchSize = MaxBatchSize
	}
	if c.CheckpointEvery < 1 {
		c.CheckpointEvery = DefaultCheckpointEvery
	}
	if c.RateLimitRPS <= 0 {
		c.RateLimitRPS = DefaultRateLimitRPS
	}
	switch c.CacheBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported cache backend %q (want memory or redis)", c.CacheBackend)
	}
	if c.SpotifyClientID == "" && c.SpotifyClientSecret != "" {
		return fmt.Errorf("SPOTIFY_CLIENT_SECRET set without SPOTIFY_CLIENT_ID")
	}
	if c.SpotifyClientID != "" && c.SpotifyClientSecret == "" {
		return fmt.Errorf("SPOTIFY_CLIENT_ID set without SPOTIFY_CLIENT_SECRET")
	}
	return nil
}

func validateBaseURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported %s scheme %q", name, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s %q is missing host", name, raw)
	}
	return nil
}
