// SPDX-License-Identifier: MIT

// Command daemon runs the enrichment service: it serves the catalog
// API, exposes health probes and metrics, and executes enrichment runs
// on demand.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/api"
	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/cache"
	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/catalog"
	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/config"
	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/health"
	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/jobs"
	applog "github.com/HimashaRandil/spotify-recommendation-challenge/internal/log"
	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/spotify"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Level and service fall back to LOG_LEVEL / LOG_SERVICE, the same
	// keys config.FromEnv reads.
	applog.Configure(applog.Config{Version: version})
	logger := applog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		logger.Fatal().
			Err(err).
			Str(applog.FieldEvent, "config.invalid").
			Msg("invalid configuration")
	}

	if err := health.PerformStartupChecks(cfg); err != nil {
		logger.Fatal().
			Err(err).
			Str(applog.FieldEvent, "startup.check_failed").
			Msg("startup checks failed, verify configuration and permissions")
	}

	logger.Info().
		Str(applog.FieldEvent, "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", cfg.ListenAddr).
		Msg("starting mpd-enrich")

	logger.Info().Msgf("→ Data dir: %s", cfg.DataDir)
	logger.Info().Msgf("→ Interim dir: %s", cfg.InterimDir)
	logger.Info().Msgf("→ Catalog DB: %s", cfg.CatalogDB)
	logger.Info().Msgf("→ Cache: %s (TTL %s)", cfg.CacheBackend, cfg.CacheTTL)
	if cfg.HasSpotifyCredentials() {
		logger.Info().Msg("→ Spotify: credentials configured")
	} else {
		logger.Warn().Msg("→ Spotify: NO credentials, feature collection disabled")
	}
	if cfg.APIToken != "" {
		logger.Info().Msg("→ API token: configured")
	} else {
		logger.Warn().
			Str("security", "weak").
			Msg("→ API token: NOT configured (enrich endpoint open). Set MPD_API_TOKEN.")
	}

	store, err := catalog.NewStore(cfg.CatalogDB)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(applog.FieldEvent, "catalog.open_failed").
			Str(applog.FieldPath, cfg.CatalogDB).
			Msg("failed to open catalog database")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("catalog close failed")
		}
	}()

	featureCache, err := buildCache(cfg)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(applog.FieldEvent, "cache.init_failed").
			Msg("failed to initialise feature cache")
	}

	var client *spotify.Client
	if cfg.HasSpotifyCredentials() {
		client = spotify.New(spotify.Options{
			APIBase:           cfg.SpotifyAPIBase,
			TokenURL:          cfg.SpotifyTokenURL,
			ClientID:          cfg.SpotifyClientID,
			ClientSecret:      cfg.SpotifyClientSecret,
			RequestsPerSecond: cfg.RateLimitRPS,
		})
	}

	deps := jobs.Deps{
		Config: cfg,
		Store:  store,
		Cache:  featureCache,
	}
	if client != nil {
		deps.Client = client
	}
	runner := jobs.NewRunner(deps)

	healthM := health.NewManager(version, cfg.ReadyStrict)
	healthM.RegisterChecker(health.NewDataDirChecker(cfg.DataDir))
	healthM.RegisterChecker(health.NewCatalogChecker(store.PingContext))
	healthM.RegisterChecker(health.NewLastRunChecker(runner.LastRun))
	if client != nil {
		healthM.RegisterChecker(health.NewSpotifyChecker(client))
	}

	if cfg.EnrichOnStart {
		logger.Info().Str(applog.FieldEvent, "enrich.on_start").Msg("triggering enrichment run at startup")
		if err := runner.Start(ctx); err != nil {
			logger.Error().Err(err).Msg("startup enrichment failed to launch")
		}
	}

	if cfg.MetricsEnabled {
		go serveMetrics(ctx, cfg.MetricsAddr, logger)
	}

	// A typed nil *spotify.Client must not end up in the interface,
	// or the nil check in the handler never fires.
	var lookup api.TrackLookup
	if client != nil {
		lookup = client
	}

	srv := api.New(cfg, runner, store, lookup, healthM, version)
	logger.Info().
		Str(applog.FieldEvent, "api.listening").
		Str("addr", cfg.ListenAddr).
		Msg("API server listening")

	if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().
			Err(err).
			Str(applog.FieldEvent, "api.serve_failed").
			Msg("API server failed")
	}

	logger.Info().Str(applog.FieldEvent, "shutdown").Msg("shutdown complete")
}

func buildCache(cfg config.AppConfig) (cache.FeatureCache, error) {
	if cfg.CacheBackend == "redis" {
		return cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, applog.WithComponent("cache"))
	}
	return cache.NewMemoryCache(10 * time.Minute), nil
}

// serveMetrics runs the Prometheus endpoint on its own listener so
// scrapes never compete with API traffic.
func serveMetrics(ctx context.Context, addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().
		Str(applog.FieldEvent, "metrics.listening").
		Str("addr", addr).
		Msg("metrics server listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().
			Err(err).
			Str(applog.FieldEvent, "metrics.serve_failed").
			Msg("metrics server failed")
	}
}
