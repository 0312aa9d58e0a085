// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon wires the recorder's components and manages their lifecycle.
package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuGH/tvrec/internal/api"
	"github.com/ManuGH/tvrec/internal/cache"
	"github.com/ManuGH/tvrec/internal/channels"
	"github.com/ManuGH/tvrec/internal/config"
	"github.com/ManuGH/tvrec/internal/dvr"
	"github.com/ManuGH/tvrec/internal/epg"
	"github.com/ManuGH/tvrec/internal/health"
	"github.com/ManuGH/tvrec/internal/log"
	"github.com/ManuGH/tvrec/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const (
	// recordingDrainTimeout bounds how long shutdown waits for captures that are about to end.
	recordingDrainTimeout = 2 * time.Second

	cacheJanitorInterval = 5 * time.Minute
)

// Bootstrap builds the runtime for cfg. The returned App owns every component;
// cleanup runs as shutdown hooks once App.Run returns.
func Bootstrap(ctx context.Context, cfg config.AppConfig) (*App, error) {
	logger := log.WithComponent("daemon")

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		return nil, err
	}

	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "tvrec",
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Telemetry initialization failed, continuing without tracing")
		provider = nil
	}

	registry := channels.NewRegistry(cfg.Channels.File)
	if err := registry.Load(); err != nil {
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "channels.load_failed").
			Str(log.FieldPath, cfg.Channels.File).
			Msg("starting without channels")
	}
	applyChannelSettings(&cfg, registry.Current().Settings())

	guideCache, redisCache := buildCache(cfg, logger)

	fetcher := epg.NewFetcher(epg.FetcherConfig{
		URL:              cfg.EPG.URL,
		TTL:              cfg.EPG.TTL,
		Timeout:          cfg.EPG.Timeout,
		FetchesPerMinute: cfg.EPG.FetchesPerMinute,
		LastGoodFile:     cfg.EPG.CacheFile,
	}, guideCache)
	guide := epg.NewGuide(fetcher, registry.Current, cfg.EPG.Days, cfg.TimeLocation())

	store := dvr.NewStore(cfg.Recording.SnapshotFile)
	restored := store.Load()
	watcher := dvr.NewWatcher(store)
	launcher := dvr.NewLauncher(dvr.LauncherConfig{
		Command:   cfg.Recording.Command,
		OutputDir: cfg.Recording.OutputDir,
		UserAgent: cfg.Recording.UserAgent,
	}, registry, nil, store, watcher, nil)
	scheduler := dvr.NewScheduler(store, launcher, nil)
	if cfg.Recording.ScanInterval > 0 {
		scheduler.Interval = cfg.Recording.ScanInterval
	}
	service := dvr.NewService(store, nil)

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewFileChecker("channels_file", cfg.Channels.File))
	hm.RegisterChecker(health.NewDirWritableChecker("output_dir", cfg.Recording.OutputDir))
	hm.RegisterChecker(health.NewScanChecker(scheduler.LastScan, scanStaleAfter(scheduler.Interval)))
	if redisCache != nil {
		hm.RegisterChecker(health.NewPingChecker("redis", redisCache.HealthCheck))
	}

	apiServer := api.New(api.Config{
		RateLimitRPM:   cfg.API.RateLimitRPM,
		TracingService: "tvrec",
		ServeMetrics:   cfg.Metrics.ListenAddr == "",
		Location:       cfg.TimeLocation(),
	}, api.Deps{
		Scheduler: service,
		Guide:     guide,
		Channels:  registry,
		Health:    hm,
	})

	deps := Deps{
		Logger:     log.WithComponent("daemon"),
		APIHandler: apiServer.Handler(),
	}
	if cfg.Metrics.ListenAddr != "" {
		deps.MetricsHandler = promhttp.Handler()
		deps.MetricsAddr = cfg.Metrics.ListenAddr
	}

	mgr, err := NewManager(config.ServerConfigFor(cfg), deps)
	if err != nil {
		_ = guideCache.Close()
		return nil, fmt.Errorf("create manager: %w", err)
	}

	// Hooks run LIFO: recordings drain first, cache closes last.
	mgr.RegisterShutdownHook("guide_cache", func(context.Context) error {
		return guideCache.Close()
	})
	if provider != nil {
		mgr.RegisterShutdownHook("telemetry", provider.Shutdown)
	}
	mgr.RegisterShutdownHook("recordings", func(ctx context.Context) error {
		drainCtx, cancel := context.WithTimeout(ctx, recordingDrainTimeout)
		defer cancel()
		if err := watcher.Wait(drainCtx); err != nil {
			logger.Warn().
				Int("active", len(store.ListActive())).
				Msg("captures still running; they continue detached from the daemon")
		}
		return nil
	})

	logger.Info().
		Str(log.FieldEvent, "daemon.bootstrapped").
		Int("restored_schedules", restored).
		Int("channels", registry.Current().Len()).
		Str("output_dir", cfg.Recording.OutputDir).
		Msg("recorder initialised")

	return NewApp(logger, mgr, scheduler, registry, cfg.Channels.Watch), nil
}

// applyChannelSettings lets the channel file override recorder defaults that
// the operator did not set explicitly.
func applyChannelSettings(cfg *config.AppConfig, s channels.Settings) {
	if s.OutputDir != "" && cfg.Recording.OutputDir == config.DefaultOutputDir {
		cfg.Recording.OutputDir = s.OutputDir
	}
	if s.UserAgent != "" && cfg.Recording.UserAgent == config.DefaultUserAgent {
		cfg.Recording.UserAgent = s.UserAgent
	}
}

// buildCache prefers Redis when configured and falls back to memory when it is unreachable.
func buildCache(cfg config.AppConfig, logger zerolog.Logger) (cache.Cache, *cache.RedisCache) {
	if cfg.EPG.RedisAddr != "" {
		rc, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.EPG.RedisAddr,
			Password: cfg.EPG.RedisPassword,
			DB:       cfg.EPG.RedisDB,
		}, log.WithComponent("cache"))
		if err == nil {
			return rc, rc
		}
		logger.Warn().Err(err).Msg("redis unavailable, using in-memory guide cache")
	}
	return cache.NewMemoryCache(cacheJanitorInterval), nil
}

// scanStaleAfter is how old the last scan may get before readiness fails.
func scanStaleAfter(interval time.Duration) time.Duration {
	if d := 6 * interval; d > time.Minute {
		return d
	}
	return time.Minute
}
