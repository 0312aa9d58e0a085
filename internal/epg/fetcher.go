// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package epg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ManuGH/tvrec/internal/cache"
	"github.com/ManuGH/tvrec/internal/log"
	"github.com/ManuGH/tvrec/internal/metrics"
	"github.com/ManuGH/tvrec/internal/resilience"
	"github.com/ManuGH/tvrec/internal/telemetry"
	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const cacheKey = "epg:xmltv"

var (
	// ErrUnavailable is returned when neither upstream nor the last-good copy can serve the guide.
	ErrUnavailable = errors.New("program guide unavailable")

	// ErrRateLimited is returned when upstream may not be contacted yet and no copy exists.
	ErrRateLimited = errors.New("program guide fetch rate limited")
)

// FetcherConfig configures guide acquisition.
type FetcherConfig struct {
	URL              string
	TTL              time.Duration
	Timeout          time.Duration
	FetchesPerMinute int
	LastGoodFile     string
}

// Fetcher serves the raw XMLTV document, refetching it at most once per TTL.
type Fetcher struct {
	cfg     FetcherConfig
	client  *http.Client
	cache   cache.Cache
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	now     func() time.Time
	logger  zerolog.Logger
}

// NewFetcher creates a fetcher storing fresh copies in c.
func NewFetcher(cfg FetcherConfig, c cache.Cache) *Fetcher {
	perMinute := cfg.FetchesPerMinute
	if perMinute <= 0 {
		perMinute = 6
	}
	return &Fetcher{
		cfg: cfg,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cache:   c,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
		breaker: resilience.NewCircuitBreaker("epg_upstream", 3, 5*time.Minute),
		now:     time.Now,
		logger:  log.WithComponent("epg"),
	}
}

// Raw returns the guide document. Sources in order: the cache, a last-good
// file younger than TTL, upstream, and finally a stale last-good file.
func (f *Fetcher) Raw(ctx context.Context) ([]byte, error) {
	if data, ok := f.cache.Get(cacheKey); ok {
		metrics.IncEPGFetch("cache")
		return data, nil
	}

	v, err, _ := f.group.Do(cacheKey, func() (any, error) {
		// the shared fetch must not die with the first caller's request
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.fetchTimeout())
		defer cancel()
		return f.load(fetchCtx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (f *Fetcher) load(ctx context.Context) ([]byte, error) {
	ctx, span := telemetry.Tracer("tvrec/epg").Start(ctx, "epg.load")
	defer span.End()

	if data, age, err := f.readLastGood(); err == nil && age < f.cfg.TTL {
		f.cache.Set(cacheKey, data, f.cfg.TTL-age)
		metrics.IncEPGFetch("cache")
		span.SetAttributes(telemetry.EPGAttributes("file", len(data))...)
		return data, nil
	}

	data, err := f.upstream(ctx)
	if err == nil {
		f.cache.Set(cacheKey, data, f.cfg.TTL)
		if werr := f.writeLastGood(data); werr != nil {
			f.logger.Warn().Err(werr).Str(log.FieldPath, f.cfg.LastGoodFile).Msg("could not store guide copy")
		}
		metrics.IncEPGFetch("upstream")
		span.SetAttributes(telemetry.EPGAttributes("upstream", len(data))...)
		return data, nil
	}

	f.logger.Warn().
		Err(err).
		Str(log.FieldEvent, "epg.fetch_failed").
		Str(log.FieldURL, f.cfg.URL).
		Msg("guide fetch failed, trying last good copy")

	if stale, _, rerr := f.readLastGood(); rerr == nil {
		metrics.IncEPGFetch("stale")
		span.SetAttributes(telemetry.EPGAttributes("stale", len(stale))...)
		return stale, nil
	}

	metrics.IncEPGFetch("error")
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if errors.Is(err, ErrRateLimited) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// upstream applies the fetch rate limit, then the circuit breaker. Rate
// limited attempts do not count as upstream failures.
func (f *Fetcher) upstream(ctx context.Context) ([]byte, error) {
	if !f.limiter.Allow() {
		return nil, ErrRateLimited
	}
	var data []byte
	err := f.breaker.Execute(func() error {
		var ferr error
		data, ferr = f.fetchUpstream(ctx)
		return ferr
	})
	return data, err
}

func (f *Fetcher) fetchUpstream(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch guide: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch guide: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxXMLSize+1))
	if err != nil {
		return nil, fmt.Errorf("read guide: %w", err)
	}
	if len(data) > maxXMLSize {
		return nil, fmt.Errorf("guide exceeds %d bytes", maxXMLSize)
	}

	f.logger.Info().
		Str(log.FieldEvent, "epg.fetched").
		Str(log.FieldURL, f.cfg.URL).
		Int("bytes", len(data)).
		Str(log.FieldTraceID, trace.SpanContextFromContext(ctx).TraceID().String()).
		Msg("fetched program guide")
	return data, nil
}

func (f *Fetcher) readLastGood() ([]byte, time.Duration, error) {
	if f.cfg.LastGoodFile == "" {
		return nil, 0, os.ErrNotExist
	}
	info, err := os.Stat(f.cfg.LastGoodFile)
	if err != nil {
		return nil, 0, err
	}
	// #nosec G304 -- path comes from operator configuration
	data, err := os.ReadFile(f.cfg.LastGoodFile)
	if err != nil {
		return nil, 0, err
	}
	return data, f.now().Sub(info.ModTime()), nil
}

func (f *Fetcher) writeLastGood(data []byte) error {
	if f.cfg.LastGoodFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(f.cfg.LastGoodFile), 0o750); err != nil {
		return err
	}
	return renameio.WriteFile(f.cfg.LastGoodFile, data, 0o600)
}

func (f *Fetcher) fetchTimeout() time.Duration {
	if f.cfg.Timeout > 0 {
		return f.cfg.Timeout + time.Second
	}
	return 30 * time.Second
}
