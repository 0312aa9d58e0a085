// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves the recorder's JSON API.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ManuGH/tvrec/internal/api/middleware"
	"github.com/ManuGH/tvrec/internal/channels"
	"github.com/ManuGH/tvrec/internal/dvr"
	"github.com/ManuGH/tvrec/internal/epg"
	"github.com/ManuGH/tvrec/internal/health"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Scheduler is the recording surface used by the handlers.
type Scheduler interface {
	Schedule(ctx context.Context, req dvr.ScheduleRequest) (dvr.ScheduleResult, error)
	Cancel(ctx context.Context, id string)
	Listing() dvr.Listing
}

// ProgramGuide lists upcoming programmes.
type ProgramGuide interface {
	Programs(ctx context.Context) ([]epg.Program, error)
}

// ChannelSource exposes the current channel catalog.
type ChannelSource interface {
	Current() *channels.Catalog
}

// Config controls the router.
type Config struct {
	RateLimitRPM   int
	TracingService string
	// ServeMetrics mounts /metrics on this router.
	ServeMetrics bool
	// Location interprets start times without an offset.
	Location *time.Location
}

// Deps are the collaborators behind the handlers.
type Deps struct {
	Scheduler Scheduler
	Guide     ProgramGuide
	Channels  ChannelSource
	Health    *health.Manager
}

// Server holds the handler state.
type Server struct {
	cfg  Config
	deps Deps
}

// New returns a server. A nil location selects time.Local.
func New(cfg Config, deps Deps) *Server {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Server{cfg: cfg, deps: deps}
}

// Handler builds the routed handler.
func (s *Server) Handler() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        s.cfg.TracingService,
		EnableLogging:         true,
	})

	if s.deps.Health != nil {
		r.Get("/healthz", s.deps.Health.ServeHealth)
		r.Get("/readyz", s.deps.Health.ServeReady)
	}
	if s.cfg.ServeMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		if s.cfg.RateLimitRPM > 0 {
			r.Use(middleware.RateLimit(middleware.RateLimitConfig{
				RequestLimit: s.cfg.RateLimitRPM,
				WindowSize:   time.Minute,
			}))
		}
		r.Get("/channels", s.handleChannels)
		r.Get("/epg", s.handleEPG)
		r.Get("/recordings", s.handleRecordings)
		r.Post("/schedule", s.handleSchedule)
		r.Delete("/schedule/{id}", s.handleCancel)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeNotFound(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})
	return r
}
