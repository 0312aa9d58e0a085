// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"strings"
	"time"

	"github.com/ManuGH/tvrec/internal/validate"
)

// Validate checks a resolved configuration. The data and output directories
// are created when missing.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.OneOf("LogLevel", strings.ToLower(cfg.LogLevel), []string{"trace", "debug", "info", "warn", "error"})
	v.Directory("DataDir", cfg.DataDir, false)

	v.NotEmpty("API.ListenAddr", cfg.API.ListenAddr)
	v.Positive("API.RateLimitRPM", cfg.API.RateLimitRPM)
	v.Positive("API.MaxConnections", cfg.API.MaxConnections)

	v.NotEmpty("Channels.File", cfg.Channels.File)

	v.URL("EPG.URL", cfg.EPG.URL, []string{"http", "https"})
	v.MinDuration("EPG.TTL", cfg.EPG.TTL, time.Minute)
	v.MinDuration("EPG.Timeout", cfg.EPG.Timeout, 100*time.Millisecond)
	v.Range("EPG.Days", cfg.EPG.Days, 1, 14)
	v.Positive("EPG.FetchesPerMinute", cfg.EPG.FetchesPerMinute)

	v.NotEmpty("Recording.Command", cfg.Recording.Command)
	v.NotEmpty("Recording.OutputDir", cfg.Recording.OutputDir)
	v.NotEmpty("Recording.UserAgent", cfg.Recording.UserAgent)
	v.MinDuration("Recording.ScanInterval", cfg.Recording.ScanInterval, time.Second)
	// The fire window is 60s wide; a scan interval above 30s could skip it entirely.
	if cfg.Recording.ScanInterval > 30*time.Second {
		v.AddError("Recording.ScanInterval", "must not exceed 30s", cfg.Recording.ScanInterval)
	}
	v.Location("Recording.Location", cfg.Recording.Location)

	if cfg.Telemetry.Enabled {
		v.OneOf("Telemetry.Exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("Telemetry.Endpoint", cfg.Telemetry.Endpoint)
	}

	return v.Err()
}
