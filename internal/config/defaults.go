// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

const (
	DefaultDataDir         = "/tmp"
	DefaultListenAddr      = ":5000"
	DefaultEPGURL          = "https://xmltvfr.fr/xmltv/xmltv_tnt.xml"
	DefaultEPGTTL          = time.Hour
	DefaultEPGTimeout      = 10 * time.Second
	DefaultEPGDays         = 7
	DefaultRecordCommand   = "/app/record.sh"
	DefaultChannelsFile    = "/app/channels.json"
	DefaultOutputDir       = "/recordings"
	DefaultUserAgent       = "Mozilla/5.0"
	DefaultScanInterval    = 10 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
)

func setDefaults(cfg *AppConfig) {
	cfg.DataDir = DefaultDataDir
	cfg.LogLevel = "info"
	cfg.LogService = "tvrec"

	cfg.API = APIConfig{
		ListenAddr:      DefaultListenAddr,
		RateLimitRPM:    600,
		MaxConnections:  256,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: DefaultShutdownTimeout,
	}

	cfg.Channels = ChannelsConfig{
		File:  DefaultChannelsFile,
		Watch: true,
	}

	cfg.EPG = EPGConfig{
		URL:              DefaultEPGURL,
		TTL:              DefaultEPGTTL,
		Timeout:          DefaultEPGTimeout,
		Days:             DefaultEPGDays,
		FetchesPerMinute: 6,
	}

	cfg.Recording = RecordingConfig{
		Command:      DefaultRecordCommand,
		OutputDir:    DefaultOutputDir,
		UserAgent:    DefaultUserAgent,
		ScanInterval: DefaultScanInterval,
	}

	cfg.Telemetry = TelemetryConfig{
		Exporter:     "grpc",
		SamplingRate: 1.0,
		Environment:  "production",
	}
}
