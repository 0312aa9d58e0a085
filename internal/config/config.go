// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the daemon configuration.
//
// Precedence is ENV > YAML file > defaults. The result is an immutable
// AppConfig value that is handed to each component's constructor.
package config

import (
	"path/filepath"
	"time"
)

// AppConfig is the fully resolved runtime configuration.
type AppConfig struct {
	Version    string
	DataDir    string
	LogLevel   string
	LogService string

	API       APIConfig
	Metrics   MetricsConfig
	Channels  ChannelsConfig
	EPG       EPGConfig
	Recording RecordingConfig
	Telemetry TelemetryConfig
}

// APIConfig configures the HTTP surface.
type APIConfig struct {
	ListenAddr      string
	RateLimitRPM    int
	MaxConnections  int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// MetricsConfig configures the Prometheus listener. An empty address serves
// /metrics on the API listener instead.
type MetricsConfig struct {
	ListenAddr string
}

// ChannelsConfig points at the channel definition file.
type ChannelsConfig struct {
	File  string
	Watch bool
}

// EPGConfig configures guide acquisition.
type EPGConfig struct {
	URL              string
	TTL              time.Duration
	Timeout          time.Duration
	Days             int
	FetchesPerMinute int
	CacheFile        string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
}

// RecordingConfig configures the scheduler and the capture command.
type RecordingConfig struct {
	Command      string
	OutputDir    string
	UserAgent    string
	ScanInterval time.Duration
	Location     string
	SnapshotFile string
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool
	Exporter     string
	Endpoint     string
	SamplingRate float64
	Environment  string
}

// FileConfig mirrors the YAML document. Zero values mean "not set".
type FileConfig struct {
	DataDir  string `yaml:"dataDir,omitempty"`
	LogLevel string `yaml:"logLevel,omitempty"`

	API struct {
		ListenAddr      string        `yaml:"listenAddr,omitempty"`
		RateLimitRPM    int           `yaml:"rateLimitRPM,omitempty"`
		MaxConnections  int           `yaml:"maxConnections,omitempty"`
		ReadTimeout     time.Duration `yaml:"readTimeout,omitempty"`
		WriteTimeout    time.Duration `yaml:"writeTimeout,omitempty"`
		IdleTimeout     time.Duration `yaml:"idleTimeout,omitempty"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout,omitempty"`
	} `yaml:"api,omitempty"`

	Metrics struct {
		ListenAddr string `yaml:"listenAddr,omitempty"`
	} `yaml:"metrics,omitempty"`

	Channels struct {
		File  string `yaml:"file,omitempty"`
		Watch *bool  `yaml:"watch,omitempty"`
	} `yaml:"channels,omitempty"`

	EPG struct {
		URL              string        `yaml:"url,omitempty"`
		TTL              time.Duration `yaml:"ttl,omitempty"`
		Timeout          time.Duration `yaml:"timeout,omitempty"`
		Days             int           `yaml:"days,omitempty"`
		FetchesPerMinute int           `yaml:"fetchesPerMinute,omitempty"`
		CacheFile        string        `yaml:"cacheFile,omitempty"`
		RedisAddr        string        `yaml:"redisAddr,omitempty"`
		RedisPassword    string        `yaml:"redisPassword,omitempty"`
		RedisDB          int           `yaml:"redisDB,omitempty"`
	} `yaml:"epg,omitempty"`

	Recording struct {
		Command      string        `yaml:"command,omitempty"`
		OutputDir    string        `yaml:"outputDir,omitempty"`
		UserAgent    string        `yaml:"userAgent,omitempty"`
		ScanInterval time.Duration `yaml:"scanInterval,omitempty"`
		Location     string        `yaml:"location,omitempty"`
		SnapshotFile string        `yaml:"snapshotFile,omitempty"`
	} `yaml:"recording,omitempty"`

	Telemetry struct {
		Enabled      *bool   `yaml:"enabled,omitempty"`
		Exporter     string  `yaml:"exporter,omitempty"`
		Endpoint     string  `yaml:"endpoint,omitempty"`
		SamplingRate float64 `yaml:"samplingRate,omitempty"`
		Environment  string  `yaml:"environment,omitempty"`
	} `yaml:"telemetry,omitempty"`
}

// TimeLocation resolves Recording.Location; empty or invalid names fall back to time.Local.
func (c AppConfig) TimeLocation() *time.Location {
	if c.Recording.Location == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Recording.Location)
	if err != nil {
		return time.Local
	}
	return loc
}

// resolveDataPaths fills file locations that default to the data directory.
func (c *AppConfig) resolveDataPaths() {
	if c.Recording.SnapshotFile == "" {
		c.Recording.SnapshotFile = filepath.Join(c.DataDir, "schedules.json")
	}
	if c.EPG.CacheFile == "" {
		c.EPG.CacheFile = filepath.Join(c.DataDir, "epg_cache.xml")
	}
}
