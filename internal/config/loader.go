// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath: configPath,
		version:    version,
	}
}

// Load loads configuration with precedence: ENV > File > Defaults,
// then validates the result.
func (l *Loader) Load() (AppConfig, error) {
	cfg := AppConfig{Version: l.version}
	setDefaults(&cfg)

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		mergeFileConfig(&cfg, fileCfg)
	}

	mergeEnvConfig(&cfg)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	cfg.resolveDataPaths()

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("%w: %s (only YAML supported)", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}

	return &fileCfg, nil
}

func mergeFileConfig(dst *AppConfig, src *FileConfig) {
	setStr(&dst.DataDir, src.DataDir)
	setStr(&dst.LogLevel, src.LogLevel)

	setStr(&dst.API.ListenAddr, src.API.ListenAddr)
	setPositive(&dst.API.RateLimitRPM, src.API.RateLimitRPM)
	setPositive(&dst.API.MaxConnections, src.API.MaxConnections)
	setDur(&dst.API.ReadTimeout, src.API.ReadTimeout)
	setDur(&dst.API.WriteTimeout, src.API.WriteTimeout)
	setDur(&dst.API.IdleTimeout, src.API.IdleTimeout)
	setDur(&dst.API.ShutdownTimeout, src.API.ShutdownTimeout)

	setStr(&dst.Metrics.ListenAddr, src.Metrics.ListenAddr)

	setStr(&dst.Channels.File, src.Channels.File)
	if src.Channels.Watch != nil {
		dst.Channels.Watch = *src.Channels.Watch
	}

	setStr(&dst.EPG.URL, src.EPG.URL)
	setDur(&dst.EPG.TTL, src.EPG.TTL)
	setDur(&dst.EPG.Timeout, src.EPG.Timeout)
	setPositive(&dst.EPG.Days, src.EPG.Days)
	setPositive(&dst.EPG.FetchesPerMinute, src.EPG.FetchesPerMinute)
	setStr(&dst.EPG.CacheFile, src.EPG.CacheFile)
	setStr(&dst.EPG.RedisAddr, src.EPG.RedisAddr)
	setStr(&dst.EPG.RedisPassword, src.EPG.RedisPassword)
	setPositive(&dst.EPG.RedisDB, src.EPG.RedisDB)

	setStr(&dst.Recording.Command, src.Recording.Command)
	setStr(&dst.Recording.OutputDir, src.Recording.OutputDir)
	setStr(&dst.Recording.UserAgent, src.Recording.UserAgent)
	setDur(&dst.Recording.ScanInterval, src.Recording.ScanInterval)
	setStr(&dst.Recording.Location, src.Recording.Location)
	setStr(&dst.Recording.SnapshotFile, src.Recording.SnapshotFile)

	if src.Telemetry.Enabled != nil {
		dst.Telemetry.Enabled = *src.Telemetry.Enabled
	}
	setStr(&dst.Telemetry.Exporter, src.Telemetry.Exporter)
	setStr(&dst.Telemetry.Endpoint, src.Telemetry.Endpoint)
	if src.Telemetry.SamplingRate > 0 {
		dst.Telemetry.SamplingRate = src.Telemetry.SamplingRate
	}
	setStr(&dst.Telemetry.Environment, src.Telemetry.Environment)
}

func mergeEnvConfig(cfg *AppConfig) {
	cfg.DataDir = ParseString("TVREC_DATA", cfg.DataDir)
	cfg.LogLevel = ParseString("TVREC_LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = ParseString("TVREC_LOG_SERVICE", cfg.LogService)

	cfg.API.ListenAddr = ParseString("TVREC_LISTEN", cfg.API.ListenAddr)
	cfg.API.RateLimitRPM = ParseInt("TVREC_RATELIMIT_RPM", cfg.API.RateLimitRPM)
	cfg.API.MaxConnections = ParseInt("TVREC_MAX_CONNECTIONS", cfg.API.MaxConnections)
	cfg.API.ShutdownTimeout = ParseDuration("TVREC_SHUTDOWN_TIMEOUT", cfg.API.ShutdownTimeout)
	cfg.Metrics.ListenAddr = ParseString("TVREC_METRICS_LISTEN", cfg.Metrics.ListenAddr)

	cfg.Channels.File = ParseString("TVREC_CHANNELS_FILE", cfg.Channels.File)
	cfg.Channels.Watch = ParseBool("TVREC_CHANNELS_WATCH", cfg.Channels.Watch)

	cfg.EPG.URL = ParseString("TVREC_EPG_URL", cfg.EPG.URL)
	cfg.EPG.TTL = ParseDuration("TVREC_EPG_TTL", cfg.EPG.TTL)
	cfg.EPG.Timeout = ParseDuration("TVREC_EPG_TIMEOUT", cfg.EPG.Timeout)
	cfg.EPG.Days = ParseInt("TVREC_EPG_DAYS", cfg.EPG.Days)
	cfg.EPG.CacheFile = ParseString("TVREC_EPG_CACHE_FILE", cfg.EPG.CacheFile)
	cfg.EPG.RedisAddr = ParseString("TVREC_REDIS_ADDR", cfg.EPG.RedisAddr)
	cfg.EPG.RedisPassword = ParseString("TVREC_REDIS_PASSWORD", cfg.EPG.RedisPassword)
	cfg.EPG.RedisDB = ParseInt("TVREC_REDIS_DB", cfg.EPG.RedisDB)

	cfg.Recording.Command = ParseString("TVREC_RECORD_COMMAND", cfg.Recording.Command)
	cfg.Recording.OutputDir = ParseString("TVREC_OUTPUT_DIR", cfg.Recording.OutputDir)
	cfg.Recording.UserAgent = ParseString("TVREC_USER_AGENT", cfg.Recording.UserAgent)
	cfg.Recording.ScanInterval = ParseDuration("TVREC_SCAN_INTERVAL", cfg.Recording.ScanInterval)
	cfg.Recording.Location = ParseString("TVREC_TIMEZONE", cfg.Recording.Location)
	cfg.Recording.SnapshotFile = ParseString("TVREC_SNAPSHOT_FILE", cfg.Recording.SnapshotFile)

	cfg.Telemetry.Enabled = ParseBool("TVREC_TRACING_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = ParseString("TVREC_TRACING_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = ParseString("TVREC_TRACING_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat("TVREC_TRACING_SAMPLING_RATE", cfg.Telemetry.SamplingRate)
}

func setStr(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}

func setPositive(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setDur(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}
