// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TVREC_DATA", t.TempDir())

	cfg, err := NewLoader("", "v1.2.3").Load()
	require.NoError(t, err)

	assert.Equal(t, "v1.2.3", cfg.Version)
	assert.Equal(t, DefaultListenAddr, cfg.API.ListenAddr)
	assert.Equal(t, DefaultEPGURL, cfg.EPG.URL)
	assert.Equal(t, time.Hour, cfg.EPG.TTL)
	assert.Equal(t, 10*time.Second, cfg.Recording.ScanInterval)
	assert.Equal(t, DefaultUserAgent, cfg.Recording.UserAgent)
	assert.Equal(t, filepath.Join(cfg.DataDir, "schedules.json"), cfg.Recording.SnapshotFile)
	assert.Equal(t, filepath.Join(cfg.DataDir, "epg_cache.xml"), cfg.EPG.CacheFile)
	assert.True(t, cfg.Channels.Watch)
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	dataDir := t.TempDir()
	path := writeConfig(t, `
dataDir: `+dataDir+`
api:
  listenAddr: ":8088"
channels:
  file: /etc/tvrec/channels.json
  watch: false
epg:
  ttl: 30m
recording:
  outputDir: /srv/recordings
  scanInterval: 5s
  location: UTC
`)
	t.Setenv("TVREC_OUTPUT_DIR", "/mnt/nas")

	cfg, err := NewLoader(path, "test").Load()
	require.NoError(t, err)

	assert.Equal(t, ":8088", cfg.API.ListenAddr)
	assert.Equal(t, "/etc/tvrec/channels.json", cfg.Channels.File)
	assert.False(t, cfg.Channels.Watch)
	assert.Equal(t, 30*time.Minute, cfg.EPG.TTL)
	assert.Equal(t, 5*time.Second, cfg.Recording.ScanInterval)
	assert.Equal(t, "/mnt/nas", cfg.Recording.OutputDir, "env must win over file")
	assert.Equal(t, time.UTC, cfg.TimeLocation())
}

func TestLoad_RejectsUnknownField(t *testing.T) {
	path := writeConfig(t, "recording:\n  bufferMinutes: 15\n")

	_, err := NewLoader(path, "test").Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownConfigField), "got %v", err)
}

func TestLoad_RejectsMultipleDocuments(t *testing.T) {
	path := writeConfig(t, "logLevel: info\n---\nlogLevel: debug\n")

	_, err := NewLoader(path, "test").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple documents")
}

func TestLoad_RejectsNonYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	_, err := NewLoader(path, "test").Load()
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	t.Setenv("TVREC_DATA", t.TempDir())
	path := writeConfig(t, "")

	cfg, err := NewLoader(path, "test").Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultRecordCommand, cfg.Recording.Command)
}

func TestValidate_ScanIntervalBounds(t *testing.T) {
	t.Setenv("TVREC_DATA", t.TempDir())
	t.Setenv("TVREC_SCAN_INTERVAL", "45s")

	_, err := NewLoader("", "test").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Recording.ScanInterval")
}

func TestValidate_TelemetryRequiresEndpoint(t *testing.T) {
	t.Setenv("TVREC_DATA", t.TempDir())
	t.Setenv("TVREC_TRACING_ENABLED", "true")

	_, err := NewLoader("", "test").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Telemetry.Endpoint")
}

func TestParseHelpers_FallBackOnGarbage(t *testing.T) {
	t.Setenv("TVREC_TEST_INT", "not-a-number")
	t.Setenv("TVREC_TEST_DUR", "soon")
	t.Setenv("TVREC_TEST_BOOL", "maybe")
	t.Setenv("TVREC_TEST_FLOAT", "NaN-ish")

	assert.Equal(t, 7, ParseInt("TVREC_TEST_INT", 7))
	assert.Equal(t, time.Second, ParseDuration("TVREC_TEST_DUR", time.Second))
	assert.True(t, ParseBool("TVREC_TEST_BOOL", true))
	assert.InDelta(t, 0.5, ParseFloat("TVREC_TEST_FLOAT", 0.5), 0.0001)
	assert.Equal(t, "fallback", ParseString("TVREC_TEST_UNSET", "fallback"))
}
