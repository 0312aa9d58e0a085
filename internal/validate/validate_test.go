// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package validate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_URL(t *testing.T) {
	tests := []struct {
		name           string
		value          string
		allowedSchemes []string
		wantErr        bool
	}{
		{"valid http", "http://example.com", []string{"http", "https"}, false},
		{"short host", "http://x", []string{"http"}, false},
		{"valid https", "https://example.com", []string{"http", "https"}, false},
		{"empty url", "", []string{"http"}, true},
		{"no host", "http://", []string{"http"}, true},
		{"invalid scheme", "ftp://example.com", []string{"http", "https"}, true},
		{"no scheme", "example.com", []string{"http"}, true},
		{"any scheme", "rtsp://cam.local/live", nil, false},
		{"uppercase scheme", "HTTP://example.com", []string{"http"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.URL("testURL", tt.value, tt.allowedSchemes)
			assert.Equal(t, tt.wantErr, !v.IsValid(), "err: %v", v.Err())
		})
	}
}

func TestValidator_RangeAndPositive(t *testing.T) {
	v := New()
	v.Range("inside", 5, 1, 10)
	v.Range("lower", 1, 1, 10)
	v.Range("upper", 10, 1, 10)
	v.Positive("positive", 1)
	require.True(t, v.IsValid())

	v.Range("outside", 11, 1, 10)
	v.Positive("zero", 0)
	require.Len(t, v.Errors(), 2)
	assert.Equal(t, "outside", v.Errors()[0].Field)
	assert.Equal(t, "zero", v.Errors()[1].Field)
}

func TestValidator_MinDuration(t *testing.T) {
	v := New()
	v.MinDuration("ok", time.Second, time.Second)
	assert.True(t, v.IsValid())
	v.MinDuration("short", time.Millisecond, time.Second)
	assert.False(t, v.IsValid())
}

func TestValidator_NotEmptyAndOneOf(t *testing.T) {
	v := New()
	v.NotEmpty("title", "News")
	v.OneOf("mode", "http", []string{"grpc", "http"})
	require.True(t, v.IsValid())

	v.NotEmpty("blank", "   ")
	v.OneOf("mode", "carrier-pigeon", []string{"grpc", "http"})
	assert.Len(t, v.Errors(), 2)
}

func TestValidator_Location(t *testing.T) {
	v := New()
	v.Location("tz", "")
	v.Location("tz", "UTC")
	v.Location("tz", "Local")
	require.True(t, v.IsValid())

	v.Location("tz", "Mars/Olympus_Mons")
	assert.False(t, v.IsValid())
}

func TestValidator_Directory(t *testing.T) {
	base := t.TempDir()

	v := New()
	created := filepath.Join(base, "new", "nested")
	v.Directory("dir", created, false)
	require.True(t, v.IsValid(), "err: %v", v.Err())
	info, err := os.Stat(created)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	v = New()
	v.Directory("dir", filepath.Join(base, "missing"), true)
	assert.False(t, v.IsValid())

	file := filepath.Join(base, "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	v = New()
	v.Directory("dir", file, true)
	assert.False(t, v.IsValid())

	v = New()
	v.Directory("dir", "../escape", false)
	assert.False(t, v.IsValid())
}

func TestValidator_ErrAggregates(t *testing.T) {
	v := New()
	assert.NoError(t, v.Err())

	v.NotEmpty("a", "")
	v.NotEmpty("b", "")
	err := v.Err()
	require.Error(t, err)

	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Errors(), 2)
	assert.Contains(t, err.Error(), "validation failed for a")
	assert.Contains(t, err.Error(), "; validation failed for b")
}
