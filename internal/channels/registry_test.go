// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package channels

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_LoadAndKeepPreviousOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "channels.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDoc), 0o600))

	reg := NewRegistry(path)
	assert.Equal(t, 0, reg.Current().Len())

	require.NoError(t, reg.Load())
	assert.Equal(t, 2, reg.Current().Len())

	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))
	require.Error(t, reg.Load())
	assert.Equal(t, 2, reg.Current().Len(), "failed reload must keep previous catalog")

	_, ok := reg.ByID("tf1")
	assert.True(t, ok)

	ch, ok := reg.ByXMLTVID("France2.fr")
	require.True(t, ok)
	assert.Equal(t, "france2", ch.ID)

	names := []string{}
	for _, c := range reg.List() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"France 2", "TF1"}, names)
}

func TestRegistry_LoadMissingFile(t *testing.T) {
	reg := NewRegistry(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, reg.Load())
	assert.Equal(t, 0, reg.Current().Len())
}

func TestRegistry_WatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "channels.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDoc), 0o600))

	reg := NewRegistry(path)
	reg.debounce = 10 * time.Millisecond
	require.NoError(t, reg.Load())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reg.Watch(ctx) }()

	// give the watcher time to register
	time.Sleep(50 * time.Millisecond)

	updated := `{"channels": [{"xmltv_id": "M6.fr", "id": "m6", "name": "M6", "stream_url": "http://streams/m6"}]}`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	assert.Eventually(t, func() bool {
		_, ok := reg.ByID("m6")
		return ok
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, reg.Current().Len())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
