// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package channels

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/ManuGH/tvrec/internal/log"
	"github.com/ManuGH/tvrec/internal/metrics"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Registry publishes the current Catalog. Readers never see a partially
// loaded catalog: a reload builds a new one and swaps the pointer.
type Registry struct {
	path    string
	current atomic.Pointer[Catalog]
	logger  zerolog.Logger

	debounce time.Duration
}

// NewRegistry creates a registry for the given channel file. It starts empty.
func NewRegistry(path string) *Registry {
	r := &Registry{
		path:     path,
		logger:   log.WithComponent("channels"),
		debounce: 500 * time.Millisecond,
	}
	r.current.Store(EmptyCatalog())
	return r
}

// Load reads the channel file and publishes it. On error the previous
// catalog stays in place.
func (r *Registry) Load() error {
	// #nosec G304 -- channel file path comes from operator configuration
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read channels: %w", err)
	}
	cat, err := ParseCatalog(data)
	if err != nil {
		return err
	}
	r.current.Store(cat)
	metrics.SetChannelsEnabled(cat.Len())
	r.logger.Info().
		Str(log.FieldEvent, "channels.loaded").
		Str(log.FieldPath, r.path).
		Int("count", cat.Len()).
		Msg("loaded channel configuration")
	return nil
}

// Current returns the published catalog.
func (r *Registry) Current() *Catalog {
	return r.current.Load()
}

// ByID resolves a channel by its own identifier in the current catalog.
func (r *Registry) ByID(id string) (Channel, bool) {
	return r.Current().ByID(id)
}

// ByXMLTVID resolves a channel by its guide key in the current catalog.
func (r *Registry) ByXMLTVID(id string) (Channel, bool) {
	return r.Current().ByXMLTVID(id)
}

// List returns the enabled channels of the current catalog sorted by name.
func (r *Registry) List() []Channel {
	return r.Current().List()
}

// Watch reloads the catalog whenever the file changes, until ctx is done.
// The parent directory is watched so editors that replace the file by
// rename are picked up too.
func (r *Registry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		return fmt.Errorf("watch channels dir: %w", err)
	}

	r.logger.Info().
		Str(log.FieldEvent, "channels.watcher_started").
		Str(log.FieldPath, r.path).
		Msg("watching channel file for changes")

	target := filepath.Clean(r.path)
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Str(log.FieldEvent, "channels.watcher_stopped").Msg("channel watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(r.debounce, func() {
				if err := r.Load(); err != nil {
					r.logger.Error().
						Err(err).
						Str(log.FieldEvent, "channels.reload_failed").
						Msg("channel reload failed, keeping previous catalog")
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn().Err(err).Str(log.FieldEvent, "channels.watcher_error").Msg("channel watcher error")
		}
	}
}
