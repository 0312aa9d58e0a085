// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ManuGH/tvrec/internal/log"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Runner is a background loop stopped by cancelling ctx.
type Runner interface {
	Run(ctx context.Context) error
}

// ChannelSource reloads and watches the channel file.
type ChannelSource interface {
	Load() error
	Watch(ctx context.Context) error
}

// App owns the long-lived runtime lifecycle (scheduler, channel watcher)
// and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	scheduler    Runner
	channels     ChannelSource
	watchFile    bool
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator. channels may be nil.
func NewApp(logger zerolog.Logger, manager Manager, scheduler Runner, channels ChannelSource, watchFile bool) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		scheduler:    scheduler,
		channels:     channels,
		watchFile:    watchFile,
		reloadSignal: syscall.SIGHUP,
	}
}

// Manager returns the server manager, e.g. to register shutdown hooks.
func (a *App) Manager() Manager { return a.manager }

// Run starts all owned background subsystems and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.scheduler != nil {
		g.Go(func() error {
			return a.scheduler.Run(ctx)
		})
	}

	// Channel file watcher is best-effort: the last good catalog keeps serving.
	if a.channels != nil && a.watchFile {
		g.Go(func() error {
			if err := a.channels.Watch(ctx); err != nil {
				a.logger.Warn().Err(err).Str(log.FieldEvent, "channels.watch_failed").Msg("channel file watcher stopped")
			}
			return nil
		})
	}

	// SIGHUP trigger for manual channel reload.
	if a.channels != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str(log.FieldEvent, "channels.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading channels")

					if err := a.channels.Load(); err != nil {
						a.logger.Warn().
							Err(err).
							Str(log.FieldEvent, "channels.reload_failed").
							Msg("channel reload failed")
					}
				}
			}
		})
	}

	// Main server lifecycle.
	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}
