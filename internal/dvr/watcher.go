// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dvr

import (
	"context"
	"sync"

	"github.com/ManuGH/tvrec/internal/log"
	"github.com/ManuGH/tvrec/internal/metrics"
	"github.com/rs/zerolog"
)

// maxLoggedOutput bounds the process output copied into a log line.
const maxLoggedOutput = 4 << 10

// Watcher waits for capture processes to exit and retires them from the store.
type Watcher struct {
	store  *Store
	logger zerolog.Logger
	wg     sync.WaitGroup
}

// NewWatcher returns a watcher completing recordings in store.
func NewWatcher(store *Store) *Watcher {
	return &Watcher{
		store:  store,
		logger: log.WithComponent("dvr.watcher"),
	}
}

// Watch waits for p in a new goroutine and then removes rec from the active set.
// The exit code is logged and counted but does not change the outcome.
func (w *Watcher) Watch(rec ActiveRecording, p Process) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.wait(rec.ID, rec.Title, p)
		w.store.Complete(rec.ID)
	}()
}

// Reap waits for a process that was never registered as active.
func (w *Watcher) Reap(id string, p Process) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.wait(id, "", p)
	}()
}

// Wait blocks until every watched process has exited or ctx is done.
func (w *Watcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Watcher) wait(id, title string, p Process) {
	code, output, err := p.Wait()

	outcome := "success"
	if err != nil || code != 0 {
		outcome = "failed"
	}
	metrics.IncRecordingCompleted(outcome)

	evt := w.logger.Info()
	if outcome != "success" {
		evt = w.logger.Warn()
	}
	evt = evt.
		Str(log.FieldEvent, "dvr.recording_finished").
		Str(log.FieldScheduleID, id).
		Int(log.FieldPID, p.PID()).
		Int(log.FieldExitCode, code)
	if title != "" {
		evt = evt.Str(log.FieldTitle, title)
	}
	if err != nil {
		evt = evt.Err(err)
	}
	if len(output) > 0 {
		evt = evt.Str("output", truncateOutput(output))
	}
	evt.Msg("recording process exited")
}

func truncateOutput(out []byte) string {
	if len(out) <= maxLoggedOutput {
		return string(out)
	}
	return "..." + string(out[len(out)-maxLoggedOutput:])
}
