// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dvr

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/ManuGH/tvrec/internal/log"
	"github.com/ManuGH/tvrec/internal/metrics"
	"github.com/ManuGH/tvrec/internal/telemetry"
	"github.com/rs/zerolog"
)

const (
	// DefaultScanInterval is the pause between two scans.
	DefaultScanInterval = 10 * time.Second

	// FireWindow is how far on either side of its start an entry is due.
	FireWindow = 30 * time.Second

	// StaleAfter is how long past its start an unfired entry is kept.
	StaleAfter = 2 * time.Hour
)

// Decision is the scheduler's verdict for one pending entry.
type Decision int

const (
	DecisionKeep Decision = iota
	DecisionDue
	DecisionStale
)

func (d Decision) String() string {
	switch d {
	case DecisionDue:
		return "due"
	case DecisionStale:
		return "stale"
	default:
		return "keep"
	}
}

// Classify compares an entry's adjusted start against now.
func Classify(start, now time.Time) Decision {
	delta := start.Sub(now)
	switch {
	case delta >= -FireWindow && delta <= FireWindow:
		return DecisionDue
	case delta < -StaleAfter:
		return DecisionStale
	default:
		return DecisionKeep
	}
}

// RecordingLauncher starts the capture for a due entry.
type RecordingLauncher interface {
	Launch(ctx context.Context, entry ScheduleEntry) (ActiveRecording, error)
}

// ScanReport summarises one scan.
type ScanReport struct {
	Pending  int
	Fired    int
	Expired  int
	Skipped  int
	Failures int
}

// Scheduler periodically fires due entries and discards stale ones.
type Scheduler struct {
	store    *Store
	launcher RecordingLauncher
	logger   zerolog.Logger

	// Interval between scans.
	Interval time.Duration

	// Dependencies
	clock Clock

	lastScan atomic.Int64 // unix nanos of the last finished scan
}

// NewScheduler creates a scheduler with DefaultScanInterval.
func NewScheduler(store *Store, launcher RecordingLauncher, clock Clock) *Scheduler {
	if clock == nil {
		clock = RealClock{}
	}
	return &Scheduler{
		store:    store,
		launcher: launcher,
		logger:   log.WithComponent("dvr.scheduler"),
		Interval: DefaultScanInterval,
		clock:    clock,
	}
}

// Run scans immediately and then every Interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultScanInterval
	}
	s.logger.Info().Dur("interval", interval).Msg("recording scheduler started")

	s.ScanOnce(ctx)

	timer := s.clock.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("recording scheduler stopping")
			return nil
		case <-timer.C():
			s.ScanOnce(ctx)
			timer.Reset(interval)
		}
	}
}

// ScanOnce evaluates every pending entry once against the current time.
// A failure for one entry never stops the others.
func (s *Scheduler) ScanOnce(ctx context.Context) ScanReport {
	ctx, span := telemetry.Tracer("tvrec/dvr").Start(ctx, "dvr.scan")
	defer span.End()

	begin := time.Now()
	now := s.clock.Now()
	entries := s.store.ListPending()
	report := ScanReport{Pending: len(entries)}

	for _, entry := range entries {
		s.evaluate(ctx, entry, now, &report)
	}

	metrics.ObserveScanDuration(time.Since(begin).Seconds())
	s.lastScan.Store(time.Now().UnixNano())
	span.SetAttributes(telemetry.ScanAttributes(report.Pending, report.Fired, report.Expired, report.Failures)...)

	if report.Fired > 0 || report.Expired > 0 || report.Failures > 0 {
		s.logger.Info().
			Str(log.FieldEvent, "dvr.scan").
			Int("pending", report.Pending).
			Int("fired", report.Fired).
			Int("expired", report.Expired).
			Int("failures", report.Failures).
			Msg("scan completed")
	} else {
		s.logger.Debug().Int("pending", report.Pending).Msg("scan idle")
	}
	return report
}

// LastScan returns the wall time the most recent scan finished, or zero before the first.
func (s *Scheduler) LastScan() time.Time {
	ns := s.lastScan.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

func (s *Scheduler) evaluate(ctx context.Context, entry ScheduleEntry, now time.Time, report *ScanReport) {
	logger := s.logger.With().Str(log.FieldScheduleID, entry.ID).Logger()
	defer func() {
		if r := recover(); r != nil {
			report.Failures++
			metrics.IncSchedulerDecision("panic")
			logger.Error().
				Str(log.FieldEvent, "dvr.scan_panic").
				Interface("panic", r).
				Msg("recovered while evaluating scheduled recording")
		}
	}()

	switch Classify(entry.Start, now) {
	case DecisionDue:
		removed, err := s.store.Claim(entry.ID)
		if err != nil {
			logger.Warn().Err(err).Msg("snapshot not updated after firing")
		}
		if !removed {
			report.Skipped++
			metrics.IncSchedulerDecision("skipped")
			logger.Debug().Msg("entry cancelled before it fired")
			return
		}
		report.Fired++
		metrics.IncSchedulerDecision("due")
		logger.Info().
			Str(log.FieldEvent, "dvr.fired").
			Str(log.FieldChannelID, entry.Channel).
			Str(log.FieldTitle, entry.Title).
			Time(log.FieldStart, entry.Start).
			Msg("scheduled recording is due")

		// no-op once promoted; frees the id after a failed or panicking launch
		defer s.store.Release(entry.ID)
		if _, err := s.launcher.Launch(ctx, entry); err != nil {
			report.Failures++
			logLaunchFailure(logger, entry, err)
		}

	case DecisionStale:
		removed, err := s.store.RemovePending(entry.ID)
		if err != nil {
			logger.Warn().Err(err).Msg("snapshot not updated after discarding")
		}
		if !removed {
			return
		}
		report.Expired++
		metrics.IncSchedulerDecision("stale")
		logger.Warn().
			Str(log.FieldEvent, "dvr.stale").
			Time(log.FieldStart, entry.Start).
			Str("late_by", now.Sub(entry.Start).Truncate(time.Second).String()).
			Msg("discarding missed recording")

	case DecisionKeep:
	}
}

func logLaunchFailure(logger zerolog.Logger, entry ScheduleEntry, err error) {
	reason := "launch"
	switch {
	case errors.Is(err, ErrUnknownChannel):
		reason = "unknown_channel"
	case errors.Is(err, ErrInvariantViolation):
		reason = "invariant"
	case errors.Is(err, ErrLaunch):
		reason = "spawn"
	}
	logger.Error().
		Err(err).
		Str(log.FieldEvent, "dvr.launch_failed").
		Str(log.FieldChannelID, entry.Channel).
		Str(log.FieldTitle, entry.Title).
		Str("reason", reason).
		Msg("could not start recording")
}
