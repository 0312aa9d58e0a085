// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics holds the Prometheus collectors of the recorder.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	schedulesPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tvrec_schedules_pending",
		Help: "Number of scheduled recordings waiting to fire",
	})

	recordingsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tvrec_recordings_active",
		Help: "Number of capture processes currently running",
	})

	schedulerDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvrec_scheduler_decisions_total",
		Help: "Scheduler decisions for pending entries",
	}, []string{"decision"}) // decision=due|stale|skipped|panic

	schedulerScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tvrec_scheduler_scan_duration_seconds",
		Help:    "Duration of one scheduler scan cycle",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
	})

	recordingsLaunched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvrec_recordings_launched_total",
		Help: "Capture launch attempts by outcome",
	}, []string{"outcome"}) // outcome=success|unknown_channel|spawn_error|invariant

	recordingsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvrec_recordings_completed_total",
		Help: "Finished capture processes by exit outcome",
	}, []string{"outcome"}) // outcome=success|failed

	snapshotWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvrec_snapshot_writes_total",
		Help: "Schedule snapshot writes by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	scheduleRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvrec_schedule_requests_total",
		Help: "Schedule requests by outcome",
	}, []string{"outcome"}) // outcome=accepted|rejected|duplicate
)

// SetSchedulesPending records the size of the pending collection.
func SetSchedulesPending(n int) { schedulesPending.Set(float64(n)) }

// SetRecordingsActive records the size of the active map.
func SetRecordingsActive(n int) { recordingsActive.Set(float64(n)) }

// IncSchedulerDecision counts one scheduler decision.
func IncSchedulerDecision(decision string) { schedulerDecisions.WithLabelValues(decision).Inc() }

// ObserveScanDuration records the wall time of a scan cycle.
func ObserveScanDuration(seconds float64) { schedulerScanDuration.Observe(seconds) }

// IncRecordingLaunch counts one launch attempt.
func IncRecordingLaunch(outcome string) { recordingsLaunched.WithLabelValues(outcome).Inc() }

// IncRecordingCompleted counts one finished capture process.
func IncRecordingCompleted(outcome string) { recordingsCompleted.WithLabelValues(outcome).Inc() }

// IncSnapshotWrite counts one snapshot write.
func IncSnapshotWrite(outcome string) { snapshotWrites.WithLabelValues(outcome).Inc() }

// IncScheduleRequest counts one inbound schedule request.
func IncScheduleRequest(outcome string) { scheduleRequests.WithLabelValues(outcome).Inc() }
