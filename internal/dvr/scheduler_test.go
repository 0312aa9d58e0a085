// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dvr

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/tvrec/internal/channels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Boundaries(t *testing.T) {
	now := broadcastStart

	tests := []struct {
		name  string
		delta time.Duration
		want  Decision
	}{
		{name: "+30s", delta: 30 * time.Second, want: DecisionDue},
		{name: "-30s", delta: -30 * time.Second, want: DecisionDue},
		{name: "exactly now", delta: 0, want: DecisionDue},
		{name: "+31s", delta: 31 * time.Second, want: DecisionKeep},
		{name: "-31s", delta: -31 * time.Second, want: DecisionKeep},
		{name: "-7200s", delta: -7200 * time.Second, want: DecisionKeep},
		{name: "-7201s", delta: -7201 * time.Second, want: DecisionStale},
		{name: "far future", delta: 48 * time.Hour, want: DecisionKeep},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(now.Add(tt.delta), now))
		})
	}
}

func TestScanOnce_FiresDueAndDropsStale(t *testing.T) {
	store, _ := newTestStore(t)
	now := broadcastStart
	due := mustEntry(t, "C1", "due", now.Add(-30*time.Second))
	future := mustEntry(t, "C2", "future", now.Add(31*time.Second))
	lingering := mustEntry(t, "C3", "lingering", now.Add(-7200*time.Second))
	stale := mustEntry(t, "C4", "stale", now.Add(-7201*time.Second))
	for _, e := range []ScheduleEntry{due, future, lingering, stale} {
		require.NoError(t, store.Add(e))
	}

	launcher := &fakeLauncher{}
	sched := NewScheduler(store, launcher, newMockClock(now))

	report := sched.ScanOnce(context.Background())

	assert.Equal(t, ScanReport{Pending: 4, Fired: 1, Expired: 1}, report)
	assert.Equal(t, []string{due.ID}, launcher.Launched())
	assert.Equal(t, []string{future.ID, lingering.ID}, ids(store.ListPending()))
}

func TestScanOnce_LaunchFailureIsNotRetried(t *testing.T) {
	store, _ := newTestStore(t)
	entry := mustEntry(t, "C1", "News", broadcastStart)
	require.NoError(t, store.Add(entry))

	launcher := &fakeLauncher{err: ErrUnknownChannel}
	sched := NewScheduler(store, launcher, newMockClock(broadcastStart))

	report := sched.ScanOnce(context.Background())
	assert.Equal(t, 1, report.Failures)
	assert.Empty(t, store.ListPending())

	sched.ScanOnce(context.Background())
	assert.Len(t, launcher.Launched(), 1)
}

func TestScanOnce_RescheduleDuringLaunchRejected(t *testing.T) {
	store, _ := newTestStore(t)
	entry := mustEntry(t, "C1", "News", broadcastStart)
	require.NoError(t, store.Add(entry))

	var addErr error
	launcher := &fakeLauncher{hook: func(e ScheduleEntry) {
		addErr = store.Add(e)
	}, err: ErrLaunch}
	sched := NewScheduler(store, launcher, newMockClock(broadcastStart))

	report := sched.ScanOnce(context.Background())
	assert.Equal(t, 1, report.Fired)
	assert.ErrorIs(t, addErr, ErrDuplicateSchedule)
	assert.Empty(t, store.ListPending())

	// the failed launch frees the id
	require.NoError(t, store.Add(entry))
}

func TestScanOnce_PanicIsolated(t *testing.T) {
	store, _ := newTestStore(t)
	bad := mustEntry(t, "C1", "bad", broadcastStart)
	good := mustEntry(t, "C2", "good", broadcastStart)
	require.NoError(t, store.Add(bad))
	require.NoError(t, store.Add(good))

	launcher := &fakeLauncher{hook: func(e ScheduleEntry) {
		if e.ID == bad.ID {
			panic("boom")
		}
	}}
	sched := NewScheduler(store, launcher, newMockClock(broadcastStart))

	report := sched.ScanOnce(context.Background())
	assert.Equal(t, 1, report.Failures)
	assert.Equal(t, []string{good.ID}, launcher.Launched())
	assert.Empty(t, store.ListPending())
	require.NoError(t, store.Add(bad), "panicking launch must not keep the id claimed")
}

func TestScanOnce_SkipsEntryCancelledMidScan(t *testing.T) {
	store, _ := newTestStore(t)
	first := mustEntry(t, "C1", "first", broadcastStart)
	second := mustEntry(t, "C2", "second", broadcastStart)
	require.NoError(t, store.Add(first))
	require.NoError(t, store.Add(second))

	launcher := &fakeLauncher{hook: func(e ScheduleEntry) {
		if e.ID == first.ID {
			_, _ = store.RemovePending(second.ID)
		}
	}}
	sched := NewScheduler(store, launcher, newMockClock(broadcastStart))

	report := sched.ScanOnce(context.Background())
	assert.Equal(t, 1, report.Fired)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, []string{first.ID}, launcher.Launched())
}

func TestScheduler_RunScansOnTimer(t *testing.T) {
	store, _ := newTestStore(t)
	clock := newMockClock(broadcastStart)
	entry := mustEntry(t, "C1", "News", broadcastStart.Add(5*time.Minute))
	require.NoError(t, store.Add(entry))

	launcher := &fakeLauncher{called: make(chan string, 1)}
	sched := NewScheduler(store, launcher, clock)
	sched.Interval = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	require.Eventually(t, func() bool { return clock.GetTimer() != nil }, time.Second, 5*time.Millisecond)
	assert.Empty(t, launcher.Launched(), "not due on the first scan")

	clock.Advance(5 * time.Minute)
	clock.GetTimer().Trigger()

	select {
	case id := <-launcher.called:
		assert.Equal(t, entry.ID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for launch")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

// Schedule "News" on C1 six hours ahead, let the scanner fire it at the
// adjusted start and observe the capture through to its exit.
func TestRecordingLifecycle(t *testing.T) {
	store, path := newTestStore(t)
	clock := newMockClock(broadcastStart.Add(-6 * time.Hour))
	svc := NewService(store, clock)

	res, err := svc.Schedule(context.Background(), ScheduleRequest{
		Channel:   "C1",
		Title:     "News",
		Start:     broadcastStart,
		Duration:  1800,
		StreamURL: "http://x",
	})
	require.NoError(t, err)
	assert.Equal(t, "C1_20250101_195000", res.ID)

	pending := store.ListPending()
	require.Len(t, pending, 1)
	assert.Equal(t, 2400, pending[0].Duration)

	outDir := filepath.Join(t.TempDir(), "rec")
	starter := &fakeStarter{}
	watcher := NewWatcher(store)
	launcher := NewLauncher(LauncherConfig{Command: "/app/record.sh", OutputDir: outDir, UserAgent: "UA"},
		fakeResolver{"C1": channels.Channel{ID: "C1", Name: "Channel One", Enabled: true}},
		starter, store, watcher, clock)
	sched := NewScheduler(store, launcher, clock)

	assert.Zero(t, sched.ScanOnce(context.Background()).Fired)

	clock.Set(broadcastStart.Add(-10 * time.Minute))
	assert.Equal(t, 1, sched.ScanOnce(context.Background()).Fired)

	calls := starter.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{
		"-u", "http://x",
		"-d", "2400",
		"-o", filepath.Join(outDir, "C1-News-20250101_195000.mkv"),
		"-a", "UA",
	}, calls[0].args)

	assert.Empty(t, store.ListPending())
	active := store.ListActive()
	require.Len(t, active, 1)
	assert.Equal(t, res.ID, active[0].ID)
	assert.Equal(t, "Channel One", active[0].Channel)

	reloaded := NewStore(path)
	assert.Zero(t, reloaded.Load(), "fired entry is gone from the snapshot")

	starter.Procs()[0].exit(0, "")
	require.NoError(t, watcher.Wait(waitCtx(t)))
	assert.Empty(t, store.ListActive())
}

func TestScheduler_LastScan(t *testing.T) {
	store, _ := newTestStore(t)
	sched := NewScheduler(store, &fakeLauncher{}, newMockClock(broadcastStart))

	assert.True(t, sched.LastScan().IsZero())

	before := time.Now()
	sched.ScanOnce(context.Background())
	assert.False(t, sched.LastScan().Before(before))
}
