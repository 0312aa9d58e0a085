// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dvr

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/tvrec/internal/channels"
	"github.com/ManuGH/tvrec/internal/fsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type launcherFixture struct {
	store    *Store
	watcher  *Watcher
	starter  *fakeStarter
	clock    *MockClock
	outDir   string
	launcher *Launcher
}

func newLauncherFixture(t *testing.T) *launcherFixture {
	t.Helper()
	store, _ := newTestStore(t)
	f := &launcherFixture{
		store:   store,
		watcher: NewWatcher(store),
		starter: &fakeStarter{},
		clock:   newMockClock(broadcastStart),
		outDir:  filepath.Join(t.TempDir(), "recordings"),
	}
	resolver := fakeResolver{
		"C1":       channels.Channel{ID: "C1", XMLTVID: "c1.fr", Name: "Channel One", StreamURL: "http://x", Enabled: true},
		"../../C2": channels.Channel{ID: "../../C2", XMLTVID: "c2.fr", Name: "Channel Two", StreamURL: "http://y", Enabled: true},
	}
	f.launcher = NewLauncher(LauncherConfig{
		Command:   "/app/record.sh",
		OutputDir: f.outDir,
		UserAgent: "Mozilla/5.0",
	}, resolver, f.starter, store, f.watcher, f.clock)

	t.Cleanup(func() {
		f.starter.exitAll()
		require.NoError(t, f.watcher.Wait(context.Background()))
	})
	return f
}

func TestSafeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "News", want: "News"},
		{in: "Le Journal de 20h", want: "Le_Journal_de_20h"},
		{in: "News: Late/Night", want: "News__Late_Night"},
		{in: "Météo-France_2", want: "Météo-France_2"},
		{in: "Météo", want: "Météo"},
		{in: "a.b*c?", want: "a_b_c_"},
		{in: "../../etc/passwd", want: "______etc_passwd"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SafeTitle(tt.in), tt.in)
	}
}

func TestOutputPath(t *testing.T) {
	at := time.Date(2025, 1, 1, 19, 50, 0, 0, time.UTC)
	got := OutputPath("/recordings", "C1", "News: Late", at)
	assert.Equal(t, filepath.Join("/recordings", "C1-News__Late-20250101_195000.mkv"), got)
}

func TestLauncher_Launch(t *testing.T) {
	f := newLauncherFixture(t)
	entry := mustEntry(t, "C1", "News", broadcastStart)
	require.NoError(t, f.store.Add(entry))

	rec, err := f.launcher.Launch(context.Background(), entry)
	require.NoError(t, err)

	wantOutput := filepath.Join(f.outDir, "C1-News-20250101_200000.mkv")
	calls := f.starter.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/app/record.sh", calls[0].name)
	assert.Equal(t, []string{"-u", "http://stream.local/C1", "-d", "3000", "-o", wantOutput, "-a", "Mozilla/5.0"}, calls[0].args)

	assert.Equal(t, ActiveRecording{
		ID:         entry.ID,
		PID:        1000,
		Title:      "News",
		Channel:    "Channel One",
		Started:    broadcastStart,
		OutputFile: wantOutput,
	}, rec)
	assert.Empty(t, f.store.ListPending())
	assert.Equal(t, []ActiveRecording{rec}, f.store.ListActive())

	info, err := os.Stat(f.outDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	f.starter.Procs()[0].exit(0, "done\n")
	require.NoError(t, f.watcher.Wait(waitCtx(t)))
	assert.Empty(t, f.store.ListActive())
}

func TestLauncher_UnknownChannel(t *testing.T) {
	f := newLauncherFixture(t)
	entry := mustEntry(t, "C9", "News", broadcastStart)

	_, err := f.launcher.Launch(context.Background(), entry)
	require.ErrorIs(t, err, ErrUnknownChannel)
	assert.Empty(t, f.starter.Calls())
	assert.Empty(t, f.store.ListActive())
}

func TestLauncher_OutputOutsideDirRejected(t *testing.T) {
	f := newLauncherFixture(t)
	entry := mustEntry(t, "../../C2", "News", broadcastStart)

	_, err := f.launcher.Launch(context.Background(), entry)
	require.ErrorIs(t, err, ErrLaunch)
	assert.ErrorIs(t, err, fsutil.ErrEscapesRoot)
	assert.Empty(t, f.starter.Calls())
	assert.Empty(t, f.store.ListActive())
}

func TestLauncher_SpawnFailure(t *testing.T) {
	f := newLauncherFixture(t)
	f.starter.err = errSpawn
	entry := mustEntry(t, "C1", "News", broadcastStart)

	_, err := f.launcher.Launch(context.Background(), entry)
	require.ErrorIs(t, err, ErrLaunch)
	assert.ErrorIs(t, err, errSpawn)
	assert.Empty(t, f.store.ListActive())
}

func TestLauncher_OutputNameCollision(t *testing.T) {
	f := newLauncherFixture(t)
	require.NoError(t, os.MkdirAll(f.outDir, 0o755))
	taken := filepath.Join(f.outDir, "C1-News-20250101_200000.mkv")
	require.NoError(t, os.WriteFile(taken, nil, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(f.outDir, "C1-News-20250101_200000-2.mkv"), nil, 0o600))

	rec, err := f.launcher.Launch(context.Background(), mustEntry(t, "C1", "News", broadcastStart))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.outDir, "C1-News-20250101_200000-3.mkv"), rec.OutputFile)
}

func TestLauncher_AlreadyActiveIsReapedNotRegistered(t *testing.T) {
	f := newLauncherFixture(t)
	entry := mustEntry(t, "C1", "News", broadcastStart)

	first, err := f.launcher.Launch(context.Background(), entry)
	require.NoError(t, err)

	_, err = f.launcher.Launch(context.Background(), entry)
	require.ErrorIs(t, err, ErrInvariantViolation)
	require.Len(t, f.starter.Procs(), 2)
	assert.Equal(t, []ActiveRecording{first}, f.store.ListActive())

	// the duplicate exits first; the original stays active
	f.starter.Procs()[1].exit(1, "")
	assert.Eventually(t, func() bool {
		return len(f.store.ListActive()) == 1
	}, time.Second, 10*time.Millisecond)
}
