// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dvr

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/tvrec/internal/channels"
)

// MockClock is a settable clock whose timers fire only when told to.
type MockClock struct {
	mu    sync.Mutex
	now   time.Time
	Timer *MockTimer
}

func newMockClock(now time.Time) *MockClock {
	return &MockClock{now: now}
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

func (m *MockClock) NewTimer(d time.Duration) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Timer == nil {
		m.Timer = &MockTimer{CBox: make(chan time.Time, 1)}
	}
	return m.Timer
}

// GetTimer returns the timer safely
func (m *MockClock) GetTimer() *MockTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Timer
}

// MockTimer
type MockTimer struct {
	CBox chan time.Time
}

func (m *MockTimer) C() <-chan time.Time        { return m.CBox }
func (m *MockTimer) Stop() bool                 { return true }
func (m *MockTimer) Reset(d time.Duration) bool { return true }

func (m *MockTimer) Trigger() {
	select {
	case m.CBox <- time.Now():
	default:
	}
}

// fakeProcess exits when release is called.
type fakeProcess struct {
	pid    int
	done   chan struct{}
	once   sync.Once
	code   int
	output []byte
}

func newFakeProcess(pid int) *fakeProcess {
	return &fakeProcess{pid: pid, done: make(chan struct{})}
}

func (p *fakeProcess) PID() int { return p.pid }

func (p *fakeProcess) Wait() (int, []byte, error) {
	<-p.done
	return p.code, p.output, nil
}

func (p *fakeProcess) exit(code int, output string) {
	p.once.Do(func() {
		p.code = code
		p.output = []byte(output)
		close(p.done)
	})
}

type startCall struct {
	name string
	args []string
}

// fakeStarter records every spawn and hands out fakeProcesses.
type fakeStarter struct {
	mu    sync.Mutex
	err   error
	calls []startCall
	procs []*fakeProcess
}

func (s *fakeStarter) Start(_ context.Context, name string, args []string) (Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.calls = append(s.calls, startCall{name: name, args: append([]string(nil), args...)})
	p := newFakeProcess(1000 + len(s.procs))
	s.procs = append(s.procs, p)
	return p, nil
}

func (s *fakeStarter) Calls() []startCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]startCall(nil), s.calls...)
}

func (s *fakeStarter) Procs() []*fakeProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*fakeProcess(nil), s.procs...)
}

// exitAll releases every process started so far.
func (s *fakeStarter) exitAll() {
	for _, p := range s.Procs() {
		p.exit(0, "")
	}
}

type fakeResolver map[string]channels.Channel

func (r fakeResolver) ByID(id string) (channels.Channel, bool) {
	ch, ok := r[id]
	return ch, ok
}

// fakeLauncher implements RecordingLauncher for scheduler tests.
type fakeLauncher struct {
	mu       sync.Mutex
	launched []string
	hook     func(ScheduleEntry)
	err      error
	called   chan string
}

func (l *fakeLauncher) Launch(_ context.Context, entry ScheduleEntry) (ActiveRecording, error) {
	if l.hook != nil {
		l.hook(entry)
	}
	l.mu.Lock()
	l.launched = append(l.launched, entry.ID)
	l.mu.Unlock()
	if l.called != nil {
		l.called <- entry.ID
	}
	if l.err != nil {
		return ActiveRecording{}, l.err
	}
	return ActiveRecording{ID: entry.ID}, nil
}

func (l *fakeLauncher) Launched() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.launched...)
}

var errSpawn = errors.New("exec: no such file")

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedules.json")
	return NewStore(path), path
}

// mustEntry builds an entry starting (adjusted) at start.
func mustEntry(t *testing.T, channel, title string, start time.Time) ScheduleEntry {
	t.Helper()
	e, err := BuildEntry(ScheduleRequest{
		Channel:   channel,
		Title:     title,
		Start:     start.Add(BufferMinutes * time.Minute),
		Duration:  1800,
		StreamURL: "http://stream.local/" + channel,
	}, start.Add(-time.Hour))
	if err != nil {
		t.Fatalf("BuildEntry: %v", err)
	}
	return e
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}
