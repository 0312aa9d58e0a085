// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dvr

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"time"

	"github.com/ManuGH/tvrec/internal/procgroup"
)

// maxCapturedOutput bounds how much combined output is kept per process.
const maxCapturedOutput = 64 << 10

// Process is a started capture.
type Process interface {
	PID() int
	// Wait blocks until the process exits and returns its exit code and the
	// tail of its combined stdout and stderr. err is only set when the exit
	// status could not be observed at all.
	Wait() (exitCode int, output []byte, err error)
}

// ProcessStarter spawns capture processes.
type ProcessStarter interface {
	Start(ctx context.Context, name string, args []string) (Process, error)
}

// DefaultWaitDelay bounds how long Wait keeps draining output after the
// capture command exited, e.g. when it left a background child holding the pipe.
const DefaultWaitDelay = 5 * time.Second

// ExecStarter runs the command with os/exec in its own process group.
// The process is not bound to ctx: captures outlive the request that started them.
type ExecStarter struct {
	// WaitDelay overrides DefaultWaitDelay when positive.
	WaitDelay time.Duration
}

// Start implements ProcessStarter.
func (s ExecStarter) Start(_ context.Context, name string, args []string) (Process, error) {
	buf := &tailBuffer{limit: maxCapturedOutput}
	cmd := exec.Command(name, args...)
	cmd.Stdout = buf
	cmd.Stderr = buf
	cmd.WaitDelay = DefaultWaitDelay
	if s.WaitDelay > 0 {
		cmd.WaitDelay = s.WaitDelay
	}
	procgroup.Set(cmd)

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execProcess{cmd: cmd, out: buf}, nil
}

type execProcess struct {
	cmd *exec.Cmd
	out *tailBuffer
}

func (p *execProcess) PID() int { return p.cmd.Process.Pid }

func (p *execProcess) Wait() (int, []byte, error) {
	err := p.cmd.Wait()
	var exitErr *exec.ExitError
	// ErrWaitDelay: the command exited but a leftover child kept the pipe open
	if err != nil && !errors.As(err, &exitErr) && !errors.Is(err, exec.ErrWaitDelay) {
		return -1, p.out.Bytes(), err
	}
	return p.cmd.ProcessState.ExitCode(), p.out.Bytes(), nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(p)
	if n >= b.limit {
		b.buf = append(b.buf[:0], p[n-b.limit:]...)
		return n, nil
	}
	if over := len(b.buf) + n - b.limit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	b.buf = append(b.buf, p...)
	return n, nil
}

func (b *tailBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf...)
}
