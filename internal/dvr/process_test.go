// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dvr

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTailBuffer_KeepsTail(t *testing.T) {
	b := &tailBuffer{limit: 8}
	_, _ = b.Write([]byte("abcd"))
	_, _ = b.Write([]byte("efgh"))
	assert.Equal(t, "abcdefgh", string(b.Bytes()))

	_, _ = b.Write([]byte("ij"))
	assert.Equal(t, "cdefghij", string(b.Bytes()))

	n, err := b.Write([]byte("0123456789"))
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, "23456789", string(b.Bytes()))
}

func TestExecStarter_ExitCodeAndOutput(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}

	p, err := ExecStarter{}.Start(context.Background(), sh, []string{"-c", "echo out; echo err >&2; exit 3"})
	require.NoError(t, err)
	assert.Positive(t, p.PID())

	code, output, err := p.Wait()
	require.NoError(t, err)
	assert.Equal(t, 3, code)
	assert.Contains(t, string(output), "out")
	assert.Contains(t, string(output), "err")
}

func TestExecStarter_BackgroundChildDoesNotBlockWait(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}

	starter := ExecStarter{WaitDelay: 200 * time.Millisecond}
	p, err := starter.Start(context.Background(), sh, []string{"-c", "sleep 3 & echo started; exit 0"})
	require.NoError(t, err)

	begin := time.Now()
	code, output, err := p.Wait()
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Contains(t, string(output), "started")
	assert.Less(t, time.Since(begin), 2*time.Second)
}

func TestExecStarter_MissingBinary(t *testing.T) {
	_, err := ExecStarter{}.Start(context.Background(), "/nonexistent/record.sh", nil)
	assert.Error(t, err)
}

func TestTruncateOutput(t *testing.T) {
	short := "capture finished"
	assert.Equal(t, short, truncateOutput([]byte(short)))

	long := strings.Repeat("x", maxLoggedOutput) + "END"
	got := truncateOutput([]byte(long))
	assert.True(t, strings.HasPrefix(got, "..."))
	assert.True(t, strings.HasSuffix(got, "END"))
	assert.Len(t, got, maxLoggedOutput+3)
}
