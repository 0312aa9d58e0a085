// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// FileChecker checks if a file exists and is readable
type FileChecker struct {
	name string
	path string
}

// NewFileChecker creates a checker for file existence
func NewFileChecker(name, path string) *FileChecker {
	return &FileChecker{
		name: name,
		path: path,
	}
}

func (c *FileChecker) Name() string {
	return c.name
}

func (c *FileChecker) Check(ctx context.Context) CheckResult {
	if c.path == "" {
		return CheckResult{
			Status:  StatusHealthy,
			Message: "not configured (optional)",
		}
	}

	info, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return CheckResult{
				Status:  StatusUnhealthy,
				Error:   "file not found",
				Message: c.path,
			}
		}
		return CheckResult{
			Status: StatusUnhealthy,
			Error:  err.Error(),
		}
	}

	if info.IsDir() {
		return CheckResult{
			Status: StatusUnhealthy,
			Error:  "expected file, got directory",
		}
	}

	if info.Size() == 0 {
		return CheckResult{
			Status:  StatusDegraded,
			Message: "file is empty",
		}
	}

	return CheckResult{
		Status:  StatusHealthy,
		Message: "file exists and readable",
	}
}

// DirWritableChecker verifies that recordings can be written to a directory.
type DirWritableChecker struct {
	name string
	path string
}

// NewDirWritableChecker creates a writability checker for path.
func NewDirWritableChecker(name, path string) *DirWritableChecker {
	return &DirWritableChecker{name: name, path: path}
}

func (c *DirWritableChecker) Name() string { return c.name }

func (c *DirWritableChecker) Check(ctx context.Context) CheckResult {
	if err := os.MkdirAll(c.path, 0o755); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: c.path}
	}
	f, err := os.CreateTemp(c.path, ".tvrec-probe-*")
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: "directory is not writable", Message: c.path}
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(filepath.Clean(name))
	return CheckResult{Status: StatusHealthy, Message: "writable"}
}

// ScanChecker reports whether the recording scheduler is still scanning.
type ScanChecker struct {
	lastScan func() time.Time
	maxAge   time.Duration
}

// NewScanChecker creates a checker that degrades when no scan finished within maxAge.
func NewScanChecker(lastScan func() time.Time, maxAge time.Duration) *ScanChecker {
	return &ScanChecker{lastScan: lastScan, maxAge: maxAge}
}

func (c *ScanChecker) Name() string {
	return "scheduler"
}

func (c *ScanChecker) Check(ctx context.Context) CheckResult {
	last := c.lastScan()
	if last.IsZero() {
		return CheckResult{
			Status:  StatusDegraded,
			Message: "no scan completed yet",
		}
	}

	if age := time.Since(last); age > c.maxAge {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "last scan " + age.Truncate(time.Second).String() + " ago",
		}
	}

	return CheckResult{
		Status:  StatusHealthy,
		Message: "scanning",
	}
}

// PingChecker wraps a dependency ping such as a Redis health check.
// Failures degrade the service: the guide cache has an in-memory fallback path.
type PingChecker struct {
	name string
	ping func(ctx context.Context) error
}

// NewPingChecker creates a checker calling ping with a short timeout.
func NewPingChecker(name string, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.ping(ctx); err != nil {
		return CheckResult{Status: StatusDegraded, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: "reachable"}
}
