// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fsutil keeps generated file paths inside their configured roots.
package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrEscapesRoot is returned when a path resolves outside its root.
var ErrEscapesRoot = errors.New("path escapes root")

// CheckConfined verifies that target, after resolving symlinks, lies
// underneath root. The target itself need not exist yet but its parent must.
func CheckConfined(root, target string) error {
	if strings.Contains(target, "\\") {
		return fmt.Errorf("path contains backslash: %s", target)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("invalid root path: %w", err)
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}

	absTarget, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("invalid target path: %w", err)
	}
	realTarget, err := resolve(absTarget)
	if err != nil {
		return err
	}

	rel, err := filepath.Rel(realRoot, realTarget)
	if err != nil {
		return fmt.Errorf("rel computation failed: %w", err)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s", ErrEscapesRoot, target)
	}
	return nil
}

// resolve follows symlinks on an existing path, or on the parent of a
// path that does not exist yet.
func resolve(path string) (string, error) {
	if _, err := os.Lstat(path); err == nil {
		rp, err := filepath.EvalSymlinks(path)
		if err != nil {
			// fail closed on dangling or looping links
			return "", fmt.Errorf("failed to resolve path: %w", err)
		}
		return rp, nil
	}
	dir, err := filepath.EvalSymlinks(filepath.Dir(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve parent path: %w", err)
	}
	return filepath.Join(dir, filepath.Base(path)), nil
}
