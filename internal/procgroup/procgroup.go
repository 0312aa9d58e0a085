// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup detaches child processes from the daemon's process group.
package procgroup

import "os/exec"

// Set configures the command to start in a new process group so that a
// terminal interrupt delivered to the daemon does not reach the child.
func Set(cmd *exec.Cmd) {
	set(cmd)
}
