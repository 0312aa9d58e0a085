// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dvr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a schedule request the caller must fix.
	ErrValidation = errors.New("invalid schedule request")

	// ErrPastSchedule rejects requests whose adjusted start lies too far behind now.
	ErrPastSchedule = fmt.Errorf("%w: cannot schedule recordings in the past", ErrValidation)

	// ErrDuplicateSchedule rejects a second entry with an id that is pending or recording.
	ErrDuplicateSchedule = errors.New("recording already scheduled")

	// ErrPersistence reports a failed snapshot write. The in-memory change stands.
	ErrPersistence = errors.New("schedule snapshot write failed")

	// ErrUnknownChannel is returned when a due entry names a channel that is not configured.
	ErrUnknownChannel = errors.New("unknown channel")

	// ErrLaunch reports that the capture process could not be started.
	ErrLaunch = errors.New("capture launch failed")

	// ErrInvariantViolation signals a store state that must not occur, such as
	// promoting an id that is already recording.
	ErrInvariantViolation = errors.New("schedule store invariant violated")
)
