// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID  = "request_id"
	FieldScheduleID = "schedule_id"
	FieldChannelID  = "channel_id"
	FieldTraceID    = "trace_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldPID       = "pid"
	FieldExitCode  = "exit_code"

	// Recording fields
	FieldTitle      = "title"
	FieldStart      = "start"
	FieldDuration   = "duration_s"
	FieldOutputFile = "output_file"

	// Path / URL fields
	FieldPath = "path"
	FieldURL  = "url"
)
