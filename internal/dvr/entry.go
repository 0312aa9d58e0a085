// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package dvr schedules and runs recordings of live channels.
//
// A ScheduleEntry is built from a user request by BuildEntry, kept in the
// Store until the Scheduler finds it due, handed to the Launcher which spawns
// the capture process, and tracked as an ActiveRecording until the Watcher
// sees the process exit.
package dvr

import "time"

// idLayout is the second-precision timestamp embedded in entry ids.
const idLayout = "20060102_150405"

// ScheduleEntry is a pending recording. Entries are values and never mutated
// after creation; the JSON form is the on-disk snapshot format.
type ScheduleEntry struct {
	ID               string    `json:"id"`
	Channel          string    `json:"channel"`
	Title            string    `json:"title"`
	Start            time.Time `json:"start"`
	OriginalStart    time.Time `json:"original_start"`
	Duration         int       `json:"duration"`
	OriginalDuration int       `json:"original_duration"`
	StreamURL        string    `json:"stream_url"`
	Created          time.Time `json:"created"`
	BufferMinutes    int       `json:"buffer_minutes"`
}

// ActiveRecording describes a running capture process.
type ActiveRecording struct {
	ID         string    `json:"id"`
	PID        int       `json:"pid"`
	Title      string    `json:"title"`
	Channel    string    `json:"channel"` // display name
	Started    time.Time `json:"started"`
	OutputFile string    `json:"output_file"`
}

// Handle carries what the launcher learned while spawning a capture.
type Handle struct {
	PID         int
	ChannelName string
	OutputFile  string
	Started     time.Time
}

// EntryID derives the schedule id from the channel and the adjusted start.
func EntryID(channel string, start time.Time) string {
	return channel + "_" + start.Format(idLayout)
}
