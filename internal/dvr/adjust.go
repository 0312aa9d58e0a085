// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dvr

import (
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/tvrec/internal/validate"
)

const (
	// BufferMinutes is added before the start and after the end of every recording.
	BufferMinutes = 10

	// PastGrace is how far behind now an adjusted start may lie and still be accepted.
	PastGrace = 5 * time.Minute

	// MaxDurationSeconds caps a single requested recording at one day.
	MaxDurationSeconds = 24 * 60 * 60
)

// ScheduleRequest is the user's intent to record a broadcast.
type ScheduleRequest struct {
	Channel   string
	Title     string
	Start     time.Time
	Duration  int // seconds
	StreamURL string
}

// BuildEntry applies the buffer policy to req. It has no side effects.
func BuildEntry(req ScheduleRequest, now time.Time) (ScheduleEntry, error) {
	v := validate.New()
	v.NotEmpty("channel", req.Channel)
	v.NotEmpty("title", req.Title)
	v.NotEmpty("stream_url", req.StreamURL)
	v.Range("duration", req.Duration, 1, MaxDurationSeconds)
	if req.Start.IsZero() {
		v.AddError("start", "value cannot be empty", req.Start)
	}
	if err := v.Err(); err != nil {
		return ScheduleEntry{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	buffer := BufferMinutes * time.Minute
	adjustedStart := req.Start.Add(-buffer)
	if adjustedStart.Before(now.Add(-PastGrace)) {
		return ScheduleEntry{}, ErrPastSchedule
	}

	return ScheduleEntry{
		ID:               EntryID(req.Channel, adjustedStart),
		Channel:          req.Channel,
		Title:            req.Title,
		Start:            adjustedStart,
		OriginalStart:    req.Start,
		Duration:         req.Duration + 2*BufferMinutes*60,
		OriginalDuration: req.Duration,
		StreamURL:        req.StreamURL,
		Created:          now,
		BufferMinutes:    BufferMinutes,
	}, nil
}

// startLayouts are tried in order for offset-less start values.
var startLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
}

// ParseStart parses an ISO-8601 start time. Values without a UTC offset are
// interpreted in loc.
func ParseStart(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: start is empty", ErrValidation)
	}
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range startLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognised start time %q", ErrValidation, raw)
}
