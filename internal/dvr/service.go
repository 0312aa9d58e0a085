// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dvr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/tvrec/internal/log"
	"github.com/ManuGH/tvrec/internal/metrics"
	"github.com/rs/zerolog"
)

// BufferInfo describes the buffer policy to API clients.
var BufferInfo = fmt.Sprintf("%d minutes added before and after", BufferMinutes)

// ScheduleResult is returned for an accepted schedule request.
type ScheduleResult struct {
	ID            string
	AdjustedStart time.Time
	Message       string
	BufferInfo    string
}

// Listing is the combined view of pending and running recordings.
type Listing struct {
	Scheduled []ScheduleEntry   `json:"scheduled"`
	Active    []ActiveRecording `json:"active"`
}

// Service is the request-facing entry point to the store.
type Service struct {
	store  *Store
	clock  Clock
	logger zerolog.Logger
}

// NewService returns a service over store. A nil clock selects RealClock.
func NewService(store *Store, clock Clock) *Service {
	if clock == nil {
		clock = RealClock{}
	}
	return &Service{
		store:  store,
		clock:  clock,
		logger: log.WithComponent("dvr.service"),
	}
}

// Schedule validates req, applies the buffer policy and stores the entry.
// A failed snapshot write is logged; the entry is scheduled anyway.
func (s *Service) Schedule(ctx context.Context, req ScheduleRequest) (ScheduleResult, error) {
	logger := log.WithContext(ctx, s.logger)

	entry, err := BuildEntry(req, s.clock.Now())
	if err != nil {
		metrics.IncScheduleRequest("rejected")
		logger.Info().Err(err).Str(log.FieldChannelID, req.Channel).Msg("schedule request rejected")
		return ScheduleResult{}, err
	}

	if err := s.store.Add(entry); err != nil {
		switch {
		case errors.Is(err, ErrDuplicateSchedule):
			metrics.IncScheduleRequest("duplicate")
			return ScheduleResult{}, err
		case errors.Is(err, ErrPersistence):
			logger.Error().Err(err).Str(log.FieldScheduleID, entry.ID).Msg("recording scheduled but not persisted")
		default:
			return ScheduleResult{}, err
		}
	}

	metrics.IncScheduleRequest("accepted")
	logger.Info().
		Str(log.FieldEvent, "dvr.scheduled").
		Str(log.FieldScheduleID, entry.ID).
		Str(log.FieldChannelID, entry.Channel).
		Str(log.FieldTitle, entry.Title).
		Time(log.FieldStart, entry.Start).
		Int(log.FieldDuration, entry.Duration).
		Msg("recording scheduled")

	return ScheduleResult{
		ID:            entry.ID,
		AdjustedStart: entry.Start,
		Message:       fmt.Sprintf("Recording scheduled for %s (+%dmin buffer)", entry.Start.Format("2006-01-02 15:04"), BufferMinutes),
		BufferInfo:    BufferInfo,
	}, nil
}

// Cancel removes a pending entry. Unknown ids and running recordings are left alone.
func (s *Service) Cancel(ctx context.Context, id string) {
	logger := log.WithContext(ctx, s.logger).With().Str(log.FieldScheduleID, id).Logger()

	removed, err := s.store.RemovePending(id)
	if err != nil {
		logger.Error().Err(err).Msg("cancellation not persisted")
	}
	if removed {
		logger.Info().Str(log.FieldEvent, "dvr.cancelled").Msg("scheduled recording cancelled")
	}
}

// Listing returns the scheduled and the active recordings.
func (s *Service) Listing() Listing {
	return Listing{
		Scheduled: s.store.ListPending(),
		Active:    s.store.ListActive(),
	}
}
