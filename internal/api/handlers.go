// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ManuGH/tvrec/internal/channels"
	"github.com/ManuGH/tvrec/internal/dvr"
	"github.com/ManuGH/tvrec/internal/epg"
	"github.com/ManuGH/tvrec/internal/log"
	"github.com/go-chi/chi/v5"
)

const maxScheduleBody = 64 << 10

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	list := []channels.Channel{}
	if s.deps.Channels != nil {
		if cat := s.deps.Channels.Current(); cat != nil {
			list = append(list, cat.List()...)
		}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleEPG(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")

	programs, err := s.deps.Guide.Programs(r.Context())
	if err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "epg.unavailable").Msg("guide data unavailable")
		if errors.Is(err, epg.ErrUnavailable) || errors.Is(err, epg.ErrRateLimited) {
			writeServiceUnavailable(w, "Guide data unavailable")
			return
		}
		writeInternal(w)
		return
	}
	if programs == nil {
		programs = []epg.Program{}
	}
	logger.Debug().Int("programs", len(programs)).Msg("returning programs")
	writeJSON(w, http.StatusOK, programs)
}

func (s *Server) handleRecordings(w http.ResponseWriter, r *http.Request) {
	listing := s.deps.Scheduler.Listing()
	if listing.Scheduled == nil {
		listing.Scheduled = []dvr.ScheduleEntry{}
	}
	if listing.Active == nil {
		listing.Active = []dvr.ActiveRecording{}
	}
	writeJSON(w, http.StatusOK, listing)
}

// scheduleBody is the POST /api/schedule payload.
type scheduleBody struct {
	Channel   string  `json:"channel"`
	Title     string  `json:"title"`
	Start     string  `json:"start"`
	Duration  float64 `json:"duration"`
	StreamURL string  `json:"stream_url"`
}

type scheduleResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	ID            string `json:"id"`
	AdjustedStart string `json:"adjusted_start"`
	BufferInfo    string `json:"buffer_info"`
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")

	var body scheduleBody
	dec := json.NewDecoder(io.LimitReader(r.Body, maxScheduleBody))
	if err := dec.Decode(&body); err != nil {
		writeBadRequest(w, "Invalid JSON body", err)
		return
	}

	if body.Channel == "" || body.Title == "" || body.Start == "" || body.Duration <= 0 || body.StreamURL == "" {
		writeBadRequest(w, "Missing required fields", nil)
		return
	}
	if body.Duration > dvr.MaxDurationSeconds {
		writeBadRequest(w, "Missing required fields", fmt.Errorf("duration exceeds %d seconds", dvr.MaxDurationSeconds))
		return
	}
	if body.Duration != float64(int(body.Duration)) {
		writeBadRequest(w, "Missing required fields", fmt.Errorf("duration must be whole seconds"))
		return
	}

	start, err := dvr.ParseStart(body.Start, s.cfg.Location)
	if err != nil {
		writeBadRequest(w, "Invalid start time", err)
		return
	}

	res, err := s.deps.Scheduler.Schedule(r.Context(), dvr.ScheduleRequest{
		Channel:   body.Channel,
		Title:     body.Title,
		Start:     start,
		Duration:  int(body.Duration),
		StreamURL: body.StreamURL,
	})
	switch {
	case err == nil:
	case errors.Is(err, dvr.ErrPastSchedule):
		writeBadRequest(w, "Cannot schedule recordings in the past", nil)
		return
	case errors.Is(err, dvr.ErrValidation):
		writeBadRequest(w, "Missing required fields", err)
		return
	case errors.Is(err, dvr.ErrDuplicateSchedule):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "Recording already scheduled"})
		return
	default:
		logger.Error().Err(err).Msg("schedule request failed")
		writeInternal(w)
		return
	}

	writeJSON(w, http.StatusOK, scheduleResponse{
		Success:       true,
		Message:       res.Message,
		ID:            res.ID,
		AdjustedStart: res.AdjustedStart.Format("2006-01-02T15:04:05"),
		BufferInfo:    res.BufferInfo,
	})
}

// handleCancel always reports success, even for unknown ids.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.deps.Scheduler.Cancel(r.Context(), chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
