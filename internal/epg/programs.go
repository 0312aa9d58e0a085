// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package epg

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ManuGH/tvrec/internal/channels"
)

const (
	xmltvTimeLayout = "20060102150405"
	isoLocalLayout  = "2006-01-02T15:04:05"
)

// Program is one broadcast on a configured channel, shaped for the web UI.
type Program struct {
	ChannelID    string `json:"channel_id"`
	ChannelName  string `json:"channel_name"`
	ChannelKey   string `json:"channel_key"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	Start        string `json:"start"`
	Stop         string `json:"stop"`
	StartDisplay string `json:"start_display"`
	StopDisplay  string `json:"stop_display"`
	DateDisplay  string `json:"date_display"`
	Duration     int    `json:"duration"`
	StreamURL    string `json:"stream_url"`

	StartTime time.Time `json:"-"`
}

// ParseTime reads the leading YYYYMMDDhhmmss of an XMLTV timestamp in loc.
// Any trailing zone offset is ignored.
func ParseTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) < len(xmltvTimeLayout) {
		return time.Time{}, fmt.Errorf("xmltv time %q too short", raw)
	}
	return time.ParseInLocation(xmltvTimeLayout, raw[:len(xmltvTimeLayout)], loc)
}

// ParsePrograms returns the programmes of configured channels whose start
// lies in [from, to], sorted by start. Times are read in from's location.
// Programmes with unreadable times are skipped.
func ParsePrograms(raw []byte, cat *channels.Catalog, from, to time.Time) ([]Program, error) {
	doc, err := Decode(raw)
	if err != nil {
		return nil, err
	}

	loc := from.Location()
	out := make([]Program, 0, len(doc.Programs))
	for _, p := range doc.Programs {
		ch, ok := cat.ByXMLTVID(p.Channel)
		if !ok {
			continue
		}
		start, err := ParseTime(p.Start, loc)
		if err != nil {
			continue
		}
		stop, err := ParseTime(p.Stop, loc)
		if err != nil {
			continue
		}
		if start.Before(from) || start.After(to) {
			continue
		}

		out = append(out, Program{
			ChannelID:    p.Channel,
			ChannelName:  ch.Name,
			ChannelKey:   ch.ID,
			Title:        first(p.Titles, "Unknown"),
			Description:  first(p.Desc, ""),
			Category:     first(p.Category, ""),
			Start:        start.Format(isoLocalLayout),
			Stop:         stop.Format(isoLocalLayout),
			StartDisplay: start.Format("15:04"),
			StopDisplay:  stop.Format("15:04"),
			DateDisplay:  start.Format("2006-01-02"),
			Duration:     int(stop.Sub(start).Seconds()),
			StreamURL:    ch.StreamURL,
			StartTime:    start,
		})
	}

	slices.SortStableFunc(out, func(a, b Program) int {
		return a.StartTime.Compare(b.StartTime)
	})
	return out, nil
}
