// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	epgFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvrec_epg_fetch_total",
		Help: "Guide document lookups by the source that served them",
	}, []string{"source"}) // source=cache|upstream|stale|error

	epgProgrammes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tvrec_epg_programmes",
		Help: "Number of programmes returned by the last guide parse",
	})

	channelsEnabled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tvrec_channels_enabled",
		Help: "Number of enabled channels in the current catalog",
	})
)

// IncEPGFetch counts one guide lookup.
func IncEPGFetch(source string) { epgFetches.WithLabelValues(source).Inc() }

// SetEPGProgrammes records the programme count of the last parse.
func SetEPGProgrammes(n int) { epgProgrammes.Set(float64(n)) }

// SetChannelsEnabled records the enabled channel count.
func SetChannelsEnabled(n int) { channelsEnabled.Set(float64(n)) }
