// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package epg

import (
	"context"
	"time"

	"github.com/ManuGH/tvrec/internal/channels"
	"github.com/ManuGH/tvrec/internal/metrics"
)

// Source supplies the raw guide document.
type Source interface {
	Raw(ctx context.Context) ([]byte, error)
}

// Guide combines the guide document with the channel catalog.
type Guide struct {
	source  Source
	catalog func() *channels.Catalog
	window  time.Duration
	now     func() time.Time
	loc     *time.Location
}

// NewGuide returns a guide listing programmes from now to now+days.
func NewGuide(source Source, catalog func() *channels.Catalog, days int, loc *time.Location) *Guide {
	if days <= 0 {
		days = 7
	}
	if loc == nil {
		loc = time.Local
	}
	return &Guide{
		source:  source,
		catalog: catalog,
		window:  time.Duration(days) * 24 * time.Hour,
		now:     time.Now,
		loc:     loc,
	}
}

// Programs returns the upcoming programmes of all configured channels.
func (g *Guide) Programs(ctx context.Context) ([]Program, error) {
	raw, err := g.source.Raw(ctx)
	if err != nil {
		return nil, err
	}
	now := g.now().In(g.loc)
	programs, err := ParsePrograms(raw, g.catalog(), now, now.Add(g.window))
	if err != nil {
		return nil, err
	}
	metrics.SetEPGProgrammes(len(programs))
	return programs, nil
}
