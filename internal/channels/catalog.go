// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package channels loads the channel definition file.
//
// A channel is addressed two ways: by its XMLTV id when matching guide data,
// and by its own stable id when a recording fires. Disabled channels are
// dropped at load time and are invisible to every consumer.
package channels

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Channel is one configured channel.
type Channel struct {
	XMLTVID   string `json:"xmltv_id"`
	ID        string `json:"id"`
	Name      string `json:"name"`
	StreamURL string `json:"stream_url"`
	Enabled   bool   `json:"enabled"`
}

// Settings are optional recorder defaults carried in the channel file.
type Settings struct {
	OutputDir string `json:"output_dir,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// fileChannel distinguishes an absent "enabled" key (defaults to true) from false.
type fileChannel struct {
	XMLTVID   string `json:"xmltv_id"`
	ID        string `json:"id"`
	Name      string `json:"name"`
	StreamURL string `json:"stream_url"`
	Enabled   *bool  `json:"enabled"`
}

type fileDocument struct {
	Channels []fileChannel `json:"channels"`
	Settings Settings      `json:"settings"`
}

// Catalog is an immutable, indexed snapshot of the enabled channels.
type Catalog struct {
	byXMLTV  map[string]Channel
	byID     map[string]Channel
	ordered  []Channel
	settings Settings
}

// EmptyCatalog returns a catalog without channels.
func EmptyCatalog() *Catalog {
	return &Catalog{
		byXMLTV: map[string]Channel{},
		byID:    map[string]Channel{},
	}
}

// ParseCatalog decodes a channel file document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode channels: %w", err)
	}

	cat := EmptyCatalog()
	cat.settings = doc.Settings
	for i, fc := range doc.Channels {
		if fc.Enabled != nil && !*fc.Enabled {
			continue
		}
		ch := Channel{
			XMLTVID:   strings.TrimSpace(fc.XMLTVID),
			ID:        strings.TrimSpace(fc.ID),
			Name:      fc.Name,
			StreamURL: strings.TrimSpace(fc.StreamURL),
			Enabled:   true,
		}
		if ch.ID == "" {
			return nil, fmt.Errorf("channel #%d (%q): missing id", i, fc.Name)
		}
		if ch.Name == "" {
			ch.Name = ch.ID
		}
		if _, dup := cat.byID[ch.ID]; dup {
			return nil, fmt.Errorf("channel #%d: duplicate id %q", i, ch.ID)
		}
		cat.byID[ch.ID] = ch
		if ch.XMLTVID != "" {
			cat.byXMLTV[ch.XMLTVID] = ch
		}
		cat.ordered = append(cat.ordered, ch)
	}

	sort.SliceStable(cat.ordered, func(i, j int) bool {
		return strings.ToLower(cat.ordered[i].Name) < strings.ToLower(cat.ordered[j].Name)
	})
	return cat, nil
}

// ByID resolves a channel by its own identifier.
func (c *Catalog) ByID(id string) (Channel, bool) {
	ch, ok := c.byID[id]
	return ch, ok
}

// ByXMLTVID resolves a channel by the guide's channel key.
func (c *Catalog) ByXMLTVID(id string) (Channel, bool) {
	ch, ok := c.byXMLTV[id]
	return ch, ok
}

// List returns the enabled channels sorted by name.
func (c *Catalog) List() []Channel {
	out := make([]Channel, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Len returns the number of enabled channels.
func (c *Catalog) Len() int { return len(c.ordered) }

// Settings returns the recorder defaults from the channel file.
func (c *Catalog) Settings() Settings { return c.settings }
