// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package epg

import (
	"testing"
	"time"

	"github.com/ManuGH/tvrec/internal/channels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleXMLTV = `<?xml version="1.0" encoding="UTF-8"?>
<tv generator-info-name="test">
  <channel id="TF1.fr"><display-name>TF1</display-name></channel>
  <channel id="France2.fr"><display-name>France 2</display-name></channel>
  <programme start="20250101210000 +0100" stop="20250101223000 +0100" channel="TF1.fr">
    <title lang="fr">Film du soir</title>
    <desc lang="fr">Un film.</desc>
    <category lang="fr">Film</category>
  </programme>
  <programme start="20250101200000 +0100" stop="20250101204500 +0100" channel="TF1.fr">
    <title lang="fr">Le 20h</title>
    <title lang="en">News</title>
  </programme>
  <programme start="20250101203000 +0100" stop="20250101210000 +0100" channel="France2.fr">
  </programme>
  <programme start="20250101203000 +0100" stop="20250101210000 +0100" channel="M6.fr">
    <title>Not configured</title>
  </programme>
  <programme start="20250101180000 +0100" stop="20250101190000 +0100" channel="TF1.fr">
    <title>Already over</title>
  </programme>
  <programme start="2025" stop="20250101190000" channel="TF1.fr">
    <title>Broken time</title>
  </programme>
  <programme start="20250110200000 +0100" stop="20250110210000 +0100" channel="TF1.fr">
    <title>Too far ahead</title>
  </programme>
</tv>`

func testCatalog(t *testing.T) *channels.Catalog {
	t.Helper()
	cat, err := channels.ParseCatalog([]byte(`{
		"channels": [
			{"xmltv_id": "TF1.fr", "id": "tf1", "name": "TF1", "stream_url": "http://stream/tf1"},
			{"xmltv_id": "France2.fr", "id": "f2", "name": "France 2", "stream_url": "http://stream/f2"},
			{"xmltv_id": "M6.fr", "id": "m6", "name": "M6", "stream_url": "http://stream/m6", "enabled": false}
		]
	}`))
	require.NoError(t, err)
	return cat
}

func TestParsePrograms(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	from := time.Date(2025, 1, 1, 19, 30, 0, 0, loc)
	to := from.Add(7 * 24 * time.Hour)

	programs, err := ParsePrograms([]byte(sampleXMLTV), testCatalog(t), from, to)
	require.NoError(t, err)
	require.Len(t, programs, 3)

	news := programs[0]
	assert.Equal(t, Program{
		ChannelID:    "TF1.fr",
		ChannelName:  "TF1",
		ChannelKey:   "tf1",
		Title:        "Le 20h",
		Description:  "",
		Category:     "",
		Start:        "2025-01-01T20:00:00",
		Stop:         "2025-01-01T20:45:00",
		StartDisplay: "20:00",
		StopDisplay:  "20:45",
		DateDisplay:  "2025-01-01",
		Duration:     2700,
		StreamURL:    "http://stream/tf1",
		StartTime:    time.Date(2025, 1, 1, 20, 0, 0, 0, loc),
	}, news)

	untitled := programs[1]
	assert.Equal(t, "Unknown", untitled.Title)
	assert.Equal(t, "f2", untitled.ChannelKey)

	film := programs[2]
	assert.Equal(t, "Film du soir", film.Title)
	assert.Equal(t, "Un film.", film.Description)
	assert.Equal(t, "Film", film.Category)
	assert.Equal(t, 5400, film.Duration)
}

func TestParsePrograms_WindowIsInclusive(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	from := time.Date(2025, 1, 1, 20, 0, 0, 0, loc)
	to := time.Date(2025, 1, 1, 21, 0, 0, 0, loc)

	programs, err := ParsePrograms([]byte(sampleXMLTV), testCatalog(t), from, to)
	require.NoError(t, err)
	require.Len(t, programs, 3)
	assert.Equal(t, "20:00", programs[0].StartDisplay)
	assert.Equal(t, "21:00", programs[2].StartDisplay)
}

func TestParsePrograms_Malformed(t *testing.T) {
	_, err := ParsePrograms([]byte(`<tv><programme`), testCatalog(t), time.Now(), time.Now())
	assert.Error(t, err)
}

func TestParsePrograms_RejectsEntities(t *testing.T) {
	doc := `<?xml version="1.0"?>
<!DOCTYPE tv [<!ENTITY boom "boom">]>
<tv><programme start="20250101200000" stop="20250101210000" channel="TF1.fr"><title>&boom;</title></programme></tv>`
	_, err := ParsePrograms([]byte(doc), testCatalog(t), time.Now(), time.Now())
	assert.Error(t, err)
}

func TestParseTime(t *testing.T) {
	got, err := ParseTime("20250309070503 +0000", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 9, 7, 5, 3, 0, time.UTC), got)

	_, err = ParseTime("202503", time.UTC)
	assert.Error(t, err)
}
