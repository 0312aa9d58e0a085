// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package epg fetches and parses XMLTV program guides.
package epg

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// maxXMLSize bounds the guide document accepted from upstream or disk.
const maxXMLSize = 64 * 1024 * 1024

type TV struct {
	XMLName   xml.Name    `xml:"tv"`
	Generator string      `xml:"generator-info-name,attr,omitempty"`
	Channels  []Channel   `xml:"channel"`
	Programs  []Programme `xml:"programme"`
}

type Channel struct {
	ID          string   `xml:"id,attr"`
	DisplayName []string `xml:"display-name"`
}

type Programme struct {
	Start    string  `xml:"start,attr"`
	Stop     string  `xml:"stop,attr"`
	Channel  string  `xml:"channel,attr"`
	Titles   []Title `xml:"title"`
	Desc     []Title `xml:"desc"`
	Category []Title `xml:"category"`
}

type Title struct {
	// Lang contains the language code for the title (optional).
	Lang string `xml:"lang,attr,omitempty"`
	// Value is the character data of the title element.
	Value string `xml:",chardata"`
}

// first returns the value of the first element, or fallback when there is none.
func first(elems []Title, fallback string) string {
	if len(elems) == 0 {
		return fallback
	}
	return elems[0].Value
}

// Decode reads an XMLTV document with a strict decoder and no entity expansion.
func Decode(raw []byte) (*TV, error) {
	if len(raw) > maxXMLSize {
		return nil, fmt.Errorf("xmltv document exceeds %d bytes", maxXMLSize)
	}

	dec := xml.NewDecoder(io.LimitReader(bytes.NewReader(raw), maxXMLSize))
	dec.Strict = true
	dec.Entity = make(map[string]string)

	var doc TV
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode xmltv: %w", err)
	}
	return &doc, nil
}
