// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	// Recording attributes
	ScheduleIDKey   = "schedule.id"
	ChannelIDKey    = "recording.channel"
	RecordingPIDKey = "recording.pid"

	// Scheduler attributes
	ScanPendingKey  = "scan.pending"
	ScanFiredKey    = "scan.fired"
	ScanExpiredKey  = "scan.expired"
	ScanFailuresKey = "scan.failures"

	// EPG attributes
	EPGSourceKey = "epg.source"
	EPGBytesKey  = "epg.bytes"

	// Error attributes
	ErrorKey = "error"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// RecordingAttributes creates span attributes for one schedule entry.
// Empty values are omitted.
func RecordingAttributes(scheduleID, channelID string, pid int) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if scheduleID != "" {
		attrs = append(attrs, attribute.String(ScheduleIDKey, scheduleID))
	}
	if channelID != "" {
		attrs = append(attrs, attribute.String(ChannelIDKey, channelID))
	}
	if pid > 0 {
		attrs = append(attrs, attribute.Int(RecordingPIDKey, pid))
	}
	return attrs
}

// ScanAttributes summarizes one scheduler cycle.
func ScanAttributes(pending, fired, expired, failures int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(ScanPendingKey, pending),
		attribute.Int(ScanFiredKey, fired),
		attribute.Int(ScanExpiredKey, expired),
		attribute.Int(ScanFailuresKey, failures),
	}
}

// EPGAttributes describes one guide lookup.
func EPGAttributes(source string, size int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(EPGSourceKey, source),
		attribute.Int(EPGBytesKey, size),
	}
}

// ErrorAttributes marks a span as failed with the error text.
func ErrorAttributes(err error) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	return []attribute.KeyValue{attribute.String(ErrorKey, err.Error())}
}
