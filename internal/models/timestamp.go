package models

import (
	"errors"
	"log/slog"
	"time"
)

// millisThreshold disambiguates numeric timestamps: Vector treats any
// value above it as already being in milliseconds.
const millisThreshold = 1_000_000_000_000

// ProcessTimestampLikeVector normalizes a parsed log record's timestamp
// field the same way Vector's extract_timestamp transform does: ISO
// strings are parsed, numeric values are disambiguated between seconds
// and milliseconds by magnitude. Returns milliseconds since epoch for
// the CloudWatch PutLogEvents API; anything unparseable falls back to
// the current time.
func ProcessTimestampLikeVector(timestamp interface{}, logger *slog.Logger) int64 {
	switch ts := timestamp.(type) {
	case string:
		parsed, err := parseISOTimestamp(ts)
		if err == nil {
			return parsed.UnixMilli()
		}
		if logger != nil {
			logger.Warn("failed to parse timestamp string, using current time",
				"timestamp", ts, "error", err)
		}
		return time.Now().UnixMilli()

	case float64:
		if ts > millisThreshold {
			return int64(ts)
		}
		return int64(ts * 1000)

	case int64:
		return epochMillis(ts)

	case int:
		return epochMillis(int64(ts))

	default:
		if logger != nil {
			logger.Warn("unknown timestamp type, using current time",
				"type", ts, "value", timestamp)
		}
		return time.Now().UnixMilli()
	}
}

func epochMillis(ts int64) int64 {
	if ts > millisThreshold {
		return ts
	}
	return ts * 1000
}

var isoLayouts = []string{time.RFC3339, time.RFC3339Nano}

// parseISOTimestamp parses the ISO-8601 variants Vector emits ("%+"
// format, with or without fractional seconds, Z or numeric offset).
func parseISOTimestamp(ts string) (time.Time, error) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unable to parse timestamp")
}
