package delivery

import (
	"encoding/json"
	"log/slog"

	"github.com/openshift/rosa-log-ingestor/internal/models"
	"github.com/openshift/rosa-log-ingestor/internal/record"
)

// RecordToLogEvent converts one enriched ingestor record into a
// CloudWatch log event. The record's payload is assumed to be a single
// JSON object per Vector's NDJSON output; when it isn't, the raw bytes
// are delivered as the message verbatim so malformed lines are still
// forwarded rather than dropped. A record carrying no timestamp of its
// own gets a nil Timestamp, which the deliverer replaces with the S3
// object's timestamp.
func RecordToLogEvent(rec *record.Record, logger *slog.Logger) *models.LogEvent {
	var parsed map[string]interface{}
	if err := json.Unmarshal(rec.Data, &parsed); err != nil {
		return &models.LogEvent{Message: rec.String()}
	}

	var timestamp interface{}
	if ts, ok := parsed["timestamp"]; ok {
		timestamp = models.ProcessTimestampLikeVector(ts, logger)
	}

	var message interface{}
	if msg, ok := parsed["message"]; ok {
		message = msg
	} else {
		clean := make(map[string]interface{}, len(parsed))
		for k, v := range parsed {
			if !models.VectorMetadataFields[k] {
				clean[k] = v
			}
		}
		message = clean
	}

	return &models.LogEvent{Timestamp: timestamp, Message: message}
}
