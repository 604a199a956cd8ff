package ingestor

import (
	"context"

	"github.com/openshift/rosa-log-ingestor/internal/delivery"
	"github.com/openshift/rosa-log-ingestor/internal/record"
)

// Sink is a streaming, backpressured consumer of enriched records.
// Send blocks (cooperatively) until the sink has capacity; a returned
// error is logged and treated as non-fatal for the calling batch (no
// SQS deletion), never causes the ingestor loop itself to terminate.
type Sink interface {
	Send(ctx context.Context, rec *record.Record) error
	// Close flushes any buffered deliveries and reports how many
	// records ultimately succeeded or failed. Called once per object
	// after its last record has been sent.
	Close(ctx context.Context) (delivery.Stats, error)
}
