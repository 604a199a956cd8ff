// Package sqslambda adapts the ingestor's per-message handling to run
// as an SQS-triggered Lambda function instead of (or alongside) the
// long-running poll loop internal/ingestor drives directly. Lambda's
// own SQS event source mapping owns message deletion: a record that
// isn't reported as a batch item failure is deleted by the Lambda
// runtime once the invocation returns, so this adapter never calls
// SQS itself.
package sqslambda

import (
	"context"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"github.com/openshift/rosa-log-ingestor/internal/ingestor"
	"github.com/openshift/rosa-log-ingestor/internal/sqsclient"
)

// Handler wraps an *ingestor.Ingestor so it can be passed to
// lambda.Start.
type Handler struct {
	in     *ingestor.Ingestor
	logger *slog.Logger
}

// New wraps in for use as a Lambda handler.
func New(in *ingestor.Ingestor, logger *slog.Logger) *Handler {
	return &Handler{in: in, logger: logger}
}

// Handle processes every SQS record in the batch independently,
// reporting partial-batch failures (events.SQSBatchItemFailure) for
// any message whose processing failed so Lambda redelivers only that
// message rather than the whole batch.
func (h *Handler) Handle(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	var failures []events.SQSBatchItemFailure

	for _, rec := range event.Records {
		msg := sqsclient.Message{
			MessageID:     rec.MessageId,
			ReceiptHandle: &rec.ReceiptHandle,
			Body:          rec.Body,
		}

		if err := h.in.ProcessMessage(ctx, msg); err != nil {
			h.logger.Error("failed to process message, reporting batch item failure",
				"message_id", rec.MessageId, "error", err)
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
			continue
		}

		h.logger.Info("processed message", "message_id", rec.MessageId)
	}

	return events.SQSEventResponse{BatchItemFailures: failures}, nil
}
