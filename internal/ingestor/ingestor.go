// Package ingestor drives the poll/fetch/decode/split/aggregate/send
// loop that turns SQS-notified S3 object-creation events into a stream
// of enriched records handed to a Sink.
package ingestor

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/openshift/rosa-log-ingestor/internal/compression"
	"github.com/openshift/rosa-log-ingestor/internal/decode"
	"github.com/openshift/rosa-log-ingestor/internal/ingesterrors"
	"github.com/openshift/rosa-log-ingestor/internal/linesplit"
	"github.com/openshift/rosa-log-ingestor/internal/multiline"
	"github.com/openshift/rosa-log-ingestor/internal/notification"
	"github.com/openshift/rosa-log-ingestor/internal/record"
	"github.com/openshift/rosa-log-ingestor/internal/sqsclient"
)

// S3API is the subset of the S3 client the ingestor depends on.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Ingestor owns one SQS queue and drives records from it to a Sink.
type Ingestor struct {
	cfg    Config
	sqs    *sqsclient.Client
	s3     S3API
	sink   Sink
	logger *slog.Logger
}

// New validates cfg and constructs an Ingestor bound to the given
// queue, S3, and sink. Construction resolves the queue URL, so it can
// fail with FetchQueueURLError or MissingQueueURLError in addition to
// config validation errors.
func New(ctx context.Context, cfg Config, sqsAPI sqsclient.API, s3API S3API, sink Sink, logger *slog.Logger) (*Ingestor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sqsClient, err := sqsclient.ResolveQueueURL(ctx, sqsAPI, cfg.QueueName, logger)
	if err != nil {
		return nil, err
	}

	return &Ingestor{cfg: cfg, sqs: sqsClient, s3: s3API, sink: sink, logger: logger}, nil
}

// Run drives the poll loop until ctx is cancelled. It never returns a
// non-nil error except through ctx cancellation, which surfaces as
// ctx.Err().
func (in *Ingestor) Run(ctx context.Context) error {
	ticker := time.NewTicker(in.cfg.PollInterval)
	defer ticker.Stop()

	in.logger.Info("ingestor starting", "queue_url", in.sqs.QueueURL(), "poll_interval", in.cfg.PollInterval)

	for {
		select {
		case <-ctx.Done():
			in.logger.Info("ingestor stopping")
			return ctx.Err()
		case <-ticker.C:
			in.pollOnce(ctx)
		}
	}
}

// pollOnce receives one batch of SQS messages and processes each in
// turn. Receive errors are logged and swallowed: the next tick simply
// tries again.
func (in *Ingestor) pollOnce(ctx context.Context) {
	messages, err := in.sqs.Receive(ctx, in.cfg.VisibilityTimeout)
	if err != nil {
		in.logger.Error("failed to receive messages", "error", err)
		return
	}

	if len(messages) == 0 {
		return
	}

	in.logger.Info("received messages", "count", len(messages))

	for _, msg := range messages {
		in.handleMessage(ctx, msg)
	}
}

// handleMessage processes one SQS message end to end and deletes it
// iff processing succeeded and DeleteMessage is enabled.
func (in *Ingestor) handleMessage(ctx context.Context, msg sqsclient.Message) {
	if msg.ReceiptHandle == nil {
		in.logger.Warn("message has no receipt handle, skipping", "message_id", msg.MessageID)
		return
	}

	err := in.ProcessMessage(ctx, msg)
	if err != nil {
		in.logger.Error("failed to process message, leaving for redelivery",
			"message_id", msg.MessageID, "error", err)
		return
	}

	if !in.cfg.DeleteMessage {
		return
	}

	if err := in.sqs.Delete(ctx, *msg.ReceiptHandle); err != nil {
		in.logger.Error("failed to delete message", "message_id", msg.MessageID, "error", err)
		return
	}
	in.logger.Info("processed and deleted message", "message_id", msg.MessageID)
}

// ProcessMessage parses the notification body and processes every
// contained S3 event record, without touching SQS. The whole message
// is treated as failed if any record fails. Exported so alternate
// entrypoints (see internal/sqslambda) can drive the same per-message
// logic under a transport that acks messages itself.
func (in *Ingestor) ProcessMessage(ctx context.Context, msg sqsclient.Message) error {
	notif, err := notification.Parse(msg.Body)
	if err != nil {
		return &ingesterrors.InvalidSQSMessageError{MessageID: msg.MessageID, Err: err}
	}

	for _, rec := range notif.Records {
		if rec.EventName.Kind != "ObjectCreated" {
			in.logger.Debug("skipping non-ObjectCreated event", "kind", rec.EventName.Kind, "name", rec.EventName.Name)
			continue
		}
		if err := in.processRecord(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// processRecord fetches, decodes, splits, optionally aggregates, and
// forwards one S3 object's contents to the sink.
func (in *Ingestor) processRecord(ctx context.Context, evt notification.S3EventRecord) error {
	bucket := evt.S3.Bucket.Name
	key := evt.S3.Object.Key

	if evt.AWSRegion != in.cfg.Region {
		return &ingesterrors.WrongRegionError{Bucket: bucket, Key: key, Region: evt.AWSRegion}
	}

	out, err := in.s3.GetObject(ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return &ingesterrors.GetObjectError{Bucket: bucket, Key: key, Err: err}
	}
	if out.Body == nil {
		// Nothing to ingest.
		return nil
	}
	defer out.Body.Close()

	kind := compression.Resolve(in.cfg.Compression, key, out.ContentEncoding, out.ContentType)
	reader, err := decode.NewReader(kind, out.Body)
	if err != nil {
		return &ingesterrors.ReadObjectError{Bucket: bucket, Key: key, Message: err.Error()}
	}

	metadata := out.Metadata

	splitter := linesplit.New(reader)

	var lines lineSource = splitter
	if in.cfg.Multiline != nil {
		agg := multiline.New(*in.cfg.Multiline, splitter)
		// Deferred after out.Body.Close above, so it runs first: the
		// feeder goroutine must have stopped reading before the body
		// is closed under it.
		defer agg.Close()
		lines = agg
	}

	var sendErr error
	for {
		line, ok := lines.Next()
		if !ok {
			break
		}

		rec := record.Enrich(line, bucket, key, evt.AWSRegion, metadata)
		if err := in.sink.Send(ctx, rec); err != nil {
			sendErr = &ingesterrors.SinkSendError{Err: err}
			break
		}
	}

	// Close always runs once forwarding has begun, even on a failed
	// pass: the sink must flush and reset its per-object state, or a
	// redelivery of this object would append to the stale batch.
	_, closeErr := in.sink.Close(ctx)

	if sendErr != nil {
		return sendErr
	}
	if closeErr != nil {
		return &ingesterrors.SinkSendError{Err: closeErr}
	}
	if splitter.Err() != nil {
		return &ingesterrors.ReadObjectError{Bucket: bucket, Key: key, Message: splitter.Err().Error()}
	}

	return nil
}

// lineSource is satisfied by both *linesplit.Splitter and
// *multiline.Aggregator.
type lineSource interface {
	Next() ([]byte, bool)
}
