// Package ingesterrors defines the per-stage error taxonomy the ingestor
// loop uses to decide SQS ack policy and to report internal events.
package ingesterrors

import "fmt"

// InvalidSQSMessageError means the SQS message body could not be parsed
// as an S3 event notification. The message is not acked.
type InvalidSQSMessageError struct {
	MessageID string
	Err       error
}

func (e *InvalidSQSMessageError) Error() string {
	return fmt.Sprintf("could not parse SQS message %q as S3 notification: %v", e.MessageID, e.Err)
}

func (e *InvalidSQSMessageError) Unwrap() error { return e.Err }

// WrongRegionError means the notification referenced a bucket in a
// region other than the one this ingestor is configured for.
type WrongRegionError struct {
	Bucket, Key, Region string
}

func (e *WrongRegionError) Error() string {
	return fmt.Sprintf("object notification for s3://%s/%s is in another region: %s", e.Bucket, e.Key, e.Region)
}

// GetObjectError wraps a failed S3 GetObject call.
type GetObjectError struct {
	Bucket, Key string
	Err         error
}

func (e *GetObjectError) Error() string {
	return fmt.Sprintf("failed to fetch s3://%s/%s: %v", e.Bucket, e.Key, e.Err)
}

func (e *GetObjectError) Unwrap() error { return e.Err }

// ReadObjectError means the byte stream for an object ended with a
// mid-stream decode/decompress/read error after some records were
// already forwarded to the sink.
type ReadObjectError struct {
	Bucket, Key string
	Message     string
}

func (e *ReadObjectError) Error() string {
	return fmt.Sprintf("failed to read all of s3://%s/%s: %s", e.Bucket, e.Key, e.Message)
}

// SinkSendError wraps a failure returned by the downstream sink.
type SinkSendError struct {
	Err error
}

func (e *SinkSendError) Error() string {
	return fmt.Sprintf("sink rejected record: %v", e.Err)
}

func (e *SinkSendError) Unwrap() error { return e.Err }

// NoReceiptHandleError means a received message had no receipt handle
// and therefore cannot ever be acked; it is skipped without retry
// bookkeeping.
type NoReceiptHandleError struct {
	MessageID string
}

func (e *NoReceiptHandleError) Error() string {
	return fmt.Sprintf("refusing to process message %q with no receipt handle", e.MessageID)
}

// FetchQueueURLError is a fatal construction-time error.
type FetchQueueURLError struct {
	QueueName string
	Err       error
}

func (e *FetchQueueURLError) Error() string {
	return fmt.Sprintf("unable to fetch queue URL for %q: %v", e.QueueName, e.Err)
}

func (e *FetchQueueURLError) Unwrap() error { return e.Err }

// MissingQueueURLError is a fatal construction-time error: the SQS
// GetQueueUrl call succeeded but returned an empty URL.
type MissingQueueURLError struct {
	QueueName string
}

func (e *MissingQueueURLError) Error() string {
	return fmt.Sprintf("got an empty queue URL for %q", e.QueueName)
}

// InvalidVisibilityTimeoutError is a fatal construction-time error.
type InvalidVisibilityTimeoutError struct {
	Timeout int64
}

func (e *InvalidVisibilityTimeoutError) Error() string {
	return fmt.Sprintf("invalid visibility timeout: %d", e.Timeout)
}

// InvalidPollIntervalError is a fatal construction-time error raised
// when the configured poll interval is not strictly positive.
type InvalidPollIntervalError struct {
	Interval string
}

func (e *InvalidPollIntervalError) Error() string {
	return fmt.Sprintf("poll interval must be strictly positive, got %s", e.Interval)
}

// MissingRegionError is a fatal construction-time error raised when
// Config.Region is empty. The region check in processRecord must
// always be able to compare against a configured region.
type MissingRegionError struct{}

func (e *MissingRegionError) Error() string {
	return "region must be set"
}

// ReceiveMessageError wraps a non-fatal SQS ReceiveMessage transport
// error; the loop logs it and continues at the next tick.
type ReceiveMessageError struct {
	Err error
}

func (e *ReceiveMessageError) Error() string {
	return fmt.Sprintf("failed to receive messages from SQS: %v", e.Err)
}

func (e *ReceiveMessageError) Unwrap() error { return e.Err }

// DeleteMessageError wraps a non-fatal SQS DeleteMessage transport
// error; the loop logs it and the message will redeliver once its
// visibility timeout expires.
type DeleteMessageError struct {
	Err error
}

func (e *DeleteMessageError) Error() string {
	return fmt.Sprintf("failed to delete SQS message: %v", e.Err)
}

func (e *DeleteMessageError) Unwrap() error { return e.Err }
