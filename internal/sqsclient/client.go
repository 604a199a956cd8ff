// Package sqsclient wraps the SQS operations the ingestor needs:
// resolving a queue URL, receiving messages, and deleting them.
package sqsclient

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/openshift/rosa-log-ingestor/internal/ingesterrors"
)

// API is the subset of the SQS client the ingestor depends on, so tests
// can substitute a fake.
type API interface {
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Message is a single received SQS message.
type Message struct {
	MessageID     string
	ReceiptHandle *string
	Body          string
}

// Client wraps an SQS API client bound to a single resolved queue URL.
type Client struct {
	api      API
	queueURL string
	logger   *slog.Logger
}

// ResolveQueueURL calls GetQueueUrl for queueName and constructs a
// Client bound to the result. Fatal at construction: FetchQueueURLError
// wraps any transport error, MissingQueueURLError if the response had
// no URL.
func ResolveQueueURL(ctx context.Context, api API, queueName string, logger *slog.Logger) (*Client, error) {
	out, err := api.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(queueName)})
	if err != nil {
		return nil, &ingesterrors.FetchQueueURLError{QueueName: queueName, Err: err}
	}
	if out.QueueUrl == nil || *out.QueueUrl == "" {
		return nil, &ingesterrors.MissingQueueURLError{QueueName: queueName}
	}

	return &Client{api: api, queueURL: *out.QueueUrl, logger: logger}, nil
}

// QueueURL returns the resolved queue URL.
func (c *Client) QueueURL() string {
	return c.queueURL
}

// Receive fetches up to 10 messages with the given visibility timeout.
// Transport errors are not logged here; they are returned as a nil
// slice plus a ReceiveMessageError, which callers should treat as "no
// messages this tick" rather than a fatal condition.
func (c *Client) Receive(ctx context.Context, visibilityTimeoutSecs int64) ([]Message, error) {
	out, err := c.api.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: 10,
		VisibilityTimeout:   int32(visibilityTimeoutSecs),
	})
	if err != nil {
		return nil, &ingesterrors.ReceiveMessageError{Err: err}
	}

	messages := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msg := Message{ReceiptHandle: m.ReceiptHandle}
		if m.MessageId != nil {
			msg.MessageID = *m.MessageId
		}
		if m.Body != nil {
			msg.Body = *m.Body
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Delete removes a message by receipt handle. Transport errors are
// wrapped in DeleteMessageError and are never fatal to the caller's
// loop: a failed delete simply means the message redelivers once its
// visibility timeout expires.
func (c *Client) Delete(ctx context.Context, receiptHandle string) error {
	_, err := c.api.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return &ingesterrors.DeleteMessageError{Err: err}
	}
	return nil
}
