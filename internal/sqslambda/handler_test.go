package sqslambda

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshift/rosa-log-ingestor/internal/delivery"
	"github.com/openshift/rosa-log-ingestor/internal/ingestor"
	"github.com/openshift/rosa-log-ingestor/internal/models"
	"github.com/openshift/rosa-log-ingestor/internal/record"
)

type fakeSQSAPI struct{}

func (fakeSQSAPI) GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error) {
	url := "https://sqs.us-east-1.amazonaws.com/123456789012/test-queue"
	return &sqs.GetQueueUrlOutput{QueueUrl: &url}, nil
}

func (fakeSQSAPI) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (fakeSQSAPI) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeS3API struct {
	body string
	err  error
}

func (f fakeS3API) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewBufferString(f.body))}, nil
}

type fakeSink struct {
	records []*record.Record
	sendErr error
}

func (f *fakeSink) Send(ctx context.Context, rec *record.Record) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeSink) Close(ctx context.Context) (delivery.Stats, error) {
	return delivery.Stats{SuccessfulRecords: len(f.records)}, nil
}

func newTestIngestor(t *testing.T, s3API ingestor.S3API, sink ingestor.Sink) *ingestor.Ingestor {
	t.Helper()
	cfg := ingestor.DefaultConfig()
	cfg.Region = "us-east-1"
	cfg.QueueName = "test-queue"
	in, err := ingestor.New(context.Background(), cfg, fakeSQSAPI{}, s3API, sink, models.NewDefaultLogger())
	require.NoError(t, err)
	return in
}

func sqsEventBody(bucket, key string) string {
	return `{"Records":[{"eventVersion":"2.1","eventSource":"aws:s3","awsRegion":"us-east-1",` +
		`"eventName":"ObjectCreated:Put","s3":{"bucket":{"name":"` + bucket + `"},"object":{"key":"` + key + `"}}}]}`
}

func TestHandleAllMessagesSucceed(t *testing.T) {
	sink := &fakeSink{}
	in := newTestIngestor(t, fakeS3API{body: "line one\nline two\n"}, sink)
	h := New(in, models.NewDefaultLogger())

	event := events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "msg-1", ReceiptHandle: "rh-1", Body: sqsEventBody("my-bucket", "cluster/ns/app/pod/file.log")},
	}}

	resp, err := h.Handle(context.Background(), event)

	require.NoError(t, err)
	assert.Empty(t, resp.BatchItemFailures)
	assert.Len(t, sink.records, 2)
}

func TestHandleReportsBatchItemFailureForFailedMessage(t *testing.T) {
	sink := &fakeSink{}
	in := newTestIngestor(t, fakeS3API{body: "a\nb\n"}, sink)
	h := New(in, models.NewDefaultLogger())

	event := events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "good", ReceiptHandle: "rh-good", Body: sqsEventBody("bucket", "cluster/ns/app/pod/good.log")},
		{MessageId: "bad", ReceiptHandle: "rh-bad", Body: "not valid json"},
	}}

	resp, err := h.Handle(context.Background(), event)

	require.NoError(t, err)
	require.Len(t, resp.BatchItemFailures, 1)
	assert.Equal(t, "bad", resp.BatchItemFailures[0].ItemIdentifier)
}

func TestHandleEmptyBatch(t *testing.T) {
	sink := &fakeSink{}
	in := newTestIngestor(t, fakeS3API{body: ""}, sink)
	h := New(in, models.NewDefaultLogger())

	resp, err := h.Handle(context.Background(), events.SQSEvent{})

	require.NoError(t, err)
	assert.Empty(t, resp.BatchItemFailures)
}
