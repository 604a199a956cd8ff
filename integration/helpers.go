//go:build integration
// +build integration

// Package integration exercises the whole pipeline against LocalStack:
// a real SQS queue, S3 buckets, DynamoDB tenant table, and CloudWatch
// Logs, with the ingestor running in-process.
//
// Run with: go test -tags integration ./integration/ (LocalStack must
// be listening on localhost:4566).
package integration

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/openshift/rosa-log-ingestor/internal/compression"
	"github.com/openshift/rosa-log-ingestor/internal/ingestor"
	"github.com/openshift/rosa-log-ingestor/internal/routing"
)

const (
	localstackEndpoint = "http://localhost:4566"
	localstackRegion   = "us-east-1"

	// LocalStack accepts any role ARN for AssumeRole.
	centralRoleArn = "arn:aws:iam::000000000000:role/central-log-distribution"

	waitTimeout  = 30 * time.Second
	pollInterval = 500 * time.Millisecond
)

var queueDepthAttributes = []sqstypes.QueueAttributeName{
	sqstypes.QueueAttributeNameApproximateNumberOfMessages,
	sqstypes.QueueAttributeNameApproximateNumberOfMessagesNotVisible,
}

// Harness owns the LocalStack-backed AWS clients and the resources one
// test scenario provisions. Resource names are suffixed per test run so
// scenarios never collide on a shared LocalStack.
type Harness struct {
	t   *testing.T
	ctx context.Context

	s3Client     *s3.Client
	sqsClient    *sqs.Client
	dynamoClient *dynamodb.Client
	stsClient    *sts.Client
	cwClient     *cloudwatch.Client
	cwLogsClient *cloudwatchlogs.Client

	CentralBucket string
	QueueName     string
	queueURL      string
	TenantTable   string
	logger        *slog.Logger
}

// NewHarness builds LocalStack-configured clients and provisions a
// fresh central bucket, notification queue, and tenant config table.
func NewHarness(t *testing.T) *Harness {
	t.Helper()
	ctx := context.Background()

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(localstackRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "test")),
		awsconfig.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{URL: localstackEndpoint, HostnameImmutable: true}, nil
			}),
		),
	)
	require.NoError(t, err, "failed to build LocalStack AWS config")

	suffix := uuid.New().String()[:8]
	h := &Harness{
		t:   t,
		ctx: ctx,
		s3Client: s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.UsePathStyle = true
		}),
		sqsClient:    sqs.NewFromConfig(cfg),
		dynamoClient: dynamodb.NewFromConfig(cfg),
		stsClient:    sts.NewFromConfig(cfg),
		cwClient:     cloudwatch.NewFromConfig(cfg),
		cwLogsClient: cloudwatchlogs.NewFromConfig(cfg),

		CentralBucket: "central-logs-" + suffix,
		QueueName:     "log-notifications-" + suffix,
		TenantTable:   "tenant-configs-" + suffix,
		logger:        slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	}

	h.createBucket(h.CentralBucket)
	h.createQueue()
	h.createTenantTable()
	return h
}

func (h *Harness) createBucket(name string) {
	h.t.Helper()
	_, err := h.s3Client.CreateBucket(h.ctx, &s3.CreateBucketInput{Bucket: aws.String(name)})
	require.NoError(h.t, err, "failed to create bucket %s", name)
	h.t.Cleanup(func() {
		h.emptyBucket(name)
		_, _ = h.s3Client.DeleteBucket(h.ctx, &s3.DeleteBucketInput{Bucket: aws.String(name)})
	})
}

func (h *Harness) emptyBucket(name string) {
	out, err := h.s3Client.ListObjectsV2(h.ctx, &s3.ListObjectsV2Input{Bucket: aws.String(name)})
	if err != nil {
		return
	}
	for _, obj := range out.Contents {
		_, _ = h.s3Client.DeleteObject(h.ctx, &s3.DeleteObjectInput{Bucket: aws.String(name), Key: obj.Key})
	}
}

func (h *Harness) createQueue() {
	h.t.Helper()
	out, err := h.sqsClient.CreateQueue(h.ctx, &sqs.CreateQueueInput{QueueName: aws.String(h.QueueName)})
	require.NoError(h.t, err, "failed to create queue")
	h.queueURL = *out.QueueUrl
	h.t.Cleanup(func() {
		_, _ = h.sqsClient.DeleteQueue(h.ctx, &sqs.DeleteQueueInput{QueueUrl: out.QueueUrl})
	})
}

func (h *Harness) createTenantTable() {
	h.t.Helper()
	_, err := h.dynamoClient.CreateTable(h.ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(h.TenantTable),
		AttributeDefinitions: []dbtypes.AttributeDefinition{
			{AttributeName: aws.String("tenant_id"), AttributeType: dbtypes.ScalarAttributeTypeS},
			{AttributeName: aws.String("type"), AttributeType: dbtypes.ScalarAttributeTypeS},
		},
		KeySchema: []dbtypes.KeySchemaElement{
			{AttributeName: aws.String("tenant_id"), KeyType: dbtypes.KeyTypeHash},
			{AttributeName: aws.String("type"), KeyType: dbtypes.KeyTypeRange},
		},
		BillingMode: dbtypes.BillingModePayPerRequest,
	})
	require.NoError(h.t, err, "failed to create tenant config table")
	h.t.Cleanup(func() {
		_, _ = h.dynamoClient.DeleteTable(h.ctx, &dynamodb.DeleteTableInput{TableName: aws.String(h.TenantTable)})
	})
}

// PutCloudWatchTenantConfig registers a CloudWatch Logs destination for
// tenantID and returns the log group it will write to.
func (h *Harness) PutCloudWatchTenantConfig(tenantID string, desiredLogs []string) string {
	h.t.Helper()
	logGroup := "/customer/" + tenantID

	item := map[string]dbtypes.AttributeValue{
		"tenant_id":                 &dbtypes.AttributeValueMemberS{Value: tenantID},
		"type":                      &dbtypes.AttributeValueMemberS{Value: "cloudwatch"},
		"log_distribution_role_arn": &dbtypes.AttributeValueMemberS{Value: "arn:aws:iam::000000000000:role/" + tenantID + "-logs"},
		"log_group_name":            &dbtypes.AttributeValueMemberS{Value: logGroup},
		"target_region":             &dbtypes.AttributeValueMemberS{Value: localstackRegion},
		"enabled":                   &dbtypes.AttributeValueMemberBOOL{Value: true},
	}
	if len(desiredLogs) > 0 {
		var members []dbtypes.AttributeValue
		for _, app := range desiredLogs {
			members = append(members, &dbtypes.AttributeValueMemberS{Value: app})
		}
		item["desired_logs"] = &dbtypes.AttributeValueMemberL{Value: members}
	}

	_, err := h.dynamoClient.PutItem(h.ctx, &dynamodb.PutItemInput{
		TableName: aws.String(h.TenantTable),
		Item:      item,
	})
	require.NoError(h.t, err, "failed to put cloudwatch tenant config")
	return logGroup
}

// PutS3TenantConfig registers an S3 copy destination for tenantID and
// returns the freshly created customer bucket.
func (h *Harness) PutS3TenantConfig(tenantID, prefix string) string {
	h.t.Helper()
	bucket := tenantID + "-logs-" + uuid.New().String()[:8]
	h.createBucket(bucket)

	_, err := h.dynamoClient.PutItem(h.ctx, &dynamodb.PutItemInput{
		TableName: aws.String(h.TenantTable),
		Item: map[string]dbtypes.AttributeValue{
			"tenant_id":     &dbtypes.AttributeValueMemberS{Value: tenantID},
			"type":          &dbtypes.AttributeValueMemberS{Value: "s3"},
			"bucket_name":   &dbtypes.AttributeValueMemberS{Value: bucket},
			"bucket_prefix": &dbtypes.AttributeValueMemberS{Value: prefix},
			"target_region": &dbtypes.AttributeValueMemberS{Value: localstackRegion},
			"enabled":       &dbtypes.AttributeValueMemberBOOL{Value: true},
		},
	})
	require.NoError(h.t, err, "failed to put s3 tenant config")
	return bucket
}

// UploadLogObject gzips the NDJSON lines and writes them to the central
// bucket under the Vector-style cluster/namespace/application/pod key.
func (h *Harness) UploadLogObject(key string, lines []string) {
	h.t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	for _, line := range lines {
		_, err := gz.Write([]byte(line + "\n"))
		require.NoError(h.t, err)
	}
	require.NoError(h.t, gz.Close())

	_, err := h.s3Client.PutObject(h.ctx, &s3.PutObjectInput{
		Bucket:          aws.String(h.CentralBucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(buf.Bytes()),
		ContentEncoding: aws.String("gzip"),
	})
	require.NoError(h.t, err, "failed to upload log object")
}

// SendObjectCreatedNotification enqueues the S3 event notification the
// bucket would emit for key.
func (h *Harness) SendObjectCreatedNotification(key string) {
	h.t.Helper()
	notification := map[string]interface{}{
		"Records": []map[string]interface{}{
			{
				"eventVersion": "2.1",
				"eventSource":  "aws:s3",
				"awsRegion":    localstackRegion,
				"eventName":    "ObjectCreated:Put",
				"s3": map[string]interface{}{
					"bucket": map[string]interface{}{"name": h.CentralBucket},
					"object": map[string]interface{}{"key": key},
				},
			},
		},
	}
	body, err := json.Marshal(notification)
	require.NoError(h.t, err)

	_, err = h.sqsClient.SendMessage(h.ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(h.queueURL),
		MessageBody: aws.String(string(body)),
	})
	require.NoError(h.t, err, "failed to send notification")
}

// StartIngestor wires the routing sink and runs the poll loop in the
// background until the test ends.
func (h *Harness) StartIngestor() {
	h.t.Helper()

	sink := routing.New(h.dynamoClient, h.stsClient, h.cwClient,
		h.TenantTable, centralRoleArn, localstackEndpoint, true, h.logger)

	cfg := ingestor.Config{
		Region:            localstackRegion,
		QueueName:         h.QueueName,
		PollInterval:      pollInterval,
		VisibilityTimeout: 30,
		DeleteMessage:     true,
		Compression:       compression.Auto,
	}

	ing, err := ingestor.New(h.ctx, cfg, h.sqsClient, h.s3Client, sink, h.logger)
	require.NoError(h.t, err, "failed to construct ingestor")

	runCtx, cancel := context.WithCancel(h.ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = ing.Run(runCtx)
	}()
	h.t.Cleanup(func() {
		cancel()
		<-done
	})
}

// WaitForLogMessages polls the log group until every wanted message has
// appeared in some event.
func (h *Harness) WaitForLogMessages(logGroup string, want []string) {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		out, err := h.cwLogsClient.FilterLogEvents(h.ctx, &cloudwatchlogs.FilterLogEventsInput{
			LogGroupName: aws.String(logGroup),
		})
		if err != nil {
			return false
		}
		seen := make(map[string]bool, len(out.Events))
		for _, event := range out.Events {
			seen[aws.ToString(event.Message)] = true
		}
		for _, msg := range want {
			if !seen[msg] {
				return false
			}
		}
		return true
	}, waitTimeout, pollInterval, "log group %s never received all %d messages", logGroup, len(want))
}

// WaitForCopiedObject polls bucket until an object with the given key
// appears and returns its gunzipped contents.
func (h *Harness) WaitForCopiedObject(bucket, key string) []byte {
	h.t.Helper()
	var body []byte
	require.Eventually(h.t, func() bool {
		out, err := h.s3Client.GetObject(h.ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return false
		}
		defer out.Body.Close()

		gz, err := gzip.NewReader(out.Body)
		if err != nil {
			return false
		}
		defer gz.Close()

		var buf bytes.Buffer
		if _, err := buf.ReadFrom(gz); err != nil {
			return false
		}
		body = buf.Bytes()
		return true
	}, waitTimeout, pollInterval, "object s3://%s/%s never appeared", bucket, key)
	return body
}

// WaitForEmptyQueue asserts the notification queue drains, i.e. the
// ingestor deleted the message after a clean pass.
func (h *Harness) WaitForEmptyQueue() {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		visible, inFlight, err := h.queueDepth()
		return err == nil && visible == "0" && inFlight == "0"
	}, waitTimeout, pollInterval, "queue never drained")
}

// RequireQueueNotEmpty asserts at least one message is still visible or
// in flight, i.e. the ingestor declined to ack.
func (h *Harness) RequireQueueNotEmpty() {
	h.t.Helper()
	visible, inFlight, err := h.queueDepth()
	require.NoError(h.t, err)
	require.False(h.t, visible == "0" && inFlight == "0",
		"expected the message to survive (visible=%s in-flight=%s)", visible, inFlight)
}

func (h *Harness) queueDepth() (visible, inFlight string, err error) {
	out, err := h.sqsClient.GetQueueAttributes(h.ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(h.queueURL),
		AttributeNames: queueDepthAttributes,
	})
	if err != nil {
		return "", "", fmt.Errorf("get queue attributes: %w", err)
	}
	return out.Attributes["ApproximateNumberOfMessages"],
		out.Attributes["ApproximateNumberOfMessagesNotVisible"], nil
}
